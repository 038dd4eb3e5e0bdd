// Package stage defines the fixed table of pipeline stages and the sentinel
// next-step names that control routing.
package stage

import "sort"

// Stage categories.
const (
	CategoryData         = "data"
	CategoryAnalysis     = "analysis"
	CategoryPresentation = "presentation"
)

// Sentinel next-step names. NextComplete terminates the pipeline;
// NextReExtraction loops the chain back to the extraction stage.
const (
	NextComplete     = "complete"
	NextReExtraction = "re_extraction"
)

// Definition describes one named stage of the analysis pipeline.
type Definition struct {
	Name         string
	Agent        string
	Ordinal      int
	Category     string
	Dependencies []string
}

// Registry is the declarative routing table: recommended_next_step values
// map through this table to the agent to invoke. The router carries no
// business rules of its own; conditional skips (e.g. a profiling agent
// recommending "eda" when data quality is high enough) are decided by the
// upstream agent and simply executed here.
var Registry = map[string]Definition{
	"extraction": {
		Name:         "extraction",
		Agent:        "ExtractionAgent",
		Ordinal:      1,
		Category:     CategoryData,
		Dependencies: []string{},
	},
	"profiling": {
		Name:         "profiling",
		Agent:        "ProfilingAgent",
		Ordinal:      2,
		Category:     CategoryData,
		Dependencies: []string{"extraction"},
	},
	"cleaning": {
		Name:         "cleaning",
		Agent:        "CleaningAgent",
		Ordinal:      3,
		Category:     CategoryData,
		Dependencies: []string{"profiling"},
	},
	"eda": {
		Name:         "eda",
		Agent:        "EDAAgent",
		Ordinal:      4,
		Category:     CategoryAnalysis,
		Dependencies: []string{"profiling"},
	},
	"modeling": {
		Name:         "modeling",
		Agent:        "ModelingAgent",
		Ordinal:      5,
		Category:     CategoryAnalysis,
		Dependencies: []string{"eda"},
	},
	"visualization": {
		Name:         "visualization",
		Agent:        "VisualizationAgent",
		Ordinal:      6,
		Category:     CategoryPresentation,
		Dependencies: []string{"eda"},
	},
	"reporting": {
		Name:         "reporting",
		Agent:        "ReportingAgent",
		Ordinal:      7,
		Category:     CategoryPresentation,
		Dependencies: []string{"modeling", "visualization"},
	},
}

// Known reports whether name is a recognized routing target: a registry
// stage or one of the sentinels.
func Known(name string) bool {
	if name == NextComplete || name == NextReExtraction {
		return true
	}
	_, ok := Registry[name]
	return ok
}

// Resolve maps a recommended next step to the stage definition to invoke.
// The re_extraction sentinel resolves to the extraction stage; complete
// resolves to nothing (terminal=true).
func Resolve(nextStep string) (def Definition, terminal bool, ok bool) {
	switch nextStep {
	case NextComplete:
		return Definition{}, true, true
	case NextReExtraction:
		def, ok = Registry["extraction"]
		return def, false, ok
	default:
		def, ok = Registry[nextStep]
		return def, false, ok
	}
}

// Ordered returns all stage names in pipeline order.
func Ordered() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return Registry[names[i]].Ordinal < Registry[names[j]].Ordinal
	})
	return names
}
