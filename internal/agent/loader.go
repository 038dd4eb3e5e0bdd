package agent

import (
	"embed"
	"fmt"
	"sync"
)

//go:embed templates/*.md
var templateFiles embed.FS

var (
	cache   = make(map[string]string)
	cacheMu sync.RWMutex
)

// Template returns the embedded prompt template for a stage name (e.g.
// "profiling"). Templates use {placeholder} substitution; see Populate.
func Template(stageName string) (string, error) {
	cacheMu.RLock()
	if tmpl, ok := cache[stageName]; ok {
		cacheMu.RUnlock()
		return tmpl, nil
	}
	cacheMu.RUnlock()

	data, err := templateFiles.ReadFile("templates/" + stageName + ".md")
	if err != nil {
		return "", fmt.Errorf("no prompt template for stage %q: %w", stageName, err)
	}

	cacheMu.Lock()
	cache[stageName] = string(data)
	cacheMu.Unlock()

	return string(data), nil
}

// MustTemplate returns a template or panics; for templates required at
// initialization time.
func MustTemplate(stageName string) string {
	tmpl, err := Template(stageName)
	if err != nil {
		panic(fmt.Sprintf("failed to load template: %v", err))
	}
	return tmpl
}
