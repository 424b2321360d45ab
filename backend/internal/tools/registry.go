package tools

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"kinship/backend/internal/adapter"
)

var (
	registryOnce sync.Once
	registry     map[string]adapter.Tool
)

func loadRegistry() map[string]adapter.Tool {
	registryOnce.Do(func() {
		registry = lo.KeyBy(GetAllTools(), func(t adapter.Tool) string {
			return t.Function.Name
		})
	})
	return registry
}

// Lookup returns the definition of a tool by name
func Lookup(name string) (adapter.Tool, bool) {
	t, ok := loadRegistry()[name]
	return t, ok
}

// Names lists every registered tool name, sorted
func Names() []string {
	names := lo.Keys(loadRegistry())
	sort.Strings(names)
	return names
}
