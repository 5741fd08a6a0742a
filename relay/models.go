package relay

import (
	"maps"
	"sort"
	"sync"
)

// DefaultModelKey is the model clients get when they name none, or one the
// table does not know.
const DefaultModelKey = "astra-2.5"

// builtinModels maps the public model keys to Workers AI identifiers.
var builtinModels = map[string]string{
	"astra-2.5":     "@cf/meta/llama-3.1-8b-instruct-fp8",
	"astra-3.0-pro": "@cf/meta/llama-3.1-70b-instruct-awq",
}

// Models is the table from public model keys to upstream identifiers. It is
// safe for concurrent use; Replace swaps the whole table when the config
// file changes.
type Models struct {
	mu         sync.RWMutex
	table      map[string]string
	defaultKey string
}

// NewModels returns the built-in table with overrides applied. An empty
// defaultKey means DefaultModelKey.
func NewModels(overrides map[string]string, defaultKey string) *Models {
	m := &Models{}
	m.Replace(overrides, defaultKey)
	return m
}

// Replace rebuilds the table from the built-ins and overrides.
func (m *Models) Replace(overrides map[string]string, defaultKey string) {
	table := maps.Clone(builtinModels)
	for k, v := range overrides {
		if v == "" {
			continue
		}
		table[k] = v
	}

	if _, ok := table[defaultKey]; !ok {
		defaultKey = DefaultModelKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.table = table
	m.defaultKey = defaultKey
}

// Resolve returns the upstream identifier for key and the key actually
// used. Unknown and empty keys resolve to the default model.
func (m *Models) Resolve(key string) (id string, resolvedKey string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if id, ok := m.table[key]; ok {
		return id, key
	}
	return m.table[m.defaultKey], m.defaultKey
}

// Keys returns the known model keys in sorted order.
func (m *Models) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.table))
	for k := range m.table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
