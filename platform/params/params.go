// Package params provides the nested key-path accessor used for widget
// configuration objects: dot-separated paths over map-shaped documents,
// defaults on strictly absent values, and deep merge with override-wins
// semantics.
package params

import "strings"

// Config is a nested configuration document.
type Config map[string]any

// Get returns the value at the dot-separated path, or def when the path is
// strictly absent. Present values are returned unchanged even when falsy
// (false, 0, empty collections).
func (c Config) Get(path string, def any) any {
	v, ok := c.Lookup(path)
	if !ok {
		return def
	}
	return v
}

// Lookup returns the value at path and whether it is present.
func (c Config) Lookup(path string) (any, bool) {
	cur := any(c)
	for _, part := range strings.Split(path, ".") {
		m, ok := toMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes v at the dot-separated path, creating intermediate maps as
// needed. An intermediate non-map value is replaced.
func (c Config) Set(path string, v any) {
	parts := strings.Split(path, ".")
	cur := c
	for _, part := range parts[:len(parts)-1] {
		next, ok := toMap(cur[part])
		if !ok {
			next = Config{}
			cur[part] = next
		}
		cur = next
	}
	cur[parts[len(parts)-1]] = v
}

// Merge deep-merges override into base and returns a new document. On key
// conflict the override wins; nested maps are merged recursively, all other
// values are replaced. Neither input is mutated.
func Merge(base, override Config) Config {
	out := Config{}
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, ov := range override {
		bm, bok := toMap(out[k])
		om, ook := toMap(ov)
		if bok && ook {
			out[k] = Merge(bm, om)
			continue
		}
		out[k] = cloneValue(ov)
	}
	return out
}

func cloneValue(v any) any {
	if m, ok := toMap(v); ok {
		out := Config{}
		for k, mv := range m {
			out[k] = cloneValue(mv)
		}
		return out
	}
	return v
}

// toMap normalizes the two map shapes produced by JSON and YAML decoding.
func toMap(v any) (Config, bool) {
	switch m := v.(type) {
	case Config:
		return m, true
	case map[string]any:
		return Config(m), true
	default:
		return nil, false
	}
}
