// Package emoji holds the reply decorations keyed by reply tag. A Cache is
// built once at startup and only read afterwards.
package emoji

// Lookup returns the decoration for a reply tag, or "" when there is none.
type Lookup interface {
	Lookup(tag string) string
}

type Cache struct {
	m map[string]string
}

// New copies decorations so later changes to the map do not leak in.
func New(decorations map[string]string) *Cache {
	m := make(map[string]string, len(decorations))
	for tag, d := range decorations {
		if d != "" {
			m[tag] = d
		}
	}
	return &Cache{m: m}
}

// Resolve maps each tag's emoji name to the platform format found in
// available (name -> formatted). Names missing from available fall back to
// the :name: shortcode.
func Resolve(names map[string]string, available map[string]string) *Cache {
	out := make(map[string]string, len(names))
	for tag, name := range names {
		if name == "" {
			continue
		}
		if f, ok := available[name]; ok {
			out[tag] = f
			continue
		}
		out[tag] = ":" + name + ":"
	}
	return &Cache{m: out}
}

func (c *Cache) Lookup(tag string) string {
	if c == nil {
		return ""
	}
	return c.m[tag]
}

func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return len(c.m)
}
