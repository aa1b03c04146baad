package taxonomy

// Dictionary is the advisory semantic layer over the grammar.
type Dictionary interface {
	// KnownIndustry reports whether the first segment is recognized.
	KnownIndustry(token string) bool
	// KnownModule reports whether the second segment is recognized.
	KnownModule(token string) bool
}

// StaticDictionary is a Dictionary backed by fixed token sets.
// An empty set disables that layer.
type StaticDictionary struct {
	industries map[string]bool
	modules    map[string]bool
}

// NewStaticDictionary builds a dictionary from token lists.
func NewStaticDictionary(industries, modules []string) *StaticDictionary {
	d := &StaticDictionary{
		industries: make(map[string]bool, len(industries)),
		modules:    make(map[string]bool, len(modules)),
	}
	for _, t := range industries {
		d.industries[t] = true
	}
	for _, t := range modules {
		d.modules[t] = true
	}
	return d
}

// KnownIndustry implements Dictionary.
func (d *StaticDictionary) KnownIndustry(token string) bool {
	return len(d.industries) == 0 || d.industries[token]
}

// KnownModule implements Dictionary.
func (d *StaticDictionary) KnownModule(token string) bool {
	return len(d.modules) == 0 || d.modules[token]
}
