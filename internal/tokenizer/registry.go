// file: internal/tokenizer/registry.go
package tokenizer

import "sync"

// Registry is a static mapping from buf_type to a tokenizer constructor.
// It is safe for concurrent lookups once built; Register is intended to
// run only during process init, never after the server starts accepting
// connections (spec.md §5: "process-global, immutable after startup").
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry. Use NewDefaultRegistry for one
// pre-populated with the bundled tokenizers.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// NewDefaultRegistry returns a registry containing the bundled
// palindrome-word tagger. A real deployment may start from an empty
// Registry instead (a "null registry" per spec.md §4.3) and register
// only the tokenizers it actually ships.
//
// The C/C++ tokenizer described in spec.md §4.3 as bundled/informative is
// deliberately not registered here: it requires shelling out to an
// external compiler front-end and materializing the source to a temp
// file, which is out of scope for this module. Register it the same way
// as Polyndrom, below, if/when that capability provider exists:
//
//	registry.Register("cpp", func() Tokenizer { return cpptok.New() })
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(PolyndromBufType, func() Tokenizer { return NewPolyndromTokenizer() })
	return r
}

// Register adds or replaces the constructor for bufType.
func (r *Registry) Register(bufType string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[bufType] = ctor
}

// Get looks up and constructs a fresh Tokenizer for bufType. The second
// return value is false when no tokenizer is registered for that type —
// a distinguishable miss, not an error, so callers can build the
// "couldn't get tokenizer for buffer type" response themselves.
func (r *Registry) Get(bufType string) (Tokenizer, bool) {
	r.mu.RLock()
	ctor, ok := r.constructors[bufType]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return ctor(), true
}
