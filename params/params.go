/*
Package params is a typed parameter store with change notification.

Every parameter has a definition giving its kind and whether it is indexed.
Indexed parameters hold one value per peak; the rest hold a single value
addressed with index 0.  Writes may be clamped to limits, and hooks
registered with OnChange run after the write, outside the store's lock.
*/
package params

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Kind is the type of value a parameter holds
type Kind string

const (
	// Int parameters hold an int
	Int Kind = "int"

	// Float parameters hold a float64
	Float Kind = "float"

	// String parameters hold a string
	String Kind = "string"
)

// Limits bounds the values written to a numeric parameter
type Limits struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Def defines one parameter
type Def struct {
	Kind Kind `json:"kind"`

	// Indexed parameters hold one value per peak
	Indexed bool `json:"indexed"`

	// Limits, if not nil, clamp every write
	Limits *Limits `json:"limits,omitempty"`
}

// ErrUnknownKey is generated when a key is not in the definition table
type ErrUnknownKey struct {
	Key string
}

// Error satisfies the error interface
func (e ErrUnknownKey) Error() string {
	return fmt.Sprintf("parameter %s not found", e.Key)
}

// ErrIndexOutOfRange is generated when an index does not address a value
type ErrIndexOutOfRange struct {
	Key   string
	Index int
	Len   int
}

// Error satisfies the error interface
func (e ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("index %d out of range for parameter %s with %d values", e.Index, e.Key, e.Len)
}

// ErrWrongKind is generated when a parameter is accessed as the wrong kind
type ErrWrongKind struct {
	Key  string
	Want Kind
	Got  Kind
}

// Error satisfies the error interface
func (e ErrWrongKind) Error() string {
	return fmt.Sprintf("parameter %s is a %s, not a %s", e.Key, e.Want, e.Got)
}

// Change describes one completed write
type Change struct {
	Key    string
	Index  int
	Int    int
	Float  float64
	String string
}

// Hook is called after a parameter is written
type Hook func(Change)

type value struct {
	i int
	f float64
	s string
}

// Store holds parameter values.  It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	defs   map[string]Def
	values map[string][]value
	hooks  map[string][]Hook
	n      int
}

// New returns a store for the given definitions.  Indexed parameters get
// indexLen values each.
func New(defs map[string]Def, indexLen int) *Store {
	if indexLen < 1 {
		indexLen = 1
	}
	s := &Store{
		defs:   make(map[string]Def, len(defs)),
		values: make(map[string][]value, len(defs)),
		hooks:  map[string][]Hook{},
		n:      indexLen,
	}
	for k, d := range defs {
		s.defs[k] = d
		l := 1
		if d.Indexed {
			l = indexLen
		}
		s.values[k] = make([]value, l)
	}
	return s
}

// IndexLen is the number of values each indexed parameter holds
func (s *Store) IndexLen() int {
	return s.n
}

// Def returns the definition of key
func (s *Store) Def(key string) (Def, error) {
	d, ok := s.defs[key]
	if !ok {
		return d, ErrUnknownKey{Key: key}
	}
	return d, nil
}

// Defs returns a copy of the definition table
func (s *Store) Defs() map[string]Def {
	out := make(map[string]Def, len(s.defs))
	for k, v := range s.defs {
		out[k] = v
	}
	return out
}

// Keys returns every key in sorted order
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.defs))
	for k := range s.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// OnChange registers fn to be called after every write to key
func (s *Store) OnChange(key string, fn func(Change)) error {
	if _, ok := s.defs[key]; !ok {
		return ErrUnknownKey{Key: key}
	}
	s.mu.Lock()
	s.hooks[key] = append(s.hooks[key], fn)
	s.mu.Unlock()
	return nil
}

// slot locates the value for (key, idx).  Caller holds the lock.
func (s *Store) slot(key string, idx int, kind Kind) (*value, Def, error) {
	d, ok := s.defs[key]
	if !ok {
		return nil, d, ErrUnknownKey{Key: key}
	}
	if d.Kind != kind {
		return nil, d, ErrWrongKind{Key: key, Want: d.Kind, Got: kind}
	}
	vals := s.values[key]
	if idx < 0 || idx >= len(vals) {
		return nil, d, ErrIndexOutOfRange{Key: key, Index: idx, Len: len(vals)}
	}
	return &vals[idx], d, nil
}

// GetInt returns an int parameter
func (s *Store) GetInt(key string, idx int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _, err := s.slot(key, idx, Int)
	if err != nil {
		return 0, err
	}
	return v.i, nil
}

// GetFloat returns a float parameter
func (s *Store) GetFloat(key string, idx int) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _, err := s.slot(key, idx, Float)
	if err != nil {
		return 0, err
	}
	return v.f, nil
}

// GetString returns a string parameter
func (s *Store) GetString(key string, idx int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, _, err := s.slot(key, idx, String)
	if err != nil {
		return "", err
	}
	return v.s, nil
}

// SetInt writes an int parameter, clamped to its limits
func (s *Store) SetInt(key string, idx int, i int) error {
	s.mu.Lock()
	v, d, err := s.slot(key, idx, Int)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if d.Limits != nil {
		i = int(math.Max(d.Limits.Min, math.Min(d.Limits.Max, float64(i))))
	}
	v.i = i
	hooks := s.hooks[key]
	s.mu.Unlock()
	notify(hooks, Change{Key: key, Index: idx, Int: i})
	return nil
}

// SetFloat writes a float parameter, clamped to its limits
func (s *Store) SetFloat(key string, idx int, f float64) error {
	s.mu.Lock()
	v, d, err := s.slot(key, idx, Float)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if d.Limits != nil {
		f = math.Max(d.Limits.Min, math.Min(d.Limits.Max, f))
	}
	v.f = f
	hooks := s.hooks[key]
	s.mu.Unlock()
	notify(hooks, Change{Key: key, Index: idx, Float: f})
	return nil
}

// SetString writes a string parameter
func (s *Store) SetString(key string, idx int, str string) error {
	s.mu.Lock()
	v, _, err := s.slot(key, idx, String)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	v.s = str
	hooks := s.hooks[key]
	s.mu.Unlock()
	notify(hooks, Change{Key: key, Index: idx, String: str})
	return nil
}

func notify(hooks []Hook, c Change) {
	for _, h := range hooks {
		h(c)
	}
}

// Snapshot returns every value keyed by parameter name.  Indexed parameters
// map to a slice.
func (s *Store) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.defs))
	for k, d := range s.defs {
		vals := s.values[k]
		get := func(v value) interface{} {
			switch d.Kind {
			case Int:
				return v.i
			case Float:
				return v.f
			}
			return v.s
		}
		if !d.Indexed {
			out[k] = get(vals[0])
			continue
		}
		list := make([]interface{}, len(vals))
		for i, v := range vals {
			list[i] = get(v)
		}
		out[k] = list
	}
	return out
}
