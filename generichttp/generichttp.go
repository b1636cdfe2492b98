// Package generichttp defines interfaces for generic devices
// and an extensible type that wraps them in an HTTP interface
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi"
)

// BoolT is a struct with a single Bool field
type BoolT struct {
	Bool bool `json:"bool"`
}

// FloatT is a struct with a single F64 field
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single Int field
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single Str field
type StrT struct {
	Str string `json:"str"`
}

// HumanPayload is a struct containing the basic types a parameter may take
// and a type tag selecting which one is meaningful
type HumanPayload struct {
	// T is the type tag; only Bool, Float64, Int and String are used
	T types.BasicKind

	Bool   bool
	Float  float64
	Int    int
	String string
}

// EncodeAndRespond writes the meaningful field of the payload as
// {"bool": ...}, {"f64": ...}, {"int": ...} or {"str": ...}
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) error {
	var v interface{}
	switch hp.T {
	case types.Bool:
		v = BoolT{Bool: hp.Bool}
	case types.Float64:
		v = FloatT{F64: hp.Float}
	case types.Int:
		v = IntT{Int: hp.Int}
	default:
		v = StrT{Str: hp.String}
	}
	return WriteJSON(w, v)
}

// WriteJSON replies 200 with v encoded as JSON
func WriteJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
	return err
}

// MethodPath is a key of a RouteTable
type MethodPath struct {
	Method string
	Path   string
}

// RouteTable maps methods and paths to handlers
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the sorted, unique paths in the table
func (rt RouteTable) Endpoints() []string {
	seen := map[string]struct{}{}
	routes := make([]string, 0, len(rt))
	for k := range rt {
		if _, ok := seen[k.Path]; ok {
			continue
		}
		seen[k.Path] = struct{}{}
		routes = append(routes, k.Path)
	}
	sort.Strings(routes)
	return routes
}

// Bind registers every route in the table on r
func (rt RouteTable) Bind(r chi.Router) {
	for k, f := range rt {
		r.MethodFunc(k.Method, k.Path, f)
	}
}

// HTTPer is something that exposes a RouteTable
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize converts a user supplied endpoint such as "omc/nkt/" to
// the form chi mounts at, "/omc/nkt"
func SubMuxSanitize(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	return "/" + s
}

// BadRequest replies 400 with err's message
func BadRequest(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// get adapts a getter to a handler replying with wrap(value)
func get[T any](fcn func() (T, error), wrap func(T) interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		WriteJSON(w, wrap(v))
	}
}

// set adapts a setter to a handler decoding a P from the body
func set[P any, T any](fcn func(T) error, unwrap func(P) T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p P
		err := json.NewDecoder(r.Body).Decode(&p)
		defer r.Body.Close()
		if err != nil {
			BadRequest(w, err)
			return
		}
		if err = fcn(unwrap(p)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return get(fcn, func(f float64) interface{} { return FloatT{F64: f} })
}

// SetFloat parses a JSON input of {'f64': value} and
// calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return set(fcn, func(p FloatT) float64 { return p.F64 })
}

// GetInt returns the response as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return get(fcn, func(i int) interface{} { return IntT{Int: i} })
}

// SetInt parses {'int': value}
func SetInt(fcn func(int) error) http.HandlerFunc {
	return set(fcn, func(p IntT) int { return p.Int })
}

// GetString returns the response as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return get(fcn, func(s string) interface{} { return StrT{Str: s} })
}

// SetString parses {'str': value}
func SetString(fcn func(string) error) http.HandlerFunc {
	return set(fcn, func(p StrT) string { return p.Str })
}

// GetBool returns the response as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return get(fcn, func(b bool) interface{} { return BoolT{Bool: b} })
}

// SetBool parses {'bool': value}
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return set(fcn, func(p BoolT) bool { return p.Bool })
}
