// Package camera provides a generic HTTP interface to a simulated detector
package camera

import (
	"encoding/json"
	"errors"
	"go/types"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/nasa-jpl/simpeaks/acquire"
	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/generichttp"
	"github.com/nasa-jpl/simpeaks/params"
	"github.com/nasa-jpl/simpeaks/sink"
)

// StateReader reports the state of an acquisition
type StateReader interface {
	State() acquire.State
}

// FrameSource returns the newest frame with a reference the caller releases
type FrameSource interface {
	Get() *frame.Buffer
}

// StatsSource returns the statistics of the newest frame
type StatsSource interface {
	Last() sink.FrameStats
}

// PoolStater reports buffer pool usage
type PoolStater interface {
	Stats() frame.PoolStats
}

// HTTPDetector wraps a detector's parameter store and acquisition state in
// an HTTP interface
type HTTPDetector struct {
	Store *params.Store

	// RouteTable maps URLs to functions
	RouteTable generichttp.RouteTable
}

// NewHTTPDetector returns a new HTTP wrapper.  state is required; the
// image, stats and pool routes are added only if their source is not nil.
func NewHTTPDetector(store *params.Store, state StateReader, frames FrameSource, stats StatsSource, pool PoolStater) HTTPDetector {
	h := HTTPDetector{Store: store}
	rt := generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/acquire"}:            generichttp.GetInt(func() (int, error) { return store.GetInt(params.Acquire, 0) }),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/acquire"}:           generichttp.SetInt(func(i int) error { return store.SetInt(params.Acquire, 0, i) }),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/reset-integration"}: ResetIntegration(store),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/state"}:              GetState(state),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/parameters"}:         GetParameters(store),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/parameter/{key}"}:    GetParameter(store),
		generichttp.MethodPath{Method: http.MethodPost, Path: "/parameter/{key}"}:   SetParameter(store),
	}
	if frames != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/image"}] = GetImage(frames)
	}
	if stats != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/stats"}] = func(w http.ResponseWriter, r *http.Request) {
			generichttp.WriteJSON(w, stats.Last())
		}
	}
	if pool != nil {
		rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/pool"}] = func(w http.ResponseWriter, r *http.Request) {
			generichttp.WriteJSON(w, pool.Stats())
		}
	}
	h.RouteTable = rt
	return h
}

// RT satisfies the generichttp.HTTPer interface
func (h HTTPDetector) RT() generichttp.RouteTable {
	return h.RouteTable
}

// GetState returns the acquisition state as JSON
func GetState(s StateReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generichttp.WriteJSON(w, s.State())
	}
}

// ResetIntegration makes the next frame start from zero
func ResetIntegration(store *params.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.SetInt(params.ResetIntegration, 0, 1); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetParameters returns every parameter as a JSON object
func GetParameters(store *params.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		generichttp.WriteJSON(w, store.Snapshot())
	}
}

// paramError replies with the status matching a store error
func paramError(w http.ResponseWriter, err error) {
	var unknown params.ErrUnknownKey
	if errors.As(err, &unknown) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	generichttp.BadRequest(w, err)
}

// keyIndex extracts the key path parameter and the index query parameter
func keyIndex(r *http.Request) (string, int, error) {
	key := chi.URLParam(r, "key")
	idx := 0
	if s := r.URL.Query().Get("index"); s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return key, 0, err
		}
		idx = i
	}
	return key, idx, nil
}

// GetParameter returns one value as {"int": ...}, {"f64": ...} or
// {"str": ...} depending on the parameter's kind.  Peak parameters take
// ?index=.
func GetParameter(store *params.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, idx, err := keyIndex(r)
		if err != nil {
			generichttp.BadRequest(w, err)
			return
		}
		def, err := store.Def(key)
		if err != nil {
			paramError(w, err)
			return
		}
		var hp generichttp.HumanPayload
		switch def.Kind {
		case params.Int:
			hp.T = types.Int
			hp.Int, err = store.GetInt(key, idx)
		case params.Float:
			hp.T = types.Float64
			hp.Float, err = store.GetFloat(key, idx)
		default:
			hp.T = types.String
			hp.String, err = store.GetString(key, idx)
		}
		if err != nil {
			paramError(w, err)
			return
		}
		hp.EncodeAndRespond(w, r)
	}
}

// anyT accepts the body of any Set handler
type anyT struct {
	Int *int     `json:"int"`
	F64 *float64 `json:"f64"`
	Str *string  `json:"str"`
}

// SetParameter writes one value from a body matching the parameter's kind
func SetParameter(store *params.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, idx, err := keyIndex(r)
		if err != nil {
			generichttp.BadRequest(w, err)
			return
		}
		def, err := store.Def(key)
		if err != nil {
			paramError(w, err)
			return
		}
		var body anyT
		err = json.NewDecoder(r.Body).Decode(&body)
		defer r.Body.Close()
		if err != nil {
			generichttp.BadRequest(w, err)
			return
		}
		missing := errors.New("body has no " + string(def.Kind) + " value for " + key)
		switch def.Kind {
		case params.Int:
			if body.Int == nil {
				err = missing
				break
			}
			err = store.SetInt(key, idx, *body.Int)
		case params.Float:
			if body.F64 == nil {
				err = missing
				break
			}
			err = store.SetFloat(key, idx, *body.F64)
		default:
			if body.Str == nil {
				err = missing
				break
			}
			err = store.SetString(key, idx, *body.Str)
		}
		if err != nil {
			paramError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
