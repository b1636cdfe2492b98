package camera

import (
	"bytes"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"

	"github.com/nasa-jpl/simpeaks/frame"
	"github.com/nasa-jpl/simpeaks/imgrec"
)

// GetImage returns the newest frame on a GET request.
//
// the image format may be specified in the fmt query parameter as fits, png
// or jpg; default to jpg.  FITS files carry the raw data; png and jpg are
// 16 and 8 bit previews stretched from the frame's minimum to its maximum.
//
// previews accept width (pixels, aspect ratio kept), rot (0, 90, 180, 270
// degrees clockwise) and flip (h or v) query parameters.
func GetImage(frames FrameSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := frames.Get()
		if b == nil {
			http.Error(w, "no frame has been acquired", http.StatusNotFound)
			return
		}
		defer b.Release()

		q := r.URL.Query()
		format := q.Get("fmt")
		if format == "" {
			format = "jpg"
		}
		if format == "fits" {
			// encode fully first so a failure can still change the status
			var buf bytes.Buffer
			if err := frame.WriteFits(&buf, imgrec.Cards(b), b); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			hdr := w.Header()
			hdr.Set("Content-Type", "image/fits")
			hdr.Set("Content-Disposition", "attachment; filename=image.fits")
			hdr.Set("Content-Length", strconv.Itoa(buf.Len()))
			w.WriteHeader(http.StatusOK)
			buf.WriteTo(w)
			return
		}

		width, rot := 0, 0
		var err error
		if s := q.Get("width"); s != "" {
			if width, err = strconv.Atoi(s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if s := q.Get("rot"); s != "" {
			if rot, err = strconv.Atoi(s); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		img, err := Transform(ToGray16(b), width, rot, q.Get("flip"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch format {
		case "jpg", "jpeg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
			jpeg.Encode(w, img, nil)
		case "png":
			w.Header().Set("Content-Type", "image/png")
			w.WriteHeader(http.StatusOK)
			png.Encode(w, img)
		default:
			http.Error(w, "format "+format+" not understood, use fits, png or jpg", http.StatusBadRequest)
		}
	}
}
