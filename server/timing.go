package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
)

const (
	// TimingHeader carries the handling time in whole milliseconds
	TimingHeader = "X-Response-Time-ms"
	// TimingField is the JSON field with the handling time in whole milliseconds
	TimingField = "total_time_taken"
)

// Timing middleware reports the handling time of every request in the TimingHeader.
// JSON responses are buffered and get the same value in the body, objects as TimingField,
// anything else wrapped as {"data": <payload>, "total_time_taken": ms}.
// Non-JSON responses stream through untouched.
func Timing(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		tw := &timingWriter{ResponseWriter: w, start: time.Now()}
		defer func() {
			if rv := recover(); rv != nil {
				lgr.Printf("[WARN] %s %s failed after %dms: %v", r.Method, r.URL.Path, tw.elapsed(), rv)
				panic(rv)
			}
		}()
		next.ServeHTTP(tw, r)
		tw.finish(r.Context())
	}
	return http.HandlerFunc(fn)
}

// timingWriter decides between buffering and pass-through when the headers get committed
type timingWriter struct {
	http.ResponseWriter
	start     time.Time
	status    int
	committed bool
	buffered  bool
	buf       bytes.Buffer
}

func (tw *timingWriter) elapsed() int64 {
	return time.Since(tw.start).Milliseconds()
}

// WriteHeader commits headers, pass-through responses go to the client right away
func (tw *timingWriter) WriteHeader(code int) {
	if tw.committed {
		return
	}
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		// informational responses, i.e. 103 early hints, go out as is, the final status comes later
		tw.ResponseWriter.WriteHeader(code)
		return
	}
	tw.committed = true
	tw.status = code
	if isJSON(tw.Header()) {
		tw.buffered = true
		return
	}
	tw.Header().Set(TimingHeader, strconv.FormatInt(tw.elapsed(), 10))
	tw.ResponseWriter.WriteHeader(code)
}

// Write collects JSON body or passes bytes to the client
func (tw *timingWriter) Write(b []byte) (int, error) {
	if !tw.committed {
		tw.WriteHeader(http.StatusOK)
	}
	if tw.buffered {
		return tw.buf.Write(b)
	}
	return tw.ResponseWriter.Write(b)
}

// Flush is forwarded for pass-through responses, buffered JSON is flushed once complete
func (tw *timingWriter) Flush() {
	if !tw.committed {
		tw.WriteHeader(http.StatusOK)
	}
	if tw.buffered {
		return
	}
	if f, ok := tw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (tw *timingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

// finish writes the buffered JSON response, if any
func (tw *timingWriter) finish(ctx context.Context) {
	if !tw.committed {
		tw.WriteHeader(http.StatusOK)
	}
	if !tw.buffered {
		return
	}
	if ctx.Err() != nil {
		lgr.Printf("[DEBUG] client gone, drop %d bytes of response", tw.buf.Len())
		return
	}

	ms := tw.elapsed()
	body := withTiming(tw.buf.Bytes(), ms)

	h := tw.Header()
	h.Del("Content-Length")
	h.Set(TimingHeader, strconv.FormatInt(ms, 10))
	tw.ResponseWriter.WriteHeader(tw.status)
	if _, err := tw.ResponseWriter.Write(body); err != nil {
		lgr.Printf("[WARN] can't write response: %v", err)
	}
}

// withTiming returns the body with the timing field injected. Empty or invalid bodies returned as is.
func withTiming(body []byte, ms int64) []byte {
	if len(bytes.TrimSpace(body)) == 0 {
		return body
	}

	payload, err := decodeJSON(body)
	if err != nil {
		lgr.Printf("[WARN] response declared as json can't be decoded, sent as is: %v", err)
		return body
	}

	obj, ok := payload.(map[string]any)
	if !ok {
		obj = map[string]any{"data": payload}
	}
	obj[TimingField] = ms

	res, err := json.Marshal(obj)
	if err != nil {
		lgr.Printf("[WARN] can't encode response with timing, sent as is: %v", err)
		return body
	}
	return res
}

// decodeJSON decodes exactly one JSON value, numbers kept as json.Number to survive re-encoding
func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after json value")
	}
	return payload, nil
}

// isJSON checks content type is json and the body is not encoded
func isJSON(h http.Header) bool {
	if h.Get("Content-Encoding") != "" {
		return false
	}
	ct := h.Get("Content-Type")
	if ct == "" {
		return false
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
