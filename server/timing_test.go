package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveTiming(t *testing.T, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	Timing(h).ServeHTTP(rr, req)
	return rr
}

func timingHeader(t *testing.T, rr *httptest.ResponseRecorder) int64 {
	t.Helper()
	v := rr.Header().Get(TimingHeader)
	require.NotEmpty(t, v, "timing header missing")
	ms, err := strconv.ParseInt(v, 10, 64)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, ms, int64(0))
	return ms
}

func writeJSON(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write([]byte(body))
	}
}

func TestTiming_JSONObject(t *testing.T) {
	rr := serveTiming(t, writeJSON(`{"a":1}`))
	assert.Equal(t, http.StatusOK, rr.Code)
	ms := timingHeader(t, rr)
	assert.Empty(t, rr.Header().Get("Content-Length"), "content length dropped")

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
	assert.InDelta(t, 1, resp["a"], 0)
	assert.InDelta(t, float64(ms), resp[TimingField], 0, "same value in header and body")
}

func TestTiming_JSONNonObject(t *testing.T) {
	tbl := []struct {
		name string
		body string
		data any
	}{
		{name: "array", body: `[1,2]`, data: []any{1.0, 2.0}},
		{name: "string", body: `"hello"`, data: "hello"},
		{name: "number", body: `42`, data: 42.0},
		{name: "null", body: `null`, data: nil},
		{name: "bool", body: "true\n", data: true},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			rr := serveTiming(t, writeJSON(tt.body))
			timingHeader(t, rr)
			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Len(t, resp, 2)
			assert.Equal(t, tt.data, resp["data"])
			assert.Contains(t, resp, TimingField)
		})
	}
}

func TestTiming_JSONDetails(t *testing.T) {
	t.Run("existing field overwritten", func(t *testing.T) {
		rr := serveTiming(t, writeJSON(`{"total_time_taken":"old"}`))
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.IsType(t, float64(0), resp[TimingField])
	})

	t.Run("large numbers kept", func(t *testing.T) {
		rr := serveTiming(t, writeJSON(`{"id":12345678901234567890,"f":1.5}`))
		assert.Contains(t, rr.Body.String(), `"id":12345678901234567890`)
		assert.Contains(t, rr.Body.String(), `"f":1.5`)
	})

	t.Run("status and headers kept", func(t *testing.T) {
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("X-Custom", "value")
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"ok":`))
			_, _ = w.Write([]byte(`true}`))
		})
		assert.Equal(t, http.StatusCreated, rr.Code)
		assert.Equal(t, "value", rr.Header().Get("X-Custom"))
		assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
		timingHeader(t, rr)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, true, resp["ok"])
	})

	t.Run("problem json", func(t *testing.T) {
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"title":"bad"}`))
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), TimingField)
	})

	t.Run("server errors wrapped too", func(t *testing.T) {
		rr := serveTiming(t, func(w http.ResponseWriter, r *http.Request) { renderInternalError(w, r) })
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		timingHeader(t, rr)
		var resp map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Internal Server Error", resp["detail"])
		assert.Contains(t, resp, TimingField)
	})
}

func TestTiming_EarlyHints(t *testing.T) {
	ts := httptest.NewServer(Timing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Link", "</style.css>; rel=preload; as=style")
		w.WriteHeader(http.StatusEarlyHints)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode, "final status after 103")
	assert.NotEmpty(t, resp.Header.Get(TimingHeader))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
	assert.Contains(t, body, TimingField)
}

func TestTiming_Passthrough(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		body := "just text, not {json}"
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(body))
		})
		timingHeader(t, rr)
		assert.Equal(t, body, rr.Body.String(), "byte identical")
	})

	t.Run("binary without content type", func(t *testing.T) {
		body := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write(body) })
		timingHeader(t, rr)
		assert.Equal(t, body, rr.Body.Bytes())
	})

	t.Run("encoded json", func(t *testing.T) {
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Encoding", "gzip")
			_, _ = w.Write([]byte("\x1f\x8b compressed"))
		})
		timingHeader(t, rr)
		assert.Equal(t, "\x1f\x8b compressed", rr.Body.String())
	})

	t.Run("malformed json", func(t *testing.T) {
		rr := serveTiming(t, writeJSON(`{"a":1`))
		timingHeader(t, rr)
		assert.Equal(t, `{"a":1`, rr.Body.String())
	})

	t.Run("trailing data", func(t *testing.T) {
		rr := serveTiming(t, writeJSON(`{"a":1} {"b":2}`))
		assert.Equal(t, `{"a":1} {"b":2}`, rr.Body.String())
	})

	t.Run("empty json body", func(t *testing.T) {
		rr := serveTiming(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNoContent)
		})
		assert.Equal(t, http.StatusNoContent, rr.Code)
		timingHeader(t, rr)
		assert.Empty(t, rr.Body.String())
	})

	t.Run("nothing written", func(t *testing.T) {
		rr := serveTiming(t, func(http.ResponseWriter, *http.Request) {})
		assert.Equal(t, http.StatusOK, rr.Code)
		timingHeader(t, rr)
	})
}

func TestTiming_Streaming(t *testing.T) {
	proceed := make(chan struct{})
	ts := httptest.NewServer(Timing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("data: first\n"))
		w.(http.Flusher).Flush()
		<-proceed
		_, _ = w.Write([]byte("data: second\n"))
	})))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get(TimingHeader))

	rd := bufio.NewReader(resp.Body)
	line, err := rd.ReadString('\n')
	require.NoError(t, err, "first chunk arrives before the handler is done")
	assert.Equal(t, "data: first\n", line)

	close(proceed)
	line, err = rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: second\n", line)
}

func TestTiming_Panic(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })

	t.Run("re-raised", func(t *testing.T) {
		assert.PanicsWithValue(t, "boom", func() {
			Timing(boom).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		})
	})

	t.Run("recovered inside gets the header", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h := Timing(rest.Recoverer(lgr.Default())(boom))
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		timingHeader(t, rr)
	})
}

func TestTiming_ClientGone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody).WithContext(ctx)
	rr := httptest.NewRecorder()
	Timing(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"a":1}`))
		cancel()
	})).ServeHTTP(rr, req)
	assert.Empty(t, rr.Body.String(), "buffer dropped")
}

func TestWithTiming(t *testing.T) {
	assert.JSONEq(t, `{"a":{"b":[1,2]},"total_time_taken":7}`, string(withTiming([]byte(`{"a":{"b":[1,2]}}`), 7)))
	assert.JSONEq(t, `{"data":[],"total_time_taken":0}`, string(withTiming([]byte(`[]`), 0)))
	assert.Equal(t, "  \n", string(withTiming([]byte("  \n"), 5)))
	assert.Equal(t, "nope", string(withTiming([]byte("nope"), 5)))
}

func TestIsJSON(t *testing.T) {
	tbl := []struct {
		ct, enc string
		want    bool
	}{
		{ct: "application/json", want: true},
		{ct: "application/json; charset=utf-8", want: true},
		{ct: "Application/JSON", want: true},
		{ct: "application/vnd.api+json", want: true},
		{ct: "application/json", enc: "br", want: false},
		{ct: "text/plain", want: false},
		{ct: "text/html; charset=utf-8", want: false},
		{ct: "application/jsonl", want: false},
		{ct: "", want: false},
		{ct: ";;", want: false},
	}
	for _, tt := range tbl {
		h := http.Header{}
		if tt.ct != "" {
			h.Set("Content-Type", tt.ct)
		}
		if tt.enc != "" {
			h.Set("Content-Encoding", tt.enc)
		}
		assert.Equal(t, tt.want, isJSON(h), "%q %q", tt.ct, tt.enc)
	}
}
