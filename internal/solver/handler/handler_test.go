package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/diagnostics"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/anagram-solver/internal/solver"
	apperrors "github.com/Adithya-Monish-Kumar-K/anagram-solver/pkg/errors"
)

type fakeSolver struct {
	got       solver.Request
	resp      *diagnostics.Response
	err       error
	reloadErr error
}

func (f *fakeSolver) Decompose(_ context.Context, req solver.Request) (*diagnostics.Response, error) {
	f.got = req
	return f.resp, f.err
}

func (f *fakeSolver) Dictionary() solver.DictionaryInfo {
	return solver.DictionaryInfo{Stats: dictionary.Stats{Words: 3}, Version: 2, Source: "words.txt"}
}

func (f *fakeSolver) Reload(context.Context) (solver.DictionaryInfo, error) {
	if f.reloadErr != nil {
		return solver.DictionaryInfo{}, f.reloadErr
	}
	info := f.Dictionary()
	info.Version++
	return info, nil
}

func serve(t *testing.T, s Solver, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	New(s).Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestAnagram(t *testing.T) {
	fs := &fakeSolver{resp: diagnostics.Build(diagnostics.Record{Encoding: "utf-8"}, [][]string{{"של", "לום"}}, false, "", diagnostics.SearchStats{})}

	for _, path := range []string{"/api/anagram", "/api/v1/anagram"} {
		rec := serve(t, fs, http.MethodPost, path, `{"text":"של לום","max_results":5}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d: %s", path, rec.Code, rec.Body)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("content type %q", ct)
		}
		var resp diagnostics.Response
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([][]string{{"של", "לום"}}, resp.Results); diff != "" {
			t.Errorf("results (-want +got):\n%s", diff)
		}
		if string(fs.got.Text) != "של לום" || fs.got.MaxResults != 5 {
			t.Errorf("request = %+v", fs.got)
		}
	}
}

func TestAnagramBase64(t *testing.T) {
	fs := &fakeSolver{resp: diagnostics.Empty(diagnostics.Record{})}
	raw := []byte{0xf9, 0xec, 0xe5, 0xed}
	body, _ := json.Marshal(AnagramRequest{TextBase64: base64.StdEncoding.EncodeToString(raw), Encoding: "windows-1255", Text: "ignored"})

	rec := serve(t, fs, http.MethodPost, "/api/anagram", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !bytes.Equal(fs.got.Text, raw) || fs.got.Encoding != "windows-1255" {
		t.Errorf("request = %+v", fs.got)
	}
}

func TestAnagramRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"text":`},
		{"negative max_words", `{"text":"ab","max_words":-1}`},
		{"negative max_results", `{"text":"ab","max_results":-3}`},
		{"bad base64", `{"text_base64":"%%%"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &fakeSolver{}, http.MethodPost, "/api/anagram", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d", rec.Code)
			}
			var body map[string]string
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["error"] == "" {
				t.Errorf("no error message: %s", rec.Body)
			}
		})
	}
}

func TestAnagramBusy(t *testing.T) {
	fs := &fakeSolver{err: apperrors.ErrTimeout}
	rec := serve(t, fs, http.MethodPost, "/api/anagram", `{"text":"ab"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "solver busy") {
		t.Errorf("body %s", rec.Body)
	}
}

func TestAnagramMethodNotAllowed(t *testing.T) {
	rec := serve(t, &fakeSolver{}, http.MethodGet, "/api/anagram", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status %d", rec.Code)
	}
}

func TestDictionaryEndpoints(t *testing.T) {
	rec := serve(t, &fakeSolver{}, http.MethodGet, "/api/v1/dictionary/stats", "")
	var info map[string]any
	json.Unmarshal(rec.Body.Bytes(), &info)
	if rec.Code != http.StatusOK || info["words"] != float64(3) || info["version"] != float64(2) {
		t.Errorf("stats: %d %v", rec.Code, info)
	}

	rec = serve(t, &fakeSolver{}, http.MethodPost, "/api/v1/dictionary/reload", "")
	json.Unmarshal(rec.Body.Bytes(), &info)
	if rec.Code != http.StatusOK || info["version"] != float64(3) {
		t.Errorf("reload: %d %v", rec.Code, info)
	}

	failing := &fakeSolver{reloadErr: &dictionary.LoadError{Source: "words.txt", Err: context.DeadlineExceeded}}
	rec = serve(t, failing, http.MethodPost, "/api/v1/dictionary/reload", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failed reload status %d", rec.Code)
	}
}

func TestReloadUsesAdminGuard(t *testing.T) {
	guard := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	mux := http.NewServeMux()
	New(&fakeSolver{}, WithAdminGuard(guard)).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/dictionary/reload", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unguarded reload: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/dictionary/reload", nil)
	req.Header.Set("X-API-Key", "secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("guarded reload with key: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/anagram", strings.NewReader(`{"text":""}`)))
	if rec.Code == http.StatusUnauthorized {
		t.Error("guard applied to the public route")
	}
}
