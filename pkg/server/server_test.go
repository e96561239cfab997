package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/m-mizutani/conceptstudio/pkg/model"
	"github.com/m-mizutani/conceptstudio/pkg/repository"
	"github.com/m-mizutani/conceptstudio/pkg/server"
	"github.com/m-mizutani/conceptstudio/pkg/service/gateway"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/preference"
	"github.com/m-mizutani/conceptstudio/pkg/usecase/studio"
	"github.com/m-mizutani/gt"
)

type mockGateway struct {
	output string
	err    error
}

func (m *mockGateway) GenerateText(ctx context.Context, prompt string, modelID model.ModelID) (string, error) {
	return m.output, m.err
}

func (m *mockGateway) GenerateHTML(ctx context.Context, prompt string, modelID model.ModelID) (string, error) {
	return m.output, m.err
}

func (m *mockGateway) AnalyzeImage(ctx context.Context, prompt string, image *model.Image) (string, error) {
	return m.output, m.err
}

func (m *mockGateway) Refine(ctx context.Context, original, instructions string, kind model.Kind, modelID model.ModelID) (string, error) {
	return m.output, m.err
}

type testServer struct {
	srv   *server.Server
	gw    *mockGateway
	prefs *repository.MemoryPreference
}

func setup(t *testing.T, opts ...studio.Option) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gw := &mockGateway{output: "<html><body>Bakery</body></html>"}
	uc := studio.New(gw, repository.NewMemory(), opts...)

	prefs := repository.NewMemoryPreference()
	pref, err := preference.Load(context.Background(), prefs)
	gt.NoError(t, err)

	return &testServer{
		srv:   server.New(uc, pref),
		gw:    gw,
		prefs: prefs,
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		gt.NoError(t, err)
		r = httptest.NewRequest(method, path, bytes.NewReader(raw))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	ts.srv.ServeHTTP(w, r)
	return w
}

type stateBody struct {
	Results       []*model.Result `json:"results"`
	Busy          bool            `json:"busy"`
	Error         string          `json:"error"`
	Theme         model.Theme     `json:"theme"`
	ExportEnabled bool            `json:"export_enabled"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (ts *testServer) generate(t *testing.T, kind model.Kind, text string) *model.Result {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/generate", map[string]any{
		"text": text,
		"kind": kind,
	})
	gt.Equal(t, w.Code, http.StatusCreated)
	return decode[*model.Result](t, w)
}

func TestIndexAndHealth(t *testing.T) {
	ts := setup(t)

	w := ts.do(t, http.MethodGet, "/", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("Concept Studio")

	w = ts.do(t, http.MethodGet, "/health", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.S(t, w.Body.String()).Contains("ok")
}

func TestGenerateAndState(t *testing.T) {
	ts := setup(t)

	state := decode[stateBody](t, ts.do(t, http.MethodGet, "/api/state", nil))
	gt.A(t, state.Results).Length(0)
	gt.Equal(t, state.Theme, model.ThemeDark)
	gt.False(t, state.ExportEnabled)

	r1 := ts.generate(t, model.KindHTML, "Landing page for a bakery")
	gt.Equal(t, r1.Kind, model.KindHTML)
	gt.Equal(t, r1.Input, "Landing page for a bakery")
	gt.Equal(t, r1.Model, model.DefaultModel)

	ts.gw.output = "A short story"
	r2 := ts.generate(t, model.KindText, "Tell me a story")

	state = decode[stateBody](t, ts.do(t, http.MethodGet, "/api/state", nil))
	gt.A(t, state.Results).Length(2)
	gt.Equal(t, state.Results[0].ID, r2.ID)
	gt.Equal(t, state.Results[1].ID, r1.ID)
	gt.False(t, state.Busy)
	gt.Equal(t, state.Error, "")
}

func TestGenerateAnalysisWithImage(t *testing.T) {
	ts := setup(t)
	ts.gw.output = "A cat on a sofa"

	w := ts.do(t, http.MethodPost, "/api/generate", map[string]any{
		"kind": "analysis",
		"image": map[string]any{
			"data":      []byte{0x89, 0x50, 0x4e, 0x47},
			"mime_type": "image/png",
		},
	})
	gt.Equal(t, w.Code, http.StatusCreated)

	result := decode[*model.Result](t, w)
	gt.Equal(t, result.Kind, model.KindAnalysis)
	gt.Equal(t, result.Input, "Image Analysis")
	gt.Equal(t, result.Output, "A cat on a sofa")
}

func TestGenerateRejected(t *testing.T) {
	testCases := map[string]struct {
		body   any
		status int
		code   string
	}{
		"empty prompt": {
			body:   map[string]any{"text": "   ", "kind": "text"},
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		"unknown kind": {
			body:   map[string]any{"text": "hello", "kind": "video"},
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		"unknown model": {
			body:   map[string]any{"text": "hello", "kind": "text", "model": "gpt"},
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		"analysis without image": {
			body:   map[string]any{"text": "what is this", "kind": "analysis"},
			status: http.StatusBadRequest,
			code:   "invalid_input",
		},
		"broken json": {
			body:   "not an object",
			status: http.StatusBadRequest,
			code:   "invalid_json",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			ts := setup(t)
			w := ts.do(t, http.MethodPost, "/api/generate", tc.body)
			gt.Equal(t, w.Code, tc.status)
			gt.Equal(t, decode[errorBody](t, w).Error.Code, tc.code)
		})
	}
}

func TestGenerateRequestFailure(t *testing.T) {
	ts := setup(t)
	ts.gw.err = gateway.NewRequestError(model.ModelFlash, errors.New("quota exceeded"))

	w := ts.do(t, http.MethodPost, "/api/generate", map[string]any{"text": "hello", "kind": "text"})
	gt.Equal(t, w.Code, http.StatusBadGateway)

	body := decode[errorBody](t, w)
	gt.Equal(t, body.Error.Code, "request_failed")
	gt.Equal(t, body.Error.Message, "quota exceeded")

	state := decode[stateBody](t, ts.do(t, http.MethodGet, "/api/state", nil))
	gt.Equal(t, state.Error, "quota exceeded")
	gt.False(t, state.Busy)
	gt.A(t, state.Results).Length(0)
}

func TestRefine(t *testing.T) {
	ts := setup(t)
	target := ts.generate(t, model.KindHTML, "Landing page for a bakery")

	ts.gw.output = "<html><body>Blue bakery</body></html>"
	w := ts.do(t, http.MethodPost, "/api/results/"+string(target.ID)+"/refine", map[string]any{
		"instructions": "make it blue",
	})
	gt.Equal(t, w.Code, http.StatusCreated)

	refined := decode[*model.Result](t, w)
	gt.NotEqual(t, refined.ID, target.ID)
	gt.Equal(t, refined.Input, "Refinement: make it blue")
	gt.Equal(t, refined.Kind, model.KindHTML)

	t.Run("unknown target", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/results/missing/refine", map[string]any{"instructions": "x"})
		gt.Equal(t, w.Code, http.StatusNotFound)
		gt.Equal(t, decode[errorBody](t, w).Error.Code, "not_found")
	})

	t.Run("empty instructions", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/results/"+string(target.ID)+"/refine", map[string]any{"instructions": " "})
		gt.Equal(t, w.Code, http.StatusBadRequest)
	})
}

func TestDownload(t *testing.T) {
	ts := setup(t)
	page := ts.generate(t, model.KindHTML, "Landing page for a bakery")

	w := ts.do(t, http.MethodGet, "/api/results/"+string(page.ID)+"/download", nil)
	gt.Equal(t, w.Code, http.StatusOK)
	gt.Equal(t, w.Body.String(), "<html><body>Bakery</body></html>")
	gt.S(t, w.Header().Get("Content-Disposition")).Contains("web-concept-" + string(page.ID) + ".html")

	ts.gw.output = "plain"
	text := ts.generate(t, model.KindText, "hello")
	w = ts.do(t, http.MethodGet, "/api/results/"+string(text.ID)+"/download", nil)
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

func TestExportDisabled(t *testing.T) {
	ts := setup(t)
	page := ts.generate(t, model.KindHTML, "Landing page")

	w := ts.do(t, http.MethodPost, "/api/results/"+string(page.ID)+"/export", nil)
	gt.Equal(t, w.Code, http.StatusServiceUnavailable)
	gt.Equal(t, decode[errorBody](t, w).Error.Code, "export_disabled")
}

func TestClearResults(t *testing.T) {
	ts := setup(t)
	ts.generate(t, model.KindHTML, "one")
	ts.generate(t, model.KindHTML, "two")

	w := ts.do(t, http.MethodDelete, "/api/results", nil)
	gt.Equal(t, w.Code, http.StatusNoContent)

	state := decode[stateBody](t, ts.do(t, http.MethodGet, "/api/state", nil))
	gt.A(t, state.Results).Length(0)
}

func TestPutPreference(t *testing.T) {
	ts := setup(t)

	w := ts.do(t, http.MethodPut, "/api/preference", map[string]any{"theme": "light"})
	gt.Equal(t, w.Code, http.StatusOK)

	stored, err := ts.prefs.GetPreference(context.Background())
	gt.NoError(t, err)
	gt.Equal(t, stored.Theme, model.ThemeLight)

	state := decode[stateBody](t, ts.do(t, http.MethodGet, "/api/state", nil))
	gt.Equal(t, state.Theme, model.ThemeLight)

	w = ts.do(t, http.MethodPut, "/api/preference", map[string]any{"theme": "sepia"})
	gt.Equal(t, w.Code, http.StatusBadRequest)
}

// failingGateway rejects every call with the prompt as the provider message
type failingGateway struct {
	mockGateway
}

func (m *failingGateway) GenerateText(ctx context.Context, prompt string, modelID model.ModelID) (string, error) {
	return "", gateway.NewRequestError(modelID, errors.New(prompt))
}

func TestGenerateRequestFailureConcurrent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	uc := studio.New(&failingGateway{}, repository.NewMemory())
	pref, err := preference.Load(context.Background(), repository.NewMemoryPreference())
	gt.NoError(t, err)
	ts := &testServer{srv: server.New(uc, pref)}

	const (
		workers  = 8
		requests = 200
	)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failed   int
		mismatch []string
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < requests; i++ {
				prompt := "quota exceeded " + strconv.Itoa(w) + "-" + strconv.Itoa(i)
				raw, _ := json.Marshal(map[string]any{"text": prompt, "kind": "text"})
				r := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(raw))
				r.Header.Set("Content-Type", "application/json")
				rec := httptest.NewRecorder()
				ts.srv.ServeHTTP(rec, r)

				if rec.Code != http.StatusBadGateway {
					continue
				}

				var body errorBody
				_ = json.Unmarshal(rec.Body.Bytes(), &body)

				mu.Lock()
				failed++
				if body.Error.Message != prompt {
					mismatch = append(mismatch, prompt+" => "+body.Error.Message)
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()

	gt.True(t, failed > 0)
	gt.A(t, mismatch).Length(0)
}
