package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"newscheck/detector"
	"newscheck/ml"
)

type fakeDetector struct {
	result   ml.Prediction
	err      error
	loaded   bool
	lastText string
	reloads  int
}

func (f *fakeDetector) Predict(ctx context.Context, text string) (ml.Prediction, error) {
	f.lastText = text
	return f.result, f.err
}

func (f *fakeDetector) Reload() (detector.ModelInfo, error) {
	f.reloads++
	return detector.ModelInfo{Loaded: f.err == nil}, f.err
}

func (f *fakeDetector) Info() detector.ModelInfo {
	return detector.ModelInfo{Loaded: f.loaded, ClassifierType: "logistic_regression"}
}

func (f *fakeDetector) Stats() detector.StatsSnapshot {
	return detector.StatsSnapshot{Requests: 3}
}

func (f *fakeDetector) Loaded() bool {
	return f.loaded
}

func postPredict(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	RegisterHandlers(mux)
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload), w.Body.String())
	return payload
}

func TestHandlePredict(t *testing.T) {
	fake := &fakeDetector{loaded: true, result: ml.Prediction{
		Label:           ml.LabelFake,
		Confidence:      0.75,
		FakeProbability: 0.75,
		RealProbability: 0.25,
	}}
	SetDetector(fake)
	defer SetDetector(nil)

	w := postPredict(t, `{"text":"aliens endorse candidate"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	payload := decodeBody(t, w)
	if payload["prediction"] != "fake" {
		t.Fatalf("unexpected prediction: %v", payload["prediction"])
	}
	if payload["confidence"].(float64) != 0.75 {
		t.Fatalf("unexpected confidence: %v", payload["confidence"])
	}
	if payload["real_probability"].(float64) != 0.25 {
		t.Fatalf("unexpected real probability: %v", payload["real_probability"])
	}
	if fake.lastText != "aliens endorse candidate" {
		t.Fatalf("unexpected text passed to detector: %q", fake.lastText)
	}
}

func TestHandlePredictBadRequests(t *testing.T) {
	SetDetector(&fakeDetector{loaded: true})
	defer SetDetector(nil)

	for _, body := range []string{``, `not json`, `{}`, `{"content":"x"}`, `{"text":null}`} {
		w := postPredict(t, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "no text data", decodeBody(t, w)["error"], body)
	}
}

func TestHandlePredictErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{detector.ErrEmptyText, http.StatusBadRequest, "text must not be empty"},
		{detector.ErrModelNotLoaded, http.StatusServiceUnavailable, "model not loaded"},
		{errors.New("boom"), http.StatusInternalServerError, "prediction failed: boom"},
	}
	for _, tc := range cases {
		SetDetector(&fakeDetector{loaded: true, err: tc.err})
		w := postPredict(t, `{"text":"anything"}`)
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, tc.msg, decodeBody(t, w)["error"])
	}
	SetDetector(nil)

	w := postPredict(t, `{"text":"anything"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandlePredictWithService(t *testing.T) {
	svc, err := detector.New(detector.Options{
		VectorizerPath: "../ml/testdata/vectorizer.json",
		ClassifierPath: "../ml/testdata/classifier_lr.json",
		CacheSize:      16,
		MaxTextLength:  200,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)

	SetDetector(svc)
	defer SetDetector(nil)

	w := postPredict(t, `{"text":"SHOCKING: the miracle cure they don't want you to see"}`)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "model not loaded", decodeBody(t, w)["error"])

	_, err = svc.Reload()
	require.NoError(t, err)

	w = postPredict(t, `{"text":"SHOCKING: the miracle cure they don't want you to see"}`)
	require.Equal(t, http.StatusOK, w.Code)
	payload := decodeBody(t, w)
	assert.Equal(t, "fake", payload["prediction"])
	assert.InDelta(t, 0.9719, payload["fake_probability"].(float64), 1e-4)
	assert.InDelta(t, 1.0, payload["fake_probability"].(float64)+payload["real_probability"].(float64), 1e-9)

	w = postPredict(t, `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text must not be empty", decodeBody(t, w)["error"])

	w = postPredict(t, `{"text":"`+strings.Repeat("x", 201)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestModelEndpoints(t *testing.T) {
	fake := &fakeDetector{loaded: true}
	SetDetector(fake)
	defer SetDetector(nil)

	mux := http.NewServeMux()
	RegisterHandlers(mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/model", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "logistic_regression", decodeBody(t, w)["classifier_type"])

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decodeBody(t, w)["requests"])

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/model/reload", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, fake.reloads)

	fake.err = errors.New("bad artifact")
	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/model/reload", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/predict", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
