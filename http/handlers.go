package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"newscheck/detector"
	"newscheck/ml"
)

// Detector is what the handlers need from the prediction service.
type Detector interface {
	Predict(ctx context.Context, text string) (ml.Prediction, error)
	Reload() (detector.ModelInfo, error)
	Info() detector.ModelInfo
	Stats() detector.StatsSnapshot
	Loaded() bool
}

var (
	detectorSvc Detector
	logger      = zap.NewNop()
)

func SetDetector(d Detector) {
	detectorSvc = d
}

func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

func RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /predict", handlePredict)
	mux.HandleFunc("GET /api/model", handleModelInfo)
	mux.HandleFunc("POST /api/model/reload", handleModelReload)
	mux.HandleFunc("GET /api/stats", handleStats)
}

const errNoTextData = "no text data"

type predictRequest struct {
	Text *string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]interface{}{
		"status":       "ok",
		"model_loaded": detectorSvc != nil && detectorSvc.Loaded(),
	})
}

func handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, errNoTextData)
		return
	}
	if req.Text == nil {
		respondError(w, http.StatusBadRequest, errNoTextData)
		return
	}

	result, err := predict(r.Context(), *req.Text)
	if err != nil {
		status, msg := predictionError(err)
		if status >= http.StatusInternalServerError {
			logger.Warn("Prediction request failed",
				zap.String("request_id", GetRequestID(r.Context())),
				zap.Error(err))
		}
		respondError(w, status, msg)
		return
	}
	respondJSON(w, result)
}

func handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if detectorSvc == nil {
		respondError(w, http.StatusServiceUnavailable, detector.ErrModelNotLoaded.Error())
		return
	}
	respondJSON(w, detectorSvc.Info())
}

func handleModelReload(w http.ResponseWriter, r *http.Request) {
	if detectorSvc == nil {
		respondError(w, http.StatusServiceUnavailable, detector.ErrModelNotLoaded.Error())
		return
	}
	info, err := detectorSvc.Reload()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "reload failed: "+err.Error())
		return
	}
	respondJSON(w, info)
}

func handleStats(w http.ResponseWriter, r *http.Request) {
	if detectorSvc == nil {
		respondError(w, http.StatusServiceUnavailable, detector.ErrModelNotLoaded.Error())
		return
	}
	respondJSON(w, detectorSvc.Stats())
}

func predict(ctx context.Context, text string) (ml.Prediction, error) {
	if detectorSvc == nil {
		return ml.Prediction{}, detector.ErrModelNotLoaded
	}
	return detectorSvc.Predict(ctx, text)
}

// predictionError maps a prediction failure to a status code and a message
// safe to show to the user.
func predictionError(err error) (int, string) {
	switch {
	case errors.Is(err, detector.ErrEmptyText):
		return http.StatusBadRequest, "text must not be empty"
	case errors.Is(err, detector.ErrTextTooLong):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, detector.ErrModelNotLoaded):
		return http.StatusServiceUnavailable, "model not loaded"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request cancelled"
	default:
		return http.StatusInternalServerError, "prediction failed: " + err.Error()
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode JSON", zap.Error(err))
	}
}
