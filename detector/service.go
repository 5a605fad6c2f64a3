// Package detector serves fake/real predictions from the loaded model pair.
package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"newscheck/ml"
)

var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrEmptyText      = errors.New("text must not be empty")
	ErrTextTooLong    = errors.New("text too long")
)

// Options configures a Service.
type Options struct {
	VectorizerPath string
	ClassifierPath string
	CacheSize      int
	MaxTextLength  int
}

// ModelInfo describes the model pair currently in use.
type ModelInfo struct {
	Loaded         bool      `json:"loaded"`
	VectorizerType string    `json:"vectorizer_type,omitempty"`
	ClassifierType string    `json:"classifier_type,omitempty"`
	Features       int       `json:"features,omitempty"`
	VectorizerPath string    `json:"vectorizer_path"`
	ClassifierPath string    `json:"classifier_path"`
	LoadedAt       time.Time `json:"loaded_at,omitempty"`
	Generation     uint64    `json:"generation"`
	LastError      string    `json:"last_error,omitempty"`
}

type loadedModel struct {
	predictor  *ml.Predictor
	loadedAt   time.Time
	generation uint64
}

// Service owns the active predictor. The predictor is swapped atomically on
// reload so in-flight requests finish on the model they started with.
type Service struct {
	opts   Options
	logger *zap.Logger

	model      atomic.Pointer[loadedModel]
	generation atomic.Uint64
	cache      *lru.Cache[string, ml.Prediction]

	reloadMu sync.Mutex
	lastErr  atomic.Pointer[string]

	stats *Stats
}

func New(opts Options, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		opts:   opts,
		logger: logger,
		stats:  newStats(),
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New[string, ml.Prediction](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create prediction cache: %w", err)
		}
		s.cache = cache
	}
	return s, nil
}

// Reload reads both artifacts and swaps in the new predictor. On failure the
// current predictor, if any, keeps serving.
func (s *Service) Reload() (ModelInfo, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	predictor, err := ml.LoadPredictor(s.opts.VectorizerPath, s.opts.ClassifierPath)
	if err != nil {
		s.stats.reloadFailures.Add(1)
		msg := err.Error()
		s.lastErr.Store(&msg)
		s.logger.Error("Failed to load model",
			zap.String("vectorizer", s.opts.VectorizerPath),
			zap.String("classifier", s.opts.ClassifierPath),
			zap.Error(err))
		return s.Info(), err
	}

	s.SetPredictor(predictor)
	s.lastErr.Store(nil)
	s.stats.reloads.Add(1)

	info := s.Info()
	s.logger.Info("Model loaded",
		zap.String("vectorizer_type", info.VectorizerType),
		zap.String("classifier_type", info.ClassifierType),
		zap.Int("features", info.Features),
		zap.Uint64("generation", info.Generation),
		zap.Duration("took", time.Since(start)))
	return info, nil
}

// SetPredictor installs p directly, bypassing the artifact files.
func (s *Service) SetPredictor(p *ml.Predictor) {
	if p == nil {
		s.model.Store(nil)
	} else {
		s.model.Store(&loadedModel{
			predictor:  p,
			loadedAt:   time.Now(),
			generation: s.generation.Add(1),
		})
	}
	if s.cache != nil {
		s.cache.Purge()
	}
}

func (s *Service) Loaded() bool {
	return s.model.Load() != nil
}

func (s *Service) Info() ModelInfo {
	info := ModelInfo{
		VectorizerPath: s.opts.VectorizerPath,
		ClassifierPath: s.opts.ClassifierPath,
	}
	if msg := s.lastErr.Load(); msg != nil {
		info.LastError = *msg
	}
	m := s.model.Load()
	if m == nil {
		return info
	}
	info.Loaded = true
	info.VectorizerType = m.predictor.Vectorizer().Kind()
	info.ClassifierType = m.predictor.Classifier().Kind()
	info.Features = m.predictor.Vectorizer().Dim()
	info.LoadedAt = m.loadedAt
	info.Generation = m.generation
	return info
}

// Predict classifies one document.
func (s *Service) Predict(ctx context.Context, text string) (ml.Prediction, error) {
	s.stats.requests.Add(1)
	result, err := s.predict(ctx, text)
	if err != nil {
		s.stats.errors.Add(1)
		return ml.Prediction{}, err
	}
	if result.IsFake() {
		s.stats.fake.Add(1)
	} else {
		s.stats.real.Add(1)
	}
	return result, nil
}

func (s *Service) predict(ctx context.Context, text string) (ml.Prediction, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ml.Prediction{}, ErrEmptyText
	}
	if s.opts.MaxTextLength > 0 && utf8.RuneCountInString(text) > s.opts.MaxTextLength {
		return ml.Prediction{}, fmt.Errorf("%w: limit is %d characters", ErrTextTooLong, s.opts.MaxTextLength)
	}
	if err := ctx.Err(); err != nil {
		return ml.Prediction{}, err
	}

	m := s.model.Load()
	if m == nil {
		return ml.Prediction{}, ErrModelNotLoaded
	}

	key := cacheKey(m.generation, text)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			s.stats.cacheHits.Add(1)
			return cached, nil
		}
	}

	result, err := m.predictor.Predict(text)
	if err != nil {
		s.logger.Warn("Prediction failed", zap.Error(err), zap.Int("length", len(text)))
		return ml.Prediction{}, err
	}
	if s.cache != nil {
		s.cache.Add(key, result)
	}
	return result, nil
}

// Terms lists the vocabulary terms of the active vectorizer found in text.
func (s *Service) Terms(text string) []string {
	m := s.model.Load()
	if m == nil {
		return nil
	}
	if tv, ok := m.predictor.Vectorizer().(*ml.TfidfVectorizer); ok {
		return tv.Terms(text)
	}
	return nil
}

func (s *Service) Stats() StatsSnapshot {
	snapshot := s.stats.snapshot()
	if s.cache != nil {
		snapshot.CacheEntries = s.cache.Len()
	}
	return snapshot
}

func cacheKey(generation uint64, text string) string {
	sum := sha256.Sum256([]byte(text))
	return strconv.FormatUint(generation, 10) + ":" + hex.EncodeToString(sum[:])
}
