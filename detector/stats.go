package detector

import (
	"sync/atomic"
	"time"
)

// Stats holds in-memory counters; nothing here outlives the process.
type Stats struct {
	requests       atomic.Int64
	fake           atomic.Int64
	real           atomic.Int64
	errors         atomic.Int64
	cacheHits      atomic.Int64
	reloads        atomic.Int64
	reloadFailures atomic.Int64
	startTime      time.Time
}

// StatsSnapshot is the JSON view of Stats.
type StatsSnapshot struct {
	Requests       int64     `json:"requests"`
	Fake           int64     `json:"fake"`
	Real           int64     `json:"real"`
	Errors         int64     `json:"errors"`
	CacheHits      int64     `json:"cache_hits"`
	CacheEntries   int       `json:"cache_entries"`
	Reloads        int64     `json:"reloads"`
	ReloadFailures int64     `json:"reload_failures"`
	StartTime      time.Time `json:"start_time"`
	Uptime         string    `json:"uptime"`
}

func newStats() *Stats {
	return &Stats{startTime: time.Now()}
}

func (s *Stats) snapshot() StatsSnapshot {
	return StatsSnapshot{
		Requests:       s.requests.Load(),
		Fake:           s.fake.Load(),
		Real:           s.real.Load(),
		Errors:         s.errors.Load(),
		CacheHits:      s.cacheHits.Load(),
		Reloads:        s.reloads.Load(),
		ReloadFailures: s.reloadFailures.Load(),
		StartTime:      s.startTime,
		Uptime:         time.Since(s.startTime).Round(time.Second).String(),
	}
}
