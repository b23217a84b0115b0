package app

import (
	"encoding/json"
	"net/http"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/imu_stream/internal/env"
	imu_raw "github.com/relabs-tech/imu_stream/internal/imu"
	"github.com/relabs-tech/imu_stream/internal/orientation"
)

// LatestSamples keeps the most recent sample of each kind and serves them
// over HTTP. It is an AttitudeSink.
type LatestSamples struct {
	mu       sync.RWMutex
	attitude orientation.Attitude
	raw      imu_raw.IMURaw
	env      env.Sample
	have     struct{ attitude, raw, env bool }
}

func (l *LatestSamples) PublishAttitude(a orientation.Attitude) error {
	l.mu.Lock()
	l.attitude, l.have.attitude = a, true
	l.mu.Unlock()
	return nil
}

func (l *LatestSamples) PublishRaw(r imu_raw.IMURaw) error {
	l.mu.Lock()
	l.raw, l.have.raw = r, true
	l.mu.Unlock()
	return nil
}

func (l *LatestSamples) PublishEnv(e env.Sample) error {
	l.mu.Lock()
	l.env, l.have.env = e, true
	l.mu.Unlock()
	return nil
}

// Attitude returns the latest attitude, if any.
func (l *LatestSamples) Attitude() (orientation.Attitude, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.attitude, l.have.attitude
}

// Handler serves /api/attitude, /api/imu and /api/env.
func (l *LatestSamples) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/attitude", func(w http.ResponseWriter, r *http.Request) {
		l.mu.RLock()
		defer l.mu.RUnlock()
		serveLatest(w, l.attitude, l.have.attitude)
	})
	mux.HandleFunc("/api/imu", func(w http.ResponseWriter, r *http.Request) {
		l.mu.RLock()
		defer l.mu.RUnlock()
		serveLatest(w, l.raw, l.have.raw)
	})
	mux.HandleFunc("/api/env", func(w http.ResponseWriter, r *http.Request) {
		l.mu.RLock()
		defer l.mu.RUnlock()
		serveLatest(w, l.env, l.have.env)
	})
	return mux
}

func serveLatest(w http.ResponseWriter, v any, ok bool) {
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}
