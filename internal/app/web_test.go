package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/relabs-tech/imu_stream/internal/env"
	"github.com/relabs-tech/imu_stream/internal/orientation"
)

func TestLatestSamples(t *testing.T) {
	l := &LatestSamples{}
	h := l.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/attitude", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 before data, got %d", rec.Code)
	}
	if _, ok := l.Attitude(); ok {
		t.Error("expected no attitude yet")
	}

	att := orientation.ComputeAttitude(time.Unix(10, 0).UTC(), orientation.Identity, orientation.GimbalLockEpsilon)
	if err := l.PublishAttitude(att); err != nil {
		t.Fatal(err)
	}
	if err := l.PublishEnv(env.Sample{Source: "bmp@0x76", PressureHPa: 1013.25}); err != nil {
		t.Fatal(err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/attitude", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got orientation.Attitude
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("bad JSON: %v", err)
	}
	if got.Gravity.Z != 1 {
		t.Errorf("unexpected attitude %+v", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/env", nil))
	var e env.Sample
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil || e.PressureHPa != 1013.25 {
		t.Errorf("unexpected env %q (%v)", rec.Body.String(), err)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/imu", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 for imu, got %d", rec.Code)
	}
}
