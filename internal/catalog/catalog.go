// Package catalog: periodically refreshed, read-only in-memory view of the
// clinic catalog. Readers always observe a whole snapshot; refresh swaps the
// view atomically and a failed refresh keeps the last good one in service.
package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/geo"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
)

// Clinic is an immutable snapshot record. Retrieval strategies and fusion
// borrow references and must never mutate one.
type Clinic struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Address  string          `json:"address"`
	Location string          `json:"location"`
	Pincode  string          `json:"pincode"`
	Coord    *geo.Coordinate `json:"coord,omitempty"`
	// Rating is only meaningful when HasRating is set.
	Rating    float64  `json:"rating"`
	HasRating bool     `json:"hasRating"`
	Verified  bool     `json:"verified"`
	Status    string   `json:"status"`
	Services  []string `json:"services,omitempty"`
}

// Source loads the full clinic set from the external catalog store.
type Source interface {
	Load(ctx context.Context) ([]Clinic, error)
}

type view struct {
	clinics  []Clinic
	loadedAt time.Time
}

// Snapshot holds the current catalog view behind an atomic pointer so refresh
// never blocks concurrent readers and readers never see a partial mix.
type Snapshot struct {
	src         Source
	loadTimeout time.Duration
	cur         atomic.Pointer[view]
	invalidate  chan struct{}
}

const defaultLoadTimeout = 10 * time.Second

func NewSnapshot(src Source) *Snapshot {
	return &Snapshot{
		src:         src,
		loadTimeout: defaultLoadTimeout,
		invalidate:  make(chan struct{}, 1),
	}
}

// All returns the clinics of the current view in catalog order.
// Callers must treat the slice as read-only. Nil until the first load.
func (s *Snapshot) All() []Clinic {
	v := s.cur.Load()
	if v == nil {
		return nil
	}
	return v.clinics
}

// Loaded reports whether any refresh has ever succeeded.
func (s *Snapshot) Loaded() bool { return s.cur.Load() != nil }

// Age reports how stale the current view is; zero before the first load.
func (s *Snapshot) Age() time.Duration {
	v := s.cur.Load()
	if v == nil {
		return 0
	}
	return time.Since(v.loadedAt)
}

// Count returns the clinic count of the current view.
func (s *Snapshot) Count() int { return len(s.All()) }

// Refresh loads from the source and swaps the view. On failure the previous
// view stays in service; the returned error is diagnostic only.
func (s *Snapshot) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()
	clinics, err := s.src.Load(ctx)
	if err != nil {
		metrics.SnapshotRefreshTotal.WithLabelValues("error").Inc()
		logger.L().Warn("snapshot_refresh_error", "err", err, "serving_stale", s.Loaded())
		return err
	}
	s.cur.Store(&view{clinics: clinics, loadedAt: time.Now()})
	metrics.SnapshotRefreshTotal.WithLabelValues("ok").Inc()
	metrics.SnapshotClinics.Set(float64(len(clinics)))
	logger.L().Debug("snapshot_refresh_ok", "clinics", len(clinics))
	return nil
}

// Invalidate forces a refresh on the next loop tick, e.g. after a catalog
// write. Non-blocking; a pending request is enough.
func (s *Snapshot) Invalidate() {
	select {
	case s.invalidate <- struct{}{}:
	default:
	}
}

// Bootstrap publishes an empty view when none exists, for degraded bring-up
// where serving an empty catalog beats not starting.
func (s *Snapshot) Bootstrap() {
	if s.cur.Load() == nil {
		s.cur.Store(&view{loadedAt: time.Now()})
	}
}

// Run refreshes on the interval and on Invalidate until ctx is done.
func (s *Snapshot) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-s.invalidate:
		}
		_ = s.Refresh(ctx)
	}
}

// StaticSource serves a fixed clinic set; used by tests and tooling.
type StaticSource struct {
	Clinics []Clinic
	Err     error
}

func (s *StaticSource) Load(context.Context) ([]Clinic, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Clinics, nil
}
