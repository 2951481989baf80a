package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/cache"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
)

// ErrInvalidQuery marks structural validation failures; these surface to the
// caller, unlike degraded-dependency faults which never do.
var ErrInvalidQuery = errors.New("invalid search query")

// ErrNoCatalog is fatal at startup: without one successful catalog load there
// is nothing to search.
var ErrNoCatalog = errors.New("catalog snapshot never loaded")

// TextIndex is the optional external full-text collaborator. When it fails
// the orchestrator falls back to the catalog scan.
type TextIndex interface {
	Search(ctx context.Context, q Query) ([]Candidate, error)
}

// Config enumerates the orchestrator's options with their defaults.
type Config struct {
	DefaultRadiusKm float64       // 10
	DefaultLimit    int           // 20
	MaxLimit        int           // 100
	StrategyTimeout time.Duration // 2s per strategy run
	CacheTTL        time.Duration // 60s for fused result sets
}

func (c *Config) applyDefaults() {
	if c.DefaultRadiusKm <= 0 {
		c.DefaultRadiusKm = 10
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 20
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = 100
	}
	if c.StrategyTimeout <= 0 {
		c.StrategyTimeout = 2 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Minute
	}
}

// Meta describes how a result set was produced.
type Meta struct {
	Strategy     string      `json:"strategy"`
	TotalResults int         `json:"totalResults"`
	Limit        int         `json:"limit"`
	Offset       int         `json:"offset"`
	HasMore      bool        `json:"hasMore"`
	SearchTimeMs int64       `json:"searchTimeMs"`
	Cached       bool        `json:"cached,omitempty"`
	TierCounts   *TierCounts `json:"tierCounts,omitempty"`
}

// Result is the ranked result set returned to the HTTP layer.
type Result struct {
	Clinics []ScoredResult `json:"clinics"`
	Meta    Meta           `json:"meta"`
}

// Orchestrator composes selector, strategies, fusion and cache over the
// catalog snapshot.
type Orchestrator struct {
	snap  *catalog.Snapshot
	store cache.Store
	index TextIndex
	cfg   Config
}

// New fails when the snapshot has never loaded; every other catalog fault is
// degraded, this one is fatal.
func New(snap *catalog.Snapshot, store cache.Store, index TextIndex, cfg Config) (*Orchestrator, error) {
	if !snap.Loaded() {
		return nil, ErrNoCatalog
	}
	cfg.applyDefaults()
	return &Orchestrator{snap: snap, store: store, index: index, cfg: cfg}, nil
}

// normalize fills defaults and clamps paging; validate rejects structurally
// bad input before anything else runs. An unset radius gets the default; a
// negative one must survive normalization so validate can reject it.
func (o *Orchestrator) normalize(q Query) Query {
	if q.RadiusKm == 0 {
		q.RadiusKm = o.cfg.DefaultRadiusKm
	}
	if q.Limit <= 0 {
		q.Limit = o.cfg.DefaultLimit
	}
	if q.Limit > o.cfg.MaxLimit {
		q.Limit = o.cfg.MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.FreeText = strings.TrimSpace(q.FreeText)
	q.Pincode = strings.TrimSpace(q.Pincode)
	return q
}

// minQueryRunes is the shortest free-text query the text strategy accepts;
// empty text is not an error, it selects the fallback listing.
const minQueryRunes = 2

func (o *Orchestrator) validate(q Query) error {
	if q.Origin != nil && !q.Origin.Valid() {
		return fmt.Errorf("%w: coordinate out of range", ErrInvalidQuery)
	}
	if q.RadiusKm < 0 {
		return fmt.Errorf("%w: radius must be non-negative", ErrInvalidQuery)
	}
	if q.Pincode != "" && (!isDigits(q.Pincode) || len(q.Pincode) < 3) {
		return fmt.Errorf("%w: pincode must be at least 3 digits", ErrInvalidQuery)
	}
	if q.FreeText != "" && utf8.RuneCountInString(q.FreeText) < minQueryRunes {
		return fmt.Errorf("%w: query must be at least %d characters", ErrInvalidQuery, minQueryRunes)
	}
	return nil
}

// cacheParams is the normalized parameter set hashed into the cache key;
// absent fields collapse onto fixed sentinels so equal requests share a key.
type cacheParams struct {
	Text     string   `json:"t"`
	Lat      string   `json:"la"`
	Lng      string   `json:"ln"`
	Pincode  string   `json:"p"`
	RadiusKm float64  `json:"r"`
	Verified string   `json:"v"`
	MinRate  float64  `json:"mr"`
	Status   string   `json:"s"`
	Services []string `json:"sv"`
	Limit    int      `json:"l"`
	Offset   int      `json:"o"`
}

func searchKey(q Query) string {
	p := cacheParams{
		Text: strings.ToLower(q.FreeText), Lat: "-", Lng: "-", Pincode: "-",
		RadiusKm: q.RadiusKm, Verified: "-", MinRate: q.MinRating,
		Status: q.Status, Services: q.Services, Limit: q.Limit, Offset: q.Offset,
	}
	if p.Text == "" {
		p.Text = "-"
	}
	if q.Origin != nil {
		p.Lat = fmt.Sprintf("%.6f", q.Origin.Lat)
		p.Lng = fmt.Sprintf("%.6f", q.Origin.Lng)
	}
	if q.Pincode != "" {
		p.Pincode = q.Pincode
	}
	if q.Verified != nil {
		p.Verified = fmt.Sprintf("%t", *q.Verified)
	}
	if p.Status == "" {
		p.Status = "-"
	}
	return cache.HashKey("search", p)
}

// Search runs the full pipeline: validate, cache, select, retrieve, fuse,
// page, cache the fused set.
func (o *Orchestrator) Search(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	metrics.SearchRequestsTotal.Inc()

	q = o.normalize(q)
	if err := o.validate(q); err != nil {
		return nil, err
	}

	key := searchKey(q)
	if o.store != nil {
		if raw, ok, _ := o.store.Get(ctx, key); ok {
			var res Result
			if err := json.Unmarshal([]byte(raw), &res); err == nil {
				metrics.CacheHitsTotal.Inc()
				res.Meta.Cached = true
				res.Meta.SearchTimeMs = time.Since(start).Milliseconds()
				// The duration histogram samples hits and misses alike, or
				// its ratio to the request counter lies on a warm cache.
				metrics.SearchDurationMs.Observe(float64(res.Meta.SearchTimeMs))
				return &res, nil
			}
		}
		metrics.CacheMissesTotal.Inc()
	}

	strategy := Select(q)
	lists, tiers, err := o.retrieve(ctx, strategy, q)
	if err != nil {
		return nil, err
	}

	ranked := Merge(lists, q)
	total := len(ranked)
	page := pageSlice(ranked, q.Offset, q.Limit)

	res := &Result{
		Clinics: page,
		Meta: Meta{
			Strategy:     strategy.String(),
			TotalResults: total,
			Limit:        q.Limit,
			Offset:       q.Offset,
			HasMore:      hasMore(total, q),
			SearchTimeMs: time.Since(start).Milliseconds(),
			TierCounts:   tiers,
		},
	}
	if total == 0 {
		metrics.EmptyResultsTotal.Inc()
	}
	metrics.SearchDurationMs.Observe(float64(res.Meta.SearchTimeMs))

	if o.store != nil && ctx.Err() == nil {
		if b, err := json.Marshal(res); err == nil {
			_ = o.store.Set(ctx, key, string(b), o.cfg.CacheTTL)
		}
	}
	return res, nil
}

// Pincode runs the pincode strategy directly for the pincode endpoint,
// returning tier counts alongside the ranked results.
func (o *Orchestrator) Pincode(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()
	q = o.normalize(q)
	if err := o.validate(q); err != nil {
		return nil, err
	}
	if q.Pincode == "" {
		return nil, fmt.Errorf("%w: pincode required", ErrInvalidQuery)
	}

	cands, tiers := o.runPincode(q)
	ranked := Merge([]StrategyList{{Strategy: StrategyPincode, Candidates: cands}}, q)
	total := len(ranked)
	page := pageSlice(ranked, q.Offset, q.Limit)
	return &Result{
		Clinics: page,
		Meta: Meta{
			Strategy:     StrategyPincode.String(),
			TotalResults: total,
			Limit:        q.Limit,
			Offset:       q.Offset,
			HasMore:      hasMore(total, q),
			SearchTimeMs: time.Since(start).Milliseconds(),
			TierCounts:   &tiers,
		},
	}, nil
}

// hasMore reports whether a further page may exist. Strategies cap their
// output at the page end, so a ranking filled exactly to that boundary means
// the catalog may hold more; only a shorter ranking proves exhaustion.
func hasMore(total int, q Query) bool {
	return total >= q.Offset+q.Limit
}

// retrieve runs the selected strategy, fanning hybrid constituents out
// concurrently. Every output is buffered before fusion; completion order
// never influences ranking.
func (o *Orchestrator) retrieve(ctx context.Context, strategy Strategy, q Query) ([]StrategyList, *TierCounts, error) {
	switch strategy {
	case StrategyGeospatial:
		return []StrategyList{{Strategy: strategy, Candidates: o.runStrategy(ctx, StrategyGeospatial, q)}}, nil, nil
	case StrategyPincode:
		cands, tiers := o.runPincode(q)
		return []StrategyList{{Strategy: strategy, Candidates: cands}}, &tiers, nil
	case StrategyText:
		return []StrategyList{{Strategy: strategy, Candidates: o.runStrategy(ctx, StrategyText, q)}}, nil, nil
	case StrategyFallback:
		return []StrategyList{{Strategy: strategy, Candidates: o.runStrategy(ctx, StrategyFallback, q)}}, nil, nil
	case StrategyHybrid:
		return o.retrieveHybrid(ctx, q)
	}
	return nil, nil, fmt.Errorf("unhandled strategy %v", strategy)
}

func (o *Orchestrator) retrieveHybrid(ctx context.Context, q Query) ([]StrategyList, *TierCounts, error) {
	// Primary first: the signal that would have won without free text.
	var order []Strategy
	if q.hasOrigin() {
		order = append(order, StrategyGeospatial)
	} else if q.hasFullPincode() {
		order = append(order, StrategyPincode)
	}
	order = append(order, StrategyText)

	lists := make([]StrategyList, len(order))
	var tiers *TierCounts
	g, gctx := errgroup.WithContext(ctx)
	for i, s := range order {
		i, s := i, s
		g.Go(func() error {
			if s == StrategyPincode {
				cands, tc := o.runPincode(q)
				lists[i] = StrategyList{Strategy: s, Candidates: cands}
				tiers = &tc
				return nil
			}
			lists[i] = StrategyList{Strategy: s, Candidates: o.runStrategy(gctx, s, q)}
			return nil
		})
	}
	// runStrategy recovers every failure as zero candidates, so the join
	// only propagates context cancellation.
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	return lists, tiers, nil
}

// runStrategy executes one strategy with its own timeout, recovering panics
// and faults as zero candidates per the partial-failure contract.
func (o *Orchestrator) runStrategy(ctx context.Context, s Strategy, q Query) (out []Candidate) {
	start := time.Now()
	metrics.StrategyRunsTotal.WithLabelValues(s.String()).Inc()
	defer func() {
		if r := recover(); r != nil {
			metrics.StrategyFailuresTotal.WithLabelValues(s.String()).Inc()
			logger.L().Error("strategy_panic", "strategy", s.String(), "panic", r)
			out = nil
		}
		metrics.StrategyDurationMs.WithLabelValues(s.String()).Observe(float64(time.Since(start).Milliseconds()))
	}()

	clinics := o.snap.All()
	switch s {
	case StrategyGeospatial:
		return geospatial(clinics, q)
	case StrategyText:
		return o.runText(ctx, clinics, q)
	case StrategyFallback:
		return fallback(clinics, q)
	}
	return nil
}

func (o *Orchestrator) runPincode(q Query) (out []Candidate, tiers TierCounts) {
	start := time.Now()
	metrics.StrategyRunsTotal.WithLabelValues(StrategyPincode.String()).Inc()
	defer func() {
		if r := recover(); r != nil {
			metrics.StrategyFailuresTotal.WithLabelValues(StrategyPincode.String()).Inc()
			logger.L().Error("strategy_panic", "strategy", "pincode", "panic", r)
			out, tiers = nil, TierCounts{}
		}
		metrics.StrategyDurationMs.WithLabelValues("pincode").Observe(float64(time.Since(start).Milliseconds()))
	}()
	return pincode(o.snap.All(), q)
}

// runText prefers the external index when configured, degrading to the
// catalog scan on any fault.
func (o *Orchestrator) runText(ctx context.Context, clinics []catalog.Clinic, q Query) []Candidate {
	if o.index != nil {
		ictx, cancel := context.WithTimeout(ctx, o.cfg.StrategyTimeout)
		defer cancel()
		cands, err := o.index.Search(ictx, q)
		if err == nil {
			return cands
		}
		metrics.StrategyFailuresTotal.WithLabelValues(StrategyText.String()).Inc()
		logger.L().Warn("text_index_fallback", "err", err)
	}
	return text(clinics, q)
}

func pageSlice(ranked []ScoredResult, offset, limit int) []ScoredResult {
	if offset >= len(ranked) {
		return []ScoredResult{}
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
