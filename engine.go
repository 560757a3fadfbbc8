// Package healthsync is the embeddable sync engine that mirrors health
// records from the device's platform data store to the Voyant backend. It
// owns anchored delta cycles, timezone history resolution, canonical row
// mapping, and debounced, idempotent, chunked uploads.
package healthsync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/sgzrov/Voyant/internal/mapper"
	"github.com/sgzrov/Voyant/internal/platform"
	"github.com/sgzrov/Voyant/internal/shardqueue"
	"github.com/sgzrov/Voyant/internal/store"
	"github.com/sgzrov/Voyant/internal/syncer"
	"github.com/sgzrov/Voyant/internal/types"
	"github.com/sgzrov/Voyant/internal/tzhistory"
	"github.com/sgzrov/Voyant/internal/uploader"
)

// Engine wires the sync subsystem together. It is invisible to the end user
// by design: failures surface as "data not yet reflected", never as blocking
// errors.
type Engine struct {
	baseURL string
	userID  string
	apiKey  string
	http    *http.Client
	cfg     Config
	log     zerolog.Logger

	exec     executor
	st       store.Store
	resolver *tzhistory.Resolver
	uploads  *uploader.Coordinator
	coord    *syncer.Coordinator

	health   platform.HealthStore
	location platform.LocationProvider
	geocoder platform.Geocoder

	syncTypes []types.RecordType
	clock     func() time.Time

	cancel     context.CancelFunc
	closedOnce uint32
}

// New constructs an Engine mirroring health for userID. Additional knobs are
// provided via functional options.
func New(baseURL, apiKey, userID string, health platform.HealthStore, opts ...Option) (*Engine, error) {
	if baseURL == "" {
		panic("baseURL cannot be empty")
	}
	if apiKey == "" {
		panic("apiKey cannot be empty")
	}
	if err := types.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if health == nil {
		return nil, fmt.Errorf("health store cannot be nil")
	}

	e := &Engine{
		baseURL: baseURL,
		apiKey:  apiKey,
		userID:  userID,
		health:  health,
		cfg:     DefaultConfig(),
		log:     zerolog.Nop(),
		clock:   time.Now,
	}
	e.http = &http.Client{Timeout: e.cfg.HTTPTimeout}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	if e.st == nil {
		path, err := e.cfg.statePath()
		if err != nil {
			return nil, err
		}
		st, err := store.Open(path)
		if err != nil {
			return nil, err
		}
		e.st = st
	}
	if e.exec == nil {
		e.exec = shardqueue.NewShardExecutor(shardqueue.Config{
			Shards:    4,
			QueueSize: 256,
			ErrorHandler: func(err error) {
				e.log.Error().Err(err).Msg("healthsync: cycle abandoned")
			},
		})
	}
	if len(e.syncTypes) == 0 {
		e.syncTypes = defaultSyncTypes()
	}

	resolver, err := tzhistory.NewResolver(context.Background(), e.st, e.cfg.TZHistoryBound)
	if err != nil {
		// The engine owns the store once it is wired; a failed build must
		// not leak the open handle.
		_ = e.st.Close()
		return nil, err
	}
	e.resolver = resolver

	// Authorization rides on the transport so every call is covered.
	e.wrapTransportWithAPIKey()

	e.uploads = uploader.New(
		&uploader.HTTPBackend{HTTP: e.http, BaseURL: e.baseURL},
		e.st,
		uploader.Config{
			PollInterval: e.cfg.PollInterval,
			PollMaxWait:  e.cfg.PollMaxWait,
			ChunkPacing:  e.cfg.SeedChunkPacing,
		},
		e.log,
	)
	e.coord = syncer.New(
		e.health,
		e.st,
		e.st,
		mapper.New(e.userID, e.resolver, e.clock),
		e.uploads,
		e.exec,
		e.syncTypes,
		syncer.Config{
			DebounceWindow:   e.cfg.DebounceInterval,
			DeletionLookback: e.cfg.DeletionLookback,
			SeedChunk:        time.Duration(e.cfg.SeedChunkDays) * 24 * time.Hour,
		},
		e.log,
		e.clock,
	)
	return e, nil
}

// Start begins observing the platform store and feeding the timezone
// timelines. It returns once observers are attached; work proceeds in the
// background until Close.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	// Seeding only touches an empty device timeline, so travel history
	// recorded on earlier launches is never overwritten.
	if tz, ok := localZoneName(); ok {
		if err := e.resolver.SeedIfEmpty(ctx, tz, e.clock()); err != nil {
			e.log.Warn().Err(err).Msg("healthsync: timezone seed failed")
		}
	} else {
		e.log.Warn().Msg("healthsync: local zone name unresolvable, timezone seed skipped")
	}

	if err := e.coord.Start(ctx); err != nil {
		return err
	}

	if e.location != nil && e.geocoder != nil {
		go e.runLocationLoop(ctx)
	}
	return nil
}

// NotifyTimezoneChange records a device timezone-change signal.
func (e *Engine) NotifyTimezoneChange(ctx context.Context, tzName string) error {
	if err := e.resolver.RecordDeviceTimezone(ctx, tzName, e.clock()); err != nil {
		return err
	}
	tzSignalsTotal.WithLabelValues(string(types.OriginDevice)).Inc()
	return nil
}

// NotifyChange kicks a debounced delta cycle for rt, in addition to the
// cycles driven by the platform observers.
func (e *Engine) NotifyChange(ctx context.Context, rt RecordType) {
	e.coord.NotifyChange(ctx, rt)
}

// RunSeed transfers the last `days` of history to the backend in paced
// chunks. Interrupted seeds resume where the backend last accepted a chunk.
func (e *Engine) RunSeed(ctx context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("seed days must be > 0")
	}
	return e.coord.RunBackfill(ctx, time.Duration(days)*24*time.Hour)
}

// AwaitConsistency blocks until all previously scheduled cycles for rt have
// executed, by submitting a no-op job and waiting for it to run.
func (e *Engine) AwaitConsistency(ctx context.Context, rt RecordType) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan struct{})
	j := shardqueue.JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := e.exec.Submit(ctx, string(rt), j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Close stops observers, drains the executor, and closes the state store.
// Safe to call multiple times.
func (e *Engine) Close() error {
	if !atomic.CompareAndSwapUint32(&e.closedOnce, 0, 1) {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	if e.coord != nil {
		e.coord.Stop()
	}
	if e.exec != nil {
		e.exec.Stop()
	}
	if e.st != nil {
		return e.st.Close()
	}
	return nil
}

// runLocationLoop takes a fix at startup and then on every refresh tick,
// feeding the geocoded timeline. Denied permission or geocode failures
// degrade to "unknown" context; they never block the pipeline.
func (e *Engine) runLocationLoop(ctx context.Context) {
	e.recordLocationFix(ctx)
	ticker := time.NewTicker(e.cfg.LocationRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.recordLocationFix(ctx)
		}
	}
}

func (e *Engine) recordLocationFix(ctx context.Context) {
	fix, err := e.location.CurrentFix(ctx)
	if err != nil {
		e.log.Debug().Err(err).Msg("healthsync: location fix unavailable")
		return
	}
	geo, err := e.geocoder.ReverseGeocode(ctx, fix.Latitude, fix.Longitude)
	if err != nil {
		e.log.Debug().Err(err).Msg("healthsync: reverse geocode failed")
		return
	}
	at := fix.At
	if at.IsZero() {
		at = e.clock()
	}
	if err := e.resolver.RecordGeocodedFix(ctx, geo.TZName, geo.Place, at); err != nil {
		e.log.Warn().Err(err).Msg("healthsync: geocoded fix rejected")
		return
	}
	tzSignalsTotal.WithLabelValues(string(types.OriginGeocode)).Inc()
}

// wrapTransportWithAPIKey wraps the HTTP client's transport to add the
// Authorization header to every request.
func (e *Engine) wrapTransportWithAPIKey() {
	base := e.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	e.http.Transport = &apiKeyTransport{base: base, apiKey: e.apiKey}
}

// apiKeyTransport wraps an http.RoundTripper to add the bearer token.
type apiKeyTransport struct {
	base   http.RoundTripper
	apiKey string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.base.RoundTrip(cloned)
}

// localZoneName resolves the device's current IANA zone name. time.Local
// stringifies as the literal "Local" unless TZ is set, and "Local" must never
// enter the timeline: stored names are re-resolved at mapping time, so
// "Local" would follow whatever zone the process is in by then and re-stamp
// seed-era samples after travel.
func localZoneName() (string, bool) {
	candidates := []string{os.Getenv("TZ"), time.Local.String()}
	if link, err := os.Readlink("/etc/localtime"); err == nil {
		if i := strings.Index(link, "zoneinfo/"); i >= 0 {
			candidates = append(candidates, link[i+len("zoneinfo/"):])
		}
	}
	for _, name := range candidates {
		if name == "" || name == "Local" {
			continue
		}
		if _, err := time.LoadLocation(name); err == nil {
			return name, true
		}
	}
	return "", false
}

func defaultSyncTypes() []types.RecordType {
	all := types.AllRecordTypes()
	// Deterministic wiring order keeps logs and tests stable.
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
