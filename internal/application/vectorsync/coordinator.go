// Package vectorsync keeps per-collection vector sync statuses in the store
// consistent with the backend. It starts sync jobs, polls them while they
// run and recovers collections whose job stopped reporting.
package vectorsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ragdesk/internal/application"
	"ragdesk/internal/domain"
	"ragdesk/internal/ports"
	"ragdesk/internal/store"
)

const (
	DefaultPollInterval    = 2 * time.Second
	DefaultSweepInterval   = 30 * time.Second
	DefaultStallTimeout    = 5 * time.Minute
	DefaultStaleSweeps     = 2
	DefaultMaxPollFailures = 5
)

// Coordinator drives vector sync for all collections
type Coordinator struct {
	gw     ports.VectorSyncGateway
	store  *store.Store
	logger *slog.Logger
	now    func() time.Time

	pollInterval    time.Duration
	sweepInterval   time.Duration
	stallTimeout    time.Duration
	staleSweeps     int
	maxPollFailures int

	fetches singleflight.Group

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	polls    map[string]*poll
	starting map[string]bool
	observed map[string]*observation
	started  bool
	closed   bool

	sweepMu sync.Mutex
}

// poll is one running status poll
type poll struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// observation tracks a syncing collection that has no poll
type observation struct {
	progress float64
	stale    int
	resumed  bool
}

// Option configures the Coordinator
type Option func(*Coordinator)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// WithClock sets the time source used for stall detection
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithPollInterval sets how often a running sync is polled
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithSweepInterval sets how often Start reconciles orphaned syncs
func WithSweepInterval(d time.Duration) Option {
	return func(c *Coordinator) {
		if d > 0 {
			c.sweepInterval = d
		}
	}
}

// WithStallTimeout sets how long a poll waits for progress before it hands
// the collection over to reconciliation. Zero disables stall detection.
func WithStallTimeout(d time.Duration) Option {
	return func(c *Coordinator) {
		c.stallTimeout = d
	}
}

// WithStaleSweeps sets how many consecutive sweeps must see the same
// progress before a sync counts as orphaned. The sweep that first records
// a progress value is included, so with n = 2 the second sweep acts.
func WithStaleSweeps(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.staleSweeps = n
		}
	}
}

// WithMaxPollFailures sets how many consecutive failed fetches stop a poll
func WithMaxPollFailures(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxPollFailures = n
		}
	}
}

// New creates a Coordinator. Call Start to run background reconciliation
// and Close to stop all polls.
func New(gw ports.VectorSyncGateway, st *store.Store, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		gw:              gw,
		store:           st,
		logger:          slog.Default(),
		now:             time.Now,
		pollInterval:    DefaultPollInterval,
		sweepInterval:   DefaultSweepInterval,
		stallTimeout:    DefaultStallTimeout,
		staleSweeps:     DefaultStaleSweeps,
		maxPollFailures: DefaultMaxPollFailures,
		ctx:             ctx,
		cancel:          cancel,
		polls:           make(map[string]*poll),
		starting:        make(map[string]bool),
		observed:        make(map[string]*observation),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSyncStatus returns the status known to the store
func (c *Coordinator) GetSyncStatus(name string) (domain.VectorSyncStatus, bool) {
	return c.store.State().SyncStatus(name)
}

func (c *Coordinator) status(name string) domain.VectorSyncStatus {
	if st, ok := c.GetSyncStatus(name); ok {
		return st
	}
	return domain.NewVectorSyncStatus()
}

// CanSync reports whether a sync may be started for the collection
func (c *Coordinator) CanSync(name string) bool {
	return c.status(name).CanSync() && !c.IsPolling(name)
}

// NeedsSync reports whether the collection has changes without embeddings
func (c *Coordinator) NeedsSync(name string) bool {
	return c.status(name).NeedsSync()
}

// IsSyncing reports whether a sync job is in flight for the collection
func (c *Coordinator) IsSyncing(name string) bool {
	return c.status(name).IsSyncing()
}

// IsPolling reports whether the collection's status is being polled
func (c *Coordinator) IsPolling(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls[name] != nil
}

// isActive reports whether a sync request or poll owns the collection
func (c *Coordinator) isActive(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls[name] != nil || c.starting[name]
}

// fetch reads the backend status. Concurrent fetches for one collection
// share a single request.
func (c *Coordinator) fetch(ctx context.Context, name string) (domain.VectorSyncStatus, error) {
	v, err, _ := c.fetches.Do(name, func() (any, error) {
		st, err := c.gw.GetSyncStatus(ctx, name)
		if err != nil {
			return nil, err
		}
		if st == nil {
			return domain.NewVectorSyncStatus(), nil
		}
		return st.Normalize(), nil
	})
	if err != nil {
		return domain.VectorSyncStatus{}, err
	}
	return v.(domain.VectorSyncStatus).Clone(), nil
}

func (c *Coordinator) set(name string, st domain.VectorSyncStatus) {
	c.store.Dispatch(store.SetVectorSyncStatus{Collection: name, Status: st})
}

func (c *Coordinator) fail(op string, err error) error {
	c.logger.Error(op+" failed", slog.String("error", err.Error()))
	c.store.Dispatch(store.SetError{Message: application.UserMessage(err)})
	return fmt.Errorf("failed to %s: %w", op, err)
}

// RefreshSyncStatus replaces the stored status with the backend's
func (c *Coordinator) RefreshSyncStatus(ctx context.Context, name string) (domain.VectorSyncStatus, error) {
	st, err := c.fetch(ctx, name)
	if err != nil {
		return domain.VectorSyncStatus{}, c.fail("refresh sync status", err)
	}
	c.set(name, st)
	return st, nil
}

// RefreshAllSyncStatuses replaces all stored statuses with the backend's.
// Collections that report syncing without a poll are left to Reconcile.
func (c *Coordinator) RefreshAllSyncStatuses(ctx context.Context) (map[string]domain.VectorSyncStatus, error) {
	c.store.Dispatch(store.SetLoading{Key: store.LoadingVectorSync, Value: true})
	defer c.store.Dispatch(store.SetLoading{Key: store.LoadingVectorSync, Value: false})

	all, err := c.gw.ListSyncStatuses(ctx)
	if err != nil {
		return nil, c.fail("load sync statuses", err)
	}
	c.store.Dispatch(store.SetVectorSyncStatuses{Statuses: all})
	return all, nil
}

// SyncCollection starts a sync job and polls it until it finishes. The
// store shows the collection as syncing before the request is sent; if
// the backend rejects the job, the backend's status is restored with the
// failure recorded in its errors.
func (c *Coordinator) SyncCollection(ctx context.Context, name string, req domain.SyncRequest) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("failed to sync %s: %w", name, application.ErrInvalidOperation)
	}
	if c.polls[name] != nil || c.starting[name] {
		c.mu.Unlock()
		return c.fail("sync "+name, application.ErrSyncInProgress)
	}
	c.starting[name] = true
	delete(c.observed, name)
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.starting, name)
		c.mu.Unlock()
	}()

	prev, known := c.GetSyncStatus(name)
	if !known {
		prev = domain.NewVectorSyncStatus()
	}
	if known && !prev.SyncEnabled {
		return c.fail("sync "+name, &application.ValidationError{
			Field:   "collectionName",
			Message: fmt.Sprintf("vector sync is disabled for %s", name),
		})
	}

	c.set(name, prev.WithSyncing())
	c.store.Dispatch(store.SetLoading{Key: store.LoadingVectorSync, Value: true})
	defer c.store.Dispatch(store.SetLoading{Key: store.LoadingVectorSync, Value: false})

	c.logger.Info("starting sync", slog.String("collection", name), slog.String("chunking", string(req.ChunkingStrategy)))
	if err := c.gw.SyncCollection(ctx, name, req); err != nil {
		c.rollback(ctx, name, prev, err)
		return c.fail("sync "+name, err)
	}

	c.startPoll(name)
	return nil
}

// rollback restores the backend's view after a rejected sync request
func (c *Coordinator) rollback(ctx context.Context, name string, prev domain.VectorSyncStatus, cause error) {
	msg := application.UserMessage(cause)
	st, err := c.fetch(ctx, name)
	if err != nil {
		c.logger.Warn("re-reading status after rejected sync failed",
			slog.String("collection", name), slog.String("error", err.Error()))
		c.set(name, prev.WithError(msg))
		return
	}
	if !slices.Contains(st.Errors, msg) {
		st.Errors = append(st.Errors, msg)
	}
	c.set(name, st)
	if st.IsSyncing() {
		c.startPoll(name)
	}
}

// EnableSync turns on vector sync for a collection
func (c *Coordinator) EnableSync(ctx context.Context, name string) error {
	if err := c.gw.EnableSync(ctx, name); err != nil {
		return c.fail("enable sync", err)
	}
	_, err := c.RefreshSyncStatus(ctx, name)
	return err
}

// DisableSync turns off vector sync for a collection
func (c *Coordinator) DisableSync(ctx context.Context, name string) error {
	if err := c.gw.DisableSync(ctx, name); err != nil {
		return c.fail("disable sync", err)
	}
	_, err := c.RefreshSyncStatus(ctx, name)
	return err
}

// DeleteVectors stops any poll for the collection and deletes its embeddings
func (c *Coordinator) DeleteVectors(ctx context.Context, name string) error {
	c.stopPoll(name)
	c.mu.Lock()
	delete(c.observed, name)
	c.mu.Unlock()

	if err := c.gw.DeleteVectors(ctx, name); err != nil {
		return c.fail("delete vectors", err)
	}
	c.logger.Info("vectors deleted", slog.String("collection", name))
	_, err := c.RefreshSyncStatus(ctx, name)
	return err
}

// startPoll replaces any running poll for name with a new one
func (c *Coordinator) startPoll(name string) {
	c.stopPoll(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	ctx, cancel := context.WithCancel(c.ctx)
	p := &poll{cancel: cancel, done: make(chan struct{})}
	c.polls[name] = p
	c.wg.Add(1)
	go c.runPoll(ctx, name, p)
}

// stopPoll cancels the poll for name and waits until it has exited, so no
// further status from it reaches the store.
func (c *Coordinator) stopPoll(name string) {
	c.mu.Lock()
	p := c.polls[name]
	delete(c.polls, name)
	c.mu.Unlock()
	if p == nil {
		return
	}
	p.cancel()
	<-p.done
}

func (c *Coordinator) runPoll(ctx context.Context, name string, p *poll) {
	defer c.wg.Done()
	defer close(p.done)
	defer func() {
		c.mu.Lock()
		if c.polls[name] == p {
			delete(c.polls, name)
		}
		c.mu.Unlock()
		p.cancel()
	}()

	log := c.logger.With(slog.String("collection", name))
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	lastProgress := -1.0
	lastChange := c.now()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		st, err := c.fetch(ctx, name)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			failures++
			log.Warn("polling sync status failed", slog.Int("failures", failures), slog.String("error", err.Error()))
			if failures >= c.maxPollFailures {
				log.Warn("giving up polling; reconciliation will take over")
				return
			}
			continue
		}
		failures = 0
		c.set(name, st)

		if !st.IsSyncing() {
			log.Info("sync finished", slog.String("status", string(st.Status)))
			c.mu.Lock()
			delete(c.observed, name)
			c.mu.Unlock()
			return
		}

		now := c.now()
		if st.Progress() != lastProgress {
			lastProgress = st.Progress()
			lastChange = now
			continue
		}
		if c.stallTimeout > 0 && now.Sub(lastChange) >= c.stallTimeout {
			log.Warn("sync made no progress; reconciliation will take over",
				slog.Duration("stalled_for", now.Sub(lastChange)))
			return
		}
	}
}

// Reconcile checks every collection the store shows as syncing without an
// active poll or pending sync request. Finished jobs are adopted; jobs without progress for the
// configured number of sweeps are resumed once and then marked failed.
// A sweep that starts while another runs returns immediately.
func (c *Coordinator) Reconcile(ctx context.Context) error {
	if !c.sweepMu.TryLock() {
		c.logger.Debug("sweep already running")
		return nil
	}
	defer c.sweepMu.Unlock()

	statuses := c.store.State().SyncStatuses
	names := make([]string, 0, len(statuses))
	for name, st := range statuses {
		if st.IsSyncing() {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.isActive(name) {
			continue
		}
		if err := c.reconcileOne(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Coordinator) reconcileOne(ctx context.Context, name string) error {
	log := c.logger.With(slog.String("collection", name))

	st, err := c.fetch(ctx, name)
	if err != nil {
		log.Warn("reconcile: fetching status failed", slog.String("error", err.Error()))
		return fmt.Errorf("reconcile %s: %w", name, err)
	}

	// Another writer may have moved the collection on while we fetched.
	if cur, ok := c.GetSyncStatus(name); !ok || !cur.IsSyncing() || c.isActive(name) {
		return nil
	}

	if !st.IsSyncing() {
		if st.Status == domain.SyncError && len(st.Errors) == 0 {
			st.Errors = []string{"Sync failed without reporting an error"}
		}
		log.Info("reconcile: adopting finished sync", slog.String("status", string(st.Status)))
		c.forget(name)
		c.set(name, st)
		return nil
	}

	c.mu.Lock()
	obs := c.observed[name]
	if obs == nil {
		obs = &observation{progress: st.Progress(), stale: 1}
		c.observed[name] = obs
		c.mu.Unlock()
		c.set(name, st)
		return nil
	}
	if st.Progress() > obs.progress {
		obs.progress = st.Progress()
		obs.stale = 1
		c.mu.Unlock()
		c.set(name, st)
		return nil
	}
	obs.stale++
	stale, resumed := obs.stale, obs.resumed
	if stale >= c.staleSweeps && !resumed {
		obs.resumed = true
		obs.stale = 0
	}
	c.mu.Unlock()

	switch {
	case stale < c.staleSweeps:
		c.set(name, st)
	case !resumed:
		log.Warn("reconcile: sync shows no progress, resuming poll", slog.Int("sweeps", stale))
		c.set(name, st)
		c.startPoll(name)
	default:
		msg := fmt.Sprintf("Sync stopped responding at %.0f%% and was marked failed", st.Progress()*100)
		log.Warn("reconcile: marking orphaned sync as failed", slog.Int("sweeps", stale))
		c.forget(name)
		c.set(name, st.WithError(msg))
	}
	return nil
}

func (c *Coordinator) forget(name string) {
	c.mu.Lock()
	delete(c.observed, name)
	c.mu.Unlock()
}

// Start runs Reconcile every sweep interval until Close
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started || c.closed {
		return
	}
	c.started = true
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-ticker.C:
				if err := c.Reconcile(c.ctx); err != nil && c.ctx.Err() == nil {
					c.logger.Warn("reconcile sweep failed", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Close cancels all polls and the sweep loop and waits for them to exit
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until all polls and the sweep loop have exited
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// WaitForSync blocks until the collection's poll ends and returns the final
// stored status. It returns immediately when no poll is running.
func (c *Coordinator) WaitForSync(ctx context.Context, name string) (domain.VectorSyncStatus, error) {
	c.mu.Lock()
	p := c.polls[name]
	c.mu.Unlock()
	if p != nil {
		select {
		case <-p.done:
		case <-ctx.Done():
			return domain.VectorSyncStatus{}, ctx.Err()
		}
	}
	return c.status(name), nil
}
