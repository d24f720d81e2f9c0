package client

import (
	"context"
	"net/http"
	"net/url"

	"pkt.systems/buildd/api"
)

const (
	lockableResourcesPath = "/lockable-resources"

	// StatusLocked is the HTTP status the controller uses to signal that a
	// resource is reserved or busy by another party.
	StatusLocked = http.StatusLocked
)

// Snapshot is an immutable point-in-time copy of the resource pool. A poll
// builds a new Snapshot and swaps it into the pool wholesale; existing
// snapshots are never mutated.
type Snapshot struct {
	records []api.ResourceRecord
	byName  map[string]api.ResourceRecord
}

func newSnapshot(records []api.ResourceRecord) *Snapshot {
	byName := make(map[string]api.ResourceRecord, len(records))
	for _, rec := range records {
		byName[rec.Name] = rec
	}
	return &Snapshot{records: records, byName: byName}
}

// Len returns the number of resources in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// Names returns resource names in the server's reported order.
func (s *Snapshot) Names() []string {
	names := make([]string, len(s.records))
	for i, rec := range s.records {
		names[i] = rec.Name
	}
	return names
}

// Records returns the resource records in snapshot order. The returned slice
// is a copy; the snapshot stays immutable.
func (s *Snapshot) Records() []api.ResourceRecord {
	out := make([]api.ResourceRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Record looks up one record by name.
func (s *Snapshot) Record(name string) (api.ResourceRecord, bool) {
	rec, ok := s.byName[name]
	return rec, ok
}

// LockableResources is the client-side view of the controller's lockable
// resource pool. It caches the last polled Snapshot and issues reserve and
// unreserve requests; the server remains the sole arbiter of conflicts.
//
// A pool instance is intended for a single caller. Callers sharing one across
// goroutines must serialize access externally.
type LockableResources struct {
	client        *Client
	pollAfterPost bool
	snap          *Snapshot
}

type poolConfig struct {
	pollAfterPost   bool
	skipInitialPoll bool
}

// PoolOption customises pool construction.
type PoolOption func(*poolConfig)

// WithPollAfterPost controls whether every successful reserve/unreserve is
// followed by a fresh poll (default true). Disabling it avoids redundant
// round-trips in advanced scenarios but leaves the snapshot stale until the
// caller polls explicitly.
func WithPollAfterPost(enabled bool) PoolOption {
	return func(cfg *poolConfig) {
		cfg.pollAfterPost = enabled
	}
}

// WithoutInitialPoll skips the poll normally performed during construction.
func WithoutInitialPoll() PoolOption {
	return func(cfg *poolConfig) {
		cfg.skipInitialPoll = true
	}
}

// LockableResources builds a pool view and polls it once (unless
// WithoutInitialPoll is given).
func (c *Client) LockableResources(ctx context.Context, opts ...PoolOption) (*LockableResources, error) {
	cfg := poolConfig{pollAfterPost: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	pool := &LockableResources{client: c, pollAfterPost: cfg.pollAfterPost}
	if !cfg.skipInitialPoll {
		if err := pool.Poll(ctx); err != nil {
			return nil, err
		}
	}
	return pool, nil
}

// Poll fetches the full pool state and replaces the current snapshot.
// Each poll replaces prior state entirely; nothing is merged.
func (p *LockableResources) Poll(ctx context.Context) error {
	var resp api.ResourceListResponse
	if err := p.client.getJSON(ctx, lockableResourcesPath+"/api/json", &resp); err != nil {
		return err
	}
	p.snap = newSnapshot(resp.Resources)
	p.client.logDebug("client.resources.poll", "resources", len(resp.Resources))
	return nil
}

// Snapshot returns the current snapshot, or ErrNeedPoll before the first poll.
func (p *LockableResources) Snapshot() (*Snapshot, error) {
	if p.snap == nil {
		return nil, ErrNeedPoll
	}
	return p.snap, nil
}

// Len returns the number of resources in the current snapshot.
func (p *LockableResources) Len() (int, error) {
	snap, err := p.Snapshot()
	if err != nil {
		return 0, err
	}
	return snap.Len(), nil
}

// Names returns all resource names in snapshot order.
func (p *LockableResources) Names() ([]string, error) {
	snap, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	return snap.Names(), nil
}

// Record returns the last-polled record for name.
func (p *LockableResources) Record(name string) (api.ResourceRecord, error) {
	snap, err := p.Snapshot()
	if err != nil {
		return api.ResourceRecord{}, err
	}
	rec, ok := snap.Record(name)
	if !ok {
		return api.ResourceRecord{}, &UnknownResourceError{Name: name}
	}
	return rec, nil
}

// recordIsFree applies the conservative availability policy: a record that
// reports reserved=true is never considered free, even when free=true.
func recordIsFree(rec api.ResourceRecord) bool {
	return rec.Free && !rec.Reserved
}

// IsFree reports whether the last-polled record for name is available for
// reservation. A record reporting both free and reserved counts as not free.
func (p *LockableResources) IsFree(name string) (bool, error) {
	rec, err := p.Record(name)
	if err != nil {
		return false, err
	}
	return recordIsFree(rec), nil
}

// IsReserved reports whether the last-polled record for name is reserved.
func (p *LockableResources) IsReserved(name string) (bool, error) {
	rec, err := p.Record(name)
	if err != nil {
		return false, err
	}
	return rec.Reserved, nil
}

// Reserve issues a reservation request for exactly one resource name.
// A 423 answer surfaces as *ResourceLockedError; any other non-2xx as
// *APIError. On success the pool re-polls when poll-after-post is enabled.
// This method never retries: a retried reserve on an already-held resource
// is expected to fail distinctly, not succeed idempotently.
func (p *LockableResources) Reserve(ctx context.Context, name string) error {
	return p.post(ctx, "reserve", name)
}

// Unreserve releases a reservation for exactly one resource name.
func (p *LockableResources) Unreserve(ctx context.Context, name string) error {
	return p.post(ctx, "unreserve", name)
}

func (p *LockableResources) post(ctx context.Context, action, name string) error {
	form := url.Values{"resource": {name}}
	status, err := p.client.postForm(ctx, lockableResourcesPath+"/"+action, form, http.StatusOK, StatusLocked)
	if err != nil {
		return err
	}
	if status == StatusLocked {
		p.client.logDebug("client.resources.locked", "action", action, "resource", name)
		return &ResourceLockedError{Name: name}
	}
	p.client.logInfo("client.resources."+action, "resource", name)
	if p.pollAfterPost {
		return p.Poll(ctx)
	}
	return nil
}

// Resource returns a lightweight handle bound to one resource name. Handles
// hold no state of their own; every read goes through the pool's current
// snapshot. Creating one is side-effect-free and handles for the same name
// are interchangeable.
func (p *LockableResources) Resource(name string) *Resource {
	return &Resource{pool: p, name: name}
}

// Resource is an ephemeral accessor for a single named resource.
type Resource struct {
	pool *LockableResources
	name string
}

// Name returns the resource name the handle is bound to.
func (r *Resource) Name() string {
	return r.name
}

// Record returns the last-polled record for the resource.
func (r *Resource) Record() (api.ResourceRecord, error) {
	return r.pool.Record(r.name)
}

// IsFree reports whether the resource is available per the current snapshot.
func (r *Resource) IsFree() (bool, error) {
	return r.pool.IsFree(r.name)
}

// IsReserved reports whether the resource is reserved per the current snapshot.
func (r *Resource) IsReserved() (bool, error) {
	return r.pool.IsReserved(r.name)
}

// Reserve reserves the resource.
func (r *Resource) Reserve(ctx context.Context) error {
	return r.pool.Reserve(ctx, r.name)
}

// Unreserve releases the resource.
func (r *Resource) Unreserve(ctx context.Context) error {
	return r.pool.Unreserve(ctx, r.name)
}
