// Package repository is the façade over the record store, the index diff
// engine and the batch executor. It is the sole writer of record and index
// keys: every mutation commits the primary record and all affected index
// entries in one atomic batch.
package repository

import (
	"context"
	"time"

	"github.com/devrev/txstore/internal/index"
	"github.com/devrev/txstore/internal/keys"
	"github.com/devrev/txstore/internal/metrics"
	"github.com/devrev/txstore/internal/model"
	"github.com/devrev/txstore/internal/repoerr"
	"github.com/devrev/txstore/internal/store"
	"go.uber.org/zap"
)

// Repository orchestrates record and index writes against a shared store.
// It holds no mutable in-process state, so a single instance is safe for
// arbitrary concurrent callers; atomicity is delegated entirely to the
// store's batch commit.
type Repository struct {
	kv        store.Store
	records   recordStore
	logger    *zap.Logger
	metrics   *metrics.Metrics
	statusTTL time.Duration
}

// Option configures a Repository.
type Option func(*Repository)

// WithStatusTTL overrides the expiry applied to status set keys.
func WithStatusTTL(ttl time.Duration) Option {
	return func(r *Repository) { r.statusTTL = ttl }
}

// WithMetrics attaches operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) { r.metrics = m }
}

// New creates a repository over the given store.
func New(kv store.Store, logger *zap.Logger, opts ...Option) *Repository {
	r := &Repository{
		kv:        kv,
		records:   recordStore{kv: kv},
		logger:    logger,
		statusTTL: index.DefaultStatusTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create stores a new record and all of its index entries atomically.
// The existence check is not atomic with the write; random ids make a
// duplicate pass vanishingly unlikely.
func (r *Repository) Create(ctx context.Context, rec *model.Record) (res *model.Record, err error) {
	defer r.observe("create", time.Now(), &err)

	exists, err := r.records.exists(ctx, rec.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repoerr.AlreadyExists(rec.ID)
	}

	raw, err := encodeRecord(rec)
	if err != nil {
		return nil, err
	}

	batch := store.NewBatch().
		Set(keys.Primary(rec.ID), raw, 0).
		Set(keys.ReverseOwner(rec.ID), rec.OwnerID, 0)
	index.PlanWrite(batch, rec, nil, r.statusTTL)

	if err := r.apply(ctx, batch); err != nil {
		return nil, err
	}

	r.logger.Info("Created record",
		zap.String("record_id", rec.ID),
		zap.String("owner_id", rec.OwnerID),
		zap.Uint64("sequence", rec.Sequence))
	return rec, nil
}

// Get loads a record by id.
func (r *Repository) Get(ctx context.Context, id string) (res *model.Record, err error) {
	defer r.observe("get", time.Now(), &err)
	return r.records.get(ctx, id)
}

// Update reads the current record, computes the index diff against it and
// commits the new version plus every index mutation as one batch. The read
// and the commit are separate submissions, so concurrent updaters race
// last-write-wins; see UpdateGuarded for the detect-and-retry variant.
func (r *Repository) Update(ctx context.Context, rec *model.Record) (res *model.Record, err error) {
	defer r.observe("update", time.Now(), &err)

	old, err := r.records.get(ctx, rec.ID)
	if err != nil {
		return nil, err
	}

	next := rec.Clone()
	next.UpdatedAt = time.Now().UTC()

	batch, err := r.writeBatch(next, old)
	if err != nil {
		return nil, err
	}
	if err := r.apply(ctx, batch); err != nil {
		return nil, err
	}

	r.logger.Info("Updated record",
		zap.String("record_id", next.ID),
		zap.String("old_status", old.Status.String()),
		zap.String("new_status", next.Status.String()))
	return next, nil
}

// UpdateGuarded is Update under optimistic concurrency control on the
// primary key: when a concurrent writer commits between the read and the
// batch, the batch is discarded and Conflict is returned so the caller can
// re-read and retry.
func (r *Repository) UpdateGuarded(ctx context.Context, rec *model.Record) (res *model.Record, err error) {
	defer r.observe("update_guarded", time.Now(), &err)

	var next *model.Record
	watchErr := r.kv.Watch(ctx, keys.Primary(rec.ID), func(reader store.Reader) (*store.Batch, error) {
		old, err := getVia(ctx, reader, rec.ID)
		if err != nil {
			return nil, err
		}
		next = rec.Clone()
		next.UpdatedAt = time.Now().UTC()
		return r.writeBatch(next, old)
	})

	if watchErr == store.ErrTxConflict {
		r.metrics.RecordGuardConflict()
		r.logger.Warn("Guarded update lost race", zap.String("record_id", rec.ID))
		return nil, repoerr.Conflict(rec.ID)
	}
	if watchErr != nil {
		if repoerr.CodeOf(watchErr) != repoerr.CodeUnknown {
			return nil, watchErr
		}
		return nil, repoerr.Connection("guarded update failed for "+rec.ID, watchErr)
	}
	return next, nil
}

// Delete removes the record, its reverse lookup and every index entry as
// one batch.
func (r *Repository) Delete(ctx context.Context, id string) (err error) {
	defer r.observe("delete", time.Now(), &err)

	rec, err := r.records.get(ctx, id)
	if err != nil {
		return err
	}

	batch := store.NewBatch().
		Delete(keys.Primary(id), keys.ReverseOwner(id))
	index.PlanDelete(batch, rec)

	if err := r.apply(ctx, batch); err != nil {
		return err
	}

	r.logger.Info("Deleted record",
		zap.String("record_id", id),
		zap.String("owner_id", rec.OwnerID))
	return nil
}

// ListByStatus returns every live record an owner holds in a status.
// Index members whose record no longer exists are pruned from the set and
// skipped; this call may therefore mutate index state.
func (r *Repository) ListByStatus(ctx context.Context, ownerID string, status model.Status) (res []*model.Record, err error) {
	defer r.observe("list_by_status", time.Now(), &err)

	statusKey := keys.StatusSet(ownerID, status)
	ids, err := r.kv.SetMembers(ctx, statusKey)
	if err != nil {
		return nil, repoerr.Connection("failed to read status set "+statusKey, err)
	}

	records := make([]*model.Record, 0, len(ids))
	for _, id := range ids {
		rec, err := r.records.get(ctx, id)
		if repoerr.IsNotFound(err) {
			r.logger.Warn("Record found in index but not in storage",
				zap.String("record_id", id),
				zap.String("status_key", statusKey))
			if healErr := r.kv.Apply(ctx, store.NewBatch().SetRemove(statusKey, id)); healErr != nil {
				return nil, repoerr.Connection("failed to prune dangling index entry "+id, healErr)
			}
			r.metrics.RecordIndexRepair()
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// GetBySequence returns the record occupying (owner, sequence), or nil
// when no mapping exists.
func (r *Repository) GetBySequence(ctx context.Context, ownerID string, sequence uint64) (res *model.Record, err error) {
	defer r.observe("get_by_sequence", time.Now(), &err)

	id, err := r.kv.Get(ctx, keys.SequenceMap(ownerID, sequence))
	if err == store.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, repoerr.Connection("failed to read sequence map", err)
	}
	return r.records.get(ctx, id)
}

// DropAll enumerates every owner and status set, collects every key the
// repository has written and deletes them in one batch. The enumeration is
// not atomic with the delete; records created concurrently may survive.
func (r *Repository) DropAll(ctx context.Context) (err error) {
	defer r.observe("drop_all", time.Now(), &err)

	owners, err := r.kv.SetMembers(ctx, keys.OwnerRegistry())
	if err != nil {
		return repoerr.Connection("failed to read owner registry", err)
	}

	doomed := []string{}
	for _, ownerID := range owners {
		for _, status := range model.AllStatuses() {
			statusKey := keys.StatusSet(ownerID, status)
			ids, err := r.kv.SetMembers(ctx, statusKey)
			if err != nil {
				return repoerr.Connection("failed to read status set "+statusKey, err)
			}
			for _, id := range ids {
				doomed = append(doomed, keys.Primary(id), keys.ReverseOwner(id))
				rec, err := r.records.get(ctx, id)
				if err == nil {
					doomed = append(doomed, keys.SequenceMap(rec.OwnerID, rec.Sequence))
				} else if repoerr.IsConnection(err) {
					return err
				}
				// Dangling or unreadable entries lose only their
				// sequence mapping; the set itself is deleted below.
			}
			doomed = append(doomed, statusKey)
		}
		doomed = append(doomed, keys.OwnerCounter(ownerID))
	}
	doomed = append(doomed, keys.OwnerRegistry())

	batch := store.NewBatch().Delete(doomed...)
	if err := r.apply(ctx, batch); err != nil {
		return err
	}

	r.logger.Info("Dropped all entries",
		zap.Int("owners", len(owners)),
		zap.Int("keys", len(doomed)))
	return nil
}

// Stats returns the owner count and per-status record totals as a live
// aggregate over set cardinalities, keyed "owners" and "status_<name>".
func (r *Repository) Stats(ctx context.Context) (res map[string]int64, err error) {
	defer r.observe("stats", time.Now(), &err)

	stats := make(map[string]int64)

	ownerCount, err := r.kv.SetCard(ctx, keys.OwnerRegistry())
	if err != nil {
		return nil, repoerr.Connection("failed to read owner registry", err)
	}
	stats["owners"] = ownerCount

	owners, err := r.kv.SetMembers(ctx, keys.OwnerRegistry())
	if err != nil {
		return nil, repoerr.Connection("failed to read owner registry", err)
	}

	for _, status := range model.AllStatuses() {
		var total int64
		for _, ownerID := range owners {
			n, err := r.kv.SetCard(ctx, keys.StatusSet(ownerID, status))
			if err != nil {
				return nil, repoerr.Connection("failed to read status set cardinality", err)
			}
			total += n
		}
		stats["status_"+status.String()] = total
	}
	return stats, nil
}

// writeBatch stages the primary write plus the index diff for one logical
// update into a single batch.
func (r *Repository) writeBatch(next, old *model.Record) (*store.Batch, error) {
	raw, err := encodeRecord(next)
	if err != nil {
		return nil, err
	}
	batch := store.NewBatch().Set(keys.Primary(next.ID), raw, 0)
	index.PlanWrite(batch, next, old, r.statusTTL)
	return batch, nil
}

// apply submits a batch and maps store failures to Connection errors.
func (r *Repository) apply(ctx context.Context, batch *store.Batch) error {
	r.metrics.RecordBatch(batch.Len())
	if err := r.kv.Apply(ctx, batch); err != nil {
		return repoerr.Connection("failed to apply batch", err)
	}
	return nil
}

// observe records operation metrics from a deferred call site.
func (r *Repository) observe(op string, start time.Time, err *error) {
	code := ""
	if err != nil && *err != nil {
		code = repoerr.CodeOf(*err).String()
	}
	r.metrics.RecordOperation(op, time.Since(start), code)
}
