package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/devrev/txstore/internal/keys"
	"github.com/devrev/txstore/internal/model"
	"github.com/devrev/txstore/internal/repoerr"
	"github.com/devrev/txstore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepo(t *testing.T) (*Repository, *store.MemStore) {
	t.Helper()
	kv := store.NewMemStore()
	return New(kv, zap.NewNop()), kv
}

func TestCreate_RoundTrip(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 1, "dest-1", "1000", 20, 21000)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, created.ID)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.OwnerID, got.OwnerID)
	assert.Equal(t, rec.Sequence, got.Sequence)
	assert.Equal(t, model.StatusPending, got.Status)
	assert.Equal(t, rec.Amount, got.Amount)
	assert.Equal(t, rec.Destination, got.Destination)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestCreate_IndexesVisibleTogether(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 42, "dest-1", "1000", 20, 21000)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	byStatus, err := repo.ListByStatus(ctx, "owner-a", model.StatusPending)
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, rec.ID, byStatus[0].ID)

	bySeq, err := repo.GetBySequence(ctx, "owner-a", 42)
	require.NoError(t, err)
	require.NotNil(t, bySeq)
	assert.Equal(t, rec.ID, bySeq.ID)
	assert.Equal(t, uint64(42), bySeq.Sequence)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 1, "dest-1", "1000", 20, 21000)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	_, err = repo.Create(ctx, rec)
	assert.True(t, repoerr.IsAlreadyExists(err))
}

func TestGet_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Get(context.Background(), "no-such-id")
	assert.True(t, repoerr.IsNotFound(err))
}

func TestUpdate_StatusMovesBetweenSets(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("a", 1, "dest-1", "1000", 20, 21000)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	next := created.Clone()
	next.Status = model.StatusConfirmed
	next.ExternalRef = "0xdeadbeef"
	updated, err := repo.Update(ctx, next)
	require.NoError(t, err)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))

	pending, err := repo.ListByStatus(ctx, "a", model.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	confirmed, err := repo.ListByStatus(ctx, "a", model.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, created.ID, confirmed[0].ID)
	assert.Equal(t, "0xdeadbeef", confirmed[0].ExternalRef)
}

func TestUpdate_SequenceReassignment(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 5, "dest-1", "1000", 20, 21000)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	next := created.Clone()
	next.Sequence = 9
	_, err = repo.Update(ctx, next)
	require.NoError(t, err)

	old, err := repo.GetBySequence(ctx, "owner-a", 5)
	require.NoError(t, err)
	assert.Nil(t, old)

	moved, err := repo.GetBySequence(ctx, "owner-a", 9)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, created.ID, moved.ID)
	assert.Equal(t, uint64(9), moved.Sequence)
}

func TestUpdate_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	rec := model.NewRecord("owner-a", 1, "dest-1", "1000", 20, 21000)
	_, err := repo.Update(context.Background(), rec)
	assert.True(t, repoerr.IsNotFound(err))
}

func TestDelete_RemovesEverything(t *testing.T) {
	repo, kv := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 7, "dest-1", "1000", 20, 21000)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, rec.ID))

	_, err = repo.Get(ctx, rec.ID)
	assert.True(t, repoerr.IsNotFound(err))

	pending, err := repo.ListByStatus(ctx, "owner-a", model.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	bySeq, err := repo.GetBySequence(ctx, "owner-a", 7)
	require.NoError(t, err)
	assert.Nil(t, bySeq)

	count, err := kv.GetInt(ctx, keys.OwnerCounter("owner-a"))
	require.NoError(t, err)
	assert.Zero(t, count)

	// Registry entries are not removed on delete.
	owners, err := kv.SetMembers(ctx, keys.OwnerRegistry())
	require.NoError(t, err)
	assert.Contains(t, owners, "owner-a")
}

func TestDelete_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Delete(context.Background(), "no-such-id")
	assert.True(t, repoerr.IsNotFound(err))
}

func TestListByStatus_SelfHealing(t *testing.T) {
	repo, kv := newTestRepo(t)
	ctx := context.Background()

	keep := model.NewRecord("owner-a", 1, "dest-1", "1000", 20, 21000)
	_, err := repo.Create(ctx, keep)
	require.NoError(t, err)

	dangling := model.NewRecord("owner-a", 2, "dest-2", "2000", 20, 21000)
	_, err = repo.Create(ctx, dangling)
	require.NoError(t, err)

	// Simulate a lost primary record behind the index's back.
	require.NoError(t, kv.Delete(ctx, keys.Primary(dangling.ID)))

	records, err := repo.ListByStatus(ctx, "owner-a", model.StatusPending)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, keep.ID, records[0].ID)

	// The dangling entry was pruned as a side effect.
	members, err := kv.SetMembers(ctx, keys.StatusSet("owner-a", model.StatusPending))
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, members)
}

func TestStats_Consistency(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec := model.NewRecord("owner-a", uint64(i), "dest", "1", 1, 1)
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}
	other := model.NewRecord("owner-b", 1, "dest", "1", 1, 1)
	created, err := repo.Create(ctx, other)
	require.NoError(t, err)

	next := created.Clone()
	next.Status = model.StatusFailed
	_, err = repo.Update(ctx, next)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats["owners"])
	assert.Equal(t, int64(3), stats["status_pending"])
	assert.Equal(t, int64(1), stats["status_failed"])
	assert.Zero(t, stats["status_confirmed"])
	assert.Zero(t, stats["status_cancelled"])

	// Sum of status totals equals records reachable via ListByStatus.
	var reachable int64
	for _, owner := range []string{"owner-a", "owner-b"} {
		for _, status := range model.AllStatuses() {
			records, err := repo.ListByStatus(ctx, owner, status)
			require.NoError(t, err)
			reachable += int64(len(records))
		}
	}
	var total int64
	for _, status := range model.AllStatuses() {
		total += stats["status_"+status.String()]
	}
	assert.Equal(t, reachable, total)
}

func TestDropAll_Completeness(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := model.NewRecord("owner-a", uint64(i), "dest", "1", 1, 1)
		_, err := repo.Create(ctx, rec)
		require.NoError(t, err)
	}

	before, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), before["status_pending"])

	require.NoError(t, repo.DropAll(ctx))

	after, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, after["owners"])
	for _, status := range model.AllStatuses() {
		assert.Zero(t, after["status_"+status.String()])
	}
}

func TestGetBySequence_ReturnsMatchingSequence(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 11, "dest", "1", 1, 1)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	got, err := repo.GetBySequence(ctx, "owner-a", 11)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, uint64(11), got.Sequence)

	missing, err := repo.GetBySequence(ctx, "owner-a", 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUpdateGuarded_Succeeds(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 1, "dest", "1", 1, 1)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	next := created.Clone()
	next.Status = model.StatusConfirmed
	updated, err := repo.UpdateGuarded(ctx, next)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, updated.Status)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)
}

func TestUpdateGuarded_NotFound(t *testing.T) {
	repo, _ := newTestRepo(t)

	rec := model.NewRecord("owner-a", 1, "dest", "1", 1, 1)
	_, err := repo.UpdateGuarded(context.Background(), rec)
	assert.True(t, repoerr.IsNotFound(err))
}

// conflictStore wraps a MemStore and forces Watch to report a lost race.
type conflictStore struct {
	*store.MemStore
}

func (s conflictStore) Watch(ctx context.Context, key string, fn func(r store.Reader) (*store.Batch, error)) error {
	return store.ErrTxConflict
}

func TestUpdateGuarded_Conflict(t *testing.T) {
	kv := conflictStore{MemStore: store.NewMemStore()}
	repo := New(kv, zap.NewNop())
	ctx := context.Background()

	rec := model.NewRecord("owner-a", 1, "dest", "1", 1, 1)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	next := rec.Clone()
	next.Status = model.StatusConfirmed
	_, err = repo.UpdateGuarded(ctx, next)
	assert.True(t, repoerr.IsConflict(err))
}

// Concurrent guarded updates of the same id cycling through every status:
// serialization through the guard keeps the id in exactly one status set.
func TestConcurrentGuardedUpdates_StatusExclusivity(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("race-owner", 999, "dest", "1", 1, 1)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	statuses := model.AllStatuses()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for {
				current, err := repo.Get(ctx, created.ID)
				if !assert.NoError(t, err) {
					return
				}
				next := current.Clone()
				next.Status = statuses[i%len(statuses)]
				_, err = repo.UpdateGuarded(ctx, next)
				if repoerr.IsConflict(err) {
					continue
				}
				assert.NoError(t, err)
				return
			}
		}(i)
	}
	wg.Wait()

	assertSingleMembership(t, repo, "race-owner", created.ID)
}

// Concurrent plain updates are last-write-wins by design: the final
// record's own status set always contains the id, but stale memberships
// may linger until another write or heal corrects them.
func TestConcurrentPlainUpdates_WinnerIndexed(t *testing.T) {
	repo, kv := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("race-owner", 999, "dest", "1", 1, 1)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	statuses := model.AllStatuses()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			current, err := repo.Get(ctx, created.ID)
			if !assert.NoError(t, err) {
				return
			}
			next := current.Clone()
			next.Status = statuses[i%len(statuses)]
			time.Sleep(time.Duration(i%5) * time.Millisecond)
			_, err = repo.Update(ctx, next)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	final, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)

	members, err := kv.SetMembers(ctx, keys.StatusSet("race-owner", final.Status))
	require.NoError(t, err)
	assert.Contains(t, members, created.ID,
		"record must be indexed under its final status")

	var total int
	for _, status := range statuses {
		members, err := kv.SetMembers(ctx, keys.StatusSet("race-owner", status))
		require.NoError(t, err)
		for _, m := range members {
			if m == created.ID {
				total++
			}
		}
	}
	assert.GreaterOrEqual(t, total, 1)
}

// Quiescence after the race: a corrective guarded rewrite of the final
// state converges the indexes back to exclusivity.
func TestConcurrentPlainUpdates_Convergence(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	rec := model.NewRecord("race-owner", 999, "dest", "1", 1, 1)
	created, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	statuses := model.AllStatuses()
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			current, err := repo.Get(ctx, created.ID)
			if !assert.NoError(t, err) {
				return
			}
			next := current.Clone()
			next.Status = statuses[i%len(statuses)]
			_, err = repo.Update(ctx, next)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	// One corrective pass per stale status removes lingering memberships.
	final, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	for _, status := range statuses {
		if status == final.Status {
			continue
		}
		stale := final.Clone()
		stale.Status = status
		_, err := repo.Update(ctx, stale)
		require.NoError(t, err)
		back := stale.Clone()
		back.Status = final.Status
		_, err = repo.Update(ctx, back)
		require.NoError(t, err)
	}

	assertSingleMembership(t, repo, "race-owner", created.ID)
}

func assertSingleMembership(t *testing.T, repo *Repository, ownerID, id string) {
	t.Helper()
	ctx := context.Background()

	var total int
	for _, status := range model.AllStatuses() {
		records, err := repo.ListByStatus(ctx, ownerID, status)
		require.NoError(t, err)
		for _, rec := range records {
			if rec.ID == id {
				total++
			}
		}
	}
	assert.Equal(t, 1, total, "record must appear in exactly one status set")
}

func TestStatusTTL_RefreshedOnWrite(t *testing.T) {
	kv := store.NewMemStore()
	repo := New(kv, zap.NewNop(), WithStatusTTL(time.Hour))
	ctx := context.Background()

	current := time.Now()
	kv.SetClock(func() time.Time { return current })

	rec := model.NewRecord("owner-a", 1, "dest", "1", 1, 1)
	_, err := repo.Create(ctx, rec)
	require.NoError(t, err)

	// Past the TTL with no writes, the status set expires.
	current = current.Add(2 * time.Hour)
	card, err := kv.SetCard(ctx, keys.StatusSet("owner-a", model.StatusPending))
	require.NoError(t, err)
	assert.Zero(t, card)
}
