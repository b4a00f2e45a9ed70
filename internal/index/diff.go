// Package index computes the derived-index mutations a record write needs.
// It is a pure planner: given the new record and the prior version, it
// stages the exact adds and removes onto a batch, and the batch executor
// commits them together with the primary write. Splitting these operations
// across submissions is what lets indexes drift, so nothing here submits
// anything on its own.
package index

import (
	"time"

	"github.com/devrev/txstore/internal/keys"
	"github.com/devrev/txstore/internal/model"
	"github.com/devrev/txstore/internal/store"
)

// DefaultStatusTTL bounds the lifetime of abandoned status sets. Every
// write refreshes the deadline on the record's current status set.
const DefaultStatusTTL = 24 * time.Hour

// PlanWrite stages the index operations for a create (old == nil) or an
// update (old holds the version the caller read before mutating).
func PlanWrite(b *store.Batch, rec *model.Record, old *model.Record, statusTTL time.Duration) {
	newStatusKey := keys.StatusSet(rec.OwnerID, rec.Status)

	b.SetAdd(keys.OwnerRegistry(), rec.OwnerID)
	b.SetAdd(newStatusKey, rec.ID)
	b.Set(keys.SequenceMap(rec.OwnerID, rec.Sequence), rec.ID, 0)

	if old == nil {
		b.IncrBy(keys.OwnerCounter(rec.OwnerID), 1)
	} else {
		if old.Status != rec.Status {
			b.SetRemove(keys.StatusSet(old.OwnerID, old.Status), rec.ID)
		}
		if old.Sequence != rec.Sequence {
			// Unconditional delete: a racing later writer may already
			// have overwritten this slot, and we must not resurrect it.
			b.Delete(keys.SequenceMap(old.OwnerID, old.Sequence))
		}
	}

	b.Expire(newStatusKey, statusTTL)
}

// PlanDelete stages the index removals for deleting rec, including the
// owner counter decrement.
func PlanDelete(b *store.Batch, rec *model.Record) {
	b.SetRemove(keys.StatusSet(rec.OwnerID, rec.Status), rec.ID)
	b.Delete(keys.SequenceMap(rec.OwnerID, rec.Sequence))
	b.IncrBy(keys.OwnerCounter(rec.OwnerID), -1)
}
