// Package keys maps logical record identity to the physical key space.
// Every key the repository touches is produced here; nothing else builds
// key strings.
package keys

import (
	"fmt"

	"github.com/devrev/txstore/internal/model"
)

// Primary is the key holding the serialized record.
func Primary(id string) string {
	return "record:" + id
}

// ReverseOwner maps a record id back to its owner.
func ReverseOwner(id string) string {
	return "lookup:" + id
}

// OwnerRegistry is the set of every owner id ever seen.
func OwnerRegistry() string {
	return "owners"
}

// StatusSet is the set of record ids a given owner holds in a given status.
func StatusSet(ownerID string, status model.Status) string {
	return fmt.Sprintf("owner:%s:status:%s", ownerID, status)
}

// SequenceMap holds the single record id occupying (owner, sequence).
func SequenceMap(ownerID string, sequence uint64) string {
	return fmt.Sprintf("owner:%s:seq:%d", ownerID, sequence)
}

// OwnerCounter is the per-owner creation counter.
func OwnerCounter(ownerID string) string {
	return fmt.Sprintf("owner:%s:count", ownerID)
}
