package repository

import (
	"context"
	"encoding/json"

	"github.com/devrev/txstore/internal/keys"
	"github.com/devrev/txstore/internal/model"
	"github.com/devrev/txstore/internal/repoerr"
	"github.com/devrev/txstore/internal/store"
)

// recordStore reads and writes the primary record blob. Writes are staged
// onto batches by the repository so they commit together with the index
// mutations; only reads go through here directly.
type recordStore struct {
	kv store.Store
}

// get loads a record by id.
func (rs recordStore) get(ctx context.Context, id string) (*model.Record, error) {
	raw, err := rs.kv.Get(ctx, keys.Primary(id))
	if err == store.ErrKeyNotFound {
		return nil, repoerr.NotFound(id)
	}
	if err != nil {
		return nil, repoerr.Connection("failed to read record "+id, err)
	}
	return decodeRecord(id, raw)
}

// exists reports whether a primary record is present.
func (rs recordStore) exists(ctx context.Context, id string) (bool, error) {
	ok, err := rs.kv.Exists(ctx, keys.Primary(id))
	if err != nil {
		return false, repoerr.Connection("failed to check record "+id, err)
	}
	return ok, nil
}

// getVia loads a record through a Watch read view.
func getVia(ctx context.Context, r store.Reader, id string) (*model.Record, error) {
	raw, err := r.Get(ctx, keys.Primary(id))
	if err == store.ErrKeyNotFound {
		return nil, repoerr.NotFound(id)
	}
	if err != nil {
		return nil, repoerr.Connection("failed to read record "+id, err)
	}
	return decodeRecord(id, raw)
}

// encodeRecord serializes a record for the primary key.
func encodeRecord(rec *model.Record) (string, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return "", repoerr.Serialization("failed to serialize record "+rec.ID, err)
	}
	return string(data), nil
}

// decodeRecord parses a stored record blob.
func decodeRecord(id, raw string) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, repoerr.Serialization("failed to deserialize record "+id, err)
	}
	return &rec, nil
}
