package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// MemStore is an in-process Store used by tests and demo runs. A single
// mutex covers every batch, which gives Apply the same all-or-nothing
// visibility the Redis pipeline provides. Expiry is tracked lazily and
// checked on read.
type MemStore struct {
	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	expiry  map[string]time.Time

	// now is swappable so tests can control expiry.
	now func() time.Time
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		expiry:  make(map[string]time.Time),
		now:     time.Now,
	}
}

// SetClock overrides the store's time source. Test use only.
func (s *MemStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Get retrieves a string value.
func (s *MemStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(key)
}

func (s *MemStore) getLocked(key string) (string, error) {
	s.purgeExpiredLocked(key)
	val, ok := s.strings[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return val, nil
}

// Set writes a string value.
func (s *MemStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value, ttl)
	return nil
}

func (s *MemStore) setLocked(key, value string, ttl time.Duration) {
	s.strings[key] = value
	if ttl > 0 {
		s.expiry[key] = s.now().Add(ttl)
	} else {
		delete(s.expiry, key)
	}
}

// Delete removes keys unconditionally.
func (s *MemStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.deleteLocked(k)
	}
	return nil
}

func (s *MemStore) deleteLocked(key string) {
	delete(s.strings, key)
	delete(s.sets, key)
	delete(s.expiry, key)
}

// Exists reports whether the key is present as a string or a set.
func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(key)
	if _, ok := s.strings[key]; ok {
		return true, nil
	}
	_, ok := s.sets[key]
	return ok, nil
}

// SetMembers returns every member of a set.
func (s *MemStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(key)
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	return members, nil
}

// SetCard returns a set's cardinality.
func (s *MemStore) SetCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(key)
	return int64(len(s.sets[key])), nil
}

// GetInt reads an integer value, 0 when absent.
func (s *MemStore) GetInt(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeExpiredLocked(key)
	val, ok := s.strings[key]
	if !ok {
		return 0, nil
	}
	return strconv.ParseInt(val, 10, 64)
}

// Apply commits the batch under the store mutex, so it is atomic with
// respect to every other operation.
func (s *MemStore) Apply(ctx context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(batch)
	return nil
}

func (s *MemStore) applyLocked(batch *Batch) {
	for _, op := range batch.Ops() {
		switch op.Kind {
		case OpSet:
			s.setLocked(op.Key, op.Value, op.TTL)
		case OpDelete:
			s.deleteLocked(op.Key)
		case OpSetAdd:
			if s.sets[op.Key] == nil {
				s.sets[op.Key] = make(map[string]struct{})
			}
			s.sets[op.Key][op.Value] = struct{}{}
		case OpSetRemove:
			delete(s.sets[op.Key], op.Value)
			if len(s.sets[op.Key]) == 0 {
				delete(s.sets, op.Key)
			}
		case OpIncrBy:
			cur, _ := strconv.ParseInt(s.strings[op.Key], 10, 64)
			s.strings[op.Key] = strconv.FormatInt(cur+op.Delta, 10)
		case OpExpire:
			if _, isStr := s.strings[op.Key]; isStr {
				s.expiry[op.Key] = s.now().Add(op.TTL)
			} else if _, isSet := s.sets[op.Key]; isSet {
				s.expiry[op.Key] = s.now().Add(op.TTL)
			}
		}
	}
}

// Watch holds the store mutex across fn and the batch apply, so guarded
// writes never observe a conflict here.
func (s *MemStore) Watch(ctx context.Context, key string, fn func(r Reader) (*Batch, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch, err := fn(memReader{s: s})
	if err != nil {
		return err
	}
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	s.applyLocked(batch)
	return nil
}

// Ping always succeeds.
func (s *MemStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemStore) Close() error {
	return nil
}

// purgeExpiredLocked drops the key if its deadline has passed.
func (s *MemStore) purgeExpiredLocked(key string) {
	deadline, ok := s.expiry[key]
	if ok && !s.now().Before(deadline) {
		s.deleteLocked(key)
	}
}

// memReader reads through the already-held store mutex.
type memReader struct {
	s *MemStore
}

func (r memReader) Get(ctx context.Context, key string) (string, error) {
	return r.s.getLocked(key)
}
