package store

import "time"

// OpKind identifies a batch operation.
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
	OpSetAdd
	OpSetRemove
	OpIncrBy
	OpExpire
)

// Op is a single precomputed key operation inside a batch.
type Op struct {
	Kind   OpKind
	Key    string
	Value  string        // OpSet value or OpSetAdd/OpSetRemove member
	Delta  int64         // OpIncrBy amount, may be negative
	TTL    time.Duration // OpSet/OpExpire expiry, zero means none
}

// Batch is an ordered list of operations committed as one atomic unit.
type Batch struct {
	ops []Op
}

// NewBatch creates an empty batch.
func NewBatch() *Batch {
	return &Batch{}
}

// Set stages a string write, optionally with an expiry.
func (b *Batch) Set(key, value string, ttl time.Duration) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Key: key, Value: value, TTL: ttl})
	return b
}

// Delete stages unconditional key removals.
func (b *Batch) Delete(keys ...string) *Batch {
	for _, k := range keys {
		b.ops = append(b.ops, Op{Kind: OpDelete, Key: k})
	}
	return b
}

// SetAdd stages adding a member to a set.
func (b *Batch) SetAdd(key, member string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSetAdd, Key: key, Value: member})
	return b
}

// SetRemove stages removing a member from a set.
func (b *Batch) SetRemove(key, member string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSetRemove, Key: key, Value: member})
	return b
}

// IncrBy stages an integer increment; negative deltas decrement.
func (b *Batch) IncrBy(key string, delta int64) *Batch {
	b.ops = append(b.ops, Op{Kind: OpIncrBy, Key: key, Delta: delta})
	return b
}

// Expire stages setting a key's time-to-live.
func (b *Batch) Expire(key string, ttl time.Duration) *Batch {
	b.ops = append(b.ops, Op{Kind: OpExpire, Key: key, TTL: ttl})
	return b
}

// Ops returns the staged operations in submission order.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Len returns the number of staged operations.
func (b *Batch) Len() int {
	return len(b.ops)
}
