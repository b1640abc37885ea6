package internal

import (
	"fmt"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Pending Operation Types are used to record writes inside a transaction
// --------------------------------------------------------------------------

type OpType int

const (
	OpTStore OpType = iota
	OpTDelete
)

func (o OpType) String() string {
	switch o {
	case OpTStore:
		return "Store"
	case OpTDelete:
		return "Delete"
	default:
		return "Unknown"
	}
}

// Pending is the last write to a key inside a transaction
type Pending struct {
	Type  OpType
	Value []byte // nil for deletes
}

func (p Pending) String() string {
	return fmt.Sprintf("Pending{Type: %s, Len: %d}", p.Type, len(p.Value))
}

// --------------------------------------------------------------------------
// Journal (writes of one explicit transaction)
// --------------------------------------------------------------------------

// Journal collects the writes of an explicit transaction until commit or rollback.
// Only the last write per key is kept.
//
// Thread-safety: A journal belongs to exactly one handle and is guarded by the handle.
type Journal struct {
	writes map[string]Pending
	order  []string // keys in order of their first write
}

// NewJournal creates an empty journal
func NewJournal() *Journal {
	return &Journal{writes: make(map[string]Pending)}
}

// Store records a store of value for key
func (j *Journal) Store(key string, value []byte) {
	j.record(key, Pending{Type: OpTStore, Value: value})
}

// Delete records a delete of key
func (j *Journal) Delete(key string) {
	j.record(key, Pending{Type: OpTDelete})
}

func (j *Journal) record(key string, p Pending) {
	if _, ok := j.writes[key]; !ok {
		j.order = append(j.order, key)
	}
	j.writes[key] = p
}

// Lookup returns the pending write for key
func (j *Journal) Lookup(key string) (Pending, bool) {
	p, ok := j.writes[key]
	return p, ok
}

// Range calls fn for every pending write in order of the first write to each key
func (j *Journal) Range(fn func(key string, p Pending)) {
	for _, key := range j.order {
		fn(key, j.writes[key])
	}
}

// Len returns the number of keys written in the transaction
func (j *Journal) Len() int {
	return len(j.order)
}

// Undo is the state of a key before a journal was applied to the shards
type Undo struct {
	Key     string
	Value   []byte
	Existed bool
}

// --------------------------------------------------------------------------
// Shard Type (partition of the database)
// --------------------------------------------------------------------------

// Shard represents a partition of the database
type Shard struct {
	Data *xsync.MapOf[string, []byte] // Map of committed key-value entries
}

// NewShard creates a new empty shard
func NewShard() *Shard {
	return &Shard{
		Data: xsync.NewMapOf[string, []byte](),
	}
}

// GetShard returns the appropriate shard for a given key
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func GetShard[T any](key util.UintKey, shards []*T) *T {
	// Shift right by 7 bits to use higher-quality bits for distribution
	shiftedKey := uint64(key) >> 7
	shardPos := shiftedKey % uint64(len(shards))
	return shards[shardPos]
}
