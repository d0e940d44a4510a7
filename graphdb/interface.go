// Package graphdb stores explored state graphs in a key-value database so
// they can be inspected after a search.
package graphdb

import "io"

// IdealBatchSize is the amount of buffered record data after which a batch
// is written.
const IdealBatchSize = 100 * 1024

// KeyValueReader wraps the Has and Get method of a backing data store.
type KeyValueReader interface {
	// Has retrieves if a key is present in the key-value data store.
	Has(key []byte) (bool, error)

	// Get retrieves the given key if it's present in the key-value data store.
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter wraps the Put method of a backing data store.
type KeyValueWriter interface {
	// Put inserts the given value into the key-value data store.
	Put(key []byte, value []byte) error

	// Delete removes the key from the key-value data store.
	Delete(key []byte) error
}

// Batch is a write-only store that commits its changes on Write.
type Batch interface {
	KeyValueWriter
	ValueSize() int
	Write() error
	Reset()
}

// Batcher wraps the NewBatch method of a backing data store.
type Batcher interface {
	NewBatch() Batch
}

// Iterator walks a key range in binary-alphabetical order. Key and Value are
// only valid until the next call to Next.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Release()
}

// Iteratee wraps the NewIteratorWithPrefix method of a backing data store.
type Iteratee interface {
	NewIteratorWithPrefix(prefix []byte) Iterator
}

// Compacter wraps the Compact method of a backing data store.
type Compacter interface {
	// Compact flattens the underlying data store for the given key range.
	// A nil start is treated as a key before all keys in the data store; a
	// nil limit is treated as a key after all keys in the data store.
	Compact(start []byte, limit []byte) error
}

// Reader is what the graph queries need.
type Reader interface {
	KeyValueReader
	Iteratee
}

// KeyValueStore contains all the methods required to store a state graph.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	Batcher
	Iteratee
	Compacter
	io.Closer
}
