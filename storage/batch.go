package storage

// BatchOp is the kind of a single batch row.
type BatchOp uint8

const (
	// OpPut sets the row's key to the row's value.
	OpPut BatchOp = iota
	// OpDelete removes the row's key.
	OpDelete
)

// BatchRow is one (key, operation) pair of a write batch.
// Value is nil for OpDelete rows.
type BatchRow struct {
	Key   []byte
	Value []byte
	Op    BatchOp
}

// WriteBatch is an ordered sequence of put/delete rows applied through a
// single Store.WriteBatch call. Rows are replayed in append order; a later
// row for the same key wins. The zero value is an empty, usable batch.
//
// A WriteBatch is built by one goroutine and handed to the store; it is not
// safe for concurrent mutation.
type WriteBatch struct {
	rows []BatchRow
}

// NewWriteBatch returns an empty batch.
func NewWriteBatch() *WriteBatch { return &WriteBatch{} }

// Put appends a set-value row.
func (b *WriteBatch) Put(key, value []byte) {
	b.rows = append(b.rows, BatchRow{Key: key, Value: value, Op: OpPut})
}

// Delete appends a delete row.
func (b *WriteBatch) Delete(key []byte) {
	b.rows = append(b.rows, BatchRow{Key: key, Op: OpDelete})
}

// Rows exposes the batch's rows in append order.
func (b *WriteBatch) Rows() []BatchRow { return b.rows }

// Len returns the number of rows in the batch.
func (b *WriteBatch) Len() int { return len(b.rows) }
