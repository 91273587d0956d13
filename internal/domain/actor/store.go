package actor

// Identified is implemented by every record type kept in an OrderedStore.
type Identified interface {
	RecordID() string
}

// OrderedStore is an append-only, insertion-ordered container of records
// of one type, scoped to one capability of one actor. It is not safe for
// concurrent use; a store belongs to exactly one actor and scenario steps
// drive an actor sequentially.
type OrderedStore[T Identified] struct {
	records []T
}

// NewOrderedStore returns an empty store.
func NewOrderedStore[T Identified]() *OrderedStore[T] {
	return &OrderedStore[T]{}
}

// Append adds a record at the end.
func (s *OrderedStore[T]) Append(rec T) {
	s.records = append(s.records, rec)
}

// All returns a snapshot of the records in insertion order.
func (s *OrderedStore[T]) All() []T {
	out := make([]T, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records.
func (s *OrderedStore[T]) Len() int {
	return len(s.records)
}

// Pick selects one record by strategy. An empty store yields
// ErrEmptySelection.
func (s *OrderedStore[T]) Pick(strategy Strategy) (T, error) {
	return Pick(s.records, strategy)
}

// Update replaces the stored record with the same identity by a newer
// snapshot, keeping its position. When no record with that identity
// exists the update degrades to an append.
func (s *OrderedStore[T]) Update(rec T) {
	for i, existing := range s.records {
		if existing.RecordID() == rec.RecordID() {
			s.records[i] = rec
			return
		}
	}
	s.records = append(s.records, rec)
}

// Remove deletes the record with the given identity, preserving the
// order of the remainder. It reports whether a record was removed.
func (s *OrderedStore[T]) Remove(id string) bool {
	for i, existing := range s.records {
		if existing.RecordID() == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the record with the given identity.
func (s *OrderedStore[T]) Find(id string) (T, bool) {
	var zero T
	for _, existing := range s.records {
		if existing.RecordID() == id {
			return existing, true
		}
	}
	return zero, false
}
