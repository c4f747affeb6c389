package casefile

import (
	"fmt"
	"sync"
)

// Grant declares what a stage may read and write. The write set is derived
// from the schema: a stage writes exactly the fields its Writer owns.
type Grant struct {
	writer Writer
	reads  []Field
	writes []Field
}

// NewGrant builds a Grant for writer with the given read set. An empty writer
// yields a read-only grant.
func NewGrant(writer Writer, reads ...Field) Grant {
	g := Grant{writer: writer, reads: append([]Field(nil), reads...)}
	if writer == "" {
		return g
	}
	for _, f := range Fields {
		if owner, _ := WriterOf(f); owner == writer {
			g.writes = append(g.writes, f)
		}
	}
	return g
}

// Writer returns the writer category the grant was issued to.
func (g Grant) Writer() Writer { return g.writer }

// Reads returns the declared read set.
func (g Grant) Reads() []Field { return append([]Field(nil), g.reads...) }

// Writes returns the fields the grant may write.
func (g Grant) Writes() []Field { return append([]Field(nil), g.writes...) }

// CanRead reports whether f is in the read set.
func (g Grant) CanRead(f Field) bool { return contains(g.reads, f) }

// CanWrite reports whether f is in the write set.
func (g Grant) CanWrite(f Field) bool { return contains(g.writes, f) }

// Scope is a stage-private view of a Record. It is safe for use by a single
// stage; the mutex only protects against a stage that spawns its own
// goroutines.
type Scope struct {
	rec   *Record
	grant Grant

	mu        sync.Mutex
	single    map[Field]string
	seq       map[Field][]string
	staged    map[Field][]string
	sets      map[Field]string
	committed bool
}

// Grant returns the grant the scope was opened with.
func (s *Scope) Grant() Grant { return s.grant }

// Get reads a single-value field. The bool is false when the field is unset.
func (s *Scope) Get(f Field) (string, bool, error) {
	if err := s.checkRead(f, KindSingle); err != nil {
		return "", false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sets[f]; ok {
		return v, true, nil
	}
	v, ok := s.single[f]
	return v, ok, nil
}

// List reads a sequence field, including entries this scope has staged.
func (s *Scope) List(f Field) ([]string, error) {
	if err := s.checkRead(f, KindSequence); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := cloneStrings(s.seq[f])
	return append(out, s.staged[f]...), nil
}

// Append stages one entry onto a sequence field.
func (s *Scope) Append(f Field, v string) error {
	if err := s.checkWrite(f, KindSequence); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return ErrCommitted
	}
	s.staged[f] = append(s.staged[f], v)
	return nil
}

// Set stages a single-value write. Values that are not strings are rejected
// with ErrInvalidValue; topic may only be set once.
func (s *Scope) Set(f Field, v any) error {
	if err := s.checkWrite(f, KindSingle); err != nil {
		return err
	}
	str, ok := v.(string)
	if !ok {
		return fmt.Errorf("%w: %s must be string, got %T", ErrInvalidValue, f, v)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return ErrCommitted
	}
	if f == Topic {
		if _, exists := s.single[Topic]; exists || s.rec.IsSet(Topic) {
			return fmt.Errorf("%w: %s", ErrImmutable, f)
		}
	}
	s.sets[f] = str
	return nil
}

// Pending returns the number of staged writes, counting each appended entry.
func (s *Scope) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.sets)
	for _, vs := range s.staged {
		n += len(vs)
	}
	return n
}

// Commit merges staged writes into the Record. A scope commits once.
func (s *Scope) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed {
		return ErrCommitted
	}
	if err := s.rec.commit(s.sets, s.staged); err != nil {
		return err
	}
	s.committed = true
	return nil
}

func (s *Scope) checkRead(f Field, want Kind) error {
	kind, err := KindOf(f)
	if err != nil {
		return err
	}
	if !s.grant.CanRead(f) {
		return fmt.Errorf("%w: %s may not read %s", ErrReadDenied, s.grant.writer, f)
	}
	if kind != want {
		return fmt.Errorf("%w: %s", ErrWrongKind, f)
	}
	return nil
}

func (s *Scope) checkWrite(f Field, want Kind) error {
	kind, err := KindOf(f)
	if err != nil {
		return err
	}
	if !s.grant.CanWrite(f) {
		owner, _ := WriterOf(f)
		return fmt.Errorf("%w: %s may not write %s (owned by %s)", ErrWriteDenied, s.grant.writer, f, owner)
	}
	if kind != want {
		return fmt.Errorf("%w: %s", ErrWrongKind, f)
	}
	return nil
}

func contains(fs []Field, f Field) bool {
	for _, x := range fs {
		if x == f {
			return true
		}
	}
	return false
}
