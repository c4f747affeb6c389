// Package casefile holds the per-run Case Record shared by every court stage.
//
// Each field has exactly one writer. Stages never touch the Record directly:
// they receive a Scope opened with a Grant, read from the snapshot the Scope
// captured, and stage their writes until the orchestrator commits them.
package casefile

import (
	"errors"
	"fmt"
	"sync"
)

// Field names a slot in the Case Record.
type Field string

const (
	Topic          Field = "topic"
	PosData        Field = "pos_data"
	NegData        Field = "neg_data"
	Verdict        Field = "verdict"
	VerdictBody    Field = "verdict_body"
	SentencingBody Field = "sentencing_body"
)

// Kind distinguishes single-value fields from append-only sequences.
type Kind int

const (
	KindSingle Kind = iota
	KindSequence
)

// Writer is the category of stage allowed to write a field.
type Writer string

const (
	WriterEntry       Writer = "entry"
	WriterDefense     Writer = "defense"
	WriterProsecution Writer = "prosecution"
	WriterJudge       Writer = "judge"
	WriterVerdict     Writer = "verdict"
	WriterSentencing  Writer = "sentencing"
)

type fieldSpec struct {
	kind   Kind
	writer Writer
}

var schema = map[Field]fieldSpec{
	Topic:          {kind: KindSingle, writer: WriterEntry},
	PosData:        {kind: KindSequence, writer: WriterDefense},
	NegData:        {kind: KindSequence, writer: WriterProsecution},
	Verdict:        {kind: KindSequence, writer: WriterJudge},
	VerdictBody:    {kind: KindSingle, writer: WriterVerdict},
	SentencingBody: {kind: KindSingle, writer: WriterSentencing},
}

// Fields lists every field in schema order.
var Fields = []Field{Topic, PosData, NegData, Verdict, VerdictBody, SentencingBody}

var (
	ErrUnknownField = errors.New("casefile: unknown field")
	ErrWriteDenied  = errors.New("casefile: write denied")
	ErrReadDenied   = errors.New("casefile: read denied")
	ErrInvalidValue = errors.New("casefile: invalid value")
	ErrImmutable    = errors.New("casefile: field is immutable once set")
	ErrWrongKind    = errors.New("casefile: operation does not match field kind")
	ErrCommitted    = errors.New("casefile: scope already committed")
)

// KindOf returns the kind of f.
func KindOf(f Field) (Kind, error) {
	spec, ok := schema[f]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return spec.kind, nil
}

// WriterOf returns the single writer category that owns f.
func WriterOf(f Field) (Writer, error) {
	spec, ok := schema[f]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, f)
	}
	return spec.writer, nil
}

// Record is the mutable keyed document for one case run.
type Record struct {
	mu     sync.RWMutex
	single map[Field]string
	seq    map[Field][]string
}

// New returns an empty Record.
func New() *Record {
	return &Record{
		single: make(map[Field]string),
		seq:    make(map[Field][]string),
	}
}

// IsSet reports whether a single-value field has been written, or whether a
// sequence field has at least one entry.
func (r *Record) IsSet(f Field) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.single[f]; ok {
		return true
	}
	return len(r.seq[f]) > 0
}

// Len returns the number of entries in a sequence field.
func (r *Record) Len(f Field) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.seq[f])
}

// Snapshot is an immutable copy of the Record.
type Snapshot struct {
	Topic          string   `json:"topic"`
	PosData        []string `json:"pos_data"`
	NegData        []string `json:"neg_data"`
	Verdict        []string `json:"verdict"`
	VerdictBody    string   `json:"verdict_body,omitempty"`
	SentencingBody string   `json:"sentencing_body,omitempty"`
}

// Snapshot copies the current contents of the record. Sequence fields are
// never nil, so an empty sequence encodes as [] rather than null.
func (r *Record) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Topic:          r.single[Topic],
		PosData:        listOf(r.seq[PosData]),
		NegData:        listOf(r.seq[NegData]),
		Verdict:        listOf(r.seq[Verdict]),
		VerdictBody:    r.single[VerdictBody],
		SentencingBody: r.single[SentencingBody],
	}
}

// Open returns a Scope restricted to g. Reads observe the record as it is
// now; later commits by other scopes are not visible through it.
func (r *Record) Open(g Grant) *Scope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := &Scope{
		rec:    r,
		grant:  g,
		single: make(map[Field]string),
		seq:    make(map[Field][]string),
		staged: make(map[Field][]string),
		sets:   make(map[Field]string),
	}
	for _, f := range g.reads {
		if v, ok := r.single[f]; ok {
			s.single[f] = v
		}
		if v, ok := r.seq[f]; ok {
			s.seq[f] = cloneStrings(v)
		}
	}
	return s
}

// commit applies staged writes. Sequence appends are added after whatever
// other scopes committed in the meantime, preserving each scope's own order.
func (r *Record) commit(sets map[Field]string, appends map[Field][]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := sets[Topic]; ok {
		if prev, exists := r.single[Topic]; exists && prev != v {
			return fmt.Errorf("%w: %s", ErrImmutable, Topic)
		}
	}
	for f, v := range sets {
		r.single[f] = v
	}
	for f, vs := range appends {
		r.seq[f] = append(r.seq[f], vs...)
	}
	return nil
}

func listOf(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
