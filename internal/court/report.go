package court

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/docket"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
)

// ReportSuffix ends every report filename.
const ReportSuffix = docket.ReportSuffix

// DateLayout is the report date format, e.g. "16 October 2026".
const DateLayout = "02 January 2006"

const (
	rule         = "------------------------------------------------------------"
	maxNameBytes = 120
)

// ErrUnsafeTopic is returned when a topic leaves nothing usable as a
// filename after sanitizing.
var ErrUnsafeTopic = errors.New("court: topic cannot be used as a filename")

// Header holds the case metadata printed above the bodies.
type Header struct {
	Topic  string
	Docket string
	Date   time.Time
}

// Compose lays out the final report.
func Compose(h Header, verdictBody, sentencingBody string) string {
	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("                     THE HISTORICAL COURT\n")
	b.WriteString("               INTERNATIONAL TRIBUNAL DIVISION\n")
	b.WriteString(rule + "\n\n")
	fmt.Fprintf(&b, "Case Title: %s\n", h.Topic)
	fmt.Fprintf(&b, "Docket No.: %s\n", h.Docket)
	fmt.Fprintf(&b, "Date: %s\n\n", h.Date.Format(DateLayout))
	b.WriteString(rule + "\n\n")
	b.WriteString(strings.TrimSpace(verdictBody) + "\n\n")
	b.WriteString(strings.TrimSpace(sentencingBody) + "\n\n")
	b.WriteString(rule + "\n")
	b.WriteString("Prepared by:\n")
	b.WriteString("The Historical Court Simulation Engine\n")
	b.WriteString(rule + "\n")
	return b.String()
}

// Sanitize turns a topic into a filename stem. Letters, digits, spaces and
// the punctuation -_.,()' are kept; every other rune, including path
// separators and control characters, becomes '_'. Leading and trailing
// spaces and dots are trimmed and the result is capped at 120 bytes. A stem
// whose first dot-separated part is a Windows device name (CON, NUL, COM1...)
// gets a leading '_'.
func Sanitize(topic string) (string, error) {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return r
		case r == ' ', strings.ContainsRune("-_.,()'", r):
			return r
		default:
			return '_'
		}
	}, topic)

	name := strings.Trim(mapped, " .")
	if isDeviceName(name) {
		name = "_" + name
	}
	if len(name) > maxNameBytes {
		cut := maxNameBytes
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = strings.TrimRight(name[:cut], " .")
	}
	if name == "" {
		return "", fmt.Errorf("%w: %q", ErrUnsafeTopic, topic)
	}
	return name, nil
}

func isDeviceName(stem string) bool {
	base, _, _ := strings.Cut(stem, ".")
	base = strings.ToUpper(strings.TrimRight(base, " "))
	switch base {
	case "CON", "PRN", "AUX", "NUL":
		return true
	}
	if len(base) == 4 && (strings.HasPrefix(base, "COM") || strings.HasPrefix(base, "LPT")) {
		return base[3] >= '0' && base[3] <= '9'
	}
	return false
}

// ReportName returns the report filename for topic.
func ReportName(topic string) (string, error) {
	stem, err := Sanitize(topic)
	if err != nil {
		return "", err
	}
	return stem + ReportSuffix, nil
}

// FileStage composes the report and hands it to the persister. It writes
// nothing to the record; the written path is available from Path once the
// stage has run.
type FileStage struct {
	persist collab.Persister
	dir     string
	docket  string
	now     func() time.Time

	path string
}

// NewFileStage creates the persistence stage writing under dir.
func NewFileStage(persist collab.Persister, dir, docketNo string, now func() time.Time) *FileStage {
	if now == nil {
		now = time.Now
	}
	return &FileStage{persist: persist, dir: dir, docket: docketNo, now: now}
}

func (s *FileStage) Name() string { return NodeFile }

func (s *FileStage) Grant() casefile.Grant {
	return casefile.NewGrant("", casefile.Topic, casefile.VerdictBody, casefile.SentencingBody)
}

func (s *FileStage) Run(ctx context.Context, scope *casefile.Scope) (orchestrator.Signal, error) {
	topic, err := requireSingle(scope, casefile.Topic)
	if err != nil {
		return orchestrator.SignalNone, err
	}
	verdictBody, err := requireSingle(scope, casefile.VerdictBody)
	if err != nil {
		return orchestrator.SignalNone, err
	}
	sentencingBody, err := requireSingle(scope, casefile.SentencingBody)
	if err != nil {
		return orchestrator.SignalNone, err
	}

	name, err := ReportName(topic)
	if err != nil {
		return orchestrator.SignalNone, err
	}
	content := Compose(Header{Topic: topic, Docket: s.docket, Date: s.now()}, verdictBody, sentencingBody)

	path, err := s.persist.Write(ctx, s.dir, name, content)
	if err != nil {
		return orchestrator.SignalNone, err
	}
	s.path = path
	return orchestrator.SignalNone, nil
}

// Path returns the path of the written report, or "" before a successful
// run.
func (s *FileStage) Path() string { return s.path }
