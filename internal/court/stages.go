package court

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
)

// Compile-time interface checks.
var (
	_ orchestrator.Stage = (*EntryStage)(nil)
	_ orchestrator.Stage = (*ResearchStage)(nil)
	_ orchestrator.Stage = (*JudgeStage)(nil)
	_ orchestrator.Stage = (*DraftStage)(nil)
	_ orchestrator.Stage = (*FileStage)(nil)
)

// ErrEmptyDraft is returned when the generator produces no text for a draft.
var ErrEmptyDraft = errors.New("court: generator returned empty text")

// ErrMissingField is returned when a stage finds a dependency unset.
var ErrMissingField = errors.New("court: required field not set")

// EntryStage records the topic under inquiry. The input is taken as given;
// anything other than a string is rejected by the record.
type EntryStage struct {
	input any
}

// NewEntryStage creates the entry stage for input.
func NewEntryStage(input any) *EntryStage {
	return &EntryStage{input: input}
}

func (s *EntryStage) Name() string { return NodeInquiry }

func (s *EntryStage) Grant() casefile.Grant { return casefile.NewGrant(casefile.WriterEntry) }

func (s *EntryStage) Run(_ context.Context, scope *casefile.Scope) (orchestrator.Signal, error) {
	v := s.input
	if str, ok := v.(string); ok {
		// The topic lands on a single header line of the report.
		str = strings.Join(strings.Fields(str), " ")
		if str == "" {
			return orchestrator.SignalNone, fmt.Errorf("%w: topic is empty", casefile.ErrInvalidValue)
		}
		if strings.IndexFunc(str, unicode.IsControl) >= 0 {
			return orchestrator.SignalNone, fmt.Errorf("%w: topic contains control characters", casefile.ErrInvalidValue)
		}
		v = str
	}
	return orchestrator.SignalNone, scope.Set(casefile.Topic, v)
}

// ResearchStage is one side of the investigation. Each run looks up every
// keyword group, asks the generator for findings and appends one entry to
// its side's sequence.
type ResearchStage struct {
	name     string
	role     Role
	writer   casefile.Writer
	field    casefile.Field
	keywords []string
	gen      collab.Generator
	search   collab.Searcher
	log      *slog.Logger
}

// NewDefenseStage creates the research branch that builds pos_data. A nil
// search disables lookups.
func NewDefenseStage(gen collab.Generator, search collab.Searcher, log *slog.Logger) *ResearchStage {
	return &ResearchStage{
		name:     NodeDefense,
		role:     RoleDefense,
		writer:   casefile.WriterDefense,
		field:    casefile.PosData,
		keywords: DefenseKeywords,
		gen:      gen,
		search:   search,
		log:      log,
	}
}

// NewProsecutionStage creates the research branch that builds neg_data.
func NewProsecutionStage(gen collab.Generator, search collab.Searcher, log *slog.Logger) *ResearchStage {
	return &ResearchStage{
		name:     NodeProsecution,
		role:     RoleProsecution,
		writer:   casefile.WriterProsecution,
		field:    casefile.NegData,
		keywords: ProsecutionKeywords,
		gen:      gen,
		search:   search,
		log:      log,
	}
}

func (s *ResearchStage) Name() string { return s.name }

func (s *ResearchStage) Grant() casefile.Grant { return casefile.NewGrant(s.writer, casefile.Topic) }

func (s *ResearchStage) Run(ctx context.Context, scope *casefile.Scope) (orchestrator.Signal, error) {
	topic, err := requireSingle(scope, casefile.Topic)
	if err != nil {
		return orchestrator.SignalNone, err
	}

	findings, err := s.gen.Generate(ctx, collab.PromptContext{
		collab.KeyInstruction: mustInstruction(s.role),
		collab.KeyRole:        string(s.role),
		"topic":               topic,
		"references":          s.lookup(ctx, topic),
	})
	if err != nil {
		return orchestrator.SignalNone, fmt.Errorf("%s research: %w", s.role, err)
	}
	if strings.TrimSpace(findings) == "" {
		return orchestrator.SignalNone, fmt.Errorf("%s research: %w", s.role, ErrEmptyDraft)
	}
	return orchestrator.SignalNone, scope.Append(s.field, findings)
}

// lookup runs one search per keyword group. Failed lookups contribute
// nothing; the stage proceeds with whatever came back.
func (s *ResearchStage) lookup(ctx context.Context, topic string) string {
	if s.search == nil {
		return ""
	}
	var refs []string
	for _, kw := range s.keywords {
		res, err := s.search.Search(ctx, topic+" "+kw)
		if err != nil {
			s.log.Warn("lookup failed", "role", s.role, "keyword", kw, "error", err)
			continue
		}
		if res = strings.TrimSpace(res); res != "" {
			refs = append(refs, fmt.Sprintf("[%s]\n%s", kw, res))
		}
	}
	return strings.Join(refs, "\n\n")
}

// JudgeStage reviews the evidence and either orders more research or enters
// its analysis into the verdict and signals the trial loop to stop.
type JudgeStage struct {
	gen collab.Generator
	log *slog.Logger
}

// NewJudgeStage creates the balance-check stage.
func NewJudgeStage(gen collab.Generator, log *slog.Logger) *JudgeStage {
	return &JudgeStage{gen: gen, log: log}
}

func (s *JudgeStage) Name() string { return NodeJudge }

func (s *JudgeStage) Grant() casefile.Grant {
	return casefile.NewGrant(casefile.WriterJudge, casefile.PosData, casefile.NegData)
}

func (s *JudgeStage) Run(ctx context.Context, scope *casefile.Scope) (orchestrator.Signal, error) {
	pos, err := scope.List(casefile.PosData)
	if err != nil {
		return orchestrator.SignalNone, err
	}
	neg, err := scope.List(casefile.NegData)
	if err != nil {
		return orchestrator.SignalNone, err
	}

	out, err := s.gen.Generate(ctx, collab.PromptContext{
		collab.KeyInstruction: mustInstruction(RoleJudge),
		collab.KeyRole:        string(RoleJudge),
		"positive_evidence":   numbered(pos),
		"negative_evidence":   numbered(neg),
	})
	if err != nil {
		return orchestrator.SignalNone, fmt.Errorf("judge: %w", err)
	}

	ruling, analysis := ParseRuling(out)
	switch ruling {
	case RulingSufficient:
		if analysis == "" {
			s.log.Warn("sufficient ruling without analysis, continuing", "pos", len(pos), "neg", len(neg))
			return orchestrator.SignalNone, nil
		}
		if err := scope.Append(casefile.Verdict, analysis); err != nil {
			return orchestrator.SignalNone, err
		}
		s.log.Info("evidence ruled sufficient", "pos", len(pos), "neg", len(neg))
		return orchestrator.SignalExit, nil
	case RulingContinue:
		s.log.Debug("further research ordered", "pos", len(pos), "neg", len(neg))
	default:
		s.log.Warn("unrecognized ruling, continuing", "output", firstLine(out))
	}
	return orchestrator.SignalNone, nil
}

// DraftStage writes one section of the report from fields recorded earlier.
type DraftStage struct {
	name   string
	role   Role
	writer casefile.Writer
	field  casefile.Field
	reads  []casefile.Field
	gen    collab.Generator
}

// NewVerdictStage creates the stage that drafts sections I to VI.
func NewVerdictStage(gen collab.Generator) *DraftStage {
	return &DraftStage{
		name:   NodeVerdict,
		role:   RoleVerdict,
		writer: casefile.WriterVerdict,
		field:  casefile.VerdictBody,
		reads:  []casefile.Field{casefile.Topic, casefile.PosData, casefile.NegData, casefile.Verdict},
		gen:    gen,
	}
}

// NewSentencingStage creates the stage that drafts sections VII and VIII.
func NewSentencingStage(gen collab.Generator) *DraftStage {
	return &DraftStage{
		name:   NodeSentencing,
		role:   RoleSentencing,
		writer: casefile.WriterSentencing,
		field:  casefile.SentencingBody,
		reads:  []casefile.Field{casefile.Topic, casefile.NegData, casefile.Verdict},
		gen:    gen,
	}
}

func (s *DraftStage) Name() string { return s.name }

func (s *DraftStage) Grant() casefile.Grant { return casefile.NewGrant(s.writer, s.reads...) }

func (s *DraftStage) Run(ctx context.Context, scope *casefile.Scope) (orchestrator.Signal, error) {
	prompt := collab.PromptContext{
		collab.KeyInstruction: mustInstruction(s.role),
		collab.KeyRole:        string(s.role),
	}
	for _, f := range s.reads {
		kind, err := casefile.KindOf(f)
		if err != nil {
			return orchestrator.SignalNone, err
		}
		if kind == casefile.KindSequence {
			entries, err := scope.List(f)
			if err != nil {
				return orchestrator.SignalNone, err
			}
			prompt[string(f)] = numbered(entries)
			continue
		}
		v, err := requireSingle(scope, f)
		if err != nil {
			return orchestrator.SignalNone, err
		}
		prompt[string(f)] = v
	}

	text, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return orchestrator.SignalNone, fmt.Errorf("%s: %w", s.name, err)
	}
	if strings.TrimSpace(text) == "" {
		return orchestrator.SignalNone, fmt.Errorf("%s: %w", s.name, ErrEmptyDraft)
	}
	return orchestrator.SignalNone, scope.Set(s.field, text)
}

func requireSingle(scope *casefile.Scope, f casefile.Field) (string, error) {
	v, ok, err := scope.Get(f)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, f)
	}
	return v, nil
}

// numbered renders entries as a numbered list, one block per entry.
func numbered(entries []string) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%d. %s", i+1, strings.TrimSpace(e))
	}
	return b.String()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
