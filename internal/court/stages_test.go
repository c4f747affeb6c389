package court

import (
	"context"
	"testing"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/dusk-indust/historicalcourt/internal/collab"
	"github.com/dusk-indust/historicalcourt/internal/logging"
	"github.com/dusk-indust/historicalcourt/internal/orchestrator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageGrants(t *testing.T) {
	gen := newScriptedCourt(1)
	log := logging.New("test")

	tests := []struct {
		stage  orchestrator.Stage
		writes []casefile.Field
		reads  []casefile.Field
	}{
		{NewEntryStage("x"), []casefile.Field{casefile.Topic}, nil},
		{NewDefenseStage(gen, nil, log), []casefile.Field{casefile.PosData}, []casefile.Field{casefile.Topic}},
		{NewProsecutionStage(gen, nil, log), []casefile.Field{casefile.NegData}, []casefile.Field{casefile.Topic}},
		{NewJudgeStage(gen, log), []casefile.Field{casefile.Verdict}, []casefile.Field{casefile.PosData, casefile.NegData}},
		{NewVerdictStage(gen), []casefile.Field{casefile.VerdictBody},
			[]casefile.Field{casefile.Topic, casefile.PosData, casefile.NegData, casefile.Verdict}},
		{NewSentencingStage(gen), []casefile.Field{casefile.SentencingBody},
			[]casefile.Field{casefile.Topic, casefile.NegData, casefile.Verdict}},
	}
	for _, tt := range tests {
		t.Run(tt.stage.Name(), func(t *testing.T) {
			g := tt.stage.Grant()
			assert.Equal(t, tt.writes, g.Writes())
			assert.ElementsMatch(t, tt.reads, g.Reads())
		})
	}
}

func TestResearchStage_CannotWriteOpposingField(t *testing.T) {
	rec := casefile.New()
	seed(t, rec, casefile.WriterEntry, casefile.Topic, "Example Figure")

	defense := NewDefenseStage(newScriptedCourt(1), nil, logging.New("test"))
	scope := rec.Open(defense.Grant())
	assert.ErrorIs(t, scope.Append(casefile.NegData, "planted"), casefile.ErrWriteDenied)
}

func TestResearchStage_AppendsOneEntryPerRun(t *testing.T) {
	rec := casefile.New()
	seed(t, rec, casefile.WriterEntry, casefile.Topic, "Example Figure")
	stage := NewProsecutionStage(newScriptedCourt(1), nil, logging.New("test"))

	for range 2 {
		scope := rec.Open(stage.Grant())
		_, err := stage.Run(context.Background(), scope)
		require.NoError(t, err)
		require.NoError(t, scope.Commit())
	}
	assert.Equal(t, []string{"- controversy 1", "- controversy 2"}, rec.Snapshot().NegData)
}

func TestResearchStage_EmptyFindings(t *testing.T) {
	rec := casefile.New()
	seed(t, rec, casefile.WriterEntry, casefile.Topic, "Example Figure")
	gen := collab.GeneratorFunc(func(context.Context, collab.PromptContext) (string, error) {
		return "  \n", nil
	})

	stage := NewDefenseStage(gen, nil, logging.New("test"))
	_, err := stage.Run(context.Background(), rec.Open(stage.Grant()))
	assert.ErrorIs(t, err, ErrEmptyDraft)
}

func TestJudgeStage_Rulings(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		signal  orchestrator.Signal
		verdict int
	}{
		{"sufficient", "RULING: SUFFICIENT\nNeutral analysis.", orchestrator.SignalExit, 1},
		{"sufficient on one line", "RULING: SUFFICIENT - neutral analysis.", orchestrator.SignalExit, 1},
		{"continue", "RULING: CONTINUE", orchestrator.SignalNone, 0},
		{"sufficient without analysis", "RULING: SUFFICIENT", orchestrator.SignalNone, 0},
		{"unrecognized", "I think we are done.", orchestrator.SignalNone, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen collab.PromptContext
			gen := collab.GeneratorFunc(func(_ context.Context, p collab.PromptContext) (string, error) {
				seen = p
				return tt.out, nil
			})
			rec := casefile.New()
			stage := NewJudgeStage(gen, logging.New("test"))
			scope := rec.Open(stage.Grant())

			sig, err := stage.Run(context.Background(), scope)
			require.NoError(t, err)
			require.NoError(t, scope.Commit())
			assert.Equal(t, tt.signal, sig)
			assert.Equal(t, tt.verdict, rec.Len(casefile.Verdict))
			assert.Contains(t, seen[collab.KeyInstruction], "RULING: SUFFICIENT")
		})
	}
}

func TestDraftStage_RequiresTopic(t *testing.T) {
	stage := NewVerdictStage(newScriptedCourt(1))
	_, err := stage.Run(context.Background(), casefile.New().Open(stage.Grant()))
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestInstruction(t *testing.T) {
	for _, r := range []Role{RoleDefense, RoleProsecution, RoleJudge, RoleVerdict, RoleSentencing} {
		s, err := Instruction(r)
		require.NoError(t, err, "role %s", r)
		assert.NotEmpty(t, s)
	}
	verdict, _ := Instruction(RoleVerdict)
	assert.Contains(t, verdict, "VI. VERDICT")
	sentencing, _ := Instruction(RoleSentencing)
	assert.Contains(t, sentencing, "Rome Statute (ICC)")

	_, err := Instruction("bailiff")
	assert.Error(t, err)
}
