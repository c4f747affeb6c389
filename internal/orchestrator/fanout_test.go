package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/casefile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funcStage is a Stage whose Run is a configurable function.
type funcStage struct {
	name  string
	grant casefile.Grant
	run   func(ctx context.Context, scope *casefile.Scope) (Signal, error)
}

func (s *funcStage) Name() string          { return s.name }
func (s *funcStage) Grant() casefile.Grant { return s.grant }
func (s *funcStage) Run(ctx context.Context, scope *casefile.Scope) (Signal, error) {
	return s.run(ctx, scope)
}

// appendStage appends the given entries to its writer's sequence field.
func appendStage(name string, w casefile.Writer, f casefile.Field, entries ...string) *funcStage {
	return &funcStage{
		name:  name,
		grant: casefile.NewGrant(w, casefile.Topic),
		run: func(_ context.Context, scope *casefile.Scope) (Signal, error) {
			for _, e := range entries {
				if err := scope.Append(f, e); err != nil {
					return SignalNone, err
				}
			}
			return SignalNone, nil
		},
	}
}

func newEnv(rec *casefile.Record) *Env {
	return &Env{Record: rec}
}

func TestFanOut_AllBranchesCommit(t *testing.T) {
	rec := casefile.New()
	fan, err := NewFanOut("investigation",
		appendStage("defense", casefile.WriterDefense, casefile.PosData, "p1", "p2", "p3"),
		appendStage("prosecution", casefile.WriterProsecution, casefile.NegData, "n1", "n2", "n3"),
	)
	require.NoError(t, err)

	out, err := fan.Execute(context.Background(), newEnv(rec))
	require.NoError(t, err)
	assert.Equal(t, SignalNone, out.Signal)

	snap := rec.Snapshot()
	assert.Equal(t, []string{"p1", "p2", "p3"}, snap.PosData)
	assert.Equal(t, []string{"n1", "n2", "n3"}, snap.NegData)
}

func TestFanOut_OverlappingWritesRejected(t *testing.T) {
	_, err := NewFanOut("investigation",
		appendStage("defense", casefile.WriterDefense, casefile.PosData),
		appendStage("second-defense", casefile.WriterDefense, casefile.PosData),
	)
	require.ErrorIs(t, err, ErrOverlappingWrites)
}

func TestFanOut_CrossWriteRejected(t *testing.T) {
	rec := casefile.New()
	rogue := &funcStage{
		name:  "defense",
		grant: casefile.NewGrant(casefile.WriterDefense, casefile.Topic),
		run: func(_ context.Context, scope *casefile.Scope) (Signal, error) {
			return SignalNone, scope.Append(casefile.NegData, "planted")
		},
	}
	fan, err := NewFanOut("investigation",
		rogue,
		appendStage("prosecution", casefile.WriterProsecution, casefile.NegData, "n1"),
	)
	require.NoError(t, err)

	_, err = fan.Execute(context.Background(), newEnv(rec))
	require.Error(t, err)
	assert.ErrorIs(t, err, casefile.ErrWriteDenied)
	assert.Zero(t, rec.Len(casefile.NegData), "no branch commits when any branch fails")
	assert.Zero(t, rec.Len(casefile.PosData))
}

func TestFanOut_BranchFails_NoPartialMerge(t *testing.T) {
	rec := casefile.New()
	failing := &funcStage{
		name:  "prosecution",
		grant: casefile.NewGrant(casefile.WriterProsecution, casefile.Topic),
		run: func(_ context.Context, scope *casefile.Scope) (Signal, error) {
			_ = scope.Append(casefile.NegData, "half-written")
			return SignalNone, errors.New("generation unavailable")
		},
	}
	fan, err := NewFanOut("investigation",
		appendStage("defense", casefile.WriterDefense, casefile.PosData, "p1"),
		failing,
	)
	require.NoError(t, err)

	_, err = fan.Execute(context.Background(), newEnv(rec))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generation unavailable")
	assert.Contains(t, err.Error(), `branch "prosecution"`)
	assert.Zero(t, rec.Len(casefile.PosData))
	assert.Zero(t, rec.Len(casefile.NegData))
}

func TestFanOut_BranchesCannotObserveEachOther(t *testing.T) {
	rec := casefile.New()
	entry := rec.Open(casefile.NewGrant(casefile.WriterEntry))
	require.NoError(t, entry.Set(casefile.Topic, "Example Figure"))
	require.NoError(t, entry.Commit())

	// The defense branch asks for neg_data in its grant; it must still see
	// nothing the prosecution appends during the same fan-out.
	prosecutionDone := make(chan struct{})
	var observed []string
	peeking := &funcStage{
		name:  "defense",
		grant: casefile.NewGrant(casefile.WriterDefense, casefile.Topic, casefile.NegData),
		run: func(ctx context.Context, scope *casefile.Scope) (Signal, error) {
			select {
			case <-prosecutionDone:
			case <-ctx.Done():
				return SignalNone, ctx.Err()
			}
			got, err := scope.List(casefile.NegData)
			observed = got
			return SignalNone, err
		},
	}
	prosecution := &funcStage{
		name:  "prosecution",
		grant: casefile.NewGrant(casefile.WriterProsecution, casefile.Topic),
		run: func(_ context.Context, scope *casefile.Scope) (Signal, error) {
			defer close(prosecutionDone)
			return SignalNone, scope.Append(casefile.NegData, "n1")
		},
	}

	fan, err := NewFanOut("investigation", peeking, prosecution)
	require.NoError(t, err)
	_, err = fan.Execute(context.Background(), newEnv(rec))
	require.NoError(t, err)

	assert.Empty(t, observed)
	assert.Equal(t, 1, rec.Len(casefile.NegData))
}

func TestFanOut_FailureCancelsSiblings(t *testing.T) {
	rec := casefile.New()
	blocking := &funcStage{
		name:  "defense",
		grant: casefile.NewGrant(casefile.WriterDefense),
		run: func(ctx context.Context, _ *casefile.Scope) (Signal, error) {
			<-ctx.Done()
			return SignalNone, ctx.Err()
		},
	}
	failing := &funcStage{
		name:  "prosecution",
		grant: casefile.NewGrant(casefile.WriterProsecution),
		run: func(context.Context, *casefile.Scope) (Signal, error) {
			return SignalNone, errors.New("quota exceeded")
		},
	}
	fan, err := NewFanOut("investigation", blocking, failing)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := fan.Execute(context.Background(), newEnv(rec))
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exceeded")
	case <-time.After(5 * time.Second):
		t.Fatal("FanOut.Execute did not return after a branch failed")
	}
}

func TestFanOut_ContextCancellation(t *testing.T) {
	started := make(chan struct{}, 2)
	blocking := func(name string, w casefile.Writer) *funcStage {
		return &funcStage{
			name:  name,
			grant: casefile.NewGrant(w),
			run: func(ctx context.Context, _ *casefile.Scope) (Signal, error) {
				started <- struct{}{}
				<-ctx.Done()
				return SignalNone, ctx.Err()
			},
		}
	}
	fan, err := NewFanOut("investigation",
		blocking("defense", casefile.WriterDefense),
		blocking("prosecution", casefile.WriterProsecution),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := fan.Execute(ctx, newEnv(casefile.New()))
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("FanOut.Execute did not return after context cancellation within 5s")
	}
}

func TestFanOut_ProgressEventsEmitted(t *testing.T) {
	var mu sync.Mutex
	statuses := make(map[string]map[ProgressStatus]bool)
	env := &Env{
		Record: casefile.New(),
		Emit: func(ev ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			if statuses[ev.Node] == nil {
				statuses[ev.Node] = make(map[ProgressStatus]bool)
			}
			statuses[ev.Node][ev.Status] = true
		},
	}

	fan, err := NewFanOut("investigation",
		appendStage("defense", casefile.WriterDefense, casefile.PosData, "p1"),
		appendStage("prosecution", casefile.WriterProsecution, casefile.NegData, "n1"),
	)
	require.NoError(t, err)
	_, err = fan.Execute(context.Background(), env)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	for _, name := range []string{"defense", "prosecution"} {
		got, ok := statuses[name]
		require.True(t, ok, "no progress events for branch %q", name)
		assert.True(t, got[ProgressPending], "missing Pending event for %q", name)
		assert.True(t, got[ProgressWorking], "missing Working event for %q", name)
		assert.True(t, got[ProgressComplete], "missing Complete event for %q", name)
	}
}
