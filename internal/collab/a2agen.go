package collab

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dusk-indust/historicalcourt/internal/a2a"
	"github.com/google/uuid"
)

var _ Generator = (*A2AGenerator)(nil)

// A2AGenerator delegates generation to a remote A2A agent. The rendered
// prompt travels as a text part and the raw context as a data part so the
// agent can use either.
type A2AGenerator struct {
	client   a2a.Client
	endpoint string
	model    string
}

// NewA2AGenerator creates a generator that sends every prompt to endpoint.
func NewA2AGenerator(client a2a.Client, endpoint, model string) *A2AGenerator {
	return &A2AGenerator{client: client, endpoint: endpoint, model: model}
}

// Probe fetches the agent card served at the endpoint's origin. A zero
// timeout means ctx alone bounds the call.
func (g *A2AGenerator) Probe(ctx context.Context, timeout time.Duration) (*a2a.AgentCard, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("a2a generator: invalid endpoint %q", g.endpoint)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	card, err := g.client.DiscoverAgent(ctx, u.Scheme+"://"+u.Host)
	if err != nil {
		return nil, classifyA2A(err)
	}
	return card, nil
}

// Generate sends one blocking message/send call and returns the text of the
// task's artifacts.
func (g *A2AGenerator) Generate(ctx context.Context, prompt PromptContext) (string, error) {
	data, err := a2a.DataPart(map[string]any{
		"model":       g.model,
		"temperature": 0,
		"context":     prompt,
	})
	if err != nil {
		return "", fmt.Errorf("a2a generator: encode context: %w", err)
	}

	parts := []a2a.Part{}
	if inst := strings.TrimSpace(prompt[KeyInstruction]); inst != "" {
		parts = append(parts, a2a.TextPart(inst))
	}
	parts = append(parts, a2a.TextPart(Render(prompt)), data)

	task, err := g.client.SendMessage(ctx, g.endpoint, a2a.SendMessageRequest{
		Message: a2a.Message{
			MessageID: uuid.NewString(),
			Role:      a2a.RoleUser,
			Parts:     parts,
		},
		Configuration: &a2a.SendMessageConfig{
			AcceptedOutputModes: []string{"text/plain"},
			Blocking:            true,
		},
	})
	if err != nil {
		return "", classifyA2A(err)
	}

	switch task.Status.State {
	case a2a.TaskStateCompleted:
		return strings.TrimSpace(a2a.ArtifactText(task.Artifacts)), nil
	case a2a.TaskStateFailed:
		reason := "task failed"
		if task.Status.Message != nil {
			reason = task.Status.Message.Text()
		}
		return "", &ServiceError{Service: "a2a", Err: errors.New(reason)}
	default:
		err := fmt.Errorf("a2a generator: task %s ended in state %q", task.ID, task.Status.State)
		if !task.Status.State.IsTerminal() {
			if cerr := g.cancel(ctx, task.ID); cerr != nil {
				err = errors.Join(err, cerr)
			}
		}
		return "", err
	}
}

const cancelTimeout = 10 * time.Second

// cancel releases a task the agent left open, e.g. one waiting for input.
// It runs even when ctx is already done.
func (g *A2AGenerator) cancel(ctx context.Context, taskID string) error {
	ctx, stop := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer stop()
	if _, err := g.client.CancelTask(ctx, g.endpoint, a2a.CancelTaskRequest{ID: taskID}); err != nil {
		return fmt.Errorf("a2a generator: cancel task %s: %w", taskID, err)
	}
	return nil
}

func classifyA2A(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var statusErr *a2a.StatusError
	if errors.As(err, &statusErr) && !statusErr.Temporary() {
		return err
	}
	var rpcErr *a2a.RPCError
	if errors.As(err, &rpcErr) {
		return err
	}
	return &ServiceError{Service: "a2a", Err: err}
}
