package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/polis/internal/behavior"
	"github.com/talgya/polis/internal/ledger"
)

type stubCompleter struct {
	text string
	err  error
}

func (s *stubCompleter) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	return s.text, s.err
}

type countingRecorder struct {
	records []string
}

func (r *countingRecorder) Record(agentID int64, topic, description string, timestamp uint64) {
	r.records = append(r.records, topic)
}

type echoBlock struct {
	executed int
}

func (b *echoBlock) Name() string        { return "other" }
func (b *echoBlock) Description() string { return "catch-all" }
func (b *echoBlock) Actions() []behavior.ActionSpec {
	return []behavior.ActionSpec{{Name: "idle", Description: "pass the time"}}
}
func (b *echoBlock) Execute(ctx context.Context, dc *behavior.DispatchContext) *behavior.Outcome {
	b.executed++
	recordID, _ := dc.Memory.StreamAppend("other", "did: "+dc.Intent)
	return &behavior.Outcome{
		Success:      true,
		Evaluation:   "done",
		TimeConsumed: time.Minute,
		RecordID:     recordID,
	}
}

func fixture(t *testing.T, completer *stubCompleter) (*Controller, *echoBlock, *countingRecorder) {
	t.Helper()
	l := ledger.New()
	require.NoError(t, l.AddActor(1, ledger.KindPerson, nil))

	blk := &echoBlock{}
	d := behavior.NewDispatcher(completer, "other")
	d.Register(blk)

	rec := &countingRecorder{}
	c, err := New(1, "Ada", l, d, completer, rec, 7)
	require.NoError(t, err)
	return c, blk, rec
}

func TestStepProducesExactlyOneOutcome(t *testing.T) {
	// Reasoning completely down: plan falls back, dispatch falls back,
	// and the cycle still yields exactly one outcome.
	c, blk, rec := fixture(t, &stubCompleter{err: errors.New("backend down")})

	out, err := c.Step(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 1, blk.executed)
	assert.Len(t, rec.records, 1)
	assert.Equal(t, PhaseIdle, c.Phase())
}

func TestStepAdvancesPlanCursor(t *testing.T) {
	c, blk, _ := fixture(t, &stubCompleter{text: "go to work\nbuy food"})

	_, err := c.Step(context.Background(), 1)
	require.NoError(t, err)
	_, err = c.Step(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, blk.executed)
	assert.True(t, c.plan.Exhausted())
}

func TestStepSkipsDuringPlanCooldown(t *testing.T) {
	c, blk, _ := fixture(t, &stubCompleter{text: "single errand"})

	out, err := c.Step(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, out)

	// Plan exhausted: the next tick is skipped without consuming a turn.
	out, err = c.Step(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, blk.executed)

	// After the cooldown a fresh plan is drawn up.
	out, err = c.Step(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 2, blk.executed)
}

func TestStepCancelledContext(t *testing.T) {
	c, blk, _ := fixture(t, &stubCompleter{text: "go to work"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Step(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, blk.executed)
}

func TestStepOutcomeRecordedInStream(t *testing.T) {
	c, _, _ := fixture(t, &stubCompleter{text: "go to work"})
	out, err := c.Step(context.Background(), 1)
	require.NoError(t, err)
	require.NotEmpty(t, out.RecordID)
	assert.Equal(t, 1, c.Memory().StreamLen())
}

func TestParsePlanLines(t *testing.T) {
	intents := parsePlanLines("1. go to work\n- buy food\n\n  * rest at home  \n")
	assert.Equal(t, []string{"go to work", "buy food", "rest at home"}, intents)
	assert.Nil(t, parsePlanLines("\n\n"))
}
