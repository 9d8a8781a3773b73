package poll_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aatumaykin/pollbot/internal/logger"
	"github.com/aatumaykin/pollbot/internal/poll"
	"github.com/aatumaykin/pollbot/internal/poll/polltest"
	"github.com/aatumaykin/pollbot/internal/schedule"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	opened   int
	closed   int
	votes    map[poll.Option]int
	resets   int
	failures map[string]int
	active   int
}

func newRecorder() *recorder {
	return &recorder{votes: map[poll.Option]int{}, failures: map[string]int{}}
}

func (r *recorder) PollOpened(int64)           { r.mu.Lock(); r.opened++; r.mu.Unlock() }
func (r *recorder) PollClosed(int64)           { r.mu.Lock(); r.closed++; r.mu.Unlock() }
func (r *recorder) VoteRecorded(o poll.Option) { r.mu.Lock(); r.votes[o]++; r.mu.Unlock() }
func (r *recorder) VoteReset()                 { r.mu.Lock(); r.resets++; r.mu.Unlock() }
func (r *recorder) GatewayFailure(op string)   { r.mu.Lock(); r.failures[op]++; r.mu.Unlock() }
func (r *recorder) ActivePolls(n int)          { r.mu.Lock(); r.active = n; r.mu.Unlock() }

func training(chatID int64) schedule.Schedule {
	return schedule.Schedule{
		ID:        fmt.Sprintf("sched-%d", chatID),
		ChatID:    chatID,
		Name:      "Training",
		StartDay:  schedule.Tuesday,
		StartTime: schedule.TimeOfDay{Hour: 12},
		EndDay:    schedule.Wednesday,
		EndTime:   schedule.TimeOfDay{Hour: 18},
	}
}

func newManager(gw *polltest.Gateway, obs poll.Observer) *poll.Manager {
	return poll.NewManager(poll.Config{
		Gateway:  gw,
		Renderer: polltest.Renderer{},
		Logger:   logger.Nop(),
		Observer: obs,
		Health:   poll.NewHealth(2),
		Now:      func() time.Time { return time.Date(2026, 10, 13, 12, 0, 0, 0, time.UTC) },
	})
}

func TestManager_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	rec := newRecorder()
	m := newManager(gw, rec)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	assert.True(t, m.IsOpen(100, "sched-100"))
	assert.Equal(t, 1, view.MessageRef.MessageID)

	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"}, poll.OptionYes))
	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 2, Name: "B"}, poll.OptionMaybe))

	msg, ok := gw.Message(view.MessageRef)
	require.True(t, ok)
	assert.Contains(t, msg.Content.Text, "yes(1): A")
	assert.Contains(t, msg.Content.Text, "maybe(1): B")
	assert.Equal(t, 2, msg.Edits)

	summary, err := m.Close(ctx, 100, "sched-100")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, summary.Results.Names(poll.OptionYes))
	assert.Equal(t, []string{"B"}, summary.Results.Names(poll.OptionMaybe))
	assert.False(t, m.IsOpen(100, "sched-100"))
	assert.Empty(t, m.Active())

	msgs := gw.Messages(100)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Stripped)
	assert.Nil(t, msgs[0].Content.Keyboard)
	assert.True(t, strings.HasPrefix(msgs[1].Content.Text, "summary Training"))

	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)
	assert.Equal(t, 0, rec.active)
	assert.Equal(t, 1, rec.votes[poll.OptionYes])
}

func TestManager_StartOnlyFromIdle(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	_, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	_, err = m.Start(ctx, training(100))
	assert.ErrorIs(t, err, poll.ErrAlreadyOpen)
	assert.Equal(t, 1, gw.CountCalls(poll.OpSend))

	other := training(100)
	other.ID = "another"
	_, err = m.Start(ctx, other)
	assert.NoError(t, err)
	assert.Len(t, m.Active(), 2)
}

func TestManager_StartPublishFailureStaysIdle(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	rec := newRecorder()
	m := newManager(gw, rec)

	gw.FailNext(poll.OpSend, 1)
	_, err := m.Start(ctx, training(100))
	assert.ErrorIs(t, err, poll.ErrTransport)
	assert.ErrorIs(t, err, polltest.ErrInjected)
	assert.False(t, m.IsOpen(100, "sched-100"))
	assert.Equal(t, 1, gw.CountCalls(poll.OpSend), "no retry")
	assert.Equal(t, 1, rec.failures[poll.OpSend])

	_, err = m.Start(ctx, training(100))
	assert.NoError(t, err)
}

func TestManager_ConcurrentStartOpensOnce(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	opened := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Start(ctx, training(100)); err == nil {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Len(t, m.Active(), 1)
}

func TestManager_CloseWhilePublishing(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	rec := newRecorder()
	m := newManager(gw, rec)

	var closeErr error
	sends := 0
	gw.BeforeSend = func() {
		sends++
		if sends == 1 {
			assert.True(t, m.IsOpening(100, "sched-100"))
			_, closeErr = m.Close(ctx, 100, "sched-100")
		}
	}

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	assert.ErrorIs(t, closeErr, poll.ErrCloseDeferred)

	assert.False(t, m.IsOpen(100, "sched-100"))
	assert.False(t, m.IsOpening(100, "sched-100"))
	assert.Empty(t, m.Active())
	assert.Equal(t, 1, rec.opened)
	assert.Equal(t, 1, rec.closed)

	msgs := gw.Messages(100)
	require.Len(t, msgs, 2)
	assert.Equal(t, view.MessageRef, msgs[0].Ref)
	assert.True(t, msgs[0].Stripped)
	assert.True(t, strings.HasPrefix(msgs[1].Content.Text, "summary"))

	_, err = m.Close(ctx, 100, "sched-100")
	assert.ErrorIs(t, err, poll.ErrPollNotFound)
}

func TestManager_CloseWhilePublishingThatFails(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	gw.FailNext(poll.OpSend, 1)
	var closeErr error
	gw.BeforeSend = func() {
		gw.BeforeSend = nil
		_, closeErr = m.Close(ctx, 100, "sched-100")
	}

	_, err := m.Start(ctx, training(100))
	assert.ErrorIs(t, err, poll.ErrTransport)
	assert.ErrorIs(t, closeErr, poll.ErrCloseDeferred)
	assert.False(t, m.IsOpening(100, "sched-100"))

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	assert.True(t, m.IsOpen(100, "sched-100"), "a dropped close does not carry over to the next opening")
	assert.Len(t, gw.Messages(100), 1)
	assert.Equal(t, 1, view.MessageRef.MessageID)
}

func TestManager_DuplicateVoteSkipsRender(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	voter := poll.Voter{ID: 1, Name: "A"}
	require.NoError(t, m.RecordVote(ctx, view.ID, voter, poll.OptionYes))
	require.NoError(t, m.RecordVote(ctx, view.ID, voter, poll.OptionYes))

	assert.Equal(t, 1, gw.CountCalls(poll.OpEdit))
}

func TestManager_RenderFailureKeepsVote(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	gw.FailNext(poll.OpEdit, 1)
	err = m.RecordVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"}, poll.OptionNo)
	assert.ErrorIs(t, err, poll.ErrTransport)

	got, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.Results.Names(poll.OptionNo))
}

func TestManager_HealthTurnsUnhealthy(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	gw.FailNext(poll.OpEdit, 2)
	_ = m.RecordVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"}, poll.OptionNo)
	assert.True(t, m.Health().Healthy())
	_ = m.RecordVote(ctx, view.ID, poll.Voter{ID: 2, Name: "B"}, poll.OptionNo)
	assert.False(t, m.Health().Healthy())

	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 3, Name: "C"}, poll.OptionNo))
	assert.True(t, m.Health().Healthy())
}

func TestManager_ResetVote(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	rec := newRecorder()
	m := newManager(gw, rec)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	voter := poll.Voter{ID: 1, Name: "A"}

	err = m.ResetVote(ctx, view.ID, voter)
	assert.ErrorIs(t, err, poll.ErrNoActiveVote)
	assert.Equal(t, 0, gw.CountCalls(poll.OpEdit))

	require.NoError(t, m.RecordVote(ctx, view.ID, voter, poll.OptionYes))
	require.NoError(t, m.ResetVote(ctx, view.ID, voter))

	got, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Results.Total())
	assert.Equal(t, 2, gw.CountCalls(poll.OpEdit))
	assert.Equal(t, 1, rec.resets)
}

func TestManager_ResetWithoutVoteKeepsOthers(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	rec := newRecorder()
	m := newManager(gw, rec)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 2, Name: "B"}, poll.OptionYes))
	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 3, Name: "C"}, poll.OptionMaybe))

	before, err := m.Get(view.ID)
	require.NoError(t, err)
	edits := gw.CountCalls(poll.OpEdit)

	err = m.ResetVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"})
	assert.ErrorIs(t, err, poll.ErrNoActiveVote)

	after, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, before.Results, after.Results)
	assert.Equal(t, []string{"B"}, after.Results.Names(poll.OptionYes))
	assert.Equal(t, []string{"C"}, after.Results.Names(poll.OptionMaybe))
	assert.Equal(t, edits, gw.CountCalls(poll.OpEdit))
	assert.Equal(t, 0, rec.resets)
}

func TestManager_Handle(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	voter := poll.Voter{ID: 7, Name: "G"}

	in, err := poll.DecodeInteraction(poll.VoteInteraction(view.ID, poll.OptionMaybe).Encode())
	require.NoError(t, err)
	require.NoError(t, m.Handle(ctx, in, voter))

	in, err = poll.DecodeInteraction(poll.ResetInteraction(view.ID).Encode())
	require.NoError(t, err)
	require.NoError(t, m.Handle(ctx, in, voter))

	err = m.Handle(ctx, poll.Interaction{Kind: "other", PollID: view.ID}, voter)
	assert.ErrorIs(t, err, poll.ErrMalformedInteraction)
}

func TestManager_UnknownPoll(t *testing.T) {
	ctx := context.Background()
	m := newManager(polltest.NewGateway(), nil)

	err := m.RecordVote(ctx, "missing", poll.Voter{ID: 1}, poll.OptionYes)
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	err = m.ResetVote(ctx, "missing", poll.Voter{ID: 1})
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	_, err = m.Close(ctx, 100, "sched-100")
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	_, err = m.ClosePoll(ctx, "missing")
	assert.ErrorIs(t, err, poll.ErrPollNotFound)

	_, err = m.Get("missing")
	assert.ErrorIs(t, err, poll.ErrPollNotFound)
}

func TestManager_VoteAfterCloseIsNotFound(t *testing.T) {
	ctx := context.Background()
	m := newManager(polltest.NewGateway(), nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	_, err = m.ClosePoll(ctx, view.ID)
	require.NoError(t, err)

	err = m.RecordVote(ctx, view.ID, poll.Voter{ID: 1}, poll.OptionYes)
	assert.ErrorIs(t, err, poll.ErrPollNotFound)
}

func TestManager_CloseTransportFailureStillCloses(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)
	require.NoError(t, m.RecordVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"}, poll.OptionYes))

	gw.FailNext(poll.OpSend, 1)
	gw.FailNext(poll.OpStrip, 1)
	summary, err := m.Close(ctx, 100, "sched-100")
	assert.ErrorIs(t, err, poll.ErrTransport)
	assert.Equal(t, []string{"A"}, summary.Results.Names(poll.OptionYes))
	assert.False(t, m.IsOpen(100, "sched-100"))

	_, err = m.Start(ctx, training(100))
	assert.NoError(t, err)
}

func TestManager_CloseWaitsForInFlightRender(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gw.BeforeEdit = func() {
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	voteDone := make(chan error, 1)
	go func() {
		voteDone <- m.RecordVote(ctx, view.ID, poll.Voter{ID: 1, Name: "A"}, poll.OptionYes)
	}()
	<-entered

	closeDone := make(chan poll.Summary, 1)
	go func() {
		s, _ := m.Close(ctx, 100, "sched-100")
		closeDone <- s
	}()

	select {
	case <-closeDone:
		t.Fatal("close finished while a render was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-voteDone)
	summary := <-closeDone
	assert.Equal(t, []string{"A"}, summary.Results.Names(poll.OptionYes))

	calls := gw.Calls()
	require.GreaterOrEqual(t, len(calls), 3)
	assert.Equal(t, poll.OpEdit, calls[1].Op)
	assert.Equal(t, poll.OpStrip, calls[len(calls)-1].Op)
}

func TestManager_ConcurrentVotesRenderFinalState(t *testing.T) {
	ctx := context.Background()
	gw := polltest.NewGateway()
	m := newManager(gw, nil)

	view, err := m.Start(ctx, training(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			option := poll.Options[id%len(poll.Options)]
			_ = m.RecordVote(ctx, view.ID, poll.Voter{ID: int64(id), Name: fmt.Sprintf("u%d", id)}, option)
		}(i)
	}
	wg.Wait()

	got, err := m.Get(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.Results.Total())

	msg, ok := gw.Message(view.MessageRef)
	require.True(t, ok)
	assert.Equal(t, polltest.Renderer{}.RenderPoll(got).Text, msg.Content.Text)
}
