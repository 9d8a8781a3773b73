// Package polltest provides an in-memory poll.Gateway for tests.
package polltest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aatumaykin/pollbot/internal/poll"
)

// ErrInjected is returned by a Gateway operation that was told to fail.
var ErrInjected = errors.New("injected gateway failure")

// Message is a message stored by Gateway.
type Message struct {
	ChatID   int64
	Ref      poll.MessageRef
	Content  poll.Content
	Edits    int
	Stripped bool
}

// Call records one gateway invocation.
type Call struct {
	Op     string
	ChatID int64
	Ref    poll.MessageRef
	Text   string
}

// Gateway records every call and keeps the latest content of each message.
type Gateway struct {
	mu       sync.Mutex
	nextID   int
	messages map[int]*Message
	calls    []Call
	fail     map[string]int

	// BeforeSend, if set, runs at the start of every SendContent call.
	BeforeSend func()
	// BeforeEdit, if set, runs at the start of every EditContent call.
	BeforeEdit func()
}

// NewGateway returns an empty gateway.
func NewGateway() *Gateway {
	return &Gateway{messages: make(map[int]*Message), fail: make(map[string]int)}
}

// FailNext makes the next n calls of op fail with ErrInjected.
func (g *Gateway) FailNext(op string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[op] = n
}

func (g *Gateway) shouldFail(op string) bool {
	if g.fail[op] > 0 {
		g.fail[op]--
		return true
	}
	return false
}

func (g *Gateway) SendContent(ctx context.Context, chatID int64, content poll.Content) (poll.MessageRef, error) {
	if g.BeforeSend != nil {
		g.BeforeSend()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: poll.OpSend, ChatID: chatID, Text: content.Text})
	if g.shouldFail(poll.OpSend) {
		return poll.MessageRef{}, ErrInjected
	}
	if err := ctx.Err(); err != nil {
		return poll.MessageRef{}, err
	}

	g.nextID++
	ref := poll.MessageRef{MessageID: g.nextID}
	g.messages[ref.MessageID] = &Message{ChatID: chatID, Ref: ref, Content: content}
	return ref, nil
}

func (g *Gateway) EditContent(ctx context.Context, chatID int64, ref poll.MessageRef, content poll.Content) error {
	if g.BeforeEdit != nil {
		g.BeforeEdit()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: poll.OpEdit, ChatID: chatID, Ref: ref, Text: content.Text})
	if g.shouldFail(poll.OpEdit) {
		return ErrInjected
	}
	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChatID != chatID {
		return fmt.Errorf("message %d not found in chat %d", ref.MessageID, chatID)
	}
	msg.Content = content
	msg.Edits++
	return nil
}

func (g *Gateway) StripControls(ctx context.Context, chatID int64, ref poll.MessageRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, Call{Op: poll.OpStrip, ChatID: chatID, Ref: ref})
	if g.shouldFail(poll.OpStrip) {
		return ErrInjected
	}
	msg, ok := g.messages[ref.MessageID]
	if !ok || msg.ChatID != chatID {
		return fmt.Errorf("message %d not found in chat %d", ref.MessageID, chatID)
	}
	msg.Content.Keyboard = nil
	msg.Stripped = true
	return nil
}

// Message returns a copy of a stored message.
func (g *Gateway) Message(ref poll.MessageRef) (Message, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	msg, ok := g.messages[ref.MessageID]
	if !ok {
		return Message{}, false
	}
	return *msg, true
}

// Messages returns copies of all messages of a chat in send order.
func (g *Gateway) Messages(chatID int64) []Message {
	g.mu.Lock()
	defer g.mu.Unlock()

	var out []Message
	for id := 1; id <= g.nextID; id++ {
		if msg, ok := g.messages[id]; ok && msg.ChatID == chatID {
			out = append(out, *msg)
		}
	}
	return out
}

// Calls returns all recorded calls.
func (g *Gateway) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CountCalls returns how many calls of op were made.
func (g *Gateway) CountCalls(op string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Renderer is a plain-text poll.Renderer for tests: one line per option with
// the voter names, and a vote keyboard.
type Renderer struct{}

func (Renderer) RenderPoll(v poll.View) poll.Content {
	return poll.Content{Text: "poll " + v.Schedule.Name + "\n" + results(v.Results), Keyboard: keyboard(v.ID)}
}

func (Renderer) RenderSummary(s poll.Summary) poll.Content {
	return poll.Content{Text: "summary " + s.Schedule.Name + "\n" + results(s.Results)}
}

func results(s poll.Snapshot) string {
	var b strings.Builder
	for _, o := range poll.Options {
		fmt.Fprintf(&b, "%s(%d): %s\n", o, s.Count(o), strings.Join(s.Names(o), ", "))
	}
	return b.String()
}

func keyboard(pollID string) poll.Keyboard {
	row := make([]poll.Button, 0, len(poll.Options))
	for _, o := range poll.Options {
		row = append(row, poll.Button{Text: o.String(), Data: poll.VoteInteraction(pollID, o).Encode()})
	}
	return poll.Keyboard{row, {{Text: "reset", Data: poll.ResetInteraction(pollID).Encode()}}}
}
