// Package providertest provides in-memory LLM providers for tests.
package providertest

import (
	"context"
	"errors"
	"sync"

	"github.com/cexll/codeagent/internal/provider"
)

// ErrNoReply is returned once a Scripted provider runs out of replies.
var ErrNoReply = errors.New("providertest: no scripted reply left")

// Reply is one canned completion result.
type Reply struct {
	Text string
	Err  error
}

// Scripted returns its replies in order and records every request.
type Scripted struct {
	mu       sync.Mutex
	replies  []Reply
	requests []provider.Request
}

// NewScripted creates a provider answering with replies, in order.
func NewScripted(replies ...Reply) *Scripted {
	return &Scripted{replies: replies}
}

// Text is shorthand for a successful reply.
func Text(s string) Reply { return Reply{Text: s} }

// Fail is shorthand for a failed call.
func Fail(err error) Reply { return Reply{Err: err} }

func (s *Scripted) Name() string { return "scripted" }

func (s *Scripted) Complete(ctx context.Context, req *provider.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, *req)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.replies) == 0 {
		return "", ErrNoReply
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.Text, r.Err
}

// Requests returns the requests received so far.
func (s *Scripted) Requests() []provider.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]provider.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Func adapts a function to the provider interface.
type Func func(ctx context.Context, req *provider.Request) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Complete(ctx context.Context, req *provider.Request) (string, error) {
	return f(ctx, req)
}
