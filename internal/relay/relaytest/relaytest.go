// Package relaytest provides in-memory upstream fakes for relay tests.
package relaytest

import (
	"context"
	"sync"

	"google.golang.org/api/iterator"

	"supportchat/internal/relay"
)

// Iterator replays a fixed list of fragments. When Err is set it is
// returned after the last fragment instead of iterator.Done.
type Iterator struct {
	Fragments []string
	Err       error

	mu     sync.Mutex
	pos    int
	closed int
}

func (it *Iterator) Next() (string, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.pos >= len(it.Fragments) {
		if it.Err != nil {
			return "", it.Err
		}
		return "", iterator.Done
	}
	text := it.Fragments[it.pos]
	it.pos++
	return text, nil
}

func (it *Iterator) Close() error {
	it.mu.Lock()
	it.closed++
	it.mu.Unlock()
	return nil
}

// Closed reports how many times Close was called.
func (it *Iterator) Closed() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.closed
}

// Endless yields the same fragment until its context is cancelled.
type Endless struct {
	Ctx      context.Context
	Fragment string
}

func (e *Endless) Next() (string, error) {
	if err := e.Ctx.Err(); err != nil {
		return "", err
	}
	return e.Fragment, nil
}

// Streamer records prompts and serves each call from a fresh Iterator.
type Streamer struct {
	Fragments []string
	Err       error
	OpenErr   error

	mu      sync.Mutex
	prompts []string
}

func (s *Streamer) StreamText(_ context.Context, prompt string) (relay.FragmentIterator, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.OpenErr != nil {
		return nil, s.OpenErr
	}
	return &Iterator{Fragments: s.Fragments, Err: s.Err}, nil
}

// Prompts returns every prompt the streamer was called with.
func (s *Streamer) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}
