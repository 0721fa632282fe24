package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"google.golang.org/api/iterator"
)

// FragmentIterator yields text fragments from an upstream model call.
// Next returns iterator.Done once the upstream stream has completed.
type FragmentIterator interface {
	Next() (string, error)
}

// Stream is the consumer side of a running Pump.
type Stream struct {
	fragments chan string
	cancel    context.CancelFunc
	err       error
}

// Pump starts a producer goroutine that copies fragments from it onto the
// returned Stream. Empty fragments are skipped. The fragment channel is
// closed exactly once, after the last fragment has been handed over.
func Pump(ctx context.Context, it FragmentIterator) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		fragments: make(chan string),
		cancel:    cancel,
	}
	go s.run(ctx, it)
	return s
}

func (s *Stream) run(ctx context.Context, it FragmentIterator) {
	defer close(s.fragments)
	defer s.cancel()
	if c, ok := it.(io.Closer); ok {
		defer c.Close()
	}

	for {
		text, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				s.err = ctxErr
			} else {
				s.err = fmt.Errorf("%w: %w", ErrUpstream, err)
			}
			return
		}
		if text == "" {
			continue
		}

		select {
		case s.fragments <- text:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
}

// Fragments returns the channel fragments are delivered on.
func (s *Stream) Fragments() <-chan string {
	return s.fragments
}

// Err reports why the stream ended: nil when upstream completed, an error
// wrapping ErrUpstream when upstream failed, or the context error when the
// stream was stopped. Only meaningful once Fragments has been closed.
func (s *Stream) Err() error {
	return s.err
}

// Stop tells the producer to give up. It is safe to call more than once.
func (s *Stream) Stop() {
	s.cancel()
}

// Result summarises what Forward delivered.
type Result struct {
	Fragments int
	Bytes     int64
}

// Forward writes each fragment of s to w in arrival order, calling flush
// after every fragment. It returns once the stream has ended or a write
// fails. In the latter case the producer is stopped and exits on its next
// send attempt.
func Forward(w io.Writer, flush func() error, s *Stream) (Result, error) {
	var res Result
	for text := range s.Fragments() {
		n, err := io.WriteString(w, text)
		res.Bytes += int64(n)
		if err == nil && flush != nil {
			err = flush()
		}
		if err != nil {
			s.Stop()
			return res, fmt.Errorf("write fragment: %w", err)
		}
		res.Fragments++
	}
	return res, s.Err()
}
