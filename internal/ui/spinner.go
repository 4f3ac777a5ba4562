package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/andreasragnarsson/fashion-finder/internal/platform"
)

var frames = []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}

// Spinner shows an animated status line. Adapters feed it through the
// ProgressFunc carried in the request context.
type Spinner struct {
	out      io.Writer
	interval time.Duration

	mu   sync.Mutex
	msg  string
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSpinner writes to stderr, or to w when given.
func NewSpinner(w ...io.Writer) *Spinner {
	s := &Spinner{out: os.Stderr, interval: 80 * time.Millisecond}
	if len(w) > 0 && w[0] != nil {
		s.out = w[0]
	}
	return s
}

func (s *Spinner) Start(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msg = msg
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.done)
}

func (s *Spinner) Update(msg string) {
	s.mu.Lock()
	s.msg = msg
	s.mu.Unlock()
}

// Progress adapts Update to the adapter progress callback.
func (s *Spinner) Progress() platform.ProgressFunc {
	return s.Update
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()
	fmt.Fprint(s.out, "\r\033[K")
}

func (s *Spinner) run(done <-chan struct{}) {
	defer s.wg.Done()
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for i := 0; ; i++ {
		select {
		case <-done:
			return
		case <-tick.C:
			s.mu.Lock()
			msg := s.msg
			s.mu.Unlock()
			fmt.Fprintf(s.out, "\r\033[K%c %s", frames[i%len(frames)], msg)
		}
	}
}
