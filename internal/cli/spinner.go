package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

const spinnerInterval = 80 * time.Millisecond

var spinnerFrames = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

// Spinner animates a status line on stderr while a catalog request or a
// volume read is in flight. After a second it also shows the elapsed time.
type Spinner struct {
	message string
	out     io.Writer
	parent  context.Context
	stop    context.CancelFunc
	ctx     context.Context
	done    chan struct{}
	once    sync.Once

	mu    sync.Mutex
	width int // of the last frame, for clearing
}

func newSpinner(ctx context.Context, message string) *Spinner {
	inner, cancel := context.WithCancel(ctx)
	return &Spinner{
		message: message,
		out:     os.Stderr,
		parent:  ctx,
		ctx:     inner,
		stop:    cancel,
		done:    make(chan struct{}),
	}
}

// Start runs the animation until Stop or until the context ends.
func (s *Spinner) Start() {
	start := time.Now()
	go func() {
		defer close(s.done)
		tick := time.NewTicker(spinnerInterval)
		defer tick.Stop()
		for frame := 0; ; frame++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-tick.C:
				s.draw(spinnerFrames[frame%len(spinnerFrames)], time.Since(start))
			}
		}
	}()
}

func (s *Spinner) draw(frame rune, elapsed time.Duration) {
	text := s.message
	if elapsed >= time.Second {
		text += fmt.Sprintf(" %ds", int(elapsed.Seconds()))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width = len([]rune(text)) + 2
	fmt.Fprintf(s.out, "\r%s %s", styleIconSpinner.Render(string(frame)), StyleDim.Render(text))
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "\r%s\r", strings.Repeat(" ", max(s.width, len(s.message)+2)))
}

// Stop ends the animation and clears the line. Further calls do nothing.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.stop()
		<-s.done
	})
}

// Cancelled reports whether the caller's context ended, as opposed to Stop.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}

// withSpinner runs fn, behind a spinner when stderr is a terminal.
func withSpinner[T any](ctx context.Context, message string, fn func(context.Context) (T, error)) (T, error) {
	if !isatty.IsTerminal(os.Stderr.Fd()) && !isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return fn(ctx)
	}
	s := newSpinner(ctx, message)
	s.Start()
	defer s.Stop()
	return fn(ctx)
}
