package output

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Spinner animates a message while a command works. Stop, Success,
// and Fail are each safe to call more than once; only the first call
// ends the animation.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	done    chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner with the given message.
func NewSpinner(w io.Writer, message string) *Spinner {
	return &Spinner{
		w:       w,
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		done:    make(chan struct{}),
	}
}

// Start begins the animation in a background goroutine.
func (s *Spinner) Start() {
	go func() {
		i := 0
		for {
			select {
			case <-s.done:
				return
			default:
				fmt.Fprintf(s.w, "\r%s %s", s.frames[i%len(s.frames)], s.message)
				i++
				time.Sleep(100 * time.Millisecond)
			}
		}
	}()
}

func (s *Spinner) stop() {
	s.once.Do(func() { close(s.done) })
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.stop()
	fmt.Fprintf(s.w, "\r\033[K")
}

// Success ends the animation with a check mark and message.
func (s *Spinner) Success(message string) {
	s.stop()
	fmt.Fprintf(s.w, "\r✓ %s\n", message)
}

// Fail ends the animation with a cross and message.
func (s *Spinner) Fail(message string) {
	s.stop()
	fmt.Fprintf(s.w, "\r✗ %s\n", message)
}
