package record

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/term"
)

// Token is a cooperative stop switch for the manual "record until
// interrupted" mode. It starts in the running state and is flipped exactly
// once, either by [Token.Stop] or by the interrupt handler installed with
// [Token.Notify].
//
// Create instances with [NewToken].
type Token struct {
	running atomic.Bool
	once    sync.Once
}

// NewToken creates a running [Token].
func NewToken() *Token {
	t := &Token{}
	t.running.Store(true)

	return t
}

// Running reports whether a stop has not yet been requested.
func (t *Token) Running() bool {
	return t.running.Load()
}

// Stop requests a cooperative stop. Idempotent.
func (t *Token) Stop() {
	t.running.Store(false)
}

// Notify installs an interrupt handler that stops the token. The handler
// fires once; default signal disposition is then restored, so a second
// interrupt terminates the process immediately.
func (t *Token) Notify() {
	t.once.Do(func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt)

		go func() {
			<-ch
			t.Stop()
			signal.Stop(ch)
			signal.Reset(os.Interrupt)
		}()
	})
}

// Wait blocks until the token stops, polling once per interval. A progress
// indicator is written to w between polls, unless w is a file that is not a
// terminal.
func (t *Token) Wait(interval time.Duration, w io.Writer) {
	progress := showProgress(w)

	for t.Running() {
		time.Sleep(interval)

		if progress {
			fmt.Fprint(w, ".")
		}
	}

	if progress {
		fmt.Fprintln(w)
	}
}

func showProgress(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}

	return term.IsTerminal(int(f.Fd()))
}
