package completion

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/muesli/termenv"
	"github.com/tmc/spinner"
	"golang.org/x/term"
)

const statusMessage = "Working on it…"

func spin(pos int, out io.Writer) func() {
	s := spinner.New(
		spinner.WithFrames(spinner.Dots8),
		spinner.WithWriter(out),
		spinner.WithIntervalFunc(
			spinner.SpeedupInterval(90*time.Millisecond, 40*time.Millisecond, time.Second*5),
		),
		spinner.WithColorFunc(spinner.GreyPulse(15*time.Millisecond)),
		spinner.WithPosition(pos),
	)
	s.Start()
	return s.Stop
}

// startStatus shows the transient "working" line on stderr and returns a
// function that removes it. The returned function may be called repeatedly.
func (s *Service) startStatus() func() {
	if !s.cfg.ShowSpinner || !isTerminal(s.opts.Stderr) {
		return func() {}
	}
	msg := statusMessage + " "
	fmt.Fprint(s.opts.Stderr, s.statusText()+" ")
	stop := spin(utf8.RuneCountInString(msg), s.opts.Stderr)

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			fmt.Fprint(s.opts.Stderr, "\r")
			termenv.NewOutput(s.opts.Stderr).ClearLine()
		})
	}
}

// statusText styles the status for stderr, which may be a terminal when
// stdout is not.
func (s *Service) statusText() string {
	return s.errStyles.NewStyle().Faint(true).Render(statusMessage)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
