package render

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// DefaultRefreshInterval caps live redraws at 15 per second.
const DefaultRefreshInterval = time.Second / 15

// Live redraws a growing markdown document in place. Update only records the
// latest content; a ticker repaints at most once per interval, so fast
// streams do not cause one redraw per fragment.
//
// When the writer is not a terminal nothing is drawn until Stop, which
// prints the final document once.
type Live struct {
	r        *Renderer
	w        io.Writer
	out      *termenv.Output
	tty      bool
	width    int
	height   int
	interval time.Duration

	mu      sync.Mutex
	content string
	dirty   bool
	rows    int

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewLive starts a live view on w. A non-positive interval uses DefaultRefreshInterval.
func (r *Renderer) NewLive(w io.Writer, interval time.Duration) *Live {
	var (
		tty           bool
		width, height int
	)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		tty = true
		if cols, rows, err := term.GetSize(int(f.Fd())); err == nil {
			width, height = cols, rows
		}
	}
	return r.newLive(w, interval, tty, width, height)
}

// newLive starts a view on w, treating it as a terminal of the given size
// when tty is set.
func (r *Renderer) newLive(w io.Writer, interval time.Duration, tty bool, width, height int) *Live {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	l := &Live{
		r:        r,
		w:        w,
		out:      termenv.NewOutput(w, termenv.WithProfile(r.profile)),
		tty:      tty,
		width:    width,
		height:   height,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if !l.tty {
		close(l.done)
		return l
	}
	l.out.HideCursor()
	go l.loop()
	return l
}

func (l *Live) loop() {
	defer close(l.done)
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			l.mu.Lock()
			if l.dirty {
				l.draw(false)
				l.dirty = false
			}
			l.mu.Unlock()
		}
	}
}

// Update replaces the document shown by the view.
func (l *Live) Update(content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.content = content
	l.dirty = true
}

// Stop halts refreshing and leaves the complete final document on screen.
// It is safe to call more than once.
func (l *Live) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
		<-l.done

		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.tty {
			io.WriteString(l.w, l.r.mustRender(l.content))
			return
		}
		l.draw(true)
		l.out.ShowCursor()
	})
}

// draw repaints the view. While live, output taller than the terminal is
// cropped to its tail so the cursor can still reach the first drawn row.
func (l *Live) draw(final bool) {
	rendered := strings.TrimRight(l.r.mustRender(l.content), "\n")
	var lines []string
	if rendered != "" {
		lines = strings.Split(rendered, "\n")
	}
	if !final && l.height > 2 && l.countRows(lines) >= l.height {
		lines = append([]string{l.r.Dim("…")}, l.tail(lines, l.height-2)...)
	}

	if l.rows > 0 {
		l.out.ClearLines(l.rows)
	}
	if len(lines) > 0 {
		io.WriteString(l.w, strings.Join(lines, "\n")+"\n")
	}
	l.rows = l.countRows(lines)
}

func (l *Live) tail(lines []string, maxRows int) []string {
	rows := 0
	for i := len(lines) - 1; i >= 0; i-- {
		rows += l.lineRows(lines[i])
		if rows > maxRows {
			return lines[i+1:]
		}
	}
	return lines
}

func (l *Live) countRows(lines []string) int {
	n := 0
	for _, line := range lines {
		n += l.lineRows(line)
	}
	return n
}

func (l *Live) lineRows(line string) int {
	w := lipgloss.Width(line)
	if l.width <= 0 || w <= l.width {
		return 1
	}
	return (w + l.width - 1) / l.width
}
