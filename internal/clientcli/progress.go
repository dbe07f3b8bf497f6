package clientcli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// progressThreshold is the size above which transfers show a progress bar.
const progressThreshold = 1 << 20

// TransferProgress tracks and displays transfer progress.
type TransferProgress struct {
	total      int64
	current    int64
	startTime  time.Time
	operation  string // "Uploading" or "Downloading"
	done       chan struct{}
	stopped    chan struct{}
	mu         sync.Mutex
	out        io.Writer
	isTerminal bool
	termWidth  int
}

// NewTransferProgress creates a progress tracker rendering to out. The bar
// is only animated when out is a terminal; otherwise a summary line is
// printed on Finish.
func NewTransferProgress(out io.Writer, total int64, operation string) *TransferProgress {
	width := 40
	isTerminal := false
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		isTerminal = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			width = w
		}
	}
	return &TransferProgress{
		total:      total,
		operation:  operation,
		startTime:  time.Now(),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		out:        out,
		isTerminal: isTerminal,
		termWidth:  width,
	}
}

// Update sets the current progress. It has the shape of weed.ProgressFunc.
func (p *TransferProgress) Update(current int64) {
	p.mu.Lock()
	p.current = current
	p.mu.Unlock()
}

// Add increments the current progress.
func (p *TransferProgress) Add(delta int64) {
	p.mu.Lock()
	p.current += delta
	p.mu.Unlock()
}

// Start begins rendering the progress bar.
func (p *TransferProgress) Start() {
	go func() {
		defer close(p.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-p.done:
				p.render(true)
				return
			case <-ticker.C:
				p.render(false)
			}
		}
	}()
}

// Finish stops the progress bar and waits for the final render.
func (p *TransferProgress) Finish() {
	close(p.done)
	<-p.stopped
}

func (p *TransferProgress) render(final bool) {
	p.mu.Lock()
	current := p.current
	total := p.total
	p.mu.Unlock()

	elapsed := time.Since(p.startTime).Seconds()
	if elapsed < 0.001 {
		elapsed = 0.001
	}

	percent := float64(0)
	if total > 0 {
		percent = float64(current) / float64(total) * 100
	}

	speed := float64(current) / elapsed
	speedStr := formatBytes(int64(speed)) + "/s"

	eta := ""
	if speed > 0 && current < total {
		remaining := float64(total-current) / speed
		eta = formatDuration(time.Duration(remaining) * time.Second)
	}

	if !p.isTerminal {
		if final {
			fmt.Fprintf(p.out, "%s: %s (%s)\n", p.operation, formatBytes(current), speedStr)
		}
		return
	}

	barWidth := 30
	if p.termWidth < 80 {
		barWidth = 20
	}

	filled := int(percent / 100 * float64(barWidth))
	if filled > barWidth {
		filled = barWidth
	}

	bar := strings.Repeat("=", filled)
	if filled < barWidth && !final {
		bar += ">"
		bar += strings.Repeat(" ", barWidth-filled-1)
	} else if filled < barWidth {
		bar += strings.Repeat(" ", barWidth-filled)
	}

	line := fmt.Sprintf("\r%s [%s] %5.1f%% %s/%s %s",
		p.operation, bar, percent, formatBytes(current), formatBytes(total), speedStr)
	if eta != "" && !final {
		line += fmt.Sprintf(" ETA %s", eta)
	}

	if len(line) < p.termWidth {
		line += strings.Repeat(" ", p.termWidth-len(line))
	}

	fmt.Fprint(p.out, line)
	if final {
		fmt.Fprintln(p.out)
	}
}

// ProgressWriter wraps a writer and updates progress.
type ProgressWriter struct {
	w        io.Writer
	progress *TransferProgress
}

func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.w.Write(p)
	if n > 0 {
		pw.progress.Add(int64(n))
	}
	return n, err
}
