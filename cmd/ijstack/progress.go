package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/progress"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vearutop/ijstack"
)

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd())) //nolint:gosec // File descriptors fit int.
}

// planeProgress reports conversion progress as a bar on a terminal and as
// log lines at every tenth otherwise.
type planeProgress struct {
	out      io.Writer
	bar      *progress.Model
	log      *zap.Logger
	lastStep int
}

func newPlaneProgress(log *zap.Logger) *planeProgress {
	p := &planeProgress{out: os.Stderr, log: log, lastStep: -1}
	if !stderrIsTerminal() {
		return p
	}

	width := 40
	if w, _, err := term.GetSize(int(os.Stderr.Fd())); err == nil && w > 60 { //nolint:gosec // File descriptors fit int.
		width = w - 40
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(width))
	p.bar = &bar
	return p
}

// OnPlane matches ijstack.ConvertOptions.OnPlane.
func (p *planeProgress) OnPlane(s ijstack.Series, done, total int) {
	if total <= 0 {
		return
	}
	pct := float64(done) / float64(total)

	if p.bar != nil {
		_, _ = fmt.Fprintf(p.out, "\r%-16.16s %s %d/%d", s.Name, p.bar.ViewAs(pct), done, total)
		if done == total {
			_, _ = fmt.Fprintln(p.out)
		}
		return
	}

	if step := 10 * done / total; step != p.lastStep {
		p.lastStep = step
		p.log.Info("converting",
			zap.String("series", s.Name),
			zap.Int("done", done),
			zap.Int("total", total),
		)
	}
	if done == total {
		p.lastStep = -1
	}
}
