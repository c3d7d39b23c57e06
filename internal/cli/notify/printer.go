package notify

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Printer writes notices to a terminal
type Printer struct {
	out io.Writer
	err io.Writer
}

// NewPrinter prints messages to out and errors to errOut
func NewPrinter(out, errOut io.Writer) *Printer {
	return &Printer{out: out, err: errOut}
}

// Print renders a single notice
func (p *Printer) Print(n Notice) {
	if n.Level == LevelError {
		fmt.Fprintln(p.err, errorStyle.Render("✗ "+n.Text))
		return
	}
	fmt.Fprintln(p.out, messageStyle.Render("✓ "+n.Text))
}

// Attach subscribes the printer to a sink
func (p *Printer) Attach(s *Sink) {
	s.Subscribe(p.Print)
}
