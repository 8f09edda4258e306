package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Printer writes styled, run-once output for CLI commands.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a Printer for w. If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{out: w, width: GetTerminalWidth()}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	p.width = width
	return p
}

// Width returns the rendering width.
func (p *Printer) Width() int {
	return p.width
}

func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command banner.
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a green result box.
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(renderResult(SuccessTitleStyle, SuccessColor, SuccessMarker+"  "+title, nil, details, nil, p.width))
}

// PrintWarning prints an orange result box.
func (p *Printer) PrintWarning(title string, details map[string]string) {
	p.Println(renderResult(WarningTitleStyle, WarningColor, WarningMarker+"  "+title, nil, details, nil, p.width))
}

// PrintError prints a red result box with optional troubleshooting hints.
func (p *Printer) PrintError(title string, err error, hints []string) {
	p.Println(renderResult(ErrorTitleStyle, ErrorColor, FailureMarker+"  "+title, err, nil, hints, p.width))
}

// RenderHeader renders a bordered command banner. Params are sorted by key.
func RenderHeader(title, command string, params map[string]string, width int) string {
	lines := []string{
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	}
	if len(params) > 0 {
		lines = append(lines, divider(width-6))
		lines = append(lines, renderDetails(params)...)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2).
		Render(strings.Join(lines, "\n"))
}

func renderResult(titleStyle lipgloss.Style, color lipgloss.Color, title string, err error, details map[string]string, hints []string, width int) string {
	lines := []string{"", titleStyle.Render(title), ""}
	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("Error: "+err.Error()), "")
	}
	if len(details) > 0 {
		lines = append(lines, renderDetails(details)...)
		lines = append(lines, "")
	}
	if len(hints) > 0 {
		lines = append(lines, HintStyle.Render("Troubleshooting:"))
		for _, h := range hints {
			lines = append(lines, HintStyle.Render("  • "+h))
		}
		lines = append(lines, "")
	}
	return boxStyle(color, width).Render(strings.Join(lines, "\n"))
}

func renderDetails(details map[string]string) []string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, KeyStyle.Render("  "+k+":")+" "+ValueStyle.Render(details[k]))
	}
	return lines
}
