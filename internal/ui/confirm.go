package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Confirm prints a warning box to out and reads one line from in. It returns
// true only if the line equals phrase.
func Confirm(in io.Reader, out io.Writer, title string, warnings []string, phrase string) bool {
	width := GetTerminalWidth()

	lines := []string{"", WarningTitleStyle.Render(WarningMarker + "  WARNING  ─  " + title), ""}
	for _, w := range warnings {
		lines = append(lines, ValueStyle.Render("• "+w))
	}
	lines = append(lines, "")

	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(WarningColor).
		Width(width-2).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))

	_, _ = fmt.Fprintln(out, box)
	_, _ = fmt.Fprint(out, WarningTitleStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", phrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == phrase {
		return true
	}

	_, _ = fmt.Fprintln(out, HintStyle.Render("  Operation cancelled."))
	return false
}

// ConfirmClearStore asks before erasing the saved network credentials.
func ConfirmClearStore(in io.Reader, out io.Writer, path string) bool {
	return Confirm(in, out, "ERASE SAVED NETWORK", []string{
		"The saved WiFi credentials in " + path + " will be erased",
		"On next start the device only offers the setup network",
		"Stop wifiprovd before erasing or it may keep its in-memory copy",
	}, "ERASE")
}
