package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiprov/internal/discovery"
	"github.com/muurk/wifiprov/internal/provision"
)

// RenderStatus renders a device snapshot as a bordered status card. While a
// station attempt is running the poll budget is drawn as a progress bar.
func RenderStatus(s provision.Snapshot, width int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	lines := []string{"", "  " + StateLabel(s.State), ""}

	details := map[string]string{
		"Setup network": onOff(s.AccessPointActive),
		"Indicator":     s.Indicator,
	}
	if s.Network != "" {
		details["Network"] = s.Network
	} else if !s.HasCredentials {
		details["Network"] = "(none saved)"
	}
	if s.ReadyForCredentials {
		details["Accepting"] = "yes"
	}
	if !s.UpdatedAt.IsZero() {
		details["Updated"] = s.UpdatedAt.Local().Format(time.TimeOnly)
	}
	lines = append(lines, renderDetails(details)...)

	if s.State == provision.ConnectingStation && s.MaxPolls > 0 {
		lines = append(lines, "", "  "+renderBudget(s, width))
	}
	if s.LastError != "" {
		lines = append(lines, "", ErrorMessageStyle.Render("  Last error: "+s.LastError))
	}
	if s.StoreError != "" {
		lines = append(lines, "", WarningTitleStyle.Render("  Store: "+s.StoreError))
	}
	lines = append(lines, "")

	return boxStyle(StateColor(s.State), width).Render(strings.Join(lines, "\n"))
}

func renderBudget(s provision.Snapshot, width int) string {
	barWidth := width - 30
	if barWidth < 20 {
		barWidth = 20
	}
	if barWidth > 50 {
		barWidth = 50
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth))
	pct := float64(s.Polls) / float64(s.MaxPolls)
	if pct > 1 {
		pct = 1
	}
	return bar.ViewAs(pct) + lipgloss.NewStyle().Foreground(MutedColor).
		Render(fmt.Sprintf("  poll %d/%d", s.Polls, s.MaxPolls))
}

// RenderDevices renders the result of a discovery scan, one device per line.
func RenderDevices(devices []*discovery.Device) string {
	if len(devices) == 0 {
		return HintStyle.Render("No wifiprov devices found.")
	}

	var b strings.Builder
	for _, d := range devices {
		marker := lipgloss.NewStyle().Foreground(MutedColor).Render(PendingMarker)
		if d.Ready() {
			marker = lipgloss.NewStyle().Foreground(SuccessColor).Render(PendingMarker)
		}
		fmt.Fprintf(&b, "%s %s  %s  %s\n",
			marker,
			ValueStyle.Bold(true).Render(d.Instance),
			lipgloss.NewStyle().Foreground(MutedColor).Render(d.BaseURL()),
			d.State(),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
