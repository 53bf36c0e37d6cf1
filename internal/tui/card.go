package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/prts-dev/pipesync/internal/liveactivity"
)

const defaultCardWidth = 40

// ActivityCard is the terminal rendering of a live activity.
type ActivityCard struct {
	ID         string
	Attributes liveactivity.Attributes
	Content    liveactivity.Content
	Ended      bool
}

// View renders the card with a progress bar of the given width.
func (c ActivityCard) View(width int) string {
	if width <= 0 {
		width = defaultCardWidth
	}
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
	)
	title := lipgloss.NewStyle().Bold(true).Render(c.Attributes.PipelineName)
	if c.Attributes.Branch != "" {
		title += faintStyle.Render("  ⎇ " + c.Attributes.Branch)
	}
	status := fmt.Sprintf("%s  %s  %s",
		RenderStatus(c.Content.Status),
		c.Content.CurrentStage,
		faintStyle.Render(c.Content.ElapsedTime),
	)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		title,
		status,
		bar.ViewAs(c.Content.Progress),
	))
}
