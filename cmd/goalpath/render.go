package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/metalagman/goalpath/internal/graph"
	"github.com/metalagman/goalpath/internal/model"
	"github.com/metalagman/goalpath/internal/tools"
)

const (
	colorSecondary = lipgloss.Color("#888")
	colorFaded     = lipgloss.Color("#555")

	colorGreen  = lipgloss.Color("#00a352")
	colorRed    = lipgloss.Color("#c42912")
	colorYellow = lipgloss.Color("#c4b810")
)

var (
	icon      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	doneIcon  = icon.Foreground(colorGreen).Render("✓")
	openIcon  = icon.Foreground(colorYellow).Render("•")
	blockIcon = icon.Foreground(colorFaded).Render("⨯")

	goalTitle      = lipgloss.NewStyle().Bold(true).Underline(true)
	milestoneTitle = lipgloss.NewStyle().Bold(true)
	title          = lipgloss.NewStyle()
	titleDone      = title.Foreground(colorSecondary).Strikethrough(true)
	titleBlocked   = title.Foreground(colorFaded)

	faded   = lipgloss.NewStyle().Foreground(colorFaded)
	overdue = lipgloss.NewStyle().Foreground(colorRed)
)

func stateIcon(st graph.State) string {
	switch st {
	case graph.StateCompleted:
		return doneIcon
	case graph.StateAvailable:
		return openIcon
	default:
		return blockIcon
	}
}

func stateTitle(st graph.State) lipgloss.Style {
	switch st {
	case graph.StateCompleted:
		return titleDone
	case graph.StateBlocked:
		return titleBlocked
	default:
		return title
	}
}

func renderDeadline(d *time.Time, now time.Time) string {
	if d == nil {
		return ""
	}
	style := faded
	if d.Before(now) {
		style = overdue
	}
	return " " + style.Render("due "+d.Format(time.DateOnly))
}

// renderGoal writes the goal tree with one line per task.
func renderGoal(w io.Writer, v tools.GoalView, now time.Time) {
	fmt.Fprintln(w, goalTitle.Render(v.Title)+" "+faded.Render(v.ID)+renderDeadline(v.Deadline, now))
	if v.Description != "" {
		fmt.Fprintln(w, faded.Render(v.Description))
	}
	titles := make(map[string]string)
	for _, m := range v.Milestones {
		for _, t := range m.Tasks {
			titles[t.ID] = t.Title
		}
	}
	for _, m := range v.Milestones {
		fmt.Fprintln(w)
		fmt.Fprintln(w, milestoneTitle.Render(m.Title)+" "+faded.Render(m.ID))
		if len(m.Tasks) == 0 {
			fmt.Fprintln(w, faded.Render("  no tasks"))
		}
		for _, t := range m.Tasks {
			line := stateIcon(t.State) + stateTitle(t.State).Render(t.Title) + " " + faded.Render(t.ID)
			if t.EstimatedMinutes != nil {
				line += " " + faded.Render(fmt.Sprintf("~%dm", *t.EstimatedMinutes))
			}
			if t.State != graph.StateCompleted {
				line += renderDeadline(t.Deadline, now)
			}
			if len(t.BlockedBy) > 0 {
				names := make([]string, 0, len(t.BlockedBy))
				for _, id := range t.BlockedBy {
					names = append(names, titles[id])
				}
				line += " " + faded.Render("waits for "+strings.Join(names, ", "))
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(v.CyclicTaskIDs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, overdue.Render("dependency cycle: "+strings.Join(v.CyclicTaskIDs, ", ")))
	}
}

func renderGoalLine(w io.Writer, g model.Goal, now time.Time) {
	fmt.Fprintln(w, faded.Render(g.ID)+" "+title.Render(g.Title)+renderDeadline(g.Deadline, now))
}

func renderTaskLine(w io.Writer, t model.Task, now time.Time) {
	fmt.Fprintln(w, openIcon+title.Render(t.Title)+" "+faded.Render(t.ID)+renderDeadline(t.Deadline, now))
}
