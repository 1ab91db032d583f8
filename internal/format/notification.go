// Package format composes the chat messages the scheduler and API send.
package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/gandash/dash/internal/models"
)

// Kind selects the label and icon of an individual task notification.
type Kind string

const (
	KindDue      Kind = "due"
	KindReminder Kind = "reminder"
	KindOverdue  Kind = "overdue"
)

const (
	timeLayout    = "3:04 PM"
	dueDateLayout = "Mon, Jan 2"
)

// TaskNotification renders the individual notification for a task.
// mention is the assignee's mention string or "".
func TaskNotification(task *models.Task, kind Kind, daysBefore int, mention string, loc *time.Location) string {
	var icon, label string
	switch kind {
	case KindOverdue:
		icon, label = "🚨", "OVERDUE"
	case KindReminder:
		icon, label = "🔔", fmt.Sprintf("Reminder (%dd left)", daysBefore)
	default:
		icon, label = "⏰", "Due Now"
	}

	var b strings.Builder
	if mention != "" {
		b.WriteString(mention + " ")
	}
	fmt.Fprintf(&b, "%s **%s**\n", icon, label)
	b.WriteString(taskBlock(task, loc))
	b.WriteString("\n*React ✅ when done*")
	return b.String()
}

// SummaryHeader opens the daily summary.
func SummaryHeader() string {
	return "☀️ **Good Morning!** Here's your day:"
}

// OverdueLine is one overdue task in the daily summary.
func OverdueLine(task *models.Task) string {
	return fmt.Sprintf("```\n🚨 OVERDUE: %s\n   Was due %s%s\n```", InCodeBlock(task.Title), task.Due.Date, priorityText(task))
}

// TodayLine is one task due today in the daily summary.
func TodayLine(task *models.Task, loc *time.Location) string {
	return taskBlock(task, loc)
}

// RemindersBlock lists every reminder in one code block.
func RemindersBlock(reminders []*models.Reminder) string {
	var b strings.Builder
	b.WriteString("```\n🔔 Reminders\n\n")
	for _, r := range reminders {
		b.WriteString("• " + InCodeBlock(r.Text) + "\n")
	}
	b.WriteString("```")
	return b.String()
}

// Nudge is the one-line poke sent from the web UI.
func Nudge(task *models.Task) string {
	return "🔔 Nudge: " + task.Title
}

func taskBlock(task *models.Task, loc *time.Location) string {
	icon := "📝"
	if task.IsHighPriority() {
		icon = "🔴"
	}
	return fmt.Sprintf("```\n%s %s\n   Due%s%s\n```", icon, InCodeBlock(task.Title), timeText(task, loc), priorityText(task))
}

func timeText(task *models.Task, loc *time.Location) string {
	if !task.Due.HasTime() {
		return ""
	}
	return " at " + task.Due.At.In(loc).Format(timeLayout)
}

func priorityText(task *models.Task) string {
	if task.IsHighPriority() {
		return " • High priority"
	}
	return ""
}

// Truncate shortens s to at most n runes, marking the cut with "...".
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
