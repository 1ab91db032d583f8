package format

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/gandash/dash/internal/models"
)

const (
	ColorCompleted = 0x2ECC71
	ColorManual    = 0x9B59B6
)

// CompletedEmbed replaces a task's notification once it is done. The
// description credits whoever completed it.
func CompletedEmbed(task *models.Task, description string, now time.Time, loc *time.Location) *discordgo.MessageEmbed {
	embed := taskEmbed(task, loc)
	embed.Title = "✅ " + task.Title
	embed.Description = description
	embed.Color = ColorCompleted
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Completed • Auto-deletes in 7 days"}
	embed.Timestamp = now.UTC().Format(time.RFC3339)
	return embed
}

// ManualReminderEmbed is sent by the remind button of the web UI.
func ManualReminderEmbed(task *models.Task, loc *time.Location) *discordgo.MessageEmbed {
	embed := taskEmbed(task, loc)
	embed.Title = "🔔 Reminder - " + task.Title
	embed.Description = task.Description
	embed.Color = ColorManual
	embed.Footer = &discordgo.MessageEmbedFooter{Text: "Manual reminder • React ✅ when done"}
	return embed
}

// WebCompletedEmbed announces a completion made in the web UI for a task
// that has no notification to edit.
func WebCompletedEmbed(task *models.Task, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "✅ Task Completed",
		Description: "**" + EscapeMarkdown(task.Title) + "**",
		Color:       ColorCompleted,
		Footer:      &discordgo.MessageEmbedFooter{Text: "Completed via Dash web UI"},
		Timestamp:   now.UTC().Format(time.RFC3339),
	}
	if task.Description != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "📝 Description",
			Value: Truncate(task.Description, 100),
		})
	}
	return embed
}

func taskEmbed(task *models.Task, loc *time.Location) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{}

	if task.Due.IsSet() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   "📅 Due",
			Value:  dueDateText(task.Due, loc),
			Inline: true,
		})
	}

	if task.Priority > 0 && task.Priority <= 3 {
		text, icon := "Medium", "🟡"
		switch task.Priority {
		case 1:
			text, icon = "Urgent", "🔴"
		case 2:
			text, icon = "High", "🟠"
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   icon + " Priority",
			Value:  text,
			Inline: true,
		})
	}

	if img, ok := task.FirstImage(); ok {
		embed.Image = &discordgo.MessageEmbedImage{URL: img.Link()}
	}
	return embed
}

func dueDateText(due models.DueDate, loc *time.Location) string {
	if due.HasTime() {
		return due.At.In(loc).Format(dueDateLayout)
	}
	d, err := time.Parse("2006-01-02", due.Date)
	if err != nil {
		return due.Date
	}
	return d.Format(dueDateLayout)
}
