package models

import "time"

// Column names of the reminders table. Older rows use the spaced variants.
const (
	ColReminderText       = "Text"
	ColReminderDueDate    = "DueDate"
	ColReminderDueDateAlt = "Due Date"
	ColReminderDueTime    = "DueTime"
	ColReminderDueTimeAlt = "Due Time"
	ColReminderAssignee   = "AssigneeID"
	ColReminderAssignee2  = "Assignee ID"
	ColReminderCreatedVia = "CreatedVia"
	ColReminderCreatedAt  = "CreatedAt"
	ColReminderArchived   = "Archived"
	ColReminderArchivedAt = "ArchivedAt"
)

type Reminder struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	DueDate    string     `json:"dueDate"` // YYYY-MM-DD or ""
	DueTime    string     `json:"dueTime"`
	AssigneeID *int       `json:"assigneeId"`
	CreatedVia string     `json:"createdVia"`
	CreatedAt  string     `json:"createdAt,omitempty"`
	Archived   bool       `json:"archived"`
	ArchivedAt *time.Time `json:"archivedAt,omitempty"`
}

// IsActive is false once the reminder is archived.
func (r *Reminder) IsActive() bool {
	return !r.Archived
}

func ReminderFromRecord(rec map[string]any, loc *time.Location) *Reminder {
	r := &Reminder{
		Text:       stringValue(rec[ColReminderText]),
		DueDate:    ParseDueDate(firstString(rec, ColReminderDueDate, ColReminderDueDateAlt), loc).Date,
		DueTime:    firstString(rec, ColReminderDueTime, ColReminderDueTimeAlt),
		CreatedVia: stringValue(rec[ColReminderCreatedVia]),
		CreatedAt:  stringValue(rec[ColReminderCreatedAt]),
		Archived:   Truthy(rec[ColReminderArchived]),
		ArchivedAt: timePtr(rec[ColReminderArchivedAt], loc),
	}
	r.ID, _ = intValue(rec[ColID])
	if r.CreatedVia == "" {
		r.CreatedVia = "web"
	}
	if v, ok := rec[ColReminderAssignee]; ok && v != nil {
		r.AssigneeID = intPtr(v)
	} else {
		r.AssigneeID = intPtr(rec[ColReminderAssignee2])
	}
	return r
}

func firstString(rec map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := stringValue(rec[k]); s != "" {
			return s
		}
	}
	return ""
}
