package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Column names of the tasks table. They must match the record store exactly.
const (
	ColID                    = "Id"
	ColTitle                 = "Title"
	ColDescription           = "Description"
	ColStatus                = "Status"
	ColPriority              = "Priority"
	ColDueDate               = "Due Date"
	ColDueTime               = "Due Time"
	ColProjectID             = "Project ID"
	ColAssigneeID            = "Assignee ID"
	ColCompletedAt           = "Completed At"
	ColCreatedAt             = "Created At"
	ColRecurrenceRule        = "Recurrence Rule"
	ColRecurrenceBase        = "Recurrence Base"
	ColNotifyEnabled         = "Notify Enabled"
	ColNotifyDaysBefore      = "Notify Days Before"
	ColNotifyTime            = "Notify Time"
	ColNotifyLate            = "Notify Late"
	ColNotificationMessageID = "NotificationMessageId"
	ColScheduledDeleteAt     = "ScheduledDeleteAt"
	ColAttachments           = "Attachments"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusDone       = "done"
)

const (
	RecurrenceBaseDueDate        = "due_date"
	RecurrenceBaseCompletionDate = "completion_date"
)

const (
	DefaultPriority   = 4
	DefaultNotifyTime = "10:00"
)

// CompletedMessageTTL is how long a completed task's notification stays in
// the channel before cleanup deletes it.
const CompletedMessageTTL = 7 * 24 * time.Hour

// IsDoneStatus treats both spellings of "done" as equivalent.
func IsDoneStatus(status string) bool {
	return status == StatusCompleted || status == StatusDone
}

// DueDate is a due value that may or may not carry a time of day.
type DueDate struct {
	Raw  string
	Date string     // local day of the due value
	At   *time.Time // set only when Raw has a readable time component

	// Malformed is set when Raw has a time component that cannot be read.
	Malformed bool
}

func (d DueDate) IsSet() bool {
	return d.Date != ""
}

func (d DueDate) HasTime() bool {
	return d.At != nil
}

// ParseDueDate splits a stored due value. Zone-less times are read in loc,
// and a timed value is filed under its day in loc, so "2024-03-07T20:00Z"
// belongs to 2024-03-08 at UTC+7.
func ParseDueDate(raw string, loc *time.Location) DueDate {
	raw = strings.TrimSpace(raw)
	if len(raw) < 10 {
		return DueDate{}
	}
	date := raw[:10]
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return DueDate{}
	}

	due := DueDate{Raw: raw, Date: date}
	if len(raw) > 10 && (raw[10] == 'T' || raw[10] == ' ') {
		at, ok := ParseInstant(raw, loc)
		if !ok {
			due.Malformed = true
			return due
		}
		due.At = &at
		due.Date = at.In(loc).Format("2006-01-02")
	}
	return due
}

type Attachment struct {
	Title     string `json:"title,omitempty"`
	URL       string `json:"url,omitempty"`
	SignedURL string `json:"signedUrl,omitempty"`
	MimeType  string `json:"mimetype,omitempty"`
	Size      int64  `json:"size,omitempty"`
}

func (a Attachment) IsImage() bool {
	return strings.HasPrefix(a.MimeType, "image/")
}

// Link prefers the signed URL when the store provides one.
func (a Attachment) Link() string {
	if a.SignedURL != "" {
		return a.SignedURL
	}
	return a.URL
}

type Task struct {
	ID             int          `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         string       `json:"status"`
	Priority       int          `json:"priority"`
	Due            DueDate      `json:"-"`
	DueTime        string       `json:"dueTime,omitempty"`
	ProjectID      *int         `json:"projectId"`
	AssigneeID     *int         `json:"assigneeId"`
	CompletedAt    *time.Time   `json:"completedAt"`
	CreatedAt      string       `json:"createdAt,omitempty"`
	RecurrenceRule string       `json:"recurrenceRule,omitempty"`
	RecurrenceBase string       `json:"recurrenceBase"`
	Attachments    []Attachment `json:"attachments"`

	NotifyEnabled    bool   `json:"notifyEnabled"`
	NotifyDaysBefore int    `json:"notifyDaysBefore"`
	NotifyTime       string `json:"notifyTime"`
	NotifyLate       bool   `json:"notifyLate"`

	// Binding to the chat message currently representing this task.
	NotificationMessageID string     `json:"notificationMessageId,omitempty"`
	ScheduledDeleteAt     *time.Time `json:"scheduledDeleteAt,omitempty"`
}

func (t *Task) IsCompleted() bool {
	return IsDoneStatus(t.Status)
}

// Notifiable reports whether the task is open, has a due date and has
// notifications switched on.
func (t *Task) Notifiable() bool {
	return !t.IsCompleted() && t.Due.IsSet() && t.NotifyEnabled
}

func (t *Task) IsRecurring() bool {
	return t.RecurrenceRule != ""
}

// IsHighPriority is true for priority 1 and 2.
func (t *Task) IsHighPriority() bool {
	return t.Priority > 0 && t.Priority <= 2
}

// TaskFromRecord decodes a tasks-table record.
func TaskFromRecord(rec map[string]any, loc *time.Location) *Task {
	t := &Task{
		Title:                 stringValue(rec[ColTitle]),
		Description:           stringValue(rec[ColDescription]),
		Status:                stringValue(rec[ColStatus]),
		Due:                   ParseDueDate(stringValue(rec[ColDueDate]), loc),
		DueTime:               stringValue(rec[ColDueTime]),
		ProjectID:             intPtr(rec[ColProjectID]),
		AssigneeID:            intPtr(rec[ColAssigneeID]),
		CompletedAt:           timePtr(rec[ColCompletedAt], loc),
		CreatedAt:             stringValue(rec[ColCreatedAt]),
		RecurrenceRule:        stringValue(rec[ColRecurrenceRule]),
		RecurrenceBase:        stringValue(rec[ColRecurrenceBase]),
		Attachments:           attachmentsValue(rec[ColAttachments]),
		NotifyEnabled:         Truthy(rec[ColNotifyEnabled]),
		NotifyTime:            stringValue(rec[ColNotifyTime]),
		NotifyLate:            Truthy(rec[ColNotifyLate]),
		NotificationMessageID: stringValue(rec[ColNotificationMessageID]),
		ScheduledDeleteAt:     timePtr(rec[ColScheduledDeleteAt], loc),
	}
	t.ID, _ = intValue(rec[ColID])

	if t.Status == "" {
		t.Status = StatusPending
	}
	if p, ok := intValue(rec[ColPriority]); ok && p > 0 {
		t.Priority = p
	} else {
		t.Priority = DefaultPriority
	}
	if n, ok := intValue(rec[ColNotifyDaysBefore]); ok && n > 0 {
		t.NotifyDaysBefore = n
	}
	if t.NotifyTime == "" {
		t.NotifyTime = DefaultNotifyTime
	}
	if t.RecurrenceBase == "" {
		t.RecurrenceBase = RecurrenceBaseDueDate
	}
	if t.AssigneeID != nil && *t.AssigneeID == 0 {
		t.AssigneeID = nil
	}
	if t.ProjectID != nil && *t.ProjectID == 0 {
		t.ProjectID = nil
	}
	return t
}

func attachmentsValue(v any) []Attachment {
	var raw []byte
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		raw = []byte(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return nil
		}
		raw = b
	}

	var attachments []Attachment
	if err := json.Unmarshal(raw, &attachments); err != nil {
		return nil
	}
	return attachments
}

// FirstImage returns the first image attachment, if any.
func (t *Task) FirstImage() (Attachment, bool) {
	for _, a := range t.Attachments {
		if a.IsImage() && a.Link() != "" {
			return a, true
		}
	}
	return Attachment{}, false
}
