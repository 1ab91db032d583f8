package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gandash/dash/internal/discord"
	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/store"
)

func TestDueCheckSendsOncePerDay(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 15))
	env.putTask(42, store.Record{models.ColDueDate: "2024-03-01", models.ColAssigneeID: 1.0})

	env.runChecks(t)
	env.runChecks(t)

	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "<@111> ⏰ **Due Now**")
	assert.Contains(t, msgs[0].Content, "Task 42")

	assert.Equal(t, []string{discord.CheckEmoji}, env.messenger.reactions[msgs[0].ID])
	assert.Equal(t, msgs[0].ID, env.task(t, 42).NotificationMessageID)
	assert.True(t, env.sched.ledger.HasFired("due-42-2024-03-01"))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.sched.metrics.notificationsSent.WithLabelValues("due")))
}

func TestDueCheckDateOnlyWaitsForNineOClock(t *testing.T) {
	env := newTestEnv(t, at(1, 8, 59))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01"})

	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(1, 9, 0))
	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())
}

func TestDueCheckTimestampedWaitsForInstant(t *testing.T) {
	env := newTestEnv(t, at(1, 14, 0))
	// 07:30Z is 14:30 in UTC+7.
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01T07:30:00.000Z"})
	// 00:00Z is 07:00 in UTC+7, before the date-only hour.
	env.putTask(2, store.Record{models.ColDueDate: "2024-03-01T00:00:00.000Z"})

	env.setNow(at(1, 7, 0))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Task 2")
	assert.Contains(t, msgs[0].Content, "Due at 7:00 AM")

	env.setNow(at(1, 14, 29))
	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())

	env.setNow(at(1, 14, 30))
	env.runChecks(t)
	msgs = env.messenger.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "Task 1")
	assert.Contains(t, msgs[1].Content, "Due at 2:30 PM")
}

func TestDueCheckSkipsIneligibleTasks(t *testing.T) {
	env := newTestEnv(t, at(1, 12, 0))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01", models.ColStatus: models.StatusDone})
	env.putTask(2, store.Record{models.ColDueDate: "2024-03-01", models.ColStatus: models.StatusCompleted})
	env.putTask(3, store.Record{models.ColDueDate: "2024-03-02"})
	env.putTask(4, store.Record{})
	env.putTask(5, store.Record{models.ColDueDate: "2024-03-01", models.ColNotifyEnabled: false})

	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())
}

func TestNotifyEnabledTriForm(t *testing.T) {
	tests := []struct {
		name  string
		value any
		fires bool
	}{
		{"bool true", true, true},
		{"string true", "true", true},
		{"number 1", 1.0, true},
		{"bool false", false, false},
		{"string false", "false", false},
		{"number 0", 0.0, false},
		{"missing", nil, false},
		{"string 1", "1", false},
		{"number 2", 2.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, at(1, 10, 30))
			env.putTask(1, store.Record{
				models.ColDueDate:       "2024-03-01",
				models.ColNotifyEnabled: tt.value,
			})
			// Same flag drives the late check through Notify Late.
			env.putTask(2, store.Record{
				models.ColDueDate:       "2024-02-20",
				models.ColNotifyEnabled: true,
				models.ColNotifyLate:    tt.value,
			})

			env.runChecks(t)

			want := 0
			if tt.fires {
				want = 2
			}
			assert.Equal(t, want, env.messenger.sentCount())
		})
	}
}

func TestSendFailureIsRetriedNextTick(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 0))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01"})

	env.messenger.sendErr = errors.New("discord down")
	env.runChecks(t)
	assert.False(t, env.sched.ledger.HasFired("due-1-2024-03-01"))
	assert.Empty(t, env.task(t, 1).NotificationMessageID)

	env.messenger.sendErr = nil
	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())
	assert.True(t, env.sched.ledger.HasFired("due-1-2024-03-01"))
}

func TestLedgerResetAllowsNotifyingAgain(t *testing.T) {
	env := newTestEnv(t, at(1, 10, 15))
	env.putTask(7, store.Record{
		models.ColDueDate:    "2024-02-28",
		models.ColNotifyLate: true,
	})

	env.runChecks(t)
	env.runChecks(t)
	require.Equal(t, 1, env.messenger.sentCount())

	// Midnight reset, then the next day's window.
	env.sched.ledger.ResetAll()
	env.setNow(at(2, 10, 0))
	env.runChecks(t)
	assert.Equal(t, 2, env.messenger.sentCount())

	// Within the same day a reset re-arms the same key.
	env.sched.ledger.ResetAll()
	env.runChecks(t)
	assert.Equal(t, 3, env.messenger.sentCount())
}

func TestAdvanceReminderArithmetic(t *testing.T) {
	env := newTestEnv(t, at(1, 13, 59))
	env.putTask(5, store.Record{
		models.ColDueDate:          "2024-03-04",
		models.ColNotifyDaysBefore: 3.0,
		models.ColNotifyTime:       "14:45",
	})

	// Right day, before the notify hour.
	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	// Minutes are ignored for gating.
	env.setNow(at(1, 14, 0))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "🔔 **Reminder (3d left)**")
	assert.True(t, env.sched.ledger.HasFired("reminder-5-2024-03-01"))

	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())

	// D-2 is not a reminder day.
	env.sched.ledger.ResetAll()
	env.setNow(at(2, 15, 0))
	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())
}

func TestAdvanceReminderCrossesMonthBoundary(t *testing.T) {
	env := newTestEnv(t, time.Date(2024, time.February, 28, 10, 0, 0, 0, plus7))
	env.putTask(1, store.Record{
		models.ColDueDate:          "2024-03-02",
		models.ColNotifyDaysBefore: 3.0,
	})

	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())
}

func TestAdvanceReminderDefaultsAndDisabled(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 30))
	env.putTask(1, store.Record{
		models.ColDueDate:          "2024-03-02",
		models.ColNotifyDaysBefore: 1.0,
	})
	env.putTask(2, store.Record{
		models.ColDueDate:          "2024-03-02",
		models.ColNotifyDaysBefore: 0.0,
	})

	// Default notify time is 10:00.
	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(1, 10, 0))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Task 1")
}

func TestLateCheckWindow(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 59))
	env.putTask(1, store.Record{
		models.ColDueDate:    "2024-02-29",
		models.ColNotifyLate: true,
	})
	env.putTask(2, store.Record{
		models.ColDueDate: "2024-02-29",
	})

	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(1, 11, 0))
	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(1, 10, 45))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "🚨 **OVERDUE**")
	assert.Contains(t, msgs[0].Content, "Task 1")
	assert.True(t, env.sched.ledger.HasFired("late-1-2024-03-01"))
}

func TestLateCheckIgnoresTasksDueToday(t *testing.T) {
	env := newTestEnv(t, at(1, 10, 0))
	env.putTask(1, store.Record{
		models.ColDueDate:    "2024-03-01T01:00:00Z",
		models.ColNotifyLate: true,
	})

	require.NoError(t, env.sched.checkLateTasks(context.Background()))
	assert.Zero(t, env.messenger.sentCount())
}

func TestRebindOverwritesPreviousMessage(t *testing.T) {
	env := newTestEnv(t, at(1, 10, 0))
	env.putTask(1, store.Record{
		models.ColDueDate:               "2024-03-01",
		models.ColNotificationMessageID: "old",
	})

	require.NoError(t, env.sched.checkDueTasks(context.Background()))

	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgs[0].ID, env.task(t, 1).NotificationMessageID)
	assert.Empty(t, env.messenger.deleted)
}

func TestReactionCompletesTask(t *testing.T) {
	now := at(1, 16, 0)
	env := newTestEnv(t, now)
	env.putTask(3, store.Record{
		models.ColDueDate:               "2024-03-01",
		models.ColPriority:              1.0,
		models.ColNotificationMessageID: "m-bound",
	})
	env.messenger.reactors["m-bound"] = []*discordgo.User{
		{ID: "bot", Bot: true},
		{ID: "222", Username: "ivy"},
	}

	require.NoError(t, env.sched.checkReactionCompletions(context.Background()))

	task := env.task(t, 3)
	assert.Equal(t, models.StatusDone, task.Status)
	assert.True(t, task.IsCompleted())
	require.NotNil(t, task.CompletedAt)
	assert.True(t, now.Equal(*task.CompletedAt))
	require.NotNil(t, task.ScheduledDeleteAt)
	assert.True(t, now.AddDate(0, 0, 7).Equal(*task.ScheduledDeleteAt))
	assert.Equal(t, "m-bound", task.NotificationMessageID)

	embed := env.messenger.edits["m-bound"]
	require.NotNil(t, embed)
	assert.Equal(t, "Completed by <@222>", embed.Description)
	assert.Equal(t, "✅ Task 3", embed.Title)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.sched.metrics.completedByReaction))

	// The completed task is not looked at again.
	env.messenger.edits = map[string]*discordgo.MessageEmbed{}
	lookups := len(env.messenger.lookups)
	require.NoError(t, env.sched.checkReactionCompletions(context.Background()))
	assert.Empty(t, env.messenger.edits)
	assert.Len(t, env.messenger.lookups, lookups)
}

func TestReactionByBotOnlyDoesNotComplete(t *testing.T) {
	env := newTestEnv(t, at(1, 16, 0))
	env.putTask(3, store.Record{models.ColNotificationMessageID: "m-bound"})
	env.messenger.reactors["m-bound"] = []*discordgo.User{{ID: "bot", Bot: true}}

	require.NoError(t, env.sched.checkReactionCompletions(context.Background()))

	assert.False(t, env.task(t, 3).IsCompleted())
	assert.Empty(t, env.messenger.edits)
}

func TestReactionLookupErrorSkipsTask(t *testing.T) {
	env := newTestEnv(t, at(1, 16, 0))
	env.putTask(3, store.Record{models.ColNotificationMessageID: "m-bound"})
	env.messenger.reactorsErr = errors.New("forbidden")

	require.NoError(t, env.sched.checkReactionCompletions(context.Background()))
	assert.False(t, env.task(t, 3).IsCompleted())
}

func TestCleanupTearsDownBinding(t *testing.T) {
	env := newTestEnv(t, at(8, 16, 0))
	env.putTask(1, store.Record{
		models.ColStatus:                models.StatusDone,
		models.ColNotificationMessageID: "m-old",
		models.ColScheduledDeleteAt:     "2024-03-08T09:00:00.000Z",
	})
	env.putTask(2, store.Record{
		models.ColStatus:                models.StatusDone,
		models.ColNotificationMessageID: "m-new",
		models.ColScheduledDeleteAt:     "2024-03-14T09:00:00.000Z",
	})

	require.NoError(t, env.sched.cleanupOldMessages(context.Background()))

	assert.Equal(t, []string{"m-old"}, env.messenger.deleted)

	rec := env.record(t, store.TableTasks, 1)
	assert.Nil(t, rec[models.ColNotificationMessageID])
	assert.Nil(t, rec[models.ColScheduledDeleteAt])

	untouched := env.task(t, 2)
	assert.Equal(t, "m-new", untouched.NotificationMessageID)
	assert.NotNil(t, untouched.ScheduledDeleteAt)
}

func TestCleanupFailedDeleteKeepsBinding(t *testing.T) {
	env := newTestEnv(t, at(8, 16, 0))
	env.putTask(1, store.Record{
		models.ColStatus:                models.StatusDone,
		models.ColNotificationMessageID: "m-old",
		models.ColScheduledDeleteAt:     "2024-03-08T09:00:00.000Z",
	})
	env.messenger.deleteErr = errors.New("forbidden")

	require.NoError(t, env.sched.cleanupOldMessages(context.Background()))

	task := env.task(t, 1)
	assert.Equal(t, "m-old", task.NotificationMessageID)
	assert.NotNil(t, task.ScheduledDeleteAt)
}

func TestReactionThenCleanupLifecycle(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 0))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01"})

	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	bound := msgs[0].ID

	env.messenger.reactors[bound] = []*discordgo.User{{ID: "111"}}
	env.setNow(at(1, 9, 15))
	env.runChecks(t)
	assert.True(t, env.task(t, 1).IsCompleted())
	assert.Empty(t, env.messenger.deleted)

	env.setNow(at(8, 9, 15))
	env.runChecks(t)
	assert.Equal(t, []string{bound}, env.messenger.deleted)
	assert.Empty(t, env.task(t, 1).NotificationMessageID)
}

func TestRunAllChecksIsolatesFailures(t *testing.T) {
	env := newTestEnvWithStore(t, at(1, 10, 0), func(s store.Store) store.Store {
		return failingStore{Store: s, table: store.TableTasks}
	})

	err := env.sched.RunAllChecks(context.Background())
	require.Error(t, err)
	for _, name := range []string{"due check", "advance_reminder check", "late check", "reaction_completion check", "cleanup check"} {
		assert.Contains(t, err.Error(), name)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(env.sched.metrics.checkFailures.WithLabelValues("cleanup")))
}

func TestRunJobRecoversPanics(t *testing.T) {
	env := newTestEnv(t, at(1, 10, 0))

	err := env.sched.runJob(context.Background(), "boom", func(context.Context) error {
		panic("bad record")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad record")
}

func TestDueCheckFilesUTCStampUnderLocalDay(t *testing.T) {
	// 20:00Z on the 7th is 03:00 on the 8th in UTC+7.
	env := newTestEnv(t, at(7, 23, 59))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-07T20:00:00.000Z"})

	env.runChecks(t)
	env.setNow(at(8, 2, 59))
	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(8, 3, 0))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Due at 3:00 AM")
	assert.True(t, env.sched.ledger.HasFired("due-1-2024-03-08"))

	env.setNow(at(8, 12, 0))
	env.runChecks(t)
	assert.Equal(t, 1, env.messenger.sentCount())
}

func TestAdvanceReminderUsesLocalDayOfUTCStamp(t *testing.T) {
	env := newTestEnv(t, at(6, 10, 0))
	env.putTask(1, store.Record{
		models.ColDueDate:          "2024-03-07T20:00:00.000Z",
		models.ColNotifyDaysBefore: 1.0,
		models.ColNotifyTime:       "10:00",
	})

	env.runChecks(t)
	assert.Zero(t, env.messenger.sentCount())

	env.setNow(at(7, 10, 0))
	env.runChecks(t)
	msgs := env.messenger.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Reminder (1d left)")
}

func TestDueCheckSkipsUnreadableDueTime(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 0))
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01T25:00"})

	env.runChecks(t)
	env.setNow(at(1, 23, 0))
	env.runChecks(t)

	assert.Zero(t, env.messenger.sentCount())
	assert.False(t, env.sched.ledger.HasFired("due-1-2024-03-01"))
}

func TestUnpostedNotificationIsNotCounted(t *testing.T) {
	env := newTestEnv(t, at(1, 9, 15))
	env.messenger.unposted = true
	env.putTask(1, store.Record{models.ColDueDate: "2024-03-01"})

	env.runChecks(t)

	assert.Zero(t, testutil.ToFloat64(env.sched.metrics.notificationsSent.WithLabelValues("due")))
	assert.True(t, env.sched.ledger.HasFired("due-1-2024-03-01"))
	assert.Empty(t, env.task(t, 1).NotificationMessageID)
}
