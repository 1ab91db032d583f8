package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/gandash/dash/internal/clock"
	"github.com/gandash/dash/internal/directory"
	"github.com/gandash/dash/internal/logger"
	"github.com/gandash/dash/internal/models"
	"github.com/gandash/dash/internal/repository"
	"github.com/gandash/dash/internal/store"
)

var plus7 = time.FixedZone("UTC+7", 7*60*60)

// at returns a wall-clock time in UTC+7.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, time.March, day, hour, minute, 0, 0, plus7)
}

type sentMessage struct {
	ID      string
	Content string
}

type fakeMessenger struct {
	mu sync.Mutex

	nextID    int
	sent      []sentMessage
	reactions map[string][]string
	edits     map[string]*discordgo.MessageEmbed
	deleted   []string
	reactors  map[string][]*discordgo.User
	lookups   []string

	sendErr     error
	deleteErr   error
	reactorsErr error
	// unposted mimics a client without a token: sends succeed with no id.
	unposted bool
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		reactions: make(map[string][]string),
		edits:     make(map[string]*discordgo.MessageEmbed),
		reactors:  make(map[string][]*discordgo.User),
	}
}

func (f *fakeMessenger) Send(_ context.Context, content, mentionID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	if f.unposted {
		return "", nil
	}
	if mentionID != "" {
		content = "<@" + mentionID + "> " + content
	}
	f.nextID++
	id := fmt.Sprintf("m%d", f.nextID)
	f.sent = append(f.sent, sentMessage{ID: id, Content: content})
	return id, nil
}

func (f *fakeMessenger) EditEmbed(_ context.Context, messageID string, embed *discordgo.MessageEmbed) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits[messageID] = embed
	return nil
}

func (f *fakeMessenger) Delete(_ context.Context, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeMessenger) AddReaction(_ context.Context, messageID, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions[messageID] = append(f.reactions[messageID], emoji)
	return nil
}

func (f *fakeMessenger) Reactors(_ context.Context, messageID, _ string) ([]*discordgo.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups = append(f.lookups, messageID)
	if f.reactorsErr != nil {
		return nil, f.reactorsErr
	}
	return f.reactors[messageID], nil
}

func (f *fakeMessenger) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeMessenger) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// failingStore fails every list of one table.
type failingStore struct {
	store.Store
	table string
}

func (f failingStore) List(ctx context.Context, table string) ([]store.Record, error) {
	if table == f.table {
		return nil, errors.New("store unavailable")
	}
	return f.Store.List(ctx, table)
}

type testEnv struct {
	sched     *Scheduler
	mem       *store.Memory
	messenger *fakeMessenger
	tasks     *repository.TaskRepository
	reminders *repository.ReminderRepository
	registry  *prometheus.Registry

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	e.now = t
	e.mu.Unlock()
}

func (e *testEnv) currentTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, now, nil)
}

func newTestEnvWithStore(t *testing.T, now time.Time, wrap func(store.Store) store.Store) *testEnv {
	t.Helper()

	env := &testEnv{
		mem:       store.NewMemory(store.TableTasks, store.TableReminders),
		messenger: newFakeMessenger(),
		registry:  prometheus.NewRegistry(),
		now:       now,
	}

	var s store.Store = env.mem
	if wrap != nil {
		s = wrap(s)
	}

	clk := clock.NewFixed(7).WithNow(env.currentTime)
	env.tasks = repository.NewTaskRepository(s, clk.Location())
	env.reminders = repository.NewReminderRepository(s, clk.Location())
	people := directory.New(
		models.Person{ID: 1, Name: "Brendon", DiscordID: "111"},
		models.Person{ID: 2, Name: "Ivy", DiscordID: "222"},
	)

	sched, err := New(env.tasks, env.reminders, people, env.messenger, clk, logger.Nop(), Options{
		CheckInterval:     time.Hour,
		InitialCheckDelay: time.Millisecond,
		SummaryAt:         "08:00",
		ArchiveAt:         "23:00",
		Registerer:        env.registry,
	})
	require.NoError(t, err)
	env.sched = sched
	return env
}

func (e *testEnv) putTask(id int, fields store.Record) {
	rec := store.Record{
		models.ColTitle:         fmt.Sprintf("Task %d", id),
		models.ColStatus:        models.StatusPending,
		models.ColNotifyEnabled: true,
	}
	for k, v := range fields {
		rec[k] = v
	}
	e.mem.Put(store.TableTasks, id, rec)
}

func (e *testEnv) task(t *testing.T, id int) *models.Task {
	t.Helper()
	task, err := e.tasks.GetByID(context.Background(), id)
	require.NoError(t, err)
	return task
}

func (e *testEnv) record(t *testing.T, table string, id int) store.Record {
	t.Helper()
	rec, err := e.mem.Get(context.Background(), table, id)
	require.NoError(t, err)
	return rec
}

func (e *testEnv) runChecks(t *testing.T) {
	t.Helper()
	require.NoError(t, e.sched.RunAllChecks(context.Background()))
}
