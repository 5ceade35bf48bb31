package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tabelbot/internal/report"
	"tabelbot/internal/schedule"
	"tabelbot/internal/storage"
	kit "tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
)

// Store is the slice of the persistence layer the jobs need.
type Store interface {
	StatusSummary(ctx context.Context) (storage.Summary, error)
	RecordsInWindow(ctx context.Context, days, limit int) ([]storage.Record, error)
	ListAdmins(ctx context.Context) ([]storage.Admin, error)
	PurgeOlderThan(ctx context.Context, days int) (int64, error)
	MainAdminID() int64
}

type JobsConfig struct {
	RetentionDays int    // 0 disables retention cleanup
	CleanupAt     string // HH:MM, defaults to 03:30
}

// Jobs holds the scheduled notification job bodies. The scheduler fires
// them; each firing produces at most one outbound batch, and a firing
// inside the quiet-hours window is skipped outright (no deferral).
type Jobs struct {
	store    Store
	notifier *Notifier
	cfg      JobsConfig
	log      logx.Logger

	now func() time.Time // test hook

	mu       sync.Mutex
	settings Settings
}

func NewJobs(store Store, notifier *Notifier, cfg JobsConfig, log logx.Logger) *Jobs {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Jobs{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		settings: DefaultSettings(),
	}
}

// Register wires the enabled jobs into the scheduler. Call sched.Reset()
// first when re-registering after a settings change.
func (j *Jobs) Register(sched *schedule.Service, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	j.mu.Lock()
	j.settings = st
	j.mu.Unlock()

	const jobTimeout = time.Minute

	if st.Morning.Enabled {
		if _, err := sched.AddDaily("morning_reminder", st.Morning.At, jobTimeout, j.MorningReminder); err != nil {
			return fmt.Errorf("morning reminder: %w", err)
		}
	}
	if st.Evening.Enabled {
		if _, err := sched.AddDaily("evening_reminder", st.Evening.At, jobTimeout, j.EveningReminder); err != nil {
			return fmt.Errorf("evening reminder: %w", err)
		}
	}
	if st.Weekly.Enabled {
		if _, err := sched.AddWeekly("weekly_report", time.Weekday(st.Weekly.Weekday), st.Weekly.At, 2*jobTimeout, j.WeeklyReport); err != nil {
			return fmt.Errorf("weekly report: %w", err)
		}
	}
	if j.cfg.RetentionDays > 0 {
		at := j.cfg.CleanupAt
		if at == "" {
			at = "03:30"
		}
		if _, err := sched.AddDaily("retention_cleanup", at, jobTimeout, j.RetentionCleanup); err != nil {
			return fmt.Errorf("retention cleanup: %w", err)
		}
	}
	return nil
}

func (j *Jobs) quiet() QuietHours {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.settings.Quiet
}

// recipients is the admin set: every appointed admin plus the main admin.
func (j *Jobs) recipients(ctx context.Context) ([]int64, error) {
	admins, err := j.store.ListAdmins(ctx)
	if err != nil {
		return nil, err
	}
	seen := map[int64]bool{}
	out := make([]int64, 0, len(admins)+1)
	add := func(id int64) {
		if id != 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	add(j.store.MainAdminID())
	for _, a := range admins {
		add(a.UserID)
	}
	return out, nil
}

func (j *Jobs) MorningReminder(ctx context.Context) error {
	return j.sendSummary(ctx, "☀️ Утренняя сводка")
}

func (j *Jobs) EveningReminder(ctx context.Context) error {
	return j.sendSummary(ctx, "🌙 Вечерняя сводка")
}

func (j *Jobs) sendSummary(ctx context.Context, title string) error {
	if j.quiet().Suppressed(j.now()) {
		j.log.Debug("reminder suppressed by quiet hours")
		return nil
	}
	sum, err := j.store.StatusSummary(ctx)
	if err != nil {
		return err
	}
	recipients, err := j.recipients(ctx)
	if err != nil {
		return err
	}
	text := title + "\n\n" + report.Summary(sum)
	sent := j.notifier.Broadcast(ctx, recipients, text, nil)
	j.log.Info("reminder sent", logx.Int("recipients", len(recipients)), logx.Int("delivered", sent))
	return nil
}

// WeeklyReport sends the last week's summary with the spreadsheet attached.
func (j *Jobs) WeeklyReport(ctx context.Context) error {
	if j.quiet().Suppressed(j.now()) {
		j.log.Debug("weekly report suppressed by quiet hours")
		return nil
	}
	recipients, err := j.recipients(ctx)
	if err != nil {
		return err
	}
	records, err := j.store.RecordsInWindow(ctx, 7, 5000)
	if err != nil {
		return err
	}

	sum, err := j.store.StatusSummary(ctx)
	if err != nil {
		return err
	}
	text := "📊 Отчёт за неделю\n\n" + report.Summary(sum)

	if len(records) == 0 {
		j.notifier.Broadcast(ctx, recipients, text+"\nЗа неделю записей нет.", nil)
		return nil
	}

	dir, err := os.MkdirTemp("", "tabel-weekly-*")
	if err != nil {
		return err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	now := j.now()
	path, err := report.WriteXLSX(records, dir, now)
	if err != nil {
		return err
	}

	j.notifier.Broadcast(ctx, recipients, text, nil)
	sent := j.notifier.BroadcastDocument(ctx, recipients, kit.Document{
		Path:     path,
		FileName: filepath.Base(path),
		Caption:  fmt.Sprintf("Журнал за неделю, записей: %d", len(records)),
	})
	j.log.Info("weekly report sent", logx.Int("recipients", len(recipients)), logx.Int("delivered", sent))
	return nil
}

// RetentionCleanup deletes records older than the retention window.
func (j *Jobs) RetentionCleanup(ctx context.Context) error {
	n, err := j.store.PurgeOlderThan(ctx, j.cfg.RetentionDays)
	if err != nil {
		return err
	}
	if n > 0 {
		j.log.Info("old records purged", logx.Int("days", j.cfg.RetentionDays), logx.Any("deleted", n))
	}
	return nil
}
