package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"tabelbot/internal/storage"
	kit "tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
)

type fakeStore struct {
	summary storage.Summary
	records []storage.Record
	admins  []storage.Admin
	purged  int
}

func (f *fakeStore) StatusSummary(context.Context) (storage.Summary, error) { return f.summary, nil }
func (f *fakeStore) RecordsInWindow(_ context.Context, _, _ int) ([]storage.Record, error) {
	return f.records, nil
}
func (f *fakeStore) ListAdmins(context.Context) ([]storage.Admin, error) { return f.admins, nil }
func (f *fakeStore) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	f.purged++
	return 3, nil
}
func (f *fakeStore) MainAdminID() int64 { return 1 }

type fakeSender struct {
	mu      sync.Mutex
	texts   []string
	toIDs   []int64
	docs    []kit.Document
	failFor int64 // chat id that always fails
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to.ChatID == f.failFor {
		return kit.MessageRef{}, errors.New("blocked by user")
	}
	f.texts = append(f.texts, text)
	f.toIDs = append(f.toIDs, to.ChatID)
	return kit.MessageRef{ChatID: to.ChatID, MessageID: len(f.texts)}, nil
}

func (f *fakeSender) SendDocument(_ context.Context, to kit.ChatTarget, doc kit.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if to.ChatID == f.failFor {
		return errors.New("blocked by user")
	}
	f.docs = append(f.docs, doc)
	return nil
}

func newTestJobs(st *fakeStore, snd *fakeSender) *Jobs {
	n := NewNotifier(snd, 100, logx.Nop())
	return NewJobs(st, n, JobsConfig{RetentionDays: 30}, logx.Nop())
}

func TestMorningReminderFanOut(t *testing.T) {
	st := &fakeStore{
		summary: storage.Summary{Total: 2, Present: 1, Absent: 1,
			ByLocation: []storage.LocationGroup{{Location: "Магазин", Names: []string{"Петров П.П."}}}},
		admins: []storage.Admin{{UserID: 42}, {UserID: 1}}, // 1 duplicates the main admin
	}
	snd := &fakeSender{}
	j := newTestJobs(st, snd)

	if err := j.MorningReminder(context.Background()); err != nil {
		t.Fatalf("MorningReminder: %v", err)
	}
	if len(snd.texts) != 2 {
		t.Fatalf("delivered %d messages, want 2 (main admin deduped)", len(snd.texts))
	}
	if !strings.Contains(snd.texts[0], "Магазин") {
		t.Fatalf("summary missing location:\n%s", snd.texts[0])
	}
}

func TestReminderSkippedInQuietHours(t *testing.T) {
	st := &fakeStore{}
	snd := &fakeSender{}
	j := newTestJobs(st, snd)

	s := DefaultSettings()
	s.Quiet = QuietHours{Enabled: true, From: "22:00", To: "07:00"}
	j.mu.Lock()
	j.settings = s
	j.mu.Unlock()
	j.now = func() time.Time { return time.Date(2024, 3, 11, 23, 0, 0, 0, time.UTC) }

	if err := j.EveningReminder(context.Background()); err != nil {
		t.Fatalf("EveningReminder: %v", err)
	}
	if len(snd.texts) != 0 {
		t.Fatalf("quiet hours did not suppress: %d messages", len(snd.texts))
	}
}

func TestDeliveryFailureDoesNotAbortFanOut(t *testing.T) {
	st := &fakeStore{admins: []storage.Admin{{UserID: 42}, {UserID: 43}}}
	snd := &fakeSender{failFor: 42}
	j := newTestJobs(st, snd)

	if err := j.MorningReminder(context.Background()); err != nil {
		t.Fatalf("MorningReminder: %v", err)
	}
	// main admin (1) and 43 succeed, 42 is skipped.
	if len(snd.toIDs) != 2 {
		t.Fatalf("delivered to %v, want 2 recipients", snd.toIDs)
	}
}

func TestWeeklyReportAttachesSpreadsheet(t *testing.T) {
	st := &fakeStore{
		records: []storage.Record{{
			FullName: "Петров П.П.", Action: storage.ActionDeparted,
			Location: "Магазин", Timestamp: time.Now(),
		}},
	}
	snd := &fakeSender{}
	j := newTestJobs(st, snd)

	if err := j.WeeklyReport(context.Background()); err != nil {
		t.Fatalf("WeeklyReport: %v", err)
	}
	if len(snd.docs) != 1 {
		t.Fatalf("sent %d documents, want 1", len(snd.docs))
	}
	if !strings.HasPrefix(snd.docs[0].FileName, "tabel_") || !strings.HasSuffix(snd.docs[0].FileName, ".xlsx") {
		t.Fatalf("document name = %q", snd.docs[0].FileName)
	}
}

func TestWeeklyReportNoData(t *testing.T) {
	st := &fakeStore{}
	snd := &fakeSender{}
	j := newTestJobs(st, snd)

	if err := j.WeeklyReport(context.Background()); err != nil {
		t.Fatalf("WeeklyReport: %v", err)
	}
	if len(snd.docs) != 0 {
		t.Fatal("empty week still produced a file")
	}
	if len(snd.texts) != 1 || !strings.Contains(snd.texts[0], "записей нет") {
		t.Fatalf("texts = %v", snd.texts)
	}
}

func TestRetentionCleanup(t *testing.T) {
	st := &fakeStore{}
	j := newTestJobs(st, &fakeSender{})
	if err := j.RetentionCleanup(context.Background()); err != nil {
		t.Fatalf("RetentionCleanup: %v", err)
	}
	if st.purged != 1 {
		t.Fatalf("purge calls = %d", st.purged)
	}
}
