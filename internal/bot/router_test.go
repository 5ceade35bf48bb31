package bot

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tabelbot/internal/attendance"
	"tabelbot/internal/notify"
	"tabelbot/internal/schedule"
	"tabelbot/internal/storage"
	"tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
)

type fakeAdapter struct {
	sent     []string
	edits    []string
	answers  []string
	docs     []transport.Document
	markups  []any
	lastChat int64
}

func (f *fakeAdapter) Start(ctx context.Context, out chan<- transport.Update) error { return nil }
func (f *fakeAdapter) Stop(ctx context.Context) error                               { return nil }

func (f *fakeAdapter) SendText(ctx context.Context, to transport.ChatTarget, text string, opt *transport.SendOptions) (transport.MessageRef, error) {
	f.sent = append(f.sent, text)
	if opt != nil {
		f.markups = append(f.markups, opt.ReplyMarkup)
	}
	f.lastChat = to.ChatID
	return transport.MessageRef{ChatID: to.ChatID, MessageID: len(f.sent)}, nil
}

func (f *fakeAdapter) EditText(ctx context.Context, ref transport.MessageRef, text string, opt *transport.SendOptions) error {
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeAdapter) SendDocument(ctx context.Context, to transport.ChatTarget, doc transport.Document) error {
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeAdapter) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeAdapter) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("nothing sent")
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeAdapter) lastEdit(t *testing.T) string {
	t.Helper()
	if len(f.edits) == 0 {
		t.Fatal("nothing edited")
	}
	return f.edits[len(f.edits)-1]
}

const testMainAdmin int64 = 9000

func newTestRouter(t *testing.T) (*Router, *fakeAdapter) {
	t.Helper()
	dir := t.TempDir()

	st, err := storage.Open(storage.Config{
		Path:        filepath.Join(dir, "tabel.db"),
		MainAdminID: testMainAdmin,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	adapter := &fakeAdapter{}
	engine := attendance.NewEngine(st, logx.Nop())

	sched := schedule.New(schedule.Config{Workers: 1}, logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sched.Start(ctx)
	t.Cleanup(func() { sched.Stop(context.Background()) })

	notifier := notify.NewNotifier(adapter, 100, logx.Nop())
	jobs := notify.NewJobs(st, notifier, notify.JobsConfig{}, logx.Nop())
	mgr, err := notify.NewManager(filepath.Join(dir, "notif.yaml"), sched, jobs, logx.Nop())
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if err := mgr.Start(); err != nil {
		t.Fatalf("manager start: %v", err)
	}

	cfg := Config{
		MainAdminID:   testMainAdmin,
		Locations:     []string{"🏪 Магазин", "Штаб"},
		HomeLocation:  "Казарма",
		RetentionDays: 90,
	}
	return NewRouter(cfg, st, engine, mgr, adapter, logx.Nop()), adapter
}

func msgUpdate(from int64, text string) transport.Update {
	return transport.Update{
		Kind: transport.UpdateMessage,
		Message: &transport.Message{
			ID: 1, ChatID: from, FromID: from, FromUsername: "user", Text: text,
		},
	}
}

func cbUpdate(from int64, data string) transport.Update {
	return transport.Update{
		Kind: transport.UpdateCallback,
		Callback: &transport.Callback{
			ID: "cb", FromID: from, ChatID: from, MessageID: 1, Data: data,
		},
	}
}

func TestRegistrationAndMarkFlow(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()
	const user int64 = 100

	r.dispatch(ctx, msgUpdate(user, "/start"))
	if !strings.Contains(adapter.lastText(t), "ФИО") {
		t.Fatalf("expected name prompt, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, msgUpdate(user, "Иванов И.И."))
	if !strings.Contains(adapter.lastText(t), "Регистрация завершена") {
		t.Fatalf("expected registration done, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, cbUpdate(user, "action_departed"))
	if !strings.Contains(adapter.lastEdit(t), "Куда") {
		t.Fatalf("expected location prompt, got %q", adapter.lastEdit(t))
	}

	r.dispatch(ctx, cbUpdate(user, "location_0"))
	if !strings.Contains(adapter.lastEdit(t), "Комментарий") {
		t.Fatalf("expected comment prompt, got %q", adapter.lastEdit(t))
	}

	r.dispatch(ctx, cbUpdate(user, "comment_skip"))
	last := adapter.lastEdit(t)
	if !strings.Contains(last, "Убытие") || !strings.Contains(last, "Магазин") {
		t.Fatalf("expected departure confirmation, got %q", last)
	}

	r.dispatch(ctx, cbUpdate(user, "action_departed"))
	r.dispatch(ctx, cbUpdate(user, "location_1"))
	r.dispatch(ctx, cbUpdate(user, "comment_skip"))
	if !strings.Contains(adapter.lastEdit(t), "уже отмечено") {
		t.Fatalf("expected duplicate notice, got %q", adapter.lastEdit(t))
	}

	r.dispatch(ctx, cbUpdate(user, "action_arrived"))
	if !strings.Contains(adapter.lastEdit(t), "Прибытие") {
		t.Fatalf("expected arrival confirmation, got %q", adapter.lastEdit(t))
	}
}

func TestCustomLocationInput(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()
	const user int64 = 101

	r.dispatch(ctx, msgUpdate(user, "/start"))
	r.dispatch(ctx, msgUpdate(user, "Петров П.П."))

	r.dispatch(ctx, cbUpdate(user, "action_departed"))
	r.dispatch(ctx, cbUpdate(user, "location_custom"))
	if !strings.Contains(adapter.lastText(t), "Введите место") {
		t.Fatalf("expected free-text prompt, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, msgUpdate(user, "Госпиталь"))
	if !strings.Contains(adapter.lastText(t), "Комментарий") {
		t.Fatalf("expected comment prompt, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, msgUpdate(user, "вернусь к обеду"))
	last := adapter.lastText(t)
	if !strings.Contains(last, "Убытие") || !strings.Contains(last, "Госпиталь") {
		t.Fatalf("expected departure at custom location, got %q", last)
	}

	recs, err := r.store.RecordsForUser(ctx, user, 1)
	if err != nil || len(recs) != 1 {
		t.Fatalf("records = %v, %v", recs, err)
	}
	if recs[0].Comment != "вернусь к обеду" {
		t.Fatalf("comment = %q", recs[0].Comment)
	}
}

func TestUnregisteredCannotMark(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, cbUpdate(555, "action_arrived"))
	if !strings.Contains(adapter.lastEdit(t), "не зарегистрированы") {
		t.Fatalf("expected registration hint, got %q", adapter.lastEdit(t))
	}
}

func TestAdminGate(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()
	const user int64 = 102

	r.dispatch(ctx, msgUpdate(user, "/start"))
	r.dispatch(ctx, msgUpdate(user, "Сидоров С.С."))

	r.dispatch(ctx, msgUpdate(user, "/admin"))
	if !strings.Contains(adapter.lastText(t), "только администраторам") {
		t.Fatalf("expected denial, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, cbUpdate(user, "admin_menu"))
	if got := adapter.answers[len(adapter.answers)-1]; !strings.Contains(got, "администраторам") {
		t.Fatalf("expected callback denial, got %q", got)
	}

	r.dispatch(ctx, msgUpdate(testMainAdmin, "/start"))
	r.dispatch(ctx, msgUpdate(testMainAdmin, "Главный А.А."))
	r.dispatch(ctx, msgUpdate(testMainAdmin, "/admin"))
	if !strings.Contains(adapter.lastText(t), "Панель администратора") {
		t.Fatalf("expected admin panel, got %q", adapter.lastText(t))
	}
}

func TestPromoteDemoteFlow(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()
	const user int64 = 103

	r.dispatch(ctx, msgUpdate(user, "/start"))
	r.dispatch(ctx, msgUpdate(user, "Кузнецов К.К."))
	r.dispatch(ctx, msgUpdate(testMainAdmin, "/start"))
	r.dispatch(ctx, msgUpdate(testMainAdmin, "Главный А.А."))

	r.dispatch(ctx, cbUpdate(testMainAdmin, "personnel_promote_103"))
	if got := adapter.answers[len(adapter.answers)-1]; !strings.Contains(got, "Назначен") {
		t.Fatalf("expected promote ack, got %q", got)
	}

	// Now the promoted user passes the admin gate.
	r.dispatch(ctx, msgUpdate(user, "/admin"))
	if !strings.Contains(adapter.lastText(t), "Панель администратора") {
		t.Fatalf("expected admin panel for promoted user, got %q", adapter.lastText(t))
	}

	r.dispatch(ctx, cbUpdate(testMainAdmin, "personnel_demote_103"))
	r.dispatch(ctx, msgUpdate(user, "/admin"))
	if !strings.Contains(adapter.lastText(t), "только администраторам") {
		t.Fatalf("expected denial after demote, got %q", adapter.lastText(t))
	}

	// The main admin cannot be demoted.
	r.dispatch(ctx, cbUpdate(testMainAdmin, "personnel_demote_9000"))
	if got := adapter.answers[len(adapter.answers)-1]; !strings.Contains(got, "нельзя") {
		t.Fatalf("expected main-admin guard, got %q", got)
	}
}

func TestNotificationToggle(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()

	r.dispatch(ctx, msgUpdate(testMainAdmin, "/start"))
	r.dispatch(ctx, msgUpdate(testMainAdmin, "Главный А.А."))

	before := r.notif.Current().Morning.Enabled
	r.dispatch(ctx, cbUpdate(testMainAdmin, "notif_morning"))
	if r.notif.Current().Morning.Enabled == before {
		t.Fatal("morning toggle did not flip")
	}
	if got := adapter.answers[len(adapter.answers)-1]; got != "Сохранено" {
		t.Fatalf("expected save ack, got %q", got)
	}
}

func TestWipeNeedsConfirmation(t *testing.T) {
	r, adapter := newTestRouter(t)
	ctx := context.Background()
	const user int64 = 104

	r.dispatch(ctx, msgUpdate(user, "/start"))
	r.dispatch(ctx, msgUpdate(user, "Смирнов С.С."))
	r.dispatch(ctx, cbUpdate(user, "action_departed"))
	r.dispatch(ctx, cbUpdate(user, "location_0"))
	r.dispatch(ctx, cbUpdate(user, "comment_skip"))

	r.dispatch(ctx, cbUpdate(testMainAdmin, "danger_wipe"))
	if !strings.Contains(adapter.lastEdit(t), "Удалить все данные") {
		t.Fatalf("expected wipe prompt, got %q", adapter.lastEdit(t))
	}

	r.dispatch(ctx, cbUpdate(testMainAdmin, "confirm_wipe_no"))
	if _, err := r.store.GetUser(ctx, user); err != nil {
		t.Fatalf("user gone after declined wipe: %v", err)
	}

	r.dispatch(ctx, cbUpdate(testMainAdmin, "confirm_wipe_yes"))
	if _, err := r.store.GetUser(ctx, user); err == nil {
		t.Fatal("user survived confirmed wipe")
	}
}
