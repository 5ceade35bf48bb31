package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tabelbot/internal/attendance"
	"tabelbot/internal/report"
	"tabelbot/internal/storage"
	"tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
	"tabelbot/pkg/tgui"
)

const journalLimit = 10

func (r *Router) cmdStart(ctx context.Context, msg *transport.Message) {
	u, err := r.store.GetUser(ctx, msg.FromID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		r.sessions.AwaitName(msg.FromID)
		r.send(ctx, msg.ChatID,
			"Здравствуйте! Для регистрации введите ваше ФИО.\nНапример: <i>Иванов И.И.</i>", nil)
		return
	case err != nil:
		r.log.Error("get user failed", logx.Int64("user_id", msg.FromID), logx.Err(err))
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}

	r.sessions.Clear(msg.FromID)
	r.send(ctx, msg.ChatID,
		fmt.Sprintf("С возвращением, %s!\nОтметьте убытие или прибытие:", tgui.B(u.FullName)),
		mainMenu())
}

func (r *Router) handleNameInput(ctx context.Context, msg *transport.Message, text string) {
	if err := r.store.UpsertUser(ctx, msg.FromID, msg.FromUsername, text); err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	r.sessions.Clear(msg.FromID)
	r.log.Info("user registered", logx.Int64("user_id", msg.FromID))
	r.send(ctx, msg.ChatID,
		fmt.Sprintf("Регистрация завершена, %s.\nОтметьте убытие или прибытие:", tgui.B(text)),
		mainMenu())
}

func (r *Router) cmdJournal(ctx context.Context, msg *transport.Message) {
	records, err := r.store.RecordsForUser(ctx, msg.FromID, journalLimit)
	if err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	if len(records) == 0 {
		r.send(ctx, msg.ChatID, "У вас пока нет отметок.", mainMenu())
		return
	}
	var b strings.Builder
	b.WriteString("<b>Ваши последние отметки</b>\n\n")
	for _, rec := range records {
		b.WriteString(recordLine(rec, false))
		b.WriteByte('\n')
	}
	r.send(ctx, msg.ChatID, b.String(), mainMenu())
}

func (r *Router) cmdStats(ctx context.Context, msg *transport.Message) {
	if !r.isAdmin(ctx, msg.FromID) {
		r.send(ctx, msg.ChatID, "Доступно только администраторам.", nil)
		return
	}
	sum, err := r.store.StatusSummary(ctx)
	if err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	r.send(ctx, msg.ChatID, report.Summary(sum), nil)
}

func (r *Router) cmdAdmin(ctx context.Context, msg *transport.Message) {
	if !r.isAdmin(ctx, msg.FromID) {
		r.send(ctx, msg.ChatID, "Доступно только администраторам.", nil)
		return
	}
	r.send(ctx, msg.ChatID, "<b>Панель администратора</b>", adminMenu())
}

func (r *Router) cmdHelp(ctx context.Context, msg *transport.Message) {
	var b strings.Builder
	b.WriteString("<b>Команды</b>\n")
	b.WriteString("/start — регистрация и главное меню\n")
	b.WriteString("/journal — ваши последние отметки\n")
	if r.isAdmin(ctx, msg.FromID) {
		b.WriteString("/stats — сводка по личному составу\n")
		b.WriteString("/admin — панель администратора\n")
	}
	b.WriteString("/help — эта справка")
	r.send(ctx, msg.ChatID, b.String(), nil)
}

// cbMark handles the two main-menu buttons. An arrival is recorded
// immediately at the home location; a departure asks where to.
func (r *Router) cbMark(ctx context.Context, cb *transport.Callback, c MarkCmd) {
	if c.Action == storage.ActionArrived {
		r.answer(ctx, cb.ID, "")
		r.submit(ctx, cb, c.Action, r.cfg.HomeLocation, "")
		return
	}
	r.sessions.AwaitLocation(cb.FromID, c.Action)
	r.answer(ctx, cb.ID, "")
	r.edit(ctx, cb, "Куда убываете?", locationMenu(r.cfg.Locations))
}

func (r *Router) cbLocation(ctx context.Context, cb *transport.Callback, c LocationCmd) {
	switch {
	case c.Cancel:
		r.sessions.Clear(cb.FromID)
		r.answer(ctx, cb.ID, "Отменено")
		r.edit(ctx, cb, "Отметьте убытие или прибытие:", mainMenu())
	case c.Custom:
		if _, ok := r.sessions.PendingAction(cb.FromID); !ok {
			r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
			return
		}
		r.answer(ctx, cb.ID, "")
		r.send(ctx, cb.ChatID, "Введите место назначения:", nil)
	default:
		action, ok := r.sessions.PendingAction(cb.FromID)
		if !ok {
			r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
			return
		}
		if c.Index >= len(r.cfg.Locations) {
			r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
			return
		}
		r.sessions.AwaitComment(cb.FromID, action, r.cfg.Locations[c.Index])
		r.answer(ctx, cb.ID, "")
		r.edit(ctx, cb, "Комментарий? Отправьте текст или пропустите.", commentMenu())
	}
}

// cbComment resolves the optional comment step without a comment.
func (r *Router) cbComment(ctx context.Context, cb *transport.Callback, c CommentCmd) {
	action, location, ok := r.sessions.PendingSubmission(cb.FromID)
	if !ok {
		r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
		return
	}
	r.sessions.Clear(cb.FromID)
	r.answer(ctx, cb.ID, "")
	r.submit(ctx, cb, action, location, "")
}

func (r *Router) handleCommentInput(ctx context.Context, msg *transport.Message, text string) {
	action, location, ok := r.sessions.PendingSubmission(msg.FromID)
	if !ok {
		r.send(ctx, msg.ChatID, "Сессия истекла, начните заново.", mainMenu())
		return
	}
	rec, st, err := r.engine.Submit(ctx, msg.FromID, action, location, text)
	if err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	r.sessions.Clear(msg.FromID)
	r.send(ctx, msg.ChatID, markedText(rec, st), mainMenu())
}

func (r *Router) handleLocationInput(ctx context.Context, msg *transport.Message, text string) {
	action, ok := r.sessions.PendingAction(msg.FromID)
	if !ok {
		r.send(ctx, msg.ChatID, "Сессия истекла, начните заново.", mainMenu())
		return
	}
	if err := storage.ValidateLocation(text); err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	r.sessions.AwaitComment(msg.FromID, action, text)
	r.send(ctx, msg.ChatID, "Комментарий? Отправьте текст или пропустите.", commentMenu())
}

// submit records an action from a callback button and rewrites the menu
// message with the outcome.
func (r *Router) submit(ctx context.Context, cb *transport.Callback, action storage.Action, location, comment string) {
	rec, st, err := r.engine.Submit(ctx, cb.FromID, action, location, comment)
	if err != nil {
		r.sessions.Clear(cb.FromID)
		r.edit(ctx, cb, r.userErrText(err)+"\n\nОтметьте убытие или прибытие:", mainMenu())
		return
	}
	r.edit(ctx, cb, markedText(rec, st), mainMenu())
}

func markedText(rec storage.Record, st attendance.State) string {
	t := rec.Timestamp.Format("02.01.2006 15:04")
	if st.Present {
		return fmt.Sprintf("✅ %s отмечено в %s.", tgui.B("Прибытие"), t)
	}
	return fmt.Sprintf("✅ %s отмечено в %s.\nМесто: %s", tgui.B("Убытие"), t, tgui.Esc(st.Location))
}

// recordLine renders one journal entry. withName prefixes the owner's
// full name for admin views.
func recordLine(rec storage.Record, withName bool) string {
	var b strings.Builder
	b.WriteString(rec.Timestamp.Format("02.01 15:04"))
	b.WriteString(" — ")
	b.WriteString(report.ActionLabel(rec.Action))
	if withName && rec.FullName != "" {
		b.WriteString(": ")
		b.WriteString(tgui.Esc(rec.FullName).String())
	}
	if rec.Action == storage.ActionDeparted && rec.Location != "" {
		b.WriteString(" (")
		b.WriteString(tgui.Esc(rec.Location).String())
		b.WriteString(")")
	}
	if rec.Comment != "" {
		b.WriteString(" — ")
		b.WriteString(tgui.I(rec.Comment).String())
	}
	return b.String()
}
