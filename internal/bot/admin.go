package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabelbot/internal/notify"
	"tabelbot/internal/report"
	"tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
	"tabelbot/pkg/tgui"
)

const (
	filterLimit = 30
	exportLimit = 5000
)

func (r *Router) cbAdminPanel(ctx context.Context, cb *transport.Callback, c AdminCmd) {
	r.answer(ctx, cb.ID, "")
	switch c.Panel {
	case "menu":
		r.edit(ctx, cb, "<b>Панель администратора</b>", adminMenu())
	case "personnel":
		r.edit(ctx, cb, "<b>Личный состав</b>", personnelMenu())
	case "analytics":
		sum, err := r.store.StatusSummary(ctx)
		if err != nil {
			r.edit(ctx, cb, r.userErrText(err), adminMenu())
			return
		}
		r.edit(ctx, cb, report.Summary(sum)+"\n\nЖурнал за период:", filterMenu())
	case "export":
		r.edit(ctx, cb, "<b>Экспорт журнала</b>\nВыберите формат и период:", exportMenu())
	case "notifications":
		r.edit(ctx, cb, "<b>Уведомления</b>\nНажмите на пункт, чтобы включить или выключить:", notifMenu(r.notif.Current()))
	case "settings":
		r.edit(ctx, cb, r.settingsText(ctx), settingsMenu())
	case "danger":
		r.edit(ctx, cb, "<b>Опасная зона</b>\nДействия ниже необратимы.", dangerMenu())
	}
}

func (r *Router) cbExport(ctx context.Context, cb *transport.Callback, c ExportCmd) {
	records, err := r.store.RecordsInWindow(ctx, c.Days, exportLimit)
	if err != nil {
		r.answer(ctx, cb.ID, r.userErrText(err))
		return
	}
	if len(records) == 0 {
		r.answer(ctx, cb.ID, "За выбранный период записей нет.")
		return
	}
	r.answer(ctx, cb.ID, "Готовлю файл...")

	dir, err := os.MkdirTemp("", "tabel-export-*")
	if err != nil {
		r.log.Error("export temp dir", logx.Err(err))
		r.send(ctx, cb.ChatID, "Произошла ошибка, попробуйте позже.", nil)
		return
	}
	defer func() { _ = os.RemoveAll(dir) }()

	now := time.Now()
	var path string
	if c.Format == "xlsx" {
		path, err = report.WriteXLSX(records, dir, now)
	} else {
		path, err = report.WriteText(records, dir, now)
	}
	if err != nil {
		r.log.Error("export build failed", logx.String("format", c.Format), logx.Err(err))
		r.send(ctx, cb.ChatID, "Произошла ошибка, попробуйте позже.", nil)
		return
	}

	doc := transport.Document{
		Path:     path,
		FileName: filepath.Base(path),
		Caption:  fmt.Sprintf("Журнал за %s, записей: %d", daysLabel(c.Days), len(records)),
	}
	if err := r.adapter.SendDocument(ctx, transport.ChatTarget{ChatID: cb.ChatID}, doc); err != nil {
		r.log.Error("export send failed", logx.Err(err))
		r.send(ctx, cb.ChatID, "Не удалось отправить файл.", nil)
	}
}

func (r *Router) cbFilter(ctx context.Context, cb *transport.Callback, c FilterCmd) {
	r.answer(ctx, cb.ID, "")
	records, err := r.store.RecordsInWindow(ctx, c.Days, filterLimit)
	if err != nil {
		r.edit(ctx, cb, r.userErrText(err), adminMenu())
		return
	}
	if len(records) == 0 {
		r.edit(ctx, cb, fmt.Sprintf("За %s записей нет.", daysLabel(c.Days)), filterMenu())
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Журнал за %s</b>\n\n", daysLabel(c.Days))
	for _, rec := range records {
		b.WriteString(recordLine(rec, true))
		b.WriteByte('\n')
	}
	r.edit(ctx, cb, b.String(), filterMenu())
}

func (r *Router) cbPersonnel(ctx context.Context, cb *transport.Callback, c PersonnelCmd) {
	switch c.Op {
	case "list":
		r.answer(ctx, cb.ID, "")
		users, err := r.store.ListUsers(ctx)
		if err != nil {
			r.edit(ctx, cb, r.userErrText(err), personnelMenu())
			return
		}
		if len(users) == 0 {
			r.edit(ctx, cb, "Пока никто не зарегистрирован.", personnelMenu())
			return
		}
		r.edit(ctx, cb, fmt.Sprintf("<b>Личный состав</b> (%d):", len(users)), personnelListMenu(users))

	case "search":
		r.sessions.AwaitSearch(cb.FromID)
		r.answer(ctx, cb.ID, "")
		r.send(ctx, cb.ChatID, "Введите фамилию или её часть:", nil)

	case "show":
		r.answer(ctx, cb.ID, "")
		r.showUserCard(ctx, cb, c.UserID)

	case "rename":
		if _, err := r.store.GetUser(ctx, c.UserID); err != nil {
			r.answer(ctx, cb.ID, r.userErrText(err))
			return
		}
		r.sessions.AwaitRename(cb.FromID, c.UserID)
		r.answer(ctx, cb.ID, "")
		r.send(ctx, cb.ChatID, "Введите новое ФИО:", nil)

	case "promote":
		if err := r.store.AddAdmin(ctx, c.UserID, cb.FromID); err != nil {
			r.answer(ctx, cb.ID, r.userErrText(err))
			return
		}
		r.answer(ctx, cb.ID, "Назначен администратором")
		r.showUserCard(ctx, cb, c.UserID)

	case "demote":
		if err := r.store.RemoveAdmin(ctx, c.UserID); err != nil {
			r.answer(ctx, cb.ID, r.userErrText(err))
			return
		}
		r.answer(ctx, cb.ID, "Права администратора сняты")
		r.showUserCard(ctx, cb, c.UserID)
	}
}

func (r *Router) showUserCard(ctx context.Context, cb *transport.Callback, userID int64) {
	u, err := r.store.GetUser(ctx, userID)
	if err != nil {
		r.edit(ctx, cb, r.userErrText(err), personnelMenu())
		return
	}
	st, err := r.engine.Status(ctx, userID)
	if err != nil {
		r.edit(ctx, cb, r.userErrText(err), personnelMenu())
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", tgui.B(u.FullName))
	if u.Username != "" {
		fmt.Fprintf(&b, "@%s\n", tgui.Esc(u.Username))
	}
	if st.Present {
		b.WriteString("Статус: на месте\n")
	} else {
		fmt.Fprintf(&b, "Статус: отсутствует (%s)\n", tgui.Esc(st.Location))
	}
	if u.IsAdmin || u.ID == r.cfg.MainAdminID {
		b.WriteString("Роль: администратор\n")
	}

	records, err := r.store.RecordsForUser(ctx, userID, 5)
	if err == nil && len(records) > 0 {
		b.WriteString("\nПоследние отметки:\n")
		for _, rec := range records {
			b.WriteString(recordLine(rec, false))
			b.WriteByte('\n')
		}
	}
	r.edit(ctx, cb, b.String(), userCardMenu(u, r.cfg.MainAdminID))
}

func (r *Router) handleSearchInput(ctx context.Context, msg *transport.Message, text string) {
	r.sessions.Clear(msg.FromID)
	users, err := r.store.SearchUsers(ctx, text)
	if err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	if len(users) == 0 {
		r.send(ctx, msg.ChatID, fmt.Sprintf("По запросу %s никого не найдено.", tgui.Code(text)), personnelMenu())
		return
	}
	r.send(ctx, msg.ChatID, fmt.Sprintf("Найдено: %d", len(users)), personnelListMenu(users))
}

func (r *Router) handleRenameInput(ctx context.Context, msg *transport.Message, text string) {
	target, ok := r.sessions.RenameTarget(msg.FromID)
	if !ok {
		r.send(ctx, msg.ChatID, "Сессия истекла, начните заново.", nil)
		return
	}
	if err := r.store.SetFullName(ctx, target, text); err != nil {
		r.send(ctx, msg.ChatID, r.userErrText(err), nil)
		return
	}
	r.sessions.Clear(msg.FromID)
	r.log.Info("full name corrected", logx.Int64("target", target), logx.Int64("by", msg.FromID))
	r.send(ctx, msg.ChatID, fmt.Sprintf("ФИО обновлено: %s", tgui.B(text)), personnelMenu())
}

func (r *Router) cbNotif(ctx context.Context, cb *transport.Callback, c NotifCmd) {
	st, err := r.notif.Update(func(s *notify.Settings) {
		switch c.Toggle {
		case "morning":
			s.Morning.Enabled = !s.Morning.Enabled
		case "evening":
			s.Evening.Enabled = !s.Evening.Enabled
		case "weekly":
			s.Weekly.Enabled = !s.Weekly.Enabled
		case "quiet":
			s.Quiet.Enabled = !s.Quiet.Enabled
		}
	})
	if err != nil {
		r.log.Error("notification toggle failed", logx.String("toggle", c.Toggle), logx.Err(err))
		r.answer(ctx, cb.ID, "Не удалось сохранить настройки.")
		return
	}
	r.answer(ctx, cb.ID, "Сохранено")
	r.edit(ctx, cb, "<b>Уведомления</b>\nНажмите на пункт, чтобы включить или выключить:", notifMenu(st))
}

func (r *Router) cbSettings(ctx context.Context, cb *transport.Callback, c SettingsCmd) {
	r.answer(ctx, cb.ID, "")
	if c.Op == "refresh" {
		r.edit(ctx, cb, r.settingsText(ctx), settingsMenu())
	}
}

func (r *Router) settingsText(ctx context.Context) string {
	var b strings.Builder
	b.WriteString("<b>Настройки</b>\n\n")
	if users, records, err := r.store.Counts(ctx); err == nil {
		fmt.Fprintf(&b, "Зарегистрировано: %d\nЗаписей в журнале: %d\n", users, records)
	}
	if admins, err := r.store.ListAdmins(ctx); err == nil {
		fmt.Fprintf(&b, "Администраторов: %d\n", len(admins)+1)
	}
	fmt.Fprintf(&b, "Хранение записей: %s\n", daysLabel(r.cfg.RetentionDays))
	fmt.Fprintf(&b, "Место прибытия: %s", tgui.Esc(r.cfg.HomeLocation))
	return b.String()
}

func (r *Router) cbDanger(ctx context.Context, cb *transport.Callback, c DangerCmd) {
	r.answer(ctx, cb.ID, "")
	switch c.Op {
	case "cleanup":
		r.edit(ctx, cb,
			fmt.Sprintf("Удалить записи старше %s?", daysLabel(r.cfg.RetentionDays)),
			confirmMenu("cleanup"))
	case "wipe":
		r.edit(ctx, cb,
			"⚠️ <b>Удалить все данные?</b>\nЖурнал, пользователи и администраторы будут стёрты без возможности восстановления.",
			confirmMenu("wipe"))
	}
}

func (r *Router) cbConfirm(ctx context.Context, cb *transport.Callback, c ConfirmCmd) {
	if !c.Yes {
		r.answer(ctx, cb.ID, "Отменено")
		r.edit(ctx, cb, "<b>Опасная зона</b>\nДействия ниже необратимы.", dangerMenu())
		return
	}
	switch c.Op {
	case "cleanup":
		n, err := r.store.PurgeOlderThan(ctx, r.cfg.RetentionDays)
		if err != nil {
			r.answer(ctx, cb.ID, r.userErrText(err))
			return
		}
		r.answer(ctx, cb.ID, "Готово")
		r.log.Info("manual cleanup", logx.Int64("by", cb.FromID), logx.Any("deleted", n))
		r.edit(ctx, cb, fmt.Sprintf("Удалено записей: %d", n), adminMenu())
	case "wipe":
		n, err := r.store.PurgeAll(ctx)
		if err != nil {
			r.answer(ctx, cb.ID, r.userErrText(err))
			return
		}
		r.answer(ctx, cb.ID, "Готово")
		r.log.Warn("full wipe", logx.Int64("by", cb.FromID), logx.Any("deleted", n))
		r.edit(ctx, cb, fmt.Sprintf("Все данные удалены. Затронуто строк: %d", n), adminMenu())
	default:
		r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
	}
}

func daysLabel(days int) string {
	switch days {
	case 1:
		return "день"
	case 3:
		return "3 дня"
	case 7:
		return "неделю"
	case 30:
		return "месяц"
	default:
		return fmt.Sprintf("%d дн.", days)
	}
}
