package bot

import (
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	"tabelbot/internal/notify"
	"tabelbot/internal/storage"
	"tabelbot/pkg/tgui"
)

func mainMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("🚶 Убыть", tgui.Data("action", string(storage.ActionDeparted)))).
		Row(tgui.Btn("🏠 Прибыть", tgui.Data("action", string(storage.ActionArrived)))).
		Markup()
}

func locationMenu(locations []string) *tele.ReplyMarkup {
	btns := make([]tele.Btn, 0, len(locations)+2)
	for i, loc := range locations {
		btns = append(btns, tgui.Btn(tgui.TruncRunes(loc, 24), tgui.Data("location", strconv.Itoa(i))))
	}
	m := tgui.Grid(2, btns)
	extra := tgui.NewInline().
		Row(tgui.Btn("✍️ Другое место", tgui.Data("location", "custom"))).
		Row(tgui.Btn("❌ Отмена", tgui.Data("location", "cancel"))).
		Markup()
	m.InlineKeyboard = append(m.InlineKeyboard, extra.InlineKeyboard...)
	return m
}

func commentMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("⏭ Без комментария", tgui.Data("comment", "skip"))).
		Row(tgui.Btn("❌ Отмена", tgui.Data("location", "cancel"))).
		Markup()
}

func adminMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("👥 Личный состав", tgui.Data("admin", "personnel")),
			tgui.Btn("📈 Аналитика", tgui.Data("admin", "analytics"))).
		Row(tgui.Btn("📤 Экспорт", tgui.Data("admin", "export")),
			tgui.Btn("🔔 Уведомления", tgui.Data("admin", "notifications"))).
		Row(tgui.Btn("⚙️ Настройки", tgui.Data("admin", "settings")),
			tgui.Btn("🧨 Опасная зона", tgui.Data("admin", "danger"))).
		Markup()
}

func exportMenu() *tele.ReplyMarkup {
	row := func(format, label string) []tele.Btn {
		return []tele.Btn{
			tgui.Btn(label+" день", tgui.Data("export", format, "1")),
			tgui.Btn("3 дня", tgui.Data("export", format, "3")),
			tgui.Btn("неделя", tgui.Data("export", format, "7")),
			tgui.Btn("месяц", tgui.Data("export", format, "30")),
		}
	}
	return tgui.NewInline().
		Row(row("xlsx", "📊 Excel:")...).
		Row(row("text", "📄 Текст:")...).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func filterMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("Сегодня", tgui.Data("filter", "1")),
			tgui.Btn("3 дня", tgui.Data("filter", "3"))).
		Row(tgui.Btn("Неделя", tgui.Data("filter", "7")),
			tgui.Btn("Месяц", tgui.Data("filter", "30"))).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func personnelMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("📋 Список", tgui.Data("personnel", "list")),
			tgui.Btn("🔍 Поиск", tgui.Data("personnel", "search"))).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func personnelListMenu(users []storage.User) *tele.ReplyMarkup {
	btns := make([]tele.Btn, 0, len(users))
	for _, u := range users {
		label := u.FullName
		if u.IsAdmin {
			label = "⭐ " + label
		}
		btns = append(btns, tgui.Btn(tgui.TruncRunes(label, 30), tgui.Data("personnel", "show", strconv.FormatInt(u.ID, 10))))
	}
	m := tgui.Grid(1, btns)
	back := tgui.NewInline().Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "personnel"))).Markup()
	m.InlineKeyboard = append(m.InlineKeyboard, back.InlineKeyboard...)
	return m
}

func userCardMenu(u storage.User, mainAdminID int64) *tele.ReplyMarkup {
	id := strconv.FormatInt(u.ID, 10)
	b := tgui.NewInline().
		Row(tgui.Btn("✏️ Исправить ФИО", tgui.Data("personnel", "rename", id)))
	switch {
	case u.ID == mainAdminID:
		// the main admin role is fixed; no promote/demote buttons
	case u.IsAdmin:
		b.Row(tgui.Btn("⬇️ Снять админа", tgui.Data("personnel", "demote", id)))
	default:
		b.Row(tgui.Btn("⬆️ Назначить админом", tgui.Data("personnel", "promote", id)))
	}
	b.Row(tgui.Btn("⬅️ Назад", tgui.Data("personnel", "list")))
	return b.Markup()
}

func onOff(v bool) string {
	if v {
		return "✅"
	}
	return "❌"
}

func notifMenu(st notify.Settings) *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn(fmt.Sprintf("%s Утро %s", onOff(st.Morning.Enabled), st.Morning.At), tgui.Data("notif", "morning"))).
		Row(tgui.Btn(fmt.Sprintf("%s Вечер %s", onOff(st.Evening.Enabled), st.Evening.At), tgui.Data("notif", "evening"))).
		Row(tgui.Btn(fmt.Sprintf("%s Недельный отчёт %s", onOff(st.Weekly.Enabled), st.Weekly.At), tgui.Data("notif", "weekly"))).
		Row(tgui.Btn(fmt.Sprintf("%s Тихие часы %s–%s", onOff(st.Quiet.Enabled), st.Quiet.From, st.Quiet.To), tgui.Data("notif", "quiet"))).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func settingsMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("🔄 Обновить", tgui.Data("settings", "refresh"))).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func dangerMenu() *tele.ReplyMarkup {
	return tgui.NewInline().
		Row(tgui.Btn("🧹 Очистить старые записи", tgui.Data("danger", "cleanup"))).
		Row(tgui.Btn("💥 Удалить все данные", tgui.Data("danger", "wipe"))).
		Row(tgui.Btn("⬅️ Назад", tgui.Data("admin", "menu"))).
		Markup()
}

func confirmMenu(op string) *tele.ReplyMarkup {
	return tgui.Confirm(
		"✅ Да, выполнить", tgui.Data("confirm", op, "yes"),
		"❌ Отмена", tgui.Data("confirm", op, "no"),
	)
}
