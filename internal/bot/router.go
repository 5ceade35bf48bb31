package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"tabelbot/internal/attendance"
	"tabelbot/internal/notify"
	"tabelbot/internal/storage"
	"tabelbot/internal/transport"
	logx "tabelbot/pkg/logx"
)

const (
	updateBuffer  = 128
	sweepInterval = time.Minute
)

// Config is the chat-surface slice of the application config.
type Config struct {
	MainAdminID   int64
	Locations     []string
	HomeLocation  string
	RetentionDays int
}

// Router consumes the transport update stream and drives all chat flows.
// Updates are handled one at a time on a single goroutine, which keeps the
// session map and menu edits free of interleaving surprises; the per-user
// locking in the attendance engine is the backstop, not the primary
// serialization.
type Router struct {
	cfg      Config
	store    *storage.Store
	engine   *attendance.Engine
	notif    *notify.Manager
	adapter  transport.Adapter
	sessions *Sessions
	log      logx.Logger
	updates  chan transport.Update
}

func NewRouter(cfg Config, store *storage.Store, engine *attendance.Engine, notif *notify.Manager, adapter transport.Adapter, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.HomeLocation == "" {
		cfg.HomeLocation = "Казарма"
	}
	return &Router{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		notif:    notif,
		adapter:  adapter,
		sessions: NewSessions(),
		log:      log,
		updates:  make(chan transport.Update, updateBuffer),
	}
}

// Updates is the channel the transport adapter feeds.
func (r *Router) Updates() chan<- transport.Update { return r.updates }

// Run processes updates until the context is cancelled.
func (r *Router) Run(ctx context.Context) {
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			r.sessions.Sweep()
		case upd := <-r.updates:
			r.dispatch(ctx, upd)
		}
	}
}

func (r *Router) dispatch(ctx context.Context, upd transport.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("handler panic", logx.Any("panic", rec))
		}
	}()

	switch upd.Kind {
	case transport.UpdateMessage:
		if upd.Message == nil || upd.Message.IsGroup {
			return
		}
		r.handleMessage(ctx, upd.Message)
	case transport.UpdateCallback:
		if upd.Callback == nil {
			return
		}
		r.handleCallback(ctx, upd.Callback)
	}
}

func (r *Router) handleMessage(ctx context.Context, msg *transport.Message) {
	text := strings.TrimSpace(msg.Text)
	if strings.HasPrefix(text, "/") {
		r.handleCommand(ctx, msg, text)
		return
	}

	switch r.sessions.State(msg.FromID) {
	case StateAwaitName:
		r.handleNameInput(ctx, msg, text)
	case StateAwaitLocation:
		r.handleLocationInput(ctx, msg, text)
	case StateAwaitComment:
		r.handleCommentInput(ctx, msg, text)
	case StateAwaitSearch:
		r.handleSearchInput(ctx, msg, text)
	case StateAwaitRename:
		r.handleRenameInput(ctx, msg, text)
	default:
		r.send(ctx, msg.ChatID, "Используйте кнопки меню или /help.", nil)
	}
}

func (r *Router) handleCommand(ctx context.Context, msg *transport.Message, text string) {
	cmd := text
	if i := strings.IndexAny(cmd, " @"); i > 0 {
		cmd = cmd[:i]
	}
	switch cmd {
	case "/start":
		r.cmdStart(ctx, msg)
	case "/journal":
		r.cmdJournal(ctx, msg)
	case "/stats":
		r.cmdStats(ctx, msg)
	case "/admin":
		r.cmdAdmin(ctx, msg)
	case "/help":
		r.cmdHelp(ctx, msg)
	default:
		r.send(ctx, msg.ChatID, "Неизвестная команда. Список команд: /help", nil)
	}
}

func (r *Router) handleCallback(ctx context.Context, cb *transport.Callback) {
	cmd, err := DecodeCommand(cb.Data)
	if err != nil {
		r.log.Debug("stale callback", logx.String("data", cb.Data), logx.Err(err))
		r.answer(ctx, cb.ID, "Кнопка устарела, откройте меню заново.")
		return
	}

	switch c := cmd.(type) {
	case MarkCmd:
		r.cbMark(ctx, cb, c)
	case LocationCmd:
		r.cbLocation(ctx, cb, c)
	case CommentCmd:
		r.cbComment(ctx, cb, c)
	default:
		if !r.isAdmin(ctx, cb.FromID) {
			r.answer(ctx, cb.ID, "Доступно только администраторам.")
			return
		}
		switch c := cmd.(type) {
		case AdminCmd:
			r.cbAdminPanel(ctx, cb, c)
		case ExportCmd:
			r.cbExport(ctx, cb, c)
		case FilterCmd:
			r.cbFilter(ctx, cb, c)
		case PersonnelCmd:
			r.cbPersonnel(ctx, cb, c)
		case NotifCmd:
			r.cbNotif(ctx, cb, c)
		case SettingsCmd:
			r.cbSettings(ctx, cb, c)
		case DangerCmd:
			r.cbDanger(ctx, cb, c)
		case ConfirmCmd:
			r.cbConfirm(ctx, cb, c)
		}
	}
}

func (r *Router) isAdmin(ctx context.Context, userID int64) bool {
	if userID == r.cfg.MainAdminID {
		return true
	}
	ok, err := r.store.IsAdmin(ctx, userID)
	if err != nil {
		r.log.Error("admin check failed", logx.Int64("user_id", userID), logx.Err(err))
		return false
	}
	return ok
}

func (r *Router) send(ctx context.Context, chatID int64, text string, markup any) {
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: markup}
	if _, err := r.adapter.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		r.log.Error("send failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

// edit rewrites the message the callback button lives on. Telegram rejects
// edits that change nothing; that case is logged at debug and dropped.
func (r *Router) edit(ctx context.Context, cb *transport.Callback, text string, markup any) {
	ref := transport.MessageRef{ChatID: cb.ChatID, MessageID: cb.MessageID}
	opt := &transport.SendOptions{ParseMode: "HTML", DisablePreview: true, ReplyMarkup: markup}
	if err := r.adapter.EditText(ctx, ref, text, opt); err != nil {
		r.log.Debug("edit failed", logx.Int64("chat_id", cb.ChatID), logx.Err(err))
	}
}

func (r *Router) answer(ctx context.Context, callbackID, text string) {
	if err := r.adapter.AnswerCallback(ctx, callbackID, text); err != nil {
		r.log.Debug("callback answer failed", logx.Err(err))
	}
}

// userErrText maps domain errors to the message shown in chat. Unexpected
// errors get a generic apology; details stay in the log.
func (r *Router) userErrText(err error) string {
	switch {
	case errors.Is(err, attendance.ErrNotRegistered), errors.Is(err, storage.ErrUnknownUser):
		return "Вы не зарегистрированы. Отправьте /start."
	case errors.Is(err, attendance.ErrAlreadyMarked), errors.Is(err, storage.ErrDuplicateAction):
		return "Это действие уже отмечено. Сначала отметьте противоположное."
	case errors.Is(err, storage.ErrInvalidName):
		return "Некорректное ФИО. От 3 до 50 символов, без цифр. Например: Иванов И.И."
	case errors.Is(err, storage.ErrInvalidLocation):
		return "Некорректное место. От 1 до 100 символов."
	case errors.Is(err, storage.ErrMainAdmin):
		return "Главного администратора снять нельзя."
	case errors.Is(err, storage.ErrNotFound):
		return "Запись не найдена."
	default:
		return "Произошла ошибка, попробуйте позже."
	}
}
