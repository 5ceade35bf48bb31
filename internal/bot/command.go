// Package bot is the chat surface: it routes commands and callback
// queries, drives the multi-step input flows and renders the menu UI.
package bot

import (
	"fmt"
	"strconv"

	"tabelbot/internal/storage"
	"tabelbot/pkg/tgui"
)

// Command is the decoded form of a callback token. Tokens are parsed
// exactly once, at the dispatch boundary; handlers match on the concrete
// variant and never see raw strings.
type Command interface{ isCommand() }

// MarkCmd starts the departed/arrived flow ("action_departed").
type MarkCmd struct {
	Action storage.Action
}

// LocationCmd picks a destination for a departure: a canned location by
// index ("location_2"), free-text entry ("location_custom") or cancel.
type LocationCmd struct {
	Index  int
	Custom bool
	Cancel bool
}

// CommentCmd skips the optional comment step ("comment_skip").
type CommentCmd struct {
	Skip bool
}

// AdminCmd navigates the admin panel ("admin_personnel", "admin_export", ...).
type AdminCmd struct {
	Panel string
}

// ExportCmd requests an artifact ("export_xlsx_7", "export_text_30").
type ExportCmd struct {
	Format string // "xlsx" | "text"
	Days   int
}

// FilterCmd narrows the journal view to a day window ("filter_3").
type FilterCmd struct {
	Days int
}

// PersonnelCmd operates on the roster ("personnel_search",
// "personnel_rename_100", "personnel_promote_100", "personnel_demote_100",
// "personnel_show_100").
type PersonnelCmd struct {
	Op     string
	UserID int64
}

// NotifCmd flips one notification toggle ("notif_morning").
type NotifCmd struct {
	Toggle string // "morning" | "evening" | "weekly" | "quiet"
}

// SettingsCmd opens a settings subview ("settings_view").
type SettingsCmd struct {
	Op string
}

// DangerCmd opens a danger-zone prompt ("danger_cleanup", "danger_wipe").
type DangerCmd struct {
	Op string
}

// ConfirmCmd resolves a pending confirmation ("confirm_wipe_yes").
type ConfirmCmd struct {
	Op  string
	Yes bool
}

func (MarkCmd) isCommand()      {}
func (LocationCmd) isCommand()  {}
func (CommentCmd) isCommand()   {}
func (AdminCmd) isCommand()     {}
func (ExportCmd) isCommand()    {}
func (FilterCmd) isCommand()    {}
func (PersonnelCmd) isCommand() {}
func (NotifCmd) isCommand()     {}
func (SettingsCmd) isCommand()  {}
func (DangerCmd) isCommand()    {}
func (ConfirmCmd) isCommand()   {}

// DecodeCommand parses a raw callback token. Unknown tokens yield an
// error; the router answers those with an "expired button" notice.
func DecodeCommand(token string) (Command, error) {
	category, rest := tgui.Split(token)
	switch category {
	case "action":
		a := storage.Action(rest)
		if !a.Valid() {
			return nil, fmt.Errorf("unknown action token %q", token)
		}
		return MarkCmd{Action: a}, nil

	case "location":
		switch rest {
		case "custom":
			return LocationCmd{Custom: true}, nil
		case "cancel":
			return LocationCmd{Cancel: true}, nil
		}
		idx, err := strconv.Atoi(rest)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("bad location token %q", token)
		}
		return LocationCmd{Index: idx}, nil

	case "comment":
		if rest == "skip" {
			return CommentCmd{Skip: true}, nil
		}
		return nil, fmt.Errorf("unknown comment op %q", token)

	case "admin":
		switch rest {
		case "menu", "personnel", "analytics", "export", "notifications", "settings", "danger":
			return AdminCmd{Panel: rest}, nil
		}
		return nil, fmt.Errorf("unknown admin panel %q", token)

	case "export":
		format, tail := tgui.Arg(rest)
		if format != "xlsx" && format != "text" {
			return nil, fmt.Errorf("unknown export format %q", token)
		}
		days, err := strconv.Atoi(tail)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("bad export window %q", token)
		}
		return ExportCmd{Format: format, Days: days}, nil

	case "filter":
		days, err := strconv.Atoi(rest)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("bad filter window %q", token)
		}
		return FilterCmd{Days: days}, nil

	case "personnel":
		op, tail := tgui.Arg(rest)
		switch op {
		case "list", "search":
			return PersonnelCmd{Op: op}, nil
		case "show", "rename", "promote", "demote":
			id, err := strconv.ParseInt(tail, 10, 64)
			if err != nil || id == 0 {
				return nil, fmt.Errorf("bad personnel target %q", token)
			}
			return PersonnelCmd{Op: op, UserID: id}, nil
		}
		return nil, fmt.Errorf("unknown personnel op %q", token)

	case "notif":
		switch rest {
		case "morning", "evening", "weekly", "quiet":
			return NotifCmd{Toggle: rest}, nil
		}
		return nil, fmt.Errorf("unknown notification toggle %q", token)

	case "settings":
		if rest == "" {
			return nil, fmt.Errorf("empty settings op %q", token)
		}
		return SettingsCmd{Op: rest}, nil

	case "danger":
		switch rest {
		case "cleanup", "wipe":
			return DangerCmd{Op: rest}, nil
		}
		return nil, fmt.Errorf("unknown danger op %q", token)

	case "confirm":
		op, tail := tgui.Arg(rest)
		switch tail {
		case "yes":
			return ConfirmCmd{Op: op, Yes: true}, nil
		case "no":
			return ConfirmCmd{Op: op, Yes: false}, nil
		}
		return nil, fmt.Errorf("bad confirm token %q", token)
	}
	return nil, fmt.Errorf("unknown callback %q", token)
}
