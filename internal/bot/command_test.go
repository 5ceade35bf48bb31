package bot

import (
	"reflect"
	"testing"

	"tabelbot/internal/storage"
)

func TestDecodeCommand(t *testing.T) {
	cases := []struct {
		token string
		want  Command
	}{
		{"action_departed", MarkCmd{Action: storage.ActionDeparted}},
		{"action_arrived", MarkCmd{Action: storage.ActionArrived}},
		{"location_0", LocationCmd{Index: 0}},
		{"location_7", LocationCmd{Index: 7}},
		{"location_custom", LocationCmd{Custom: true}},
		{"location_cancel", LocationCmd{Cancel: true}},
		{"comment_skip", CommentCmd{Skip: true}},
		{"admin_menu", AdminCmd{Panel: "menu"}},
		{"admin_danger", AdminCmd{Panel: "danger"}},
		{"export_xlsx_7", ExportCmd{Format: "xlsx", Days: 7}},
		{"export_text_30", ExportCmd{Format: "text", Days: 30}},
		{"filter_3", FilterCmd{Days: 3}},
		{"personnel_list", PersonnelCmd{Op: "list"}},
		{"personnel_show_100", PersonnelCmd{Op: "show", UserID: 100}},
		{"personnel_rename_100", PersonnelCmd{Op: "rename", UserID: 100}},
		{"personnel_promote_100", PersonnelCmd{Op: "promote", UserID: 100}},
		{"personnel_demote_100", PersonnelCmd{Op: "demote", UserID: 100}},
		{"notif_morning", NotifCmd{Toggle: "morning"}},
		{"notif_quiet", NotifCmd{Toggle: "quiet"}},
		{"settings_refresh", SettingsCmd{Op: "refresh"}},
		{"danger_wipe", DangerCmd{Op: "wipe"}},
		{"confirm_wipe_yes", ConfirmCmd{Op: "wipe", Yes: true}},
		{"confirm_cleanup_no", ConfirmCmd{Op: "cleanup", Yes: false}},
	}
	for _, tc := range cases {
		got, err := DecodeCommand(tc.token)
		if err != nil {
			t.Errorf("DecodeCommand(%q): %v", tc.token, err)
			continue
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("DecodeCommand(%q) = %#v, want %#v", tc.token, got, tc.want)
		}
	}
}

func TestDecodeCommandRejectsGarbage(t *testing.T) {
	bad := []string{
		"",
		"action_teleported",
		"location_-1",
		"location_abc",
		"admin_sudo",
		"comment_edit",
		"export_pdf_7",
		"export_xlsx_zero",
		"export_xlsx_0",
		"filter_",
		"personnel_show_abc",
		"personnel_fire_100",
		"notif_night",
		"danger_reboot",
		"confirm_wipe_maybe",
		"bogus_1",
	}
	for _, token := range bad {
		if _, err := DecodeCommand(token); err == nil {
			t.Errorf("DecodeCommand(%q) accepted", token)
		}
	}
}
