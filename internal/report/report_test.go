package report

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"tabelbot/internal/storage"
)

func sampleRecords(base time.Time) []storage.Record {
	return []storage.Record{
		{FullName: "Петров П.П.", Action: storage.ActionDeparted, Location: "🏪 Магазин", Timestamp: base},
		{FullName: "Иванов И.И.", Action: storage.ActionDeparted, Location: "Штаб", Timestamp: base.Add(30 * time.Minute)},
		{FullName: "Петров П.П.", Action: storage.ActionArrived, Location: "Казарма", Timestamp: base.Add(2 * time.Hour), Comment: "опоздал"},
		{FullName: "Сидоров С.С.", Action: storage.ActionArrived, Location: "Казарма", Timestamp: base.AddDate(0, 0, 1)},
	}
}

func TestWriteXLSXRoundTrip(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 11, 9, 15, 0, 0, time.Local)
	records := sampleRecords(base)

	path, err := WriteXLSX(records, dir, base)
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	if !strings.HasSuffix(path, "tabel_20240311_091500.xlsx") {
		t.Fatalf("unexpected file name: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Журнал")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != len(records)+1 {
		t.Fatalf("got %d rows, want %d (header + %d records)", len(rows), len(records)+1, len(records))
	}
	if rows[0][0] != "ФИО" || rows[0][4] != "Время" {
		t.Fatalf("header = %v", rows[0])
	}

	// Rows are grouped: all departed first, then all arrived; each row keeps
	// the (name, action, location, date, time) tuple with emoji stripped.
	want := [][]string{
		{"Петров П.П.", "Убыл", "Магазин", "11.03.2024", "09:15"},
		{"Иванов И.И.", "Убыл", "Штаб", "11.03.2024", "09:45"},
		{"Петров П.П.", "Прибыл", "Казарма", "11.03.2024", "11:15"},
		{"Сидоров С.С.", "Прибыл", "Казарма", "12.03.2024", "09:15"},
	}
	for i, w := range want {
		got := rows[i+1]
		for col := range w {
			if got[col] != w[col] {
				t.Fatalf("row %d col %d = %q, want %q (row=%v)", i+1, col, got[col], w[col], got)
			}
		}
	}
}

func TestWriteXLSXNoData(t *testing.T) {
	if _, err := WriteXLSX(nil, t.TempDir(), time.Now()); !errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}
}

func TestWriteTextDateHeaders(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 3, 11, 9, 15, 0, 0, time.Local)

	path, err := WriteText(sampleRecords(base), dir, base)
	if err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	text := string(b)

	if strings.Count(text, "=== 11.03.2024 ===") != 1 {
		t.Fatalf("missing first date header:\n%s", text)
	}
	if strings.Count(text, "=== 12.03.2024 ===") != 1 {
		t.Fatalf("missing second date header:\n%s", text)
	}
	// Ascending order: the 09:15 departure precedes the 11:15 arrival.
	dep := strings.Index(text, "09:15  Петров П.П.")
	arr := strings.Index(text, "11:15  Петров П.П.")
	if dep == -1 || arr == -1 || dep > arr {
		t.Fatalf("rows out of order (dep=%d arr=%d):\n%s", dep, arr, text)
	}
	if !strings.Contains(text, "(опоздал)") {
		t.Fatalf("comment missing:\n%s", text)
	}
	if strings.Contains(text, "🏪") {
		t.Fatalf("emoji not stripped:\n%s", text)
	}
}

func TestWriteTextNoData(t *testing.T) {
	if _, err := WriteText(nil, t.TempDir(), time.Now()); !errors.Is(err, ErrNoData) {
		t.Fatalf("got %v, want ErrNoData", err)
	}
}

func TestNormalizeLocation(t *testing.T) {
	t.Parallel()
	tests := []struct{ in, want string }{
		{"🏪 Магазин", "Магазин"},
		{"Штаб", "Штаб"},
		{"🏥 Госпиталь", "Госпиталь"},
		{"  Казарма  ", "Казарма"},
	}
	for _, tt := range tests {
		if got := NormalizeLocation(tt.in); got != tt.want {
			t.Fatalf("NormalizeLocation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummaryText(t *testing.T) {
	s := Summary(storage.Summary{
		Total: 3, Present: 2, Absent: 1,
		ByLocation: []storage.LocationGroup{{Location: "Магазин", Names: []string{"Петров П.П."}}},
	})
	if !strings.Contains(s, "Всего: 3") || !strings.Contains(s, "Магазин (1): Петров П.П.") {
		t.Fatalf("summary text:\n%s", s)
	}
}
