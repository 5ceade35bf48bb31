package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tabelbot/internal/storage"
)

// WriteText renders records into a plain-text journal under dir and
// returns the full path. Rows run oldest first; a section header is
// inserted whenever the date changes.
func WriteText(records []storage.Record, dir string, now time.Time) (string, error) {
	if len(records) == 0 {
		return "", ErrNoData
	}

	var b strings.Builder
	b.WriteString("ЖУРНАЛ УБЫТИЯ/ПРИБЫТИЯ\n")
	b.WriteString("Сформирован: " + now.Format(dateLayout+" "+timeLayout) + "\n")

	var lastDate string
	for _, rec := range sortAscending(records) {
		date := rec.Timestamp.Format(dateLayout)
		if date != lastDate {
			b.WriteString("\n=== " + date + " ===\n")
			lastDate = date
		}
		line := fmt.Sprintf("%s  %s — %s — %s",
			rec.Timestamp.Format(timeLayout),
			rec.FullName,
			strings.ToLower(ActionLabel(rec.Action)),
			NormalizeLocation(rec.Location))
		if c := strings.TrimSpace(rec.Comment); c != "" {
			line += " (" + c + ")"
		}
		b.WriteString(line + "\n")
	}

	path := filepath.Join(dir, TextName(now))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Summary renders the aggregate presence snapshot as plain text for the
// /stats view and scheduled reminders.
func Summary(sum storage.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Всего: %d\nНа месте: %d\nУбыли: %d\n", sum.Total, sum.Present, sum.Absent)
	if len(sum.ByLocation) > 0 {
		b.WriteString("\nПо местам:\n")
		for _, g := range sum.ByLocation {
			fmt.Fprintf(&b, "• %s (%d): %s\n", NormalizeLocation(g.Location), len(g.Names), strings.Join(g.Names, ", "))
		}
	}
	return b.String()
}
