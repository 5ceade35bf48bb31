// Package report turns a time-windowed record set into export artifacts:
// a styled spreadsheet and a plain-text journal. Artifacts are transient:
// generated into a directory, sent to the requester, then deleted.
package report

import (
	"errors"
	"sort"
	"strings"
	"time"
	"unicode"

	"tabelbot/internal/storage"
)

// ErrNoData is returned instead of producing an empty file.
var ErrNoData = errors.New("no records in the selected window")

const (
	xlsxPrefix = "tabel"
	textPrefix = "report"

	dateLayout  = "02.01.2006"
	timeLayout  = "15:04"
	stampLayout = "20060102_150405"
)

// XLSXName builds the spreadsheet file name, e.g. "tabel_20240102_150405.xlsx".
func XLSXName(now time.Time) string {
	return xlsxPrefix + "_" + now.Format(stampLayout) + ".xlsx"
}

// TextName builds the text report file name, e.g. "report_20240102_150405.txt".
func TextName(now time.Time) string {
	return textPrefix + "_" + now.Format(stampLayout) + ".txt"
}

// ActionLabel renders an action for humans.
func ActionLabel(a storage.Action) string {
	switch a {
	case storage.ActionDeparted:
		return "Убыл"
	case storage.ActionArrived:
		return "Прибыл"
	default:
		return string(a)
	}
}

// NormalizeLocation strips the emoji prefixes the menu buttons carry
// ("🏪 Магазин" -> "Магазин") so exports stay plain text.
func NormalizeLocation(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.In(r, unicode.So, unicode.Sk) || r == '️' {
			return -1
		}
		return r
	}, s))
}

// sortAscending orders records oldest first, stable for equal timestamps.
func sortAscending(records []storage.Record) []storage.Record {
	out := make([]storage.Record, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}
