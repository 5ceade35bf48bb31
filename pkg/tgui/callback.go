package tgui

import "strings"

// Data formats callback data as "category_args" where args are joined
// with underscores. Categories never contain underscores, so the first
// underscore always separates the category from its arguments.
func Data(category string, args ...string) string {
	category = strings.TrimSpace(category)
	if len(args) == 0 {
		return category
	}
	return category + "_" + strings.Join(args, "_")
}

// Split decodes a callback token into (category, rest). Rest keeps its
// internal underscores: "export_xlsx_7" -> ("export", "xlsx_7").
func Split(token string) (category, rest string) {
	token = strings.TrimSpace(token)
	if i := strings.IndexByte(token, '_'); i >= 0 {
		return token[:i], token[i+1:]
	}
	return token, ""
}

// Arg pops the next underscore-separated argument from rest.
func Arg(rest string) (arg, tail string) {
	if i := strings.IndexByte(rest, '_'); i >= 0 {
		return rest[:i], rest[i+1:]
	}
	return rest, ""
}
