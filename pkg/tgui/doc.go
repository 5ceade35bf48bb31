// Package tgui holds small Telegram UI helpers: inline keyboard building,
// callback data encoding and HTML-safe text rendering.
//
// Callback data uses a flat "category_args" form (e.g. "action_departed",
// "export_xlsx_7"). The router decodes tokens once at the boundary; nothing
// below the router sees raw callback strings.
package tgui
