// Package notify owns scheduled notifications: the persisted settings
// document (morning/evening/weekly toggles, quiet hours), the job bodies
// the scheduler fires, and best-effort fan-out to the admin recipients.
package notify
