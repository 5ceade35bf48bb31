// Package schedule runs the bot's time-triggered jobs (daily reminders,
// weekly report, retention cleanup) on top of robfig/cron.
//
// Jobs are enqueued by cron triggers and executed by a small worker pool,
// so a slow job never delays the next trigger tick.
package schedule
