// Package storage is the persistence layer: users, attendance records and
// admin assignments in a single SQLite file.
//
// Failures are typed (ErrNotFound, ErrDuplicateAction, ErrMainAdmin, ...)
// so callers can tell "no data" from "broken" and map each condition to a
// distinct user-facing message.
package storage
