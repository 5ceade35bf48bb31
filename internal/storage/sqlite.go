package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "tabelbot/pkg/logx"
)

//go:embed schema.sql
var schemaFS embed.FS

// Store is the SQLite-backed persistence layer.
type Store struct {
	db  *sql.DB
	cfg Config
	log logx.Logger
}

// Open opens (or creates) the database file and applies the schema.
func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &Store{db: db, cfg: cfg, log: log}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// MainAdminID returns the configured non-removable admin id.
func (s *Store) MainAdminID() int64 { return s.cfg.MainAdminID }

// ---- users ----

// UpsertUser inserts or replaces a user row. The full name is validated
// against the journal's name policy.
func (s *Store) UpsertUser(ctx context.Context, id int64, username, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if err := ValidateFullName(fullName); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users(id, username, full_name, created_at) VALUES(?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET username=excluded.username, full_name=excluded.full_name`,
		id, strings.TrimSpace(username), fullName, time.Now().Format(time.RFC3339Nano),
	)
	return err
}

func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, full_name, is_admin, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Username, &u.FullName, &u.IsAdmin, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// SetFullName is the admin correction path; regular users never change
// their name after registration.
func (s *Store) SetFullName(ctx context.Context, id int64, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if err := ValidateFullName(fullName); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE users SET full_name = ? WHERE id = ?`, fullName, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, full_name, is_admin, created_at FROM users ORDER BY full_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

// SearchUsers matches the query against full names and usernames,
// case-insensitively for ASCII.
func (s *Store) SearchUsers(ctx context.Context, query string) ([]User, error) {
	q := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, full_name, is_admin, created_at FROM users
		 WHERE full_name LIKE ? OR username LIKE ? ORDER BY full_name`, q, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]User, error) {
	var out []User
	for rows.Next() {
		var u User
		var created string
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.IsAdmin, &created); err != nil {
			return nil, err
		}
		u.CreatedAt = parseTime(created)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ---- records ----

// AppendRecord stores one attendance event. The duplicate-suppression
// invariant is enforced here, inside a single transaction, so no second
// row can slip in between the check and the insert.
func (s *Store) AppendRecord(ctx context.Context, userID int64, action Action, location, comment string) (Record, error) {
	if !action.Valid() {
		return Record{}, fmt.Errorf("unknown action %q", action)
	}
	location = strings.TrimSpace(location)
	if err := ValidateLocation(location); err != nil {
		return Record{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return Record{}, err
	}
	if exists == 0 {
		return Record{}, ErrUnknownUser
	}

	var last string
	err = tx.QueryRowContext(ctx,
		`SELECT action FROM records WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
		userID,
	).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// first record for this user
	case err != nil:
		return Record{}, err
	case Action(last) == action:
		return Record{}, ErrDuplicateAction
	}

	now := time.Now()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO records(user_id, action, location, timestamp, comment) VALUES(?,?,?,?,?)`,
		userID, string(action), location, now.Format(time.RFC3339Nano), nullStr(comment),
	)
	if err != nil {
		return Record{}, err
	}
	id, _ := res.LastInsertId()
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return Record{ID: id, UserID: userID, Action: action, Location: location, Timestamp: now, Comment: strings.TrimSpace(comment)}, nil
}

// LastRecord returns the user's most recent record, ErrNotFound when the
// user has no records yet.
func (s *Store) LastRecord(ctx context.Context, userID int64) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, action, location, timestamp, COALESCE(comment,'')
		 FROM records WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, userID)
	return scanRecord(row)
}

func (s *Store) RecordsForUser(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, action, location, timestamp, COALESCE(comment,'')
		 FROM records WHERE user_id = ? ORDER BY timestamp DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.ID, &r.UserID, &r.Action, &r.Location, &ts, &r.Comment); err != nil {
			return nil, err
		}
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordsInWindow returns records from the last `days` days joined with
// the owner's full name, newest first.
func (s *Store) RecordsInWindow(ctx context.Context, days, limit int) ([]Record, error) {
	if days <= 0 {
		days = 1
	}
	if limit <= 0 {
		limit = 500
	}
	since := time.Now().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, u.full_name, r.action, r.location, r.timestamp, COALESCE(r.comment,'')
		 FROM records r JOIN users u ON u.id = r.user_id
		 WHERE r.timestamp >= ?
		 ORDER BY r.timestamp DESC, r.id DESC LIMIT ?`,
		since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.ID, &r.UserID, &r.FullName, &r.Action, &r.Location, &ts, &r.Comment); err != nil {
			return nil, err
		}
		r.Timestamp = parseTime(ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// StatusSummary classifies every user by their latest record. Users with
// no records count as present.
func (s *Store) StatusSummary(ctx context.Context) (Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.full_name, COALESCE(r.action,''), COALESCE(r.location,'')
		 FROM users u
		 LEFT JOIN records r ON r.id = (
		     SELECT id FROM records WHERE user_id = u.id
		     ORDER BY timestamp DESC, id DESC LIMIT 1
		 )
		 ORDER BY u.full_name`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	var sum Summary
	groups := map[string][]string{}
	var order []string
	for rows.Next() {
		var name, action, location string
		if err := rows.Scan(&name, &action, &location); err != nil {
			return Summary{}, err
		}
		sum.Total++
		if Action(action) == ActionDeparted {
			sum.Absent++
			if _, ok := groups[location]; !ok {
				order = append(order, location)
			}
			groups[location] = append(groups[location], name)
		} else {
			sum.Present++
			sum.PresentNames = append(sum.PresentNames, name)
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}
	for _, loc := range order {
		sum.ByLocation = append(sum.ByLocation, LocationGroup{Location: loc, Names: groups[loc]})
	}
	return sum, nil
}

// ---- admins ----

func (s *Store) AddAdmin(ctx context.Context, userID, appointedBy int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE id = ?`, userID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return ErrUnknownUser
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO admins(user_id, appointed_by, added_at) VALUES(?,?,?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, appointedBy, time.Now().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_admin = 1 WHERE id = ?`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// RemoveAdmin demotes a user. The configured main admin is never removable.
func (s *Store) RemoveAdmin(ctx context.Context, userID int64) error {
	if userID == s.cfg.MainAdminID {
		return ErrMainAdmin
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM admins WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET is_admin = 0 WHERE id = ?`, userID); err != nil {
		return err
	}
	return tx.Commit()
}

// IsAdmin reports elevated permission: either the configured main admin
// or a row in the admins table.
func (s *Store) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if userID == s.cfg.MainAdminID {
		return true, nil
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM admins WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) ListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, appointed_by, added_at FROM admins ORDER BY added_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Admin
	for rows.Next() {
		var a Admin
		var added string
		if err := rows.Scan(&a.UserID, &a.AppointedBy, &added); err != nil {
			return nil, err
		}
		a.AddedAt = parseTime(added)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ---- retention ----

// PurgeOlderThan deletes records older than `days` days and returns the
// number of deleted rows. Running it twice in a row deletes once, then zero.
func (s *Store) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", days)
	}
	cutoff := time.Now().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PurgeAll is the danger-zone wipe: all records, all admin assignments and
// all users except the main admin's own row.
func (s *Store) PurgeAll(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM records`)
	if err != nil {
		return 0, err
	}
	deleted, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, `DELETE FROM admins WHERE user_id != ?`, s.cfg.MainAdminID); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id != ?`, s.cfg.MainAdminID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// Counts returns table sizes for the admin settings view.
func (s *Store) Counts(ctx context.Context) (users, records int64, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users`).Scan(&users); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM records`).Scan(&records); err != nil {
		return 0, 0, err
	}
	return users, records, nil
}

// ---- helpers ----

type rowScanner interface{ Scan(dest ...any) error }

func scanRecord(row rowScanner) (Record, error) {
	var r Record
	var ts string
	err := row.Scan(&r.ID, &r.UserID, &r.Action, &r.Location, &ts, &r.Comment)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	r.Timestamp = parseTime(ts)
	return r, nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
