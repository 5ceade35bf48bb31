package storage

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrUnknownUser     = errors.New("user is not registered")
	ErrDuplicateAction = errors.New("action duplicates the latest record")
	ErrMainAdmin       = errors.New("main admin cannot be removed")
	ErrInvalidName     = errors.New("invalid full name")
	ErrInvalidLocation = errors.New("invalid location")
)

// Action is the closed set of attendance event kinds.
type Action string

const (
	ActionDeparted Action = "departed"
	ActionArrived  Action = "arrived"
)

func (a Action) Valid() bool {
	return a == ActionDeparted || a == ActionArrived
}

// Config configures the store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
	MainAdminID int64
}

type User struct {
	ID        int64
	Username  string
	FullName  string
	IsAdmin   bool
	CreatedAt time.Time
}

// Record is one attendance event. Records are append-only: they are never
// updated, only deleted by retention cleanup or a full wipe.
type Record struct {
	ID        int64
	UserID    int64
	FullName  string // populated by joined queries, empty otherwise
	Action    Action
	Location  string
	Timestamp time.Time
	Comment   string
}

type Admin struct {
	UserID      int64
	AppointedBy int64
	AddedAt     time.Time
}

// LocationGroup lists absent users at one location.
type LocationGroup struct {
	Location string
	Names    []string
}

// Summary is the aggregate presence snapshot used by /stats and reminders.
// A user with no records counts as present.
type Summary struct {
	Total   int
	Present int
	Absent  int

	PresentNames []string
	ByLocation   []LocationGroup
}
