// Package attendance decides whether a new attendance event is admissible
// and what presence state results from it.
package attendance

import (
	"context"
	"errors"
	"sync"

	"tabelbot/internal/storage"
	logx "tabelbot/pkg/logx"
)

var (
	// ErrNotRegistered means the submitting user has no user row yet and
	// must go through /start first.
	ErrNotRegistered = errors.New("user is not registered")
	// ErrAlreadyMarked is the duplicate-suppression outcome: the proposed
	// action equals the user's latest one. This is "already recorded",
	// not a fault.
	ErrAlreadyMarked = errors.New("action already recorded")
)

// Store is the slice of the persistence layer the engine needs.
type Store interface {
	GetUser(ctx context.Context, id int64) (storage.User, error)
	LastRecord(ctx context.Context, userID int64) (storage.Record, error)
	AppendRecord(ctx context.Context, userID int64, action storage.Action, location, comment string) (storage.Record, error)
}

// State is a user's derived presence classification.
type State struct {
	Present  bool
	Location string // set when absent
}

// Engine validates submissions and derives presence state.
//
// Submissions for the same user are serialized with a per-user mutex, so a
// rapid double-tap cannot slip two identical actions past the duplicate
// check even if the dispatcher ever runs handlers in parallel.
type Engine struct {
	store Store
	log   logx.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEngine(store Store, log logx.Logger) *Engine {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Engine{store: store, log: log, locks: map[int64]*sync.Mutex{}}
}

func (e *Engine) userLock(userID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// Submit applies a proposed (user, action, location) event.
// Returns the stored record and the user's new state on success.
func (e *Engine) Submit(ctx context.Context, userID int64, action storage.Action, location, comment string) (storage.Record, State, error) {
	l := e.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if _, err := e.store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return storage.Record{}, State{}, ErrNotRegistered
		}
		return storage.Record{}, State{}, err
	}

	rec, err := e.store.AppendRecord(ctx, userID, action, location, comment)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateAction) {
			return storage.Record{}, State{}, ErrAlreadyMarked
		}
		if errors.Is(err, storage.ErrUnknownUser) {
			return storage.Record{}, State{}, ErrNotRegistered
		}
		return storage.Record{}, State{}, err
	}

	st := stateOf(rec)
	e.log.Info("attendance recorded",
		logx.Int64("user_id", userID),
		logx.String("action", string(action)),
		logx.String("location", rec.Location))
	return rec, st, nil
}

// Status derives a user's current state from their latest record.
// A user with no records is treated as present.
func (e *Engine) Status(ctx context.Context, userID int64) (State, error) {
	rec, err := e.store.LastRecord(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return State{Present: true}, nil
	}
	if err != nil {
		return State{}, err
	}
	return stateOf(rec), nil
}

func stateOf(rec storage.Record) State {
	if rec.Action == storage.ActionDeparted {
		return State{Present: false, Location: rec.Location}
	}
	return State{Present: true}
}
