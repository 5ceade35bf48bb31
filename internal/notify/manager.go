package notify

import (
	"sync"

	"tabelbot/internal/schedule"
	logx "tabelbot/pkg/logx"
)

// Manager ties the settings document to the scheduler: it owns the file,
// and every accepted change rebuilds the registered job set.
type Manager struct {
	path  string
	sched *schedule.Service
	jobs  *Jobs
	log   logx.Logger

	mu      sync.Mutex
	current Settings
}

func NewManager(path string, sched *schedule.Service, jobs *Jobs, log logx.Logger) (*Manager, error) {
	st, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{path: path, sched: sched, jobs: jobs, log: log, current: st}, nil
}

// Current returns the settings in effect.
func (m *Manager) Current() Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Start registers the jobs for the loaded settings. The scheduler must
// already be running.
func (m *Manager) Start() error {
	m.mu.Lock()
	st := m.current
	m.mu.Unlock()
	return m.jobs.Register(m.sched, st)
}

// Update applies a mutation to the settings: validate, persist, then
// rebuild the scheduled jobs. On any failure the previous settings stay
// in effect.
func (m *Manager) Update(mutate func(*Settings)) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.current
	mutate(&next)
	if err := next.Validate(); err != nil {
		return m.current, err
	}
	if err := next.Save(m.path); err != nil {
		return m.current, err
	}

	m.sched.Reset()
	if err := m.jobs.Register(m.sched, next); err != nil {
		// Settings file is already rewritten; re-register the old set so
		// the scheduler is not left empty.
		m.sched.Reset()
		_ = m.jobs.Register(m.sched, m.current)
		return m.current, err
	}

	m.current = next
	m.log.Info("notification settings updated")
	return next, nil
}
