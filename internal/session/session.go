package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"faceattend/internal/attendance"
	"faceattend/internal/deadline"
	"faceattend/internal/metrics"
)

var (
	ErrNoSession      = errors.New("no active attendance session")
	ErrSessionActive  = errors.New("an attendance session is already running")
	ErrSessionExpired = errors.New("attendance session deadline has passed")
)

// Roster lists every enrolled student.
type Roster interface {
	StudentIDs(ctx context.Context) ([]string, error)
}

// Session is one attendance-taking run. Its deadlines never change.
type Session struct {
	ID        string                 `json:"id"`
	Config    deadline.SessionConfig `json:"-"`
	Window    deadline.Window        `json:"window"`
	StartedAt time.Time              `json:"started_at"`

	closed bool // guarded by Manager.mu
}

// Expired reports whether now is past the final deadline.
func (s *Session) Expired(now time.Time) bool {
	return s.Window.Expired(now)
}

// Summary is returned when a session stops.
type Summary struct {
	Session *Session          `json:"session"`
	Day     string            `json:"day"`
	Marked  int               `json:"marked_absent"`
	Report  attendance.Report `json:"report"`
}

// Status is the poll response for the operator UI.
type Status struct {
	attendance.Report
	Active         bool       `json:"active"`
	SessionExpired bool       `json:"session_expired"`
	LateDeadline   *time.Time `json:"late_deadline,omitempty"`
	Deadline       *time.Time `json:"deadline,omitempty"`
}

// Manager owns the lifecycle of the single active session.
type Manager struct {
	ledger      *attendance.Ledger
	roster      Roster
	schedules   deadline.ScheduleFinder
	recentLimit int
	now         func() time.Time
	log         zerolog.Logger

	mu      sync.Mutex
	current *Session
}

// Option tweaks a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRecentLimit sets how many recent records Status returns.
func WithRecentLimit(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.recentLimit = n
		}
	}
}

// NewManager creates a manager with no active session.
func NewManager(ledger *attendance.Ledger, roster Roster, schedules deadline.ScheduleFinder, log zerolog.Logger, opts ...Option) *Manager {
	m := &Manager{
		ledger:      ledger,
		roster:      roster,
		schedules:   schedules,
		recentLimit: 10,
		now:         time.Now,
		log:         log,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Now is the manager clock in the ledger's location.
func (m *Manager) Now() time.Time {
	return m.now().In(m.ledger.Location())
}

// Start computes the deadlines once and opens a session. Configuration errors
// are returned before any session exists.
func (m *Manager) Start(ctx context.Context, cfg deadline.SessionConfig) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return nil, ErrSessionActive
	}
	now := m.Now()
	w, err := deadline.Compute(ctx, cfg, now, m.schedules)
	if err != nil {
		return nil, err
	}
	if w.Final.Before(w.Late) {
		m.log.Warn().Time("late", w.Late).Time("final", w.Final).Msg("final deadline precedes late deadline")
	}
	s := &Session{ID: uuid.NewString(), Config: cfg, Window: w, StartedAt: now}
	m.current = s
	m.log.Info().Str("session_id", s.ID).Time("late_deadline", w.Late).Time("deadline", w.Final).Msg("attendance session started")
	return s, nil
}

// Active returns the running session or nil.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Record writes a sighting into the ledger of the active session. It holds the
// session lock for the duration of the write, so no record lands after Stop.
func (m *Manager) Record(ctx context.Context, studentID string, confidence float64) (attendance.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.current
	if s == nil {
		return attendance.Outcome{}, ErrNoSession
	}
	now := m.Now()
	if s.Expired(now) {
		return attendance.Outcome{}, ErrSessionExpired
	}
	return m.ledger.Record(ctx, s.Window, studentID, now, confidence)
}

// Stop ends the active session and closes its day exactly once. The stop time
// is authoritative, even before the final deadline. If closing fails the
// session stays active so a later Stop can retry it.
func (m *Manager) Stop(ctx context.Context) (Summary, error) {
	m.mu.Lock()
	s := m.current
	if s == nil {
		m.mu.Unlock()
		return Summary{}, ErrNoSession
	}
	day := m.ledger.Day(m.Now())
	marked, err := m.closeLocked(ctx, s, day)
	if err == nil {
		m.current = nil
	}
	m.mu.Unlock()

	sum := Summary{Session: s, Day: day, Marked: marked}
	if err != nil {
		m.log.Error().Err(err).Str("session_id", s.ID).Msg("attendance session close failed, still active")
		return sum, err
	}
	total, err := m.total(ctx)
	if err != nil {
		return sum, err
	}
	sum.Report, err = m.ledger.Status(ctx, day, total, m.recentLimit)
	m.log.Info().Str("session_id", s.ID).Int("marked_absent", sum.Marked).Msg("attendance session stopped")
	return sum, err
}

// closeLocked marks the absentees of day for s. It does nothing once s closed
// successfully. m.mu must be held.
func (m *Manager) closeLocked(ctx context.Context, s *Session, day string) (int, error) {
	if s.closed {
		return 0, nil
	}
	ids, err := m.roster.StudentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list roster: %w", err)
	}
	marked, err := m.ledger.CloseSession(ctx, day, ids)
	if err != nil {
		return 0, err
	}
	s.closed = true
	metrics.SessionsClosed.Inc()
	return marked, nil
}

// Status reports today's counts, the latest arrivals and whether the deadline passed.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	now := m.Now()
	total, err := m.total(ctx)
	if err != nil {
		return Status{}, err
	}
	rep, err := m.ledger.Status(ctx, m.ledger.Day(now), total, m.recentLimit)
	if err != nil {
		return Status{}, err
	}
	st := Status{Report: rep}
	if s := m.Active(); s != nil {
		late, final := s.Window.Late, s.Window.Final
		st.Active = true
		st.SessionExpired = s.Expired(now)
		st.LateDeadline = &late
		st.Deadline = &final
	}
	return st, nil
}

func (m *Manager) total(ctx context.Context) (int, error) {
	ids, err := m.roster.StudentIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list roster: %w", err)
	}
	return len(ids), nil
}
