// Package session keeps one Household, Yourself profile and Form per
// browser session and tears them down when the session ends.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/benefitform/internal/cell"
	"github.com/dukerupert/benefitform/internal/form"
	"github.com/dukerupert/benefitform/internal/household"
	"github.com/dukerupert/benefitform/internal/model"
	"github.com/dukerupert/benefitform/internal/profile"
	"github.com/dukerupert/benefitform/internal/store"
)

var ErrNotFound = errors.New("session not found")

type Config struct {
	TTL         time.Duration
	MaxChildren int
	// Now is the clock for the current month and expiry. Defaults to time.Now.
	Now func() time.Time
}

// Session is the live state behind one cookie.
type Session struct {
	ID        string
	Month     model.Period
	ExpiresAt time.Time

	Household *household.Store
	Profile   *profile.Store
	Form      *form.Form

	unmirror func()
}

func (s *Session) teardown() {
	if s.unmirror != nil {
		s.unmirror()
	}
	s.Form.Close()
	s.Household.Close()
	s.Profile.Close()
}

type Manager struct {
	sessions *store.SessionStore
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	live     map[string]*Session
	onCreate []func(*Session)
	onEnd    []func(id string)
}

func NewManager(ss *store.SessionStore, cfg Config, logger *slog.Logger) *Manager {
	if cfg.TTL == 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.MaxChildren == 0 {
		cfg.MaxChildren = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		sessions: ss,
		cfg:      cfg,
		logger:   logger,
		live:     make(map[string]*Session),
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create starts a session for the current month and returns it with the
// cookie token. The token is never stored in clear.
func (m *Manager) Create() (*Session, string, error) {
	token, err := generateToken()
	if err != nil {
		return nil, "", err
	}

	now := m.cfg.Now()
	month := model.MonthOf(now)
	id := uuid.NewString()

	rec, err := m.sessions.Create(id, token, month, now.Add(m.cfg.TTL))
	if err != nil {
		return nil, "", fmt.Errorf("record session: %w", err)
	}

	logger := m.logger.With("session", id)
	hs := household.NewStore(model.NewHousehold(month), month, logger.With("component", "household"))
	ps := profile.NewStore(model.Yourself{}, logger.With("component", "profile"))

	unmirror := mirrorProfile(ps, hs, logger)

	f, err := form.New(hs, ps, m.cfg.MaxChildren, logger.With("component", "form"))
	if err != nil {
		unmirror()
		hs.Close()
		ps.Close()
		if endErr := m.sessions.End(id); endErr != nil {
			logger.Error("end session after failed create", "error", endErr)
		}
		return nil, "", fmt.Errorf("build form: %w", err)
	}

	s := &Session{
		ID:        id,
		Month:     month,
		ExpiresAt: rec.ExpiresAt,
		Household: hs,
		Profile:   ps,
		Form:      f,
		unmirror:  unmirror,
	}

	m.mu.Lock()
	m.live[id] = s
	hooks := append([]func(*Session){}, m.onCreate...)
	m.mu.Unlock()

	for _, fn := range hooks {
		fn(s)
	}

	logger.Info("session created", "month", month)
	return s, token, nil
}

// mirrorProfile applies every profile commit to the household before the
// form re-evaluates its conditions. Notifications from concurrent commits
// can arrive out of order, so each one applies the latest snapshot and
// older revisions are skipped.
func mirrorProfile(ps *profile.Store, hs *household.Store, logger *slog.Logger) func() {
	var (
		mu      sync.Mutex
		applied uint64
	)
	return ps.Subscribe(func(cell.Change[model.Yourself]) {
		mu.Lock()
		defer mu.Unlock()
		y, rev := ps.Snapshot()
		if rev <= applied {
			return
		}
		if _, err := hs.ApplyProfile(y); err != nil {
			logger.Error("apply profile", "error", err, "revision", rev)
			return
		}
		applied = rev
	})
}

// Get returns the live session with the given public ID.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.live[id]
	return s, ok
}

// Lookup resolves a cookie token to its live session.
func (m *Manager) Lookup(token string) (*Session, error) {
	rec, err := m.sessions.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	s, ok := m.Get(rec.ID)
	if !ok {
		// Recorded in a previous process; its state is gone.
		return nil, ErrNotFound
	}
	return s, nil
}

// OnCreate registers fn to run for every new session before Create returns.
func (m *Manager) OnCreate(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCreate = append(m.onCreate, fn)
}

// OnEnd registers fn to run after a session is torn down.
func (m *Manager) OnEnd(fn func(id string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onEnd = append(m.onEnd, fn)
}

// End ends the session and releases its state.
func (m *Manager) End(id string) error {
	if err := m.sessions.End(id); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	m.drop(id)
	return nil
}

func (m *Manager) drop(id string) {
	m.mu.Lock()
	s, ok := m.live[id]
	delete(m.live, id)
	hooks := append([]func(string){}, m.onEnd...)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.teardown()
	for _, fn := range hooks {
		fn(id)
	}
	m.logger.Info("session ended", "session", id)
}

// Sweep ends every session that expired by now.
func (m *Manager) Sweep(now time.Time) (int, error) {
	ids, err := m.sessions.ExpireSessions(now)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	for _, id := range ids {
		m.drop(id)
	}
	return len(ids), nil
}

// Run sweeps expired sessions every interval until ctx is done. Ended
// records older than one TTL are deleted on the same tick.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := m.cfg.Now()
			if n, err := m.Sweep(now); err != nil {
				m.logger.Error("sweep sessions", "error", err)
			} else if n > 0 {
				m.logger.Info("expired sessions", "count", n)
			}
			if _, err := m.sessions.DeleteEnded(now.Add(-m.cfg.TTL)); err != nil {
				m.logger.Error("delete ended sessions", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close tears down every live session without ending their records.
func (m *Manager) Close() {
	m.mu.Lock()
	live := m.live
	m.live = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range live {
		s.teardown()
	}
}
