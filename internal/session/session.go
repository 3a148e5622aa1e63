package session

import (
	"errors"
	"sync"
	"time"

	"sheet-broadcast/internal/broadcast"
	"sheet-broadcast/internal/sheets"
	"sheet-broadcast/internal/sms"

	"github.com/google/uuid"
)

var ErrBroadcastRunning = errors.New("a broadcast is already running for this session")

// Run is the result of one completed broadcast.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Entries    []broadcast.Entry
}

// Session is the operator context created by a successful login. It holds
// the fetched contact table, the messaging credentials and the last run.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu          sync.Mutex
	table       *sheets.Table
	fetchedAt   time.Time
	credentials *sms.Credentials
	oauthState  string
	running     bool
	lastRun     *Run
}

// SetTable stores a fetched snapshot. The table must not be modified
// afterwards.
func (s *Session) SetTable(table *sheets.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = table
	s.fetchedAt = time.Now()
}

// ReplaceTable swaps in next only while old is still the stored table, so a
// newer fetch is never overwritten. fetchedAt is kept.
func (s *Session) ReplaceTable(old, next *sheets.Table) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table != old {
		return false
	}
	s.table = next
	return true
}

func (s *Session) Table() (*sheets.Table, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return nil, time.Time{}, false
	}
	return s.table, s.fetchedAt, true
}

// NewOAuthState issues the state value for a Google consent redirect.
func (s *Session) NewOAuthState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oauthState = uuid.NewString()
	return s.oauthState
}

// ConsumeOAuthState checks and clears the pending state.
func (s *Session) ConsumeOAuthState(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok := s.oauthState != "" && s.oauthState == state
	s.oauthState = ""
	return ok
}

func (s *Session) SetCredentials(creds sms.Credentials) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials = &creds
}

func (s *Session) Credentials() (sms.Credentials, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials == nil {
		return sms.Credentials{}, false
	}
	return *s.credentials, true
}

// BeginRun reserves the session for a broadcast. Callers must call
// FinishRun when done.
func (s *Session) BeginRun() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrBroadcastRunning
	}
	s.running = true
	return nil
}

func (s *Session) FinishRun(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if run != nil {
		s.lastRun = run
	}
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Session) LastRun() (*Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastRun != nil
}

// Store keeps sessions in memory for the lifetime of the process.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Create() *Session {
	s := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
	}

	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()

	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
