package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rv32im/rubicv/debugger"
	"github.com/rv32im/rubicv/stats"
	"github.com/rv32im/rubicv/vm"
)

// ErrSessionNotFound is returned when a session ID doesn't match a live
// session.
var ErrSessionNotFound = errors.New("session not found")

// Session is one guest program's live interpreter state, reachable
// remotely through the HTTP API and streamed over the broadcaster.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	mem     *vm.Memory
	program *vm.Program
	runner  vm.Runner
	dbg     *debugger.Debugger
	stats   *stats.Collector
}

// SessionManager owns the set of live sessions. Every session gets its
// own memory slab; a slab is mutable and must not be aliased across
// interpreters.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	broadcaster *Broadcaster
}

// NewSessionManager returns a manager that broadcasts session events
// through b.
func NewSessionManager(b *Broadcaster) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*Session),
		broadcaster: b,
	}
}

// Create allocates a new session with a fresh, zeroed memory slab.
func (sm *SessionManager) Create() (*Session, error) {
	id, err := generateSessionID()
	if err != nil {
		return nil, err
	}

	session := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		mem:       vm.NewMemory(make([]byte, vm.MemSize)),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[id] = session
	return session, nil
}

// Get retrieves a session by ID.
func (sm *SessionManager) Get(id string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	s, ok := sm.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy removes a session by ID.
func (sm *SessionManager) Destroy(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, id)
	return nil
}

// List returns all live session IDs.
func (sm *SessionManager) List() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Count reports the number of live sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Load predecodes image into the session's program and (re)builds its
// interpreter over the session's existing memory slab.
func (s *Session) Load(image []byte) (*vm.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prog, err := vm.Predecode(image)
	if err != nil {
		return nil, err
	}

	s.program = prog
	s.runner = vm.New(s.mem, prog)
	s.stats = stats.NewCollector()
	s.runner.SetStats(s.stats)
	s.dbg = debugger.New(s.runner, s.mem, prog)
	return prog, nil
}

// Run drives the loaded program to completion or the cycle cap.
func (s *Session) Run(argCount uint32, maxCycles uint64) (vm.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return vm.ExecutionResult{}, errors.New("no program loaded")
	}
	return s.runner.Run(argCount, maxCycles), nil
}

// Step executes exactly one record. Breakpoints do not apply to a
// manual single step, matching the debugger's own step command.
func (s *Session) Step() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return errors.New("no program loaded")
	}
	return s.runner.Step()
}

// Registers returns a snapshot of the register file.
func (s *Session) Registers() [vm.NumRegisters]uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return [vm.NumRegisters]uint32{}
	}
	return *s.runner.Registers()
}

// ReadMemory returns length bytes starting at addr from the session's
// slab, honoring the region-routing rule for each byte read.
func (s *Session) ReadMemory(addr, length uint32) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, length)
	for i := uint32(0); i < length; i++ {
		out[i] = s.mem.ReadU8(addr + i)
	}
	return out
}

// Debugger returns the session's debugger instance, or nil if no program
// has been loaded yet.
func (s *Session) Debugger() *debugger.Debugger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbg
}

// Stats returns the session's statistics collector, or nil.
func (s *Session) Stats() *stats.Collector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// PPCAndCycles returns the current program counter index and cycle
// count without requiring the caller to know about vm.Runner.
func (s *Session) PPCAndCycles() (int, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runner == nil {
		return 0, 0
	}
	return s.runner.PPC(), s.runner.CycleCount()
}

func generateSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
