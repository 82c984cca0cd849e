package debugger

import (
	"fmt"
	"sync"

	"github.com/rv32im/rubicv/vm"
)

// Watchpoint monitors a register or a memory word for value changes.
// Detection is change-based: the watchpoint fires when the monitored
// value differs from the last one observed, not on individual read or
// write operations (true access tracking would require hooks in the
// interpreter's memory layer, which the hot path deliberately omits).
type Watchpoint struct {
	ID         int
	Expression string // the expression as entered, e.g. "a0" or "[0x2000]"
	Address    uint32 // resolved address for memory watchpoints
	IsRegister bool
	Register   int // register index if IsRegister
	Enabled    bool
	LastValue  uint32
	HitCount   int
}

// WatchpointManager manages the set of active watchpoints.
type WatchpointManager struct {
	mu          sync.RWMutex
	watchpoints map[int]*Watchpoint
	nextID      int
}

// NewWatchpointManager returns an empty watchpoint manager.
func NewWatchpointManager() *WatchpointManager {
	return &WatchpointManager{
		watchpoints: make(map[int]*Watchpoint),
		nextID:      1,
	}
}

// Add creates an enabled watchpoint over a register (isRegister) or a
// memory word at address.
func (wm *WatchpointManager) Add(expression string, isRegister bool, register int, address uint32) *Watchpoint {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp := &Watchpoint{
		ID:         wm.nextID,
		Expression: expression,
		Address:    address,
		IsRegister: isRegister,
		Register:   register,
		Enabled:    true,
	}
	wm.watchpoints[wp.ID] = wp
	wm.nextID++
	return wp
}

// DeleteByID removes a watchpoint by its ID.
func (wm *WatchpointManager) DeleteByID(id int) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	if _, exists := wm.watchpoints[id]; !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	delete(wm.watchpoints, id)
	return nil
}

// EnableByID enables a watchpoint by its ID.
func (wm *WatchpointManager) EnableByID(id int) error {
	return wm.setEnabled(id, true)
}

// DisableByID disables a watchpoint by its ID.
func (wm *WatchpointManager) DisableByID(id int) error {
	return wm.setEnabled(id, false)
}

func (wm *WatchpointManager) setEnabled(id int, enabled bool) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.Enabled = enabled
	return nil
}

// Get returns the watchpoint with the given ID, or nil.
func (wm *WatchpointManager) Get(id int) *Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return wm.watchpoints[id]
}

// All returns every watchpoint, in no particular order.
func (wm *WatchpointManager) All() []*Watchpoint {
	wm.mu.RLock()
	defer wm.mu.RUnlock()

	result := make([]*Watchpoint, 0, len(wm.watchpoints))
	for _, wp := range wm.watchpoints {
		result = append(result, wp)
	}
	return result
}

// Check scans the enabled watchpoints against current interpreter state
// and returns the first whose monitored value changed, updating its last
// value and hit count.
func (wm *WatchpointManager) Check(runner vm.Runner, mem *vm.Memory) (*Watchpoint, bool) {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	for _, wp := range wm.watchpoints {
		if !wp.Enabled {
			continue
		}
		current := watchedValue(wp, runner, mem)
		if current != wp.LastValue {
			wp.HitCount++
			wp.LastValue = current
			return wp, true
		}
	}
	return nil, false
}

// Initialize snapshots a watchpoint's current value so it only fires on
// subsequent changes, not on its own creation.
func (wm *WatchpointManager) Initialize(id int, runner vm.Runner, mem *vm.Memory) error {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	wp, exists := wm.watchpoints[id]
	if !exists {
		return fmt.Errorf("watchpoint %d not found", id)
	}
	wp.LastValue = watchedValue(wp, runner, mem)
	return nil
}

func watchedValue(wp *Watchpoint, runner vm.Runner, mem *vm.Memory) uint32 {
	if wp.IsRegister {
		return runner.Registers()[wp.Register]
	}
	return mem.ReadU32(wp.Address)
}

// Clear removes all watchpoints.
func (wm *WatchpointManager) Clear() {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.watchpoints = make(map[int]*Watchpoint)
}

// Count returns the number of watchpoints.
func (wm *WatchpointManager) Count() int {
	wm.mu.RLock()
	defer wm.mu.RUnlock()
	return len(wm.watchpoints)
}
