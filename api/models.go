package api

import "time"

// SessionCreateResponse is returned when a session is created.
type SessionCreateResponse struct {
	SessionID string    `json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// LoadProgramRequest carries a raw code image to predecode: a 4-byte
// little-endian entrypoint offset followed by aligned 32-bit
// instructions.
type LoadProgramRequest struct {
	Image []byte `json:"image"`
}

// LoadProgramResponse reports predecode outcome.
type LoadProgramResponse struct {
	Success          bool   `json:"success"`
	Error            string `json:"error,omitempty"`
	InstructionCount int    `json:"instructionCount,omitempty"`
	Entrypoint       int    `json:"entrypoint,omitempty"`
	WritesToX0       bool   `json:"writesToX0,omitempty"`
}

// RunRequest carries the run loop's parameters.
type RunRequest struct {
	ArgCount  uint32 `json:"argCount"`
	MaxCycles uint64 `json:"maxCycles,omitempty"`
}

// RunResponse mirrors vm.ExecutionResult as JSON.
type RunResponse struct {
	Kind   string `json:"kind"`
	Value  uint32 `json:"value,omitempty"`
	Error  string `json:"error,omitempty"`
	Cycles uint64 `json:"cycles"`
	PPC    int    `json:"ppc"`
}

// SessionStatusResponse reports a session's current interpreter state.
type SessionStatusResponse struct {
	SessionID string `json:"sessionId"`
	PPC       int    `json:"ppc"`
	Cycles    uint64 `json:"cycles"`
	Loaded    bool   `json:"loaded"`
}

// RegistersResponse is the full 32-register file, keyed by index rather
// than ABI name so clients don't need RISC-V register-naming knowledge.
type RegistersResponse struct {
	Registers [32]uint32 `json:"registers"`
	PPC       int        `json:"ppc"`
	Cycles    uint64     `json:"cycles"`
}

// MemoryRequest requests a byte range from the guest address space.
type MemoryRequest struct {
	Address uint32 `json:"address"`
	Length  uint32 `json:"length"`
}

// MemoryResponse returns the requested bytes.
type MemoryResponse struct {
	Address uint32 `json:"address"`
	Data    []byte `json:"data"`
}

// BreakpointRequest sets a breakpoint at a predecoded-record index.
type BreakpointRequest struct {
	PPC int `json:"ppc"`
}

// BreakpointResponse describes one breakpoint.
type BreakpointResponse struct {
	ID      int  `json:"id"`
	PPC     int  `json:"ppc"`
	Enabled bool `json:"enabled"`
}

// WatchpointRequest sets a watchpoint on a register name or an address
// expression, in the same syntax the debugger's watch command accepts.
type WatchpointRequest struct {
	Expression string `json:"expression"`
}

// WatchpointResponse describes one watchpoint.
type WatchpointResponse struct {
	ID         int    `json:"id"`
	Expression string `json:"expression"`
	Address    uint32 `json:"address,omitempty"`
	IsRegister bool   `json:"isRegister"`
	Register   int    `json:"register,omitempty"`
	Enabled    bool   `json:"enabled"`
	HitCount   int    `json:"hitCount"`
}

// StatsResponse mirrors stats.Collector's exported totals.
type StatsResponse struct {
	TotalInstructions  uint64            `json:"totalInstructions"`
	TotalCycles        uint64            `json:"totalCycles"`
	InstructionsPerSec float64           `json:"instructionsPerSec"`
	TopInstructions    map[string]uint64 `json:"topInstructions"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
