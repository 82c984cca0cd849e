package vm

import (
	"errors"

	"github.com/rv32im/rubicv/stats"
)

// Runner is the construction-time-erased interface over Interpreter[P],
// letting callers (the CLI, the debugger, the API session manager) hold
// one type regardless of which x0 policy New picked.
type Runner interface {
	// Step executes exactly one record. See Interpreter.Step.
	Step() error

	// Run drives Step in a loop, seeding x10 with argCount and x2 (sp)
	// with StackStart, until a terminal condition or maxCycles is hit.
	Run(argCount uint32, maxCycles uint64) ExecutionResult

	Registers() *[NumRegisters]uint32
	PPC() int
	CycleCount() uint64

	// SetStats attaches an execution statistics collector; nil detaches.
	SetStats(c *stats.Collector)
}

// New builds a Runner, selecting the x0-enforcing variant the predecoder's
// hazard scan requires and the non-enforcing one otherwise.
func New(mem *Memory, prog *Program) Runner {
	if prog.WritesToX0 {
		return NewStrict(mem, prog)
	}
	return NewFast(mem, prog)
}

func (in *Interpreter[P]) Registers() *[NumRegisters]uint32 { return &in.regs }
func (in *Interpreter[P]) PPC() int                         { return in.ppc }
func (in *Interpreter[P]) CycleCount() uint64               { return in.cycles }

// ResultKind tags the way a run ended.
type ResultKind uint8

const (
	// Success means the guest issued ECALL; Value carries x11.
	Success ResultKind = iota
	// Breakpoint means the guest issued EBREAK.
	Breakpoint
	// CycleLimitExceeded means maxCycles was reached without a trap.
	CycleLimitExceeded
	// Failed means Step returned an error other than the two traps above
	// (an illegal instruction). Err holds the cause.
	Failed
)

// ExecutionResult is the outcome of a Run call.
type ExecutionResult struct {
	Kind  ResultKind
	Value uint32
	Err   error
}

// Run seeds the argument and stack pointer registers and drives Step
// until ECALL, EBREAK, an error, or the cycle budget is exhausted. If
// maxCycles is 0, DefaultMaxCycles is used.
func (in *Interpreter[P]) Run(argCount uint32, maxCycles uint64) ExecutionResult {
	if maxCycles == 0 {
		maxCycles = DefaultMaxCycles
	}

	in.regs[RegA0] = argCount
	in.regs[RegSP] = StackStart
	in.stats.Start()

	for in.cycles < maxCycles {
		if err := in.Step(); err != nil {
			in.stats.Finalize()
			return ClassifyStepError(err)
		}
	}

	in.stats.Finalize()
	return ExecutionResult{Kind: CycleLimitExceeded}
}

// ClassifyStepError lifts a Step failure into the run loop's exit
// taxonomy: ECALL becomes Success carrying x11, EBREAK becomes
// Breakpoint, anything else is Failed with the cause attached.
func ClassifyStepError(err error) ExecutionResult {
	var sysErr *SystemCallError
	switch {
	case errors.As(err, &sysErr):
		return ExecutionResult{Kind: Success, Value: sysErr.Value}
	case errors.Is(err, ErrBreakpoint):
		return ExecutionResult{Kind: Breakpoint}
	default:
		return ExecutionResult{Kind: Failed, Err: err}
	}
}
