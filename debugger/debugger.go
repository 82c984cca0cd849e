package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rv32im/rubicv/vm"
)

// Debugger wraps a running interpreter with breakpoints, single-stepping,
// and a small command language.
type Debugger struct {
	Runner  vm.Runner
	Mem     *vm.Memory
	Program *vm.Program

	Breakpoints *BreakpointManager
	Watchpoints *WatchpointManager
	Evaluator   *ExpressionEvaluator

	Running     bool
	LastCommand string
	History     *CommandHistory

	Output strings.Builder
}

// New wraps runner over mem/program with empty breakpoint and
// watchpoint state.
func New(runner vm.Runner, mem *vm.Memory, program *vm.Program) *Debugger {
	return &Debugger{
		Runner:      runner,
		Mem:         mem,
		Program:     program,
		Breakpoints: NewBreakpointManager(),
		Watchpoints: NewWatchpointManager(),
		Evaluator:   NewExpressionEvaluator(),
		History:     NewCommandHistory(),
	}
}

// Printf writes formatted text to the output buffer for the UI to drain.
func (d *Debugger) Printf(format string, args ...interface{}) {
	fmt.Fprintf(&d.Output, format, args...)
}

// Println writes a line to the output buffer.
func (d *Debugger) Println(args ...interface{}) {
	fmt.Fprintln(&d.Output, args...)
}

// GetOutput returns and clears the buffered output.
func (d *Debugger) GetOutput() string {
	s := d.Output.String()
	d.Output.Reset()
	return s
}

// ExecuteCommand parses and runs one command line. An empty line repeats
// the last command, gdb-style.
func (d *Debugger) ExecuteCommand(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		line = d.LastCommand
	}
	if line != "" {
		d.History.Add(line)
		d.LastCommand = line
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	cmd, args := strings.ToLower(parts[0]), parts[1:]
	switch cmd {
	case "step", "s":
		return d.cmdStep(args)
	case "continue", "c":
		return d.cmdContinue(args)
	case "break", "b":
		return d.cmdBreak(args)
	case "delete", "d":
		return d.cmdDelete(args)
	case "watch", "w":
		return d.cmdWatch(args)
	case "unwatch":
		return d.cmdUnwatch(args)
	case "info", "i":
		return d.cmdInfo(args)
	case "print", "p":
		return d.cmdPrint(args)
	case "x":
		return d.cmdExamine(args)
	case "disas", "disassemble":
		return d.cmdDisassemble(args)
	case "help", "h", "?":
		return d.cmdHelp(args)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// ShouldBreak reports whether execution should pause at the current PPC
// (breakpoint hit or watched value changed), and why.
func (d *Debugger) ShouldBreak() (bool, string) {
	ppc := d.Runner.PPC()
	if bp := d.Breakpoints.ProcessHit(ppc); bp != nil {
		return true, fmt.Sprintf("breakpoint %d at rec[%d]", bp.ID, bp.PPC)
	}
	if wp, changed := d.Watchpoints.Check(d.Runner, d.Mem); changed {
		return true, fmt.Sprintf("watchpoint %d: %s = 0x%08x", wp.ID, wp.Expression, wp.LastValue)
	}
	return false, ""
}

// AddWatch resolves expression to a register or memory watch target and
// registers an initialized watchpoint for it. A bare register name
// watches that register; anything else (a [deref] or an address
// expression) is evaluated once and watched as a memory word.
func (d *Debugger) AddWatch(expression string) (*Watchpoint, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("empty watch expression")
	}

	var wp *Watchpoint
	if idx, ok := parseRegisterName(strings.ToLower(expression)); ok {
		wp = d.Watchpoints.Add(expression, true, idx, 0)
	} else {
		addrExpr := expression
		if strings.HasPrefix(addrExpr, "[") && strings.HasSuffix(addrExpr, "]") {
			addrExpr = addrExpr[1 : len(addrExpr)-1]
		}
		addr, err := d.Evaluator.EvaluateExpression(addrExpr, d.Runner, d.Mem)
		if err != nil {
			return nil, err
		}
		wp = d.Watchpoints.Add(expression, false, 0, addr)
	}

	if err := d.Watchpoints.Initialize(wp.ID, d.Runner, d.Mem); err != nil {
		_ = d.Watchpoints.DeleteByID(wp.ID)
		return nil, err
	}
	return wp, nil
}

func (d *Debugger) cmdStep(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count: %s", args[0])
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if err := d.Runner.Step(); err != nil {
			d.Println(stepTerminationMessage(err))
			d.Running = false
			return nil
		}
	}
	d.Running = true
	d.Printf("stopped at rec[%d]\n", d.Runner.PPC())
	return nil
}

func (d *Debugger) cmdContinue(args []string) error {
	d.Running = true
	for {
		if stop, reason := d.ShouldBreak(); stop {
			d.Println(reason)
			return nil
		}
		if err := d.Runner.Step(); err != nil {
			d.Println(stepTerminationMessage(err))
			d.Running = false
			return nil
		}
	}
}

func stepTerminationMessage(err error) string {
	var sysErr *vm.SystemCallError
	switch {
	case errors.Is(err, vm.ErrBreakpoint):
		return "hit EBREAK"
	case errors.As(err, &sysErr):
		return fmt.Sprintf("program exited via ECALL with x11=%d", sysErr.Value)
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

func (d *Debugger) cmdBreak(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: break <record-index>")
	}
	ppc, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid record index: %s", args[0])
	}
	bp := d.Breakpoints.Add(ppc, false)
	d.Printf("breakpoint %d at rec[%d]\n", bp.ID, bp.PPC)
	return nil
}

func (d *Debugger) cmdDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <breakpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid breakpoint id: %s", args[0])
	}
	return d.Breakpoints.DeleteByID(id)
}

func (d *Debugger) cmdWatch(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: watch <expression>")
	}
	wp, err := d.AddWatch(strings.Join(args, " "))
	if err != nil {
		return err
	}
	d.Printf("watchpoint %d: %s\n", wp.ID, wp.Expression)
	return nil
}

func (d *Debugger) cmdUnwatch(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: unwatch <watchpoint-id>")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid watchpoint id: %s", args[0])
	}
	return d.Watchpoints.DeleteByID(id)
}

func (d *Debugger) cmdInfo(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: info <registers|breakpoints|watchpoints>")
	}
	switch args[0] {
	case "registers", "reg", "regs":
		regs := d.Runner.Registers()
		for i := 0; i < vm.NumRegisters; i++ {
			d.Printf("x%-2d = 0x%08x", i, regs[i])
			if (i+1)%4 == 0 {
				d.Println()
			} else {
				d.Printf("  ")
			}
		}
		d.Println()
		d.Printf("ppc = %d  cycles = %d\n", d.Runner.PPC(), d.Runner.CycleCount())
	case "breakpoints", "break":
		for _, bp := range d.Breakpoints.All() {
			d.Printf("%d: rec[%d] enabled=%v hits=%d\n", bp.ID, bp.PPC, bp.Enabled, bp.HitCount)
		}
	case "watchpoints", "watch":
		for _, wp := range d.Watchpoints.All() {
			target := fmt.Sprintf("0x%08x", wp.Address)
			if wp.IsRegister {
				target = fmt.Sprintf("x%d", wp.Register)
			}
			d.Printf("%d: %s (%s) enabled=%v hits=%d last=0x%08x\n",
				wp.ID, wp.Expression, target, wp.Enabled, wp.HitCount, wp.LastValue)
		}
	default:
		return fmt.Errorf("unknown info target: %s", args[0])
	}
	return nil
}

func (d *Debugger) cmdPrint(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: print <expression>")
	}
	expression := strings.Join(args, " ")
	result, err := d.Evaluator.EvaluateExpression(expression, d.Runner, d.Mem)
	if err != nil {
		return err
	}
	d.Printf("$%d = 0x%08x (%d)\n", d.Evaluator.ValueNumber(), result, int32(result))
	return nil
}

func (d *Debugger) cmdExamine(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: x <address>")
	}
	addr, err := strconv.ParseUint(strings.TrimPrefix(args[0], "0x"), 16, 32)
	if err != nil {
		return fmt.Errorf("invalid address: %s", args[0])
	}
	// The checked wrapper reports addressing mistakes the interpreter's
	// masking would absorb silently.
	v, err := vm.NewCheckedMemory(d.Mem).ReadU32(uint32(addr))
	if err != nil {
		return err
	}
	d.Printf("0x%08x: 0x%08x\n", addr, v)
	return nil
}

func (d *Debugger) cmdDisassemble(args []string) error {
	start, count := d.Runner.PPC(), 10
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil {
			start = v
		}
	}
	if len(args) >= 2 {
		if v, err := strconv.Atoi(args[1]); err == nil {
			count = v
		}
	}
	for i := start; i < start+count && i < len(d.Program.Records); i++ {
		marker := "  "
		if i == d.Runner.PPC() {
			marker = "=>"
		}
		d.Printf("%s rec[%d]: %s\n", marker, i, vm.Disassemble(d.Program.Records[i]))
	}
	return nil
}

func (d *Debugger) cmdHelp(args []string) error {
	d.Println("commands: step [n], continue, break <ppc>, delete <id>, watch <expr>, unwatch <id>, info <registers|breakpoints|watchpoints>, print <expr>, x <addr>, disas [start [count]], help")
	return nil
}

var regAliases = map[string]int{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7,
	"s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23, "s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

func parseRegisterName(name string) (int, bool) {
	if idx, ok := regAliases[name]; ok {
		return idx, true
	}
	if strings.HasPrefix(name, "x") {
		if v, err := strconv.Atoi(name[1:]); err == nil && v >= 0 && v < vm.NumRegisters {
			return v, true
		}
	}
	return 0, false
}
