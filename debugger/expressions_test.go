package debugger

import (
	"strings"
	"testing"

	"github.com/rv32im/rubicv/vm"
)

func evalHelper(t *testing.T) (*ExpressionEvaluator, *Debugger) {
	t.Helper()
	d := newTestDebugger(t, countLoop()...)
	return d.Evaluator, d
}

func TestEvalLiterals(t *testing.T) {
	e, d := evalHelper(t)
	tests := []struct {
		expr     string
		expected uint32
	}{
		{"42", 42},
		{"-1", 0xFFFFFFFF},
		{"0x2000", 0x2000},
		{"0xDEADBEEF", 0xDEADBEEF},
		{"0b1010", 10},
	}
	for _, tt := range tests {
		got, err := e.EvaluateExpression(tt.expr, d.Runner, d.Mem)
		if err != nil {
			t.Errorf("%q: %v", tt.expr, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%q = 0x%x, expected 0x%x", tt.expr, got, tt.expected)
		}
	}
}

func TestEvalRegisters(t *testing.T) {
	e, d := evalHelper(t)
	d.Runner.Registers()[10] = 0x1234
	d.Runner.Registers()[2] = 0x8000

	for _, expr := range []string{"a0", "x10", "A0"} {
		got, err := e.EvaluateExpression(expr, d.Runner, d.Mem)
		if err != nil {
			t.Fatalf("%q: %v", expr, err)
		}
		if got != 0x1234 {
			t.Errorf("%q = 0x%x, expected 0x1234", expr, got)
		}
	}

	got, err := e.EvaluateExpression("sp", d.Runner, d.Mem)
	if err != nil || got != 0x8000 {
		t.Errorf("sp = 0x%x, %v", got, err)
	}
}

func TestEvalMemoryDereference(t *testing.T) {
	e, d := evalHelper(t)
	d.Mem.WriteU32(vm.ScratchStart, 0xCAFE)
	d.Runner.Registers()[10] = vm.ScratchStart

	for _, expr := range []string{"[0x2000]", "*0x2000", "[a0]"} {
		got, err := e.EvaluateExpression(expr, d.Runner, d.Mem)
		if err != nil {
			t.Fatalf("%q: %v", expr, err)
		}
		if got != 0xCAFE {
			t.Errorf("%q = 0x%x, expected 0xCAFE", expr, got)
		}
	}

	// Misaligned dereference surfaces the checked-memory error.
	if _, err := e.EvaluateExpression("[0x2001]", d.Runner, d.Mem); err == nil {
		t.Error("misaligned dereference did not error")
	}
}

func TestEvalBinaryOperators(t *testing.T) {
	e, d := evalHelper(t)
	d.Runner.Registers()[10] = 12

	tests := []struct {
		expr     string
		expected uint32
	}{
		{"a0 + 4", 16},
		{"a0 - 4", 8},
		{"a0 * 2", 24},
		{"a0 / 4", 3},
		{"a0 & 0x8", 8},
		{"a0 | 0x3", 15},
		{"a0 ^ 0xF", 3},
		{"1 << 4", 16},
		{"0x100 >> 4", 16},
	}
	for _, tt := range tests {
		got, err := e.EvaluateExpression(tt.expr, d.Runner, d.Mem)
		if err != nil {
			t.Errorf("%q: %v", tt.expr, err)
			continue
		}
		if got != tt.expected {
			t.Errorf("%q = %d, expected %d", tt.expr, got, tt.expected)
		}
	}

	if _, err := e.EvaluateExpression("1 / 0", d.Runner, d.Mem); err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("division by zero: %v", err)
	}
}

func TestEvalValueHistory(t *testing.T) {
	e, d := evalHelper(t)

	if _, err := e.EvaluateExpression("7", d.Runner, d.Mem); err != nil {
		t.Fatal(err)
	}
	if e.ValueNumber() != 1 {
		t.Errorf("value number = %d, expected 1", e.ValueNumber())
	}

	got, err := e.EvaluateExpression("$1 + 3", d.Runner, d.Mem)
	if err != nil || got != 10 {
		t.Errorf("$1 + 3 = %d, %v", got, err)
	}

	if _, err := e.EvaluateExpression("$9", d.Runner, d.Mem); err == nil {
		t.Error("out-of-range value reference accepted")
	}

	e.Reset()
	if _, err := e.EvaluateExpression("$1", d.Runner, d.Mem); err == nil {
		t.Error("value reference survived Reset")
	}
}

func TestEvalErrors(t *testing.T) {
	e, d := evalHelper(t)
	for _, expr := range []string{"", "bogus", "a0 +", "$x"} {
		if _, err := e.EvaluateExpression(expr, d.Runner, d.Mem); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

func TestCmdPrintEvaluatesExpressions(t *testing.T) {
	d := newTestDebugger(t, countLoop()...)
	d.Runner.Registers()[10] = 8
	d.Mem.WriteU32(vm.ScratchStart, 100)

	if err := d.ExecuteCommand("print a0 * 2"); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := d.GetOutput()
	if !strings.Contains(out, "$1 = 0x00000010 (16)") {
		t.Errorf("print output = %q", out)
	}

	if err := d.ExecuteCommand("print [0x2000] + 1"); err != nil {
		t.Fatalf("print deref: %v", err)
	}
	out = d.GetOutput()
	if !strings.Contains(out, "$2 = 0x00000065 (101)") {
		t.Errorf("print deref output = %q", out)
	}
}
