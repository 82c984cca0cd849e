package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rv32im/rubicv/vm"
)

// ExpressionEvaluator evaluates the expressions accepted by the print
// and watch commands: register names (ABI or xN), numeric literals,
// memory dereferences ([expr] or *expr), value-history references ($N),
// and binary arithmetic/bitwise operators.
type ExpressionEvaluator struct {
	valueHistory []uint32
	valueNumber  int
}

// NewExpressionEvaluator returns an evaluator with empty value history.
func NewExpressionEvaluator() *ExpressionEvaluator {
	return &ExpressionEvaluator{}
}

// EvaluateExpression evaluates expr against the interpreter's registers
// and memory, records the result in the value history, and returns it.
func (e *ExpressionEvaluator) EvaluateExpression(expr string, runner vm.Runner, mem *vm.Memory) (uint32, error) {
	result, err := e.evaluate(expr, runner, mem)
	if err != nil {
		return 0, err
	}

	e.valueHistory = append(e.valueHistory, result)
	e.valueNumber = len(e.valueHistory)
	return result, nil
}

// ValueNumber returns the history index assigned to the most recent
// EvaluateExpression result, for the $N echo in print output.
func (e *ExpressionEvaluator) ValueNumber() int { return e.valueNumber }

// Value returns history entry $n.
func (e *ExpressionEvaluator) Value(n int) (uint32, error) {
	if n < 1 || n > len(e.valueHistory) {
		return 0, fmt.Errorf("value $%d not in history", n)
	}
	return e.valueHistory[n-1], nil
}

// Reset clears the value history.
func (e *ExpressionEvaluator) Reset() {
	e.valueHistory = e.valueHistory[:0]
	e.valueNumber = 0
}

func (e *ExpressionEvaluator) evaluate(expr string, runner vm.Runner, mem *vm.Memory) (uint32, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return 0, fmt.Errorf("empty expression")
	}

	if val, err := e.trySimpleEval(expr, runner, mem); err == nil {
		return val, nil
	}

	// Binary operators are split on whitespace-delimited occurrences so
	// the scan never matches inside a literal like 0xFF.
	operators := []string{"<<", ">>", "&", "|", "^", "+", "-", "*", "/"}
	for _, op := range operators {
		patterns := []string{" " + op + " ", " " + op, op + " "}
		for _, pattern := range patterns {
			idx := strings.Index(expr, pattern)
			if idx < 0 {
				continue
			}
			opPos := idx
			if pattern[0] == ' ' {
				opPos++
			}

			left := strings.TrimSpace(expr[:opPos])
			right := strings.TrimSpace(expr[opPos+len(op):])
			if left == "" || right == "" {
				continue
			}

			leftVal, err := e.evaluate(left, runner, mem)
			if err != nil {
				continue
			}
			rightVal, err := e.evaluate(right, runner, mem)
			if err != nil {
				continue
			}
			return applyOperator(leftVal, rightVal, op)
		}
	}

	return 0, fmt.Errorf("invalid expression: %s", expr)
}

// trySimpleEval evaluates a single atom: memory dereference, value
// reference, register, or numeric literal.
func (e *ExpressionEvaluator) trySimpleEval(expr string, runner vm.Runner, mem *vm.Memory) (uint32, error) {
	expr = strings.TrimSpace(expr)

	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		return e.deref(expr[1:len(expr)-1], runner, mem)
	}
	if strings.HasPrefix(expr, "*") {
		return e.deref(expr[1:], runner, mem)
	}

	if strings.HasPrefix(expr, "$") {
		n, err := strconv.Atoi(expr[1:])
		if err != nil {
			return 0, fmt.Errorf("invalid value reference: %s", expr)
		}
		return e.Value(n)
	}

	if idx, ok := parseRegisterName(strings.ToLower(expr)); ok {
		return runner.Registers()[idx], nil
	}

	return parseNumber(expr)
}

func (e *ExpressionEvaluator) deref(addrExpr string, runner vm.Runner, mem *vm.Memory) (uint32, error) {
	addr, err := e.evaluate(addrExpr, runner, mem)
	if err != nil {
		return 0, err
	}
	v, err := vm.NewCheckedMemory(mem).ReadU32(addr)
	if err != nil {
		return 0, fmt.Errorf("failed to read memory at 0x%08x: %w", addr, err)
	}
	return v, nil
}

func parseNumber(expr string) (uint32, error) {
	expr = strings.TrimSpace(expr)

	lower := strings.ToLower(expr)
	if strings.HasPrefix(lower, "0x") {
		val, err := strconv.ParseUint(lower[2:], 16, 32)
		if err != nil {
			return 0, err
		}
		return uint32(val), nil
	}
	if strings.HasPrefix(lower, "0b") {
		val, err := strconv.ParseUint(lower[2:], 2, 32)
		if err != nil {
			return 0, err
		}
		return uint32(val), nil
	}

	val, err := strconv.ParseInt(expr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown identifier: %s", expr)
	}
	return uint32(val), nil
}

func applyOperator(left, right uint32, op string) (uint32, error) {
	switch op {
	case "+":
		return left + right, nil
	case "-":
		return left - right, nil
	case "*":
		return left * right, nil
	case "/":
		if right == 0 {
			return 0, fmt.Errorf("division by zero")
		}
		return left / right, nil
	case "&":
		return left & right, nil
	case "|":
		return left | right, nil
	case "^":
		return left ^ right, nil
	case "<<":
		return left << (right & 0x1f), nil
	case ">>":
		return left >> (right & 0x1f), nil
	default:
		return 0, fmt.Errorf("unknown operator: %s", op)
	}
}
