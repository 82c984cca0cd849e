package vm

import "fmt"

// Disassemble renders a predecoded Record back to RISC-V assembly text.
// It is a debugging aid used by the step debugger's instruction view and
// the predecode CLI subcommand; the interpreter never calls it.
// Branch and JAL immediates are already resolved to absolute record
// indices, so they print as a record index rather than a byte offset.
func Disassemble(rec Record) string {
	r := func(n uint8) string { return regName(n) }

	switch rec.Kind {
	case Add, Sub, Xor, Or, And, Sll, Srl, Sra, Slt, Sltu,
		Mul, Mulh, Mulhsu, Mulhu, Div, Divu, Rem, Remu:
		return fmt.Sprintf("%s %s, %s, %s", rec.Kind, r(rec.Rd), r(rec.Rs1), r(rec.Rs2))

	case Addi, Xori, Ori, Andi, Slti, Sltiu:
		return fmt.Sprintf("%s %s, %s, %d", rec.Kind, r(rec.Rd), r(rec.Rs1), rec.Imm)
	case Slli, Srli, Srai:
		return fmt.Sprintf("%s %s, %s, %d", rec.Kind, r(rec.Rd), r(rec.Rs1), rec.Imm&0x1f)

	case Beq, Bne, Blt, Bge, Bltu, Bgeu:
		return fmt.Sprintf("%s %s, %s, rec[%d]", rec.Kind, r(rec.Rs1), r(rec.Rs2), rec.Imm)

	case Jal:
		return fmt.Sprintf("jal %s, rec[%d]", r(rec.Rd), rec.Imm)
	case Jalr:
		return fmt.Sprintf("jalr %s, %s, %d", r(rec.Rd), r(rec.Rs1), rec.Imm)

	case Lb, Lh, Lw, Lbu, Lhu:
		return fmt.Sprintf("%s %s, %d(%s)", rec.Kind, r(rec.Rd), rec.Imm, r(rec.Rs1))
	case Sb, Sh, Sw:
		return fmt.Sprintf("%s %s, %d(%s)", rec.Kind, r(rec.Rs2), rec.Imm, r(rec.Rs1))

	case Lui, Auipc:
		return fmt.Sprintf("%s %s, 0x%x", rec.Kind, r(rec.Rd), uint32(rec.Imm)>>12)

	case Ecall:
		return "ecall"
	case Ebreak:
		return "ebreak"

	default:
		return "invalid"
	}
}

var abiRegNames = [...]string{
	"zero", "ra", "sp", "gp", "tp",
	"t0", "t1", "t2",
	"s0", "s1",
	"a0", "a1", "a2", "a3", "a4", "a5", "a6", "a7",
	"s2", "s3", "s4", "s5", "s6", "s7", "s8", "s9", "s10", "s11",
	"t3", "t4", "t5", "t6",
}

func regName(n uint8) string {
	if int(n) < len(abiRegNames) {
		return abiRegNames[n]
	}
	return fmt.Sprintf("x%d", n)
}
