package vm

import "github.com/rv32im/rubicv/stats"

// x0Policy controls whether x0 is re-zeroed at the start of every step.
// It is implemented as a zero-size type parameter rather than a runtime
// branch so each instantiation of Interpreter compiles to a monomorphic
// inner loop: the "strict" and "fast" variants are two distinct
// functions at the machine-code level, not one function branching on a
// bool every step.
type x0Policy interface {
	zero(regs *[NumRegisters]uint32)
}

// strictX0 re-zeros x0 at the start of every step. Use it whenever the
// predecoder's hazard scan found an instruction that writes x0
// non-trivially (Program.WritesToX0 == true).
type strictX0 struct{}

func (strictX0) zero(regs *[NumRegisters]uint32) { regs[RegZero] = 0 }

// laxX0 never touches x0. Only sound when the predecoder proved no
// instruction in the program writes x0 in a way that matters.
type laxX0 struct{}

func (laxX0) zero(*[NumRegisters]uint32) {}

// Interpreter runs a predecoded Program against a register file and a
// Memory slab. P selects the x0-enforcement policy; construct one via
// NewStrict or NewFast, or let New pick based on Program.WritesToX0.
type Interpreter[P x0Policy] struct {
	regs    [NumRegisters]uint32
	mem     *Memory
	program *Program
	ppc     int
	cycles  uint64

	policy P
	stats  *stats.Collector
}

// SetStats attaches a statistics collector. Passing nil detaches it; a
// nil collector's Record methods are themselves no-ops, so the caller
// need not branch on whether --stats was requested.
func (in *Interpreter[P]) SetStats(c *stats.Collector) { in.stats = c }

func newInterpreter[P x0Policy](mem *Memory, prog *Program) *Interpreter[P] {
	return &Interpreter[P]{
		mem:     mem,
		program: prog,
		ppc:     prog.Entrypoint,
	}
}

// NewStrict builds an interpreter that re-zeros x0 every step.
func NewStrict(mem *Memory, prog *Program) *Interpreter[strictX0] {
	return newInterpreter[strictX0](mem, prog)
}

// NewFast builds an interpreter that never touches x0, valid only when
// Program.WritesToX0 is false.
func NewFast(mem *Memory, prog *Program) *Interpreter[laxX0] {
	return newInterpreter[laxX0](mem, prog)
}

// Step executes the record at PPC and advances the interpreter's state.
// Effects occur in a fixed order: optional x0 re-zero, operand reads,
// memory access or ALU compute, memory write, register write, then
// PPC/cycle update. Terminal conditions (ECALL, EBREAK, INVALID) return
// before PPC/cycle are touched.
func (in *Interpreter[P]) Step() error {
	in.policy.zero(&in.regs)

	rec := in.program.Records[in.ppc]
	rs1v := in.regs[rec.Rs1]
	rs2v := in.regs[rec.Rs2]
	imm := rec.Imm

	nextPPC := in.ppc + 1
	var result uint32
	write := false
	isBranch := false
	taken := false

	switch rec.Kind {
	case Add:
		result, write = rs1v+rs2v, true
	case Sub:
		result, write = rs1v-rs2v, true
	case Xor:
		result, write = rs1v^rs2v, true
	case Or:
		result, write = rs1v|rs2v, true
	case And:
		result, write = rs1v&rs2v, true
	case Sll:
		result, write = rs1v<<(rs2v&0x1f), true
	case Srl:
		result, write = rs1v>>(rs2v&0x1f), true
	case Sra:
		result, write = uint32(int32(rs1v)>>(rs2v&0x1f)), true
	case Slt:
		result, write = boolU32(int32(rs1v) < int32(rs2v)), true
	case Sltu:
		result, write = boolU32(rs1v < rs2v), true

	case Addi:
		result, write = rs1v+uint32(imm), true
	case Xori:
		result, write = rs1v^uint32(imm), true
	case Ori:
		result, write = rs1v|uint32(imm), true
	case Andi:
		result, write = rs1v&uint32(imm), true
	case Slli:
		result, write = rs1v<<(uint32(imm)&0x1f), true
	case Srli:
		result, write = rs1v>>(uint32(imm)&0x1f), true
	case Srai:
		result, write = uint32(int32(rs1v)>>(uint32(imm)&0x1f)), true
	case Slti:
		result, write = boolU32(int32(rs1v) < imm), true
	case Sltiu:
		result, write = boolU32(rs1v < uint32(imm)), true

	case Beq:
		isBranch = true
		if rs1v == rs2v {
			nextPPC, taken = int(imm), true
		}
	case Bne:
		isBranch = true
		if rs1v != rs2v {
			nextPPC, taken = int(imm), true
		}
	case Blt:
		isBranch = true
		if int32(rs1v) < int32(rs2v) {
			nextPPC, taken = int(imm), true
		}
	case Bge:
		isBranch = true
		if int32(rs1v) >= int32(rs2v) {
			nextPPC, taken = int(imm), true
		}
	case Bltu:
		isBranch = true
		if rs1v < rs2v {
			nextPPC, taken = int(imm), true
		}
	case Bgeu:
		isBranch = true
		if rs1v >= rs2v {
			nextPPC, taken = int(imm), true
		}

	case Jal:
		result, write = uint32((in.ppc+1)*4), true
		nextPPC = int(imm)
	case Jalr:
		result, write = uint32((in.ppc+1)*4), true
		target := (rs1v + uint32(imm)) &^ 1
		nextPPC = int(target / 4)

	case Lb:
		addr := rs1v + uint32(imm)
		result, write = uint32(int32(in.mem.ReadI8(addr))), true
		in.stats.RecordMemoryRead(1)
	case Lh:
		addr := rs1v + uint32(imm)
		result, write = uint32(int32(in.mem.ReadI16(addr))), true
		in.stats.RecordMemoryRead(2)
	case Lw:
		addr := rs1v + uint32(imm)
		result, write = in.mem.ReadU32(addr), true
		in.stats.RecordMemoryRead(4)
	case Lbu:
		addr := rs1v + uint32(imm)
		result, write = uint32(in.mem.ReadU8(addr)), true
		in.stats.RecordMemoryRead(1)
	case Lhu:
		addr := rs1v + uint32(imm)
		result, write = uint32(in.mem.ReadU16(addr)), true
		in.stats.RecordMemoryRead(2)

	case Sb:
		addr := rs1v + uint32(imm)
		in.mem.WriteU8(addr, uint8(rs2v))
		in.stats.RecordMemoryWrite(1)
	case Sh:
		addr := rs1v + uint32(imm)
		in.mem.WriteU16(addr, uint16(rs2v))
		in.stats.RecordMemoryWrite(2)
	case Sw:
		addr := rs1v + uint32(imm)
		in.mem.WriteU32(addr, rs2v)
		in.stats.RecordMemoryWrite(4)

	case Lui:
		result, write = uint32(imm), true
	case Auipc:
		result, write = uint32(in.ppc*4)+uint32(imm), true

	case Mul:
		result, write = rs1v*rs2v, true
	case Mulh:
		result, write = uint32((int64(int32(rs1v))*int64(int32(rs2v)))>>32), true
	case Mulhsu:
		result, write = uint32((int64(int32(rs1v))*int64(rs2v))>>32), true
	case Mulhu:
		result, write = uint32((uint64(rs1v)*uint64(rs2v))>>32), true
	case Div:
		result, write = divS(rs1v, rs2v), true
	case Divu:
		result, write = divU(rs1v, rs2v), true
	case Rem:
		result, write = remS(rs1v, rs2v), true
	case Remu:
		result, write = remU(rs1v, rs2v), true

	case Ecall:
		return &SystemCallError{Value: in.regs[RegA1]}
	case Ebreak:
		return ErrBreakpoint

	default:
		return ErrIllegalInstruction
	}

	if write {
		in.regs[rec.Rd] = result
	}
	if isBranch {
		in.stats.RecordBranch(taken)
	}
	in.stats.RecordInstruction(rec.Kind.String(), in.ppc)

	in.ppc = nextPPC
	in.cycles++
	return nil
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func divS(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	if int32(a) == -0x80000000 && int32(b) == -1 {
		return a
	}
	return uint32(int32(a) / int32(b))
}

func divU(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func remS(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	if int32(a) == -0x80000000 && int32(b) == -1 {
		return 0
	}
	return uint32(int32(a) % int32(b))
}

func remU(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
