package vm

// Kind identifies a decoded instruction's operation. It is a closed set:
// anything the raw decoder cannot place lands on Invalid.
type Kind uint8

const (
	Invalid Kind = iota

	Add
	Sub
	Xor
	Or
	And
	Sll
	Srl
	Sra
	Slt
	Sltu
	Addi
	Xori
	Ori
	Andi
	Slli
	Srli
	Srai
	Slti
	Sltiu
	Beq
	Bne
	Blt
	Bge
	Bltu
	Bgeu
	Jal
	Jalr
	Lui
	Auipc
	Mul
	Mulh
	Mulhsu
	Mulhu
	Div
	Divu
	Rem
	Remu
	Lb
	Lh
	Lw
	Lbu
	Lhu
	Sb
	Sh
	Sw
	Ecall
	Ebreak
)

// String renders a Kind as its RISC-V mnemonic, used by Disassemble and
// by the debugger's instruction view.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

var kindNames = [...]string{
	Invalid: "invalid",
	Add:     "add", Sub: "sub", Xor: "xor", Or: "or", And: "and",
	Sll: "sll", Srl: "srl", Sra: "sra", Slt: "slt", Sltu: "sltu",
	Addi: "addi", Xori: "xori", Ori: "ori", Andi: "andi",
	Slli: "slli", Srli: "srli", Srai: "srai", Slti: "slti", Sltiu: "sltiu",
	Beq: "beq", Bne: "bne", Blt: "blt", Bge: "bge", Bltu: "bltu", Bgeu: "bgeu",
	Jal: "jal", Jalr: "jalr", Lui: "lui", Auipc: "auipc",
	Mul: "mul", Mulh: "mulh", Mulhsu: "mulhsu", Mulhu: "mulhu",
	Div: "div", Divu: "divu", Rem: "rem", Remu: "remu",
	Lb: "lb", Lh: "lh", Lw: "lw", Lbu: "lbu", Lhu: "lhu",
	Sb: "sb", Sh: "sh", Sw: "sw",
	Ecall: "ecall", Ebreak: "ebreak",
}

// wildcard marks an opcode/func3/func7 field that matches every value of
// that field when expanding an isaEntry into decode-table slots.
const wildcard = -1

// isaEntry is one row of the static instruction metadata table. Func3 and
// Func7 are signed so wildcard (-1) is representable; a -1 Func7 expands
// to all four compressed func7 buckets, a -1 Func3 expands to all eight.
type isaEntry struct {
	kind   Kind
	opcode uint32
	func3  int32
	func7  int32
}

// rv32imISA is the fixed order metadata table iterated once at startup to
// build the 2^10 decode key table (see buildDecodeTable). Fixed order
// matters: later entries overwrite earlier ones in overlapping slots, and
// the table must be deterministic across builds.
var rv32imISA = []isaEntry{
	{Add, 0x33, 0x0, 0x00},
	{Sub, 0x33, 0x0, 0x20},
	{Sll, 0x33, 0x1, 0x00},
	{Slt, 0x33, 0x2, 0x00},
	{Sltu, 0x33, 0x3, 0x00},
	{Xor, 0x33, 0x4, 0x00},
	{Srl, 0x33, 0x5, 0x00},
	{Sra, 0x33, 0x5, 0x20},
	{Or, 0x33, 0x6, 0x00},
	{And, 0x33, 0x7, 0x00},

	{Addi, 0x13, 0x0, wildcard},
	{Slli, 0x13, 0x1, 0x00},
	{Slti, 0x13, 0x2, wildcard},
	{Sltiu, 0x13, 0x3, wildcard},
	{Xori, 0x13, 0x4, wildcard},
	{Srli, 0x13, 0x5, 0x00},
	{Srai, 0x13, 0x5, 0x20},
	{Ori, 0x13, 0x6, wildcard},
	{Andi, 0x13, 0x7, wildcard},

	{Beq, 0x63, 0x0, wildcard},
	{Bne, 0x63, 0x1, wildcard},
	{Blt, 0x63, 0x4, wildcard},
	{Bge, 0x63, 0x5, wildcard},
	{Bltu, 0x63, 0x6, wildcard},
	{Bgeu, 0x63, 0x7, wildcard},

	{Jal, 0x6F, wildcard, wildcard},
	{Jalr, 0x67, 0x0, wildcard},

	{Lui, 0x37, wildcard, wildcard},
	{Auipc, 0x17, wildcard, wildcard},

	{Mul, 0x33, 0x0, 0x01},
	{Mulh, 0x33, 0x1, 0x01},
	{Mulhsu, 0x33, 0x2, 0x01},
	{Mulhu, 0x33, 0x3, 0x01},
	{Div, 0x33, 0x4, 0x01},
	{Divu, 0x33, 0x5, 0x01},
	{Rem, 0x33, 0x6, 0x01},
	{Remu, 0x33, 0x7, 0x01},

	{Lb, 0x03, 0x0, wildcard},
	{Lh, 0x03, 0x1, wildcard},
	{Lw, 0x03, 0x2, wildcard},
	{Lbu, 0x03, 0x4, wildcard},
	{Lhu, 0x03, 0x5, wildcard},

	{Sb, 0x23, 0x0, wildcard},
	{Sh, 0x23, 0x1, wildcard},
	{Sw, 0x23, 0x2, wildcard},

	{Ecall, 0x73, 0x0, 0x00},
	{Ebreak, 0x73, 0x0, 0x01},
}

// decodeTableSize is 2^10: {opcode[6:2] (5 bits), compressed func7 (2
// bits), func3 (3 bits)}.
const decodeTableSize = 1 << 10

// decodeKey computes the table index for a (opcode, func3, func7) triple.
// func7 is compressed to 2 bits: 0->0, 1->1, 0x20->2, anything else->3.
func decodeKey(opcode, func3, func7 uint32) uint32 {
	opHigh := opcode >> 2
	f7bits := compressFunc7(func7)
	return (opHigh << 5) | (f7bits << 3) | func3
}

func compressFunc7(func7 uint32) uint32 {
	switch func7 {
	case 0:
		return 0
	case 1:
		return 1
	case 0x20:
		return 2
	default:
		return 3
	}
}

// decodeTable is the static 2^10-entry lookup built once at package init.
var decodeTable = buildDecodeTable()

func buildDecodeTable() [decodeTableSize]Kind {
	var table [decodeTableSize]Kind // zero value is Invalid

	for _, e := range rv32imISA {
		opHigh := e.opcode >> 2

		switch {
		case e.func3 == wildcard && e.func7 == wildcard:
			for f3 := uint32(0); f3 < 8; f3++ {
				for f7b := uint32(0); f7b < 4; f7b++ {
					table[(opHigh<<5)|(f7b<<3)|f3] = e.kind
				}
			}
		case e.func7 == wildcard:
			f3 := uint32(e.func3)
			for f7b := uint32(0); f7b < 4; f7b++ {
				table[(opHigh<<5)|(f7b<<3)|f3] = e.kind
			}
		default:
			table[decodeKey(e.opcode, uint32(e.func3), uint32(e.func7))] = e.kind
		}
	}

	return table
}

// lookupKind resolves the instruction kind for a raw opcode/func3/func7
// triple via the precomputed decode table.
func lookupKind(opcode, func3, func7 uint32) Kind {
	return decodeTable[decodeKey(opcode, func3, func7)]
}

// writesRegister reports whether a kind's execution writes Rd. Branches
// and stores never do; everything else that isn't a system trap does.
func (k Kind) writesRegister() bool {
	switch k {
	case Beq, Bne, Blt, Bge, Bltu, Bgeu, Sb, Sh, Sw, Ecall, Ebreak, Invalid:
		return false
	default:
		return true
	}
}
