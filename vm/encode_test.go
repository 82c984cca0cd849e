package vm

import "encoding/binary"

// Hand encoders for RV32IM instruction words, used to assemble test
// programs without an external toolchain.

func encR(opcode, func3, func7, rd, rs1, rs2 uint32) uint32 {
	return opcode | rd<<7 | func3<<12 | rs1<<15 | rs2<<20 | func7<<25
}

func encI(opcode, func3, rd, rs1 uint32, imm int32) uint32 {
	return opcode | rd<<7 | func3<<12 | rs1<<15 | (uint32(imm)&0xFFF)<<20
}

func encS(func3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return 0x23 | (u&0x1F)<<7 | func3<<12 | rs1<<15 | rs2<<20 | ((u>>5)&0x7F)<<25
}

func encB(func3, rs1, rs2 uint32, imm int32) uint32 {
	u := uint32(imm)
	return 0x63 | ((u>>11)&1)<<7 | ((u>>1)&0xF)<<8 | func3<<12 | rs1<<15 | rs2<<20 |
		((u>>5)&0x3F)<<25 | ((u>>12)&1)<<31
}

func encU(opcode, rd, imm20 uint32) uint32 {
	return opcode | rd<<7 | imm20<<12
}

func encJ(rd uint32, imm int32) uint32 {
	u := uint32(imm)
	return 0x6F | rd<<7 | ((u>>12)&0xFF)<<12 | ((u>>11)&1)<<20 | ((u>>1)&0x3FF)<<21 |
		((u>>20)&1)<<31
}

const (
	wordEcall  = 0x00000073
	wordEbreak = 0x02000073 // func7=0x01 slot, as the decode table keys it
	wordNop    = 0x00000013 // addi x0, x0, 0
)

// image assembles a code image: a little-endian entrypoint byte offset
// followed by the instruction words.
func image(entryOffset uint32, words ...uint32) []byte {
	buf := make([]byte, 4+4*len(words))
	binary.LittleEndian.PutUint32(buf, entryOffset)
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4+4*i:], w)
	}
	return buf
}

// buildRunner predecodes words into a fresh interpreter over a zeroed
// slab, panicking on predecode failure (test programs are well-formed).
func buildRunner(words ...uint32) (Runner, *Memory, *Program) {
	prog, err := Predecode(image(0, words...))
	if err != nil {
		panic(err)
	}
	mem := NewMemory(make([]byte, MemSize))
	return New(mem, prog), mem, prog
}
