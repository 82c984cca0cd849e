package vm

import (
	"encoding/binary"
	"fmt"
)

// ELFDecodeError is returned when the predecoder's input fails its length
// or parse checks. The name is kept from the original toolchain: the
// predecoder's input is the already-stripped code image an external ELF
// loader produces, not an ELF file itself.
type ELFDecodeError struct {
	Reason string
}

func (e *ELFDecodeError) Error() string {
	return fmt.Sprintf("predecode: %s", e.Reason)
}

// Predecode converts a code image into an immutable Program. The image
// is little-endian: the first 4 bytes are a u32 entry-point byte offset,
// followed by aligned 32-bit instructions. A trailing partial 4-byte
// chunk is silently discarded.
func Predecode(image []byte) (*Program, error) {
	if len(image) < 4 {
		return nil, &ELFDecodeError{Reason: "image shorter than the 4-byte entrypoint header"}
	}
	if len(image) > CodeSize+4 {
		return nil, &ELFDecodeError{Reason: fmt.Sprintf("image of %d bytes exceeds CODE_SIZE+4 (%d)", len(image), CodeSize+4)}
	}

	entryOffset := binary.LittleEndian.Uint32(image[0:4])
	code := image[4:]

	numInstructions := len(code) / 4
	records := make([]Record, 0, numInstructions)
	writesToX0 := false

	for i := 0; i+4 <= len(code); i += 4 {
		w := binary.LittleEndian.Uint32(code[i : i+4])
		rec, hazard := predecodeWord(w, i)
		records = append(records, rec)
		if hazard {
			writesToX0 = true
		}
	}

	return &Program{
		Records:    records,
		Entrypoint: int(entryOffset / 4),
		WritesToX0: writesToX0,
	}, nil
}

// predecodeWord decodes a single instruction word at byte offset i within
// the code (not including the 4-byte entrypoint header), returning the
// record and whether this instruction is an x0-write hazard.
func predecodeWord(w uint32, byteOffset int) (Record, bool) {
	f := decodeRaw(w)
	kind := lookupKind(f.opcode, f.func3, f.func7)

	rec := Record{
		Kind: kind,
		Rd:   uint8(f.rd),
		Rs1:  uint8(f.rs1),
		Rs2:  uint8(f.rs2),
	}

	recordIndex := byteOffset / 4

	switch kind {
	case Addi, Xori, Ori, Andi, Slli, Srli, Srai, Slti, Sltiu,
		Lb, Lh, Lw, Lbu, Lhu, Jalr:
		rec.Imm = immI(w)
	case Sb, Sh, Sw:
		rec.Imm = immS(w)
	case Beq, Bne, Blt, Bge, Bltu, Bgeu:
		rec.Imm = int32(recordIndex) + immB(w)/4
	case Jal:
		rec.Imm = int32(recordIndex) + immJ(w)/4
	case Lui, Auipc:
		rec.Imm = immU(w)
	default:
		rec.Imm = 0
	}

	// The canonical NOP (ADDI x0, x0, 0) and the all-zero word are benign
	// and must not force the strict variant on the whole program.
	hazard := kind.writesRegister() && rec.Rd == 0 && w != 0 &&
		!(kind == Addi && rec.Rs1 == 0 && rec.Imm == 0)
	return rec, hazard
}
