// Package vm implements the RV32IM predecode/interpret execution engine:
// a one-pass predecoder that turns a raw RV32IM code image into a flat
// sequence of fixed-layout decoded records, and an interpreter that runs
// those records against a register file and a partitioned memory slab.
package vm

// Memory map. The slab is split into two halves at a fixed, power-of-two
// boundary: a read/write half (code, scratch, heap, stack) and a
// read-only half (arguments followed by read-only data). Every address is
// routed by comparing against RWSize; no bounds checking happens on the
// hot path (see Memory).
const (
	RWSize = 0x10000   // 64KiB read/write region
	RWMask = RWSize - 1 // low-bits mask for RW addressing

	ROSize = 0x3F0000 // read-only region size
	ROMask = ROSize - 1

	MemSize = RWSize + ROSize // total slab size (4MiB by default)

	CodeStart    = 0          // code lives at the bottom of the RW region
	CodeSize     = 0x2000     // 8KiB max predecoder input
	ScratchStart = CodeStart + CodeSize
	ScratchSize  = 256 // guest-visible scratch region

	StackStart = RWSize - 4 // initial stack pointer

	ArgsStart = RWSize // args area base, in the RO half
	ArgsSize  = 256
)

// NumRegisters is the width of the integer register file. x0 is
// architecturally hardwired to zero.
const NumRegisters = 32

// DefaultMaxCycles is the cycle budget used when the caller passes none.
const DefaultMaxCycles = 0xFFFFFFFF // 2^32 - 1

// Guest ABI register conventions (informative; enforced only by the
// run loop's seeding and the ECALL handler reading x11).
const (
	RegZero = 0  // x0, hardwired zero
	RegSP   = 2  // x2, stack pointer
	RegA0   = 10 // x10, argument count in, exit-code convention elsewhere
	RegA1   = 11 // x11, ECALL exit code
)
