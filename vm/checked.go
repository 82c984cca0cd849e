package vm

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is reported by CheckedMemory when an access names an
// address outside the slab, or a write names the read-only half.
var ErrOutOfBounds = errors.New("vm: memory access out of bounds")

// ErrMisaligned is reported by CheckedMemory when a halfword or word
// access is not naturally aligned.
var ErrMisaligned = errors.New("vm: misaligned memory access")

// CheckedMemory is a diagnostic wrapper over Memory that validates
// bounds and alignment before delegating. The interpreter's hot path
// never uses it (addresses there are masked, not checked), so attaching
// it cannot change observable behavior for well-formed programs. The
// debugger and tests use it to surface guest addressing mistakes the
// mask would otherwise absorb silently.
type CheckedMemory struct {
	mem *Memory
}

// NewCheckedMemory wraps mem with bounds and alignment checks.
func NewCheckedMemory(mem *Memory) *CheckedMemory {
	return &CheckedMemory{mem: mem}
}

func checkRead(addr uint32, width uint32) error {
	if uint64(addr)+uint64(width) > MemSize {
		return fmt.Errorf("read of %d bytes at 0x%08x: %w", width, addr, ErrOutOfBounds)
	}
	if addr%width != 0 {
		return fmt.Errorf("read of %d bytes at 0x%08x: %w", width, addr, ErrMisaligned)
	}
	return nil
}

func checkWrite(addr uint32, width uint32) error {
	if uint64(addr)+uint64(width) > RWSize {
		return fmt.Errorf("write of %d bytes at 0x%08x: %w", width, addr, ErrOutOfBounds)
	}
	if addr%width != 0 {
		return fmt.Errorf("write of %d bytes at 0x%08x: %w", width, addr, ErrMisaligned)
	}
	return nil
}

// ReadU8 loads a byte, failing if addr is outside the slab.
func (c *CheckedMemory) ReadU8(addr uint32) (uint8, error) {
	if err := checkRead(addr, 1); err != nil {
		return 0, err
	}
	return c.mem.ReadU8(addr), nil
}

// ReadU16 loads a halfword, failing on out-of-slab or odd addresses.
func (c *CheckedMemory) ReadU16(addr uint32) (uint16, error) {
	if err := checkRead(addr, 2); err != nil {
		return 0, err
	}
	return c.mem.ReadU16(addr), nil
}

// ReadU32 loads a word, failing on out-of-slab or unaligned addresses.
func (c *CheckedMemory) ReadU32(addr uint32) (uint32, error) {
	if err := checkRead(addr, 4); err != nil {
		return 0, err
	}
	return c.mem.ReadU32(addr), nil
}

// WriteU8 stores a byte, failing if addr is outside the RW half.
func (c *CheckedMemory) WriteU8(addr uint32, v uint8) error {
	if err := checkWrite(addr, 1); err != nil {
		return err
	}
	c.mem.WriteU8(addr, v)
	return nil
}

// WriteU16 stores a halfword, failing on out-of-RW or odd addresses.
func (c *CheckedMemory) WriteU16(addr uint32, v uint16) error {
	if err := checkWrite(addr, 2); err != nil {
		return err
	}
	c.mem.WriteU16(addr, v)
	return nil
}

// WriteU32 stores a word, failing on out-of-RW or unaligned addresses.
func (c *CheckedMemory) WriteU32(addr uint32, v uint32) error {
	if err := checkWrite(addr, 4); err != nil {
		return err
	}
	c.mem.WriteU32(addr, v)
	return nil
}
