package vm

import (
	"errors"
	"testing"
)

func newTestMemory() *Memory {
	return NewMemory(make([]byte, MemSize))
}

func TestMemoryWrongSlabSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewMemory accepted a wrong-size slab")
		}
	}()
	NewMemory(make([]byte, 100))
}

func TestMemoryByteRoundTrip(t *testing.T) {
	m := newTestMemory()
	for _, addr := range []uint32{0, 1, ScratchStart, RWSize - 1} {
		m.WriteU8(addr, 0xA5)
		if got := m.ReadU8(addr); got != 0xA5 {
			t.Errorf("ReadU8(0x%x) = 0x%x, expected 0xA5", addr, got)
		}
	}
}

func TestMemorySignExtendingReads(t *testing.T) {
	m := newTestMemory()
	m.WriteU8(0x100, 0x80)
	if got := m.ReadI8(0x100); got != -128 {
		t.Errorf("ReadI8 = %d, expected -128", got)
	}
	m.WriteU16(0x200, 0x8000)
	if got := m.ReadI16(0x200); got != -32768 {
		t.Errorf("ReadI16 = %d, expected -32768", got)
	}
	m.WriteU8(0x300, 0x7F)
	if got := m.ReadI8(0x300); got != 127 {
		t.Errorf("ReadI8 = %d, expected 127", got)
	}
}

func TestMemoryWordRoundTrip(t *testing.T) {
	m := newTestMemory()
	m.WriteU32(ScratchStart, 0xDEADBEEF)
	if got := m.ReadU32(ScratchStart); got != 0xDEADBEEF {
		t.Errorf("ReadU32 = 0x%x, expected 0xDEADBEEF", got)
	}
	m.WriteU16(ScratchStart+8, 0xBEEF)
	if got := m.ReadU16(ScratchStart + 8); got != 0xBEEF {
		t.Errorf("ReadU16 = 0x%x, expected 0xBEEF", got)
	}
}

func TestMemoryReadRoutesToROHalf(t *testing.T) {
	m := newTestMemory()
	// Place a value in the RO half directly through the slab, the way a
	// host seeds arguments.
	m.Slab()[RWSize] = 0x42
	if got := m.ReadU8(RWSize); got != 0x42 {
		t.Errorf("ReadU8(RWSize) = 0x%x, expected 0x42 from RO base", got)
	}

	// RO addressing is modulo the region mask.
	if got := m.ReadU8(RWSize + ROSize); got != 0x42 {
		t.Errorf("wrapped RO read = 0x%x, expected 0x42", got)
	}
}

func TestMemoryWritesAlwaysRouteToRW(t *testing.T) {
	m := newTestMemory()

	// A write addressed into the RO region wraps into RW at the masked
	// offset, silently.
	m.WriteU8(RWSize, 0x77)
	if got := m.Slab()[0]; got != 0x77 {
		t.Errorf("write to RWSize landed at slab[0]=0x%x, expected 0x77", got)
	}
	if got := m.Slab()[RWSize]; got != 0 {
		t.Errorf("write to RWSize touched the RO half: 0x%x", got)
	}

	m.WriteU32(ArgsStart+0x100, 0xCAFEBABE)
	if got := m.ReadU32((ArgsStart + 0x100) & RWMask); got != 0xCAFEBABE {
		t.Errorf("wrapped word write not visible at masked RW offset: 0x%x", got)
	}
}

func TestMemoryRWAddressWrap(t *testing.T) {
	m := newTestMemory()
	m.WriteU8(0x12345678&RWMask, 0x9A)
	if got := m.ReadU8(0x12345678 & RWMask); got != 0x9A {
		t.Errorf("masked RW access failed: 0x%x", got)
	}
}

func TestCheckedMemoryBounds(t *testing.T) {
	c := NewCheckedMemory(newTestMemory())

	if _, err := c.ReadU32(MemSize); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("read past slab end: got %v, expected ErrOutOfBounds", err)
	}
	if err := c.WriteU8(RWSize, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("write into RO half: got %v, expected ErrOutOfBounds", err)
	}
	if err := c.WriteU32(RWSize-2, 1); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("word write straddling RW end: got %v, expected ErrOutOfBounds", err)
	}

	if err := c.WriteU32(ScratchStart, 0x11223344); err != nil {
		t.Errorf("in-bounds write failed: %v", err)
	}
	v, err := c.ReadU32(ScratchStart)
	if err != nil || v != 0x11223344 {
		t.Errorf("in-bounds read = 0x%x, %v", v, err)
	}
}

func TestCheckedMemoryAlignment(t *testing.T) {
	c := NewCheckedMemory(newTestMemory())

	if _, err := c.ReadU32(2); !errors.Is(err, ErrMisaligned) {
		t.Errorf("misaligned word read: got %v, expected ErrMisaligned", err)
	}
	if _, err := c.ReadU16(1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("misaligned halfword read: got %v, expected ErrMisaligned", err)
	}
	if err := c.WriteU16(3, 1); !errors.Is(err, ErrMisaligned) {
		t.Errorf("misaligned halfword write: got %v, expected ErrMisaligned", err)
	}

	// Byte accesses are never misaligned.
	if _, err := c.ReadU8(3); err != nil {
		t.Errorf("byte read at odd address failed: %v", err)
	}
}
