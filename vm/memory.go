package vm

import "encoding/binary"

// Memory wraps a caller-owned flat byte slab of length MemSize and
// implements the branch-free two-region routing rule from the address
// map: reads below RWSize go to the RW half, reads at or above go to the
// RO half (both masked into range), writes always land in the RW half.
// There is no bounds signaling on this path; addresses are masked, not
// checked. See NewCheckedMemory for a debug-only variant that adds
// bounds checks without changing behavior for well-formed programs.
type Memory struct {
	slab []byte
}

// NewMemory wraps slab, which must be exactly MemSize bytes, as the
// guest-visible address space. The caller owns the backing array and may
// inspect it after Run returns.
func NewMemory(slab []byte) *Memory {
	if len(slab) != MemSize {
		panic("vm: memory slab must be exactly MemSize bytes")
	}
	return &Memory{slab: slab}
}

// Slab returns the backing byte array for direct inspection (e.g. the
// host reading results out of scratch after a run, or a debugger
// rendering a hex dump).
func (m *Memory) Slab() []byte { return m.slab }

func (m *Memory) readBase(addr uint32) (base []byte, off uint32) {
	if addr < RWSize {
		return m.slab[:RWSize], addr & RWMask
	}
	return m.slab[RWSize:], addr & ROMask
}

// ReadU8 loads a byte using the region routing rule.
func (m *Memory) ReadU8(addr uint32) uint8 {
	base, off := m.readBase(addr)
	return base[off]
}

// ReadI8 loads a byte and sign-extends it to 32 bits.
func (m *Memory) ReadI8(addr uint32) int8 {
	return int8(m.ReadU8(addr))
}

// ReadU16 loads a little-endian halfword using the region routing rule.
// Natural alignment is assumed; misaligned reads straddling the region
// boundary are not signaled (see package doc).
func (m *Memory) ReadU16(addr uint32) uint16 {
	base, off := m.readBase(addr)
	if int(off)+2 <= len(base) {
		return binary.LittleEndian.Uint16(base[off:])
	}
	return uint16(base[off]) | uint16(m.ReadU8(addr+1))<<8
}

// ReadI16 loads a halfword and sign-extends it to 32 bits.
func (m *Memory) ReadI16(addr uint32) int16 {
	return int16(m.ReadU16(addr))
}

// ReadU32 loads a little-endian word using the region routing rule.
func (m *Memory) ReadU32(addr uint32) uint32 {
	base, off := m.readBase(addr)
	if int(off)+4 <= len(base) {
		return binary.LittleEndian.Uint32(base[off:])
	}
	var b [4]byte
	for i := 0; i < 4; i++ {
		b[i] = m.ReadU8(addr + uint32(i))
	}
	return binary.LittleEndian.Uint32(b[:])
}

// WriteU8 stores a byte. Writes always route to the RW half regardless of
// which region addr logically names.
func (m *Memory) WriteU8(addr uint32, v uint8) {
	rw := m.slab[:RWSize]
	rw[addr&RWMask] = v
}

// WriteU16 stores a little-endian halfword into the RW half.
func (m *Memory) WriteU16(addr uint32, v uint16) {
	rw := m.slab[:RWSize]
	off := addr & RWMask
	if int(off)+2 <= len(rw) {
		binary.LittleEndian.PutUint16(rw[off:], v)
		return
	}
	m.WriteU8(addr, uint8(v))
	m.WriteU8(addr+1, uint8(v>>8))
}

// WriteU32 stores a little-endian word into the RW half.
func (m *Memory) WriteU32(addr uint32, v uint32) {
	rw := m.slab[:RWSize]
	off := addr & RWMask
	if int(off)+4 <= len(rw) {
		binary.LittleEndian.PutUint32(rw[off:], v)
		return
	}
	for i := 0; i < 4; i++ {
		m.WriteU8(addr+uint32(i), uint8(v>>(8*uint(i))))
	}
}
