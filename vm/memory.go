package vm

import "io"

// FatalNullDerefError is raised by a read of address 0, a deliberate
// bring-up aid (spec §4.9: "design choice to catch null dereferences
// during bring-up; may be softened to a fault"). Unlike trapError it
// is never delivered to the guest; the cycle loop treats it as fatal.
type FatalNullDerefError struct{ Addr uint32 }

func (e *FatalNullDerefError) Error() string { return "vm: read of null pointer" }

// Bus is the memory-mapped-I/O bridge of spec §4.9: RAM lives at and
// above PageOffset, and the low region is dispatched to devices by
// address range.
type Bus struct {
	ram        []byte
	pageOffset uint32
	size       uint32

	UART   *UART
	CLINT  *CLINT
	Syscon *Syscon

	// devices is consulted by deviceFor; NewBus fills it with
	// UART/Syscon and AttachHart appends CLINT, which needs the hart
	// to exist first.
	devices []mappedDevice

	hart *Hart

	power PowerAction
}

// NewBus allocates memSize bytes of RAM and wires up UART and SYSCON.
// CLINT is attached once a hart exists, via AttachHart, because it
// needs to reach into the hart's mip storage and clock. onPower, if
// non-nil, is invoked in addition to the bus's own bookkeeping so a
// caller (main.go) can observe the request as it happens rather than
// only after Run returns.
func NewBus(memSize int, pageOffset uint32, uartOut io.Writer, onPower func(PowerAction)) *Bus {
	b := &Bus{
		ram:        make([]byte, memSize),
		pageOffset: pageOffset,
		size:       uint32(memSize),
		UART:       NewUART(uartOut),
	}
	b.Syscon = NewSyscon(func(action PowerAction) {
		b.power = action
		if onPower != nil {
			onPower(action)
		}
	})
	b.devices = []mappedDevice{
		{base: UARTBase, size: 8, dev: b.UART},
		{base: SysconBase, size: 0x1000, dev: b.Syscon},
	}
	return b
}

// PendingPower reports the power action most recently requested via
// SYSCON, or PowerNone if none. The fetch-execute loop polls this once
// per cycle to decide whether to stop (spec §6, SYSCON poweroff/reboot).
func (b *Bus) PendingPower() PowerAction { return b.power }

// AttachHart binds the bus to the hart it serves, instantiating CLINT
// against the hart's clock and mip storage.
func (b *Bus) AttachHart(h *Hart) {
	b.hart = h
	b.CLINT = NewCLINT(&h.Clock, func() {
		h.CSR.storage[csrMip] &^= MTIPBit
	})
	b.devices = append(b.devices, mappedDevice{base: CLINTBase, size: 0x10000, dev: b.CLINT})
}

// PageOffset returns the guest physical address RAM starts at.
func (b *Bus) PageOffset() uint32 { return b.pageOffset }

// Size returns the RAM size in bytes.
func (b *Bus) Size() uint32 { return b.size }

// RAM exposes the backing RAM slice for the loader and debugger; the
// returned slice aliases the bus's storage.
func (b *Bus) RAM() []byte { return b.ram }

// deviceFor walks the mapped-device table built by NewBus/AttachHart,
// returning the device owning addr or nil if addr falls in a gap of
// the low MMIO region.
func (b *Bus) deviceFor(addr uint32) Device {
	for _, m := range b.devices {
		if addr >= m.base && addr < m.base+m.size {
			return m.dev
		}
	}
	return nil
}

// Load reads width bytes (1, 2, or 4) at addr, little-endian. Per spec
// §4.9: addr==0 is fatal, addr>=PageOffset reads RAM, otherwise it is
// dispatched to a device; an out-of-range RAM address or an unmapped
// device address raises LoadAccessFault.
func (b *Bus) Load(addr uint32, width int) (uint32, error) {
	if addr == 0 {
		return 0, &FatalNullDerefError{Addr: addr}
	}
	if addr >= b.pageOffset {
		off := addr - b.pageOffset
		if uint64(off)+uint64(width) > uint64(b.size) {
			return 0, &trapError{cause: CauseLoadAccessFault, tval: addr}
		}
		return readLE(b.ram[off:], width), nil
	}
	dev := b.deviceFor(addr)
	if dev == nil {
		return 0, &trapError{cause: CauseLoadAccessFault, tval: addr, msg: unmappedDeviceAccess(addr).Error()}
	}
	v, err := dev.Load(addr, width)
	if err != nil {
		return 0, &trapError{cause: CauseLoadAccessFault, tval: addr}
	}
	return v, nil
}

// Store writes width bytes (1, 2, or 4) at addr, little-endian.
func (b *Bus) Store(addr uint32, width int, val uint32) error {
	if addr >= b.pageOffset {
		off := addr - b.pageOffset
		if uint64(off)+uint64(width) > uint64(b.size) {
			return &trapError{cause: CauseStoreAccessFault, tval: addr}
		}
		writeLE(b.ram[off:], width, val)
		return nil
	}
	dev := b.deviceFor(addr)
	if dev == nil {
		return &trapError{cause: CauseStoreAccessFault, tval: addr, msg: unmappedDeviceAccess(addr).Error()}
	}
	if err := dev.Store(addr, width, val); err != nil {
		return &trapError{cause: CauseStoreAccessFault, tval: addr}
	}
	return nil
}

func readLE(b []byte, width int) uint32 {
	switch width {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(b[0]) | uint32(b[1])<<8
	default:
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
}

func writeLE(b []byte, width int, val uint32) {
	switch width {
	case 1:
		b[0] = byte(val)
	case 2:
		b[0] = byte(val)
		b[1] = byte(val >> 8)
	default:
		b[0] = byte(val)
		b[1] = byte(val >> 8)
		b[2] = byte(val >> 16)
		b[3] = byte(val >> 24)
	}
}

// LoadBytes copies data into RAM starting at guest physical address
// addr, used by the loader package to place the kernel image and DTB.
func (b *Bus) LoadBytes(addr uint32, data []byte) error {
	if addr < b.pageOffset {
		return &trapError{cause: CauseStoreAccessFault, tval: addr}
	}
	off := addr - b.pageOffset
	if uint64(off)+uint64(len(data)) > uint64(b.size) {
		return &trapError{cause: CauseStoreAccessFault, tval: addr}
	}
	copy(b.ram[off:], data)
	return nil
}
