package vm

// DefaultPageOffset is the default guest physical address at which RAM starts.
// Addresses below this value are routed to the device map instead of RAM.
const DefaultPageOffset = 0x80000000

// DefaultMemorySize is the default RAM size in bytes when the caller does
// not override it on the command line.
const DefaultMemorySize = 64 * 1024 * 1024

// Privilege levels. Only Machine is reachable by this implementation; the
// others exist so CSR privilege checks and mstatus.MPP have a full value
// space to compare against.
const (
	PrivUser       = 0
	PrivSupervisor = 1
	PrivHypervisor = 2
	PrivMachine    = 3
)

// MMIO device base addresses, see spec §6 MMIO map.
const (
	UARTBase   = 0x10000000
	UARTLSR    = UARTBase + 5
	CLINTBase  = 0x11000000
	MTimeCmpLo = 0x11004000
	MTimeCmpHi = 0x11004004
	MTimeLo    = 0x1100BFF8
	MTimeHi    = 0x1100BFFC
	SysconBase = 0x11100000
)

// SYSCON magic values.
const (
	SysconPoweroff = 0x5555
	SysconReboot   = 0x7777
)

// Exception and interrupt causes (mcause values; bit 31 set for interrupts).
const (
	CauseInstructionAddressMisaligned = 0
	CauseInstructionAccessFault       = 1
	CauseIllegalInstruction           = 2
	CauseBreakpoint                   = 3
	CauseLoadAddressMisaligned        = 4
	CauseLoadAccessFault              = 5
	CauseStoreAddressMisaligned       = 6
	CauseStoreAccessFault             = 7
	CauseUserEnvCall                  = 8
	CauseSupervisorEnvCall            = 9
	CauseMachineEnvCall               = 11

	causeInterruptBit = 1 << 31

	CauseMachineSoftwareInterrupt = causeInterruptBit | 3
	CauseMachineTimerInterrupt    = causeInterruptBit | 7
	CauseMachineExternalInterrupt = causeInterruptBit | 11
)

// mip/mie bit positions for the interrupts this platform can raise.
const (
	MSIPBit = 1 << 3 // machine software interrupt pending/enable
	MTIPBit = 1 << 7 // machine timer interrupt pending/enable
	MEIPBit = 1 << 11 // machine external interrupt pending/enable
)

// mstatus bit layout used by the trap unit and MRET (see spec §4.8).
const (
	mstatusMIEBit  = 1 << 3
	mstatusMPIEBit = 1 << 7
	mstatusMPPLow  = 11
	mstatusMPPMask = 0b11 << mstatusMPPLow
)

// Process exit codes, see spec §6.
const (
	ExitOK                    = 0
	ExitUnknownInstruction    = 1
	ExitNotImplemented        = 2
	ExitInsufficientPrivilege = 3
	ExitUnhandledTrapVector   = 4
)
