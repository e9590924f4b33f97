package driver

// Hardware-defined layout constants. These mirror the CPU/FPGA firmware and
// must not be changed without a matching firmware update.
const (
	NumTransX      = 18  // Transducer columns per unit
	NumTransY      = 14  // Transducer rows per unit
	NumTransInUnit = 249 // NumTransX*NumTransY minus the 3 mounting holes

	TransSpacingMM = 10.16 // Transducer pitch in mm

	HeaderSize = 128 // Global header size in bytes
	BodySize   = NumTransInUnit * 2

	InputFrameSize = 2 // Per-device reply: ack + message id

	ModHeadDataSize = 120 // Modulation bytes in a MOD_BEGIN frame
	ModBodyDataSize = 124 // Modulation bytes in a follow-up frame

	PointSTMHeadDataSize = 61 // Focus points per device in an STM_BEGIN frame
	PointSTMBodyDataSize = 62 // Focus points per device in a follow-up frame

	PointSTMBufSizeMax = 40000 // Hard cap on a streamed point sequence
	GainSTMBufSizeMax  = 1024  // Hard cap on a streamed gain sequence
)

// FPGA timing constants.
const (
	FPGAClkFreq = 163840000 // Main FPGA clock in Hz

	MaxCycle = 4096 // Ultrasound period in FPGA clock ticks

	ModSamplingFreqDivMin uint32 = 1160 // Minimum modulation sampling divisor
	STMSamplingFreqDivMin uint32 = 1612 // Minimum STM sampling divisor
	SilencerCycleMin      uint16 = 1044 // Minimum silencer update cycle

	// PointSTMFixedNumUnit is the millimetre value of one LSB of the 18-bit
	// fixed-point focus coordinates.
	PointSTMFixedNumUnit = 0.025
)

// Reserved message ids. Ids outside [MsgBegin, MsgEnd] are owned by the
// firmware for the diagnostic commands below.
const (
	MsgClear          uint8 = 0x00
	MsgRdCPUVersion   uint8 = 0x01
	MsgRdFPGAVersion  uint8 = 0x03
	MsgRdFPGAFunction uint8 = 0x05

	MsgBegin uint8 = 0x05
	MsgEnd   uint8 = 0xF0
)
