package driver

import "encoding/binary"

// TxDatagram is one outbound exchange unit: a single global header shared by
// every device on the segment, followed by one body per device. Storage for
// all bodies exists from construction; NumBodies says how many of them carry
// meaningful payload for the current command (0 for header-only commands).
type TxDatagram struct {
	data       []byte
	numDevices int

	// NumBodies is set by the operation encoders. Only the first NumBodies
	// bodies are transmitted.
	NumBodies int
}

// NewTxDatagram builds a zeroed datagram sized for numDevices devices.
func NewTxDatagram(numDevices int) *TxDatagram {
	return &TxDatagram{
		data:       make([]byte, HeaderSize+BodySize*numDevices),
		numDevices: numDevices,
	}
}

// NumDevices returns the device count the datagram was built for.
func (tx *TxDatagram) NumDevices() int {
	return tx.numDevices
}

// Header returns a mutable view of the global header.
func (tx *TxDatagram) Header() Header {
	return Header{tx.data[:HeaderSize]}
}

// Body returns a mutable view of the i-th device body. i must be below the
// device count given at construction.
func (tx *TxDatagram) Body(i int) Body {
	off := HeaderSize + BodySize*i
	return Body{tx.data[off : off+BodySize]}
}

// Data returns the wire image: the header followed by the first NumBodies
// bodies.
func (tx *TxDatagram) Data() []byte {
	return tx.data[:HeaderSize+BodySize*tx.NumBodies]
}

// Header layout:
//
//	offset 0  msg id
//	offset 1  FPGA control flags
//	offset 2  CPU control flags
//	offset 3  payload size (modulation bytes in this frame)
//	offset 4  124-byte command sub-header
//
// The sub-header bytes are shared between the sync, silencer and modulation
// commands; which interpretation is live is keyed by the CPU flags.
type Header struct {
	b []byte
}

const headerDataOffset = 4

func (h Header) MsgID() uint8       { return h.b[0] }
func (h Header) SetMsgID(id uint8)  { h.b[0] = id }
func (h Header) Size() uint8        { return h.b[3] }
func (h Header) SetSize(size uint8) { h.b[3] = size }

func (h Header) FPGAFlags() FPGAControlFlags     { return FPGAControlFlags(h.b[1]) }
func (h Header) SetFPGAFlags(f FPGAControlFlags) { h.b[1] = uint8(f) }
func (h Header) CPUFlags() CPUControlFlags       { return CPUControlFlags(h.b[2]) }
func (h Header) SetCPUFlags(f CPUControlFlags)   { h.b[2] = uint8(f) }

// SyncHeader returns the sync interpretation of the sub-header. The DO_SYNC
// flag must already be set; a mismatch is a programming error.
func (h Header) SyncHeader() SyncHeader {
	if !h.CPUFlags().Contains(CPUFlagDoSync) {
		panic("driver: sync header accessed without DO_SYNC")
	}
	return SyncHeader{h.b[headerDataOffset:]}
}

// SilencerHeader returns the silencer interpretation of the sub-header. The
// CONFIG_SILENCER flag must already be set.
func (h Header) SilencerHeader() SilencerHeader {
	if !h.CPUFlags().Contains(CPUFlagConfigSilencer) {
		panic("driver: silencer header accessed without CONFIG_SILENCER")
	}
	return SilencerHeader{h.b[headerDataOffset:]}
}

// ModHead returns the first-chunk modulation interpretation of the
// sub-header. The MOD_BEGIN flag must already be set.
func (h Header) ModHead() ModHead {
	if !h.CPUFlags().Contains(CPUFlagModBegin) {
		panic("driver: modulation head accessed without MOD_BEGIN")
	}
	return ModHead{h.b[headerDataOffset:]}
}

// ModBody returns the follow-up-chunk modulation interpretation of the
// sub-header.
func (h Header) ModBody() ModBody {
	return ModBody{h.b[headerDataOffset:]}
}

// SyncHeader carries the fieldbus sync cycle in base-period ticks.
type SyncHeader struct {
	b []byte
}

func (s SyncHeader) CycleTicks() uint16 {
	return binary.LittleEndian.Uint16(s.b)
}

func (s SyncHeader) SetCycleTicks(ticks uint16) {
	binary.LittleEndian.PutUint16(s.b, ticks)
}

// SilencerHeader carries the silencer update cycle and step size.
type SilencerHeader struct {
	b []byte
}

func (s SilencerHeader) Cycle() uint16         { return binary.LittleEndian.Uint16(s.b[0:2]) }
func (s SilencerHeader) SetCycle(cycle uint16) { binary.LittleEndian.PutUint16(s.b[0:2], cycle) }
func (s SilencerHeader) Step() uint16          { return binary.LittleEndian.Uint16(s.b[2:4]) }
func (s SilencerHeader) SetStep(step uint16)   { binary.LittleEndian.PutUint16(s.b[2:4], step) }

// ModHead is the modulation sub-header of a MOD_BEGIN frame: the sampling
// frequency divisor followed by up to ModHeadDataSize waveform bytes.
type ModHead struct {
	b []byte
}

func (m ModHead) FreqDiv() uint32 {
	return binary.LittleEndian.Uint32(m.b[0:4])
}

func (m ModHead) SetFreqDiv(div uint32) {
	binary.LittleEndian.PutUint32(m.b[0:4], div)
}

// Data returns the waveform byte area of the head chunk.
func (m ModHead) Data() []byte {
	return m.b[4 : 4+ModHeadDataSize]
}

// ModBody is the modulation sub-header of a follow-up frame: waveform bytes
// only.
type ModBody struct {
	b []byte
}

// Data returns the waveform byte area of a follow-up chunk.
func (m ModBody) Data() []byte {
	return m.b[:ModBodyDataSize]
}

// RxMessage is one device's reply to the last exchange.
type RxMessage struct {
	Ack   uint8
	MsgID uint8
}

// RxDatagram is one inbound exchange unit: one reply slot per device.
type RxDatagram struct {
	messages []RxMessage
}

// NewRxDatagram builds a reply buffer for numDevices devices.
func NewRxDatagram(numDevices int) *RxDatagram {
	return &RxDatagram{messages: make([]RxMessage, numDevices)}
}

// NumDevices returns the number of reply slots.
func (rx *RxDatagram) NumDevices() int {
	return len(rx.messages)
}

// Message returns the i-th device's reply.
func (rx *RxDatagram) Message(i int) RxMessage {
	return rx.messages[i]
}

// Overlay fills the reply slots from a raw input image of
// NumDevices*InputFrameSize bytes.
func (rx *RxDatagram) Overlay(data []byte) error {
	want := len(rx.messages) * InputFrameSize
	if len(data) < want {
		return ChunkSizeError{What: "rx datagram", Size: len(data), Max: want}
	}
	for i := range rx.messages {
		rx.messages[i].Ack = data[i*InputFrameSize]
		rx.messages[i].MsgID = data[i*InputFrameSize+1]
	}
	return nil
}

// IsMsgProcessed reports whether every device has acknowledged the given
// message id.
func (rx *RxDatagram) IsMsgProcessed(msgID uint8) bool {
	for i := range rx.messages {
		if rx.messages[i].MsgID != msgID {
			return false
		}
	}
	return true
}
