package driver

import "fmt"

// DeviceCountError reports a drive or cycle array whose length does not
// correspond to the number of devices the datagram was built for.
type DeviceCountError struct {
	Want, Got int
}

func (e DeviceCountError) Error() string {
	return fmt.Sprintf("device number is not correct: expected %d, got %d", e.Want, e.Got)
}

// ChunkSizeError reports a chunk that does not fit its hardware slot.
type ChunkSizeError struct {
	What string // which slot overflowed, e.g. "modulation head"
	Size int
	Max  int
}

func (e ChunkSizeError) Error() string {
	return fmt.Sprintf("%s data size %d is out of range (max %d)", e.What, e.Size, e.Max)
}

// FreqDivError reports a sampling frequency divisor below the hardware
// minimum.
type FreqDivError struct {
	What    string
	FreqDiv uint32
	Min     uint32
}

func (e FreqDivError) Error() string {
	return fmt.Sprintf("%s sampling frequency divisor %d is out of range (min %d)", e.What, e.FreqDiv, e.Min)
}

// SilencerCycleError reports a silencer cycle below the hardware minimum.
type SilencerCycleError struct {
	Cycle uint16
}

func (e SilencerCycleError) Error() string {
	return fmt.Sprintf("silencer cycle %d is out of range (min %d)", e.Cycle, SilencerCycleMin)
}
