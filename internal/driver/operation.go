package driver

import "math"

// Operation encoders. Each encoder mutates tx into a wire-ready datagram for
// one command and leaves the control flags in a valid terminal state for that
// command, clearing transient bits left over from a different command family.
// On error the datagram is partially mutated and must not be transmitted.

// Clear resets every device to its initial state.
func Clear(tx *TxDatagram) {
	tx.Header().SetMsgID(MsgClear)
	tx.NumBodies = 0
}

// Sync distributes per-transducer ultrasound cycle counts and schedules a
// network-wide synchronization at the given fieldbus cycle tick count. One
// cycle array of NumTransInUnit entries is required per device.
func Sync(msgID uint8, syncCycleTicks uint16, cycles [][]uint16, tx *TxDatagram) error {
	if len(cycles) != tx.NumDevices() {
		return DeviceCountError{Want: tx.NumDevices(), Got: len(cycles)}
	}
	for _, c := range cycles {
		if len(c) != NumTransInUnit {
			return DeviceCountError{Want: NumTransInUnit, Got: len(c)}
		}
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagModBegin | CPUFlagModEnd | CPUFlagConfigSilencer).Set(CPUFlagDoSync))
	h.SyncHeader().SetCycleTicks(syncCycleTicks)

	for i, c := range cycles {
		tx.Body(i).SetSyncCycles(c)
	}
	tx.NumBodies = tx.NumDevices()

	return nil
}

// Modulation uploads one chunk of the modulation waveform. The first chunk
// carries the sampling frequency divisor and is capped at ModHeadDataSize
// bytes; follow-up chunks are capped at ModBodyDataSize. A single-chunk
// upload sets both the first and last flags.
func Modulation(msgID uint8, data []byte, isFirst bool, freqDiv uint32, isLast bool, tx *TxDatagram) error {
	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagDoSync | CPUFlagConfigSilencer | CPUFlagModBegin | CPUFlagModEnd))

	if isFirst && len(data) > ModHeadDataSize {
		return ChunkSizeError{What: "modulation head", Size: len(data), Max: ModHeadDataSize}
	}
	if !isFirst && len(data) > ModBodyDataSize {
		return ChunkSizeError{What: "modulation body", Size: len(data), Max: ModBodyDataSize}
	}

	if isFirst {
		if freqDiv < ModSamplingFreqDivMin {
			return FreqDivError{What: "modulation", FreqDiv: freqDiv, Min: ModSamplingFreqDivMin}
		}
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagModBegin))
		h.ModHead().SetFreqDiv(freqDiv)
		copy(h.ModHead().Data(), data)
	} else {
		copy(h.ModBody().Data(), data)
	}
	h.SetSize(uint8(len(data)))

	if isLast {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagModEnd))
	}
	tx.NumBodies = 0

	return nil
}

// ConfigSilencer configures the output smoothing filter.
func ConfigSilencer(msgID uint8, cycle, step uint16, tx *TxDatagram) error {
	if cycle < SilencerCycleMin {
		return SilencerCycleError{Cycle: cycle}
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagDoSync | CPUFlagModBegin | CPUFlagModEnd).Set(CPUFlagConfigSilencer))

	h.SilencerHeader().SetCycle(cycle)
	h.SilencerHeader().SetStep(step)
	tx.NumBodies = 0

	return nil
}

func checkDriveLen(drives []Drive, tx *TxDatagram) error {
	if len(drives) != tx.NumDevices()*NumTransInUnit {
		return DeviceCountError{Want: tx.NumDevices(), Got: len(drives) / NumTransInUnit}
	}
	return nil
}

// NormalLegacy sets a static drive in the combined 8-bit phase+duty
// encoding. The drive array must hold exactly one entry per transducer
// across all devices.
func NormalLegacy(msgID uint8, drives []Drive, tx *TxDatagram) error {
	if err := checkDriveLen(drives, tx); err != nil {
		return err
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetFPGAFlags(h.FPGAFlags().Set(FPGAFlagLegacyMode).Clear(FPGAFlagSTMMode))

	for i := 0; i < tx.NumDevices(); i++ {
		tx.Body(i).SetLegacyDrives(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
	}
	tx.NumBodies = tx.NumDevices()

	return nil
}

// NormalDuty sets the duty half of a split static drive.
func NormalDuty(msgID uint8, drives []Drive, tx *TxDatagram) error {
	if err := checkDriveLen(drives, tx); err != nil {
		return err
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetFPGAFlags(h.FPGAFlags().Clear(FPGAFlagLegacyMode | FPGAFlagSTMMode))
	h.SetCPUFlags(h.CPUFlags().Set(CPUFlagIsDuty))

	for i := 0; i < tx.NumDevices(); i++ {
		tx.Body(i).SetDuties(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
	}
	tx.NumBodies = tx.NumDevices()

	return nil
}

// NormalPhase sets the phase half of a split static drive.
func NormalPhase(msgID uint8, drives []Drive, tx *TxDatagram) error {
	if err := checkDriveLen(drives, tx); err != nil {
		return err
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetFPGAFlags(h.FPGAFlags().Clear(FPGAFlagLegacyMode | FPGAFlagSTMMode))
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagIsDuty))

	for i := 0; i < tx.NumDevices(); i++ {
		tx.Body(i).SetPhases(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
	}
	tx.NumBodies = tx.NumDevices()

	return nil
}

// PointSTM streams one chunk of a focus point sequence, one device-local
// point list per device. The head chunk carries the sampling divisor and the
// quantized sound speed next to a capped point run; follow-up chunks carry
// points only.
func PointSTM(msgID uint8, points [][]SeqFocus, isFirst bool, freqDiv uint32, soundSpeed float64, isLast bool, tx *TxDatagram) error {
	if len(points) != tx.NumDevices() {
		return DeviceCountError{Want: tx.NumDevices(), Got: len(points)}
	}

	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagSTMBegin | CPUFlagSTMEnd))
	h.SetFPGAFlags(h.FPGAFlags().Set(FPGAFlagSTMMode).Clear(FPGAFlagSTMGainMode))

	max := PointSTMBodyDataSize
	what := "point STM body"
	if isFirst {
		max = PointSTMHeadDataSize
		what = "point STM head"
	}
	for _, s := range points {
		if len(s) > max {
			return ChunkSizeError{What: what, Size: len(s), Max: max}
		}
	}

	if isFirst {
		if freqDiv < STMSamplingFreqDivMin {
			return FreqDivError{What: "point STM", FreqDiv: freqDiv, Min: STMSamplingFreqDivMin}
		}
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMBegin))
		speed := uint32(math.Round(soundSpeed * 1024.0))
		for i, s := range points {
			head := tx.Body(i).PointSTMHead()
			head.SetSize(uint16(len(s)))
			head.SetFreqDiv(freqDiv)
			head.SetSoundSpeed(speed)
			head.SetPoints(s)
		}
	} else {
		for i, s := range points {
			body := tx.Body(i).PointSTMBody()
			body.SetSize(uint16(len(s)))
			body.SetPoints(s)
		}
	}

	if isLast {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMEnd))
	}

	tx.NumBodies = tx.NumDevices()

	return nil
}

// gainSTMFirst writes the metadata-only head frame shared by all gain STM
// variants. Unlike point STM the head frame carries no drive payload.
func gainSTMFirst(freqDiv uint32, tx *TxDatagram) error {
	if freqDiv < STMSamplingFreqDivMin {
		return FreqDivError{What: "gain STM", FreqDiv: freqDiv, Min: STMSamplingFreqDivMin}
	}
	h := tx.Header()
	h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMBegin))
	for i := 0; i < tx.NumDevices(); i++ {
		tx.Body(i).GainSTMHead().SetFreqDiv(freqDiv)
	}
	return nil
}

// GainSTMLegacy streams one frame of a gain sequence in the legacy encoding.
func GainSTMLegacy(msgID uint8, drives []Drive, isFirst bool, freqDiv uint32, isLast bool, tx *TxDatagram) error {
	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagSTMBegin | CPUFlagSTMEnd))
	h.SetFPGAFlags(h.FPGAFlags().Set(FPGAFlagLegacyMode | FPGAFlagSTMMode | FPGAFlagSTMGainMode))

	if isFirst {
		if err := gainSTMFirst(freqDiv, tx); err != nil {
			return err
		}
	} else {
		if err := checkDriveLen(drives, tx); err != nil {
			return err
		}
		for i := 0; i < tx.NumDevices(); i++ {
			tx.Body(i).GainSTMBody().SetLegacyDrives(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
		}
	}

	if isLast {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMEnd))
	}

	tx.NumBodies = tx.NumDevices()

	return nil
}

// GainSTMNormalPhase streams one phase frame of a gain sequence in the split
// encoding.
func GainSTMNormalPhase(msgID uint8, drives []Drive, isFirst bool, freqDiv uint32, isLast bool, tx *TxDatagram) error {
	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagIsDuty | CPUFlagSTMBegin | CPUFlagSTMEnd))
	h.SetFPGAFlags(h.FPGAFlags().Clear(FPGAFlagLegacyMode).Set(FPGAFlagSTMMode | FPGAFlagSTMGainMode))

	if isFirst {
		if err := gainSTMFirst(freqDiv, tx); err != nil {
			return err
		}
	} else {
		if err := checkDriveLen(drives, tx); err != nil {
			return err
		}
		for i := 0; i < tx.NumDevices(); i++ {
			tx.Body(i).GainSTMBody().SetPhases(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
		}
	}

	if isLast {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMEnd))
	}

	tx.NumBodies = tx.NumDevices()

	return nil
}

// GainSTMNormalDuty streams one duty frame of a gain sequence in the split
// encoding.
func GainSTMNormalDuty(msgID uint8, drives []Drive, isFirst bool, freqDiv uint32, isLast bool, tx *TxDatagram) error {
	h := tx.Header()
	h.SetMsgID(msgID)
	h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagSTMBegin | CPUFlagSTMEnd).Set(CPUFlagIsDuty))
	h.SetFPGAFlags(h.FPGAFlags().Clear(FPGAFlagLegacyMode).Set(FPGAFlagSTMMode | FPGAFlagSTMGainMode))

	if isFirst {
		if err := gainSTMFirst(freqDiv, tx); err != nil {
			return err
		}
	} else {
		if err := checkDriveLen(drives, tx); err != nil {
			return err
		}
		for i := 0; i < tx.NumDevices(); i++ {
			tx.Body(i).GainSTMBody().SetDuties(drives[i*NumTransInUnit : (i+1)*NumTransInUnit])
		}
	}

	if isLast {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagSTMEnd))
	}

	tx.NumBodies = tx.NumDevices()

	return nil
}

// ForceFan toggles the cooling fan override bit.
func ForceFan(tx *TxDatagram, value bool) {
	h := tx.Header()
	if value {
		h.SetFPGAFlags(h.FPGAFlags().Set(FPGAFlagForceFan))
	} else {
		h.SetFPGAFlags(h.FPGAFlags().Clear(FPGAFlagForceFan))
	}
}

// ReadsFPGAInfo toggles whether replies carry the FPGA status word.
func ReadsFPGAInfo(tx *TxDatagram, value bool) {
	h := tx.Header()
	if value {
		h.SetCPUFlags(h.CPUFlags().Set(CPUFlagReadsFPGAInfo))
	} else {
		h.SetCPUFlags(h.CPUFlags().Clear(CPUFlagReadsFPGAInfo))
	}
}

// CPUVersion requests the CPU firmware version. The raw flag value is fixed
// for compatibility with firmware older than 1.9.
func CPUVersion(tx *TxDatagram) {
	tx.Header().SetMsgID(MsgRdCPUVersion)
	tx.Header().SetCPUFlags(CPUControlFlags(0x02))
	tx.NumBodies = 0
}

// FPGAVersion requests the FPGA firmware version.
func FPGAVersion(tx *TxDatagram) {
	tx.Header().SetMsgID(MsgRdFPGAVersion)
	tx.Header().SetCPUFlags(CPUControlFlags(0x04))
	tx.NumBodies = 0
}

// FPGAFunctions requests the enabled FPGA feature bits.
func FPGAFunctions(tx *TxDatagram) {
	tx.Header().SetMsgID(MsgRdFPGAFunction)
	tx.Header().SetCPUFlags(CPUControlFlags(0x05))
	tx.NumBodies = 0
}
