package driver

import "strings"

// CPUControlFlags select which command the device CPU executes for the
// current exchange. MOD_BEGIN/MOD_END and STM_BEGIN/STM_END bracket chunked
// uploads; the remaining bits are one-shot command selectors.
type CPUControlFlags uint8

const (
	CPUFlagModBegin       CPUControlFlags = 1 << 0
	CPUFlagModEnd         CPUControlFlags = 1 << 1
	CPUFlagSTMBegin       CPUControlFlags = 1 << 2
	CPUFlagSTMEnd         CPUControlFlags = 1 << 3
	CPUFlagIsDuty         CPUControlFlags = 1 << 4
	CPUFlagConfigSilencer CPUControlFlags = 1 << 5
	CPUFlagReadsFPGAInfo  CPUControlFlags = 1 << 6
	CPUFlagDoSync         CPUControlFlags = 1 << 7
)

// Set returns f with the given bits set.
func (f CPUControlFlags) Set(bits CPUControlFlags) CPUControlFlags {
	return f | bits
}

// Clear returns f with the given bits cleared.
func (f CPUControlFlags) Clear(bits CPUControlFlags) CPUControlFlags {
	return f &^ bits
}

// Contains reports whether all given bits are set.
func (f CPUControlFlags) Contains(bits CPUControlFlags) bool {
	return f&bits == bits
}

func (f CPUControlFlags) String() string {
	names := []struct {
		bit  CPUControlFlags
		name string
	}{
		{CPUFlagModBegin, "MOD_BEGIN"},
		{CPUFlagModEnd, "MOD_END"},
		{CPUFlagSTMBegin, "STM_BEGIN"},
		{CPUFlagSTMEnd, "STM_END"},
		{CPUFlagIsDuty, "IS_DUTY"},
		{CPUFlagConfigSilencer, "CONFIG_SILENCER"},
		{CPUFlagReadsFPGAInfo, "READS_FPGA_INFO"},
		{CPUFlagDoSync, "DO_SYNC"},
	}

	var set []string
	for _, n := range names {
		if f.Contains(n.bit) {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "NONE"
	}
	return strings.Join(set, " | ")
}

// FPGAControlFlags select the FPGA output mode. Exactly one of static drive,
// point STM and gain STM is active at a time: STM_MODE clear means static
// drive, STM_MODE set means STM, and STM_GAIN_MODE distinguishes gain STM
// from point STM.
type FPGAControlFlags uint8

const (
	FPGAFlagLegacyMode  FPGAControlFlags = 1 << 0
	FPGAFlagForceFan    FPGAControlFlags = 1 << 4
	FPGAFlagSTMMode     FPGAControlFlags = 1 << 5
	FPGAFlagSTMGainMode FPGAControlFlags = 1 << 6
)

// Set returns f with the given bits set.
func (f FPGAControlFlags) Set(bits FPGAControlFlags) FPGAControlFlags {
	return f | bits
}

// Clear returns f with the given bits cleared.
func (f FPGAControlFlags) Clear(bits FPGAControlFlags) FPGAControlFlags {
	return f &^ bits
}

// Contains reports whether all given bits are set.
func (f FPGAControlFlags) Contains(bits FPGAControlFlags) bool {
	return f&bits == bits
}

func (f FPGAControlFlags) String() string {
	names := []struct {
		bit  FPGAControlFlags
		name string
	}{
		{FPGAFlagLegacyMode, "LEGACY_MODE"},
		{FPGAFlagForceFan, "FORCE_FAN"},
		{FPGAFlagSTMMode, "STM_MODE"},
		{FPGAFlagSTMGainMode, "STM_GAIN_MODE"},
	}

	var set []string
	for _, n := range names {
		if f.Contains(n.bit) {
			set = append(set, n.name)
		}
	}
	if len(set) == 0 {
		return "NONE"
	}
	return strings.Join(set, " | ")
}
