package driver

import "testing"

func TestCPUControlFlagsSetClear(t *testing.T) {
	var f CPUControlFlags

	f = f.Set(CPUFlagDoSync | CPUFlagIsDuty)
	if !f.Contains(CPUFlagDoSync) || !f.Contains(CPUFlagIsDuty) {
		t.Errorf("expected DO_SYNC and IS_DUTY set, got %v", f)
	}

	f = f.Clear(CPUFlagDoSync)
	if f.Contains(CPUFlagDoSync) {
		t.Error("DO_SYNC still set after clear")
	}
	if !f.Contains(CPUFlagIsDuty) {
		t.Error("clear removed an unrelated bit")
	}
}

func TestCPUControlFlagsString(t *testing.T) {
	tests := []struct {
		flags CPUControlFlags
		want  string
	}{
		{flags: 0, want: "NONE"},
		{flags: CPUFlagDoSync, want: "DO_SYNC"},
		{flags: CPUFlagModBegin | CPUFlagModEnd, want: "MOD_BEGIN | MOD_END"},
	}

	for _, tt := range tests {
		if got := tt.flags.String(); got != tt.want {
			t.Errorf("CPUControlFlags(0x%02x).String() = %q, want %q", uint8(tt.flags), got, tt.want)
		}
	}
}

func TestFPGAControlFlagsString(t *testing.T) {
	f := FPGAFlagLegacyMode | FPGAFlagSTMMode
	if got := f.String(); got != "LEGACY_MODE | STM_MODE" {
		t.Errorf("unexpected string: %q", got)
	}
	if got := FPGAControlFlags(0).String(); got != "NONE" {
		t.Errorf("unexpected zero string: %q", got)
	}
}
