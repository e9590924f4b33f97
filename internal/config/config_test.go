package config

import (
	"os"
	"testing"
)

func TestConfig_LoadFromFile(t *testing.T) {
	// Create a temporary config file for testing
	testConfig := `[Interface]
Ifname=eth1
CycleTicks=2
CheckTrials=100
Simulate=0

[Devices]
DeviceMap=conf/devices.yaml
LegacyMode=0
SoundSpeed=343.5

[Silencer]
Enabled=1
Cycle=2048
Step=12

[Fault Log]
Enabled=1
Path=/var/lib/soniclink/faults.db
KeepDays=7

[Log]
FilePath=/var/log/soniclink.log
Debug=1`

	// Create temporary file
	tmpfile, err := os.CreateTemp("", "test_config_*.ini")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpfile.Name())

	if _, err := tmpfile.Write([]byte(testConfig)); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	// Test loading the config
	config := NewConfig(tmpfile.Name())
	err = config.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := config.GetIfname(); got != "eth1" {
		t.Errorf("GetIfname() = %q, want eth1", got)
	}
	if got := config.GetCycleTicks(); got != 2 {
		t.Errorf("GetCycleTicks() = %d, want 2", got)
	}
	if got := config.GetCheckTrials(); got != 100 {
		t.Errorf("GetCheckTrials() = %d, want 100", got)
	}
	if config.GetSimulate() {
		t.Error("GetSimulate() = true, want false")
	}
	if got := config.GetDeviceMap(); got != "conf/devices.yaml" {
		t.Errorf("GetDeviceMap() = %q", got)
	}
	if config.GetLegacyMode() {
		t.Error("GetLegacyMode() = true, want false")
	}
	if got := config.GetSoundSpeed(); got != 343.5 {
		t.Errorf("GetSoundSpeed() = %v, want 343.5", got)
	}
	if !config.GetSilencerEnabled() {
		t.Error("GetSilencerEnabled() = false, want true")
	}
	if got := config.GetSilencerCycle(); got != 2048 {
		t.Errorf("GetSilencerCycle() = %d, want 2048", got)
	}
	if got := config.GetSilencerStep(); got != 12 {
		t.Errorf("GetSilencerStep() = %d, want 12", got)
	}
	if !config.GetFaultLogEnabled() {
		t.Error("GetFaultLogEnabled() = false, want true")
	}
	if got := config.GetFaultLogPath(); got != "/var/lib/soniclink/faults.db" {
		t.Errorf("GetFaultLogPath() = %q", got)
	}
	if got := config.GetFaultLogKeepDays(); got != 7 {
		t.Errorf("GetFaultLogKeepDays() = %d, want 7", got)
	}
	if got := config.GetLogFilePath(); got != "/var/log/soniclink.log" {
		t.Errorf("GetLogFilePath() = %q", got)
	}
	if !config.GetLogDebug() {
		t.Error("GetLogDebug() = false, want true")
	}
}

func TestConfig_Defaults(t *testing.T) {
	config := NewConfig("nonexistent.ini")

	if got := config.GetCycleTicks(); got != 1 {
		t.Errorf("default CycleTicks = %d, want 1", got)
	}
	if got := config.GetCheckTrials(); got != 50 {
		t.Errorf("default CheckTrials = %d, want 50", got)
	}
	if !config.GetLegacyMode() {
		t.Error("default LegacyMode = false, want true")
	}
	if got := config.GetSoundSpeed(); got != 340.0 {
		t.Errorf("default SoundSpeed = %v, want 340", got)
	}
	if !config.GetSilencerEnabled() {
		t.Error("default silencer enabled = false, want true")
	}
	if got := config.GetSilencerCycle(); got != 4096 {
		t.Errorf("default silencer cycle = %d, want 4096", got)
	}
	if config.GetFaultLogEnabled() {
		t.Error("default fault log enabled = true, want false")
	}
	if got := config.GetFaultLogKeepDays(); got != 30 {
		t.Errorf("default KeepDays = %d, want 30", got)
	}
}

func TestConfig_LoadFromString(t *testing.T) {
	config := NewConfig("")

	err := config.LoadFromString(`# comment line
[Interface]
Ifname = enp3s0
Simulate = yes

[Silencer]
Enabled = no
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}

	if got := config.GetIfname(); got != "enp3s0" {
		t.Errorf("GetIfname() = %q, want enp3s0", got)
	}
	if !config.GetSimulate() {
		t.Error("GetSimulate() = false, want true")
	}
	if config.GetSilencerEnabled() {
		t.Error("GetSilencerEnabled() = true, want false")
	}
	// Untouched sections keep their defaults
	if got := config.GetSilencerCycle(); got != 4096 {
		t.Errorf("GetSilencerCycle() = %d, want 4096", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name:    "valid hardware run",
			data:    "[Interface]\nIfname=eth0\n",
			wantErr: false,
		},
		{
			name:    "valid simulated run",
			data:    "[Interface]\nSimulate=1\n",
			wantErr: false,
		},
		{
			name:    "missing interface",
			data:    "",
			wantErr: true,
		},
		{
			name:    "silencer cycle below hardware minimum",
			data:    "[Interface]\nIfname=eth0\n[Silencer]\nEnabled=1\nCycle=500\n",
			wantErr: true,
		},
		{
			name:    "low cycle accepted when silencer disabled",
			data:    "[Interface]\nIfname=eth0\n[Silencer]\nEnabled=0\nCycle=500\n",
			wantErr: false,
		},
		{
			name:    "zero cycle ticks",
			data:    "[Interface]\nIfname=eth0\nCycleTicks=0\n",
			wantErr: true,
		},
		{
			name:    "valid emulator run without ifname",
			data:    "[Interface]\nEmulatorAddr=127.0.0.1\n",
			wantErr: false,
		},
		{
			name:    "emulator port out of range",
			data:    "[Interface]\nEmulatorAddr=127.0.0.1\nEmulatorPort=70000\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewConfig("")
			if err := config.LoadFromString(tt.data); err != nil {
				t.Fatalf("LoadFromString() error = %v", err)
			}
			if err := config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_MalformedLinesIgnored(t *testing.T) {
	config := NewConfig("")

	err := config.LoadFromString(`[Interface]
this line has no equals sign
Ifname=eth0
CycleTicks=notanumber
`)
	if err != nil {
		t.Fatalf("LoadFromString() error = %v", err)
	}
	if got := config.GetIfname(); got != "eth0" {
		t.Errorf("GetIfname() = %q, want eth0", got)
	}
	// Unparseable numbers keep the default
	if got := config.GetCycleTicks(); got != 1 {
		t.Errorf("GetCycleTicks() = %d, want 1", got)
	}
}
