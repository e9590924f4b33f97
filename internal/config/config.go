package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config represents the soniclink configuration
type Config struct {
	filename string

	// Interface section
	ifname       string
	cycleTicks   uint16
	checkTrials  uint32
	simulate     bool
	emulatorAddr string
	emulatorPort int

	// Devices section
	deviceMap  string
	legacyMode bool
	soundSpeed float64

	// Silencer section
	silencerEnabled bool
	silencerCycle   uint16
	silencerStep    uint16

	// Fault Log section
	faultLogEnabled  bool
	faultLogPath     string
	faultLogKeepDays uint32

	// Log section
	logFilePath string
	logDebug    bool
}

// NewConfig creates a new configuration instance
func NewConfig(filename string) *Config {
	return &Config{
		filename: filename,
		// Set reasonable defaults
		cycleTicks:   1,
		checkTrials:  50,
		simulate:     false,
		emulatorPort: 50632,

		deviceMap:  "data/devices.yaml",
		legacyMode: true,
		soundSpeed: 340.0,

		silencerEnabled: true,
		silencerCycle:   4096,
		silencerStep:    10,

		faultLogEnabled:  false,
		faultLogPath:     "data/faultlog.db",
		faultLogKeepDays: 30,
	}
}

// Load loads configuration from the specified file
func (c *Config) Load() error {
	file, err := os.Open(c.filename)
	if err != nil {
		return fmt.Errorf("failed to open config file %s: %v", c.filename, err)
	}
	defer file.Close()

	return c.parseINI(file)
}

// LoadFromString loads configuration from a string (useful for testing)
func (c *Config) LoadFromString(data string) error {
	return c.parseINIString(data)
}

func (c *Config) parseINI(file *os.File) error {
	scanner := bufio.NewScanner(file)
	return c.parseINIScanner(scanner)
}

func (c *Config) parseINIString(data string) error {
	scanner := bufio.NewScanner(strings.NewReader(data))
	return c.parseINIScanner(scanner)
}

func (c *Config) parseINIScanner(scanner *bufio.Scanner) error {
	var currentSection string

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if len(line) == 0 || line[0] == '#' {
			continue
		}

		// Check for section header
		if line[0] == '[' && line[len(line)-1] == ']' {
			currentSection = strings.TrimSpace(line[1 : len(line)-1])
			continue
		}

		// Parse key=value pairs
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Parse based on current section
		switch currentSection {
		case "Interface":
			c.parseInterfaceSection(key, value)
		case "Devices":
			c.parseDevicesSection(key, value)
		case "Silencer":
			c.parseSilencerSection(key, value)
		case "Fault Log":
			c.parseFaultLogSection(key, value)
		case "Log":
			c.parseLogSection(key, value)
		}
	}

	return scanner.Err()
}

func (c *Config) parseInterfaceSection(key, value string) {
	switch key {
	case "Ifname":
		c.ifname = value
	case "CycleTicks":
		if v, err := strconv.ParseUint(value, 10, 16); err == nil {
			c.cycleTicks = uint16(v)
		}
	case "CheckTrials":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.checkTrials = uint32(v)
		}
	case "Simulate":
		c.simulate = c.parseBool(value)
	case "EmulatorAddr":
		c.emulatorAddr = value
	case "EmulatorPort":
		if v, err := strconv.Atoi(value); err == nil {
			c.emulatorPort = v
		}
	}
}

func (c *Config) parseDevicesSection(key, value string) {
	switch key {
	case "DeviceMap":
		c.deviceMap = value
	case "LegacyMode":
		c.legacyMode = c.parseBool(value)
	case "SoundSpeed":
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			c.soundSpeed = v
		}
	}
}

func (c *Config) parseSilencerSection(key, value string) {
	switch key {
	case "Enabled":
		c.silencerEnabled = c.parseBool(value)
	case "Cycle":
		if v, err := strconv.ParseUint(value, 10, 16); err == nil {
			c.silencerCycle = uint16(v)
		}
	case "Step":
		if v, err := strconv.ParseUint(value, 10, 16); err == nil {
			c.silencerStep = uint16(v)
		}
	}
}

func (c *Config) parseFaultLogSection(key, value string) {
	switch key {
	case "Enabled":
		c.faultLogEnabled = c.parseBool(value)
	case "Path":
		c.faultLogPath = value
	case "KeepDays":
		if v, err := strconv.ParseUint(value, 10, 32); err == nil {
			c.faultLogKeepDays = uint32(v)
		}
	}
}

func (c *Config) parseLogSection(key, value string) {
	switch key {
	case "FilePath":
		c.logFilePath = value
	case "Debug":
		c.logDebug = c.parseBool(value)
	}
}

func (c *Config) parseBool(value string) bool {
	return value == "1" || strings.ToLower(value) == "true" || strings.ToLower(value) == "yes"
}

// Validate checks cross-field constraints the hardware imposes
func (c *Config) Validate() error {
	if c.ifname == "" && !c.simulate && c.emulatorAddr == "" {
		return fmt.Errorf("[Interface] Ifname is required unless Simulate or EmulatorAddr is set")
	}
	if c.cycleTicks == 0 {
		return fmt.Errorf("[Interface] CycleTicks must be at least 1")
	}
	if c.emulatorAddr != "" && (c.emulatorPort < 1 || c.emulatorPort > 65535) {
		return fmt.Errorf("[Interface] EmulatorPort %d is out of range", c.emulatorPort)
	}
	if c.silencerEnabled && c.silencerCycle < 1044 {
		return fmt.Errorf("[Silencer] Cycle %d is below the hardware minimum 1044", c.silencerCycle)
	}
	if c.soundSpeed <= 0 {
		return fmt.Errorf("[Devices] SoundSpeed must be positive")
	}
	return nil
}

// Getter methods for Interface section
func (c *Config) GetIfname() string       { return c.ifname }
func (c *Config) GetCycleTicks() uint16   { return c.cycleTicks }
func (c *Config) GetCheckTrials() uint32  { return c.checkTrials }
func (c *Config) GetSimulate() bool       { return c.simulate }
func (c *Config) GetEmulatorAddr() string { return c.emulatorAddr }
func (c *Config) GetEmulatorPort() int    { return c.emulatorPort }

// Getter methods for Devices section
func (c *Config) GetDeviceMap() string   { return c.deviceMap }
func (c *Config) GetLegacyMode() bool    { return c.legacyMode }
func (c *Config) GetSoundSpeed() float64 { return c.soundSpeed }

// Getter methods for Silencer section
func (c *Config) GetSilencerEnabled() bool { return c.silencerEnabled }
func (c *Config) GetSilencerCycle() uint16 { return c.silencerCycle }
func (c *Config) GetSilencerStep() uint16  { return c.silencerStep }

// Getter methods for Fault Log section
func (c *Config) GetFaultLogEnabled() bool    { return c.faultLogEnabled }
func (c *Config) GetFaultLogPath() string     { return c.faultLogPath }
func (c *Config) GetFaultLogKeepDays() uint32 { return c.faultLogKeepDays }

// Getter methods for Log section
func (c *Config) GetLogFilePath() string { return c.logFilePath }
func (c *Config) GetLogDebug() bool      { return c.logDebug }
