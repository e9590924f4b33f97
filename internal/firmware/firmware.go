// Package firmware decodes the version words reported by the devices'
// diagnostic reads into human-readable firmware descriptions.
package firmware

import "fmt"

// LatestVersionNum is the newest firmware revision this driver knows about.
const LatestVersionNum uint8 = 0x89

// Info is one device's firmware identity.
type Info struct {
	Index          int
	CPUVersionNum  uint8
	FPGAVersionNum uint8
	// FPGAFunctionBits carries the enabled optional feature bits of the
	// FPGA image.
	FPGAFunctionBits uint8
}

// VersionString maps a raw version word onto the release it was shipped
// with.
func VersionString(num uint8) string {
	switch {
	case num == 0:
		return "older than v0.4"
	case num <= 0x06:
		return fmt.Sprintf("v0.%d", num+3)
	case num >= 0x0A && num <= 0x15:
		return fmt.Sprintf("v1.%d", num-0x0A)
	case num >= 0x80 && num <= 0x89:
		return fmt.Sprintf("v2.%d", num-0x80)
	}
	return fmt.Sprintf("unknown (0x%02x)", num)
}

// CPUVersion returns the CPU firmware release string.
func (i Info) CPUVersion() string {
	return VersionString(i.CPUVersionNum)
}

// FPGAVersion returns the FPGA firmware release string.
func (i Info) FPGAVersion() string {
	return VersionString(i.FPGAVersionNum)
}

// IsLatest reports whether both halves run the newest known revision.
func (i Info) IsLatest() bool {
	return i.CPUVersionNum == LatestVersionNum && i.FPGAVersionNum == LatestVersionNum
}

func (i Info) String() string {
	return fmt.Sprintf("%d: CPU = %s, FPGA = %s", i.Index, i.CPUVersion(), i.FPGAVersion())
}
