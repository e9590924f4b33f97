package faultlog

import (
	"fmt"
	"time"
)

// Fault kinds, derived from the recovery routine's diagnostics.
const (
	KindSafeOpError  = "safeop_error" // SAFE_OP + ERROR acknowledged
	KindSafeOp       = "safeop"       // dropped to SAFE_OP, promoted back
	KindReconfigured = "reconfigured" // deep error, configuration re-run
	KindLost         = "lost"         // stopped responding
	KindRecovered    = "recovered"    // lost slave re-attached
	KindFound        = "found"        // lost slave answered on its own
	KindUnknown      = "unknown"
)

// FaultEvent is one per-slave entry of the recovery journal
type FaultEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Slave     int       `gorm:"index;not null" json:"slave"`
	Kind      string    `gorm:"index;size:20" json:"kind"`
	Message   string    `gorm:"size:200" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (FaultEvent) TableName() string {
	return "fault_events"
}

// IsRecovery reports whether the event marks a slave coming back, rather
// than going away.
func (e FaultEvent) IsRecovery() bool {
	switch e.Kind {
	case KindReconfigured, KindRecovered, KindFound:
		return true
	}
	return false
}

// String returns a formatted string representation
func (e FaultEvent) String() string {
	return fmt.Sprintf("slave %d: %s (%s)", e.Slave, e.Kind, e.CreatedAt.Format(time.RFC3339))
}
