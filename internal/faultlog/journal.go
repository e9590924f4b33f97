package faultlog

import (
	"log"
	"strconv"
	"strings"
)

// Journal turns the cyclic transport's diagnostic callback into persisted
// fault events. Record runs on the transport's timer goroutine, so it only
// parses and hands off to the repository.
type Journal struct {
	repo *FaultEventRepository
	log  *log.Logger
}

// NewJournal creates a journal writing through the given repository.
func NewJournal(repo *FaultEventRepository, logger *log.Logger) *Journal {
	return &Journal{repo: repo, log: logger}
}

// Record parses one multi-line diagnostic message and journals an event
// per affected slave. Suitable as the transport's OnError callback.
func (j *Journal) Record(msg string) {
	events := ParseDiagnostics(msg)
	if len(events) == 0 {
		return
	}
	if err := j.repo.RecordBatch(events); err != nil && j.log != nil {
		j.log.Printf("fault journal write failed: %v", err)
	}
	if j.log != nil {
		for _, e := range events {
			j.log.Printf("fault: slave %d %s", e.Slave, e.Kind)
		}
	}
}

// ParseDiagnostics splits a recovery message into per-slave events. Lines
// that do not name a slave are dropped.
func ParseDiagnostics(msg string) []FaultEvent {
	var events []FaultEvent
	for _, line := range strings.Split(msg, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		slave, ok := slaveIndex(line)
		if !ok {
			continue
		}
		events = append(events, FaultEvent{
			Slave:   slave,
			Kind:    kindOf(line),
			Message: line,
		})
	}
	return events
}

func slaveIndex(line string) (int, bool) {
	fields := strings.Fields(line)
	for i, f := range fields {
		if f == "slave" && i+1 < len(fields) {
			n, err := strconv.Atoi(fields[i+1])
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}

func kindOf(line string) string {
	switch {
	case strings.Contains(line, "SAFE_OP + ERROR"):
		return KindSafeOpError
	case strings.Contains(line, "SAFE_OP"):
		return KindSafeOp
	case strings.Contains(line, "reconfigured"):
		return KindReconfigured
	case strings.Contains(line, "recovered"):
		return KindRecovered
	case strings.Contains(line, "found"):
		return KindFound
	case strings.Contains(line, "lost"):
		return KindLost
	}
	return KindUnknown
}
