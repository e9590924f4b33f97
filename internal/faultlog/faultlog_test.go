package faultlog

import (
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(Config{Path: ":memory:"}, nil)
	if err != nil {
		t.Fatalf("open in-memory journal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestParseDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want []FaultEvent
	}{
		{
			name: "safe op error ack",
			msg:  "ERROR : slave 2 is in SAFE_OP + ERROR, attempting ack\n",
			want: []FaultEvent{{Slave: 2, Kind: KindSafeOpError}},
		},
		{
			name: "safe op promotion",
			msg:  "ERROR : slave 1 is in SAFE_OP, change to OPERATIONAL\n",
			want: []FaultEvent{{Slave: 1, Kind: KindSafeOp}},
		},
		{
			name: "multi line pass",
			msg:  "ERROR : slave 1 lost\nMESSAGE : slave 3 recovered\n",
			want: []FaultEvent{{Slave: 1, Kind: KindLost}, {Slave: 3, Kind: KindRecovered}},
		},
		{
			name: "found after lost",
			msg:  "MESSAGE : slave 4 found\n",
			want: []FaultEvent{{Slave: 4, Kind: KindFound}},
		},
		{
			name: "reconfigured",
			msg:  "MESSAGE : slave 2 reconfigured\n",
			want: []FaultEvent{{Slave: 2, Kind: KindReconfigured}},
		},
		{
			name: "no slave named",
			msg:  "ERROR : something unrelated\n",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDiagnostics(tt.msg)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].Slave != tt.want[i].Slave || got[i].Kind != tt.want[i].Kind {
					t.Errorf("event %d = slave %d kind %s, want slave %d kind %s",
						i, got[i].Slave, got[i].Kind, tt.want[i].Slave, tt.want[i].Kind)
				}
			}
		})
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	db := openTestDB(t)
	repo := NewFaultEventRepository(db.GetDB())

	if err := repo.Record(&FaultEvent{Slave: 1, Kind: KindLost, Message: "ERROR : slave 1 lost"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.Record(&FaultEvent{Slave: 1, Kind: KindRecovered}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := repo.Record(&FaultEvent{Slave: 2, Kind: KindSafeOp}); err != nil {
		t.Fatalf("record: %v", err)
	}

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	events, err := repo.BySlave(1, 10)
	if err != nil {
		t.Fatalf("by slave: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("slave 1 has %d events, want 2", len(events))
	}
	for _, e := range events {
		if e.Slave != 1 {
			t.Errorf("got event for slave %d", e.Slave)
		}
	}

	recent, err := repo.Since(time.Now().Add(-time.Minute), 10)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("recent events = %d, want 3", len(recent))
	}

	if err := repo.HealthCheck(); err != nil {
		t.Errorf("health check: %v", err)
	}
}

func TestRepositoryPurge(t *testing.T) {
	db := openTestDB(t)
	repo := NewFaultEventRepository(db.GetDB())

	if err := repo.RecordBatch([]FaultEvent{
		{Slave: 1, Kind: KindLost},
		{Slave: 2, Kind: KindLost},
	}); err != nil {
		t.Fatalf("record batch: %v", err)
	}

	// Nothing is older than the epoch cutoff.
	n, err := repo.PurgeBefore(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 0 {
		t.Errorf("purged %d events, want 0", n)
	}

	n, err = repo.PurgeBefore(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 2 {
		t.Errorf("purged %d events, want 2", n)
	}
}

func TestJournalRecord(t *testing.T) {
	db := openTestDB(t)
	repo := NewFaultEventRepository(db.GetDB())
	journal := NewJournal(repo, nil)

	journal.Record("ERROR : slave 1 is in SAFE_OP + ERROR, attempting ack\nERROR : slave 2 lost\n")
	journal.Record("not a recovery line")

	count, err := repo.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	events, err := repo.BySlave(2, 1)
	if err != nil || len(events) != 1 {
		t.Fatalf("by slave: %v (%d events)", err, len(events))
	}
	if events[0].Kind != KindLost {
		t.Errorf("kind = %s, want %s", events[0].Kind, KindLost)
	}

	stats, err := repo.GetStatistics()
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats["total_events"].(int64) != 2 {
		t.Errorf("total_events = %v, want 2", stats["total_events"])
	}
}
