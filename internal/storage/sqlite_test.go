package storage

import (
	"errors"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/hperssn/lockpick/internal/clock"
	"github.com/hperssn/lockpick/internal/domain"
)

func resolvedSession(t *testing.T, id string, misses int, succeed bool) *domain.Session {
	t.Helper()

	clk := clock.NewManual(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	s := domain.NewSession(id, "host-1", domain.StartConfig{Pins: 1, MaxAttempts: 3}, clk, rand.New(rand.NewSource(1)))
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	for i := 0; i < misses; i++ {
		clk.Advance(s.Marker.TimeToAngle(s.Zone.Center + 180 - s.MarkerAngle()))
		s.Act()
	}
	if succeed {
		clk.Advance(s.Marker.TimeToAngle(s.Zone.Center - s.MarkerAngle()))
		s.Act()
	} else if s.State == domain.StateRunning {
		s.Cancel(domain.MsgCancelled)
	}
	return s
}

func TestFromDomainSession(t *testing.T) {
	s := resolvedSession(t, "a", 1, true)
	rec := FromDomainSession(s)

	if rec.Success != SuccessLevelOK {
		t.Fatalf("success = %s, want ok", rec.Success)
	}
	if len(rec.Attempts) != 2 || rec.Attempts[0].Hit || !rec.Attempts[1].Hit {
		t.Fatalf("attempts = %+v", rec.Attempts)
	}
	if rec.AttemptsUsed != 1 || rec.Pins != 1 {
		t.Fatalf("counters = %d/%d", rec.AttemptsUsed, rec.Pins)
	}

	if lvl := LevelFor(resolvedSession(t, "b", 0, true)); lvl != SuccessLevelGreat {
		t.Fatalf("flawless level = %s, want great", lvl)
	}
	if lvl := LevelFor(resolvedSession(t, "c", 3, false)); lvl != SuccessLevelFail {
		t.Fatalf("broken level = %s, want fail", lvl)
	}
}

func TestSQLiteRepository(t *testing.T) {
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "lockpick.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	for _, s := range []*domain.Session{
		resolvedSession(t, "great", 0, true),
		resolvedSession(t, "ok", 2, true),
		resolvedSession(t, "fail", 0, false),
	} {
		if err := repo.SaveSession(FromDomainSession(s)); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	records, err := repo.GetSessionsByUser("host-1")
	if err != nil {
		t.Fatalf("GetSessionsByUser: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}

	var okRec *SessionRecord
	for i := range records {
		if records[i].ID == "ok" {
			okRec = &records[i]
		}
	}
	if okRec == nil || len(okRec.Attempts) != 3 || okRec.Difficulty != "medium" {
		t.Fatalf("ok record = %+v", okRec)
	}

	stats, err := repo.GetSessionStats("host-1")
	if err != nil {
		t.Fatalf("GetSessionStats: %v", err)
	}
	if stats.TotalSessions != 3 || stats.SuccessfulCount != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.AverageAttempts < 0.66 || stats.AverageAttempts > 0.67 {
		t.Fatalf("average attempts = %v, want 2/3", stats.AverageAttempts)
	}

	empty, err := repo.GetSessionStats("nobody")
	if err != nil {
		t.Fatalf("stats for nobody: %v", err)
	}
	if empty.TotalSessions != 0 || empty.SuccessRate != 0 {
		t.Fatalf("empty stats = %+v", empty)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("cassandra", ""); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v, want ErrUnknownDriver", err)
	}

	repo, err := Open("none", "")
	if err != nil || repo != nil {
		t.Fatalf("Open(none) = %v, %v", repo, err)
	}
}

func TestStatsFromRecords(t *testing.T) {
	stats := statsFromRecords([]SessionRecord{
		{Success: SuccessLevelGreat, ElapsedMs: 1000},
		{Success: SuccessLevelFail, AttemptsUsed: 3, ElapsedMs: 3000},
	})

	if stats.TotalSessions != 2 || stats.SuccessfulCount != 1 || stats.SuccessRate != 50 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.TotalPlayTimeMs != 4000 || stats.AverageAttempts != 1.5 {
		t.Fatalf("stats = %+v", stats)
	}
}
