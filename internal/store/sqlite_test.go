package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/newsroom/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func sampleRecord(id string) *domain.SimulationRecord {
	return &domain.SimulationRecord{
		ID:    id,
		Topic: "carbon tax",
		Headlines: map[string]domain.Article{
			"progressive":  {Headline: "Tax the Polluters", Story: "lead 1"},
			"conservative": {Headline: "Costly Overreach", Story: "lead 2"},
			"tech":         {Headline: "Carbon Markets 2.0", Story: "lead 3"},
		},
		Cost:            0.07,
		FingerprintHash: "fp-abc",
	}
}

func TestSaveAndGetSimulation(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()

	if err := repo.SaveSimulation(ctx, sampleRecord("sim-1")); err != nil {
		t.Fatalf("SaveSimulation failed: %v", err)
	}

	got, err := repo.GetSimulation(ctx, "sim-1")
	if err != nil {
		t.Fatalf("GetSimulation failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetSimulation returned nil for existing record")
	}
	if got.Topic != "carbon tax" {
		t.Errorf("topic = %q", got.Topic)
	}
	if got.Cost != 0.07 {
		t.Errorf("cost = %v", got.Cost)
	}
	if got.FingerprintHash != "fp-abc" {
		t.Errorf("fingerprint = %q", got.FingerprintHash)
	}
	if got.CreatedAt.IsZero() {
		t.Error("createdAt not populated")
	}
	for _, persona := range personaColumns {
		want := sampleRecord("sim-1").Headlines[persona]
		if got.Headlines[persona] != want {
			t.Errorf("headlines[%s] = %+v, want %+v", persona, got.Headlines[persona], want)
		}
	}
}

func TestGetSimulationMissing(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetSimulation(t.Context(), "nope")
	if err != nil {
		t.Fatalf("GetSimulation failed: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil for missing ID", got)
	}
}

func TestListSimulationsNewestFirst(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()
	s := repo.(*SQLiteStore)

	for i, id := range []string{"sim-old", "sim-mid", "sim-new"} {
		if err := repo.SaveSimulation(ctx, sampleRecord(id)); err != nil {
			t.Fatalf("SaveSimulation(%s) failed: %v", id, err)
		}
		// created_at has second resolution; spread the rows explicitly.
		if _, err := s.db.ExecContext(ctx, `UPDATE simulations SET created_at = ? WHERE id = ?`, 1000+i, id); err != nil {
			t.Fatalf("backdate %s: %v", id, err)
		}
	}

	records, err := repo.ListSimulations(ctx, 2)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want limit of 2", len(records))
	}
	if records[0].ID != "sim-new" || records[1].ID != "sim-mid" {
		t.Errorf("order = [%s, %s], want newest first", records[0].ID, records[1].ID)
	}
}

func TestListSimulationsDefaultLimit(t *testing.T) {
	repo := newTestStore(t)

	records, err := repo.ListSimulations(t.Context(), 0)
	if err != nil {
		t.Fatalf("ListSimulations failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from empty store", len(records))
	}
}

func TestRateLimitLifecycle(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()
	window := 24 * time.Hour

	status, err := repo.CheckRateLimit(ctx, "fp-1", window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !status.Allowed {
		t.Fatal("unknown fingerprint must be allowed")
	}

	if err := repo.RecordRun(ctx, "fp-1"); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	status, err = repo.CheckRateLimit(ctx, "fp-1", window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if status.Allowed {
		t.Fatal("fingerprint must be blocked inside the window")
	}
	if status.RemainingSeconds <= 0 || status.RemainingSeconds > int64(window.Seconds()) {
		t.Errorf("remainingSeconds = %d", status.RemainingSeconds)
	}
	if status.Message != "You can run another simulation in 24 hours" {
		t.Errorf("message = %q", status.Message)
	}

	// A different fingerprint is unaffected.
	status, err = repo.CheckRateLimit(ctx, "fp-2", window)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !status.Allowed {
		t.Error("unrelated fingerprint blocked")
	}
}

func TestRateLimitWindowExpiry(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()
	s := repo.(*SQLiteStore)

	if err := repo.RecordRun(ctx, "fp-1"); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	backdated := time.Now().Add(-2 * time.Hour).Unix()
	if _, err := s.db.ExecContext(ctx, `UPDATE rate_limits SET last_run_at = ? WHERE fingerprint_hash = ?`, backdated, "fp-1"); err != nil {
		t.Fatalf("backdate run: %v", err)
	}

	status, err := repo.CheckRateLimit(ctx, "fp-1", time.Hour)
	if err != nil {
		t.Fatalf("CheckRateLimit failed: %v", err)
	}
	if !status.Allowed {
		t.Error("fingerprint still blocked after the window elapsed")
	}
}

func TestRecordRunUpserts(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()
	s := repo.(*SQLiteStore)

	for range 3 {
		if err := repo.RecordRun(ctx, "fp-1"); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT run_count FROM rate_limits WHERE fingerprint_hash = ?`, "fp-1").Scan(&count); err != nil {
		t.Fatalf("query run_count: %v", err)
	}
	if count != 3 {
		t.Errorf("run_count = %d, want 3", count)
	}
}

func TestDailyBudgetAccumulates(t *testing.T) {
	repo := newTestStore(t)
	ctx := t.Context()
	const date = "2026-08-31"

	status, err := repo.DailyBudget(ctx, date, 2.0)
	if err != nil {
		t.Fatalf("DailyBudget failed: %v", err)
	}
	if status.TotalCost != 0 || status.Remaining != 2.0 || status.SimulationCount != 0 {
		t.Errorf("fresh day status = %+v", status)
	}

	if err := repo.AddCost(ctx, date, 0.5); err != nil {
		t.Fatalf("AddCost failed: %v", err)
	}
	if err := repo.AddCost(ctx, date, 0.25); err != nil {
		t.Fatalf("AddCost failed: %v", err)
	}

	status, err = repo.DailyBudget(ctx, date, 2.0)
	if err != nil {
		t.Fatalf("DailyBudget failed: %v", err)
	}
	if status.TotalCost != 0.75 {
		t.Errorf("totalCost = %v, want 0.75", status.TotalCost)
	}
	if status.SimulationCount != 2 {
		t.Errorf("simulationCount = %d, want 2", status.SimulationCount)
	}
	if status.Remaining != 1.25 {
		t.Errorf("remaining = %v, want 1.25", status.Remaining)
	}

	// Other dates are isolated.
	other, err := repo.DailyBudget(ctx, "2026-09-01", 2.0)
	if err != nil {
		t.Fatalf("DailyBudget failed: %v", err)
	}
	if other.TotalCost != 0 {
		t.Errorf("other day totalCost = %v, want 0", other.TotalCost)
	}
}
