package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"vantori-hq/tollgate/pkg/ledger"
)

func newTestSQLite(t *testing.T) *SQLiteStorage {
	t.Helper()

	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "ledger.db")
	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func creditEntry(id, subject string, amount, balanceAfter int64, eventID string) *ledger.Entry {
	return &ledger.Entry{
		ID:                id,
		Subject:           subject,
		Kind:              ledger.EntryCredit,
		AmountCents:       amount,
		BalanceAfterCents: balanceAfter,
		EventID:           eventID,
		CreditKind:        ledger.CreditExternalTopup,
		CreatedAt:         time.Now(),
	}
}

func TestSQLiteStorage_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	entry := creditEntry("e1", "acct_1", 500, 500, "evt_1")
	entry.Metadata = map[string]string{"source": "stripe"}
	if err := s.Append(ctx, entry); err != nil {
		t.Fatalf("Append() error: %v", err)
	}
	if entry.Seq == 0 {
		t.Error("Append() did not assign seq")
	}

	last, err := s.LastEntry(ctx, "acct_1")
	if err != nil {
		t.Fatalf("LastEntry() error: %v", err)
	}
	if last.BalanceAfterCents != 500 {
		t.Errorf("balance after = %d", last.BalanceAfterCents)
	}
	if last.Metadata["source"] != "stripe" {
		t.Errorf("metadata = %v", last.Metadata)
	}

	if last, err = s.LastEntry(ctx, "acct_other"); err != nil || last != nil {
		t.Errorf("LastEntry(unknown) = %v, %v, want nil, nil", last, err)
	}
}

func TestSQLiteStorage_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	if err := s.Append(ctx, creditEntry("e1", "acct_1", 500, 500, "")); err != nil {
		t.Fatal(err)
	}
	reserve := &ledger.Entry{
		ID: "e2", Subject: "acct_1", Kind: ledger.EntryReserve,
		AmountCents: -200, BalanceAfterCents: 300,
		ReservationID: "resv_1", CreatedAt: time.Now(),
	}
	if err := s.Append(ctx, reserve); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Entries(ctx, "acct_1")
	if err != nil {
		t.Fatalf("Entries() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].ID != "e1" || entries[1].ID != "e2" {
		t.Errorf("creation order lost: %s, %s", entries[0].ID, entries[1].ID)
	}
	if entries[0].Seq >= entries[1].Seq {
		t.Errorf("seq not increasing: %d, %d", entries[0].Seq, entries[1].Seq)
	}
}

func TestSQLiteStorage_ByReservationAndEvent(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	if err := s.Append(ctx, creditEntry("e1", "acct_1", 500, 500, "evt_1")); err != nil {
		t.Fatal(err)
	}
	reserve := &ledger.Entry{
		ID: "e2", Subject: "acct_1", Kind: ledger.EntryReserve,
		AmountCents: -200, BalanceAfterCents: 300,
		ReservationID: "resv_1", CreatedAt: time.Now(),
	}
	commit := &ledger.Entry{
		ID: "e3", Subject: "acct_1", Kind: ledger.EntryCommit,
		AmountCents: 0, BalanceAfterCents: 300,
		ReservationID: "resv_1", CreatedAt: time.Now(),
	}
	if err := s.Append(ctx, reserve); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, commit); err != nil {
		t.Fatal(err)
	}

	linked, err := s.ByReservation(ctx, "resv_1")
	if err != nil {
		t.Fatalf("ByReservation() error: %v", err)
	}
	if len(linked) != 2 {
		t.Errorf("linked entries = %d, want 2", len(linked))
	}

	byEvent, err := s.ByEventID(ctx, "evt_1")
	if err != nil {
		t.Fatalf("ByEventID() error: %v", err)
	}
	if byEvent == nil || byEvent.ID != "e1" {
		t.Errorf("ByEventID() = %+v", byEvent)
	}

	if byEvent, err = s.ByEventID(ctx, "evt_unknown"); err != nil || byEvent != nil {
		t.Errorf("ByEventID(unknown) = %v, %v, want nil, nil", byEvent, err)
	}
}

func TestSQLiteStorage_OpenReservations(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	// resv_done gets finalized, resv_leak does not.
	entries := []*ledger.Entry{
		{ID: "e1", Subject: "acct_1", Kind: ledger.EntryReserve, AmountCents: -100,
			BalanceAfterCents: -100, ReservationID: "resv_done", CreatedAt: base},
		{ID: "e2", Subject: "acct_1", Kind: ledger.EntryVoid, AmountCents: 100,
			BalanceAfterCents: 0, ReservationID: "resv_done", CreatedAt: base.Add(time.Minute)},
		{ID: "e3", Subject: "acct_2", Kind: ledger.EntryReserve, AmountCents: -50,
			BalanceAfterCents: -50, ReservationID: "resv_leak", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "e4", Subject: "acct_3", Kind: ledger.EntryReserve, AmountCents: -75,
			BalanceAfterCents: -75, ReservationID: "resv_recent", CreatedAt: base.Add(time.Hour)},
	}
	for _, e := range entries {
		if err := s.Append(ctx, e); err != nil {
			t.Fatalf("Append(%s) error: %v", e.ID, err)
		}
	}

	open, err := s.OpenReservations(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("OpenReservations() error: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("open reservations = %d, want 1", len(open))
	}
	if open[0].ReservationID != "resv_leak" {
		t.Errorf("open reservation = %s, want resv_leak", open[0].ReservationID)
	}
}

func TestSQLiteStorage_Subjects(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	for i, subject := range []string{"acct_b", "acct_a", "acct_b"} {
		e := creditEntry("", subject, 100, 100, "")
		e.ID = string(rune('x'+i)) + "-id"
		if err := s.Append(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	subjects, err := s.Subjects(ctx)
	if err != nil {
		t.Fatalf("Subjects() error: %v", err)
	}
	if len(subjects) != 2 || subjects[0] != "acct_a" || subjects[1] != "acct_b" {
		t.Errorf("subjects = %v", subjects)
	}
}

func TestSQLiteStorage_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	cfg := DefaultSQLiteConfig()
	cfg.Path = path
	s, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage() error: %v", err)
	}
	if err := s.Append(ctx, creditEntry("e1", "acct_1", 500, 500, "evt_1")); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	s2, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s2.Close()

	last, err := s2.LastEntry(ctx, "acct_1")
	if err != nil {
		t.Fatalf("LastEntry() after reopen error: %v", err)
	}
	if last == nil || last.BalanceAfterCents != 500 {
		t.Errorf("ledger lost across restart: %+v", last)
	}
}
