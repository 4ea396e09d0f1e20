package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"

	"github.com/park285/fairchess/internal/generate"
)

func newTestArchive(t *testing.T) (*Archive, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })

	a, err := NewArchive(fmt.Sprintf("redis://%s/0", mr.Addr()), time.Minute)
	if err != nil {
		t.Fatalf("NewArchive: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	return a, mr
}

const testFEN = "1k6/pppppppp/2n2q2/1rb3r1/3N4/PP1B1Q2/2PPPPPP/1K2R1RB b - - 0 1"

func TestArchiveRecordAndRecall(t *testing.T) {
	a, _ := newTestArchive(t)
	ctx := context.Background()

	placement, _, _ := strings.Cut(testFEN, " ")
	seen, err := a.SeenRecently(ctx, placement)
	if err != nil {
		t.Fatalf("SeenRecently: %v", err)
	}
	if seen {
		t.Fatalf("fresh archive reports duplicate")
	}

	rec := generate.AcceptedRecord{FEN: testFEN, Evaluation: -12, Attempts: 4, Backend: "process"}
	if err := a.Record(ctx, rec); err != nil {
		t.Fatalf("Record: %v", err)
	}

	seen, err = a.SeenRecently(ctx, placement)
	if err != nil {
		t.Fatalf("SeenRecently after record: %v", err)
	}
	if !seen {
		t.Fatalf("recorded placement not reported as recent")
	}

	recent, err := a.Recent(ctx, 5)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent entries = %d, want 1", len(recent))
	}
	if recent[0].FEN != testFEN || recent[0].Evaluation != -12 || recent[0].Attempts != 4 {
		t.Fatalf("recalled record = %+v", recent[0])
	}
}

func TestArchiveRecentTTLExpires(t *testing.T) {
	a, mr := newTestArchive(t)
	ctx := context.Background()

	placement, _, _ := strings.Cut(testFEN, " ")
	if err := a.Record(ctx, generate.AcceptedRecord{FEN: testFEN}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	seen, err := a.SeenRecently(ctx, placement)
	if err != nil {
		t.Fatalf("SeenRecently: %v", err)
	}
	if seen {
		t.Fatalf("placement still recent after TTL expiry")
	}
}

func TestArchiveRejectsBadURL(t *testing.T) {
	if _, err := NewArchive("", time.Minute); err == nil {
		t.Fatalf("empty URL accepted")
	}
	if _, err := NewArchive("http://localhost:6379", time.Minute); err == nil {
		t.Fatalf("non-redis scheme accepted")
	}
}
