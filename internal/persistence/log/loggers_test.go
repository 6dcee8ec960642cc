package log

import (
	"path/filepath"
	"testing"
	"time"

	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/shadow"
)

func TestRoundLogger_WriteAndReplay(t *testing.T) {
	dir := t.TempDir()
	src, err := puzzle.New(puzzle.Config{ID: "log", GridSize: 3})
	if err != nil {
		t.Fatal(err)
	}
	l := NewRoundLogger(dir)

	hour := time.Date(2026, 1, 2, 3, 0, 0, 0, time.UTC)
	l.w.now = func() time.Time { return hour }

	_ = src.SubmitGoalDelta(shadow.XY, shadow.Square{A: 1, B: 2}, 1)
	_ = src.SubmitGoalDelta(shadow.XZ, shadow.Square{A: 1, B: 0}, 1)
	if err := l.WriteRound(src.Advance().LogEntry()); err != nil {
		t.Fatalf("WriteRound: %v", err)
	}

	// Next hour goes to a second file.
	hour = hour.Add(time.Hour)
	_ = src.SubmitVoxelDelta(shadow.Voxel{X: 1, Y: 2, Z: 0}, 1)
	last := src.Advance()
	if err := l.WriteRound(last.LogEntry()); err != nil {
		t.Fatalf("WriteRound: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	files, err := ListRoundFiles(RoundsDir(dir))
	if err != nil {
		t.Fatalf("ListRoundFiles: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "rounds-2026-01-02-03.jsonl.zst" {
		t.Fatalf("unexpected files: %v", files)
	}

	dst, _ := puzzle.New(puzzle.Config{ID: "log", GridSize: 3})
	var n int
	for _, f := range files {
		err := ReadRounds(f, func(e puzzle.RoundLogEntry) error {
			n++
			res, err := dst.Replay(e)
			if err != nil {
				return err
			}
			if res.Digest != e.Digest {
				t.Fatalf("round %d digest mismatch", e.Round)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("ReadRounds: %v", err)
		}
	}
	if n != 2 || !dst.Solved() || dst.Digest() != last.Digest {
		t.Fatalf("replay ended in wrong state: n=%d solved=%v", n, dst.Solved())
	}
}

func TestRoundLogger_ReadableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	l := NewRoundLogger(dir)
	defer l.Close()
	if err := l.WriteRound(puzzle.RoundLogEntry{Round: 1, Solved: true, Digest: "x"}); err != nil {
		t.Fatal(err)
	}
	files, _ := ListRoundFiles(RoundsDir(dir))
	if len(files) != 1 {
		t.Fatalf("expected one file, got %v", files)
	}
	var got []uint64
	_ = ReadRounds(files[0], func(e puzzle.RoundLogEntry) error {
		got = append(got, e.Round)
		return nil
	})
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("unexpected rounds: %v", got)
	}
}
