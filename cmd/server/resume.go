package main

import (
	"fmt"
	"log"
	"path/filepath"

	"shadowbox.ai/internal/persistence/archive"
	"shadowbox.ai/internal/persistence/indexdb"
	persistlog "shadowbox.ai/internal/persistence/log"
	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/catalogs"
	"shadowbox.ai/internal/sim/puzzle"
)

// openEngine rebuilds committed state: the snapshot (if any), then every
// logged round after it. Catalog goals are installed as round 1 only when
// nothing was committed yet.
func openEngine(def catalogs.PuzzleDef, puzzleDir, snapshotPath string, roundLogger puzzle.RoundLogger, logger *log.Logger) (*puzzle.Engine, error) {
	var e *puzzle.Engine
	if snapshotPath != "" {
		snap, err := snapshot.ReadSnapshot(snapshotPath)
		if err != nil {
			return nil, fmt.Errorf("read snapshot: %w", err)
		}
		if snap.Header.PuzzleID != "" && snap.Header.PuzzleID != def.ID {
			return nil, fmt.Errorf("snapshot puzzle id mismatch: flag=%s snap=%s", def.ID, snap.Header.PuzzleID)
		}
		e, err = puzzle.FromSnapshot(snap)
		if err != nil {
			return nil, fmt.Errorf("import snapshot: %w", err)
		}
		logger.Printf("loaded snapshot=%s round=%d", filepath.Base(snapshotPath), e.Round())
	} else {
		var err error
		e, err = puzzle.New(def.Config())
		if err != nil {
			return nil, fmt.Errorf("puzzle: %w", err)
		}
	}

	replayed, err := persistlog.ReplayDir(persistlog.RoundsDir(puzzleDir), e, 0)
	if err != nil {
		return nil, fmt.Errorf("replay round log: %w", err)
	}
	if e.Round() > 0 {
		logger.Printf("resumed puzzle=%s round=%d replayed=%d solved=%v", def.ID, e.Round(), replayed, e.Solved())
		return e, nil
	}

	// Goals go through the same intake as any other update.
	if _, err := e.SubmitGoalBatch(def.GoalUpdates()); err != nil {
		return nil, fmt.Errorf("install goals: %w", err)
	}
	res := e.Advance()
	if err := roundLogger.WriteRound(res.LogEntry()); err != nil {
		return nil, fmt.Errorf("log goal round: %w", err)
	}
	logger.Printf("fresh puzzle=%s grid=%d goals=%d", def.ID, def.GridSize, len(def.XY)+len(def.XZ))
	return e, nil
}

// persistSnapshot writes snap under puzzleDir/snapshots, indexes it and
// archives it when solved.
func persistSnapshot(puzzleDir string, snap snapshot.SnapshotV1, idx *indexdb.SQLiteIndex, logger *log.Logger) (string, error) {
	path := filepath.Join(puzzleDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Round))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	idx.RecordSnapshot(path, snap)
	if dst, ok, err := archive.ArchiveSolvedSnapshot(puzzleDir, path, snap); err != nil {
		logger.Printf("archive: %v", err)
	} else if ok {
		logger.Printf("archived solved round=%d path=%s", snap.Header.Round, dst)
	}
	return path, nil
}
