package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"shadowbox.ai/internal/persistence/snapshot"
)

type SolvedArchiveMeta struct {
	PuzzleID  string `json:"puzzle_id"`
	Round     uint64 `json:"round"`
	GridSize  int    `json:"grid_size"`
	Voxels    int    `json:"voxels"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
}

// ArchiveSolvedSnapshot copies a snapshot of a solved puzzle into
// `puzzleDir/archives/solved_<round>/` next to a meta.json. Unsolved
// snapshots are left alone and report archived=false.
func ArchiveSolvedSnapshot(puzzleDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if !snap.Solved {
		return "", false, nil
	}

	archiveDir := filepath.Join(puzzleDir, "archives", fmt.Sprintf("solved_%08d", snap.Header.Round))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := SolvedArchiveMeta{
		PuzzleID:  snap.Header.PuzzleID,
		Round:     snap.Header.Round,
		GridSize:  snap.GridSize,
		Voxels:    len(snap.Voxels),
		Digest:    snap.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return dst, true, err
	}
	if err := os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644); err != nil {
		return dst, true, err
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
