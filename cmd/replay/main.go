package main

import (
	"flag"
	"fmt"
	"os"

	persistlog "shadowbox.ai/internal/persistence/log"
	"shadowbox.ai/internal/persistence/snapshot"
	"shadowbox.ai/internal/sim/puzzle"
)

func main() {
	var (
		snapPath  = flag.String("snapshot", "", "path to .snap.zst (optional; empty replays from round 0)")
		roundsDir = flag.String("rounds", "", "dir containing rounds-*.jsonl.zst")
		puzzleID  = flag.String("puzzle", "", "puzzle id when replaying without a snapshot")
		gridSize  = flag.Int("grid", 5, "grid size when replaying without a snapshot")
		toRound   = flag.Uint64("to_round", 0, "stop at round (inclusive, optional)")
	)
	flag.Parse()

	if *snapPath == "" && *roundsDir == "" {
		fmt.Fprintln(os.Stderr, "missing -snapshot or -rounds")
		os.Exit(2)
	}

	var e *puzzle.Engine
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d puzzle=%s round=%d grid=%d voxels=%d goals_xy=%d goals_xz=%d solved=%v\n",
			snap.Header.Version, snap.Header.PuzzleID, snap.Header.Round, snap.GridSize,
			len(snap.Voxels), len(snap.GoalXY), len(snap.GoalXZ), snap.Solved)
		e, err = puzzle.FromSnapshot(snap)
		if err != nil {
			fmt.Fprintln(os.Stderr, "import snapshot:", err)
			os.Exit(1)
		}
	} else {
		var err error
		e, err = puzzle.New(puzzle.Config{ID: *puzzleID, GridSize: *gridSize})
		if err != nil {
			fmt.Fprintln(os.Stderr, "puzzle:", err)
			os.Exit(1)
		}
	}
	if *roundsDir == "" {
		return
	}

	files, err := persistlog.ListRoundFiles(*roundsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list rounds:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no round files found in", *roundsDir)
		os.Exit(1)
	}

	startRound := e.Round()
	checked, err := persistlog.ReplayDir(*roundsDir, e, *toRound)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d rounds (from round=%d) solved=%v digest=%s\n", checked, startRound, e.Solved(), e.Digest())
}
