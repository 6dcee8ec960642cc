package catalogs

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/shadow"
)

func configsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "configs")
}

func TestLoad_RepoPuzzlesAreSatisfiable(t *testing.T) {
	c, err := Load(configsDir(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Digest) != 64 {
		t.Fatalf("unexpected digest %q", c.Digest)
	}
	if len(c.IDs()) == 0 {
		t.Fatalf("no puzzles")
	}
	for _, id := range c.IDs() {
		p := c.ByID[id]
		e, err := puzzle.New(p.Config())
		if err != nil {
			t.Fatalf("%s: New: %v", id, err)
		}
		if _, err := e.SubmitGoalBatch(p.GoalUpdates()); err != nil {
			t.Fatalf("%s: goals: %v", id, err)
		}
		res := e.Advance()
		if !res.Satisfiable || res.Solved {
			t.Fatalf("%s: unexpected round %+v", id, res)
		}

		// The minimal solution solves the puzzle.
		sol, err := e.ComputeMinimal()
		if err != nil {
			t.Fatalf("%s: minimal: %v", id, err)
		}
		sol.Each(func(v shadow.Voxel, _ int64) {
			if err := e.SubmitVoxelDelta(v, 1); err != nil {
				t.Fatalf("%s: voxel %v: %v", id, v, err)
			}
		})
		if !e.Advance().Solved {
			t.Fatalf("%s: minimal solution did not solve", id)
		}
	}
}

func TestLoadFile_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty id":     "puzzles:\n  - grid_size: 3\n",
		"duplicate id": "puzzles:\n  - {id: a, grid_size: 3}\n  - {id: a, grid_size: 3}\n",
		"bad grid":     "puzzles:\n  - {id: a, grid_size: 0}\n",
		"out of grid":  "puzzles:\n  - {id: a, grid_size: 2, xy: [[0, 2]]}\n",
		"bad yaml":     "puzzles: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "puzzles.yaml")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestGoalUpdates_Order(t *testing.T) {
	p := PuzzleDef{ID: "p", GridSize: 3, XY: [][2]int{{0, 1}}, XZ: [][2]int{{0, 2}, {1, 1}}}
	got := p.GoalUpdates()
	if len(got) != 3 || got[0].Axis != shadow.XY || got[1].Axis != shadow.XZ || got[2].Square != (shadow.Square{A: 1, B: 1}) {
		t.Fatalf("unexpected updates: %+v", got)
	}
}
