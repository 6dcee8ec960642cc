package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"shadowbox.ai/internal/sim/puzzle"
	"shadowbox.ai/internal/sim/shadow"
)

// PuzzleCatalog is the set of goal fixtures a server can load. Puzzles
// reach an engine only as ordinary goal updates.
type PuzzleCatalog struct {
	Puzzles []PuzzleDef          `yaml:"puzzles"`
	ByID    map[string]PuzzleDef `yaml:"-"`
	Digest  string               `yaml:"-"`
}

type PuzzleDef struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	GridSize int      `yaml:"grid_size"`
	XY       [][2]int `yaml:"xy"`
	XZ       [][2]int `yaml:"xz"`
}

// Load reads puzzles.yaml from configDir.
func Load(configDir string) (*PuzzleCatalog, error) {
	return LoadFile(filepath.Join(configDir, "puzzles.yaml"))
}

func LoadFile(path string) (*PuzzleCatalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c PuzzleCatalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("puzzles.yaml: %w", err)
	}
	c.Digest = sha256Hex(raw)
	c.ByID = make(map[string]PuzzleDef, len(c.Puzzles))
	for _, p := range c.Puzzles {
		if p.ID == "" {
			return nil, fmt.Errorf("puzzles.yaml: empty id")
		}
		if _, dup := c.ByID[p.ID]; dup {
			return nil, fmt.Errorf("puzzles.yaml: duplicate id %q", p.ID)
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("puzzles.yaml: puzzle %s: %w", p.ID, err)
		}
		c.ByID[p.ID] = p
	}
	return &c, nil
}

// IDs returns puzzle ids in sorted order.
func (c *PuzzleCatalog) IDs() []string {
	ids := make([]string, 0, len(c.ByID))
	for id := range c.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p PuzzleDef) validate() error {
	if p.GridSize <= 0 {
		return fmt.Errorf("grid_size must be positive")
	}
	g := shadow.Grid{N: p.GridSize}
	for _, sq := range p.XY {
		if err := g.CheckSquare(shadow.Square{A: sq[0], B: sq[1]}); err != nil {
			return fmt.Errorf("xy: %w", err)
		}
	}
	for _, sq := range p.XZ {
		if err := g.CheckSquare(shadow.Square{A: sq[0], B: sq[1]}); err != nil {
			return fmt.Errorf("xz: %w", err)
		}
	}
	return nil
}

// GoalUpdates returns the insertions that install the puzzle's goals, XY
// first, in file order.
func (p PuzzleDef) GoalUpdates() []puzzle.GoalUpdate {
	out := make([]puzzle.GoalUpdate, 0, len(p.XY)+len(p.XZ))
	for _, sq := range p.XY {
		out = append(out, puzzle.GoalUpdate{Axis: shadow.XY, Square: shadow.Square{A: sq[0], B: sq[1]}, Sign: 1})
	}
	for _, sq := range p.XZ {
		out = append(out, puzzle.GoalUpdate{Axis: shadow.XZ, Square: shadow.Square{A: sq[0], B: sq[1]}, Sign: 1})
	}
	return out
}

func (p PuzzleDef) Config() puzzle.Config {
	return puzzle.Config{ID: p.ID, GridSize: p.GridSize}
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
