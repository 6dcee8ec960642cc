package log

import (
	"errors"
	"fmt"
	"io/fs"

	"shadowbox.ai/internal/sim/puzzle"
)

var errStopReplay = errors.New("stop replay")

// ReplayDir re-applies every logged round after e.Round() from the round
// files in dir, checking each round's digest and solved bit. toRound > 0
// stops after that round. A missing dir replays nothing.
func ReplayDir(dir string, e *puzzle.Engine, toRound uint64) (replayed uint64, err error) {
	files, err := ListRoundFiles(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for _, path := range files {
		err := ReadRounds(path, func(entry puzzle.RoundLogEntry) error {
			if entry.Round <= e.Round() {
				return nil
			}
			if toRound != 0 && entry.Round > toRound {
				return errStopReplay
			}
			if want := e.Round() + 1; entry.Round != want {
				return fmt.Errorf("round gap: want=%d got=%d", want, entry.Round)
			}
			res, err := e.Replay(entry)
			if err != nil {
				return fmt.Errorf("round %d: %w", entry.Round, err)
			}
			replayed++
			if res.Digest != entry.Digest {
				return fmt.Errorf("digest mismatch at round %d: got=%s want=%s", res.Round, res.Digest, entry.Digest)
			}
			if res.Solved != entry.Solved {
				return fmt.Errorf("solved mismatch at round %d: got=%v want=%v", res.Round, res.Solved, entry.Solved)
			}
			return nil
		})
		if errors.Is(err, errStopReplay) {
			return replayed, nil
		}
		if err != nil {
			return replayed, err
		}
	}
	return replayed, nil
}
