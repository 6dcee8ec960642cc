package puzzle

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Digest fingerprints the committed voxel set and both goals. It is updated
// incrementally by Advance and is independent of the order updates arrived in.
func (e *Engine) Digest() string {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], e.voxels.Sum())
	binary.LittleEndian.PutUint64(buf[8:], e.goalDg[0].Sum())
	binary.LittleEndian.PutUint64(buf[16:], e.goalDg[1].Sum())
	return fmt.Sprintf("%016x", xxhash.Sum64(buf[:]))
}
