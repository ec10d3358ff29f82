package tumor

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
)

// Digest hashes the full simulation state. Two runs with equal digests at the same tick hold
// identical lattices.
func (s *Simulation) Digest() string {
	h := sha256.New()
	var tmp [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}

	writeU64(uint64(s.state.Step))
	writeU64(uint64(s.state.RemainingDoses))
	writeU64(uint64(s.grid.Width()))
	writeU64(uint64(s.grid.Height()))
	for i := range s.cells {
		sl := &s.cells[i]
		writeU64(uint64(sl.id))
		h.Write([]byte{byte(sl.phenotype)})
		binary.LittleEndian.PutUint32(tmp[:4], sl.gen)
		h.Write(tmp[:4])
		writeU64(math.Float64bits(sl.c))
	}
	return hex.EncodeToString(h.Sum(nil))
}
