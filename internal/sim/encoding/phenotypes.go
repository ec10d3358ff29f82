package encoding

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"

	"github.com/kmarszal/mesa-tumor-model/internal/sim/tumor"
)

// EncodePhenotypes encodes a row-major phenotype grid as base64(varint pairs).
// The pairs are (phenotype, run_len) repeated.
func EncodePhenotypes(cells []tumor.Phenotype) string {
	var buf bytes.Buffer
	var tmp [binary.MaxVarintLen64]byte

	i := 0
	for i < len(cells) {
		p := cells[i]
		run := 1
		for j := i + 1; j < len(cells) && cells[j] == p; j++ {
			run++
		}

		n := binary.PutUvarint(tmp[:], uint64(p))
		buf.Write(tmp[:n])
		n = binary.PutUvarint(tmp[:], uint64(run))
		buf.Write(tmp[:n])

		i += run
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

// MaxDecodedCells caps the cell count DecodePhenotypes accepts when no expected count is given.
const MaxDecodedCells = 1 << 24

// DecodePhenotypes reverses EncodePhenotypes. want, when > 0, is the expected cell count;
// otherwise the grid may not exceed MaxDecodedCells.
func DecodePhenotypes(b64 string, want int) ([]tumor.Phenotype, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	limit := uint64(MaxDecodedCells)
	if want > 0 {
		limit = uint64(want)
	}
	out := make([]tumor.Phenotype, 0, max(want, 0))
	for i := 0; i < len(raw); {
		v, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		run, n := binary.Uvarint(raw[i:])
		if n <= 0 {
			return nil, fmt.Errorf("bad varint at %d", i)
		}
		i += n
		p := tumor.Phenotype(v)
		if v > 0xFF || !p.Valid() {
			return nil, fmt.Errorf("unknown phenotype %d", v)
		}
		if run == 0 {
			return nil, fmt.Errorf("empty run at %d", i)
		}
		if run > limit || uint64(len(out))+run > limit {
			return nil, fmt.Errorf("grid overflows %d cells", limit)
		}
		for k := uint64(0); k < run; k++ {
			out = append(out, p)
		}
	}
	if want > 0 && len(out) != want {
		return nil, fmt.Errorf("grid has %d cells, want %d", len(out), want)
	}
	return out, nil
}
