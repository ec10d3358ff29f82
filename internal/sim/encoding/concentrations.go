package encoding

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeConcentrations packs values as little-endian float32 and base64-encodes them.
// Precision is reduced to float32; observers only render these.
func EncodeConcentrations(cs []float64) string {
	raw := make([]byte, 4*len(cs))
	for i, c := range cs {
		binary.LittleEndian.PutUint32(raw[4*i:], math.Float32bits(float32(c)))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func DecodeConcentrations(b64 string) ([]float64, error) {
	raw, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("concentration payload length %d not a multiple of 4", len(raw))
	}
	out := make([]float64, len(raw)/4)
	for i := range out {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:])))
	}
	return out, nil
}
