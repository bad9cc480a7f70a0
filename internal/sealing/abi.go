package sealing

import (
	"encoding/binary"
	"fmt"

	"github.com/dmitrijs2005/sealkeeper/internal/common"
)

// WordSize is the width of one encoded clear value.
const WordSize = 32

// EncodeClearValues lays values out as consecutive 32-byte big-endian
// two's-complement words.
func EncodeClearValues(values []int64) []byte {
	out := make([]byte, WordSize*len(values))
	for i, v := range values {
		word := out[i*WordSize : (i+1)*WordSize]
		if v < 0 {
			for j := 0; j < WordSize-8; j++ {
				word[j] = 0xff
			}
		}
		binary.BigEndian.PutUint64(word[WordSize-8:], uint64(v))
	}
	return out
}

// DecodeClearValues reverses EncodeClearValues. Words whose value does not
// fit in an int64 are rejected.
func DecodeClearValues(b []byte) ([]int64, error) {
	if len(b)%WordSize != 0 {
		return nil, fmt.Errorf("%w: clear values length %d is not a multiple of %d", common.ErrInvalidPayload, len(b), WordSize)
	}

	out := make([]int64, 0, len(b)/WordSize)
	for off := 0; off < len(b); off += WordSize {
		word := b[off : off+WordSize]
		low := word[WordSize-8:]

		var pad byte
		if low[0]&0x80 != 0 {
			pad = 0xff
		}
		for _, c := range word[:WordSize-8] {
			if c != pad {
				return nil, fmt.Errorf("%w: word %d overflows int64", common.ErrInvalidPayload, off/WordSize)
			}
		}
		out = append(out, int64(binary.BigEndian.Uint64(low)))
	}
	return out, nil
}
