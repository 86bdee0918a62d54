package anvil

import "math/bits"

// PackedLayout selects how fixed-width palette indices are laid out inside an
// array of 64-bit words.
type PackedLayout uint8

const (
	// PackStretched packs entries contiguously; an entry may have its low
	// bits at the top of one word and its high bits at the bottom of the
	// next. Used for block states before 20w17a.
	PackStretched PackedLayout = iota

	// PackAligned packs 64/bits whole entries per word with the leftover
	// high bits zero. Used for block states since 20w17a and for biomes
	// always.
	PackAligned
)

// paletteBits is the index width for a block palette of n entries. Block
// states never go below 4 bits.
func paletteBits(n int) int {
	if b := bits.Len(uint(n - 1)); b > 4 {
		return b
	}
	return 4
}

// biomeBits is the index width for a biome palette of n entries. Unlike
// block states there is no 4-bit floor; a single-entry palette needs no
// data array at all.
func biomeBits(n int) int {
	return bits.Len(uint(n - 1))
}

// packedLen returns how many words PackIndices will produce.
func packedLen(n, width int, layout PackedLayout) int {
	if n == 0 || width == 0 {
		return 0
	}
	if layout == PackAligned {
		perWord := 64 / width
		return (n + perWord - 1) / perWord
	}
	return (n*width + 63) / 64
}

// PackIndices packs n unsigned indices of the given bit width into 64-bit
// words. The width must be at least 1 and every index must fit in it.
func PackIndices(indices []uint32, width int, layout PackedLayout) []uint64 {
	if len(indices) == 0 {
		return nil
	}
	words := make([]uint64, 0, packedLen(len(indices), width, layout))

	if layout == PackAligned {
		perWord := 64 / width
		var cur uint64
		inWord := 0
		for _, idx := range indices {
			cur |= uint64(idx) << (inWord * width)
			inWord++
			if inWord == perWord {
				words = append(words, cur)
				cur, inWord = 0, 0
			}
		}
		if inWord > 0 {
			words = append(words, cur)
		}
		return words
	}

	var cur uint64
	curLen := 0
	for _, idx := range indices {
		if curLen+width > 64 {
			// Split the entry across the word boundary: its low bits top off
			// the current word, the rest seeds the next one.
			low := 64 - curLen
			words = append(words, cur|uint64(idx)&(1<<low-1)<<curLen)
			cur = uint64(idx) >> low
			curLen = width - low
		} else {
			cur |= uint64(idx) << curLen
			curLen += width
		}
	}
	return append(words, cur)
}

// UnpackIndex extracts entry i from a packed word array. Word values are
// treated as unsigned regardless of how they were stored on disk.
func UnpackIndex(words []uint64, i, width int, layout PackedLayout) uint32 {
	mask := uint64(1)<<width - 1
	if layout == PackAligned {
		perWord := 64 / width
		return uint32(words[i/perWord] >> (i % perWord * width) & mask)
	}
	bitPos := i * width
	word, off := bitPos/64, bitPos%64
	v := words[word] >> off
	if rem := 64 - off; rem < width {
		// The high bits of the entry are the low bits of the next word.
		v |= words[word+1] << rem
	}
	return uint32(v & mask)
}

// indexStream is a forward-only cursor over a packed word array. It keeps a
// sliding window of bits buffered from the last word read, refilling one
// word at a time, so a full sweep costs O(1) amortized per entry. It cannot
// be rewound; build a new stream to restart.
type indexStream struct {
	words  []uint64
	width  int
	mask   uint64
	layout PackedLayout

	word   int    // next word to load
	cur    uint64 // buffered bits
	curLen int    // how many of cur's low bits are valid
}

// newIndexStream positions a stream so its first next() returns entry start.
func newIndexStream(words []uint64, width, start int, layout PackedLayout) *indexStream {
	s := &indexStream{
		words:  words,
		width:  width,
		mask:   uint64(1)<<width - 1,
		layout: layout,
	}
	if layout == PackAligned {
		perWord := 64 / width
		s.word = start / perWord
		if s.word < len(words) {
			used := start % perWord * width
			s.cur = words[s.word] >> used
			s.curLen = perWord*width - used
			s.word++
		}
		return s
	}
	bitPos := start * width
	s.word = bitPos / 64
	if s.word < len(words) {
		off := bitPos % 64
		s.cur = words[s.word] >> off
		s.curLen = 64 - off
		s.word++
	}
	return s
}

func (s *indexStream) next() uint32 {
	if s.curLen >= s.width {
		v := uint32(s.cur & s.mask)
		s.cur >>= s.width
		s.curLen -= s.width
		return v
	}
	if s.layout == PackAligned {
		// Leftover high bits of the previous word are padding; the entry
		// starts fresh in the next word.
		s.cur = s.words[s.word]
		s.word++
		v := uint32(s.cur & s.mask)
		s.cur >>= s.width
		s.curLen = 64/s.width*s.width - s.width
		return v
	}
	low := s.cur
	lowLen := s.curLen
	s.cur = s.words[s.word]
	s.word++
	v := uint32((low | s.cur<<lowLen) & s.mask)
	take := s.width - lowLen
	s.cur >>= take
	s.curLen = 64 - take
	return v
}
