package anvil

import "fmt"

// BlockStream yields a chunk's blocks in flat index order (y*256 + z*16 + x
// within each section, sections in ascending Y). It owns its cursor: one
// word of packed data is buffered at a time, so a full sweep costs O(1)
// amortized per voxel instead of recomputing the word offset for each one.
//
// A stream is forward-only and cannot be restarted; create a new one to scan
// again. Streaming never affects random-access Block lookups.
type BlockStream struct {
	chunk *Chunk

	secY  int // current section Y index
	maxY  int // last section to visit, inclusive
	voxel int // next in-section voxel index

	sec  *Section
	idx  *indexStream // nil for uniform-air and pre-flattening sections
	err  error
	done bool
}

// StreamBlocks streams every voxel of the chunk starting at the given flat
// index into the chunk's full section range (0 is the bottom voxel of the
// lowest section the version allows).
func (c *Chunk) StreamBlocks(start int) (*BlockStream, error) {
	lo, hi := c.Version.SectionRange()
	total := (hi - lo + 1) * sectionVolume
	if start < 0 || start > total {
		return nil, fmt.Errorf("%w: stream start %d not in 0..%d", ErrOutOfBounds, start, total)
	}
	s := &BlockStream{
		chunk: c,
		secY:  lo + start/sectionVolume,
		maxY:  hi,
		voxel: start % sectionVolume,
		done:  start == total,
	}
	if !s.done {
		s.enterSection()
	}
	return s, nil
}

// StreamSectionBlocks streams a single section's voxels from the given
// in-section index.
func (c *Chunk) StreamSectionBlocks(y, start int) (*BlockStream, error) {
	lo, hi := c.Version.SectionRange()
	if y < lo || y > hi {
		return nil, fmt.Errorf("%w: section index %d not in %d..%d", ErrOutOfBounds, y, lo, hi)
	}
	if start < 0 || start > sectionVolume {
		return nil, fmt.Errorf("%w: stream start %d not in 0..%d", ErrOutOfBounds, start, sectionVolume)
	}
	s := &BlockStream{
		chunk: c,
		secY:  y,
		maxY:  y,
		voxel: start,
		done:  start == sectionVolume,
	}
	if !s.done {
		s.enterSection()
	}
	return s, nil
}

func (s *BlockStream) enterSection() {
	s.sec = s.chunk.sections[int8(s.secY)]
	s.idx = nil
	if s.sec != nil && s.chunk.layout != LayoutPreFlattening &&
		len(s.sec.palette) > 0 && len(s.sec.states) > 0 {
		width := paletteBits(len(s.sec.palette))
		s.idx = newIndexStream(s.sec.states, width, s.voxel, s.chunk.Version.PackedLayout())
	}
}

// Next returns the next block. It returns false when the stream is
// exhausted or an error occurred; check Err afterwards.
func (s *BlockStream) Next() (Block, bool) {
	for {
		if s.done || s.err != nil {
			return Block{}, false
		}
		if s.voxel == sectionVolume {
			if s.secY == s.maxY {
				s.done = true
				return Block{}, false
			}
			s.secY++
			s.voxel = 0
			s.enterSection()
			continue
		}

		var b Block
		switch {
		case s.chunk.layout == LayoutPreFlattening:
			var err error
			if b, err = legacyBlockAt(s.sec, s.voxel).Block(); err != nil {
				s.err = err
				return Block{}, false
			}
		case s.idx == nil:
			b = Air()
		default:
			pi := int(s.idx.next())
			if pi >= len(s.sec.palette) {
				s.err = fmt.Errorf("anvil: palette index %d out of range for palette of %d", pi, len(s.sec.palette))
				return Block{}, false
			}
			b = s.sec.palette[pi]
		}
		s.voxel++
		return b, true
	}
}

// Err returns the error that stopped the stream, if any.
func (s *BlockStream) Err() error {
	return s.err
}
