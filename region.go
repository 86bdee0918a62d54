package anvil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
	"github.com/willf/bitset"
)

const (
	regionSlots   = 1024
	sectorSize    = 4096
	headerSectors = 2 // location table + timestamp table
)

const (
	compressionGzip byte = 1
	compressionZlib byte = 2
)

// Region is one .mca container: 1024 optional chunk slots addressed by
// (x mod 32, z mod 32). A slot read from a file keeps its compressed frame
// until it is decoded or re-serialized; a slot being built holds its
// ChunkBuilder. Not safe for concurrent mutation.
type Region struct {
	// X, Z are the region's coordinates in region units (512 blocks). They
	// anchor the global-coordinate helpers; OpenRegion leaves them at the
	// values parsed from the file name, or zero when unknown.
	X, Z int32

	slots [regionSlots]regionSlot
}

type regionSlot struct {
	frame   []byte // raw sector run from the file, including frame header
	builder *ChunkBuilder
}

func (s *regionSlot) present() bool {
	return s.frame != nil || s.builder != nil
}

func slotIndex(x, z int) int {
	return floorMod(z, 32)*32 + floorMod(x, 32)
}

// NewRegion returns an empty region at the given region coordinates, ready
// for AddChunk and SetBlock.
func NewRegion(x, z int32) *Region {
	return &Region{X: x, Z: z}
}

// OpenRegion parses a region file's bytes from r. The whole file is read;
// present slots keep their compressed payloads for lazy decoding.
func OpenRegion(r io.Reader) (*Region, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("anvil: reading region: %w", err)
	}
	if len(data) < headerSectors*sectorSize {
		return nil, fmt.Errorf("anvil: region file too short: %d bytes", len(data))
	}

	var sectorTable [regionSlots]int32
	if err := binary.Read(bytes.NewReader(data[:sectorSize]), binary.BigEndian, sectorTable[:]); err != nil {
		return nil, fmt.Errorf("anvil: reading region header: %w", err)
	}

	region := &Region{}
	for i, entry := range sectorTable {
		offset := int(entry >> 8)
		sectors := int(entry & 0xff)
		if offset == 0 && sectors == 0 {
			continue // chunk not generated
		}
		start := offset * sectorSize
		end := start + sectors*sectorSize
		if offset < headerSectors || end > len(data) {
			return nil, fmt.Errorf("%w: slot %d points at sectors %d+%d", ErrInvalidChunkLength, i, offset, sectors)
		}
		region.slots[i].frame = data[start:end]
	}
	return region, nil
}

// OpenRegionFile opens path and parses it. A file named in the customary
// r.X.Z.mca pattern also fixes the region's coordinates.
func OpenRegionFile(path string) (*Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	region, err := OpenRegion(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var rx, rz int32
	if n, _ := fmt.Sscanf(filepath.Base(path), "r.%d.%d.mca", &rx, &rz); n == 2 {
		region.X, region.Z = rx, rz
	}
	return region, nil
}

// HasChunk reports whether the slot for the given chunk coordinates is
// populated.
func (r *Region) HasChunk(x, z int) bool {
	return r.slots[slotIndex(x, z)].present()
}

// Populated returns a bitmap of the region's occupied slots, indexed
// z*32+x.
func (r *Region) Populated() *bitset.BitSet {
	set := bitset.New(regionSlots)
	for i := range r.slots {
		if r.slots[i].present() {
			set.Set(uint(i))
		}
	}
	return set
}

// ChunkData returns the decompressed chunk payload for the given chunk
// coordinates. An empty slot returns ErrNoChunk; a gzip frame (or any
// compression type other than zlib) returns ErrInvalidCompression.
func (r *Region) ChunkData(x, z int) ([]byte, error) {
	s := &r.slots[slotIndex(x, z)]
	if s.builder != nil {
		return s.builder.MarshalNBT()
	}
	if s.frame == nil {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrNoChunk, x, z)
	}

	compressed, err := framePayload(s.frame)
	if err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("anvil: decompressing chunk (%d, %d): %w", x, z, err)
	}
	defer zr.Close()
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("anvil: decompressing chunk (%d, %d): %w", x, z, err)
	}
	return payload, nil
}

// framePayload validates a frame header and slices out the compressed bytes.
func framePayload(frame []byte) ([]byte, error) {
	if len(frame) < 5 {
		return nil, ErrInvalidChunkLength
	}
	length := binary.BigEndian.Uint32(frame[:4])
	if length == 0 || int(length) > len(frame)-4 {
		return nil, ErrInvalidChunkLength
	}
	if frame[4] != compressionZlib {
		return nil, fmt.Errorf("%w: type %d", ErrInvalidCompression, frame[4])
	}
	return frame[5 : 4+length], nil
}

// Chunk decodes the chunk at the given chunk coordinates.
func (r *Region) Chunk(x, z int) (*Chunk, error) {
	data, err := r.ChunkData(x, z)
	if err != nil {
		return nil, err
	}
	return DecodeChunk(data)
}

// Builder returns the chunk builder occupying the slot for the given chunk
// coordinates, if the slot is being built rather than file-backed.
func (r *Region) Builder(x, z int) (*ChunkBuilder, bool) {
	cb := r.slots[slotIndex(x, z)].builder
	return cb, cb != nil
}

// AddChunk places a chunk builder in its slot, overwriting whatever the
// slot held.
func (r *Region) AddChunk(cb *ChunkBuilder) error {
	if !r.InsideChunk(int(cb.X), int(cb.Z)) {
		return fmt.Errorf("%w: chunk (%d, %d) does not belong to region (%d, %d)", ErrOutOfBounds, cb.X, cb.Z, r.X, r.Z)
	}
	r.slots[slotIndex(int(cb.X), int(cb.Z))] = regionSlot{builder: cb}
	return nil
}

// Inside reports whether global block coordinates fall inside this region.
func (r *Region) Inside(x, y, z int) bool {
	lo, hi := DataVersion(WriteDataVersion).BlockYRange()
	return floorDiv(x, 512) == int(r.X) && floorDiv(z, 512) == int(r.Z) && y >= lo && y <= hi
}

// InsideChunk reports whether chunk coordinates fall inside this region.
func (r *Region) InsideChunk(x, z int) bool {
	return floorDiv(x, 32) == int(r.X) && floorDiv(z, 32) == int(r.Z)
}

// SetBlock sets a block at global coordinates, creating the chunk builder
// for its slot on demand. A slot holding undecoded file data cannot be
// edited.
func (r *Region) SetBlock(b Block, x, y, z int) error {
	if !r.Inside(x, y, z) {
		return fmt.Errorf("%w: (%d, %d, %d) not inside region (%d, %d)", ErrOutOfBounds, x, y, z, r.X, r.Z)
	}
	cx, cz := floorDiv(x, 16), floorDiv(z, 16)
	s := &r.slots[slotIndex(cx, cz)]
	if s.builder == nil {
		if s.frame != nil {
			return fmt.Errorf("anvil: chunk (%d, %d) holds undecoded data and cannot be edited", cx, cz)
		}
		s.builder = NewChunkBuilder(int32(cx), int32(cz))
	}
	return s.builder.SetBlock(b, floorMod(x, 16), y, floorMod(z, 16))
}

// SetIfInside sets the block only when the coordinates are inside this
// region.
func (r *Region) SetIfInside(b Block, x, y, z int) error {
	if r.Inside(x, y, z) {
		return r.SetBlock(b, x, y, z)
	}
	return nil
}

// Fill sets every block in the box spanned by the two corners, inclusive.
// With ignoreOutside, coordinates beyond the region are skipped instead of
// failing.
func (r *Region) Fill(b Block, x1, y1, z1, x2, y2, z2 int, ignoreOutside bool) error {
	if !ignoreOutside {
		if !r.Inside(x1, y1, z1) || !r.Inside(x2, y2, z2) {
			return fmt.Errorf("%w: fill corners outside region (%d, %d)", ErrOutOfBounds, r.X, r.Z)
		}
	}
	step := func(a, b int) int {
		if b < a {
			return -1
		}
		return 1
	}
	for y := y1; ; y += step(y1, y2) {
		for z := z1; ; z += step(z1, z2) {
			for x := x1; ; x += step(x1, x2) {
				var err error
				if ignoreOutside {
					err = r.SetIfInside(b, x, y, z)
				} else {
					err = r.SetBlock(b, x, y, z)
				}
				if err != nil {
					return err
				}
				if x == x2 {
					break
				}
			}
			if z == z2 {
				break
			}
		}
		if y == y2 {
			break
		}
	}
	return nil
}

// compressedPayload produces the slot's zlib bytes for serialization:
// builders are marshalled and deflated, file-backed slots pass their
// payload through untouched.
func (s *regionSlot) compressedPayload() ([]byte, error) {
	if s.builder != nil {
		payload, err := s.builder.MarshalNBT()
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		zw := zlib.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	if s.frame == nil {
		return nil, nil
	}
	return framePayload(s.frame)
}

// WriteTo serializes the region: location and timestamp headers, then each
// present slot's frame padded to whole sectors. The produced byte count is
// always a multiple of the sector size.
func (r *Region) WriteTo(w io.Writer) (int64, error) {
	var payload bytes.Buffer
	var locations [regionSlots]uint32

	for i := range r.slots {
		compressed, err := r.slots[i].compressedPayload()
		if err != nil {
			return 0, err
		}
		if compressed == nil {
			continue
		}

		frameLen := 4 + 1 + len(compressed)
		sectors := (frameLen + sectorSize - 1) / sectorSize
		if sectors > 0xff {
			return 0, fmt.Errorf("anvil: chunk in slot %d spans %d sectors, limit is 255", i, sectors)
		}
		offset := payload.Len()/sectorSize + headerSectors
		locations[i] = uint32(offset)<<8 | uint32(sectors)

		var lengthField [4]byte
		binary.BigEndian.PutUint32(lengthField[:], uint32(len(compressed)+1))
		payload.Write(lengthField[:])
		payload.WriteByte(compressionZlib)
		payload.Write(compressed)
		payload.Write(make([]byte, sectors*sectorSize-frameLen))
	}

	var out bytes.Buffer
	out.Grow(headerSectors*sectorSize + payload.Len())
	if err := binary.Write(&out, binary.BigEndian, locations[:]); err != nil {
		return 0, err
	}
	out.Write(make([]byte, sectorSize)) // timestamps, always zero
	payload.WriteTo(&out)

	if out.Len()%sectorSize != 0 {
		return 0, fmt.Errorf("anvil: region size %d is not sector aligned", out.Len())
	}
	return out.WriteTo(w)
}

// Save writes the region to a file.
func (r *Region) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
