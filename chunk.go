package anvil

import (
	"fmt"

	"github.com/Tnze/go-mc/nbt"
)

const (
	sectionVolume = 16 * 16 * 16
	biomeCells    = 4 * 4 * 4
)

// Tag shapes for the chunk tree. One struct covers every generation: absent
// keys simply stay zero, and the layout decides which fields are consulted.

type chunkTag struct {
	DataVersion   int32            `nbt:"DataVersion"`
	XPos          int32            `nbt:"xPos"`
	ZPos          int32            `nbt:"zPos"`
	Sections      []sectionTag     `nbt:"sections"`
	BlockEntities []nbt.RawMessage `nbt:"block_entities"`
	Level         nbt.RawMessage   `nbt:"Level"`
}

type levelTag struct {
	XPos         int32            `nbt:"xPos"`
	ZPos         int32            `nbt:"zPos"`
	Sections     []sectionTag     `nbt:"Sections"`
	TileEntities []nbt.RawMessage `nbt:"TileEntities"`
	Biomes       nbt.RawMessage   `nbt:"Biomes"`
}

type sectionTag struct {
	Y int8 `nbt:"Y"`

	// Pre-flattening: parallel numeric arrays.
	Blocks []byte `nbt:"Blocks"`
	Add    []byte `nbt:"Add"`
	Data   []byte `nbt:"Data"`

	// Flattened, before 21w43a.
	Palette     []paletteTag `nbt:"Palette"`
	BlockStates []uint64     `nbt:"BlockStates"`

	// 21w43a and later.
	States blockStatesTag `nbt:"block_states"`
	Biomes biomesTag      `nbt:"biomes"`
}

type blockStatesTag struct {
	Palette []paletteTag `nbt:"palette"`
	Data    []uint64     `nbt:"data"`
}

type biomesTag struct {
	Palette []string `nbt:"palette"`
	Data    []uint64 `nbt:"data"`
}

type paletteTag struct {
	Name       string         `nbt:"Name"`
	Properties nbt.RawMessage `nbt:"Properties"`
}

func (p paletteTag) block() (Block, error) {
	b := BlockFromName(p.Name)
	if p.Properties.Type == nbt.TagCompound {
		var props map[string]string
		if err := p.Properties.Unmarshal(&props); err != nil {
			return Block{}, fmt.Errorf("anvil: palette entry %s: %w", p.Name, err)
		}
		if len(props) > 0 {
			b.Properties = props
		}
	}
	return b, nil
}

// Section is one decoded 16x16x16 sub-volume of a chunk. Its packed fields
// are interpreted through the owning chunk's layout.
type Section struct {
	Y int8

	// Flattened layouts.
	palette []Block
	states  []uint64

	// Pre-flattening layout.
	blocks []byte
	add    []byte
	data   []byte

	// Paletted biomes (21w43a+).
	biomePalette []Biome
	biomeStates  []uint64
}

// Palette returns the section's block palette. Callers must not mutate it.
// It is nil for pre-flattening sections.
func (s *Section) Palette() []Block {
	return s.palette
}

// Chunk is a decoded 16x16-column vertical slice of the world. It owns its
// tag data exclusively; resolvers only read it.
type Chunk struct {
	X, Z    int32
	Version DataVersion

	// TileEntities holds the chunk's tile entity subtrees, kept opaque.
	TileEntities []nbt.RawMessage

	layout      Layout
	biomeLayout BiomeLayout
	sections    map[int8]*Section
	biomes      []int32 // chunk-level legacy biome array, widened
}

// DecodeChunk parses a decompressed chunk payload. The data version decides
// once which of the four layouts everything else dispatches on.
func DecodeChunk(data []byte) (*Chunk, error) {
	var tag chunkTag
	if err := nbt.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("anvil: decoding chunk: %w", err)
	}

	c := &Chunk{
		Version:  DataVersion(tag.DataVersion),
		sections: make(map[int8]*Section),
	}
	c.layout = c.Version.BlockLayout()
	c.biomeLayout = c.Version.BiomeLayout()

	var sections []sectionTag
	if c.layout == LayoutFlatTags {
		c.X, c.Z = tag.XPos, tag.ZPos
		c.TileEntities = tag.BlockEntities
		sections = tag.Sections
	} else {
		if tag.Level.Type != nbt.TagCompound {
			return nil, fmt.Errorf("anvil: decoding chunk: missing Level tag (data version %d)", tag.DataVersion)
		}
		var lvl levelTag
		if err := tag.Level.Unmarshal(&lvl); err != nil {
			return nil, fmt.Errorf("anvil: decoding chunk: %w", err)
		}
		c.X, c.Z = lvl.XPos, lvl.ZPos
		c.TileEntities = lvl.TileEntities
		sections = lvl.Sections

		biomes, err := decodeLegacyBiomes(lvl.Biomes)
		if err != nil {
			return nil, err
		}
		c.biomes = biomes
	}

	for i := range sections {
		sec, err := decodeSection(&sections[i], c.layout)
		if err != nil {
			return nil, err
		}
		c.sections[sec.Y] = sec
	}
	return c, nil
}

func decodeSection(st *sectionTag, layout Layout) (*Section, error) {
	s := &Section{Y: st.Y}
	switch layout {
	case LayoutPreFlattening:
		s.blocks, s.add, s.data = st.Blocks, st.Add, st.Data

	case LayoutStretched, LayoutAligned:
		pal, err := decodePalette(st.Palette)
		if err != nil {
			return nil, err
		}
		s.palette, s.states = pal, st.BlockStates

	case LayoutFlatTags:
		pal, err := decodePalette(st.States.Palette)
		if err != nil {
			return nil, err
		}
		s.palette, s.states = pal, st.States.Data
		if n := len(st.Biomes.Palette); n > 0 {
			s.biomePalette = make([]Biome, n)
			for i, name := range st.Biomes.Palette {
				s.biomePalette[i] = BiomeFromName(name)
			}
			s.biomeStates = st.Biomes.Data
		}
	}
	return s, nil
}

func decodePalette(tags []paletteTag) ([]Block, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	pal := make([]Block, len(tags))
	for i := range tags {
		b, err := tags[i].block()
		if err != nil {
			return nil, err
		}
		pal[i] = b
	}
	return pal, nil
}

// decodeLegacyBiomes accepts the two historic shapes of the Level.Biomes
// array: bytes (oldest) or ints.
func decodeLegacyBiomes(raw nbt.RawMessage) ([]int32, error) {
	switch raw.Type {
	case nbt.TagEnd:
		return nil, nil
	case nbt.TagByteArray:
		var b []byte
		if err := raw.Unmarshal(&b); err != nil {
			return nil, fmt.Errorf("anvil: decoding biomes: %w", err)
		}
		out := make([]int32, len(b))
		for i, v := range b {
			out[i] = int32(v)
		}
		return out, nil
	case nbt.TagIntArray:
		var v []int32
		if err := raw.Unmarshal(&v); err != nil {
			return nil, fmt.Errorf("anvil: decoding biomes: %w", err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("anvil: decoding biomes: unexpected tag type %d", raw.Type)
	}
}

// Section returns the section at the given Y index, or nil if the chunk does
// not store one (meaning it is entirely air). The index must be inside the
// version's section range.
func (c *Chunk) Section(y int) (*Section, error) {
	lo, hi := c.Version.SectionRange()
	if y < lo || y > hi {
		return nil, fmt.Errorf("%w: section index %d not in %d..%d", ErrOutOfBounds, y, lo, hi)
	}
	return c.sections[int8(y)], nil
}

// Palette returns the block palette of the section at the given Y index, or
// nil if the section is absent.
func (c *Chunk) Palette(y int) ([]Block, error) {
	sec, err := c.Section(y)
	if err != nil || sec == nil {
		return nil, err
	}
	return sec.palette, nil
}

// Sections returns the stored sections in ascending Y order.
func (c *Chunk) Sections() []*Section {
	lo, hi := c.Version.SectionRange()
	out := make([]*Section, 0, len(c.sections))
	for y := lo; y <= hi; y++ {
		if sec, ok := c.sections[int8(y)]; ok {
			out = append(out, sec)
		}
	}
	return out
}

func (c *Chunk) checkCoords(x, y, z int) error {
	if x < 0 || x > 15 || z < 0 || z > 15 {
		return fmt.Errorf("%w: x and z must be in 0..15, got (%d, %d)", ErrOutOfBounds, x, z)
	}
	lo, hi := c.Version.BlockYRange()
	if y < lo || y > hi {
		return fmt.Errorf("%w: y must be in %d..%d, got %d", ErrOutOfBounds, lo, hi, y)
	}
	return nil
}

// Block resolves the block at chunk-local x/z and global y. Missing sections
// and missing block state arrays resolve to air.
func (c *Chunk) Block(x, y, z int) (Block, error) {
	if err := c.checkCoords(x, y, z); err != nil {
		return Block{}, err
	}
	sec := c.sections[int8(floorDiv(y, 16))]
	idx := floorMod(y, 16)*256 + z*16 + x
	return c.blockAtIndex(sec, idx)
}

// OldBlock returns the raw numeric id and data value at the given
// coordinates without legacy name resolution. It only works on
// pre-flattening chunks.
func (c *Chunk) OldBlock(x, y, z int) (OldBlock, error) {
	if err := c.checkCoords(x, y, z); err != nil {
		return OldBlock{}, err
	}
	if c.layout != LayoutPreFlattening {
		return OldBlock{}, fmt.Errorf("anvil: chunk with data version %d stores named blocks", c.Version)
	}
	sec := c.sections[int8(floorDiv(y, 16))]
	idx := floorMod(y, 16)*256 + z*16 + x
	return legacyBlockAt(sec, idx), nil
}

func (c *Chunk) blockAtIndex(sec *Section, idx int) (Block, error) {
	if c.layout == LayoutPreFlattening {
		return legacyBlockAt(sec, idx).Block()
	}
	if sec == nil || len(sec.palette) == 0 || len(sec.states) == 0 {
		return Air(), nil
	}
	width := paletteBits(len(sec.palette))
	pi := int(UnpackIndex(sec.states, idx, width, c.Version.PackedLayout()))
	if pi >= len(sec.palette) {
		return Block{}, fmt.Errorf("anvil: palette index %d out of range for palette of %d", pi, len(sec.palette))
	}
	return sec.palette[pi], nil
}

// legacyBlockAt reads the pre-flattening parallel arrays. A missing section
// or missing Blocks array reads as numeric id 0 (air).
func legacyBlockAt(sec *Section, idx int) OldBlock {
	if sec == nil || len(sec.blocks) == 0 {
		return OldBlock{}
	}
	id := uint16(sec.blocks[idx]) | uint16(nibble(sec.add, idx))<<8
	return OldBlock{ID: id, Data: nibble(sec.data, idx)}
}

// nibble reads 4-bit entry idx from a packed array: even indices occupy the
// low half of a byte.
func nibble(arr []byte, idx int) uint8 {
	if len(arr) == 0 {
		return 0
	}
	b := arr[idx/2]
	if idx%2 == 0 {
		return b & 0xF
	}
	return b >> 4
}

// Biome resolves the biome at chunk-local x/z and global y, handling the
// column, quart and per-section paletted layouts. Positions the chunk has no
// biome data for resolve to the vanilla default.
func (c *Chunk) Biome(x, y, z int) (Biome, error) {
	if err := c.checkCoords(x, y, z); err != nil {
		return Biome{}, err
	}

	switch c.biomeLayout {
	case BiomeLayoutColumns:
		return c.legacyBiomeAt(z*16 + x)

	case BiomeLayoutQuarts:
		return c.legacyBiomeAt(y/4*16 + z/4*4 + x/4)

	default:
		sec := c.sections[int8(floorDiv(y, 16))]
		if sec == nil || len(sec.biomePalette) == 0 {
			return defaultBiome(), nil
		}
		width := biomeBits(len(sec.biomePalette))
		if width == 0 || len(sec.biomeStates) == 0 {
			// Monobiome section: a single palette entry needs no data array.
			return sec.biomePalette[0], nil
		}
		cell := floorMod(y, 16)/4*16 + z/4*4 + x/4
		pi := int(UnpackIndex(sec.biomeStates, cell, width, PackAligned))
		if pi >= len(sec.biomePalette) {
			return Biome{}, fmt.Errorf("anvil: biome palette index %d out of range for palette of %d", pi, len(sec.biomePalette))
		}
		return sec.biomePalette[pi], nil
	}
}

func (c *Chunk) legacyBiomeAt(idx int) (Biome, error) {
	if idx >= len(c.biomes) {
		return defaultBiome(), nil
	}
	return BiomeFromNumericID(int(c.biomes[idx]))
}

// floorDiv divides rounding toward negative infinity, matching how negative
// block coordinates map onto sections and chunks.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}
