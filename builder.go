package anvil

import (
	"fmt"
	"sort"

	"github.com/Tnze/go-mc/nbt"
)

// SectionBuilder accumulates a dense 16x16x16 voxel buffer and packs it into
// an immutable Section. The buffer is exclusively owned by the builder until
// Build finalizes it. Unset voxels read and pack as air.
type SectionBuilder struct {
	y      int8
	blocks []Block // zero value = unset = air
}

// NewSectionBuilder returns an empty builder for the given section Y index.
func NewSectionBuilder(y int) *SectionBuilder {
	return &SectionBuilder{y: int8(y), blocks: make([]Block, sectionVolume)}
}

// Y returns the section's Y index.
func (b *SectionBuilder) Y() int {
	return int(b.y)
}

func checkLocal(x, y, z int) error {
	if x < 0 || x > 15 || y < 0 || y > 15 || z < 0 || z > 15 {
		return fmt.Errorf("%w: x, y and z must be in 0..15, got (%d, %d, %d)", ErrOutOfBounds, x, y, z)
	}
	return nil
}

// SetBlock stores a block at section-local coordinates.
func (b *SectionBuilder) SetBlock(bl Block, x, y, z int) error {
	if err := checkLocal(x, y, z); err != nil {
		return err
	}
	b.blocks[y*256+z*16+x] = bl
	return nil
}

// Block reads back a voxel; unset voxels return air.
func (b *SectionBuilder) Block(x, y, z int) (Block, error) {
	if err := checkLocal(x, y, z); err != nil {
		return Block{}, err
	}
	bl := b.blocks[y*256+z*16+x]
	if bl.Namespace == "" {
		return Air(), nil
	}
	return bl, nil
}

// allAir reports whether every voxel is unset or explicit air, in which case
// the section is omitted from the chunk entirely.
func (b *SectionBuilder) allAir() bool {
	for _, bl := range b.blocks {
		if bl.Namespace != "" && !bl.IsAir() {
			return false
		}
	}
	return true
}

// Build deduplicates the voxels into a palette in first-occurrence order and
// packs the per-voxel indices in the aligned layout. New sections are always
// written in the current layout, never the stretched one.
func (b *SectionBuilder) Build() *Section {
	var palette []Block
	byKey := make(map[string]uint32)
	indices := make([]uint32, sectionVolume)
	for i, bl := range b.blocks {
		if bl.Namespace == "" {
			bl = Air()
		}
		k := bl.key()
		id, ok := byKey[k]
		if !ok {
			id = uint32(len(palette))
			byKey[k] = id
			palette = append(palette, bl)
		}
		indices[i] = id
	}
	width := paletteBits(len(palette))
	return &Section{
		Y:       b.y,
		palette: palette,
		states:  PackIndices(indices, width, PackAligned),
	}
}

// RawSection packs a caller-supplied palette and index array directly,
// skipping deduplication. No bounds check is made against the palette; that
// is the caller's responsibility.
type RawSection struct {
	Y       int
	Palette []Block
	Indices []uint32 // sectionVolume palette indices in flat voxel order
}

// Build packs the indices in the aligned layout.
func (r RawSection) Build() *Section {
	width := paletteBits(len(r.Palette))
	return &Section{
		Y:       int8(r.Y),
		palette: r.Palette,
		states:  PackIndices(r.Indices, width, PackAligned),
	}
}

// ChunkBuilder assembles a chunk for writing. Chunks are always written in
// the newest layout with WriteDataVersion stamped on them.
type ChunkBuilder struct {
	X, Z int32

	// DefaultBiome fills every written section's biome palette. The zero
	// value means minecraft:plains.
	DefaultBiome Biome

	tileEntities []nbt.RawMessage
	builders     map[int8]*SectionBuilder
	prebuilt     map[int8]*Section
}

// NewChunkBuilder returns an empty chunk builder at the given chunk
// coordinates.
func NewChunkBuilder(x, z int32) *ChunkBuilder {
	return &ChunkBuilder{
		X:        x,
		Z:        z,
		builders: make(map[int8]*SectionBuilder),
		prebuilt: make(map[int8]*Section),
	}
}

func checkSectionY(y int) error {
	lo, hi := DataVersion(WriteDataVersion).SectionRange()
	if y < lo || y > hi {
		return fmt.Errorf("%w: section index %d not in %d..%d", ErrOutOfBounds, y, lo, hi)
	}
	return nil
}

// AddSection registers a section builder at its Y index. Without replace,
// inserting over an occupied index returns ErrDuplicateSection.
func (c *ChunkBuilder) AddSection(sb *SectionBuilder, replace bool) error {
	if err := checkSectionY(sb.Y()); err != nil {
		return err
	}
	if err := c.checkDuplicate(sb.y, replace); err != nil {
		return err
	}
	delete(c.prebuilt, sb.y)
	c.builders[sb.y] = sb
	return nil
}

// AddRawSection registers a pre-packed section. Without replace, inserting
// over an occupied index returns ErrDuplicateSection.
func (c *ChunkBuilder) AddRawSection(rs RawSection, replace bool) error {
	if err := checkSectionY(rs.Y); err != nil {
		return err
	}
	if err := c.checkDuplicate(int8(rs.Y), replace); err != nil {
		return err
	}
	delete(c.builders, int8(rs.Y))
	c.prebuilt[int8(rs.Y)] = rs.Build()
	return nil
}

func (c *ChunkBuilder) checkDuplicate(y int8, replace bool) error {
	if replace {
		return nil
	}
	_, b := c.builders[y]
	_, p := c.prebuilt[y]
	if b || p {
		return fmt.Errorf("%w: y index %d", ErrDuplicateSection, y)
	}
	return nil
}

// AddTileEntity appends an opaque tile entity subtree.
func (c *ChunkBuilder) AddTileEntity(e nbt.RawMessage) {
	c.tileEntities = append(c.tileEntities, e)
}

// SetBlock stores a block at chunk-local x/z and global y, creating the
// section builder on demand.
func (c *ChunkBuilder) SetBlock(b Block, x, y, z int) error {
	if x < 0 || x > 15 || z < 0 || z > 15 {
		return fmt.Errorf("%w: x and z must be in 0..15, got (%d, %d)", ErrOutOfBounds, x, z)
	}
	lo, hi := DataVersion(WriteDataVersion).BlockYRange()
	if y < lo || y > hi {
		return fmt.Errorf("%w: y must be in %d..%d, got %d", ErrOutOfBounds, lo, hi, y)
	}
	sy := int8(floorDiv(y, 16))
	if _, ok := c.prebuilt[sy]; ok {
		return fmt.Errorf("anvil: section %d was added pre-packed and cannot be edited", sy)
	}
	sb, ok := c.builders[sy]
	if !ok {
		sb = NewSectionBuilder(int(sy))
		c.builders[sy] = sb
	}
	return sb.SetBlock(b, x, floorMod(y, 16), z)
}

// Block reads back a voxel from the builder sections; unset positions return
// air.
func (c *ChunkBuilder) Block(x, y, z int) (Block, error) {
	if x < 0 || x > 15 || z < 0 || z > 15 {
		return Block{}, fmt.Errorf("%w: x and z must be in 0..15, got (%d, %d)", ErrOutOfBounds, x, z)
	}
	lo, hi := DataVersion(WriteDataVersion).BlockYRange()
	if y < lo || y > hi {
		return Block{}, fmt.Errorf("%w: y must be in %d..%d, got %d", ErrOutOfBounds, lo, hi, y)
	}
	sy := int8(floorDiv(y, 16))
	if sec, ok := c.prebuilt[sy]; ok {
		idx := floorMod(y, 16)*256 + z*16 + x
		width := paletteBits(len(sec.palette))
		pi := int(UnpackIndex(sec.states, idx, width, PackAligned))
		if pi >= len(sec.palette) {
			return Block{}, fmt.Errorf("anvil: palette index %d out of range for palette of %d", pi, len(sec.palette))
		}
		return sec.palette[pi], nil
	}
	sb, ok := c.builders[sy]
	if !ok {
		return Air(), nil
	}
	return sb.Block(x, floorMod(y, 16), z)
}

// Write-side tag shapes: always the newest generation of the format.

type writeChunkTag struct {
	DataVersion   int32             `nbt:"DataVersion"`
	XPos          int32             `nbt:"xPos"`
	YPos          int32             `nbt:"yPos"`
	ZPos          int32             `nbt:"zPos"`
	Status        string            `nbt:"Status"`
	LastUpdate    int64             `nbt:"LastUpdate"`
	InhabitedTime int64             `nbt:"InhabitedTime"`
	IsLightOn     byte              `nbt:"isLightOn"`
	Sections      []writeSectionTag `nbt:"sections"`
	BlockEntities []nbt.RawMessage  `nbt:"block_entities"`
}

type writeSectionTag struct {
	Y      int8               `nbt:"Y"`
	States writeBlockStateTag `nbt:"block_states"`
	Biomes writeBiomeTag      `nbt:"biomes"`
}

type writeBlockStateTag struct {
	Palette []writePaletteEntry `nbt:"palette"`
	Data    []uint64            `nbt:"data"`
}

type writeBiomeTag struct {
	// A single-entry palette needs no data array.
	Palette []string `nbt:"palette"`
}

type writePaletteEntry struct {
	Name       string            `nbt:"Name"`
	Properties map[string]string `nbt:"Properties"`
}

// MarshalNBT serializes the chunk as an uncompressed tag tree. Sections
// whose palette is exactly {air} are omitted: absence of a section means
// all air.
func (c *ChunkBuilder) MarshalNBT() ([]byte, error) {
	biome := c.DefaultBiome
	if biome.Namespace == "" {
		biome = defaultBiome()
	}

	ys := make([]int, 0, len(c.builders)+len(c.prebuilt))
	for y := range c.builders {
		ys = append(ys, int(y))
	}
	for y := range c.prebuilt {
		ys = append(ys, int(y))
	}
	sort.Ints(ys)

	minY, _ := DataVersion(WriteDataVersion).SectionRange()
	tag := writeChunkTag{
		DataVersion:   WriteDataVersion,
		XPos:          c.X,
		YPos:          int32(minY),
		ZPos:          c.Z,
		Status:        "minecraft:full",
		IsLightOn:     1,
		Sections:      make([]writeSectionTag, 0, len(ys)),
		BlockEntities: c.tileEntities,
	}

	for _, y := range ys {
		var sec *Section
		if sb, ok := c.builders[int8(y)]; ok {
			if sb.allAir() {
				continue
			}
			sec = sb.Build()
		} else {
			sec = c.prebuilt[int8(y)]
			if len(sec.palette) == 1 && sec.palette[0].IsAir() {
				continue
			}
		}

		st := writeSectionTag{
			Y:      sec.Y,
			Biomes: writeBiomeTag{Palette: []string{biome.Name()}},
		}
		st.States.Palette = make([]writePaletteEntry, len(sec.palette))
		for i, b := range sec.palette {
			st.States.Palette[i] = writePaletteEntry{Name: b.Name(), Properties: b.Properties}
		}
		st.States.Data = sec.states
		tag.Sections = append(tag.Sections, st)
	}

	data, err := nbt.Marshal(tag)
	if err != nil {
		return nil, fmt.Errorf("anvil: encoding chunk (%d, %d): %w", c.X, c.Z, err)
	}
	return data, nil
}
