package anvil

// Schema version thresholds, in the order the format changed. A chunk with
// no DataVersion tag predates all of them.
const (
	// Version17w47a is "The Flattening": blocks change from numeric ids to
	// namespaced ids with a per-section palette.
	Version17w47a = 1451

	// Version19w36a moves biomes from one entry per column to one entry per
	// 4x4 column group at each of 64 height levels.
	Version19w36a = 2203

	// Version20w17a removes value stretching from packed block states, so an
	// index never spans two longs.
	Version20w17a = 2529

	// Version21w43a removes the wrapping "Level" tag and renames the section
	// tags; it is also where the world grew to sections -4..19.
	Version21w43a = 2844
)

// WriteDataVersion is stamped on chunks built by this package. Built chunks
// always use the newest layout, so this must stay >= Version21w43a.
const WriteDataVersion = 3465 // 1.20.1

// DataVersion identifies which on-disk schema variant a chunk uses.
// Zero means the chunk predates versioning and is older than all thresholds.
type DataVersion int32

// Layout is the block-state storage layout of one chunk, decided once from
// its data version and then passed into every resolver.
type Layout uint8

const (
	// LayoutPreFlattening stores parallel Blocks/Add/Data byte arrays of
	// numeric ids.
	LayoutPreFlattening Layout = iota
	// LayoutStretched stores a palette plus a packed array whose entries may
	// span two longs.
	LayoutStretched
	// LayoutAligned stores a palette plus a packed array whose entries never
	// span a long.
	LayoutAligned
	// LayoutFlatTags is LayoutAligned with the 21w43a tag names and the
	// "Level" wrapper removed.
	LayoutFlatTags
)

// BiomeLayout is the biome storage layout of one chunk.
type BiomeLayout uint8

const (
	// BiomeLayoutColumns is a flat array with one entry per column (z*16+x).
	BiomeLayoutColumns BiomeLayout = iota
	// BiomeLayoutQuarts is a flat array with one entry per 4x4x4 cell across
	// the whole chunk.
	BiomeLayoutQuarts
	// BiomeLayoutPaletted is a per-section palette over 4x4x4 cells.
	BiomeLayoutPaletted
)

// BlockLayout returns the block-state layout for this data version.
func (v DataVersion) BlockLayout() Layout {
	switch {
	case v < Version17w47a:
		return LayoutPreFlattening
	case v < Version20w17a:
		return LayoutStretched
	case v < Version21w43a:
		return LayoutAligned
	default:
		return LayoutFlatTags
	}
}

// BiomeLayout returns the biome storage layout for this data version.
func (v DataVersion) BiomeLayout() BiomeLayout {
	switch {
	case v < Version19w36a:
		return BiomeLayoutColumns
	case v < Version21w43a:
		return BiomeLayoutQuarts
	default:
		return BiomeLayoutPaletted
	}
}

// PackedLayout returns the packed-array layout used for block states.
func (v DataVersion) PackedLayout() PackedLayout {
	if v < Version20w17a {
		return PackStretched
	}
	return PackAligned
}

// SectionRange returns the inclusive Y-index range of sections for this data
// version: 0..15 before the world grew, -4..19 after.
func (v DataVersion) SectionRange() (min, max int) {
	if v < Version21w43a {
		return 0, 15
	}
	return -4, 19
}

// BlockYRange returns the inclusive block Y range for this data version.
func (v DataVersion) BlockYRange() (min, max int) {
	lo, hi := v.SectionRange()
	return lo * 16, hi*16 + 15
}
