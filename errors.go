package anvil

import "errors"

var (
	// ErrNoChunk is returned when a chunk's location entry in the region
	// header is zero, meaning the chunk was never generated.
	ErrNoChunk = errors.New("anvil: chunk not found")

	// ErrInvalidChunkLength is returned when a chunk frame claims more bytes
	// than its sectors contain.
	ErrInvalidChunkLength = errors.New("anvil: invalid chunk length")

	// ErrInvalidCompression is returned for any compression type byte other
	// than 2 (zlib). Gzip chunks (type 1) are rejected, not decoded.
	ErrInvalidCompression = errors.New("anvil: invalid compression format")

	// ErrOutOfBounds is returned when a coordinate is outside the range the
	// chunk's data version allows. It is raised before any buffer is touched.
	ErrOutOfBounds = errors.New("anvil: coordinates out of bounds")

	// ErrDuplicateSection is returned when adding a section at a Y index the
	// chunk already occupies without asking for replacement.
	ErrDuplicateSection = errors.New("anvil: section already exists")

	// ErrUnknownLegacyBlock is returned when a numeric id:data pair has no
	// entry in the legacy block table.
	ErrUnknownLegacyBlock = errors.New("anvil: unknown legacy block id")

	// ErrUnknownLegacyBiome is returned when a numeric biome id has no entry
	// in the legacy biome table.
	ErrUnknownLegacyBiome = errors.New("anvil: unknown legacy biome id")
)
