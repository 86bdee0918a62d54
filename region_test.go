package anvil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestRegion(t *testing.T) *Region {
	t.Helper()
	region := NewRegion(0, 0)

	for _, coord := range [][2]int32{{0, 0}, {5, 7}, {31, 31}} {
		cb := NewChunkBuilder(coord[0], coord[1])
		require.NoError(t, cb.SetBlock(BlockFromName("stone"), 0, 0, 0))
		require.NoError(t, cb.SetBlock(BlockFromName("glass"), 15, 100, 15))
		require.NoError(t, region.AddChunk(cb))
	}
	return region
}

func TestRegionRoundTrip(t *testing.T) {
	region := buildTestRegion(t)

	var buf bytes.Buffer
	n, err := region.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	assert.Zero(t, buf.Len()%sectorSize, "region files are a whole number of sectors")

	reread, err := OpenRegion(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.True(t, reread.HasChunk(0, 0))
	assert.True(t, reread.HasChunk(5, 7))
	assert.True(t, reread.HasChunk(31, 31))
	assert.False(t, reread.HasChunk(1, 0))
	assert.Equal(t, uint(3), reread.Populated().Count())

	for _, coord := range [][2]int{{0, 0}, {5, 7}, {31, 31}} {
		chunk, err := reread.Chunk(coord[0], coord[1])
		require.NoError(t, err)
		assert.Equal(t, int32(coord[0]), chunk.X)
		assert.Equal(t, int32(coord[1]), chunk.Z)

		b, err := chunk.Block(0, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, "minecraft:stone", b.Name())
		b, err = chunk.Block(15, 100, 15)
		require.NoError(t, err)
		assert.Equal(t, "minecraft:glass", b.Name())
	}

	_, err = reread.Chunk(1, 0)
	assert.ErrorIs(t, err, ErrNoChunk)
	_, err = reread.ChunkData(1, 0)
	assert.ErrorIs(t, err, ErrNoChunk)
}

// Six named blocks placed in a fresh region must come back, after a save and
// reopen, at exactly their flat voxel indices with air everywhere else.
func TestRegionPlaceSaveReopenStream(t *testing.T) {
	placed := map[int]Block{ // y*256 + z*16 + x
		0:                  BlockFromName("stone"),
		1:                  BlockFromName("dirt"),
		2*256 + 3*16 + 4:   BlockFromName("oak_planks"),
		7*256 + 8*16 + 9:   BlockFromName("glass"),
		12 * 256:           BlockFromName("obsidian"),
		15*256 + 15*16 + 15: BlockFromName("bedrock"),
	}

	region := NewRegion(0, 0)
	for idx, b := range placed {
		require.NoError(t, region.SetBlock(b, idx%16, idx/256, idx/16%16))
	}

	var buf bytes.Buffer
	_, err := region.WriteTo(&buf)
	require.NoError(t, err)
	reread, err := OpenRegion(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	chunk, err := reread.Chunk(0, 0)
	require.NoError(t, err)
	stream, err := chunk.StreamSectionBlocks(0, 0)
	require.NoError(t, err)

	for i := 0; i < sectionVolume; i++ {
		b, ok := stream.Next()
		require.True(t, ok, "voxel %d", i)
		want, present := placed[i]
		if !present {
			want = Air()
		}
		require.True(t, want.Equal(b), "voxel %d: want %s got %s", i, want.Name(), b.Name())
	}
	_, ok := stream.Next()
	require.False(t, ok)
	require.NoError(t, stream.Err())
}

func TestRegionBuilderAccess(t *testing.T) {
	region := NewRegion(0, 0)
	_, ok := region.Builder(4, 4)
	assert.False(t, ok)

	require.NoError(t, region.SetBlock(BlockFromName("stone"), 70, 10, 70))
	cb, ok := region.Builder(4, 4)
	require.True(t, ok)
	b, err := cb.Block(6, 10, 6)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", b.Name())
}

// A region re-serialized without edits passes its frames through untouched.
func TestRegionWritePassthrough(t *testing.T) {
	region := buildTestRegion(t)

	var first bytes.Buffer
	_, err := region.WriteTo(&first)
	require.NoError(t, err)

	reread, err := OpenRegion(bytes.NewReader(first.Bytes()))
	require.NoError(t, err)

	var second bytes.Buffer
	_, err = reread.WriteTo(&second)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first.Bytes(), second.Bytes()))
}

// craftRegion builds a one-chunk region file around an arbitrary frame.
func craftRegion(frameLength uint32, compression byte, payload []byte) []byte {
	frame := make([]byte, sectorSize)
	binary.BigEndian.PutUint32(frame[:4], frameLength)
	frame[4] = compression
	copy(frame[5:], payload)

	file := make([]byte, headerSectors*sectorSize, (headerSectors+1)*sectorSize)
	binary.BigEndian.PutUint32(file[:4], 2<<8|1) // slot 0: sector 2, one sector
	return append(file, frame...)
}

func TestRegionRejectsGzip(t *testing.T) {
	region, err := OpenRegion(bytes.NewReader(craftRegion(10, compressionGzip, []byte("not-zlib"))))
	require.NoError(t, err)
	_, err = region.ChunkData(0, 0)
	assert.ErrorIs(t, err, ErrInvalidCompression)
}

func TestRegionRejectsOverlongFrame(t *testing.T) {
	// the frame claims more bytes than its sector run holds
	region, err := OpenRegion(bytes.NewReader(craftRegion(sectorSize*2, compressionZlib, nil)))
	require.NoError(t, err)
	_, err = region.ChunkData(0, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkLength)
}

func TestRegionRejectsBadHeader(t *testing.T) {
	_, err := OpenRegion(bytes.NewReader(make([]byte, 100)))
	assert.Error(t, err)

	// a location entry pointing past the end of the file
	file := make([]byte, headerSectors*sectorSize)
	binary.BigEndian.PutUint32(file[:4], 9<<8|4)
	_, err = OpenRegion(bytes.NewReader(file))
	assert.ErrorIs(t, err, ErrInvalidChunkLength)
}

func TestRegionSetBlock(t *testing.T) {
	region := NewRegion(-1, -1)

	require.NoError(t, region.SetBlock(BlockFromName("stone"), -1, 64, -1))
	require.NoError(t, region.SetBlock(BlockFromName("dirt"), -512, 0, -512))

	err := region.SetBlock(Air(), 0, 0, 0)
	assert.ErrorIs(t, err, ErrOutOfBounds, "(0, 0, 0) is in region (0, 0)")
	assert.NoError(t, region.SetIfInside(Air(), 0, 0, 0))

	var buf bytes.Buffer
	_, err = region.WriteTo(&buf)
	require.NoError(t, err)
	reread, err := OpenRegion(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	reread.X, reread.Z = -1, -1

	chunk, err := reread.Chunk(-1, -1)
	require.NoError(t, err)
	b, err := chunk.Block(15, 64, 15)
	require.NoError(t, err)
	assert.Equal(t, "minecraft:stone", b.Name())
}

func TestRegionFill(t *testing.T) {
	region := NewRegion(0, 0)
	require.NoError(t, region.Fill(BlockFromName("bricks"), 3, 10, 3, 0, 12, 0, false))

	cb := region.slots[0].builder
	require.NotNil(t, cb)
	for y := 10; y <= 12; y++ {
		for z := 0; z <= 3; z++ {
			for x := 0; x <= 3; x++ {
				b, err := cb.Block(x, y, z)
				require.NoError(t, err)
				assert.Equal(t, "minecraft:bricks", b.Name(), "(%d, %d, %d)", x, y, z)
			}
		}
	}
	b, err := cb.Block(4, 10, 0)
	require.NoError(t, err)
	assert.True(t, b.IsAir())

	assert.ErrorIs(t, region.Fill(Air(), 0, 0, 0, 600, 5, 5, false), ErrOutOfBounds)
	assert.NoError(t, region.Fill(Air(), 510, 5, 0, 515, 5, 0, true), "ignoreOutside clips at the border")
}

func TestRegionEditDecodedSlot(t *testing.T) {
	region := buildTestRegion(t)
	var buf bytes.Buffer
	_, err := region.WriteTo(&buf)
	require.NoError(t, err)
	reread, err := OpenRegion(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	err = reread.SetBlock(Air(), 0, 0, 0)
	assert.Error(t, err, "file-backed slots are read only")
	assert.NotErrorIs(t, err, ErrOutOfBounds)
}

func TestAddChunkWrongRegion(t *testing.T) {
	region := NewRegion(0, 0)
	assert.ErrorIs(t, region.AddChunk(NewChunkBuilder(32, 0)), ErrOutOfBounds)
	assert.ErrorIs(t, region.AddChunk(NewChunkBuilder(-1, 5)), ErrOutOfBounds)
	assert.NoError(t, region.AddChunk(NewChunkBuilder(31, 0)))
}
