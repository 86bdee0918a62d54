package anvil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// RegionCoord addresses a region within a world, in region units of 512
// blocks.
type RegionCoord struct {
	X int32
	Z int32
}

// World is a directory of region files loaded into memory. Reads are safe
// for concurrent use; mutation through SetBlock is not.
type World struct {
	regions map[RegionCoord]*Region
}

// OpenWorld loads every r.X.Z.mca file in the directory, region files in
// parallel. Files not matching the naming pattern are ignored.
func OpenWorld(root string) (*World, error) {
	dir, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range dir {
		var rx, rz int32
		if !strings.HasSuffix(entry.Name(), ".mca") {
			continue
		}
		if n, _ := fmt.Sscanf(entry.Name(), "r.%d.%d.mca", &rx, &rz); n != 2 {
			continue
		}
		paths = append(paths, filepath.Join(root, entry.Name()))
	}

	type loaded struct {
		region *Region
		err    error
	}

	var wg sync.WaitGroup
	wg.Add(len(paths))
	results := make(chan loaded, len(paths))
	for _, path := range paths {
		go func(path string) {
			defer wg.Done()
			region, err := OpenRegionFile(path)
			results <- loaded{region: region, err: err}
		}(path)
	}
	wg.Wait()
	close(results)

	world := &World{regions: make(map[RegionCoord]*Region, len(paths))}
	for res := range results {
		if res.err != nil {
			return nil, res.err
		}
		world.regions[RegionCoord{X: res.region.X, Z: res.region.Z}] = res.region
	}
	return world, nil
}

// NewWorld returns an empty in-memory world.
func NewWorld() *World {
	return &World{regions: make(map[RegionCoord]*Region)}
}

// Region returns the region at the given region coordinates, if loaded.
func (w *World) Region(x, z int32) (*Region, bool) {
	r, ok := w.regions[RegionCoord{X: x, Z: z}]
	return r, ok
}

// Regions returns every loaded region's coordinates.
func (w *World) Regions() []RegionCoord {
	coords := make([]RegionCoord, 0, len(w.regions))
	for c := range w.regions {
		coords = append(coords, c)
	}
	return coords
}

// Chunk decodes the chunk at the given chunk coordinates. A missing region
// counts as a missing chunk.
func (w *World) Chunk(x, z int) (*Chunk, error) {
	region, ok := w.Region(int32(floorDiv(x, 32)), int32(floorDiv(z, 32)))
	if !ok {
		return nil, fmt.Errorf("%w: (%d, %d)", ErrNoChunk, x, z)
	}
	return region.Chunk(x, z)
}

// Block resolves one voxel at global block coordinates.
func (w *World) Block(x, y, z int) (Block, error) {
	chunk, err := w.Chunk(floorDiv(x, 16), floorDiv(z, 16))
	if err != nil {
		return Block{}, err
	}
	return chunk.Block(floorMod(x, 16), y, floorMod(z, 16))
}

// Biome resolves one voxel's biome at global block coordinates.
func (w *World) Biome(x, y, z int) (Biome, error) {
	chunk, err := w.Chunk(floorDiv(x, 16), floorDiv(z, 16))
	if err != nil {
		return Biome{}, err
	}
	return chunk.Biome(floorMod(x, 16), y, floorMod(z, 16))
}

// SetBlock sets a block at global coordinates, creating the region and its
// chunk builder on demand.
func (w *World) SetBlock(b Block, x, y, z int) error {
	coord := RegionCoord{X: int32(floorDiv(x, 512)), Z: int32(floorDiv(z, 512))}
	region, ok := w.regions[coord]
	if !ok {
		region = NewRegion(coord.X, coord.Z)
		w.regions[coord] = region
	}
	return region.SetBlock(b, x, y, z)
}

// Save writes every region to r.X.Z.mca files inside the directory,
// creating it if needed.
func (w *World) Save(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	for coord, region := range w.regions {
		name := fmt.Sprintf("r.%d.%d.mca", coord.X, coord.Z)
		if err := region.Save(filepath.Join(root, name)); err != nil {
			return err
		}
	}
	return nil
}
