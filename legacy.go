package anvil

import (
	"embed"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
)

// The legacy tables are static data assets mapping pre-flattening numeric
// ids to names. They are parsed once on first use and shared read-only by
// every resolver afterwards.

//go:embed legacy_blocks.json legacy_biomes.json
var legacyFS embed.FS

// legacyBlock accepts either a bare name string or an object with a name
// and a property set.
type legacyBlock struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
}

func (l *legacyBlock) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &l.Name)
	}
	type plain legacyBlock
	return json.Unmarshal(data, (*plain)(l))
}

var (
	legacyOnce   sync.Once
	legacyBlocks map[string]legacyBlock
	legacyBiomes map[int]string
)

func loadLegacyTables() {
	legacyOnce.Do(func() {
		blocks, err := legacyFS.ReadFile("legacy_blocks.json")
		if err != nil {
			panic("anvil: embedded legacy_blocks.json: " + err.Error())
		}
		if err := json.Unmarshal(blocks, &legacyBlocks); err != nil {
			panic("anvil: malformed legacy_blocks.json: " + err.Error())
		}

		biomes, err := legacyFS.ReadFile("legacy_biomes.json")
		if err != nil {
			panic("anvil: embedded legacy_biomes.json: " + err.Error())
		}
		var byName map[string]string
		if err := json.Unmarshal(biomes, &byName); err != nil {
			panic("anvil: malformed legacy_biomes.json: " + err.Error())
		}
		legacyBiomes = make(map[int]string, len(byName))
		for k, v := range byName {
			id, err := strconv.Atoi(k)
			if err != nil {
				panic("anvil: malformed legacy_biomes.json key " + k)
			}
			legacyBiomes[id] = v
		}
	})
}

func lookupLegacyBlock(id uint16, data uint8) (Block, error) {
	loadLegacyTables()
	entry, ok := legacyBlocks[fmt.Sprintf("%d:%d", id, data)]
	if !ok {
		return Block{}, fmt.Errorf("%w: %d:%d", ErrUnknownLegacyBlock, id, data)
	}
	b := BlockFromName(entry.Name)
	if len(entry.Properties) > 0 {
		// Copy so callers can never mutate the shared table.
		b.Properties = make(map[string]string, len(entry.Properties))
		for k, v := range entry.Properties {
			b.Properties[k] = v
		}
	}
	return b, nil
}

func lookupLegacyBiome(id int) (Biome, error) {
	loadLegacyTables()
	name, ok := legacyBiomes[id]
	if !ok {
		return Biome{}, fmt.Errorf("%w: %d", ErrUnknownLegacyBiome, id)
	}
	return BiomeFromName(name), nil
}
