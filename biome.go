package anvil

import "strings"

// Biome is a namespaced biome identity.
type Biome struct {
	Namespace string
	ID        string
}

// defaultBiome is what unresolvable positions fall back to, mirroring the
// vanilla default.
func defaultBiome() Biome {
	return Biome{Namespace: "minecraft", ID: "plains"}
}

// BiomeFromName parses "namespace:id"; a name without a namespace defaults
// to "minecraft".
func BiomeFromName(name string) Biome {
	if ns, id, ok := strings.Cut(name, ":"); ok {
		return Biome{Namespace: ns, ID: id}
	}
	return Biome{Namespace: "minecraft", ID: name}
}

// BiomeFromNumericID resolves a legacy numeric biome id through the lookup
// table. An unmapped id returns ErrUnknownLegacyBiome.
func BiomeFromNumericID(id int) (Biome, error) {
	return lookupLegacyBiome(id)
}

// Name returns the biome in "namespace:id" form.
func (b Biome) Name() string {
	return b.Namespace + ":" + b.ID
}
