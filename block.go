package anvil

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Block is a namespaced block identity, optionally with state properties.
// Two blocks with the same name but different properties are distinct values.
type Block struct {
	Namespace string
	ID        string
	// Properties holds the block state in Minecraft's string form
	// ("true"/"false" for booleans, decimal for ints). A nil map and an
	// empty map are the same identity.
	Properties map[string]string
}

// Air is the default block: any voxel a section does not store resolves to it.
func Air() Block {
	return Block{Namespace: "minecraft", ID: "air"}
}

// NewBlock returns a property-less block.
func NewBlock(namespace, id string) Block {
	return Block{Namespace: namespace, ID: id}
}

// BlockFromName parses "namespace:id"; a name without a namespace defaults
// to "minecraft".
func BlockFromName(name string) Block {
	if ns, id, ok := strings.Cut(name, ":"); ok {
		return Block{Namespace: ns, ID: id}
	}
	return Block{Namespace: "minecraft", ID: name}
}

// BlockWithProperties is BlockFromName plus state properties. Values may be
// strings, bools or ints; anything else is rendered with fmt.
func BlockWithProperties(name string, props map[string]any) Block {
	b := BlockFromName(name)
	if len(props) == 0 {
		return b
	}
	b.Properties = make(map[string]string, len(props))
	for k, v := range props {
		switch v := v.(type) {
		case string:
			b.Properties[k] = v
		case bool:
			b.Properties[k] = strconv.FormatBool(v)
		case int:
			b.Properties[k] = strconv.Itoa(v)
		default:
			b.Properties[k] = fmt.Sprint(v)
		}
	}
	return b
}

// Name returns the block in "namespace:id" form.
func (b Block) Name() string {
	return b.Namespace + ":" + b.ID
}

// Equal reports whether two blocks are the same identity, properties
// included.
func (b Block) Equal(other Block) bool {
	if b.Namespace != other.Namespace || b.ID != other.ID || len(b.Properties) != len(other.Properties) {
		return false
	}
	for k, v := range b.Properties {
		if ov, ok := other.Properties[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// IsAir reports whether the block is minecraft:air with no properties.
func (b Block) IsAir() bool {
	return b.Namespace == "minecraft" && b.ID == "air" && len(b.Properties) == 0
}

// key is a canonical string form usable as a map key for palette
// deduplication: the name followed by properties in sorted key order.
func (b Block) key() string {
	if len(b.Properties) == 0 {
		return b.Name()
	}
	keys := make([]string, 0, len(b.Properties))
	for k := range b.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	sb.WriteString(b.Name())
	for _, k := range keys {
		sb.WriteByte('[')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b.Properties[k])
		sb.WriteByte(']')
	}
	return sb.String()
}

// OldBlock is a pre-flattening block: a numeric id plus a 0-15 data value.
type OldBlock struct {
	ID   uint16
	Data uint8
}

// Block resolves the numeric pair through the legacy lookup table. An
// unmapped pair returns ErrUnknownLegacyBlock rather than a default.
func (o OldBlock) Block() (Block, error) {
	return lookupLegacyBlock(o.ID, o.Data)
}

func (o OldBlock) String() string {
	return fmt.Sprintf("%d:%d", o.ID, o.Data)
}
