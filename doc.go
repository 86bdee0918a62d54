// Package anvil reads and writes Minecraft's Anvil world storage: region
// files (.mca) holding up to 1024 zlib-compressed chunks, each chunk holding
// paletted 16x16x16 block sections.
//
// The package handles the four on-disk layout generations in both
// directions: pre-flattening numeric ids, flattened palettes with stretched
// packed arrays, flattened palettes with aligned packed arrays, and the
// 21w43a tag-tree restructuring. Which layout applies is decided once per
// chunk from its DataVersion tag.
//
// Nothing in this package is safe for concurrent mutation; fully built
// regions and chunks may be read from any number of goroutines.
package anvil
