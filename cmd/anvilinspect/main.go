package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/minekit/anvil"
)

func main() {
	app := &cli.App{
		Name:  "anvilinspect",
		Usage: "inspects Anvil region files",
		Commands: []*cli.Command{
			{
				Name:      "chunks",
				Usage:     "list the populated chunk slots of a region file",
				ArgsUsage: "<region file>",
				Action:    listChunks,
			},
			{
				Name:      "block",
				Usage:     "resolve one block of a region file",
				ArgsUsage: "<region file>",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "x", Required: true, Usage: "global block x"},
					&cli.IntFlag{Name: "y", Required: true, Usage: "global block y"},
					&cli.IntFlag{Name: "z", Required: true, Usage: "global block z"},
				},
				Action: showBlock,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func listChunks(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("need a region file to work with", 1)
	}
	region, err := anvil.OpenRegionFile(c.Args().Get(0))
	if err != nil {
		return err
	}

	populated := region.Populated()
	fmt.Printf("%d of 1024 chunks populated\n", populated.Count())
	for i, ok := populated.NextSet(0); ok; i, ok = populated.NextSet(i + 1) {
		x := int(i) % 32
		z := int(i) / 32
		chunk, err := region.Chunk(x, z)
		if err != nil {
			fmt.Printf("  (%2d, %2d): unreadable: %v\n", x, z, err)
			continue
		}
		fmt.Printf("  (%2d, %2d): chunk (%d, %d), DataVersion %d, %d sections\n",
			x, z, chunk.X, chunk.Z, chunk.Version, len(chunk.Sections()))
	}
	return nil
}

func showBlock(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("need a region file to work with", 1)
	}
	region, err := anvil.OpenRegionFile(c.Args().Get(0))
	if err != nil {
		return err
	}

	x, y, z := c.Int("x"), c.Int("y"), c.Int("z")
	chunk, err := region.Chunk(floorDiv(x, 16), floorDiv(z, 16))
	if err != nil {
		return err
	}
	block, err := chunk.Block(floorMod(x, 16), y, floorMod(z, 16))
	if err != nil {
		return err
	}

	fmt.Printf("block at (%d, %d, %d): %s\n", x, y, z, block.Name())
	for k, v := range block.Properties {
		fmt.Printf("  %s=%s\n", k, v)
	}
	biome, err := chunk.Biome(floorMod(x, 16), y, floorMod(z, 16))
	if err == nil {
		fmt.Printf("biome: %s\n", biome.Name())
	}
	return nil
}

func floorDiv(a, n int) int {
	q := a / n
	if a%n != 0 && (a < 0) != (n < 0) {
		q--
	}
	return q
}

func floorMod(a, n int) int {
	return a - floorDiv(a, n)*n
}
