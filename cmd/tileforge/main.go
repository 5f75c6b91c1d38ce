package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tileforge/internal/logger"
	"github.com/lawnchairsociety/tileforge/internal/tileset"
	"github.com/lawnchairsociety/tileforge/internal/wfc"
)

// TileOutput is one placed tile in the YAML output.
type TileOutput struct {
	Prototype string `yaml:"prototype"`
	Rotation  int    `yaml:"rotation"`
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Z         int    `yaml:"z"`
}

// GridOutput is the YAML document written by -format yaml.
type GridOutput struct {
	Seed        int64        `yaml:"seed"`
	Tileset     string       `yaml:"tileset"`
	DimX        int          `yaml:"dim_x"`
	DimY        int          `yaml:"dim_y"`
	DimZ        int          `yaml:"dim_z"`
	Steps       int          `yaml:"steps"`
	Yields      int          `yaml:"yields"`
	GeneratedAt time.Time    `yaml:"generated_at"`
	Tiles       []TileOutput `yaml:"tiles"`
}

func main() {
	tilesetFile := flag.String("tileset", "", "Path to tileset YAML file (empty for the built-in basic tileset)")
	dimX := flag.Int("x", 8, "Grid width")
	dimY := flag.Int("y", 4, "Grid height")
	dimZ := flag.Int("z", 8, "Grid depth")
	seed := flag.Int64("seed", 0, "Generation seed (default: random based on current time)")
	isolateStairs := flag.Bool("isolate-stairs", false, "Forbid horizontal stair-stair adjacency")
	yieldEvery := flag.Int("yield-every", 0, "Solver steps per cooperative yield (0 for default)")
	maxSteps := flag.Int("max-steps", 0, "Maximum solver steps (0 for unlimited)")
	maxYields := flag.Int("max-yields", 0, "Maximum cooperative yields (0 for unlimited)")
	stallSeconds := flag.Int("stall-timeout", 0, "Wall-clock budget in seconds, from the first yield (0 for unlimited)")
	format := flag.String("format", "ascii", "Output format: ascii or yaml")
	layerNum := flag.Int("layer", -1, "Layer (Y level) to display (-1 for all layers)")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend (ascii format only)")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	flag.Parse()

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	reg, tilesetName, err := loadTileset(*tilesetFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading tileset: %v\n", err)
		os.Exit(1)
	}

	genSeed := *seed
	if genSeed == 0 {
		genSeed = time.Now().UnixNano()
	}

	opts := wfc.Options{
		Seed:          genSeed,
		YieldEvery:    *yieldEvery,
		MaxSteps:      *maxSteps,
		MaxYields:     *maxYields,
		StallTimeout:  time.Duration(*stallSeconds) * time.Second,
		IsolateStairs: *isolateStairs,
	}

	// Ctrl+C aborts the run at its next suspension point.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dims := wfc.Coord{X: *dimX, Y: *dimY, Z: *dimZ}
	result, err := wfc.Generate(ctx, reg, dims, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Generation failed: %v\n", err)
		os.Exit(1)
	}

	var output string
	switch *format {
	case "yaml":
		output, err = renderYAML(result, reg, tilesetName, genSeed, dims)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
			os.Exit(1)
		}
	default:
		output = renderASCII(result, reg, tilesetName, genSeed, dims, *layerNum, *showLegend)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Grid written to %s\n", *outputFile)
	} else {
		fmt.Print(output)
	}
}

// loadTileset resolves the tileset flag to a registry and display name.
func loadTileset(path string) (*tileset.Registry, string, error) {
	if path == "" {
		return tileset.BasicTileset(), "basic", nil
	}
	reg, err := tileset.LoadFromYAML(path)
	if err != nil {
		return nil, "", err
	}
	return reg, path, nil
}

func renderYAML(result *wfc.Result, reg *tileset.Registry, tilesetName string, seed int64, dims wfc.Coord) (string, error) {
	out := GridOutput{
		Seed:        seed,
		Tileset:     tilesetName,
		DimX:        dims.X,
		DimY:        dims.Y,
		DimZ:        dims.Z,
		Steps:       result.Stats.Steps,
		Yields:      result.Stats.Yields,
		GeneratedAt: time.Now().UTC(),
		Tiles:       make([]TileOutput, 0, len(result.Tiles)),
	}

	for _, tile := range result.Tiles {
		name := fmt.Sprintf("prototype_%d", tile.PrototypeIndex)
		if p := reg.Get(tile.PrototypeIndex); p != nil {
			name = p.Name
		}
		out.Tiles = append(out.Tiles, TileOutput{
			Prototype: name,
			Rotation:  tile.RotationY,
			X:         tile.Position.X,
			Y:         tile.Position.Y,
			Z:         tile.Position.Z,
		})
	}

	data, err := yaml.Marshal(&out)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func renderASCII(result *wfc.Result, reg *tileset.Registry, tilesetName string, seed int64, dims wfc.Coord, layerNum int, showLegend bool) string {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("Tile Grid (Seed: %d, Tileset: %s, Size: %dx%dx%d)\n",
		seed, tilesetName, dims.X, dims.Y, dims.Z))
	output.WriteString(fmt.Sprintf("Steps: %d, Yields: %d, Elapsed: %s\n",
		result.Stats.Steps, result.Stats.Yields, result.Stats.Elapsed.Round(time.Millisecond)))
	output.WriteString(strings.Repeat("=", 60) + "\n\n")

	for y := 0; y < dims.Y; y++ {
		if layerNum >= 0 && y != layerNum {
			continue
		}
		renderLayer(&output, result, reg, dims, y)
		output.WriteString("\n")
	}

	if showLegend {
		output.WriteString(buildLegend(reg))
	}

	return output.String()
}

// renderLayer writes one Y level of the grid, north (z=0) at the top.
func renderLayer(output *strings.Builder, result *wfc.Result, reg *tileset.Registry, dims wfc.Coord, y int) {
	output.WriteString(fmt.Sprintf("Layer %d", y))
	if y == 0 {
		output.WriteString(" (Ground)")
	}
	output.WriteString("\n")
	output.WriteString(strings.Repeat("-", 40) + "\n")

	for z := 0; z < dims.Z; z++ {
		for x := 0; x < dims.X; x++ {
			proto := result.Grid3D[y][z][x]
			output.WriteString(string(tileSymbol(reg.Get(proto))))
		}
		output.WriteString("\n")
	}
}

// tileSymbol picks a display character for a prototype based on its
// geometry and role.
func tileSymbol(p *tileset.Prototype) rune {
	if p == nil {
		return '?'
	}
	if p.IsStair() {
		if p.Meta.StairRole == tileset.StairUpper {
			return '>'
		}
		return '^'
	}
	if p.Voxels.IsEmpty() {
		return '.'
	}

	solid := 0
	for y := 0; y < tileset.GridSize; y++ {
		for z := 0; z < tileset.GridSize; z++ {
			for x := 0; x < tileset.GridSize; x++ {
				if p.Voxels.At(x, y, z) != tileset.VoxelEmpty {
					solid++
				}
			}
		}
	}
	total := tileset.GridSize * tileset.GridSize * tileset.GridSize
	if solid == total {
		return '#'
	}
	if solid <= total/3 {
		return '_'
	}
	return '='
}

func buildLegend(reg *tileset.Registry) string {
	var output strings.Builder
	output.WriteString("\nLegend:\n")

	seen := make(map[rune]bool)
	for _, p := range reg.All() {
		sym := tileSymbol(p)
		if seen[sym] {
			continue
		}
		seen[sym] = true
		output.WriteString(fmt.Sprintf("  [%c] %s\n", sym, p.Name))
	}
	return output.String()
}
