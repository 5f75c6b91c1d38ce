package tileset

// BasicTileset returns the built-in default tileset: open air, a
// walkable floor, solid fill, and a lower/upper stair pair climbing
// toward +x. It is used by tests, CLI defaults, and the demo config.
func BasicTileset() *Registry {
	config := &TilesetConfig{
		Name: "basic",
		Tiles: []TileConfigYAML{
			{
				Name:   "air",
				Weight: 1.5,
				Layers: [][]string{
					{"...", "...", "..."},
					{"...", "...", "..."},
					{"...", "...", "..."},
				},
			},
			{
				Name:   "floor",
				Weight: 1.0,
				Layers: [][]string{
					{"###", "###", "###"},
					{"...", "...", "..."},
					{"...", "...", "..."},
				},
			},
			{
				Name:   "solid",
				Weight: 0.8,
				Layers: [][]string{
					{"###", "###", "###"},
					{"###", "###", "###"},
					{"###", "###", "###"},
				},
			},
			{
				Name:       "stair_lower_x",
				Weight:     0.25,
				Role:       "stair",
				StairRole:  "lower",
				TravelAxis: "x",
				TravelDir:  1,
				RequiredAboveEmpty: []VoxelCoord{
					{X: 0, Y: 0, Z: 0},
					{X: 0, Y: 0, Z: 1},
					{X: 0, Y: 0, Z: 2},
				},
				Layers: [][]string{
					{"###", "###", "###"},
					{"..^", "..^", "..^"},
					{"...", "...", "..."},
				},
			},
			{
				Name:       "stair_upper_x",
				Weight:     0.25,
				Role:       "stair",
				StairRole:  "upper",
				TravelAxis: "x",
				TravelDir:  1,
				Layers: [][]string{
					{"..#", "..#", "..#"},
					{"...", "...", "..."},
					{"...", "...", "..."},
				},
			},
		},
	}

	reg, err := CreateRegistry(config)
	if err != nil {
		// The built-in tileset is static data; a parse failure here is a
		// programming error, not a runtime condition.
		panic("tileset: invalid built-in tileset: " + err.Error())
	}
	return reg
}
