package station

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iurnickita/bistrobonus/internal/model"
)

// Начальный список станций в yaml-файле
type stationSeed struct {
	Name         string   `yaml:"name"`
	Color        string   `yaml:"color"`
	Categories   []string `yaml:"categories"`
	Enabled      *bool    `yaml:"enabled"`
	DisplayOrder int      `yaml:"displayOrder"`
}

func loadStationsFile(path string) ([]model.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds []stationSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}

	stations := make([]model.Station, 0, len(seeds))
	for i, seed := range seeds {
		enabled := true
		if seed.Enabled != nil {
			enabled = *seed.Enabled
		}
		displayOrder := seed.DisplayOrder
		if displayOrder == 0 {
			displayOrder = i + 1
		}
		stations = append(stations, model.Station{
			Name:         seed.Name,
			Color:        seed.Color,
			Categories:   seed.Categories,
			Enabled:      enabled,
			DisplayOrder: displayOrder,
		})
	}
	return stations, nil
}
