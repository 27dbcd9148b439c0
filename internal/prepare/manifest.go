package prepare

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/cloudtiles/internal/system"
)

// Manifest describes everything a run wrote.
type Manifest struct {
	Version string  `yaml:"version"`
	Mode    string  `yaml:"mode"`
	Tiles   []Tile  `yaml:"tiles"`
	Report  *Report `yaml:"report,omitempty"`
}

// Tile is one written file and where it came from.
// File and Mask are relative to the output directory. Box is set in tiles
// mode and Mask in masks mode.
type Tile struct {
	File  string     `yaml:"file"`
	Image string     `yaml:"image"`
	Label string     `yaml:"label"`
	Box   *Rectangle `yaml:"box,omitempty"`
	Mask  string     `yaml:"mask,omitempty"`
}

// Rectangle is a crop region
type Rectangle struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Report summarizes a run. Empty counts processed images without any tile.
type Report struct {
	Records   int              `yaml:"records"`
	Processed int              `yaml:"processed"`
	Skipped   int              `yaml:"skipped"`
	Empty     int              `yaml:"empty"`
	Tiles     int              `yaml:"tiles"`
	Seconds   float64          `yaml:"seconds"`
	Resources system.Resources `yaml:"resources"`
}

// WriteManifest writes a manifest to a YAML file
func WriteManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ReadManifest reads a manifest from a YAML file
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	return &m, nil
}
