package sim

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// DefaultContainmentPadding is the hull padding used when containment checks
// are enabled without an explicit padding.
const DefaultContainmentPadding = 60.0

// RunConfig is the per-run classification configuration, loaded from YAML.
// Nil pointer fields mean "not set in YAML".
type RunConfig struct {
	Sensors            string            `yaml:"sensors"`
	Streams            StreamsConfig     `yaml:"streams"`
	Containment        ContainmentConfig `yaml:"containment"`
	Outline            *OutlineConfig    `yaml:"outline,omitempty"`
	ReferenceDistances []float64         `yaml:"reference_distances,omitempty"`
	Output             OutputConfig      `yaml:"output"`
	Workers            int               `yaml:"workers,omitempty"` // 0 = one per CPU
}

// StreamsConfig holds the parallel stream lists. A scalar is accepted
// wherever a list is, and a single dom limit or oversize factor applies to
// every distance cut.
type StreamsConfig struct {
	DistanceCuts      NumberList `yaml:"distance_cuts"`
	DOMLimits         NumberList `yaml:"dom_limits"`
	OversizeFactors   NumberList `yaml:"oversize_factors"`
	RelevanceDistance *float64   `yaml:"relevance_distance"`
	Selection         string     `yaml:"selection"`
}

// ContainmentConfig enables the hull containment diagnostic.
type ContainmentConfig struct {
	Check   bool     `yaml:"check"`
	Padding *float64 `yaml:"padding"`
}

// OutlineConfig describes the detector outline prism.
type OutlineConfig struct {
	Polygon        [][]float64 `yaml:"polygon"` // counter-clockwise [x, y] vertices
	ZMin           float64     `yaml:"z_min"`
	ZMax           float64     `yaml:"z_max"`
	ExtendBoundary float64     `yaml:"extend_boundary"`
}

// OutputConfig configures the per-stream output files.
type OutputConfig struct {
	Path      string `yaml:"path"`      // canonical output path; stream suffixes are inserted before Extension
	Extension string `yaml:"extension"` // default ".jsonl"
	Discard   bool   `yaml:"discard"`   // also write events with no stream to a discard file
}

// NumberList decodes either a YAML scalar or a sequence of numbers.
type NumberList []float64

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *NumberList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var v float64
		if err := node.Decode(&v); err != nil {
			return err
		}
		*l = NumberList{v}
		return nil
	}
	var vs []float64
	if err := node.Decode(&vs); err != nil {
		return err
	}
	*l = vs
	return nil
}

// LoadRunConfig reads and parses a YAML run configuration file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadRunConfig(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run config: %w", err)
	}
	var cfg RunConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parsing run config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every field that can be checked without the sensor
// geometry. It returns the first *ConfigError found.
func (c *RunConfig) Validate() error {
	table, err := c.StreamTable()
	if err != nil {
		return err
	}
	ccfg, err := c.ClassifierConfig()
	if err != nil {
		return err
	}
	if table.HasFractionalLimit() && ccfg.RelevanceDistance == nil {
		return &ConfigError{Field: "streams.relevance_distance", Err: ErrMissingRelevanceDistance}
	}
	if !IsValidSelectionPolicy(ccfg.Selection) {
		return configErrorf("streams.selection", ErrUnknownSelectionPolicy, "%q; valid: min-oversize, first-match", ccfg.Selection)
	}
	if p := c.Containment.Padding; p != nil && (math.IsNaN(*p) || *p < 0) {
		return &ConfigError{Field: "containment.padding", Err: fmt.Errorf("must be non-negative, got %v", *p)}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Err: fmt.Errorf("must be non-negative, got %d", c.Workers)}
	}
	return nil
}

// StreamTable builds the stream table from the streams section.
func (c *RunConfig) StreamTable() (*StreamTable, error) {
	limits := make([]Limit, len(c.Streams.DOMLimits))
	for i, v := range c.Streams.DOMLimits {
		l, err := ParseLimit(v)
		if err != nil {
			return nil, &ConfigError{Field: fmt.Sprintf("streams.dom_limits[%d]", i), Err: err}
		}
		limits[i] = l
	}
	table, err := BuildStreamTable(c.Streams.DistanceCuts, limits, c.Streams.OversizeFactors)
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			return nil, &ConfigError{Field: "streams." + ce.Field, Err: ce.Err}
		}
		return nil, err
	}
	return table, nil
}

// ClassifierConfig converts the run config into classifier parameters.
func (c *RunConfig) ClassifierConfig() (ClassifierConfig, error) {
	cfg := ClassifierConfig{
		RelevanceDistance:  c.Streams.RelevanceDistance,
		ReferenceDistances: c.ReferenceDistances,
		Selection:          c.Streams.Selection,
		CheckContainment:   c.Containment.Check,
	}
	if c.Outline != nil {
		outline := &Outline{ZMin: c.Outline.ZMin, ZMax: c.Outline.ZMax, ExtendBoundary: c.Outline.ExtendBoundary}
		for i, v := range c.Outline.Polygon {
			if len(v) != 2 {
				return ClassifierConfig{}, &ConfigError{Field: fmt.Sprintf("outline.polygon[%d]", i), Err: fmt.Errorf("expected [x, y], got %d values", len(v))}
			}
			outline.Polygon = append(outline.Polygon, r2.Point{X: v[0], Y: v[1]})
		}
		if err := outline.Validate(); err != nil {
			return ClassifierConfig{}, err
		}
		cfg.Outline = outline
	}
	return cfg, nil
}

// ContainmentPadding returns the hull padding: the configured value, the
// default when containment checks are on, and zero otherwise.
func (c *RunConfig) ContainmentPadding() float64 {
	if c.Containment.Padding != nil {
		return *c.Containment.Padding
	}
	if c.Containment.Check {
		return DefaultContainmentPadding
	}
	return 0
}

// OutputExtension returns the configured output extension, default ".jsonl".
func (c *RunConfig) OutputExtension() string {
	if c.Output.Extension == "" {
		return ".jsonl"
	}
	return c.Output.Extension
}

// NewClassifierFromConfig builds the sensor array, stream table and classifier
// described by cfg over the given sensor positions.
func NewClassifierFromConfig(cfg *RunConfig, positions []r3.Vector) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	table, err := cfg.StreamTable()
	if err != nil {
		return nil, err
	}
	ccfg, err := cfg.ClassifierConfig()
	if err != nil {
		return nil, err
	}
	sensors, err := NewSensorArray(positions, cfg.ContainmentPadding())
	if err != nil {
		return nil, err
	}
	return NewClassifier(sensors, table, ccfg)
}

// SensorGeometry is the sensor position file format.
type SensorGeometry struct {
	Positions [][]float64 `yaml:"positions"` // [x, y, z] per sensor
}

// LoadSensorPositions reads sensor positions from a YAML geometry file.
func LoadSensorPositions(path string) ([]r3.Vector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sensor geometry: %w", err)
	}
	var geo SensorGeometry
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&geo); err != nil {
		return nil, fmt.Errorf("parsing sensor geometry: %w", err)
	}
	positions := make([]r3.Vector, len(geo.Positions))
	for i, p := range geo.Positions {
		if len(p) != 3 {
			return nil, fmt.Errorf("sensor geometry: positions[%d]: expected [x, y, z], got %d values", i, len(p))
		}
		positions[i] = r3.Vector{X: p[0], Y: p[1], Z: p[2]}
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("sensor geometry %s: no positions", path)
	}
	return positions, nil
}
