package config

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/qclab/internal/constants"
)

const (
	DefaultNumTrajs   = 100
	DefaultBatchSize  = 25
	DefaultWorkers    = 1
	DefaultDt         = 0.01
	DefaultTmax       = 10.0
	DefaultDtCollectN = 10
	DefaultKBT        = 1.0
	DefaultDataDir    = "runs"
)

type Config struct {
	Model      string          `yaml:"model"`
	Sampler    string          `yaml:"sampler"`
	NumTrajs   int             `yaml:"num_trajs"`
	SeedStart  int64           `yaml:"seed_start"`
	BatchSize  int             `yaml:"batch_size"`
	Workers    int             `yaml:"workers"`
	Dt         float64         `yaml:"dt"`
	Tmax       float64         `yaml:"tmax"`
	DtCollectN int             `yaml:"dt_collect_n"`
	Store      StoreConfig     `yaml:"store"`
	Constants  ConstantsConfig `yaml:"constants"`
}

type StoreConfig struct {
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
}

// ConstantsConfig holds per-mode model constants. A list with a single
// entry applies to every mode.
type ConstantsConfig struct {
	NumModes       int       `yaml:"num_classical_coordinates"`
	Mass           []float64 `yaml:"mass"`
	Weight         []float64 `yaml:"weight"`
	Frequency      []float64 `yaml:"frequency,omitempty"`
	KBT            float64   `yaml:"kBT"`
	DisplacementRe []float64 `yaml:"displacement_re,omitempty"`
	DisplacementIm []float64 `yaml:"displacement_im,omitempty"`
	InitPosition   []float64 `yaml:"init_position,omitempty"`
	InitMomentum   []float64 `yaml:"init_momentum,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "harmonic",
		Sampler:    "boltzmann",
		NumTrajs:   DefaultNumTrajs,
		BatchSize:  DefaultBatchSize,
		Workers:    DefaultWorkers,
		Dt:         DefaultDt,
		Tmax:       DefaultTmax,
		DtCollectN: DefaultDtCollectN,
		Store: StoreConfig{
			Format: "auto",
			Dir:    DefaultDataDir,
		},
		Constants: ConstantsConfig{
			NumModes: 1,
			Mass:     []float64{1},
			Weight:   []float64{1},
			KBT:      DefaultKBT,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run parameters and the length of every per-mode list.
func (c *Config) Validate() error {
	switch {
	case c.NumTrajs <= 0:
		return fmt.Errorf("num_trajs must be positive, got %d", c.NumTrajs)
	case c.SeedStart < 0:
		return fmt.Errorf("seed_start must not be negative, got %d", c.SeedStart)
	case c.BatchSize <= 0:
		return fmt.Errorf("batch_size must be positive, got %d", c.BatchSize)
	case c.Workers <= 0:
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	case c.Dt <= 0:
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	case c.Tmax < 0:
		return fmt.Errorf("tmax must not be negative, got %g", c.Tmax)
	case c.DtCollectN <= 0:
		return fmt.Errorf("dt_collect_n must be positive, got %d", c.DtCollectN)
	case c.Constants.NumModes <= 0:
		return fmt.Errorf("num_classical_coordinates must be positive, got %d", c.Constants.NumModes)
	}
	lists := []struct {
		name     string
		vals     []float64
		required bool
	}{
		{"mass", c.Constants.Mass, true},
		{"weight", c.Constants.Weight, true},
		{"frequency", c.Constants.Frequency, false},
		{"displacement_re", c.Constants.DisplacementRe, false},
		{"displacement_im", c.Constants.DisplacementIm, false},
		{"init_position", c.Constants.InitPosition, false},
		{"init_momentum", c.Constants.InitMomentum, false},
	}
	for _, l := range lists {
		if len(l.vals) == 0 {
			if l.required {
				return fmt.Errorf("constants.%s is required", l.name)
			}
			continue
		}
		if len(l.vals) != 1 && len(l.vals) != c.Constants.NumModes {
			return fmt.Errorf("constants.%s has %d entries, want 1 or %d", l.name, len(l.vals), c.Constants.NumModes)
		}
	}
	return nil
}

// NumSteps is the number of integration steps covering [0, tmax].
func (c *Config) NumSteps() int {
	return int(math.Round(c.Tmax / c.Dt))
}

// NumOutputs counts the collected time points, t = 0 included.
func (c *Config) NumOutputs() int {
	return c.NumSteps()/c.DtCollectN + 1
}

// OutputTimes returns the times at which averages are collected.
func (c *Config) OutputTimes() []float64 {
	times := make([]float64, c.NumOutputs())
	for i := range times {
		times[i] = float64(i*c.DtCollectN) * c.Dt
	}
	return times
}

func (c ConstantsConfig) expand(vals []float64) []float64 {
	if len(vals) == 1 {
		out := make([]float64, c.NumModes)
		for i := range out {
			out[i] = vals[0]
		}
		return out
	}
	return append([]float64(nil), vals...)
}

// ModelConstants builds the model constants described by the config. It does not
// mark them ready.
func (c *Config) ModelConstants() *constants.Constants {
	cc := c.Constants
	out := constants.New(nil)
	out.Set(constants.NumClassicalCoordinates, cc.NumModes)
	out.Set(constants.ClassicalMass, cc.expand(cc.Mass))
	out.Set(constants.ClassicalWeight, cc.expand(cc.Weight))
	out.Set(constants.KBT, cc.KBT)
	if len(cc.Frequency) > 0 {
		out.Set(constants.OscillatorFrequency, cc.expand(cc.Frequency))
	}
	if len(cc.DisplacementRe) > 0 || len(cc.DisplacementIm) > 0 {
		re, im := cc.expand(orZero(cc.DisplacementRe)), cc.expand(orZero(cc.DisplacementIm))
		alpha := make([]complex128, cc.NumModes)
		for j := range alpha {
			alpha[j] = complex(re[j], im[j])
		}
		out.Set(constants.CoherentDisplacement, alpha)
	}
	if len(cc.InitPosition) > 0 {
		out.Set(constants.InitPosition, cc.expand(cc.InitPosition))
	}
	if len(cc.InitMomentum) > 0 {
		out.Set(constants.InitMomentum, cc.expand(cc.InitMomentum))
	}
	return out
}

func orZero(vals []float64) []float64 {
	if len(vals) == 0 {
		return []float64{0}
	}
	return vals
}
