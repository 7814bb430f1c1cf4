// Package config holds the YAML-driven run configuration for the transfer
// CLI driver.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Parameters obtained from the YAML input file.
type Config struct {
	Title             string  `yaml:"Title"`
	Dimension         int     `yaml:"Dimension"`
	Tolerance         float64 `yaml:"Tolerance"`
	StoreMissedPoints bool    `yaml:"StoreMissedPoints"`
	NumRanks          int     `yaml:"NumRanks"`
	MaxIterations     int     `yaml:"MaxIterations"`
	ConvergenceTol    float64 `yaml:"ConvergenceTol"`
}

// Default returns the configuration used when no file or overrides are
// supplied.
func Default() *Config {
	return &Config{
		Title:             "solution transfer",
		Dimension:         1,
		Tolerance:         1e-9,
		StoreMissedPoints: true,
		NumRanks:          2,
		MaxIterations:     100,
		ConvergenceTol:    1e-6,
	}
}

func (c *Config) Parse(data []byte) error {
	return yaml.Unmarshal(data, c)
}

func (c *Config) Print() {
	fmt.Printf("\"%s\"\t\t= Title\n", c.Title)
	fmt.Printf("[%d]\t\t\t= Dimension\n", c.Dimension)
	fmt.Printf("%8.3g\t\t= Tolerance\n", c.Tolerance)
	fmt.Printf("[%v]\t\t\t= StoreMissedPoints\n", c.StoreMissedPoints)
	fmt.Printf("[%d]\t\t\t= NumRanks\n", c.NumRanks)
	fmt.Printf("[%d]\t\t\t= MaxIterations\n", c.MaxIterations)
	fmt.Printf("%8.3g\t\t= ConvergenceTol\n", c.ConvergenceTol)
}

func (c *Config) Validate() error {
	if c.Dimension < 1 || c.Dimension > 3 {
		return fmt.Errorf("Dimension %d outside [1,3]", c.Dimension)
	}
	if c.Tolerance <= 0 {
		return fmt.Errorf("Tolerance %g must be positive", c.Tolerance)
	}
	if c.NumRanks < 1 {
		return fmt.Errorf("NumRanks %d must be at least 1", c.NumRanks)
	}
	return nil
}

// DefaultPath resolves the home-relative default configuration file.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".xfer", "config.yaml"), nil
}

// Load layers configuration sources: XFER_* environment variables over the
// explicit file (when path is non-empty) over built-in defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("xfer")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("title", def.Title)
	v.SetDefault("dimension", def.Dimension)
	v.SetDefault("tolerance", def.Tolerance)
	v.SetDefault("storemissedpoints", def.StoreMissedPoints)
	v.SetDefault("numranks", def.NumRanks)
	v.SetDefault("maxiterations", def.MaxIterations)
	v.SetDefault("convergencetol", def.ConvergenceTol)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c := &Config{
		Title:             v.GetString("title"),
		Dimension:         v.GetInt("dimension"),
		Tolerance:         v.GetFloat64("tolerance"),
		StoreMissedPoints: v.GetBool("storemissedpoints"),
		NumRanks:          v.GetInt("numranks"),
		MaxIterations:     v.GetInt("maxiterations"),
		ConvergenceTol:    v.GetFloat64("convergencetol"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
