// Package batch selects trained model directories and drives their
// conversion to C source, mirroring each model's directory suffix under an
// output root and preserving the parameter container for provenance.
package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config controls the batch driver. Zero values are filled from
// DefaultConfig; an optional YAML file overrides individual fields.
type Config struct {
	// ContainerName is the parameter container file that marks a model
	// directory.
	ContainerName string `yaml:"container_name"`

	// OutputName is the generated C file name.
	OutputName string `yaml:"output_name"`

	// MetricColumn is the progress.csv column consulted by best-seed
	// selection.
	MetricColumn string `yaml:"metric_column"`

	// SuffixDepth is how many trailing path elements of a model directory
	// are mirrored under the output root.
	SuffixDepth int `yaml:"suffix_depth"`

	// FuncName names the emitted evaluation routine.
	FuncName string `yaml:"func_name"`

	// HasTrailingStdLayer marks the final tensor pair as the Gaussian
	// policy std head, excluded from emission.
	HasTrailingStdLayer bool `yaml:"std_head"`

	// Check evaluates the reference forward pass on a zero state vector
	// after each conversion and logs the control outputs.
	Check bool `yaml:"check"`
}

// DefaultConfig matches the training pipeline's conventions.
func DefaultConfig() Config {
	return Config{
		ContainerName:       "params.safetensors",
		OutputName:          "network_evaluate.c",
		MetricColumn:        "rewards/rew_main_avg",
		SuffixDepth:         5,
		FuncName:            "networkEvaluate",
		HasTrailingStdLayer: true,
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}
