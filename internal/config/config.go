package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig holds project-level settings loaded from reconcile.yml.
type ProjectConfig struct {
	MainBranch      string   `yaml:"mainBranch,omitempty"`
	Workers         int      `yaml:"workers,omitempty"`
	TimeoutSeconds  int      `yaml:"timeoutSeconds,omitempty"`
	DryRun          bool     `yaml:"dryRun,omitempty"`
	ResolverCommand string   `yaml:"resolverCommand,omitempty"`
	StorePath       string   `yaml:"storePath,omitempty"`
	ReportDir       string   `yaml:"reportDir,omitempty"`
	Languages       []string `yaml:"languages,omitempty"`
	Verbose         bool     `yaml:"verbose,omitempty"`
}

// Load attempts to read reconcile.yml or reconcile.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"reconcile.yml", "reconcile.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}
