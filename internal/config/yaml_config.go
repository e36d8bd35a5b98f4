package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// YAMLConfig represents the structure of the config.yaml file.
// Organization profiles are long free text, easier to manage in YAML than env vars.
type YAMLConfig struct {
	Organizations []OrganizationConfig `yaml:"organizations"`
}

// OrganizationConfig defines an organization in the YAML config.
type OrganizationConfig struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	ProfileText string `yaml:"profile_text,omitempty"` // established programs and capabilities
}

// LoadYAMLConfig loads the YAML configuration file.
// Path is determined by CONFIG_FILE env var, defaulting to "config.yaml".
// Returns nil without error if the config file doesn't exist.
func LoadYAMLConfig() (*YAMLConfig, error) {
	return loadYAMLFile(getEnv("CONFIG_FILE", "config.yaml"))
}

func loadYAMLFile(path string) (*YAMLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Config file is optional
			return nil, nil
		}
		return nil, err
	}

	var cfg YAMLConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cfg.Organizations))
	for i := range cfg.Organizations {
		o := &cfg.Organizations[i]
		o.Slug = strings.ToLower(strings.TrimSpace(o.Slug))
		o.Name = strings.TrimSpace(o.Name)
		if o.Slug == "" {
			return nil, fmt.Errorf("organization %d: slug is required", i+1)
		}
		if seen[o.Slug] {
			return nil, fmt.Errorf("organization %q declared twice", o.Slug)
		}
		seen[o.Slug] = true
		if o.Name == "" {
			o.Name = o.Slug
		}
	}

	return &cfg, nil
}

// GetOrganizationBySlug finds an organization by its slug.
func (c *YAMLConfig) GetOrganizationBySlug(slug string) *OrganizationConfig {
	if c == nil {
		return nil
	}
	for i := range c.Organizations {
		if c.Organizations[i].Slug == slug {
			return &c.Organizations[i]
		}
	}
	return nil
}
