package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type APIKey struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
	Role string `yaml:"role"`
}

// ProjectConfig is the metadata stamped into every generated document.
type ProjectConfig struct {
	Name      string `yaml:"name"`
	Company   string `yaml:"company"`
	StartDate string `yaml:"start_date"`
}

type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

type Config struct {
	ListenAddr string        `yaml:"listen_addr"`
	DBDSN      string        `yaml:"db_dsn"`
	CatalogDir string        `yaml:"catalog_dir"`
	APIKeys    []APIKey      `yaml:"api_keys"`
	Upload     UploadConfig  `yaml:"upload"`
	Project    ProjectConfig `yaml:"project"`
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Upload.MaxBytes == 0 {
		c.Upload.MaxBytes = 10 << 20
	}
}
