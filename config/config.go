package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the full configuration of an Arch of Peace episode deployment.
type Config struct {
	Contract *ContractConfig `yaml:"contract"`
	VRF      *VRFConfig      `yaml:"vrf"`
	Episode  *EpisodeConfig  `yaml:"episode"`
	DB       *DBConfig       `yaml:"db"`
	Logger   *LogConfig      `yaml:"logger"`
	LogFile  string          `yaml:"logfile"`
}

// WithDefaults returns a copy of the Config with any missing sections set to
// their default values. A missing episode is replaced by the Monuverse
// episode.
func (c Config) WithDefaults() Config {
	cpy := c
	contract := ContractConfig{}
	if cpy.Contract != nil {
		contract = *cpy.Contract
	}
	contract = contract.WithDefaults()
	cpy.Contract = &contract

	vrf := VRFConfig{}
	if cpy.VRF != nil {
		vrf = *cpy.VRF
	}
	vrf = vrf.WithDefaults()
	cpy.VRF = &vrf

	if cpy.Episode == nil {
		ep := DefaultEpisodeConfig()
		cpy.Episode = &ep
	}

	db := DBConfig{}
	if cpy.DB != nil {
		db = *cpy.DB
	}
	db = db.WithDefaults()
	cpy.DB = &db

	return cpy
}

// LoadConfig reads a YAML configuration file. A missing file yields the
// default configuration.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		config := Config{}.WithDefaults()
		return &config, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "load config")
	}

	withDefaults := config.WithDefaults()
	return &withDefaults, nil
}

// SaveConfig writes config as YAML to path, creating parent directories.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "save config")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "save config")
	}

	return errors.Wrap(os.WriteFile(path, data, 0644), "save config")
}
