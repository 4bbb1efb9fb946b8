// Package config loads the shanoirimport configuration file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mrsinham/shanoirimport/internal/dicom"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the configuration file location.
const EnvConfigPath = "SHANOIR_IMPORT_CONFIG"

const (
	DefaultAPIURL          = "http://localhost:8080/shanoir-ng"
	DefaultExaminationPath = "/preclinical/examination"
	DefaultDicomPath       = "/import/importer/get_dicom/"
	DefaultTimeout         = 30 * time.Second
	DefaultWorkers         = 4
	DefaultLogLevel        = "info"
)

// Config holds every setting of the import client.
type Config struct {
	APIURL          string        `yaml:"api_url"`
	ExaminationPath string        `yaml:"examination_path"`
	DicomPath       string        `yaml:"dicom_path"`
	Timeout         time.Duration `yaml:"timeout"`
	Workers         int           `yaml:"workers"`
	LogLevel        string        `yaml:"log_level"`
	LogFile         string        `yaml:"log_file"`
	// DetailColumns names extra DICOM fields shown in the series detail panel.
	DetailColumns []string `yaml:"detail_columns"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		APIURL:          DefaultAPIURL,
		ExaminationPath: DefaultExaminationPath,
		DicomPath:       DefaultDicomPath,
		Timeout:         DefaultTimeout,
		Workers:         DefaultWorkers,
		LogLevel:        DefaultLogLevel,
	}
}

// Path returns the explicit path if set, otherwise the environment override.
// An empty result means "use defaults".
func Path(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(EnvConfigPath)
}

// Load reads the YAML file at configPath on top of the defaults.
// An empty path returns the defaults.
func Load(configPath string) (*Config, error) {
	config := Default()
	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}

	return config, nil
}

// Validate checks the values that the rest of the program relies on.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api_url %q is not an absolute URL", c.APIURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	for _, column := range c.DetailColumns {
		if _, err := dicom.LookupField(column); err != nil {
			return fmt.Errorf("detail_columns: %w", err)
		}
	}
	return nil
}

// ExaminationURL is the base of every extra-data endpoint.
func (c *Config) ExaminationURL() string {
	return joinURL(c.APIURL, c.ExaminationPath)
}

// DicomURL is the endpoint serving single DICOM files from a work folder.
func (c *Config) DicomURL() string {
	return joinURL(c.APIURL, c.DicomPath)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
