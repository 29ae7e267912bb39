package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is the ijstack configuration file (~/.config/ijstack/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	OutputPattern string `yaml:"output_pattern"`
	OutputDir     string `yaml:"out_dir"`
	Output        string `yaml:"output"`
	Compression   *int   `yaml:"compression"`
	DType         string `yaml:"dtype"`
	ByteOrder     string `yaml:"byte_order"`
	Stack         *bool  `yaml:"stack"`
	AutoRange     *bool  `yaml:"auto_range"`
	LUTs          string `yaml:"luts"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ijstack", "config.yaml")
}

// LoadConfig reads the config file at path, or at the default location when
// path is empty. A missing default file yields a zero Config.
func LoadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
	}
	if path == "" {
		return Config{}, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyLogConfig applies config file defaults to logging flags that were not
// set on the command line.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyConvertConfig applies config file defaults to convert flags.
func applyConvertConfig(c *cli.Command, cfg Config, f *convertFlags) {
	if cfg.OutputPattern != "" && !c.IsSet("output-pattern") {
		f.outputPattern = cfg.OutputPattern
	}
	if cfg.OutputDir != "" && !c.IsSet("out-dir") {
		f.outputDir = cfg.OutputDir
	}
	if cfg.Output != "" && !c.IsSet("output") {
		f.output = cfg.Output
	}
	if cfg.Compression != nil && !c.IsSet("compression") {
		f.compression = *cfg.Compression
	}
	if cfg.DType != "" && !c.IsSet("dtype") {
		f.dtype = cfg.DType
	}
	if cfg.ByteOrder != "" && !c.IsSet("byte-order") {
		f.byteOrder = cfg.ByteOrder
	}
	if cfg.Stack != nil && !c.IsSet("stack") {
		f.stack = *cfg.Stack
	}
	if cfg.AutoRange != nil && !c.IsSet("auto-range") {
		f.autoRange = *cfg.AutoRange
	}
	if cfg.LUTs != "" && !c.IsSet("luts") {
		f.luts = cfg.LUTs
	}
}
