package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is read from a YAML file. All fields are optional; defaults are
// applied through the accessor methods.
//
// Example (config.yaml):
//
// app:
//   title: AIチャットボット
// server:
//   host: 127.0.0.1
//   port: 8088
// logging:
//   level: info
// chat:
//   default_model: GPT-4o
//   max_history: 100
// history:
//   db_path: chat_history.db
// file_upload:
//   pdf_preview_length: 500
//
// Notes:
// - If the config file does not exist, Load returns defaults without error.
// - If the config file exists but cannot be parsed, Load returns an error.

type AppConfig struct {
	App        AppSection        `yaml:"app"`
	Server     ServerSection     `yaml:"server"`
	Logging    LoggingSection    `yaml:"logging"`
	Chat       ChatSection       `yaml:"chat"`
	History    HistorySection    `yaml:"history"`
	FileUpload FileUploadSection `yaml:"file_upload"`
}

type AppSection struct {
	Title *string `yaml:"title"`
}

type ServerSection struct {
	Host *string `yaml:"host"`
	Port *int    `yaml:"port"`
}

type LoggingSection struct {
	Level *string `yaml:"level"`
}

type ChatSection struct {
	DefaultModel *string `yaml:"default_model"`
	MaxHistory   *int    `yaml:"max_history"`
	ModelCatalog *string `yaml:"model_catalog"`
}

type HistorySection struct {
	DBPath *string `yaml:"db_path"`
}

type FileUploadSection struct {
	PDFPreviewLength *int `yaml:"pdf_preview_length"`
	MaxImageSizeMB   *int `yaml:"max_image_size_mb"`
	MaxPDFSizeMB     *int `yaml:"max_pdf_size_mb"`
}

const (
	DefaultTitle        = "AIチャットボット"
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8088
	DefaultLogLevel     = "info"
	DefaultModel        = "GPT-4o"
	DefaultMaxHistory   = 100
	DefaultDBPath       = "chat_history.db"
	DefaultPDFPreview   = 500
	DefaultMaxImageMB   = 10
	DefaultMaxPDFMB     = 50
	DefaultConfigFile   = "config.yaml"
	configPathEnvName   = "CHATTO_CONFIG"
)

// ConfigFilePath returns the config file location: $CHATTO_CONFIG when set,
// otherwise ./config.yaml.
func ConfigFilePath() string {
	if v := strings.TrimSpace(os.Getenv(configPathEnvName)); v != "" {
		return v
	}
	return DefaultConfigFile
}

// Load reads the config file. If the file doesn't exist, it returns a
// default config and nil error.
func Load() (*AppConfig, string, error) {
	configFile := ConfigFilePath()

	cfg := &AppConfig{}

	b, err := os.ReadFile(configFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, configFile, nil
		}
		return nil, "", fmt.Errorf("read config file %s: %w", configFile, err)
	}

	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, "", fmt.Errorf("parse yaml config %s: %w", configFile, err)
	}

	// Validate
	if strings.TrimSpace(cfg.Host()) == "" {
		return nil, "", fmt.Errorf("invalid server.host (empty) in %s", configFile)
	}
	if port := cfg.Port(); port < 1 || port > 65535 {
		return nil, "", fmt.Errorf("invalid server.port %d in %s", port, configFile)
	}

	return cfg, configFile, nil
}

func (c *AppConfig) Title() string {
	if c.App.Title != nil {
		return *c.App.Title
	}
	return DefaultTitle
}

func (c *AppConfig) Host() string {
	if c.Server.Host != nil {
		return *c.Server.Host
	}
	return DefaultHost
}

func (c *AppConfig) Port() int {
	if c.Server.Port != nil {
		return *c.Server.Port
	}
	return DefaultPort
}

func (c *AppConfig) LogLevel() string {
	if c.Logging.Level != nil {
		return *c.Logging.Level
	}
	return DefaultLogLevel
}

func (c *AppConfig) DefaultModel() string {
	if c.Chat.DefaultModel != nil {
		return *c.Chat.DefaultModel
	}
	return DefaultModel
}

func (c *AppConfig) MaxHistory() int {
	if c.Chat.MaxHistory != nil {
		return *c.Chat.MaxHistory
	}
	return DefaultMaxHistory
}

// ModelCatalogPath returns the YAML model catalog override, "" meaning
// the built-in catalog.
func (c *AppConfig) ModelCatalogPath() string {
	if c.Chat.ModelCatalog != nil {
		return *c.Chat.ModelCatalog
	}
	return ""
}

func (c *AppConfig) DBPath() string {
	if c.History.DBPath != nil {
		return *c.History.DBPath
	}
	return DefaultDBPath
}

func (c *AppConfig) PDFPreviewLength() int {
	if c.FileUpload.PDFPreviewLength != nil {
		return *c.FileUpload.PDFPreviewLength
	}
	return DefaultPDFPreview
}

func (c *AppConfig) MaxImageSizeMB() int {
	if c.FileUpload.MaxImageSizeMB != nil {
		return *c.FileUpload.MaxImageSizeMB
	}
	return DefaultMaxImageMB
}

func (c *AppConfig) MaxPDFSizeMB() int {
	if c.FileUpload.MaxPDFSizeMB != nil {
		return *c.FileUpload.MaxPDFSizeMB
	}
	return DefaultMaxPDFMB
}
