// Package config loads and validates the application configuration from
// YAML or JSON files.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aleister1102/webpursuer/internal/ai"
	"github.com/aleister1102/webpursuer/internal/common"
	"github.com/aleister1102/webpursuer/internal/datastore"
	"github.com/aleister1102/webpursuer/internal/extractor"
	"github.com/aleister1102/webpursuer/internal/limiter"
	"github.com/aleister1102/webpursuer/internal/logger"
	"github.com/aleister1102/webpursuer/internal/monitor"
	"github.com/aleister1102/webpursuer/internal/notifier"
)

// GlobalConfig contains all configuration sections for the application
type GlobalConfig struct {
	LogConfig          logger.Config           `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	StorageConfig      datastore.Config        `json:"storage_config,omitempty" yaml:"storage_config,omitempty"`
	BrowserConfig      extractor.BrowserConfig `json:"browser_config,omitempty" yaml:"browser_config,omitempty"`
	ExtractorConfig    extractor.Config        `json:"extractor_config,omitempty" yaml:"extractor_config,omitempty"`
	AIConfig           ai.ClientConfig         `json:"ai_config,omitempty" yaml:"ai_config,omitempty"`
	NotificationConfig notifier.Config         `json:"notification_config,omitempty" yaml:"notification_config,omitempty"`
	SchedulerConfig    monitor.SchedulerConfig `json:"scheduler_config,omitempty" yaml:"scheduler_config,omitempty"`
	ReportConfig       monitor.ReportConfig    `json:"report_config,omitempty" yaml:"report_config,omitempty"`
	LimiterConfig      limiter.Config          `json:"limiter_config,omitempty" yaml:"limiter_config,omitempty"`
	// Timezone resolves schedule days and report hours. Empty means the
	// system local zone.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// NewDefaultGlobalConfig creates a new GlobalConfig with default values
func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		LogConfig:          logger.NewDefaultConfig(),
		StorageConfig:      datastore.NewDefaultConfig(),
		BrowserConfig:      extractor.NewDefaultBrowserConfig(),
		ExtractorConfig:    extractor.NewDefaultConfig(),
		AIConfig:           ai.NewDefaultClientConfig(),
		NotificationConfig: notifier.NewDefaultConfig(),
		SchedulerConfig:    monitor.NewDefaultSchedulerConfig(),
		ReportConfig:       monitor.NewDefaultReportConfig(),
		LimiterConfig:      limiter.NewDefaultConfig(),
	}
}

// LoadGlobalConfig loads the configuration from the provided path or the
// default locations resolved by GetConfigPath. A missing config file is
// not an error; defaults apply.
func LoadGlobalConfig(providedPath string) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, common.WrapErrorf(err, "failed to read config file %s", filePath)
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, err
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if ext == ".yaml" || ext == ".yml" {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return common.WrapErrorf(err, "failed to unmarshal YAML from %s", filePath)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.WrapErrorf(err, "failed to unmarshal JSON from %s", filePath)
	}
	return nil
}
