package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
	Survey   SurveyConfig   `yaml:"survey" mapstructure:"survey"`
	Measures MeasuresConfig `yaml:"measures" mapstructure:"measures"`
	Link     LinkConfig     `yaml:"link" mapstructure:"link"`
	Runlog   RunlogConfig   `yaml:"runlog" mapstructure:"runlog"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// HistoryConfig maps the residential move-history source schema.
type HistoryConfig struct {
	PersonCol      string  `yaml:"person_col" mapstructure:"person_col"`
	MoveCol        string  `yaml:"move_col" mapstructure:"move_col"`
	MoveYearCol    string  `yaml:"move_year_col" mapstructure:"move_year_col"`
	MoveMonthCol   string  `yaml:"move_month_col" mapstructure:"move_month_col"`
	GeoidCol       string  `yaml:"geoid_col" mapstructure:"geoid_col"`
	SurveyYearCol  string  `yaml:"survey_year_col" mapstructure:"survey_year_col"`
	MovedMark      string  `yaml:"moved_mark" mapstructure:"moved_mark"`
	FirstTractMark float64 `yaml:"first_tract_mark" mapstructure:"first_tract_mark"`
	GeoidWidth     int     `yaml:"geoid_width" mapstructure:"geoid_width"`
}

// SurveyConfig maps the interview source schema.
type SurveyConfig struct {
	PersonCol string `yaml:"person_col" mapstructure:"person_col"`
	DateCol   string `yaml:"date_col" mapstructure:"date_col"`
}

// MeasuresConfig maps the contextual measurement source schema.
type MeasuresConfig struct {
	DateCol  string `yaml:"date_col" mapstructure:"date_col"`
	GeoidCol string `yaml:"geoid_col" mapstructure:"geoid_col"`
}

// LinkConfig configures the lag-linkage run.
type LinkConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	TimeoutSecs int `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// RunlogConfig configures the local run-history store.
type RunlogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LINKDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults match the HRS-style reference schema.
	v.SetDefault("history.person_col", "hhidpn")
	v.SetDefault("history.move_col", "trmove_tr")
	v.SetDefault("history.move_year_col", "mvyear")
	v.SetDefault("history.move_month_col", "mvmonth")
	v.SetDefault("history.geoid_col", "LINKCEN2010")
	v.SetDefault("history.survey_year_col", "year")
	v.SetDefault("history.moved_mark", "1. move")
	v.SetDefault("history.first_tract_mark", 999.0)
	v.SetDefault("history.geoid_width", 11)
	v.SetDefault("survey.person_col", "hhidpn")
	v.SetDefault("survey.date_col", "bcdate")
	v.SetDefault("measures.date_col", "Date")
	v.SetDefault("measures.geoid_col", "GEOID10")
	v.SetDefault("link.concurrency", 4)
	v.SetDefault("link.timeout_secs", 0)
	v.SetDefault("runlog.path", "linkdata_runs.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
