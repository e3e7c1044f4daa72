package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"tradedominance/internal/model"
)

const envPrefix = "TRADEDOM"

// Config holds settings shared by the collector and the publisher. Values come
// from TRADEDOM_* environment variables, optionally seeded from a .env file.
type Config struct {
	LogLevel  string      `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string      `envconfig:"LOG_FORMAT" default:"text"`
	DBPath    string      `envconfig:"DB_PATH" default:"tradedominance.db"`
	Source    string      `envconfig:"SOURCE" default:"imf"`
	Output    string      `envconfig:"OUTPUT" default:"data.json"`
	Workbook  string      `envconfig:"WORKBOOK"`
	Query     QueryConfig `envconfig:"QUERY"`
}

// QueryConfig describes the series requested from the data source. The
// defaults select monthly CIF imports from the EU, China and the US.
type QueryConfig struct {
	Dataset      string   `envconfig:"DATASET" default:"DOT"`
	Frequency    string   `envconfig:"FREQUENCY" default:"M"`
	Indicator    string   `envconfig:"INDICATOR" default:"TMG_CIF_USD"`
	Counterparts []string `envconfig:"COUNTERPARTS" default:"B0,CN,US"`
	Areas        []string `envconfig:"AREAS"`
	Start        string   `envconfig:"START" default:"2000"`
	End          string   `envconfig:"END"`
}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing .env files are not an error; variables already set in
// the environment win over file values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, errors.Wrapf(err, "config: load %s", file)
		}
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: process environment")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return errors.Errorf("config: unsupported log format %q", c.LogFormat)
	}
	if strings.TrimSpace(c.Query.Dataset) == "" || strings.TrimSpace(c.Query.Indicator) == "" {
		return errors.New("config: query dataset and indicator are required")
	}
	if len(normalizeCodes(c.Query.Counterparts)) == 0 {
		return errors.New("config: at least one counterpart is required")
	}
	return nil
}

// ToQuery converts the query settings into a fetch descriptor. Codes are
// trimmed and upper-cased.
func (q QueryConfig) ToQuery() model.Query {
	return model.Query{
		Dataset:        strings.TrimSpace(q.Dataset),
		Frequency:      strings.TrimSpace(q.Frequency),
		Indicator:      strings.TrimSpace(q.Indicator),
		ReportingAreas: normalizeCodes(q.Areas),
		Counterparts:   normalizeCodes(q.Counterparts),
		StartPeriod:    strings.TrimSpace(q.Start),
		EndPeriod:      strings.TrimSpace(q.End),
	}
}

// ParseList splits a comma-separated flag value into normalized codes.
func ParseList(value string) []string {
	return normalizeCodes(strings.Split(value, ","))
}

func normalizeCodes(values []string) []string {
	items := make([]string, 0, len(values))
	for _, item := range values {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		items = append(items, strings.ToUpper(trimmed))
	}
	if len(items) == 0 {
		return nil
	}
	return items
}
