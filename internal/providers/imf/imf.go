package imf

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"tradedominance/internal/model"
	"tradedominance/internal/providers"
)

const (
	defaultBaseURL         = "http://dataservices.imf.org/REST/SDMX_JSON.svc/"
	defaultPathTemplate    = "CompactData/{dataset}/{key}"
	defaultFormat          = FormatCompact
	defaultTimeout         = 60 * time.Second
	defaultUserAgent       = "TradeDominance/0.1"
	defaultRateLimitPerSec = 2
	defaultRateLimitBurst  = 1
	defaultValueScale      = 1
)

// Response formats understood by the decoder.
const (
	FormatCompact  = "compact"
	FormatSDMXJSON = "sdmx-json"
)

var ErrNoRecords = errors.New("imf: no records found")

// Config is read from IMF_* environment variables.
type Config struct {
	BaseURL         string        `envconfig:"BASE_URL"`
	PathTemplate    string        `envconfig:"PATH_TEMPLATE"`
	Format          string        `envconfig:"FORMAT"`
	Timeout         time.Duration `envconfig:"TIMEOUT"`
	UserAgent       string        `envconfig:"USER_AGENT"`
	RateLimitPerSec float64       `envconfig:"RATE_LIMIT_PER_SEC"`
	RateLimitBurst  int           `envconfig:"RATE_LIMIT_BURST"`
	WindowYears     int           `envconfig:"WINDOW_YEARS"`
	ValueScale      float64       `envconfig:"VALUE_SCALE"`
}

type Provider struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	log     logrus.FieldLogger
	now     func() time.Time
}

func New(log logrus.FieldLogger) (*Provider, error) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg, log)
}

func NewWithConfig(cfg Config, log logrus.FieldLogger) (*Provider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if strings.TrimSpace(cfg.PathTemplate) == "" {
		cfg.PathTemplate = defaultPathTemplate
	}
	cfg.Format = strings.ToLower(strings.TrimSpace(cfg.Format))
	if cfg.Format == "" {
		cfg.Format = defaultFormat
	}
	if cfg.Format != FormatCompact && cfg.Format != FormatSDMXJSON {
		return nil, errors.Errorf("imf: unknown format %q", cfg.Format)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.RateLimitPerSec <= 0 {
		cfg.RateLimitPerSec = defaultRateLimitPerSec
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = defaultRateLimitBurst
	}
	if cfg.ValueScale == 0 {
		cfg.ValueScale = defaultValueScale
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Provider{
		config:  cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst),
		log:     log.WithField("provider", "imf"),
		now:     time.Now,
	}, nil
}

func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("IMF", &cfg); err != nil {
		return Config{}, errors.Wrap(err, "imf: load config")
	}
	return cfg, nil
}

func (p *Provider) Name() string {
	return "imf"
}

// Fetch runs the query, one request per year window, and returns every
// parsed observation. A window answered with NoRecordsFound is skipped; any
// other failure aborts the fetch.
func (p *Provider) Fetch(ctx context.Context, query model.Query) ([]model.Observation, error) {
	if strings.TrimSpace(query.Dataset) == "" || strings.TrimSpace(query.Indicator) == "" {
		return nil, errors.New("imf: dataset and indicator are required")
	}
	windows, err := p.windows(query.StartPeriod, query.EndPeriod)
	if err != nil {
		return nil, err
	}

	observations := make([]model.Observation, 0)
	empty := 0
	for _, w := range windows {
		path, params := p.dataPath(query, w)
		body, err := p.doRequest(ctx, path, params)
		if err != nil {
			if errors.Is(err, ErrNoRecords) {
				empty++
				p.log.WithFields(logrus.Fields{"start": w.start, "end": w.end}).Debug("no records in window")
				continue
			}
			return nil, err
		}

		parsed, err := p.decode(body)
		if err != nil {
			return nil, errors.Wrapf(err, "imf: decode window %s..%s", w.start, w.end)
		}
		for i := range parsed {
			parsed[i].Dataset = query.Dataset
			if parsed[i].Indicator == "" {
				parsed[i].Indicator = query.Indicator
			}
			parsed[i].Value *= p.config.ValueScale
		}
		observations = append(observations, parsed...)
	}

	if empty == len(windows) {
		return nil, ErrNoRecords
	}
	return observations, nil
}

func (p *Provider) decode(body []byte) ([]model.Observation, error) {
	switch p.config.Format {
	case FormatSDMXJSON:
		return parseSDMXJSON(body)
	default:
		return parseCompact(body)
	}
}

// seriesKey renders the DOT key: frequency.areas.indicator.counterparts,
// with multiple values joined by "+" and an empty slot meaning "all".
func seriesKey(query model.Query) string {
	frequency := query.Frequency
	if frequency == "" {
		frequency = "M"
	}
	return strings.Join([]string{
		frequency,
		strings.Join(query.ReportingAreas, "+"),
		query.Indicator,
		strings.Join(query.Counterparts, "+"),
	}, ".")
}

func (p *Provider) dataPath(query model.Query, w window) (string, url.Values) {
	path := p.config.PathTemplate
	params := url.Values{}

	path = strings.ReplaceAll(path, "{dataset}", url.PathEscape(query.Dataset))
	key := seriesKey(query)
	if strings.Contains(path, "{key}") {
		path = strings.ReplaceAll(path, "{key}", url.PathEscape(key))
	} else {
		params.Set("key", key)
	}
	if w.start != "" {
		params.Set("startPeriod", w.start)
	}
	if w.end != "" {
		params.Set("endPeriod", w.end)
	}
	return path, params
}

type window struct {
	start string
	end   string
}

// windows splits [start, end] into consecutive spans of WindowYears years.
// The first and last windows keep the caller's exact bounds.
func (p *Provider) windows(start, end string) ([]window, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if p.config.WindowYears <= 0 || start == "" {
		return []window{{start: start, end: end}}, nil
	}

	fromYear, ok := leadingYear(start)
	if !ok {
		return nil, errors.Errorf("imf: invalid start period %q", start)
	}
	toYear := p.now().Year()
	if end != "" {
		year, ok := leadingYear(end)
		if !ok {
			return nil, errors.Errorf("imf: invalid end period %q", end)
		}
		toYear = year
	}
	if toYear < fromYear {
		return nil, errors.Errorf("imf: end period %q before start period %q", end, start)
	}

	windows := make([]window, 0)
	for year := fromYear; year <= toYear; year += p.config.WindowYears {
		last := year + p.config.WindowYears - 1
		if last > toYear {
			last = toYear
		}
		w := window{start: fmt.Sprintf("%04d", year), end: fmt.Sprintf("%04d", last)}
		if year == fromYear {
			w.start = start
		}
		if last == toYear {
			w.end = end
		}
		windows = append(windows, w)
	}
	return windows, nil
}

func leadingYear(period string) (int, bool) {
	if len(period) < 4 {
		return 0, false
	}
	year, err := strconv.Atoi(period[:4])
	if err != nil {
		return 0, false
	}
	return year, true
}

func (p *Provider) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	endpoint := p.buildURL(path, params)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if p.config.UserAgent != "" {
		req.Header.Set("User-Agent", p.config.UserAgent)
	}

	started := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "imf: request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "imf: read body")
	}
	p.log.WithFields(logrus.Fields{
		"url":         endpoint,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
		"bytes":       len(body),
	}).Debug("sdmx request")

	if resp.StatusCode == http.StatusNotFound && strings.Contains(string(body), "NoRecordsFound") {
		return nil, ErrNoRecords
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.Errorf("imf: request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (p *Provider) buildURL(path string, params url.Values) string {
	base := strings.TrimRight(p.config.BaseURL, "/")
	path = strings.TrimLeft(path, "/")
	endpoint := base + "/" + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	return endpoint
}

var _ providers.Source = (*Provider)(nil)
