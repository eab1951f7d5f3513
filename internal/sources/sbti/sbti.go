package sbti

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"ctastats/internal/sources"
)

const (
	defaultURL            = "https://sciencebasedtargets.org/download/excel"
	defaultTimeoutSeconds = 60
	defaultUserAgent      = "ctastats/0.1"
	defaultAccept         = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*"
)

type Config struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
	Accept    string
}

type Source struct {
	config Config
	client *http.Client
}

func NewWithConfig(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = defaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeoutSeconds * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Accept == "" {
		cfg.Accept = defaultAccept
	}
	return &Source{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (s *Source) Name() string {
	return "sbti"
}

func (s *Source) URL() string {
	return s.config.URL
}

// Fetch issues a single GET; anything but 200 is a failure.
func (s *Source) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.URL, nil)
	if err != nil {
		return nil, &sources.FetchError{Source: s.Name(), Err: err}
	}
	if s.config.Accept != "" {
		req.Header.Set("Accept", s.config.Accept)
	}
	if s.config.UserAgent != "" {
		req.Header.Set("User-Agent", s.config.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &sources.FetchError{Source: s.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &sources.FetchError{Source: s.Name(), StatusCode: resp.StatusCode, Status: resp.Status, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &sources.FetchError{
			Source:     s.Name(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       sources.Snippet(body),
		}
	}

	return body, nil
}

var _ sources.Source = (*Source)(nil)
