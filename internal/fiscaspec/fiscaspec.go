// Package fiscaspec loads the simulator's API description once at startup.
package fiscaspec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	HouseholdDefinition = "世帯"
	PersonDefinition    = "人物"
)

// Schema is one entry of the document's definitions.
type Schema struct {
	Properties map[string]json.RawMessage `json:"properties"`
}

// Document is the subset of the OpenAPI document the form displays.
type Document struct {
	Definitions map[string]Schema          `json:"definitions"`
	Paths       map[string]json.RawMessage `json:"paths"`
}

// Sections is what the form shows next to the questions.
type Sections struct {
	Available bool                       `json:"available"`
	Household map[string]json.RawMessage `json:"household,omitempty"`
	Person    map[string]json.RawMessage `json:"person,omitempty"`
	Paths     map[string]json.RawMessage `json:"paths,omitempty"`
}

type Config struct {
	URL     string
	Timeout time.Duration
}

// Loader fetches the document once. A failed fetch leaves it unavailable
// for the life of the process.
type Loader struct {
	cfg    Config
	client *resty.Client
	logger *slog.Logger

	once sync.Once
	mu   sync.RWMutex
	doc  *Document
}

func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:50000/spec"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	return &Loader{
		cfg:    cfg,
		client: client,
		logger: logger,
	}
}

// Load performs the fetch on first call; later calls do nothing.
func (l *Loader) Load(ctx context.Context) {
	l.once.Do(func() {
		doc, err := l.fetch(ctx)
		if err != nil {
			l.logger.Warn("specification unavailable", "url", l.cfg.URL, "error", err)
			return
		}
		l.mu.Lock()
		l.doc = doc
		l.mu.Unlock()
		l.logger.Info("specification loaded", "url", l.cfg.URL, "paths", len(doc.Paths))
	})
}

func (l *Loader) fetch(ctx context.Context) (*Document, error) {
	resp, err := l.client.R().SetContext(ctx).Get(l.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("spec request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("spec returned status %d", resp.StatusCode())
	}

	var doc Document
	if err := json.Unmarshal(resp.Body(), &doc); err != nil {
		return nil, fmt.Errorf("decode spec: %w", err)
	}
	return &doc, nil
}

// Document returns the loaded document, or false when unavailable.
func (l *Loader) Document() (*Document, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.doc, l.doc != nil
}

// Sections returns the household, person and path sections for display.
func (l *Loader) Sections() Sections {
	doc, ok := l.Document()
	if !ok {
		return Sections{}
	}
	return Sections{
		Available: true,
		Household: doc.Definitions[HouseholdDefinition].Properties,
		Person:    doc.Definitions[PersonDefinition].Properties,
		Paths:     doc.Paths,
	}
}
