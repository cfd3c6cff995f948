package snapshots

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Document is the on-disk layout of a snapshot file
//
//	snapshots:
//	  - symbol: "2330"
//	    price: 500
//	    pe_ratio: 20
//
// Metrics that are absent stay nil.
type Document struct {
	Snapshots []contracts.Snapshot `json:"snapshots" yaml:"snapshots"`
}

// FileProvider serves snapshots loaded from a YAML or JSON file
// ⭐ SSOT: 파일 기반 S0 스냅샷 공급자
type FileProvider struct {
	path   string
	logger *logger.Logger

	mu        sync.RWMutex
	snapshots map[string]*contracts.Snapshot
}

// NewFileProvider loads path and returns a provider over its snapshots
func NewFileProvider(path string, log *logger.Logger) (*FileProvider, error) {
	if log == nil {
		log = logger.Nop()
	}
	p := &FileProvider{path: path, logger: log}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewStaticProvider serves an in-memory set of snapshots
func NewStaticProvider(list []contracts.Snapshot, log *logger.Logger) *FileProvider {
	if log == nil {
		log = logger.Nop()
	}
	p := &FileProvider{logger: log}
	p.snapshots = p.index(list)
	return p
}

// Reload re-reads the backing file
// The previous snapshots stay in place when the file cannot be parsed.
func (p *FileProvider) Reload() error {
	if p.path == "" {
		return fmt.Errorf("snapshot file path is empty")
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read snapshot file: %w", err)
	}

	doc, err := Parse(data, formatOf(p.path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", p.path, err)
	}

	indexed := p.index(doc.Snapshots)

	p.mu.Lock()
	p.snapshots = indexed
	p.mu.Unlock()

	p.logger.WithFields(map[string]interface{}{
		"path":      p.path,
		"snapshots": len(indexed),
	}).Info("Snapshot file loaded")

	return nil
}

// Snapshot returns a copy of the stored snapshot for symbol
func (p *FileProvider) Snapshot(ctx context.Context, symbol string) (*contracts.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	s, ok := p.snapshots[normalizeSymbol(symbol)]
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrSnapshotNotFound)
	}
	cp := *s
	return &cp, nil
}

// Symbols lists every symbol in sorted order
func (p *FileProvider) Symbols(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	symbols := make([]string, 0, len(p.snapshots))
	for _, s := range p.snapshots {
		symbols = append(symbols, s.Symbol)
	}
	sort.Strings(symbols)
	return symbols, nil
}

// Format is the encoding of a snapshot file
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Parse decodes a snapshot document
// Unknown keys are ignored so partial or richer feeds still load.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document

	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		// A bare array is accepted as well as the wrapped document
		if len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Snapshots); err != nil {
				return nil, err
			}
			return &doc, nil
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}

	return &doc, nil
}

func (p *FileProvider) index(list []contracts.Snapshot) map[string]*contracts.Snapshot {
	out := make(map[string]*contracts.Snapshot, len(list))
	for i := range list {
		s := list[i]
		key := normalizeSymbol(s.Symbol)
		if key == "" {
			p.logger.WithField("index", i).Warn("Snapshot without symbol skipped")
			continue
		}
		s.Symbol = key
		if s.MarketCategory == "" {
			s.MarketCategory = contracts.MarketEquity
		}
		if _, dup := out[key]; dup {
			p.logger.WithSymbol(s.Symbol).Warn("Duplicate snapshot, last entry wins")
		}
		out[key] = &s
	}
	return out
}

func formatOf(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
