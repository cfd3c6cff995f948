package snapshots

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/httputil"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// HTTPProvider fetches snapshots from a market-data service
//
//	GET {base}/snapshots/{symbol} -> Snapshot
//	GET {base}/snapshots          -> {"symbols": [...]}
type HTTPProvider struct {
	baseURL string
	client  *httputil.Client
	limiter *rate.Limiter
	logger  *logger.Logger
}

type symbolList struct {
	Symbols []string `json:"symbols"`
}

// NewHTTPProvider creates a provider against baseURL
// rps <= 0 disables client-side throttling.
func NewHTTPProvider(baseURL string, client *httputil.Client, rps float64, log *logger.Logger) *HTTPProvider {
	if log == nil {
		log = logger.Nop()
	}
	if client == nil {
		client = httputil.New(log)
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	return &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		limiter: limiter,
		logger:  log,
	}
}

// Snapshot fetches the latest snapshot for symbol
func (p *HTTPProvider) Snapshot(ctx context.Context, symbol string) (*contracts.Snapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var s contracts.Snapshot
	endpoint := fmt.Sprintf("%s/snapshots/%s", p.baseURL, url.PathEscape(strings.TrimSpace(symbol)))
	if err := p.client.GetJSON(ctx, endpoint, &s); err != nil {
		var statusErr *httputil.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", symbol, contracts.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("fetch snapshot %s: %w", symbol, err)
	}

	if s.Symbol == "" {
		s.Symbol = symbol
	}
	if s.MarketCategory == "" {
		s.MarketCategory = contracts.MarketEquity
	}

	p.logger.WithSymbol(s.Symbol).Debug("Snapshot fetched")
	return &s, nil
}

// Symbols lists the symbols the service can serve
func (p *HTTPProvider) Symbols(ctx context.Context) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var list symbolList
	if err := p.client.GetJSON(ctx, p.baseURL+"/snapshots", &list); err != nil {
		return nil, fmt.Errorf("list symbols: %w", err)
	}
	return list.Symbols, nil
}
