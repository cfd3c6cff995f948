package snapshots

import (
	"github.com/ryu111/stock-health-bot-sub001/internal/contracts"
	"github.com/ryu111/stock-health-bot-sub001/pkg/config"
	"github.com/ryu111/stock-health-bot-sub001/pkg/httputil"
	"github.com/ryu111/stock-health-bot-sub001/pkg/logger"
)

// Open picks the snapshot source from configuration
// SNAPSHOT_URL wins over SNAPSHOT_FILE.
func Open(cfg *config.Config, log *logger.Logger) (contracts.SnapshotProvider, error) {
	if cfg.SnapshotURL != "" {
		return NewHTTPProvider(cfg.SnapshotURL, httputil.New(log), cfg.SnapshotRPS, log), nil
	}
	return NewFileProvider(cfg.SnapshotFile, log)
}
