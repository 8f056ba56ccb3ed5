package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/prudhvinik1/intakesync/internal/apperr"
	"github.com/prudhvinik1/intakesync/internal/logger"
	"github.com/prudhvinik1/intakesync/internal/models"
	"go.uber.org/zap"
)

const (
	DefaultRetentionPeriod = 30 * 24 * time.Hour
	draftsCacheKey         = "client_drafts"
)

// LegacyClient is one client saved by the browser-storage version of the
// intake form: the form fields plus an optional id and capture time.
type LegacyClient struct {
	models.ClientPayload
	ID        string    `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// LegacyExport is a dump of the old browser storage keys.
type LegacyExport struct {
	ClientsHistory []LegacyClient  `json:"clientsHistory"`
	OfflineQueue   []LegacyClient  `json:"offlineQueue"`
	ClientDrafts   json.RawMessage `json:"client_drafts,omitempty"`
}

type ImportReport struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Drafts   bool     `json:"drafts"`
	Errors   []string `json:"errors,omitempty"`
}

type MaintenanceService struct {
	clients   *ClientService
	queue     *QueueManager
	cache     *CacheService
	retention time.Duration
	now       func() time.Time
	log       *zap.SugaredLogger
}

func NewMaintenanceService(clients *ClientService, queue *QueueManager, cache *CacheService, retention time.Duration) *MaintenanceService {
	if retention <= 0 {
		retention = DefaultRetentionPeriod
	}
	return &MaintenanceService{
		clients:   clients,
		queue:     queue,
		cache:     cache,
		retention: retention,
		now:       time.Now,
		log:       logger.For("maintenance"),
	}
}

// ImportLegacy stores every legacy client as a local record with a queue
// item, the same way a fresh submission is stored. Entries that share an
// id are imported once. Invalid entries are skipped and reported; a storage
// failure aborts the import.
func (m *MaintenanceService) ImportLegacy(ctx context.Context, export LegacyExport) (*ImportReport, error) {
	report := &ImportReport{}
	seen := make(map[string]bool)

	entries := append(append([]LegacyClient{}, export.ClientsHistory...), export.OfflineQueue...)
	for _, entry := range entries {
		if entry.ID != "" {
			if seen[entry.ID] {
				report.Skipped++
				continue
			}
			seen[entry.ID] = true
		}

		_, err := m.clients.save(ctx, entry.ClientPayload, entry.Timestamp)
		if apperr.IsValidation(err) {
			report.Skipped++
			report.Errors = append(report.Errors, err.Error())
			continue
		}
		if err != nil {
			return report, err
		}
		report.Imported++
	}

	if len(export.ClientDrafts) > 0 && string(export.ClientDrafts) != "null" {
		if err := m.cache.Put(ctx, draftsCacheKey, export.ClientDrafts); err != nil {
			return report, err
		}
		report.Drafts = true
	}

	m.log.Infow("Legacy data imported",
		"imported", report.Imported,
		"skipped", report.Skipped,
		"drafts", report.Drafts)
	return report, nil
}

// CleanupOldData removes synced queue items older than the retention period.
func (m *MaintenanceService) CleanupOldData(ctx context.Context) (int64, error) {
	cutoff := m.now().Add(-m.retention)
	n, err := m.queue.PurgeSyncedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	m.log.Infow("Old sync data cleaned up", "deleted", n, "cutoff", cutoff)
	return n, nil
}
