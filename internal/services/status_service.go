package services

import (
	"context"

	"github.com/prudhvinik1/intakesync/internal/metrics"
	"github.com/prudhvinik1/intakesync/internal/models"
)

type StatusService struct {
	queue        *QueueManager
	connectivity *ConnectivityMonitor
	reconciler   *Reconciler
}

func NewStatusService(queue *QueueManager, connectivity *ConnectivityMonitor, reconciler *Reconciler) *StatusService {
	return &StatusService{queue: queue, connectivity: connectivity, reconciler: reconciler}
}

// Status counts queue items by state. Total is the queue length.
func (s *StatusService) Status(ctx context.Context) (models.SyncStatus, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return models.SyncStatus{}, err
	}
	metrics.SetQueueDepth(stats)
	return models.SyncStatus{
		Pending:        stats.Pending,
		Synced:         stats.Synced,
		Failed:         stats.Failed,
		Total:          stats.Total,
		IsOnline:       s.connectivity.IsOnline(),
		SyncInProgress: s.reconciler.InProgress(),
	}, nil
}
