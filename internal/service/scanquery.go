package service

import (
	"context"
	"time"

	"github.com/tmarsden/scanpulse/internal/domain/models"
	"github.com/tmarsden/scanpulse/internal/storage"
)

// ScanQueryService defines the read-side business logic served by api
// mode: persisted aggregate history and the storage snapshot.
type ScanQueryService interface {
	MetricRange(ctx context.Context, metric string, start, end time.Time) ([]models.AggregateRow, error)
	StorageUsage(ctx context.Context) (models.StorageUsage, error)
}

type scanQueryService struct {
	repo  storage.AggregateRepository
	usage *storage.UsageReporter
}

func NewScanQueryService(repo storage.AggregateRepository, usage *storage.UsageReporter) ScanQueryService {
	return &scanQueryService{repo: repo, usage: usage}
}

func (s *scanQueryService) MetricRange(ctx context.Context, metric string, start, end time.Time) ([]models.AggregateRow, error) {
	return s.repo.Range(ctx, metric, start, end)
}

func (s *scanQueryService) StorageUsage(ctx context.Context) (models.StorageUsage, error) {
	return s.usage.Snapshot(ctx)
}
