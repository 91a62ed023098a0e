package storage

import (
	"context"

	"github.com/skalibog/smcbot/pkg/models"
)

// NoopStorage используется, когда хранилище не настроено
type NoopStorage struct{}

func NewNoopStorage() *NoopStorage { return &NoopStorage{} }

func (n *NoopStorage) SaveAnalysis(_ context.Context, _ *models.AnalysisRecord) error { return nil }

func (n *NoopStorage) GetHistory(_ context.Context, _ string, _ int) ([]*models.AnalysisRecord, error) {
	return nil, nil
}

func (n *NoopStorage) Close() error { return nil }
