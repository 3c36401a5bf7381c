package http

import (
	"context"

	"dailyindex/internal/indexdata"
	"dailyindex/internal/services"
)

// IndexServiceInterface defines the table operations the index handler needs
type IndexServiceInterface interface {
	ValidIndices() []string
	Paginate(ctx context.Context, index string) (*services.PageResult, error)
	GetByDate(ctx context.Context, date, index string, showAll bool) (map[string]string, error)
	Upload(ctx context.Context, up services.Upload) (*services.UploadResult, error)
	Reset(ctx context.Context) error
	Snapshot() *indexdata.Table
}
