package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"dailyindex/internal/indexdata"
	"dailyindex/internal/infrastructure"
)

// MessageTypeTableUpdated is broadcast after every successful mutation.
const MessageTypeTableUpdated = "table_updated"

// Table event actions
const (
	ActionUpload = "upload"
	ActionReset  = "reset"
)

// csvContentTypes are the media types accepted for uploads regardless of
// the file name.
var csvContentTypes = []string{"text/csv", "application/vnd.ms-excel"}

// SeedSource supplies the CSV the table is built from at startup and on
// reset.
type SeedSource interface {
	Open() (io.ReadCloser, error)
	String() string
}

// FileSeed reads the seed from a local file.
type FileSeed string

// Open implements SeedSource.
func (f FileSeed) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileSeed) String() string { return string(f) }

// ChangeNotifier receives table change events. The websocket hub
// implements it.
type ChangeNotifier interface {
	Broadcast(messageType string, data interface{})
}

// TableEvent describes a completed mutation.
type TableEvent struct {
	Action  string   `json:"action"`
	Source  string   `json:"source"`
	Rows    int      `json:"rows"`
	Entries int      `json:"entries"`
	Indices []string `json:"indices"`
}

// Upload is a CSV document submitted for merging.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// UploadResult summarizes a merged upload.
type UploadResult struct {
	Rows       int      `json:"rows"`
	NewIndices []string `json:"new_indices"`
	Entries    int      `json:"entries"`
}

// PageResult is a paginated read together with the normalized index it was
// computed for.
type PageResult struct {
	Index string
	Pages []indexdata.Page
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Loaded        bool      `json:"loaded"`
	Entries       int       `json:"entries"`
	Indices       []string  `json:"indices"`
	Seed          string    `json:"seed"`
	LastModified  time.Time `json:"last_modified"`
	Uploads       int64     `json:"uploads"`
	FailedUploads int64     `json:"failed_uploads"`
	Resets        int64     `json:"resets"`
}

// IndexServiceOption configures an IndexService.
type IndexServiceOption func(*IndexService)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) IndexServiceOption {
	return func(s *IndexService) { s.logger = logger }
}

// WithMetrics records table metrics on the given instruments.
func WithMetrics(m *infrastructure.BusinessMetrics) IndexServiceOption {
	return func(s *IndexService) { s.metrics = m }
}

// WithNotifier registers the change notifier.
func WithNotifier(n ChangeNotifier) IndexServiceOption {
	return func(s *IndexService) { s.notifier = n }
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) IndexServiceOption {
	return func(s *IndexService) { s.tracer = t }
}

// IndexService owns the current index table. Tables are immutable, so
// readers copy the pointer under the read lock and work on the snapshot;
// writers parse first and hold the write lock only to merge and swap.
type IndexService struct {
	seed         SeedSource
	validIndices []string

	mu           sync.RWMutex
	table        *indexdata.Table
	loaded       bool
	lastModified time.Time

	uploads       atomic.Int64
	failedUploads atomic.Int64
	resets        atomic.Int64
	// reads counts snapshot acquisitions
	reads atomic.Int64

	logger   *slog.Logger
	metrics  *infrastructure.BusinessMetrics
	notifier ChangeNotifier
	tracer   trace.Tracer
}

// NewIndexService creates the store. validIndices are upper-cased; the
// table stays empty until Load.
func NewIndexService(seed SeedSource, validIndices []string, opts ...IndexServiceOption) *IndexService {
	valid := make([]string, 0, len(validIndices))
	for _, name := range validIndices {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name != "" && !slices.Contains(valid, name) {
			valid = append(valid, name)
		}
	}

	s := &IndexService{
		seed:         seed,
		validIndices: valid,
		table:        indexdata.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = infrastructure.GetLogger()
	}
	s.logger = infrastructure.WithComponent(s.logger, "index_service")
	if s.metrics == nil {
		s.metrics = infrastructure.NoopBusinessMetrics()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(infrastructure.MeterName)
	}
	return s
}

// Load builds the table from the seed and publishes it.
func (s *IndexService) Load(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "IndexService.Load")
	defer span.End()

	table, err := s.readSeed()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		return err
	}

	s.mu.Lock()
	s.table = table
	s.loaded = true
	s.lastModified = time.Now()
	s.mu.Unlock()

	s.metrics.TableEntries.Record(ctx, int64(table.Len()))
	s.logger.InfoContext(ctx, "table loaded",
		slog.String("seed", s.seed.String()),
		slog.Int("entries", table.Len()),
		slog.Any("indices", table.Indices()))
	return nil
}

// Snapshot returns the current table. The value is immutable and safe to
// use without further locking.
func (s *IndexService) Snapshot() *indexdata.Table {
	s.reads.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// ValidIndices returns the accepted values of the index query parameter,
// excluding ALL.
func (s *IndexService) ValidIndices() []string {
	return slices.Clone(s.validIndices)
}

// NormalizeIndex trims and upper-cases index and checks it against the
// configured set plus ALL. It never touches the table.
func (s *IndexService) NormalizeIndex(index string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(index))
	if normalized == indexdata.AllIndices || slices.Contains(s.validIndices, normalized) {
		return normalized, nil
	}
	return "", fmt.Errorf("%w: index %q, want one of %s or %s",
		ErrInvalidArgument, index, strings.Join(s.validIndices, ", "), indexdata.AllIndices)
}

// Paginate validates index and pages the current table. An index that a
// record lacks fails the whole request with indexdata.ErrNotFound.
func (s *IndexService) Paginate(ctx context.Context, index string) (*PageResult, error) {
	normalized, err := s.NormalizeIndex(index)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "IndexService.Paginate",
		trace.WithAttributes(attribute.String("index", normalized)))
	defer span.End()

	s.metrics.TableQueries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "paginate")))

	pages, err := indexdata.Paginate(s.Snapshot(), normalized)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("pages", len(pages)))
	return &PageResult{Index: normalized, Pages: pages}, nil
}

// GetByDate returns {"date": date, <index>: value}. With showAll every known
// index present in that date's record is included instead. Index names match
// case-insensitively and are reported as stored.
func (s *IndexService) GetByDate(ctx context.Context, date, index string, showAll bool) (map[string]string, error) {
	s.metrics.TableQueries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", "get_by_date")))

	table := s.Snapshot()
	date = strings.TrimSpace(date)

	record, err := table.Get(date)
	if err != nil {
		return nil, err
	}

	result := map[string]string{"date": date}
	if showAll {
		for _, name := range table.Indices() {
			if v, ok := record[name]; ok {
				result[name] = v
			}
		}
		return result, nil
	}

	index = strings.TrimSpace(index)
	if v, ok := record[index]; ok {
		result[index] = v
		return result, nil
	}
	for name, v := range record {
		if strings.EqualFold(name, index) {
			result[name] = v
			return result, nil
		}
	}
	return nil, fmt.Errorf("%w: index %s on %s", indexdata.ErrNotFound, index, date)
}

// Upload validates and merges a CSV upload. On any error the table is left
// exactly as it was.
func (s *IndexService) Upload(ctx context.Context, up Upload) (*UploadResult, error) {
	ctx, span := s.tracer.Start(ctx, "IndexService.Upload",
		trace.WithAttributes(
			attribute.String("filename", up.Filename),
			attribute.String("content_type", up.ContentType),
		))
	defer span.End()

	start := time.Now()
	result, err := s.upload(ctx, up)
	s.metrics.TableMergeDuration.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		s.failedUploads.Add(1)
		s.metrics.TableUploads.Add(ctx, 1, metric.WithAttributes(
			attribute.String("status", "failure"),
			attribute.String("reason", uploadFailureReason(err)),
		))
		infrastructure.RecordError(ctx, err)
		s.logger.WarnContext(ctx, "upload rejected",
			slog.String("filename", up.Filename),
			slog.String("content_type", up.ContentType),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.uploads.Add(1)
	s.metrics.TableUploads.Add(ctx, 1, metric.WithAttributes(attribute.String("status", "success")))
	s.metrics.TableUploadRows.Add(ctx, int64(result.Rows))
	s.metrics.TableEntries.Record(ctx, int64(result.Entries))

	s.logger.InfoContext(ctx, "upload merged",
		slog.String("filename", up.Filename),
		slog.Int("rows", result.Rows),
		slog.Any("new_indices", result.NewIndices),
		slog.Int("entries", result.Entries))
	return result, nil
}

func (s *IndexService) upload(ctx context.Context, up Upload) (*UploadResult, error) {
	if up.Body == nil {
		return nil, ErrEmptyInput
	}
	data, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	if !isCSVUpload(up.Filename, up.ContentType) {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedMediaType, up.Filename, up.ContentType)
	}

	sheet, err := indexdata.ParseCSV(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	before := s.table
	after := before.Merge(sheet)
	s.table = after
	s.lastModified = time.Now()
	s.mu.Unlock()

	result := &UploadResult{
		Rows:       len(sheet.Rows),
		NewIndices: newNames(before.Indices(), after.Indices()),
		Entries:    after.Len(),
	}
	s.notify(ActionUpload, up.Filename, result.Rows, after)
	return result, nil
}

// Reset discards all uploads and reloads the seed. A seed that fails to
// parse leaves the current table in place.
func (s *IndexService) Reset(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "IndexService.Reset")
	defer span.End()

	table, err := s.readSeed()
	if err != nil {
		infrastructure.RecordError(ctx, err)
		s.logger.ErrorContext(ctx, "reset failed",
			slog.String("seed", s.seed.String()),
			slog.String("error", err.Error()))
		return err
	}

	s.mu.Lock()
	s.table = table
	s.loaded = true
	s.lastModified = time.Now()
	s.mu.Unlock()

	s.resets.Add(1)
	s.metrics.TableResets.Add(ctx, 1)
	s.metrics.TableEntries.Record(ctx, int64(table.Len()))
	s.logger.InfoContext(ctx, "table reset to seed",
		slog.String("seed", s.seed.String()),
		slog.Int("entries", table.Len()))

	s.notify(ActionReset, s.seed.String(), table.Len(), table)
	return nil
}

// Stats reports table size and mutation counters.
func (s *IndexService) Stats() Stats {
	s.mu.RLock()
	table, loaded, lastModified := s.table, s.loaded, s.lastModified
	s.mu.RUnlock()

	return Stats{
		Loaded:        loaded,
		Entries:       table.Len(),
		Indices:       table.Indices(),
		Seed:          s.seed.String(),
		LastModified:  lastModified,
		Uploads:       s.uploads.Load(),
		FailedUploads: s.failedUploads.Load(),
		Resets:        s.resets.Load(),
	}
}

func (s *IndexService) readSeed() (*indexdata.Table, error) {
	rc, err := s.seed.Open()
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", s.seed, err)
	}
	defer rc.Close()

	table, err := indexdata.Load(rc)
	if err != nil {
		return nil, fmt.Errorf("load seed %s: %w", s.seed, err)
	}
	return table, nil
}

func (s *IndexService) notify(action, source string, rows int, table *indexdata.Table) {
	if s.notifier == nil {
		return
	}
	s.notifier.Broadcast(MessageTypeTableUpdated, TableEvent{
		Action:  action,
		Source:  source,
		Rows:    rows,
		Entries: table.Len(),
		Indices: table.Indices(),
	})
}

// isCSVUpload accepts a .csv file name (any case) or a CSV media type.
func isCSVUpload(filename, contentType string) bool {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(filename)), ".csv") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return slices.Contains(csvContentTypes, mediaType)
}

func newNames(before, after []string) []string {
	added := []string{}
	for _, name := range after {
		if !slices.Contains(before, name) {
			added = append(added, name)
		}
	}
	return added
}

func uploadFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "empty"
	case errors.Is(err, ErrUnsupportedMediaType):
		return "media_type"
	case errors.Is(err, indexdata.ErrMalformedInput):
		return "malformed"
	default:
		return "other"
	}
}
