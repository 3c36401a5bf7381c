package http

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"

	apierrors "dailyindex/internal/errors"
	"dailyindex/internal/exporter"
	"dailyindex/internal/indexdata"
	"dailyindex/internal/infrastructure"
	"dailyindex/internal/middleware"
	"dailyindex/internal/services"
)

// Response messages
const (
	UploadSuccessMessage = "The Shared Indices were successfully updated."
	ResetSuccessMessage  = "Database reset to initial state."
)

// RequestedIndexHeader echoes the normalized index of a paginated read.
const RequestedIndexHeader = "requested-index"

const (
	defaultPageIndex = indexdata.AllIndices
	defaultDateIndex = "DAX"
	uploadField      = "file"
)

// IndexHandler serves the index table routes
type IndexHandler struct {
	service        IndexServiceInterface
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewIndexHandler creates a new index handler. Uploads larger than
// maxUploadBytes are rejected with 413.
func NewIndexHandler(service IndexServiceInterface, maxUploadBytes int64, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *IndexHandler {
	return &IndexHandler{
		service:        service,
		validator:      middleware.NewValidator(logger),
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "index")),
	}
}

// RegisterRoutes mounts the index routes on r
func (h *IndexHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/getdata", h.GetPages)
		r.Get("/getdata/", h.GetPages)
		r.Get("/getdata/{date}", h.GetByDate)
		r.Get("/testdb", h.GetTable)
		r.Get("/refreshdb", h.Reset)
	})

	r.Get("/getdataAll", h.RedirectAll)
	r.Get("/export", h.Export)

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"))
		r.Post("/uploadfile", h.UploadFile)
		r.Post("/uploadfile/", h.UploadFile)
	})
}

// GetPages handles GET /getdata/?index=
func (h *IndexHandler) GetPages(w http.ResponseWriter, r *http.Request) {
	index := defaultPageIndex
	if values, ok := r.URL.Query()["index"]; ok {
		index = values[0]
	}

	result, err := h.service.Paginate(r.Context(), index)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	infrastructure.SetSpanAttributes(r.Context(),
		attribute.String("index", result.Index),
		attribute.Int("pages", len(result.Pages)))

	w.Header().Set(RequestedIndexHeader, result.Index)
	render.JSON(w, r, result.Pages)
}

// GetByDate handles GET /getdata/{date}
func (h *IndexHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	query := middleware.DateQuery{
		Date:    chi.URLParam(r, "date"),
		Index:   r.URL.Query().Get("index"),
		ShowAll: r.URL.Query().Get("show_all_indices"),
	}
	if query.Index == "" {
		query.Index = defaultDateIndex
	}

	if err := h.validator.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	showAll, _ := strconv.ParseBool(query.ShowAll)

	result, err := h.service.GetByDate(r.Context(), query.Date, query.Index, showAll)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// RedirectAll handles GET /getdataAll
func (h *IndexHandler) RedirectAll(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/getdata/?index="+indexdata.AllIndices, http.StatusTemporaryRedirect)
}

// UploadFile handles POST /uploadfile/
func (h *IndexHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUploadBytes {
		h.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.WarnContext(r.Context(), "invalid multipart body", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFile)
		return
	}
	defer file.Close()

	_, err = h.service.Upload(r.Context(), services.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"message": UploadSuccessMessage})
}

// GetTable handles GET /testdb with the full table, newest date first
func (h *IndexHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Snapshot().MarshalJSON()
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Reset handles GET /refreshdb
func (h *IndexHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Reset(r.Context()); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"message": ResetSuccessMessage})
}

// Export handles GET /export?format=csv|xlsx
func (h *IndexHandler) Export(w http.ResponseWriter, r *http.Request) {
	query := middleware.ExportQuery{Format: r.URL.Query().Get("format")}
	if err := h.validator.ValidateStruct(query); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format, err := exporter.ParseFormat(query.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, apierrors.ErrValidation("format", err.Error()))
		return
	}

	var buf bytes.Buffer
	if err := exporter.Write(&buf, h.service.Snapshot(), format); err != nil {
		h.errorHandler.HandleError(w, r, fmt.Errorf("export %s: %w", format, err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// handleServiceError maps service and table errors to API errors. Raw
// parser messages are logged by the service and never returned.
func (h *IndexHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		valid := append(h.service.ValidIndices(), indexdata.AllIndices)
		h.errorHandler.HandleError(w, r, apierrors.InvalidIndexError(valid))
	case errors.Is(err, indexdata.ErrNotFound):
		h.errorHandler.HandleError(w, r, apierrors.ErrNotFound)
	case errors.Is(err, services.ErrEmptyInput):
		h.errorHandler.HandleError(w, r, apierrors.ErrNoFile)
	case errors.Is(err, services.ErrUnsupportedMediaType):
		h.errorHandler.HandleError(w, r, apierrors.ErrUnsupportedMediaType)
	case errors.Is(err, indexdata.ErrMalformedInput):
		h.errorHandler.HandleError(w, r, apierrors.ErrMalformedInput)
	default:
		h.errorHandler.HandleError(w, r, err)
	}
}
