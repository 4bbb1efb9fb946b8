// Package devserver is a local stand-in for the Shanoir backend endpoints the
// import client talks to. It is meant for demos and end-to-end tests.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mrsinham/shanoirimport/internal/dicom"
	"github.com/mrsinham/shanoirimport/internal/extradata"
	"go.uber.org/zap"
)

// DefaultPrefix matches the default API URL path.
const DefaultPrefix = "/shanoir-ng"

// Options configures a Server.
type Options struct {
	// DSN is the SQLite data source, ":memory:" for a throwaway store.
	DSN string
	// WorkRoot is the directory get_dicom serves files from.
	WorkRoot string
	Prefix   string
	Logger   *zap.Logger
}

// Server serves the extra data and get_dicom endpoints.
type Server struct {
	echo     *echo.Echo
	store    *Store
	workRoot string
	logger   *zap.Logger
}

// EchoValidator adapts go-playground/validator to echo. It is shared by
// every request, build it with NewEchoValidator.
type EchoValidator struct {
	Validator *validator.Validate
}

// NewEchoValidator returns a ready validator.
func NewEchoValidator() *EchoValidator {
	return &EchoValidator{Validator: validator.New()}
}

// Validate implements echo.Validator.
func (v *EchoValidator) Validate(i interface{}) error {
	if err := v.Validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("received invalid request body: %v", err))
	}
	return nil
}

// New opens the store and builds the routes.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DSN == "" {
		opts.DSN = ":memory:"
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	store, err := OpenStore(opts.DSN)
	if err != nil {
		return nil, err
	}

	s := &Server{store: store, workRoot: opts.WorkRoot, logger: opts.Logger}
	s.echo = s.defineServer(strings.TrimRight(opts.Prefix, "/"))
	return s, nil
}

func (s *Server) defineServer(prefix string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.logger.Warn("request failed", append(fields, zap.Error(v.Error))...)
			} else {
				s.logger.Debug("request", fields...)
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())
	e.Validator = NewEchoValidator()

	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "shanoir dev server is running")
	})

	exam := e.Group(prefix + "/preclinical/examination")
	exam.GET("/:examId/extradata/all", s.listHandler)
	exam.GET("/:id", s.getHandler)
	exam.POST("/:examId/:datatype", s.createHandler)
	exam.PUT("/:examId/:datatype/:id", s.updateHandler)
	exam.POST("/:examId/extradata", s.createHandler)
	exam.PUT("/:examId/extradata/:id", s.updateHandler)
	exam.DELETE("/:examId/extradata/:id", s.deleteHandler)
	exam.POST("/extradata/upload/:id", s.uploadHandler)
	exam.GET("/extradata/download/:id", s.downloadHandler)
	exam.GET("/:examId/extradata/:id/download", s.downloadHandler)

	e.GET(prefix+"/import/importer/get_dicom", s.getDicomHandler)
	return e
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting dev server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and closes the store.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)
	if closeErr := s.store.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Close closes the store without touching a listener.
func (s *Server) Close() error {
	return s.store.Close()
}

type idRequest struct {
	ExamID int64 `param:"examId" json:"-"`
	ID     int64 `param:"id" json:"-" validate:"gt=0"`
}

type listRequest struct {
	ExamID int64 `param:"examId" json:"-" validate:"gt=0"`
}

type upsertRequest struct {
	ExamID   int64  `param:"examId" json:"-" validate:"gt=0"`
	Datatype string `param:"datatype" json:"-"`
	ID       int64  `param:"id" json:"-"`

	ExaminationID      int64  `json:"examination_id"`
	Filename           string `json:"filename" validate:"max=255"`
	Filepath           string `json:"filepath" validate:"max=1024"`
	HasHeartRate       bool   `json:"has_heart_rate"`
	HasRespiratoryRate bool   `json:"has_respiratory_rate"`
	HasSao2            bool   `json:"has_sao2"`
	HasTemperature     bool   `json:"has_temperature"`
}

type datatypeCheck struct {
	Datatype string `validate:"oneof=extradata physiologicaldata bloodgasdata"`
}

func (s *Server) bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("could not parse request: %v", err))
	}
	return c.Validate(req)
}

func (s *Server) listHandler(c echo.Context) error {
	var req listRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	records, err := s.store.List(c.Request().Context(), req.ExamID)
	if err != nil {
		return s.internalError("list extra data", err)
	}
	out := make([]extradata.Payload, 0, len(records))
	for _, r := range records {
		out = append(out, r.payload())
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) getHandler(c echo.Context) error {
	var req idRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	r, err := s.store.Get(c.Request().Context(), req.ID)
	if err != nil {
		return s.storeError("get extra data", err)
	}
	return c.JSON(http.StatusOK, r.payload())
}

func (s *Server) createHandler(c echo.Context) error {
	r, err := s.bindUpsert(c)
	if err != nil {
		return err
	}
	if err := s.store.Create(c.Request().Context(), r); err != nil {
		return s.internalError("create extra data", err)
	}
	s.logger.Info("extra data created", zap.Int64("id", r.ID), zap.Int64("examination_id", r.ExaminationID))
	return c.JSON(http.StatusOK, r.payload())
}

func (s *Server) updateHandler(c echo.Context) error {
	r, err := s.bindUpsert(c)
	if err != nil {
		return err
	}
	if r.ID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "missing extra data id")
	}
	if err := s.store.Update(c.Request().Context(), r); err != nil {
		return s.storeError("update extra data", err)
	}
	return c.JSON(http.StatusOK, r.payload())
}

// bindUpsert parses a create or update request into a record.
func (s *Server) bindUpsert(c echo.Context) (*record, error) {
	var req upsertRequest
	if err := s.bind(c, &req); err != nil {
		return nil, err
	}
	if req.Datatype == "" {
		req.Datatype = extradata.TypeExtraData
	}
	req.Datatype = strings.ToLower(req.Datatype)
	if err := c.Validate(&datatypeCheck{Datatype: req.Datatype}); err != nil {
		return nil, err
	}
	if req.ExaminationID != 0 && req.ExaminationID != req.ExamID {
		return nil, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("examination_id %d does not match path examination %d", req.ExaminationID, req.ExamID))
	}

	r := &record{}
	r.ID = req.ID
	r.ExaminationID = req.ExamID
	r.ExtraDataType = req.Datatype
	r.Filename = req.Filename
	r.Filepath = req.Filepath
	if req.Datatype == extradata.TypePhysiologicalData {
		r.HasHeartRate = req.HasHeartRate
		r.HasRespiratoryRate = req.HasRespiratoryRate
		r.HasSao2 = req.HasSao2
		r.HasTemperature = req.HasTemperature
	}
	return r, nil
}

func (s *Server) deleteHandler(c echo.Context) error {
	var req idRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}
	if err := s.store.Delete(c.Request().Context(), req.ExamID, req.ID); err != nil {
		return s.storeError("delete extra data", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) uploadHandler(c echo.Context) error {
	var req idRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	fileHeader, err := c.FormFile(extradata.UploadField)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing %q file: %v", extradata.UploadField, err))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return s.internalError("open upload", err)
	}
	defer func() { _ = file.Close() }()
	content, err := io.ReadAll(file)
	if err != nil {
		return s.internalError("read upload", err)
	}

	ctx := c.Request().Context()
	filename := filepath.Base(fileHeader.Filename)
	stored := fmt.Sprintf("extradata/%d/%s", req.ID, filename)
	if err := s.store.SetFile(ctx, req.ID, filename, stored, content); err != nil {
		return s.storeError("store upload", err)
	}
	r, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return s.storeError("reload extra data", err)
	}
	s.logger.Info("extra data file uploaded", zap.Int64("id", req.ID), zap.Int("bytes", len(content)))
	return c.JSON(http.StatusOK, r.payload())
}

func (s *Server) downloadHandler(c echo.Context) error {
	var req idRequest
	if err := s.bind(c, &req); err != nil {
		return err
	}

	r, err := s.store.Get(c.Request().Context(), req.ID)
	if err != nil {
		return s.storeError("download extra data", err)
	}
	if req.ExamID != 0 && req.ExamID != r.ExaminationID {
		return echo.NewHTTPError(http.StatusNotFound, ErrNotFound.Error())
	}
	if r.Content == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no file uploaded")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", r.Filename))
	return c.Blob(http.StatusOK, echo.MIMEOctetStream, r.Content)
}

func (s *Server) getDicomHandler(c echo.Context) error {
	rel := dicom.CleanPath(c.QueryParam("path"))
	if rel == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	if s.workRoot == "" {
		return echo.NewHTTPError(http.StatusNotFound, "no work folder configured")
	}

	data, err := os.ReadFile(filepath.Join(s.workRoot, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("%s not found", rel))
	}
	if err != nil {
		return s.internalError("read dicom", err)
	}
	return c.Blob(http.StatusOK, "application/dicom", data)
}

func (s *Server) storeError(action string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return s.internalError(action, err)
}

func (s *Server) internalError(action string, err error) error {
	s.logger.Error(action, zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, action+" failed")
}
