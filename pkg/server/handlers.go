package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/microsim/cosem/pkg/bresenham"
	"github.com/microsim/cosem/pkg/catalog"
	"github.com/microsim/cosem/pkg/cosem"
	cerrors "github.com/microsim/cosem/pkg/errors"
	"github.com/microsim/cosem/pkg/httputil"
	"github.com/microsim/cosem/pkg/observability"
	"github.com/microsim/cosem/pkg/preview"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 8 << 20

// maxThumbnailWidth bounds the width query parameter.
const maxThumbnailWidth = 4096

var errNotFoundRoute = cerrors.New(cerrors.ErrCodeNotFound, "no such route")

type errorResponse struct {
	Code    cerrors.Code `json:"code"`
	Message string       `json:"message"`
}

// DatasetEntry is one item of the dataset listing.
type DatasetEntry struct {
	ID       string `json:"id"`
	Location string `json:"location"`
}

// SourceEntry summarizes one source of a dataset.
type SourceEntry struct {
	Name        string `json:"name"`
	Format      string `json:"format"`
	ContentType string `json:"contentType,omitempty"`
	URL         string `json:"url"`
}

// RasterizeRequest is the body of POST /rasterize.
type RasterizeRequest struct {
	Shape    []int   `json:"shape"`
	Segments [][]int `json:"segments"`
}

// RasterizeResponse lists the marked cells in row-major order.
type RasterizeResponse struct {
	Shape  []int   `json:"shape"`
	Marked int     `json:"marked"`
	Cells  [][]int `json:"cells"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	idx, err := s.catalog.Datasets(r.Context(), refresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]DatasetEntry, 0, len(idx))
	for id, loc := range idx {
		out = append(out, DatasetEntry{ID: id, Location: loc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ds := cosem.FromManifest(chi.URLParam(r, "id"), m)
	out := make([]SourceEntry, 0, len(m.Sources))
	for _, name := range ds.SourceNames() {
		src := m.Sources[name]
		out = append(out, SourceEntry{Name: name, Format: src.Format, ContentType: src.ContentType, URL: src.URL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleViews(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := m.Views
	if views == nil {
		views = []catalog.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	m, err := s.manifest(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := cosem.FromManifest(chi.URLParam(r, "id"), m).View(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	width := 0
	if q := r.URL.Query().Get("width"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 || n > maxThumbnailWidth {
			writeError(w, r, cerrors.New(cerrors.ErrCodeInvalidInput,
				"width must be an integer between 1 and %d", maxThumbnailWidth))
			return
		}
		width = n
	}
	img, err := s.catalog.Thumbnail(r.Context(), chi.URLParam(r, "id"), refresh(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := preview.WritePNG(w, preview.Scale(img, width)); err != nil {
		s.logger.Warn("write thumbnail", "err", err)
	}
}

func (s *Server) handleRasterize(w http.ResponseWriter, r *http.Request) {
	var req RasterizeRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, cerrors.Wrap(cerrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	if err := s.checkShape(req.Shape); err != nil {
		writeError(w, r, err)
		return
	}

	segments := make([]bresenham.Segment, len(req.Segments))
	for i, seg := range req.Segments {
		segments[i] = bresenham.Segment(seg)
	}
	grid := bresenham.NewGrid(req.Shape...)
	start := time.Now()
	err := bresenham.DrawLinesParallel(r.Context(), segments, grid, 0)
	marked := 0
	if err == nil {
		marked = grid.Count()
	}
	observability.Load().OnRasterize(r.Context(), len(segments), marked, time.Since(start), err)
	if err != nil {
		writeError(w, r, err)
		return
	}

	cells := grid.Marked()
	if cells == nil {
		cells = [][]int{}
	}
	writeJSON(w, http.StatusOK, RasterizeResponse{Shape: req.Shape, Marked: marked, Cells: cells})
}

func (s *Server) checkShape(shape []int) error {
	if len(shape) != 2 && len(shape) != 3 {
		return cerrors.Wrap(cerrors.ErrCodeInvalidInput, bresenham.ErrDimensionMismatch,
			"shape must have 2 or 3 extents, got %d", len(shape))
	}
	n := 1
	for _, e := range shape {
		if e < 1 {
			return cerrors.New(cerrors.ErrCodeInvalidInput, "shape extents must be positive, got %v", shape)
		}
		if n > s.maxCells/e {
			return cerrors.New(cerrors.ErrCodeInvalidInput, "grid %v exceeds %d cells", shape, s.maxCells)
		}
		n *= e
	}
	return nil
}

func (s *Server) manifest(r *http.Request) (*catalog.Manifest, error) {
	return s.catalog.Manifest(r.Context(), chi.URLParam(r, "id"), refresh(r))
}

func refresh(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errorCode(err)
	msg := cerrors.UserMessage(err)
	if code == cerrors.ErrCodeInternal {
		msg = "internal error"
	}
	if id := RequestID(r.Context()); id != "" {
		w.Header().Set(requestIDHeader, id)
	}
	writeJSON(w, cerrors.HTTPStatus(code), errorResponse{Code: code, Message: msg})
}

// errorCode classifies err, falling back on the sentinel errors of the
// catalog and transport layers.
func errorCode(err error) cerrors.Code {
	if code := cerrors.GetCode(err); code != "" {
		return code
	}
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return cerrors.ErrCodeNotFound
	case errors.Is(err, bresenham.ErrDimensionMismatch), errors.Is(err, bresenham.ErrOutOfRange):
		return cerrors.ErrCodeInvalidInput
	case errors.Is(err, httputil.ErrNetwork), errors.Is(err, httputil.ErrForbidden):
		return cerrors.ErrCodeNetwork
	default:
		return cerrors.ErrCodeInternal
	}
}
