package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hazyhaar/electoral-roll/pkg/importer"
	"github.com/hazyhaar/electoral-roll/pkg/kit"
	"github.com/hazyhaar/electoral-roll/pkg/roll"
	"github.com/hazyhaar/electoral-roll/pkg/search"
	"github.com/hazyhaar/electoral-roll/pkg/sheet"
	"github.com/hazyhaar/electoral-roll/pkg/store"
)

// Upload and body limits.
const (
	maxUploadBytes = 32 << 20
	maxBodyBytes   = 64 << 10
)

// Deps are the components the HTTP API serves.
type Deps struct {
	Roll     *roll.Roll
	Booths   BoothStore
	Importer *importer.Importer
	Exporter sheet.Exporter
	PageSize int // rows per page when a query leaves page_size unset
	Logger   *slog.Logger
}

// NewRouter returns an http.Handler with all roll API routes.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.PageSize < 1 {
		d.PageSize = search.DefaultPageSize
	}
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Logging(d.Logger, name)(ep)
	}

	mux := http.NewServeMux()
	h := &handler{
		queryVoters:   wrap("query_voters", queryVotersEndpoint(d.Roll, d.PageSize)),
		listFacets:    wrap("list_facets", listFacetsEndpoint(d.Roll)),
		getVoter:      wrap("get_voter", getVoterEndpoint(d.Roll)),
		updateVoter:   wrap("update_voter", updateVoterEndpoint(d.Roll)),
		listBooths:    wrap("list_booths", listBoothsEndpoint(d.Roll, d.Booths)),
		assignBooth:   wrap("assign_booth", assignBoothEndpoint(d.Booths)),
		unassignBooth: wrap("unassign_booth", unassignBoothEndpoint(d.Booths)),
		reload:        wrap("reload", reloadEndpoint(d.Roll)),
		export:        wrap("export_voters", exportEndpoint(d.Roll, d.Exporter)),
		deps:          d,
	}
	if d.Importer != nil {
		h.upload = wrap("upload", uploadEndpoint(d.Roll, d.Importer))
	}

	mux.HandleFunc("GET /v1/voters", h.handleQueryVoters)
	mux.HandleFunc("GET /v1/voters/{id}", h.handleGetVoter)
	mux.HandleFunc("PATCH /v1/voters/{id}", h.handleUpdateVoter)
	mux.HandleFunc("GET /v1/facets", h.handleListFacets)
	mux.HandleFunc("GET /v1/booths", h.handleListBooths)
	mux.HandleFunc("PUT /v1/booths/{booth}/assignee", h.handleAssignBooth)
	mux.HandleFunc("DELETE /v1/booths/{booth}/assignee", h.handleUnassignBooth)
	mux.HandleFunc("GET /v1/export", h.handleExport)
	mux.HandleFunc("GET /v1/upload", methodNotAllowed)
	mux.HandleFunc("POST /v1/upload", h.handleUpload)
	mux.HandleFunc("POST /v1/reload", h.handleReload)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(requestID(mux))
}

type handler struct {
	queryVoters   kit.Endpoint
	listFacets    kit.Endpoint
	getVoter      kit.Endpoint
	updateVoter   kit.Endpoint
	listBooths    kit.Endpoint
	assignBooth   kit.Endpoint
	unassignBooth kit.Endpoint
	reload        kit.Endpoint
	export        kit.Endpoint
	upload        kit.Endpoint
	deps          Deps
}

// --- voters ---

func (h *handler) handleQueryVoters(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.queryVoters(r.Context(), &q)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleGetVoter(w http.ResponseWriter, r *http.Request) {
	resp, err := h.getVoter(r.Context(), r.PathValue("id"))
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleUpdateVoter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.updateVoter(withOperator(r), &updateVoterReq{ID: r.PathValue("id"), Fields: fields})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- facets ---

func (h *handler) handleListFacets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listFacets(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- booths ---

type httpAssignRequest struct {
	Member string `json:"member"`
}

func (h *handler) handleListBooths(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listBooths(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleAssignBooth(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req httpAssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	resp, err := h.assignBooth(withOperator(r), &assignReq{Booth: r.PathValue("booth"), Member: req.Member})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleUnassignBooth(w http.ResponseWriter, r *http.Request) {
	resp, err := h.unassignBooth(withOperator(r), r.PathValue("booth"))
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- export ---

func (h *handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = sheet.FormatXLSX
	}
	key := r.Header.Get("X-Export-Key")
	resp, err := h.export(withOperator(r), &exportReq{Key: key, Format: format, Query: q})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	res := resp.(exportResult)

	name := fmt.Sprintf("voters-%s.%s", time.Now().Format("20060102-150405"), res.Format)
	w.Header().Set("Content-Type", sheet.ContentType(res.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if err := h.deps.Exporter.Export(w, key, res.Format, res.Voters); err != nil {
		h.deps.Logger.Error("export failed", "error", err, "request_id", kit.GetRequestID(r.Context()))
	}
}

// --- upload ---

func (h *handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if h.upload == nil {
		writeError(w, http.StatusServiceUnavailable, "uploads disabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing multipart field \"file\"")
		return
	}
	defer file.Close()

	resp, err := h.upload(withOperator(r), &uploadReq{Name: filepath.Base(hdr.Filename), Body: file})
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// --- reload ---

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reload(r.Context(), nil)
	if err != nil {
		writeEndpointError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status string `json:"status"`
	Voters int    `json:"voters"`
	Booths int    `json:"booths"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "ok",
		Voters: h.deps.Roll.Count(),
		Booths: len(h.deps.Roll.Facets().BoothNumbers),
	})
}

// --- helpers ---

// parseQuery reads search, booth, station, village, sort, page and
// page_size from the URL.
func parseQuery(r *http.Request) (search.Query, error) {
	v := r.URL.Query()
	q := search.Query{
		Search: v.Get("search"),
		Sort:   v.Get("sort"),
	}
	filters := search.Filters{}
	for param, key := range map[string]string{
		"booth":   search.FilterBoothNumber,
		"station": search.FilterPollingStationAddress,
		"village": search.FilterVillage,
	} {
		if s := v.Get(param); s != "" {
			filters[key] = s
		}
	}
	if len(filters) > 0 {
		q.Filters = filters
	}

	var err error
	if q.Page, err = intParam(v.Get("page")); err != nil {
		return q, fmt.Errorf("page: %w", err)
	}
	if q.PageSize, err = intParam(v.Get("page_size")); err != nil {
		return q, fmt.Errorf("page_size: %w", err)
	}
	return q, nil
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return n, nil
}

func withOperator(r *http.Request) context.Context {
	ctx := r.Context()
	if op := r.Header.Get("X-Operator"); op != "" {
		ctx = kit.WithOperator(ctx, op)
	}
	return ctx
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// writeEndpointError maps package sentinel errors to status codes.
func writeEndpointError(w http.ResponseWriter, err error) {
	var br badRequest
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, search.ErrPageOutOfRange),
		errors.Is(err, search.ErrInvalidPageSize),
		errors.Is(err, search.ErrUnknownSort),
		errors.Is(err, sheet.ErrEmptySheet),
		errors.Is(err, sheet.ErrUnsupportedFormat),
		errors.As(err, &br):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sheet.ErrExportDenied):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// requestID tags each request with the caller's X-Request-ID or a fresh
// UUID, echoed back in the response.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		ctx := kit.WithTransport(kit.WithRequestID(r.Context(), id), "http")
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Export-Key, X-Request-ID, X-Operator")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
