package httpapp

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
	"gopkg.in/yaml.v3"

	"github.com/alphabot-ai/confessional/internal/admission"
	"github.com/alphabot-ai/confessional/internal/auth"
	"github.com/alphabot-ai/confessional/internal/board"
	"github.com/alphabot-ai/confessional/internal/config"
	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/store"
	"github.com/alphabot-ai/confessional/internal/validation"

	_ "github.com/alphabot-ai/confessional/docs" // swagger docs
)

// maxJSONBody bounds every non-upload request body.
const maxJSONBody = 64 << 10

// Availability is the part of the classifier adapter the health check reads.
type Availability interface {
	Available() bool
}

type Deps struct {
	Board *board.Service
	Auth  *auth.Service
	// Live serves the websocket feed; nil disables it.
	Live http.Handler
	// Classifier is nil when image classification is disabled.
	Classifier Availability
	Config     config.Config
}

type Server struct {
	board      *board.Service
	auth       *auth.Service
	live       http.Handler
	classifier Availability
	cfg        config.Config
	templates  *Templates
	router     http.Handler
}

func NewServer(d Deps) (*Server, error) {
	if d.Board == nil || d.Auth == nil {
		return nil, errors.New("httpapp: board and auth are required")
	}
	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	s := &Server{
		board:      d.Board,
		auth:       d.Auth,
		live:       d.Live,
		classifier: d.Classifier,
		cfg:        d.Config,
		templates:  tmpl,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(requestID)
	r.Use(instrument)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) { notFound(w) })
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { methodNotAllowed(w) })

	r.Get("/", s.handleHome)
	r.Get("/admin", s.handleAdmin)
	r.Get("/favicon.svg", s.serveFavicon)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.json", s.serveOpenAPIJSON)
	r.Get("/openapi.yaml", s.serveOpenAPIYAML)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	if s.cfg.Upload.Storage == "disk" {
		prefix := "/" + strings.Trim(s.cfg.Upload.URLPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(s.cfg.Upload.Dir)})))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)
		r.Get("/categories", s.handleCategories)

		r.Get("/messages", s.handleListMessages)
		r.Post("/messages", s.handleCreateMessage)
		r.Get("/messages/counts", s.handleCounts)
		r.Get("/messages/live", s.handleLive)
		r.Get("/messages/{id}", s.handleGetMessage)
		r.Delete("/messages/{id}", s.handleDeleteMessage)
		r.Post("/messages/{id}/like", s.handleLike)
		r.Post("/messages/{id}/unlike", s.handleUnlike)
		r.Post("/messages/{id}/report", s.handleReport)

		r.Post("/admin/login", s.handleLogin)
		r.Post("/admin/logout", s.handleLogout)
		r.Post("/admin/check", s.handleCheck)
		r.Post("/admin/reports", s.handleReports)
	})
	return r
}

// handleHealth godoc
//
//	@Summary	Health check
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/healthz [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	classifier := "disabled"
	if s.classifier != nil {
		classifier = "unavailable"
		if s.classifier.Available() {
			classifier = "ready"
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"classifier": classifier,
	})
}

// handleVersion godoc
//
//	@Summary	Build information
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	map[string]string
//	@Router		/api/version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    s.cfg.Version,
		"commit":     s.cfg.Commit,
		"build_time": s.cfg.BuildTime,
	})
}

// handleCategories godoc
//
//	@Summary	List categories
//	@Tags		Meta
//	@Produce	json
//	@Success	200	{object}	map[string]interface{}
//	@Router		/api/categories [get]
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.board.Categories(),
		"default":    s.cfg.Board.DefaultCategory,
	})
}

// handleLive godoc
//
//	@Summary		Live message feed
//	@Description	Websocket stream of board events as {"type": ..., "data": ...} frames.
//	@Description	Types: message.created, message.deleted, message.liked, message.reported.
//	@Tags			Messages
//	@Success		101	{string}	string	"Switching Protocols"
//	@Failure		503	{object}	map[string]string
//	@Router			/api/messages/live [get]
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.live == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("live feed unavailable"))
		return
	}
	s.live.ServeHTTP(w, r)
}

// filesOnly hides directories, so the upload dir cannot be listed.
type filesOnly struct {
	root http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.root.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, fs.ErrNotExist
	}
	return file, nil
}

func (s *Server) serveFavicon(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(faviconSVG)
}

func (s *Server) serveOpenAPIJSON(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(doc))
}

func (s *Server) serveOpenAPIYAML(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var tree any
	if err := yaml.Unmarshal([]byte(doc), &tree); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out, err := yaml.Marshal(tree)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-yaml; charset=utf-8")
	_, _ = w.Write(out)
}

// requestError carries a client-facing status and message.
type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &requestError{status: http.StatusBadRequest, msg: msg}
}

// writeServiceError maps domain errors onto statuses. Anything unrecognised
// is logged and reported as a bare 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		reqErr *requestError
		valErr *validation.Error
	)
	if rej, ok := admission.IsRejection(err); ok {
		writeError(w, http.StatusBadRequest, rej)
		return
	}
	switch {
	case errors.As(err, &reqErr):
		writeError(w, reqErr.status, reqErr)
	case errors.As(err, &valErr):
		writeError(w, http.StatusBadRequest, valErr)
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusForbidden, auth.ErrUnauthorized)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, store.ErrNotFound)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func wantsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json")
}

func mediaType(header string) string {
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}

func readJSON(body io.ReadCloser, dest any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

// readOptionalJSON is readJSON for bodies that may be empty.
func readOptionalJSON(body io.ReadCloser, dest any) error {
	err := readJSON(body, dest)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// bodyError turns a body read failure into a request error.
func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
	}
	return badRequest("invalid request body")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, errors.New("not found"))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid message id")
	}
	return id, nil
}
