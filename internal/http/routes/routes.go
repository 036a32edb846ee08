package routes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/tripparse/cache"
	"github.com/briangreenhill/tripparse/internal/apierr"
	"github.com/briangreenhill/tripparse/internal/db"
	appmw "github.com/briangreenhill/tripparse/internal/http/middleware"
	"github.com/briangreenhill/tripparse/travel"
)

const (
	serviceName = "travel-data-parser"
	maxBodySize = 1 << 20
)

// Parser is satisfied by *parser.Parser.
type Parser interface {
	Parse(ctx context.Context, kind travel.DataType, link string) (travel.Record, error)
}

// JobService is satisfied by *jobs.Service.
type JobService interface {
	Submit(ctx context.Context, kind travel.DataType, link string) (db.ParseJob, error)
	Get(ctx context.Context, id uuid.UUID) (db.ParseJob, error)
}

type Server struct {
	Router *chi.Mux

	parser         Parser
	cache          cache.Admin
	jobs           JobService
	requestTimeout time.Duration
	version        string
}

type ServerOptions struct {
	Parser         Parser      // nil when no LLM key is configured
	Cache          cache.Admin // nil hides the cache admin routes
	Jobs           JobService  // nil hides the job routes
	Metrics        http.Handler
	AdminToken     string
	CORSOrigins    []string
	RequestTimeout time.Duration
	Version        string
	Logger         zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	s := &Server{
		Router:         r,
		parser:         opts.Parser,
		cache:          opts.Cache,
		jobs:           opts.Jobs,
		requestTimeout: opts.RequestTimeout,
		version:        opts.Version,
	}
	if s.version == "" {
		s.version = "dev"
	}

	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "HTTP_404", "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "HTTP_405", "Method Not Allowed")
	})

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("writing health check response")
		}
	})
	r.Post("/parse-flight", s.handleParse(travel.KindFlight))
	r.Post("/parse-lodging", s.handleParse(travel.KindLodging))

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if s.cache != nil {
		r.Route("/cache", func(cr chi.Router) {
			cr.Use(appmw.RequireAdmin(opts.AdminToken))
			cr.Get("/stats", s.handleCacheStats)
			cr.Get("/info", s.handleCacheInfo)
			cr.Post("/cleanup", s.handleCacheCleanup)
			cr.Delete("/clear", s.handleCacheClear)
		})
	}

	if s.jobs != nil {
		r.Post("/jobs/flight", s.handleSubmitJob(travel.KindFlight))
		r.Post("/jobs/lodging", s.handleSubmitJob(travel.KindLodging))
		r.Get("/jobs/{id}", s.handleGetJob)
	}

	return s
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type parseRequest struct {
	Link string `json:"link"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{
		"message": "Travel Data Parser API",
		"version": s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy", "service": serviceName})
}

func (s *Server) handleParse(kind travel.DataType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		link, ok := s.decodeLink(w, r)
		if !ok {
			return
		}
		if s.parser == nil {
			s.writeError(w, r, http.StatusInternalServerError, "HTTP_500", "Anthropic API key not configured")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()

		log := hlog.FromRequest(r)
		log.Info().Str("kind", string(kind)).Str("url", link).Msg("processing parse request")

		rec, err := s.parser.Parse(ctx, kind, link)
		if err != nil {
			s.writeParseError(w, r, kind, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, rec)
	}
}

func (s *Server) writeParseError(w http.ResponseWriter, r *http.Request, kind travel.DataType, err error) {
	status, code := apierr.Classify(err)
	msg := fmt.Sprintf("%s: %v", code, err)
	if code == apierr.CodeTimeout {
		msg = fmt.Sprintf("Request timeout exceeded (%s). The %s booking page took too long to process.", s.requestTimeout, kind)
	}
	hlog.FromRequest(r).Error().Err(err).Str("code", code).Str("kind", string(kind)).Msg("parse failed")
	s.writeError(w, r, status, code, msg)
}

// decodeLink reads {"link": ...}. It writes a 422 and returns false when the
// body is unusable.
func (s *Server) decodeLink(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req parseRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, http.StatusUnprocessableEntity, apierr.CodeValidation, "Request validation failed: "+err.Error())
		return "", false
	}
	link := strings.TrimSpace(req.Link)
	if link == "" {
		s.writeError(w, r, http.StatusUnprocessableEntity, apierr.CodeValidation, "Request validation failed: link is required")
		return "", false
	}
	return link, true
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("encoding response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	s.writeJSON(w, r, status, ErrorResponse{Error: code, Message: msg, Timestamp: time.Now().UTC()})
}

func isNotFound(err error) bool {
	return errors.Is(err, db.ErrJobNotFound)
}
