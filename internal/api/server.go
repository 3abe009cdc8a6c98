package api

import (
	"log/slog"
	"net/http"

	"github.com/MrEthical07/sellerhub"
	"github.com/MrEthical07/sellerhub/catalog"
	"github.com/MrEthical07/sellerhub/middleware"
	"github.com/gorilla/mux"
)

// Config tunes the HTTP layer.
type Config struct {
	// Production hides internal error causes from responses.
	Production bool
	// CORSOrigin is the single browser origin allowed to send credentials.
	CORSOrigin string
	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
	// MaxBodyBytes caps JSON bodies. Multipart bodies are capped by the image limits.
	MaxBodyBytes int64
}

// Server holds the dependencies shared by every handler.
type Server struct {
	engine   *sellerhub.Engine
	products *catalog.Service
	logger   *slog.Logger
	cfg      Config
}

// New returns a Server. logger defaults to slog.Default().
func New(engine *sellerhub.Engine, products *catalog.Service, logger *slog.Logger, cfg Config) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	return &Server{
		engine:   engine,
		products: products,
		logger:   logger,
		cfg:      cfg,
	}
}

// Routes builds the router. The refresh and logout endpoints are deliberately
// outside the Access Guard: they authenticate with the refresh cookie alone.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(s.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)

	r.Use(s.requestContext, s.accessLog, s.recoverer, s.cors)

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics).Methods(http.MethodGet)
	}

	guard := middleware.Guard(s.engine, s.fail)

	auth := r.PathPrefix("/seller/auth").Subrouter()
	auth.HandleFunc("/google-register", s.googleRegister).Methods(http.MethodPost, http.MethodOptions)
	auth.HandleFunc("/refresh-token", s.refreshToken).Methods(http.MethodGet, http.MethodOptions)
	auth.HandleFunc("/logout", s.logout).Methods(http.MethodGet, http.MethodOptions)
	auth.Handle("/verify-user", guard(http.HandlerFunc(s.verifyUser))).Methods(http.MethodGet, http.MethodOptions)

	product := r.PathPrefix("/seller/product").Subrouter()
	product.Use(guard)
	product.HandleFunc("/get-active-user-products", s.listProducts).Methods(http.MethodGet, http.MethodOptions)
	product.HandleFunc("/add-product", s.addProduct).Methods(http.MethodPost, http.MethodOptions)
	product.HandleFunc("/get-product-with-id/{id}", s.getProduct).Methods(http.MethodGet, http.MethodOptions)
	product.HandleFunc("/edit-product", s.editProduct).Methods(http.MethodPut, http.MethodOptions)

	return r
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.fail(w, r, &sellerhub.Error{Kind: sellerhub.KindNotFound, Message: "route not found: " + r.URL.Path})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, envelope{
		"status":  "fail",
		"message": "method not allowed",
	})
}
