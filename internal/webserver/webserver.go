package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/y0ug/malxplain/internal/database"
	"github.com/y0ug/malxplain/internal/database/models"
	"github.com/y0ug/malxplain/internal/malxplain"
	"github.com/y0ug/malxplain/internal/model"
	"github.com/y0ug/malxplain/internal/report"
	"github.com/y0ug/malxplain/pkg/auth"
)

// WebServer serves the read-only report API.
type WebServer struct {
	Database database.Database
	Registry *model.Registry
	config   *WebserverConfig
	authMw   *auth.Middleware
	limiter  *clientLimiter
	Logger   *logrus.Logger
}

// NewWebServer initializes a new WebServer. reg may be nil.
func NewWebServer(db database.Database, reg *model.Registry, config *WebserverConfig, authConfig *auth.Config, logger *logrus.Logger) *WebServer {
	return &WebServer{
		Database: db,
		Registry: reg,
		config:   config,
		authMw:   auth.NewMiddleware(authConfig, logger),
		limiter:  newClientLimiter(config.RateLimit, config.RateBurst, config.TrustProxy),
		Logger:   logger,
	}
}

// StartWebServer starts the HTTP server.
func StartWebServer(ctx context.Context, ws *WebServer) (*http.Server, error) {
	router := ws.InitRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   ws.config.CorsAllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		Debug:            false,
	}
	handler := cors.New(corsOptions).Handler(router)

	server := &http.Server{
		Addr:    ws.config.ListenTo,
		Handler: handler,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start the server in a separate goroutine
	go func() {
		ws.Logger.Infof("Server starting on %s", ws.config.ListenTo)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.Logger.Errorf("ListenAndServe(): %v", err)
		}
	}()

	return server, nil
}

// InitRouter initializes the HTTP routes.
func (ws *WebServer) InitRouter() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(ws.limiter.Middleware)
	api.Use(ws.authMw.AuthMiddleware)

	api.HandleFunc("/stats", ws.handleGetStats).Methods(http.MethodGet)
	api.HandleFunc("/reports", ws.handleGetReports).Methods(http.MethodGet)
	api.HandleFunc("/reports/{id}", ws.handleGetReportDetail).Methods(http.MethodGet)
	return r
}

// handleGetReports handles the GET /api/reports endpoint.
func (ws *WebServer) handleGetReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	page, err := strconv.Atoi(query.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	perPage, err := strconv.Atoi(query.Get("per_page"))
	if err != nil || perPage < 1 {
		perPage = 10
	}
	if perPage > 100 {
		perPage = 100
	}

	var filterTier *report.RiskTier
	if riskParam := query.Get("risk"); riskParam != "" {
		tier, err := report.ParseRiskTier(strings.ToUpper(riskParam))
		if err != nil {
			auth.WriteErrorResponse(w, "Invalid risk filter", http.StatusBadRequest)
			return
		}
		filterTier = &tier
	}

	reports, total, err := ws.Database.LoadReportsPaginated(ctx, page, perPage, filterTier)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to load paginated reports")
		auth.WriteErrorResponse(w, "Failed to retrieve reports", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []report.Summary{}
	}

	response := models.ReportsResponse{
		Reports:    reports,
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: models.TotalPages(total, perPage),
	}

	auth.WriteSuccessResponse(w, "Reports retrieved successfully", response)
}

// handleGetReportDetail handles the GET /api/reports/{id} endpoint.
func (ws *WebServer) handleGetReportDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	rep, err := ws.Database.GetReport(ctx, id)
	if errors.Is(err, database.ErrReportNotFound) {
		auth.WriteErrorResponse(w, "Report not found", http.StatusNotFound)
		return
	}
	if err != nil {
		ws.Logger.WithError(err).WithField("analysis_id", id).Error("Failed to get report")
		auth.WriteErrorResponse(w, "Failed to retrieve report", http.StatusInternalServerError)
		return
	}

	auth.WriteSuccessResponse(w, "Report retrieved successfully", models.ReportDetailResponse{Report: rep})
}

// handleGetStats handles the GET /api/stats endpoint.
func (ws *WebServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := malxplain.GetStats(r.Context(), ws.Database, ws.Registry)
	if err != nil {
		ws.Logger.WithError(err).Error("Failed to retrieve stats")
		auth.WriteErrorResponse(w, "Failed to retrieve statistics", http.StatusInternalServerError)
		return
	}

	auth.WriteSuccessResponse(w, "Statistics retrieved successfully", stats)
}
