package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/menootpass/admin-gemitra/libs/mailer"
	"github.com/menootpass/admin-gemitra/libs/refcodec"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	adminCookieName          = "gemitra_admin_session"
	adminSessionDuration     = 24 * time.Hour
	adminPasswordCost        = 12
	defaultAdminRole         = "staff"
	defaultCatalogStoreURL   = "https://script.google.com/macros/s/AKfycbxKHMKh5fs4l0QcYDq2wdO_Z0HoSvv1OwhHzVaE94m1-A1QgtakQ43xuA0S2Uums1xinA/exec"
	defaultTransactionURL    = "https://script.google.com/macros/s/AKfycbzCAQWWkb6L86pffPllUQgacS8JPnLSkqmrr7ypFVA3dqT1ndYTk5YXLtUlu-HKrCsfLQ/exec"
	defaultStoreTimeout      = 15 * time.Second
	defaultReportTimezone    = "Asia/Jakarta"
	reportTimezoneFallback   = 7 * 60 * 60
	devCORSOriginLocalhost   = "http://localhost:3000"
	devCORSOriginLoopback    = "http://127.0.0.1:3000"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
	requestIDHeader          = "X-Request-ID"
)

var adminRoles = []string{"admin", "staff"}

type Config struct {
	Addr                   string
	Env                    string
	DatabaseURL            string
	PublicBaseURL          string
	AppSigningSecret       string
	CatalogStoreURL        string
	TransactionStoreURL    string
	StoreTimeout           time.Duration
	ImageBaseURL           string
	ReportTimezone         string
	BootstrapAdminEmail    string
	BootstrapAdminPassword string
	BootstrapAdminName     string
	ResendAPIKey           string
	MailerFromAddress      string
	ReportEmailTo          []string
}

type App struct {
	cfg *Config
	db  *sql.DB
	log *slog.Logger

	store          SheetStore
	codec          *refcodec.Codec
	mailer         *mailer.Mailer
	reportLocation *time.Location

	// test hooks for database-backed handlers
	adminAuthenticate    func(ctx context.Context, email, password string) (*AdminSession, error)
	adminCreate          func(ctx context.Context, input AdminInput) (*Admin, error)
	adminSeed            func(ctx context.Context, input AdminInput) (*Admin, error)
	adminList            func(ctx context.Context) ([]Admin, error)
	recordReportDelivery func(ctx context.Context, delivery ReportDelivery) error
	listReportDeliveries func(ctx context.Context, limit int) ([]ReportDelivery, error)
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string { return e.Message }

func main() {
	if err := loadDotEnvFile(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp wires the runtime dependencies for cfg. The database handle may be
// nil for commands that only talk to the sheet store.
func newApp(cfg *Config, db *sql.DB, logger *slog.Logger) *App {
	httpClient := &http.Client{Timeout: cfg.StoreTimeout}

	var mailProvider mailer.Provider
	if cfg.ResendAPIKey != "" {
		mailProvider = mailer.NewResendProvider(cfg.ResendAPIKey)
	} else {
		mailProvider = mailer.NewLogProvider(logger)
	}
	logger.Info("mailer initialized", "provider", mailProvider.Name())

	app := &App{
		cfg: cfg,
		db:  db,
		log: logger,
		store: &HTTPSheetStore{
			CatalogURL:     cfg.CatalogStoreURL,
			TransactionURL: cfg.TransactionStoreURL,
			Client:         httpClient,
			Log:            logger,
		},
		codec:          refcodec.New(cfg.ImageBaseURL, logger),
		mailer:         mailer.New(mailProvider, cfg.MailerFromAddress),
		reportLocation: loadReportLocation(cfg.ReportTimezone, logger),
	}

	if db != nil {
		app.adminAuthenticate = app.authenticateAdminCredentials
		app.adminCreate = app.storeCreateAdmin
		app.adminSeed = app.storeSeedFirstAdmin
		app.adminList = app.storeListAdmins
		app.recordReportDelivery = app.storeRecordReportDelivery
		app.listReportDeliveries = app.storeListReportDeliveries
	}
	return app
}

func openDatabase(ctx context.Context, cfg *Config) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func loadReportLocation(name string, logger *slog.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("report timezone unavailable, using fixed offset", "timezone", name, "err", err)
		return time.FixedZone("WIB", reportTimezoneFallback)
	}
	return loc
}

func (a *App) newRouter() *gin.Engine {
	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	r.Use(gin.Recovery())
	r.Use(a.requestIDMiddleware())
	r.Use(a.loggingMiddleware())
	r.Use(a.corsMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	a.registerAuthRoutes(api)

	admin := api.Group("")
	admin.Use(a.requireAdminSession())
	a.registerCatalogRoutes(admin)
	a.registerReportRoutes(admin)
	admin.GET("/admins", a.requireRole("admin"), a.listAdminsHandler)
	admin.POST("/admins", a.requireRole("admin"), a.createAdminHandler)

	return r
}

// serve expects migrations to have run.
func (a *App) serve(ctx context.Context) error {
	if err := a.bootstrapAdmin(ctx); err != nil {
		return err
	}

	a.log.Info(
		"runtime configuration",
		"env", a.cfg.Env,
		"addr", a.cfg.Addr,
		"store_timeout", a.cfg.StoreTimeout.String(),
		"report_timezone", a.reportLocation.String(),
	)

	server := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting gin API", "addr", a.cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("shutting down gin API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func loadConfig() (*Config, error) {
	databaseURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if databaseURL == "" {
		host := valueFromEnvKeys("PGHOST", "POSTGRES_HOST")
		if host == "" {
			host = "127.0.0.1"
		}
		port := valueFromEnvKeys("PGPORT", "POSTGRES_PORT")
		if port == "" {
			port = "5432"
		}
		dbname := valueFromEnvKeys("PGDATABASE", "POSTGRES_DB")
		user := valueFromEnvKeys("PGUSER", "POSTGRES_USER")
		password := valueFromEnvKeys("PGPASSWORD", "POSTGRES_PASSWORD")
		sslmode := valueFromEnvKeys("PGSSLMODE", "POSTGRES_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		if dbname != "" && user != "" {
			databaseURL = (&url.URL{
				Scheme:   "postgres",
				User:     url.UserPassword(user, password),
				Host:     host + ":" + port,
				Path:     "/" + dbname,
				RawQuery: "sslmode=" + sslmode,
			}).String()
		}
	}
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or PG*/POSTGRES_* variables must be configured")
	}

	secret := strings.TrimSpace(os.Getenv("APP_SIGNING_SECRET"))
	if len(secret) < 16 {
		return nil, fmt.Errorf("APP_SIGNING_SECRET must be at least 16 characters")
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = strings.TrimSpace(os.Getenv("NODE_ENV"))
	}
	if env == "" {
		env = "development"
	}

	cfg := &Config{
		Addr:                   valueOrDefault("GIN_ADDR", ":8080"),
		Env:                    env,
		DatabaseURL:            databaseURL,
		PublicBaseURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")), "/"),
		AppSigningSecret:       secret,
		CatalogStoreURL:        valueFromEnvKeys("CATALOG_STORE_URL", "NEXT_PUBLIC_GEMITRA_APP_SCRIPT_URL"),
		TransactionStoreURL:    valueOrDefault("TRANSACTION_STORE_URL", defaultTransactionURL),
		StoreTimeout:           defaultStoreTimeout,
		ImageBaseURL:           valueOrDefault("IMAGE_BASE_URL", refcodec.DefaultImageBaseURL),
		ReportTimezone:         valueOrDefault("REPORT_TIMEZONE", defaultReportTimezone),
		BootstrapAdminEmail:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL")),
		BootstrapAdminPassword: strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")),
		BootstrapAdminName:     valueOrDefault("BOOTSTRAP_ADMIN_NAME", "Administrator"),
		ResendAPIKey:           strings.TrimSpace(os.Getenv("RESEND_API_KEY")),
		MailerFromAddress:      valueOrDefault("MAILER_FROM_ADDRESS", "noreply@gemitra.local"),
		ReportEmailTo:          mailer.SplitRecipients(os.Getenv("REPORT_EMAIL_TO")),
	}
	if cfg.CatalogStoreURL == "" {
		cfg.CatalogStoreURL = defaultCatalogStoreURL
	}

	for key, value := range map[string]string{
		"CATALOG_STORE_URL":     cfg.CatalogStoreURL,
		"TRANSACTION_STORE_URL": cfg.TransactionStoreURL,
	} {
		if !isAbsoluteHTTPURL(value) {
			return nil, fmt.Errorf("%s must be an absolute http(s) URL", key)
		}
	}

	if rawTimeout := strings.TrimSpace(os.Getenv("STORE_TIMEOUT_SECONDS")); rawTimeout != "" {
		seconds, err := strconv.Atoi(rawTimeout)
		if err != nil {
			return nil, fmt.Errorf("STORE_TIMEOUT_SECONDS must be a whole number")
		}
		if seconds <= 0 {
			return nil, fmt.Errorf("STORE_TIMEOUT_SECONDS must be > 0")
		}
		cfg.StoreTimeout = time.Duration(seconds) * time.Second
	}

	if (cfg.BootstrapAdminEmail == "") != (cfg.BootstrapAdminPassword == "") {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_EMAIL and BOOTSTRAP_ADMIN_PASSWORD must be set together")
	}

	return cfg, nil
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func loadDotEnvFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, raw := range strings.Split(string(content), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.Trim(strings.TrimSpace(line[idx+1:]), "\"")
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func valueFromEnvKeys(keys ...string) string {
	for _, key := range keys {
		value := strings.TrimSpace(os.Getenv(key))
		if value != "" {
			return value
		}
	}
	return ""
}

func (a *App) runMigrations(ctx context.Context) error {
	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return err
	}

	if _, err := a.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		var exists bool
		if err := a.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, file).Scan(&exists); err != nil {
			return err
		}
		if exists {
			continue
		}

		content, err := migrationFiles.ReadFile(filepath.Join("migrations", file))
		if err != nil {
			return err
		}

		tx, err := a.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, file); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}

		a.log.Info("applied migration", "file", file)
	}

	return nil
}

func (a *App) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", c.GetString("requestID"),
		)
	}
}

func (a *App) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := strings.TrimSpace(c.GetHeader("Origin"))
		if a.isAllowedCORSOrigin(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		c.Next()
	}
}

func (a *App) isAllowedCORSOrigin(origin string) bool {
	if origin == "" || a.cfg == nil {
		return false
	}
	if a.cfg.PublicBaseURL != "" && origin == a.cfg.PublicBaseURL {
		return true
	}
	if !strings.EqualFold(a.cfg.Env, "development") {
		return false
	}
	return origin == devCORSOriginLocalhost || origin == devCORSOriginLoopback
}

func writeAPIError(c *gin.Context, err error) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr.Code, "message": apiErr.Message})
		return
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) && storeErr.Status == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_rejected", "message": storeErr.Message})
		return
	}
	if storeErr != nil || errors.Is(err, errStoreUnavailable) {
		c.JSON(http.StatusBadGateway, gin.H{"error": "store_unavailable", "message": err.Error()})
		return
	}

	if errors.Is(err, errRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "Record not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": err.Error()})
}
