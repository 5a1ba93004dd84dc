package main

import (
	"context"
	"database/sql"
	"expvar"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/jsonlog"
	"dearcard.kr/internal/mailer"
	"dearcard.kr/internal/storage"
)

// Build information, injected at link time.
var (
	buildTime string
	version   string
)

// config holds every runtime setting. Secrets default from environment
// variables so deployments can configure the service without flags.
type config struct {
	port int
	env  string
	db   struct {
		dsn          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  string
	}
	limiter struct {
		enabled bool
		rps     float64
		burst   int
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	storage struct {
		url        string
		serviceKey string
		bucket     string
	}
	jwt struct {
		secret       string
		legacyTokens bool // Accept the unsigned legacy token format.
	}
	notify struct {
		adminEmail string // Recipient for new-registration notifications.
	}
	maps struct {
		naverClientID string
		kakaoAppKey   string
	}
}

// application holds the dependencies shared by every handler.
type application struct {
	config   config
	logger   *jsonlog.Logger
	models   data.Models
	mailer   mailer.Mailer
	storage  *storage.Client
	handlers map[string]resourceHandler
	wg       sync.WaitGroup
}

func main() {
	// Load a local .env if present; real deployments set the environment
	// directly.
	_ = godotenv.Load()

	var cfg config

	flag.IntVar(&cfg.port, "port", envInt("PORT", 4000), "API server port")
	flag.StringVar(&cfg.env, "env", envString("ENV", "development"), "Environment (development|staging|production)")

	flag.StringVar(&cfg.db.dsn, "db-dsn", os.Getenv("DATABASE_URL"), "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.IntVar(&cfg.db.maxIdleConns, "db-max-idle-conns", 25, "PostgreSQL max idle connections")
	flag.StringVar(&cfg.db.maxIdleTime, "db-max-idle-time", "15m", "PostgreSQL max connection idle time")

	flag.BoolVar(&cfg.limiter.enabled, "limiter-enabled", true, "Enable rate limiter")
	flag.Float64Var(&cfg.limiter.rps, "limiter-rps", 10, "Rate limiter maximum requests per second")
	flag.IntVar(&cfg.limiter.burst, "limiter-burst", 20, "Rate limiter maximum burst")

	flag.StringVar(&cfg.smtp.host, "smtp-host", envString("SMTP_HOST", ""), "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", envInt("SMTP_PORT", 587), "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", os.Getenv("SMTP_USERNAME"), "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", os.Getenv("SMTP_PASSWORD"), "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", envString("SMTP_SENDER", "Dearcard <no-reply@dearcard.kr>"), "SMTP sender")

	flag.StringVar(&cfg.storage.url, "storage-url", os.Getenv("STORAGE_URL"), "Object storage API base URL")
	flag.StringVar(&cfg.storage.serviceKey, "storage-service-key", os.Getenv("STORAGE_SERVICE_KEY"), "Object storage service credential")
	flag.StringVar(&cfg.storage.bucket, "storage-bucket", envString("STORAGE_BUCKET", "wedding-images"), "Object storage bucket")

	flag.StringVar(&cfg.jwt.secret, "jwt-secret", os.Getenv("JWT_SECRET"), "JWT signing secret")
	flag.BoolVar(&cfg.jwt.legacyTokens, "legacy-tokens", true, "Accept unsigned legacy tokens")

	flag.StringVar(&cfg.notify.adminEmail, "notify-admin-email", os.Getenv("NOTIFY_ADMIN_EMAIL"), "Recipient for registration notifications")

	flag.StringVar(&cfg.maps.naverClientID, "naver-map-client-id", os.Getenv("NAVER_MAP_CLIENT_ID"), "Naver map client id")
	flag.StringVar(&cfg.maps.kakaoAppKey, "kakao-app-key", os.Getenv("KAKAO_APP_KEY"), "Kakao map app key")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		fmt.Printf("Build time:\t%s\n", buildTime)
		os.Exit(0)
	}

	logger := jsonlog.New(os.Stdout, jsonlog.LevelInfo)

	// A missing signing secret is a deployment mistake everywhere except a
	// developer's machine. Refusing to start beats silently issuing tokens
	// signed with a known value.
	if cfg.jwt.secret == "" {
		if cfg.env != "development" {
			logger.PrintFatal(fmt.Errorf("jwt secret must be configured in %s", cfg.env), nil)
		}
		cfg.jwt.secret = "insecure-development-secret"
		logger.PrintInfo("using insecure development jwt secret", nil)
	}

	db, err := openDB(cfg)
	if err != nil {
		logger.PrintFatal(err, nil)
	}
	defer db.Close()

	logger.PrintInfo("database connection pool established", nil)

	expvar.NewString("version").Set(version)
	expvar.Publish("goroutines", expvar.Func(func() interface{} {
		return runtime.NumGoroutine()
	}))
	expvar.Publish("database", expvar.Func(func() interface{} {
		return db.Stats()
	}))
	expvar.Publish("timestamp", expvar.Func(func() interface{} {
		return time.Now().Unix()
	}))

	app := &application{
		config:  cfg,
		logger:  logger,
		models:  data.NewModels(db),
		mailer:  mailer.New(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
		storage: storage.New(cfg.storage.url, cfg.storage.serviceKey, cfg.storage.bucket),
	}

	err = app.serve()
	if err != nil {
		logger.PrintFatal(err, nil)
	}
}

// openDB opens the connection pool and verifies it with a bounded ping.
func openDB(cfg config) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.db.maxOpenConns)
	db.SetMaxIdleConns(cfg.db.maxIdleConns)

	duration, err := time.ParseDuration(cfg.db.maxIdleTime)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxIdleTime(duration)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// envString reads an environment variable with a fallback.
func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// envInt reads an integer environment variable with a fallback.
func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
