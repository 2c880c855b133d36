package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aurora92101/BetLicense/internal/api"
	"github.com/aurora92101/BetLicense/internal/config"
	"github.com/aurora92101/BetLicense/internal/database"
	"github.com/aurora92101/BetLicense/internal/realtime"
	"github.com/aurora92101/BetLicense/internal/stats"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const defaultSessionKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

// envDefault lets every flag be overridden by the environment, so the
// service runs from a .env file without any arguments.
func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt64Default(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

var (
	addr           string
	dsn            string
	sessionKey     string
	fileURLSecret  string
	dataDir        string
	allowedOrigins stringSliceFlag
	keepAlive      time.Duration
	maxUploadBytes int64
)

func main() {
	// missing .env is fine, flags and the environment still apply
	godotenv.Load()

	flag.StringVar(&addr, "addr", envDefault("SERVER_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envDefault("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&sessionKey, "session-key", envDefault("SESSION_KEY", defaultSessionKey), "base64 encoded session signing key")
	flag.StringVar(&fileURLSecret, "file-url-secret", envDefault("FILE_URL_SECRET", "dev-secret"), "secret for signing attachment download links")
	flag.StringVar(&dataDir, "data-dir", envDefault("DATA_DIR", "private"), "directory for attachment storage")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.DurationVar(&keepAlive, "keep-alive", envDurationDefault("KEEP_ALIVE_INTERVAL", config.DefaultKeepAliveInterval), "interval between SSE keep-alive frames")
	flag.Int64Var(&maxUploadBytes, "max-upload-bytes", envInt64Default("MAX_UPLOAD_BYTES", config.DefaultMaxUploadBytes), "attachment upload size limit in bytes")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins = strings.Split(envDefault("ALLOWED_ORIGINS", "http://localhost:3000"), ",")
	}

	logger := log.New(os.Stderr, "[bet-license] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, sessionKey, fileURLSecret, dataDir, allowedOrigins, keepAlive, maxUploadBytes)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("db migrate:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	bus := realtime.NewEventBus(logger, statsUpdater)

	srv := api.NewChatApp(mux, logger, bus, dbConn, statsUpdater, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
