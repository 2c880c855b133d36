package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/aurora92101/BetLicense/internal/capability"
	"github.com/aurora92101/BetLicense/internal/config"
	"github.com/aurora92101/BetLicense/internal/database"
	"github.com/aurora92101/BetLicense/internal/filestore"
	"github.com/aurora92101/BetLicense/internal/readtrack"
	"github.com/aurora92101/BetLicense/internal/realtime"
	"github.com/aurora92101/BetLicense/internal/stats"
	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
)

type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	bus            *realtime.EventBus
	reads          *readtrack.ReadTracker
	signer         *capability.Signer
	files          *filestore.Store
	stats          stats.StatsProvider
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
	keepAlive      time.Duration
	maxUploadBytes int64

	generateShortId func() (string, error)
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, bus *realtime.EventBus, db database.ChatRepository, sp stats.StatsProvider, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:             logger,
		db:              db,
		bus:             bus,
		reads:           readtrack.NewReadTracker(db),
		signer:          capability.NewSigner(cfg.FileURLSecret),
		files:           filestore.NewStore(cfg.DataDir),
		stats:           sp,
		signingKey:      cfg.SessionKey,
		allowedOrigins:  cfg.AllowedOrigins,
		keepAlive:       cfg.KeepAliveInterval,
		maxUploadBytes:  cfg.MaxUploadBytes,
		generateShortId: shortid.Generate,
	}

	if sp != nil {
		sp.RegisterMetric(stats.ActiveStreams)
		sp.RegisterMetric(stats.MessagesCreated)
		sp.RegisterMetric(stats.AttachmentsCreated)
	}

	if s.keepAlive <= 0 {
		s.keepAlive = realtime.DefaultKeepAliveInterval
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = config.DefaultMaxUploadBytes
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("POST /api/rooms/ensure", s.authMiddleware(s.ensureOwnRoom))
	mux.Handle("GET /api/rooms/me/unread", s.authMiddleware(s.ownerUnread))
	mux.Handle("GET /api/rooms/k/{pid}", s.authMiddleware(s.roomSnapshot))
	mux.Handle("GET /api/rooms/k/{pid}/stream", s.authMiddleware(s.streamRoom))
	mux.Handle("GET /api/rooms/k/{pid}/ws", s.authMiddleware(s.serveWs))
	mux.Handle("POST /api/rooms/k/{pid}/message", s.authMiddleware(s.createMessage))
	mux.Handle("POST /api/rooms/k/{pid}/upload", s.authMiddleware(s.uploadAttachment))
	mux.Handle("GET /api/rooms/k/{pid}/files/{attId}", s.authMiddleware(s.downloadAttachment))
	mux.Handle("GET /api/rooms/k/{pid}/files/{attId}/view", s.authMiddleware(s.viewAttachment))
	mux.Handle("POST /api/rooms/k/{pid}/read", s.authMiddleware(s.markRead))
	mux.Handle("POST /api/admin/rooms/ensure", s.authMiddleware(s.adminEnsureRoom))
	mux.Handle("GET /api/admin/rooms", s.authMiddleware(s.adminListRooms))
	mux.Handle("POST /api/admin/rooms/k/{pid}/status", s.authMiddleware(s.setRoomStatus))
	mux.HandleFunc("GET /healthz", s.healthCheck)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
