package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MinhTriCamlycoin/funprofile-fork/funsync"
	"github.com/MinhTriCamlycoin/funprofile-fork/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.AppLogLevel),
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	poolConfig.MaxConns = cfg.DBMaxConns
	poolConfig.MinConns = cfg.DBMinConns
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}

	store, err := funsync.NewPgStore(ctx, pool, logger)
	if err != nil {
		return err
	}

	serviceConfig := &funsync.ServiceConfig{
		AppName:         "funsyncd",
		ClientRateLimit: cfg.ClientRateLimit,
		UserRateLimit:   cfg.UserRateLimit,
	}

	// Redis-backed limiters share windows across instances; without Redis
	// each warm process enforces its own.
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return err
		}
		defer redisClient.Close()

		serviceConfig.ClientLimiter = funsync.NewRedisLimiter(
			redisClient, "ratelimit:client", cfg.ClientRateLimit, funsync.RateWindow)
		serviceConfig.UserLimiter = funsync.NewRedisLimiter(
			redisClient, "ratelimit:user", cfg.UserRateLimit, funsync.RateWindow)
		logger.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	}

	service := funsync.NewSyncService(store, serviceConfig, logger)
	jwtAuth := funsync.NewJWTAuth(cfg.JWTSecret)
	authenticator := funsync.NewAuthenticator(jwtAuth, store)
	handlers := funsync.NewHTTPSyncHandlers(service, authenticator, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handlers.HandleHealth)
	mux.HandleFunc("POST /sso/sync-data", handlers.HandleSyncData)
	mux.HandleFunc("OPTIONS /sso/sync-data", handlers.HandleSyncData)

	if cfg.EnableSignin {
		mux.HandleFunc("POST /dev-signin", devSigninHandler(store, jwtAuth, logger))
		logger.Warn("dev signin endpoint enabled - do not use in production")
	}

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("sync server listening", "addr", cfg.HTTPAddr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// devSigninHandler mints a signed access token plus a cross-platform session
// row for a named user and platform. Any password is accepted; local
// development only.
func devSigninHandler(store funsync.Store, jwtAuth *funsync.JWTAuth, logger *slog.Logger) http.HandlerFunc {
	type signinReq struct {
		UserID   string `json:"user_id"`
		ClientID string `json:"client_id"`
		FunID    string `json:"fun_id"`
		Username string `json:"username"`
	}
	type signinResp struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"`
		UserID    string `json:"user_id"`
		ClientID  string `json:"client_id"`
	}

	const tokenTTL = time.Hour

	return func(w http.ResponseWriter, r *http.Request) {
		var req signinReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request", "error_description": "Invalid JSON body"})
			return
		}
		if req.UserID == "" {
			req.UserID = uuid.NewString()
		}
		if req.ClientID == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_request", "error_description": "client_id required"})
			return
		}

		now := time.Now().UTC()
		if err := store.UpsertProfile(r.Context(), &funsync.UserProfile{
			ID:       req.UserID,
			FunID:    req.FunID,
			Username: req.Username,
		}); err != nil {
			logger.Error("dev signin: profile upsert failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "server_error", "error_description": "An unexpected error occurred"})
			return
		}

		token, err := jwtAuth.GenerateToken(req.UserID, req.FunID, req.Username, tokenTTL)
		if err != nil {
			logger.Error("dev signin: token generation failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "server_error", "error_description": "An unexpected error occurred"})
			return
		}

		if err := store.CreateSession(r.Context(), &funsync.CrossPlatformToken{
			ID:                   uuid.NewString(),
			UserID:               req.UserID,
			ClientID:             req.ClientID,
			AccessToken:          token,
			AccessTokenExpiresAt: now.Add(tokenTTL),
			LastUsedAt:           now,
			CreatedAt:            now,
		}); err != nil {
			logger.Error("dev signin: session insert failed", "error", err)
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "server_error", "error_description": "An unexpected error occurred"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(signinResp{
			Token:     token,
			ExpiresIn: int64(tokenTTL.Seconds()),
			UserID:    req.UserID,
			ClientID:  req.ClientID,
		})
		logger.Info("issued dev token", "user_id", req.UserID, "client_id", req.ClientID)
	}
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
