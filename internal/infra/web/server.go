// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/infra/logging"
	infraRedis "ai-chat-backend/internal/infra/redis"
	"ai-chat-backend/internal/settings"
	"ai-chat-backend/internal/tokenizer"
	"ai-chat-backend/internal/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Server wires the chat API routes to the use cases.
type Server struct {
	convUC    usecase.ConversationUseCase
	chatUC    usecase.ChatUseCase
	exportUC  usecase.ExportUseCase
	pricingUC usecase.PricingUseCase
	settings  *settings.Store
	counter   tokenizer.TokenCounter
	tokens    *infraRedis.TokenCountCache
	limiter   *infraRedis.RateLimiter

	auth          *AuthManager
	adminKey      string
	allowedOrigin string
	log           *zerolog.Logger
}

func NewServer(
	convUC usecase.ConversationUseCase,
	chatUC usecase.ChatUseCase,
	exportUC usecase.ExportUseCase,
	pricingUC usecase.PricingUseCase,
	st *settings.Store,
	counter tokenizer.TokenCounter,
	tokens *infraRedis.TokenCountCache,
	limiter *infraRedis.RateLimiter,
	auth *AuthManager,
	adminKey string,
	allowedOrigin string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		convUC:        convUC,
		chatUC:        chatUC,
		exportUC:      exportUC,
		pricingUC:     pricingUC,
		settings:      st,
		counter:       counter,
		tokens:        tokens,
		limiter:       limiter,
		auth:          auth,
		adminKey:      adminKey,
		allowedOrigin: allowedOrigin,
		log:           logger,
	}
}

// Router builds the chi router with all API routes registered.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID(), RequestLog(s.log), Recover(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", sessionCreateHandler(s.auth))
		r.Delete("/auth/session", sessionClearHandler(s.auth))

		// User-facing API behind the session middleware.
		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Get("/models", modelsHandler(s.chatUC))
			r.Get("/settings", settingsGetHandler(s.settings))
			r.Put("/settings", settingsUpdateHandler(s.settings))
			r.Get("/token-count", s.liveTokenCount)

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", conversationCreateHandler(s.convUC))
				r.Get("/", conversationListHandler(s.convUC))
				r.Get("/search", conversationSearchHandler(s.convUC))

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", conversationGetHandler(s.convUC))
					r.Delete("/", conversationDeleteHandler(s.convUC))
					r.Put("/title", conversationRenameHandler(s.convUC))
					r.Get("/context", contextStatusHandler(s.chatUC))
					r.Get("/export", exportHandler(s.exportUC))
					r.With(s.rateLimit("send", 30, time.Minute)).
						Post("/messages", s.sendMessage)
				})
			})
		})

		// Pricing administration behind the static API key.
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Route("/admin/pricing", func(r chi.Router) {
				r.Get("/", pricingListHandler(s.pricingUC))
				r.Post("/", pricingCreateHandler(s.pricingUC))
				r.Get("/{model}", pricingGetHandler(s.pricingUC))
				r.Put("/{model}", pricingUpdateHandler(s.pricingUC))
				r.Delete("/{model}", pricingDeleteHandler(s.pricingUC))
			})
		})
	})

	return r
}

type ctxKey string

const ctxKeyUserID ctxKey = "web.user_id"

func userIDFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKeyUserID).(string)
	return id
}

// sessionMiddleware authenticates the session JWT and stashes the user ID in
// the request context.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.auth.ParseFromRequest(r)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := r.Context()
		ctx = context.WithValue(ctx, ctxKeyUserID, claims.UserID())
		ctx = logging.WithUserID(ctx, claims.UserID())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminMiddleware provides simple Bearer token authentication for the pricing
// admin API.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.log.Error().Msg("Admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.adminKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit caps how often an authenticated user may hit an endpoint. Fails
// open when the limiter backend is unreachable.
func (s *Server) rateLimit(action string, limit int, window time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := infraRedis.UserActionKey(userIDFrom(r), action)
			ok, err := s.limiter.Allow(r.Context(), key, limit, window)
			if err != nil {
				logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				writeError(w, domain.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
