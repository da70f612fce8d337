// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ai-chat-backend/internal/domain"
	"ai-chat-backend/internal/domain/model"
	"ai-chat-backend/internal/settings"
	"ai-chat-backend/internal/usecase"

	"github.com/go-chi/chi/v5"
)

// --- shared response plumbing ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP status codes. Anything unmapped is
// a 500 with a generic body so internals never leak to the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrConversationBusy):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrBudgetExceeded):
		status, msg = http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, domain.ErrRateLimited):
		status, msg = http.StatusTooManyRequests, err.Error()
	case errors.Is(err, domain.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, err.Error()
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// --- session ---

func sessionCreateHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			writeError(w, fmt.Errorf("%w: user_id is required", domain.ErrInvalidArgument))
			return
		}
		token, err := auth.Mint(w, req.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"token": token})
	}
}

func sessionClearHandler(auth *AuthManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- models ---

func modelsHandler(uc usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		models, err := uc.ListModels(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": models})
	}
}

// --- settings ---

func settingsGetHandler(store *settings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := store.Get(r.Context(), userIDFrom(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func settingsUpdateHandler(store *settings.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st model.Settings
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			writeError(w, fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument))
			return
		}
		// The session owns the settings row regardless of what the body says.
		st.UserID = userIDFrom(r)
		if err := store.Update(r.Context(), st); err != nil {
			writeError(w, err)
			return
		}
		updated, err := store.Get(r.Context(), st.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// --- conversations ---

func conversationCreateHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		// An empty body is fine; the user's default model applies.
		_ = json.NewDecoder(r.Body).Decode(&req)
		conv, err := uc.Start(r.Context(), userIDFrom(r), req.Model)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conv)
	}
}

func conversationListHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", 20)
		convs, err := uc.List(r.Context(), userIDFrom(r), offset, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data":   convs,
			"offset": offset,
			"limit":  limit,
		})
	}
}

func conversationSearchHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		limit := queryInt(r, "limit", 20)
		convs, err := uc.Search(r.Context(), userIDFrom(r), q, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": convs, "query": q})
	}
}

func conversationGetHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, err := uc.Get(r.Context(), userIDFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conv)
	}
}

func conversationDeleteHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Delete(r.Context(), userIDFrom(r), chi.URLParam(r, "id")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func conversationRenameHandler(uc usecase.ConversationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument))
			return
		}
		if err := uc.Rename(r.Context(), userIDFrom(r), chi.URLParam(r, "id"), req.Title); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- context status ---

func contextStatusHandler(uc usecase.ChatUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := uc.ContextStatus(r.Context(), userIDFrom(r), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"total_tokens": st.TotalTokens,
			"limit":        st.Limit,
			"percentage":   st.Percentage,
			"tier":         st.Tier.String(),
		})
	}
}

// --- export ---

func exportHandler(uc usecase.ExportUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := usecase.ExportFormat(r.URL.Query().Get("format"))
		if format == "" {
			format = usecase.FormatMarkdown
		}
		art, err := uc.Export(r.Context(), userIDFrom(r), chi.URLParam(r, "id"), format)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", art.MIME)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(art.Content))
	}
}

// --- pricing admin ---

type pricingRequest struct {
	ModelName    string   `json:"model_name"`
	InputUSD     *float64 `json:"input_usd_per_mtok"`
	OutputUSD    *float64 `json:"output_usd_per_mtok"`
	ContextLimit *int     `json:"context_limit"`
}

func pricingListHandler(uc usecase.PricingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := uc.List(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": rows})
	}
}

func pricingGetHandler(uc usecase.PricingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		row, err := uc.Get(r.Context(), chi.URLParam(r, "model"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

func pricingCreateHandler(uc usecase.PricingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pricingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument))
			return
		}
		var in, out float64
		var limit int
		if req.InputUSD != nil {
			in = *req.InputUSD
		}
		if req.OutputUSD != nil {
			out = *req.OutputUSD
		}
		if req.ContextLimit != nil {
			limit = *req.ContextLimit
		}
		row, err := uc.Create(r.Context(), req.ModelName, in, out, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, row)
	}
}

func pricingUpdateHandler(uc usecase.PricingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req pricingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: malformed body", domain.ErrInvalidArgument))
			return
		}
		row, err := uc.Update(r.Context(), chi.URLParam(r, "model"), req.InputUSD, req.OutputUSD, req.ContextLimit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, row)
	}
}

func pricingDeleteHandler(uc usecase.PricingUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := uc.Delete(r.Context(), chi.URLParam(r, "model")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
