package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iudanet/repsync/internal/server/ticket"
)

// SessionIDParam имя параметра маршрута с id сессии
const SessionIDParam = "id"

// TicketMiddleware проверяет тикет сессии из заголовка Authorization.
// Тикет должен быть выдан для сессии из пути запроса. Claims кладутся в
// контекст, см. ticket.FromContext.
func TicketMiddleware(logger *slog.Logger, tickets *ticket.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header", "path", r.URL.Path)
				writeError(w, http.StatusUnauthorized, "missing session ticket")
				return
			}

			// Ожидаем формат: "Bearer <ticket>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				logger.Warn("Invalid Authorization header format")
				writeError(w, http.StatusUnauthorized, "invalid ticket format")
				return
			}

			claims, err := tickets.Validate(parts[1])
			if err != nil {
				logger.Warn("Invalid session ticket", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid session ticket")
				return
			}

			if id := chi.URLParam(r, SessionIDParam); id != "" && id != claims.SessionID {
				logger.Warn("Ticket issued for another session",
					"session_id", id, "ticket_session_id", claims.SessionID)
				writeError(w, http.StatusForbidden, "ticket does not match session")
				return
			}

			logger.Debug("Participant authenticated",
				"session_id", claims.SessionID, "participant_id", claims.ParticipantID)

			next.ServeHTTP(w, r.WithContext(ticket.WithClaims(r.Context(), claims)))
		})
	}
}
