package intake

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/klasroom/taskintake/internal/auth"
	"github.com/klasroom/taskintake/internal/quota"
)

// RegisterRoutes mounts the parse endpoint and the usage endpoint.
func RegisterRoutes(r chi.Router, pipeline *Pipeline, guard quota.Guard) {
	r.Post("/api/tasks/parse", handleParse(pipeline))
	r.Get("/api/usage", handleUsage(guard))
}

func handleParse(pipeline *Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, &ParseResponse{
				Errors: []FieldError{{
					Field:   "authorization",
					Code:    CodeUnauthorized,
					Message: "authentication required",
				}},
				FieldsNeedingReview: []string{},
			})
			return
		}

		var req ParseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, &ParseResponse{
				Errors: []FieldError{{
					Field:   "request",
					Code:    CodeMissingFields,
					Message: "request body is not valid JSON",
				}},
				FieldsNeedingReview: []string{},
			})
			return
		}

		resp := pipeline.Run(r.Context(), identity.TokenID, req)
		writeJSON(w, statusFor(resp), resp)
	}
}

func handleUsage(guard quota.Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, ok := auth.FromContext(r.Context())
		if !ok {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}

		allowance, err := guard.CheckAllowed(r.Context(), identity.TokenID)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, allowance)
	}
}

// statusFor maps the pipeline outcome onto an HTTP status code.
func statusFor(resp *ParseResponse) int {
	if resp.Success {
		return http.StatusOK
	}
	for _, e := range resp.Errors {
		switch e.Code {
		case CodeMissingFields, CodeMissingAudio, CodeMissingText:
			return http.StatusBadRequest
		case CodeUnauthorized, CodeInvalidToken:
			return http.StatusUnauthorized
		case CodeQuotaExceeded:
			return http.StatusTooManyRequests
		case CodeAudioTooLong:
			return http.StatusRequestEntityTooLarge
		case CodeAINotConfigured:
			return http.StatusServiceUnavailable
		case CodeAIServiceError:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
