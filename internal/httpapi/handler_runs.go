package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"caneco-bridge/internal/runs"
)

type RunsResponse struct {
	Items []runs.Run `json:"items"`
}

func RunsHandler(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			writeError(w, http.StatusServiceUnavailable, "run history not configured")
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 50
		}
		if limit > 500 {
			limit = 500
		}

		items, err := runs.Recent(r.Context(), pool, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "query error")
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(RunsResponse{Items: items})
	}
}
