package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/roach88/roadsafe/internal/score"
	"github.com/roach88/roadsafe/internal/store"
)

// handleList serves GET /leaderboard?level=1|2|all&limit=N.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var level score.Level
	if raw := q.Get("level"); raw != "" && raw != "all" {
		l, err := score.ParseLevel(raw)
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, "level must be 1, 2 or all", nil)
			return
		}
		level = l
	}

	limit := s.limit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = min(n, MaxLimit)
	}

	rows, err := s.backend.ListEntries(r.Context(), level, limit, s.clock.Now())
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "Failed to fetch leaderboard", err)
		return
	}
	if rows == nil {
		rows = []store.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

type submitRequest struct {
	PlayerName string          `json:"player_name"`
	Score      json.Number     `json:"score"`
	Level      json.RawMessage `json:"level"`
}

type submitResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	Data    *store.Row `json:"data,omitempty"`
}

// handleSubmit serves POST /leaderboard.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid input data", nil)
		return
	}

	name := score.NormalizeName(req.PlayerName)
	points, err := req.Score.Int64()
	var level int
	if name == "" || err != nil || json.Unmarshal(req.Level, &level) != nil {
		s.writeError(w, r, http.StatusBadRequest, "Invalid input data", nil)
		return
	}
	if points <= 0 {
		s.writeError(w, r, http.StatusBadRequest, "Score must be greater than 0", nil)
		return
	}
	if !score.Level(level).Valid() {
		s.writeError(w, r, http.StatusBadRequest, "Level must be 1 or 2", nil)
		return
	}

	entry := score.Entry{
		ID:         s.ids.Generate(),
		PlayerName: name,
		Score:      int(points),
		Level:      score.Level(level),
		Timestamp:  s.clock.Now().UTC(),
	}
	row, accepted, err := s.backend.SubmitEntry(r.Context(), entry, s.ttl)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "Failed to save score", err)
		return
	}

	if !accepted {
		writeJSON(w, http.StatusOK, submitResponse{Success: false, Message: "Score not high enough"})
		return
	}
	s.logger.Info("score accepted",
		"player", entry.PlayerName,
		"level", level,
		"score", entry.Score,
	)
	writeJSON(w, http.StatusOK, submitResponse{Success: true, Data: &row})
}
