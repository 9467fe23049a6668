package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/sheetsync/internal/core"
	"github.com/JonMunkholm/sheetsync/internal/syncer"
)

// maxSyncBody bounds the POST /api/sync request body.
const maxSyncBody = 64 << 10

// TableResponse describes one configured table.
type TableResponse struct {
	Key        string `json:"key"`
	Label      string `json:"label,omitempty"`
	SheetID    string `json:"sheet_id"`
	HeaderRow  int    `json:"header_row"`
	Multirow   bool   `json:"multirow"`
	Registered bool   `json:"registered"`
}

// SyncRequest is the optional POST /api/sync body.
type SyncRequest struct {
	Tables []string `json:"tables"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":          "ok",
		"run_in_progress": s.service.Busy(),
	})
}

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	sheets := s.service.Sheets()
	out := make([]TableResponse, 0, len(sheets))
	for _, sheet := range sheets {
		tr := TableResponse{Key: sheet.Kind, SheetID: sheet.SheetID}
		if def, ok := core.Get(sheet.Kind); ok {
			tr.Label = def.Info.Label
			tr.HeaderRow = def.HeaderRow
			tr.Multirow = def.Multirow
			tr.Registered = true
		}
		out = append(out, tr)
	}
	writeJSON(w, r, http.StatusOK, out)
}

// handleStartSync starts a run in the background. Tables come from the JSON
// body or the comma-separated "tables" query parameter; neither means all.
func (s *Server) handleStartSync(w http.ResponseWriter, r *http.Request) {
	tables, err := parseTables(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	run, err := s.service.Start(r.Context(), syncer.TriggerAPI, tables)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Location", "/api/runs/"+run.ID)
	writeJSON(w, r, http.StatusAccepted, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.service.Runs())
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

func parseTables(r *http.Request) ([]string, error) {
	if q := r.URL.Query().Get("tables"); q != "" {
		var tables []string
		for _, t := range strings.Split(q, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
		return tables, nil
	}

	var req SyncRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxSyncBody)).Decode(&req)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return req.Tables, nil
}
