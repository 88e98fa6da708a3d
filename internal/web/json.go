package web

import (
	"encoding/json"
	"net/http"

	"github.com/sweeney/hydro-controller/internal/status"
)

// ParamJSON is one entry of the /params.json listing.
type ParamJSON struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleParams lists the parameter table in index order, the form a
// set_param command addresses it by.
func (s *Server) handleParams(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	out := make([]ParamJSON, len(snap.Params))
	for i, p := range snap.Params {
		out[i] = ParamJSON{Index: int(p.Index), Name: p.Name, Value: p.Value}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
