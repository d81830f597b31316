// Package statsrv exposes a running learner's query statistics and
// observation table over HTTP, for operators watching a long learn in
// progress.
package statsrv

import (
	"encoding/json"
	"net/http"

	"github.com/dekarrin/rosed"
	"github.com/go-chi/chi/v5"

	"github.com/halvard/eralearn/pkg/learner"
	"github.com/halvard/eralearn/pkg/obstable"
)

// Server serves a snapshot of a single in-progress learner run.
type Server struct {
	Driver *learner.Driver
}

// Router builds the chi router for the stats endpoints.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", s.handleStats)
	r.Get("/table", s.handleTable)
	r.Get("/table.txt", s.handleTableText)
	return r
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Driver.Stats)
}

type tableView struct {
	M    int                 `json:"m"`
	S    []string            `json:"s"`
	E    []string            `json:"e"`
	Rows map[string][]string `json:"rows"`
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	tbl := s.Driver.Table
	view := tableView{M: tbl.M, Rows: map[string][]string{}}
	for _, word := range tbl.S {
		view.S = append(view.S, word.String())
	}
	for _, word := range tbl.E {
		view.E = append(view.E, word.String())
	}
	for _, word := range tbl.S {
		key := word.String()
		view.Rows[key] = renderRow(tbl, key)
	}
	writeJSON(w, view)
}

func (s *Server) handleTableText(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(RenderTableText(s.Driver.Table)))
}

// RenderTableText renders the observation table as an aligned text table, the
// E column suffixes as headers and one row per S prefix. Shared between the
// /table.txt endpoint and the CLI's final table dump.
func RenderTableText(tbl *obstable.Table) string {
	header := []string{"S \\ E"}
	for _, e := range tbl.E {
		header = append(header, e.String())
	}

	data := [][]string{header}
	for _, s := range tbl.S {
		row := []string{s.String()}
		row = append(row, renderRow(tbl, s.String())...)
		data = append(data, row)
	}

	return rosed.
		Edit("").
		InsertTableOpts(0, data, 100, rosed.Options{
			TableHeaders:             true,
			NoTrailingLineSeparators: true,
		}).
		String()
}

func renderRow(tbl *obstable.Table, key string) []string {
	row := tbl.T[key]
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
