package serv

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tabkit/tabq/internal/keypath"
	"github.com/tabkit/tabq/internal/query"
	"github.com/tabkit/tabq/internal/sqlgen"
	"github.com/tabkit/tabq/internal/store"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: RequestID(r.Context())})
}

// statusFor maps domain errors to HTTP status codes. Compile-time
// rejections are the client's fault; storage failures are the
// engine's.
func statusFor(err error) int {
	var (
		pathErr    *keypath.InvalidPathError
		parseErr   *query.ParseError
		unsupErr   *sqlgen.UnsupportedQueryError
		tableErr   *sqlgen.InvalidTableError
		storageErr *store.StorageError
	)
	switch {
	case errors.As(err, &pathErr),
		errors.As(err, &parseErr),
		errors.As(err, &unsupErr),
		errors.As(err, &tableErr):
		return http.StatusBadRequest
	case store.IsUniqueViolation(err):
		return http.StatusConflict
	case errors.As(err, &storageErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Service) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed",
			zap.String("request-id", RequestID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, r, status, err.Error())
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) handleListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := store.ListTables(r.Context(), s.store)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

// handleInsert accepts one document or an array of documents.
func (s *Service) handleInsert(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	var docs []store.Document
	switch v := body.(type) {
	case map[string]any:
		docs = []store.Document{v}
	case []any:
		for _, item := range v {
			doc, ok := item.(map[string]any)
			if !ok {
				writeError(w, r, http.StatusBadRequest, "body array must contain objects")
				return
			}
			docs = append(docs, doc)
		}
	default:
		writeError(w, r, http.StatusBadRequest, "body must be an object or an array of objects")
		return
	}

	n, err := store.Insert(r.Context(), s.store, table, docs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"inserted": n})
}

func (s *Service) handleSelect(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	q, err := query.ParseParams(table, r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	stmt, err := sqlgen.Compile(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	docs, err := store.Select(r.Context(), s.store, stmt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": docs})
}

// handleUpdate sets the path named by ?set= to the JSON value in the
// request body, on every row matching ?where=.
func (s *Service) handleUpdate(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	rawPath := r.URL.Query().Get("set")
	if rawPath == "" {
		writeError(w, r, http.StatusBadRequest, "missing set parameter")
		return
	}
	path, err := keypath.Parse(rawPath)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		writeError(w, r, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	q, err := query.ParseParams(table, r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q.Mutation = query.Set{Path: path, Value: value}

	stmt, err := sqlgen.Compile(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := store.Exec(r.Context(), s.store, stmt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

// handleDelete removes every row matching ?where=, or all rows when no
// filter is given.
func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	q, err := query.ParseParams(table, r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	q.Mutation = query.Delete{}

	stmt, err := sqlgen.Compile(q)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := store.Exec(r.Context(), s.store, stmt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
