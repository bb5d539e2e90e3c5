// Package server is the HTTP boundary in front of the record store.
//
// The surface is four operations: POST /upload (multipart CSV, field name
// "csvFile"), GET /records, PUT /records/{id}, DELETE /records/{id}. Every
// failure maps to the fixed taxonomy (malformed CSV or a missing file is a
// 400, an unknown identifier a 404, anything the store rejects a 500), and no
// internal error text ever reaches a response body; detail goes to the log.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/agentic-research/tabula/api"
	"github.com/agentic-research/tabula/internal/ingest"
	"github.com/agentic-research/tabula/internal/store"
)

// uploadField is the multipart form field carrying the CSV file.
const uploadField = "csvFile"

// maxUploadBytes bounds how much of an upload is read into memory.
const maxUploadBytes = 64 << 20

// Options tunes the server beyond its two required dependencies.
type Options struct {
	// EditableFields, when non-empty, restricts PUT patch keys to the named
	// fields. Empty means any key is accepted and whitelisting stays a
	// client-side policy.
	EditableFields []string
	// AllowedOrigins configures CORS; nil means allow all.
	AllowedOrigins []string
}

// Server routes the HTTP surface onto a record store.
type Server struct {
	store    store.Store
	log      *zap.Logger
	editable map[string]struct{} // nil when whitelisting is off
	origins  []string
}

// New builds a Server. log must not be nil; use zap.NewNop() for silence.
func New(st store.Store, log *zap.Logger, opts Options) *Server {
	s := &Server{store: st, log: log, origins: opts.AllowedOrigins}
	if len(opts.EditableFields) > 0 {
		s.editable = make(map[string]struct{}, len(opts.EditableFields))
		for _, f := range opts.EditableFields {
			s.editable[f] = struct{}{}
		}
	}
	return s
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/upload", s.handleUpload).Methods(http.MethodPost)
	r.HandleFunc("/records", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/records/{id}", s.handleUpdate).Methods(http.MethodPut)
	r.HandleFunc("/records/{id}", s.handleDelete).Methods(http.MethodDelete)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		s.log.Warn("upload without csv file", zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "no CSV file uploaded")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.log.Error("reading upload failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while uploading the file")
		return
	}

	records, err := ingest.Ingest(raw)
	if err != nil {
		var pe *ingest.ParseError
		if errors.As(err, &pe) {
			s.log.Warn("upload rejected", zap.Int("row", pe.Row), zap.Error(err))
			s.writeError(w, http.StatusBadRequest, "malformed CSV input")
			return
		}
		s.log.Error("ingestion failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while uploading the file")
		return
	}

	inserted, err := s.store.InsertMany(r.Context(), records)
	if err != nil {
		// Partial batches are possible on ordered backends; the count in the
		// log says how far the insert got.
		s.log.Error("bulk insert failed",
			zap.Int("inserted", inserted),
			zap.Int("total", len(records)),
			zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while saving records")
		return
	}

	s.log.Info("upload complete", zap.Int("inserted", inserted))
	s.writeJSON(w, http.StatusOK, api.UploadResult{
		Message:  fmt.Sprintf("uploaded %d records", inserted),
		Inserted: inserted,
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.List(r.Context())
	if err != nil {
		s.log.Error("list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while fetching records")
		return
	}
	if records == nil {
		records = []api.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var patch map[string]string
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.log.Warn("unparseable patch body", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusBadRequest, "request body must be a JSON object of field values")
		return
	}

	if s.editable != nil {
		for k := range patch {
			if _, ok := s.editable[k]; !ok {
				s.log.Warn("patch touches non-editable field",
					zap.String("id", id), zap.String("field", k))
				s.writeError(w, http.StatusBadRequest, "patch names a field that is not editable")
				return
			}
		}
	}

	rec, err := s.store.Update(r.Context(), id, patch)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "record not found")
			return
		}
		s.log.Error("update failed", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while updating the record")
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "record not found")
			return
		}
		s.log.Error("delete failed", zap.String("id", id), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "an error occurred while deleting the record")
		return
	}
	s.writeJSON(w, http.StatusOK, api.DeleteResult{Message: "record deleted"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("writing response failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, api.ErrorBody{Error: msg})
}
