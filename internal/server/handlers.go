package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docufind/internal/fileid"
	"github.com/hyperjump/docufind/internal/indexer"
	"github.com/hyperjump/docufind/internal/models"
	"github.com/hyperjump/docufind/internal/normalize"
	"github.com/hyperjump/docufind/internal/storage"
	"go.uber.org/zap"
)

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) handleSearchGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := models.SearchQuery{Query: q.Get("q")}
	var err error
	if query.Limit, err = intParam(q.Get("limit"), 0); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if query.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	s.search(w, r, &query)
}

func (s *Server) search(w http.ResponseWriter, r *http.Request, query *models.SearchQuery) {
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	response, err := s.engine.Search(r.Context(), query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	suggestion, ok, err := s.engine.Suggest(r.Context(), word)
	if err != nil {
		s.fail(w, "suggest failed", err)
		return
	}
	if !ok {
		s.respondError(w, http.StatusNotFound, "no indexed terms to suggest from")
		return
	}
	s.respondJSON(w, http.StatusOK, suggestion)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.fail(w, "stats failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, err := intParam(q.Get("offset"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, err := intParam(q.Get("limit"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	docs, err := s.engine.Documents(r.Context(), offset, limit)
	if err != nil {
		s.fail(w, "list documents failed", err)
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	s.logger.Debug("upload document request", zap.String("filename", header.Filename))
	doc, err := s.indexer.SaveUpload(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, "upload failed", err)
		return
	}
	doc.Content = ""
	s.respondJSON(w, http.StatusCreated, doc)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.engine.Document(r.Context(), id)
	if err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleRawDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	doc, err := s.engine.Document(r.Context(), id)
	if err != nil {
		s.fail(w, "get document failed", err)
		return
	}
	path, err := fileid.Resolve(s.indexer.DocumentsDir(), doc.Filename)
	if err != nil {
		s.fail(w, "resolve document file failed", err)
		return
	}
	if _, err := os.Stat(path); err != nil {
		s.respondError(w, http.StatusNotFound, "document file not found")
		return
	}
	http.ServeFile(w, r, path)
}

func (s *Server) handleDocumentTerms(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	limit, err := intParam(r.URL.Query().Get("limit"), s.config.Search.CloudLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	terms, err := s.engine.DocumentTerms(r.Context(), id, limit)
	if err != nil {
		s.fail(w, "document terms failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, terms)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, ok := s.documentID(w, r)
	if !ok {
		return
	}
	s.logger.Debug("delete document request", zap.Int64("id", id))
	doc, err := s.indexer.DeleteDocument(r.Context(), id)
	if err != nil {
		s.fail(w, "deletion failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":       doc.ID,
		"filename": doc.Filename,
		"status":   "deleted",
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("reindex request")
	report, err := s.indexer.Reindex(r.Context(), nil)
	if err != nil {
		s.fail(w, "reindex failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleListStopwords(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"stopwords": s.stopwords.List()})
}

type stopwordRequest struct {
	Word string `json:"word"`
}

func (s *Server) handleAddStopword(w http.ResponseWriter, r *http.Request) {
	var req stopwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.stopwords.Add(req.Word); err != nil {
		s.fail(w, "add stopword failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"word": req.Word, "status": "added"})
}

func (s *Server) handleRemoveStopword(w http.ResponseWriter, r *http.Request) {
	word := chi.URLParam(r, "word")
	if err := s.stopwords.Remove(word); err != nil {
		s.fail(w, "remove stopword failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"word": word, "status": "removed"})
}

func (s *Server) handleReloadStopwords(w http.ResponseWriter, r *http.Request) {
	if err := s.stopwords.Reload(); err != nil {
		s.fail(w, "reload stopwords failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"stopwords": s.stopwords.Len(), "status": "reloaded"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	resp := map[string]interface{}{
		"documents":    stats.Documents,
		"unique_terms": stats.UniqueTerms,
		"term_rows":    stats.TermRows,
		"stopwords":    s.stopwords.Len(),
		"config": map[string]interface{}{
			"database_path": s.config.Storage.DatabasePath,
			"documents_dir": s.config.Storage.DocumentsDir,
			"lemmatizer":    s.config.Normalize.Lemmatizer,
			"watch_enabled": s.config.Watch.Enabled,
		},
	}
	diskBytes, err := storage.CorpusDiskUsage(s.config.Storage.DatabasePath, s.config.Storage.DocumentsDir)
	if err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) documentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusBadRequest, "invalid document id")
		return 0, false
	}
	return id, true
}

// fail maps err to a status code and writes it. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, normalize.ErrUnknownStopword):
		return http.StatusNotFound
	case errors.Is(err, normalize.ErrDuplicateStopword):
		return http.StatusConflict
	case errors.Is(err, normalize.ErrEmptyStopword),
		errors.Is(err, fileid.ErrOutsideRoot),
		errors.Is(err, indexer.ErrUnsupportedType),
		errors.Is(err, indexer.ErrInvalidName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
