// Package httpapi is the HTTP surface around the relay: the client page,
// the history snapshot, stored-file downloads and the websocket upgrade.
package httpapi

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"

	"lantalk/domain"
	lanterrors "lantalk/errors"
	"lantalk/infrastructure/ws"
	"lantalk/services"
)

//go:embed index.html
var pageFS embed.FS

type FileOpener interface {
	Open(storedName string) (*os.File, error)
}

type MetaReader interface {
	Get(storedName string) (domain.StoredFile, error)
}

type Server struct {
	log     *slog.Logger
	hub     *ws.Hub
	svc     *services.ChatService
	history ws.HistoryProvider
	files   FileOpener
	meta    MetaReader
}

func NewServer(log *slog.Logger, hub *ws.Hub, svc *services.ChatService,
	history ws.HistoryProvider, files FileOpener, meta MetaReader) *Server {
	return &Server{
		log:     log,
		hub:     hub,
		svc:     svc,
		history: history,
		files:   files,
		meta:    meta,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /files/{name}", s.handleDownload)
	mux.HandleFunc("GET /ws", ws.Serve(s.hub, s.svc, s.log))
	return mux
}

func (s *Server) handlePage(w http.ResponseWriter, _ *http.Request) {
	page, err := pageFS.ReadFile("index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	messages := s.history.Global()
	if messages == nil {
		messages = []domain.Message{}
	}
	s.writeJSON(w, map[string]any{
		"history":    messages,
		"current_ip": ws.ClientIP(r),
	})
}

// handleDownload streams a stored file as an attachment, restoring the
// original filename from the metadata index when it is known.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	storedName := r.PathValue("name")

	f, err := s.files.Open(storedName)
	if errors.Is(err, lanterrors.ErrFileNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error("opening stored file failed", "stored_name", storedName, "error", err)
		http.Error(w, "download failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	downloadName := storedName
	contentType := "application/octet-stream"
	if meta, err := s.meta.Get(storedName); err == nil {
		if meta.OriginalName != "" {
			downloadName = meta.OriginalName
		}
		if meta.MimeType != "" {
			contentType = meta.MimeType
		}
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}))
	if info, err := f.Stat(); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	}
	if _, err := io.Copy(w, f); err != nil {
		s.log.Warn("download interrupted", "stored_name", storedName, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encoding failed", "error", err)
	}
}
