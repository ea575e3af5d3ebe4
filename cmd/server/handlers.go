package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"songprint/pkg/logger"
	"songprint/pkg/songprint"
	"songprint/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service songprint.Service
	config  *ServerConfig
	log     songprint.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port      int
	DBPath    string
	TempDir   string
	Threshold float64
}

// NewServer creates a new server instance.
func NewServer(service songprint.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// Start blocks serving HTTP on the configured port.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/songs", s.handleSongs)
	mux.HandleFunc("/api/identify", s.handleIdentify)

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("listening on %s (db: %s)", addr, s.config.DBPath)
	return http.ListenAndServe(addr, s.requestLogger(mux))
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Infof("%s %s -> %d (%s)", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleSongs dispatches GET (list) and POST (enroll upload).
func (s *Server) handleSongs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListSongs(w, r)
	case http.MethodPost:
		s.handleAddSong(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListSongs(w http.ResponseWriter, _ *http.Request) {
	songs, err := s.service.ListSongs()
	if err != nil {
		s.log.Errorf("failed to list songs: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve songs")
		return
	}

	dtos := make([]SongDTO, len(songs))
	for i, song := range songs {
		dtos[i] = SongDTO{
			ID:     song.ID,
			Title:  song.Title,
			Artist: song.Artist,
			Album:  song.Album,
		}
		if song.ExternalURI != nil {
			dtos[i].ExternalURI = *song.ExternalURI
		}
	}
	s.respondJSON(w, http.StatusOK, ListSongsResponse{Songs: dtos, Count: len(dtos)})
}

// handleAddSong enrolls a multipart WAV upload with title/artist fields.
func (s *Server) handleAddSong(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	path, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	songID, err := s.service.AddSong(r.Context(), path, title, artist)
	if err != nil {
		s.log.Errorf("enrollment failed: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.respondJSON(w, http.StatusCreated, AddSongResponse{ID: songID, Title: title, Artist: artist})
}

// handleIdentify matches a multipart WAV upload against the catalog.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	path, cleanup, err := s.saveUpload(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	matches, err := s.service.IdentifySong(r.Context(), path)
	if err != nil {
		s.log.Errorf("identification failed: %v", err)
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	dtos := make([]MatchDTO, len(matches))
	for i, m := range matches {
		dtos[i] = MatchDTO{
			SongID:   m.SongID,
			Title:    m.Title,
			Artist:   m.Artist,
			Score:    m.Score,
			OffsetMs: m.OffsetMs,
		}
	}

	confident := len(matches) > 0 && matches[0].Score >= s.config.Threshold
	s.respondJSON(w, http.StatusOK, IdentifyResponse{Matches: dtos, Confident: confident})
}

// saveUpload writes the "audio" form file to the temp directory and
// returns its path plus a cleanup func.
func (s *Server) saveUpload(r *http.Request) (string, func(), error) {
	file, header, err := r.FormFile("audio")
	if err != nil {
		return "", nil, fmt.Errorf("audio file is required")
	}
	defer file.Close()

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return "", nil, fmt.Errorf("preparing upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(header.Filename)
	path := filepath.Join(s.config.TempDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("saving upload: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.Remove(path)
		return "", nil, fmt.Errorf("saving upload: %w", err)
	}

	return path, func() { utils.DeleteFile(path) }, nil
}
