package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/audiolibrelab/songquiz/internal/catalog"
	"github.com/audiolibrelab/songquiz/internal/config"
	"github.com/audiolibrelab/songquiz/internal/quiz"
	"github.com/audiolibrelab/songquiz/internal/service"
)

// Server exposes the quiz over HTTP so it can be driven from a phone or a
// browser on the same network.
type Server struct {
	service    service.Service
	configFile string
	port       string
}

// StatusResponse represents the JSON response for status endpoint
type StatusResponse struct {
	Phase        string               `json:"phase"`
	Message      string               `json:"message"`
	Loading      bool                 `json:"loading"`
	Asking       bool                 `json:"asking"`
	Playing      bool                 `json:"playing"`
	Revealing    bool                 `json:"revealing"`
	NoSongLoaded bool                 `json:"no_song_loaded"`
	Volume       float64              `json:"volume"`
	Current      *quiz.SongView       `json:"current,omitempty"`
	Finished     []quiz.FinishedEntry `json:"finished"`
	LastError    string               `json:"last_error,omitempty"`
}

// CategoriesResponse represents the JSON response for categories endpoint
type CategoriesResponse struct {
	Categories []catalog.CategoryInfo `json:"categories"`
}

// SettingsResponse describes the quiz settings for the UI
type SettingsResponse struct {
	ActiveProfile string    `json:"active_profile"`
	Catalog       string    `json:"catalog"`
	Backend       string    `json:"backend"`
	SampleRate    int       `json:"sample_rate"`
	Durations     []float64 `json:"durations"`
	RevealDelayMs int64     `json:"reveal_delay_ms"`
	Debug         bool      `json:"debug"`
}

// PlayResponse reports the outcome of a playback request
type PlayResponse struct {
	Success bool   `json:"success"`
	Session string `json:"session,omitempty"`
	Skipped string `json:"skipped,omitempty"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// New creates a new web server instance
func New(svc service.Service, configFile string, port string) *Server {
	return &Server{
		service:    svc,
		configFile: configFile,
		port:       port,
	}
}

// Handler returns the routes served by Start.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/categories", s.handleCategories)
	mux.HandleFunc("/api/song", s.handleGetSong)
	mux.HandleFunc("/api/play", s.handlePlay)
	mux.HandleFunc("/api/reveal", s.handleReveal)
	mux.HandleFunc("/api/toggle", s.handleToggle)
	mux.HandleFunc("/api/volume", s.handleVolume)
	mux.HandleFunc("/api/settings", s.handleSettings)
	mux.HandleFunc("/config/profiles", s.handleProfiles)
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	localIP := getLocalIP()

	slog.Info("Starting song quiz web server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

// handleIndex serves a minimal page listing the API
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Song Quiz</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@picocss/pico@2/css/pico.min.css">
</head>
<body>
    <div class="container">
        <h1>Song Quiz</h1>
        <h2>API Endpoints:</h2>
        <ul>
            <li>GET /api/status - Current song and quiz state</li>
            <li>GET /api/categories - Categories with remaining songs</li>
            <li>POST /api/song - Load a song (category, optional index in debug mode)</li>
            <li>POST /api/play - Play the clip (duration seconds, from_beginning)</li>
            <li>POST /api/reveal - Reveal the answer</li>
            <li>POST /api/toggle - Stop or replay from the start</li>
            <li>POST /api/volume - Set the volume (level 0..1)</li>
            <li>GET /api/settings - Durations, reveal delay, backend</li>
        </ul>
    </div>
</body>
</html>`

// handleStatus returns the observable quiz state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	snap := s.service.Status()
	lastError := s.service.GetLastError()

	s.writeJSON(w, http.StatusOK, StatusResponse{
		Phase:        snap.Phase.String(),
		Message:      snap.DisplayName(),
		Loading:      snap.Loading(),
		Asking:       snap.Asking(),
		Playing:      snap.Playing,
		Revealing:    snap.Revealing(),
		NoSongLoaded: snap.NoSongLoaded(),
		Volume:       snap.Volume,
		Current:      s.visibleSong(snap),
		Finished:     snap.Finished,
		LastError:    lastError,
	})
}

// visibleSong hides the answer while a question is open, unless debug mode
// is on.
func (s *Server) visibleSong(snap quiz.Snapshot) *quiz.SongView {
	if snap.Current == nil || !snap.Asking() || snap.Debug {
		return snap.Current
	}
	return &quiz.SongView{Category: snap.Current.Category, Decoded: snap.Current.Decoded}
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}
	s.writeJSON(w, http.StatusOK, CategoriesResponse{Categories: s.service.Categories()})
}

// handleGetSong loads a song from a category
func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "get_song")
		return
	}

	category, err := strconv.Atoi(r.FormValue("category"))
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "category must be an integer", "operation", "get_song")
		return
	}

	var started bool
	if raw := r.FormValue("index"); raw != "" {
		index, convErr := strconv.Atoi(raw)
		if convErr != nil {
			s.sendErrorResponse(w, http.StatusBadRequest, "index must be an integer", "operation", "get_song")
			return
		}
		started, err = s.service.GetSongAt(category, index)
	} else {
		started, err = s.service.GetSong(category)
	}

	switch {
	case errors.Is(err, quiz.ErrDebugDisabled):
		s.sendErrorResponse(w, http.StatusForbidden, err.Error(), "operation", "get_song")
		return
	case errors.Is(err, catalog.ErrNoCategory), errors.Is(err, catalog.ErrNoSong):
		s.sendErrorResponse(w, http.StatusNotFound, err.Error(), "operation", "get_song")
		return
	case err != nil:
		s.sendErrorResponse(w, http.StatusInternalServerError, err.Error(), "operation", "get_song")
		return
	}

	message := "Loading song"
	if !started {
		message = "Request ignored"
	}
	s.writeJSON(w, http.StatusOK, GenericResponse{Success: started, Message: message})
}

// handlePlay plays the current clip
func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "play")
		return
	}

	var duration time.Duration
	if raw := r.FormValue("duration"); raw != "" {
		seconds, err := strconv.ParseFloat(raw, 64)
		if err != nil || seconds < 0 {
			s.sendErrorResponse(w, http.StatusBadRequest, "duration must be a non-negative number of seconds", "operation", "play")
			return
		}
		duration = time.Duration(seconds * float64(time.Second))
	}
	fromBeginning, _ := strconv.ParseBool(r.FormValue("from_beginning"))

	res := s.service.PlaySong(duration, fromBeginning)
	resp := PlayResponse{Success: res.OK(), Skipped: string(res.Reason)}
	if res.OK() {
		resp.Session = res.Session.ID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	ok := s.service.RevealSong()
	message := "Revealing song"
	if !ok {
		message = "Nothing to reveal"
	}
	s.writeJSON(w, http.StatusOK, GenericResponse{Success: ok, Message: message})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	playing := s.service.ToggleSong()
	message := "Stopped"
	if playing {
		message = "Playing"
	}
	s.writeJSON(w, http.StatusOK, GenericResponse{Success: true, Message: message})
}

// handleVolume sets the playback volume
func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodPost) {
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form", "operation", "volume")
		return
	}

	level, err := strconv.ParseFloat(r.FormValue("level"), 64)
	if err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "level must be a number between 0 and 1", "operation", "volume")
		return
	}

	applied := s.service.SetVolume(level)
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"volume":  applied,
	})
}

// handleSettings returns durations, reveal delay and audio settings
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.service.GetConfig()
	presets := s.service.Durations()
	durations := make([]float64, len(presets))
	for i, d := range presets {
		durations[i] = d.Seconds()
	}

	s.writeJSON(w, http.StatusOK, SettingsResponse{
		ActiveProfile: cfg.Profile,
		Catalog:       cfg.Catalog,
		Backend:       cfg.Audio.Backend,
		SampleRate:    cfg.Audio.SampleRate,
		Durations:     durations,
		RevealDelayMs: s.service.RevealDelay().Milliseconds(),
		Debug:         s.service.Status().Debug,
	})
}

// handleProfiles returns available configuration profiles
func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireMethod(w, r, http.MethodGet) {
		return
	}

	profiles := []string{"default"}
	if s.configFile != "" {
		if found, err := config.GetAvailableProfiles(s.configFile); err == nil && len(found) > 0 {
			profiles = found
		} else if err != nil {
			slog.Debug("Could not read profiles", "config", s.configFile, "error", err)
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"active":   s.service.GetConfig().Profile,
	})
}

func (s *Server) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	s.writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{
		"success": false,
		"error":   "Method not allowed",
	})
	return false
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	if len(logContext) > 0 {
		logFields = append(logFields, logContext...)
	}
	slog.Error("Sending error response to client", logFields...)

	s.writeJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   errorMsg,
	})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
