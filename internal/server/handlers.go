package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hevcd/hevcd/internal/cookies"
	"github.com/hevcd/hevcd/internal/model"
	"github.com/hevcd/hevcd/internal/platform"
	"github.com/hevcd/hevcd/internal/task"
)

// MaxCookieUploadBytes bounds cookie file uploads. Real exported cookie jars
// are a few hundred KiB at most.
const MaxCookieUploadBytes = 1 << 20

// ServiceName identifies the service in the root and health responses.
const ServiceName = "hevcd"

// youtubeURLPattern accepts the watch, short-link, shorts, live and embed URL
// shapes. Anything else is rejected before a task is created.
var youtubeURLPattern = regexp.MustCompile(
	`^https?://(www\.|m\.)?(youtube\.com/(watch\?v=|shorts/|live/|embed/)[\w-]{6,}|youtu\.be/[\w-]{6,})`)

// taskIDPattern matches ids the store hands out. Path values come decoded
// from the client (ServeMux unescapes %2F inside a segment), so anything not
// matching must be rejected before it can reach a filesystem path.
var taskIDPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

type downloadRequest struct {
	URL    string `json:"url"`
	Rename string `json:"rename"`
}

type statusResponse struct {
	TaskID      string           `json:"task_id"`
	Status      string           `json:"status"`
	Phase       string           `json:"phase"`
	Message     string           `json:"message"`
	VideoInfo   *model.VideoInfo `json:"video_info,omitempty"`
	DownloadURL string           `json:"download_url,omitempty"`
	Filename    string           `json:"filename,omitempty"`
}

type troubleshootResponse struct {
	Stats         task.Stats         `json:"stats"`
	ActiveWorkers int                `json:"active_workers"`
	Cookies       cookies.Validation `json:"cookies"`
	BrowserStores []string           `json:"browser_stores"`
	RecentErrors  []recentError      `json:"recent_errors"`
	Suggestions   []string           `json:"suggestions"`
}

type recentError struct {
	TaskID  string `json:"task_id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	stats := s.store.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"service":      ServiceName,
		"status":       "running",
		"active_tasks": stats.Processing,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"tasks":  s.store.Count(),
	})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	if !youtubeURLPattern.MatchString(req.URL) {
		writeError(w, http.StatusBadRequest, "Not a valid YouTube URL")
		return
	}

	t := s.queue.Enqueue(req.URL, strings.TrimSpace(req.Rename))
	s.logger.Infof("Accepted task %s for %s", t.ID, t.URL)
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id": t.ID,
		"status":  t.Phase.Status(),
		"message": t.Message,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("taskID")
	t, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}

	resp := statusResponse{
		TaskID:    t.ID,
		Status:    t.Phase.Status(),
		Phase:     t.Phase.String(),
		Message:   t.Message,
		VideoInfo: t.VideoInfo,
	}
	if t.Phase == model.PhaseReady {
		resp.DownloadURL = "/files/" + t.ID + platform.OutputExtensionMKV
		resp.Filename = t.OutputFilename
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	filename := r.PathValue("filename")
	id := strings.TrimSuffix(filename, platform.OutputExtensionMKV)
	if id == filename || id == "" {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	t, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if t.Phase != model.PhaseReady {
		writeError(w, http.StatusNotFound, "File is not ready yet")
		return
	}

	path := s.store.OutputPath(id)
	if _, err := os.Stat(path); err != nil {
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	name := t.OutputFilename
	if name == "" {
		name = filename
	}
	w.Header().Set("Content-Type", "video/x-matroska")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeFile(w, r, path)
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("taskID")
	if !taskIDPattern.MatchString(id) {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	if err := s.store.Delete(id); err != nil {
		s.logger.Warnf("Cleanup of task %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Cleanup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "cleaned",
		"task_id": id,
	})
}

func (s *Server) handleUploadCookies(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxCookieUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "A cookie file upload named 'file' is required")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		writeError(w, http.StatusBadRequest, "Cookie file must be a .txt export in Netscape format")
		return
	}
	if header.Size > MaxCookieUploadBytes {
		writeError(w, http.StatusBadRequest, "Cookie file is too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}
	if err := os.WriteFile(s.cookies.CookiesPath(), data, 0600); err != nil {
		s.logger.Errorf("Failed to store cookie file: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to store cookie file")
		return
	}

	validation := s.cookies.ValidateFile()
	s.logger.Infof("Cookie file uploaded: valid=%v entries=%d", validation.Valid, validation.EntryCount)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "uploaded",
		"validation": validation,
	})
}

func (s *Server) handleBrowserCookies(w http.ResponseWriter, r *http.Request) {
	stores := s.cookies.DetectBrowserStores()
	writeJSON(w, http.StatusOK, map[string]any{
		"browsers":  stores,
		"available": len(stores) > 0,
	})
}

func (s *Server) handleTroubleshoot(w http.ResponseWriter, r *http.Request) {
	resp := troubleshootResponse{
		Stats:         s.store.Stats(),
		ActiveWorkers: s.queue.Active(),
		Cookies:       s.cookies.ValidateFile(),
		BrowserStores: s.cookies.DetectBrowserStores(),
		RecentErrors:  make([]recentError, 0),
		Suggestions:   make([]string, 0),
	}
	for _, t := range s.store.RecentErrors(5) {
		resp.RecentErrors = append(resp.RecentErrors, recentError{
			TaskID:  t.ID,
			URL:     t.URL,
			Message: t.Message,
		})
	}

	if !resp.Cookies.Valid {
		resp.Suggestions = append(resp.Suggestions,
			"Upload a fresh cookies.txt export via POST /api/upload-cookies to get past sign-in walls.")
	}
	if len(resp.BrowserStores) == 0 && !resp.Cookies.Valid {
		resp.Suggestions = append(resp.Suggestions,
			"No local browser cookie stores were found; an uploaded cookie file is the only credential source.")
	}
	if resp.Stats.Failed > 0 {
		resp.Suggestions = append(resp.Suggestions,
			"Recent tasks failed; check the messages above and retry after fixing credentials.")
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
