package server

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"pitunes/internal/extid"
	"pitunes/pkg/models"
)

// handleUpload accepts a multipart POST and ingests each part as one track.
// Responds with the created tracks as JSON.
func (srv *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reader, err := r.MultipartReader()
	if err != nil {
		http.Error(w, "expected multipart body", http.StatusBadRequest)
		return
	}

	var created []models.Track
	for {
		part, err := reader.NextPart()
		if err != nil {
			break
		}
		filename := part.FileName()
		if filename == "" {
			part.Close()
			continue
		}
		track, err := srv.ingester.Ingest(r.Context(), part, filename)
		part.Close()
		if err != nil {
			srv.respondError(w, r, err)
			return
		}
		created = append(created, track)
	}
	if len(created) == 0 {
		http.Error(w, "no file parts in upload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// pathID extracts the external id from paths like /tracks/{id}.mp3.
func pathID(path, prefix, ext string) (int32, error) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, ext)
	if rest == "" || strings.Contains(rest, "/") {
		return 0, models.ErrBadID
	}
	return extid.Decode(rest)
}

// handleStreamTrack serves media files with range support.
func (srv *Server) handleStreamTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r.URL.Path, "/tracks/", ".mp3")
	if err != nil {
		srv.respondError(w, r, err)
		return
	}
	if _, err := srv.catalog.GetTrack(r.Context(), id); err != nil {
		srv.respondError(w, r, err)
		return
	}

	file, err := os.Open(srv.ingester.MediaPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			// Row without media: the watcher reports these as orphans.
			http.Error(w, "media missing", http.StatusNotFound)
			return
		}
		srv.respondError(w, r, err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		srv.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeContent(w, r, stat.Name(), stat.ModTime(), file)
}

// handleExportPlaylist renders /playlists/{id}.m3u8 from the current
// playlist order.
func (srv *Server) handleExportPlaylist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := pathID(r.URL.Path, "/playlists/", ".m3u8")
	if err != nil {
		srv.respondError(w, r, err)
		return
	}
	if _, err := srv.engine.GetPlaylist(r.Context(), id); err != nil {
		srv.respondError(w, r, err)
		return
	}
	tracks, err := srv.engine.Tracks(r.Context(), id)
	if err != nil {
		srv.respondError(w, r, err)
		return
	}

	base := baseURL(r)
	doc, err := srv.renderer.M3U(r.Context(), tracks, base)
	if err != nil {
		srv.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "audio/mpegurl; charset=utf-8")
	w.Write([]byte(doc))
}

// baseURL reconstructs the externally visible origin, honoring proxy
// headers.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host
}

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Database  string                 `json:"database"`
	Storage   string                 `json:"storage"`
	Tracks    int                    `json:"trackCount"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + dependency checks.
func (srv *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "ok",
		Storage:   "ok",
		Details:   make(map[string]interface{}),
	}

	if err := srv.store.DB().PingContext(r.Context()); err != nil {
		health.Status = "unhealthy"
		health.Database = "error"
		health.Details["database_error"] = err.Error()
	}
	if _, err := os.Stat(srv.ingester.TracksDir()); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	tracks, err := srv.catalog.ListTracks(r.Context())
	if err != nil {
		health.Details["track_count_error"] = err.Error()
	} else {
		health.Tracks = len(tracks)
	}
	if orphans := srv.ingester.OrphanWrites(); orphans > 0 {
		health.Details["orphan_writes"] = orphans
	}

	if health.Status == "unhealthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
