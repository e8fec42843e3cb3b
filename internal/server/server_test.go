package server

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"pitunes/internal/config"
	"pitunes/internal/extid"
	"pitunes/internal/store"
	"pitunes/pkg/models"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	tracksDir := filepath.Join(dir, "tracks")
	if err := os.MkdirAll(tracksDir, 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(dir, "test.db")
	cfg.Library.TracksDir = tracksDir
	cfg.Library.WatchForChanges = false
	cfg.Logging.Level = "error"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := store.Open(cfg.Database.Path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	srv, err := New(cfg, s)
	if err != nil {
		t.Fatalf("building server: %v", err)
	}
	return srv
}

// mp3Upload builds an ID3v2.3 tagged blob with enough metadata to ingest.
func mp3Upload(title string) []byte {
	frames := map[string]string{"TIT2": title, "TLEN": "30000"}
	var body bytes.Buffer
	for id, text := range frames {
		payload := append([]byte{0x00}, []byte(text)...)
		body.WriteString(id)
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(payload)))
		body.Write(size[:])
		body.Write([]byte{0x00, 0x00})
		body.Write(payload)
	}
	var out bytes.Buffer
	out.WriteString("ID3")
	out.Write([]byte{0x03, 0x00, 0x00})
	n := body.Len()
	out.Write([]byte{
		byte(n >> 21 & 0x7f), byte(n >> 14 & 0x7f), byte(n >> 7 & 0x7f), byte(n & 0x7f),
	})
	out.Write(body.Bytes())
	out.WriteString(strings.Repeat("x", 128))
	return out.Bytes()
}

func postUpload(t *testing.T, handler http.Handler, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/tracks", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestUploadAndStream(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	handler := srv.Routes()

	data := mp3Upload("Uploaded Song")
	rec := postUpload(t, handler, "song.mp3", data)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created []models.Track
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(created) != 1 || created[0].Name != "Uploaded Song" {
		t.Fatalf("got %+v", created)
	}

	url := fmt.Sprintf("/tracks/%s.mp3", extid.Encode(created[0].ID))
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("stream status = %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Error("streamed bytes differ from upload")
	}

	// Range requests are honored.
	req = httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("Range", "bytes=0-9")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusPartialContent {
		t.Errorf("range status = %d, want 206", rec.Code)
	}
	if got := rec.Body.Len(); got != 10 {
		t.Errorf("range body length = %d, want 10", got)
	}
}

func TestUploadRejectsGarbage(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	rec := postUpload(t, srv.Routes(), "junk.mp3", []byte("not audio at all"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestStreamUnknownAndMalformedIDs(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/tracks/%s.mp3", extid.Encode(999)), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown track status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tracks/%21%21.mp3", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", rec.Code)
	}
}

func TestPlaylistExport(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	handler := srv.Routes()
	ctx := context.Background()

	p, err := srv.engine.CreatePlaylist(ctx, "roadtrip")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := srv.store.DB().Exec(
		`INSERT INTO tracks (id, name, duration) VALUES (1, 'Opener', 95000)`); err != nil {
		t.Fatal(err)
	}
	if _, err := srv.engine.InsertEntry(ctx, p.ID, 1, nil); err != nil {
		t.Fatal(err)
	}

	url := fmt.Sprintf("/playlists/%s.m3u8", extid.Encode(p.ID))
	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Host = "music.local:8443"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, "#EXTM3U\n") {
		t.Errorf("missing header: %q", body)
	}
	if !strings.Contains(body, "#EXTINF:95,Opener\n") {
		t.Errorf("missing EXTINF line: %q", body)
	}
	if !strings.Contains(body, "http://music.local:8443/tracks/"+extid.Encode(1)+".mp3\n") {
		t.Errorf("missing media URL: %q", body)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		fmt.Sprintf("/playlists/%s.m3u8", extid.Encode(999)), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown playlist status = %d, want 404", rec.Code)
	}
}

func TestGraphQLEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	handler := srv.Routes()

	body := `{"query":"mutation { createGenre(input: { name: \"Jazz\" }) { name } }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var result struct {
		Data struct {
			CreateGenre struct {
				Name string `json:"name"`
			} `json:"createGenre"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if result.Data.CreateGenre.Name != "Jazz" {
		t.Errorf("got %+v", result)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var health HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if health.Status != "healthy" || health.Database != "ok" {
		t.Errorf("got %+v", health)
	}
}

func TestBasicAuth(t *testing.T) {
	cfg := testConfig(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Auth = config.AuthConfig{Enabled: true, Username: "felix", PasswordHash: string(hash)}
	srv := newTestServer(t, cfg)
	handler := srv.Routes()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql?query={albums{name}}", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/graphql?query={albums{name}}", nil)
	req.SetBasicAuth("felix", "sekrit")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}

	// Health stays reachable for probes.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/graphql?query={albums{name}}", nil)
	req.SetBasicAuth("felix", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
}
