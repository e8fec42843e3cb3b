package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"pitunes/internal/catalog"
	"pitunes/internal/extid"
	"pitunes/internal/store"
	"pitunes/pkg/models"
)

func newTestRenderer(t *testing.T) (*Renderer, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewRenderer(catalog.New(s)), s
}

func TestM3URendersHeaderAndEntries(t *testing.T) {
	r, s := newTestRenderer(t)
	if _, err := s.DB().Exec(`INSERT INTO artists (id, name) VALUES (10, 'Nina Simone')`); err != nil {
		t.Fatal(err)
	}

	artistID := int32(10)
	tracks := []models.Track{
		{ID: 1, Name: "Feeling Good", Duration: 177500, ArtistID: &artistID},
		{ID: 2, Name: "Untitled Demo", Duration: 61000},
	}

	out, err := r.M3U(context.Background(), tracks, "https://music.example/")
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}

	want := "#EXTM3U\n" +
		"#EXTINF:177,Nina Simone - Feeling Good\n" +
		"https://music.example/tracks/" + extid.Encode(1) + ".mp3\n" +
		"#EXTINF:61,Untitled Demo\n" +
		"https://music.example/tracks/" + extid.Encode(2) + ".mp3\n"
	if out != want {
		t.Errorf("got:\n%s\nwant:\n%s", out, want)
	}
}

func TestM3UEmptyPlaylist(t *testing.T) {
	r, _ := newTestRenderer(t)
	out, err := r.M3U(context.Background(), nil, "http://localhost:8443")
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}
	if out != "#EXTM3U\n" {
		t.Errorf("got %q, want bare header", out)
	}
}

func TestM3UDanglingArtistFallsBackToTitle(t *testing.T) {
	r, _ := newTestRenderer(t)
	missing := int32(99)
	tracks := []models.Track{{ID: 3, Name: "Orphan", Duration: 1000, ArtistID: &missing}}

	out, err := r.M3U(context.Background(), tracks, "http://localhost:8443")
	if err != nil {
		t.Fatalf("rendering: %v", err)
	}
	if !strings.Contains(out, "#EXTINF:1,Orphan\n") {
		t.Errorf("expected bare title for dangling artist, got:\n%s", out)
	}
}
