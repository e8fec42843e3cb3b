package graphql

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/graphql-go/graphql"

	"pitunes/internal/catalog"
	"pitunes/internal/extid"
	"pitunes/internal/playlist"
	"pitunes/internal/store"
)

type testEnv struct {
	schema  graphql.Schema
	store   *store.Store
	catalog *catalog.Catalog
	removed []int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	env := &testEnv{store: s, catalog: catalog.New(s)}
	schema, err := NewSchema(Config{
		Catalog:     env.catalog,
		Engine:      playlist.New(s),
		RemoveMedia: func(id int32) { env.removed = append(env.removed, id) },
	})
	if err != nil {
		t.Fatalf("building schema: %v", err)
	}
	env.schema = schema
	return env
}

// do runs a query and fails the test on any GraphQL error.
func (e *testEnv) do(t *testing.T, query string, vars map[string]interface{}) map[string]interface{} {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:         e.schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        withLoaders(context.Background(), e.catalog),
	})
	if len(result.Errors) > 0 {
		t.Fatalf("query %q failed: %v", query, result.Errors)
	}
	return result.Data.(map[string]interface{})
}

// doErr runs a query expecting at least one error.
func (e *testEnv) doErr(t *testing.T, query string) string {
	t.Helper()
	result := graphql.Do(graphql.Params{
		Schema:        e.schema,
		RequestString: query,
		Context:       withLoaders(context.Background(), e.catalog),
	})
	if len(result.Errors) == 0 {
		t.Fatalf("query %q unexpectedly succeeded: %v", query, result.Data)
	}
	return result.Errors[0].Message
}

func (e *testEnv) seedTrack(t *testing.T, id int32, name string) {
	t.Helper()
	_, err := e.store.DB().Exec(
		`INSERT INTO tracks (id, name, duration) VALUES (?, ?, 60000)`, id, name)
	if err != nil {
		t.Fatalf("seeding track: %v", err)
	}
}

func TestCreateAndQueryAlbumRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	data := env.do(t, `mutation { createAlbum(input: { name: "Blue Train" }) { id name } }`, nil)
	created := data["createAlbum"].(map[string]interface{})
	if created["name"] != "Blue Train" {
		t.Fatalf("got %v", created)
	}
	id := created["id"].(string)
	if _, err := extid.Decode(id); err != nil {
		t.Fatalf("id %q is not an opaque external id: %v", id, err)
	}

	data = env.do(t, fmt.Sprintf(`{ album(id: %q) { id name } }`, id), nil)
	album := data["album"].(map[string]interface{})
	if album["id"] != id || album["name"] != "Blue Train" {
		t.Errorf("round trip mismatch: %v", album)
	}
}

func TestRawIntegerIDAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrack(t, 7, "Naima")

	data := env.do(t, `{ track(id: 7) { id name } }`, nil)
	track := data["track"].(map[string]interface{})
	if track["name"] != "Naima" {
		t.Fatalf("got %v", track)
	}
	if track["id"] != extid.Encode(7) {
		t.Errorf("output id %v, want encoded form %q", track["id"], extid.Encode(7))
	}
}

func TestNestedTrackReferences(t *testing.T) {
	env := newTestEnv(t)
	data := env.do(t, `mutation { createArtist(input: { name: "John Coltrane" }) { id } }`, nil)
	artistID := data["createArtist"].(map[string]interface{})["id"].(string)
	env.seedTrack(t, 1, "Giant Steps")

	env.do(t, fmt.Sprintf(
		`mutation { updateTrack(id: 1, input: { name: "Giant Steps", artistId: %q }) { id } }`,
		artistID), nil)

	data = env.do(t, `{ track(id: 1) { name artist { id name } album { id } } }`, nil)
	track := data["track"].(map[string]interface{})
	artist := track["artist"].(map[string]interface{})
	if artist["name"] != "John Coltrane" || artist["id"] != artistID {
		t.Errorf("got artist %v", artist)
	}
	if track["album"] != nil {
		t.Errorf("expected nil album, got %v", track["album"])
	}

	data = env.do(t, fmt.Sprintf(`{ artist(id: %q) { tracks { name } } }`, artistID), nil)
	tracks := data["artist"].(map[string]interface{})["tracks"].([]interface{})
	if len(tracks) != 1 {
		t.Fatalf("got %d artist tracks, want 1", len(tracks))
	}
}

func TestPlaylistTrackMutations(t *testing.T) {
	env := newTestEnv(t)
	for i := int32(1); i <= 3; i++ {
		env.seedTrack(t, i, fmt.Sprintf("track-%d", i))
	}
	data := env.do(t, `mutation { createPlaylist(input: { name: "mix" }) { id } }`, nil)
	pid := data["createPlaylist"].(map[string]interface{})["id"].(string)

	for i := int32(1); i <= 3; i++ {
		env.do(t, fmt.Sprintf(
			`mutation { createPlaylistTrack(id: %q, input: { id: %d }) { id } }`, pid, i), nil)
	}

	order := func() []string {
		data := env.do(t, fmt.Sprintf(`{ playlist(id: %q) { tracks { name } } }`, pid), nil)
		raw := data["playlist"].(map[string]interface{})["tracks"].([]interface{})
		out := make([]string, len(raw))
		for i, item := range raw {
			out[i] = item.(map[string]interface{})["name"].(string)
		}
		return out
	}

	if got := order(); fmt.Sprint(got) != "[track-1 track-2 track-3]" {
		t.Fatalf("after inserts: %v", got)
	}

	env.do(t, fmt.Sprintf(
		`mutation { updatePlaylistTrack(id: %q, input: { rangeStart: 2, insertBefore: 0 }) { id } }`,
		pid), nil)
	if got := order(); fmt.Sprint(got) != "[track-3 track-1 track-2]" {
		t.Fatalf("after move: %v", got)
	}

	env.do(t, fmt.Sprintf(
		`mutation { deletePlaylistTrack(id: %q, input: { id: 1 }) { id } }`, pid), nil)
	if got := order(); fmt.Sprint(got) != "[track-3 track-2]" {
		t.Fatalf("after delete: %v", got)
	}

	msg := env.doErr(t, fmt.Sprintf(
		`mutation { updatePlaylistTrack(id: %q, input: { rangeStart: 5, insertBefore: 0 }) { id } }`, pid))
	if msg == "" {
		t.Error("expected an error message for an out-of-bounds move")
	}
}

func TestDeleteTrackPurgesAndRemovesMedia(t *testing.T) {
	env := newTestEnv(t)
	env.seedTrack(t, 1, "doomed")
	data := env.do(t, `mutation { createPlaylist(input: { name: "mix" }) { id } }`, nil)
	pid := data["createPlaylist"].(map[string]interface{})["id"].(string)
	env.do(t, fmt.Sprintf(
		`mutation { createPlaylistTrack(id: %q, input: { id: 1 }) { id } }`, pid), nil)

	data = env.do(t, `mutation { deleteTrack(id: 1) }`, nil)
	if data["deleteTrack"] != true {
		t.Fatalf("got %v, want true", data["deleteTrack"])
	}
	if len(env.removed) != 1 || env.removed[0] != 1 {
		t.Errorf("media removal hook got %v, want [1]", env.removed)
	}

	data = env.do(t, fmt.Sprintf(`{ playlist(id: %q) { tracks { name } } }`, pid), nil)
	tracks := data["playlist"].(map[string]interface{})["tracks"].([]interface{})
	if len(tracks) != 0 {
		t.Errorf("playlist still has %d tracks after purge", len(tracks))
	}

	data = env.do(t, `mutation { deleteTrack(id: 1) }`, nil)
	if data["deleteTrack"] != false {
		t.Errorf("second delete got %v, want false", data["deleteTrack"])
	}
}

func TestBadExternalIDRejected(t *testing.T) {
	env := newTestEnv(t)
	msg := env.doErr(t, `{ album(id: "!!!not-an-id!!!") { name } }`)
	if msg == "" {
		t.Error("expected an error for a malformed id")
	}
}
