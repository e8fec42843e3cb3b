package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"pitunes/internal/store"
	"pitunes/pkg/models"
)

func newTestCatalog(t *testing.T) (*Catalog, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return New(s), s
}

func TestCreateUpdateDeleteAlbum(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	album, err := c.CreateAlbum(ctx, "Blue Train")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if album.ID <= 0 {
		t.Errorf("album id = %d, want strictly positive", album.ID)
	}
	if album.Name != "Blue Train" {
		t.Errorf("name = %q", album.Name)
	}
	if album.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	renamed, err := c.UpdateAlbum(ctx, album.ID, "Blue Train (Remastered)")
	if err != nil {
		t.Fatalf("UpdateAlbum: %v", err)
	}
	if renamed.Name != "Blue Train (Remastered)" || renamed.ID != album.ID {
		t.Errorf("UpdateAlbum = %+v", renamed)
	}

	if _, err := c.UpdateAlbum(ctx, 999999, "x"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("update missing album err = %v, want ErrNotFound", err)
	}

	deleted, err := c.DeleteAlbum(ctx, album.ID)
	if err != nil {
		t.Fatalf("DeleteAlbum: %v", err)
	}
	if !deleted {
		t.Error("DeleteAlbum = false for existing row")
	}
	deleted, err = c.DeleteAlbum(ctx, album.ID)
	if err != nil {
		t.Fatalf("second DeleteAlbum: %v", err)
	}
	if deleted {
		t.Error("DeleteAlbum = true for missing row")
	}
	if _, err := c.GetAlbum(ctx, album.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("get deleted album err = %v, want ErrNotFound", err)
	}
}

func TestNamesAreNotUnique(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	first, err := c.CreateArtist(ctx, "Unknown")
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.CreateArtist(ctx, "Unknown")
	if err != nil {
		t.Fatalf("second create with same name: %v", err)
	}
	if first.ID == second.ID {
		t.Errorf("same id %d for two creates", first.ID)
	}

	artists, err := c.ListArtists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(artists) != 2 {
		t.Errorf("ListArtists len = %d, want 2", len(artists))
	}
}

func TestGetOrCreateByName(t *testing.T) {
	c, s := newTestCatalog(t)
	ctx := context.Background()

	genre, err := c.CreateGenre(ctx, "Jazz")
	if err != nil {
		t.Fatal(err)
	}

	var existingID, freshID int32
	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		// Exact-match hit resolves to the existing row.
		existingID, err = GetOrCreateByName(tx, KindGenre, "Jazz")
		if err != nil {
			return err
		}
		// Case-sensitive: "jazz" is a different name and gets a fresh row.
		freshID, err = GetOrCreateByName(tx, KindGenre, "jazz")
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}
	if existingID != genre.ID {
		t.Errorf("GetOrCreateByName(Jazz) = %d, want existing %d", existingID, genre.ID)
	}
	if freshID == genre.ID {
		t.Error("GetOrCreateByName(jazz) reused the Jazz row")
	}

	fresh, err := c.GetGenre(ctx, freshID)
	if err != nil {
		t.Fatalf("GetGenre(%d): %v", freshID, err)
	}
	if fresh.Name != "jazz" {
		t.Errorf("fresh genre name = %q", fresh.Name)
	}
}

func TestTrackQueriesAndUpdate(t *testing.T) {
	c, s := newTestCatalog(t)
	ctx := context.Background()

	album, _ := c.CreateAlbum(ctx, "A")
	artist, _ := c.CreateArtist(ctx, "B")

	// Seed tracks directly; ingestion owns track creation in production.
	for i, name := range []string{"one", "two", "three"} {
		_, err := s.DB().Exec(`
			INSERT INTO tracks (id, name, duration, album_id, artist_id, track_number)
			VALUES (?, ?, ?, ?, ?, ?)`,
			i+1, name, (i+1)*60000, album.ID, artist.ID, i+1)
		if err != nil {
			t.Fatalf("seed track: %v", err)
		}
	}

	tracks, err := c.TracksOfAlbum(ctx, album.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 3 {
		t.Fatalf("TracksOfAlbum len = %d", len(tracks))
	}
	for i, tr := range tracks {
		if tr.ID != int32(i+1) {
			t.Errorf("tracks not in id order: %v", tracks)
			break
		}
	}

	byArtist, err := c.TracksOfArtist(ctx, artist.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byArtist) != 3 {
		t.Errorf("TracksOfArtist len = %d", len(byArtist))
	}

	albums, err := c.AlbumsOfArtist(ctx, artist.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 1 || albums[0].ID != album.ID {
		t.Errorf("AlbumsOfArtist = %+v", albums)
	}

	// Clearing the album reference via update.
	got, err := c.UpdateTrack(ctx, 2, models.TrackInput{Name: "two (edit)", ArtistID: &artist.ID})
	if err != nil {
		t.Fatalf("UpdateTrack: %v", err)
	}
	if got.Name != "two (edit)" || got.AlbumID != nil || got.ArtistID == nil {
		t.Errorf("UpdateTrack = %+v", got)
	}

	if _, err := c.UpdateTrack(ctx, 999, models.TrackInput{Name: "x"}); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("update missing track err = %v, want ErrNotFound", err)
	}

	deleted, err := c.DeleteTrack(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !deleted {
		t.Error("DeleteTrack = false")
	}
	remaining, err := c.ListTracks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 2 {
		t.Errorf("ListTracks len = %d after delete", len(remaining))
	}
}

func TestBulkLoadByIDs(t *testing.T) {
	c, _ := newTestCatalog(t)
	ctx := context.Background()

	a, _ := c.CreateAlbum(ctx, "first")
	b, _ := c.CreateAlbum(ctx, "second")

	got, err := c.AlbumsByIDs(ctx, []int32{a.ID, b.ID, 424242})
	if err != nil {
		t.Fatalf("AlbumsByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("AlbumsByIDs len = %d, want 2 (unknown ids are skipped)", len(got))
	}
	if got[a.ID].Name != "first" || got[b.ID].Name != "second" {
		t.Errorf("AlbumsByIDs = %+v", got)
	}

	empty, err := c.AlbumsByIDs(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("AlbumsByIDs(nil) = %+v", empty)
	}
}

func TestDeleteReferencedEntityConflicts(t *testing.T) {
	c, s := newTestCatalog(t)
	ctx := context.Background()

	artist, err := c.CreateArtist(ctx, "Hold Steady")
	if err != nil {
		t.Fatalf("CreateArtist: %v", err)
	}
	_, err = s.DB().Exec(`INSERT INTO tracks (id, name, duration, artist_id) VALUES (1, 'stuck', 60000, ?)`, artist.ID)
	if err != nil {
		t.Fatalf("seed track: %v", err)
	}

	_, err = c.DeleteArtist(ctx, artist.ID)
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("DeleteArtist err = %v, want ErrConflict", err)
	}

	// Releasing the reference makes the delete go through.
	if _, err := s.DB().Exec(`UPDATE tracks SET artist_id = NULL WHERE id = 1`); err != nil {
		t.Fatal(err)
	}
	deleted, err := c.DeleteArtist(ctx, artist.ID)
	if err != nil {
		t.Fatalf("DeleteArtist after release: %v", err)
	}
	if !deleted {
		t.Error("DeleteArtist = false, want true")
	}
}
