package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pitunes/internal/store"
	"pitunes/pkg/models"
)

const trackColumns = `id, created_at, name, duration, album_id, artist_id, genre_id, track_number`

func scanTrack(scan func(dest ...interface{}) error) (models.Track, error) {
	var t models.Track
	var albumID, artistID, genreID, trackNumber sql.NullInt32
	err := scan(&t.ID, &t.CreatedAt, &t.Name, &t.Duration, &albumID, &artistID, &genreID, &trackNumber)
	if err != nil {
		return models.Track{}, err
	}
	if albumID.Valid {
		t.AlbumID = &albumID.Int32
	}
	if artistID.Valid {
		t.ArtistID = &artistID.Int32
	}
	if genreID.Valid {
		t.GenreID = &genreID.Int32
	}
	if trackNumber.Valid {
		t.TrackNumber = &trackNumber.Int32
	}
	return t, nil
}

func scanTrackRows(rows *sql.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		t, err := scanTrack(rows.Scan)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// GetTrack returns a single track by id.
func (c *Catalog) GetTrack(ctx context.Context, id int32) (models.Track, error) {
	row := c.store.DB().QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Track{}, fmt.Errorf("%w: track %d", models.ErrNotFound, id)
	}
	return t, err
}

// ListTracks returns all tracks in insertion order by id.
func (c *Catalog) ListTracks(ctx context.Context) ([]models.Track, error) {
	rows, err := c.store.DB().QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// UpdateTrack replaces the mutable fields of a track. Foreign keys in the
// input must resolve; the constraint rejects dangling references at commit.
func (c *Catalog) UpdateTrack(ctx context.Context, id int32, input models.TrackInput) (models.Track, error) {
	var t models.Track
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE tracks
			SET name = ?, album_id = ?, artist_id = ?, genre_id = ?, track_number = ?
			WHERE id = ?`,
			input.Name, input.AlbumID, input.ArtistID, input.GenreID, input.TrackNumber, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: track %d", models.ErrNotFound, id)
		}
		row := tx.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
		t, err = scanTrack(row.Scan)
		return err
	})
	return t, err
}

// DeleteTrack reports true iff exactly one row was removed. The media file
// is removed by the caller after commit; the database row is authoritative.
func (c *Catalog) DeleteTrack(ctx context.Context, id int32) (bool, error) {
	var deleted bool
	err := c.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: track %d is still referenced by playlists", models.ErrConflict, id)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n == 1
		return nil
	})
	return deleted, err
}

func (c *Catalog) tracksWhere(ctx context.Context, column string, id int32) ([]models.Track, error) {
	rows, err := c.store.DB().QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE `+column+` = ? ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrackRows(rows)
}

// TracksOfAlbum returns the album's tracks in insertion order by id.
func (c *Catalog) TracksOfAlbum(ctx context.Context, albumID int32) ([]models.Track, error) {
	return c.tracksWhere(ctx, "album_id", albumID)
}

func (c *Catalog) TracksOfArtist(ctx context.Context, artistID int32) ([]models.Track, error) {
	return c.tracksWhere(ctx, "artist_id", artistID)
}

func (c *Catalog) TracksOfGenre(ctx context.Context, genreID int32) ([]models.Track, error) {
	return c.tracksWhere(ctx, "genre_id", genreID)
}

// AlbumsOfArtist returns the distinct albums the artist's tracks reference.
func (c *Catalog) AlbumsOfArtist(ctx context.Context, artistID int32) ([]models.Album, error) {
	rows, err := c.store.DB().QueryContext(ctx, `
		SELECT a.id, a.created_at, a.name
		FROM albums a
		WHERE a.id IN (
			SELECT DISTINCT album_id FROM tracks
			WHERE artist_id = ? AND album_id IS NOT NULL
		)
		ORDER BY a.name, a.id`, artistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Album
	for rows.Next() {
		var a models.Album
		if err := rows.Scan(&a.ID, &a.CreatedAt, &a.Name); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
