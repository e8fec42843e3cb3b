// Package playlist maintains ordered playlists. The single invariant every
// committed transaction preserves: for a playlist with N entries the stored
// positions are exactly {0..N-1}, with no gaps and no duplicates.
package playlist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pitunes/internal/store"
	"pitunes/pkg/models"

	"github.com/sirupsen/logrus"
)

// Engine runs every public operation in exactly one store transaction.
// Validation failures roll back with models.ErrInvalidRange or
// models.ErrNotFound and leave the playlist untouched.
type Engine struct {
	store  *store.Store
	logger *logrus.Logger
}

func New(s *store.Store) *Engine {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Engine{store: s, logger: logger}
}

// CreatePlaylist allocates a fresh id and inserts an empty playlist.
func (e *Engine) CreatePlaylist(ctx context.Context, name string) (models.Playlist, error) {
	var p models.Playlist
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		id, err := store.AllocateID(tx, func(id int32) error {
			_, err := tx.ExecContext(ctx, `INSERT INTO playlists (id, name) VALUES (?, ?)`, id, name)
			return err
		})
		if err != nil {
			return err
		}
		p, err = getPlaylist(ctx, tx, id)
		return err
	})
	return p, err
}

// UpdatePlaylist renames a playlist.
func (e *Engine) UpdatePlaylist(ctx context.Context, id int32, name string) (models.Playlist, error) {
	var p models.Playlist
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE playlists SET name = ? WHERE id = ?`, name, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: playlist %d", models.ErrNotFound, id)
		}
		p, err = getPlaylist(ctx, tx, id)
		return err
	})
	return p, err
}

// DeletePlaylist removes the playlist and, through the cascade, all of its
// entries. Reports true iff the playlist row existed.
func (e *Engine) DeletePlaylist(ctx context.Context, id int32) (bool, error) {
	var deleted bool
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
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

// GetPlaylist returns a playlist by id.
func (e *Engine) GetPlaylist(ctx context.Context, id int32) (models.Playlist, error) {
	var p models.Playlist
	err := e.store.DB().QueryRowContext(ctx,
		`SELECT id, created_at, name FROM playlists WHERE id = ?`, id).
		Scan(&p.ID, &p.CreatedAt, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("%w: playlist %d", models.ErrNotFound, id)
	}
	return p, err
}

// ListPlaylists returns all playlists.
func (e *Engine) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	rows, err := e.store.DB().QueryContext(ctx,
		`SELECT id, created_at, name FROM playlists ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Playlist
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Entries returns the playlist's entries ordered by position.
func (e *Engine) Entries(ctx context.Context, playlistID int32) ([]models.PlaylistEntry, error) {
	rows, err := e.store.DB().QueryContext(ctx, `
		SELECT id, created_at, playlist_id, track_id, position
		FROM playlists_tracks WHERE playlist_id = ?
		ORDER BY position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Tracks returns the playlist's tracks in playlist order. A track placed
// twice appears twice.
func (e *Engine) Tracks(ctx context.Context, playlistID int32) ([]models.Track, error) {
	rows, err := e.store.DB().QueryContext(ctx, `
		SELECT t.id, t.created_at, t.name, t.duration, t.album_id, t.artist_id, t.genre_id, t.track_number
		FROM playlists_tracks pt
		JOIN tracks t ON t.id = pt.track_id
		WHERE pt.playlist_id = ?
		ORDER BY pt.position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Track
	for rows.Next() {
		var t models.Track
		var albumID, artistID, genreID, trackNumber sql.NullInt32
		err := rows.Scan(&t.ID, &t.CreatedAt, &t.Name, &t.Duration, &albumID, &artistID, &genreID, &trackNumber)
		if err != nil {
			return nil, err
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
		out = append(out, t)
	}
	return out, rows.Err()
}

// InsertEntry places trackID into the playlist. With position nil the entry
// is appended at index N; otherwise 0 <= position <= N is required and every
// entry at index >= position shifts up by one first.
func (e *Engine) InsertEntry(ctx context.Context, playlistID, trackID int32, position *int32) (models.Playlist, error) {
	var p models.Playlist
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getPlaylist(ctx, tx, playlistID)
		if err != nil {
			return err
		}

		var count int32
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM playlists_tracks WHERE playlist_id = ?`, playlistID).Scan(&count)
		if err != nil {
			return err
		}

		pos := count
		if position != nil {
			pos = *position
		}
		if pos < 0 || pos > count {
			return fmt.Errorf("%w: position %d outside [0, %d]", models.ErrInvalidRange, pos, count)
		}

		if pos < count {
			_, err = tx.ExecContext(ctx, `
				UPDATE playlists_tracks SET position = position + 1
				WHERE playlist_id = ? AND position >= ?`, playlistID, pos)
			if err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO playlists_tracks (playlist_id, track_id, position)
			VALUES (?, ?, ?)`, playlistID, trackID, pos)
		if store.IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: track %d", models.ErrNotFound, trackID)
		}
		return err
	})
	return p, err
}

// MoveRange relocates rangeLength consecutive entries starting at rangeStart
// so the first moved entry lands immediately before the entry originally at
// insertBefore. Destinations at either edge of the range are no-ops; a
// destination strictly inside it is rejected.
func (e *Engine) MoveRange(ctx context.Context, playlistID, rangeStart int32, rangeLength *int32, insertBefore int32) (models.Playlist, error) {
	length := int32(1)
	if rangeLength != nil {
		length = *rangeLength
	}
	if length < 1 {
		return models.Playlist{}, fmt.Errorf("%w: range length %d", models.ErrInvalidRange, length)
	}
	s, b := rangeStart, insertBefore
	if s < b && b < s+length {
		return models.Playlist{}, fmt.Errorf("%w: destination %d inside moved range [%d, %d)", models.ErrInvalidRange, b, s, s+length)
	}

	var p models.Playlist
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getPlaylist(ctx, tx, playlistID)
		if err != nil {
			return err
		}

		entries, err := loadEntries(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		n := int32(len(entries))
		if s < 0 || s+length > n || b < 0 || b > n {
			return fmt.Errorf("%w: move (%d, %d, %d) on %d entries", models.ErrInvalidRange, s, length, b, n)
		}

		// Rotate only the affected window, then express each entry's change
		// as one relative UPDATE. Entries that happen to stay put are
		// skipped, so density holds at commit without a parking position.
		var window []models.PlaylistEntry
		var base int32
		switch {
		case b < s:
			window = entries[b : s+length]
			rotateLeft(window, int(s-b))
			base = b
		case b > s+length:
			window = entries[s:b]
			rotateRight(window, int(b-(s+length)))
			base = s
		default:
			// b == s or b == s+length moves nothing.
			return nil
		}
		for i, entry := range window {
			delta := base + int32(i) - entry.Position
			if delta == 0 {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				UPDATE playlists_tracks SET position = position + ?
				WHERE id = ?`, delta, entry.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return p, err
}

// DeleteEntry removes entries of trackID from the playlist. With position
// set, exactly the (track, position) entry must match; without it, every
// entry of that track goes. Remaining entries are renumbered to restore
// density.
func (e *Engine) DeleteEntry(ctx context.Context, playlistID, trackID int32, position *int32) (models.Playlist, error) {
	var p models.Playlist
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = getPlaylist(ctx, tx, playlistID)
		if err != nil {
			return err
		}

		var res sql.Result
		if position != nil {
			res, err = tx.ExecContext(ctx, `
				DELETE FROM playlists_tracks
				WHERE playlist_id = ? AND track_id = ? AND position = ?`,
				playlistID, trackID, *position)
		} else {
			res, err = tx.ExecContext(ctx, `
				DELETE FROM playlists_tracks
				WHERE playlist_id = ? AND track_id = ?`,
				playlistID, trackID)
		}
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if position != nil && n != 1 || position == nil && n < 1 {
			return fmt.Errorf("%w: track %d in playlist %d", models.ErrNotFound, trackID, playlistID)
		}

		// Renumber survivors by ordinal; prior positions are irrelevant.
		entries, err := loadEntries(ctx, tx, playlistID)
		if err != nil {
			return err
		}
		for i, entry := range entries {
			if entry.Position == int32(i) {
				continue
			}
			_, err := tx.ExecContext(ctx,
				`UPDATE playlists_tracks SET position = ? WHERE id = ?`, int32(i), entry.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	return p, err
}

// PurgeTrack removes a track from the catalog together with every playlist
// entry that references it, renumbering each affected playlist. Returns
// false when no such track exists.
func (e *Engine) PurgeTrack(ctx context.Context, trackID int32) (bool, error) {
	deleted := false
	err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT DISTINCT playlist_id FROM playlists_tracks WHERE track_id = ?`, trackID)
		if err != nil {
			return err
		}
		var affected []int32
		for rows.Next() {
			var id int32
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			affected = append(affected, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM playlists_tracks WHERE track_id = ?`, trackID); err != nil {
			return err
		}
		for _, playlistID := range affected {
			entries, err := loadEntries(ctx, tx, playlistID)
			if err != nil {
				return err
			}
			for i, entry := range entries {
				if entry.Position == int32(i) {
					continue
				}
				_, err := tx.ExecContext(ctx,
					`UPDATE playlists_tracks SET position = ? WHERE id = ?`, int32(i), entry.ID)
				if err != nil {
					return err
				}
			}
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, trackID)
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

func getPlaylist(ctx context.Context, tx *sql.Tx, id int32) (models.Playlist, error) {
	var p models.Playlist
	err := tx.QueryRowContext(ctx,
		`SELECT id, created_at, name FROM playlists WHERE id = ?`, id).
		Scan(&p.ID, &p.CreatedAt, &p.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Playlist{}, fmt.Errorf("%w: playlist %d", models.ErrNotFound, id)
	}
	return p, err
}

func loadEntries(ctx context.Context, tx *sql.Tx, playlistID int32) ([]models.PlaylistEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, created_at, playlist_id, track_id, position
		FROM playlists_tracks WHERE playlist_id = ?
		ORDER BY position`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]models.PlaylistEntry, error) {
	var out []models.PlaylistEntry
	for rows.Next() {
		var en models.PlaylistEntry
		if err := rows.Scan(&en.ID, &en.CreatedAt, &en.PlaylistID, &en.TrackID, &en.Position); err != nil {
			return nil, err
		}
		out = append(out, en)
	}
	return out, rows.Err()
}

func rotateLeft(s []models.PlaylistEntry, k int) {
	if len(s) == 0 {
		return
	}
	k %= len(s)
	reverse(s[:k])
	reverse(s[k:])
	reverse(s)
}

func rotateRight(s []models.PlaylistEntry, k int) {
	if len(s) == 0 {
		return
	}
	rotateLeft(s, len(s)-k%len(s))
}

func reverse(s []models.PlaylistEntry) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
