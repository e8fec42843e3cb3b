// Package ingest accepts streamed audio uploads and turns them into catalog
// rows plus a media file. The database commit decides the outcome: the media
// move happens only after commit, and a failed move never un-commits the row.
package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"pitunes/internal/catalog"
	"pitunes/internal/extid"
	"pitunes/internal/metadata"
	"pitunes/internal/store"
	"pitunes/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Ingester commits one upload per transaction. Concurrent uploads are fine:
// id allocation serializes on the generator row and duplicate names produce
// duplicate catalog rows by design.
type Ingester struct {
	store     *store.Store
	prober    *metadata.Prober
	tracksDir string
	logger    *logrus.Logger

	// orphanWrites counts post-commit filesystem failures, i.e. committed
	// rows whose media never landed. The reconciliation sweep picks those up.
	orphanWrites atomic.Int64
}

func New(s *store.Store, tracksDir string) *Ingester {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Ingester{
		store:     s,
		prober:    metadata.NewProber(),
		tracksDir: tracksDir,
		logger:    logger,
	}
}

// MediaPath returns where a track's audio lives on disk.
func (i *Ingester) MediaPath(id int32) string {
	return filepath.Join(i.tracksDir, extid.Encode(id)+".mp3")
}

// TracksDir returns the media directory.
func (i *Ingester) TracksDir() string {
	return i.tracksDir
}

// OrphanWrites reports how many committed uploads failed their media move.
func (i *Ingester) OrphanWrites() int64 {
	return i.orphanWrites.Load()
}

// Ingest streams body to a temporary file, derives metadata, commits the
// track row (get-or-creating album/artist/genre rows as needed) and then
// moves the media into place. filename is the client-supplied name used as
// fallback title.
func (i *Ingester) Ingest(ctx context.Context, body io.Reader, filename string) (models.Track, error) {
	// Temp file in the tracks dir so the post-commit move is a rename on
	// the same filesystem.
	tmp, err := os.CreateTemp(i.tracksDir, ".upload-"+uuid.NewString()+"-*")
	if err != nil {
		return models.Track{}, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		tmp.Close()
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, body); err != nil {
		return models.Track{}, fmt.Errorf("streaming upload: %w", err)
	}

	info, err := i.prober.Probe(tmp, filename)
	if err != nil {
		return models.Track{}, err
	}

	var track models.Track
	err = i.store.WithTx(ctx, func(tx *sql.Tx) error {
		var albumID, artistID, genreID *int32
		if info.Album != "" {
			id, err := catalog.GetOrCreateByName(tx, catalog.KindAlbum, info.Album)
			if err != nil {
				return err
			}
			albumID = &id
		}
		if info.Artist != "" {
			id, err := catalog.GetOrCreateByName(tx, catalog.KindArtist, info.Artist)
			if err != nil {
				return err
			}
			artistID = &id
		}
		if info.Genre != "" {
			id, err := catalog.GetOrCreateByName(tx, catalog.KindGenre, info.Genre)
			if err != nil {
				return err
			}
			genreID = &id
		}

		var trackNumber *int32
		if info.TrackNumber >= 1 {
			n := int32(info.TrackNumber)
			trackNumber = &n
		}

		id, err := store.AllocateID(tx, func(id int32) error {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tracks (id, name, duration, album_id, artist_id, genre_id, track_number)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, info.Title, info.DurationMS, albumID, artistID, genreID, trackNumber)
			return err
		})
		if err != nil {
			return err
		}

		var albumN, artistN, genreN, trackN sql.NullInt32
		err = tx.QueryRowContext(ctx, `
			SELECT id, created_at, name, duration, album_id, artist_id, genre_id, track_number
			FROM tracks WHERE id = ?`, id).
			Scan(&track.ID, &track.CreatedAt, &track.Name, &track.Duration, &albumN, &artistN, &genreN, &trackN)
		if err != nil {
			return err
		}
		if albumN.Valid {
			track.AlbumID = &albumN.Int32
		}
		if artistN.Valid {
			track.ArtistID = &artistN.Int32
		}
		if genreN.Valid {
			track.GenreID = &genreN.Int32
		}
		if trackN.Valid {
			track.TrackNumber = &trackN.Int32
		}
		return nil
	})
	if err != nil {
		return models.Track{}, err
	}

	// The row is committed; it is authoritative from here. A failed move is
	// logged and counted for the reconciliation sweep, never rolled back.
	committed = true
	tmp.Close()
	dest := i.MediaPath(track.ID)
	if err := os.Rename(tmpPath, dest); err != nil {
		i.orphanWrites.Add(1)
		i.logger.WithError(err).WithFields(logrus.Fields{
			"track_id": track.ID,
			"dest":     dest,
		}).Error("Media move failed after commit; row kept, repair deferred")
		os.Remove(tmpPath)
		return track, nil
	}

	i.logger.WithFields(logrus.Fields{
		"track_id": track.ID,
		"title":    track.Name,
		"duration": track.Duration,
	}).Info("Track ingested")
	return track, nil
}

// RemoveMedia deletes a track's audio file after its row is gone. Missing
// files are fine; the sweep may already have flagged them.
func (i *Ingester) RemoveMedia(id int32) {
	path := i.MediaPath(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		i.logger.WithError(err).WithField("path", path).Warn("Failed to remove media file")
	}
}
