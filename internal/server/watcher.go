package server

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"pitunes/internal/extid"
	"pitunes/internal/ingest"
	"pitunes/internal/store"
)

// mediaWatcher reconciles the tracks directory against the database. External
// edits to the directory (and failed post-commit moves) leave rows without
// media or files without rows; the sweep reports both.
type mediaWatcher struct {
	store    *store.Store
	ingester *ingest.Ingester
	logger   *logrus.Logger
	watcher  *fsnotify.Watcher
}

func newMediaWatcher(s *store.Store, ing *ingest.Ingester, logger *logrus.Logger) (*mediaWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(ing.TracksDir()); err != nil {
		watcher.Close()
		return nil, err
	}
	return &mediaWatcher{store: s, ingester: ing, logger: logger, watcher: watcher}, nil
}

// run sweeps once at startup, then again after each burst of filesystem
// events. Events are debounced so a bulk copy triggers one sweep.
func (mw *mediaWatcher) run(ctx context.Context) {
	defer mw.watcher.Close()

	mw.sweep(ctx)

	var debounce *time.Timer
	fire := make(chan struct{}, 1)
	schedule := func() {
		if debounce != nil {
			debounce.Stop()
		}
		debounce = time.AfterFunc(2*time.Second, func() {
			select {
			case fire <- struct{}{}:
			default:
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-fire:
			mw.sweep(ctx)
		case event, ok := <-mw.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(event.Name)
			if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".mp3") {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				schedule()
			}
		case err, ok := <-mw.watcher.Errors:
			if !ok {
				return
			}
			mw.logger.WithError(err).Error("Media watcher error")
		}
	}
}

// sweep compares track rows against media files, logging every mismatch.
func (mw *mediaWatcher) sweep(ctx context.Context) {
	rows, err := mw.store.DB().QueryContext(ctx, `SELECT id FROM tracks`)
	if err != nil {
		mw.logger.WithError(err).Error("Sweep could not list tracks")
		return
	}
	known := make(map[string]int32)
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			mw.logger.WithError(err).Error("Sweep scan failed")
			return
		}
		known[extid.Encode(id)] = id
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		mw.logger.WithError(err).Error("Sweep could not list tracks")
		return
	}

	entries, err := filepath.Glob(filepath.Join(mw.ingester.TracksDir(), "*.mp3"))
	if err != nil {
		mw.logger.WithError(err).Error("Sweep could not list media files")
		return
	}
	onDisk := make(map[string]bool, len(entries))
	for _, path := range entries {
		name := strings.TrimSuffix(filepath.Base(path), ".mp3")
		onDisk[name] = true
		if _, ok := known[name]; !ok {
			mw.logger.WithField("file", path).Warn("Media file has no track row")
		}
	}
	missing := 0
	for name, id := range known {
		if !onDisk[name] {
			missing++
			mw.logger.WithFields(logrus.Fields{
				"track_id": id,
				"file":     name + ".mp3",
			}).Warn("Track row has no media file")
		}
	}

	mw.logger.WithFields(logrus.Fields{
		"tracks":        len(known),
		"files":         len(entries),
		"missing_media": missing,
	}).Debug("Media sweep complete")
}
