package graphql

import (
	"context"
	"sync"

	"pitunes/internal/catalog"
	"pitunes/pkg/models"
)

type loadersKey struct{}

// loaders memoizes entity lookups for the duration of one request, so a
// track list resolving the same album field a hundred times costs one
// query per distinct id. Misses are cached too.
type loaders struct {
	catalog *catalog.Catalog

	mu      sync.Mutex
	albums  map[int32]*models.Album
	artists map[int32]*models.Artist
	genres  map[int32]*models.Genre
}

func withLoaders(ctx context.Context, c *catalog.Catalog) context.Context {
	return context.WithValue(ctx, loadersKey{}, &loaders{
		catalog: c,
		albums:  make(map[int32]*models.Album),
		artists: make(map[int32]*models.Artist),
		genres:  make(map[int32]*models.Genre),
	})
}

func loadersFrom(ctx context.Context) *loaders {
	l, _ := ctx.Value(loadersKey{}).(*loaders)
	return l
}

func (l *loaders) album(ctx context.Context, id int32) (*models.Album, error) {
	l.mu.Lock()
	if cached, ok := l.albums[id]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	found, err := l.catalog.AlbumsByIDs(ctx, []int32{id})
	if err != nil {
		return nil, err
	}
	var entry *models.Album
	if a, ok := found[id]; ok {
		entry = &a
	}
	l.mu.Lock()
	l.albums[id] = entry
	l.mu.Unlock()
	return entry, nil
}

func (l *loaders) artist(ctx context.Context, id int32) (*models.Artist, error) {
	l.mu.Lock()
	if cached, ok := l.artists[id]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	found, err := l.catalog.ArtistsByIDs(ctx, []int32{id})
	if err != nil {
		return nil, err
	}
	var entry *models.Artist
	if a, ok := found[id]; ok {
		entry = &a
	}
	l.mu.Lock()
	l.artists[id] = entry
	l.mu.Unlock()
	return entry, nil
}

func (l *loaders) genre(ctx context.Context, id int32) (*models.Genre, error) {
	l.mu.Lock()
	if cached, ok := l.genres[id]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	found, err := l.catalog.GenresByIDs(ctx, []int32{id})
	if err != nil {
		return nil, err
	}
	var entry *models.Genre
	if g, ok := found[id]; ok {
		entry = &g
	}
	l.mu.Lock()
	l.genres[id] = entry
	l.mu.Unlock()
	return entry, nil
}
