package catalog

import (
	"context"

	"pitunes/pkg/models"
)

func (r namedRow) album() models.Album   { return models.Album{ID: r.ID, CreatedAt: r.CreatedAt, Name: r.Name} }
func (r namedRow) artist() models.Artist { return models.Artist{ID: r.ID, CreatedAt: r.CreatedAt, Name: r.Name} }
func (r namedRow) genre() models.Genre   { return models.Genre{ID: r.ID, CreatedAt: r.CreatedAt, Name: r.Name} }

// CreateAlbum allocates a fresh id and inserts. The name is not uniqued.
func (c *Catalog) CreateAlbum(ctx context.Context, name string) (models.Album, error) {
	row, err := c.createNamed(ctx, KindAlbum, name)
	return row.album(), err
}

func (c *Catalog) UpdateAlbum(ctx context.Context, id int32, name string) (models.Album, error) {
	row, err := c.updateNamed(ctx, KindAlbum, id, name)
	return row.album(), err
}

// DeleteAlbum reports true iff exactly one row was removed. Tracks keep
// their album_id; dangling references are prevented by the foreign key at
// the boundary, not cascaded.
func (c *Catalog) DeleteAlbum(ctx context.Context, id int32) (bool, error) {
	return c.deleteNamed(ctx, KindAlbum, id)
}

func (c *Catalog) GetAlbum(ctx context.Context, id int32) (models.Album, error) {
	row, err := c.getNamed(ctx, KindAlbum, id)
	return row.album(), err
}

func (c *Catalog) ListAlbums(ctx context.Context) ([]models.Album, error) {
	rows, err := c.listNamed(ctx, KindAlbum)
	if err != nil {
		return nil, err
	}
	out := make([]models.Album, len(rows))
	for i, r := range rows {
		out[i] = r.album()
	}
	return out, nil
}

// AlbumsByIDs bulk-loads albums for the request-scoped batchers.
func (c *Catalog) AlbumsByIDs(ctx context.Context, ids []int32) (map[int32]models.Album, error) {
	rows, err := c.namedByIDs(ctx, KindAlbum, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]models.Album, len(rows))
	for id, r := range rows {
		out[id] = r.album()
	}
	return out, nil
}

func (c *Catalog) CreateArtist(ctx context.Context, name string) (models.Artist, error) {
	row, err := c.createNamed(ctx, KindArtist, name)
	return row.artist(), err
}

func (c *Catalog) UpdateArtist(ctx context.Context, id int32, name string) (models.Artist, error) {
	row, err := c.updateNamed(ctx, KindArtist, id, name)
	return row.artist(), err
}

func (c *Catalog) DeleteArtist(ctx context.Context, id int32) (bool, error) {
	return c.deleteNamed(ctx, KindArtist, id)
}

func (c *Catalog) GetArtist(ctx context.Context, id int32) (models.Artist, error) {
	row, err := c.getNamed(ctx, KindArtist, id)
	return row.artist(), err
}

func (c *Catalog) ListArtists(ctx context.Context) ([]models.Artist, error) {
	rows, err := c.listNamed(ctx, KindArtist)
	if err != nil {
		return nil, err
	}
	out := make([]models.Artist, len(rows))
	for i, r := range rows {
		out[i] = r.artist()
	}
	return out, nil
}

func (c *Catalog) ArtistsByIDs(ctx context.Context, ids []int32) (map[int32]models.Artist, error) {
	rows, err := c.namedByIDs(ctx, KindArtist, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]models.Artist, len(rows))
	for id, r := range rows {
		out[id] = r.artist()
	}
	return out, nil
}

func (c *Catalog) CreateGenre(ctx context.Context, name string) (models.Genre, error) {
	row, err := c.createNamed(ctx, KindGenre, name)
	return row.genre(), err
}

func (c *Catalog) UpdateGenre(ctx context.Context, id int32, name string) (models.Genre, error) {
	row, err := c.updateNamed(ctx, KindGenre, id, name)
	return row.genre(), err
}

func (c *Catalog) DeleteGenre(ctx context.Context, id int32) (bool, error) {
	return c.deleteNamed(ctx, KindGenre, id)
}

func (c *Catalog) GetGenre(ctx context.Context, id int32) (models.Genre, error) {
	row, err := c.getNamed(ctx, KindGenre, id)
	return row.genre(), err
}

func (c *Catalog) ListGenres(ctx context.Context) ([]models.Genre, error) {
	rows, err := c.listNamed(ctx, KindGenre)
	if err != nil {
		return nil, err
	}
	out := make([]models.Genre, len(rows))
	for i, r := range rows {
		out[i] = r.genre()
	}
	return out, nil
}

func (c *Catalog) GenresByIDs(ctx context.Context, ids []int32) (map[int32]models.Genre, error) {
	rows, err := c.namedByIDs(ctx, KindGenre, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[int32]models.Genre, len(rows))
	for id, r := range rows {
		out[id] = r.genre()
	}
	return out, nil
}
