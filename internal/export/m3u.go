// Package export renders playlists in the extended M3U format understood by
// most media players.
package export

import (
	"context"
	"fmt"
	"strings"

	"pitunes/internal/catalog"
	"pitunes/internal/extid"
	"pitunes/pkg/models"
)

// Renderer turns an ordered track list into an M3U document. Media URLs are
// built from a base URL so exports stay valid behind a reverse proxy.
type Renderer struct {
	catalog *catalog.Catalog
}

func NewRenderer(c *catalog.Catalog) *Renderer {
	return &Renderer{catalog: c}
}

// M3U renders tracks in the given order. Each entry gets an EXTINF line with
// the duration in whole seconds and "artist - title" when the artist is
// known, plus a media URL of the form {base}/tracks/{id}.mp3.
func (r *Renderer) M3U(ctx context.Context, tracks []models.Track, baseURL string) (string, error) {
	artistIDs := make([]int32, 0, len(tracks))
	seen := make(map[int32]struct{})
	for _, t := range tracks {
		if t.ArtistID == nil {
			continue
		}
		if _, ok := seen[*t.ArtistID]; ok {
			continue
		}
		seen[*t.ArtistID] = struct{}{}
		artistIDs = append(artistIDs, *t.ArtistID)
	}
	artists, err := r.catalog.ArtistsByIDs(ctx, artistIDs)
	if err != nil {
		return "", fmt.Errorf("resolving artists: %w", err)
	}

	base := strings.TrimRight(baseURL, "/")
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, t := range tracks {
		label := t.Name
		if t.ArtistID != nil {
			if artist, ok := artists[*t.ArtistID]; ok {
				label = artist.Name + " - " + t.Name
			}
		}
		fmt.Fprintf(&b, "#EXTINF:%d,%s\n", t.Duration/1000, label)
		fmt.Fprintf(&b, "%s/tracks/%s.mp3\n", base, extid.Encode(t.ID))
	}
	return b.String(), nil
}
