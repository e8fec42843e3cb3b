package models

import "time"

// Album groups tracks under a shared album name. Names are not unique;
// identity is the id alone.
type Album struct {
	ID        int32     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
}

// Artist is a referenced performer name.
type Artist struct {
	ID        int32     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
}

// Genre is a referenced genre name.
type Genre struct {
	ID        int32     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
}

// Track is a catalog entry for one media file. Foreign keys are nullable;
// when set they must reference existing rows at commit time.
type Track struct {
	ID          int32     `json:"id"`
	CreatedAt   time.Time `json:"createdAt"`
	Name        string    `json:"name"`
	Duration    int32     `json:"duration"` // milliseconds
	AlbumID     *int32    `json:"albumId,omitempty"`
	ArtistID    *int32    `json:"artistId,omitempty"`
	GenreID     *int32    `json:"genreId,omitempty"`
	TrackNumber *int32    `json:"trackNumber,omitempty"`
}

// Playlist is an ordered collection of playlist entries.
type Playlist struct {
	ID        int32     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Name      string    `json:"name"`
}

// PlaylistEntry places one track at one position inside a playlist. For a
// playlist with N entries the positions form exactly {0..N-1}; every engine
// operation commits only if that holds afterwards.
type PlaylistEntry struct {
	ID         int32     `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	PlaylistID int32     `json:"playlistId"`
	TrackID    int32     `json:"trackId"`
	Position   int32     `json:"position"`
}

// TrackInput carries the mutable fields of a track for updates.
type TrackInput struct {
	Name        string `json:"name"`
	AlbumID     *int32 `json:"albumId,omitempty"`
	ArtistID    *int32 `json:"artistId,omitempty"`
	GenreID     *int32 `json:"genreId,omitempty"`
	TrackNumber *int32 `json:"trackNumber,omitempty"`
}
