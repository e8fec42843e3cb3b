// Package graphql exposes the catalog and playlist operations over a single
// GraphQL endpoint. Ids are opaque on the wire; rows stay int32 inside.
package graphql

import (
	"github.com/graphql-go/graphql"

	"pitunes/internal/catalog"
	"pitunes/internal/playlist"
	"pitunes/pkg/models"
)

// Config wires the schema to the domain services. RemoveMedia, when set, is
// called with a deleted track's id once its row is gone.
type Config struct {
	Catalog     *catalog.Catalog
	Engine      *playlist.Engine
	RemoveMedia func(id int32)
}

// NewSchema builds the executable schema.
func NewSchema(cfg Config) (graphql.Schema, error) {
	b := &builder{cfg: cfg}
	b.defineTypes()
	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    b.query(),
		Mutation: b.mutation(),
	})
}

type builder struct {
	cfg Config

	albumType    *graphql.Object
	artistType   *graphql.Object
	genreType    *graphql.Object
	trackType    *graphql.Object
	playlistType *graphql.Object
}

func (b *builder) defineTypes() {
	b.albumType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Album",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(idScalar),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Album).ID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Album).Name, nil
				},
			},
		},
	})
	b.artistType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Artist",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(idScalar),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Artist).ID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Artist).Name, nil
				},
			},
		},
	})
	b.genreType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Genre",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(idScalar),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Genre).ID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Genre).Name, nil
				},
			},
		},
	})
	b.trackType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Track",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(idScalar),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Track).ID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Track).Name, nil
				},
			},
			"duration": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Duration in milliseconds.",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return int(p.Source.(models.Track).Duration), nil
				},
			},
			"trackNumber": &graphql.Field{
				Type: graphql.Int,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t := p.Source.(models.Track)
					if t.TrackNumber == nil {
						return nil, nil
					}
					return int(*t.TrackNumber), nil
				},
			},
		},
	})
	b.playlistType = graphql.NewObject(graphql.ObjectConfig{
		Name: "Playlist",
		Fields: graphql.Fields{
			"id": &graphql.Field{
				Type: graphql.NewNonNull(idScalar),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Playlist).ID, nil
				},
			},
			"name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(models.Playlist).Name, nil
				},
			},
		},
	})

	// Cross references go in after all object types exist.
	b.trackType.AddFieldConfig("album", &graphql.Field{
		Type: b.albumType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			t := p.Source.(models.Track)
			if t.AlbumID == nil {
				return nil, nil
			}
			if l := loadersFrom(p.Context); l != nil {
				a, err := l.album(p.Context, *t.AlbumID)
				if err != nil || a == nil {
					return nil, err
				}
				return *a, nil
			}
			return b.cfg.Catalog.GetAlbum(p.Context, *t.AlbumID)
		},
	})
	b.trackType.AddFieldConfig("artist", &graphql.Field{
		Type: b.artistType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			t := p.Source.(models.Track)
			if t.ArtistID == nil {
				return nil, nil
			}
			if l := loadersFrom(p.Context); l != nil {
				a, err := l.artist(p.Context, *t.ArtistID)
				if err != nil || a == nil {
					return nil, err
				}
				return *a, nil
			}
			return b.cfg.Catalog.GetArtist(p.Context, *t.ArtistID)
		},
	})
	b.trackType.AddFieldConfig("genre", &graphql.Field{
		Type: b.genreType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			t := p.Source.(models.Track)
			if t.GenreID == nil {
				return nil, nil
			}
			if l := loadersFrom(p.Context); l != nil {
				g, err := l.genre(p.Context, *t.GenreID)
				if err != nil || g == nil {
					return nil, err
				}
				return *g, nil
			}
			return b.cfg.Catalog.GetGenre(p.Context, *t.GenreID)
		},
	})
	b.albumType.AddFieldConfig("tracks", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(b.trackType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.cfg.Catalog.TracksOfAlbum(p.Context, p.Source.(models.Album).ID)
		},
	})
	b.artistType.AddFieldConfig("tracks", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(b.trackType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.cfg.Catalog.TracksOfArtist(p.Context, p.Source.(models.Artist).ID)
		},
	})
	b.artistType.AddFieldConfig("albums", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(b.albumType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.cfg.Catalog.AlbumsOfArtist(p.Context, p.Source.(models.Artist).ID)
		},
	})
	b.genreType.AddFieldConfig("tracks", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(b.trackType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.cfg.Catalog.TracksOfGenre(p.Context, p.Source.(models.Genre).ID)
		},
	})
	b.playlistType.AddFieldConfig("tracks", &graphql.Field{
		Type: graphql.NewList(graphql.NewNonNull(b.trackType)),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			return b.cfg.Engine.Tracks(p.Context, p.Source.(models.Playlist).ID)
		},
	})
}

func idOnlyArgs() graphql.FieldConfigArgument {
	return graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
	}
}

func (b *builder) query() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"album": &graphql.Field{
				Type: b.albumType,
				Args: idOnlyArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return b.cfg.Catalog.GetAlbum(p.Context, id)
				},
			},
			"albums": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(b.albumType)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return b.cfg.Catalog.ListAlbums(p.Context)
				},
			},
			"artist": &graphql.Field{
				Type: b.artistType,
				Args: idOnlyArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return b.cfg.Catalog.GetArtist(p.Context, id)
				},
			},
			"artists": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(b.artistType)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return b.cfg.Catalog.ListArtists(p.Context)
				},
			},
			"genre": &graphql.Field{
				Type: b.genreType,
				Args: idOnlyArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return b.cfg.Catalog.GetGenre(p.Context, id)
				},
			},
			"genres": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(b.genreType)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return b.cfg.Catalog.ListGenres(p.Context)
				},
			},
			"track": &graphql.Field{
				Type: b.trackType,
				Args: idOnlyArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return b.cfg.Catalog.GetTrack(p.Context, id)
				},
			},
			"tracks": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(b.trackType)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return b.cfg.Catalog.ListTracks(p.Context)
				},
			},
			"playlist": &graphql.Field{
				Type: b.playlistType,
				Args: idOnlyArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p.Args, "id")
					if err != nil {
						return nil, err
					}
					return b.cfg.Engine.GetPlaylist(p.Context, id)
				},
			},
			"playlists": &graphql.Field{
				Type: graphql.NewList(graphql.NewNonNull(b.playlistType)),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return b.cfg.Engine.ListPlaylists(p.Context)
				},
			},
		},
	})
}
