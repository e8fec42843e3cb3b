package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"pitunes/pkg/models"
)

var nameInputFields = graphql.InputObjectConfigFieldMap{
	"name": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
}

var albumInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "AlbumInput", Fields: nameInputFields,
})
var artistInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "ArtistInput", Fields: nameInputFields,
})
var genreInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "GenreInput", Fields: nameInputFields,
})
var playlistInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "PlaylistInput", Fields: nameInputFields,
})

var trackInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "TrackInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"albumId":     &graphql.InputObjectFieldConfig{Type: idScalar},
		"artistId":    &graphql.InputObjectFieldConfig{Type: idScalar},
		"genreId":     &graphql.InputObjectFieldConfig{Type: idScalar},
		"trackNumber": &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

var playlistTrackInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "PlaylistTrackInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"id":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(idScalar)},
		"position": &graphql.InputObjectFieldConfig{Type: graphql.Int},
	},
})

var playlistTrackOrderInput = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "PlaylistTrackOrderInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"rangeStart":   &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
		"rangeLength":  &graphql.InputObjectFieldConfig{Type: graphql.Int},
		"insertBefore": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Int)},
	},
})

func inputMap(args map[string]interface{}) (map[string]interface{}, error) {
	m, ok := args["input"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: missing input", models.ErrBadID)
	}
	return m, nil
}

func inputName(args map[string]interface{}) (string, error) {
	m, err := inputMap(args)
	if err != nil {
		return "", err
	}
	return strArg(m, "name")
}

func intFrom(m map[string]interface{}, name string) (int32, error) {
	n, ok := m[name].(int)
	if !ok {
		return 0, fmt.Errorf("%w: missing %s", models.ErrBadID, name)
	}
	return int32(n), nil
}

// namedMutations builds the create/update/delete triple shared by all
// name-only entities.
func namedMutations(
	typeName string,
	outType *graphql.Object,
	input *graphql.InputObject,
	create func(p graphql.ResolveParams, name string) (interface{}, error),
	update func(p graphql.ResolveParams, id int32, name string) (interface{}, error),
	del func(p graphql.ResolveParams, id int32) (bool, error),
) graphql.Fields {
	return graphql.Fields{
		"create" + typeName: &graphql.Field{
			Type: graphql.NewNonNull(outType),
			Args: graphql.FieldConfigArgument{
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				name, err := inputName(p.Args)
				if err != nil {
					return nil, err
				}
				return create(p, name)
			},
		},
		"update" + typeName: &graphql.Field{
			Type: graphql.NewNonNull(outType),
			Args: graphql.FieldConfigArgument{
				"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
				"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(input)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, err := idArg(p.Args, "id")
				if err != nil {
					return nil, err
				}
				name, err := inputName(p.Args)
				if err != nil {
					return nil, err
				}
				return update(p, id, name)
			},
		},
		"delete" + typeName: &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Args: idOnlyArgs(),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				id, err := idArg(p.Args, "id")
				if err != nil {
					return nil, err
				}
				return del(p, id)
			},
		},
	}
}

func (b *builder) mutation() *graphql.Object {
	fields := graphql.Fields{}

	merge := func(extra graphql.Fields) {
		for k, v := range extra {
			fields[k] = v
		}
	}

	merge(namedMutations("Album", b.albumType, albumInput,
		func(p graphql.ResolveParams, name string) (interface{}, error) {
			return b.cfg.Catalog.CreateAlbum(p.Context, name)
		},
		func(p graphql.ResolveParams, id int32, name string) (interface{}, error) {
			return b.cfg.Catalog.UpdateAlbum(p.Context, id, name)
		},
		func(p graphql.ResolveParams, id int32) (bool, error) {
			return b.cfg.Catalog.DeleteAlbum(p.Context, id)
		}))
	merge(namedMutations("Artist", b.artistType, artistInput,
		func(p graphql.ResolveParams, name string) (interface{}, error) {
			return b.cfg.Catalog.CreateArtist(p.Context, name)
		},
		func(p graphql.ResolveParams, id int32, name string) (interface{}, error) {
			return b.cfg.Catalog.UpdateArtist(p.Context, id, name)
		},
		func(p graphql.ResolveParams, id int32) (bool, error) {
			return b.cfg.Catalog.DeleteArtist(p.Context, id)
		}))
	merge(namedMutations("Genre", b.genreType, genreInput,
		func(p graphql.ResolveParams, name string) (interface{}, error) {
			return b.cfg.Catalog.CreateGenre(p.Context, name)
		},
		func(p graphql.ResolveParams, id int32, name string) (interface{}, error) {
			return b.cfg.Catalog.UpdateGenre(p.Context, id, name)
		},
		func(p graphql.ResolveParams, id int32) (bool, error) {
			return b.cfg.Catalog.DeleteGenre(p.Context, id)
		}))
	merge(namedMutations("Playlist", b.playlistType, playlistInput,
		func(p graphql.ResolveParams, name string) (interface{}, error) {
			return b.cfg.Engine.CreatePlaylist(p.Context, name)
		},
		func(p graphql.ResolveParams, id int32, name string) (interface{}, error) {
			return b.cfg.Engine.UpdatePlaylist(p.Context, id, name)
		},
		func(p graphql.ResolveParams, id int32) (bool, error) {
			return b.cfg.Engine.DeletePlaylist(p.Context, id)
		}))

	fields["updateTrack"] = &graphql.Field{
		Type: graphql.NewNonNull(b.trackType),
		Args: graphql.FieldConfigArgument{
			"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(trackInput)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			id, err := idArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputMap(p.Args)
			if err != nil {
				return nil, err
			}
			name, err := strArg(m, "name")
			if err != nil {
				return nil, err
			}
			in := models.TrackInput{Name: name, TrackNumber: optIntArg(m, "trackNumber")}
			if in.AlbumID, err = optIDArg(m, "albumId"); err != nil {
				return nil, err
			}
			if in.ArtistID, err = optIDArg(m, "artistId"); err != nil {
				return nil, err
			}
			if in.GenreID, err = optIDArg(m, "genreId"); err != nil {
				return nil, err
			}
			return b.cfg.Catalog.UpdateTrack(p.Context, id, in)
		},
	}
	fields["deleteTrack"] = &graphql.Field{
		Type: graphql.NewNonNull(graphql.Boolean),
		Args: idOnlyArgs(),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			id, err := idArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			deleted, err := b.cfg.Engine.PurgeTrack(p.Context, id)
			if err != nil {
				return nil, err
			}
			if deleted && b.cfg.RemoveMedia != nil {
				b.cfg.RemoveMedia(id)
			}
			return deleted, nil
		},
	}

	fields["createPlaylistTrack"] = &graphql.Field{
		Type: graphql.NewNonNull(b.playlistType),
		Args: graphql.FieldConfigArgument{
			"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(playlistTrackInput)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			playlistID, err := idArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputMap(p.Args)
			if err != nil {
				return nil, err
			}
			trackID, err := idArg(m, "id")
			if err != nil {
				return nil, err
			}
			return b.cfg.Engine.InsertEntry(p.Context, playlistID, trackID, optIntArg(m, "position"))
		},
	}
	fields["updatePlaylistTrack"] = &graphql.Field{
		Type: graphql.NewNonNull(b.playlistType),
		Args: graphql.FieldConfigArgument{
			"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(playlistTrackOrderInput)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			playlistID, err := idArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputMap(p.Args)
			if err != nil {
				return nil, err
			}
			rangeStart, err := intFrom(m, "rangeStart")
			if err != nil {
				return nil, err
			}
			insertBefore, err := intFrom(m, "insertBefore")
			if err != nil {
				return nil, err
			}
			return b.cfg.Engine.MoveRange(p.Context, playlistID, rangeStart,
				optIntArg(m, "rangeLength"), insertBefore)
		},
	}
	fields["deletePlaylistTrack"] = &graphql.Field{
		Type: graphql.NewNonNull(b.playlistType),
		Args: graphql.FieldConfigArgument{
			"id":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(idScalar)},
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(playlistTrackInput)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			playlistID, err := idArg(p.Args, "id")
			if err != nil {
				return nil, err
			}
			m, err := inputMap(p.Args)
			if err != nil {
				return nil, err
			}
			trackID, err := idArg(m, "id")
			if err != nil {
				return nil, err
			}
			return b.cfg.Engine.DeleteEntry(p.Context, playlistID, trackID, optIntArg(m, "position"))
		},
	}

	return graphql.NewObject(graphql.ObjectConfig{Name: "Mutation", Fields: fields})
}
