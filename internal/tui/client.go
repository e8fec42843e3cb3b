// Package tui is a terminal client for the piTunes server: browse the
// catalog, inspect playlists and reorder them in place.
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Entity is any named catalog object on the wire. Ids are opaque strings.
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Track mirrors the track type exposed by the server.
type Track struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Duration int     `json:"duration"`
	Artist   *Entity `json:"artist"`
	Album    *Entity `json:"album"`
}

// Title formats a track as "artist - name" when the artist is known.
func (t Track) Title() string {
	if t.Artist != nil {
		return t.Artist.Name + " - " + t.Name
	}
	return t.Name
}

// DurationString renders the duration as m:ss.
func (t Track) DurationString() string {
	secs := t.Duration / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Client talks to the server's GraphQL endpoint.
type Client struct {
	http     *resty.Client
	endpoint string
}

func NewClient(baseURL, username, password string) *Client {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)
	if username != "" {
		client.SetBasicAuth(username, password)
	}
	return &Client{http: client, endpoint: baseURL + "/graphql"}
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// do executes one GraphQL request and unmarshals the data payload into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	var result gqlResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{"query": query, "variables": vars}).
		SetResult(&result).
		Post(c.endpoint)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("server returned %s", resp.Status())
	}
	if len(result.Errors) > 0 {
		return fmt.Errorf("graphql: %s", result.Errors[0].Message)
	}
	if out != nil {
		return json.Unmarshal(result.Data, out)
	}
	return nil
}

func (c *Client) Albums(ctx context.Context) ([]Entity, error) {
	var data struct {
		Albums []Entity `json:"albums"`
	}
	err := c.do(ctx, `{ albums { id name } }`, nil, &data)
	return data.Albums, err
}

func (c *Client) Artists(ctx context.Context) ([]Entity, error) {
	var data struct {
		Artists []Entity `json:"artists"`
	}
	err := c.do(ctx, `{ artists { id name } }`, nil, &data)
	return data.Artists, err
}

func (c *Client) Genres(ctx context.Context) ([]Entity, error) {
	var data struct {
		Genres []Entity `json:"genres"`
	}
	err := c.do(ctx, `{ genres { id name } }`, nil, &data)
	return data.Genres, err
}

func (c *Client) Playlists(ctx context.Context) ([]Entity, error) {
	var data struct {
		Playlists []Entity `json:"playlists"`
	}
	err := c.do(ctx, `{ playlists { id name } }`, nil, &data)
	return data.Playlists, err
}

const trackFields = `id name duration artist { id name } album { id name }`

func (c *Client) Tracks(ctx context.Context) ([]Track, error) {
	var data struct {
		Tracks []Track `json:"tracks"`
	}
	err := c.do(ctx, `{ tracks { `+trackFields+` } }`, nil, &data)
	return data.Tracks, err
}

// containerTracks fetches the tracks field of one album/artist/genre/playlist.
func (c *Client) containerTracks(ctx context.Context, field, id string) ([]Track, error) {
	query := fmt.Sprintf(`query($id: ID!) { %s(id: $id) { tracks { %s } } }`, field, trackFields)
	var data map[string]struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.do(ctx, query, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, err
	}
	return data[field].Tracks, nil
}

func (c *Client) AlbumTracks(ctx context.Context, id string) ([]Track, error) {
	return c.containerTracks(ctx, "album", id)
}

func (c *Client) ArtistTracks(ctx context.Context, id string) ([]Track, error) {
	return c.containerTracks(ctx, "artist", id)
}

func (c *Client) GenreTracks(ctx context.Context, id string) ([]Track, error) {
	return c.containerTracks(ctx, "genre", id)
}

func (c *Client) PlaylistTracks(ctx context.Context, id string) ([]Track, error) {
	return c.containerTracks(ctx, "playlist", id)
}

// MovePlaylistTrack moves the entry at position rangeStart so it sits before
// insertBefore, matching the server's range-move semantics.
func (c *Client) MovePlaylistTrack(ctx context.Context, playlistID string, rangeStart, insertBefore int) error {
	query := `mutation($id: ID!, $input: PlaylistTrackOrderInput!) {
		updatePlaylistTrack(id: $id, input: $input) { id }
	}`
	return c.do(ctx, query, map[string]interface{}{
		"id": playlistID,
		"input": map[string]interface{}{
			"rangeStart":   rangeStart,
			"insertBefore": insertBefore,
		},
	}, nil)
}

// RemovePlaylistTrack removes the entry of trackID at the given position.
func (c *Client) RemovePlaylistTrack(ctx context.Context, playlistID, trackID string, position int) error {
	query := `mutation($id: ID!, $input: PlaylistTrackInput!) {
		deletePlaylistTrack(id: $id, input: $input) { id }
	}`
	return c.do(ctx, query, map[string]interface{}{
		"id": playlistID,
		"input": map[string]interface{}{
			"id":       trackID,
			"position": position,
		},
	}, nil)
}
