// Package metadata derives track fields from uploaded audio. Tag parsing
// and duration probing are collaborators of ingestion; the catalog only ever
// sees the resulting TrackInfo.
package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pitunes/pkg/models"

	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
	"github.com/tcolgate/mp3"
)

// TrackInfo is everything ingestion needs to commit a track row. Album,
// Artist and Genre are empty when the tag carries no such frame;
// TrackNumber is zero when absent.
type TrackInfo struct {
	Title       string
	Album       string
	Artist      string
	Genre       string
	TrackNumber int
	DurationMS  int32
}

// Prober reads tags and measures duration from mp3 uploads.
type Prober struct {
	logger *logrus.Logger
}

func NewProber() *Prober {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	return &Prober{logger: logger}
}

// Probe derives TrackInfo from an open file. filename is the client-supplied
// name, used only as a fallback title (its stem). The file offset is
// clobbered. Returns models.ErrIngestRejected when neither the frame walk
// nor the tag yields a duration.
func (p *Prober) Probe(f *os.File, filename string) (TrackInfo, error) {
	duration, probeErr := p.probeDuration(f)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return TrackInfo{}, err
	}
	meta, tagErr := tag.ReadFrom(f)
	if tagErr != nil {
		if probeErr != nil {
			p.logger.WithFields(logrus.Fields{
				"filename":  filename,
				"probe_err": probeErr.Error(),
				"tag_err":   tagErr.Error(),
			}).Warn("Upload has neither readable frames nor tags")
			return TrackInfo{}, fmt.Errorf("%w: no duration for %s", models.ErrIngestRejected, filename)
		}
		// No tag at all: title falls back to the file stem.
		return TrackInfo{Title: fileStem(filename), DurationMS: duration}, nil
	}

	if probeErr != nil {
		tagMS, ok := tagDuration(meta)
		if !ok {
			return TrackInfo{}, fmt.Errorf("%w: no duration for %s", models.ErrIngestRejected, filename)
		}
		duration = tagMS
	}

	title := meta.Title()
	if title == "" {
		title = fileStem(filename)
	}
	trackNum, _ := meta.Track()

	return TrackInfo{
		Title:       title,
		Album:       meta.Album(),
		Artist:      meta.Artist(),
		Genre:       meta.Genre(),
		TrackNumber: trackNum,
		DurationMS:  duration,
	}, nil
}

// probeDuration walks the mp3 frames and sums their durations.
func (p *Prober) probeDuration(f *os.File) (int32, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	dec := mp3.NewDecoder(f)
	var total time.Duration
	var skipped int
	frames := 0
	for {
		var fr mp3.Frame
		if err := dec.Decode(&fr, &skipped); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if frames == 0 {
				return 0, fmt.Errorf("no decodable mp3 frames: %w", err)
			}
			break // partial decode; use what we have
		}
		total += fr.Duration()
		frames++
	}
	if frames == 0 {
		return 0, errors.New("empty mp3 stream")
	}
	return int32(total.Milliseconds()), nil
}

// tagDuration digs a TLEN text frame (milliseconds) out of the raw tag.
// dhowden/tag does not surface duration directly.
func tagDuration(meta tag.Metadata) (int32, bool) {
	for _, key := range []string{"TLEN", "TLE"} {
		raw, ok := meta.Raw()[key]
		if !ok {
			continue
		}
		s, ok := raw.(string)
		if !ok {
			continue
		}
		ms, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || ms < 0 {
			continue
		}
		return int32(ms), true
	}
	return 0, false
}

func fileStem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
