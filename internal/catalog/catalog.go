// Package catalog models the quiz catalog document: categories of songs,
// each song pointing at an audio file relative to the catalog's base path.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/audiolibrelab/songquiz/internal/audio"
)

var (
	ErrNoCategory = errors.New("no such category")
	ErrNoSong     = errors.New("no such song")
)

// DefaultDurations are the clip-length presets, in seconds, used when the
// document does not list any.
var DefaultDurations = []float64{1.0, 2.0, 3.0}

// Catalog is the loaded document. Category pools shrink as songs are drawn.
type Catalog struct {
	Path        string
	Categories  []*Category
	Debug       bool
	RevealDelay time.Duration
	Durations   []float64
}

// Category is a named pool of songs.
type Category struct {
	Name  string  `json:"name"`
	Songs []*Song `json:"songs"`
}

// CategoryInfo summarises a category for list rendering.
type CategoryInfo struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// document is the on-disk shape; optional fields are pointers so that
// absence can be told apart from zero.
type document struct {
	Path        string      `json:"path"`
	Cats        []*Category `json:"cats"`
	DebugMode   *bool       `json:"debugMode"`
	DelayResult *float64    `json:"delayResult"`
	Durations   []float64   `json:"durations"`
}

// Empty returns a catalog with no categories and default settings.
func Empty() *Catalog {
	return &Catalog{Durations: append([]float64(nil), DefaultDurations...)}
}

// Parse decodes a catalog document. delayResult is read in milliseconds.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := Empty()
	c.Path = doc.Path
	if doc.DebugMode != nil {
		c.Debug = *doc.DebugMode
	}
	if doc.DelayResult != nil {
		if *doc.DelayResult < 0 {
			return nil, fmt.Errorf("delayResult must be >= 0, got %v", *doc.DelayResult)
		}
		c.RevealDelay = time.Duration(*doc.DelayResult * float64(time.Millisecond))
	}
	if len(doc.Durations) > 0 {
		c.Durations = doc.Durations
	}

	for i, cat := range doc.Cats {
		if cat == nil {
			return nil, fmt.Errorf("cats[%d]: category is null", i)
		}
		if cat.Name == "" {
			return nil, fmt.Errorf("cats[%d]: 'name' is required", i)
		}
		songs := cat.Songs[:0]
		for j, song := range cat.Songs {
			if song == nil || song.Src == "" {
				slog.Warn("Skipping catalog entry without source", "category", cat.Name, "index", j)
				continue
			}
			songs = append(songs, song)
		}
		cat.Songs = songs
		c.Categories = append(c.Categories, cat)
	}
	return c, nil
}

// Load fetches and parses the catalog at location. A relative base path in the
// document is resolved against the catalog's own location.
func Load(ctx context.Context, fetcher audio.Fetcher, location string) (*Catalog, error) {
	data, err := fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}

	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	c.Path = resolveBase(location, c.Path)

	slog.Info("Catalog loaded", "location", location, "categories", len(c.Categories), "debug", c.Debug)
	return c, nil
}

func resolveBase(location, base string) string {
	if audio.IsRemote(base) || filepath.IsAbs(base) {
		return base
	}
	if audio.IsRemote(location) {
		loc, err := url.Parse(location)
		if err != nil {
			return base
		}
		ref, err := url.Parse(base + "/")
		if err != nil {
			return base
		}
		return loc.ResolveReference(ref).String()
	}
	return filepath.Join(filepath.Dir(location), base)
}

// Category returns the category at index i.
func (c *Catalog) Category(i int) (*Category, error) {
	if i < 0 || i >= len(c.Categories) {
		return nil, fmt.Errorf("%w: %d", ErrNoCategory, i)
	}
	return c.Categories[i], nil
}

// Summaries lists every category with its remaining pool size.
func (c *Catalog) Summaries() []CategoryInfo {
	infos := make([]CategoryInfo, len(c.Categories))
	for i, cat := range c.Categories {
		infos[i] = CategoryInfo{Index: i, Name: cat.Name, Count: len(cat.Songs)}
	}
	return infos
}

// Location returns where the audio for song is fetched from.
func (c *Catalog) Location(song *Song) string {
	return audio.JoinLocation(c.Path, song.Src)
}

// DurationPresets returns the clip-length presets as durations.
func (c *Catalog) DurationPresets() []time.Duration {
	presets := make([]time.Duration, len(c.Durations))
	for i, d := range c.Durations {
		presets[i] = time.Duration(d * float64(time.Second))
	}
	return presets
}

// Picker chooses an index in [0, n). *rand.Rand from math/rand/v2 satisfies it.
type Picker interface {
	IntN(n int) int
}

// Remaining returns how many songs are left in the pool.
func (cat *Category) Remaining() int { return len(cat.Songs) }

// TakeRandom removes a uniformly chosen song from the pool. It reports false
// when the pool is empty.
func (cat *Category) TakeRandom(p Picker) (*Song, bool) {
	if len(cat.Songs) == 0 {
		return nil, false
	}
	i := p.IntN(len(cat.Songs))
	song := cat.Songs[i]
	cat.Songs = append(cat.Songs[:i], cat.Songs[i+1:]...)
	return song, true
}

// At returns the song at index i without removing it from the pool.
func (cat *Category) At(i int) (*Song, error) {
	if i < 0 || i >= len(cat.Songs) {
		return nil, fmt.Errorf("%w: %q has no song %d", ErrNoSong, cat.Name, i)
	}
	return cat.Songs[i], nil
}
