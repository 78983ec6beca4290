// Package story holds the hand-authored adventures played in offline mode.
package story

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Background hints understood by the presentation layer.
const (
	BackgroundParchment  = "parchment"
	BackgroundForest     = "forest"
	BackgroundLighthouse = "lighthouse"
)

//go:embed stories.toml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when a catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid story catalog")

// Choice is a player-selectable action with a predetermined outcome.
type Choice struct {
	Label  string `toml:"label"`
	Result string `toml:"result"`
}

// Segment is one pre-authored unit of a story.
type Segment struct {
	Text       string   `toml:"text"`
	Background string   `toml:"background"`
	Choices    []Choice `toml:"choices"`
}

// Definition is a complete offline adventure.
type Definition struct {
	ID       string    `toml:"id"`
	Title    string    `toml:"title"`
	Segments []Segment `toml:"segments"`
}

// Complete reports whether index is past the final segment.
func (d Definition) Complete(index int) bool {
	return index >= len(d.Segments)
}

// Catalog is the read-only, ordered set of available stories.
type Catalog struct {
	stories []Definition
	byID    map[string]int
}

type catalogFile struct {
	Stories []Definition `toml:"stories"`
}

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a TOML file. An empty path yields the bundled
// catalog.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a TOML catalog.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode story catalog: %w", err)
	}
	return New(file.Stories)
}

// New validates stories and builds a catalog from them.
func New(stories []Definition) (*Catalog, error) {
	if len(stories) == 0 {
		return nil, fmt.Errorf("%w: no stories defined", ErrInvalidCatalog)
	}

	c := &Catalog{
		stories: make([]Definition, 0, len(stories)),
		byID:    make(map[string]int, len(stories)),
	}
	for _, def := range stories {
		if err := validate(def); err != nil {
			return nil, err
		}
		if _, dup := c.byID[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate story id %q", ErrInvalidCatalog, def.ID)
		}
		for i := range def.Segments {
			if def.Segments[i].Background == "" {
				def.Segments[i].Background = BackgroundParchment
			}
		}
		c.byID[def.ID] = len(c.stories)
		c.stories = append(c.stories, def)
	}
	return c, nil
}

func validate(def Definition) error {
	if strings.TrimSpace(def.ID) == "" {
		return fmt.Errorf("%w: story id is required", ErrInvalidCatalog)
	}
	if strings.TrimSpace(def.Title) == "" {
		return fmt.Errorf("%w: story %q: title is required", ErrInvalidCatalog, def.ID)
	}
	if len(def.Segments) == 0 {
		return fmt.Errorf("%w: story %q has no segments", ErrInvalidCatalog, def.ID)
	}
	for i, seg := range def.Segments {
		// Every segment is left through a choice; completion is one step
		// past the last segment.
		if len(seg.Choices) == 0 {
			return fmt.Errorf("%w: story %q segment %d has no choices", ErrInvalidCatalog, def.ID, i)
		}
		for j, ch := range seg.Choices {
			if strings.TrimSpace(ch.Label) == "" {
				return fmt.Errorf("%w: story %q segment %d choice %d has no label", ErrInvalidCatalog, def.ID, i, j)
			}
		}
	}
	return nil
}

// Stories returns the catalog in authored order.
func (c *Catalog) Stories() []Definition {
	out := make([]Definition, len(c.stories))
	copy(out, c.stories)
	return out
}

// Get looks up a story by id.
func (c *Catalog) Get(id string) (Definition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.stories[i], true
}

// First returns the first story in the catalog, used when none is selected.
func (c *Catalog) First() Definition {
	return c.stories[0]
}
