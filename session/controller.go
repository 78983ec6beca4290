package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai_dungeon_master/generator"
	"ai_dungeon_master/prompts"
	"ai_dungeon_master/response"
	"ai_dungeon_master/storage"
	"ai_dungeon_master/story"
)

// Config tunes a Controller.
type Config struct {
	Generation generator.Options
	// Timeout bounds each generation request. Zero means no extra bound.
	Timeout time.Duration
	// Now is the clock used to stamp saves. Defaults to time.Now.
	Now func() time.Time
}

// Controller applies player actions to a Session. It is not safe for
// concurrent use; Manager serialises access for the web layer.
type Controller struct {
	catalog *story.Catalog
	gen     generator.TextGenerator
	store   storage.SaveStore
	cfg     Config
	log     *zap.Logger

	state Session
}

// NewController builds a Controller with a fresh Session. gen may be nil, in
// which case every online turn fails with ErrGenerationUnavailable.
func NewController(catalog *story.Catalog, gen generator.TextGenerator, store storage.SaveStore, cfg Config, log *zap.Logger) *Controller {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		catalog: catalog,
		gen:     gen,
		store:   store,
		cfg:     cfg,
		log:     log,
		state:   Session{OfflineStoryID: catalog.First().ID},
	}
}

// Session returns a copy of the current state.
func (c *Controller) Session() Session {
	return c.state.clone()
}

// OnlineAvailable reports whether a text generator is configured.
func (c *Controller) OnlineAvailable() bool {
	return c.gen != nil
}

func (c *Controller) StartOnline(characterName string) error {
	name := strings.TrimSpace(characterName)
	if name == "" {
		return ErrEmptyCharacterName
	}
	c.state.CharacterName = name
	c.state.Mode = ModeOnline
	c.state.History = nil
	c.log.Info("Online adventure started", zap.String("character", name))
	return nil
}

func (c *Controller) StartOffline(characterName string) error {
	name := strings.TrimSpace(characterName)
	if name == "" {
		return ErrEmptyCharacterName
	}
	c.state.CharacterName = name
	c.state.Mode = ModeOffline
	c.state.OfflineSegmentIndex = 0
	c.state.History = nil
	c.log.Info("Offline adventure started",
		zap.String("character", name),
		zap.String("story_id", c.state.OfflineStoryID),
	)
	return nil
}

// AdvanceOnline plays one dungeon master turn. With no input it asks for an
// opening turn. On failure the Session is left as it was and the error wraps
// ErrGenerationUnavailable; switching to offline mode is the caller's call.
func (c *Controller) AdvanceOnline(ctx context.Context, in PlayerInput) (string, []string, error) {
	if c.gen == nil {
		return "", nil, fmt.Errorf("%w: no text generator configured", ErrGenerationUnavailable)
	}

	turn := prompts.Turn{
		Choice:   strings.TrimSpace(in.Choice),
		FreeText: strings.TrimSpace(in.FreeText),
	}
	before := len(c.state.History)
	switch {
	case turn.Choice != "":
		c.append(KindPlayer, turn.Choice)
	case turn.FreeText != "":
		c.append(KindPlayer, turn.FreeText)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	prompt := prompts.Build(c.renderHistory(), turn)
	raw, err := c.gen.Generate(ctx, prompt, c.cfg.Generation)
	if err != nil {
		c.state.History = c.state.History[:before]
		if len(c.state.History) == 0 {
			c.state.History = nil
		}
		if !errors.Is(err, ErrGenerationUnavailable) {
			err = fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
		}
		c.log.Warn("Text generation failed", zap.Error(err))
		return "", nil, err
	}

	narrative, choices := response.Segment(raw)
	entry := narrative
	if len(choices) > 0 {
		entry += "\n\n" + response.FormatChoices(choices)
	}
	c.append(KindDungeonMaster, entry)
	c.log.Debug("Dungeon master turn generated",
		zap.Int("narrative_bytes", len(narrative)),
		zap.Int("choices", len(choices)),
	)
	return narrative, choices, nil
}

// FallbackToOffline moves an online session to offline play after the
// generator failed. Transcript and offline position are kept.
func (c *Controller) FallbackToOffline() {
	c.state.Mode = ModeOffline
	c.log.Info("Switched to offline mode", zap.String("story_id", c.state.OfflineStoryID))
}

// AdvanceOffline applies the choice at choiceIndex of the current segment and
// returns it. Calling it on a completed story is a programming error and
// yields ErrSegmentIndexOutOfRange.
func (c *Controller) AdvanceOffline(choiceIndex int) (story.Choice, error) {
	def := c.currentStory()
	idx := c.state.OfflineSegmentIndex
	if idx < 0 || def.Complete(idx) {
		return story.Choice{}, fmt.Errorf("%w: story %q has %d segments, index %d",
			ErrSegmentIndexOutOfRange, def.ID, len(def.Segments), idx)
	}

	seg := def.Segments[idx]
	if choiceIndex < 0 || choiceIndex >= len(seg.Choices) {
		return story.Choice{}, fmt.Errorf("%w: choice %d of %d", ErrInvalidChoiceSelection, choiceIndex, len(seg.Choices))
	}

	choice := seg.Choices[choiceIndex]
	c.append(KindOffline, choice.Result)
	c.state.OfflineSegmentIndex++
	return choice, nil
}

// SelectStory picks the offline story. Picking a different story restarts it.
func (c *Controller) SelectStory(id string) error {
	if _, ok := c.catalog.Get(id); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStory, id)
	}
	if id == c.state.OfflineStoryID {
		return nil
	}
	c.state.OfflineStoryID = id
	c.state.OfflineSegmentIndex = 0
	c.state.History = nil
	return nil
}

// Restart rewinds the offline story and clears the transcript.
func (c *Controller) Restart() {
	c.state.OfflineSegmentIndex = 0
	c.state.History = nil
}

// ReturnHome leaves the current adventure without discarding it.
func (c *Controller) ReturnHome() {
	c.state.Mode = ModeUnset
}

// Save snapshots the Session into a new save record.
func (c *Controller) Save(ctx context.Context) (storage.SaveRecord, error) {
	name := strings.TrimSpace(c.state.CharacterName)
	if name == "" {
		return storage.SaveRecord{}, ErrEmptyCharacterName
	}

	history := c.state.History
	if history == nil {
		history = []HistoryEntry{}
	}
	data, err := json.Marshal(history)
	if err != nil {
		return storage.SaveRecord{}, fmt.Errorf("encode history: %w", err)
	}

	rec := storage.SaveRecord{
		PlayerName:          name,
		CreatedAt:           c.cfg.Now().UTC(),
		Mode:                string(c.state.Mode),
		HistoryJSON:         data,
		OfflineStoryID:      c.state.OfflineStoryID,
		OfflineSegmentIndex: c.state.OfflineSegmentIndex,
	}
	id, err := c.store.Insert(ctx, rec)
	if err != nil {
		return storage.SaveRecord{}, fmt.Errorf("save session: %w", err)
	}
	rec.ID = id
	c.log.Info("Session saved", zap.Int64("save_id", id), zap.String("player", name))
	return rec, nil
}

// ListSaves returns saved sessions, newest first.
func (c *Controller) ListSaves(ctx context.Context) ([]storage.SaveSummary, error) {
	saves, err := c.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return saves, nil
}

// Load replaces the Session with the save identified by id.
func (c *Controller) Load(ctx context.Context, id int64) error {
	rec, found, err := c.store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load save %d: %w", id, err)
	}
	if !found {
		return fmt.Errorf("%w: %d", ErrSaveNotFound, id)
	}

	restored, err := c.restore(rec)
	if err != nil {
		return fmt.Errorf("load save %d: %w", id, err)
	}
	c.state = restored
	c.log.Info("Session loaded", zap.Int64("save_id", id), zap.String("player", rec.PlayerName))
	return nil
}

// Delete removes a save. Unknown ids are ignored.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete save %d: %w", id, err)
	}
	return nil
}

func (c *Controller) restore(rec storage.SaveRecord) (Session, error) {
	mode := Mode(rec.Mode)
	if !mode.valid() {
		return Session{}, fmt.Errorf("%w: mode %q", ErrCorruptSave, rec.Mode)
	}
	def, ok := c.catalog.Get(rec.OfflineStoryID)
	if !ok {
		return Session{}, fmt.Errorf("%w: story %q is not in the catalog", ErrCorruptSave, rec.OfflineStoryID)
	}
	if rec.OfflineSegmentIndex < 0 || rec.OfflineSegmentIndex > len(def.Segments) {
		return Session{}, fmt.Errorf("%w: segment %d outside story %q", ErrCorruptSave, rec.OfflineSegmentIndex, def.ID)
	}

	var history []HistoryEntry
	if len(rec.HistoryJSON) > 0 {
		if err := json.Unmarshal(rec.HistoryJSON, &history); err != nil {
			return Session{}, fmt.Errorf("%w: history: %v", ErrCorruptSave, err)
		}
	}
	if len(history) == 0 {
		history = nil
	}

	return Session{
		Mode:                mode,
		CharacterName:       rec.PlayerName,
		History:             history,
		OfflineStoryID:      rec.OfflineStoryID,
		OfflineSegmentIndex: rec.OfflineSegmentIndex,
	}, nil
}

func (c *Controller) append(kind Kind, text string) {
	c.state.History = append(c.state.History, HistoryEntry{Kind: kind, Text: text})
}

func (c *Controller) renderHistory() []string {
	lines := make([]string, 0, len(c.state.History))
	for _, e := range c.state.History {
		lines = append(lines, e.String())
	}
	return lines
}

func (c *Controller) currentStory() story.Definition {
	if def, ok := c.catalog.Get(c.state.OfflineStoryID); ok {
		return def
	}
	return c.catalog.First()
}
