package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ai_dungeon_master/storage"
	"ai_dungeon_master/story"
)

// NoticeLevel classifies a message shown to the player.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a one-shot message for the next rendered page.
type Notice struct {
	Level NoticeLevel
	Text  string
}

// Page is everything needed to render one screen.
type Page struct {
	View
	Stories []story.Definition
	Saves   []storage.SaveSummary
	Notice  *Notice
}

// Manager runs player actions against a single Controller one at a time and
// turns recoverable failures into notices. Only unexpected failures and
// contract violations are returned as errors.
type Manager struct {
	mu      sync.Mutex
	ctrl    *Controller
	catalog *story.Catalog
	notice  *Notice
	log     *zap.Logger
}

func NewManager(ctrl *Controller, catalog *story.Catalog, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{ctrl: ctrl, catalog: catalog, log: log}
}

// Page renders the current state and consumes the pending notice.
func (m *Manager) Page(ctx context.Context) (Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	page := Page{
		View:    m.ctrl.View(),
		Stories: m.catalog.Stories(),
		Notice:  m.notice,
	}
	m.notice = nil

	if page.Mode == ModeUnset {
		saves, err := m.ctrl.ListSaves(ctx)
		if err != nil {
			return Page{}, err
		}
		page.Saves = saves
	}
	return page, nil
}

// Transcript returns the character name and a copy of the transcript.
func (m *Manager) Transcript() (string, []HistoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.ctrl.Session()
	return s.CharacterName, s.History
}

// StartOnline begins an online adventure and asks for the opening turn.
func (m *Manager) StartOnline(ctx context.Context, characterName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctrl.StartOnline(characterName); err != nil {
		return m.surface(err)
	}
	return m.advanceOnline(ctx, PlayerInput{})
}

func (m *Manager) StartOffline(characterName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.surface(m.ctrl.StartOffline(characterName))
}

// Choose picks the choice at index from the current turn, in either mode.
func (m *Manager) Choose(ctx context.Context, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.ctrl.View()
	switch v.Mode {
	case ModeOnline:
		if index < 0 || index >= len(v.Choices) {
			return m.surface(fmt.Errorf("%w: choice %d of %d", ErrInvalidChoiceSelection, index, len(v.Choices)))
		}
		return m.advanceOnline(ctx, PlayerInput{Choice: v.Choices[index]})
	case ModeOffline:
		_, err := m.ctrl.AdvanceOffline(index)
		return m.surface(err)
	}
	return nil
}

// Act submits free text in online mode. It is only accepted when the current
// turn has no choices; an empty action on a fresh session requests the
// opening turn.
func (m *Manager) Act(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.ctrl.View()
	if v.Mode != ModeOnline {
		return nil
	}
	text = strings.TrimSpace(text)
	switch {
	case v.OpeningPending:
		return m.advanceOnline(ctx, PlayerInput{FreeText: text})
	case v.AwaitingFreeText && text != "":
		return m.advanceOnline(ctx, PlayerInput{FreeText: text})
	}
	return nil
}

func (m *Manager) SelectStory(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.surface(m.ctrl.SelectStory(id))
}

func (m *Manager) Restart() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctrl.Restart()
}

func (m *Manager) ReturnHome() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctrl.ReturnHome()
}

func (m *Manager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.ctrl.Save(ctx); err != nil {
		if errors.Is(err, ErrEmptyCharacterName) {
			m.setNotice(NoticeWarning, "Please enter a character name on the home screen before saving.")
			return nil
		}
		return err
	}
	m.setNotice(NoticeSuccess, "Game saved.")
	return nil
}

func (m *Manager) Load(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctrl.Load(ctx, id); err != nil {
		if errors.Is(err, ErrSaveNotFound) || errors.Is(err, ErrCorruptSave) {
			m.log.Warn("Load failed", zap.Int64("save_id", id), zap.Error(err))
			m.setNotice(NoticeError, "Failed to load.")
			return nil
		}
		return err
	}
	m.setNotice(NoticeSuccess, "Loaded save.")
	return nil
}

func (m *Manager) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ctrl.Delete(ctx, id); err != nil {
		return err
	}
	m.setNotice(NoticeSuccess, "Deleted save.")
	return nil
}

func (m *Manager) advanceOnline(ctx context.Context, in PlayerInput) error {
	_, _, err := m.ctrl.AdvanceOnline(ctx, in)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrGenerationUnavailable) {
		m.ctrl.FallbackToOffline()
		m.setNotice(NoticeWarning, "AI not available, switching to offline mode.")
		return nil
	}
	return err
}

// surface turns user-facing validation failures into notices.
func (m *Manager) surface(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrEmptyCharacterName):
		m.setNotice(NoticeWarning, "Please enter a character name.")
	case errors.Is(err, ErrInvalidChoiceSelection):
		m.setNotice(NoticeWarning, "That choice is not available.")
	case errors.Is(err, ErrUnknownStory):
		m.setNotice(NoticeWarning, "That adventure does not exist.")
	default:
		return err
	}
	m.log.Debug("Action rejected", zap.Error(err))
	return nil
}

func (m *Manager) setNotice(level NoticeLevel, text string) {
	m.notice = &Notice{Level: level, Text: text}
}
