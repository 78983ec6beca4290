// Package session owns the state of one player's adventure and the rules for
// moving it forward, online through a text generator or offline through the
// story catalog.
package session

import (
	"errors"

	"ai_dungeon_master/generator"
)

var (
	ErrEmptyCharacterName     = errors.New("character name is required")
	ErrGenerationUnavailable  = generator.ErrUnavailable
	ErrSegmentIndexOutOfRange = errors.New("story segment index out of range")
	ErrSaveNotFound           = errors.New("save not found")
	ErrInvalidChoiceSelection = errors.New("invalid choice selection")
	ErrUnknownStory           = errors.New("unknown story")
	ErrCorruptSave            = errors.New("corrupt save")
)

// Mode is the kind of adventure being played.
type Mode string

const (
	ModeUnset   Mode = ""
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

func (m Mode) valid() bool {
	switch m {
	case ModeUnset, ModeOnline, ModeOffline:
		return true
	}
	return false
}

// Kind tags a transcript entry.
type Kind string

const (
	KindDungeonMaster Kind = "dm"
	KindPlayer        Kind = "player"
	KindOffline       Kind = "offline"
)

// HistoryEntry is one line of the transcript.
type HistoryEntry struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// String renders the entry the way it is replayed to the model.
func (e HistoryEntry) String() string {
	switch e.Kind {
	case KindDungeonMaster:
		return "DM: " + e.Text
	case KindPlayer:
		return "PLAYER: " + e.Text
	case KindOffline:
		return "OFFLINE: " + e.Text
	}
	return e.Text
}

// Session is the complete mutable state of one adventure.
type Session struct {
	Mode                Mode
	CharacterName       string
	History             []HistoryEntry
	OfflineStoryID      string
	OfflineSegmentIndex int
}

func (s Session) clone() Session {
	if s.History != nil {
		s.History = append([]HistoryEntry(nil), s.History...)
	}
	return s
}

// PlayerInput is the player's contribution to an online turn. The zero value
// requests an opening turn.
type PlayerInput struct {
	Choice   string
	FreeText string
}
