package session

import (
	"ai_dungeon_master/response"
	"ai_dungeon_master/story"
)

// View is what the presentation layer needs to draw the current turn.
type View struct {
	Session

	Story story.Definition
	// Segment is the offline segment being played, nil once the story is
	// complete or outside offline mode.
	Segment *story.Segment

	Narrative string
	Choices   []string

	// Complete is set when the offline story has no segments left.
	Complete bool
	// OpeningPending is set for an online session without any dungeon
	// master turn yet.
	OpeningPending bool
	// AwaitingFreeText is set when the latest online turn offered no choices.
	AwaitingFreeText bool
	OnlineAvailable  bool
}

// View derives the presentation state from the Session. Online choices are
// re-read from the latest dungeon master entry, so a loaded transcript stays
// playable.
func (c *Controller) View() View {
	def := c.currentStory()
	v := View{
		Session:         c.Session(),
		Story:           def,
		Complete:        def.Complete(c.state.OfflineSegmentIndex),
		OnlineAvailable: c.OnlineAvailable(),
	}

	switch c.state.Mode {
	case ModeOnline:
		last, ok := c.lastDungeonMasterTurn()
		if !ok {
			v.OpeningPending = true
			break
		}
		v.Narrative, v.Choices = response.Segment(last.Text)
		v.AwaitingFreeText = len(v.Choices) == 0
	case ModeOffline:
		if v.Complete {
			break
		}
		seg := def.Segments[c.state.OfflineSegmentIndex]
		v.Segment = &seg
		v.Narrative = seg.Text
		for _, ch := range seg.Choices {
			v.Choices = append(v.Choices, ch.Label)
		}
	}
	return v
}

func (c *Controller) lastDungeonMasterTurn() (HistoryEntry, bool) {
	for i := len(c.state.History) - 1; i >= 0; i-- {
		if c.state.History[i].Kind == KindDungeonMaster {
			return c.state.History[i], true
		}
	}
	return HistoryEntry{}, false
}
