package prompts

import "strings"

// HistoryWindow is how many trailing transcript entries are replayed to the
// model on every turn.
const HistoryWindow = 8

const SystemPrompt = `You are a consistent Dungeon Master running a long-form interactive fantasy adventure. Maintain continuity and character.`

// NarratorRole is sent as the system message to chat-style backends.
const NarratorRole = `You are a helpful Dungeon Master.`

const ContinuePrompt = `Now continue the story in vivid detail (a few paragraphs) and then provide exactly 3 clear choices for the player (either numbered or under 'Choices:').`

// Turn is the player's contribution to the next generation request. At most
// one of Choice and FreeText is expected to be set; Choice wins otherwise.
type Turn struct {
	Choice   string
	FreeText string
}

// Build assembles the prompt for one dungeon master turn from the rendered
// transcript, oldest entry first.
func Build(history []string, turn Turn) string {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}

	var b strings.Builder
	b.WriteString(SystemPrompt)
	b.WriteString("\n\nHistory:\n")
	for _, h := range history {
		b.WriteString(h)
		b.WriteString("\n")
	}
	switch {
	case turn.Choice != "":
		b.WriteString("Player chooses: " + turn.Choice + "\n")
	case turn.FreeText != "":
		b.WriteString("Player says: " + turn.FreeText + "\n")
	}
	b.WriteString(ContinuePrompt)
	return b.String()
}
