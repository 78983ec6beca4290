package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"

	"ai_dungeon_master/session"
	"ai_dungeon_master/story"
)

const pageStyle = `
<style>
	body { font-family: "Georgia", serif; color: #2b1d0e; margin: 0; }
	main { max-width: 52rem; margin: 2rem auto; padding: 0 1rem; }
	h1 { text-align: center; letter-spacing: .08em; }
	.parchment-box { background: rgba(250,240,215,.92); border: 1px solid #a88b5a; border-radius: 8px; padding: 1rem 1.25rem; margin: 1rem 0; box-shadow: 0 2px 8px rgba(0,0,0,.25); }
	.dm-new { animation: fadeSlide .6s ease-out; }
	@keyframes fadeSlide { from { opacity: 0; transform: translateY(8px); } to { opacity: 1; transform: none; } }
	.choices-area form { display: inline-block; margin: .25rem; }
	button { font-family: inherit; font-size: 1rem; padding: .5rem 1rem; border-radius: 6px; border: 1px solid #7a5c2e; background: #f3e3bd; cursor: pointer; }
	button:hover { background: #e9d29c; }
	.notice { padding: .75rem 1rem; border-radius: 6px; margin: 1rem 0; }
	.notice[data-level="success"] { background: #dff0d8; }
	.notice[data-level="warning"] { background: #fcf8e3; }
	.notice[data-level="error"] { background: #f2dede; }
	.speaker { font-weight: bold; }
	.player { font-style: italic; }
	.controls form { display: inline-block; margin-right: .5rem; }
	table.saves { width: 100%; border-collapse: collapse; }
	table.saves td { padding: .35rem; border-bottom: 1px solid #d9c49a; }
</style>
`

// Scene is the backdrop drawn behind the parchment.
type Scene struct {
	Name  string
	Image string
	Tint  string
}

// SceneFor maps a background hint to its backdrop.
func SceneFor(hint string) Scene {
	switch hint {
	case story.BackgroundForest:
		return Scene{story.BackgroundForest, "/static/forest.jpg", "#3b5a3a"} // Moss
	case story.BackgroundLighthouse:
		return Scene{story.BackgroundLighthouse, "/static/lighthouse.jpg", "#3d5a73"} // Sea slate
	default:
		return Scene{story.BackgroundParchment, "/static/parchment.jpg", "#c8b48a"} // Parchment
	}
}

// BackgroundHint picks the backdrop for a view. Offline segments carry their
// own hint; online turns are matched on keywords in the latest narrative.
func BackgroundHint(v session.View) string {
	switch v.Mode {
	case session.ModeOffline:
		if v.Segment != nil {
			return v.Segment.Background
		}
	case session.ModeOnline:
		return hintForText(v.Narrative)
	}
	return story.BackgroundParchment
}

func hintForText(text string) string {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "forest"), strings.Contains(t, "trees"), strings.Contains(t, "wood"):
		return story.BackgroundForest
	case strings.Contains(t, "lighthouse"), strings.Contains(t, "sea"), strings.Contains(t, "pier"), strings.Contains(t, "coast"):
		return story.BackgroundLighthouse
	}
	return story.BackgroundParchment
}

// BackgroundStyle layers a light fade over the scene image. The tint shows
// through when the image is missing.
func BackgroundStyle(scene Scene, fade float64) string {
	return fmt.Sprintf(`
		<style>
			body {
				background:
					linear-gradient(rgba(255,255,240,%.2f), rgba(255,255,240,%.2f)),
					url("%s") center/cover no-repeat fixed,
					%s;
			}
		</style>
	`, fade, fade, scene.Image, scene.Tint)
}

// Paragraphs splits narrative on blank lines.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Speaker labels a transcript entry.
func Speaker(kind session.Kind) string {
	switch kind {
	case session.KindDungeonMaster:
		return "Dungeon Master"
	case session.KindPlayer:
		return "You"
	case session.KindOffline:
		return "Outcome"
	}
	return ""
}

// latestDungeonMaster is the index of the newest dungeon master entry, or -1
// when animate is off or there is none.
func latestDungeonMaster(entries []session.HistoryEntry, animate bool) int {
	if !animate {
		return -1
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind == session.KindDungeonMaster {
			return i
		}
	}
	return -1
}

func saveAction(id int64, verb string) templ.SafeURL {
	return templ.SafeURL("/saves/" + strconv.FormatInt(id, 10) + "/" + verb)
}

func savedAt(t time.Time) string {
	return t.Local().Format("Mon Jan 2 15:04:05 2006")
}
