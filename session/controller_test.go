package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ai_dungeon_master/generator"
	"ai_dungeon_master/generator/mocks"
	"ai_dungeon_master/storage"
	"ai_dungeon_master/storage/sqlite"
	"ai_dungeon_master/story"
)

var testOptions = generator.Options{Model: "gpt-4o-mini", MaxTokens: 400, Temperature: 0.8}

func testCatalog(t *testing.T) *story.Catalog {
	t.Helper()
	c, err := story.New([]story.Definition{
		{
			ID:    "lighthouse",
			Title: "The Lighthouse",
			Segments: []story.Segment{
				{Text: "Fog rolls in.", Background: story.BackgroundLighthouse, Choices: []story.Choice{
					{Label: "Enter", Result: "You step inside."},
					{Label: "Wait", Result: "The fog thickens."},
				}},
				{Text: "Stairs spiral upward.", Choices: []story.Choice{
					{Label: "Climb", Result: "You reach the lamp room."},
				}},
			},
		},
		{
			ID:    "forest",
			Title: "The Forest",
			Segments: []story.Segment{
				{Text: "Trees whisper.", Background: story.BackgroundForest, Choices: []story.Choice{
					{Label: "Listen", Result: "They speak your name."},
				}},
			},
		},
	})
	require.NoError(t, err)
	return c
}

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.now = f.now.Add(time.Minute)
	return f.now
}

func newTestController(t *testing.T, gen generator.TextGenerator) (*Controller, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	ctrl := NewController(testCatalog(t), gen, store, Config{
		Generation: testOptions,
		Timeout:    5 * time.Second,
		Now:        clock.Now,
	}, nil)
	return ctrl, store
}

func TestStartRequiresCharacterName(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	before := ctrl.Session()

	assert.ErrorIs(t, ctrl.StartOnline("   "), ErrEmptyCharacterName)
	assert.ErrorIs(t, ctrl.StartOffline(""), ErrEmptyCharacterName)
	assert.Equal(t, before, ctrl.Session())
	assert.Equal(t, ModeUnset, ctrl.Session().Mode)
}

func TestStartOfflineResetsPosition(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOffline(" Aria "))
	_, err := ctrl.AdvanceOffline(0)
	require.NoError(t, err)

	require.NoError(t, ctrl.StartOffline("Aria"))
	s := ctrl.Session()
	assert.Equal(t, ModeOffline, s.Mode)
	assert.Equal(t, "Aria", s.CharacterName)
	assert.Zero(t, s.OfflineSegmentIndex)
	assert.Empty(t, s.History)
	assert.Equal(t, "lighthouse", s.OfflineStoryID)
}

func TestAdvanceOnlineOpeningTurn(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ctrl, _ := newTestController(t, gen)
	require.NoError(t, ctrl.StartOnline("Aria"))

	gen.On("Generate",
		mock.MatchedBy(func(ctx context.Context) bool {
			_, ok := ctx.Deadline()
			return ok
		}),
		mock.MatchedBy(func(p string) bool {
			return !strings.Contains(p, "Player chooses:") && !strings.Contains(p, "Player says:")
		}),
		testOptions,
	).Return("You wake on a beach.\n1. Walk north\n2. Swim\n3. Sleep", nil).Once()

	narrative, choices, err := ctrl.AdvanceOnline(context.Background(), PlayerInput{})
	require.NoError(t, err)
	assert.Equal(t, "You wake on a beach.", narrative)
	assert.Equal(t, []string{"Walk north", "Swim", "Sleep"}, choices)

	history := ctrl.Session().History
	require.Len(t, history, 1)
	assert.Equal(t, HistoryEntry{
		Kind: KindDungeonMaster,
		Text: "You wake on a beach.\n\nChoices:\n1. Walk north\n2. Swim\n3. Sleep",
	}, history[0])
}

func TestAdvanceOnlineWithChoice(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ctrl, _ := newTestController(t, gen)
	require.NoError(t, ctrl.StartOnline("Aria"))

	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Return("A door.\nChoices:\n- Open\n- Knock\n- Leave", nil).Once()
	_, _, err := ctrl.AdvanceOnline(context.Background(), PlayerInput{})
	require.NoError(t, err)

	var prompt string
	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return("It opens onto a garden with no obvious exits at all, only tall hedges.", nil).Once()

	narrative, choices, err := ctrl.AdvanceOnline(context.Background(), PlayerInput{Choice: "Open"})
	require.NoError(t, err)
	assert.Equal(t, "It opens onto a garden with no obvious exits at all, only tall hedges.", narrative)
	assert.Empty(t, choices)

	assert.Contains(t, prompt, "DM: A door.\n\nChoices:\n1. Open\n2. Knock\n3. Leave\nPLAYER: Open\nPlayer chooses: Open\n")

	history := ctrl.Session().History
	require.Len(t, history, 3)
	assert.Equal(t, HistoryEntry{Kind: KindPlayer, Text: "Open"}, history[1])
	assert.Equal(t, KindDungeonMaster, history[2].Kind)
	assert.Equal(t, narrative, history[2].Text)

	v := ctrl.View()
	assert.True(t, v.AwaitingFreeText)
	assert.False(t, v.OpeningPending)
}

func TestAdvanceOnlineFailureLeavesSessionUnchanged(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ctrl, _ := newTestController(t, gen)
	require.NoError(t, ctrl.StartOnline("Aria"))

	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Return("Calm sea.\n1. Row\n2. Drift\n3. Fish", nil).Once()
	_, _, err := ctrl.AdvanceOnline(context.Background(), PlayerInput{})
	require.NoError(t, err)
	before := ctrl.Session()

	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Return("", errors.New("connection reset")).Once()
	_, _, err = ctrl.AdvanceOnline(context.Background(), PlayerInput{FreeText: "I row"})
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.Equal(t, before, ctrl.Session())
}

func TestAdvanceOnlineWithoutGenerator(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOnline("Aria"))

	_, _, err := ctrl.AdvanceOnline(context.Background(), PlayerInput{Choice: "Go"})
	assert.ErrorIs(t, err, ErrGenerationUnavailable)
	assert.ErrorIs(t, err, generator.ErrUnavailable)
	assert.Empty(t, ctrl.Session().History)
	assert.False(t, ctrl.OnlineAvailable())
}

func TestFallbackToOfflineKeepsTranscript(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOnline("Aria"))
	ctrl.state.History = []HistoryEntry{{Kind: KindDungeonMaster, Text: "Hello."}}

	ctrl.FallbackToOffline()
	s := ctrl.Session()
	assert.Equal(t, ModeOffline, s.Mode)
	assert.Len(t, s.History, 1)
	assert.Zero(t, s.OfflineSegmentIndex)
}

func TestAdvanceOffline(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOffline("Aria"))
	def, _ := ctrl.catalog.Get("lighthouse")

	assert.False(t, ctrl.View().Complete)

	_, err := ctrl.AdvanceOffline(2)
	assert.ErrorIs(t, err, ErrInvalidChoiceSelection)
	_, err = ctrl.AdvanceOffline(-1)
	assert.ErrorIs(t, err, ErrInvalidChoiceSelection)
	assert.Zero(t, ctrl.Session().OfflineSegmentIndex)
	assert.Empty(t, ctrl.Session().History)

	choice, err := ctrl.AdvanceOffline(1)
	require.NoError(t, err)
	assert.Equal(t, "Wait", choice.Label)
	assert.False(t, ctrl.View().Complete)

	_, err = ctrl.AdvanceOffline(0)
	require.NoError(t, err)

	s := ctrl.Session()
	assert.Equal(t, len(def.Segments), s.OfflineSegmentIndex)
	assert.Equal(t, []HistoryEntry{
		{Kind: KindOffline, Text: "The fog thickens."},
		{Kind: KindOffline, Text: "You reach the lamp room."},
	}, s.History)

	v := ctrl.View()
	assert.True(t, v.Complete)
	assert.Nil(t, v.Segment)
	assert.Empty(t, v.Choices)

	_, err = ctrl.AdvanceOffline(0)
	assert.ErrorIs(t, err, ErrSegmentIndexOutOfRange)
	assert.Equal(t, len(def.Segments), ctrl.Session().OfflineSegmentIndex)
}

func TestRestartAndReturnHome(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOffline("Aria"))
	_, err := ctrl.AdvanceOffline(0)
	require.NoError(t, err)

	ctrl.Restart()
	s := ctrl.Session()
	assert.Equal(t, ModeOffline, s.Mode)
	assert.Zero(t, s.OfflineSegmentIndex)
	assert.Empty(t, s.History)

	_, err = ctrl.AdvanceOffline(0)
	require.NoError(t, err)
	ctrl.ReturnHome()
	s = ctrl.Session()
	assert.Equal(t, ModeUnset, s.Mode)
	assert.Equal(t, 1, s.OfflineSegmentIndex)
	assert.Equal(t, "Aria", s.CharacterName)
}

func TestSelectStory(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	require.NoError(t, ctrl.StartOffline("Aria"))
	_, err := ctrl.AdvanceOffline(0)
	require.NoError(t, err)

	assert.ErrorIs(t, ctrl.SelectStory("nowhere"), ErrUnknownStory)
	assert.Equal(t, 1, ctrl.Session().OfflineSegmentIndex)

	require.NoError(t, ctrl.SelectStory("lighthouse"))
	assert.Equal(t, 1, ctrl.Session().OfflineSegmentIndex)

	require.NoError(t, ctrl.SelectStory("forest"))
	s := ctrl.Session()
	assert.Equal(t, "forest", s.OfflineStoryID)
	assert.Zero(t, s.OfflineSegmentIndex)
	assert.Empty(t, s.History)

	v := ctrl.View()
	assert.Equal(t, "Trees whisper.", v.Narrative)
	assert.Equal(t, []string{"Listen"}, v.Choices)
	require.NotNil(t, v.Segment)
	assert.Equal(t, story.BackgroundForest, v.Segment.Background)
}

func TestSaveRequiresCharacterName(t *testing.T) {
	ctrl, store := newTestController(t, nil)

	_, err := ctrl.Save(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCharacterName)

	saves, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, saves)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ctrl, _ := newTestController(t, gen)
	ctx := context.Background()

	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Return("Storm clouds.\n1. Hide\n2. Run\n3. Pray", nil).Once()
	require.NoError(t, ctrl.StartOnline("Aria"))
	_, _, err := ctrl.AdvanceOnline(ctx, PlayerInput{})
	require.NoError(t, err)
	ctrl.FallbackToOffline()
	_, err = ctrl.AdvanceOffline(0)
	require.NoError(t, err)

	saved := ctrl.Session()
	rec, err := ctrl.Save(ctx)
	require.NoError(t, err)
	assert.Positive(t, rec.ID)
	assert.Equal(t, "Aria", rec.PlayerName)

	require.NoError(t, ctrl.StartOnline("Someone Else"))
	require.NoError(t, ctrl.SelectStory("forest"))
	ctrl.ReturnHome()

	require.NoError(t, ctrl.Load(ctx, rec.ID))
	assert.Equal(t, saved, ctrl.Session())
}

func TestSaveLoadRoundTripEmptyHistory(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx := context.Background()

	require.NoError(t, ctrl.StartOnline("Aria"))
	saved := ctrl.Session()
	rec, err := ctrl.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, ctrl.StartOffline("Other"))
	require.NoError(t, ctrl.Load(ctx, rec.ID))
	assert.Equal(t, saved, ctrl.Session())
	assert.True(t, ctrl.View().OpeningPending)
}

func TestLoadRestoresOnlineChoices(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	ctrl, _ := newTestController(t, gen)
	ctx := context.Background()

	gen.On("Generate", mock.Anything, mock.Anything, testOptions).
		Return("A bridge.\n1. Cross\n2. Burn it", nil).Once()
	require.NoError(t, ctrl.StartOnline("Aria"))
	_, _, err := ctrl.AdvanceOnline(ctx, PlayerInput{})
	require.NoError(t, err)
	rec, err := ctrl.Save(ctx)
	require.NoError(t, err)

	ctrl.Restart()
	require.NoError(t, ctrl.Load(ctx, rec.ID))

	v := ctrl.View()
	assert.Equal(t, "A bridge.", v.Narrative)
	assert.Equal(t, []string{"Cross", "Burn it"}, v.Choices)
}

func TestLoadFailures(t *testing.T) {
	ctrl, store := newTestController(t, nil)
	ctx := context.Background()
	require.NoError(t, ctrl.StartOffline("Aria"))
	before := ctrl.Session()

	err := ctrl.Load(ctx, 999)
	assert.ErrorIs(t, err, ErrSaveNotFound)
	assert.Equal(t, before, ctrl.Session())

	corrupt := []storage.SaveRecord{
		{PlayerName: "X", Mode: "online", OfflineStoryID: "atlantis"},
		{PlayerName: "X", Mode: "offline", OfflineStoryID: "forest", OfflineSegmentIndex: 5},
		{PlayerName: "X", Mode: "sideways", OfflineStoryID: "forest"},
		{PlayerName: "X", Mode: "online", OfflineStoryID: "forest", HistoryJSON: []byte("{not json")},
	}
	for _, rec := range corrupt {
		id, err := store.Insert(ctx, rec)
		require.NoError(t, err)
		assert.ErrorIs(t, ctrl.Load(ctx, id), ErrCorruptSave)
		assert.Equal(t, before, ctrl.Session())
	}
}

func TestListSavesNewestFirst(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx := context.Background()

	for _, name := range []string{"First", "Second", "Third"} {
		require.NoError(t, ctrl.StartOffline(name))
		_, err := ctrl.Save(ctx)
		require.NoError(t, err)
	}

	saves, err := ctrl.ListSaves(ctx)
	require.NoError(t, err)
	require.Len(t, saves, 3)
	assert.Equal(t, "Third", saves[0].PlayerName)
	assert.Equal(t, "Second", saves[1].PlayerName)
	assert.Equal(t, "First", saves[2].PlayerName)
	for i := 1; i < len(saves); i++ {
		assert.True(t, saves[i-1].CreatedAt.After(saves[i].CreatedAt))
	}
}

func TestDeleteUnknownSave(t *testing.T) {
	ctrl, _ := newTestController(t, nil)
	ctx := context.Background()
	require.NoError(t, ctrl.StartOffline("Aria"))
	rec, err := ctrl.Save(ctx)
	require.NoError(t, err)

	before, err := ctrl.ListSaves(ctx)
	require.NoError(t, err)

	require.NoError(t, ctrl.Delete(ctx, rec.ID+42))
	after, err := ctrl.ListSaves(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	require.NoError(t, ctrl.Delete(ctx, rec.ID))
	after, err = ctrl.ListSaves(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestCompletionAfterEverySegment(t *testing.T) {
	catalog, err := story.Default()
	require.NoError(t, err)

	for _, def := range catalog.Stories() {
		def := def
		t.Run(def.ID, func(t *testing.T) {
			store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			ctrl := NewController(catalog, nil, store, Config{}, nil)
			require.NoError(t, ctrl.SelectStory(def.ID))
			require.NoError(t, ctrl.StartOffline("Aria"))
			assert.False(t, ctrl.View().Complete)

			for i := range def.Segments {
				assert.False(t, ctrl.View().Complete)
				_, err := ctrl.AdvanceOffline(i % len(def.Segments[i].Choices))
				require.NoError(t, err)
			}
			assert.True(t, ctrl.View().Complete)
			assert.Len(t, ctrl.Session().History, len(def.Segments))
		})
	}
}

func TestHistoryEntryString(t *testing.T) {
	assert.Equal(t, "DM: hi", HistoryEntry{Kind: KindDungeonMaster, Text: "hi"}.String())
	assert.Equal(t, "PLAYER: hi", HistoryEntry{Kind: KindPlayer, Text: "hi"}.String())
	assert.Equal(t, "OFFLINE: hi", HistoryEntry{Kind: KindOffline, Text: "hi"}.String())
	assert.Equal(t, "hi", HistoryEntry{Text: "hi"}.String())
}
