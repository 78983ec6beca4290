package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ai_dungeon_master/generator"
	"ai_dungeon_master/generator/mocks"
	"ai_dungeon_master/session"
	"ai_dungeon_master/storage/sqlite"
	"ai_dungeon_master/story"
)

func newTestServer(t *testing.T, gen generator.TextGenerator) (*http.ServeMux, *session.Manager) {
	t.Helper()
	catalog, err := story.Default()
	require.NoError(t, err)
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "saves.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctrl := session.NewController(catalog, gen, store, session.Config{}, zap.NewNop())
	manager := session.NewManager(ctrl, catalog, zap.NewNop())

	mux := http.NewServeMux()
	h := &Handler{Manager: manager, Log: zap.NewNop()}
	h.Register(mux)
	return mux, manager
}

func post(t *testing.T, mux http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, mux http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestIndexRendersHome(t *testing.T) {
	mux, _ := newTestServer(t, nil)

	rec := get(t, mux, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Start Offline")
	assert.Contains(t, rec.Body.String(), "The Whispering Forest")

	assert.Equal(t, http.StatusNotFound, get(t, mux, "/nope").Code)
}

func TestOfflinePlaythrough(t *testing.T) {
	mux, manager := newTestServer(t, nil)

	rec := post(t, mux, "/start/offline", url.Values{"name": {"Aria"}, "story": {"stormspire"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	body := get(t, mux, "/").Body.String()
	assert.Contains(t, body, "Stormspire Keep")
	assert.Contains(t, body, "Enter the courtyard")

	for i := 0; i < 3; i++ {
		rec = post(t, mux, "/choose", url.Values{"choice": {"2"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
	}
	body = get(t, mux, "/").Body.String()
	assert.Contains(t, body, "You completed this offline adventure!")
	assert.Contains(t, body, "The storm follows you down the stairs.")

	rec = post(t, mux, "/choose", url.Values{"choice": {"0"}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	post(t, mux, "/restart", nil)
	page, err := manager.Page(context.Background())
	require.NoError(t, err)
	assert.Zero(t, page.OfflineSegmentIndex)
	assert.False(t, page.Complete)
}

func TestInvalidChoiceShowsWarning(t *testing.T) {
	mux, _ := newTestServer(t, nil)
	post(t, mux, "/start/offline", url.Values{"name": {"Aria"}})

	rec := post(t, mux, "/choose", url.Values{"choice": {"abc"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, get(t, mux, "/").Body.String(), "That choice is not available.")
}

func TestStartWithoutNameWarns(t *testing.T) {
	mux, _ := newTestServer(t, nil)

	post(t, mux, "/start/online", url.Values{"name": {"  "}})
	body := get(t, mux, "/").Body.String()
	assert.Contains(t, body, "Please enter a character name.")
	assert.Contains(t, body, "Start Online (AI)")
}

func TestOnlineWithoutGeneratorFallsBack(t *testing.T) {
	mux, manager := newTestServer(t, nil)

	post(t, mux, "/start/online", url.Values{"name": {"Aria"}})
	body := get(t, mux, "/").Body.String()
	assert.Contains(t, body, "AI not available, switching to offline mode.")
	assert.Contains(t, body, "Lantern of Stillhollow")

	page, err := manager.Page(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.ModeOffline, page.Mode)
}

func TestOnlineTurns(t *testing.T) {
	gen := mocks.NewMockTextGenerator(t)
	mux, _ := newTestServer(t, gen)

	gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("The sea is grey.\nChoices:\n1. Sail\n2. Swim\n3. Wait", nil).Once()
	post(t, mux, "/start/online", url.Values{"name": {"Aria"}})

	body := get(t, mux, "/").Body.String()
	assert.Contains(t, body, "Online Adventure: Aria")
	assert.Contains(t, body, ">Swim</button>")

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Player chooses: Swim")
	}), mock.Anything).Return("You drown.", nil).Once()
	rec := post(t, mux, "/choose", url.Values{"choice": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestSaveLoadDelete(t *testing.T) {
	mux, manager := newTestServer(t, nil)
	ctx := context.Background()

	post(t, mux, "/start/offline", url.Values{"name": {"Aria"}})
	post(t, mux, "/choose", url.Values{"choice": {"0"}})
	post(t, mux, "/saves", nil)
	post(t, mux, "/home", nil)

	page, err := manager.Page(ctx)
	require.NoError(t, err)
	require.Len(t, page.Saves, 1)
	id := page.Saves[0].ID

	body := get(t, mux, "/").Body.String()
	assert.Contains(t, body, "Aria")

	post(t, mux, "/start/offline", url.Values{"name": {"Bryn"}})
	rec := post(t, mux, "/saves/"+itoa(id)+"/load", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	page, err = manager.Page(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Aria", page.CharacterName)
	assert.Equal(t, 1, page.OfflineSegmentIndex)

	rec = post(t, mux, "/saves/abc/load", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	post(t, mux, "/saves/"+itoa(id)+"/delete", nil)
	post(t, mux, "/saves/"+itoa(id)+"/delete", nil)
	post(t, mux, "/home", nil)
	page, err = manager.Page(ctx)
	require.NoError(t, err)
	assert.Empty(t, page.Saves)
}

func TestDownloadStory(t *testing.T) {
	mux, _ := newTestServer(t, nil)
	post(t, mux, "/start/offline", url.Values{"name": {"Aria"}})
	post(t, mux, "/choose", url.Values{"choice": {"1"}})

	rec := get(t, mux, "/download")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "adventure.pdf")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
