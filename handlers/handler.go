package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"ai_dungeon_master/export"
	"ai_dungeon_master/session"
	"ai_dungeon_master/templates"
)

const pageTitle = "AI Dungeon Master"

type Handler struct {
	Manager *session.Manager
	Log     *zap.Logger
}

// Register mounts every page and action on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Index)
	mux.HandleFunc("POST /start/online", h.StartOnline)
	mux.HandleFunc("POST /start/offline", h.StartOffline)
	mux.HandleFunc("POST /choose", h.Choose)
	mux.HandleFunc("POST /action", h.Act)
	mux.HandleFunc("POST /story", h.SelectStory)
	mux.HandleFunc("POST /restart", h.Restart)
	mux.HandleFunc("POST /home", h.Home)
	mux.HandleFunc("POST /saves", h.Save)
	mux.HandleFunc("POST /saves/{id}/load", h.Load)
	mux.HandleFunc("POST /saves/{id}/delete", h.Delete)
	mux.HandleFunc("GET /download", h.DownloadStory)
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page, err := h.Manager.Page(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(pageTitle, page).Render(r.Context(), w); err != nil {
		h.Log.Error("Render failed", zap.Error(err))
	}
}

func (h *Handler) StartOnline(w http.ResponseWriter, r *http.Request) {
	if !h.selectStory(w, r) {
		return
	}
	h.done(w, r, h.Manager.StartOnline(r.Context(), r.FormValue("name")))
}

func (h *Handler) StartOffline(w http.ResponseWriter, r *http.Request) {
	if !h.selectStory(w, r) {
		return
	}
	h.done(w, r, h.Manager.StartOffline(r.FormValue("name")))
}

func (h *Handler) Choose(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(strings.TrimSpace(r.FormValue("choice")))
	if err != nil {
		index = -1
	}
	h.done(w, r, h.Manager.Choose(r.Context(), index))
}

func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	h.done(w, r, h.Manager.Act(r.Context(), r.FormValue("action")))
}

func (h *Handler) SelectStory(w http.ResponseWriter, r *http.Request) {
	if h.selectStory(w, r) {
		h.done(w, r, nil)
	}
}

func (h *Handler) Restart(w http.ResponseWriter, r *http.Request) {
	h.Manager.Restart()
	h.done(w, r, nil)
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.Manager.ReturnHome()
	h.done(w, r, nil)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	h.done(w, r, h.Manager.Save(r.Context()))
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saveID(w, r)
	if !ok {
		return
	}
	h.done(w, r, h.Manager.Load(r.Context(), id))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saveID(w, r)
	if !ok {
		return
	}
	h.done(w, r, h.Manager.Delete(r.Context(), id))
}

// DownloadStory sends the transcript as a PDF.
func (h *Handler) DownloadStory(w http.ResponseWriter, r *http.Request) {
	name, history := h.Manager.Transcript()

	var buf bytes.Buffer
	if err := export.TranscriptPDF(&buf, name, history, time.Now()); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="adventure.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// selectStory applies the story picker when the form carries one.
func (h *Handler) selectStory(w http.ResponseWriter, r *http.Request) bool {
	id := strings.TrimSpace(r.FormValue("story"))
	if id == "" {
		return true
	}
	if err := h.Manager.SelectStory(id); err != nil {
		h.fail(w, r, err)
		return false
	}
	return true
}

func (h *Handler) saveID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid save id %q", r.PathValue("id")), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// done redirects back to the page after an action, or reports the failure.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, session.ErrSegmentIndexOutOfRange) {
		h.Log.Error("Action past the end of the story", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "The story is already complete.", http.StatusConflict)
		return
	}
	h.Log.Error("Request failed", zap.String("path", r.URL.Path), zap.Error(err))
	http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
}
