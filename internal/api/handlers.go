package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"omdraw/internal/export"
	"omdraw/internal/middleware"
	"omdraw/internal/models"
	"omdraw/internal/repository"
	"omdraw/internal/shape"
)

// Handler serves the read-only history API.
type Handler struct {
	history      HistoryReader
	historyLimit int
	pageWidth    float64
	pageHeight   float64
	logger       zerolog.Logger
}

// Options sizes history reads and exported pages.
type Options struct {
	HistoryLimit int
	PageWidth    float64
	PageHeight   float64
}

func NewHandler(history HistoryReader, opts Options, logger zerolog.Logger) *Handler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 50
	}
	if opts.PageWidth <= 0 {
		opts.PageWidth = 1920
	}
	if opts.PageHeight <= 0 {
		opts.PageHeight = 1080
	}
	return &Handler{
		history:      history,
		historyLimit: opts.HistoryLimit,
		pageWidth:    opts.PageWidth,
		pageHeight:   opts.PageHeight,
		logger:       logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetRoom resolves a room slug.
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	room, err := h.history.FindRoomBySlug(r.Context(), slug)
	if err != nil {
		h.storeError(w, r, err, "failed to find room")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"room": room})
}

// ListChats returns a room's most recent chats, oldest first.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	roomID, err := strconv.ParseUint(mux.Vars(r)["roomId"], 10, 64)
	if err != nil {
		http.Error(w, "invalid room id", http.StatusBadRequest)
		return
	}

	limit, err := h.parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	chats, err := h.history.ListRecentChats(r.Context(), uint(roomID), limit)
	if err != nil {
		h.storeError(w, r, err, "failed to list chats")
		return
	}
	if chats == nil {
		chats = []*models.Chat{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": chats})
}

// ExportRoomPDF renders the room's recent shapes to a PDF download. The page
// size can be overridden with width and height query parameters.
func (h *Handler) ExportRoomPDF(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	width, height, err := h.parsePageSize(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	room, err := h.history.FindRoomBySlug(r.Context(), slug)
	if err != nil {
		h.storeError(w, r, err, "failed to find room")
		return
	}
	chats, err := h.history.ListRecentChats(r.Context(), room.ID, limit)
	if err != nil {
		h.storeError(w, r, err, "failed to list chats")
		return
	}

	shapes := make([]shape.Shape, 0, len(chats))
	for _, c := range chats {
		s, err := shape.DecodeMessage(c.Message)
		if err != nil {
			continue
		}
		shapes = append(shapes, s)
	}

	var buf bytes.Buffer
	if err := export.WritePDF(&buf, shapes, width, height); err != nil {
		middleware.AddSpanError(r.Context(), err)
		h.logger.Error().Err(err).Str("room", slug).Msg("failed to render pdf")
		http.Error(w, "failed to render pdf", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", slug+".pdf"))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return h.historyLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	if limit > repository.MaxChatLimit {
		limit = repository.MaxChatLimit
	}
	return limit, nil
}

func (h *Handler) parsePageSize(r *http.Request) (float64, float64, error) {
	width, height := h.pageWidth, h.pageHeight
	for name, dst := range map[string]*float64{"width": &width, "height": &height} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return 0, 0, fmt.Errorf("invalid %s %q", name, raw)
		}
		*dst = v
	}
	return width, height, nil
}

// storeError maps a store failure to a response.
func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	middleware.AddSpanError(r.Context(), err)
	h.logger.Error().Err(err).Str("request_id", middleware.GetRequestID(r.Context())).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
