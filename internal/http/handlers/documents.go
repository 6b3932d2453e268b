package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"server/internal/domain"
)

type documentView struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	Artifact     *domain.Artifact `json:"artifact,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
	ErrorCode    string           `json:"error_code,omitempty"`
	RetryCount   int              `json:"retry_count"`
}

func viewOf(doc *domain.Document) documentView {
	return documentView{
		ID:           doc.ID,
		Status:       string(doc.Status),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		CompletedAt:  doc.CompletedAt,
		Artifact:     doc.Artifact,
		ErrorMessage: doc.ErrorMessage,
		ErrorCode:    doc.ErrorCode,
		RetryCount:   doc.RetryCount,
	}
}

// CreateDocument accepts a draft, validates it synchronously and returns 202
// with the new document id. Generation happens in the background.
func (a *App) CreateDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := a.Pipeline.Create(r.Context(), ownerID, &draft)
	if err != nil {
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			a.json(w, http.StatusUnprocessableEntity, map[string]string{
				"error": ve.Message,
				"field": ve.Field,
			})
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: create document failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	if a.Dispatcher != nil {
		// Dispatch failures are not fatal: the document stays draft and a
		// queue-claiming worker will pick it up.
		if derr := a.Dispatcher.Dispatch(r.Context(), res.ID); derr != nil {
			a.Logger.Warn().Err(derr).Str("document_id", res.ID).Msg("handlers: dispatch failed, leaving document queued")
		}
	}

	a.json(w, http.StatusAccepted, res)
}

// GetDocument returns the owner's view of one document. A foreign owner
// gets the same 404 as a missing id.
func (a *App) GetDocument(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	doc, err := a.Pipeline.GetStatus(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "document not found")
			return
		}
		a.Logger.Error().Err(err).Msg("handlers: get document failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	a.json(w, http.StatusOK, viewOf(doc))
}

// ListDocuments returns the owner's documents, newest first.
func (a *App) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID := owner(r)
	if ownerID == "" {
		a.error(w, http.StatusUnauthorized, "missing "+ownerHeader+" header")
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	docs, err := a.Pipeline.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list documents failed")
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]documentView, 0, len(docs))
	for i := range docs {
		views = append(views, viewOf(&docs[i]))
	}
	a.json(w, http.StatusOK, map[string]any{
		"documents": views,
		"limit":     limit,
		"offset":    offset,
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
