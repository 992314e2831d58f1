package httpapp

import (
	"context"
	"net/http"
	"strings"

	"github.com/alphabot-ai/confessional/internal/logging"
	"github.com/alphabot-ai/confessional/internal/model"
	"github.com/alphabot-ai/confessional/internal/validation"
)

// handleListMessages godoc
//
//	@Summary		List messages
//	@Description	Messages newest first, optionally filtered by category.
//	@Tags			Messages
//	@Produce		json
//	@Param			category	query		string	false	"Category name or all"
//	@Success		200			{array}		model.Message
//	@Router			/api/messages [get]
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.board.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// handleCounts godoc
//
//	@Summary		Message counts
//	@Description	Number of messages per category, including empty categories and an "all" total.
//	@Tags			Messages
//	@Produce		json
//	@Success		200	{object}	map[string]int
//	@Router			/api/messages/counts [get]
func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.board.Counts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleGetMessage godoc
//
//	@Summary	Get a message
//	@Tags		Messages
//	@Produce	json
//	@Param		id	path		int	true	"Message ID"
//	@Success	200	{object}	model.Message
//	@Failure	400	{object}	map[string]string	"Invalid id"
//	@Failure	404	{object}	map[string]string	"Message not found"
//	@Router		/api/messages/{id} [get]
func (s *Server) handleGetMessage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg, err := s.board.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// handleCreateMessage godoc
//
//	@Summary		Post a message
//	@Description	Text is read from "text" (or "message"). An image may be uploaded as "image"
//	@Description	(JPEG, PNG or GIF, at most 5 MiB) or linked with "image_url". Unknown categories
//	@Description	are stored under the default category.
//	@Tags			Messages
//	@Accept			multipart/form-data,application/x-www-form-urlencoded,json
//	@Produce		json
//	@Param			text			formData	string	false	"Message text"
//	@Param			category		formData	string	false	"Category"
//	@Param			display_name	formData	string	false	"Display name"
//	@Param			avatar			formData	string	false	"Avatar glyph"
//	@Param			image_url		formData	string	false	"External image URL"
//	@Param			image			formData	file	false	"Image upload"
//	@Success		201				{object}	model.Message
//	@Failure		400				{object}	map[string]string	"Rejected submission"
//	@Failure		413				{object}	map[string]string	"JSON body too large"
//	@Router			/api/messages [post]
func (s *Server) handleCreateMessage(w http.ResponseWriter, r *http.Request) {
	sub, err := s.readSubmission(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg, err := s.board.Submit(r.Context(), sub)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// handleDeleteMessage godoc
//
//	@Summary		Delete a message
//	@Description	Admin only. The token may be sent as {"token": ...} or as a bearer token.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id		path		int						true	"Message ID"
//	@Param			body	body		object{token=string}	false	"Session token"
//	@Success		200		{object}	map[string]bool
//	@Failure		403		{object}	map[string]string	"Unauthorized"
//	@Failure		404		{object}	map[string]string	"Message not found"
//	@Router			/api/messages/{id} [delete]
func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	token, err := s.readToken(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.board.Delete(r.Context(), token, id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleLike godoc
//
//	@Summary	Like a message
//	@Tags		Messages
//	@Produce	json
//	@Param		id	path		int	true	"Message ID"
//	@Success	200	{object}	map[string]int
//	@Failure	404	{object}	map[string]string	"Message not found"
//	@Router		/api/messages/{id}/like [post]
func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	s.adjustLikes(w, r, s.board.Like)
}

// handleUnlike godoc
//
//	@Summary		Remove a like
//	@Description	The like count never drops below zero.
//	@Tags			Messages
//	@Produce		json
//	@Param			id	path		int	true	"Message ID"
//	@Success		200	{object}	map[string]int
//	@Failure		404	{object}	map[string]string	"Message not found"
//	@Router			/api/messages/{id}/unlike [post]
func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	s.adjustLikes(w, r, s.board.Unlike)
}

func (s *Server) adjustLikes(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id int64) (int, error)) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	n, err := op(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "likes": n})
}

type reportRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// handleReport godoc
//
//	@Summary		Report a message
//	@Description	An empty reason is stored as "No reason provided".
//	@Tags			Messages
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Message ID"
//	@Param			body	body		object{reason=string}	false	"Report reason"
//	@Success		200		{object}	map[string]int
//	@Failure		404		{object}	map[string]string	"Message not found"
//	@Router			/api/messages/{id}/report [post]
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	var req reportRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if mediaType(r.Header.Get("Content-Type")) == "application/json" {
		if err := readOptionalJSON(r.Body, &req); err != nil {
			s.writeServiceError(w, r, bodyError(err))
			return
		}
	} else {
		req.Reason = r.FormValue("reason")
	}
	if err := validation.ValidateStruct(req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	n, err := s.board.Report(r.Context(), id, req.Reason)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": n})
}

type categoryTab struct {
	Name   string
	Count  int
	Active bool
}

type homeData struct {
	Title      string
	Messages   []model.Message
	Categories []model.Category
	Tabs       []categoryTab
	MaxUpload  int64
}

// handleHome renders the board, or returns it as JSON when asked.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	category := strings.ToLower(r.URL.Query().Get("category"))
	msgs, err := s.board.List(r.Context(), category)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	counts, err := s.board.Counts(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]any{
			"messages":   msgs,
			"counts":     counts,
			"categories": s.board.Categories(),
		})
		return
	}

	if category == "" {
		category = string(model.CategoryAll)
	}
	tabs := []categoryTab{{Name: string(model.CategoryAll), Count: counts[model.CategoryAll]}}
	for _, c := range s.board.Categories() {
		tabs = append(tabs, categoryTab{Name: string(c), Count: counts[c]})
	}
	for i := range tabs {
		tabs[i].Active = tabs[i].Name == category
	}
	data := homeData{
		Title:      "Confessional",
		Messages:   msgs,
		Categories: s.board.Categories(),
		Tabs:       tabs,
		MaxUpload:  s.cfg.Upload.MaxBytes,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.Home.ExecuteTemplate(w, "layout", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("render home")
	}
}

// handleAdmin serves the moderation page. Everything on it goes through the
// admin API, so it renders without a session.
func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.Admin.ExecuteTemplate(w, "layout", map[string]any{"Title": "Confessional admin"}); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("render admin")
	}
}
