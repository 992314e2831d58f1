package httpapp

import (
	"net/http"
	"strings"

	"github.com/alphabot-ai/confessional/internal/auth"
	"github.com/alphabot-ai/confessional/internal/validation"
)

type loginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=256"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

// readToken takes the session token from a JSON or form body field named
// "token", falling back to the Authorization bearer header. A missing body
// is allowed.
func (s *Server) readToken(w http.ResponseWriter, r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	var token string
	switch mediaType(r.Header.Get("Content-Type")) {
	case "application/json":
		var req tokenRequest
		if err := readOptionalJSON(r.Body, &req); err != nil {
			return "", bodyError(err)
		}
		token = req.Token
	case "application/x-www-form-urlencoded", "multipart/form-data":
		token = r.FormValue("token")
	}
	if strings.TrimSpace(token) == "" {
		token = auth.BearerToken(r.Header.Get("Authorization"))
	}
	return strings.TrimSpace(token), nil
}

// handleLogin godoc
//
//	@Summary	Admin login
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Param		credentials	body		object{username=string,password=string}	true	"Admin credentials"
//	@Success	200			{object}	map[string]interface{}	"success and token"
//	@Failure	400			{object}	map[string]string		"Missing fields"
//	@Failure	401			{object}	map[string]string		"Invalid credentials"
//	@Router		/api/admin/login [post]
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if mediaType(r.Header.Get("Content-Type")) == "application/json" {
		if err := readJSON(r.Body, &req); err != nil {
			s.writeServiceError(w, r, bodyError(err))
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}
	if err := validation.ValidateStruct(req); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	token, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": token})
}

// handleLogout godoc
//
//	@Summary		Admin logout
//	@Description	Forgets the session token. Unknown tokens succeed too.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		object{token=string}	false	"Session token"
//	@Success		200		{object}	map[string]bool
//	@Router			/api/admin/logout [post]
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := s.readToken(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleCheck godoc
//
//	@Summary	Check a session token
//	@Tags		Admin
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		body	body		object{token=string}	false	"Session token"
//	@Success	200		{object}	map[string]bool
//	@Router		/api/admin/check [post]
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	token, err := s.readToken(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authorized": s.auth.IsAuthorized(r.Context(), token)})
}

// handleReports godoc
//
//	@Summary		Reported messages
//	@Description	Messages with at least one report, newest first, each with its reports.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		object{token=string}	false	"Session token"
//	@Success		200		{array}		model.ReportedMessage
//	@Failure		403		{object}	map[string]string	"Unauthorized"
//	@Router			/api/admin/reports [post]
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	token, err := s.readToken(w, r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	reported, err := s.board.Reports(r.Context(), token)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reported)
}
