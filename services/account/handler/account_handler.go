package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
	"auction-house/utils"
)

// SessionCookieName is the cookie carrying the session id
const SessionCookieName = "session_id"

// User-facing messages, verbatim from the site's templates
const (
	PasswordMismatchMessage   = "Passwords must match."
	UsernameTakenMessage      = "Username already taken."
	InvalidCredentialsMessage = "Invalid username and/or password."
)

type AccountServiceInterface interface {
	Register(username, email, password, confirmation string) (model.User, model.Session, error)
	Login(username, password string) (model.Session, error)
	Logout(sessionID string) error
}

type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

type RegisterRequest struct {
	Username     string `form:"username" binding:"required"`
	Email        string `form:"email"`
	Password     string `form:"password" binding:"required"`
	Confirmation string `form:"confirmation"`
}

type LoginRequest struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// RegisterHandler handles GET and POST /register
func (h *AccountHandler) RegisterHandler(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		utils.JSONResponse(c, http.StatusOK, nil, "register")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, err, "invalid form input")
		utils.Warn("RegisterHandler: binding error", map[string]any{"error": err.Error()})
		return
	}

	user, session, err := h.service.Register(req.Username, req.Email, req.Password, req.Confirmation)
	if err != nil {
		switch {
		case errors.Is(err, auctionerrors.ErrPasswordMismatch):
			utils.JSONError(c, http.StatusBadRequest, err, PasswordMismatchMessage)
		case errors.Is(err, auctionerrors.ErrUsernameTaken):
			utils.JSONError(c, http.StatusBadRequest, err, UsernameTakenMessage)
		default:
			utils.JSONError(c, http.StatusInternalServerError, err, "internal server error")
		}
		utils.Warn("RegisterHandler: registration failed", map[string]any{
			"username": req.Username,
			"error":    err.Error(),
		})
		return
	}

	setSessionCookie(c, session)
	utils.Info("RegisterHandler: user registered", map[string]any{
		"user_id":  user.UserID,
		"username": user.Username,
	})
	c.Redirect(http.StatusSeeOther, "/")
}

// LoginHandler handles GET and POST /login
func (h *AccountHandler) LoginHandler(c *gin.Context) {
	if c.Request.Method == http.MethodGet {
		utils.JSONResponse(c, http.StatusOK, nil, "login")
		return
	}

	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, InvalidCredentialsMessage)
		utils.Warn("LoginHandler: binding error", map[string]any{"error": err.Error()})
		return
	}

	session, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		utils.JSONError(c, http.StatusUnauthorized, auctionerrors.ErrInvalidCredentials, InvalidCredentialsMessage)
		utils.Warn("LoginHandler: login failed", map[string]any{"username": req.Username})
		return
	}

	setSessionCookie(c, session)
	utils.Info("LoginHandler: login ok", map[string]any{
		"username":   req.Username,
		"session_id": session.SessionID,
	})
	c.Redirect(http.StatusSeeOther, "/")
}

// LogoutHandler handles GET /logout
func (h *AccountHandler) LogoutHandler(c *gin.Context) {
	if sid, err := c.Cookie(SessionCookieName); err == nil && sid != "" {
		if err := h.service.Logout(sid); err != nil {
			utils.Warn("LogoutHandler: failed to delete session", map[string]any{"error": err.Error()})
		}
		c.SetCookie(SessionCookieName, "", -1, "/", "", false, true)
	}
	c.Redirect(http.StatusSeeOther, "/")
}

func setSessionCookie(c *gin.Context, session model.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetCookie(SessionCookieName, session.SessionID, maxAge, "/", "", false, true)
}
