package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edcore/school-admin-guard/internal/usecase"
)

// AuthHandler exposes the sign-in endpoints.
type AuthHandler struct {
	login *usecase.LoginService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(login *usecase.LoginService) *AuthHandler {
	return &AuthHandler{login: login}
}

// RegisterRoutes binds authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.signIn)
	r.POST("/login/otp", h.completeOTP)
	r.POST("/login/resend", h.resendOTP)
}

func (h *AuthHandler) signIn(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	input := usecase.LoginInput{
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
		Signals:  req.Signals.toDomain(c.Request.UserAgent()),
		IP:       strings.TrimSpace(c.ClientIP()),
	}

	result, err := h.login.Login(c.Request.Context(), input)
	if err != nil {
		respondLoginError(c, err)
		return
	}

	resp := LoginResponse{Account: newAccountSummary(*result.Account)}
	if result.RequiresOTP {
		resp.RequiresOTP = true
		resp.CodeTTLSecs = int(result.ChallengeTTL / time.Second)
		c.JSON(http.StatusAccepted, resp)
		return
	}

	resp.Token = result.Token
	resp.TokenType = "Bearer"
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) completeOTP(c *gin.Context) {
	var req LoginOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	input := usecase.CompleteOTPInput{
		Username:       strings.TrimSpace(req.Username),
		Code:           strings.TrimSpace(req.Code),
		Signals:        req.Signals.toDomain(c.Request.UserAgent()),
		IP:             strings.TrimSpace(c.ClientIP()),
		RememberDevice: req.RememberDevice,
	}

	result, err := h.login.CompleteOTPLogin(c.Request.Context(), input)
	if err != nil {
		respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		Account:   newAccountSummary(*result.Account),
	})
}

func (h *AuthHandler) resendOTP(c *gin.Context) {
	var req LoginResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid resend payload"))
		return
	}

	ttl, err := h.login.ResendLoginOTP(c.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		respondLoginError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":          "verification code sent",
		"code_ttl_seconds": int(ttl / time.Second),
	})
}

func respondLoginError(c *gin.Context, err error) {
	var lockedErr *usecase.AccountLockedError
	if errors.As(err, &lockedErr) {
		retryAfter := int(lockedErr.RetryAfter / time.Second)
		if lockedErr.RetryAfter%time.Second != 0 {
			retryAfter++
		}
		resp := NewErrorResponse(c, "account temporarily locked")
		resp.RetryAfter = retryAfter
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, resp)
		return
	}

	switch {
	case errors.Is(err, usecase.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "invalid credentials"))
	case errors.Is(err, usecase.ErrInactiveAccount):
		c.JSON(http.StatusForbidden, NewErrorResponse(c, "account disabled"))
	case errors.Is(err, usecase.ErrChallengeExpired):
		c.JSON(http.StatusGone, NewErrorResponse(c, "verification code expired"))
	case errors.Is(err, usecase.ErrChallengeMismatch):
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "incorrect verification code"))
	default:
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "authentication failed"))
	}
}
