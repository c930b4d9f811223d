// Package httpapi exposes the credential lifecycle over HTTP. Transport
// framing only: every decision about tokens and codes lives in the service.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/uslugio/auth/internal/common"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/mail"
	"github.com/uslugio/auth/internal/server/services"
)

// Credentials is the slice of the credential service the transport needs.
type Credentials interface {
	RefreshSession(ctx context.Context, presented string) (*services.TokenPair, error)
	RequestOtp(ctx context.Context, subjectKey string) (string, error)
	VerifyOtp(ctx context.Context, subjectKey, candidate string) (bool, error)
	RevokeSessions(ctx context.Context, userID string) error
}

type Handler struct {
	service Credentials
	sender  mail.Sender
	logger  logging.Logger
}

func NewHandler(service Credentials, sender mail.Sender, logger logging.Logger) *Handler {
	return &Handler{service: service, sender: sender, logger: logger}
}

type refreshInput struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type otpRequestInput struct {
	Email string `json:"email" binding:"required,email"`
}

type otpVerifyInput struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

// Refresh exchanges a refresh token for a new access/refresh pair. Every
// lifecycle failure collapses into the same 401 body; logs carry the detail.
func (h *Handler) Refresh(c *gin.Context) {
	var input refreshInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}

	pair, err := h.service.RefreshSession(c.Request.Context(), input.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidToken),
			errors.Is(err, common.ErrTokenExpired),
			errors.Is(err, common.ErrTokenAlreadyUsed),
			errors.Is(err, common.ErrorUnauthorized):
			h.logger.Info(c.Request.Context(), "refresh rejected", "reason", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in again"})
		default:
			h.logger.Error(c.Request.Context(), "refresh failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// RequestOtp generates a code for the email and delivers it out of band.
// The code never appears in the response.
func (h *Handler) RequestOtp(c *gin.Context) {
	var input otpRequestInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid email required"})
		return
	}

	ctx := c.Request.Context()
	code, err := h.service.RequestOtp(ctx, input.Email)
	if err != nil {
		h.logger.Error(ctx, "otp generation failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}

	if err := h.sender.SendOtp(ctx, input.Email, code); err != nil {
		h.logger.Error(ctx, "otp delivery failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "code sent"})
}

// VerifyOtp checks a candidate code. Wrong code and expired/absent code get
// the same response body so the endpoint cannot be used for enumeration.
func (h *Handler) VerifyOtp(c *gin.Context) {
	var input otpVerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and 6-digit code required"})
		return
	}

	ok, err := h.service.VerifyOtp(c.Request.Context(), input.Email, input.Code)
	if err != nil {
		h.logger.Error(c.Request.Context(), "otp verification failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// Logout revokes every refresh token of the authenticated subject.
func (h *Handler) Logout(c *gin.Context) {
	userID := c.GetString(ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in again"})
		return
	}

	if err := h.service.RevokeSessions(c.Request.Context(), userID); err != nil {
		h.logger.Error(c.Request.Context(), "logout failed", "user_id", userID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporarily unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out everywhere"})
}
