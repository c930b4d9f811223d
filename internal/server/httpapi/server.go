package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/uslugio/auth/internal/logging"
	"github.com/uslugio/auth/internal/server/auth"
)

// Server runs the gin engine with graceful shutdown tied to the context.
type Server struct {
	srv    *http.Server
	logger logging.Logger
}

// NewServer builds the router and binds it to addr.
func NewServer(addr string, issuer *auth.Issuer, h *Handler, logger logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/otp/request", h.RequestOtp)
		authGroup.POST("/otp/verify", h.VerifyOtp)
		authGroup.POST("/logout", RequireAuth(issuer), h.Logout)
	}

	return &Server{
		srv:    &http.Server{Addr: addr, Handler: r},
		logger: logger,
	}
}

// Run serves until the context is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
