package api

import (
	"errors"
	"net/http"

	"taskpay_backend/internal/service"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type claimRoutes struct {
	cs *service.ClaimService
	a  *auth.JWTAuth
}

func NewClaimRoutes(handler *gin.RouterGroup, cs *service.ClaimService, a *auth.JWTAuth) {
	r := &claimRoutes{cs: cs, a: a}

	h := handler.Group("/claim")
	h.Use(a.Middleware())
	{
		h.POST("/start", r.Start)
		h.POST("/complete", r.Complete)
	}
}

func (r *claimRoutes) Start(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	challenge, err := r.cs.Start(c.Request.Context(), session.ID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBonusBelowClaimRate):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "pending bonus is below the claim rate"})
		case errors.Is(err, service.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			logger.Logger().Error("failed to start claim", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start claim"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question":     challenge.Question,
		"wait_seconds": challenge.WaitSeconds,
		"not_before":   challenge.NotBefore.Unix(),
	})
}

type CompleteClaimRequest struct {
	Answer int64 `json:"answer"`
}

func (r *claimRoutes) Complete(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CompleteClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	credited, err := r.cs.Complete(c.Request.Context(), session.ID, req.Answer)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClaimNotStarted):
			c.JSON(http.StatusConflict, gin.H{"error": "no claim in progress"})
		case errors.Is(err, service.ErrClaimNotReady):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "the wait timer has not elapsed"})
		case errors.Is(err, service.ErrWrongClaimAnswer):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "wrong answer, start a new claim"})
		case errors.Is(err, service.ErrBonusBelowClaimRate):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "pending bonus is below the claim rate"})
		default:
			logger.Logger().Error("failed to complete claim", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to complete claim"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"credited": credited})
}
