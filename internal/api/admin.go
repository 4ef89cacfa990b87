package api

import (
	"errors"
	"net/http"

	"taskpay_backend/internal/middleware"
	"taskpay_backend/internal/model"
	"taskpay_backend/internal/service"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type adminRoutes struct {
	as *service.ApprovalService
	rs *service.RequestService
	us *service.UserService
	ss *service.SettingsService
}

func NewAdminRoutes(handler *gin.RouterGroup, as *service.ApprovalService, rs *service.RequestService, us *service.UserService, ss *service.SettingsService, a *auth.JWTAuth, authz *middleware.Authorization) {
	r := &adminRoutes{as: as, rs: rs, us: us, ss: ss}

	h := handler.Group("/admin")
	h.Use(a.Middleware())
	h.Use(authz.AdminOnly())
	{
		h.GET("/requests", r.ListRequests)
		h.POST("/requests/:request_id/decision", r.Decide)
		h.GET("/users/:user_id", r.GetUser)
		h.GET("/settings", r.GetSettings)
		h.PUT("/settings", r.UpdateSettings)
	}
}

func (r *adminRoutes) ListRequests(c *gin.Context) {
	var kind *model.RequestKind
	if raw := c.Query("kind"); raw != "" {
		parsed, ok := model.ParseRequestKind(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown request kind"})
			return
		}
		kind = &parsed
	}

	status := model.RequestStatusPending
	if raw := c.Query("status"); raw != "" {
		status = model.RequestStatus(raw)
	}

	requests, err := r.rs.ListRequests(c.Request.Context(), kind, &status)
	if err != nil {
		logger.Logger().Error("failed to list requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}

	out := make([]gin.H, len(requests))
	for i, req := range requests {
		entry := gin.H{
			"id":         req.ID,
			"user_id":    req.UserID,
			"kind":       req.Kind,
			"status":     req.Status,
			"amount":     req.Amount,
			"created_at": req.CreatedAt,
		}
		switch req.Kind {
		case model.RequestKindTask:
			entry["payload"] = req.Task
		case model.RequestKindWithdraw:
			entry["payload"] = req.Withdraw
		case model.RequestKindPremium:
			entry["payload"] = req.Premium
		case model.RequestKindSocialSell:
			entry["payload"] = req.SocialSell
		case model.RequestKindJobWithdraw:
			entry["payload"] = req.JobWithdraw
		}
		out[i] = entry
	}

	c.JSON(http.StatusOK, out)
}

type DecisionRequest struct {
	Decision     string `json:"decision" binding:"required"`
	PayoutAmount *int64 `json:"payout_amount"`
}

func (r *adminRoutes) Decide(c *gin.Context) {
	log := logger.Logger()

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request_id"})
		return
	}

	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	decision := model.Decision(req.Decision)
	if decision != model.DecisionApprove && decision != model.DecisionReject {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be APPROVE or REJECT"})
		return
	}

	decided, err := r.as.Decide(c.Request.Context(), requestID, decision, req.PayoutAmount)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRequestNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
		case errors.Is(err, service.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": "request has already been processed"})
		case errors.Is(err, service.ErrMissingPayoutAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "payout_amount is required to approve a job withdrawal"})
		case errors.Is(err, service.ErrInsufficientBalance):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "decision would drive a wallet negative"})
		default:
			log.Error("failed to apply decision", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to apply decision"})
		}
		return
	}

	c.JSON(http.StatusOK, toRequestResponse(decided))
}

func (r *adminRoutes) GetUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	out := userJSON(user)
	out["wallets"] = gin.H{
		"free":             user.BalanceFree,
		"main":             user.BalanceMain,
		"pending_referral": user.PendingReferralBonus,
		"job":              user.BalanceJob,
	}

	c.JSON(http.StatusOK, out)
}

type SettingsPayload struct {
	SignupBonus          int64  `json:"signup_bonus"`
	ReferralSignupBonus  int64  `json:"referral_signup_bonus"`
	PremiumReferralBonus int64  `json:"premium_referral_bonus"`
	PremiumPrice         int64  `json:"premium_price"`
	MinWithdrawFree      int64  `json:"min_withdraw_free"`
	MaxWithdrawFree      int64  `json:"max_withdraw_free"`
	MinWithdrawMain      int64  `json:"min_withdraw_main"`
	MaxWithdrawMain      int64  `json:"max_withdraw_main"`
	MinWithdrawJob       int64  `json:"min_withdraw_job"`
	MaxWithdrawJob       int64  `json:"max_withdraw_job"`
	FreeWithdrawLimit    int    `json:"free_withdraw_limit"`
	DailyTaskLimit       int    `json:"daily_task_limit"`
	ClaimRate            int64  `json:"claim_rate"`
	ClaimWaitSeconds     int    `json:"claim_wait_seconds"`
	SocialSellRate       int64  `json:"social_sell_rate"`
	JobCoinRate          int64  `json:"job_coin_rate"`
	HouseReferralCode    string `json:"house_referral_code"`
}

func settingsFromModel(s *model.Settings) SettingsPayload {
	return SettingsPayload{
		SignupBonus:          s.SignupBonus,
		ReferralSignupBonus:  s.ReferralSignupBonus,
		PremiumReferralBonus: s.PremiumReferralBonus,
		PremiumPrice:         s.PremiumPrice,
		MinWithdrawFree:      s.MinWithdrawFree,
		MaxWithdrawFree:      s.MaxWithdrawFree,
		MinWithdrawMain:      s.MinWithdrawMain,
		MaxWithdrawMain:      s.MaxWithdrawMain,
		MinWithdrawJob:       s.MinWithdrawJob,
		MaxWithdrawJob:       s.MaxWithdrawJob,
		FreeWithdrawLimit:    s.FreeWithdrawLimit,
		DailyTaskLimit:       s.DailyTaskLimit,
		ClaimRate:            s.ClaimRate,
		ClaimWaitSeconds:     s.ClaimWaitSeconds,
		SocialSellRate:       s.SocialSellRate,
		JobCoinRate:          s.JobCoinRate,
		HouseReferralCode:    s.HouseReferralCode,
	}
}

func (p *SettingsPayload) toModel() *model.Settings {
	return &model.Settings{
		SignupBonus:          p.SignupBonus,
		ReferralSignupBonus:  p.ReferralSignupBonus,
		PremiumReferralBonus: p.PremiumReferralBonus,
		PremiumPrice:         p.PremiumPrice,
		MinWithdrawFree:      p.MinWithdrawFree,
		MaxWithdrawFree:      p.MaxWithdrawFree,
		MinWithdrawMain:      p.MinWithdrawMain,
		MaxWithdrawMain:      p.MaxWithdrawMain,
		MinWithdrawJob:       p.MinWithdrawJob,
		MaxWithdrawJob:       p.MaxWithdrawJob,
		FreeWithdrawLimit:    p.FreeWithdrawLimit,
		DailyTaskLimit:       p.DailyTaskLimit,
		ClaimRate:            p.ClaimRate,
		ClaimWaitSeconds:     p.ClaimWaitSeconds,
		SocialSellRate:       p.SocialSellRate,
		JobCoinRate:          p.JobCoinRate,
		HouseReferralCode:    p.HouseReferralCode,
	}
}

func (r *adminRoutes) GetSettings(c *gin.Context) {
	policy, err := r.ss.GetPolicy(c.Request.Context())
	if err != nil {
		logger.Logger().Error("failed to get settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get settings"})
		return
	}

	c.JSON(http.StatusOK, settingsFromModel(policy))
}

func (r *adminRoutes) UpdateSettings(c *gin.Context) {
	var payload SettingsPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := r.ss.UpdatePolicy(c.Request.Context(), payload.toModel()); err != nil {
		if errors.Is(err, service.ErrInvalidAmount) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "rates and limits must not be negative"})
			return
		}
		logger.Logger().Error("failed to update settings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}

	c.JSON(http.StatusOK, payload)
}
