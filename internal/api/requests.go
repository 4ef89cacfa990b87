package api

import (
	"errors"
	"net/http"

	"taskpay_backend/internal/model"
	"taskpay_backend/internal/service"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type requestRoutes struct {
	rs *service.RequestService
	a  *auth.JWTAuth
}

func NewRequestRoutes(handler *gin.RouterGroup, rs *service.RequestService, a *auth.JWTAuth) {
	r := &requestRoutes{rs: rs, a: a}

	h := handler.Group("/requests")
	h.Use(a.Middleware())
	{
		h.GET("/", r.ListOwn)
		h.POST("/tasks", r.CreateTaskSubmission)
		h.POST("/withdrawals", r.CreateWithdrawal)
		h.POST("/premium", r.CreatePremium)
		h.POST("/social-sales", r.CreateSocialSell)
		h.POST("/job-withdrawals", r.CreateJobWithdraw)
	}
}

// respondCreateError maps every service sentinel to its own message; the UI
// surfaces the specific reason, never a generic failure.
func respondCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
	case errors.Is(err, service.ErrInsufficientBalance):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient wallet balance"})
	case errors.Is(err, service.ErrPremiumRequired):
		c.JSON(http.StatusForbidden, gin.H{"error": "premium account required to withdraw from this wallet"})
	case errors.Is(err, service.ErrFreeWithdrawLimitExceeded):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "free wallet withdrawal limit reached"})
	case errors.Is(err, service.ErrWalletNotWithdrawable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "this wallet does not support withdrawals"})
	case errors.Is(err, service.ErrAmountOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "amount outside the allowed withdrawal range"})
	case errors.Is(err, service.ErrDailyTaskLimitReached):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "daily task limit reached"})
	case errors.Is(err, service.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	default:
		logger.Logger().Error("failed to create request", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
	}
}

type requestResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Status    string `json:"status"`
	Amount    int64  `json:"amount"`
	CreatedAt int64  `json:"created_at"`
	DecidedAt *int64 `json:"decided_at,omitempty"`
}

func toRequestResponse(req *model.Request) requestResponse {
	out := requestResponse{
		ID:        req.ID.String(),
		Kind:      string(req.Kind),
		Status:    string(req.Status),
		Amount:    req.Amount,
		CreatedAt: req.CreatedAt.Unix(),
	}
	if req.DecidedAt != nil {
		unix := req.DecidedAt.Unix()
		out.DecidedAt = &unix
	}
	return out
}

func (r *requestRoutes) ListOwn(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	requests, err := r.rs.ListUserRequests(c.Request.Context(), session.ID)
	if err != nil {
		logger.Logger().Error("failed to list requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list requests"})
		return
	}

	out := make([]requestResponse, len(requests))
	for i, req := range requests {
		out[i] = toRequestResponse(req)
	}

	c.JSON(http.StatusOK, out)
}

type TaskSubmissionRequest struct {
	TaskTitle   string   `json:"task_title" binding:"required"`
	Amount      int64    `json:"amount" binding:"required"`
	Wallet      string   `json:"wallet"`
	ProofLink   string   `json:"proof_link"`
	ProofImages []string `json:"proof_images"`
}

func (r *requestRoutes) CreateTaskSubmission(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req TaskSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	wallet, _ := model.ParseWallet(req.Wallet)
	created, err := r.rs.CreateTaskSubmission(c.Request.Context(), session.ID, req.Amount, model.TaskPayload{
		TaskTitle:   req.TaskTitle,
		Wallet:      wallet,
		ProofLink:   req.ProofLink,
		ProofImages: req.ProofImages,
	})
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(created))
}

type WithdrawalRequest struct {
	Amount        int64  `json:"amount" binding:"required"`
	Wallet        string `json:"wallet" binding:"required"`
	Method        string `json:"method" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

func (r *requestRoutes) CreateWithdrawal(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	wallet, ok := model.ParseWallet(req.Wallet)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown wallet"})
		return
	}

	created, err := r.rs.CreateWithdrawRequest(c.Request.Context(), session.ID, req.Amount, model.WithdrawPayload{
		Wallet:        wallet,
		Method:        req.Method,
		AccountNumber: req.AccountNumber,
	})
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(created))
}

type PremiumRequest struct {
	Method        string `json:"method" binding:"required"`
	TransactionID string `json:"transaction_id" binding:"required"`
}

func (r *requestRoutes) CreatePremium(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req PremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	created, err := r.rs.CreatePremiumRequest(c.Request.Context(), session.ID, model.PremiumPayload{
		Method:        req.Method,
		TransactionID: req.TransactionID,
	})
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(created))
}

type SocialSellRequest struct {
	Platform    string `json:"platform" binding:"required"`
	AccountLink string `json:"account_link" binding:"required"`
}

func (r *requestRoutes) CreateSocialSell(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SocialSellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	created, err := r.rs.CreateSocialSell(c.Request.Context(), session.ID, model.SocialSellPayload{
		Platform:    req.Platform,
		AccountLink: req.AccountLink,
	})
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(created))
}

type JobWithdrawRequest struct {
	Coins int64 `json:"coins" binding:"required"`
}

func (r *requestRoutes) CreateJobWithdraw(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req JobWithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	created, err := r.rs.CreateJobWithdraw(c.Request.Context(), session.ID, req.Coins)
	if err != nil {
		respondCreateError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toRequestResponse(created))
}
