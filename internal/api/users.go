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

type userRoutes struct {
	us *service.UserService
	a  *auth.JWTAuth
}

func NewUserRoutes(handler *gin.RouterGroup, us *service.UserService, a *auth.JWTAuth) {
	r := &userRoutes{us: us, a: a}

	public := handler.Group("/auth")
	{
		public.POST("/register", r.Register)
		public.POST("/login", r.Login)
	}

	h := handler.Group("/users")
	h.Use(a.Middleware())
	{
		h.GET("/me", r.GetMe)
		h.GET("/me/wallets", r.GetWallets)
		h.GET("/me/referrals", r.GetReferrals)
		h.GET("/leaderboard", r.GetLeaderboard)
	}
}

type RegisterRequest struct {
	Username     string `json:"username" binding:"required"`
	Password     string `json:"password" binding:"required"`
	ReferralCode string `json:"referral_code" binding:"required"`
}

type SessionResponse struct {
	Token        string `json:"token"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
}

func (r *userRoutes) Register(c *gin.Context) {
	log := logger.Logger()

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Register(c.Request.Context(), req.Username, req.Password, req.ReferralCode)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidReferralCode):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "referral code is not valid"})
		case errors.Is(err, service.ErrUsernameTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "username already taken"})
		default:
			log.Error("failed to register user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		}
		return
	}

	token, err := r.a.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		log.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, SessionResponse{
		Token:        token,
		UserID:       user.ID.String(),
		Username:     user.Username,
		ReferralCode: user.ReferralCode,
	})
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (r *userRoutes) Login(c *gin.Context) {
	log := logger.Logger()

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := r.us.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserBlocked):
			c.JSON(http.StatusForbidden, gin.H{"error": "account is blocked"})
		case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrWrongPassword):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong username or password"})
		default:
			log.Error("failed to authenticate user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		}
		return
	}

	token, err := r.a.GenerateToken(user.ID, user.IsAdmin)
	if err != nil {
		log.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:        token,
		UserID:       user.ID.String(),
		Username:     user.Username,
		ReferralCode: user.ReferralCode,
	})
}

func userJSON(user *model.User) gin.H {
	return gin.H{
		"id":                user.ID,
		"username":          user.Username,
		"referral_code":     user.ReferralCode,
		"referrer_id":       user.ReferrerID,
		"referrals":         user.Referrals,
		"account_type":      user.AccountType,
		"status":            user.Status,
		"registration_date": user.RegistrationDate,
	}
}

func (r *userRoutes) GetMe(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), session.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, userJSON(user))
}

func (r *userRoutes) GetWallets(c *gin.Context) {
	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := r.us.GetUser(c.Request.Context(), session.ID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"free":             user.BalanceFree,
		"main":             user.BalanceMain,
		"pending_referral": user.PendingReferralBonus,
		"job":              user.BalanceJob,
	})
}

type referralEntry struct {
	Username         string `json:"username"`
	AccountType      string `json:"account_type"`
	RegistrationDate int64  `json:"registration_date"`
}

func (r *userRoutes) GetReferrals(c *gin.Context) {
	log := logger.Logger()

	session, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	referrals, err := r.us.GetReferrals(c.Request.Context(), session.ID)
	if err != nil {
		log.Error("failed to get user referrals", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get referrals"})
		return
	}

	out := make([]referralEntry, len(referrals))
	for i, ref := range referrals {
		out[i] = referralEntry{
			Username:         ref.Username,
			AccountType:      string(ref.AccountType),
			RegistrationDate: ref.RegistrationDate.Unix(),
		}
	}

	c.JSON(http.StatusOK, out)
}

func (r *userRoutes) GetLeaderboard(c *gin.Context) {
	log := logger.Logger()

	users, err := r.us.GetLeaderboard(c.Request.Context())
	if err != nil {
		log.Error("failed to get leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	var response []gin.H
	for _, user := range users {
		response = append(response, gin.H{
			"username":  user.Username,
			"earned":    user.BalanceFree + user.BalanceMain,
			"referrals": user.Referrals,
		})
	}

	c.JSON(http.StatusOK, response)
}
