package middleware

import (
	"context"
	"net/http"

	"taskpay_backend/internal/model"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserLookup is the slice of the user service the admin gate needs.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type Authorization struct {
	users UserLookup
}

func NewAuthorization(users UserLookup) *Authorization {
	return &Authorization{
		users: users,
	}
}

// AdminOnly re-verifies the admin flag against the stored user record rather
// than trusting the token claim alone; a revoked admin is locked out as soon
// as the record flips.
func (a *Authorization) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.Logger()

		session, ok := auth.CurrentUser(c)
		if !ok {
			log.Error("session user not found in context")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		user, err := a.users.GetUser(c.Request.Context(), session.ID)
		if err != nil {
			log.Error("failed to get user data", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}

		if !user.IsAdmin {
			log.Info("unauthorized access attempt to admin endpoint",
				zap.String("user_id", session.ID.String()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}

		c.Next()
	}
}
