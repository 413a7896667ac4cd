package api

import (
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"github.com/Abiya4/expense-tracker/internal/domain" // Importing domain models
	"github.com/Abiya4/expense-tracker/internal/middleware"
	"github.com/Abiya4/expense-tracker/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Fixed-point money
	"gorm.io/gorm"                  // GORM ORM library
)

// SignupRequest is the payload for account creation
type SignupRequest struct {
	Username string          `json:"username" binding:"required"` // Username must be provided
	Password string          `json:"password" binding:"required"` // Password must be provided
	Phone    string          `json:"phone" binding:"required"`    // Phone must be provided
	Balance  decimal.Decimal `json:"balance"`                     // Initial balance, must be >= 0
}

// LoginRequest is the payload for authentication
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignupHandler registers a new account with an initial balance. The balance
// supplied here is the only direct balance write in the system; everything
// afterwards goes through the ledger.
func SignupHandler(db *gorm.DB, hasher utils.PasswordHasher) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "All fields required"})
			return
		}
		if req.Balance.Cmp(decimal.Zero) < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Balance must not be negative"})
			return
		}
		hash, err := hasher.Hash(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
			return
		}
		user := domain.User{
			Username: strings.ToLower(req.Username), // Lowercase to keep uniqueness case-insensitive
			Password: hash,
			Phone:    req.Phone,
			Role:     domain.RoleUser,
			Balance:  req.Balance,
			IsActive: true,
		}
		if err := db.Create(&user).Error; err != nil {
			// Unique index on username makes duplicates surface here
			c.JSON(http.StatusConflict, gin.H{"error": "Username already exists"})
			return
		}
		middleware.Logger(c).WithField("user_id", user.ID).Info("User registered")
		c.JSON(http.StatusCreated, gin.H{"id": user.ID})
	}
}

// LoginHandler authenticates a user and returns a JWT token carrying the
// caller's identity and role. Deactivated accounts are refused.
func LoginHandler(db *gorm.DB, hasher utils.PasswordHasher, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.Where("username = ?", strings.ToLower(req.Username)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !hasher.Verify(user.Password, req.Password) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		if !user.IsActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account deactivated"})
			return
		}
		token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}
		resp := gin.H{"token": token, "id": user.ID, "role": user.Role}
		if user.Role == domain.RoleUser {
			resp["balance"] = user.Balance
		}
		c.JSON(http.StatusOK, resp)
	}
}

// statusFor maps the domain error taxonomy to transport status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
