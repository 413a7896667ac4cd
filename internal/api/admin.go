package api

import (
	"errors"   // Sentinel error checks
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"github.com/Abiya4/expense-tracker/internal/domain" // Importing domain models
	"github.com/Abiya4/expense-tracker/internal/middleware"

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Fixed-point money
	"github.com/sirupsen/logrus"    // Structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

// AdminUserResponse is the user data returned to administrators
type AdminUserResponse struct {
	ID       uint            `json:"id"`
	Username string          `json:"username"`
	Phone    string          `json:"phone"`
	Balance  decimal.Decimal `json:"balance"`
	Active   bool            `json:"active"`
}

// AdminExpenseResponse joins a transaction with its owner's username
type AdminExpenseResponse struct {
	Username string          `json:"username"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
	Kind     string          `json:"type"`
	Status   string          `json:"status"`
}

// SetActiveRequest toggles an account's active flag
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// ListUsersHandler returns all non-admin users, optionally filtered by a
// search query matching username or phone.
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&domain.User{}).Where("role = ?", domain.RoleUser)
		if search := c.Query("q"); search != "" {
			like := "%" + search + "%"
			q = q.Where("username LIKE ? OR phone LIKE ?", like, like)
		}
		var users []domain.User
		if err := q.Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		resp := make([]AdminUserResponse, len(users))
		for i, u := range users {
			resp[i] = AdminUserResponse{
				ID:       u.ID,
				Username: u.Username,
				Phone:    u.Phone,
				Balance:  u.Balance,
				Active:   u.IsActive,
			}
		}
		c.JSON(http.StatusOK, gin.H{"users": resp})
	}
}

// SetUserActiveHandler deactivates or reactivates an account. Deactivation
// keeps the user's transactions; only login is refused.
func SetUserActiveHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var req SetActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		var user domain.User
		if err := db.First(&user, targetID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		if user.Role == domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot modify admin"})
			return
		}
		if err := db.Model(&user).Update("is_active", *req.Active).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
			return
		}
		middleware.Logger(c).WithFields(logrus.Fields{
			"user_id": user.ID,
			"active":  *req.Active,
		}).Info("User active flag changed")
		c.JSON(http.StatusOK, gin.H{"id": user.ID, "active": *req.Active})
	}
}

// DeleteUserHandler removes a user together with all their transactions.
// Admin accounts cannot be removed. No balance reversal happens here; the
// account and its balance disappear together.
func DeleteUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		targetID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
			return
		}
		var user domain.User
		if err := db.First(&user, targetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch user"})
			return
		}
		if user.Role == domain.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot delete admin"})
			return
		}
		// Transactions go with the user in one unit of work
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("user_id = ?", user.ID).Delete(&domain.Transaction{}).Error; err != nil {
				return err
			}
			return tx.Delete(&domain.User{}, user.ID).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
			return
		}
		middleware.Logger(c).WithField("user_id", user.ID).Info("User removed")
		c.JSON(http.StatusOK, gin.H{"deleted": user.ID})
	}
}

// ListAllExpensesHandler returns every transaction joined with its owner's
// username, newest first.
func ListAllExpensesHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rows []AdminExpenseResponse
		err := db.Model(&domain.Transaction{}).
			Select("users.username, transactions.amount, transactions.category, transactions.date, transactions.kind, transactions.status").
			Joins("JOIN users ON users.id = transactions.user_id").
			Order("transactions.date desc, transactions.time desc").
			Scan(&rows).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"expenses": rows})
	}
}

// AnalyticsHandler returns aggregate counts: total non-admin users and the
// total confirmed expense amount across all of them.
func AnalyticsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userCount int64
		if err := db.Model(&domain.User{}).Where("role = ?", domain.RoleUser).Count(&userCount).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var totalExpenses decimal.NullDecimal
		err := db.Model(&domain.Transaction{}).
			Select("SUM(amount)").
			Where("kind = ? AND status = ?", domain.KindExpense, domain.StatusConfirmed).
			Scan(&totalExpenses).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sum expenses"})
			return
		}
		total := decimal.Zero
		if totalExpenses.Valid {
			total = totalExpenses.Decimal
		}
		c.JSON(http.StatusOK, gin.H{
			"total_users":    userCount,
			"total_expenses": total,
		})
	}
}
