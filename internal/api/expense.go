package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing
	"time"     // Cache TTLs

	"github.com/Abiya4/expense-tracker/internal/domain" // Importing domain models
	"github.com/Abiya4/expense-tracker/internal/ledger" // Balance ledger core
	"github.com/Abiya4/expense-tracker/internal/middleware"
	"github.com/Abiya4/expense-tracker/internal/utils" // Utility functions

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Fixed-point money
	"github.com/sirupsen/logrus"    // Structured logging
	"gorm.io/gorm"                  // GORM ORM library
)

const cacheTTL = 60 * time.Second

// AddExpenseRequest is the payload for recording a transaction
type AddExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"` // Unsigned magnitude
	Category    string          `json:"category"`                  // Category label
	Kind        string          `json:"type"`                      // income or expense, defaults to expense
	Status      string          `json:"status"`                    // Defaults by entry method
	EntryMethod string          `json:"entry_method"`              // manual or synced, defaults to manual
	Source      string          `json:"source"`                    // Free-text provenance label
	Date        string          `json:"date"`                      // YYYY-MM-DD, defaults to today
	Time        string          `json:"time"`                      // HH:MM:SS, defaults to now
}

// EditExpenseRequest carries the editable fields; absent fields keep their
// stored values, so pointers distinguish "not supplied" from zero values.
type EditExpenseRequest struct {
	Amount   *decimal.Decimal `json:"amount"`
	Category *string          `json:"category"`
	Kind     *string          `json:"type"`
	Status   *string          `json:"status"`
}

// SyncRequest is a batch of externally observed candidate transactions
type SyncRequest struct {
	Expenses []ledger.Item `json:"expenses"`
}

// callerID extracts the authenticated user's ID from the request context.
func callerID(c *gin.Context) (uint, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

// GetBalanceHandler returns the caller's stored balance, cached for a minute.
func GetBalanceHandler(lgr *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		ctx := context.Background()
		cacheKey := utils.BalanceKey(userID)
		var cached decimal.Decimal
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"balance": cached, "cached": true})
			return
		}
		balance, err := lgr.Balance(userID)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": "User not found"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, balance, cacheTTL)
		c.JSON(http.StatusOK, gin.H{"balance": balance, "cached": false})
	}
}

// ListExpensesHandler returns the caller's transactions, optionally filtered
// by status, newest first. Results are cached per status filter.
func ListExpensesHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		status := c.Query("status") // Optional: pending or confirmed
		ctx := context.Background()
		cacheKey := utils.ExpensesKey(userID, status)
		var cached []domain.Transaction
		if found, err := utils.GetCache(ctx, rdb, cacheKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, gin.H{"expenses": cached, "cached": true})
			return
		}
		q := db.Where("user_id = ?", userID)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		var transactions []domain.Transaction
		if err := q.Order("date desc, time desc").Find(&transactions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expenses"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, transactions, cacheTTL)
		c.JSON(http.StatusOK, gin.H{"expenses": transactions, "cached": false})
	}
}

// AddExpenseHandler records a new transaction through the ledger.
func AddExpenseHandler(lgr *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req AddExpenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		t, err := lgr.Add(userID, ledger.Input{
			Amount:      req.Amount,
			Kind:        req.Kind,
			Category:    req.Category,
			Source:      req.Source,
			Date:        req.Date,
			Time:        req.Time,
			Status:      req.Status,
			EntryMethod: req.EntryMethod,
		})
		if err != nil {
			middleware.Logger(c).WithFields(logrus.Fields{
				"user_id": userID,
				"error":   err.Error(),
			}).Warn("Add expense failed")
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		_ = utils.InvalidateUserCaches(context.Background(), rdb, userID)
		c.JSON(http.StatusCreated, gin.H{"expense": t})
	}
}

// EditExpenseHandler updates an owned transaction through the ledger.
func EditExpenseHandler(lgr *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		txID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
			return
		}
		var req EditExpenseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		t, err := lgr.Edit(userID, uint(txID), ledger.Changes{
			Amount:   req.Amount,
			Kind:     req.Kind,
			Category: req.Category,
			Status:   req.Status,
		})
		if err != nil {
			middleware.Logger(c).WithFields(logrus.Fields{
				"user_id":        userID,
				"transaction_id": txID,
				"error":          err.Error(),
			}).Warn("Edit expense failed")
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		_ = utils.InvalidateUserCaches(context.Background(), rdb, userID)
		c.JSON(http.StatusOK, gin.H{"expense": t})
	}
}

// DeleteExpenseHandler removes an owned transaction through the ledger.
func DeleteExpenseHandler(lgr *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		txID, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid expense id"})
			return
		}
		if err := lgr.Delete(userID, uint(txID)); err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		_ = utils.InvalidateUserCaches(context.Background(), rdb, userID)
		c.JSON(http.StatusOK, gin.H{"deleted": txID})
	}
}

// SyncExpensesHandler ingests a batch of pending transactions from an
// external source (e.g. SMS-derived entries awaiting confirmation).
func SyncExpensesHandler(lgr *ledger.Ledger, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := callerID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req SyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if len(req.Expenses) == 0 {
			c.JSON(http.StatusOK, gin.H{"synced_count": 0})
			return
		}
		count, err := lgr.SyncBatch(userID, req.Expenses)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": "Sync failed"})
			return
		}
		_ = utils.InvalidateUserCaches(context.Background(), rdb, userID)
		c.JSON(http.StatusCreated, gin.H{"synced_count": count})
	}
}
