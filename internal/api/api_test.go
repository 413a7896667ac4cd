package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Abiya4/expense-tracker/internal/db"
	"github.com/Abiya4/expense-tracker/internal/domain"
	"github.com/Abiya4/expense-tracker/internal/ledger"
	"github.com/Abiya4/expense-tracker/internal/middleware"
	"github.com/Abiya4/expense-tracker/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret"

// newTestServer wires the routes the same way cmd/server does, against an
// in-memory database and without Redis (the cache helpers treat a nil client
// as a miss).
func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	lgr := ledger.New(gdb)
	hasher := utils.BcryptHasher{}

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.POST("/signup", SignupHandler(gdb, hasher))
	r.POST("/login", LoginHandler(gdb, hasher, testSecret))

	userGroup := r.Group("/")
	userGroup.Use(middleware.JWTAuthMiddleware(testSecret), middleware.UserOnlyMiddleware())
	userGroup.GET("/balance", GetBalanceHandler(lgr, nil))
	userGroup.GET("/expenses", ListExpensesHandler(gdb, nil))
	userGroup.POST("/expenses", AddExpenseHandler(lgr, nil))
	userGroup.PUT("/expenses/:id", EditExpenseHandler(lgr, nil))
	userGroup.DELETE("/expenses/:id", DeleteExpenseHandler(lgr, nil))
	userGroup.POST("/expenses/sync", SyncExpensesHandler(lgr, nil))

	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(testSecret), middleware.AdminOnlyMiddleware(gdb))
	adminGroup.GET("/users", ListUsersHandler(gdb))
	adminGroup.PATCH("/users/:id/active", SetUserActiveHandler(gdb))
	adminGroup.DELETE("/users/:id", DeleteUserHandler(gdb))
	adminGroup.GET("/expenses", ListAllExpensesHandler(gdb))
	adminGroup.GET("/analytics", AnalyticsHandler(gdb))

	return r, gdb
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// signupAndLogin registers a user and returns their token and id.
func signupAndLogin(t *testing.T, r *gin.Engine, username string, balance string) (string, uint) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/signup", "", gin.H{
		"username": username,
		"password": "password123",
		"phone":    "5550001111",
		"balance":  balance,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/login", "", gin.H{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		ID    uint   `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token, resp.ID
}

func TestSignupDuplicateUsername(t *testing.T) {
	r, _ := newTestServer(t)

	body := gin.H{"username": "Alice", "password": "password123", "phone": "5550001111", "balance": "100"}
	w := doJSON(t, r, http.MethodPost, "/signup", "", body)
	assert.Equal(t, http.StatusCreated, w.Code)

	// Same name in a different case still collides
	body["username"] = "ALICE"
	w = doJSON(t, r, http.MethodPost, "/signup", "", body)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSignupRejectsNegativeBalance(t *testing.T) {
	r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/signup", "", gin.H{
		"username": "alice", "password": "password123", "phone": "5550001111", "balance": "-10",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejectsBadPasswordAndDeactivated(t *testing.T) {
	r, gdb := newTestServer(t)
	_, id := signupAndLogin(t, r, "alice", "100")

	w := doJSON(t, r, http.MethodPost, "/login", "", gin.H{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Deactivated accounts are refused even with correct credentials
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", id).Update("is_active", false).Error)
	w = doJSON(t, r, http.MethodPost, "/login", "", gin.H{"username": "alice", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestExpenseFlowOverHTTP(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := signupAndLogin(t, r, "alice", "200")

	// Unauthenticated requests are rejected
	w := doJSON(t, r, http.MethodGet, "/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Record a confirmed expense
	w = doJSON(t, r, http.MethodPost, "/expenses", token, gin.H{"amount": "50", "category": "Food"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		Expense domain.Transaction `json:"expense"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, domain.StatusConfirmed, created.Expense.Status)

	// Balance reflects it
	w = doJSON(t, r, http.MethodGet, "/balance", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var bal struct {
		Balance decimal.Decimal `json:"balance"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bal))
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("150")))

	// Edit it down, then delete it; balance returns to the initial value
	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/expenses/%d", created.Expense.ID), token, gin.H{"amount": "25"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/expenses/%d", created.Expense.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/balance", token, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bal))
	assert.True(t, bal.Balance.Equal(decimal.RequireFromString("200")))

	// Bad amount surfaces as 400
	w = doJSON(t, r, http.MethodPost, "/expenses", token, gin.H{"amount": "-5"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditOtherUsersExpenseIs404(t *testing.T) {
	r, _ := newTestServer(t)
	aliceToken, _ := signupAndLogin(t, r, "alice", "200")
	bobToken, _ := signupAndLogin(t, r, "bob", "200")

	w := doJSON(t, r, http.MethodPost, "/expenses", aliceToken, gin.H{"amount": "50"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Expense domain.Transaction `json:"expense"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, http.MethodPut, fmt.Sprintf("/expenses/%d", created.Expense.ID), bobToken, gin.H{"amount": "1"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSyncEndpointReportsInsertedCount(t *testing.T) {
	r, _ := newTestServer(t)
	token, _ := signupAndLogin(t, r, "alice", "200")

	body := gin.H{"expenses": []gin.H{{"amount": "50", "date": "2024-01-01", "type": "expense"}}}
	w := doJSON(t, r, http.MethodPost, "/expenses/sync", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		SyncedCount int `json:"synced_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.SyncedCount)

	// Repeating the sync skips the duplicate
	w = doJSON(t, r, http.MethodPost, "/expenses/sync", token, body)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.SyncedCount)

	// The synced entry shows up in the pending listing
	w = doJSON(t, r, http.MethodGet, "/expenses?status=pending", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Expenses []domain.Transaction `json:"expenses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listing))
	assert.Len(t, listing.Expenses, 1)
}

func TestAdminGating(t *testing.T) {
	r, gdb := newTestServer(t)
	userToken, _ := signupAndLogin(t, r, "alice", "200")

	// A plain user is refused
	w := doJSON(t, r, http.MethodGet, "/admin/users", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Promote a second account to admin and try again
	_, adminID := signupAndLogin(t, r, "root", "0")
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)
	adminToken, err := utils.GenerateJWT(adminID, domain.RoleAdmin, testSecret)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Users []AdminUserResponse `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// Admin accounts are not listed
	assert.Len(t, resp.Users, 1)
	assert.Equal(t, "alice", resp.Users[0].Username)

	// Admins cannot hit user-only routes
	w = doJSON(t, r, http.MethodGet, "/balance", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminDeleteUserCascades(t *testing.T) {
	r, gdb := newTestServer(t)
	userToken, userID := signupAndLogin(t, r, "alice", "200")

	w := doJSON(t, r, http.MethodPost, "/expenses", userToken, gin.H{"amount": "50"})
	require.Equal(t, http.StatusCreated, w.Code)

	_, adminID := signupAndLogin(t, r, "root", "0")
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)
	adminToken, err := utils.GenerateJWT(adminID, domain.RoleAdmin, testSecret)
	require.NoError(t, err)

	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/admin/users/%d", userID), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var users, txs int64
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", userID).Count(&users).Error)
	require.NoError(t, gdb.Model(&domain.Transaction{}).Where("user_id = ?", userID).Count(&txs).Error)
	assert.Zero(t, users)
	assert.Zero(t, txs)

	// Admins cannot delete admins
	w = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/admin/users/%d", adminID), adminToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminAnalytics(t *testing.T) {
	r, gdb := newTestServer(t)
	userToken, _ := signupAndLogin(t, r, "alice", "200")

	// One confirmed expense, one income, one pending expense: only the
	// confirmed expense counts toward the total
	for _, body := range []gin.H{
		{"amount": "50", "type": "expense"},
		{"amount": "70", "type": "income"},
		{"amount": "30", "type": "expense", "status": "pending"},
	} {
		w := doJSON(t, r, http.MethodPost, "/expenses", userToken, body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	_, adminID := signupAndLogin(t, r, "root", "0")
	require.NoError(t, gdb.Model(&domain.User{}).Where("id = ?", adminID).Update("role", domain.RoleAdmin).Error)
	adminToken, err := utils.GenerateJWT(adminID, domain.RoleAdmin, testSecret)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/admin/analytics", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		TotalUsers    int64           `json:"total_users"`
		TotalExpenses decimal.Decimal `json:"total_expenses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// root was promoted to admin, so only alice remains a counted user
	assert.EqualValues(t, 1, resp.TotalUsers)
	assert.True(t, resp.TotalExpenses.Equal(decimal.RequireFromString("50")))
}
