package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// actingUserHeader identifies the user performing a request. A real
// deployment would derive this from authentication middleware.
const actingUserHeader = "X-User-ID"

// Handlers contains all HTTP request handlers
type Handlers struct {
	expenseService  service.ExpenseService
	ruleService     service.RuleService
	userService     service.UserService
	reportService   service.ReportService
	settingsService service.SettingsService
	logger          Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	expenseService service.ExpenseService,
	ruleService service.RuleService,
	userService service.UserService,
	reportService service.ReportService,
	settingsService service.SettingsService,
	logger Logger,
) *Handlers {
	return &Handlers{
		expenseService:  expenseService,
		ruleService:     ruleService,
		userService:     userService,
		reportService:   reportService,
		settingsService: settingsService,
		logger:          logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// SubmitExpenseRequest represents the body of an expense submission
type SubmitExpenseRequest struct {
	EmployeeID  string  `json:"employee_id"`
	Amount      float64 `json:"amount" binding:"required"`
	Currency    string  `json:"currency" binding:"required"`
	Category    string  `json:"category" binding:"required"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// DecisionBody represents the body of an approval decision
type DecisionBody struct {
	Decision string `json:"decision" binding:"required"`
	Comment  string `json:"comment"`
}

// ListExpensesRequest represents query parameters for listing expenses
type ListExpensesRequest struct {
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
	EmployeeID string `form:"employee_id"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// SubmitExpense handles POST /api/expenses
func (h *Handlers) SubmitExpense(c *gin.Context) {
	var req SubmitExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid expense submission body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	// The submitting employee defaults to the acting user
	if req.EmployeeID == "" {
		req.EmployeeID = c.GetHeader(actingUserHeader)
	}
	if req.EmployeeID == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "employee_id or " + actingUserHeader + " header is required",
		})
		return
	}

	expense, err := h.expenseService.Submit(c.Request.Context(), service.SubmitRequest{
		EmployeeID:  req.EmployeeID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    entity.Category(req.Category),
		Description: req.Description,
		Date:        req.Date,
	})
	if err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "employee not found",
			})
			return
		}
		h.logger.Error("Failed to submit expense", "employee_id", req.EmployeeID, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    expense,
	})
}

// ListExpenses handles GET /api/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	var req ListExpensesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid query parameters",
		})
		return
	}

	// Set defaults
	if req.Limit <= 0 || req.Limit > 100 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}

	var (
		expenses []*entity.Expense
		err      error
	)
	if req.EmployeeID != "" {
		expenses, err = h.expenseService.ListByEmployee(c.Request.Context(), req.EmployeeID, req.Limit, req.Offset)
	} else {
		expenses, err = h.expenseService.List(c.Request.Context(), req.Limit, req.Offset)
	}
	if err != nil {
		h.logger.Error("Failed to list expenses", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve expenses",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expenses,
	})
}

// ListPendingExpenses handles GET /api/expenses/pending
func (h *Handlers) ListPendingExpenses(c *gin.Context) {
	approverID := c.Query("approver_id")
	if approverID == "" {
		approverID = c.GetHeader(actingUserHeader)
	}
	if approverID == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "approver_id or " + actingUserHeader + " header is required",
		})
		return
	}

	expenses, err := h.expenseService.ListPendingFor(c.Request.Context(), approverID)
	if err != nil {
		h.logger.Error("Failed to list pending expenses", "approver_id", approverID, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve pending expenses",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expenses,
	})
}

// GetExpense handles GET /api/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id := c.Param("id")

	expense, err := h.expenseService.Get(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get expense", "id", id, "error", err)
		c.JSON(http.StatusNotFound, Response{
			Success: false,
			Error:   "expense not found",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expense,
	})
}

// DecideExpense handles POST /api/expenses/:id/decision
func (h *Handlers) DecideExpense(c *gin.Context) {
	id := c.Param("id")

	approverID := c.GetHeader(actingUserHeader)
	if approverID == "" {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   actingUserHeader + " header is required",
		})
		return
	}

	var body DecisionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid decision body", "id", id, "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	expense, err := h.expenseService.Decide(c.Request.Context(), service.DecisionRequest{
		ExpenseID:  id,
		ApproverID: approverID,
		Decision:   entity.Decision(body.Decision),
		Comment:    body.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, port.ErrExpenseNotFound):
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "expense not found",
			})
		case errors.Is(err, service.ErrNotCurrentApprover):
			c.JSON(http.StatusForbidden, Response{
				Success: false,
				Error:   "not the current approver for this expense",
			})
		case errors.Is(err, approval.ErrInvalidTransition):
			c.JSON(http.StatusConflict, Response{
				Success: false,
				Error:   "expense is not pending",
			})
		case errors.Is(err, approval.ErrInvalidDecision):
			c.JSON(http.StatusBadRequest, Response{
				Success: false,
				Error:   "decision must be approved or rejected",
			})
		default:
			h.logger.Error("Failed to apply decision", "id", id, "approver_id", approverID, "error", err)
			c.JSON(http.StatusInternalServerError, Response{
				Success: false,
				Error:   "failed to apply decision",
			})
		}
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    expense,
	})
}

// ListRules handles GET /api/rules
func (h *Handlers) ListRules(c *gin.Context) {
	rules, err := h.ruleService.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list rules", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve rules",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    rules,
	})
}

// CreateRule handles POST /api/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var rule entity.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		h.logger.Error("Invalid rule body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	created, err := h.ruleService.Create(c.Request.Context(), rule)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    created,
	})
}

// UpdateRule handles PUT /api/rules/:id
func (h *Handlers) UpdateRule(c *gin.Context) {
	var rule entity.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		h.logger.Error("Invalid rule body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}
	rule.ID = c.Param("id")

	updated, err := h.ruleService.Update(c.Request.Context(), rule)
	if err != nil {
		if errors.Is(err, port.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "rule not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    updated,
	})
}

// DeactivateRule handles POST /api/rules/:id/deactivate
func (h *Handlers) DeactivateRule(c *gin.Context) {
	h.setRuleActive(c, false)
}

// ActivateRule handles POST /api/rules/:id/activate
func (h *Handlers) ActivateRule(c *gin.Context) {
	h.setRuleActive(c, true)
}

func (h *Handlers) setRuleActive(c *gin.Context, active bool) {
	id := c.Param("id")

	if err := h.ruleService.SetActive(c.Request.Context(), id, active); err != nil {
		if errors.Is(err, port.ErrRuleNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "rule not found",
			})
			return
		}
		h.logger.Error("Failed to change rule state", "id", id, "active", active, "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to change rule state",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
	})
}

// ListUsers handles GET /api/users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list users", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve users",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    users,
	})
}

// CreateUser handles POST /api/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var user entity.User
	if err := c.ShouldBindJSON(&user); err != nil {
		h.logger.Error("Invalid user body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	created, err := h.userService.Create(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    created,
	})
}

// UpdateUser handles PUT /api/users/:id
func (h *Handlers) UpdateUser(c *gin.Context) {
	var user entity.User
	if err := c.ShouldBindJSON(&user); err != nil {
		h.logger.Error("Invalid user body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}
	user.ID = c.Param("id")

	updated, err := h.userService.Update(c.Request.Context(), user)
	if err != nil {
		if errors.Is(err, port.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, Response{
				Success: false,
				Error:   "user not found",
			})
			return
		}
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    updated,
	})
}

// GetSettings handles GET /api/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.Get(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to get settings", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to retrieve settings",
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    settings,
	})
}

// UpdateSettings handles PUT /api/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	var settings entity.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		h.logger.Error("Invalid settings body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body",
		})
		return
	}

	updated, err := h.settingsService.Update(c.Request.Context(), settings)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    updated,
	})
}

// ConvertResponse represents the result of a currency conversion
type ConvertResponse struct {
	Amount    float64 `json:"amount"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Converted float64 `json:"converted"`
}

// ConvertAmount handles GET /api/convert
func (h *Handlers) ConvertAmount(c *gin.Context) {
	amountStr := c.Query("amount")
	from := c.Query("from")
	to := c.Query("to")

	amount, err := strconv.ParseFloat(amountStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid amount",
		})
		return
	}

	converted, err := h.settingsService.Convert(c.Request.Context(), amount, from, to)
	if err != nil {
		if errors.Is(err, approval.ErrConversionUnavailable) {
			c.JSON(http.StatusUnprocessableEntity, Response{
				Success: false,
				Error:   "conversion unavailable for the requested currencies",
			})
			return
		}
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: ConvertResponse{
			Amount:    amount,
			From:      from,
			To:        to,
			Converted: converted,
		},
	})
}

// ExportExpenseReport handles GET /api/reports/expenses.xlsx
func (h *Handlers) ExportExpenseReport(c *gin.Context) {
	filename := fmt.Sprintf("expenses-%s.xlsx", time.Now().UTC().Format("2006-01-02"))

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.reportService.WriteExpenseReport(c.Request.Context(), c.Writer); err != nil {
		h.logger.Error("Failed to export expense report", "error", err)
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "failed to generate report",
		})
		return
	}
}
