package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	Category  *models.Category
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Search    string
}

// CreateTransactionInput carries the fields of a new ledger entry. An empty
// Category is resolved by the categorizer.
type CreateTransactionInput struct {
	Type        models.TransactionType
	Amount      decimal.Decimal
	Category    models.Category
	Description string
	Merchant    string
	Date        time.Time
	Recurrence  *models.Recurrence
}

// UpdateTransactionInput carries the fields to change; nil fields are kept.
type UpdateTransactionInput struct {
	Type        *models.TransactionType
	Amount      *decimal.Decimal
	Category    *models.Category
	Description *string
	Merchant    *string
	Date        *time.Time
	Recurrence  *models.Recurrence
	// ClearRecurrence removes an existing recurrence.
	ClearRecurrence bool
}

// TransactionServicer defines the contract for ledger writes and reads.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
	AttachReceipt(ctx context.Context, userID, transactionID, filename, contentType string, data []byte) (*models.Transaction, error)
}

// CreateBudgetInput carries the fields of a budget upsert.
type CreateBudgetInput struct {
	Category       models.Category
	Amount         decimal.Decimal
	AlertThreshold *int
	Period         models.Period
}

// BudgetProgress compares a budget's cached spent against the ledger.
type BudgetProgress struct {
	BudgetID       string          `json:"budget_id"`
	Category       models.Category `json:"category"`
	Month          int             `json:"month"`
	Year           int             `json:"year"`
	Budgeted       decimal.Decimal `json:"budgeted"`
	Spent          decimal.Decimal `json:"spent"`
	LedgerSpent    decimal.Decimal `json:"ledger_spent"`
	Drift          decimal.Decimal `json:"drift"`
	Remaining      decimal.Decimal `json:"remaining"`
	Percentage     decimal.Decimal `json:"percentage"`
	AlertThreshold int             `json:"alert_threshold"`
	AlertSent      bool            `json:"alert_sent"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(ctx context.Context, userID string, input CreateBudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, period models.Period) ([]models.Budget, error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, amount *decimal.Decimal, alertThreshold *int) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
	GetBudgetProgress(ctx context.Context, userID, budgetID string) (*BudgetProgress, error)
	Recalculate(ctx context.Context, userID string, period models.Period) ([]models.Budget, error)
}

// AggregateMaintainer keeps budgets' cached spent in step with ledger writes.
// Apply and Retract run inside the caller's store transaction.
type AggregateMaintainer interface {
	Apply(tx *gorm.DB, t *models.Transaction) error
	Retract(tx *gorm.DB, t *models.Transaction) error
	CheckThreshold(ctx context.Context, userID string, category models.Category, period models.Period) error
}

// AnomalyDetector inspects a newly recorded expense.
type AnomalyDetector interface {
	Inspect(ctx context.Context, t *models.Transaction) error
}

// SweepResult summarizes one reconciliation pass.
type SweepResult struct {
	Period  models.Period `json:"period"`
	Checked int           `json:"checked"`
	Alerted int           `json:"alerted"`
	Failed  int           `json:"failed"`
}

// Reconciler re-validates and repairs cached aggregates against the ledger.
type Reconciler interface {
	Sweep(ctx context.Context, now time.Time) (*SweepResult, error)
	Recalculate(ctx context.Context, userID string, period models.Period) ([]models.Budget, error)
}

// CreateGoalInput carries the fields of a new savings goal.
type CreateGoalInput struct {
	Name          string
	TargetAmount  decimal.Decimal
	CurrentAmount decimal.Decimal
	Deadline      time.Time
	Category      models.GoalCategory
	Icon          string
}

// UpdateGoalInput carries the fields to change; nil fields are kept.
type UpdateGoalInput struct {
	Name         *string
	TargetAmount *decimal.Decimal
	Deadline     *time.Time
	Category     *models.GoalCategory
	Icon         *string
	Status       *models.GoalStatus
}

// GoalServicer defines the contract for savings goals.
type GoalServicer interface {
	CreateGoal(ctx context.Context, userID string, input CreateGoalInput) (*models.Goal, error)
	GetUserGoals(ctx context.Context, userID string, status *models.GoalStatus) ([]models.Goal, error)
	GetGoalByID(ctx context.Context, userID, goalID string) (*models.Goal, error)
	UpdateGoal(ctx context.Context, userID, goalID string, input UpdateGoalInput) (*models.Goal, error)
	DeleteGoal(ctx context.Context, userID, goalID string) error
	AddAmount(ctx context.Context, userID, goalID string, amount decimal.Decimal) (*models.Goal, error)
}

// NotificationPage is a page of notifications plus the owner's unread count.
type NotificationPage struct {
	pagination.PageResponse[models.Notification]
	UnreadCount int64 `json:"unread_count"`
}

// NotificationServicer defines the contract for the notification sink.
type NotificationServicer interface {
	// Create stores a notification and fans it out.
	Create(ctx context.Context, n *models.Notification) error
	// Published fans out a notification already stored by the caller's transaction.
	Published(ctx context.Context, n *models.Notification)
	GetUserNotifications(ctx context.Context, userID string, unreadOnly bool, page pagination.PageRequest) (*NotificationPage, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) (*models.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int64, error)
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	ClearAll(ctx context.Context, userID string) (int64, error)
}

// NotificationPublisher delivers stored notifications to an external channel.
type NotificationPublisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

// CategorySuggester resolves a category from a description.
type CategorySuggester interface {
	Categorize(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error)
}

// Insights is a generated narrative about one month of spending.
type Insights struct {
	Period     models.Period                       `json:"period"`
	Income     decimal.Decimal                     `json:"income"`
	Expenses   decimal.Decimal                     `json:"expenses"`
	ByCategory map[models.Category]decimal.Decimal `json:"by_category"`
	Text       string                              `json:"insights"`
}

// AIServicer defines the contract for text-generation features.
type AIServicer interface {
	Categorize(ctx context.Context, description string, amount decimal.Decimal, txType models.TransactionType) (models.Category, error)
	GenerateInsights(ctx context.Context, userID string, period models.Period) (*Insights, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, entry AuditEntry)
}
