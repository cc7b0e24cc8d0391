package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fintrack/internal/attachments"
	apperrors "fintrack/internal/errors"
	"fintrack/internal/logger"
	"fintrack/internal/models"
	"fintrack/internal/pagination"
)

// transactionService handles ledger writes and keeps budgets in step with them.
type transactionService struct {
	db          *gorm.DB
	maintainer  AggregateMaintainer
	detector    AnomalyDetector
	categorizer CategorySuggester
	receipts    attachments.Store
}

// NewTransactionService creates a new TransactionServicer. categorizer and
// receipts may be nil: uncategorized entries then get the fallback category
// and receipt uploads are refused.
func NewTransactionService(
	db *gorm.DB,
	maintainer AggregateMaintainer,
	detector AnomalyDetector,
	categorizer CategorySuggester,
	receipts attachments.Store,
) TransactionServicer {
	return &transactionService{
		db:          db,
		maintainer:  maintainer,
		detector:    detector,
		categorizer: categorizer,
		receipts:    receipts,
	}
}

// CreateTransaction records a ledger entry and applies it to the matching
// budget in the same store transaction. The threshold check and anomaly
// detection run after commit and cannot fail the call.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, input CreateTransactionInput) (*models.Transaction, error) {
	if !input.Type.IsValid() {
		return nil, apperrors.ErrInvalidTransactionType
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be negative")
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}

	category := input.Category
	if category == "" {
		category = s.suggestCategory(ctx, input)
	} else if !category.AllowsType(input.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidCategory,
			"category "+string(category)+" cannot be used for "+string(input.Type)+" transactions")
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Type:        input.Type,
		Amount:      input.Amount,
		Category:    category,
		Description: input.Description,
		Merchant:    input.Merchant,
		Date:        date.UTC(),
		Recurrence:  input.Recurrence,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return s.maintainer.Apply(tx, transaction)
	})
	if err != nil {
		return nil, err
	}

	if transaction.IsExpense() {
		s.checkThreshold(ctx, transaction)
		runHook(ctx, "anomaly_detection", func(ctx context.Context) error {
			return s.detector.Inspect(ctx, transaction)
		}, "transaction_id", transaction.ID, "user_id", userID)
	}

	return transaction, nil
}

func (s *transactionService) suggestCategory(ctx context.Context, input CreateTransactionInput) models.Category {
	if s.categorizer == nil || strings.TrimSpace(input.Description) == "" {
		return models.FallbackCategory(input.Type)
	}

	category, err := s.categorizer.Categorize(ctx, input.Description, input.Amount, input.Type)
	if err != nil {
		logger.Get().Warnw("auto-categorization failed, using fallback",
			"error", err,
			"fallback", category,
		)
	}
	if !category.AllowsType(input.Type) {
		return models.FallbackCategory(input.Type)
	}
	return category
}

func (s *transactionService) checkThreshold(ctx context.Context, t *models.Transaction) {
	runHook(ctx, "budget_threshold", func(ctx context.Context) error {
		return s.maintainer.CheckThreshold(ctx, t.UserID, t.Category, t.Period())
	}, "transaction_id", t.ID, "user_id", t.UserID)
}

// GetUserTransactions returns a filtered page of the owner's ledger, newest first.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(models.OwnedBy(userID))
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Order("id DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", f.FromDate.UTC())
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", f.ToDate.UTC())
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.Category != nil {
		q = q.Where("category = ?", *f.Category)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		q = q.Where("(LOWER(description) LIKE ? OR LOWER(merchant) LIKE ?)", pattern, pattern)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.WithContext(ctx).Scopes(models.OwnedRecord(transactionID, userID)).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction changes a ledger entry. When the change moves money
// between budgets it runs as two independent store transactions:
//
//  1. lock the row, write it and retract its old effect from the old budget;
//  2. apply the new effect to the new budget.
//
// The old effect is taken from the locked row, so concurrent edits of one
// entry each retract what the previous one applied. A crash or failure
// between 1 and 2 leaves the new budget under-counted by the new amount. The
// call still succeeds; Recalculate restores the budget and the sweep catches
// any threshold crossing missed meanwhile.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, input UpdateTransactionInput) (*models.Transaction, error) {
	var updated models.Transaction
	rebalance := false

	db := s.db.WithContext(ctx)
	err := db.Transaction(func(tx *gorm.DB) error {
		existing, err := lockTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		updated = *existing
		if err := applyTransactionUpdate(&updated, input); err != nil {
			return err
		}
		rebalance = movesBudgetMoney(existing, &updated)

		if err := tx.Save(&updated).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if rebalance {
			return s.maintainer.Retract(tx, existing)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if rebalance {
		if err := db.Transaction(func(tx *gorm.DB) error {
			return s.maintainer.Apply(tx, &updated)
		}); err != nil {
			logger.Get().Errorw("failed to apply updated transaction to budget; budget under-counted until recalculated",
				"error", err,
				"transaction_id", updated.ID,
				"user_id", userID,
				"category", updated.Category,
				"month", updated.Period().Month,
				"year", updated.Period().Year,
			)
		}
		if updated.IsExpense() {
			s.checkThreshold(ctx, &updated)
		}
	}

	return &updated, nil
}

// lockTransaction reads a live ledger row inside tx, holding a row lock where
// the store supports one.
func lockTransaction(tx *gorm.DB, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(models.OwnedRecord(transactionID, userID)).
		First(&transaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

func applyTransactionUpdate(t *models.Transaction, input UpdateTransactionInput) error {
	if input.Type != nil {
		if !input.Type.IsValid() {
			return apperrors.ErrInvalidTransactionType
		}
		t.Type = *input.Type
	}
	if input.Amount != nil {
		if input.Amount.IsNegative() {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be negative")
		}
		t.Amount = *input.Amount
	}
	if input.Category != nil {
		t.Category = *input.Category
	}
	if !t.Category.AllowsType(t.Type) {
		return apperrors.WithMessage(apperrors.ErrInvalidCategory,
			"category "+string(t.Category)+" cannot be used for "+string(t.Type)+" transactions")
	}
	if input.Description != nil {
		t.Description = *input.Description
	}
	if input.Merchant != nil {
		t.Merchant = *input.Merchant
	}
	if input.Date != nil {
		t.Date = input.Date.UTC()
	}
	if input.ClearRecurrence {
		t.Recurrence = nil
	} else if input.Recurrence != nil {
		t.Recurrence = input.Recurrence
	}
	return nil
}

// movesBudgetMoney reports whether the edit changes what any budget counts.
func movesBudgetMoney(before, after *models.Transaction) bool {
	if !before.IsExpense() && !after.IsExpense() {
		return false
	}
	return before.Type != after.Type ||
		!before.Amount.Equal(after.Amount) ||
		before.Category != after.Category ||
		before.Period() != after.Period()
}

// DeleteTransaction removes a ledger entry and retracts it from its budget in
// one store transaction. Only the caller whose delete changed the row
// retracts; a concurrent second delete gets TRANSACTION_NOT_FOUND. Its receipt
// is deleted after commit.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	var deleted *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transaction, err := lockTransaction(tx, userID, transactionID)
		if err != nil {
			return err
		}

		result := tx.Delete(transaction)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrTransactionNotFound
		}
		deleted = transaction
		return s.maintainer.Retract(tx, transaction)
	})
	if err != nil {
		return err
	}

	s.deleteReceipt(ctx, deleted.ReceiptKey, deleted.ID)
	return nil
}

// AttachReceipt uploads a receipt and links it to the transaction, replacing
// and deleting any previous one.
func (s *transactionService) AttachReceipt(ctx context.Context, userID, transactionID, filename, contentType string, data []byte) (*models.Transaction, error) {
	if s.receipts == nil {
		return nil, apperrors.ErrAttachmentsNotConfigured
	}
	if len(data) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "receipt file is empty")
	}

	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	attachment, err := s.receipts.Upload(ctx, userID, transaction.ID, filename, contentType, data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrUpstream, err)
	}

	previous := transaction.ReceiptKey
	if err := s.db.WithContext(ctx).Model(transaction).UpdateColumns(map[string]interface{}{
		"receipt_key": attachment.Key,
		"receipt_url": attachment.URL,
	}).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	transaction.ReceiptKey = attachment.Key
	transaction.ReceiptURL = attachment.URL

	if previous != attachment.Key {
		s.deleteReceipt(ctx, previous, transaction.ID)
	}
	return transaction, nil
}

func (s *transactionService) deleteReceipt(ctx context.Context, key, transactionID string) {
	if key == "" || s.receipts == nil {
		return
	}
	runHook(ctx, "receipt_cleanup", func(ctx context.Context) error {
		return s.receipts.Delete(ctx, key)
	}, "transaction_id", transactionID, "receipt_key", key)
}
