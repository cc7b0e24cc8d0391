package services

import (
	"context"
	"encoding/json"
	"testing"

	"fintrack/internal/models"
	"fintrack/internal/testutil"
)

func TestAuditServiceLog(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)
	userID := testutil.NewUserID()
	resourceID := testutil.NewUserID()
	ctx := context.Background()

	svc.Log(ctx, AuditEntry{
		UserID:       userID,
		Action:       "CREATE_BUDGET",
		ResourceType: "budget",
		ResourceID:   resourceID,
		IPAddress:    "127.0.0.1",
		Changes:      map[string]interface{}{"amount": "100.00"},
	})
	svc.Log(ctx, AuditEntry{UserID: userID, Action: "DELETE_BUDGET", ResourceType: "budget", ResourceID: resourceID})

	var entries []models.AuditLog
	testutil.AssertNoError(t, db.Where("user_id = ?", userID).Order("created_at").Order("id").Find(&entries).Error)

	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}

	var changes map[string]interface{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(entries[0].Changes), &changes))
	if changes["amount"] != "100.00" {
		t.Errorf("expected amount change to be recorded, got %v", changes)
	}
	if entries[0].IPAddress != "127.0.0.1" {
		t.Errorf("expected ip address to be recorded, got %q", entries[0].IPAddress)
	}
	if entries[1].Changes != "" {
		t.Errorf("expected no changes for delete, got %q", entries[1].Changes)
	}
}

func TestAuditServiceLog_SurvivesCancelledRequest(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)
	userID := testutil.NewUserID()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc.Log(ctx, AuditEntry{UserID: userID, Action: "DELETE_GOAL", ResourceType: "goal"})

	var count int64
	testutil.AssertNoError(t, db.Model(&models.AuditLog{}).Where("user_id = ?", userID).Count(&count).Error)
	if count != 1 {
		t.Errorf("expected the entry to be written after cancellation, got %d", count)
	}
}

func TestAuditServiceLog_DropsEntryWithoutOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := NewAuditService(db)

	svc.Log(context.Background(), AuditEntry{Action: "CREATE_GOAL", ResourceType: "goal"})

	var count int64
	testutil.AssertNoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	if count != 0 {
		t.Errorf("expected no audit entries, got %d", count)
	}
}
