package policy_test

import (
	"testing"

	"github.com/diewo77/solodesk/internal/db/dbtest"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/policy"
)

func TestScopes(t *testing.T) {
	gdb := dbtest.New(t)
	mine := models.Client{UserID: 1, Name: "Mine", Email: "mine@example.com"}
	theirs := models.Client{UserID: 2, Name: "Theirs", Email: "theirs@example.com"}
	if err := gdb.Create(&mine).Error; err != nil {
		t.Fatal(err)
	}
	if err := gdb.Create(&theirs).Error; err != nil {
		t.Fatal(err)
	}

	var count int64
	gdb.Model(&models.Client{}).Scopes(policy.OwnedBy(1)).Count(&count)
	if count != 1 {
		t.Errorf("OwnedBy count = %d, want 1", count)
	}

	var got models.Client
	err := gdb.Scopes(policy.ByIDOwnedBy(theirs.ID, 1)).First(&got).Error
	if err == nil {
		t.Error("Expected another owner's record to be invisible")
	}
	if err := gdb.Scopes(policy.ByIDOwnedBy(mine.ID, 1)).First(&got).Error; err != nil {
		t.Fatalf("own record: %v", err)
	}
}
