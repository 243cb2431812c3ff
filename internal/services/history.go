package services

import (
	"time"

	"github.com/diewo77/solodesk/internal/models"
	"gorm.io/gorm"
)

func historyEntry(entityType string, entityID uint, action, description string, actor uint, at time.Time) models.HistoryEntry {
	return models.HistoryEntry{
		EntityType:  entityType,
		EntityID:    entityID,
		Action:      action,
		Description: description,
		PerformedBy: actor,
		PerformedAt: at,
	}
}

// appendHistory writes one audit row inside tx.
func appendHistory(tx *gorm.DB, entityType string, entityID uint, action, description string, actor uint, at time.Time) error {
	h := historyEntry(entityType, entityID, action, description, actor, at)
	return tx.Create(&h).Error
}

// History returns the audit rows of one entity, oldest first.
func History(tx *gorm.DB, entityType string, entityID uint) ([]models.HistoryEntry, error) {
	var rows []models.HistoryEntry
	err := tx.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("performed_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
