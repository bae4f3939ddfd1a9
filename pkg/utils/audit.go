package utils

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jelanihq/insurance-backend/pkg/models"
)

// LogAudit inserts an audit record for an administrative action.
// Errors are ignored on purpose (best-effort logging).
func LogAudit(
	ctx context.Context,
	db *gorm.DB,
	actorID uuid.UUID,
	entity string,
	entityID uuid.UUID,
	action, oldStatus, newStatus string,
) {
	_ = db.WithContext(ctx).Create(&models.AuditLog{
		ActorID:   actorID,
		Entity:    entity,
		EntityID:  entityID,
		Action:    action,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}).Error
}
