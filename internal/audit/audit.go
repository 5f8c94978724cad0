package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/judithshaven/storefront/internal/logging"
	"github.com/judithshaven/storefront/internal/models"
)

// Recorder appends admin mutations to the audit log. Failures are logged, never
// surfaced: audit writes must not fail the request they describe.
type Recorder struct {
	DB *gorm.DB
}

func (r *Recorder) Record(ctx context.Context, actorID uint, action, entity, entityID, detail string) {
	if r == nil || r.DB == nil {
		return
	}
	entry := models.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		logging.FromContext(ctx).Error("audit write failed", "action", action, "entity", entity, "error", err)
	}
}
