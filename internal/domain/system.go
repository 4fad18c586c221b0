package domain

import "time"

// AuditLog records every successful catalog mutation. Rows are written
// by the event-bus subscriber and pruned by a daily job.
type AuditLog struct {
	ID       int64     `json:"id,string"`
	UserID   string    `gorm:"index;size:128" json:"user_id"`
	StoreID  string    `gorm:"index;size:36" json:"store_id"`
	Entity   string    `gorm:"size:32" json:"entity"`
	EntityID string    `gorm:"size:36" json:"entity_id"`
	Action   string    `gorm:"size:32" json:"action"`
	OptTime  time.Time `json:"opt_time"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// StorageOrphan tracks an object key that is not (yet) referenced by
// any image record. Upload slots create one; a create/update that
// references the key clears it; an update that drops an image re-adds
// it. The sweep job reclaims rows older than the grace period.
type StorageOrphan struct {
	Key        string    `gorm:"primaryKey;size:512" json:"key"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`
}

func (StorageOrphan) TableName() string {
	return "storage_orphans"
}
