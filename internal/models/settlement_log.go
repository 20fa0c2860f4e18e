package models

import "time"

// Flow identifies which settlement flow produced a log entry.
type Flow string

const (
	FlowSelection    Flow = "reward_selection"
	FlowItemTransfer Flow = "item_transfer"
	FlowPointSweep   Flow = "point_sweep"
	FlowConversion   Flow = "batch_conversion"
)

// SettlementLog is an append-only audit record of one settlement flow
// invocation. Entries are never updated or deleted (no UpdatedAt).
type SettlementLog struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID int64  `gorm:"index;not null"              json:"user_id"`
	Flow   Flow   `gorm:"type:varchar(30);index;not null" json:"flow"`
	Status string `gorm:"type:varchar(20);index;not null" json:"status"`
	Reason string `gorm:"type:varchar(40)"            json:"reason,omitempty"`
	Detail string `gorm:"type:text"                   json:"detail,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (SettlementLog) TableName() string {
	return "settlement_logs"
}
