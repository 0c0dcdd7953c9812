package model

import (
	"time"
)

// ViewMethod is how a passport was viewed
type ViewMethod string

const (
	ViewMethodHTML ViewMethod = "html"
	ViewMethodPDF  ViewMethod = "pdf"
	ViewMethodJSON ViewMethod = "json"
)

// ViewStatus is the outcome of a passport view
type ViewStatus string

const (
	ViewStatusOK      ViewStatus = "ok"
	ViewStatusPartial ViewStatus = "partial"
	ViewStatusFailed  ViewStatus = "failed"
)

// ViewLog records one access to a passport
type ViewLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`

	RenderID       string     `gorm:"size:20;uniqueIndex" json:"render_id"`
	PassportNumber string     `gorm:"size:12;not null;index" json:"passport_number"`
	Language       string     `gorm:"size:8" json:"language"`
	Method         ViewMethod `gorm:"size:10;not null" json:"method"`
	Section        string     `gorm:"size:40" json:"section,omitempty"`

	Status         ViewStatus  `gorm:"size:10;not null;index" json:"status"`
	FailedSections SectionList `gorm:"type:text" json:"failed_sections"`
	DurationMs     int64       `json:"duration_ms"`
	Error          string      `gorm:"type:text" json:"error,omitempty"`

	// Who viewed it
	ClientIP string `gorm:"size:64" json:"client_ip,omitempty"`
	AccessPK string `gorm:"size:64" json:"access_pk,omitempty"` // pk granted by the view token
}

// TableName specifies the table name for ViewLog
func (ViewLog) TableName() string {
	return "view_logs"
}

// ViewLogQuery represents query parameters for listing view logs
type ViewLogQuery struct {
	PassportNumber string     `json:"passport_number"`
	Status         ViewStatus `json:"status,omitempty"`
	Limit          int        `json:"limit,omitempty"`
	Offset         int        `json:"offset,omitempty"`
}
