// internal/domain/review/entity.go
package review

import (
	"time"
)

// ReportReason is the fixed set of abuse report reasons
type ReportReason string

const (
	ReasonIrrelevant    ReportReason = "IRRELEVANT"
	ReasonInappropriate ReportReason = "INAPPROPRIATE"
	ReasonFalse         ReportReason = "FALSE"
	ReasonOther         ReportReason = "OTHER"
)

// Valid reports whether r is one of the known reasons
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonIrrelevant, ReasonInappropriate, ReasonFalse, ReasonOther:
		return true
	}
	return false
}

// Review is a customer review of a product
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ProductID  uint      `gorm:"not null;uniqueIndex:idx_reviews_user_product" json:"product_id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reviews_user_product;index" json:"user_id"`
	Rating     int       `gorm:"not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Title      string    `gorm:"size:255" json:"title"`
	Comment    string    `gorm:"type:text" json:"comment"`
	IsVerified bool      `gorm:"default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Reports []Report `gorm:"foreignKey:ReviewID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// Report flags a review for moderation
type Report struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	ReviewID   uint         `gorm:"not null;uniqueIndex:idx_review_reports_reporter" json:"review_id"`
	ReporterID uint         `gorm:"not null;uniqueIndex:idx_review_reports_reporter" json:"reporter_id"`
	Reason     ReportReason `gorm:"size:20;not null" json:"reason"`
	Details    string       `gorm:"type:text" json:"details,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

func (Review) TableName() string { return "reviews" }
func (Report) TableName() string { return "review_reports" }

// ReportedReview is one row of the moderation queue
type ReportedReview struct {
	Review       Review    `json:"review"`
	ReportCount  int64     `json:"report_count"`
	LastReported time.Time `json:"last_reported_at"`
	Reasons      []string  `json:"reasons"`
}
