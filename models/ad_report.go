package models

import "time"

// ReportGranularity is the bucket size of a report row
type ReportGranularity string

const (
	ReportGranularityDaily ReportGranularity = "daily"
)

// AdReport is a rollup of tracking events for one day and one
// (tenant, ad, campaign, channel, variant) combination
type AdReport struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	TenantID             uint              `gorm:"not null;index:idx_ad_reports_tenant_date,priority:1" json:"tenant_id"`
	AdID                 uint              `gorm:"not null;index:idx_ad_reports_ad_id" json:"ad_id"`
	CampaignID           *uint             `gorm:"index:idx_ad_reports_campaign_id" json:"campaign_id,omitempty"`
	ChannelID            *uint             `json:"channel_id,omitempty"`
	VariantID            *uint             `json:"variant_id,omitempty"`
	ReportDate           time.Time         `gorm:"type:date;not null;index:idx_ad_reports_tenant_date,priority:2" json:"report_date"`
	Granularity          ReportGranularity `gorm:"size:20;not null;default:'daily'" json:"granularity"`
	Impressions          int64             `gorm:"not null;default:0" json:"impressions"`
	Starts               int64             `gorm:"not null;default:0" json:"starts"`
	Completions          int64             `gorm:"not null;default:0" json:"completions"`
	Clicks               int64             `gorm:"not null;default:0" json:"clicks"`
	UniqueViewers        int64             `gorm:"not null;default:0" json:"unique_viewers"`
	CompletionRate       float64           `gorm:"type:numeric(5,2);not null;default:0" json:"completion_rate"`
	ClickThroughRate     float64           `gorm:"type:numeric(5,2);not null;default:0" json:"click_through_rate"`
	TotalDurationWatched int64             `gorm:"not null;default:0" json:"total_duration_watched"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            *time.Time        `json:"updated_at,omitempty"`
}

func (AdReport) TableName() string {
	return "ad_reports"
}

// AdReportFilter represents filter criteria for report queries
type AdReportFilter struct {
	TenantID   *uint
	AdID       *uint
	CampaignID *uint
	From       *time.Time
	To         *time.Time
}
