package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/gorm"
)

// CampaignStatus represents the status of an ad campaign
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "draft"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
)

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignStatusDraft, CampaignStatusActive,
		CampaignStatusPaused, CampaignStatusCompleted:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// FrequencyCapSettings overrides the default impression cap of an ad or campaign
type FrequencyCapSettings struct {
	MaxImpressions *int    `json:"max_impressions,omitempty"`
	TimeWindow     *string `json:"time_window,omitempty"`
}

// InventoryMetadata is the free-form JSON attached to ads and campaigns
type InventoryMetadata struct {
	FrequencyCap *FrequencyCapSettings `json:"frequency_cap,omitempty"`
	Labels       map[string]string     `json:"labels,omitempty"`
}

// Value implements the driver.Valuer interface for InventoryMetadata
func (m InventoryMetadata) Value() (driver.Value, error) {
	bs, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(bs), nil
}

// Scan implements the sql.Scanner interface for InventoryMetadata
func (m *InventoryMetadata) Scan(value any) error {
	if value == nil {
		*m = InventoryMetadata{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into InventoryMetadata", value)
	}
	if len(bytes) == 0 {
		*m = InventoryMetadata{}
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// CapLimits returns the configured max impressions and window, falling back to the given defaults
func (m InventoryMetadata) CapLimits(defaultMax int, defaultWindow TimeWindow) (int, TimeWindow) {
	maxImpressions, window := defaultMax, defaultWindow
	if m.FrequencyCap == nil {
		return maxImpressions, window
	}
	if m.FrequencyCap.MaxImpressions != nil && *m.FrequencyCap.MaxImpressions > 0 {
		maxImpressions = *m.FrequencyCap.MaxImpressions
	}
	if m.FrequencyCap.TimeWindow != nil {
		window = ParseTimeWindow(*m.FrequencyCap.TimeWindow)
	}
	return maxImpressions, window
}

// Campaign represents an ad campaign in the database
type Campaign struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	TenantID    uint              `gorm:"not null;index:idx_ad_campaigns_tenant_id" json:"tenant_id"`
	Name        string            `gorm:"size:255;not null" json:"name"`
	Description *string           `gorm:"type:text" json:"description,omitempty"`
	StartDate   time.Time         `gorm:"not null;index:idx_ad_campaigns_status_dates,priority:2" json:"start_date"`
	EndDate     time.Time         `gorm:"not null;index:idx_ad_campaigns_status_dates,priority:3" json:"end_date"`
	Budget      *float64          `gorm:"type:numeric(15,2)" json:"budget,omitempty"`
	Status      CampaignStatus    `gorm:"size:20;not null;index:idx_ad_campaigns_status_dates,priority:1" json:"status"`
	Priority    int               `gorm:"not null;default:0;index:idx_ad_campaigns_priority" json:"priority"`
	Metadata    InventoryMetadata `gorm:"type:jsonb" json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID;references:ID" json:"tenant,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "ad_campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// IsServing reports whether ads of this campaign may be selected.
// Only the status gates selection; the start/end dates are informational.
func (c *Campaign) IsServing() bool {
	return c != nil && c.Status == CampaignStatusActive
}
