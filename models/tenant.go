// Package models contains domain entities for the ad decision service
package models

import (
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TenantStatus represents the lifecycle state of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusInactive  TenantStatus = "inactive"
)

// Tenant is the isolation boundary owning channels, campaigns and ads
type Tenant struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Name               string         `gorm:"size:255;not null" json:"name"`
	Slug               string         `gorm:"size:255;not null;uniqueIndex:uk_tenants_slug" json:"slug"`
	APIKey             string         `gorm:"column:api_key;size:64;not null;uniqueIndex:uk_tenants_api_key" json:"-"`
	APISecret          string         `gorm:"column:api_secret;size:128;not null" json:"-"`
	Status             TenantStatus   `gorm:"size:20;not null;index:idx_tenants_status" json:"status"`
	AllowedDomains     datatypes.JSON `gorm:"type:jsonb" json:"allowed_domains,omitempty"`
	RateLimitPerMinute int            `gorm:"not null;default:1000" json:"rate_limit_per_minute"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          *time.Time     `json:"updated_at,omitempty"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate is called before creating a new record
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = TenantStatusActive
	}
	if t.RateLimitPerMinute == 0 {
		t.RateLimitPerMinute = 1000
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// IsActive reports whether the tenant may use the API
func (t *Tenant) IsActive() bool {
	return t != nil && t.Status == TenantStatusActive
}

// TenantFilter represents filter criteria for tenant queries
type TenantFilter struct {
	ID     *uint
	Slug   *string
	APIKey *string
	Status *TenantStatus
}
