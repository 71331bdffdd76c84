package models

import (
	"time"

	"github.com/amirphl/fast-ads/utils"
	"gorm.io/gorm"
)

// TimeWindow is the calendar period a frequency cap counts over
type TimeWindow string

const (
	TimeWindowHour  TimeWindow = "hour"
	TimeWindowDay   TimeWindow = "day"
	TimeWindowWeek  TimeWindow = "week"
	TimeWindowMonth TimeWindow = "month"
)

// ParseTimeWindow maps a stored window name to a TimeWindow; unknown names fall back to day
func ParseTimeWindow(s string) TimeWindow {
	switch w := TimeWindow(s); w {
	case TimeWindowHour, TimeWindowDay, TimeWindowWeek, TimeWindowMonth:
		return w
	default:
		return TimeWindowDay
	}
}

// TTL is the nominal length of the window, used for cache entries
func (w TimeWindow) TTL() time.Duration {
	switch w {
	case TimeWindowHour:
		return time.Hour
	case TimeWindowWeek:
		return 7 * 24 * time.Hour
	case TimeWindowMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Bounds returns the calendar window [start, end) containing now in loc. Weeks start on Monday.
// Both bounds are returned in UTC.
func (w TimeWindow) Bounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	y, m, d := local.Date()

	var start, end time.Time
	switch w {
	case TimeWindowHour:
		start = time.Date(y, m, d, local.Hour(), 0, 0, 0, loc)
		end = start.Add(time.Hour)
	case TimeWindowWeek:
		offset := (int(local.Weekday()) + 6) % 7
		start = time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d-offset+7, 0, 0, 0, 0, loc)
	case TimeWindowMonth:
		start = time.Date(y, m, 1, 0, 0, 0, 0, loc)
		end = time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
	default:
		start = time.Date(y, m, d, 0, 0, 0, 0, loc)
		end = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return start.UTC(), end.UTC()
}

// CapSubject is the kind of inventory a frequency cap counts
type CapSubject string

const (
	CapSubjectAd       CapSubject = "ad"
	CapSubjectCampaign CapSubject = "campaign"
)

// FrequencyCap is an impression counter for one viewer and one ad or campaign.
// The counter is valid for [WindowStart, WindowEnd); outside it the count restarts at 1.
type FrequencyCap struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	TenantID         uint       `gorm:"not null;index:idx_frequency_caps_tenant_id" json:"tenant_id"`
	SubjectType      CapSubject `gorm:"size:20;not null;uniqueIndex:uk_frequency_caps_subject_viewer,priority:1" json:"subject_type"`
	SubjectID        uint       `gorm:"not null;uniqueIndex:uk_frequency_caps_subject_viewer,priority:2" json:"subject_id"`
	ViewerIdentifier string     `gorm:"size:255;not null;uniqueIndex:uk_frequency_caps_subject_viewer,priority:3" json:"viewer_identifier"`
	IdentifierType   string     `gorm:"size:50;not null;uniqueIndex:uk_frequency_caps_subject_viewer,priority:4" json:"identifier_type"`
	TimeWindow       TimeWindow `gorm:"size:20;not null;uniqueIndex:uk_frequency_caps_subject_viewer,priority:5" json:"time_window"`
	ImpressionCount  int        `gorm:"not null;default:0" json:"impression_count"`
	MaxImpressions   int        `gorm:"not null;default:0" json:"max_impressions"`
	WindowStart      time.Time  `gorm:"not null;index:idx_frequency_caps_window,priority:1" json:"window_start"`
	WindowEnd        time.Time  `gorm:"not null;index:idx_frequency_caps_window,priority:2" json:"window_end"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
}

func (FrequencyCap) TableName() string {
	return "frequency_caps"
}

// BeforeCreate is called before creating a new record
func (f *FrequencyCap) BeforeCreate(tx *gorm.DB) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// Covers reports whether t falls inside the stored window
func (f *FrequencyCap) Covers(t time.Time) bool {
	return !t.Before(f.WindowStart) && t.Before(f.WindowEnd)
}

// FrequencyCapKey identifies one counter row
type FrequencyCapKey struct {
	SubjectType      CapSubject
	SubjectID        uint
	ViewerIdentifier string
	IdentifierType   string
	TimeWindow       TimeWindow
}
