package models

import "time"

// RuleType selects the request dimension a rule inspects
type RuleType string

const (
	RuleTypeGeo       RuleType = "geo"
	RuleTypeDevice    RuleType = "device"
	RuleTypeChannel   RuleType = "channel"
	RuleTypeTime      RuleType = "time"
	RuleTypeDayOfWeek RuleType = "day_of_week"
)

// RuleOperator selects the comparison applied to the rule value
type RuleOperator string

const (
	RuleOperatorEquals   RuleOperator = "equals"
	RuleOperatorIn       RuleOperator = "in"
	RuleOperatorNotIn    RuleOperator = "not_in"
	RuleOperatorContains RuleOperator = "contains"
	RuleOperatorRange    RuleOperator = "range"
)

// AdRule is one targeting predicate on an ad. Every rule of an ad must match.
// RuleValue holds a scalar or a JSON encoded list/range depending on type and operator.
type AdRule struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	AdID         uint         `gorm:"not null;index:idx_ad_rules_ad_id" json:"ad_id"`
	RuleType     RuleType     `gorm:"size:20;not null;index:idx_ad_rules_rule_type" json:"rule_type"`
	RuleOperator RuleOperator `gorm:"size:20;not null" json:"rule_operator"`
	RuleValue    string       `gorm:"type:text;not null" json:"rule_value"`
	Priority     int          `gorm:"not null;default:0" json:"priority"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

func (AdRule) TableName() string {
	return "ad_rules"
}
