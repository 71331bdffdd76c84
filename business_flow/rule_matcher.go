package businessflow

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/fast-ads/models"
	"github.com/goccy/go-json"
)

// RuleContext is the request signal rules are evaluated against.
// An empty Geo or Device means the caller did not send it. Geo is compared exactly,
// so callers pass it through NormalizeGeo first.
type RuleContext struct {
	Geo         string
	Device      string
	ChannelSlug string
	// Now is the evaluation instant in the service time zone
	Now time.Time
}

// MatchesRules reports whether every rule matches. An ad without rules matches everything.
func MatchesRules(rules []models.AdRule, rc RuleContext) bool {
	for _, rule := range rules {
		if !MatchRule(rule, rc) {
			return false
		}
	}
	return true
}

// MatchRule evaluates a single rule. Unknown rule types and operators match.
// Malformed rule values never match.
func MatchRule(rule models.AdRule, rc RuleContext) bool {
	switch rule.RuleType {
	case models.RuleTypeGeo:
		return matchGeoRule(rule, rc.Geo)
	case models.RuleTypeDevice:
		return matchDeviceRule(rule, rc.Device)
	case models.RuleTypeChannel:
		return matchChannelRule(rule, rc.ChannelSlug)
	case models.RuleTypeTime:
		return matchTimeRule(rule, rc.Now)
	case models.RuleTypeDayOfWeek:
		return matchDayOfWeekRule(rule, rc.Now)
	default:
		return true
	}
}

func matchGeoRule(rule models.AdRule, geo string) bool {
	if geo == "" {
		return true
	}

	switch rule.RuleOperator {
	case models.RuleOperatorIn, models.RuleOperatorNotIn:
		values, ok := decodeStringList(rule.RuleValue)
		if !ok {
			return false
		}
		found := slices.Contains(values, geo)
		if rule.RuleOperator == models.RuleOperatorNotIn {
			return !found
		}
		return found
	case models.RuleOperatorEquals:
		return geo == scalarValue(rule.RuleValue)
	default:
		return true
	}
}

func matchDeviceRule(rule models.AdRule, device string) bool {
	if device == "" {
		return true
	}

	switch rule.RuleOperator {
	case models.RuleOperatorIn:
		values, ok := decodeStringList(rule.RuleValue)
		if !ok {
			return false
		}
		return slices.Contains(values, device)
	case models.RuleOperatorContains:
		return strings.Contains(strings.ToLower(device), strings.ToLower(scalarValue(rule.RuleValue)))
	default:
		return true
	}
}

// matchChannelRule is evaluated on every request; the channel is always known
func matchChannelRule(rule models.AdRule, slug string) bool {
	switch rule.RuleOperator {
	case models.RuleOperatorIn:
		values, ok := decodeStringList(rule.RuleValue)
		if !ok {
			return false
		}
		return slices.Contains(values, slug)
	case models.RuleOperatorEquals:
		return slug == scalarValue(rule.RuleValue)
	default:
		return true
	}
}

type hourRange struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// matchTimeRule matches when the hour of now is within [min, max]; missing bounds default to 0 and 23
func matchTimeRule(rule models.AdRule, now time.Time) bool {
	var r hourRange
	if err := json.Unmarshal([]byte(rule.RuleValue), &r); err != nil {
		return false
	}
	minHour, maxHour := 0, 23
	if r.Min != nil {
		minHour = *r.Min
	}
	if r.Max != nil {
		maxHour = *r.Max
	}
	hour := now.Hour()
	return hour >= minHour && hour <= maxHour
}

// matchDayOfWeekRule matches when today's index (0 = Sunday) is listed
func matchDayOfWeekRule(rule models.AdRule, now time.Time) bool {
	var days []any
	if err := json.Unmarshal([]byte(rule.RuleValue), &days); err != nil {
		return false
	}
	today := int(now.Weekday())
	for _, d := range days {
		switch v := d.(type) {
		case float64:
			if int(v) == today {
				return true
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n == today {
				return true
			}
		}
	}
	return false
}

// decodeStringList reads a JSON list of strings; a JSON scalar becomes a one-element list
func decodeStringList(raw string) ([]string, bool) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, false
	}

	switch v := decoded.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := stringify(item); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		s, ok := stringify(v)
		if !ok {
			return nil, false
		}
		return []string{s}, true
	}
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// scalarValue unquotes a JSON string value and returns anything else verbatim
func scalarValue(raw string) string {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return s
	}
	return raw
}

// NormalizeGeo upper-cases a country code; rule values hold ISO codes in upper case
func NormalizeGeo(geo string) string {
	return strings.ToUpper(strings.TrimSpace(geo))
}
