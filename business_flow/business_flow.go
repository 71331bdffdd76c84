// Package businessflow contains the ad decision engine and the tracking, reporting and channel use cases.
package businessflow

import (
	"strings"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/models"
	"github.com/amirphl/fast-ads/utils"
)

// ClientMetadata holds caller information attached to tracking events
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// Viewer identifies whoever is watching, for frequency capping and A/B assignment
type Viewer struct {
	Identifier string
	Type       string
}

// NewViewer returns nil when identifier is empty. identifierType defaults to session.
func NewViewer(identifier, identifierType string) *Viewer {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}
	return &Viewer{
		Identifier: identifier,
		Type:       utils.StringOr(identifierType, utils.DefaultIdentifierType),
	}
}

// LineItem is one slot of a pod: an ad and the variant that replaces its creative, if any.
// It never mutates the ad it points to.
type LineItem struct {
	Ad      *models.Ad
	Variant *models.AdVariant
}

// ID is the id reported to players: the variant id when a variant applies
func (li LineItem) ID() uint {
	if li.Variant != nil {
		return li.Variant.ID
	}
	return li.Ad.ID
}

func (li LineItem) DurationSeconds() int {
	if li.Variant != nil && li.Variant.DurationSeconds != nil {
		return *li.Variant.DurationSeconds
	}
	return li.Ad.DurationSeconds
}

// MediaURL resolves the creative, preferring variant fields over the ad's
func (li LineItem) MediaURL(mediaBaseURL string) string {
	if li.Variant == nil {
		return li.Ad.MediaURL(mediaBaseURL)
	}

	vastURL := li.Ad.VastURL
	if li.Variant.VastURL != nil && *li.Variant.VastURL != "" {
		vastURL = *li.Variant.VastURL
	}
	path := utils.Deref(li.Ad.VideoFilePath)
	if li.Variant.VideoFilePath != nil && *li.Variant.VideoFilePath != "" {
		path = *li.Variant.VideoFilePath
	}

	if li.Ad.AdSource == models.AdSourceUploadedVideo && path != "" {
		return models.JoinMediaURL(mediaBaseURL, path)
	}
	return vastURL
}

// ClickThroughURL is the variant's override or the ad's own
func (li LineItem) ClickThroughURL() *string {
	if li.Variant != nil && li.Variant.ClickThroughURL != nil && *li.Variant.ClickThroughURL != "" {
		return li.Variant.ClickThroughURL
	}
	if li.Ad.ClickThroughURL != nil && *li.Ad.ClickThroughURL == "" {
		return nil
	}
	return li.Ad.ClickThroughURL
}

// ToChannelInfoDTO converts a channel model to the payload read by the stitching service
func ToChannelInfoDTO(channel models.Channel) dto.ChannelInfoResponse {
	return dto.ChannelInfoResponse{
		ID:                     channel.ID,
		TenantID:               channel.TenantID,
		Name:                   channel.Name,
		Slug:                   channel.Slug,
		HLSManifestURL:         channel.HLSManifestURL,
		AdBreakStrategy:        string(channel.AdBreakStrategy),
		AdBreakIntervalSeconds: channel.AdBreakIntervalSeconds,
		EnablePreRoll:          channel.EnablePreRoll,
		Status:                 string(channel.Status),
	}
}
