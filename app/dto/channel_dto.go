package dto

// ChannelInfoResponse is the channel configuration consumed by the stitching service
type ChannelInfoResponse struct {
	ID                     uint   `json:"id"`
	TenantID               uint   `json:"tenant_id"`
	Name                   string `json:"name"`
	Slug                   string `json:"slug"`
	HLSManifestURL         string `json:"hls_manifest_url"`
	AdBreakStrategy        string `json:"ad_break_strategy"`
	AdBreakIntervalSeconds int    `json:"ad_break_interval_seconds"`
	EnablePreRoll          bool   `json:"enable_pre_roll"`
	Status                 string `json:"status"`
}
