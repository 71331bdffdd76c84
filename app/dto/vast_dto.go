package dto

import "encoding/xml"

// CDATA wraps URLs so query strings survive without entity escaping
type CDATA struct {
	Value string `xml:",cdata"`
}

// VAST is an IAB VAST 3.0 document
type VAST struct {
	XMLName xml.Name `xml:"VAST"`
	Version string   `xml:"version,attr"`
	Ads     []VASTAd `xml:"Ad"`
}

type VASTAd struct {
	ID       string      `xml:"id,attr"`
	Sequence int         `xml:"sequence,attr,omitempty"`
	InLine   *VASTInLine `xml:"InLine"`
}

type VASTInLine struct {
	AdSystem   string        `xml:"AdSystem"`
	AdTitle    string        `xml:"AdTitle"`
	Impression []CDATA       `xml:"Impression"`
	Creatives  VASTCreatives `xml:"Creatives"`
}

type VASTCreatives struct {
	Creative []VASTCreative `xml:"Creative"`
}

type VASTCreative struct {
	ID       string      `xml:"id,attr"`
	Sequence int         `xml:"sequence,attr,omitempty"`
	Linear   *VASTLinear `xml:"Linear"`
}

type VASTLinear struct {
	Duration       string              `xml:"Duration"`
	TrackingEvents *VASTTrackingEvents `xml:"TrackingEvents,omitempty"`
	VideoClicks    *VASTVideoClicks    `xml:"VideoClicks,omitempty"`
	MediaFiles     VASTMediaFiles      `xml:"MediaFiles"`
}

type VASTTrackingEvents struct {
	Tracking []VASTTracking `xml:"Tracking"`
}

type VASTTracking struct {
	Event string `xml:"event,attr"`
	URL   string `xml:",cdata"`
}

type VASTVideoClicks struct {
	ClickThrough  *CDATA  `xml:"ClickThrough,omitempty"`
	ClickTracking []CDATA `xml:"ClickTracking,omitempty"`
}

type VASTMediaFiles struct {
	MediaFile []VASTMediaFile `xml:"MediaFile"`
}

type VASTMediaFile struct {
	ID       string `xml:"id,attr,omitempty"`
	Delivery string `xml:"delivery,attr"`
	Type     string `xml:"type,attr"`
	Bitrate  int    `xml:"bitrate,attr,omitempty"`
	Width    int    `xml:"width,attr"`
	Height   int    `xml:"height,attr"`
	URL      string `xml:",cdata"`
}

// VMAP is an IAB VMAP 1.0 document. Element names carry the vmap prefix literally.
type VMAP struct {
	XMLName  xml.Name      `xml:"vmap:VMAP"`
	XMLNS    string        `xml:"xmlns:vmap,attr"`
	Version  string        `xml:"version,attr"`
	AdBreaks []VMAPAdBreak `xml:"vmap:AdBreak"`
}

type VMAPAdBreak struct {
	TimeOffset string       `xml:"timeOffset,attr"`
	BreakType  string       `xml:"breakType,attr"`
	BreakID    string       `xml:"breakId,attr"`
	AdSource   VMAPAdSource `xml:"vmap:AdSource"`
}

type VMAPAdSource struct {
	ID               string       `xml:"id,attr"`
	AllowMultipleAds bool         `xml:"allowMultipleAds,attr"`
	FollowRedirects  bool         `xml:"followRedirects,attr"`
	AdTagURI         VMAPAdTagURI `xml:"vmap:AdTagURI"`
}

type VMAPAdTagURI struct {
	TemplateType string `xml:"templateType,attr"`
	URI          string `xml:",cdata"`
}
