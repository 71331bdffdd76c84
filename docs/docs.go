// Package docs registers the OpenAPI description of the HTTP API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/ads/decision": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Select the ads of an ad break for the authenticated tenant. An empty pod is a valid answer.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Ads"],
                "summary": "Ad Decision",
                "parameters": [
                    {
                        "description": "Ad break to fill",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.AdDecisionRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Decision completed",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.APIResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.AdDecisionResponse"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Invalid API key or tenant mismatch", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Channel not found or inactive", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "429": {"description": "Rate limit exceeded", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/ads/vast/{tenant_slug}/{channel_slug}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Decide a pod for the requested position and render it as VAST 3.0. An empty pod renders an empty VAST document.",
                "produces": ["application/xml"],
                "tags": ["Ads"],
                "summary": "VAST Ad Tag",
                "parameters": [
                    {"type": "string", "description": "Tenant slug", "name": "tenant_slug", "in": "path", "required": true},
                    {"type": "string", "description": "Channel slug", "name": "channel_slug", "in": "path", "required": true},
                    {"type": "string", "description": "pre-roll, mid-roll or post-roll (default pre-roll)", "name": "position", "in": "query"},
                    {"type": "string", "description": "ISO 3166-1 alpha-2 country", "name": "geo", "in": "query"},
                    {"type": "string", "description": "Device type", "name": "device", "in": "query"},
                    {"type": "string", "description": "Viewer identifier for frequency caps and A/B tests", "name": "viewer_identifier", "in": "query"},
                    {"type": "string", "description": "session, device or user (default session)", "name": "identifier_type", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "VAST document", "schema": {"type": "string"}},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Tenant or channel not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/ads/vmap/{tenant_slug}/{channel_slug}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Render the channel's scheduled ad breaks as VMAP 1.0, each pointing at the VAST endpoint",
                "produces": ["application/xml"],
                "tags": ["Ads"],
                "summary": "VMAP Playlist",
                "parameters": [
                    {"type": "string", "description": "Tenant slug", "name": "tenant_slug", "in": "path", "required": true},
                    {"type": "string", "description": "Channel slug", "name": "channel_slug", "in": "path", "required": true},
                    {"type": "string", "description": "ISO 3166-1 alpha-2 country", "name": "geo", "in": "query"},
                    {"type": "string", "description": "Device type", "name": "device", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "VMAP document", "schema": {"type": "string"}},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Tenant or channel not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/channels/{tenant_slug}/{channel_slug}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Channel configuration read by the stitching service",
                "produces": ["application/json"],
                "tags": ["Channels"],
                "summary": "Channel Info",
                "parameters": [
                    {"type": "string", "description": "Tenant slug", "name": "tenant_slug", "in": "path", "required": true},
                    {"type": "string", "description": "Channel slug", "name": "channel_slug", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {
                        "description": "Channel found",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.APIResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.ChannelInfoResponse"}}}
                            ]
                        }
                    },
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Tenant or channel not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        },
        "/api/v1/tracking/events": {
            "get": {
                "description": "Record one event from a tracking URL embedded in a decision or a VAST document",
                "tags": ["Tracking"],
                "summary": "Tracking Pixel",
                "parameters": [
                    {"type": "integer", "description": "Ad id", "name": "ad_id", "in": "query", "required": true},
                    {"type": "string", "description": "Event type", "name": "event_type", "in": "query", "required": true},
                    {"type": "string", "description": "Viewer session", "name": "session_id", "in": "query"},
                    {"type": "integer", "description": "Channel id", "name": "channel_id", "in": "query"},
                    {"type": "integer", "description": "Variant id", "name": "variant_id", "in": "query"},
                    {"type": "string", "description": "Signed beacon token", "name": "t", "in": "query"}
                ],
                "responses": {
                    "204": {"description": "Event recorded"},
                    "401": {"description": "Invalid or expired beacon token", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "404": {"description": "Ad not found", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            },
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Record up to 500 playback events. Events are validated and stored independently; the response lists the failed indices.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Tracking"],
                "summary": "Track Events",
                "parameters": [
                    {
                        "description": "Event batch",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/dto.TrackEventsRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Batch processed",
                        "schema": {
                            "allOf": [
                                {"$ref": "#/definitions/dto.APIResponse"},
                                {"type": "object", "properties": {"data": {"$ref": "#/definitions/dto.TrackEventsResponse"}}}
                            ]
                        }
                    },
                    "400": {"description": "Invalid request body", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "401": {"description": "Invalid API key", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "422": {"description": "Validation error", "schema": {"$ref": "#/definitions/dto.APIResponse"}},
                    "500": {"description": "Internal server error", "schema": {"$ref": "#/definitions/dto.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.APIResponse": {
            "type": "object",
            "properties": {
                "data": {},
                "error": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "dto.AdDecisionRequest": {
            "type": "object",
            "required": ["ad_break_id", "channel", "duration_seconds", "position", "tenant_id"],
            "properties": {
                "ad_break_id": {"type": "string", "maxLength": 255},
                "channel": {"type": "string", "maxLength": 255},
                "device": {"type": "string", "maxLength": 100},
                "duration_seconds": {"type": "integer", "maximum": 600, "minimum": 1},
                "geo": {"type": "string"},
                "identifier_type": {"type": "string", "enum": ["session", "device", "user"]},
                "position": {"type": "string", "enum": ["pre-roll", "mid-roll", "post-roll"]},
                "tenant_id": {"type": "integer"},
                "viewer_identifier": {"type": "string", "maxLength": 255}
            }
        },
        "dto.AdDecisionResponse": {
            "type": "object",
            "properties": {
                "ads": {"type": "array", "items": {"$ref": "#/definitions/dto.DecisionAdItem"}},
                "pod_id": {"type": "string"},
                "total_duration_seconds": {"type": "integer"}
            }
        },
        "dto.ChannelInfoResponse": {
            "type": "object",
            "properties": {
                "ad_break_interval_seconds": {"type": "integer"},
                "ad_break_strategy": {"type": "string"},
                "enable_pre_roll": {"type": "boolean"},
                "hls_manifest_url": {"type": "string"},
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "slug": {"type": "string"},
                "status": {"type": "string"},
                "tenant_id": {"type": "integer"}
            }
        },
        "dto.DecisionAdItem": {
            "type": "object",
            "properties": {
                "ad_id": {"type": "integer"},
                "ad_type": {"type": "string"},
                "campaign_id": {"type": "integer"},
                "click_through_url": {"type": "string"},
                "duration_seconds": {"type": "integer"},
                "parent_ad_id": {"type": "integer"},
                "title": {"type": "string"},
                "tracking_urls": {"$ref": "#/definitions/dto.TrackingURLs"},
                "variant_id": {"type": "integer"},
                "vast_url": {"type": "string"}
            }
        },
        "dto.TrackEventsRequest": {
            "type": "object",
            "required": ["events"],
            "properties": {
                "events": {"type": "array", "maxItems": 500, "minItems": 1, "items": {"$ref": "#/definitions/dto.TrackingEventRequest"}}
            }
        },
        "dto.TrackEventsResponse": {
            "type": "object",
            "properties": {
                "errors": {"type": "array", "items": {"$ref": "#/definitions/dto.TrackingEventError"}},
                "failed": {"type": "integer"},
                "processed": {"type": "integer"}
            }
        },
        "dto.TrackingEventError": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "dto.TrackingEventRequest": {
            "type": "object",
            "required": ["ad_id", "event_type", "tenant_id"],
            "properties": {
                "ad_id": {"type": "integer"},
                "campaign_id": {"type": "integer"},
                "channel_id": {"type": "integer"},
                "device_type": {"type": "string", "maxLength": 50},
                "event_type": {"type": "string", "enum": ["impression", "start", "first_quartile", "midpoint", "third_quartile", "complete", "click", "error"]},
                "geo_country": {"type": "string"},
                "ip_address": {"type": "string"},
                "metadata": {"type": "object", "additionalProperties": true},
                "session_id": {"type": "string", "maxLength": 128},
                "tenant_id": {"type": "integer"},
                "timestamp": {"type": "string"},
                "user_agent": {"type": "string", "maxLength": 1024},
                "variant_id": {"type": "integer"}
            }
        },
        "dto.TrackingURLs": {
            "type": "object",
            "properties": {
                "click": {"type": "string"},
                "complete": {"type": "string"},
                "first_quartile": {"type": "string"},
                "impression": {"type": "string"},
                "midpoint": {"type": "string"},
                "start": {"type": "string"},
                "third_quartile": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "FAST Ads API",
	Description:      "Ad decisioning for server and client side ad insertion in streaming video.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
