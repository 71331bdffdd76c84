package handlers

import (
	"errors"
	"strings"
	"testing"

	"github.com/amirphl/fast-ads/app/dto"
	"github.com/amirphl/fast-ads/utils"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDecisionRequest() dto.AdDecisionRequest {
	return dto.AdDecisionRequest{
		TenantID:        1,
		Channel:         "news",
		AdBreakID:       "break-1",
		Position:        "mid-roll",
		DurationSeconds: 60,
	}
}

func TestValidationErrors(t *testing.T) {
	validate := validator.New()

	tests := []struct {
		name   string
		target any
		want   []string
	}{
		{
			name:   "Valid",
			target: validDecisionRequest(),
		},
		{
			name: "DecisionFields",
			target: func() dto.AdDecisionRequest {
				req := validDecisionRequest()
				req.Position = "side-roll"
				req.DurationSeconds = 700
				req.Geo = utils.ToPtr("USA")
				return req
			}(),
			want: []string{
				"Position must be one of: pre-roll mid-roll post-roll",
				"DurationSeconds must be at most 600",
				"Geo must be exactly 2 characters",
			},
		},
		{
			name: "StringLength",
			target: func() dto.AdDecisionRequest {
				req := validDecisionRequest()
				req.Channel = strings.Repeat("c", 256)
				return req
			}(),
			want: []string{"Channel must be at most 255 characters"},
		},
		{
			name: "GeoLetters",
			target: func() dto.AdDecisionRequest {
				req := validDecisionRequest()
				req.Geo = utils.ToPtr("U1")
				return req
			}(),
			want: []string{"Geo must contain only letters"},
		},
		{
			name:   "EmptyBatch",
			target: dto.TrackEventsRequest{},
			want:   []string{"Events is required"},
		},
		{
			name:   "OversizedBatch",
			target: dto.TrackEventsRequest{Events: make([]dto.TrackingEventRequest, 501)},
			want:   []string{"Events must contain at most 500 items"},
		},
		{
			name:   "PixelQuery",
			target: dto.TrackingPixelRequest{EventType: "rewind"},
			want: []string{
				"AdID is required",
				"EventType must be one of: impression start first_quartile midpoint third_quartile complete click error",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.target)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			messages, ok := validationErrors(err)
			require.True(t, ok)
			assert.Equal(t, tt.want, messages)
		})
	}
}

func TestValidationErrors_ForeignError(t *testing.T) {
	messages, ok := validationErrors(errors.New("unexpected EOF"))
	assert.False(t, ok)
	assert.Nil(t, messages)
}
