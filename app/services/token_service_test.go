package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBeaconKey = "test-secret-key-for-beacon-signing"

func TestBeaconTokenService_Enabled(t *testing.T) {
	assert.False(t, NewBeaconTokenService("", time.Hour).Enabled())
	assert.True(t, NewBeaconTokenService(testBeaconKey, time.Hour).Enabled())
}

func TestBeaconTokenService_SignVerify(t *testing.T) {
	svc := NewBeaconTokenService(testBeaconKey, time.Hour)

	token, err := svc.Sign(BeaconClaims{TenantID: 7, AdID: 42, PodID: "pod_abc"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.TenantID)
	assert.Equal(t, uint(42), claims.AdID)
	assert.Equal(t, "pod_abc", claims.PodID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
	assert.True(t, claims.Matches(7, 42))
	assert.False(t, claims.Matches(7, 43))
	assert.False(t, claims.Matches(8, 42))
}

func TestBeaconTokenService_Expired(t *testing.T) {
	svc := NewBeaconTokenService(testBeaconKey, time.Minute)
	issued := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issued }

	token, err := svc.Sign(BeaconClaims{TenantID: 1, AdID: 1})
	require.NoError(t, err)

	svc.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestBeaconTokenService_Rejects(t *testing.T) {
	svc := NewBeaconTokenService(testBeaconKey, time.Hour)
	other := NewBeaconTokenService("another-secret-key-of-some-length", time.Hour)

	foreign, err := other.Sign(BeaconClaims{TenantID: 1, AdID: 1})
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"tenant_id": 1, "ad_id": 1})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not-a-jwt"},
		{name: "wrong key", token: foreign},
		{name: "alg none", token: unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestBeaconTokenService_Disabled(t *testing.T) {
	svc := NewBeaconTokenService("", time.Hour)
	_, err := svc.Sign(BeaconClaims{TenantID: 1, AdID: 1})
	assert.ErrorIs(t, err, ErrSigningKey)
	_, err = svc.Verify("anything")
	assert.ErrorIs(t, err, ErrSigningKey)
}
