// Package services provides technical concerns shared by flows and handlers, such as signed tracking beacons
package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/fast-ads/utils"
	"github.com/golang-jwt/jwt/v5"
)

// Beacon token error constants
var (
	ErrTokenExpired  = errors.New("token has expired")
	ErrTokenInvalid  = errors.New("invalid token")
	ErrTokenMismatch = errors.New("token does not match beacon")
	ErrSigningKey    = errors.New("beacon signing key is required")
)

const beaconIssuer = "fast-ads"

// BeaconTokenService signs and verifies the tokens appended to tracking URLs
type BeaconTokenService interface {
	// Enabled reports whether beacons are signed at all
	Enabled() bool
	Sign(claims BeaconClaims) (string, error)
	Verify(token string) (*BeaconClaims, error)
}

// BeaconClaims binds a tracking URL to the decision that produced it
type BeaconClaims struct {
	TenantID  uint      `json:"tenant_id"`
	AdID      uint      `json:"ad_id"`
	PodID     string    `json:"pod_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Matches reports whether the claims were issued for this tenant and ad
func (c *BeaconClaims) Matches(tenantID, adID uint) bool {
	return c != nil && c.TenantID == tenantID && c.AdID == adID
}

// BeaconTokenServiceImpl implements BeaconTokenService with HS256 tokens
type BeaconTokenServiceImpl struct {
	secretKey     []byte
	ttl           time.Duration
	signingMethod jwt.SigningMethod
	now           func() time.Time
}

// NewBeaconTokenService creates a beacon token service. An empty secret disables signing.
func NewBeaconTokenService(secretKey string, ttl time.Duration) *BeaconTokenServiceImpl {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &BeaconTokenServiceImpl{
		secretKey:     []byte(secretKey),
		ttl:           ttl,
		signingMethod: jwt.SigningMethodHS256,
		now:           utils.UTCNow,
	}
}

func (s *BeaconTokenServiceImpl) Enabled() bool {
	return len(s.secretKey) > 0
}

// Sign issues a token for the given beacon. IssuedAt and ExpiresAt are filled in.
func (s *BeaconTokenServiceImpl) Sign(claims BeaconClaims) (string, error) {
	if !s.Enabled() {
		return "", ErrSigningKey
	}

	now := s.now()
	mapClaims := jwt.MapClaims{
		"tenant_id": claims.TenantID,
		"ad_id":     claims.AdID,
		"pod_id":    claims.PodID,
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
		"iss":       beaconIssuer,
	}

	token := jwt.NewWithClaims(s.signingMethod, mapClaims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign beacon token: %w", err)
	}
	return signed, nil
}

// Verify parses a beacon token and returns its claims
func (s *BeaconTokenServiceImpl) Verify(token string) (*BeaconClaims, error) {
	if !s.Enabled() {
		return nil, ErrSigningKey
	}
	if token == "" {
		return nil, ErrTokenInvalid
	}

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(beaconIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !parsedToken.Valid {
		return nil, ErrTokenInvalid
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenInvalid
	}

	tenantID, ok := claims["tenant_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	adID, ok := claims["ad_id"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	podID, _ := claims["pod_id"].(string)
	issuedAt, ok := claims["iat"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}
	expiresAt, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrTokenInvalid
	}

	return &BeaconClaims{
		TenantID:  uint(tenantID),
		AdID:      uint(adID),
		PodID:     podID,
		IssuedAt:  time.Unix(int64(issuedAt), 0).UTC(),
		ExpiresAt: time.Unix(int64(expiresAt), 0).UTC(),
	}, nil
}
