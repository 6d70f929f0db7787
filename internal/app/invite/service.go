package invite

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/form3tech-oss/jwt-go"
)

// DefaultTTL is how long an invite stays valid when no TTL is configured.
const DefaultTTL = 24 * time.Hour

var (
	ErrInvalidToken  = errors.New("invalid invite token")
	ErrNotConfigured = errors.New("invite service not configured")
)

// Grant is what a verified invite entitles its bearer to.
type Grant struct {
	RoomID    string
	Code      string
	InvitedBy string
	ExpiresAt time.Time
}

// Service signs and verifies room invite tokens (HS256).
type Service struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewService returns an invite signer. A zero ttl means DefaultTTL.
func NewService(secret, issuer string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue returns a token granting entry to the room identified by roomID and code.
func (s *Service) Issue(roomID, code, inviterUserID string) (string, error) {
	if s == nil || s.secret == "" {
		return "", ErrNotConfigured
	}
	if roomID == "" || code == "" {
		return "", fmt.Errorf("room id and code are required")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  inviterUserID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  fmt.Sprintf("%d-%d", now.UnixNano(), rand.Int63()),
		"room": roomID,
		"code": code,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks signature, issuer and expiry and returns the grant.
func (s *Service) Verify(tokenString string) (Grant, error) {
	if s == nil || s.secret == "" {
		return Grant{}, ErrNotConfigured
	}
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Grant{}, ErrInvalidToken
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return Grant{}, fmt.Errorf("%w: wrong issuer", ErrInvalidToken)
	}
	exp, ok := claims["exp"].(float64)
	if !ok || s.now().Unix() > int64(exp) {
		return Grant{}, fmt.Errorf("%w: expired", ErrInvalidToken)
	}

	g := Grant{ExpiresAt: time.Unix(int64(exp), 0).UTC()}
	g.RoomID, _ = claims["room"].(string)
	g.Code, _ = claims["code"].(string)
	g.InvitedBy, _ = claims["sub"].(string)
	if g.RoomID == "" || g.Code == "" {
		return Grant{}, fmt.Errorf("%w: missing room", ErrInvalidToken)
	}
	return g, nil
}
