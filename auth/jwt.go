package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/flanksource/gigs/api"
)

// Verifier validates HS256 bearer tokens issued by the identity service.
// The sub claim carries the numeric user id, as a number or a string.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithJSONNumber(),
			jwt.WithLeeway(5*time.Second),
		),
	}, nil
}

// Verify returns the user id carried by a signed token.
func (v *Verifier) Verify(token string) (int64, error) {
	claims := jwt.MapClaims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return 0, api.Errorf(api.EUNAUTHENTICATED, "invalid token").WithDebugInfo("%v", err)
	}

	id, err := subject(claims["sub"])
	if err != nil {
		return 0, api.Errorf(api.EUNAUTHENTICATED, "invalid token").WithDebugInfo("%v", err)
	}
	return id, nil
}

// Sign issues a token for userID. Used by developer tooling and tests.
func (v *Verifier) Sign(userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"iat": now.Unix(),
		"nbf": now.Unix(),
	}
	if ttl > 0 {
		claims["exp"] = now.Add(ttl).Unix()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func subject(sub any) (int64, error) {
	var raw string
	switch s := sub.(type) {
	case nil:
		return 0, errors.New("missing sub claim")
	case string:
		raw = s
	case json.Number:
		raw = s.String()
	case float64:
		raw = strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return 0, fmt.Errorf("unsupported sub claim type %T", sub)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sub claim %q is not a user id", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("sub claim %d is not a valid user id", id)
	}
	return id, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
