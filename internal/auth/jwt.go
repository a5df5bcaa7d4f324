package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie is the cookie the hosted auth frontend sets for same-site requests.
const SessionCookie = "__session"

var ErrMissingToken = errors.New("missing session token")

// Identity is the authenticated caller extracted from a session token.
type Identity struct {
	UserID    string
	SessionID string
	Plans     []string
}

// HasPlan reports whether the session carries the named plan, with or without
// the "u:" / "o:" scope prefix.
func (i Identity) HasPlan(plan string) bool {
	for _, p := range i.Plans {
		if _, name, ok := strings.Cut(p, ":"); ok {
			p = name
		}
		if strings.EqualFold(p, plan) {
			return true
		}
	}
	return false
}

// SessionClaims are the claims of a hosted auth session token.
type SessionClaims struct {
	SessionID       string `json:"sid,omitempty"`
	AuthorizedParty string `json:"azp,omitempty"`
	// Plan is a comma separated list of active plans, e.g. "u:premium".
	Plan string `json:"pla,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates session tokens signed with the identity provider's RSA key
// or, for local development, with a shared HMAC secret.
type Verifier struct {
	rsaKey            *rsa.PublicKey
	hmacSecret        []byte
	authorizedParties []string
	parser            *jwt.Parser
}

func NewVerifier(publicKeyPEM, hmacSecret string, authorizedParties []string) (*Verifier, error) {
	v := &Verifier{
		hmacSecret:        []byte(hmacSecret),
		authorizedParties: authorizedParties,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(5*time.Second),
		),
	}

	if publicKeyPEM != "" {
		// env files usually carry the PEM on one line with escaped newlines
		pem := strings.ReplaceAll(publicKeyPEM, `\n`, "\n")
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pem))
		if err != nil {
			return nil, fmt.Errorf("failed to parse session public key: %w", err)
		}
		v.rsaKey = key
	}

	if v.rsaKey == nil && len(v.hmacSecret) == 0 {
		return nil, errors.New("no session verification key configured")
	}
	return v, nil
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodRSA:
		if v.rsaKey == nil {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.rsaKey, nil
	case *jwt.SigningMethodHMAC:
		if len(v.hmacSecret) == 0 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.hmacSecret, nil
	default:
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
}

// Verify parses tokenString and returns the identity it was issued for.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrMissingToken
	}

	claims := &SessionClaims{}
	token, err := v.parser.ParseWithClaims(tokenString, claims, v.keyFunc)
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}
	if len(v.authorizedParties) > 0 && claims.AuthorizedParty != "" &&
		!slices.Contains(v.authorizedParties, claims.AuthorizedParty) {
		return Identity{}, fmt.Errorf("unauthorized party %q", claims.AuthorizedParty)
	}

	return Identity{
		UserID:    claims.Subject,
		SessionID: claims.SessionID,
		Plans:     splitPlans(claims.Plan),
	}, nil
}

func splitPlans(raw string) []string {
	var plans []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			plans = append(plans, p)
		}
	}
	return plans
}

// TokenFromRequest returns the bearer token, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

type contextKey string

const identityKey = contextKey("identity")

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
