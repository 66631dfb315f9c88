// Package identity verifies who is calling. The service does not manage users itself: it trusts
// session tokens issued by an external identity provider and uses the token subject as the
// owner of all connections.
package identity

import (
	"crypto/rsa"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// SessionCookie is the cookie in which the identity provider keeps the session token of a
// browser.
const SessionCookie = "__session"

// userIDKey is the gin context key under which RequireUser stores the verified user id.
const userIDKey = "identity.userID"

var (
	// ErrMissingToken is returned when the request carries neither a bearer token nor a session cookie.
	ErrMissingToken = errors.New("missing session token")
	// ErrInvalidToken is returned when the token cannot be verified or names no user.
	ErrInvalidToken = errors.New("invalid session token")
)

// Verifier resolves the user behind a request.
type Verifier interface {
	// Verify returns the id of the user who sent the request, or an error if the request does
	// not carry a valid identity.
	Verify(r *http.Request) (string, error)
}

// JWTConfig describes how session tokens are signed.
type JWTConfig struct {
	// Secret is the shared HS256 secret.
	Secret string
	// PublicKey is a PEM encoded RSA public key for RS256. It wins over the secret.
	PublicKey string
	// Issuer is the expected "iss" claim. Empty means any issuer.
	Issuer string
}

// JWTVerifier accepts session tokens signed by the identity provider.
type JWTVerifier struct {
	method    jwt.SigningMethod
	secret    []byte
	publicKey *rsa.PublicKey
	issuer    string
}

// NewJWTVerifier creates a verifier for the signing configuration.
func NewJWTVerifier(config JWTConfig) (*JWTVerifier, error) {
	v := &JWTVerifier{issuer: config.Issuer}
	switch {
	case config.PublicKey != "":
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(config.PublicKey))
		if err != nil {
			return nil, errors.Wrap(err, "parse public key")
		}
		v.method = jwt.SigningMethodRS256
		v.publicKey = key
	case config.Secret != "":
		v.method = jwt.SigningMethodHS256
		v.secret = []byte(config.Secret)
	default:
		return nil, errors.New("either a secret or a public key is required")
	}
	return v, nil
}

// Verify implements Verifier. The token is taken from the Authorization header first and from
// the session cookie otherwise.
func (v *JWTVerifier) Verify(r *http.Request) (string, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return "", ErrMissingToken
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{v.method.Alg()})}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		if v.publicKey != nil {
			return v.publicKey, nil
		}
		return v.secret, nil
	}, options...)
	if err != nil {
		return "", errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return "", errors.Wrap(ErrInvalidToken, "no subject")
	}
	return claims.Subject, nil
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, found := strings.CutPrefix(header, "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// StaticVerifier treats every request as coming from the same user. It is meant for local
// development and the demo server only.
type StaticVerifier struct {
	UserID string
}

// Verify implements Verifier.
func (v StaticVerifier) Verify(*http.Request) (string, error) {
	if v.UserID == "" {
		return "", ErrMissingToken
	}
	return v.UserID, nil
}

// RequireUser returns a middleware that rejects requests without a valid identity with 401. On
// success the user id is available to later handlers through UserID.
func RequireUser(verifier Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := verifier.Verify(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID returns the user id stored by RequireUser, or the empty string if the request passed
// no identity check.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// SignedIn reports whether the request carries a valid identity, without rejecting it.
func SignedIn(verifier Verifier, r *http.Request) bool {
	_, err := verifier.Verify(r)
	return err == nil
}
