// Package auth issues and verifies the bearer tokens that carry a caller's
// organization. The org_id claim is the only source of the organization ID
// the booking core acts on.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SecretEnv names the environment variable holding the HMAC signing secret.
const SecretEnv = "DSB_JWT_SECRET"

// DefaultIssuer is used when no issuer is configured.
const DefaultIssuer = "booking-core"

var (
	jwtSecret     string
	jwtSecretOnce sync.Once
	jwtSecretErr  error

	issuerMu sync.RWMutex
	issuer   = DefaultIssuer
)

// ErrMissingOrganization is returned for otherwise valid tokens without an org_id claim.
var ErrMissingOrganization = errors.New("token has no organization claim")

// Claims is the token payload.
type Claims struct {
	UserID string `json:"user_id"`
	OrgID  string `json:"org_id"`
	jwt.RegisteredClaims
}

func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	return devMode == "true" || devMode == "1" || os.Getenv("GIN_MODE") == "debug"
}

func generateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

// ValidateJWTSecret checks that the signing secret is configured. Outside dev
// mode a missing secret is fatal; in dev mode a random one is generated.
// Call this at application startup.
func ValidateJWTSecret() error {
	jwtSecretOnce.Do(func() {
		secret := os.Getenv(SecretEnv)

		if secret == "" {
			if isDevMode() {
				jwtSecret = generateRandomSecret()
				slog.Warn(SecretEnv + " not set; using an auto-generated secret, tokens will not survive a restart")
			} else {
				jwtSecretErr = fmt.Errorf("%s environment variable is required in production; "+
					"generate one with: openssl rand -hex 32", SecretEnv)
			}
			return
		}

		if len(secret) < 32 {
			slog.Warn(SecretEnv + " is shorter than the recommended 32 characters")
		}
		jwtSecret = secret
	})

	return jwtSecretErr
}

// GetJWTSecret returns the validated secret. Panics if validation fails.
func GetJWTSecret() string {
	if jwtSecret == "" {
		if err := ValidateJWTSecret(); err != nil {
			panic(err)
		}
	}
	return jwtSecret
}

// SetIssuer sets the issuer stamped on and required of tokens.
func SetIssuer(iss string) {
	if iss == "" {
		iss = DefaultIssuer
	}
	issuerMu.Lock()
	issuer = iss
	issuerMu.Unlock()
}

func currentIssuer() string {
	issuerMu.RLock()
	defer issuerMu.RUnlock()
	return issuer
}

// GenerateJWT signs a token for userID acting within orgID.
func GenerateJWT(userID, orgID string, expiresIn time.Duration) (string, error) {
	if orgID == "" {
		return "", ErrMissingOrganization
	}
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		OrgID:  orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    currentIssuer(),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(GetJWTSecret()))
}

// ValidateJWT parses and verifies a token, including its issuer and
// organization claim.
func ValidateJWT(tokenString string) (*Claims, error) {
	secret := GetJWTSecret()

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(currentIssuer()))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.OrgID == "" {
		return nil, ErrMissingOrganization
	}
	return claims, nil
}
