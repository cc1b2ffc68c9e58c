package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/access"
	"github.com/trezcool/academia/core/user"
)

const (
	contextTokenKey    = "userToken"
	contextIdentityKey = "identity"
	jwtAudience        = "Academia"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Username string    `json:"username,omitempty"`
	Role     user.Role `json:"role"`
}

// Identity returns the caller asserted by the claims, or nil when they do not name a valid user.
func (c Claims) Identity() *access.Identity {
	if c.Subject == "" || !c.Role.IsValid() {
		return nil
	}
	return &access.Identity{UserID: c.Subject, Role: c.Role}
}

func GetUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: usr.Username,
		Role:     usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// newJWTMiddleware parses the bearer token into Claims.
// When optional, requests without an Authorization header go through anonymously;
// a present but invalid token is still rejected.
func newJWTMiddleware(conf *core.Config, optional bool) echo.MiddlewareFunc {
	cfg := middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
	if optional {
		cfg.Skipper = func(ctx echo.Context) bool {
			return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
		}
	}
	return middleware.JWTWithConfig(cfg)
}

func getContextClaims(ctx echo.Context) (Claims, bool) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, true
		}
	}
	return Claims{}, false
}

// contextIdentity returns the caller of the request, nil for anonymous requests.
func contextIdentity(ctx echo.Context) *access.Identity {
	if identity, ok := ctx.Get(contextIdentityKey).(*access.Identity); ok {
		return identity
	}
	claims, ok := getContextClaims(ctx)
	if !ok {
		return nil
	}
	identity := claims.Identity()
	ctx.Set(contextIdentityKey, identity)
	return identity
}
