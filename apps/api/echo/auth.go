package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/lo-maxwell/hkn-rails/core"
	"github.com/lo-maxwell/hkn-rails/core/person"
)

const (
	contextTokenKey  = "personToken"
	contextPersonKey = "person"
	audience         = "Chapter"
)

// Claims represents the authorization claims transmitted via a JWT.
// The subject is the person ID.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
}

func GetPersonClaims(conf *core.Config, p person.Person, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   p.ID,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     p.Username,
		Email:        p.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the person Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.Server.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type auth struct {
	conf   *core.Config
	people *person.Service

	// required rejects requests without a valid token.
	required echo.MiddlewareFunc
	// optional only checks the token when one is sent; anonymous requests go through.
	optional echo.MiddlewareFunc
}

func newAuth(conf *core.Config, people *person.Service) *auth {
	cfg := middleware.JWTConfig{
		SigningKey:    []byte(conf.Server.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
	optCfg := cfg
	optCfg.Skipper = func(ctx echo.Context) bool {
		return ctx.Request().Header.Get(echo.HeaderAuthorization) == ""
	}

	return &auth{
		conf:     conf,
		people:   people,
		required: middleware.JWTWithConfig(cfg),
		optional: middleware.JWTWithConfig(optCfg),
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// viewer returns the authenticated person with their groups, or nil for anonymous requests.
func (a *auth) viewer(ctx echo.Context) (*person.Person, error) {
	if p, ok := ctx.Get(contextPersonKey).(*person.Person); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return nil, nil
	}
	p, err := a.people.Get(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, person.ErrNotFound) {
			return nil, errUnauthorized
		}
		return nil, errors.Wrap(err, "finding person by ID")
	}
	ctx.Set(contextPersonKey, &p)
	return &p, nil
}

// currentPerson is viewer for endpoints that require authentication.
func (a *auth) currentPerson(ctx echo.Context) (*person.Person, error) {
	p, err := a.viewer(ctx)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errUnauthorized
	}
	return p, nil
}

func (a *auth) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	p, err := a.currentPerson(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context person")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetPersonClaims(a.conf, *p, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
