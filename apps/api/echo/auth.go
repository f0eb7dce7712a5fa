package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/KhanhMinhDz/CourseHub-Project/core"
	"github.com/KhanhMinhDz/CourseHub-Project/core/user"
	"github.com/KhanhMinhDz/CourseHub-Project/storage/tokens"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	jwtAudience     = "CourseHub"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// NewClaims returns the claims of a token issued to usr now.
// origIat carries the first issue time over token refreshes.
func NewClaims(usr user.User, conf *core.Config, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  jwtAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secretKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString(secretKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type jwtAuth struct {
	conf    *core.Config
	revoked tokens.Store
	users   user.Service
}

func newJWTAuth(conf *core.Config, revoked tokens.Store, users user.Service) *jwtAuth {
	return &jwtAuth{conf: conf, revoked: revoked, users: users}
}

func (a *jwtAuth) middleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    []byte(a.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	})
}

// sessionMiddleware rejects revoked tokens and deactivated users, then loads the user in context.
func (a *jwtAuth) sessionMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			revoked, err := a.revoked.IsRevoked(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking token revocation")
			}
			if revoked {
				return errTokenRevoked
			}

			usr, err := a.users.GetByID(ctx.Request().Context(), claims.Subject)
			if err != nil {
				if core.IsNotFound(err) {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.Active() {
				return errAccountDeactivated
			}
			ctx.Set(contextUserKey, usr)
			return next(ctx)
		}
	}
}

func (a *jwtAuth) authenticate(ctx echo.Context, uname, pwd string) (*Claims, error) {
	reqCtx := ctx.Request().Context()
	usr, err := a.users.GetByUsernameOrEmail(reqCtx, uname)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !usr.Active() {
		return nil, errAccountDeactivated
	}
	if usr, err = a.users.SetLastLogin(reqCtx, usr); err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return NewClaims(usr, a.conf), nil
}

func (a *jwtAuth) token(claims *Claims) (string, error) {
	return GenerateToken(claims, []byte(a.conf.SecretKey))
}

// refresh issues a new token for the context user and revokes the current one.
func (a *jwtAuth) refresh(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return "", err
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.token(NewClaims(usr, a.conf, claims.OrigIssuedAt))
	if err != nil {
		return "", errors.Wrap(err, "generating token")
	}
	if err = a.revoke(ctx, claims); err != nil {
		return "", err
	}
	return token, nil
}

func (a *jwtAuth) revoke(ctx echo.Context, claims Claims) error {
	err := a.revoked.Revoke(ctx.Request().Context(), claims.Id, time.Unix(claims.ExpiresAt, 0))
	return errors.Wrap(err, "revoking token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// principal is the authenticated caller every core operation is given.
func principal(ctx echo.Context) (user.Principal, error) {
	usr, err := getContextUser(ctx)
	if err != nil {
		return user.Principal{}, err
	}
	return user.NewPrincipal(usr), nil
}
