package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/richxcame/geoippro/pkg/common"
	"github.com/richxcame/geoippro/pkg/config"
	"github.com/richxcame/geoippro/pkg/logger"
	"go.uber.org/zap"
)

// ServiceSubjectKey is the gin context key holding the caller's subject claim.
const ServiceSubjectKey = "service_subject"

var errMissingBearer = errors.New("missing bearer token")

// ServiceAuth admits callers presenting an HS256 bearer token signed with the
// shared secret. Issuer and audience are enforced when configured.
func ServiceAuth(cfg config.JWTConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(opts...)
	secret := []byte(cfg.Secret)

	return func(c *gin.Context) {
		raw, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			common.ErrorResponse(c, http.StatusUnauthorized, err.Error())
			c.Abort()
			return
		}

		claims := &jwt.RegisteredClaims{}
		_, err = parser.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
			return secret, nil
		})
		if err != nil {
			logger.WithContext(c.Request.Context()).Warn("rejected service token", zap.Error(err))
			common.ErrorResponse(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(ServiceSubjectKey, claims.Subject)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", fmt.Errorf("%w: empty token", errMissingBearer)
	}
	return token, nil
}
