package webserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func JWTMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token := ""
		switch {
		case strings.HasPrefix(h, "Bearer "):
			token = h[7:]
		case c.Query("token") != "":
			// Browser websocket clients cannot set headers.
			token = c.Query("token")
		default:
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		uid, err := parseJWT(token, secret)
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set("uid", uid)
		c.Next()
	}
}

func parseJWT(token string, secret []byte) (uint64, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	uid, ok := claims["uid"].(float64)
	if !ok {
		return 0, jwt.ErrTokenInvalidClaims
	}
	return uint64(uid), nil
}

func issueJWT(userID uint64, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"uid": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	return token.SignedString(secret)
}

func currentUser(c *gin.Context) uint64 {
	v, _ := c.Get("uid")
	uid, _ := v.(uint64)
	return uid
}
