package middlewares

import (
	"arena/src/models"
	"arena/src/types"
	"errors"
	"log"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// AuthMiddleware verifies the HS256 bearer token and loads the user named by
// its subject. Sets id, email and role on the context.
func AuthMiddleware(db *gorm.DB, jwtKey []byte) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		bearerToken := ctx.Request.Header.Get("Authorization")
		reqToken, ok := strings.CutPrefix(bearerToken, "Bearer ")
		if !ok || reqToken == "" {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		claims := &types.Claims{}
		tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return jwtKey, nil
		})
		if err != nil || !tkn.Valid {
			if err != nil {
				log.Printf("token error: %s\n", err.Error())
			}
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		uid, err := strconv.Atoi(claims.Subject)
		if err != nil || uid < 1 {
			log.Println("error parsing claims:", claims.Subject)
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		var user models.User
		if err := db.WithContext(ctx).Where("id = ?", uid).Take(&user).Error; err != nil {
			ctx.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		ctx.Set("id", user.ID)
		ctx.Set("email", user.Email)
		ctx.Set("role", user.Role)
		ctx.Next()
	}
}

func RequireRole(roles ...types.UserRole) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		role, _ := ctx.Get("role")
		r, ok := role.(types.UserRole)
		if !ok || !slices.Contains(roles, r) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
		ctx.Next()
	}
}

func IsAdmin(ctx *gin.Context) bool {
	role, _ := ctx.Get("role")
	r, _ := role.(types.UserRole)
	return r == types.ROLE_ADMIN
}
