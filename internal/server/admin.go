package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/NanaWhan/RamadanApi/internal/auth/password"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const adminTokenTTL = 12 * time.Hour

type adminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// @Summary      Admin Login
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        request body adminLoginRequest true "Credentials"
// @Router       /admin/login [post]
func (s *Server) AdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	var record struct {
		Username     string `gorm:"column:username"`
		PasswordHash string `gorm:"column:password_hash"`
	}
	err := s.db.WithContext(c.Request.Context()).Raw(
		`SELECT username, password_hash FROM admins WHERE username = ? LIMIT 1`,
		strings.TrimSpace(req.Username),
	).Scan(&record).Error
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if record.Username == "" || !password.Verify(req.Password, record.PasswordHash) {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   record.Username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(adminTokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
	}})
}

// AdminRequired authenticates admin routes with a Bearer JWT.
func (s *Server) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(s.cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set("admin_username", claims.Subject)
		c.Next()
	}
}
