package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/frotalog/registro/internal/auth/jwt"
	"github.com/frotalog/registro/internal/common/dto"
)

// Login handles POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.db.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.SenhaHash), []byte(req.Senha)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Email, user.EmpresaID)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, dto.LoginResponse{
		Token: token,
		User: dto.UserInfo{
			ID:        user.ID,
			Nome:      user.Nome,
			Email:     user.Email,
			EmpresaID: user.EmpresaID,
		},
	})
}

// Profile handles GET /users/profile, returning the caller's decoded claims.
func (h *Handler) Profile(c *gin.Context) {
	claims, err := claimsFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	user, err := h.db.GetUserByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, dto.UserInfo{
		ID:        user.ID,
		Nome:      user.Nome,
		Email:     user.Email,
		EmpresaID: user.EmpresaID,
	})
}

func claimsFromContext(c *gin.Context) (*jwt.Claims, error) {
	v, exists := c.Get("claims")
	if !exists {
		return nil, errNoClaims
	}
	claims, ok := v.(*jwt.Claims)
	if !ok {
		return nil, errNoClaims
	}
	return claims, nil
}
