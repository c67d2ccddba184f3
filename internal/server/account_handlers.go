package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopdesk-dev/shopdesk/internal/models"
)

// DefaultStoreRequest sets the account's default store
type DefaultStoreRequest struct {
	StoreID string `json:"storeId" binding:"required"`
}

// selfOnly returns the session when the :id path parameter is the caller
func (s *Server) selfOnly(c *gin.Context) (string, bool) {
	sessionData, exists := GetSessionData(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	if c.Param("id") != sessionData.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot access another account"})
		return "", false
	}
	return sessionData.UserID, true
}

// @Summary Get account
// @Tags account
// @Security BearerAuth
// @Router /account/{id} [get]
func (s *Server) getAccount(c *gin.Context) {
	userID, ok := s.selfOnly(c)
	if !ok {
		return
	}

	var user models.User
	if err := models.FindByID(s.db, userID, &user); err != nil {
		s.accountLookupError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": newUserDetail(&user)})
}

// @Summary Set default store
// @Tags account
// @Security BearerAuth
// @Router /account/{id}/default-store [post]
func (s *Server) setDefaultStore(c *gin.Context) {
	userID, ok := s.selfOnly(c)
	if !ok {
		return
	}

	var req DefaultStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	if _, err := s.findStore(userID, req.StoreID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Store not found"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	var user models.User
	if err := models.FindByID(s.db, userID, &user); err != nil {
		s.accountLookupError(c, userID, err)
		return
	}

	if err := s.db.Model(&user).Update("default_store_id", req.StoreID).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to set default store")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to set default store"})
		return
	}
	user.DefaultStoreID = &req.StoreID

	s.logger.Info().Str("user_id", userID).Str("store_id", req.StoreID).Msg("Default store set")

	c.JSON(http.StatusOK, gin.H{"user": newUserDetail(&user)})
}

func (s *Server) accountLookupError(c *gin.Context, userID string, err error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to find user")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
