package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/shopdesk-dev/shopdesk/internal/auth"
	"github.com/shopdesk-dev/shopdesk/internal/models"
	"github.com/shopdesk-dev/shopdesk/internal/otp"
	"github.com/shopdesk-dev/shopdesk/internal/tasks"
)

// RegisterRequest represents an account registration request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Username string `json:"username" binding:"required,min=3,max=32,username"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest represents a password login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// OTPRequest represents a one-time code request
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPLoginRequest represents a one-time code login
type OTPLoginRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6,numeric"`
}

// RefreshRequest carries a refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by every successful sign-in
type AuthResponse struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         *UserDetail `json:"user"`
}

// RefreshResponse is returned by /refresh-token
type RefreshResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	Name           string    `json:"name,omitempty"`
	DefaultStoreID *string   `json:"defaultStoreId"`
	CreatedAt      time.Time `json:"createdAt"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:             user.ID,
		Email:          user.Email,
		Username:       user.Username,
		Name:           user.Name,
		DefaultStoreID: user.DefaultStoreID,
		CreatedAt:      user.CreatedAt,
	}
}

// @Summary Register
// @Description Creates an account. It does not sign in.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /register [post]
func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}
	email := otp.NormalizeEmail(req.Email)

	var count int64
	if err := s.db.Model(&models.User{}).
		Where("email = ? OR username = ?", email, req.Username).
		Count(&count).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to check existing users")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if count > 0 {
		s.metrics.authEvent("register", false)
		c.JSON(http.StatusConflict, gin.H{"error": "Email or username already registered"})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	user := models.User{
		Email:        email,
		Username:     req.Username,
		Name:         req.Name,
		PasswordHash: passwordHash,
	}
	if err := s.db.Create(&user).Error; err != nil {
		s.logger.Error().Err(err).Msg("Failed to create user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	s.metrics.authEvent("register", true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")

	c.JSON(http.StatusCreated, gin.H{"user": newUserDetail(&user)})
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} AuthResponse
// @Failure 401 {object} map[string]interface{}
// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", otp.NormalizeEmail(req.Email)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.authEvent("login", false)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		s.metrics.authEvent("login", false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	s.signIn(c, "login", &user)
}

// @Summary Request a login code
// @Tags auth
// @Router /request-otp [post]
func (s *Server) requestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}
	email := otp.NormalizeEmail(req.Email)

	if !s.otpLimiter.Allow(email) {
		s.metrics.authEvent("otp_request", false)
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many code requests, try again later"})
		return
	}

	// Unknown emails get the same answer
	response := gin.H{"message": "If the account exists, a code has been sent"}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Info().Str("email", email).Msg("Code requested for unknown email")
			c.JSON(http.StatusOK, response)
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	ctx := c.Request.Context()
	code, expiresAt, err := s.otpStore.Issue(ctx, email)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to issue code")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue code"})
		return
	}

	task, err := tasks.NewDeliverOTPTask(email, code, expiresAt)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create delivery task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		return
	}
	if _, err := s.tasks.EnqueueContext(ctx, task); err != nil {
		s.logger.Error().Err(err).Str("email", email).Msg("Failed to enqueue delivery task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send code"})
		return
	}

	s.metrics.authEvent("otp_request", true)
	s.logger.Info().Str("user_id", user.ID).Msg("Login code issued")

	c.JSON(http.StatusOK, response)
}

// @Summary Login with a one-time code
// @Tags auth
// @Router /login-otp [post]
func (s *Server) loginOTP(c *gin.Context) {
	var req OTPLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingError(err)})
		return
	}
	email := otp.NormalizeEmail(req.Email)

	if err := s.otpStore.Verify(c.Request.Context(), email, req.OTP); err != nil {
		s.metrics.authEvent("otp_login", false)
		switch {
		case errors.Is(err, otp.ErrTooManyAttempts):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, request a new code"})
		case errors.Is(err, otp.ErrInvalidCode), errors.Is(err, otp.ErrCodeNotFound):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
		default:
			s.logger.Error().Err(err).Msg("Failed to verify code")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to find user")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	s.signIn(c, "otp_login", &user)
}

// signIn issues an access and refresh token pair for user
func (s *Server) signIn(c *gin.Context, event string, user *models.User) {
	token, err := auth.GenerateToken(user.ID, user.Email, user.DefaultStore(), s.config.Auth.AccessTokenTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	refreshToken, err := s.createRefreshToken(s.db, user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to create refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.metrics.authEvent(event, true)
	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Str("method", event).Msg("User logged in")

	c.JSON(http.StatusOK, AuthResponse{
		Token:        token,
		RefreshToken: refreshToken,
		User:         newUserDetail(user),
	})
}

func (s *Server) createRefreshToken(tx *gorm.DB, userID string) (string, error) {
	token, hash, err := auth.NewRefreshToken()
	if err != nil {
		return "", err
	}

	record := models.RefreshToken{
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: time.Now().Add(s.config.Auth.RefreshTokenTTL),
	}
	if err := tx.Create(&record).Error; err != nil {
		return "", err
	}
	return token, nil
}

// @Summary Refresh the access token
// @Description Exchanges a refresh token for a new access token. The refresh
// @Description token is rotated: the old one is revoked and a new one returned.
// @Tags auth
// @Router /refresh-token [post]
func (s *Server) refreshToken(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refreshToken is required"})
		return
	}

	var (
		user     models.User
		newToken string
		errAuth  = errors.New("invalid refresh token")
	)
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var stored models.RefreshToken
		if err := tx.Where("token_hash = ?", auth.HashRefreshToken(req.RefreshToken)).First(&stored).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAuth
			}
			return err
		}

		now := time.Now()
		if !stored.Active(now) {
			return errAuth
		}

		if err := models.FindByID(tx, stored.UserID, &user); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errAuth
			}
			return err
		}

		// Revoke only if still active so a concurrent refresh cannot reuse it
		result := tx.Model(&models.RefreshToken{}).
			Where("id = ? AND revoked_at IS NULL", stored.ID).
			Update("revoked_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errAuth
		}

		var err error
		newToken, err = s.createRefreshToken(tx, user.ID)
		return err
	})
	if err != nil {
		s.metrics.authEvent("refresh", false)
		if errors.Is(err, errAuth) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
			return
		}
		s.logger.Error().Err(err).Msg("Failed to refresh token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.DefaultStore(), s.config.Auth.AccessTokenTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	s.metrics.authEvent("refresh", true)
	s.logger.Debug().Str("user_id", user.ID).Msg("Access token refreshed")

	c.JSON(http.StatusOK, RefreshResponse{Token: token, RefreshToken: newToken})
}

// @Summary Logout
// @Description Revokes the given refresh token. Always succeeds.
// @Tags auth
// @Router /logout [post]
func (s *Server) logout(c *gin.Context) {
	var req RefreshRequest
	// An empty body is a valid logout
	_ = c.ShouldBindJSON(&req)

	if req.RefreshToken != "" {
		result := s.db.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND revoked_at IS NULL", auth.HashRefreshToken(req.RefreshToken)).
			Update("revoked_at", time.Now())
		if result.Error != nil {
			s.logger.Error().Err(result.Error).Msg("Failed to revoke refresh token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if result.RowsAffected > 0 {
			s.logger.Info().Msg("Refresh token revoked")
		}
	}

	s.metrics.authEvent("logout", true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}
