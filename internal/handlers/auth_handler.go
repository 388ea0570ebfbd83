package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"github.com/fleetride/backoffice/internal/apperrors"
	"github.com/fleetride/backoffice/internal/database"
	"github.com/fleetride/backoffice/internal/middleware"
	"github.com/fleetride/backoffice/internal/models"
	"github.com/fleetride/backoffice/internal/utils"
	"github.com/fleetride/backoffice/pkg/jwt"
)

// AuthHandler exposes staff authentication over HTTP
type AuthHandler struct {
	userRepo   *database.UserRepository
	jwtService *jwt.Service
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo *database.UserRepository, jwtService *jwt.Service, bcryptCost int, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		jwtService: jwtService,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Login authenticates a staff user and issues access and refresh tokens
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(req.Email)
	if err != nil {
		respondError(c, apperrors.Internal("failed to get user", err))
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.logger.WithField("email", req.Email).Warn("Failed login attempt")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		respondError(c, apperrors.Internal("failed to generate access token", err))
		return
	}
	refreshToken, err := h.jwtService.GenerateRefreshToken(user.ID, user.CompanyID, user.Role)
	if err != nil {
		respondError(c, apperrors.Internal("failed to generate refresh token", err))
		return
	}

	h.recordSession(c, user)

	if err := h.userRepo.UpdateLastLogin(user.ID); err != nil {
		h.logger.WithError(err).Warn("Failed to stamp last login")
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          user,
	})
}

// Refresh exchanges a valid refresh token for a new access token
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	accessToken, err := h.jwtService.GenerateAccessToken(claims.UserID, claims.CompanyID, claims.Role)
	if err != nil {
		respondError(c, apperrors.Internal("failed to generate access token", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// CreateUser creates a staff user. Super admins may create users for any
// company; company admins only for their own.
func (h *AuthHandler) CreateUser(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if userCtx.Role != models.RoleSuperAdmin {
		if req.Role == models.RoleSuperAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
			return
		}
		req.CompanyID = userCtx.CompanyID
	}

	existing, err := h.userRepo.GetByEmail(req.Email)
	if err != nil {
		respondError(c, apperrors.Internal("failed to check email", err))
		return
	}
	if existing != nil {
		respondError(c, apperrors.Conflict("email is already registered"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), h.bcryptCost)
	if err != nil {
		respondError(c, apperrors.Internal("failed to hash password", err))
		return
	}

	user := &models.User{
		CompanyID:    req.CompanyID,
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := h.userRepo.Create(user); err != nil {
		respondError(c, apperrors.Internal("failed to create user", err))
		return
	}

	c.JSON(http.StatusCreated, user)
}

// recordSession stores an audit row for the login, best effort
func (h *AuthHandler) recordSession(c *gin.Context, user *models.User) {
	rawUA := c.Request.UserAgent()
	ua := user_agent.New(rawUA)
	browser, version := ua.Browser()

	deviceInfo := browser + " " + version + " on " + ua.OS()
	if ua.Mobile() {
		deviceInfo += " (mobile)"
	}

	session := &models.UserSession{
		UserID:     user.ID,
		IPAddress:  utils.GetRealIP(c),
		UserAgent:  rawUA,
		DeviceInfo: deviceInfo,
	}
	if err := h.userRepo.CreateSession(session); err != nil {
		h.logger.WithError(err).Warn("Failed to record login session")
	}
}
