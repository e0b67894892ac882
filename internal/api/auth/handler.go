package auth

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"casestudy-app/config"
	"casestudy-app/internal/domain/profiles"
)

type Handler struct {
	db  *gorm.DB
	cfg *config.Config
	log zerolog.Logger
}

func NewHandler(db *gorm.DB, cfg *config.Config, log zerolog.Logger) *Handler {
	return &Handler{db: db, cfg: cfg, log: log.With().Str("component", "auth").Logger()}
}

func isPasswordStrong(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter := false
	hasDigit := false
	for _, c := range password {
		switch {
		case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
			hasLetter = true
		case '0' <= c && c <= '9':
			hasDigit = true
		}
	}
	return hasLetter && hasDigit
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func isEmailValid(email string) bool {
	return emailPattern.MatchString(email)
}

func generateToken() string {
	bytes := make([]byte, 16)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (h *Handler) Register(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !isPasswordStrong(input.Password) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters long and contain both letters and numbers"})
		return
	}
	if !isEmailValid(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email format"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}
	hashed := string(hashedPassword)

	profile := profiles.Profile{
		ID:                 uuid.NewString(),
		Email:              input.Email,
		PasswordHash:       &hashed,
		AuthProvider:       "local",
		Role:               "user",
		IsVerified:         false,
		SubscriptionStatus: profiles.StatusNone,
		SubscriptionTier:   profiles.TierFree,
	}

	if err := h.db.Create(&profile).Error; err != nil {
		h.log.Warn().Err(err).Str("email", input.Email).Msg("register insert failed")
		c.JSON(http.StatusConflict, gin.H{"error": "Email may already exist"})
		return
	}

	token := generateToken()
	verif := profiles.VerificationToken{
		ProfileID: profile.ID,
		Token:     token,
		Type:      "verify",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := h.db.Create(&verif).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create verification token"})
		return
	}

	h.sendVerificationEmail(profile.Email, token)

	c.JSON(http.StatusOK, gin.H{"message": "Registered successfully. Please check your email to verify your account."})
}

func (h *Handler) Login(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var profile profiles.Profile
	if err := h.db.Where("email = ?", input.Email).First(&profile).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !profile.IsVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in"})
		return
	}

	if profile.PasswordHash == nil || *profile.PasswordHash == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "This account uses Google sign-in"})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	tokenString, err := h.issueJWT(&profile)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": tokenString})
}

func (h *Handler) issueJWT(p *profiles.Profile) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   p.ID,
		"email": p.Email,
		"role":  p.Role,
		"exp":   time.Now().Add(24 * time.Hour).Unix(),
	})
	return t.SignedString([]byte(h.cfg.JWTSecret))
}

func (h *Handler) VerifyEmail(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing token"})
		return
	}

	var verif profiles.VerificationToken
	if err := h.db.Where("token = ? AND type = ?", token, "verify").First(&verif).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	if err := h.db.Model(&profiles.Profile{}).Where("id = ?", verif.ProfileID).Update("is_verified", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify account"})
		return
	}

	h.db.Delete(&verif)

	c.Redirect(http.StatusTemporaryRedirect, h.cfg.AppURL+"/signin")
}

func (h *Handler) ResendVerification(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid email"})
		return
	}

	var profile profiles.Profile
	if err := h.db.Where("email = ?", body.Email).First(&profile).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Account not found"})
		return
	}
	if profile.IsVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Account already verified"})
		return
	}

	h.db.Where("profile_id = ? AND type = ?", profile.ID, "verify").Delete(&profiles.VerificationToken{})

	token := generateToken()
	verif := profiles.VerificationToken{
		ProfileID: profile.ID,
		Token:     token,
		Type:      "verify",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	if err := h.db.Create(&verif).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store verification token"})
		return
	}

	h.sendVerificationEmail(profile.Email, token)

	c.JSON(http.StatusOK, gin.H{"message": "Verification email resent"})
}

func (h *Handler) RequestPasswordReset(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
		return
	}

	// Don't expose whether the email exists.
	neutral := gin.H{"message": "If your email exists, you'll receive a reset link."}

	var profile profiles.Profile
	if err := h.db.Where("email = ?", body.Email).First(&profile).Error; err != nil {
		c.JSON(http.StatusOK, neutral)
		return
	}

	h.db.Where("profile_id = ? AND type = ?", profile.ID, "password_reset").Delete(&profiles.VerificationToken{})

	token := generateToken()
	reset := profiles.VerificationToken{
		ProfileID: profile.ID,
		Token:     token,
		Type:      "password_reset",
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}
	h.db.Create(&reset)

	h.sendPasswordResetEmail(profile.Email, token)

	c.JSON(http.StatusOK, neutral)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 8 characters with letters and numbers"})
		return
	}

	var reset profiles.VerificationToken
	err := h.db.Where("token = ? AND type = ?", body.Token, "password_reset").First(&reset).Error
	if err != nil || reset.ExpiresAt.Before(time.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired token"})
		return
	}

	hashed, _ := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	h.db.Model(&profiles.Profile{}).Where("id = ?", reset.ProfileID).Update("password_hash", string(hashed))
	h.db.Delete(&reset)

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if !isPasswordStrong(body.NewPassword) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "New password must be at least 8 characters with letters and numbers"})
		return
	}

	var profile profiles.Profile
	if err := h.db.Where("id = ?", userID).First(&profile).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
		return
	}

	if profile.PasswordHash == nil || *profile.PasswordHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "This account does not have a password. Sign in with Google or set a password first."})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*profile.PasswordHash), []byte(body.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Old password is incorrect"})
		return
	}

	hashedNew, _ := bcrypt.GenerateFromPassword([]byte(body.NewPassword), bcrypt.DefaultCost)
	h.db.Model(&profile).Update("password_hash", string(hashedNew))

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
