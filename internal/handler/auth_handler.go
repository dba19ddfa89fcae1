package handler

import (
	"net/http"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/middleware"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/jwtutil"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterRequest is the body of an account registration request
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// LoginRequest is the body of a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register creates a new customer account
func Register(c echo.Context) error {
	log := logger.FromContext(c)

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email and password are required"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 8 characters"})
	}

	var count int64
	database.GetDB().Model(&model.Customer{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		log.Warn("Account with this email already exists", zap.String("email", req.Email))
		return c.JSON(http.StatusConflict, echo.Map{"error": "account with this email already exists"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create account"})
	}

	customer := model.Customer{
		Email:    req.Email,
		Password: string(hashed),
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     model.RoleCustomer,
	}

	if result := database.GetDB().Create(&customer); result.Error != nil {
		log.Error("Failed to create account", zap.String("email", req.Email), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create account"})
	}

	log.Info("Account registered", zap.String("email", customer.Email), zap.Uint("customer_id", customer.ID))
	return c.JSON(http.StatusCreated, customer)
}

// Login authenticates a customer or admin and returns a JWT
func Login(c echo.Context) error {
	log := logger.FromContext(c)
	prometheus.AuthAttemptsCounter.Inc()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var customer model.Customer
	result := database.GetDB().Where("email = ?", req.Email).First(&customer)
	if result.Error != nil {
		log.Warn("Account not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	token, err := jwtutil.GenerateToken(customer.Email, customer.ID, customer.Role)
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Login successful", zap.String("email", customer.Email), zap.String("role", customer.Role))
	return c.JSON(http.StatusOK, echo.Map{
		"token":    token,
		"customer": customer,
	})
}

// GetProfile returns the authenticated customer's account
func GetProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var customer model.Customer
	if result := database.GetDB().First(&customer, userID); result.Error != nil {
		log.Warn("Account not found", zap.Uint("customer_id", userID))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	return c.JSON(http.StatusOK, customer)
}

// ProfileUpdateRequest is the body of a profile update request
type ProfileUpdateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	Postal  string `json:"postal"`
}

// UpdateProfile updates the authenticated customer's contact details
func UpdateProfile(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var req ProfileUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	var customer model.Customer
	if result := database.GetDB().First(&customer, userID); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Address = req.Address
	customer.City = req.City
	customer.Postal = req.Postal

	if result := database.GetDB().Save(&customer); result.Error != nil {
		log.Error("Failed to update profile", zap.Uint("customer_id", userID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update profile"})
	}

	log.Info("Profile updated", zap.Uint("customer_id", customer.ID))
	return c.JSON(http.StatusOK, customer)
}
