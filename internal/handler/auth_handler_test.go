package handler

import (
	"net/http"
	"testing"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func registerAccount(t *testing.T, email, password string) model.Customer {
	t.Helper()

	rec := request(t, Register, http.MethodPost, RegisterRequest{
		Email:    email,
		Password: password,
		Name:     "Test Customer",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var customer model.Customer
	decode(t, rec, &customer)
	return customer
}

func TestRegisterHashesPassword(t *testing.T) {
	db := setupDB(t)

	customer := registerAccount(t, "jo@example.com", "hunter2hunter2")
	assert.Equal(t, model.RoleCustomer, customer.Role)

	// The password field is never serialized
	assert.Empty(t, customer.Password)

	var stored model.Customer
	require.NoError(t, db.First(&stored, customer.ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("hunter2hunter2")))
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	setupDB(t)

	rec := request(t, Register, http.MethodPost, RegisterRequest{
		Email:    "jo@example.com",
		Password: "short",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	setupDB(t)

	registerAccount(t, "jo@example.com", "hunter2hunter2")

	rec := request(t, Register, http.MethodPost, RegisterRequest{
		Email:    "jo@example.com",
		Password: "another-password",
	}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginReturnsToken(t *testing.T) {
	setupDB(t)
	registerAccount(t, "jo@example.com", "hunter2hunter2")

	rec := request(t, Login, http.MethodPost, LoginRequest{
		Email:    "jo@example.com",
		Password: "hunter2hunter2",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.NotEmpty(t, body["token"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	setupDB(t)
	registerAccount(t, "jo@example.com", "hunter2hunter2")

	rec := request(t, Login, http.MethodPost, LoginRequest{
		Email:    "jo@example.com",
		Password: "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = request(t, Login, http.MethodPost, LoginRequest{
		Email:    "nobody@example.com",
		Password: "hunter2hunter2",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
