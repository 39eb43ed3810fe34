package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerRequest() *http.Request {
	body := `{"email":"ana@example.com","password":"supersecret","name":"Ana"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestRegister_DuplicateEmailRace(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := &AuthHandler{DB: db}
	r := gin.New()
	r.POST("/api/v1/auth/register", h.Register)

	// The exists check passes, but a concurrent registration wins the
	// insert: the unique constraint fires and the client gets a 409, not
	// a generic failure.
	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})
	mock.ExpectRollback()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, registerRequest())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already registered")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegister_ExistingEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	h := &AuthHandler{DB: db}
	r := gin.New()
	r.POST("/api/v1/auth/register", h.Register)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM users WHERE email`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, registerRequest())

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
