package main

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var adminColumns = []string{"id", "email", "name", "role", "created_at", "updated_at"}

func newSQLMockApp(t *testing.T) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &App{
		cfg: &Config{AppSigningSecret: testSigningSecret},
		db:  db,
		log: newTestLogger(),
	}, mock
}

func requireAPIError(t *testing.T, err error, status int, code string) {
	t.Helper()
	var apiErr *apiError
	require.True(t, errors.As(err, &apiErr), "expected apiError, got %v", err)
	assert.Equal(t, status, apiErr.Status)
	assert.Equal(t, code, apiErr.Code)
}

func TestNormalizeAdminInput(t *testing.T) {
	input, err := normalizeAdminInput(AdminInput{Email: " New@Example.COM ", Name: " New ", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", input.Email)
	assert.Equal(t, "New", input.Name)
	assert.Equal(t, defaultAdminRole, input.Role)

	tests := []struct {
		input AdminInput
		code  string
	}{
		{AdminInput{Email: "a@example.com", Password: "supersecret"}, "invalid_payload"},
		{AdminInput{Email: "not-an-email", Name: "A", Password: "supersecret"}, "invalid_email"},
		{AdminInput{Email: "a@example.com", Name: "A", Password: "short"}, "weak_password"},
		{AdminInput{Email: "a@example.com", Name: "A", Password: "supersecret", Role: "owner"}, "invalid_role"},
	}
	for _, tt := range tests {
		_, err := normalizeAdminInput(tt.input)
		requireAPIError(t, err, http.StatusBadRequest, tt.code)
	}
}

func TestStoreCreateAdminHashesPassword(t *testing.T) {
	app, mock := newSQLMockApp(t)
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO admins").
		WithArgs("new@example.com", sqlmock.AnyArg(), "New Admin", "staff").
		WillReturnRows(sqlmock.NewRows(adminColumns).AddRow(int64(5), "new@example.com", "New Admin", "staff", now, now))

	admin, err := app.storeCreateAdmin(context.Background(), AdminInput{Email: "New@example.com", Name: "New Admin", Password: "supersecret"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), admin.ID)
	assert.Equal(t, "staff", admin.Role)
	assert.Equal(t, "2024-05-01T08:00:00Z", admin.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCreateAdminMapsUniqueViolation(t *testing.T) {
	app, mock := newSQLMockApp(t)

	mock.ExpectQuery("INSERT INTO admins").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation, Message: "duplicate key value"})

	_, err := app.storeCreateAdmin(context.Background(), AdminInput{Email: "dup@example.com", Name: "Dup", Password: "supersecret"})
	requireAPIError(t, err, http.StatusConflict, "email_taken")
}

func TestStoreCreateAdminValidatesBeforeQuery(t *testing.T) {
	app, mock := newSQLMockApp(t)

	_, err := app.storeCreateAdmin(context.Background(), AdminInput{Email: "a@example.com", Name: "A", Password: "short"})
	requireAPIError(t, err, http.StatusBadRequest, "weak_password")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSeedFirstAdminConflictsWhenAccountsExist(t *testing.T) {
	app, mock := newSQLMockApp(t)

	mock.ExpectQuery("WHERE NOT EXISTS").
		WithArgs("owner@example.com", sqlmock.AnyArg(), "Owner", "admin").
		WillReturnRows(sqlmock.NewRows(adminColumns))

	_, err := app.storeSeedFirstAdmin(context.Background(), AdminInput{Email: "owner@example.com", Name: "Owner", Password: "supersecret", Role: "admin"})
	requireAPIError(t, err, http.StatusConflict, "already_seeded")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSeedFirstAdminCreatesWhenEmpty(t *testing.T) {
	app, mock := newSQLMockApp(t)
	now := time.Now()

	mock.ExpectQuery("WHERE NOT EXISTS").
		WillReturnRows(sqlmock.NewRows(adminColumns).AddRow(int64(1), "owner@example.com", "Owner", "admin", now, now))

	admin, err := app.storeSeedFirstAdmin(context.Background(), AdminInput{Email: "owner@example.com", Name: "Owner", Password: "supersecret", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin", admin.Role)
}

func TestAuthenticateAdminCredentials(t *testing.T) {
	app, mock := newSQLMockApp(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)
	columns := []string{"id", "email", "role", "password_hash"}

	mock.ExpectQuery("SELECT id, email, role, password_hash").
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(9), "admin@example.com", "admin", string(hash)))
	session, err := app.authenticateAdminCredentials(context.Background(), " Admin@Example.com", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, AdminSession{ID: 9, Email: "admin@example.com", Role: "admin"}, *session)

	mock.ExpectQuery("SELECT id, email, role, password_hash").
		WithArgs("admin@example.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(9), "admin@example.com", "admin", string(hash)))
	_, err = app.authenticateAdminCredentials(context.Background(), "admin@example.com", "wrong-password")
	requireAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")

	mock.ExpectQuery("SELECT id, email, role, password_hash").
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows(columns))
	_, err = app.authenticateAdminCredentials(context.Background(), "ghost@example.com", "supersecret")
	requireAPIError(t, err, http.StatusUnauthorized, "invalid_credentials")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreListAdmins(t *testing.T) {
	app, mock := newSQLMockApp(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, email, name, role, created_at, updated_at").
		WillReturnRows(sqlmock.NewRows(adminColumns).
			AddRow(int64(1), "admin@example.com", "Admin", "admin", now, now).
			AddRow(int64(2), "staff@example.com", "Staff", "staff", now, now))

	admins, err := app.storeListAdmins(context.Background())
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, "staff@example.com", admins[1].Email)
}

func TestBootstrapAdminUpsertsConfiguredAccount(t *testing.T) {
	app, mock := newSQLMockApp(t)
	app.cfg.BootstrapAdminEmail = "Boot@Example.com"
	app.cfg.BootstrapAdminPassword = "supersecret"
	app.cfg.BootstrapAdminName = "Administrator"

	mock.ExpectExec("ON CONFLICT \\(email\\)").
		WithArgs("boot@example.com", sqlmock.AnyArg(), "Administrator").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, app.bootstrapAdmin(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBootstrapAdminWithoutConfigCountsAccounts(t *testing.T) {
	app, mock := newSQLMockApp(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM admins").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	require.NoError(t, app.bootstrapAdmin(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("supersecret"), bcrypt.MinCost)
	require.NoError(t, err)

	audit := auditPasswordHash(adminPasswordRecord{Email: "a@example.com", PasswordHash: string(hash)})
	assert.True(t, audit.Bcrypt)
	assert.Equal(t, bcrypt.MinCost, audit.Cost)

	plain := auditPasswordHash(adminPasswordRecord{Email: "b@example.com", PasswordHash: "supersecret"})
	assert.False(t, plain.Bcrypt)
	assert.Zero(t, plain.Cost)
}

func TestStoreListAdminPasswordHashes(t *testing.T) {
	app, mock := newSQLMockApp(t)

	mock.ExpectQuery("SELECT email, password_hash FROM admins").
		WillReturnRows(sqlmock.NewRows([]string{"email", "password_hash"}).AddRow("a@example.com", "$2a$04$abc"))

	records, err := app.storeListAdminPasswordHashes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []adminPasswordRecord{{Email: "a@example.com", PasswordHash: "$2a$04$abc"}}, records)
}
