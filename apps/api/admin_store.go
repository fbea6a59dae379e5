package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminMinPasswordLength = 8
	pgUniqueViolation      = "23505"
)

type Admin struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type AdminInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// adminPasswordRecord is only used by the password audit.
type adminPasswordRecord struct {
	Email        string
	PasswordHash string
}

func normalizeAdminInput(input AdminInput) (AdminInput, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)
	input.Role = strings.ToLower(strings.TrimSpace(input.Role))
	if input.Role == "" {
		input.Role = defaultAdminRole
	}

	if input.Email == "" || input.Name == "" || input.Password == "" {
		return input, &apiError{Status: http.StatusBadRequest, Code: "invalid_payload", Message: "Name, email and password are required"}
	}
	if !strings.Contains(input.Email, "@") {
		return input, &apiError{Status: http.StatusBadRequest, Code: "invalid_email", Message: "Invalid email address"}
	}
	if len(input.Password) < adminMinPasswordLength {
		return input, &apiError{Status: http.StatusBadRequest, Code: "weak_password", Message: fmt.Sprintf("Password must be at least %d characters", adminMinPasswordLength)}
	}
	if !containsString(adminRoles, input.Role) {
		return input, &apiError{Status: http.StatusBadRequest, Code: "invalid_role", Message: "Role must be admin or staff"}
	}
	return input, nil
}

func scanAdmin(scan func(dest ...any) error) (Admin, error) {
	var admin Admin
	var createdAt, updatedAt time.Time
	if err := scan(&admin.ID, &admin.Email, &admin.Name, &admin.Role, &createdAt, &updatedAt); err != nil {
		return Admin{}, err
	}
	admin.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	admin.UpdatedAt = updatedAt.UTC().Format(time.RFC3339)
	return admin, nil
}

func (a *App) storeListAdmins(ctx context.Context) ([]Admin, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, email, name, role, created_at, updated_at
		FROM admins
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admins := []Admin{}
	for rows.Next() {
		admin, err := scanAdmin(rows.Scan)
		if err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (a *App) storeCountAdmins(ctx context.Context) (int, error) {
	var count int
	err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

func (a *App) storeCreateAdmin(ctx context.Context, input AdminInput) (*Admin, error) {
	input, err := normalizeAdminInput(input)
	if err != nil {
		return nil, err
	}
	hash, err := hashAdminPassword(input.Password)
	if err != nil {
		return nil, err
	}

	admin, err := scanAdmin(a.db.QueryRowContext(ctx, `
		INSERT INTO admins (email, password_hash, name, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, email, name, role, created_at, updated_at
	`, input.Email, hash, input.Name, input.Role).Scan)
	if err != nil {
		return nil, translateAdminWriteError(err)
	}
	return &admin, nil
}

// storeSeedFirstAdmin inserts input only while the admins table is empty.
func (a *App) storeSeedFirstAdmin(ctx context.Context, input AdminInput) (*Admin, error) {
	input, err := normalizeAdminInput(input)
	if err != nil {
		return nil, err
	}
	hash, err := hashAdminPassword(input.Password)
	if err != nil {
		return nil, err
	}

	admin, err := scanAdmin(a.db.QueryRowContext(ctx, `
		INSERT INTO admins (email, password_hash, name, role)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (SELECT 1 FROM admins)
		RETURNING id, email, name, role, created_at, updated_at
	`, input.Email, hash, input.Name, input.Role).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &apiError{Status: http.StatusConflict, Code: "already_seeded", Message: "Admin accounts already exist"}
	}
	if err != nil {
		return nil, translateAdminWriteError(err)
	}
	return &admin, nil
}

func (a *App) authenticateAdminCredentials(ctx context.Context, email, password string) (*AdminSession, error) {
	var session AdminSession
	var passwordHash string
	err := a.db.QueryRowContext(ctx, `
		SELECT id, email, role, password_hash
		FROM admins
		WHERE email = $1
	`, normalizeEmail(email)).Scan(&session.ID, &session.Email, &session.Role, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return nil, &apiError{Status: http.StatusUnauthorized, Code: "invalid_credentials", Message: "Invalid credentials"}
	}
	return &session, nil
}

func (a *App) storeListAdminPasswordHashes(ctx context.Context) ([]adminPasswordRecord, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT email, password_hash FROM admins ORDER BY email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []adminPasswordRecord
	for rows.Next() {
		var rec adminPasswordRecord
		if err := rows.Scan(&rec.Email, &rec.PasswordHash); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (a *App) bootstrapAdmin(ctx context.Context) error {
	email := normalizeEmail(a.cfg.BootstrapAdminEmail)
	password := a.cfg.BootstrapAdminPassword
	if email == "" || password == "" {
		count, err := a.storeCountAdmins(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			a.log.Warn("no admin accounts exist; seed one with POST /api/v1/auth/seed or create-admin")
			return nil
		}
		a.log.Info("bootstrap admin not configured", "admins", count)
		return nil
	}

	hash, err := hashAdminPassword(password)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO admins (email, password_hash, name, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email)
		DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			role = 'admin',
			updated_at = NOW()
	`, email, hash, a.cfg.BootstrapAdminName)
	if err != nil {
		return err
	}

	a.log.Info("bootstrap admin ensured", "email", email)
	return nil
}

func translateAdminWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &apiError{Status: http.StatusConflict, Code: "email_taken", Message: "An admin with this email already exists"}
	}
	return err
}

// passwordAudit describes how one stored password hash is protected.
type passwordAudit struct {
	Email  string
	Bcrypt bool
	Cost   int
}

func auditPasswordHash(rec adminPasswordRecord) passwordAudit {
	audit := passwordAudit{Email: rec.Email}
	cost, err := bcrypt.Cost([]byte(rec.PasswordHash))
	if err != nil {
		return audit
	}
	audit.Bcrypt = true
	audit.Cost = cost
	return audit
}
