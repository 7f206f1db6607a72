package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/managenow/api/database"
	"github.com/managenow/api/models"
	"github.com/managenow/api/utils"
)

// ErrTOTPRequired is returned by SignIn when the account has two-factor
// authentication enabled and no code was supplied.
var ErrTOTPRequired = fmt.Errorf("2FA code required: %w", ErrUnauthorized)

type AuthService struct {
	db         *database.DB
	jwtSecret  string
	sessionTTL time.Duration
}

func NewAuthService(db *database.DB, jwtSecret string, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &AuthService{db: db, jwtSecret: jwtSecret, sessionTTL: sessionTTL}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *AuthService) SignUp(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if len(req.Password) < 8 {
		return nil, invalid("password must be at least 8 characters")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	u := models.User{
		ID:          uuid.NewString(),
		Email:       email,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		DateOfBirth: req.DateOfBirth,
		CreatedAt:   timestamp(),
	}
	u.UpdatedAt = u.CreatedAt

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, first_name, last_name, address, city, postal_code,
		                   date_of_birth, totp_enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)
	`, u.ID, u.Email, hash, u.FirstName, u.LastName, u.Address, u.City, u.PostalCode,
		u.DateOfBirth, u.CreatedAt, u.UpdatedAt)
	if database.IsUniqueViolation(err) {
		utils.LogAuthAction("signup", email, false)
		return nil, fmt.Errorf("email already registered: %w", ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	utils.LogAuthAction("signup", email, true)
	return s.startSession(ctx, u)
}

// SignIn checks the password and, when enabled, the TOTP code, then opens a
// new session.
func (s *AuthService) SignIn(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	u, hash, secret, err := s.userByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		utils.LogAuthAction("signin", email, false)
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}

	if !utils.CheckPassword(req.Password, hash) {
		utils.LogAuthAction("signin", email, false)
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	if u.TOTPEnabled {
		if req.TOTPCode == "" {
			return nil, ErrTOTPRequired
		}
		if !utils.VerifyTOTP(secret, req.TOTPCode) {
			utils.LogAuthAction("signin-2fa", email, false)
			return nil, fmt.Errorf("invalid 2FA code: %w", ErrUnauthorized)
		}
	}

	utils.LogAuthAction("signin", email, true)
	return s.startSession(ctx, *u)
}

func (s *AuthService) startSession(ctx context.Context, u models.User) (*models.AuthResponse, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}
	created := timestamp()
	expiresAt := created.Add(s.sessionTTL)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, uuid.NewString(), u.ID, token, expiresAt, created)
	if err != nil {
		return nil, err
	}

	jwtToken, err := utils.GenerateAccessToken(s.jwtSecret, u.ID, token, expiresAt)
	if err != nil {
		return nil, err
	}
	return &models.AuthResponse{Success: true, Token: jwtToken, ExpiresAt: expiresAt, User: u}, nil
}

// SignOut ends the session behind the token. Unknown or expired tokens are
// not an error.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := utils.ParseAccessToken(s.jwtSecret, token)
	if err != nil {
		return nil
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, claims.SessionID)
	if err == nil {
		utils.SafeInfo("🔐 Session closed for user %s", utils.MaskID(claims.UserID))
	}
	return err
}

// Authenticate resolves a bearer token to its user. The token must carry a
// session that still exists and has not expired.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := utils.ParseAccessToken(s.jwtSecret, token)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrUnauthorized)
	}

	var userID string
	var expiresAt time.Time
	err = s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, claims.SessionID).Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	if !now().Before(expiresAt) || userID != claims.UserID {
		return nil, fmt.Errorf("session expired: %w", ErrUnauthorized)
	}

	return s.GetUser(ctx, userID)
}

const userColumns = `id, email, first_name, last_name, address, city, postal_code, date_of_birth,
	totp_enabled, created_at, updated_at, password_hash, totp_secret`

func scanUser(r rowScanner) (*models.User, string, string, error) {
	var (
		u      models.User
		hash   string
		secret sql.NullString
	)
	err := r.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Address, &u.City, &u.PostalCode, &u.DateOfBirth,
		&u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt, &hash, &secret)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", "", notFound("user")
	}
	if err != nil {
		return nil, "", "", err
	}
	return &u, hash, secret.String, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (*models.User, string, string, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (s *AuthService) userByID(ctx context.Context, id string) (*models.User, string, string, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *AuthService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, _, _, err := s.userByID(ctx, id)
	return u, err
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, invalid("email is required")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET email = ?, first_name = ?, last_name = ?, address = ?, city = ?, postal_code = ?,
		    date_of_birth = ?, updated_at = ?
		WHERE id = ?
	`, email, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Address, req.City,
		req.PostalCode, req.DateOfBirth, timestamp(), userID)
	if database.IsUniqueViolation(err) {
		return nil, fmt.Errorf("email already in use: %w", ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, notFound("user")
	}
	return s.GetUser(ctx, userID)
}

// ChangePassword verifies the current password and closes every other
// session of the user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentToken string, req models.ChangePasswordRequest) error {
	_, hash, _, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.CurrentPassword, hash) {
		return fmt.Errorf("current password is incorrect: %w", ErrUnauthorized)
	}
	if len(req.NewPassword) < 8 {
		return invalid("password must be at least 8 characters")
	}

	newHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	keep := ""
	if claims, err := utils.ParseAccessToken(s.jwtSecret, currentToken); err == nil {
		keep = claims.SessionID
	}

	err = database.WithTransaction(ctx, s.db, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, newHash, timestamp(), userID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ? AND token <> ?`, userID, keep)
		return err
	})
	if err != nil {
		return err
	}
	utils.SafeInfo("✅ Password changed for user %s", utils.MaskID(userID))
	return nil
}

// SetupTOTP stores a fresh secret. 2FA stays disabled until VerifyTOTP
// confirms a code generated from it.
func (s *AuthService) SetupTOTP(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	u, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.TOTPEnabled {
		return nil, fmt.Errorf("2FA is already enabled: %w", ErrConflict)
	}

	secret, url, err := utils.GenerateTOTPSecret(u.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`, secret, timestamp(), userID); err != nil {
		return nil, err
	}
	return &models.TOTPSetupResponse{Secret: secret, URL: url}, nil
}

func (s *AuthService) VerifyTOTP(ctx context.Context, userID, code string) error {
	_, _, secret, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if secret == "" {
		return invalid("2FA has not been set up")
	}
	if !utils.VerifyTOTP(secret, code) {
		return fmt.Errorf("invalid 2FA code: %w", ErrUnauthorized)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = TRUE, updated_at = ? WHERE id = ?`, timestamp(), userID); err != nil {
		return err
	}
	utils.SafeInfo("✅ 2FA enabled for user %s", utils.MaskID(userID))
	return nil
}

func (s *AuthService) DisableTOTP(ctx context.Context, userID string, req models.DisableTOTPRequest) error {
	u, hash, secret, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(req.Password, hash) {
		return fmt.Errorf("invalid password: %w", ErrUnauthorized)
	}
	if u.TOTPEnabled && !utils.VerifyTOTP(secret, req.Code) {
		return fmt.Errorf("invalid 2FA code: %w", ErrUnauthorized)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET totp_enabled = FALSE, totp_secret = NULL, updated_at = ? WHERE id = ?`,
		timestamp(), userID); err != nil {
		return err
	}
	utils.SafeInfo("✅ 2FA disabled for user %s", utils.MaskID(userID))
	return nil
}

// PurgeExpiredSessions deletes sessions past their expiry.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, timestamp())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
