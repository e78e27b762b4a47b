package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"mt5_gateway/internal/models"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

// Repository пользователи, токены, журнал сделок и справочник инструментов.
// Ядро торговли сюда не пишет: журнал заполняет HTTP-слой по итогам операции.
type Repository interface {
	VerifyToken(ctx context.Context, token string) (*models.Principal, error)
	CreateUser(ctx context.Context, username, password string, role models.Role) (*models.User, error)
	CreateToken(ctx context.Context, username, name string) (*models.Token, error)

	AddJournalEntry(ctx context.Context, e *models.JournalEntry) error
	ListJournal(ctx context.Context, limit int) ([]models.JournalEntry, error)

	UpsertInstrument(ctx context.Context, in *models.Instrument) error
	ListInstruments(ctx context.Context) ([]models.Instrument, error)

	Ping(ctx context.Context) error
	Close() error
}

const (
	DefaultJournalLimit = 100
	MaxJournalLimit     = 1000
)

// NewToken 32 случайных байта в hex.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("NewToken: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", models.NewError(models.KindValidation, "password must be at least 8 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("HashPassword: %w", err)
	}
	return string(h), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NewJournalID ulid: сортируется по времени создания.
func NewJournalID() string {
	return ulid.Make().String()
}

func NormalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" {
		return "", models.NewError(models.KindValidation, "username is required")
	}
	return u, nil
}

func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultJournalLimit
	case limit > MaxJournalLimit:
		return MaxJournalLimit
	default:
		return limit
	}
}

func ErrInvalidToken() error {
	return models.NewError(models.KindForbidden, "Invalid API token")
}

func ErrUserExists(username string) error {
	return models.NewError(models.KindValidation, fmt.Sprintf("user %q already exists", username))
}

func ErrUserNotFound(username string) error {
	return models.NewError(models.KindNotFound, fmt.Sprintf("user %q not found", username))
}
