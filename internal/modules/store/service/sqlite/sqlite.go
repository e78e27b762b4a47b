package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/store/service"

	"github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	username        TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	role            TEXT NOT NULL DEFAULT 'user',
	created_at      TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS tokens (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	token      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL DEFAULT '',
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS trade_journal (
	id          TEXT PRIMARY KEY,
	username    TEXT NOT NULL,
	action      TEXT NOT NULL,
	ticket      INTEGER NOT NULL DEFAULT 0,
	symbol      TEXT NOT NULL DEFAULT '',
	direction   TEXT NOT NULL DEFAULT '',
	volume      REAL NOT NULL DEFAULT 0,
	price       REAL NOT NULL DEFAULT 0,
	stop_loss   REAL NOT NULL DEFAULT 0,
	take_profit REAL NOT NULL DEFAULT 0,
	success     INTEGER NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	snapshot    BLOB,
	created_at  TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS instruments (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol             TEXT NOT NULL UNIQUE,
	description        TEXT NOT NULL DEFAULT '',
	session            TEXT NOT NULL DEFAULT '',
	volatility_profile TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMP NOT NULL
);`

// Store локальное хранилище на sqlite, по умолчанию instruments.db.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: %w", err)
	}
	// sqlite не любит параллельных писателей
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite.New: schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func isUnique(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func (s *Store) VerifyToken(ctx context.Context, token string) (p *models.Principal, err error) {
	defer func() {
		if err != nil && models.KindOf(err) == models.KindInternal {
			err = fmt.Errorf("Store.VerifyToken: %w", err)
		}
	}()

	p = &models.Principal{Token: token}
	var role string
	err = s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.role
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ?`, token).Scan(&p.UserID, &p.Username, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrInvalidToken()
	}
	if err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	return p, nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string, role models.Role) (u *models.User, err error) {
	defer func() {
		if err != nil && models.KindOf(err) == models.KindInternal {
			err = fmt.Errorf("Store.CreateUser: %w", err)
		}
	}()

	name, err := service.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	hash, err := service.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if role == "" {
		role = models.RoleUser
	}

	u = &models.User{Username: name, HashedPassword: hash, Role: role, CreatedAt: s.now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, hashed_password, role, created_at) VALUES (?, ?, ?, ?)`,
		u.Username, u.HashedPassword, string(u.Role), u.CreatedAt)
	if isUnique(err) {
		return nil, service.ErrUserExists(name)
	}
	if err != nil {
		return nil, err
	}
	if u.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateToken(ctx context.Context, username, name string) (tok *models.Token, err error) {
	defer func() {
		if err != nil && models.KindOf(err) == models.KindInternal {
			err = fmt.Errorf("Store.CreateToken: %w", err)
		}
	}()

	uname, err := service.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	tok = &models.Token{Name: name, Username: uname, CreatedAt: s.now().UTC()}
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, uname).Scan(&tok.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, service.ErrUserNotFound(uname)
	}
	if err != nil {
		return nil, err
	}

	if tok.Token, err = service.NewToken(); err != nil {
		return nil, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO tokens (token, name, user_id, created_at) VALUES (?, ?, ?, ?)`,
		tok.Token, tok.Name, tok.UserID, tok.CreatedAt)
	if err != nil {
		return nil, err
	}
	if tok.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *Store) AddJournalEntry(ctx context.Context, e *models.JournalEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.AddJournalEntry: %w", err)
		}
	}()

	if e.ID == "" {
		e.ID = service.NewJournalID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trade_journal
		(id, username, action, ticket, symbol, direction, volume, price, stop_loss, take_profit, success, message, snapshot, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Username, e.Action, int64(e.Ticket), e.Symbol, e.Direction, e.Volume, e.Price,
		e.StopLoss, e.TakeProfit, e.Success, e.Message, e.Snapshot, e.CreatedAt)
	return err
}

func (s *Store) ListJournal(ctx context.Context, limit int) (out []models.JournalEntry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.ListJournal: %w", err)
		}
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, action, ticket, symbol, direction, volume, price, stop_loss, take_profit,
		       success, message, snapshot, created_at
		FROM trade_journal ORDER BY id DESC LIMIT ?`, service.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []models.JournalEntry{}
	for rows.Next() {
		var (
			e      models.JournalEntry
			ticket int64
		)
		if err = rows.Scan(&e.ID, &e.Username, &e.Action, &ticket, &e.Symbol, &e.Direction, &e.Volume,
			&e.Price, &e.StopLoss, &e.TakeProfit, &e.Success, &e.Message, &e.Snapshot, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Ticket = uint64(ticket)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertInstrument(ctx context.Context, in *models.Instrument) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.UpsertInstrument: %w", err)
		}
	}()

	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now().UTC()
	}
	return s.db.QueryRowContext(ctx, `
		INSERT INTO instruments (symbol, description, session, volatility_profile, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			description = excluded.description,
			session = excluded.session,
			volatility_profile = excluded.volatility_profile
		RETURNING id, created_at`,
		in.Symbol, in.Description, in.Session, in.VolatilityProfile, in.CreatedAt).Scan(&in.ID, &in.CreatedAt)
}

func (s *Store) ListInstruments(ctx context.Context) (out []models.Instrument, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Store.ListInstruments: %w", err)
		}
	}()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, description, session, volatility_profile, created_at
		FROM instruments ORDER BY symbol`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []models.Instrument{}
	for rows.Next() {
		var in models.Instrument
		if err = rows.Scan(&in.ID, &in.Symbol, &in.Description, &in.Session, &in.VolatilityProfile, &in.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ service.Repository = (*Store)(nil)
