package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mt5_gateway/internal/models"
	"mt5_gateway/internal/modules/store/service"
	"mt5_gateway/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		role            TEXT NOT NULL DEFAULT 'user',
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		id         BIGSERIAL PRIMARY KEY,
		token      TEXT NOT NULL UNIQUE,
		name       TEXT NOT NULL DEFAULT '',
		user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trade_journal (
		id          TEXT PRIMARY KEY,
		username    TEXT NOT NULL,
		action      TEXT NOT NULL,
		ticket      BIGINT NOT NULL DEFAULT 0,
		symbol      TEXT NOT NULL DEFAULT '',
		direction   TEXT NOT NULL DEFAULT '',
		volume      DOUBLE PRECISION NOT NULL DEFAULT 0,
		price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		stop_loss   DOUBLE PRECISION NOT NULL DEFAULT 0,
		take_profit DOUBLE PRECISION NOT NULL DEFAULT 0,
		success     BOOLEAN NOT NULL,
		message     TEXT NOT NULL DEFAULT '',
		snapshot    JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS instruments (
		id                 BIGSERIAL PRIMARY KEY,
		symbol             TEXT NOT NULL UNIQUE,
		description        TEXT NOT NULL DEFAULT '',
		session            TEXT NOT NULL DEFAULT '',
		volatility_profile TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// Store репозиторий поверх PgTxManager.
type Store struct {
	db  *db.PgTxManager
	now func() time.Time
}

func New(tm *db.PgTxManager) *Store {
	return &Store{db: tm, now: time.Now}
}

// Migrate создаёт таблицы, если их ещё нет.
func (s *Store) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Migrate: %w", err)
		}
	}()
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, q := range migrations {
			if _, err := tx.Exec(ctxTx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// domainErr ошибки с kind отдаём как есть, остальные оборачиваем.
func domainErr(op string, err error) error {
	if err == nil || models.KindOf(err) != models.KindInternal {
		return err
	}
	return fmt.Errorf("pg.%s: %w", op, err)
}

func (s *Store) VerifyToken(ctx context.Context, token string) (p *models.Principal, err error) {
	defer func() { err = domainErr("VerifyToken", err) }()

	p = &models.Principal{Token: token}
	var role string
	err = s.db.Conn().QueryRow(ctx, `
		SELECT u.id, u.username, u.role
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = $1`, token).Scan(&p.UserID, &p.Username, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, service.ErrInvalidToken()
	}
	if err != nil {
		return nil, err
	}
	p.Role = models.Role(role)
	return p, nil
}

func (s *Store) CreateUser(ctx context.Context, username, password string, role models.Role) (u *models.User, err error) {
	defer func() { err = domainErr("CreateUser", err) }()

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
	err = s.db.Conn().QueryRow(ctx, `
		INSERT INTO users (username, hashed_password, role, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`,
		u.Username, u.HashedPassword, string(u.Role), u.CreatedAt).Scan(&u.ID)
	if isUnique(err) {
		return nil, service.ErrUserExists(name)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) CreateToken(ctx context.Context, username, name string) (tok *models.Token, err error) {
	defer func() { err = domainErr("CreateToken", err) }()

	uname, err := service.NormalizeUsername(username)
	if err != nil {
		return nil, err
	}
	secret, err := service.NewToken()
	if err != nil {
		return nil, err
	}

	tok = &models.Token{Token: secret, Name: name, Username: uname, CreatedAt: s.now().UTC()}
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		err := tx.QueryRow(ctxTx, `SELECT id FROM users WHERE username = $1`, uname).Scan(&tok.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrUserNotFound(uname)
		}
		if err != nil {
			return err
		}
		return tx.QueryRow(ctxTx, `
			INSERT INTO tokens (token, name, user_id, created_at)
			VALUES ($1, $2, $3, $4) RETURNING id`,
			tok.Token, tok.Name, tok.UserID, tok.CreatedAt).Scan(&tok.ID)
	})
	if err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *Store) AddJournalEntry(ctx context.Context, e *models.JournalEntry) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AddJournalEntry: %w", err)
		}
	}()

	if e.ID == "" {
		e.ID = service.NewJournalID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now().UTC()
	}
	var snapshot any
	if len(e.Snapshot) > 0 {
		snapshot = string(e.Snapshot)
	}
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO trade_journal
		(id, username, action, ticket, symbol, direction, volume, price, stop_loss, take_profit, success, message, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Username, e.Action, int64(e.Ticket), e.Symbol, e.Direction, e.Volume, e.Price,
		e.StopLoss, e.TakeProfit, e.Success, e.Message, snapshot, e.CreatedAt)
	return err
}

func (s *Store) ListJournal(ctx context.Context, limit int) (out []models.JournalEntry, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListJournal: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, username, action, ticket, symbol, direction, volume, price, stop_loss, take_profit,
		       success, message, COALESCE(snapshot::text, ''), created_at
		FROM trade_journal ORDER BY id DESC LIMIT $1`, service.ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out = []models.JournalEntry{}
	for rows.Next() {
		var (
			e        models.JournalEntry
			ticket   int64
			snapshot string
		)
		if err = rows.Scan(&e.ID, &e.Username, &e.Action, &ticket, &e.Symbol, &e.Direction, &e.Volume,
			&e.Price, &e.StopLoss, &e.TakeProfit, &e.Success, &e.Message, &snapshot, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Ticket = uint64(ticket)
		if snapshot != "" {
			e.Snapshot = []byte(snapshot)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpsertInstrument(ctx context.Context, in *models.Instrument) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.UpsertInstrument: %w", err)
		}
	}()

	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.now().UTC()
	}
	return s.db.Conn().QueryRow(ctx, `
		INSERT INTO instruments (symbol, description, session, volatility_profile, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol) DO UPDATE SET
			description = EXCLUDED.description,
			session = EXCLUDED.session,
			volatility_profile = EXCLUDED.volatility_profile
		RETURNING id, created_at`,
		in.Symbol, in.Description, in.Session, in.VolatilityProfile, in.CreatedAt).Scan(&in.ID, &in.CreatedAt)
}

func (s *Store) ListInstruments(ctx context.Context) (out []models.Instrument, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListInstruments: %w", err)
		}
	}()

	err = s.db.RunReadOnly(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, `
			SELECT id, symbol, description, session, volatility_profile, created_at
			FROM instruments ORDER BY symbol`)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Instrument, error) {
			var in models.Instrument
			err := row.Scan(&in.ID, &in.Symbol, &in.Description, &in.Session, &in.VolatilityProfile, &in.CreatedAt)
			return in, err
		})
		return err
	})
	if out == nil && err == nil {
		out = []models.Instrument{}
	}
	return out, err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

var _ service.Repository = (*Store)(nil)
