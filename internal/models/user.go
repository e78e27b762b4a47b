package models

import "time"

// Role роль пользователя API.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User владелец токенов.
type User struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"`
	Role           Role      `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
}

// Token API-ключ пользователя.
type Token struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal кто стоит за запросом.
type Principal struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Token    string `json:"-"`
}

// JournalEntry запись торгового журнала. Пишется HTTP-слоем после результата операции.
type JournalEntry struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Action     string    `json:"action"`
	Ticket     uint64    `json:"ticket,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Direction  string    `json:"direction,omitempty"`
	Volume     float64   `json:"volume,omitempty"`
	Price      float64   `json:"price,omitempty"`
	StopLoss   float64   `json:"stop_loss,omitempty"`
	TakeProfit float64   `json:"take_profit,omitempty"`
	Success    bool      `json:"success"`
	Message    string    `json:"message"`
	Snapshot   []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
}

// Instrument справочные данные по инструменту.
type Instrument struct {
	ID                int64     `json:"id"`
	Symbol            string    `json:"symbol" validate:"required"`
	Description       string    `json:"description"`
	Session           string    `json:"session"`
	VolatilityProfile string    `json:"volatility_profile"`
	CreatedAt         time.Time `json:"created_at"`
}
