package models

import "time"

// User - учетная запись. Пароль храним только в виде bcrypt-хэша.
// TelegramID заполняется после привязки бота (0 = не привязан).
type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	TelegramID   int64     `json:"telegram_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
