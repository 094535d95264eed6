package user

import "time"

// User - кассир или администратор точки, работающий с сервером каталога.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}
