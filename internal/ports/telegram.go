package ports

import (
	"context"
	"errors"
	"telegram-entity-parser/internal/domain"
)

// UserResolver находит пользователя Telegram по username.
type UserResolver interface {
	ResolveUsername(ctx context.Context, username string) (*domain.User, error)
}

// TelegramClient определяет публичный интерфейс для клиента MTProto.
type TelegramClient interface {
	UserResolver
	Health(ctx context.Context) error
	ID() string
	Start(ctx context.Context)
}

// ErrUserNotResolved является терминальной ошибкой: пользователь с таким username не существует
// или username принадлежит не пользователю.
var ErrUserNotResolved = errors.New("user not resolvable")
