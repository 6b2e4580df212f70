package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"

	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

// ResolveUsername находит пользователя по username через contacts.resolveUsername.
// Несуществующий username или username канала дают ports.ErrUserNotResolved.
// Найденные пользователи запоминаются на время жизни клиента.
func (c *Client) ResolveUsername(ctx context.Context, username string) (*domain.User, error) {
	key := strings.ToLower(strings.TrimPrefix(username, "@"))
	if key == "" {
		return nil, fmt.Errorf("%w: empty username", ports.ErrUserNotResolved)
	}

	if u, ok := c.cachedUser(key); ok {
		return u, nil
	}

	var resolved *tg.ContactsResolvedPeer
	c.log.DebugContext(ctx, "Executing API call: ContactsResolveUsername", "username", key)
	err := c.do(ctx, func(ctx context.Context) error {
		res, err := c.tgRunner.API().ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: key})
		if err == nil {
			resolved = res
		}
		return err
	})
	if err != nil {
		if tgerr.Is(err, "USERNAME_NOT_OCCUPIED", "USERNAME_INVALID") {
			return nil, fmt.Errorf("%w: @%s", ports.ErrUserNotResolved, key)
		}
		if !errors.Is(err, ErrFloodWaitActive) {
			c.log.WarnContext(ctx, "API call ContactsResolveUsername failed", "username", key, "error", err)
		}
		return nil, err
	}

	user, err := userFromResolvedPeer(resolved, key)
	if err != nil {
		return nil, err
	}

	c.cacheMu.Lock()
	c.users[key] = user
	c.cacheMu.Unlock()

	return copyUser(user), nil
}

func (c *Client) cachedUser(key string) (*domain.User, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	u, ok := c.users[key]
	if !ok {
		return nil, false
	}
	return copyUser(u), true
}

func copyUser(u *domain.User) *domain.User {
	cp := *u
	return &cp
}

// userFromResolvedPeer выбирает пользователя, на которого указывает разрешенный peer.
func userFromResolvedPeer(resolved *tg.ContactsResolvedPeer, username string) (*domain.User, error) {
	if resolved == nil {
		return nil, fmt.Errorf("%w: @%s: empty response", ports.ErrUserNotResolved, username)
	}
	peer, ok := resolved.Peer.(*tg.PeerUser)
	if !ok {
		return nil, fmt.Errorf("%w: @%s resolved to %T", ports.ErrUserNotResolved, username, resolved.Peer)
	}

	for _, u := range resolved.Users {
		user, ok := u.(*tg.User)
		if !ok || user.ID != peer.UserID {
			continue
		}
		return &domain.User{
			ID:           user.ID,
			IsBot:        user.Bot,
			FirstName:    user.FirstName,
			LastName:     user.LastName,
			Username:     user.Username,
			LanguageCode: user.LangCode,
		}, nil
	}
	return nil, fmt.Errorf("%w: @%s: user %d missing in response", ports.ErrUserNotResolved, username, peer.UserID)
}
