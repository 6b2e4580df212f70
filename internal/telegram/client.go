package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"golang.org/x/term"

	"telegram-entity-parser/internal/domain"
	trm "telegram-entity-parser/internal/pkg/term"
	"telegram-entity-parser/internal/ports"
)

// ErrClientStopped возвращается для запросов к клиенту, фоновый процесс которого завершился.
var ErrClientStopped = errors.New("telegram client is not running")

// telegramAPI: методы MTProto, которые использует клиент.
type telegramAPI interface {
	UsersGetUsers(ctx context.Context, request []tg.InputUserClass) ([]tg.UserClass, error)
	ContactsResolveUsername(ctx context.Context, req *tg.ContactsResolveUsernameRequest) (*tg.ContactsResolvedPeer, error)
	HelpGetConfig(ctx context.Context) (*tg.Config, error)
}

// telegramRunner отделяет клиент от *telegram.Client gotd.
type telegramRunner interface {
	Run(ctx context.Context, f func(ctx context.Context) error) error
	API() telegramAPI
	Auth() auth.FlowClient
}

type prodRunner struct {
	*telegram.Client
}

func (p *prodRunner) API() telegramAPI {
	return p.Client.API()
}

func (p *prodRunner) Auth() auth.FlowClient {
	return p.Client.Auth()
}

type authFlow interface {
	Run(ctx context.Context, client auth.FlowClient) error
}

// Client держит пользовательскую сессию MTProto, через которую разрешаются упоминания @username.
// Запросы ждут завершения авторизации и приостанавливаются на время FLOOD_WAIT.
type Client struct {
	id         string
	tgRunner   telegramRunner
	authFlow   authFlow
	isTerminal func(fd int) bool
	gate       *floodGate
	log        *slog.Logger

	startOnce sync.Once
	ready     chan struct{}
	done      chan struct{}
	runErr    error

	cacheMu sync.RWMutex
	users   map[string]*domain.User
}

// Config содержит конфигурацию для создания нового клиента.
type Config struct {
	APIID       int
	APIHash     string
	PhoneNumber string
	SessionPath string
}

var _ ports.TelegramClient = (*Client)(nil)

// ClientOption определяет функциональную опцию для конфигурации клиента.
type ClientOption func(*Client)

// WithLogger устанавливает логгер для клиента.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
			c.gate.log = l
		}
	}
}

// NewClient создает клиента. Сессия хранится в файле cfg.SessionPath;
// при ее отсутствии авторизация проходит интерактивно в терминале.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	tgClient := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: cfg.SessionPath},
	})

	c := newClient(&prodRunner{Client: tgClient}, auth.NewFlow(trm.NewTerminal(cfg.PhoneNumber), auth.SendCodeOptions{}), time.Now)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newClient(runner telegramRunner, flow authFlow, clock func() time.Time) *Client {
	logger := slog.Default()
	return &Client{
		id:         uuid.NewString(),
		tgRunner:   runner,
		authFlow:   flow,
		isTerminal: term.IsTerminal,
		gate:       &floodGate{clock: clock, log: logger},
		log:        logger,
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
		users:      make(map[string]*domain.User),
	}
}

// ID возвращает уникальный идентификатор клиента.
func (c *Client) ID() string {
	return c.id
}

// Start запускает соединение в фоне: проверяет сессию, при необходимости
// авторизуется и держит соединение до отмены ctx. Повторные вызовы ничего не делают.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	c.log.InfoContext(ctx, "Starting telegram client background runner", "client_id", c.id)
	err := c.tgRunner.Run(ctx, func(runCtx context.Context) error {
		if err := c.ensureAuthorized(runCtx); err != nil {
			return err
		}
		c.log.InfoContext(runCtx, "Telegram client authenticated and ready", "client_id", c.id)
		close(c.ready)

		<-runCtx.Done()
		return runCtx.Err()
	})

	if err != nil && !errors.Is(err, context.Canceled) {
		c.log.ErrorContext(ctx, "Telegram client background runner exited with error", "client_id", c.id, "error", err)
	} else {
		c.log.InfoContext(ctx, "Telegram client background runner stopped", "client_id", c.id)
	}
	c.runErr = err
}

// ensureAuthorized проверяет сохраненную сессию и запускает интерактивную авторизацию,
// если сессии нет. Без терминала авторизация невозможна.
func (c *Client) ensureAuthorized(ctx context.Context) error {
	_, err := c.tgRunner.API().UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUserSelf{}})
	if err == nil {
		return nil
	}

	if strings.Contains(err.Error(), "AUTH_KEY_UNREGISTERED") {
		c.log.WarnContext(ctx, "Session check failed, attempting interactive auth", "client_id", c.id, "reason", "AUTH_KEY_UNREGISTERED")
	} else {
		c.log.WarnContext(ctx, "Session check failed, attempting interactive auth", "client_id", c.id, "error", err)
	}

	if !c.isTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("session is invalid and cannot perform interactive auth in non-terminal: %w", err)
	}
	if authErr := c.authFlow.Run(ctx, c.tgRunner.Auth()); authErr != nil {
		return fmt.Errorf("interactive auth failed: %w", authErr)
	}
	c.log.InfoContext(ctx, "Interactive auth successful, session saved", "client_id", c.id)
	return nil
}

// Health проверяет, что клиент готов и Telegram отвечает.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		_, err := c.tgRunner.API().HelpGetConfig(ctx)
		return err
	})
}

// do выполняет запрос f, когда клиент авторизован и не находится в FLOOD_WAIT.
func (c *Client) do(ctx context.Context, f func(ctx context.Context) error) error {
	if err := c.gate.check(); err != nil {
		return err
	}

	select {
	case <-c.ready:
	case <-c.done:
		return fmt.Errorf("%w: %v", ErrClientStopped, c.runErr)
	case <-ctx.Done():
		return fmt.Errorf("telegram client is not ready: %w", ctx.Err())
	}

	err := f(ctx)
	if err == nil {
		return nil
	}
	c.gate.observe(err)

	select {
	case <-c.done:
		return fmt.Errorf("%w: %v (operation error: %v)", ErrClientStopped, c.runErr, err)
	default:
		return err
	}
}
