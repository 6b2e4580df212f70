package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"
)

// Config хранит конфигурацию для ResolutionService.
type Config struct {
	// TotalTimeout: максимальная продолжительность обработки всего списка упоминаний.
	TotalTimeout time.Duration
	// OperationTimeout: таймаут для одного вызова Telegram API.
	OperationTimeout time.Duration
	// PoolSize: количество одновременных воркеров.
	PoolSize int
	// MaxAttempts: сколько раз пытаться разрешить username при временных ошибках.
	MaxAttempts int
}

// Option: функциональная опция для настройки ResolutionService.
type Option func(*ResolutionService)

// WithTotalTimeout устанавливает общий таймаут для процесса.
func WithTotalTimeout(d time.Duration) Option {
	return func(s *ResolutionService) {
		if d > 0 {
			s.config.TotalTimeout = d
		}
	}
}

// WithOperationTimeout устанавливает таймаут для одной операции API.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *ResolutionService) {
		if d > 0 {
			s.config.OperationTimeout = d
		}
	}
}

// WithPoolSize устанавливает количество одновременных воркеров.
func WithPoolSize(n int) Option {
	return func(s *ResolutionService) {
		if n > 0 {
			s.config.PoolSize = n
		}
	}
}

// WithMaxAttempts устанавливает число попыток для одного username.
func WithMaxAttempts(n int) Option {
	return func(s *ResolutionService) {
		if n > 0 {
			s.config.MaxAttempts = n
		}
	}
}

// WithLogger устанавливает логгер для сервиса.
func WithLogger(l *slog.Logger) Option {
	return func(s *ResolutionService) {
		if l != nil {
			s.log = l
		}
	}
}

// ResolutionService заполняет пользователя у упоминаний вида @username,
// запрашивая его через UserResolver. Сервис не хранит состояние между вызовами.
type ResolutionService struct {
	resolver ports.UserResolver
	config   Config
	log      *slog.Logger
}

// NewResolutionService создает ResolutionService с конфигурацией по умолчанию,
// которую можно переопределить опциями.
func NewResolutionService(r ports.UserResolver, opts ...Option) *ResolutionService {
	s := &ResolutionService{
		resolver: r,
		config: Config{
			TotalTimeout:     5 * time.Minute,
			OperationTimeout: 5 * time.Second,
			PoolSize:         1,
			MaxAttempts:      3,
		},
		log: slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type resolveTask struct {
	username string
	attempt  int
}

type resolveResult struct {
	username string
	user     *domain.User
	err      error
}

// Resolve возвращает копию reports, в которой упоминания получили найденных пользователей.
// Ненайденные username пропускаются. При общем таймауте возвращается частичный результат и ошибка.
func (s *ResolutionService) Resolve(ctx context.Context, reports []domain.EntityReport) ([]domain.EntityReport, error) {
	resolved := make([]domain.EntityReport, len(reports))
	copy(resolved, reports)

	usernames := collectUsernames(resolved)
	if len(usernames) == 0 {
		return resolved, nil
	}

	cfg := s.config
	ctx, cancel := context.WithTimeout(ctx, cfg.TotalTimeout)
	defer cancel()

	s.log.InfoContext(ctx, "Starting mention resolution",
		"mentions", len(usernames),
		"pool_size", cfg.PoolSize,
		"total_timeout", cfg.TotalTimeout,
	)

	tasks := make(chan resolveTask, len(usernames))
	results := make(chan resolveResult, len(usernames))
	var wg sync.WaitGroup

	for i := 0; i < cfg.PoolSize; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, &cfg, tasks, results)
	}

	for _, u := range usernames {
		tasks <- resolveTask{username: u}
	}

	users := make(map[string]*domain.User, len(usernames))
	var processingErrors []error

	for finished := 0; finished < len(usernames); finished++ {
		select {
		case res := <-results:
			if res.err != nil {
				processingErrors = append(processingErrors, res.err)
			} else if res.user != nil {
				users[res.username] = res.user
			}
		case <-ctx.Done():
			applyUsers(resolved, users)
			err := fmt.Errorf("mention resolution timed out: %w", ctx.Err())
			s.log.WarnContext(ctx, "Mention resolution timed out", "resolved_count", len(users), "error", err)
			return resolved, err
		}
	}

	close(tasks)
	wg.Wait()
	close(results)

	applyUsers(resolved, users)

	if len(processingErrors) > 0 {
		return resolved, errors.Join(processingErrors...)
	}

	s.log.InfoContext(ctx, "Mention resolution finished", "resolved_count", len(users))
	return resolved, nil
}

func (s *ResolutionService) worker(ctx context.Context, wg *sync.WaitGroup, cfg *Config, tasks chan resolveTask, results chan<- resolveResult) {
	defer wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-tasks:
			if !ok {
				return
			}

			opCtx, opCancel := context.WithTimeout(ctx, cfg.OperationTimeout)
			user, err := s.resolver.ResolveUsername(opCtx, task.username)
			opCancel()

			switch {
			case err == nil:
				s.log.DebugContext(ctx, "Mention resolved", "username", task.username)
				results <- resolveResult{username: task.username, user: user}
			case errors.Is(err, ports.ErrUserNotResolved):
				// Промах, а не ошибка процесса.
				s.log.DebugContext(ctx, "Username could not be resolved, skipping", "username", task.username, "error", err)
				results <- resolveResult{username: task.username}
			case ctx.Err() != nil:
				s.log.WarnContext(ctx, "Failed to resolve username due to context cancellation", "username", task.username, "error", err)
				results <- resolveResult{username: task.username, err: err}
			case task.attempt+1 >= cfg.MaxAttempts:
				s.log.WarnContext(ctx, "Giving up on username", "username", task.username, "attempts", task.attempt+1, "error", err)
				results <- resolveResult{username: task.username, err: fmt.Errorf("failed to resolve @%s: %w", task.username, err)}
			default:
				s.log.WarnContext(ctx, "Re-queueing username due to transient error", "username", task.username, "error", err)
				task.attempt++
				tasks <- task
			}
		}
	}
}

// collectUsernames возвращает уникальные (без учета регистра) username упоминаний без пользователя.
func collectUsernames(reports []domain.EntityReport) []string {
	seen := make(map[string]struct{})
	var usernames []string
	for i := range reports {
		if reports[i].User != nil {
			continue
		}
		name := strings.ToLower(reports[i].Username())
		if name == "" {
			continue
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			usernames = append(usernames, name)
		}
	}
	return usernames
}

func applyUsers(reports []domain.EntityReport, users map[string]*domain.User) {
	for i := range reports {
		if reports[i].User != nil {
			continue
		}
		if u, ok := users[strings.ToLower(reports[i].Username())]; ok {
			reports[i].User = u
		}
	}
}
