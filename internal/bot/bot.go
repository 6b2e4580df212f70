package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"telegram-entity-parser/cmd/bot/config"
	"telegram-entity-parser/internal/adapters/exporter"
	"telegram-entity-parser/internal/adapters/parser"
	"telegram-entity-parser/internal/cache"
	"telegram-entity-parser/internal/core/services"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/ports"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	startCommand = "start"
	typesCommand = "types"

	maxMessageLength = 4096
)

// fileBatch накапливает документы, присланные одним чатом подряд.
type fileBatch struct {
	docs  []*tgbotapi.Document
	timer *time.Timer
}

// selfBot передает декодеру данные аккаунта бота.
type selfBot struct {
	user tgbotapi.User
}

func (s selfBot) ID() int64        { return s.user.ID }
func (s selfBot) UserName() string { return s.user.UserName }

// Bot представляет собой основной объект Telegram-бота.
type Bot struct {
	api          *tgbotapi.BotAPI
	cfg          config.BotConfig
	serverClient ServerAPI
	taskStore    *TaskStore
	extractor    ports.ExtractionService
	self         domain.Bot
	logger       *slog.Logger
	httpClient   *http.Client

	pendingFiles      map[int64]*fileBatch
	pendingFilesMutex sync.Mutex

	sendMessageFunc      func(tgbotapi.Chattable) (tgbotapi.Message, error)
	getFileDirectURLFunc func(fileID string) (string, error)
}

// NewBot создает и инициализирует новый экземпляр бота.
func NewBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}

	logger.Info("Authorized on account", slog.String("username", api.Self.UserName))

	b := newBot(cfg, serverClient, taskStore, logger)
	b.api = api
	b.self = selfBot{user: api.Self}
	b.sendMessageFunc = api.Send
	b.getFileDirectURLFunc = api.GetFileDirectURL
	return b, nil
}

func newBot(cfg config.BotConfig, serverClient ServerAPI, taskStore *TaskStore, logger *slog.Logger) *Bot {
	return &Bot{
		cfg:          cfg,
		serverClient: serverClient,
		taskStore:    taskStore,
		extractor:    services.NewExtractionService(),
		logger:       logger,
		httpClient:   &http.Client{Timeout: cfg.HTTPTimeout},
		pendingFiles: make(map[int64]*fileBatch),
	}
}

// Start запускает основной цикл обработки обновлений от Telegram.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Context cancelled, stopping bot...")
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение.
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	if len(msg.Entities) > 0 || len(msg.CaptionEntities) > 0 {
		b.handleEntities(msg)
		return
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, "Отправьте мне сообщение с форматированием, ссылками или упоминаниями, "+
		"либо JSON-файл с обновлениями Bot API.")
	b.sendMessage(reply)
}

// handleCommand обрабатывает команды.
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case startCommand:
		replyText := "Добро пожаловать! Я разбираю сущности сообщений Telegram.\n\n" +
			"• Перешлите мне сообщение, и я покажу его упоминания, ссылки, хэштеги и форматирование.\n" +
			fmt.Sprintf("• Отправьте до %d JSON-файлов с обновлениями Bot API, и я извлеку сущности из всех сообщений.\n", b.cfg.MaxFilesPerMessage) +
			"• /types покажет поддерживаемые типы сущностей.\n\n" +
			"Файлы не сохраняются на сервере и обрабатываются на лету."
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, replyText))
	case typesCommand:
		var sb strings.Builder
		sb.WriteString("Поддерживаемые типы сущностей:\n")
		for _, t := range domain.AllEntityTypes() {
			sb.WriteString("• " + t.String() + "\n")
		}
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, sb.String()))
	default:
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, "Я не знаю такой команды."))
	}
}

// handleEntities отвечает разбором сущностей самого сообщения.
func (b *Bot) handleEntities(msg *tgbotapi.Message) {
	logger := b.logger.With(slog.Int64("chat_id", msg.Chat.ID))

	reports, err := b.breakdown(msg)
	if err != nil {
		logger.Error("failed to decode message entities", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(msg.Chat.ID, "Не удалось разобрать сущности сообщения."))
		return
	}

	logger.Debug("message entities decoded", slog.Int("count", len(reports)))
	b.sendReports(msg.Chat.ID, reports)
}

// breakdown перекодирует сообщение в JSON и декодирует его тем же декодером, что и сервер.
func (b *Bot) breakdown(msg *tgbotapi.Message) ([]domain.EntityReport, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	payload, err := parser.UnmarshalPayload(data)
	if err != nil {
		return nil, err
	}

	decoded, err := parser.DecodeMessage(payload, b.self)
	if err != nil {
		return nil, err
	}

	return b.extractor.ExtractEntities([]domain.Update{{Message: decoded}})
}

// handleDocument добавляет документ в пачку файлов чата.
// Пачка отправляется на сервер по таймауту или при достижении лимита файлов.
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	logger := b.logger.With(slog.Int64("chat_id", chatID))

	if _, ok := b.taskStore.Get(chatID); ok {
		logger.Warn("user tried to start a new task while another is active")
		b.sendMessage(tgbotapi.NewMessage(chatID, "Пожалуйста, подождите завершения предыдущей задачи, прежде чем начинать новую."))
		return
	}

	b.pendingFilesMutex.Lock()
	batch, exists := b.pendingFiles[chatID]
	if !exists {
		batch = &fileBatch{}
		batch.timer = time.AfterFunc(b.cfg.FileBatchTimeout, func() {
			b.processFileBatch(ctx, chatID)
		})
		b.pendingFiles[chatID] = batch
	}

	if len(batch.docs) >= b.cfg.MaxFilesPerMessage {
		batch.timer.Stop()
		delete(b.pendingFiles, chatID)
		b.pendingFilesMutex.Unlock()

		logger.Warn("file limit exceeded", slog.Int("limit", b.cfg.MaxFilesPerMessage))
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Превышен лимит файлов в одном сообщении: можно отправить не более %d файлов. Отправьте файлы заново.",
			b.cfg.MaxFilesPerMessage)))
		return
	}

	batch.docs = append(batch.docs, msg.Document)
	full := len(batch.docs) >= b.cfg.MaxFilesPerMessage
	if full {
		batch.timer.Stop()
	}
	b.pendingFilesMutex.Unlock()

	logger.Debug("document added to batch", slog.String("file_name", msg.Document.FileName))

	if full {
		go b.processFileBatch(ctx, chatID)
	}
}

// processFileBatch скачивает файлы пачки и запускает задачу на бэкенде.
func (b *Bot) processFileBatch(ctx context.Context, chatID int64) {
	b.pendingFilesMutex.Lock()
	batch, ok := b.pendingFiles[chatID]
	delete(b.pendingFiles, chatID)
	b.pendingFilesMutex.Unlock()

	if !ok || len(batch.docs) == 0 {
		return
	}

	logger := b.logger.With(slog.Int64("chat_id", chatID))

	files := make([]DocumentFile, 0, len(batch.docs))
	for _, doc := range batch.docs {
		data, err := b.downloadFile(ctx, doc.FileID)
		if err != nil {
			logger.Error("failed to download file", slog.String("file_name", doc.FileName), slog.String("error", err.Error()))
			b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Не удалось скачать файл %s. Попробуйте отправить его еще раз.", doc.FileName)))
			return
		}
		files = append(files, DocumentFile{Name: doc.FileName, Content: bytes.NewReader(data), hash: cache.CalculateHash(data)})
	}

	// Один и тот же набор файлов всегда уходит в одном порядке.
	sort.Slice(files, func(i, j int) bool {
		return files[i].hash < files[j].hash
	})

	startResp, err := b.serverClient.StartTask(ctx, files)
	if err != nil {
		logger.Error("failed to start task on backend", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось начать обработку файлов на сервере. Пожалуйста, попробуйте позже."))
		return
	}

	taskID := startResp.TaskID
	logger.Info("task started on backend", slog.String("task_id", taskID), slog.Int("files", len(files)))

	b.taskStore.Set(chatID, taskID)
	go b.pollTaskStatus(context.Background(), chatID, taskID)

	b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Получено файлов: %d. Обработка поставлена в очередь, ожидайте результата.", len(files))))
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	fileURL, err := b.getFileDirectURLFunc(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file direct url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// pollTaskStatus ждет завершения задачи и отправляет результат в чат.
func (b *Bot) pollTaskStatus(ctx context.Context, chatID int64, taskID string) {
	logger := b.logger.With(slog.Int64("chat_id", chatID), slog.String("task_id", taskID))
	defer b.taskStore.Delete(chatID)

	if _, err := WaitForTask(ctx, b.serverClient, taskID, b.cfg.PollingInterval); err != nil {
		logger.Warn("task failed", slog.String("reason", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, fmt.Sprintf("Произошла ошибка при обработке файлов: %v", err)))
		return
	}

	if elapsed, ok := b.taskStore.Elapsed(chatID); ok {
		logger = logger.With(slog.Duration("elapsed", elapsed))
	}
	logger.Info("task completed")
	reports, err := FetchAllResults(ctx, b.serverClient, taskID, b.cfg.ResultPageSize)
	if err != nil {
		logger.Error("failed to fetch all results", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось получить результаты для выполненной задачи. Пожалуйста, попробуйте позже."))
		return
	}

	logger.Info("successfully fetched all results", slog.Int("entity_count", len(reports)))
	b.sendReports(chatID, reports)
}

// sendReports выбирает формат ответа в зависимости от количества сущностей.
func (b *Bot) sendReports(chatID int64, reports []domain.EntityReport) {
	if len(reports) == 0 {
		b.sendMessage(tgbotapi.NewMessage(chatID, "Сущности не найдены."))
		return
	}

	if len(reports) >= b.cfg.ExcelThreshold {
		b.logger.Info("entity count is over threshold, sending excel file", slog.Int64("chat_id", chatID))
		b.sendExcelResult(chatID, reports)
		return
	}

	text := fmt.Sprintf("Найдено сущностей: %d\n<pre><code>%s</code></pre>", len(reports), renderTable(reports, b.cfg.Render))
	if len(text) > maxMessageLength {
		b.logger.Warn("rendered table is too long, sending excel file", slog.Int("length", len(text)))
		b.sendExcelResult(chatID, reports)
		return
	}

	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeHTML
	b.sendMessage(reply)
}

func (b *Bot) sendExcelResult(chatID int64, reports []domain.EntityReport) {
	var buf bytes.Buffer
	if err := exporter.WriteExcel(&buf, reports); err != nil {
		b.logger.Error("failed to write excel to buffer", slog.String("error", err.Error()))
		b.sendMessage(tgbotapi.NewMessage(chatID, "Не удалось сгенерировать Excel-файл."))
		return
	}

	fileBytes := tgbotapi.FileBytes{
		Name:  fmt.Sprintf("message_entities_%s.xlsx", time.Now().Format("2006-01-02_15-04-05")),
		Bytes: buf.Bytes(),
	}

	msg := tgbotapi.NewDocument(chatID, fileBytes)
	msg.Caption = fmt.Sprintf("Анализ завершен. Найдено сущностей: %d.", len(reports))
	b.sendMessage(msg)
}

func (b *Bot) sendMessage(msg tgbotapi.Chattable) {
	if _, err := b.sendMessageFunc(msg); err != nil {
		b.logger.Error("failed to send message", slog.String("error", err.Error()))
	}
}
