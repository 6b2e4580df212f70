package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"telegram-entity-parser/internal/adapters/source"
	"telegram-entity-parser/internal/cache"
	"telegram-entity-parser/internal/domain"
	"telegram-entity-parser/internal/pkg/config"
	"telegram-entity-parser/internal/server/usecase"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// UpdatesProcessor определяет интерфейс варианта использования, который обрабатывает файлы с обновлениями.
type UpdatesProcessor interface {
	Process(ctx context.Context, inputs []usecase.Input, types ...domain.EntityType) (usecase.Result, error)
	Decode(data []byte, types ...domain.EntityType) ([]domain.EntityReport, error)
}

// Pagination описывает страницу результата.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

// TaskResultResponse: тело ответа с результатом задачи.
type TaskResultResponse struct {
	Pagination Pagination            `json:"pagination"`
	Data       []domain.EntityReport `json:"data"`
}

// TaskStatusResponse: тело ответа со статусом задачи.
type TaskStatusResponse struct {
	TaskID       string     `json:"task_id"`
	Status       TaskStatus `json:"status"`
	Hash         string     `json:"hash,omitempty"`
	TotalItems   int        `json:"total_items"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Server представляет HTTP-сервер
type Server struct {
	HTTPServer *http.Server
	cfg        *config.Config
	taskStore  *TaskStore
	cacheStore *cache.CacheStore
	processor  UpdatesProcessor
	log        *slog.Logger
}

// New создает новый экземпляр Server
func New(cfg *config.Config, processor UpdatesProcessor, taskStore *TaskStore, cacheStore *cache.CacheStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:        cfg,
		taskStore:  taskStore,
		cacheStore: cacheStore,
		processor:  processor,
		log:        logger,
	}

	chiRouter := chi.NewRouter()

	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(s.requestLogger)
	chiRouter.Use(middleware.Recoverer)

	chiRouter.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	chiRouter.Route("/api/v1", func(r chi.Router) {
		r.Get("/entity-types", s.handleEntityTypes)
		r.Post("/decode", s.handleDecode)
		r.Post("/process", s.handleProcess)
		r.Post("/process-by-hash", s.handleProcessByHash)
		r.Get("/tasks/{taskID}", s.handleTaskStatus)
		r.Get("/tasks/{taskID}/result", s.handleTaskResult)
	})

	s.HTTPServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      chiRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s
}

// StartCleanup запускает периодическую очистку задач и кэша до отмены ctx.
func (s *Server) StartCleanup(ctx context.Context) {
	s.taskStore.StartCleanupTicker(ctx, s.cfg.Server.CleanupInterval)
	s.cacheStore.StartCleanupTicker(ctx, s.cfg.Server.CleanupInterval)
}

// ListenAndServe запускает HTTP-сервер
func (s *Server) ListenAndServe() error {
	return s.HTTPServer.ListenAndServe()
}

// Shutdown корректно завершает работу HTTP-сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")
	return s.HTTPServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleEntityTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.EntityType{"types": domain.AllEntityTypes()})
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize()))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusRequestEntityTooLarge)
		return
	}

	reports, err := s.processor.Decode(data, parseTypes(r)...)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to decode updates: %v", err), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, TaskResultResponse{
		Pagination: Pagination{CurrentPage: 1, PageSize: len(reports), TotalItems: len(reports), TotalPages: 1},
		Data:       reports,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadSize()); err != nil {
		http.Error(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		http.Error(w, "No files in form field 'files'", http.StatusBadRequest)
		return
	}

	inputs := make([]usecase.Input, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			http.Error(w, "Failed to open uploaded file", http.StatusBadRequest)
			return
		}
		src, err := source.FromReader(f, s.cfg.MaxUploadSize())
		f.Close()
		if err != nil {
			http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
			return
		}
		inputs = append(inputs, usecase.Input{Name: h.Filename, Source: src})
	}
	types := parseTypes(r)

	task := s.taskStore.Create()
	s.log.Info("Processing task created", "task_id", task.ID, "files", len(inputs))

	go s.runTask(task.ID, inputs, types)

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": task.ID})
}

func (s *Server) runTask(taskID string, inputs []usecase.Input, types []domain.EntityType) {
	if err := s.taskStore.Start(taskID); err != nil {
		s.log.Warn("Task vanished before start", "task_id", taskID, "error", err)
		return
	}

	ctx := context.Background()
	if s.cfg.Processing.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Processing.TaskTimeout)
		defer cancel()
	}

	res, err := s.processor.Process(ctx, inputs, types...)
	if err != nil {
		s.log.Error("Processing task failed", "task_id", taskID, "error", err)
		_ = s.taskStore.Fail(taskID, err.Error())
		return
	}

	if err := s.taskStore.Complete(taskID, res.Hash, res.Reports); err != nil {
		s.log.Warn("Failed to store task result", "task_id", taskID, "error", err)
		return
	}
	s.log.Info("Processing task completed", "task_id", taskID, "entities", len(res.Reports), "cached", res.Cached)
}

func (s *Server) handleProcessByHash(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Hash string `json:"hash"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to decode request body", http.StatusBadRequest)
		return
	}
	if req.Hash == "" {
		http.Error(w, "Hash is required", http.StatusBadRequest)
		return
	}

	task := s.taskStore.Create()

	if reports, found := s.cacheStore.Get(req.Hash); found {
		_ = s.taskStore.Complete(task.ID, req.Hash, reports)
		s.log.Info("Cache hit for hash", "hash", req.Hash, "task_id", task.ID)
	} else {
		// Без исходных файлов задачу можно выполнить только из кэша.
		_ = s.taskStore.Fail(task.ID, "no cached result for this hash")
		s.log.Info("Cache miss for hash", "hash", req.Hash, "task_id", task.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": task.ID})
}

func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, TaskStatusResponse{
		TaskID:       task.ID,
		Status:       task.Status,
		Hash:         task.Hash,
		TotalItems:   len(task.Reports),
		ErrorMessage: task.ErrorMessage,
	})
}

func (s *Server) handleTaskResult(w http.ResponseWriter, r *http.Request) {
	task, err := s.taskStore.Get(chi.URLParam(r, "taskID"))
	if err != nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	if task.Status != TaskStatusCompleted {
		http.Error(w, "Task is not completed", http.StatusBadRequest)
		return
	}

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	pageSize, err := queryInt(r, "page_size", defaultPageSize)
	if err != nil || pageSize < 1 {
		http.Error(w, "Invalid page_size", http.StatusBadRequest)
		return
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	writeJSON(w, http.StatusOK, paginate(task.Reports, page, pageSize))
}

func paginate(items []domain.EntityReport, page, pageSize int) TaskResultResponse {
	total := len(items)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	return TaskResultResponse{
		Pagination: Pagination{
			CurrentPage: page,
			PageSize:    pageSize,
			TotalItems:  total,
			TotalPages:  (total + pageSize - 1) / pageSize,
		},
		Data: items[start:end],
	}
}

// parseTypes читает фильтр типов из параметра types=mention,hashtag.
func parseTypes(r *http.Request) []domain.EntityType {
	raw := r.URL.Query().Get("types")
	if raw == "" {
		return nil
	}
	var types []domain.EntityType
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, domain.EntityType(t))
		}
	}
	return types
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
