package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"telegram-entity-parser/internal/domain"
)

// ServerAPI перечисляет операции бэкенд-сервера, которые нужны боту и CLI.
type ServerAPI interface {
	StartTask(ctx context.Context, files []DocumentFile, types ...domain.EntityType) (*StartTaskResponse, error)
	StartTaskByHash(ctx context.Context, hash string) (*StartTaskResponse, error)
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error)
	GetTaskResult(ctx context.Context, taskID string, page, pageSize int) (*TaskResultResponse, error)
}

type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

type TaskStatusResponse struct {
	TaskID       string `json:"task_id"`
	Status       string `json:"status"`
	Hash         string `json:"hash,omitempty"`
	TotalItems   int    `json:"total_items"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type PaginationDTO struct {
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
}

type TaskResultResponse struct {
	Pagination PaginationDTO         `json:"pagination"`
	Data       []domain.EntityReport `json:"data"`
}

// DocumentFile представляет файл для загрузки.
type DocumentFile struct {
	Name    string
	Content io.Reader

	hash string
}

// ServerClient ходит в HTTP API сервера обработки.
type ServerClient struct {
	baseURL string
	http    *http.Client
}

// NewServerClient принимает адрес вида http://host:port. Некорректный адрес
// проявится ошибкой при первом запросе.
func NewServerClient(baseURL string, timeout time.Duration) *ServerClient {
	return &ServerClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *ServerClient) endpoint(path string, query url.Values) string {
	if len(query) == 0 {
		return c.baseURL + "/" + path
	}
	return c.baseURL + "/" + path + "?" + query.Encode()
}

// StartTask загружает файлы одной формой multipart. Порядок файлов сохраняется.
func (c *ServerClient) StartTask(ctx context.Context, files []DocumentFile, types ...domain.EntityType) (*StartTaskResponse, error) {
	body, contentType, err := multipartFiles(files)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	if len(types) > 0 {
		names := make([]string, len(types))
		for i, t := range types {
			names[i] = string(t)
		}
		query.Set("types", strings.Join(names, ","))
	}

	var result StartTaskResponse
	if err := c.call(ctx, http.MethodPost, c.endpoint("process", query), contentType, body, http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartTaskByHash создает задачу из ранее закэшированного результата.
func (c *ServerClient) StartTaskByHash(ctx context.Context, hash string) (*StartTaskResponse, error) {
	payload, err := json.Marshal(map[string]string{"hash": hash})
	if err != nil {
		return nil, err
	}

	var result StartTaskResponse
	if err := c.call(ctx, http.MethodPost, c.endpoint("process-by-hash", nil), "application/json", bytes.NewReader(payload), http.StatusAccepted, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ServerClient) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatusResponse, error) {
	var result TaskStatusResponse
	if err := c.call(ctx, http.MethodGet, c.endpoint("tasks/"+url.PathEscape(taskID), nil), "", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *ServerClient) GetTaskResult(ctx context.Context, taskID string, page, pageSize int) (*TaskResultResponse, error) {
	query := url.Values{
		"page":      {strconv.Itoa(page)},
		"page_size": {strconv.Itoa(pageSize)},
	}

	var result TaskResultResponse
	if err := c.call(ctx, http.MethodGet, c.endpoint("tasks/"+url.PathEscape(taskID)+"/result", query), "", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// call выполняет запрос и декодирует JSON-ответ в out, если код ответа равен want.
func (c *ServerClient) call(ctx context.Context, method, target, contentType string, body io.Reader, want int, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: unexpected status code %d: %s", method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func multipartFiles(files []DocumentFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, file := range files {
		part, err := w.CreateFormFile("files", file.Name)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file for %s: %w", file.Name, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to copy file content for %s: %w", file.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// FetchAllResults собирает все страницы с результатами задачи.
func FetchAllResults(ctx context.Context, api ServerAPI, taskID string, pageSize int) ([]domain.EntityReport, error) {
	all := make([]domain.EntityReport, 0)
	for page := 1; ; page++ {
		result, err := api.GetTaskResult(ctx, taskID, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to get task result page %d: %w", page, err)
		}
		all = append(all, result.Data...)

		if page >= result.Pagination.TotalPages {
			return all, nil
		}
	}
}

// WaitForTask опрашивает статус задачи с интервалом interval, пока она не завершится.
// Для задачи со статусом failed возвращается ошибка с ее сообщением.
func WaitForTask(ctx context.Context, api ServerAPI, taskID string, interval time.Duration) (*TaskStatusResponse, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		status, err := api.GetTaskStatus(ctx, taskID)
		if err != nil {
			return nil, err
		}
		switch status.Status {
		case "completed":
			return status, nil
		case "failed":
			return status, fmt.Errorf("task failed: %s", status.ErrorMessage)
		}
	}
}
