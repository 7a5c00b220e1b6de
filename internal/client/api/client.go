package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/pkg/api"
)

// Client представляет HTTP клиент удаленного хранилища repsync-server
type Client struct {
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *slog.Logger
	baseURL    string
}

// NewClient создает новый API клиент. timeout ограничивает один запрос,
// engine дополнительно задает дедлайн через context.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: timeout,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: timeout,
		},
	}
}

// Health проверяет доступность сервера
func (c *Client) Health(ctx context.Context) error {
	var resp api.HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil, &resp); err != nil {
		return fmt.Errorf("health request failed: %w", err)
	}
	return nil
}

// Write отправляет мутацию с ключом идемпотентности
func (c *Client) Write(ctx context.Context, req WriteRequest) (*WriteResult, error) {
	body := api.WriteRequest{
		Operation:   string(req.Operation),
		Payload:     req.Payload,
		BaseVersion: req.BaseVersion,
		Origin:      req.Origin,
	}
	headers := map[string]string{api.IdempotencyKeyHeader: req.IdempotencyKey}

	var resp api.WriteResponse
	if err := c.doRequest(ctx, http.MethodPut, entityPath(req.EntityType, req.EntityID), headers, body, &resp); err != nil {
		return nil, fmt.Errorf("write %s/%s failed: %w", req.EntityType, req.EntityID, err)
	}

	return &WriteResult{
		Entity:        resp.Entity.ToEntity(),
		ChangedFields: resp.ChangedFields,
		Replayed:      resp.Replayed,
	}, nil
}

// Read получает текущий снимок сущности
func (c *Client) Read(ctx context.Context, entityType, id string) (*models.Entity, error) {
	var resp api.EntityDTO
	if err := c.doRequest(ctx, http.MethodGet, entityPath(entityType, id), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("read %s/%s failed: %w", entityType, id, err)
	}
	return resp.ToEntity(), nil
}

func entityPath(entityType, id string) string {
	return fmt.Sprintf("/api/v1/entities/%s/%s", url.PathEscape(entityType), url.PathEscape(id))
}

// doRequest выполняет HTTP запрос и классифицирует ошибку
func (c *Client) doRequest(ctx context.Context, method, path string, headers map[string]string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal request body: %w", ErrValidation, err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Таймаут или обрыв соединения: запись могла примениться
		return fmt.Errorf("%w: request failed: %w", ErrTransient, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransient, err)
	}

	if resp.StatusCode == http.StatusConflict {
		var conflict api.ConflictResponse
		if err := json.Unmarshal(respBody, &conflict); err != nil {
			return fmt.Errorf("%w: failed to decode conflict: %w", ErrTransient, err)
		}
		ce := &ConflictError{
			ChangedFields: conflict.ChangedFields,
			ChangedKnown:  conflict.ChangedKnown,
			BaseVersion:   conflict.BaseVersion,
		}
		if conflict.Current != nil {
			ce.Current = conflict.Current.ToEntity()
		}
		return ce
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var errResp api.ErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			msg = errResp.Error
			if errResp.Message != "" {
				msg = errResp.Message
			}
		}
		return fmt.Errorf("%w: server error (%d): %s", classifyStatus(resp.StatusCode), resp.StatusCode, msg)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %w", ErrTransient, err)
		}
	}

	return nil
}

// classifyStatus сопоставляет HTTP статус с ошибкой удаленного хранилища
func classifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return ErrTransient
	case code >= 500:
		return ErrTransient
	default:
		return ErrValidation
	}
}
