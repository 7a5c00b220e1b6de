package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/pkg/api"
)

// Subscribe открывает WebSocket ленты изменений. Сервер сначала повторяет
// изменения после sub.Since, затем присылает новые.
func (c *Client) Subscribe(ctx context.Context, sub Subscription, handler ChangeHandler) (func(), error) {
	query := url.Values{}
	if sub.Topic != "" {
		query.Set("topic", sub.Topic)
	}
	query.Set("since", strconv.FormatInt(sub.Since, 10))

	conn, err := c.dial(ctx, "/api/v1/changes?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Change feed connected", "topic", sub.Topic, "since", sub.Since)

	stop := make(chan struct{})
	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(stop)
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-stop:
		}
	}()

	go func() {
		var readErr error
		for {
			var change api.ChangeDTO
			if err := conn.ReadJSON(&change); err != nil {
				readErr = err
				break
			}
			handler(modelsChange(change))
		}

		// Закрытие по нашей инициативе не является ошибкой
		select {
		case <-stop:
			readErr = nil
		default:
			if websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				readErr = nil
			} else {
				readErr = fmt.Errorf("%w: change feed read failed: %w", ErrTransient, readErr)
			}
			unsubscribe()
		}

		c.logger.Debug("Change feed closed", "topic", sub.Topic, "error", readErr)
		if sub.OnClose != nil {
			sub.OnClose(readErr)
		}
	}()

	return unsubscribe, nil
}

// dial устанавливает WebSocket соединение с сервером
func (c *Client) dial(ctx context.Context, path string, header http.Header) (*websocket.Conn, error) {
	wsURL := c.baseURL + path
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}

	conn, resp, err := c.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%w: websocket handshake failed (%d)", classifyStatus(resp.StatusCode), resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: websocket dial failed: %w", ErrTransient, err)
	}
	return conn, nil
}

func modelsChange(d api.ChangeDTO) models.Change {
	return models.Change{Seq: d.Seq, Entity: d.Entity.ToEntity()}
}
