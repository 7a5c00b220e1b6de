package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/iudanet/repsync/internal/models"
	"github.com/iudanet/repsync/internal/server/changefeed"
	"github.com/iudanet/repsync/internal/server/storage"
	"github.com/iudanet/repsync/pkg/api"
)

const (
	// writeWait время на запись одного сообщения в WebSocket
	writeWait = 10 * time.Second
	// pingPeriod интервал ping, меньше таймаута чтения клиента и прокси
	pingPeriod = 30 * time.Second
	// replayPageSize размер страницы при повторе ленты из хранилища
	replayPageSize = 500
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// ChangesHandler streams the change feed over WebSocket
type ChangesHandler struct {
	logger *slog.Logger
	store  storage.EntityStorage
	feed   *changefeed.Hub
	types  EntityTypes
}

// NewChangesHandler creates a change feed handler
func NewChangesHandler(logger *slog.Logger, store storage.EntityStorage, feed *changefeed.Hub, types EntityTypes) *ChangesHandler {
	return &ChangesHandler{
		logger: logger,
		store:  store,
		feed:   feed,
		types:  types,
	}
}

// Stream обрабатывает GET /api/v1/changes?topic=&since=.
// Сначала повторяет изменения после since из хранилища, затем присылает
// новые. Отставший подписчик отключается с CloseTryAgainLater и
// переподключается со своего курсора.
func (h *ChangesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	topic := r.URL.Query().Get("topic")
	if topic != "" {
		if err := h.types.Check(topic); err != nil {
			sendError(h.logger, w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			sendError(h.logger, w, "since must be a non-negative integer", http.StatusBadRequest)
			return
		}
		since = v
	}

	// подписываемся до повтора: изменения между запросом к хранилищу и
	// началом live доставки не теряются, дубликаты отсекаются по seq
	sub := h.feed.Subscribe(topic, 0)
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go readUntilClosed(conn, cancel)

	log := h.logger.With("topic", topic)
	log.Debug("Change feed subscriber connected", "since", since)

	last := since
	for {
		page, err := h.store.ChangesSince(ctx, topic, last, replayPageSize)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("Failed to replay changes", "since", last, "error", err)
				closeWith(conn, websocket.CloseInternalServerErr, "replay failed")
			}
			return
		}
		for _, c := range page {
			if err := writeChange(conn, c); err != nil {
				log.Debug("Change feed write failed", "error", err)
				return
			}
			last = c.Seq
		}
		if len(page) < replayPageSize {
			break
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.Context().Err() != nil {
				// сервер останавливается, клиент переподключится позже
				closeWith(conn, websocket.CloseServiceRestart, "server shutting down")
			}
			log.Debug("Change feed subscriber disconnected", "last_seq", last)
			return
		case <-sub.Done():
			log.Warn("Change feed subscriber too slow, closing", "last_seq", last)
			closeWith(conn, websocket.CloseTryAgainLater, "subscriber overrun")
			return
		case c := <-sub.C():
			if overrun(sub) {
				log.Warn("Change feed subscriber too slow, closing", "last_seq", last)
				closeWith(conn, websocket.CloseTryAgainLater, "subscriber overrun")
				return
			}
			if c.Seq <= last {
				continue
			}
			if err := writeChange(conn, c); err != nil {
				log.Debug("Change feed write failed", "error", err)
				return
			}
			last = c.Seq
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// overrun сообщает, что хаб уже отключил подписчика. Остаток буфера после
// отключения не отправляется: клиент все равно начнет с курсора.
func overrun(sub *changefeed.Subscriber) bool {
	select {
	case <-sub.Done():
		return true
	default:
		return false
	}
}

func writeChange(conn *websocket.Conn, c models.Change) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(api.ChangeDTO{Seq: c.Seq, Entity: api.FromEntity(c.Entity)})
}

// readUntilClosed читает входящие кадры (close, pong) до ошибки.
// Клиент ничего не присылает, чтение нужно для обработки control кадров.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
}
