package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ai-teacher/internal/model"
	"ai-teacher/internal/platform/rabbitmq"
)

type TurnWriter interface {
	Create(turn *model.ChatTurn) error
}

// TurnPersistWorker drains the chat turn queue into MySQL.
type TurnPersistWorker struct {
	conn      *amqp.Connection
	repo      TurnWriter
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTurnPersistWorker(conn *amqp.Connection, repo TurnWriter, queueName string, logger *slog.Logger) *TurnPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    logger.With("component", "turn_persist_worker"),
	}
}

func (w *TurnPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(d.Body); err != nil {
					w.logger.Error("persist chat turn failed", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TurnPersistWorker) handle(body []byte) error {
	var turn model.ChatTurn
	if err := json.Unmarshal(body, &turn); err != nil {
		return fmt.Errorf("decode chat turn failed: %w", err)
	}
	turn.ID = 0
	return w.repo.Create(&turn)
}

func (w *TurnPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
