package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"reunion_archive/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultConsumerPrefix names consumers "<prefix>-<n>" inside the group
	DefaultConsumerPrefix = "worker"

	readErrorBackoff = time.Second
)

// EventHandler processes one stream event.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.Event) error
}

// Manager runs worker goroutines that consume the reunion stream.
type Manager struct {
	consumer       queue.Consumer
	handler        EventHandler
	workerCount    int
	batchSize      int64
	blockTime      time.Duration
	consumerPrefix string
	log            *zap.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount    int
	BatchSize      int64
	BlockTimeout   time.Duration
	ConsumerPrefix string
}

// DefaultManagerConfig returns the defaults used when fields are left zero.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:    DefaultWorkerCount,
		BatchSize:      DefaultBatchSize,
		BlockTimeout:   DefaultBlockTimeout,
		ConsumerPrefix: DefaultConsumerPrefix,
	}
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = def.BlockTimeout
	}
	if cfg.ConsumerPrefix == "" {
		cfg.ConsumerPrefix = def.ConsumerPrefix
	}

	return &Manager{
		consumer:       consumer,
		handler:        handler,
		workerCount:    cfg.WorkerCount,
		batchSize:      cfg.BatchSize,
		blockTime:      cfg.BlockTimeout,
		consumerPrefix: cfg.ConsumerPrefix,
		log:            zap.L().Named("worker"),
	}
}

// Start ensures the consumer group and launches the workers.
// Call Stop to shut them down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamReunion, queue.ConsumerGroupReunion); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, m.consumerName(i))
	}

	m.log.Info("workers started",
		zap.Int("count", m.workerCount),
		zap.String("stream", queue.StreamReunion),
		zap.String("group", queue.ConsumerGroupReunion))
	return nil
}

// Stop cancels the workers and blocks until all have returned.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	m.log.Info("workers stopped")
}

// Run starts the workers and blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	m.Stop()
	return nil
}

func (m *Manager) consumerName(workerID int) string {
	return fmt.Sprintf("%s-%d", m.consumerPrefix, workerID)
}

func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()
	log := m.log.With(zap.Int("worker", workerID), zap.String("consumer", consumerName))

	// Messages delivered before a crash and never acked come first.
	m.processPending(log, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(log, consumerName)
		}
	}
}

// processPending replays entries left unacked by a previous run. The cursor
// advances over every entry read, so a batch that is entirely malformed, or
// whose acks fail, does not end or repeat the replay.
func (m *Manager) processPending(log *zap.Logger, consumerName string) {
	after := "0"
	for m.ctx.Err() == nil {
		messages, next, err := m.consumer.ReadPending(m.ctx, queue.StreamReunion, queue.ConsumerGroupReunion, consumerName, after, m.batchSize)
		if err != nil {
			log.Warn("read pending failed", zap.Error(err))
			return
		}
		if next == "" {
			return
		}
		after = next

		if len(messages) > 0 {
			log.Info("replaying pending messages", zap.Int("count", len(messages)))
			m.handleMessages(log, messages)
		}
	}
}

func (m *Manager) processMessages(log *zap.Logger, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamReunion,
		queue.ConsumerGroupReunion,
		consumerName,
		m.batchSize,
		m.blockTime,
	)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Warn("read failed", zap.Error(err))
		select {
		case <-m.ctx.Done():
		case <-time.After(readErrorBackoff):
		}
		return
	}

	if len(messages) > 0 {
		m.handleMessages(log, messages)
	}
}

// handleMessages acks every message, including failed ones; pushes are best
// effort and a retry loop would only repeat the failure.
func (m *Manager) handleMessages(log *zap.Logger, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Warn("handle event failed",
				zap.String("msg_id", msg.ID),
				zap.String("type", msg.Event.Type),
				zap.Error(err))
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamReunion, queue.ConsumerGroupReunion, msg.ID); err != nil {
			log.Warn("ack failed", zap.String("msg_id", msg.ID), zap.Error(err))
		}
	}
}
