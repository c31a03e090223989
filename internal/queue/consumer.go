package queue

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// ScanHandler 扫描任务处理函数
type ScanHandler func(ctx context.Context, msg *ScanMessage) error

// Consumer 消息消费者，维护固定数量的 worker 并行处理扫描任务
type Consumer struct {
	mq         *RabbitMQ
	logger     *logrus.Logger
	handler    ScanHandler
	workerPool int

	mu         sync.Mutex
	running    bool
	cancelFunc context.CancelFunc
	workerWg   sync.WaitGroup
}

// NewConsumer 创建消费者
func NewConsumer(mq *RabbitMQ, handler ScanHandler, workerPool int, logger *logrus.Logger) *Consumer {
	if workerPool <= 0 {
		workerPool = 1
	}

	return &Consumer{
		mq:         mq,
		logger:     logger,
		handler:    handler,
		workerPool: workerPool,
	}
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.logger.Warn("Consumer already running, skipping start")
		return nil
	}
	c.running = true
	c.mu.Unlock()

	msgs, err := c.mq.Consume()
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	c.logger.Infof("Starting consumer with %d workers", c.workerPool)

	// 可取消的 worker context：Stop 时主动解除阻塞，不依赖连接关闭
	workerCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelFunc = cancel
	c.mu.Unlock()

	for i := 0; i < c.workerPool; i++ {
		c.workerWg.Add(1)
		go c.worker(workerCtx, i, msgs)
	}

	return nil
}

// worker 消费协程：逐条取消息，处理成功 ack，失败 nack 不重投
func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.workerWg.Done()

	c.logger.WithField("worker_id", id).Info("Scan worker started")

	for {
		select {
		case <-ctx.Done():
			c.logger.WithField("worker_id", id).Info("Scan worker shutting down")
			return

		case d, ok := <-msgs:
			if !ok {
				c.logger.WithField("worker_id", id).Warn("Delivery channel closed")
				return
			}
			c.handleDelivery(ctx, id, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, workerID int, d amqp.Delivery) {
	var msg ScanMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal scan message, dropping")
		d.Nack(false, false)
		return
	}

	c.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"scan_id":   msg.ScanID,
		"file_name": msg.FileName,
	}).Info("Processing scan task")

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.WithError(err).WithField("scan_id", msg.ScanID).Error("Scan task failed")
		// 分析失败均为终态（非法容器等），重投无意义
		d.Nack(false, false)
		return
	}

	d.Ack(false)
}

// Stop 取消 worker context 并等待所有 worker 退出
func (c *Consumer) Stop() {
	c.mu.Lock()
	c.running = false
	cancel := c.cancelFunc
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	c.workerWg.Wait()
	c.logger.Info("Consumer stopped")
}
