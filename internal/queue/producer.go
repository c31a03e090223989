package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ScanMessage 批量扫描任务消息
type ScanMessage struct {
	ScanID   string `json:"scan_id"`
	FileName string `json:"file_name"`
	FilePath string `json:"file_path"`
}

// Producer 消息生产者
type Producer struct {
	mq     *RabbitMQ
	logger *logrus.Logger
}

// NewProducer 创建生产者
func NewProducer(mq *RabbitMQ, logger *logrus.Logger) *Producer {
	return &Producer{
		mq:     mq,
		logger: logger,
	}
}

// PublishScan 发布扫描任务消息
func (p *Producer) PublishScan(ctx context.Context, msg *ScanMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.mq.Publish(ctx, body); err != nil {
		p.logger.WithError(err).WithField("scan_id", msg.ScanID).Error("Failed to publish scan task")
		return fmt.Errorf("failed to publish: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"scan_id":   msg.ScanID,
		"file_name": msg.FileName,
	}).Info("Scan task published to queue")

	return nil
}

// QueueDepth 获取待处理任务数量
func (p *Producer) QueueDepth() (int, error) {
	depth, err := p.mq.QueueDepth()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return depth, nil
}
