package queue

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fakeAcknowledger 记录 ack/nack 调用
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

// TestConsumerStop_UnblocksIdleWorkers 投递通道保持打开时 Stop 也必须返回。
// worker 只有取消信号一条退出路径可控；若 Stop 不触发取消，
// 关闭顺序上连接晚于消费者关闭时优雅停机会永久挂起。
func TestConsumerStop_UnblocksIdleWorkers(t *testing.T) {
	handler := func(ctx context.Context, msg *ScanMessage) error { return nil }
	c := NewConsumer(nil, handler, 2, testLogger())

	// 复现 Start 之后的运行态：worker 阻塞在一个永不关闭的投递通道上
	msgs := make(chan amqp.Delivery)
	workerCtx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.running = true
	c.cancelFunc = cancel
	c.mu.Unlock()

	for i := 0; i < c.workerPool; i++ {
		c.workerWg.Add(1)
		go c.worker(workerCtx, i, msgs)
	}

	done := make(chan struct{})
	go func() {
		c.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return while the delivery channel stayed open")
	}
}

// TestHandleDelivery 处理结果与 ack/nack 语义
func TestHandleDelivery(t *testing.T) {
	t.Run("success acks", func(t *testing.T) {
		c := NewConsumer(nil, func(ctx context.Context, msg *ScanMessage) error { return nil }, 1, testLogger())
		ack := &fakeAcknowledger{}
		c.handleDelivery(context.Background(), 0, amqp.Delivery{
			Acknowledger: ack,
			Body:         []byte(`{"scan_id":"s1","file_name":"a.apk","file_path":"/tmp/a.apk"}`),
		})
		assert.True(t, ack.acked)
		assert.False(t, ack.nacked)
	})

	t.Run("handler error nacks without requeue", func(t *testing.T) {
		c := NewConsumer(nil, func(ctx context.Context, msg *ScanMessage) error { return errors.New("boom") }, 1, testLogger())
		ack := &fakeAcknowledger{}
		c.handleDelivery(context.Background(), 0, amqp.Delivery{
			Acknowledger: ack,
			Body:         []byte(`{"scan_id":"s2","file_name":"b.apk","file_path":"/tmp/b.apk"}`),
		})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})

	t.Run("malformed body nacks without requeue", func(t *testing.T) {
		c := NewConsumer(nil, func(ctx context.Context, msg *ScanMessage) error { return nil }, 1, testLogger())
		ack := &fakeAcknowledger{}
		c.handleDelivery(context.Background(), 0, amqp.Delivery{
			Acknowledger: ack,
			Body:         []byte("not json"),
		})
		assert.True(t, ack.nacked)
		assert.False(t, ack.requeue)
	})
}
