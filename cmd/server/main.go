package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/api"
	"github.com/yochit07/cyberknights/internal/api/handlers"
	"github.com/yochit07/cyberknights/internal/config"
	"github.com/yochit07/cyberknights/internal/middleware"
	"github.com/yochit07/cyberknights/internal/queue"
	"github.com/yochit07/cyberknights/internal/repository"
	"github.com/yochit07/cyberknights/internal/service"
	"github.com/yochit07/cyberknights/internal/watcher"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// 1. 打印版本信息
	fmt.Printf("CyberKnights APK Scanner\n")
	fmt.Printf("Version: %s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n\n", GitCommit)

	// 2. 加载配置
	configPath := "./configs/config.yaml"
	if len(os.Args) > 1 && os.Args[1] == "--config" && len(os.Args) > 2 {
		configPath = os.Args[2]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 3. 初始化日志
	logger := config.InitLogger(&cfg.Log)
	logger.Infof("Starting CyberKnights APK Scanner %s", Version)
	logger.Infof("Config loaded from: %s", configPath)

	// 4. 初始化数据库
	db, err := repository.InitDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to init database: %v", err)
	}
	logger.Info("Database connected successfully")

	reportRepo := repository.NewReportRepository(db, logger)
	signatureRepo := repository.NewSignatureRepository(db, logger)

	// 5. 初始化 Prometheus 指标
	promMetrics := middleware.NewPrometheusMetrics(logger, "cyberknights")
	logger.Info("Prometheus metrics initialized")

	// 6. 初始化扫描结果推送处理器
	scanFeedHandler := handlers.NewScanFeedHandler(logger)
	scanFeedHandler.Start()
	logger.Info("Scan feed handler started for real-time result push")

	// 7. 初始化扫描服务
	scanService := service.NewScanService(reportRepo, signatureRepo, scanFeedHandler, promMetrics, logger)

	// 8. 初始化 RabbitMQ（可选，用于批量投递）
	if cfg.RabbitMQ.Enabled {
		mqConfig := &queue.RabbitMQConfig{
			Host:     cfg.RabbitMQ.Host,
			Port:     cfg.RabbitMQ.Port,
			User:     cfg.RabbitMQ.User,
			Password: cfg.RabbitMQ.Password,
			VHost:    cfg.RabbitMQ.VHost,
		}
		workerCount := cfg.RabbitMQ.Workers
		if workerCount <= 0 {
			workerCount = 1
		}

		mq, err := queue.NewRabbitMQ(mqConfig, cfg.RabbitMQ.Queue, workerCount, logger)
		if err != nil {
			logger.Fatalf("Failed to init RabbitMQ: %v", err)
		}
		defer mq.Close()
		mq.StartConnectionWatcher()
		logger.WithField("prefetch_count", workerCount).Info("RabbitMQ connected successfully")

		producer := queue.NewProducer(mq, logger)

		// 8.1 队列深度指标更新协程
		go func() {
			ticker := time.NewTicker(10 * time.Second)
			defer ticker.Stop()

			for range ticker.C {
				depth, err := producer.QueueDepth()
				if err != nil {
					continue
				}
				promMetrics.SetQueueDepth(depth)
			}
		}()

		// 8.2 启动扫描任务消费者
		consumer := queue.NewConsumer(mq, createScanHandler(scanService, logger), workerCount, logger)
		if err := consumer.Start(context.Background()); err != nil {
			logger.Fatalf("Failed to start consumer: %v", err)
		}
		defer consumer.Stop()
		logger.Infof("Scan consumer started with %d workers", workerCount)

		// 8.3 启动文件监控（投递目录中的 APK 自动入队）
		fileWatcher, err := watcher.NewFileWatcher(cfg.Analysis.InboundDir, "*.apk", createFileHandler(producer, logger), logger)
		if err != nil {
			logger.Fatalf("Failed to create file watcher: %v", err)
		}
		defer fileWatcher.Stop()

		fileWatcher.Start(context.Background())
		logger.Infof("File watcher started for directory: %s", cfg.Analysis.InboundDir)
	} else {
		logger.Info("RabbitMQ disabled, batch intake not available")
	}

	// 9. 设置 HTTP Server
	router := api.SetupRouter(cfg, logger, db, promMetrics, scanService, scanFeedHandler)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  5 * time.Minute, // 支持大文件上传
		WriteTimeout: 1 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// 10. 启动 HTTP Server
	go func() {
		logger.Infof("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server error: %v", err)
		}
	}()

	// 11. 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down gracefully...")

	// 12. 优雅关闭 (30秒超时)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.Close()

	logger.Info("Server stopped")
}

// createScanHandler 创建队列扫描处理器（从磁盘读取文件并执行分析）
func createScanHandler(scanService service.ScanService, logger *logrus.Logger) queue.ScanHandler {
	return func(ctx context.Context, msg *queue.ScanMessage) error {
		buf, err := os.ReadFile(msg.FilePath)
		if err != nil {
			return fmt.Errorf("failed to read file %s: %w", msg.FilePath, err)
		}

		outcome, err := scanService.ScanAPK(ctx, "batch", msg.FileName, buf)
		if err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"scan_id":        msg.ScanID,
			"report_id":      outcome.ReportID,
			"risk_score":     outcome.Risk.Score,
			"classification": outcome.Risk.Classification,
		}).Info("Batch scan completed")

		return nil
	}
}

// createFileHandler 创建文件监控处理器（新文件入队）
func createFileHandler(producer *queue.Producer, logger *logrus.Logger) watcher.FileHandler {
	return func(ctx context.Context, filePath string) error {
		msg := &queue.ScanMessage{
			ScanID:   uuid.New().String(),
			FileName: filepath.Base(filePath),
			FilePath: filePath,
		}

		if err := producer.PublishScan(ctx, msg); err != nil {
			return err
		}

		logger.WithFields(logrus.Fields{
			"scan_id":   msg.ScanID,
			"file_path": filePath,
		}).Info("Inbound APK queued for scanning")

		return nil
	}
}
