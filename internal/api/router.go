package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yochit07/cyberknights/internal/api/handlers"
	"github.com/yochit07/cyberknights/internal/config"
	"github.com/yochit07/cyberknights/internal/middleware"
	"github.com/yochit07/cyberknights/internal/repository"
	"github.com/yochit07/cyberknights/internal/service"
)

func SetupRouter(cfg *config.Config, logger *logrus.Logger, db *gorm.DB, promMetrics *middleware.PrometheusMetrics, scanService service.ScanService, scanFeedHandler *handlers.ScanFeedHandler) *gin.Engine {
	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	// Prometheus 监控中间件
	if promMetrics != nil {
		r.Use(promMetrics.HTTPMiddleware())
	}

	// 初始化依赖
	reportRepo := repository.NewReportRepository(db, logger)
	signatureRepo := repository.NewSignatureRepository(db, logger)

	// 初始化处理器
	scanHandler := handlers.NewScanHandler(scanService, cfg.Analysis.MaxFileSizeMB, logger)
	reportHandler := handlers.NewReportHandler(reportRepo, logger)
	urlHandler := handlers.NewURLHandler(scanService, reportRepo, logger)
	signatureHandler := handlers.NewSignatureHandler(signatureRepo, logger)
	// scanFeedHandler 已在 main.go 中创建并传入，直接使用

	// 健康检查（无需认证）
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	// Prometheus 指标端点
	if promMetrics != nil {
		r.GET("/metrics", promMetrics.MetricsHandler())
	}

	// 扫描结果实时推送
	r.GET("/ws/scans", scanFeedHandler.HandleWebSocket)

	// API v1
	v1 := r.Group("/api")
	if cfg.Auth.Enabled {
		v1.Use(middleware.AuthMiddleware())
	}
	{
		// 扫描
		v1.POST("/apk/upload", scanHandler.UploadAPK)
		v1.GET("/apk/dangerous-permissions", scanHandler.GetDangerousPermissions)

		// 报告管理
		v1.GET("/reports", reportHandler.ListReports)
		v1.GET("/reports/:id", reportHandler.GetReport)
		v1.DELETE("/reports/:id", reportHandler.DeleteReport)
		v1.GET("/stats", reportHandler.GetStats)

		// URL 检测
		v1.POST("/url/scan", urlHandler.ScanURL)
		v1.GET("/url/history", urlHandler.ListURLHistory)

		// 签名库管理
		v1.GET("/signatures", signatureHandler.ListSignatures)
		v1.POST("/signatures", signatureHandler.CreateSignature)
		v1.DELETE("/signatures/:hash", signatureHandler.DeleteSignature)
	}

	return r
}

// LoggerMiddleware 日志中间件
func LoggerMiddleware(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.WithFields(logrus.Fields{
			"status":    c.Writer.Status(),
			"method":    c.Request.Method,
			"path":      path,
			"client_ip": c.ClientIP(),
			"latency":   time.Since(startTime).Milliseconds(),
		}).Info("HTTP Request")
	}
}

// CORSMiddleware CORS 中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Max-Age", "600")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
