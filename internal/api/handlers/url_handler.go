package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/middleware"
	"github.com/yochit07/cyberknights/internal/repository"
	"github.com/yochit07/cyberknights/internal/service"
)

// URLHandler URL 信誉检查处理器
type URLHandler struct {
	scanService service.ScanService
	reportRepo  repository.ReportRepository
	logger      *logrus.Logger
}

// NewURLHandler 创建 URL 检查处理器实例
func NewURLHandler(scanService service.ScanService, reportRepo repository.ReportRepository, logger *logrus.Logger) *URLHandler {
	return &URLHandler{
		scanService: scanService,
		reportRepo:  reportRepo,
		logger:      logger,
	}
}

// ScanURL 检查单个 URL
// POST /api/url/scan  body: {"url": "..."}
func (h *URLHandler) ScanURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url field"})
		return
	}

	result, err := h.scanService.ScanURL(c.Request.Context(), middleware.OwnerID(c), req.URL)
	if err != nil {
		h.logger.WithError(err).Error("URL scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "URL scan failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListURLHistory 获取 URL 检查历史
// GET /api/url/history?limit=50
func (h *URLHandler) ListURLHistory(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	records, err := h.reportRepo.ListURLRecords(c.Request.Context(), middleware.OwnerID(c), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list URL history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list URL history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records})
}
