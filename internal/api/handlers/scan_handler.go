package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/apk"
	"github.com/yochit07/cyberknights/internal/middleware"
	"github.com/yochit07/cyberknights/internal/service"
)

// ScanHandler APK 扫描处理器
type ScanHandler struct {
	scanService   service.ScanService
	logger        *logrus.Logger
	maxFileSizeMB int
}

// NewScanHandler 创建扫描处理器实例
func NewScanHandler(scanService service.ScanService, maxFileSizeMB int, logger *logrus.Logger) *ScanHandler {
	if maxFileSizeMB <= 0 {
		maxFileSizeMB = 50
	}
	return &ScanHandler{
		scanService:   scanService,
		logger:        logger,
		maxFileSizeMB: maxFileSizeMB,
	}
}

// UploadAPK 上传并同步分析 APK
// POST /api/apk/upload (multipart form, 字段名 "apk")
func (h *ScanHandler) UploadAPK(c *gin.Context) {
	fileHeader, err := c.FormFile("apk")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No APK file uploaded"})
		return
	}

	if !isAllowedUpload(fileHeader.Filename) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .apk or .zip files are allowed"})
		return
	}

	maxBytes := int64(h.maxFileSizeMB) * 1024 * 1024
	if fileHeader.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds size limit"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.logger.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	buf, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		h.logger.WithError(err).Error("Failed to read uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	if int64(len(buf)) > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds size limit"})
		return
	}

	outcome, err := h.scanService.ScanAPK(c.Request.Context(), middleware.OwnerID(c), fileHeader.Filename, buf)
	if err != nil {
		if errors.Is(err, apk.ErrInvalidArchive) {
			// 终态拒绝：容器结构非法，不可重试
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "Invalid APK file (not a valid ZIP archive)",
			})
			return
		}
		h.logger.WithError(err).Error("APK scan failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "APK analysis failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"reportId": outcome.ReportID,
		"analysis": gin.H{
			"fileName":                 outcome.Analysis.FileName,
			"fileHash":                 outcome.Analysis.FileHash,
			"fileSizeKb":               outcome.Analysis.FileSizeKb,
			"permissions":              outcome.Analysis.Permissions,
			"dangerousPermissionCount": outcome.Analysis.DangerousPermissionCount,
			"malwareMatch":             outcome.MalwareMatch,
			"malwareName":              outcome.MalwareName,
			"embeddedUrls":             outcome.Analysis.EmbeddedURLs,
			"suspiciousApis":           outcome.Analysis.SuspiciousAPIs,
			"sensitiveData":            outcome.Analysis.SensitiveData,
			"risk":                     outcome.Risk,
		},
	})
}

// GetDangerousPermissions 返回危险权限清单
// GET /api/apk/dangerous-permissions
func (h *ScanHandler) GetDangerousPermissions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"permissions": apk.DangerousPermissions,
	})
}

// isAllowedUpload 扩展名过滤（上传层已做 MIME 校验，这里只看扩展名）
func isAllowedUpload(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".apk" || ext == ".zip"
}
