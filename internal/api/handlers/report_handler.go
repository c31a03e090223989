package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yochit07/cyberknights/internal/domain"
	"github.com/yochit07/cyberknights/internal/middleware"
	"github.com/yochit07/cyberknights/internal/repository"
)

// ReportHandler 扫描报告处理器
type ReportHandler struct {
	reportRepo repository.ReportRepository
	logger     *logrus.Logger
}

// NewReportHandler 创建报告处理器实例
func NewReportHandler(reportRepo repository.ReportRepository, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{
		reportRepo: reportRepo,
		logger:     logger,
	}
}

// ListReports 获取报告列表
// GET /api/reports?page=1&page_size=20
func (h *ReportHandler) ListReports(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page <= 0 {
		page = 1
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil || pageSize <= 0 {
		pageSize = 20
	}
	// 限制最大每页数量，防止过大的查询
	if pageSize > 100 {
		pageSize = 100
	}

	reports, total, err := h.reportRepo.ListWithPagination(c.Request.Context(), middleware.OwnerID(c), page, pageSize)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list reports")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reports":   reports,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetReport 获取单份报告（含完整信号列表）
// GET /api/reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID := c.Param("id")

	report, err := h.reportRepo.FindByReportID(c.Request.Context(), reportID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to fetch report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch report"})
		return
	}

	c.JSON(http.StatusOK, h.reportToResponse(report))
}

// DeleteReport 删除报告
// DELETE /api/reports/:id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	reportID := c.Param("id")

	if err := h.reportRepo.Delete(c.Request.Context(), reportID); err != nil {
		h.logger.WithError(err).Error("Failed to delete report")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete report"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetStats 获取分级统计
// GET /api/stats
func (h *ReportHandler) GetStats(c *gin.Context) {
	counts, total, err := h.reportRepo.GetClassificationCounts(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get report stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":           total,
		"classifications": counts,
	})
}

// reportToResponse 展开 JSON 冗余列并组装响应
func (h *ReportHandler) reportToResponse(report *domain.ScanReport) gin.H {
	resp := gin.H{
		"report_id":        report.ReportID,
		"file_name":        report.FileName,
		"file_hash":        report.FileHash,
		"file_size_kb":     report.FileSizeKb,
		"permission_count": report.PermissionCount,
		"malware_match":    report.MalwareMatch,
		"malware_name":     report.MalwareName,
		"url_count":        report.URLCount,
		"api_count":        report.APICount,
		"risk_score":       report.RiskScore,
		"classification":   report.Classification,
		"scan_type":        report.ScanType,
		"created_at":       report.CreatedAt,
	}

	// 信号列表反序列化失败只降级为空列表
	resp["permissions"] = decodeStringList(report.PermissionsJSON)
	resp["urls"] = decodeStringList(report.URLsJSON)
	resp["suspicious_apis"] = decodeStringList(report.SuspiciousAPIJSON)

	var sensitive []map[string]string
	if report.SensitiveDataJSON != "" {
		if err := json.Unmarshal([]byte(report.SensitiveDataJSON), &sensitive); err != nil {
			h.logger.WithError(err).WithField("report_id", report.ReportID).
				Warn("Failed to decode sensitive data column")
		}
	}
	resp["sensitive_data"] = sensitive

	return resp
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
