package handlers

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/domain"
	"github.com/yochit07/cyberknights/internal/repository"
)

var sha256HexPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// SignatureHandler 恶意样本签名管理处理器
type SignatureHandler struct {
	signatureRepo repository.SignatureRepository
	logger        *logrus.Logger
}

// NewSignatureHandler 创建签名管理处理器实例
func NewSignatureHandler(signatureRepo repository.SignatureRepository, logger *logrus.Logger) *SignatureHandler {
	return &SignatureHandler{
		signatureRepo: signatureRepo,
		logger:        logger,
	}
}

// ListSignatures 获取签名列表
// GET /api/signatures?limit=100
func (h *SignatureHandler) ListSignatures(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	sigs, err := h.signatureRepo.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list signatures")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list signatures"})
		return
	}

	count, err := h.signatureRepo.Count(c.Request.Context())
	if err != nil {
		count = int64(len(sigs))
	}

	c.JSON(http.StatusOK, gin.H{
		"signatures": sigs,
		"total":      count,
	})
}

// CreateSignature 新增/更新签名
// POST /api/signatures  body: {"sha256_hash": "...", "threat_name": "...", "severity": "high"}
func (h *SignatureHandler) CreateSignature(c *gin.Context) {
	var req struct {
		SHA256Hash string `json:"sha256_hash" binding:"required"`
		ThreatName string `json:"threat_name" binding:"required"`
		Severity   string `json:"severity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sha256_hash and threat_name are required"})
		return
	}

	hash := strings.ToLower(req.SHA256Hash)
	if !sha256HexPattern.MatchString(hash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sha256_hash must be 64 hex characters"})
		return
	}

	if req.Severity == "" {
		req.Severity = "high"
	}

	sig := &domain.MalwareSignature{
		SHA256Hash: hash,
		ThreatName: req.ThreatName,
		Severity:   req.Severity,
	}
	if err := h.signatureRepo.Upsert(c.Request.Context(), sig); err != nil {
		h.logger.WithError(err).Error("Failed to upsert signature")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteSignature 删除签名
// DELETE /api/signatures/:hash
func (h *SignatureHandler) DeleteSignature(c *gin.Context) {
	hash := strings.ToLower(c.Param("hash"))
	if !sha256HexPattern.MatchString(hash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sha256 hash"})
		return
	}

	if err := h.signatureRepo.Delete(c.Request.Context(), hash); err != nil {
		h.logger.WithError(err).Error("Failed to delete signature")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete signature"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
