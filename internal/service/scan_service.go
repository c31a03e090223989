package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/yochit07/cyberknights/internal/apk"
	"github.com/yochit07/cyberknights/internal/domain"
	"github.com/yochit07/cyberknights/internal/repository"
	"github.com/yochit07/cyberknights/internal/risk"
	"github.com/yochit07/cyberknights/internal/urlscan"
)

// ScanEvent 扫描完成事件（用于实时推送）
type ScanEvent struct {
	ReportID       string `json:"report_id"`
	FileName       string `json:"file_name"`
	RiskScore      int    `json:"risk_score"`
	Classification string `json:"classification"`
	MalwareMatch   bool   `json:"malware_match"`
	Timestamp      int64  `json:"timestamp"`
}

// ScanBroadcaster 扫描事件广播接口
type ScanBroadcaster interface {
	BroadcastScan(event ScanEvent)
}

// ScanMetrics 扫描业务指标接口
type ScanMetrics interface {
	RecordScan(classification string, durationSeconds float64)
	RecordSignatureMatch()
}

// ScanOutcome 一次 APK 扫描的完整产出
type ScanOutcome struct {
	ReportID     string              `json:"reportId"`
	Analysis     *apk.AnalysisResult `json:"analysis"`
	MalwareMatch bool                `json:"malwareMatch"`
	MalwareName  string              `json:"malwareName,omitempty"`
	Risk         *risk.Breakdown     `json:"risk"`
}

// ScanService 扫描服务
type ScanService interface {
	// ScanAPK 执行静态分析、签名比对、风险评分并持久化报告。
	// 仅容器打开失败（ErrInvalidArchive）会作为错误返回。
	ScanAPK(ctx context.Context, ownerID, fileName string, buf []byte) (*ScanOutcome, error)
	// ScanURL 执行 URL 信誉启发式检查并记录
	ScanURL(ctx context.Context, ownerID, rawURL string) (*urlscan.Result, error)
}

type scanService struct {
	analyzer      *apk.Analyzer
	urlScanner    *urlscan.Scanner
	reportRepo    repository.ReportRepository
	signatureRepo repository.SignatureRepository
	broadcaster   ScanBroadcaster
	metrics       ScanMetrics
	logger        *logrus.Logger
}

// NewScanService 创建扫描服务
// broadcaster 与 metrics 可为 nil（禁用推送/指标）
func NewScanService(
	reportRepo repository.ReportRepository,
	signatureRepo repository.SignatureRepository,
	broadcaster ScanBroadcaster,
	metrics ScanMetrics,
	logger *logrus.Logger,
) ScanService {
	return &scanService{
		analyzer:      apk.NewAnalyzer(logger),
		urlScanner:    urlscan.NewScanner(logger),
		reportRepo:    reportRepo,
		signatureRepo: signatureRepo,
		broadcaster:   broadcaster,
		metrics:       metrics,
		logger:        logger,
	}
}

func (s *scanService) ScanAPK(ctx context.Context, ownerID, fileName string, buf []byte) (*ScanOutcome, error) {
	startTime := time.Now()

	// 1. 静态分析（容器打开失败即终态）
	analysis, err := s.analyzer.Analyze(fileName, buf)
	if err != nil {
		return nil, err
	}

	// 2. 签名库比对。查询失败按未命中处理，绝不让评分阶段失败。
	malwareMatch := false
	malwareName := ""
	sig, err := s.signatureRepo.LookupByHash(ctx, analysis.FileHash)
	if err != nil {
		s.logger.WithError(err).WithField("sha256", analysis.FileHash).
			Warn("Signature lookup failed, treating as no match")
	} else if sig != nil {
		malwareMatch = true
		malwareName = sig.ThreatName
		if s.metrics != nil {
			s.metrics.RecordSignatureMatch()
		}
	}

	// 3. 风险评分
	m := 0
	if malwareMatch {
		m = 1
	}
	breakdown := risk.BuildBreakdown(risk.Factors{
		P: analysis.DangerousPermissionCount,
		M: m,
		U: len(analysis.EmbeddedURLs),
		A: len(analysis.SuspiciousAPIs),
	})

	// 4. 持久化报告。入库失败降级为仅日志，扫描结论照常返回。
	reportID := uuid.New().String()
	report := s.buildReport(reportID, ownerID, analysis, malwareMatch, malwareName, breakdown)
	if err := s.reportRepo.Create(ctx, report); err != nil {
		s.logger.WithError(err).WithField("report_id", reportID).Error("Failed to save scan report")
	}

	// 5. 推送完成事件
	if s.broadcaster != nil {
		s.broadcaster.BroadcastScan(ScanEvent{
			ReportID:       reportID,
			FileName:       fileName,
			RiskScore:      breakdown.Score,
			Classification: string(breakdown.Classification),
			MalwareMatch:   malwareMatch,
			Timestamp:      time.Now().Unix(),
		})
	}

	if s.metrics != nil {
		s.metrics.RecordScan(string(breakdown.Classification), time.Since(startTime).Seconds())
	}

	s.logger.WithFields(logrus.Fields{
		"report_id":      reportID,
		"file_name":      fileName,
		"risk_score":     breakdown.Score,
		"classification": breakdown.Classification,
		"malware_match":  malwareMatch,
		"duration_ms":    time.Since(startTime).Milliseconds(),
	}).Info("APK scan completed")

	return &ScanOutcome{
		ReportID:     reportID,
		Analysis:     analysis,
		MalwareMatch: malwareMatch,
		MalwareName:  malwareName,
		Risk:         breakdown,
	}, nil
}

func (s *scanService) ScanURL(ctx context.Context, ownerID, rawURL string) (*urlscan.Result, error) {
	result := s.urlScanner.Scan(rawURL)

	record := &domain.URLScanRecord{
		OwnerID:     ownerID,
		URL:         rawURL,
		IsSafe:      result.IsSafe,
		ThreatType:  result.ThreatType,
		ThreatLevel: string(result.ThreatLevel),
	}
	if err := s.reportRepo.CreateURLRecord(ctx, record); err != nil {
		s.logger.WithError(err).WithField("url", rawURL).Error("Failed to save URL scan record")
	}

	return result, nil
}

// buildReport 组装报告行，信号列表 JSON 编码冗余存储
func (s *scanService) buildReport(
	reportID, ownerID string,
	analysis *apk.AnalysisResult,
	malwareMatch bool,
	malwareName string,
	breakdown *risk.Breakdown,
) *domain.ScanReport {
	return &domain.ScanReport{
		ReportID:          reportID,
		OwnerID:           ownerID,
		FileName:          analysis.FileName,
		FileHash:          analysis.FileHash,
		FileSizeKb:        analysis.FileSizeKb,
		PermissionCount:   analysis.DangerousPermissionCount,
		MalwareMatch:      malwareMatch,
		MalwareName:       malwareName,
		URLCount:          len(analysis.EmbeddedURLs),
		APICount:          len(analysis.SuspiciousAPIs),
		RiskScore:         breakdown.Score,
		Classification:    string(breakdown.Classification),
		PermissionsJSON:   mustJSON(analysis.Permissions),
		URLsJSON:          mustJSON(analysis.EmbeddedURLs),
		SuspiciousAPIJSON: mustJSON(analysis.SuspiciousAPIs),
		SensitiveDataJSON: mustJSON(analysis.SensitiveData),
		ScanType:          domain.ScanTypeAPK,
	}
}

// mustJSON 序列化信号列表；这些类型不含不可序列化成员，失败只可能是编程错误
func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("marshal error: %v", err)
	}
	return string(data)
}
