package apk

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// AnalysisResult 静态分析结果。
// 仅在 Analyze 返回 nil error 时有意义；失败时不返回结果记录，
// 调用方只持有文件标识与错误信息。
// 即使未发现任何信号，FileHash 与 FileSizeKb 也始终有值。
type AnalysisResult struct {
	FileName                 string           `json:"fileName"`
	FileHash                 string           `json:"fileHash"`
	FileSizeKb               int              `json:"fileSizeKb"`
	Permissions              []string         `json:"permissions"`
	DangerousPermissionCount int              `json:"dangerousPermissionCount"`
	EmbeddedURLs             []string         `json:"embeddedUrls"`
	SuspiciousAPIs           []string         `json:"suspiciousApis"`
	SensitiveData            []SensitiveMatch `json:"sensitiveData"`
	RawManifest              string           `json:"rawManifest,omitempty"`
}

// Analyzer APK 静态分析器。
// 单次分析是对一个不可变缓冲区的同步计算，各次调用之间无共享可变状态，
// 可在独立 worker 间并行执行（特征库只读共享，无需加锁）。
type Analyzer struct {
	logger *logrus.Logger
}

// NewAnalyzer 创建静态分析器
func NewAnalyzer(logger *logrus.Logger) *Analyzer {
	return &Analyzer{logger: logger}
}

// Analyze 对 APK 缓冲区执行完整静态分析。
//
// 流程：计算摘要与大小（总是成功）→ 打开 ZIP 容器（失败即终态，
// 返回 ErrInvalidArchive，后续阶段不再执行）→ Manifest 权限提取与
// 内容信号提取（两者相互独立、各自容错，单条目故障降级为"未发现更多"）。
func (a *Analyzer) Analyze(fileName string, buf []byte) (*AnalysisResult, error) {
	startTime := time.Now()

	a.logger.WithFields(logrus.Fields{
		"file_name": fileName,
		"file_size": len(buf),
	}).Info("Starting APK static analysis")

	hashHex, sizeKb := Digest(buf)

	archive, err := OpenArchive(buf)
	if err != nil {
		a.logger.WithError(err).WithField("file_name", fileName).Warn("Rejected invalid archive")
		return nil, fmt.Errorf("failed to open %s: %w", fileName, err)
	}

	permissions, dangerousCount, rawPreview := BestEffortPermissions(archive)
	signals := ExtractContentSignals(archive)

	result := &AnalysisResult{
		FileName:                 fileName,
		FileHash:                 hashHex,
		FileSizeKb:               sizeKb,
		Permissions:              permissions,
		DangerousPermissionCount: dangerousCount,
		EmbeddedURLs:             signals.URLs,
		SuspiciousAPIs:           signals.SuspiciousAPIs,
		SensitiveData:            signals.SensitiveData,
		RawManifest:              rawPreview,
	}

	a.logger.WithFields(logrus.Fields{
		"file_name":         fileName,
		"sha256":            hashHex,
		"permissions":       len(permissions),
		"dangerous":         dangerousCount,
		"urls":              len(signals.URLs),
		"suspicious_apis":   len(signals.SuspiciousAPIs),
		"sensitive_matches": len(signals.SensitiveData),
		"duration_ms":       time.Since(startTime).Milliseconds(),
	}).Info("APK static analysis completed")

	return result, nil
}
