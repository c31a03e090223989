package urlscan

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestScanner() *Scanner {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewScanner(logger)
}

// TestScan_CleanURL 普通 HTTPS 域名判定安全
func TestScan_CleanURL(t *testing.T) {
	r := newTestScanner().Scan("https://news.example.org/article/42")

	assert.True(t, r.IsSafe)
	assert.Equal(t, LevelSafe, r.ThreatLevel)
	assert.Empty(t, r.ThreatType)
}

// TestScan_InvalidURL 无法解析的输入判定可疑
func TestScan_InvalidURL(t *testing.T) {
	r := newTestScanner().Scan("not a url at all")

	assert.False(t, r.IsSafe)
	assert.Equal(t, LevelSuspicious, r.ThreatLevel)
	assert.Equal(t, "Invalid URL", r.ThreatType)
}

// TestScan_SuspiciousTLD 高滥用率 TLD
func TestScan_SuspiciousTLD(t *testing.T) {
	r := newTestScanner().Scan("https://login-update.tk/verify")

	assert.False(t, r.IsSafe)
	assert.Equal(t, LevelSuspicious, r.ThreatLevel)
	assert.Equal(t, "Suspicious TLD", r.ThreatType)
	assert.Equal(t, ".tk", r.Details["suspiciousTld"])
}

// TestScan_MaliciousDomainKeyword 域名关键词命中判定恶意
func TestScan_MaliciousDomainKeyword(t *testing.T) {
	r := newTestScanner().Scan("https://best-phishing-kit.example.org/")

	assert.False(t, r.IsSafe)
	assert.Equal(t, LevelMalicious, r.ThreatLevel)
	assert.Equal(t, "Malicious Domain Pattern", r.ThreatType)
}

// TestScan_DirectIP 裸 IP 托管
func TestScan_DirectIP(t *testing.T) {
	r := newTestScanner().Scan("http://203.0.113.7/panel")

	assert.False(t, r.IsSafe)
	assert.Equal(t, "Direct IP Address URL", r.ThreatType)
	assert.Equal(t, "203.0.113.7", r.Details["directIp"])
	assert.Equal(t, "true", r.Details["insecure"])
}

// TestScan_Shortener 短链可疑但不翻转 IsSafe
func TestScan_Shortener(t *testing.T) {
	r := newTestScanner().Scan("https://bit.ly/3xyzabc")

	assert.True(t, r.IsSafe)
	assert.Equal(t, LevelSuspicious, r.ThreatLevel)
	assert.Equal(t, "URL Shortener", r.ThreatType)
}

// TestScan_ThirdPartyAPKDownload 第三方 APK 下载链接
func TestScan_ThirdPartyAPKDownload(t *testing.T) {
	r := newTestScanner().Scan("https://files.example.org/app-release.apk")

	assert.True(t, r.IsSafe)
	assert.Equal(t, LevelSuspicious, r.ThreatLevel)
	assert.Equal(t, "Third-party APK Download", r.ThreatType)

	// 官方渠道不触发
	r = newTestScanner().Scan("https://play.google.com/store/apps/details.apk")
	assert.Equal(t, LevelSafe, r.ThreatLevel)
}
