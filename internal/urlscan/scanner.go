// Package urlscan 实现独立于 APK 分析的 URL 信誉启发式检查。
// 规则集比静态分析流水线简单得多：按固定顺序套用域名/TLD/主机形态启发式，
// 首个命中即决定结论。
package urlscan

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ThreatLevel 威胁等级
type ThreatLevel string

const (
	LevelSafe       ThreatLevel = "safe"
	LevelSuspicious ThreatLevel = "suspicious"
	LevelMalicious  ThreatLevel = "malicious"
)

// Result URL 检查结论
type Result struct {
	URL         string            `json:"url"`
	IsSafe      bool              `json:"isSafe"`
	ThreatType  string            `json:"threatType,omitempty"`
	ThreatLevel ThreatLevel       `json:"threatLevel"`
	Details     map[string]string `json:"details,omitempty"`
	CheckedAt   time.Time         `json:"checkedAt"`
}

// 恶意域名关键词启发式
var suspiciousDomains = []*regexp.Regexp{
	regexp.MustCompile(`(?i)phishing`),
	regexp.MustCompile(`(?i)malware`),
	regexp.MustCompile(`(?i)virus`),
	regexp.MustCompile(`(?i)hack`),
	regexp.MustCompile(`(?i)crack`),
	regexp.MustCompile(`(?i)free-download`),
	regexp.MustCompile(`(?i)warez`),
	regexp.MustCompile(`(?i)torrent.*apk`),
	regexp.MustCompile(`(?i)apk-download`),
	regexp.MustCompile(`(?i)apkpure.*pro`),
}

// 高滥用率 TLD
var suspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".bid", ".win", ".loan",
}

var (
	rawIPPattern     = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	shortenerPattern = regexp.MustCompile(`(?i)bit\.ly|goo\.gl|tinyurl|t\.co`)
)

// Scanner URL 信誉检查器
type Scanner struct {
	logger *logrus.Logger
}

// NewScanner 创建 URL 检查器
func NewScanner(logger *logrus.Logger) *Scanner {
	return &Scanner{logger: logger}
}

// Scan 对单个 URL 执行启发式检查
func (s *Scanner) Scan(rawURL string) *Result {
	result := &Result{
		URL:         rawURL,
		IsSafe:      true,
		ThreatLevel: LevelSafe,
		Details:     make(map[string]string),
		CheckedAt:   time.Now().UTC(),
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		result.IsSafe = false
		result.ThreatLevel = LevelSuspicious
		result.ThreatType = "Invalid URL"
		return result
	}

	hostname := strings.ToLower(parsed.Hostname())
	fullURL := strings.ToLower(rawURL)

	if parsed.Scheme == "http" {
		result.Details["insecure"] = "true"
	}

	// 检查 1：高滥用率 TLD
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(hostname, tld) {
			result.IsSafe = false
			result.ThreatLevel = LevelSuspicious
			result.ThreatType = "Suspicious TLD"
			result.Details["suspiciousTld"] = tld
			return result
		}
	}

	// 检查 2：域名关键词
	for _, rx := range suspiciousDomains {
		if rx.MatchString(hostname) {
			result.IsSafe = false
			result.ThreatLevel = LevelMalicious
			result.ThreatType = "Malicious Domain Pattern"
			return result
		}
	}

	// 检查 3：裸 IP 托管
	if rawIPPattern.MatchString(hostname) {
		result.IsSafe = false
		result.ThreatLevel = LevelSuspicious
		result.ThreatType = "Direct IP Address URL"
		result.Details["directIp"] = hostname
		return result
	}

	// 检查 4：短链服务（可疑但未必恶意，不翻转 IsSafe）
	if shortenerPattern.MatchString(hostname) {
		result.ThreatLevel = LevelSuspicious
		result.ThreatType = "URL Shortener"
		result.Details["shortener"] = "true"
		return result
	}

	// 检查 5：第三方渠道的 APK 下载链接
	if strings.Contains(fullURL, ".apk") &&
		!strings.Contains(hostname, "google.com") &&
		!strings.Contains(hostname, "play.google") {
		result.ThreatLevel = LevelSuspicious
		result.ThreatType = "Third-party APK Download"
		result.Details["apkDownload"] = "true"
	}

	return result
}
