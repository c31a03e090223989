package apk

import (
	"strings"
)

const (
	maxEmbeddedURLs       = 50
	maxSensitiveMatches   = 20
	minURLLengthAfterTrim = 8
)

// SensitiveMatch 敏感数据命中记录
type SensitiveMatch struct {
	Kind  string `json:"type"`
	Value string `json:"value"`
}

// ContentSignals 内容扫描信号
type ContentSignals struct {
	URLs           []string
	SuspiciousAPIs []string
	SensitiveData  []SensitiveMatch
}

// ExtractContentSignals 对值得扫描的条目做聚合内容扫描。
//
// 两阶段流水：先按条目名筛选（代码/资源/标记/脚本类条目），再做限界读取；
// 目录项与达到 MaxEntrySize 的条目在读取前即被排除。单条目读取失败静默跳过。
// 所有选中条目的原始字节按单字节字符视图拼接为一个聚合缓冲区
// （内容不保证是合法文本编码，不做校验），随后一次通过应用三类特征库。
func ExtractContentSignals(archive *Archive) *ContentSignals {
	var parts []string
	for _, f := range archive.Entries() {
		if f.FileInfo().IsDir() {
			continue
		}
		if !isScanWorthy(f.Name) {
			continue
		}
		data, err := archive.ReadEntry(f)
		if err != nil {
			continue
		}
		parts = append(parts, string(data))
	}

	combined := strings.Join(parts, "\n")

	return &ContentSignals{
		URLs:          extractURLs(combined),
		SuspiciousAPIs: extractSuspiciousAPIs(combined),
		SensitiveData: extractSensitiveData(combined),
	}
}

// isScanWorthy 判断条目是否值得扫描（DEX、smali、资源、标记和脚本文件）
func isScanWorthy(name string) bool {
	if strings.HasPrefix(name, "assets/") || strings.HasPrefix(name, "res/") {
		return true
	}
	switch {
	case strings.HasSuffix(name, ".dex"),
		strings.HasSuffix(name, ".smali"),
		strings.HasSuffix(name, ".xml"),
		strings.HasSuffix(name, ".js"),
		strings.HasSuffix(name, ".htm"),
		strings.HasSuffix(name, ".html"):
		return true
	}
	return false
}

// extractURLs 提取内嵌 URL：剥离不可打印字节、过滤良性框架域名、
// 按首见顺序去重，上限 50 条。
func extractURLs(text string) []string {
	var urls []string
	seen := make(map[string]struct{})

	for _, m := range urlRegex.FindAllString(text, -1) {
		url := strings.TrimSpace(stripNonPrintable(m))
		if len(url) <= minURLLengthAfterTrim {
			continue
		}
		if isDenylisted(url) {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
		if len(urls) >= maxEmbeddedURLs {
			break
		}
	}

	return urls
}

func isDenylisted(url string) bool {
	for _, d := range urlDenylist {
		if strings.Contains(url, d) {
			return true
		}
	}
	return false
}

// stripNonPrintable 剥离控制字节与非 ASCII 字节（URL 常嵌在二进制数据中间）
func stripNonPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 0x20 && c < 0x7F {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// extractSuspiciousAPIs 按特征库顺序检查可疑 API 子串是否出现（只记存在性）
func extractSuspiciousAPIs(text string) []string {
	var found []string
	for _, api := range SuspiciousAPIs {
		if strings.Contains(text, api) {
			found = append(found, api)
		}
	}
	return found
}

// extractSensitiveData 按特征库顺序、再按匹配顺序记录敏感数据命中，总量上限 20
func extractSensitiveData(text string) []SensitiveMatch {
	var matches []SensitiveMatch
	for _, p := range SensitivePatterns {
		for _, m := range p.Regex.FindAllString(text, -1) {
			matches = append(matches, SensitiveMatch{Kind: p.Name, Value: m})
			if len(matches) >= maxSensitiveMatches {
				return matches
			}
		}
	}
	return matches
}
