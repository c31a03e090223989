package apk

const (
	// manifestEntryName Manifest 条目的固定路径
	manifestEntryName = "AndroidManifest.xml"

	// manifestPreviewLimit 原始 Manifest 预览字节数上限（仅诊断用）
	manifestPreviewLimit = 100000
)

// BestEffortPermissions 从二进制 Manifest 中尽力提取权限标识。
//
// AndroidManifest.xml 采用 AXML 二进制编码，这里不做格式解码：
// 权限标识在二进制结构中仍以连续可打印子串形式出现，直接对原始字节的
// 逐字节字符串视图做正则子串扫描即可恢复。该做法是刻意的精度/成本权衡，
// 非 Manifest 数据中出现的同形子串会造成误报/漏报，误差率未标定。
//
// Manifest 条目缺失或不可读不是错误，返回空结果（由评分阶段体现可疑性）。
// 权限按首次出现顺序去重；dangerousCount 为与危险权限清单的精确交集基数。
func BestEffortPermissions(archive *Archive) (permissions []string, dangerousCount int, rawPreview string) {
	var manifest []byte
	for _, f := range archive.Entries() {
		if f.Name == manifestEntryName {
			data, err := archive.ReadEntry(f)
			if err != nil {
				// 单条目损坏按缺失处理
				return nil, 0, ""
			}
			manifest = data
			break
		}
	}
	if manifest == nil {
		return nil, 0, ""
	}

	preview := manifest
	if len(preview) > manifestPreviewLimit {
		preview = preview[:manifestPreviewLimit]
	}
	rawPreview = string(preview)

	seen := make(map[string]struct{})
	for _, m := range permissionRegex.FindAllString(string(manifest), -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		permissions = append(permissions, m)
		if _, ok := dangerousPermissionSet[m]; ok {
			dangerousCount++
		}
	}

	return permissions, dangerousCount, rawPreview
}
