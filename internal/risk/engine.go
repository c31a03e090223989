// Package risk 实现确定性风险评分引擎。
//
// 公式：R = (P × 5) + (M × 40) + (U × 10) + (A × 8)
//
//	P = 危险权限数量
//	M = 恶意签名命中（0 或 1）
//	U = 内嵌可疑 URL 数量
//	A = 可疑 API 调用数量
//
// 求和后统一截断到 100（先求和再封顶，任何单一维度都不能越过满分）。
package risk

import "fmt"

// 各因子权重
const (
	WeightPermission = 5
	WeightMalware    = 40
	WeightURL        = 10
	WeightAPI        = 8
)

// MaxScore 评分上限
const MaxScore = 100

// Classification 风险分级标签
type Classification string

const (
	ClassSafe   Classification = "Safe"
	ClassMedium Classification = "Medium Risk"
	ClassHigh   Classification = "High Risk"
)

// Factors 评分输入（四个非负整数，M 取值 0/1）
type Factors struct {
	P int // dangerous permission count
	M int // malware signature match (0 or 1)
	U int // embedded URL count
	A int // suspicious API count
}

// FactorDetail 单因子明细（可审计的分数来源）
type FactorDetail struct {
	Count  int  `json:"count"`
	Points int  `json:"points"`
	Weight int  `json:"weight"`
	Match  bool `json:"match,omitempty"`
}

// Breakdown 评分结果与逐因子拆解。
// 纯派生数据：每次请求由四个整数重新计算，无身份、无可变状态。
type Breakdown struct {
	Score          int            `json:"score"`
	Classification Classification `json:"classification"`
	Permissions    FactorDetail   `json:"permissions"`
	Malware        FactorDetail   `json:"malware"`
	URLs           FactorDetail   `json:"urls"`
	APIs           FactorDetail   `json:"apis"`
	Formula        string         `json:"formula"`
	ColorCode      string         `json:"colorCode"`
}

// Score 计算加权总分并封顶。纯函数，全定义域，对输入无错误路径。
func Score(f Factors) int {
	raw := f.P*WeightPermission + f.M*WeightMalware + f.U*WeightURL + f.A*WeightAPI
	if raw > MaxScore {
		return MaxScore
	}
	return raw
}

// Classify 按封顶后的分数分级：≤30 Safe，31-60 Medium Risk，≥61 High Risk
func Classify(score int) Classification {
	switch {
	case score <= 30:
		return ClassSafe
	case score <= 60:
		return ClassMedium
	default:
		return ClassHigh
	}
}

// BuildBreakdown 计算分数、分级与逐因子明细
func BuildBreakdown(f Factors) *Breakdown {
	score := Score(f)
	classification := Classify(score)

	return &Breakdown{
		Score:          score,
		Classification: classification,
		Permissions: FactorDetail{
			Count:  f.P,
			Points: f.P * WeightPermission,
			Weight: WeightPermission,
		},
		Malware: FactorDetail{
			Count:  f.M,
			Points: f.M * WeightMalware,
			Weight: WeightMalware,
			Match:  f.M == 1,
		},
		URLs: FactorDetail{
			Count:  f.U,
			Points: f.U * WeightURL,
			Weight: WeightURL,
		},
		APIs: FactorDetail{
			Count:  f.A,
			Points: f.A * WeightAPI,
			Weight: WeightAPI,
		},
		Formula: fmt.Sprintf("R = (%d×%d) + (%d×%d) + (%d×%d) + (%d×%d) = %d",
			f.P, WeightPermission, f.M, WeightMalware, f.U, WeightURL, f.A, WeightAPI, score),
		ColorCode: colorFor(classification),
	}
}

// colorFor 颜色标签完全由分级决定
func colorFor(c Classification) string {
	switch c {
	case ClassSafe:
		return "green"
	case ClassMedium:
		return "yellow"
	default:
		return "red"
	}
}
