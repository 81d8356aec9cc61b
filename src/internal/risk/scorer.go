package risk

import (
	"math"

	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// MaxScore 风险评分上限
const MaxScore = 100

// Level 风险等级标签
type Level string

const (
	LevelNone     Level = "None"
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// Assessment 由 Finding 列表推导出的风险评估
type Assessment struct {
	Score         int                        `json:"score"`
	Counts        map[signature.Severity]int `json:"counts"`
	AvgConfidence float64                    `json:"avg_confidence"`
}

// Level 将评分映射到风险等级
func (a Assessment) Level() Level {
	switch {
	case a.Score == 0:
		return LevelNone
	case a.Score < 25:
		return LevelLow
	case a.Score < 50:
		return LevelMedium
	case a.Score < 75:
		return LevelHigh
	default:
		return LevelCritical
	}
}

// Contribution 单个 Finding 对总分的贡献：weight(severity) × matchCount × confidence
func Contribution(f scanner.Finding) float64 {
	return f.Severity.Weight() * float64(f.MatchCount) * f.Confidence
}

// Assess 计算风险评分，纯函数。
// 非空列表的得分至少为 1，保证“得分为 0 当且仅当没有 Finding”。
func Assess(findings []scanner.Finding) Assessment {
	a := Assessment{Counts: make(map[signature.Severity]int, 4)}
	for _, sev := range signature.Severities() {
		a.Counts[sev] = 0
	}
	if len(findings) == 0 {
		return a
	}

	var total, confidence float64
	for _, f := range findings {
		total += Contribution(f)
		confidence += f.Confidence
		a.Counts[f.Severity]++
	}

	score := int(math.Round(math.Min(math.Max(total, 0), MaxScore)))
	if score == 0 {
		score = 1
	}
	a.Score = score
	a.AvgConfidence = confidence / float64(len(findings))
	return a
}
