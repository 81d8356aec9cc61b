package report

import (
	"fmt"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/admi-n/solidity-vulnlab/src/internal/core"
	"github.com/admi-n/solidity-vulnlab/src/internal/report/renderers"
	"github.com/admi-n/solidity-vulnlab/src/internal/risk"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Entry 单个目标的分析结果，附带风险等级
type Entry struct {
	*core.Result
	Level risk.Level `json:"level"`
}

// Report 一次调用中全部目标的报告
type Report struct {
	ID                   string                     `json:"id"`
	GeneratedAt          time.Time                  `json:"generated_at"`
	TotalTargets         int                        `json:"total_targets"`
	VulnerableTargets    int                        `json:"vulnerable_targets"`
	HighestScore         int                        `json:"highest_score"`
	SeverityDistribution map[signature.Severity]int `json:"severity_distribution"`
	Entries              []Entry                    `json:"entries"`
}

// Generator 报告生成器接口
type Generator interface {
	Generate(report *Report) (string, error)
	// Extension 报告文件扩展名，不含点
	Extension() string
}

// NewGenerator 按格式名创建生成器
func NewGenerator(format string) (Generator, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownGenerator(), nil
	case "json":
		return NewJSONGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// MarkdownGenerator markdown格式报告生成器
type MarkdownGenerator struct {
	renderer *renderers.MarkdownRenderer
}

// NewMarkdownGenerator 创建markdown报告生成器
func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{renderer: renderers.NewMarkdownRenderer()}
}

func (g *MarkdownGenerator) Extension() string { return "md" }

// Generate 生成markdown格式报告
func (g *MarkdownGenerator) Generate(report *Report) (string, error) {
	var b strings.Builder

	b.WriteString("# Solidity VulnLab 扫描报告\n\n")
	fmt.Fprintf(&b, "**报告 ID**: %s\n", report.ID)
	fmt.Fprintf(&b, "**生成时间**: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("## 扫描统计\n\n")
	fmt.Fprintf(&b, "- **目标数**: %d\n", report.TotalTargets)
	fmt.Fprintf(&b, "- **存在漏洞**: %d\n", report.VulnerableTargets)
	fmt.Fprintf(&b, "- **最高风险评分**: %d/%d\n\n", report.HighestScore, risk.MaxScore)

	if report.VulnerableTargets > 0 {
		b.WriteString("## 漏洞严重性分布\n\n")
		for _, sev := range signature.Severities() {
			if n := report.SeverityDistribution[sev]; n > 0 {
				fmt.Fprintf(&b, "- %s **%s**: %d\n", renderers.SeverityIcon(sev), sev, n)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## 详细结果\n\n")
	for i, e := range report.Entries {
		fmt.Fprintf(&b, "# 目标: %s\n\n", e.Target)
		fmt.Fprintf(&b, "**结果 ID**: %s\n", e.ID)
		fmt.Fprintf(&b, "**扫描时间**: %s\n", e.ScannedAt.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "**风险评分**: %d/%d (%s)\n", e.Assessment.Score, risk.MaxScore, e.Level)
		if len(e.Findings) > 0 {
			fmt.Fprintf(&b, "**平均置信度**: %.2f\n", e.Assessment.AvgConfidence)
		}
		b.WriteString("\n")

		if len(e.Findings) == 0 {
			b.WriteString("✅ 未发现已知漏洞签名\n\n")
		} else {
			b.WriteString("### 漏洞详情\n\n")
			for j, f := range e.Findings {
				b.WriteString(g.renderer.RenderFinding(j+1, f))
			}
		}

		if len(e.Recommendations) > 0 {
			b.WriteString("### 修复建议\n\n")
			for _, rec := range e.Recommendations {
				b.WriteString(g.renderer.RenderRecommendation(rec))
			}
		}

		b.WriteString("### 合规检查\n\n")
		b.WriteString(g.renderer.RenderCompliance(e.Compliance))

		if i < len(report.Entries)-1 {
			b.WriteString("---\n\n")
		}
	}

	return b.String(), nil
}

// JSONGenerator JSON格式报告生成器
type JSONGenerator struct {
	api jsoniter.API
}

// NewJSONGenerator 创建JSON报告生成器
func NewJSONGenerator() *JSONGenerator {
	return &JSONGenerator{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (g *JSONGenerator) Extension() string { return "json" }

// Generate 生成缩进的JSON报告
func (g *JSONGenerator) Generate(report *Report) (string, error) {
	data, err := g.api.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data) + "\n", nil
}
