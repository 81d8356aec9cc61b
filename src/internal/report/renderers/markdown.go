package renderers

import (
	"fmt"
	"strings"

	"github.com/admi-n/solidity-vulnlab/src/internal/compliance"
	"github.com/admi-n/solidity-vulnlab/src/internal/recommend"
	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// MarkdownRenderer markdown渲染器
type MarkdownRenderer struct{}

// NewMarkdownRenderer 创建markdown渲染器
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{}
}

// RenderFinding 渲染单个 Finding，index 从 1 开始
func (r *MarkdownRenderer) RenderFinding(index int, f scanner.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d. %s **[%s]** %s (`%s`)\n", index, SeverityIcon(f.Severity), f.Severity, f.Name, f.SignatureID)
	fmt.Fprintf(&b, "   **命中次数**: %d，**置信度**: %.2f\n\n", f.MatchCount, f.Confidence)
	for _, snippet := range f.Snippets {
		b.WriteString(codeBlock("   ", snippet))
	}
	return b.String()
}

// RenderRecommendation 渲染一个签名的全部修复方案
func (r *MarkdownRenderer) RenderRecommendation(rec recommend.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#### %s %s (优先级 %s)\n\n", SeverityIcon(rec.Priority), rec.SignatureName, rec.Priority)
	for _, opt := range rec.Options {
		fmt.Fprintf(&b, "- **%s** [%s，安全提升 %d%%]\n\n", opt.Name, opt.Difficulty, opt.SecurityGain)
		if opt.Code != "" {
			b.WriteString(codeBlock("  ", opt.Code))
		}
	}
	return b.String()
}

// RenderCompliance 渲染合规检查表
func (r *MarkdownRenderer) RenderCompliance(sum compliance.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**通过**: %d/%d\n\n", sum.Passed, sum.Total)
	b.WriteString("| 基线 | 结果 | 违规签名 |\n|---|---|---|\n")
	for _, res := range sum.Results {
		status := "✅ 合规"
		if !res.Compliant {
			status = "❌ 不合规"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |\n", res.Name, status, strings.Join(res.Violations, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// SeverityIcon 获取严重等级对应的图标
func SeverityIcon(severity signature.Severity) string {
	switch severity {
	case signature.SeverityCritical:
		return "🔴"
	case signature.SeverityHigh:
		return "🟠"
	case signature.SeverityMedium:
		return "🟡"
	case signature.SeverityLow:
		return "🟢"
	default:
		return "⚪"
	}
}

func codeBlock(indent, code string) string {
	var b strings.Builder
	b.WriteString(indent + "```solidity\n")
	for _, line := range strings.Split(strings.TrimRight(code, "\n"), "\n") {
		b.WriteString(indent + line + "\n")
	}
	b.WriteString(indent + "```\n\n")
	return b.String()
}
