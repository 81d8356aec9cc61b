package handler

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/admi-n/solidity-vulnlab/src/internal/report/renderers"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// ListCatalog 按注册顺序列出全部签名
func ListCatalog(out io.Writer, catalog *signature.Catalog) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSEVERITY\tCONFIDENCE\tSWC\tSTEPS")
	for _, sig := range catalog.All() {
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%.2f\t%s\t%d\n",
			sig.ID, sig.Name, renderers.SeverityIcon(sig.Severity), sig.Severity, sig.Confidence, sig.SWC, len(sig.Scenario.Steps))
	}
	return w.Flush()
}

// ShowSignature 输出单个签名的详细信息
func ShowSignature(out io.Writer, catalog *signature.Catalog, id string) error {
	sig, ok := catalog.Get(id)
	if !ok {
		return fmt.Errorf("未知的签名: %s", id)
	}

	fmt.Fprintf(out, "%s %s (%s)\n", renderers.SeverityIcon(sig.Severity), sig.Name, sig.ID)
	fmt.Fprintf(out, "严重性: %s  置信度: %.2f  %s\n\n", sig.Severity, sig.Confidence, sig.SWC)
	fmt.Fprintln(out, strings.TrimSpace(sig.Description))
	fmt.Fprintf(out, "\n风险维度: 可利用性 %.0f  影响 %.0f  可能性 %.0f  复杂度 %.0f\n",
		sig.Factors.Exploitability, sig.Factors.Impact, sig.Factors.Likelihood, sig.Factors.Complexity)

	fmt.Fprintln(out, "\n修复方案:")
	for _, opt := range sig.Remediations {
		fmt.Fprintf(out, "  - %s [%s，安全提升 %d%%]\n", opt.Name, opt.Difficulty, opt.SecurityGain)
	}

	var forbidden []string
	for _, std := range catalog.Standards() {
		for _, f := range std.Forbids {
			if f == sig.ID {
				forbidden = append(forbidden, std.Name)
			}
		}
	}
	if len(forbidden) > 0 {
		fmt.Fprintf(out, "\n违反基线: %s\n", strings.Join(forbidden, ", "))
	}
	if sig.Example != "" {
		fmt.Fprintf(out, "\n示例合约: vulnlab scan --example %s\n", sig.ID)
	}
	return nil
}
