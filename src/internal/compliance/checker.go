// Package compliance 根据 Finding 对照合规基线，结果完全确定。
package compliance

import (
	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Result 单个基线的检查结果
type Result struct {
	StandardID string   `json:"standard_id"`
	Name       string   `json:"name"`
	Compliant  bool     `json:"compliant"`
	Violations []string `json:"violations,omitempty"` // 命中的被禁止签名 id，按基线声明顺序
}

// Summary 汇总全部基线
type Summary struct {
	Results   []Result `json:"results"`
	Passed    int      `json:"passed"`
	Total     int      `json:"total"`
	Compliant bool     `json:"compliant"`
}

// Checker 对照目录中的合规基线
type Checker struct {
	standards []signature.Standard
}

// New 使用目录声明的基线创建检查器
func New(catalog *signature.Catalog) *Checker {
	return &Checker{standards: catalog.Standards()}
}

// Check 某基线合规当且仅当其禁止的签名均未出现在 findings 中
func (c *Checker) Check(findings []scanner.Finding) Summary {
	present := make(map[string]struct{}, len(findings))
	for _, f := range findings {
		present[f.SignatureID] = struct{}{}
	}

	sum := Summary{Results: make([]Result, 0, len(c.standards)), Total: len(c.standards)}
	for _, std := range c.standards {
		r := Result{StandardID: std.ID, Name: std.Name}
		for _, id := range std.Forbids {
			if _, hit := present[id]; hit {
				r.Violations = append(r.Violations, id)
			}
		}
		r.Compliant = len(r.Violations) == 0
		if r.Compliant {
			sum.Passed++
		}
		sum.Results = append(sum.Results, r)
	}
	sum.Compliant = sum.Passed == sum.Total
	return sum
}
