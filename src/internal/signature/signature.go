package signature

import (
	"github.com/admi-n/solidity-vulnlab/src/internal/scenario"
)

// Signature 表示一个已知漏洞特征，目录加载后不可变
type Signature struct {
	ID           string
	Name         string
	Description  string
	SWC          string // 例如 SWC-107
	Severity     Severity
	Confidence   float64 // (0,1]，与匹配次数无关
	Matchers     []Matcher
	Factors      RiskFactors
	Remediations []RemediationOption
	Scenario     scenario.Script
	Example      string // 供手动探索的示例合约源码
}

// RiskFactors 描述漏洞的风险维度，每项取值 [0,10]
type RiskFactors struct {
	Exploitability float64 `yaml:"exploitability" json:"exploitability"`
	Impact         float64 `yaml:"impact" json:"impact"`
	Likelihood     float64 `yaml:"likelihood" json:"likelihood"`
	Complexity     float64 `yaml:"complexity" json:"complexity"`
}

func (f RiskFactors) values() map[string]float64 {
	return map[string]float64{
		"exploitability": f.Exploitability,
		"impact":         f.Impact,
		"likelihood":     f.Likelihood,
		"complexity":     f.Complexity,
	}
}

// RemediationOption 一条修复建议
type RemediationOption struct {
	ID           string     `yaml:"id" json:"id"`
	Name         string     `yaml:"name" json:"name"`
	Difficulty   Difficulty `yaml:"difficulty" json:"difficulty"`
	SecurityGain int        `yaml:"security_gain" json:"security_gain"` // 百分比
	Code         string     `yaml:"code" json:"code"`
}

// Standard 合规基线：出现任一被禁止的签名即视为不合规
type Standard struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Forbids     []string `yaml:"forbids"`
}

// Example 目录中附带的示例合约
type Example struct {
	SignatureID string
	Name        string
	Source      string
}
