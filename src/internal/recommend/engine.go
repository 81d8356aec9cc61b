package recommend

import (
	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Recommendation 某个签名的全部修复建议，以签名严重性作为优先级
type Recommendation struct {
	SignatureID   string                        `json:"signature_id"`
	SignatureName string                        `json:"signature_name"`
	Priority      signature.Severity            `json:"priority"`
	Options       []signature.RemediationOption `json:"options"`
}

// Engine 把 Finding 映射为修复建议
type Engine struct {
	catalog *signature.Catalog
	logger  *zap.Logger
}

// New 创建推荐引擎；logger 可为 nil
func New(catalog *signature.Catalog, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{catalog: catalog, logger: logger.Named("recommend")}
}

// Recommend 按首次出现顺序为每个不同的签名输出其修复方案。
// 各签名的建议相互独立，不做跨签名去重。
func (e *Engine) Recommend(findings []scanner.Finding) []Recommendation {
	seen := make(map[string]struct{}, len(findings))
	out := make([]Recommendation, 0, len(findings))
	for _, f := range findings {
		if _, dup := seen[f.SignatureID]; dup {
			continue
		}
		seen[f.SignatureID] = struct{}{}

		sig, ok := e.catalog.Get(f.SignatureID)
		if !ok {
			e.logger.Warn("Finding references unknown signature, skipping.", zap.String("signature", f.SignatureID))
			continue
		}
		out = append(out, Recommendation{
			SignatureID:   sig.ID,
			SignatureName: sig.Name,
			Priority:      sig.Severity,
			Options:       append([]signature.RemediationOption(nil), sig.Remediations...),
		})
	}
	return out
}
