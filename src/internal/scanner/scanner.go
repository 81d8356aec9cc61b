package scanner

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// MaxSnippets 每个 Finding 最多保留的代表性片段数
const MaxSnippets = 3

// InputError 表示源码为空或只包含空白，扫描未执行
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

// Finding 一个签名在源码上的命中结果
type Finding struct {
	SignatureID string             `json:"id"`
	Name        string             `json:"name"`
	Severity    signature.Severity `json:"severity"`
	Confidence  float64            `json:"confidence"`
	MatchCount  int                `json:"match_count"`
	Snippets    []string           `json:"snippets"`
}

// Option 配置 Scanner
type Option func(*Scanner)

// WithLogger 设置日志记录器，nil 时保持静默
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) {
		if l == nil {
			l = zap.NewNop()
		}
		s.logger = l.Named("scanner")
	}
}

// WithMaxSnippets 调整片段数上限，钳制在 [1,3]
func WithMaxSnippets(n int) Option {
	return func(s *Scanner) {
		if n < 1 {
			n = 1
		}
		if n > MaxSnippets {
			n = MaxSnippets
		}
		s.maxSnippets = n
	}
}

// Scanner 用目录中的全部签名匹配源码
type Scanner struct {
	catalog     *signature.Catalog
	logger      *zap.Logger
	maxSnippets int
}

// New 创建扫描器，catalog 只读
func New(catalog *signature.Catalog, opts ...Option) *Scanner {
	s := &Scanner{
		catalog:     catalog,
		logger:      zap.NewNop(),
		maxSnippets: MaxSnippets,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scan 扫描源码，结果按目录注册顺序排列。无命中时返回空列表而非错误。
func (s *Scanner) Scan(source string) ([]Finding, error) {
	return s.ScanContext(context.Background(), source)
}

// ScanContext 同 Scan，但在签名之间检查 ctx 是否已取消
func (s *Scanner) ScanContext(ctx context.Context, source string) ([]Finding, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &InputError{Reason: "source text is empty"}
	}

	src := signature.NewSource(source)
	findings := make([]Finding, 0)
	for _, sig := range s.catalog.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f, ok := s.evaluate(sig, src); ok {
			findings = append(findings, f)
		}
	}

	s.logger.Debug("Scan completed.",
		zap.Int("lines", src.Len()),
		zap.Int("signatures", s.catalog.Len()),
		zap.Int("findings", len(findings)))
	return findings, nil
}

// evaluate 合并同一签名下所有匹配规则的命中次数（不去重）
func (s *Scanner) evaluate(sig *signature.Signature, src *signature.Source) (Finding, bool) {
	count := 0
	var snippets []string
	for _, m := range sig.Matchers {
		matches := m.Match(src)
		count += len(matches)
		for _, match := range matches {
			if len(snippets) >= s.maxSnippets {
				break
			}
			snippets = append(snippets, match.Snippet)
		}
	}
	if count == 0 {
		return Finding{}, false
	}
	return Finding{
		SignatureID: sig.ID,
		Name:        sig.Name,
		Severity:    sig.Severity,
		Confidence:  sig.Confidence,
		MatchCount:  count,
		Snippets:    snippets,
	}, true
}
