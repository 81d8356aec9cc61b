// Package core 串联扫描、评分、修复建议与合规检查，并以整体替换的方式发布结果。
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/internal/compliance"
	"github.com/admi-n/solidity-vulnlab/src/internal/recommend"
	"github.com/admi-n/solidity-vulnlab/src/internal/risk"
	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Result 一次完整分析的输出，发布后不再修改
type Result struct {
	ID              string                     `json:"id"`
	Target          string                     `json:"target"`
	ScannedAt       time.Time                  `json:"scanned_at"`
	Findings        []scanner.Finding          `json:"findings"`
	Assessment      risk.Assessment            `json:"assessment"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Compliance      compliance.Summary         `json:"compliance"`
}

// Analyzer 同步运行分析管线
type Analyzer struct {
	catalog  *signature.Catalog
	scanner  *scanner.Scanner
	engine   *recommend.Engine
	checker  *compliance.Checker
	logger   *zap.Logger
	snippets int

	mu        sync.Mutex
	issued    uint64
	published uint64
	latest    *Result
}

// Option 配置 Analyzer
type Option func(*Analyzer)

// WithLogger 设置日志记录器，nil 时保持静默
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithMaxSnippets 透传给 Scanner
func WithMaxSnippets(n int) Option {
	return func(a *Analyzer) { a.snippets = n }
}

// NewAnalyzer 使用给定目录创建分析器
func NewAnalyzer(catalog *signature.Catalog, opts ...Option) *Analyzer {
	a := &Analyzer{catalog: catalog, logger: zap.NewNop(), snippets: scanner.MaxSnippets}
	for _, opt := range opts {
		opt(a)
	}
	a.scanner = scanner.New(catalog, scanner.WithLogger(a.logger), scanner.WithMaxSnippets(a.snippets))
	a.engine = recommend.New(catalog, a.logger)
	a.checker = compliance.New(catalog)
	a.logger = a.logger.Named("analyzer")
	return a
}

// Catalog 返回分析器使用的签名目录
func (a *Analyzer) Catalog() *signature.Catalog { return a.catalog }

// Analyze 扫描 source 并计算全部派生结果。
// 成功时结果会被发布为 Latest，除非期间已有更晚发起的分析先完成发布；
// 失败时不发布，之前的结果保持不变。
func (a *Analyzer) Analyze(ctx context.Context, target, source string) (*Result, error) {
	a.mu.Lock()
	a.issued++
	seq := a.issued
	a.mu.Unlock()

	findings, err := a.scanner.ScanContext(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", target, err)
	}

	res := &Result{
		ID:              uuid.NewString(),
		Target:          target,
		ScannedAt:       time.Now(),
		Findings:        findings,
		Assessment:      risk.Assess(findings),
		Recommendations: a.engine.Recommend(findings),
		Compliance:      a.checker.Check(findings),
	}

	a.mu.Lock()
	if seq > a.published {
		a.published = seq
		a.latest = res
	}
	a.mu.Unlock()

	a.logger.Debug("Analysis complete.",
		zap.String("id", res.ID),
		zap.String("target", target),
		zap.Int("findings", len(findings)),
		zap.Int("score", res.Assessment.Score))
	return res, nil
}

// Latest 返回最近发布的结果；尚无结果时为 nil
func (a *Analyzer) Latest() *Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}
