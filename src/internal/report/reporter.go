package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/admi-n/solidity-vulnlab/src/internal/core"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Reporter 报告器，整合生成器和存储功能
type Reporter struct {
	generator Generator
	storage   Storage
}

// NewReporter 创建报告器
func NewReporter(generator Generator, storage Storage) *Reporter {
	return &Reporter{
		generator: generator,
		storage:   storage,
	}
}

// GenerateAndSave 生成并保存报告，返回保存位置
func (r *Reporter) GenerateAndSave(report *Report) (string, error) {
	content, err := r.generator.Generate(report)
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	location, err := r.storage.Save(report, content, r.generator.Extension())
	if err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}

	return location, nil
}

// NewReport 创建新的报告实例
func NewReport() *Report {
	dist := make(map[signature.Severity]int, 4)
	for _, sev := range signature.Severities() {
		dist[sev] = 0
	}
	return &Report{
		ID:                   uuid.NewString(),
		GeneratedAt:          time.Now(),
		SeverityDistribution: dist,
		Entries:              make([]Entry, 0),
	}
}

// AddResult 添加一个目标的分析结果
func (r *Report) AddResult(res *core.Result) {
	r.Entries = append(r.Entries, Entry{Result: res, Level: res.Assessment.Level()})
	r.TotalTargets++

	if len(res.Findings) == 0 {
		return
	}
	r.VulnerableTargets++
	if res.Assessment.Score > r.HighestScore {
		r.HighestScore = res.Assessment.Score
	}
	for _, f := range res.Findings {
		r.SeverityDistribution[f.Severity]++
	}
}
