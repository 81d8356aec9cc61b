package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/admi-n/solidity-vulnlab/src/internal/core"
	"github.com/admi-n/solidity-vulnlab/src/internal/report"
	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// Target 一段待扫描的源码
type Target struct {
	Name   string
	Source string
}

// ScanOptions 扫描命令参数
type ScanOptions struct {
	Files       []string
	Examples    []string  // 目录内置示例合约的签名 id
	Stdin       io.Reader // 非 nil 时额外读取一段源码
	Format      string    // markdown | json
	OutputDir   string    // 为空时写到 Out
	Concurrency int
	Out         io.Writer
}

// CollectTargets 按 文件、示例、标准输入 的顺序收集扫描目标
func CollectTargets(catalog *signature.Catalog, opts ScanOptions) ([]Target, error) {
	var targets []Target
	for _, path := range opts.Files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取合约文件失败: %w", err)
		}
		targets = append(targets, Target{Name: filepath.Clean(path), Source: string(data)})
	}

	for _, id := range opts.Examples {
		sig, ok := catalog.Get(id)
		if !ok {
			return nil, fmt.Errorf("未知的签名: %s", id)
		}
		if strings.TrimSpace(sig.Example) == "" {
			return nil, fmt.Errorf("签名 %s 没有示例合约", id)
		}
		targets = append(targets, Target{Name: "example:" + id, Source: sig.Example})
	}

	if opts.Stdin != nil {
		data, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return nil, fmt.Errorf("读取标准输入失败: %w", err)
		}
		targets = append(targets, Target{Name: "stdin", Source: string(data)})
	}

	if len(targets) == 0 {
		return nil, errors.New("没有可扫描的目标: 请指定文件、--example 或 --stdin")
	}
	return targets, nil
}

// RunScan 并发扫描全部目标并输出报告。
// 空白目标会被跳过并记录警告，其余错误终止整个批次。
func RunScan(ctx context.Context, analyzer *core.Analyzer, opts ScanOptions, logger *zap.Logger) (*report.Report, error) {
	logger = logger.Named("scan")

	targets, err := CollectTargets(analyzer.Catalog(), opts)
	if err != nil {
		return nil, err
	}
	generator, err := report.NewGenerator(opts.Format)
	if err != nil {
		return nil, err
	}

	results := make([]*core.Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Concurrency > 0 {
		g.SetLimit(opts.Concurrency)
	}
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			res, err := analyzer.Analyze(gctx, t.Name, t.Source)
			if err != nil {
				var inputErr *scanner.InputError
				if errors.As(err, &inputErr) {
					logger.Warn("Skipping target.", zap.String("target", t.Name), zap.Error(err))
					return nil
				}
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("扫描失败: %w", err)
	}

	rep := report.NewReport()
	for _, res := range results {
		if res != nil {
			rep.AddResult(res)
		}
	}
	logger.Info("Scan finished.",
		zap.Int("targets", rep.TotalTargets),
		zap.Int("vulnerable", rep.VulnerableTargets),
		zap.Int("highest_score", rep.HighestScore))

	var storage report.Storage = &report.WriterStorage{W: opts.Out}
	if opts.OutputDir != "" {
		storage = report.NewFileStorage(opts.OutputDir)
	}
	location, err := report.NewReporter(generator, storage).GenerateAndSave(rep)
	if err != nil {
		return nil, err
	}
	if opts.OutputDir != "" {
		fmt.Fprintf(opts.Out, "📄 报告已保存: %s\n", location)
	}
	return rep, nil
}
