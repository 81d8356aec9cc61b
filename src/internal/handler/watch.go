package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/internal/core"
	"github.com/admi-n/solidity-vulnlab/src/internal/report/renderers"
	"github.com/admi-n/solidity-vulnlab/src/internal/risk"
	"github.com/admi-n/solidity-vulnlab/src/internal/scanner"
)

// WatchOptions 监视模式参数
type WatchOptions struct {
	Path string
	Out  io.Writer
	// OnResult 每次扫描成功后回调
	OnResult func(*core.Result)
}

// Watch 先扫描一次文件，之后在文件变化时重新扫描，直到 ctx 结束。
// 监视父目录以兼容编辑器“写临时文件再重命名”的保存方式。
func Watch(ctx context.Context, analyzer *core.Analyzer, opts WatchOptions, logger *zap.Logger) error {
	logger = logger.Named("watch")
	path, err := filepath.Abs(opts.Path)
	if err != nil {
		return fmt.Errorf("解析路径失败: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监视器失败: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("监视目录失败: %w", err)
	}

	rescan(ctx, analyzer, path, opts, logger)
	fmt.Fprintf(opts.Out, "👀 正在监视 %s，按 Ctrl+C 退出\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				logger.Debug("File changed.", zap.String("op", event.Op.String()))
				rescan(ctx, analyzer, path, opts, logger)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error.", zap.Error(err))
		}
	}
}

func rescan(ctx context.Context, analyzer *core.Analyzer, path string, opts WatchOptions, logger *zap.Logger) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read watched file.", zap.Error(err))
		return
	}
	res, err := analyzer.Analyze(ctx, path, string(data))
	if err != nil {
		var inputErr *scanner.InputError
		if errors.As(err, &inputErr) {
			fmt.Fprintf(opts.Out, "\n⏸️  %s: 文件没有可扫描的内容，保留上次结果\n", path)
			return
		}
		logger.Warn("Rescan failed.", zap.Error(err))
		return
	}
	printSummary(opts.Out, res)
	if opts.OnResult != nil {
		opts.OnResult(res)
	}
}

func printSummary(out io.Writer, res *core.Result) {
	fmt.Fprintf(out, "\n🔄 [%s] %s: 风险评分 %d/%d (%s)\n",
		res.ScannedAt.Format("15:04:05"), res.Target, res.Assessment.Score, risk.MaxScore, res.Assessment.Level())
	if len(res.Findings) == 0 {
		fmt.Fprintln(out, "  ✅ 未发现已知漏洞签名")
		return
	}
	for _, f := range res.Findings {
		fmt.Fprintf(out, "  %s [%s] %s x%d\n", renderers.SeverityIcon(f.Severity), f.Severity, f.Name, f.MatchCount)
	}
	fmt.Fprintf(out, "  合规: %d/%d 基线通过\n", res.Compliance.Passed, res.Compliance.Total)
}
