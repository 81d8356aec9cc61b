package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/config"
	"github.com/admi-n/solidity-vulnlab/src/internal/core"
	"github.com/admi-n/solidity-vulnlab/src/internal/observability"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// flagBindings 命令行参数到配置键的映射，参数显式给出时覆盖配置文件与环境变量
var flagBindings = map[string]string{
	"log-level":   "logger.level",
	"format":      "report.format",
	"output":      "report.output_dir",
	"concurrency": "scan.concurrency",
	"speed":       "scenario.speed",
	"catalog":     "scan.catalog",
}

// app 单次命令执行期间共享的依赖
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  *zap.Logger
}

// NewRootCommand 创建完整的命令树
func NewRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:           "vulnlab",
		Short:         "Solidity 漏洞实验室：签名扫描、风险评分与攻击场景回放",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initialize(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			observability.Sync()
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "配置文件 (默认 ~/.vulnlab/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "日志级别 debug|info|warn|error")
	root.PersistentFlags().String("catalog", "", "自定义签名目录 YAML")

	root.AddCommand(
		newScanCommand(a),
		newCatalogCommand(a),
		newScenarioCommand(a),
		newWatchCommand(a),
	)
	return root
}

// initialize 读取配置并初始化日志
func (a *app) initialize(cmd *cobra.Command) error {
	v := config.NewViper()
	if err := config.ReadInto(v, a.cfgFile); err != nil {
		return err
	}
	if err := bindFlags(v, cmd); err != nil {
		return err
	}

	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	observability.InitializeLogger(cfg.Logger)
	a.logger = observability.GetLogger()
	a.logger.Debug("Configuration loaded.", zap.String("file", v.ConfigFileUsed()))
	return nil
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagBindings {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// catalog 返回配置指定的签名目录，未配置时使用内置目录
func (a *app) catalog() (*signature.Catalog, error) {
	if a.cfg.Scan.Catalog == "" {
		return signature.Default(), nil
	}
	c, err := signature.LoadFile(a.cfg.Scan.Catalog)
	if err != nil {
		return nil, fmt.Errorf("加载签名目录失败: %w", err)
	}
	return c, nil
}

func (a *app) analyzer() (*core.Analyzer, error) {
	c, err := a.catalog()
	if err != nil {
		return nil, err
	}
	return core.NewAnalyzer(c,
		core.WithLogger(a.logger),
		core.WithMaxSnippets(a.cfg.Scan.MaxSnippets)), nil
}

// Run 解析命令行并执行，收到 SIGINT/SIGTERM 时取消
func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// PrintFatal 将错误打印到 stderr 并以非零代码退出。
func PrintFatal(err error) {
	if err == nil {
		return
	}

	observability.Sync()
	fmt.Fprintln(os.Stderr, "错误:", err)
	os.Exit(1)
}
