package cmd

import (
	"github.com/spf13/cobra"

	"github.com/admi-n/solidity-vulnlab/src/internal/handler"
)

func newScanCommand(a *app) *cobra.Command {
	var (
		examples []string
		stdin    bool
	)
	cmd := &cobra.Command{
		Use:   "scan [files...]",
		Short: "扫描合约源码并输出风险报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			opts := handler.ScanOptions{
				Files:       args,
				Examples:    examples,
				Format:      a.cfg.Report.Format,
				OutputDir:   a.cfg.Report.OutputDir,
				Concurrency: a.cfg.Scan.Concurrency,
				Out:         cmd.OutOrStdout(),
			}
			if stdin {
				opts.Stdin = cmd.InOrStdin()
			}
			_, err = handler.RunScan(cmd.Context(), analyzer, opts, a.logger)
			return err
		},
	}
	cmd.Flags().StringSliceVarP(&examples, "example", "e", nil, "扫描内置示例合约 (签名 id，可重复)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "从标准输入读取源码")
	cmd.Flags().StringP("format", "f", "markdown", "报告格式 markdown|json")
	cmd.Flags().StringP("output", "o", "", "报告输出目录 (默认写到标准输出)")
	cmd.Flags().Int("concurrency", 4, "同时扫描的文件数")
	return cmd
}

func newCatalogCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "查看漏洞签名目录",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "列出全部签名",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.catalog()
				if err != nil {
					return err
				}
				return handler.ListCatalog(cmd.OutOrStdout(), c)
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "查看签名详情",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := a.catalog()
				if err != nil {
					return err
				}
				return handler.ShowSignature(cmd.OutOrStdout(), c, args[0])
			},
		},
	)
	return cmd
}

func newScenarioCommand(a *app) *cobra.Command {
	var (
		autoplay bool
		steps    int
	)
	cmd := &cobra.Command{
		Use:   "scenario <signature-id>",
		Short: "回放签名对应的攻击场景",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.catalog()
			if err != nil {
				return err
			}
			_, err = handler.RunScenario(cmd.Context(), c, handler.ScenarioOptions{
				SignatureID: args[0],
				Autoplay:    autoplay,
				Speed:       a.cfg.Scenario.Speed,
				Steps:       steps,
				Out:         cmd.OutOrStdout(),
			}, a.logger)
			return err
		},
	}
	cmd.Flags().BoolVar(&autoplay, "autoplay", false, "按固定间隔自动播放")
	cmd.Flags().Duration("speed", 0, "自动播放间隔 (250ms-10s)")
	cmd.Flags().IntVar(&steps, "steps", 0, "手动模式下前进的步数，0 表示全部")
	return cmd
}

func newWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "监视合约文件，变化时重新扫描",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzer, err := a.analyzer()
			if err != nil {
				return err
			}
			return handler.Watch(cmd.Context(), analyzer, handler.WatchOptions{
				Path: args[0],
				Out:  cmd.OutOrStdout(),
			}, a.logger)
		},
	}
}
