package handler

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/admi-n/solidity-vulnlab/src/internal/scenario"
	"github.com/admi-n/solidity-vulnlab/src/internal/signature"
)

// ScenarioOptions 场景回放参数
type ScenarioOptions struct {
	SignatureID string
	Autoplay    bool
	Speed       time.Duration
	Steps       int // 手动模式下前进的步数，0 表示走完全部步骤
	Out         io.Writer
}

var levelIcons = map[scenario.LogLevel]string{
	scenario.LevelInfo:    "ℹ️ ",
	scenario.LevelWarning: "⚠️ ",
	scenario.LevelDanger:  "🚨",
	scenario.LevelSuccess: "✅",
}

// RunScenario 载入签名的攻击场景并逐步回放，返回最终状态
func RunScenario(ctx context.Context, catalog *signature.Catalog, opts ScenarioOptions, logger *zap.Logger) (scenario.State, error) {
	sig, ok := catalog.Get(opts.SignatureID)
	if !ok {
		return scenario.State{}, fmt.Errorf("未知的签名: %s", opts.SignatureID)
	}

	finished := make(chan struct{}, 1)
	printed := 0
	observer := func(st scenario.State) {
		for _, entry := range st.Log {
			if entry.Seq <= printed {
				continue
			}
			printEntry(opts.Out, st, entry)
			printed = entry.Seq
		}
		if st.Tag == scenario.TagFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	}

	playerOpts := []scenario.Option{scenario.WithLogger(logger), scenario.WithObserver(observer)}
	if opts.Speed > 0 {
		playerOpts = append(playerOpts, scenario.WithSpeed(opts.Speed))
	}
	player := scenario.NewPlayer(playerOpts...)
	defer player.Close()

	player.Select(sig.Name, sig.Scenario)

	if opts.Autoplay {
		player.AutoPlay()
		select {
		case <-finished:
		case <-ctx.Done():
			player.Pause()
			st := player.State()
			printLedger(opts.Out, st)
			return st, ctx.Err()
		}
	} else {
		steps := opts.Steps
		if steps <= 0 {
			steps = len(sig.Scenario.Steps)
		}
		for i := 0; i < steps; i++ {
			if err := ctx.Err(); err != nil {
				return player.State(), err
			}
			player.NextStep()
		}
	}

	st := player.State()
	printLedger(opts.Out, st)
	return st, nil
}

func printEntry(out io.Writer, st scenario.State, entry scenario.LogEntry) {
	prefix := "     "
	if entry.Step > 0 {
		prefix = fmt.Sprintf("[%d/%d]", entry.Step, st.MaxSteps)
	}
	fmt.Fprintf(out, "%s %s %s\n", prefix, levelIcons[entry.Level], entry.Message)
	if entry.Step > 0 && len(st.CallStack) > 0 && entry.Step == st.StepIndex {
		for depth, frame := range st.CallStack {
			fmt.Fprintf(out, "        %*s↳ %s\n", depth*2, "", frame)
		}
	}
}

func printLedger(out io.Writer, st scenario.State) {
	ids := make([]string, 0, len(st.Participants))
	for id := range st.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintf(out, "\n📒 %s: 第 %d/%d 步 (%s)\n", st.Title, st.StepIndex, st.MaxSteps, st.Tag)
	for _, id := range ids {
		p := st.Participants[id]
		marker := " "
		if id == st.Active {
			marker = "*"
		}
		line := fmt.Sprintf("%s %-10s %-22s %s  余额 %s", marker, id, p.Role, p.Address.Hex(), p.Balance)
		if p.Deposited != nil {
			line += fmt.Sprintf("  存款 %s", p.Deposited)
		}
		if p.Tokens != nil {
			line += fmt.Sprintf("  代币 %s", p.Tokens)
		}
		fmt.Fprintln(out, line)
	}
}
