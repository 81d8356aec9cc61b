package scenario

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Kind 参与者类型
type Kind string

const (
	KindContract Kind = "contract"
	KindEOA      Kind = "eoa"
)

// LogLevel 场景日志级别，用于展示层着色
type LogLevel string

const (
	LevelInfo    LogLevel = "info"
	LevelWarning LogLevel = "warning"
	LevelDanger  LogLevel = "danger"
	LevelSuccess LogLevel = "success"
)

// Participant 模拟账本中持有余额的角色
type Participant struct {
	ID        string         `yaml:"id"`
	Role      string         `yaml:"role"`
	Kind      Kind           `yaml:"kind"`
	Address   common.Address `yaml:"-"`
	Balance   Amount         `yaml:"balance"`
	Deposited *Amount        `yaml:"deposited,omitempty"`
	Tokens    *Amount        `yaml:"tokens,omitempty"`
}

// Clone 深拷贝参与者
func (p Participant) Clone() Participant {
	out := p
	out.Balance = p.Balance.Clone()
	out.Deposited = cloneAmountPtr(p.Deposited)
	out.Tokens = cloneAmountPtr(p.Tokens)
	return out
}

// LedgerDelta 对单个参与者的字段级更新，nil 字段保持不变
type LedgerDelta struct {
	Participant string  `yaml:"participant"`
	Balance     *Amount `yaml:"balance,omitempty"`
	Deposited   *Amount `yaml:"deposited,omitempty"`
	Tokens      *Amount `yaml:"tokens,omitempty"`
}

func (d LedgerDelta) apply(p *Participant) {
	if d.Balance != nil {
		p.Balance = d.Balance.Clone()
	}
	if d.Deposited != nil {
		p.Deposited = cloneAmountPtr(d.Deposited)
	}
	if d.Tokens != nil {
		p.Tokens = cloneAmountPtr(d.Tokens)
	}
}

// Step 场景脚本中的一步。CallStack 为 nil 表示保持当前调用栈，非 nil（包括空切片）表示替换。
type Step struct {
	Message   string        `yaml:"message"`
	Level     LogLevel      `yaml:"level"`
	Actor     string        `yaml:"actor,omitempty"`
	CallStack []string      `yaml:"call_stack,omitempty"`
	Deltas    []LedgerDelta `yaml:"deltas,omitempty"`
}

// Script 不可变的场景脚本：初始参与者名单 + 有序步骤
type Script struct {
	Participants []Participant `yaml:"participants"`
	Steps        []Step        `yaml:"steps"`
}

// AddressFor 根据参与者 id 派生确定性的模拟地址
func AddressFor(id string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("vulnlab:" + id))[12:])
}

// Roster 返回初始名单的深拷贝（按 id 索引），并补全派生地址
func (s Script) Roster() map[string]Participant {
	out := make(map[string]Participant, len(s.Participants))
	for _, p := range s.Participants {
		c := p.Clone()
		if c.Address == (common.Address{}) {
			c.Address = AddressFor(c.ID)
		}
		out[c.ID] = c
	}
	return out
}

// Validate 检查脚本引用的参与者都在初始名单中
func (s Script) Validate() error {
	ids := make(map[string]struct{}, len(s.Participants))
	for _, p := range s.Participants {
		if p.ID == "" {
			return fmt.Errorf("participant with empty id")
		}
		if _, dup := ids[p.ID]; dup {
			return fmt.Errorf("duplicate participant %q", p.ID)
		}
		if p.Kind != KindContract && p.Kind != KindEOA {
			return fmt.Errorf("participant %q has unknown kind %q", p.ID, p.Kind)
		}
		ids[p.ID] = struct{}{}
	}
	for i, step := range s.Steps {
		if step.Message == "" {
			return fmt.Errorf("step %d has empty message", i)
		}
		if step.Actor != "" {
			if _, ok := ids[step.Actor]; !ok {
				return fmt.Errorf("step %d actor %q not in roster", i, step.Actor)
			}
		}
		for _, d := range step.Deltas {
			if _, ok := ids[d.Participant]; !ok {
				return fmt.Errorf("step %d delta targets unknown participant %q", i, d.Participant)
			}
		}
	}
	return nil
}
