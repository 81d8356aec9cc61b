package scenario

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// Amount 是模拟账本中的数量。
// Ether 为 true 时 Value 以 wei 计；Symbol 非空时表示符号化余额（如 "∞"），此时 Value 为空。
type Amount struct {
	Value  *big.Int
	Ether  bool
	Symbol string
}

// Ether 构造以 ETH 计价的数量
func Ether(eth int64) Amount {
	return Amount{Value: new(big.Int).Mul(big.NewInt(eth), big.NewInt(params.Ether)), Ether: true}
}

// Units 构造无单位的整数数量（例如代币个数）
func Units(n int64) Amount {
	return Amount{Value: big.NewInt(n)}
}

// Symbolic 构造符号化数量
func Symbolic(label string) Amount {
	return Amount{Symbol: label}
}

var unitScale = map[string]*big.Int{
	"eth":   big.NewInt(params.Ether),
	"ether": big.NewInt(params.Ether),
	"gwei":  big.NewInt(params.GWei),
	"wei":   big.NewInt(params.Wei),
}

// ParseAmount 解析 "10 ETH"、"0.5 ether"、"25 gwei"、"1000" 或符号化文本。
// 带单位的数值统一换算为 wei；纯数字按整数单位处理；其余文本视为符号。
func ParseAmount(raw string) (Amount, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Amount{}, fmt.Errorf("empty amount")
	}
	fields := strings.Fields(s)
	if len(fields) == 2 {
		scale, ok := unitScale[strings.ToLower(fields[1])]
		if !ok {
			return Amount{}, fmt.Errorf("unknown unit in amount %q", raw)
		}
		num, ok := new(big.Float).SetPrec(256).SetString(fields[0])
		if !ok {
			return Amount{}, fmt.Errorf("invalid number in amount %q", raw)
		}
		wei, _ := new(big.Float).SetPrec(256).Mul(num, new(big.Float).SetInt(scale)).Int(nil)
		return Amount{Value: wei, Ether: true}, nil
	}
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return Amount{Value: v}, nil
	}
	return Amount{Symbol: s}, nil
}

// IsSymbolic 判断是否为符号化数量
func (a Amount) IsSymbolic() bool {
	return a.Symbol != "" || a.Value == nil
}

// Clone 深拷贝，避免快照与内部状态共享 big.Int
func (a Amount) Clone() Amount {
	out := a
	if a.Value != nil {
		out.Value = new(big.Int).Set(a.Value)
	}
	return out
}

// Equal 比较两个数量是否相同
func (a Amount) Equal(b Amount) bool {
	if a.IsSymbolic() || b.IsSymbolic() {
		return a.Symbol == b.Symbol && a.IsSymbolic() == b.IsSymbolic()
	}
	return a.Ether == b.Ether && a.Value.Cmp(b.Value) == 0
}

func (a Amount) String() string {
	if a.IsSymbolic() {
		return a.Symbol
	}
	if !a.Ether {
		return a.Value.String()
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(a.Value), big.NewFloat(params.Ether))
	return strings.TrimRight(strings.TrimRight(eth.Text('f', 6), "0"), ".") + " ETH"
}

// UnmarshalYAML 支持在场景脚本中直接书写 "10 ETH"
func (a *Amount) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func cloneAmountPtr(a *Amount) *Amount {
	if a == nil {
		return nil
	}
	c := a.Clone()
	return &c
}
