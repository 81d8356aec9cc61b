package signature

import (
	"fmt"
	"strings"
)

// Source 是一次扫描所用的预处理源码，整个扫描期间只构建一次
type Source struct {
	lines   []string
	lowered []string // 去掉注释片段后的小写代码
}

// NewSource 按行切分源码，剔除注释片段并生成小写副本，用于大小写不敏感匹配
func NewSource(text string) *Source {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	code := stripComments(lines)
	src := &Source{
		lines:   lines,
		lowered: make([]string, len(lines)),
	}
	for i, line := range code {
		src.lowered[i] = strings.ToLower(line)
	}
	return src
}

// stripComments 删除 // 行尾注释与跨行的 /* */ 块注释，字符串字面量内的注释符号保持原样。
// 每段块注释替换为一个空格，避免两侧代码粘连。
func stripComments(lines []string) []string {
	out := make([]string, len(lines))
	inBlock := false
	for i, line := range lines {
		var b strings.Builder
		var quote byte
	scan:
		for j := 0; j < len(line); j++ {
			c := line[j]
			next := byte(0)
			if j+1 < len(line) {
				next = line[j+1]
			}
			switch {
			case inBlock:
				if c == '*' && next == '/' {
					inBlock = false
					j++
				}
			case quote != 0:
				b.WriteByte(c)
				if c == '\\' && next != 0 {
					b.WriteByte(next)
					j++
				} else if c == quote {
					quote = 0
				}
			case c == '"' || c == '\'':
				quote = c
				b.WriteByte(c)
			case c == '/' && next == '/':
				break scan
			case c == '/' && next == '*':
				inBlock = true
				b.WriteByte(' ')
				j++
			default:
				b.WriteByte(c)
			}
		}
		out[i] = b.String()
	}
	return out
}

// Len 返回行数
func (s *Source) Len() int { return len(s.lines) }

// Line 返回去除首尾空白的原始行
func (s *Source) Line(i int) string { return strings.TrimSpace(s.lines[i]) }

// skip 报告第 i 行在去掉注释后是否没有代码
func (s *Source) skip(i int) bool {
	return strings.TrimSpace(s.lowered[i]) == ""
}

// following 返回第 i 行之后最多 n 个非空、非注释行的下标
func (s *Source) following(i, n int) []int {
	var out []int
	for j := i + 1; j < len(s.lines) && len(out) < n; j++ {
		if s.skip(j) {
			continue
		}
		out = append(out, j)
	}
	return out
}

// Match 一次命中，Line 从 1 开始
type Match struct {
	Line    int
	Snippet string
}

// Matcher 是签名的单条匹配规则
type Matcher interface {
	Kind() string
	Match(src *Source) []Match
}

// Substring 在单行内做大小写不敏感的子串匹配，每次出现都计数
type Substring struct {
	Pattern string
}

func (m Substring) Kind() string { return "substring" }

func (m Substring) Match(src *Source) []Match {
	needle := strings.ToLower(m.Pattern)
	if needle == "" {
		return nil
	}
	var out []Match
	for i := 0; i < src.Len(); i++ {
		if src.skip(i) {
			continue
		}
		n := strings.Count(src.lowered[i], needle)
		for k := 0; k < n; k++ {
			out = append(out, Match{Line: i + 1, Snippet: src.Line(i)})
		}
	}
	return out
}

// AdjacentLines 匹配“First 所在行之后紧跟 Second”的行对。
// Window 为向后查看的非空行数，默认 1。
type AdjacentLines struct {
	First  string
	Second string
	Window int
}

func (m AdjacentLines) Kind() string { return "adjacent" }

func (m AdjacentLines) Match(src *Source) []Match {
	first, second := strings.ToLower(m.First), strings.ToLower(m.Second)
	if first == "" || second == "" {
		return nil
	}
	window := m.Window
	if window <= 0 {
		window = 1
	}
	var out []Match
	for i := 0; i < src.Len(); i++ {
		if src.skip(i) || !strings.Contains(src.lowered[i], first) {
			continue
		}
		for _, j := range src.following(i, window) {
			if strings.Contains(src.lowered[j], second) {
				out = append(out, Match{
					Line:    i + 1,
					Snippet: src.Line(i) + "\n" + src.Line(j),
				})
				break
			}
		}
	}
	return out
}

// Exclusion 匹配包含 Pattern 的行，除非该行或其后 Window 个非空行出现任一 Unless 片段
type Exclusion struct {
	Pattern string
	Unless  []string
	Window  int
}

func (m Exclusion) Kind() string { return "exclusion" }

func (m Exclusion) Match(src *Source) []Match {
	needle := strings.ToLower(m.Pattern)
	if needle == "" {
		return nil
	}
	unless := make([]string, 0, len(m.Unless))
	for _, u := range m.Unless {
		if u = strings.ToLower(u); u != "" {
			unless = append(unless, u)
		}
	}
	var out []Match
	for i := 0; i < src.Len(); i++ {
		if src.skip(i) || !strings.Contains(src.lowered[i], needle) {
			continue
		}
		scope := append([]int{i}, src.following(i, m.Window)...)
		if excluded(src, scope, unless) {
			continue
		}
		out = append(out, Match{Line: i + 1, Snippet: src.Line(i)})
	}
	return out
}

func excluded(src *Source, scope []int, unless []string) bool {
	for _, j := range scope {
		for _, u := range unless {
			if strings.Contains(src.lowered[j], u) {
				return true
			}
		}
	}
	return false
}

// matcherSpec 是目录 YAML 中的匹配规则描述
type matcherSpec struct {
	Kind    string   `yaml:"kind"`
	Pattern string   `yaml:"pattern"`
	First   string   `yaml:"first"`
	Second  string   `yaml:"second"`
	Unless  []string `yaml:"unless"`
	Window  int      `yaml:"window"`
}

func (s matcherSpec) build() (Matcher, error) {
	switch strings.ToLower(s.Kind) {
	case "substring", "":
		if s.Pattern == "" {
			return nil, fmt.Errorf("substring matcher requires pattern")
		}
		return Substring{Pattern: s.Pattern}, nil
	case "adjacent":
		if s.First == "" || s.Second == "" {
			return nil, fmt.Errorf("adjacent matcher requires first and second")
		}
		return AdjacentLines{First: s.First, Second: s.Second, Window: s.Window}, nil
	case "exclusion":
		if s.Pattern == "" || len(s.Unless) == 0 {
			return nil, fmt.Errorf("exclusion matcher requires pattern and unless")
		}
		return Exclusion{Pattern: s.Pattern, Unless: s.Unless, Window: s.Window}, nil
	default:
		return nil, fmt.Errorf("unknown matcher kind %q", s.Kind)
	}
}
