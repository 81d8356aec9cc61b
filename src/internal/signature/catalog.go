package signature

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/admi-n/solidity-vulnlab/src/internal/scenario"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// ConfigError 表示目录数据或配置项不合法
type ConfigError struct {
	Signature string
	Field     string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Signature == "" {
		return fmt.Sprintf("catalog config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("signature %q: %s: %v", e.Signature, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Catalog 不可变的漏洞签名注册表，保留注册顺序
type Catalog struct {
	signatures []*Signature
	byID       map[string]*Signature
	standards  []Standard
}

// catalogFile 对应 catalog.yaml 的结构
type catalogFile struct {
	Signatures []signatureSpec `yaml:"signatures"`
	Standards  []Standard      `yaml:"standards"`
}

type signatureSpec struct {
	ID           string              `yaml:"id"`
	Name         string              `yaml:"name"`
	SWC          string              `yaml:"swc"`
	Description  string              `yaml:"description"`
	Severity     Severity            `yaml:"severity"`
	Confidence   float64             `yaml:"confidence"`
	Matchers     []matcherSpec       `yaml:"matchers"`
	Factors      RiskFactors         `yaml:"factors"`
	Remediations []RemediationOption `yaml:"remediations"`
	Scenario     scenario.Script     `yaml:"scenario"`
	Example      string              `yaml:"example"`
}

// Default 返回内置目录，只加载一次
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Load(embeddedCatalog)
		if err != nil {
			panic(fmt.Sprintf("embedded signature catalog is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// LoadFile 从磁盘加载自定义目录
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Load(data)
}

// Load 解析并校验 YAML 目录数据
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if len(file.Signatures) == 0 {
		return nil, &ConfigError{Field: "signatures", Err: fmt.Errorf("catalog is empty")}
	}

	c := &Catalog{
		signatures: make([]*Signature, 0, len(file.Signatures)),
		byID:       make(map[string]*Signature, len(file.Signatures)),
	}
	for _, spec := range file.Signatures {
		sig, err := spec.build()
		if err != nil {
			return nil, err
		}
		if _, dup := c.byID[sig.ID]; dup {
			return nil, &ConfigError{Signature: sig.ID, Field: "id", Err: fmt.Errorf("duplicate id")}
		}
		c.signatures = append(c.signatures, sig)
		c.byID[sig.ID] = sig
	}

	for _, std := range file.Standards {
		if std.ID == "" {
			return nil, &ConfigError{Field: "standards", Err: fmt.Errorf("standard with empty id")}
		}
		for _, id := range std.Forbids {
			if _, ok := c.byID[id]; !ok {
				return nil, &ConfigError{Field: "standards." + std.ID, Err: fmt.Errorf("unknown signature %q", id)}
			}
		}
		c.standards = append(c.standards, std)
	}
	return c, nil
}

func (s signatureSpec) build() (*Signature, error) {
	fail := func(field string, err error) error {
		return &ConfigError{Signature: s.ID, Field: field, Err: err}
	}

	if strings.TrimSpace(s.ID) == "" {
		return nil, fail("id", fmt.Errorf("missing id"))
	}
	if s.Name == "" {
		return nil, fail("name", fmt.Errorf("missing name"))
	}
	if !s.Severity.Valid() {
		return nil, fail("severity", fmt.Errorf("missing or unknown severity"))
	}
	if s.Confidence <= 0 || s.Confidence > 1 {
		return nil, fail("confidence", fmt.Errorf("%v not in (0,1]", s.Confidence))
	}
	for name, v := range s.Factors.values() {
		if v < 0 || v > 10 {
			return nil, fail("factors."+name, fmt.Errorf("%v not in [0,10]", v))
		}
	}
	if len(s.Matchers) == 0 {
		return nil, fail("matchers", fmt.Errorf("at least one matcher required"))
	}

	matchers := make([]Matcher, 0, len(s.Matchers))
	for i, ms := range s.Matchers {
		m, err := ms.build()
		if err != nil {
			return nil, fail(fmt.Sprintf("matchers[%d]", i), err)
		}
		matchers = append(matchers, m)
	}

	for i, r := range s.Remediations {
		if r.ID == "" || r.Name == "" {
			return nil, fail(fmt.Sprintf("remediations[%d]", i), fmt.Errorf("id and name required"))
		}
		if !r.Difficulty.Valid() {
			return nil, fail(fmt.Sprintf("remediations[%d].difficulty", i), fmt.Errorf("unknown difficulty %q", r.Difficulty))
		}
		if r.SecurityGain < 0 || r.SecurityGain > 100 {
			return nil, fail(fmt.Sprintf("remediations[%d].security_gain", i), fmt.Errorf("%d not in [0,100]", r.SecurityGain))
		}
	}

	if err := s.Scenario.Validate(); err != nil {
		return nil, fail("scenario", err)
	}

	return &Signature{
		ID:           s.ID,
		Name:         s.Name,
		Description:  strings.TrimSpace(s.Description),
		SWC:          s.SWC,
		Severity:     s.Severity,
		Confidence:   s.Confidence,
		Matchers:     matchers,
		Factors:      s.Factors,
		Remediations: s.Remediations,
		Scenario:     s.Scenario,
		Example:      s.Example,
	}, nil
}

// All 按注册顺序返回全部签名
func (c *Catalog) All() []*Signature {
	return append([]*Signature(nil), c.signatures...)
}

// Get 按 id 查找签名
func (c *Catalog) Get(id string) (*Signature, bool) {
	sig, ok := c.byID[id]
	return sig, ok
}

// IDs 按注册顺序返回签名 id
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.signatures))
	for i, sig := range c.signatures {
		ids[i] = sig.ID
	}
	return ids
}

// Len 返回签名数量
func (c *Catalog) Len() int { return len(c.signatures) }

// Standards 返回合规基线
func (c *Catalog) Standards() []Standard {
	return append([]Standard(nil), c.standards...)
}

// Examples 返回附带示例源码的签名示例
func (c *Catalog) Examples() []Example {
	var out []Example
	for _, sig := range c.signatures {
		if strings.TrimSpace(sig.Example) == "" {
			continue
		}
		out = append(out, Example{SignatureID: sig.ID, Name: sig.Name, Source: sig.Example})
	}
	return out
}
