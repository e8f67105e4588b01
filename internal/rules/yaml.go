package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// FileRule is the on-disk form of a rule.
type FileRule struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name,omitempty"`
	Pattern  string    `yaml:"pattern"`
	Rewrite  string    `yaml:"rewrite"`
	Guards   []string  `yaml:"guards,omitempty"`
	CostHint *CostHint `yaml:"cost_hint,omitempty"`
}

// RulesFile is the top-level document of a rules file.
type RulesFile struct {
	Rules []FileRule `yaml:"rules"`
}

// Load reads rules from a YAML file.
func Load(path string) ([]Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads rules from a YAML document. The whole document is rejected
// if any rule is malformed.
func Decode(r io.Reader) ([]Rule, error) {
	var doc RulesFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("error decoding rules: %w", err)
	}

	out := make([]Rule, 0, len(doc.Rules))
	for _, fr := range doc.Rules {
		r, err := fr.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Build converts the file form into a validated rule.
func (fr FileRule) Build() (Rule, error) {
	var opts []Option
	if fr.Name != "" {
		opts = append(opts, WithName(fr.Name))
	}
	for _, g := range fr.Guards {
		guard, err := ParseGuard(g)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: rule %s: %w", ErrMalformedRule, fr.ID, err)
		}
		opts = append(opts, WithGuards(guard))
	}
	if fr.CostHint != nil {
		opts = append(opts, WithCostHint(*fr.CostHint))
	}
	return New(fr.ID, fr.Pattern, fr.Rewrite, opts...)
}

// ToFile converts r into its on-disk form.
func ToFile(r Rule) FileRule {
	fr := FileRule{
		ID:       r.ID,
		Name:     r.Name,
		Pattern:  r.Pattern.String(),
		Rewrite:  r.Rewrite.String(),
		CostHint: r.CostHint,
	}
	for _, g := range r.Guards {
		fr.Guards = append(fr.Guards, g.String())
	}
	return fr
}

// Encode writes rules as a YAML document.
func Encode(w io.Writer, rules []Rule) error {
	doc := RulesFile{Rules: make([]FileRule, len(rules))}
	for i, r := range rules {
		doc.Rules[i] = ToFile(r)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(doc)
}
