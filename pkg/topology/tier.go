package topology

import (
	"fmt"
	"strings"

	"github.com/perimetra/vpcmap/pkg/catalog"
)

// Tier is a subnet's role in a layered network design.
type Tier string

const (
	TierPresentation Tier = "presentation"
	TierApplication  Tier = "application"
	TierRestricted   Tier = "restricted"
	TierUnclassified Tier = "unclassified"
)

// tierRank orders the classified tiers top to bottom. Unclassified subnets
// have no rank and never participate in north-south/east-west decisions.
var tierRank = map[Tier]int{
	TierPresentation: 1,
	TierApplication:  2,
	TierRestricted:   3,
}

// TierRule maps glob patterns onto a tier. Rules are evaluated in order;
// the first matching pattern wins.
type TierRule struct {
	Tier     Tier     `yaml:"tier"`
	Patterns []string `yaml:"patterns"`
}

// DefaultTierRules is the documented default rule order.
func DefaultTierRules() []TierRule {
	return []TierRule{
		{Tier: TierPresentation, Patterns: []string{"*public*", "*dmz*"}},
		{Tier: TierApplication, Patterns: []string{"*private*", "*app*"}},
		{Tier: TierRestricted, Patterns: []string{"*db*", "*data*"}},
	}
}

// Classifier assigns subnets to tiers. It is a pure function of its rules;
// determinism here keeps diagram layout stable across runs.
type Classifier struct {
	rules []TierRule
}

// NewClassifier validates the rule list up front so a typo in configuration
// fails before any pipeline work happens.
func NewClassifier(rules []TierRule) (*Classifier, error) {
	for i, r := range rules {
		switch r.Tier {
		case TierPresentation, TierApplication, TierRestricted:
		default:
			return nil, fmt.Errorf("tier rule %d: unknown tier %q", i, r.Tier)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("tier rule %d (%s): no patterns", i, r.Tier)
		}
	}
	return &Classifier{rules: rules}, nil
}

// Classify matches the subnet's name against the rules, case-insensitively.
// A subnet matching nothing is unclassified, never an error.
func (c *Classifier) Classify(subnet *catalog.Resource) Tier {
	name := strings.ToLower(subnet.Name())
	for _, r := range c.rules {
		for _, p := range r.Patterns {
			if globMatch(strings.ToLower(p), name) {
				return r.Tier
			}
		}
	}
	return TierUnclassified
}

// globMatch matches s against pattern, where '*' spans any run of
// characters. Both arguments are expected pre-lowered.
func globMatch(pattern, s string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return s == pattern
	}
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(s, part)
		if idx < 0 {
			return false
		}
		s = s[idx+len(part):]
	}
	return strings.HasSuffix(s, parts[len(parts)-1])
}
