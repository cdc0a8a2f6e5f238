// internal/app/policy/eligibilitypolicy/eligibilitypolicy.go
package eligibilitypolicy

import (
	"fmt"
	"strings"

	"github.com/dalemusser/sevadesk/internal/domain/models"
	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// DefaultRule admits customers flagged eligible for DIKSHA.
const DefaultRule = "customer.DikshaEligible"

type env struct {
	Customer models.Customer `expr:"customer"`
}

// Policy decides whether a customer may be placed into a DIKSHA container.
// The rule is an expr-lang boolean expression over `customer`.
type Policy struct {
	rule    string
	program *exprvm.Program
}

// New compiles rule (DefaultRule when blank).
func New(rule string) (*Policy, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		rule = DefaultRule
	}
	program, err := exprlang.Compile(rule, exprlang.Env(env{}), exprlang.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile eligibility rule %q: %w", rule, err)
	}
	return &Policy{rule: rule, program: program}, nil
}

// Rule returns the source expression.
func (p *Policy) Rule() string { return p.rule }

// Eligible evaluates the rule for c.
func (p *Policy) Eligible(c models.Customer) (bool, error) {
	out, err := exprlang.Run(p.program, env{Customer: c})
	if err != nil {
		return false, fmt.Errorf("evaluate eligibility for %s: %w", c.ID.Hex(), err)
	}
	ok, _ := out.(bool)
	return ok, nil
}

// Ineligible returns the names of customers the rule rejects, in input
// order.
func (p *Policy) Ineligible(cs []models.Customer) ([]string, error) {
	var names []string
	for _, c := range cs {
		ok, err := p.Eligible(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			names = append(names, c.Name)
		}
	}
	return names, nil
}
