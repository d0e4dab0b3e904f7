// Package privacy provides rules deciding whether database actions may run,
// and the evaluation of those rules at runtime.
package privacy

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/syssam/dbgraph/action"
)

// Policy decision sentinel errors.
//
// These errors are used as return values from rules to indicate how the
// policy evaluation should proceed. Use errors.Is() to check for them:
//
//	if errors.Is(err, privacy.Deny) { ... }
var (
	// Allow may be returned by rules to indicate that the policy
	// evaluation should terminate with an allow decision.
	Allow = errors.New("dbgraph/privacy: allow rule")

	// Deny may be returned by rules to indicate that the policy
	// evaluation should terminate with a deny decision.
	Deny = errors.New("dbgraph/privacy: deny rule")

	// Skip may be returned by rules to indicate that the policy
	// evaluation should continue to the next rule.
	Skip = errors.New("dbgraph/privacy: skip rule")
)

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Skipf returns a formatted wrapped Skip decision.
func Skipf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Skip)...)
}

// Rule decides whether an action is allowed.
type Rule interface {
	EvalAction(context.Context, action.Action) error
}

// RuleFunc type is an adapter which allows the use of ordinary functions
// as rules.
type RuleFunc func(context.Context, action.Action) error

// EvalAction returns f(ctx, a).
func (f RuleFunc) EvalAction(ctx context.Context, a action.Action) error {
	return f(ctx, a)
}

// Policy combines rules into an action.Policy. Rules are evaluated in
// order until one returns a decision other than Skip. An Allow decision,
// or no decision at all, lets the action run.
//
//	list, err := ins.Execute(ctx, drv, action.WithPolicy(privacy.Policy{
//		privacy.DenyIfNoViewer(),
//		privacy.DenyKindRule(action.KindDropTable),
//	}))
type Policy []Rule

var _ action.Policy = Policy(nil)

// EvalAction evaluates the rules of the policy. A decision attached to
// ctx with DecisionContext takes precedence over the rules.
func (p Policy) EvalAction(ctx context.Context, a action.Action) error {
	if decision, ok := DecisionFromContext(ctx); ok {
		return decision
	}
	for _, rule := range p {
		switch decision := rule.EvalAction(ctx, a); {
		case decision == nil || errors.Is(decision, Skip):
		case errors.Is(decision, Allow):
			return nil
		default:
			return decision
		}
	}
	return nil
}

// AlwaysAllowRule returns a rule that always returns an Allow decision.
func AlwaysAllowRule() Rule {
	return fixedDecision{Allow}
}

// AlwaysDenyRule returns a rule that always returns a Deny decision.
func AlwaysDenyRule() Rule {
	return fixedDecision{Deny}
}

// ContextRule creates a rule from a context evaluation function.
// Returning nil is equivalent to returning Skip.
func ContextRule(eval func(context.Context) error) Rule {
	return RuleFunc(func(ctx context.Context, _ action.Action) error {
		return eval(ctx)
	})
}

// OnKind evaluates rule only on actions of the given kinds.
func OnKind(rule Rule, kinds ...action.Kind) Rule {
	return RuleFunc(func(ctx context.Context, a action.Action) error {
		if slices.Contains(kinds, a.Kind()) {
			return rule.EvalAction(ctx, a)
		}
		return Skip
	})
}

// DenyKindRule returns a rule denying actions of the given kinds.
func DenyKindRule(kinds ...action.Kind) Rule {
	rule := RuleFunc(func(_ context.Context, a action.Action) error {
		return Denyf("dbgraph/privacy: %s on %s is not allowed", a.Kind(), a.Table())
	})
	return OnKind(rule, kinds...)
}

// AllowKindRule returns a rule allowing actions of the given kinds.
func AllowKindRule(kinds ...action.Kind) Rule {
	return OnKind(fixedDecision{Allow}, kinds...)
}

// OnTable evaluates rule only on actions changing one of tables.
func OnTable(rule Rule, tables ...string) Rule {
	return RuleFunc(func(ctx context.Context, a action.Action) error {
		if slices.Contains(tables, a.Table()) {
			return rule.EvalAction(ctx, a)
		}
		return Skip
	})
}

// DenyTableRule returns a rule denying every action on tables.
func DenyTableRule(tables ...string) Rule {
	rule := RuleFunc(func(_ context.Context, a action.Action) error {
		return Denyf("dbgraph/privacy: table %s is read-only", a.Table())
	})
	return OnTable(rule, tables...)
}

type decisionCtxKey struct{}

// DecisionContext creates a new context from the given parent context with
// a policy decision attached to it.
func DecisionContext(parent context.Context, decision error) context.Context {
	if decision == nil || errors.Is(decision, Skip) {
		return parent
	}
	return context.WithValue(parent, decisionCtxKey{}, decision)
}

// DecisionFromContext retrieves the policy decision from the context.
func DecisionFromContext(ctx context.Context) (error, bool) {
	decision, ok := ctx.Value(decisionCtxKey{}).(error)
	if ok && errors.Is(decision, Allow) {
		decision = nil
	}
	return decision, ok
}

type fixedDecision struct {
	decision error
}

func (f fixedDecision) EvalAction(context.Context, action.Action) error {
	return f.decision
}
