// Package privacy decides whether database actions may run.
//
// A Policy is a list of rules evaluated before an action executes. It is
// installed with action.WithPolicy:
//
//	policy := privacy.Policy{
//		privacy.DenyIfNoViewer(),
//		privacy.DenyKindRule(action.KindDropTable),
//		privacy.HasRole("admin"),
//		privacy.IsOwner("owner_id"),
//		privacy.AlwaysDenyRule(),
//	}
//	ctx = privacy.WithViewer(ctx, &privacy.SimpleViewer{UserID: "42"})
//	done, err := action.NewInsert(inst).Execute(ctx, drv, action.WithPolicy(policy))
//	if errors.Is(err, privacy.Deny) {
//		...
//	}
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: the action runs and evaluation stops
//   - Deny: the action is rejected and its error returned by Execute
//   - Skip: evaluation continues with the next rule
//
// If every rule skips, the action runs. End a policy with AlwaysDenyRule to
// deny by default.
//
// A decision attached to the context with DecisionContext bypasses the
// rules, e.g. for maintenance jobs:
//
//	ctx = privacy.DecisionContext(ctx, privacy.Allow)
package privacy
