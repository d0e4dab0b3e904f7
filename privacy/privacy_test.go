package privacy_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/dbgraph"
	"github.com/syssam/dbgraph/action"
	"github.com/syssam/dbgraph/dialect"
	"github.com/syssam/dbgraph/dialect/sql"
	"github.com/syssam/dbgraph/entity"
	"github.com/syssam/dbgraph/internal/testschema"
	"github.com/syssam/dbgraph/privacy"
	"github.com/syssam/dbgraph/schema/field"
)

type Note struct {
	dbgraph.Schema
}

func (Note) Fields() []dbgraph.Field {
	return []dbgraph.Field{
		field.Int64("uid_note").PrimaryKey().AutoIncrement(),
		field.String("owner_id"),
		field.String("tenant_id"),
		field.Int64("rank").Nillable(),
	}
}

func note(owner, tenant string) action.Action {
	return action.NewInsert(entity.MustNew(Note{}).Set("owner_id", owner).Set("tenant_id", tenant))
}

func TestDecisions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		decision          error
		allow, deny, skip bool
	}{
		{name: "allow", decision: privacy.Allow, allow: true},
		{name: "deny", decision: privacy.Deny, deny: true},
		{name: "skip", decision: privacy.Skip, skip: true},
		{name: "allowf", decision: privacy.Allowf("user %s allowed", "admin"), allow: true},
		{name: "denyf", decision: privacy.Denyf("user %s denied", "guest"), deny: true},
		{name: "skipf", decision: privacy.Skipf("rule %d skipped", 1), skip: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allow, errors.Is(tt.decision, privacy.Allow))
			assert.Equal(t, tt.deny, errors.Is(tt.decision, privacy.Deny))
			assert.Equal(t, tt.skip, errors.Is(tt.decision, privacy.Skip))
		})
	}
	assert.Equal(t, "user guest denied: dbgraph/privacy: deny rule", privacy.Denyf("user %s denied", "guest").Error())
}

func TestPolicy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	hero := action.NewInsert(entity.MustNew(testschema.Hero{}).Set("name", "Lightwing"))
	drop := action.NewDropTable(entity.MustNew(testschema.Hero{}))

	tests := []struct {
		name   string
		policy privacy.Policy
		act    action.Action
		deny   bool
	}{
		{name: "empty", act: hero},
		{name: "skip all", policy: privacy.Policy{privacy.RuleFunc(func(context.Context, action.Action) error { return nil })}, act: hero},
		{name: "always deny", policy: privacy.Policy{privacy.AlwaysDenyRule()}, act: hero, deny: true},
		{name: "allow first", policy: privacy.Policy{privacy.AlwaysAllowRule(), privacy.AlwaysDenyRule()}, act: hero},
		{name: "deny kind", policy: privacy.Policy{privacy.DenyKindRule(action.KindDropTable)}, act: drop, deny: true},
		{name: "other kind", policy: privacy.Policy{privacy.DenyKindRule(action.KindDropTable)}, act: hero},
		{name: "allow kind", policy: privacy.Policy{privacy.AllowKindRule(action.KindInsert), privacy.AlwaysDenyRule()}, act: hero},
		{name: "deny table", policy: privacy.Policy{privacy.DenyTableRule("hero")}, act: hero, deny: true},
		{name: "other table", policy: privacy.Policy{privacy.DenyTableRule("villain")}, act: hero},
		{name: "on table", policy: privacy.Policy{privacy.OnTable(privacy.AlwaysAllowRule(), "hero"), privacy.AlwaysDenyRule()}, act: hero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.EvalAction(ctx, tt.act)
			if tt.deny {
				assert.ErrorIs(t, err, privacy.Deny)
				return
			}
			assert.NoError(t, err)
		})
	}

	err := privacy.Policy{privacy.DenyKindRule(action.KindDropTable)}.EvalAction(ctx, drop)
	assert.EqualError(t, err, "dbgraph/privacy: DROP TABLE on hero is not allowed: dbgraph/privacy: deny rule")

	custom := errors.New("maintenance window")
	err = privacy.Policy{privacy.ContextRule(func(context.Context) error { return custom })}.EvalAction(ctx, hero)
	assert.ErrorIs(t, err, custom, "errors other than decisions are returned as is")
}

func TestDecisionContext(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deny := privacy.Policy{privacy.AlwaysDenyRule()}
	hero := action.NewInsert(entity.MustNew(testschema.Hero{}))

	_, ok := privacy.DecisionFromContext(ctx)
	assert.False(t, ok)
	assert.Equal(t, ctx, privacy.DecisionContext(ctx, privacy.Skip))
	assert.Equal(t, ctx, privacy.DecisionContext(ctx, nil))

	allowed := privacy.DecisionContext(ctx, privacy.Allow)
	decision, ok := privacy.DecisionFromContext(allowed)
	assert.True(t, ok)
	assert.NoError(t, decision)
	assert.NoError(t, deny.EvalAction(allowed, hero))

	denied := privacy.DecisionContext(ctx, privacy.Denyf("read-only replica"))
	assert.ErrorIs(t, privacy.Policy{privacy.AlwaysAllowRule()}.EvalAction(denied, hero), privacy.Deny)
}

func TestViewerRules(t *testing.T) {
	t.Parallel()
	admin := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "1", Roles: []string{"admin"}, TenantID: "acme"})
	user := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "2", Roles: []string{"user"}, TenantID: "acme"})
	guest := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "3"})

	policy := privacy.Policy{
		privacy.DenyIfNoViewer(),
		privacy.TenantRule("tenant_id"),
		privacy.HasAnyRole("admin", "moderator"),
		privacy.IsOwner("owner_id"),
		privacy.AlwaysDenyRule(),
	}
	assert.ErrorIs(t, policy.EvalAction(context.Background(), note("2", "acme")), privacy.Deny, "no viewer")
	assert.NoError(t, policy.EvalAction(admin, note("2", "acme")), "same tenant")
	assert.ErrorIs(t, policy.EvalAction(user, note("2", "other")), privacy.Deny, "tenant mismatch")
	assert.NoError(t, policy.EvalAction(guest, note("3", "acme")), "owner without tenant")
	assert.ErrorIs(t, policy.EvalAction(guest, note("2", "acme")), privacy.Deny, "not the owner")

	roles := privacy.Policy{privacy.HasRole("admin"), privacy.AlwaysDenyRule()}
	assert.NoError(t, roles.EvalAction(admin, note("2", "")))
	assert.ErrorIs(t, roles.EvalAction(user, note("2", "")), privacy.Deny)
	assert.ErrorIs(t, roles.EvalAction(context.Background(), note("2", "")), privacy.Deny)

	// Actions without a row skip the column rules.
	owner := privacy.Policy{privacy.IsOwner("owner_id"), privacy.AlwaysDenyRule()}
	assert.ErrorIs(t, owner.EvalAction(user, action.NewCreateTable(entity.MustNew(Note{}))), privacy.Deny)

	rank := privacy.Policy{privacy.IsOwner("rank"), privacy.AlwaysDenyRule()}
	ranked := action.NewInsert(entity.MustNew(Note{}).Set("rank", int64(2)))
	assert.NoError(t, rank.EvalAction(user, ranked), "values are compared in their text form")
}

func TestExecuteWithPolicy(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB(dialect.MySQL, db)

	policy := action.WithPolicy(privacy.Policy{privacy.DenyIfNoViewer()})
	hero := entity.MustNew(testschema.Hero{}).Set("name", "Lightwing")
	_, err = action.NewInsert(hero).Execute(context.Background(), drv, policy)
	assert.ErrorIs(t, err, privacy.Deny)
	assert.False(t, hero.IsDefined())

	mock.ExpectExec("INSERT INTO `hero`").WillReturnResult(sqlmock.NewResult(1, 1))
	ctx := privacy.WithViewer(context.Background(), &privacy.SimpleViewer{UserID: "1"})
	done, err := action.NewInsert(hero).Execute(ctx, drv, policy)
	require.NoError(t, err)
	assert.Equal(t, 1, done.Len())
	require.NoError(t, mock.ExpectationsWereMet())
}
