// Package accesscontrol decides which role may call which API route.
package accesscontrol

import (
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.uber.org/fx"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// Objects are gin route templates (c.FullPath), so ":id" in a policy only
// matches the same template and never a sibling such as /orders/statistics.
//
// DefaultPolicies grants admins the whole API and customers their own
// shopping, address book and credit history routes.
var DefaultPolicies = [][]string{
	{"ADMIN", "/api/*", "*"},

	{"CUSTOMER", "/api/auth/me", "GET"},
	{"CUSTOMER", "/api/credits/my-history", "GET"},
	{"CUSTOMER", "/api/orders", "POST"},
	{"CUSTOMER", "/api/orders/my-orders", "GET"},
	{"CUSTOMER", "/api/orders/:id", "GET"},
	{"CUSTOMER", "/api/addresses", "*"},
	{"CUSTOMER", "/api/addresses/:id", "*"},
	{"CUSTOMER", "/api/addresses/:id/set-default", "POST"},
}

var Module = fx.Module("accesscontrol", fx.Provide(func() (*casbin.Enforcer, error) {
	return NewEnforcer(DefaultPolicies)
}))

func NewEnforcer(policies [][]string) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return nil, err
		}
	}

	return e, nil
}
