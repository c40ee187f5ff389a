package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateScopes_CaptureMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		owner   Lifetime
		dep     Lifetime
		req     func(string) Requirement
		wantBad bool
	}{
		{name: "singleton_singleton", owner: Singleton, dep: Singleton, req: Need},
		{name: "singleton_scoped", owner: Singleton, dep: Scoped, req: Need, wantBad: true},
		{name: "singleton_transient", owner: Singleton, dep: Transient, req: Need, wantBad: true},
		{name: "singleton_lazy_scoped", owner: Singleton, dep: Scoped, req: LazyOf, wantBad: true},
		{name: "singleton_enumerable_scoped", owner: Singleton, dep: Scoped, req: All, wantBad: true},
		{name: "scoped_singleton", owner: Scoped, dep: Singleton, req: Need},
		{name: "scoped_scoped", owner: Scoped, dep: Scoped, req: Need},
		{name: "scoped_transient", owner: Scoped, dep: Transient, req: Need, wantBad: true},
		{name: "scoped_optional_transient", owner: Scoped, dep: Transient, req: Maybe, wantBad: true},
		{name: "scoped_lazy_transient", owner: Scoped, dep: Transient, req: LazyOf},
		{name: "transient_scoped", owner: Transient, dep: Scoped, req: Need},
		{name: "transient_transient", owner: Transient, dep: Transient, req: Need},
		{name: "transient_singleton", owner: Transient, dep: Singleton, req: Need},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			g := mustGraph(t, false,
				Describe("*Dep", tt.dep, "NewDep"),
				Describe("*Owner", tt.owner, "NewOwner", tt.req("*Dep")),
			)
			diags := ValidateScopes(g)
			if !tt.wantBad {
				assert.Empty(t, diags)
				return
			}
			require.Len(t, diags, 1)
			assert.Equal(t, KindCaptiveDependency, diags[0].Kind)
			assert.Equal(t, []ServiceID{{Type: "*Owner"}, {Type: "*Dep"}}, diags[0].Services)
			assert.Contains(t, diags[0].Message, tt.owner.String()+" *Owner captures "+tt.dep.String()+" *Dep")
		})
	}
}

// TestValidateScopes_DynamicDependenciesAreExempt verifies singletons may
// depend on host-supplied services regardless of their declared lifetime.
func TestValidateScopes_DynamicDependenciesAreExempt(t *testing.T) {
	t.Parallel()

	g := mustGraph(t, true,
		External("*http.Request", Scoped),
		Describe("*A", Singleton, "NewA", Need("*http.Request"), Need("*Clock")),
	)

	assert.Empty(t, ValidateScopes(g))
}

// TestValidateScopes_CollectsEveryViolation verifies the walk does not stop at
// the first violation.
func TestValidateScopes_CollectsEveryViolation(t *testing.T) {
	t.Parallel()

	g := mustGraph(t, false,
		Describe("*Req", Scoped, "NewReq"),
		Describe("*Tmp", Transient, "NewTmp"),
		Describe("*A", Singleton, "NewA", Need("*Req"), Need("*Tmp")),
		Describe("*B", Scoped, "NewB", Need("*Tmp")),
	)

	diags := ValidateScopes(g)
	require.Len(t, diags, 3)
	assert.Equal(t, ServiceID{Type: "*A"}, diags[0].Services[0])
	assert.Equal(t, ServiceID{Type: "*Req"}, diags[0].Services[1])
	assert.Equal(t, ServiceID{Type: "*Tmp"}, diags[1].Services[1])
	assert.Equal(t, ServiceID{Type: "*B"}, diags[2].Services[0])
}
