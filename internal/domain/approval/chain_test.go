package approval

import (
	"testing"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

func testRoster() []entity.User {
	return []entity.User{
		{ID: "admin-1", Name: "John Admin", Role: entity.RoleAdmin, Status: entity.UserStatusActive},
		{ID: "mgr-2", Name: "Tom Manager", Role: entity.RoleManager, Status: entity.UserStatusActive},
		{ID: "mgr-1", Name: "Sarah Manager", Role: entity.RoleManager, Status: entity.UserStatusActive},
		{ID: "emp-1", Name: "Mike Employee", Role: entity.RoleEmployee, ManagerID: "mgr-1", Status: entity.UserStatusActive},
	}
}

func TestBuildChain_FirstMatchedRuleWins(t *testing.T) {
	rules := testRules()
	roster := testRoster()

	// Travel at 600 matches rule-travel first; its approvers become the chain
	chain := BuildChain(600, "Travel", rules, roster)
	if len(chain) != 1 || chain[0] != "mgr-1" {
		t.Errorf("BuildChain() = %v, want [mgr-1]", chain)
	}

	// Meals at 1200 matches rule-all first (priority 2 beats rule-meals at 3)
	chain = BuildChain(1200, "Meals", rules, roster)
	want := []string{"mgr-1", "admin-1"}
	if len(chain) != len(want) {
		t.Fatalf("BuildChain() = %v, want %v", chain, want)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Errorf("BuildChain()[%d] = %s, want %s", i, chain[i], want[i])
		}
	}
}

func TestBuildChain_ReturnsIndependentCopy(t *testing.T) {
	rules := testRules()

	chain := BuildChain(600, "Travel", rules, nil)
	chain[0] = "tampered"

	if rules[0].Approvers[0] != "mgr-1" {
		t.Error("BuildChain() leaked a live reference into the rule's approver list")
	}
}

func TestBuildChain_FallbackToFirstManagerByID(t *testing.T) {
	// No rules match: chain falls back to the first active manager ordered by identity
	chain := BuildChain(50, "Office", nil, testRoster())
	if len(chain) != 1 || chain[0] != "mgr-1" {
		t.Errorf("BuildChain() fallback = %v, want [mgr-1]", chain)
	}
}

func TestBuildChain_FallbackSkipsInactiveManagers(t *testing.T) {
	roster := []entity.User{
		{ID: "mgr-1", Role: entity.RoleManager, Status: entity.UserStatusInactive},
		{ID: "mgr-2", Role: entity.RoleManager, Status: entity.UserStatusActive},
	}

	chain := BuildChain(50, "Office", nil, roster)
	if len(chain) != 1 || chain[0] != "mgr-2" {
		t.Errorf("BuildChain() = %v, want [mgr-2]", chain)
	}
}

func TestBuildChain_EmptyWithoutManagers(t *testing.T) {
	roster := []entity.User{
		{ID: "emp-1", Role: entity.RoleEmployee, Status: entity.UserStatusActive},
	}

	if chain := BuildChain(50, "Office", nil, roster); len(chain) != 0 {
		t.Errorf("BuildChain() = %v, want empty", chain)
	}
}
