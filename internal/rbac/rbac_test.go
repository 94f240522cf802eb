package rbac

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		allow  bool
	}{
		{name: "member read", role: RoleMember, action: ActionRead, allow: true},
		{name: "member write", role: RoleMember, action: ActionWrite, allow: true},
		{name: "member moderate", role: RoleMember, action: ActionModerate, allow: false},
		{name: "member admin", role: RoleMember, action: ActionAdmin, allow: false},
		{name: "admin moderate", role: RoleAdmin, action: ActionModerate, allow: true},
		{name: "admin admin", role: RoleAdmin, action: ActionAdmin, allow: true},
		{name: "unknown read", role: Role("guest"), action: ActionRead, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.role, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.allow)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("admin"); got != RoleAdmin {
		t.Fatalf("Normalize(admin) = %q", got)
	}
	if got := Normalize("owner"); got != RoleMember {
		t.Fatalf("Normalize(owner) = %q, want members", got)
	}
	if Valid("owner") || !Valid("members") {
		t.Fatal("unexpected Valid result")
	}
}
