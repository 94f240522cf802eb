package profile

import (
	"testing"

	"github.com/ngochieu276/slack-clone/internal/store"
)

func TestResolveDisplayName(t *testing.T) {
	user := store.User{ID: "usr_1", Name: "bob123"}
	cases := []struct {
		name string
		pref *store.MemberPreference
		want string
	}{
		{name: "full name when display empty", pref: &store.MemberPreference{FullName: "Bob"}, want: "Bob"},
		{name: "account name when prefs empty", pref: &store.MemberPreference{}, want: "bob123"},
		{name: "display name wins", pref: &store.MemberPreference{DisplayName: "Bobby", FullName: "Bob"}, want: "Bobby"},
		{name: "nil preference", pref: nil, want: "bob123"},
		{name: "blank display name skipped", pref: &store.MemberPreference{DisplayName: "  ", FullName: "Bob"}, want: "Bob"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveDisplayName(user, tc.pref); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBuildPrefersPreferenceImage(t *testing.T) {
	user := store.User{ID: "usr_1", Name: "bob123", Image: "img-account"}

	p := Build(user, &store.MemberPreference{MemberID: "mem_1", Image: "img-pref", Title: "Engineer"})
	if p.ImageID != "img-pref" || p.MemberID != "mem_1" || p.Title != "Engineer" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	p = Build(user, nil)
	if p.ImageID != "img-account" || p.DisplayName != "bob123" {
		t.Fatalf("unexpected profile without preference: %+v", p)
	}
}
