// Package profile merges a user with the member preference that overrides how
// the user is presented inside one workspace.
package profile

import (
	"strings"

	"github.com/ngochieu276/slack-clone/internal/store"
)

// Profile is the view of a user as seen inside a workspace.
type Profile struct {
	UserID        string `json:"userId"`
	MemberID      string `json:"memberId,omitempty"`
	Name          string `json:"name"`
	DisplayName   string `json:"displayName"`
	FullName      string `json:"fullName,omitempty"`
	Title         string `json:"title,omitempty"`
	Pronunciation string `json:"pronunciation,omitempty"`
	TimeZone      string `json:"timeZone,omitempty"`
	Email         string `json:"email,omitempty"`
	ImageID       string `json:"-"`
	Image         string `json:"image,omitempty"`
}

// ResolveDisplayName picks the first non-empty of displayName, fullName and the
// account name. A nil preference falls through to the account name.
func ResolveDisplayName(user store.User, pref *store.MemberPreference) string {
	if pref != nil {
		if name := strings.TrimSpace(pref.DisplayName); name != "" {
			return pref.DisplayName
		}
		if name := strings.TrimSpace(pref.FullName); name != "" {
			return pref.FullName
		}
	}
	return user.Name
}

// ResolveImageID returns the blob id of the avatar to show: the preference image
// when set, the account image otherwise.
func ResolveImageID(user store.User, pref *store.MemberPreference) string {
	if pref != nil && pref.Image != "" {
		return pref.Image
	}
	return user.Image
}

// Build merges user and pref. Image is left for the caller to resolve from ImageID.
func Build(user store.User, pref *store.MemberPreference) Profile {
	p := Profile{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		DisplayName: ResolveDisplayName(user, pref),
		ImageID:     ResolveImageID(user, pref),
	}
	if pref != nil {
		p.MemberID = pref.MemberID
		p.FullName = pref.FullName
		p.Title = pref.Title
		p.Pronunciation = pref.Pronunciation
		p.TimeZone = pref.TimeZone
	}
	return p
}
