// internal/models/identity.go
package models

// Identity is a snapshot of the externally visible user identity.
// AliasID is always non-empty; AppUserID is empty while anonymous.
type Identity struct {
	AppUserID  string                 `json:"app_user_id,omitempty"`
	AliasID    string                 `json:"alias_id"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// UserID is the externally visible identity: the app user id when logged in,
// the anonymous alias otherwise.
func (i Identity) UserID() string {
	if i.AppUserID != "" {
		return i.AppUserID
	}
	return i.AliasID
}

func (i Identity) IsLoggedIn() bool {
	return i.AppUserID != ""
}
