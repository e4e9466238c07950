package models

// TokenBundle is the set of session tokens required by authenticated calls.
type TokenBundle struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// IsZero reports whether the bundle carries no usable token.
func (t TokenBundle) IsZero() bool {
	return t.IDToken == "" && t.AccessToken == ""
}
