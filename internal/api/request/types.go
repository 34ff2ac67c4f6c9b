package request

// BanRequest is the request body for banning an identity
type BanRequest struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Reason      string `json:"reason,omitempty"`
}

// ToggleRequest is the request body for toggling a ban
type ToggleRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

// ImportRequest is the request body for importing a ban list
type ImportRequest struct {
	Blob string `json:"blob"`
}

// KickRequest is the request body for kicking a participant
type KickRequest struct {
	DisplayName string `json:"display_name,omitempty"`
}

// UpdateSettingsRequest is the request body for updating settings. Omitted
// fields are left unchanged.
type UpdateSettingsRequest struct {
	AutoBanInvalidRank   *bool   `json:"auto_ban_invalid_rank,omitempty"`
	AutoBanOffensiveName *bool   `json:"auto_ban_offensive_name,omitempty"`
	AutoBanFormattedName *bool   `json:"auto_ban_formatted_name,omitempty"`
	OffensiveNames       *string `json:"offensive_names,omitempty"`
	ToggleKey            *string `json:"toggle_key,omitempty"`
}

// JoinRequest is the request body for adding a simulated participant
type JoinRequest struct {
	Identity     string `json:"identity"`
	DisplayName  string `json:"display_name"`
	Rank         string `json:"rank,omitempty"`
	IgnoresKicks bool   `json:"ignores_kicks,omitempty"`
}

// AuthorityRequest is the request body for handing over the host role
type AuthorityRequest struct {
	IsAuthority bool `json:"is_authority"`
}
