package model

// ServiceAccountPrefix is the reserved username prefix for API tokens. Token
// principals are not returned by the user listing endpoint, so lookups for
// names with this prefix are resolved by a direct token lookup instead.
const ServiceAccountPrefix = "service-account-"

// User is a human or service principal.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserResponse is a full user listing.
type UserResponse struct {
	Records     []User `json:"records"`
	TotalRecord int    `json:"totalRecord"`
}

// Group is a principal group.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GroupResponse is a full group listing.
type GroupResponse struct {
	Records     []Group `json:"records"`
	TotalRecord int     `json:"totalRecord"`
}

// Role is a workspace role.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoleResponse is a full role listing.
type RoleResponse struct {
	Records     []Role `json:"records"`
	TotalRecord int    `json:"totalRecord"`
}

// APIToken is a service-account credential record.
type APIToken struct {
	GUID        string `json:"guid"`
	ClientID    string `json:"clientId"`
	DisplayName string `json:"displayName,omitempty"`
}

// Username returns the reserved username under which the token appears as a
// principal.
func (t *APIToken) Username() string {
	return ServiceAccountPrefix + t.ClientID
}
