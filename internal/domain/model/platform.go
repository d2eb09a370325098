package model

// PlatformMetrics summarizes the whole platform for the overview page.
type PlatformMetrics struct {
	TotalTenants      int `json:"total_tenants"`
	TotalUsers        int `json:"total_users"`
	TotalOAuthClients int `json:"total_oauth_clients"`
}
