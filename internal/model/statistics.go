package model

// LicenseStatistics summarizes the license collection at one instant.
type LicenseStatistics struct {
	TotalLicenses    int `json:"total_licenses"`
	ValidLicenses    int `json:"valid_licenses"`
	ExpiredLicenses  int `json:"expired_licenses"`
	ExpiringLicenses int `json:"expiring_licenses"`
	UsedLicenses     int `json:"used_licenses"`
	BlockedLicenses  int `json:"blocked_licenses"`
	BoundLicenses    int `json:"bound_licenses"`
	TotalUsers       int `json:"total_users"`

	EventsByType map[string]int    `json:"events_by_type"`
	DailyEvents  []DailyEventCount `json:"daily_events"`
}

// DailyEventCount is the number of notifications recorded on one day.
type DailyEventCount struct {
	Date        string `json:"date"`
	TotalEvents int    `json:"total_events"`
	Alerts      int    `json:"alerts"`
}

// GetUsageRate returns the share of licenses that have been consumed.
func (ls *LicenseStatistics) GetUsageRate() float64 {
	if ls.TotalLicenses == 0 {
		return 0
	}
	return float64(ls.UsedLicenses) / float64(ls.TotalLicenses)
}
