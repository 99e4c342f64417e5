package service

import (
	"time"

	"license-binding-server/internal/model"
)

// Statistics counts licenses per category at the current time. A license
// expiring within expiringWithin is counted as expiring while still valid.
func (s *LicenseStore) Statistics(expiringWithin time.Duration) (model.LicenseStatistics, error) {
	stats := model.LicenseStatistics{EventsByType: map[string]int{}}

	all, err := s.List("")
	if err != nil {
		return stats, err
	}
	now := s.now()
	horizon := now.Add(expiringWithin)
	for _, l := range all {
		stats.TotalLicenses++
		if l.IsValid(now) {
			stats.ValidLicenses++
			if l.Expiration != nil && !l.Expiration.After(horizon) {
				stats.ExpiringLicenses++
			}
		}
		if l.IsExpired(now) {
			stats.ExpiredLicenses++
		}
		if l.Used {
			stats.UsedLicenses++
		}
		if l.Blocked {
			stats.BlockedLicenses++
		}
		if l.HWID != "" {
			stats.BoundLicenses++
		}
		for _, e := range l.History {
			stats.EventsByType[e.EventType]++
		}
	}

	if s.credentials != nil {
		users, err := s.credentials.List()
		if err != nil {
			return stats, err
		}
		stats.TotalUsers = len(users)
	}
	return stats, nil
}
