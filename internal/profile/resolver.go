// File: internal/profile/resolver.go
package profile

import "strings"

// NormalizeDomain strips a single leading "www." or "m." label from a
// hostname so strategy matching treats mobile and desktop hosts alike.
func NormalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if rest, ok := strings.CutPrefix(host, "www."); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(host, "m."); ok {
		return rest
	}
	return host
}

// Resolve returns the first strategy whose Domain is a substring of the
// normalized host, or nil when no strategy matches. Callers are responsible
// for fallback behavior (the generic proxy wrap).
func (p *LibraryProfile) Resolve(host string) *SiteStrategy {
	normalized := NormalizeDomain(host)
	for i := range p.Strategies {
		if strings.Contains(normalized, p.Strategies[i].Domain) {
			return &p.Strategies[i]
		}
	}
	return nil
}
