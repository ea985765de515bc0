// Package mask hides most of an email address for display purposes.
package mask

import "strings"

// Email masks the local part of an address: "martin@example.com" becomes
// "ma***n@example.com". Addresses without an "@" are returned unchanged.
func Email(email string) string {
	local, domain, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}

	if len(local) <= 3 {
		return local[:1] + "***@" + domain
	}

	return local[:2] + "***" + local[len(local)-1:] + "@" + domain
}
