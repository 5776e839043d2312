// Package access evaluates the per-scope allow/deny rule lists.
package access

// Allowed decides whether identity may proceed under rules.
//
// The rule grammar, kept compatible with the platform's settings files:
//
//   - empty list: deny everything
//   - exactly ["all"]: allow everything
//   - "all" plus other entries: blacklist, the other entries are denied
//   - anything else: whitelist, only listed identities are allowed
//
// Identities compare as strings. A missing identity is always denied.
func Allowed(rules []string, identity string) bool {
	if identity == "" {
		return false
	}
	if len(rules) == 0 {
		return false
	}

	hasAll := false
	for _, rule := range rules {
		if rule == "all" {
			hasAll = true
			break
		}
	}

	if hasAll {
		// Blacklist mode; ["all"] alone allows everyone.
		for _, rule := range rules {
			if rule != "all" && rule == identity {
				return false
			}
		}
		return true
	}

	for _, rule := range rules {
		if rule == identity {
			return true
		}
	}
	return false
}
