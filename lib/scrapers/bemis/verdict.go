package bemis

import "strings"

// RedirectRule classifies a POST redirect by a case-insensitive substring
// of its Location header. The only distinguishing signal the portal gives
// is the destination's resemblance to a login page, so the mapping lives
// in a table where it can be audited and tested in isolation.
type RedirectRule struct {
	Contains string
	Success  bool
	Reason   string
}

var DefaultRedirectRules = []RedirectRule{
	{
		Contains: "login",
		Success:  false,
		Reason:   "session might be expired or invalid",
	},
}

// classifyRedirect applies the first matching rule; an unmatched location
// counts as success on the theory that the portal's normal post-creation
// flow redirects to a listing page.
func classifyRedirect(rules []RedirectRule, location string) (bool, string) {
	lower := strings.ToLower(location)
	for _, rule := range rules {
		if strings.Contains(lower, strings.ToLower(rule.Contains)) {
			return rule.Success, rule.Reason
		}
	}
	return true, "assuming the redirect indicates a successful submission"
}
