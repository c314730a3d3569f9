package pages

// Console paths a view may send the browser to.
const (
	DashboardPath  = "/dashboard"
	OnboardingPath = "/onboarding"
)

// WelcomeRedirect returns where the welcome page must send a visitor who
// arrives without an activated agent, and whether a redirect is needed.
func WelcomeRedirect(agentID string) (string, bool) {
	if agentID == "" {
		return DashboardPath, true
	}
	return "", false
}
