package validate

// Field names shared by the predefined schemas.
const (
	FieldAgentName       = "agent_name"
	FieldBusinessName    = "business_name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirm_password"
	FieldCompanyName     = "company_name"
	FieldRole            = "role"
)

// MinPasswordLength applies to registration and password reset.
const MinPasswordLength = 8

// AgentInfo is step one of onboarding.
var AgentInfo = Schema{
	{Name: FieldAgentName, Rules: []Rule{
		TrimmedRequired("Agent name is required"),
		TrimmedMinLength(2, "Agent name must be at least 2 characters"),
	}},
	{Name: FieldBusinessName, Rules: []Rule{
		TrimmedRequired("Business name is required"),
		TrimmedMinLength(2, "Business name must be at least 2 characters"),
	}},
}

// AgentSettings renames an existing agent.
var AgentSettings = Schema{AgentInfo[0]}

// Login is the sign-in form.
var Login = Schema{
	{Name: FieldEmail, Rules: []Rule{Required("Email is required")}},
	{Name: FieldPassword, Rules: []Rule{Required("Password is required")}},
}

// Register is the sign-up form.
var Register = Schema{
	{Name: FieldCompanyName, Rules: []Rule{Required("Company name is required")}},
	{Name: FieldEmail, Rules: []Rule{
		Required("Email is required"),
		Email("Enter a valid email address"),
	}},
	{Name: FieldPassword, Rules: []Rule{
		Required("Password is required"),
		MinLength(MinPasswordLength, "Password must be at least 8 characters"),
	}},
}

// ForgotPassword requests a reset email.
var ForgotPassword = Schema{
	{Name: FieldEmail, Rules: []Rule{Required("Email is required")}},
}

// ResetPassword sets a new password.
var ResetPassword = Schema{
	{Name: FieldPassword, Rules: []Rule{
		Required("Password is required"),
		MinLength(MinPasswordLength, "Password must be at least 8 characters"),
	}},
	{Name: FieldConfirmPassword,
		Rules: []Rule{Required("Please confirm your password")},
		Cross: []CrossRule{Matches(FieldPassword, "Passwords do not match")},
	},
}

// InvitableRoles are the roles a new member can be given. Ownership is never
// handed out by invitation.
var InvitableRoles = []string{"admin", "editor", "viewer"}

// Invite adds a team member.
var Invite = Schema{
	{Name: FieldEmail, Rules: []Rule{
		Required("Email is required"),
		Email("Enter a valid email address"),
	}},
	{Name: FieldRole, Rules: []Rule{OneOf(InvitableRoles, "Choose admin, editor or viewer")}},
}
