package validate

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentInfo(t *testing.T) {
	tests := []struct {
		name     string
		agent    string
		business string
		want     Errors
	}{
		{"valid", "Sarah", "Smith Dental", nil},
		{"both empty", "", "", Errors{
			FieldAgentName:    "Agent name is required",
			FieldBusinessName: "Business name is required",
		}},
		{"whitespace only", "   ", "\t", Errors{
			FieldAgentName:    "Agent name is required",
			FieldBusinessName: "Business name is required",
		}},
		{"too short", "S", "Smith Dental", Errors{
			FieldAgentName: "Agent name must be at least 2 characters",
		}},
		{"short after trim", " S", "Sm ", Errors{
			FieldAgentName: "Agent name must be at least 2 characters",
		}},
		{"padded but long enough", "  Sa  ", " Smith ", nil},
		{"two runes", "Zé", "Ål", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AgentInfo.Validate(Values{FieldAgentName: tt.agent, FieldBusinessName: tt.business})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAgentInfoValidIffBothFieldsPass(t *testing.T) {
	inputs := []string{"", " ", "a", " a", "ab", "  ", "Sarah", strings.Repeat("x", 64)}
	for _, a := range inputs {
		for _, b := range inputs {
			want := len(strings.TrimSpace(a)) >= 2 && len(strings.TrimSpace(b)) >= 2
			got := AgentInfo.Valid(Values{FieldAgentName: a, FieldBusinessName: b})
			assert.Equal(t, want, got, "agent=%q business=%q", a, b)
		}
	}
}

func TestResetPassword(t *testing.T) {
	assert.Nil(t, ResetPassword.Validate(Values{FieldPassword: "correct-horse", FieldConfirmPassword: "correct-horse"}))

	got := ResetPassword.Validate(Values{FieldPassword: "short", FieldConfirmPassword: "shorter"})
	assert.Equal(t, Errors{
		FieldPassword:        "Password must be at least 8 characters",
		FieldConfirmPassword: "Passwords do not match",
	}, got)

	got = ResetPassword.Validate(Values{FieldPassword: "correct-horse"})
	assert.Equal(t, "Please confirm your password", got[FieldConfirmPassword])
}

func TestRegisterEmail(t *testing.T) {
	base := Values{FieldCompanyName: "Acme Medical", FieldPassword: "longenough"}

	base[FieldEmail] = "owner@acme.com"
	assert.True(t, Register.Valid(base))

	base[FieldEmail] = "Owner <owner@acme.com>"
	assert.Equal(t, "Enter a valid email address", Register.Validate(base)[FieldEmail])

	base[FieldEmail] = ""
	assert.Equal(t, "Email is required", Register.Validate(base)[FieldEmail])
}

func TestFormRevalidatesOnlyAfterSubmit(t *testing.T) {
	f := NewForm(AgentInfo)

	assert.Empty(t, f.Change(FieldAgentName, "S"), "no error before the first submit")

	ok := f.Submit(Values{FieldAgentName: "S", FieldBusinessName: ""})
	assert.False(t, ok)
	assert.Equal(t, Errors{
		FieldAgentName:    "Agent name must be at least 2 characters",
		FieldBusinessName: "Business name is required",
	}, f.Errors())

	assert.Empty(t, f.Change(FieldAgentName, "Sa"))
	assert.Equal(t, Errors{FieldBusinessName: "Business name is required"}, f.Errors())

	assert.Equal(t, "Business name must be at least 2 characters", f.Change(FieldBusinessName, "X"))
	assert.Equal(t, "Sa", f.Value(FieldAgentName))
}

func TestErrorsAsError(t *testing.T) {
	var err error = Errors{FieldPassword: "Password is required", FieldEmail: "Email is required"}
	assert.Equal(t, "invalid email, password", err.Error())

	var fields Errors
	require.ErrorAs(t, fmt.Errorf("login: %w", err), &fields)
	assert.Len(t, fields, 2)
}

func TestInvite(t *testing.T) {
	assert.Nil(t, Invite.Validate(Values{FieldEmail: "frontdesk@smithdental.com", FieldRole: "editor"}))

	errs := Invite.Validate(Values{FieldEmail: "frontdesk", FieldRole: "owner"})
	assert.Equal(t, Errors{
		FieldEmail: "Enter a valid email address",
		FieldRole:  "Choose admin, editor or viewer",
	}, errs)
}
