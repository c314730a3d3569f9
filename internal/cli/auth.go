package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ashureev/vami-console/internal/domain"
	"github.com/ashureev/vami-console/internal/validate"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// LoginOptions holds flags for the login command.
type LoginOptions struct {
	Email    string
	Password string
}

// NewLoginCommand creates the login command.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Sign in with email and password. The token is written to the token file
and reused by every other command until it expires or is rejected.

The password may also be given through VAMI_PASSWORD.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Password == "" {
				opts.Password = os.Getenv("VAMI_PASSWORD")
			}
			return runLogin(cmd, rootOpts, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVarP(&opts.Email, "email", "e", "", "account email")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "account password")

	return cmd
}

func runLogin(cmd *cobra.Command, rootOpts *RootOptions, opts *LoginOptions) error {
	if errs := validate.Login.Validate(validate.Values{
		validate.FieldEmail:    opts.Email,
		validate.FieldPassword: opts.Password,
	}); errs != nil {
		return fieldsError(errs)
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, cmd, rootOpts)
	if err != nil {
		return err
	}
	user, err := s.Login(ctx, strings.TrimSpace(opts.Email), opts.Password)
	if err != nil {
		return errors.New(vamiapi.Message(err, "Login failed"))
	}

	out := cmd.OutOrStdout()
	if rootOpts.Format == "json" {
		return writeJSON(out, user)
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Signed in as %s\n", user.Email)
	return nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := openSession(ctx, cmd, rootOpts)
			if err != nil {
				return err
			}
			s.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
		SilenceUsage: true,
	}
}

// NewMeCommand creates the me command.
func NewMeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in account",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := requireSession(cmd.Context(), cmd, rootOpts)
			if err != nil {
				return err
			}
			user := s.Snapshot().User
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, user)
			}
			printUser(cmd, user)
			return nil
		},
		SilenceUsage: true,
	}
}

func printUser(cmd *cobra.Command, u *domain.User) {
	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan)
	cyan.Fprintln(out, u.Email)
	if u.CompanyName != "" {
		fmt.Fprintf(out, "  Company: %s\n", u.CompanyName)
	}
	fmt.Fprintf(out, "  Plan:    %s\n", u.PlanLabel())
	fmt.Fprintf(out, "  Status:  %s\n", u.SubscriptionStatus)
}

// fieldsError flattens validation messages into one error, in field order.
func fieldsError(errs validate.Errors) error {
	var b strings.Builder
	for _, field := range errs.Fields() {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(errs[field])
	}
	return errors.New(b.String())
}
