package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/ashureev/vami-console/internal/onboarding"
	"github.com/ashureev/vami-console/internal/phone"
	"github.com/ashureev/vami-console/internal/vamiapi"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// OnboardOptions holds flags for the onboard command.
type OnboardOptions struct {
	AgentName     string
	BusinessName  string
	Template      string
	PhoneSource   string // "placeholder" | "backend"
	PhoneNumber   string
	AreaCode      string
	ListTemplates bool
}

// NewOnboardCommand creates the onboard command.
func NewOnboardCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OnboardOptions{}

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Create and activate a voice agent",
		Long: `Walk the three onboarding steps non-interactively: agent info, template,
confirmation. If the account already has an agent it is renamed instead.`,
		Example: `  vamictl onboard --list-templates
  vamictl onboard --agent-name Sarah --business-name "Acme Dental" --template dental`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(cmd, rootOpts, opts)
		},
		SilenceUsage: true,
	}

	cmd.Flags().StringVar(&opts.AgentName, "agent-name", "", "name the agent introduces itself with")
	cmd.Flags().StringVar(&opts.BusinessName, "business-name", "", "business the agent answers for")
	cmd.Flags().StringVarP(&opts.Template, "template", "t", "", "agent template key")
	cmd.Flags().StringVar(&opts.PhoneSource, "phone-source", "placeholder", "where the agent number comes from (placeholder|backend)")
	cmd.Flags().StringVar(&opts.PhoneNumber, "phone-number", phone.DefaultPlaceholderNumber, "number used by the placeholder source")
	cmd.Flags().StringVar(&opts.AreaCode, "area-code", "", "preferred area code for the backend source")
	cmd.Flags().BoolVar(&opts.ListTemplates, "list-templates", false, "print the available templates and exit")

	return cmd
}

func runOnboard(cmd *cobra.Command, rootOpts *RootOptions, opts *OnboardOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	s, err := requireSession(ctx, cmd, rootOpts)
	if err != nil {
		return err
	}
	client := s.Client()

	if opts.ListTemplates {
		templates, err := client.ListTemplates(ctx)
		if err != nil {
			return apiError(err, "Failed to load templates")
		}
		if rootOpts.Format == "json" {
			return writeJSON(out, templates)
		}
		for _, t := range templates {
			fmt.Fprintf(out, "%s %-16s %s\n", t.Icon, t.Key, t.Name)
		}
		return nil
	}

	var source phone.Source
	switch opts.PhoneSource {
	case "placeholder":
		source = phone.Placeholder{Number: opts.PhoneNumber}
	case "backend":
		source = phone.Backend{API: client, AreaCode: opts.AreaCode}
	default:
		return fmt.Errorf("invalid phone source %q: must be placeholder or backend", opts.PhoneSource)
	}

	// Step lines are for people; JSON output carries only the result.
	progress := out
	if rootOpts.Format == "json" {
		progress = cmd.ErrOrStderr()
	}

	logger := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
	w, err := onboarding.New(ctx, client, source, onboarding.WithLogger(logger))
	if err != nil {
		return apiError(err, "Failed to reserve a phone number")
	}

	if err := w.SubmitAgentInfo(opts.AgentName, opts.BusinessName); err != nil {
		var verr *onboarding.ValidationError
		if errors.As(err, &verr) {
			return fieldsError(verr.Fields)
		}
		return err
	}
	printStep(progress, w.Progress())

	if err := w.SelectTemplate(ctx, opts.Template); err != nil {
		if errors.Is(err, onboarding.ErrCannotProceed) {
			return errors.New("a template is required; see --list-templates")
		}
		return err
	}
	if err := w.Next(); err != nil {
		return err
	}
	printStep(progress, w.Progress())

	view := w.View()
	fmt.Fprintf(progress, "  %s %s for %s, template %s, number %s\n",
		view.TemplateIcon, view.Draft.AgentName, view.Draft.BusinessName, view.TemplateName, view.Draft.PhoneNumber)

	welcome, err := w.Activate(ctx)
	if err != nil {
		var aerr *onboarding.ActivationError
		if errors.As(err, &aerr) && vamiapi.IsUnauthorized(aerr.Err) {
			return ErrNotSignedIn
		}
		return err
	}

	if rootOpts.Format == "json" {
		return writeJSON(out, welcome)
	}
	verb := "activated"
	if welcome.Updated {
		verb = "updated"
	}
	color.New(color.FgGreen).Fprintf(out, "✓ Agent %s %s (%s)\n", welcome.AgentName, verb, welcome.AgentID)
	fmt.Fprintf(out, "  Call %s to talk to it.\n", welcome.PhoneNumber)
	return nil
}

func printStep(w io.Writer, p onboarding.Progress) {
	for _, s := range p.Steps {
		if s.State == "current" {
			color.New(color.FgCyan).Fprintf(w, "[%d/%d] %s: %s\n", s.Number, p.Total, s.Title, s.Description)
		}
	}
}
