// ABOUTME: provision commands: create teacher accounts and departments, enable or disable accounts
// ABOUTME: Elevated accounts are created here only; self-registration always yields students

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/campusworks/records-gateway/internal/accounts"
	"github.com/campusworks/records-gateway/internal/apperr"
	"github.com/campusworks/records-gateway/internal/auth"
	"github.com/campusworks/records-gateway/internal/gateway"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newProvisionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create teacher accounts and departments out of band",
	}
	cmd.AddCommand(
		newProvisionTeacherCmd(c),
		newProvisionDepartmentCmd(c),
		newSetEnabledCmd(c, "enable", true),
		newSetEnabledCmd(c, "disable", false),
	)
	return cmd
}

// withProvisioner opens the configured store for the duration of fn.
func (c *cli) withProvisioner(ctx context.Context, fn func(*accounts.Provisioner) error) error {
	cfg, _, err := c.loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	s, err := gateway.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer s.Close()

	return describe(fn(accounts.NewProvisioner(s, auth.NewBcryptHasher(cfg.Auth.BcryptCost), logger)))
}

// describe turns an apperr failure into an operator-readable error.
func describe(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind == apperr.KindInternal {
		return err
	}
	if len(appErr.Fields) == 0 {
		return errors.New(appErr.Message)
	}

	fields := make([]string, 0, len(appErr.Fields))
	for f := range appErr.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString(appErr.Message)
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f, appErr.Fields[f])
	}
	return errors.New(b.String())
}

func readPassword(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Enter password: ")
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return "", errors.New("no password on stdin")
}

func newProvisionTeacherCmd(c *cli) *cobra.Command {
	var (
		req           accounts.TeacherRequest
		passwordStdin bool
	)
	cmd := &cobra.Command{
		Use:   "teacher",
		Short: "Create a ROLE_TEACHER account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				pw, err := readPassword(cmd.InOrStdin(), cmd.ErrOrStderr())
				if err != nil {
					return err
				}
				req.Password = pw
			}

			return c.withProvisioner(cmd.Context(), func(p *accounts.Provisioner) error {
				acct, err := p.CreateTeacher(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s teacher %s created (id %s)\n",
					color.GreenString("✓"), acct.Email, acct.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "display name")
	cmd.Flags().StringVar(&req.Email, "email", "", "login email")
	cmd.Flags().StringVar(&req.Password, "password", "", "initial password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
	return cmd
}

func newProvisionDepartmentCmd(c *cli) *cobra.Command {
	var code, name, description string
	cmd := &cobra.Command{
		Use:   "department",
		Short: "Create a department students can register into",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withProvisioner(cmd.Context(), func(p *accounts.Provisioner) error {
				dept, err := p.CreateDepartment(cmd.Context(), code, name, description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s department %s (%s) created with id %d\n",
					color.GreenString("✓"), dept.Code, dept.Name, dept.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "short department code, e.g. CS")
	cmd.Flags().StringVar(&name, "name", "", "department name")
	cmd.Flags().StringVar(&description, "description", "", "optional description")
	return cmd
}

func newSetEnabledCmd(c *cli, verb string, enabled bool) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   verb,
		Short: strings.ToUpper(verb[:1]) + verb[1:] + " an account; takes effect on its next request",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withProvisioner(cmd.Context(), func(p *accounts.Provisioner) error {
				if err := p.SetEnabled(cmd.Context(), email, enabled); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s account %s %sd\n", color.GreenString("✓"), email, verb)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
