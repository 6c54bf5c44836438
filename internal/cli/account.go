package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/gigboard/internal/session"
	"github.com/mesh-intelligence/gigboard/pkg/types"
)

type credentialFlags struct {
	email    string
	password string
}

func (c *credentialFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.email, "email", "", "account email")
	cmd.Flags().StringVar(&c.password, "password", "", "account password (prompted when omitted)")
}

// resolve prompts for whatever was not given as a flag.
func (c *credentialFlags) resolve(cmd *cobra.Command) error {
	if c.email == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Email: ")
		line, _ := readLine(cmd.InOrStdin())
		c.email = strings.TrimSpace(line)
	}
	if c.password == "" {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		line, _ := readLine(cmd.InOrStdin())
		c.password = line
	}
	if c.email == "" || c.password == "" {
		return types.ErrInvalidCredentials
	}
	return nil
}

type authFunc func(t *session.Tracker, ctx context.Context, email, password string) (types.Session, error)

func newAuthCmd(st *state, use, short string, do authFunc) *cobra.Command {
	var creds credentialFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := creds.resolve(cmd); err != nil {
				return err
			}
			tr, err := st.session(cmd.Context())
			if err != nil {
				return err
			}
			sess, err := do(tr, cmd.Context(), creds.email, creds.password)
			if err != nil {
				return err
			}
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), whoami{State: session.SignedIn.String(), Email: sess.Email, UserID: sess.UserID, ExpiresAt: sess.ExpiresAt.Local().Format("2006-01-02 15:04")})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s\n", sess.Email)
			return nil
		},
	}
	creds.bind(cmd)
	return cmd
}

func newSignUpCmd(st *state) *cobra.Command {
	return newAuthCmd(st, "signup", "Create an account on the server and sign in", (*session.Tracker).SignUp)
}

func newSignInCmd(st *state) *cobra.Command {
	return newAuthCmd(st, "signin", "Sign in to the server", (*session.Tracker).SignIn)
}

func newSignOutCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Sign out and forget the saved session",
		Args:  usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := st.session(cmd.Context())
			if err != nil {
				return err
			}
			if err := tr.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

type whoami struct {
	State     string `json:"state"`
	Email     string `json:"email,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func newWhoAmICmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  usage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			tr, err := st.session(cmd.Context())
			if err != nil {
				return err
			}
			cur, sess := tr.Current()
			out := whoami{State: cur.String()}
			if cur == session.SignedIn {
				out.Email = sess.Email
				out.UserID = sess.UserID
				if !sess.ExpiresAt.IsZero() {
					out.ExpiresAt = sess.ExpiresAt.Local().Format("2006-01-02 15:04")
				}
			}
			if st.flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), out)
			}
			if cur != session.SignedIn {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", out.Email, out.UserID)
			return nil
		},
	}
}
