package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/identity"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// loader opens the configuration and database. The returned func releases them.
type loader func() (*config.Config, *gorm.DB, func(), error)

type adminCLI struct {
	load  loader
	cfg   *config.Config
	store *repository.Store
	done  func()
}

func newRootCmd(load loader) *cobra.Command {
	cli := &adminCLI{load: load}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Manage community accounts",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.open()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			cli.close()
		},
	}

	root.AddCommand(
		cli.blockCmd(),
		cli.unblockCmd(),
		cli.promoteCmd(),
		cli.demoteCmd(),
		cli.listAdminsCmd(),
		cli.tokenCmd(),
	)
	return root
}

func (a *adminCLI) open() error {
	cfg, db, done, err := a.load()
	if err != nil {
		return err
	}
	a.cfg, a.store, a.done = cfg, repository.NewStore(db), done
	return nil
}

func (a *adminCLI) close() {
	if a.done != nil {
		a.done()
	}
}

func parseUserID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid user id %q", arg)
	}
	return uint(id), nil
}

func (a *adminCLI) blockCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "block <user_id>",
		Short: "Block a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			user, err := a.store.Users.SetBlocked(cmd.Context(), id, true, reason)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Blocked %s (ID: %d)\n", user.DisplayName, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason shown to moderators")
	return cmd
}

func (a *adminCLI) unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock <user_id>",
		Short: "Unblock a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			user, err := a.store.Users.SetBlocked(cmd.Context(), id, false, "")
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unblocked %s (ID: %d)\n", user.DisplayName, user.ID)
			return nil
		},
	}
}

func (a *adminCLI) promoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <user_id>",
		Short: "Grant administrator rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setAdmin(cmd, args[0], true)
		},
	}
}

func (a *adminCLI) demoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "demote <user_id>",
		Short: "Revoke administrator rights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.setAdmin(cmd, args[0], false)
		},
	}
}

func (a *adminCLI) setAdmin(cmd *cobra.Command, arg string, admin bool) error {
	id, err := parseUserID(arg)
	if err != nil {
		return err
	}
	current, err := a.store.Users.GetByID(cmd.Context(), id)
	if err != nil {
		return err
	}
	if current.IsAdmin == admin {
		fmt.Fprintf(cmd.OutOrStdout(), "User %s (ID: %d) is already in that role\n", current.DisplayName, current.ID)
		return nil
	}
	user, err := a.store.Users.SetAdmin(cmd.Context(), id, admin)
	if err != nil {
		return err
	}
	verb := "Promoted"
	if !admin {
		verb = "Demoted"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (ID: %d)\n", verb, user.DisplayName, user.ID)
	return nil
}

func (a *adminCLI) listAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List administrators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admins, err := a.store.Users.ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			if len(admins) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No admins found")
				return nil
			}
			for _, u := range admins {
				fmt.Fprintf(cmd.OutOrStdout(), "ID: %d | Name: %s | Email: %s\n", u.ID, u.DisplayName, u.Email)
			}
			return nil
		},
	}
}

// tokenCmd mints a development token. With --user-id the token resolves to
// that existing account.
func (a *adminCLI) tokenCmd() *cobra.Command {
	var (
		userID  uint
		subject string
		email   string
		name    string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.AuthProvider != "" && a.cfg.AuthProvider != "jwt" {
				return fmt.Errorf("tokens can only be issued when AUTH_PROVIDER=jwt")
			}
			claims := identity.Claims{Subject: subject, Email: email, Name: name}
			if userID != 0 {
				user, err := a.store.Users.GetByID(cmd.Context(), userID)
				if err != nil {
					return err
				}
				provider, sub, ok := strings.Cut(user.ExternalID, ":")
				if !ok {
					return fmt.Errorf("user %d has malformed external id", user.ID)
				}
				claims.Provider, claims.Subject = provider, sub
				if claims.Email == "" {
					claims.Email = user.Email
				}
			}
			if claims.Subject == "" {
				return errors.New("either --user-id or --subject is required")
			}

			issuer := identity.NewTokenIssuer(a.cfg.JWTSecret, a.cfg.JWTIssuer, a.cfg.JWTAudience)
			token, err := issuer.Issue(claims, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().UintVar(&userID, "user-id", 0, "Existing user to impersonate")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject for a new identity")
	cmd.Flags().StringVar(&email, "email", "", "Email claim")
	cmd.Flags().StringVar(&name, "name", "", "Display name claim")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
