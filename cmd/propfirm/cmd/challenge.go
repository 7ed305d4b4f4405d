package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/rustyeddy/propfirm/challenge"
	"github.com/rustyeddy/propfirm/reconcile"
	"github.com/spf13/cobra"
)

var challengeCmd = &cobra.Command{
	Use:   "challenge",
	Short: "Create and inspect challenges",
	Long: `Manage challenges in the configured store.

Subcommands:
  create   - Open a challenge on a plan
  activate - Move a PENDING_PAYMENT challenge to ACTIVE
  show     - Print the current state of a challenge
  verify   - Reconcile a challenge against its trade ledger

Examples:
  propfirm challenge create --user u-42 --plan pro
  propfirm challenge show 01HZX3...
  propfirm challenge verify 01HZX3...`,
}

var challengeCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Open a challenge on a plan",
	Args:  cobra.NoArgs,
	RunE:  runChallengeCreate,
}

var challengeActivateCmd = &cobra.Command{
	Use:   "activate <challenge-id>",
	Short: "Activate a pending challenge",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallengeActivate,
}

var challengeShowCmd = &cobra.Command{
	Use:   "show <challenge-id>",
	Short: "Print the current state of a challenge",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallengeShow,
}

var challengeVerifyCmd = &cobra.Command{
	Use:   "verify <challenge-id>",
	Short: "Reconcile a challenge against its trade ledger",
	Args:  cobra.ExactArgs(1),
	RunE:  runChallengeVerify,
}

var (
	createUser    string
	createPlan    string
	createPending bool
)

func init() {
	rootCmd.AddCommand(challengeCmd)
	challengeCmd.AddCommand(challengeCreateCmd)
	challengeCmd.AddCommand(challengeActivateCmd)
	challengeCmd.AddCommand(challengeShowCmd)
	challengeCmd.AddCommand(challengeVerifyCmd)

	challengeCreateCmd.Flags().StringVarP(&createUser, "user", "u", "", "user id (required)")
	challengeCreateCmd.Flags().StringVarP(&createPlan, "plan", "p", "STARTER", "plan name")
	challengeCreateCmd.Flags().BoolVar(&createPending, "pending", false, "open as PENDING_PAYMENT instead of ACTIVE")
	challengeCreateCmd.MarkFlagRequired("user")
}

func runChallengeCreate(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.CreateChallenge(cmd.Context(), createUser, createPlan, !createPending)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created challenge %s\n", c.ID)
	printChallenge(cmd.OutOrStdout(), c)
	return nil
}

func runChallengeActivate(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.Activate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Activated challenge %s\n", c.ID)
	return nil
}

func runChallengeShow(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.svc.Challenge(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printChallenge(cmd.OutOrStdout(), c)
	return nil
}

func runChallengeVerify(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.svc.Verify(cmd.Context(), args[0])
	out := cmd.OutOrStdout()
	var v *reconcile.Violation
	if err != nil && !errors.As(err, &v) {
		return err
	}

	fmt.Fprintf(out, "Challenge:     %s\n", report.ChallengeID)
	fmt.Fprintf(out, "Trades:        %d (%d closed)\n", report.Trades, report.ClosedTrades)
	fmt.Fprintf(out, "Stored:        %s\n", report.Stored.StringFixed(2))
	fmt.Fprintf(out, "Reconstructed: %s\n", report.Reconstructed.StringFixed(2))
	fmt.Fprintf(out, "Diff:          %s\n", report.Diff.StringFixed(2))
	for _, d := range report.Divergences {
		fmt.Fprintf(out, "  ✗ %s: expected %s, got %s\n", d.Field, d.Expected, d.Actual)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "✓ Ledger matches")
	return nil
}

func printChallenge(w io.Writer, c challenge.Challenge) {
	fmt.Fprintf(w, "  ID:       %s\n", c.ID)
	fmt.Fprintf(w, "  User:     %s\n", c.UserID)
	fmt.Fprintf(w, "  Plan:     %s\n", c.Plan)
	fmt.Fprintf(w, "  Status:   %s\n", c.Status)
	fmt.Fprintf(w, "  Balance:  %s (initial %s)\n", c.CurrentBalance.StringFixed(2), c.InitialBalance.StringFixed(2))
	fmt.Fprintf(w, "  Equity:   %s (peak %s)\n", c.Equity.StringFixed(2), c.MaxEquity.StringFixed(2))
	fmt.Fprintf(w, "  Daily:    %s since %s\n", c.DailyStartingBalance.StringFixed(2), c.DailyDate)
	fmt.Fprintf(w, "  Limits:   target +%s, daily -%s, total -%s\n",
		c.ProfitTarget.StringFixed(2), c.MaxDailyLossLimit.StringFixed(2), c.MaxTotalLossLimit.StringFixed(2))
}
