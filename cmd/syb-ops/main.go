// Command syb-ops runs the background and one-off maintenance tasks next to the API.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anonto42/showyourbits/backend/internal/app"
	"github.com/anonto42/showyourbits/backend/internal/models"
	"github.com/anonto42/showyourbits/backend/internal/notifier"
	"github.com/anonto42/showyourbits/backend/pkg/config"
	"github.com/anonto42/showyourbits/backend/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:           "syb-ops",
	Short:         "Show Your Bits maintenance tasks",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// feedbackNotifierCmd mails every new feedback document
var feedbackNotifierCmd = &cobra.Command{
	Use:   "feedback-notifier",
	Short: "Mail the operators about every new feedback document",
	Long: `Listens to the feedback collection and mails each document that has not been
mailed yet, then marks it. Runs until interrupted.`,
	RunE: runFeedbackNotifier,
}

// resyncCommentsCmd recounts every post once
var resyncCommentsCmd = &cobra.Command{
	Use:   "resync-comments",
	Short: "Recount the comments of every post",
	RunE:  runResyncComments,
}

// seedExercisesCmd inserts the default prompts
var seedExercisesCmd = &cobra.Command{
	Use:   "seed-exercises",
	Short: "Insert the default exercise prompts that are missing",
	RunE:  runSeedExercises,
}

func init() {
	rootCmd.AddCommand(feedbackNotifierCmd, resyncCommentsCmd, seedExercisesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp opens the services for the duration of fn. ctx ends on SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) (err error) {
	cfg := config.Load()
	zl, err := logger.New(cfg.Env)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, zl.Named(cmd.Name()))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func runFeedbackNotifier(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if a.Repos.Feedback == nil {
			return errors.New("feedback notifier needs Firestore")
		}
		if a.Mailer == nil {
			return errors.New("feedback notifier needs SMTP credentials")
		}
		p := notifier.NewProcessor(a.Mailer, a.Repos.Feedback, a.Config.FeedbackRecipient, a.Config.AdminURL, a.Logger)
		a.Logger.Info("watching feedback", zap.String("recipient", a.Config.FeedbackRecipient))
		return p.Watch(ctx, a.Repos.Feedback.Collection())
	})
}

func runResyncComments(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		n, err := a.CommentResync.RunOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "resynced %d posts\n", n)
		return nil
	})
}

func runSeedExercises(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(_ context.Context, a *app.App) error {
		added, err := a.Repos.Exercises.SeedExercises(models.DefaultExercises)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "added %d exercises\n", added)
		return nil
	})
}
