package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/menootpass/admin-gemitra/libs/txreport"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "gemitra-api",
		Short: "Gemitra admin API and maintenance commands",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				return app.serve(ctx)
			})
		},
	}

	root.AddCommand(
		newServeCommand(),
		newCreateAdminCommand(),
		newListAdminsCommand(),
		newCheckPasswordsCommand(),
		newCheckStoreCommand(),
		newSendReportCommand(),
	)
	return root
}

// runWithApp loads configuration and builds an App for one command. The
// database is opened and migrated only when withDB is set.
func runWithApp(cmd *cobra.Command, withDB bool, fn func(ctx context.Context, app *App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	if !withDB {
		return fn(ctx, newApp(cfg, nil, logger))
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	app := newApp(cfg, db, logger)
	if err := app.runMigrations(ctx); err != nil {
		return err
	}
	return fn(ctx, app)
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				return app.serve(ctx)
			})
		},
	}
}

func newCreateAdminCommand() *cobra.Command {
	var input AdminInput
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				admin, err := app.createAdmin(ctx, input)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), describeAdmin(*admin))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input.Email, "email", "", "admin email address")
	cmd.Flags().StringVar(&input.Name, "name", "", "display name")
	cmd.Flags().StringVar(&input.Password, "password", "", "initial password (min 8 characters)")
	cmd.Flags().StringVar(&input.Role, "role", defaultAdminRole, "admin or staff")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func newListAdminsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List admin accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				admins, err := app.listAdmins(ctx)
				if err != nil {
					return err
				}
				for _, admin := range admins {
					fmt.Fprintln(cmd.OutOrStdout(), describeAdmin(admin))
				}
				return nil
			})
		},
	}
}

func newCheckPasswordsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-passwords",
		Short: "Report the hash scheme and cost of every stored password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				records, err := app.storeListAdminPasswordHashes(ctx)
				if err != nil {
					return err
				}
				weak := 0
				for _, rec := range records {
					audit := auditPasswordHash(rec)
					writePasswordAudit(cmd.OutOrStdout(), audit)
					if !audit.Bcrypt || audit.Cost < adminPasswordCost {
						weak++
					}
				}
				if weak > 0 {
					return fmt.Errorf("%d password hash(es) need rehashing", weak)
				}
				return nil
			})
		},
	}
}

func writePasswordAudit(w io.Writer, audit passwordAudit) {
	if !audit.Bcrypt {
		fmt.Fprintf(w, "%s\tnot bcrypt\n", audit.Email)
		return
	}
	fmt.Fprintf(w, "%s\tbcrypt\tcost=%d\n", audit.Email, audit.Cost)
}

func newCheckStoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-store",
		Short: "Ping the catalog and transaction stores and print record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, false, func(ctx context.Context, app *App) error {
				return app.checkStore(ctx, cmd.OutOrStdout())
			})
		},
	}
}

func (a *App) checkStore(ctx context.Context, w io.Writer) error {
	destinations, err := a.store.ListDestinations(ctx)
	if err != nil {
		return err
	}
	events, err := a.store.ListEvents(ctx)
	if err != nil {
		return err
	}
	transactions, err := a.store.ListTransactions(ctx)
	if err != nil {
		return err
	}
	summary := txreport.Summarize(transactions, txreport.WithLocation(a.reportLocation))

	fmt.Fprintf(w, "destinations\t%d\n", len(destinations))
	fmt.Fprintf(w, "events\t%d\n", len(events))
	fmt.Fprintf(w, "transactions\t%d\n", len(transactions))
	if summary.SkippedDates > 0 {
		fmt.Fprintf(w, "unreadable transaction dates\t%d\n", summary.SkippedDates)
	}
	return nil
}

func newSendReportCommand() *cobra.Command {
	var sentBy string
	cmd := &cobra.Command{
		Use:   "send-report",
		Short: "Compute the transaction summary and email it to REPORT_EMAIL_TO",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, true, func(ctx context.Context, app *App) error {
				delivery, err := app.sendSummaryReport(ctx, sentBy)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "sent to %d recipient(s) via %s: %d transactions, %s\n",
					len(delivery.Recipients), delivery.Provider, delivery.TotalTransactions,
					txreport.FormatRupiah(delivery.TotalRevenue))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sentBy, "sent-by", "scheduler", "name recorded as the sender")
	return cmd
}
