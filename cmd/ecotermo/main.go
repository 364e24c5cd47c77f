package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"ecotermo/internal/app"
	"ecotermo/internal/asset"
	"ecotermo/internal/config"
	"ecotermo/internal/eco"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func readConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates an EcoApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Import", "Restore").
func newApp(operation, parameters string, opts app.Options) (*app.EcoApp, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, err
	}
	if opts.Console == nil {
		opts.Console = os.Stderr
	}

	a, err := app.NewEcoApp(cfg, operation, parameters, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
func promptPassphrase(label string) (string, error) {
	fmt.Fprint(os.Stderr, label)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// requireYes refuses a destructive command unless --yes was given.
func requireYes(cmd *cobra.Command) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("%s requires --yes", cmd.CommandPath())
	}
	return nil
}

func snapshotPassphrase() (string, error) {
	return promptPassphrase("Passphrase: ")
}

var rootCmd = &cobra.Command{
	Use:          "ecotermo",
	Short:        "Heat exchanger asset register",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		actor, _ := cmd.Flags().GetString("actor")
		if actor == "" {
			actor = uuid.New().String()
		}

		cfg := config.NewConfig(actor, defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Actor:    %s\n", actor)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Actor:       %s\n", cfg.Actor)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s\n", cfg.Database.Type)
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		fmt.Printf("Encryption:  %s\n", cfg.Encryption.Type)
		fmt.Printf("Import Mode: %s (history=%t, batch=%d, concurrency=%d)\n",
			cfg.Import.Mode, cfg.Import.History, cfg.Import.BatchSize, cfg.Import.Concurrency)
		fmt.Printf("Thresholds:  warning>%d alert>%d (status from %s)\n",
			cfg.Import.WarningAfterDays, cfg.Import.AlertAfterDays, cfg.Import.StatusSource)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the age key pair and back it up to the vault",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			return err
		}

		pass, err := promptPassphrase("New passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		confirm, err := promptPassphrase("Confirm passphrase: ")
		if err != nil {
			return fmt.Errorf("reading passphrase: %w", err)
		}
		if pass != confirm {
			return errors.New("passphrases do not match")
		}

		if err := app.InitKeys(cfg, pass); err != nil {
			return err
		}
		fmt.Println("Encryption keys generated and backed up.")
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a CSV spreadsheet into the register",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, _ := cmd.Flags().GetString("mode")

		bar := progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Writing records"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		progress := func(done, total int) {
			bar.ChangeMax(total)
			_ = bar.Set(done)
		}

		a, err := newApp("Import", args[0]+" mode="+mode, app.Options{OnProgress: progress})
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Import(cmd.Context(), args[0], mode)
		_ = bar.Finish()
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		fmt.Printf("Imported %d record(s) (%s): %d new, %d updated, %d deleted\n",
			res.Total, res.Mode, res.New, res.Updated, res.Deleted)
		if res.SnapshotID != "" {
			fmt.Printf("Previous register saved as snapshot %s\n", res.SnapshotID)
		}
		if res.Total == 0 {
			fmt.Fprintln(os.Stderr, "warning: the file had no usable rows")
		}
		if res.SnapshotErr != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", res.SnapshotErr)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the register",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("Export", "", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		var w io.Writer = os.Stdout
		if output != "" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		return a.Export(cmd.Context(), w, format)
	},
}

// asset command
var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage individual records",
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List records",
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, _ := cmd.Flags().GetString("tag")

		a, err := newApp("ListAssets", "", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.ListAssets(cmd.Context(), tag)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No records.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%-12s  %-20s  %-10s  %4dd  %5.1f%%  %s  %s\n",
				r.Tag, r.Area, r.Status, r.DaysSinceService, r.EfficiencyPercent, r.FoodSafetyStatus, r.ID)
		}
		return nil
	},
}

var assetSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Create or update a record",
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		var r asset.Record
		r.ID, _ = flags.GetString("id")
		r.Tag, _ = flags.GetString("tag")
		r.Model, _ = flags.GetString("model")
		r.Area, _ = flags.GetString("area")
		r.Application, _ = flags.GetString("application")
		r.Technician, _ = flags.GetString("technician")
		r.DaysSinceService, _ = flags.GetInt("days")
		r.EfficiencyPercent, _ = flags.GetFloat64("efficiency")
		r.CleanSidePressure, _ = flags.GetFloat64("clean-pressure")
		r.RawSidePressure, _ = flags.GetFloat64("raw-pressure")
		status, _ := flags.GetString("status")
		if status != "" {
			r.Status = asset.NormalizeStatus(status)
		}

		a, err := newApp("SaveAsset", r.Tag, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		saved, err := a.SaveAsset(cmd.Context(), r)
		if err != nil {
			return err
		}
		fmt.Printf("Saved %s (%s)\n", saved.Tag, saved.ID)
		return nil
	},
}

var assetDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteAsset", args[0], app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteAsset(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var assetClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireYes(cmd); err != nil {
			return err
		}

		a, err := newApp("ClearAssets", "", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.ClearAssets(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d record(s)\n", n)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage register snapshots",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListHistory", "", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.ListHistory(cmd.Context())
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, s := range infos {
			lock := ""
			if s.Payload.Encrypted {
				lock = "  [encrypted]"
			}
			fmt.Printf("%s  %s  %-20s  %d record(s)%s\n", s.ID, s.FormattedDate, s.Actor, s.RecordCount, lock)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show the records of a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowSnapshot", args[0], app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.GetSnapshot(cmd.Context(), args[0], snapshotPassphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Snapshot %s taken %s by %s\n\n", snap.ID, snap.FormattedDate, snap.Actor)
		for _, r := range snap.Records {
			fmt.Printf("%-12s  %-20s  %-10s  %4dd  %5.1f%%\n",
				r.Tag, r.Area, r.Status, r.DaysSinceService, r.EfficiencyPercent)
		}
		return nil
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireYes(cmd); err != nil {
			return err
		}

		a, err := newApp("DeleteHistory", args[0], app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteHistory(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted snapshot %s\n", args[0])
		return nil
	},
}

var historyRestoreCmd = &cobra.Command{
	Use:   "restore ID",
	Short: "Replace the register with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireYes(cmd); err != nil {
			return err
		}

		a, err := newApp("Restore", args[0], app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Restore(cmd.Context(), args[0], snapshotPassphrase)
		if err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}
		fmt.Printf("Restored %d record(s) from %s\n", n, args[0])
		return nil
	},
}

var historyCompareCmd = &cobra.Command{
	Use:   "compare ID",
	Short: "Compare the register with a snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("field")
		onlyDiff, _ := cmd.Flags().GetBool("only-differences")

		opts := eco.CompareOptions{OnlyDifferences: onlyDiff}
		for _, name := range names {
			f, ok := asset.ParseNumericField(name)
			if !ok {
				return fmt.Errorf("unknown field %q", name)
			}
			opts.Fields = append(opts.Fields, f)
		}

		a, err := newApp("Compare", args[0], app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		cmp, err := a.Compare(cmd.Context(), args[0], opts, snapshotPassphrase)
		if err != nil {
			return err
		}

		header := []string{fmt.Sprintf("%-12s", "TAG")}
		for _, f := range cmp.Fields {
			header = append(header, fmt.Sprintf("%22s", f))
		}
		fmt.Println(strings.Join(header, "  "))
		for _, row := range cmp.Rows {
			cols := []string{fmt.Sprintf("%-12s", row.Record.Tag)}
			for _, d := range row.Deltas {
				if !d.HasPrior {
					cols = append(cols, fmt.Sprintf("%22s", fmt.Sprintf("%g (new)", d.Current)))
					continue
				}
				cols = append(cols, fmt.Sprintf("%22s", fmt.Sprintf("%g (%+g)", d.Current, d.Delta)))
			}
			fmt.Println(strings.Join(cols, "  "))
		}
		return nil
	},
}

// summary command
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show dashboard figures",
	RunE: func(cmd *cobra.Command, args []string) error {
		area, _ := cmd.Flags().GetString("area")

		a, err := newApp("Summary", area, app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Summary(cmd.Context(), area)
		if err != nil {
			return err
		}
		fmt.Printf("Total: %d  alert: %d  warning: %d  operational: %d  stopped: %d  avg efficiency: %.1f%%\n\n",
			s.Total, s.Alert, s.Warning, s.Operational, s.Stopped, s.AverageEfficiency)
		for _, g := range s.Groups {
			fmt.Printf("%-24s  %4d  %5.1f%%  %5.1fd\n", g.Name, g.Count, g.AverageEfficiency, g.AverageDays)
		}
		return nil
	},
}

// log command
var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View the operation log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("GetOperations", "", app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetOperations(limit)
		if err != nil {
			return err
		}
		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt.Valid {
				d := op.FinishedAt.Time.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-10s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("actor", "", "Actor name recorded on snapshots (default: a new UUID)")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// asset subcommands
	assetCmd.AddCommand(assetListCmd)
	assetListCmd.Flags().String("tag", "", "Only records with this tag")
	assetCmd.AddCommand(assetSaveCmd)
	f := assetSaveCmd.Flags()
	f.String("id", "", "Record id (empty creates a new record)")
	f.String("tag", "", "Tag")
	f.String("model", "", "Model")
	f.String("area", "", "Area")
	f.String("application", "", "Application")
	f.String("technician", "", "Technician")
	f.String("status", "", "Status text")
	f.Int("days", 0, "Days since last service")
	f.Float64("efficiency", 0, "Efficiency percent")
	f.Float64("clean-pressure", 0, "Clean side pressure")
	f.Float64("raw-pressure", 0, "Raw side pressure")
	_ = assetSaveCmd.MarkFlagRequired("tag")
	assetCmd.AddCommand(assetDeleteCmd)
	assetCmd.AddCommand(assetClearCmd)
	assetClearCmd.Flags().Bool("yes", false, "Confirm deleting every record")

	// history subcommands
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyDeleteCmd.Flags().Bool("yes", false, "Confirm deleting the snapshot")
	historyCmd.AddCommand(historyRestoreCmd)
	historyRestoreCmd.Flags().Bool("yes", false, "Confirm replacing the register")
	historyCmd.AddCommand(historyCompareCmd)
	historyCompareCmd.Flags().StringSlice("field", nil, "Numeric fields to compare (default: daysSinceService)")
	historyCompareCmd.Flags().Bool("only-differences", false, "Hide rows without changes")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("mode", "", "Import mode: replace or upsert (default from config)")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("format", "csv", "Export format: csv or xlsx")
	exportCmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(assetCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().String("area", "", "Scope the summary to one area")
	rootCmd.AddCommand(logCmd)
	logCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}
