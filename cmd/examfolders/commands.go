package main

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tendant/exam-assets/pkg/examfolders"
)

// NewTestCommand creates the test command
func NewTestCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check connectivity and preview the folder plan",
		Long: `Validate configuration, verify the bucket is reachable and writable,
then print the folders setup would create. Nothing is left behind in the bucket.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			out := cmd.OutOrStdout()
			report := rt.probe().Run(cmd.Context())
			if !report.OK {
				fmt.Fprintln(out, "Connection test failed:")
				for _, issue := range report.Issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
				return report.Err
			}
			fmt.Fprintf(out, "Connected to bucket %s with write access\n\n", rt.cfg.Bucket())

			plan := examfolders.Plan(rt.taxonomy, rt.cfg.BasePath)
			fmt.Fprintf(out, "Folders to create under %q:\n", rt.cfg.BasePath)
			for _, folder := range plan {
				indent := ""
				for i := 1; i < folder.Depth; i++ {
					indent += "  "
				}
				if folder.Renamed() {
					fmt.Fprintf(out, "  %s%s → %s\n", indent, folder.OriginalName, folder.SanitizedName)
				} else {
					fmt.Fprintf(out, "  %s%s\n", indent, folder.SanitizedName)
				}
			}
			fmt.Fprintf(out, "\nTotal folders: %d\n", len(plan))
			return nil
		},
	}
}

// NewSetupCommand creates the setup command
func NewSetupCommand(flags *globalFlags) *cobra.Command {
	var dryRun bool
	var skipProbe bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the folder hierarchy",
		Long: `Write one folder marker per taxonomy folder, the base folder first.
Individual marker failures do not stop the run; they are listed at the end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, !dryRun)
			if err != nil {
				return err
			}
			defer rt.close()

			var probe *examfolders.Probe
			if rt.store != nil {
				probe = rt.probe()
			}
			// A dry run plans offline, so credentials are not required
			var checker examfolders.ConfigChecker = rt.cfg
			if dryRun {
				checker = nil
			}
			provisioner := examfolders.NewProvisioner(probe, checker, rt.markers(), rt.cfg.BasePath, rt.logger)

			opts := examfolders.ProvisionOptions{DryRun: dryRun, SkipProbe: skipProbe || dryRun}
			report, err := provisioner.Run(cmd.Context(), rt.taxonomy, opts)
			if asJSON && report != nil {
				if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
					return perr
				}
			}
			if err != nil {
				if examfolders.IsFatal(err) && !asJSON {
					fmt.Fprintln(cmd.OutOrStdout(), "Setup aborted, no folders were written")
				}
				return err
			}
			if asJSON {
				return statusError(report)
			}

			out := cmd.OutOrStdout()
			if dryRun {
				fmt.Fprintf(out, "Dry run: %d folders planned under %q\n", len(report.Plan), rt.cfg.BasePath)
				return nil
			}
			fmt.Fprintf(out, "Created %d folders\n", len(report.Result.Created))
			if n := len(report.Result.Failed); n > 0 {
				fmt.Fprintf(out, "Failed %d folders:\n", n)
				for _, f := range report.Result.Failed {
					fmt.Fprintf(out, "  - %s: %s\n", f.Path, f.Reason())
				}
			}
			if n := len(report.Result.Skipped); n > 0 {
				fmt.Fprintf(out, "Skipped %d folders\n", n)
			}
			return statusError(report)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, write nothing")
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "skip the connectivity probe")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the provision report as JSON")
	return cmd
}

func statusError(report *examfolders.ProvisionReport) error {
	if report.State == examfolders.StatePartiallyFailed {
		return errors.New("setup finished with failures")
	}
	return nil
}

// NewCleanupCommand creates the cleanup command
func NewCleanupCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete every folder marker under the base path",
		Long:  `Delete folder markers under the base path. Uploaded media files are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.markers().Cleanup(cmd.Context(), rt.cfg.BasePath)
			if err != nil {
				return fmt.Errorf("cleanup failed: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Deleted %d folder markers\n", len(result.Deleted))
			for _, f := range result.Failed {
				fmt.Fprintf(out, "  - failed %s: %s\n", f.Path, f.Reason())
			}
			if len(result.Failed) > 0 {
				return fmt.Errorf("failed to delete %d folder markers", len(result.Failed))
			}
			return nil
		},
	}
}

// locationFlags binds --category, --subcategory and --item
type locationFlags struct {
	loc examfolders.Location
}

func (l *locationFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&l.loc.Category, "category", "", "category folder (required)")
	cmd.Flags().StringVar(&l.loc.Subcategory, "subcategory", "", "subcategory folder")
	cmd.Flags().StringVar(&l.loc.Item, "item", "", "item folder")
	_ = cmd.MarkFlagRequired("category")
}

// NewListCommand creates the list command
func NewListCommand(flags *globalFlags) *cobra.Command {
	var lf locationFlags
	var recursive bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media files in a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			lister := rt.lister()
			list := lister.List
			if recursive {
				list = lister.ListAll
			}
			files, err := list(cmd.Context(), lf.loc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), files)
		},
	}

	lf.bind(cmd)
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "include files in subfolders")
	return cmd
}

// NewStatsCommand creates the stats command
func NewStatsCommand(flags *globalFlags) *cobra.Command {
	var lf locationFlags

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise the media files under a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			stats, err := rt.lister().Stats(cmd.Context(), lf.loc)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	lf.bind(cmd)
	return cmd
}

// NewStructureCommand creates the structure command
func NewStructureCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "structure",
		Short: "Print the folder hierarchy found in the bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			structure, err := examfolders.Reconstruct(cmd.Context(), rt.store, rt.cfg.BasePath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), structure)
		},
	}
}

// NewVerifyCommand creates the verify command
func NewVerifyCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare the bucket hierarchy with the taxonomy",
		Long:  `Reconstruct the hierarchy from the bucket and report missing and unexpected folders.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			structure, err := examfolders.Reconstruct(cmd.Context(), rt.store, rt.cfg.BasePath)
			if err != nil {
				return err
			}
			diff := examfolders.Verify(rt.taxonomy, structure)
			if err := printJSON(cmd.OutOrStdout(), diff); err != nil {
				return err
			}
			if !diff.Matches() {
				return fmt.Errorf("hierarchy differs: %d missing, %d unexpected", len(diff.Missing), len(diff.Unexpected))
			}
			return nil
		},
	}
}

// NewUploadCommand creates the upload command
func NewUploadCommand(flags *globalFlags) *cobra.Command {
	var lf locationFlags
	var name string
	var contentType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file into a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			content, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			if name == "" {
				name = filepath.Base(filePath)
			}
			if contentType == "" {
				contentType = mime.TypeByExtension(filepath.Ext(name))
			}

			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			uploader := rt.uploader()
			key, err := uploader.Upload(cmd.Context(), lf.loc, name, content, contentType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Uploaded: %s\n", key)
			fmt.Fprintf(out, "URL: %s\n", uploader.PublicURL(key))
			return nil
		},
	}

	lf.bind(cmd)
	cmd.Flags().StringVar(&name, "name", "", "stored file name (default: base name of <file>)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type (default: from the file extension)")
	return cmd
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a media file by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, true)
			if err != nil {
				return err
			}
			defer rt.close()

			if !rt.uploader().Delete(cmd.Context(), args[0]) {
				return fmt.Errorf("failed to delete %s", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted: %s\n", args[0])
			return nil
		},
	}
}

// NewURLCommand creates the url command
func NewURLCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "url <key>",
		Short: "Print the public URL of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context(), flags, false)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rt.uploader().PublicURL(args[0]))
			return nil
		},
	}
}
