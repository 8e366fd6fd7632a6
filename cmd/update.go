package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/spf13/cobra"

	"github.com/shaharia-lab/angelia/internal/build"
)

const releaseSlug = "shaharia-lab/angelia"

// release is a published angelia build that can replace the running binary.
type release struct {
	Version *semver.Version
	URL     string
	apply   func(ctx context.Context, exe string) error
}

// releaseFinder returns the newest published release, or nil when there is none.
type releaseFinder func(ctx context.Context) (*release, error)

func latestGitHubRelease(ctx context.Context) (*release, error) {
	updater, err := selfupdate.NewUpdater(selfupdate.Config{})
	if err != nil {
		return nil, fmt.Errorf("creating updater: %w", err)
	}
	rel, found, err := updater.DetectLatest(ctx, selfupdate.ParseSlug(releaseSlug))
	if err != nil {
		return nil, fmt.Errorf("checking for updates: %w", err)
	}
	if !found {
		return nil, nil
	}
	v, err := semver.NewVersion(rel.Version())
	if err != nil {
		return nil, fmt.Errorf("release %q: %w", rel.Version(), err)
	}
	return &release{
		Version: v,
		URL:     rel.URL,
		apply: func(ctx context.Context, exe string) error {
			return updater.UpdateTo(ctx, rel, exe)
		},
	}, nil
}

type updateOptions struct {
	yes   bool
	check bool
}

// NewUpdateCmd returns the "update" subcommand that self-updates the binary.
func NewUpdateCmd() *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update angelia to the latest release",
		Long:  "Check GitHub releases for a newer version of angelia and update the binary in place.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), cmd.InOrStdin(), opts, latestGitHubRelease)
		},
	}

	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "Skip confirmation prompt")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Only report whether a newer release exists")
	return cmd
}

func runUpdate(ctx context.Context, out io.Writer, in io.Reader, opts updateOptions, find releaseFinder) error {
	current, err := build.SemVer()
	if err != nil {
		return fmt.Errorf("cannot update this build: %w; install a tagged release first", err)
	}

	fmt.Fprintf(out, "Current version: %s\n", current)
	fmt.Fprint(out, "Checking for updates... ")

	latest, err := find(ctx)
	if err != nil {
		fmt.Fprintln(out)
		return err
	}
	if latest == nil || !latest.Version.GreaterThan(current) {
		fmt.Fprintln(out, styles.success.Render("already up to date."))
		return nil
	}

	fmt.Fprintf(out, "found %s\n", styles.warn.Render(latest.Version.String()))
	if latest.URL != "" {
		fmt.Fprintln(out, styles.muted.Render(latest.URL))
	}
	if opts.check {
		return nil
	}

	if !opts.yes {
		fmt.Fprintf(out, "Update to %s? [y/N] ", latest.Version)
		answer, _ := bufio.NewReader(in).ReadString('\n')
		if a := strings.TrimSpace(answer); a != "y" && a != "Y" {
			fmt.Fprintln(out, "Update canceled.")
			return nil
		}
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("finding current executable: %w", err)
	}

	fmt.Fprintf(out, "Updating to %s...\n", latest.Version)
	if err := latest.apply(ctx, exe); err != nil {
		return fmt.Errorf("updating: %w", err)
	}

	fmt.Fprintf(out, "Updated to %s. Restart angelia to use the new version.\n", latest.Version)
	return nil
}
