package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/nxadm/tail"
	"github.com/spf13/cobra"
)

// latestLog returns the newest armlift-*-debug.log in dir.
func latestLog(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "armlift-*-debug.log"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no armlift log files in %s", dir)
	}
	// The timestamp in the name sorts chronologically.
	sort.Strings(matches)
	return matches[len(matches)-1], nil
}

// followLog copies path to w. With follow set it keeps waiting for new
// lines until ctx is done.
func followLog(ctx context.Context, w io.Writer, path string, follow bool) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return line.Err
			}
			if _, err := fmt.Fprintln(w, line.Text); err != nil {
				t.Stop()
				return err
			}
		}
	}
}

var logsCmd = &cobra.Command{
	Use:   "logs [file]",
	Short: "Print an armlift log file",
	Long: `Logs prints a log written with ARMLIFT_LOG_TO_FILE=1 or --log-file.
Without a file argument the newest armlift-*-debug.log in the working
directory is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		var path string
		if len(args) == 1 {
			path = args[0]
		} else {
			cwd, err := os.Getwd()
			if err != nil {
				return err
			}
			if path, err = latestLog(cwd); err != nil {
				return err
			}
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return followLog(ctx, cmd.OutOrStdout(), path, follow)
	},
}

func init() {
	logsCmd.Flags().BoolP("follow", "f", false, "Keep printing lines as they are written")
	rootCmd.AddCommand(logsCmd)
}
