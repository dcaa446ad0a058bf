package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	logsAgent  string
	logsFollow bool
	logsLines  int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View the agent call log",
	Long: `View the log file configured in logging.file.

Examples:
  reqcheck logs                                # Last 50 lines
  reqcheck logs --agent "Quality Evaluator"    # Filter by agent
  reqcheck logs --follow                       # Follow log output`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVarP(&logsAgent, "agent", "a", "", "filter logs by agent name")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if cfg.Logging.File == "" {
		fmt.Fprintln(w, "No log file configured. Set logging.file in reqcheck.yaml.")
		return nil
	}
	if _, err := os.Stat(cfg.Logging.File); os.IsNotExist(err) && !logsFollow {
		fmt.Fprintln(w, "No logs found.")
		return nil
	}

	if logsFollow {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return followLogs(ctx, w, cfg.Logging.File, logsAgent)
	}

	content, err := readLastLines(cfg.Logging.File, logsLines, logsAgent)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", cfg.Logging.File, err)
	}
	fmt.Fprintln(w, content)
	return nil
}

func followLogs(ctx context.Context, w io.Writer, path, agent string) error {
	fmt.Fprintln(w, "Following logs... (Ctrl+C to stop)")

	var file *os.File
	for file == nil {
		f, err := os.Open(path)
		switch {
		case err == nil:
			file = f
		case os.IsNotExist(err):
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		default:
			return fmt.Errorf("failed to open log file: %w", err)
		}
	}
	defer file.Close()

	// Seek to end
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}

	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}

		if agent != "" && !strings.Contains(line, agent) {
			continue
		}
		fmt.Fprint(w, line)
	}
}

// readLastLines returns the last n lines of path that contain filter.
func readLastLines(path string, n int, filter string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if filter != "" && !strings.Contains(line, filter) {
			continue
		}
		lines = append(lines, line)
		if len(lines) > n {
			lines = lines[1:]
		}
	}

	return strings.Join(lines, "\n"), scanner.Err()
}
