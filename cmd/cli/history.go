package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/yourusername/clip-extract-go/internal/app"
	"github.com/yourusername/clip-extract-go/internal/domain"
)

const (
	serverBinaryName   = "clip-extract-server"
	serverStartTimeout = 10 * time.Second
	serverPollInterval = 200 * time.Millisecond
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded downloads from the history server",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newHistoryClient()
		if err != nil {
			return err
		}

		query := url.Values{}
		if status, _ := cmd.Flags().GetString("status"); status != "" {
			query.Set("status", status)
		}
		if gameFlag != "" {
			query.Set("game", gameFlag)
		}

		var downloads []domain.Download
		if err := client.get("/api/v1/downloads?"+query.Encode(), &downloads); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tGAME\tTITLE\tSTATUS\tATTEMPTS\tSIZE\tCREATED")
		for _, d := range downloads {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
				truncate(d.ID, 8),
				d.Game,
				truncate(d.Title, 40),
				d.Status,
				d.Attempts,
				formatBytes(d.Bytes),
				d.CreatedAt.Local().Format("2006-01-02 15:04"))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show download statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newHistoryClient()
		if err != nil {
			return err
		}

		var stats domain.DownloadStats
		if err := client.get("/api/v1/downloads/stats", &stats); err != nil {
			return err
		}

		fmt.Println("Download Statistics:")
		fmt.Printf("  Total:      %d\n", stats.Total)
		fmt.Printf("  Processing: %d\n", stats.Processing)
		fmt.Printf("  Completed:  %d\n", stats.Completed)
		fmt.Printf("  Skipped:    %d\n", stats.Skipped)
		fmt.Printf("  Failed:     %d\n", stats.Failed)
		fmt.Printf("  Downloaded: %s\n", formatBytes(stats.Bytes))
		return nil
	},
}

// historyClient talks to the history server, starting it on demand
type historyClient struct {
	baseURL string
	http    *http.Client
}

func newHistoryClient() (*historyClient, error) {
	base := serverURL
	if base == "" {
		config, err := app.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		base = fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)
	}

	c := &historyClient{baseURL: base, http: &http.Client{Timeout: 10 * time.Second}}
	if !noAutoStart {
		if err := c.ensureRunning(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}
	return c, nil
}

func (c *historyClient) get(path string, out interface{}) error {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("history server returned %d: %s", resp.StatusCode, body)
	}
	return json.Unmarshal(body, out)
}

func (c *historyClient) isRunning() bool {
	probe := &http.Client{Timeout: time.Second}
	resp, err := probe.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *historyClient) ensureRunning() error {
	if c.isRunning() {
		return nil
	}

	fmt.Fprintln(os.Stderr, "History server not running, starting...")
	if err := startServerBackground(); err != nil {
		return fmt.Errorf("failed to start history server: %w", err)
	}

	deadline := time.Now().Add(serverStartTimeout)
	for time.Now().Before(deadline) {
		if c.isRunning() {
			return nil
		}
		time.Sleep(serverPollInterval)
	}
	return fmt.Errorf("history server did not start within %v", serverStartTimeout)
}

// findServerBinary looks next to this executable first, then on PATH
func findServerBinary() (string, error) {
	if execPath, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(execPath), serverBinaryName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	if path, err := exec.LookPath(serverBinaryName); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%s binary not found", serverBinaryName)
}

// startServerBackground launches the server detached from this terminal
func startServerBackground() error {
	serverPath, err := findServerBinary()
	if err != nil {
		return err
	}

	args := []string{}
	if configPath != "" {
		args = append(args, "-config", configPath)
	}
	cmd := exec.Command(serverPath, args...)
	setSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
