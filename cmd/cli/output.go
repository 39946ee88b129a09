package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/yourusername/clip-extract-go/internal/app"
	"github.com/yourusername/clip-extract-go/internal/domain"
)

func printListings(w io.Writer, listings []*app.GameListing) {
	for _, listing := range listings {
		fmt.Fprintf(w, "\n== %s ==\n", listing.Game)
		if listing.Err != nil {
			fmt.Fprintf(w, "  error: %v\n", listing.Err)
			continue
		}
		if len(listing.Clips) == 0 {
			fmt.Fprintln(w, "  no clips found")
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "STATUS\tTITLE\tVIEWS\tCREATED\tURL")
		for _, c := range listing.Clips {
			status := "new"
			if c.Downloaded {
				status = "downloaded"
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				status,
				truncate(c.Clip.Title, 50),
				c.Clip.ViewCount,
				c.Clip.CreatedAt.Format("2006-01-02"),
				c.Clip.URL)
		}
		tw.Flush()
	}
}

func printReport(w io.Writer, report *app.BatchReport) {
	if report == nil {
		return
	}

	if report.Browser != "" {
		fmt.Fprintf(w, "Browser: %s\n", report.Browser)
	}
	if report.PublicIP != "" {
		fmt.Fprintf(w, "Public IP: %s\n", report.PublicIP)
	}
	if p := report.Profile; p != nil {
		fmt.Fprintf(w, "Profile: %s, %s, %dx%d @%.0fx, %s scheme\n",
			p.Locale, p.TimezoneID, p.Viewport.Width, p.Viewport.Height, p.DeviceScaleFactor, p.ColorScheme)
	}

	for _, game := range report.Games {
		fmt.Fprintf(w, "\n== %s ==\n", game.Game)
		switch {
		case game.Err != nil:
			fmt.Fprintf(w, "  catalog error: %v\n", game.Err)
			continue
		case game.NoClips:
			fmt.Fprintln(w, "  no clips found")
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "RESULT\tTITLE\tATTEMPTS\tSIZE\tDETAIL")
		for _, o := range game.Outcomes {
			detail := o.FilePath
			if o.Status == domain.OutcomeFailed {
				detail = fmt.Sprintf("%v", o.Err)
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				o.Status,
				truncate(o.Clip.Title, 50),
				o.Attempts,
				formatBytes(o.Bytes),
				detail)
		}
		tw.Flush()
	}

	succeeded, skipped, failed := report.Counts()
	fmt.Fprintf(w, "\nDone: %d downloaded, %d skipped, %d failed\n", succeeded, skipped, failed)
}

// progressPrinter rewrites one status line per clip as bytes arrive
func progressPrinter(w io.Writer) app.ProgressFactory {
	return func(clip *domain.Clip) domain.DownloadProgressCallback {
		title := truncate(clip.Title, 40)
		lastPercent := -1
		return func(downloaded, total int64) {
			if total <= 0 {
				if downloaded%(256*1024) < 1024 {
					fmt.Fprintf(w, "\r  %s: %s", title, formatBytes(downloaded))
				}
				return
			}
			percent := int(downloaded * 100 / total)
			if percent == lastPercent {
				return
			}
			lastPercent = percent
			fmt.Fprintf(w, "\r  %s: %3d%% (%s / %s)", title, percent, formatBytes(downloaded), formatBytes(total))
			if downloaded >= total {
				fmt.Fprintln(w)
			}
		}
	}
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
