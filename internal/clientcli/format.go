package clientcli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"eddisonso.com/go-weed/internal/journal"
	weed "eddisonso.com/go-weed/pkg/go-weed-sdk"
)

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

func renderAssignment(w io.Writer, a *weed.Assignment) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FID\tURL\tPUBLIC URL")
	for _, fid := range a.FileIDs() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", fid, a.Location.URL, a.Location.PublicURL)
	}
	tw.Flush()
	for _, replica := range a.Replicas {
		fmt.Fprintf(w, "replica: %s\n", replica.URL)
	}
}

func renderLocations(w io.Writer, locations []weed.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tPUBLIC URL\tDATA CENTER")
	for _, loc := range locations {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", loc.URL, loc.PublicURL, loc.DataCenter)
	}
	tw.Flush()
}

func renderHistory(w io.Writer, records []*journal.Record) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FID\tNAME\tSIZE\tMIME\tVOLUME\tUPLOADED")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.FileID,
			r.Name,
			formatBytes(r.Size),
			r.Mime,
			r.VolumeURL,
			r.UploadedAt.Local().Format(time.DateTime),
		)
	}
	tw.Flush()
}
