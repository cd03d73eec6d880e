package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
)

const ongoing = "Ongoing"

// WriteText renders the report as aligned plain text.
func WriteText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Region Status Report\n")
	fmt.Fprintf(tw, "Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(tw, "1. Current Status\n")
	fmt.Fprintf(tw, "REGION\tADDRESS\tSTATUS\tLATENCY\n")
	for _, row := range r.StatusRows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Region, row.Address, row.Status, row.Latency)
	}

	fmt.Fprintf(tw, "\n2. Regional Performance\n")
	fmt.Fprintf(tw, "REGION\tSTATUS\tAVG LATENCY\tDATA POINTS\n")
	for _, row := range r.RegionRows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Region, row.Status, row.AvgLatency, row.DataPoints)
	}

	fmt.Fprintf(tw, "\n3. Incidents\n")
	if len(r.Incidents) == 0 {
		fmt.Fprintf(tw, "No outages or warnings detected in the monitored period.\n")
	} else {
		fmt.Fprintf(tw, "START\tEND\tADDRESS\tREGION\tTYPE\n")
		for _, inc := range r.Incidents {
			fmt.Fprintf(tw, "%s (%s)\t%s\t%s\t%s\t%s\n",
				inc.Start.Format("15:04:05"),
				humanize.RelTime(inc.Start, r.GeneratedAt, "ago", "from now"),
				incidentEnd(inc),
				inc.Address,
				inc.Group,
				inc.Status,
			)
		}
	}

	p := r.Projection
	fmt.Fprintf(tw, "\n4. Projection (linear extrapolation, not a forecast)\n")
	fmt.Fprintf(tw, "Incidents observed:\t%s\n", humanize.Comma(int64(p.TotalIncidents)))
	fmt.Fprintf(tw, "Monitoring window:\t%s min\n", humanize.FormatFloat("#,###.#", p.WindowMinutes))
	fmt.Fprintf(tw, "Rate per minute:\t%s\n", humanize.FormatFloat("#,###.###", p.RatePerMinute))
	fmt.Fprintf(tw, "Projected in 24h:\t%s\n", humanize.Comma(int64(p.Projected24h)))

	return tw.Flush()
}

// WriteCSV writes the incident table.
func WriteCSV(w io.Writer, r Report) error {
	c := csv.NewWriter(w)

	if err := c.Write([]string{"start", "end", "address", "region", "type"}); err != nil {
		return err
	}
	for _, inc := range r.Incidents {
		end := ongoing
		if !inc.Ongoing {
			end = inc.End.Format(time.RFC3339)
		}
		err := c.Write([]string{
			inc.Start.Format(time.RFC3339),
			end,
			inc.Address,
			inc.Group,
			inc.Status.String(),
		})
		if err != nil {
			return err
		}
	}

	c.Flush()
	return c.Error()
}

func incidentEnd(inc Incident) string {
	if inc.Ongoing {
		return ongoing
	}
	return inc.End.Format("15:04:05")
}
