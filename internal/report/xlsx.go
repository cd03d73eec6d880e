package report

import (
	"fmt"
	"io"
	"time"

	"github.com/doridoridoriand/regionwatch/internal/state"
	"github.com/xuri/excelize/v2"
)

var statusColors = map[state.Status]string{
	state.StatusOperational: "10B981",
	state.StatusCaution:     "F59E0B",
	state.StatusUnreachable: "E11D48",
	state.StatusChecking:    "64748B",
	state.StatusUnknown:     "000000",
}

func cellName(x, y int) string {
	pos, err := excelize.CoordinatesToCellName(x+1, y+1)
	if err != nil {
		panic(err)
	}
	return pos
}

type sheetWriter struct {
	f      *excelize.File
	name   string
	styles map[state.Status]int
	err    error
}

func (s *sheetWriter) header(cols ...string) {
	for i, c := range cols {
		s.set(i, 0, c)
	}
}

func (s *sheetWriter) set(x, y int, value interface{}) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellValue(s.name, cellName(x, y), value)
}

func (s *sheetWriter) setStatus(x, y int, status state.Status) {
	s.set(x, y, status.String())
	if s.err != nil {
		return
	}
	if sid, ok := s.styles[status]; ok {
		pos := cellName(x, y)
		s.err = s.f.SetCellStyle(s.name, pos, pos, sid)
	}
}

// WriteXLSX renders the report as a workbook with one sheet per table.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	created := r.GeneratedAt.Format(time.RFC3339)
	if err := f.SetDocProps(&excelize.DocProperties{
		Created:        created,
		Modified:       created,
		Creator:        "regionwatch",
		LastModifiedBy: "regionwatch",
		Title:          "Region Status Report",
	}); err != nil {
		return err
	}

	styles := make(map[state.Status]int, len(statusColors))
	for status, color := range statusColors {
		sid, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: status == state.StatusUnreachable, Color: color}})
		if err != nil {
			return err
		}
		styles[status] = sid
	}

	if err := f.SetSheetName("Sheet1", "status"); err != nil {
		return err
	}
	for _, name := range []string{"regions", "incidents", "projection"} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	status := &sheetWriter{f: f, name: "status", styles: styles}
	status.header("region", "address", "status", "latency")
	for i, row := range r.StatusRows {
		status.set(0, i+1, row.Region)
		status.set(1, i+1, row.Address)
		status.setStatus(2, i+1, row.Status)
		status.set(3, i+1, row.Latency)
	}

	regions := &sheetWriter{f: f, name: "regions", styles: styles}
	regions.header("region", "status", "avg latency (ms)", "data points")
	for i, row := range r.RegionRows {
		regions.set(0, i+1, row.Region)
		regions.setStatus(1, i+1, row.Status)
		if row.AvgLatencyMs != nil {
			regions.set(2, i+1, *row.AvgLatencyMs)
		} else {
			regions.set(2, i+1, row.AvgLatency)
		}
		regions.set(3, i+1, row.DataPoints)
	}

	zone, _ := r.GeneratedAt.Zone()
	incidents := &sheetWriter{f: f, name: "incidents", styles: styles}
	incidents.header(fmt.Sprintf("start (%s)", zone), fmt.Sprintf("end (%s)", zone), "address", "region", "type")
	for i, inc := range r.Incidents {
		incidents.set(0, i+1, inc.Start.In(r.GeneratedAt.Location()).Format(time.DateTime))
		if inc.Ongoing {
			incidents.set(1, i+1, ongoing)
		} else {
			incidents.set(1, i+1, inc.End.In(r.GeneratedAt.Location()).Format(time.DateTime))
		}
		incidents.set(2, i+1, inc.Address)
		incidents.set(3, i+1, inc.Group)
		incidents.setStatus(4, i+1, inc.Status)
	}

	projection := &sheetWriter{f: f, name: "projection", styles: styles}
	projection.header("metric", "value")
	projection.set(0, 1, "total incidents")
	projection.set(1, 1, r.Projection.TotalIncidents)
	projection.set(0, 2, "window (minutes)")
	projection.set(1, 2, r.Projection.WindowMinutes)
	projection.set(0, 3, "rate per minute")
	projection.set(1, 3, r.Projection.RatePerMinute)
	projection.set(0, 4, "projected 24h (linear)")
	projection.set(1, 4, r.Projection.Projected24h)

	for _, s := range []*sheetWriter{status, regions, incidents, projection} {
		if s.err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, s.err)
		}
		if err := f.SetColWidth(s.name, "A", "E", 22); err != nil {
			return err
		}
	}

	return f.Write(w)
}
