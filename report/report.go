// Package report renders the results of a run for humans and for plotting
// tools.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/simulation"
)

// WriteSummary prints the aggregate statistics of a series, followed by the
// packet totals of the run.
func WriteSummary(
	w io.Writer,
	series *metrics.Series,
	totals simulation.Totals,
	inFlight int,
) error {
	s := series.Summary()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	rows := []struct {
		name  string
		value string
	}{
		{"Cycles", strconv.Itoa(s.Cycles)},
		{"Average latency (cycles)", fmt.Sprintf("%.3f", s.AvgLatency)},
		{"Average throughput (packets/cycle)", fmt.Sprintf("%.3f", s.AvgThroughput)},
		{"Average power (W)", fmt.Sprintf("%.3f", s.AvgPower)},
		{"Final power (W)", fmt.Sprintf("%.3f", s.FinalPower)},
		{"Peak temperature (C)", fmt.Sprintf("%.2f", s.PeakTemperature)},
		{"Peak throttled routers", strconv.Itoa(s.PeakThrottledRouters)},
		{"Packets injected", strconv.Itoa(totals.Injected)},
		{"Packets delivered", strconv.Itoa(totals.Delivered)},
		{"Packets dropped", strconv.Itoa(totals.Dropped)},
		{"  route not found", strconv.Itoa(totals.RouteNotFound)},
		{"  hop budget exhausted", strconv.Itoa(totals.HopBudgetExhausted)},
		{"  source unavailable", strconv.Itoa(totals.SourceUnavailable)},
		{"Packets in flight", strconv.Itoa(inFlight)},
		{"Delivery ratio", fmt.Sprintf("%.3f", s.DeliveryRatio)},
		{"Hops (backup)", fmt.Sprintf("%d (%d)", totals.Hops, totals.BackupHops)},
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", r.name, r.value); err != nil {
			return err
		}
	}

	return tw.Flush()
}

var csvHeader = []string{
	"cycle",
	"avg_latency",
	"throughput",
	"total_power",
	"injected",
	"dropped",
	"in_flight",
	"faulty_routers",
	"faulty_links",
	"throttled_routers",
	"max_temperature",
}

// WriteCSV writes one row per cycle.
func WriteCSV(w io.Writer, series *metrics.Series) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range series.All() {
		err := cw.Write([]string{
			strconv.FormatUint(s.Cycle, 10),
			formatFloat(s.AvgLatency),
			strconv.Itoa(s.Throughput),
			formatFloat(s.TotalPower),
			strconv.Itoa(s.Injected),
			strconv.Itoa(s.Dropped),
			strconv.Itoa(s.InFlight),
			strconv.Itoa(s.FaultyRouters),
			strconv.Itoa(s.FaultyLinks),
			strconv.Itoa(s.ThrottledRouters),
			formatFloat(s.MaxTemperature),
		})
		if err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
