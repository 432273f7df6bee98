package cmd

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sarchlab/faultnoc/analysis"
	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/metrics"
	"github.com/sarchlab/faultnoc/monitoring"
	"github.com/sarchlab/faultnoc/noc/mesh"
	"github.com/sarchlab/faultnoc/tracing"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Dump the mesh or a recorded run.",
	Long: "`inspect` prints the configured mesh, one of its routers " +
		"(--router row,col,layer) or one of its links (--link a:b) as JSON. " +
		"With --db it prints the records of a database written by " +
		"`run --record`.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, _ := cmd.Flags().GetString("db")
		if db != "" {
			return inspectDB(cmd, db)
		}

		return inspectTopology(cmd)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	addConfigFlags(inspectCmd)
	addInspectFlags(inspectCmd)
}

func addInspectFlags(cmd *cobra.Command) {
	cmd.Flags().String("router", "", "Router to dump, as row,col,layer")
	cmd.Flags().String("link", "",
		"Link to dump, as row,col,layer:row,col,layer")
	cmd.Flags().String("field", "",
		"Dot-separated field to start from, such as Queue")
	cmd.Flags().Int("depth", 2, "Maximum depth of the dump")
	cmd.Flags().String("db", "", "SQLite database to read")
	cmd.Flags().String("table", "cycle_metrics",
		"Table to read ("+strings.Join(slices.Sorted(maps.Keys(recordedTables)), ", ")+")")
	cmd.Flags().Int("limit", 20, "Maximum number of records to print")
	cmd.Flags().Uint64("from", 0, "First cycle to print, 0 for the start")
	cmd.Flags().Uint64("to", 0, "Last cycle to print, 0 for the end")
}

func inspectTopology(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	topo, err := mesh.MakeBuilder().
		WithDimensions(cfg.NumRows, cfg.NumCols, cfg.NumLayers).
		WithLinkLatency(cfg.LinkLatency).
		WithRouterLatency(cfg.RouterLatency).
		WithBufferSize(cfg.BufferSize).
		WithIdlePower(cfg.IdlePower).
		WithAmbientTemperature(cfg.Ambient).
		Build()
	if err != nil {
		return err
	}

	root, err := selectInspectRoot(cmd, topo)
	if err != nil {
		return err
	}

	var fields []string

	field, _ := cmd.Flags().GetString("field")
	if field != "" {
		fields = strings.Split(field, ".")
	}

	depth, _ := cmd.Flags().GetInt("depth")

	err = monitoring.Inspect(cmd.OutOrStdout(), root, fields, depth)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout())

	return nil
}

func selectInspectRoot(cmd *cobra.Command, topo *mesh.Topology) (any, error) {
	routerFlag, _ := cmd.Flags().GetString("router")
	linkFlag, _ := cmd.Flags().GetString("link")

	switch {
	case routerFlag != "":
		c, err := parseCoordinate(routerFlag)
		if err != nil {
			return nil, err
		}

		if !topo.Contains(c) {
			return nil, fmt.Errorf("router %s is outside the mesh", c)
		}

		return topo.Router(c), nil
	case linkFlag != "":
		ends := strings.Split(linkFlag, ":")
		if len(ends) != 2 {
			return nil, fmt.Errorf("link %q is not a:b", linkFlag)
		}

		a, err := parseCoordinate(ends[0])
		if err != nil {
			return nil, err
		}

		b, err := parseCoordinate(ends[1])
		if err != nil {
			return nil, err
		}

		l, ok := topo.Link(a, b)
		if !ok {
			return nil, fmt.Errorf("no link between %s and %s", a, b)
		}

		return l, nil
	default:
		return topo, nil
	}
}

// recordedTables lists the tables `run --record` may write.
var recordedTables = map[string]datarecording.Table{
	"cycle_metrics": {Row: metrics.Snapshot{}, CycleColumn: "Cycle"},
	"run_info":      {Row: datarecording.RunInfo{}},
	"packet_trace":  {Row: tracing.PacketRecord{}, CycleColumn: "InjectedAt"},
	"buffer_level":  {Row: analysis.BufferLevel{}, CycleColumn: "Start"},
}

func inspectDB(cmd *cobra.Command, filename string) error {
	tableName, _ := cmd.Flags().GetString("table")
	limit, _ := cmd.Flags().GetInt("limit")
	from, _ := cmd.Flags().GetUint64("from")
	to, _ := cmd.Flags().GetUint64("to")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	reader, err := datarecording.OpenReader(filename, recordedTables)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.Read(ctx, tableName, datarecording.Filter{
		FromCycle: from,
		ToCycle:   to,
		Limit:     limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	for _, r := range records {
		fmt.Fprintf(out, "%+v\n", r)
	}

	fmt.Fprintf(out, "%d records\n", len(records))

	return nil
}
