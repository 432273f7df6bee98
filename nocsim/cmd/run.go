package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sarchlab/faultnoc/analysis"
	"github.com/sarchlab/faultnoc/config"
	"github.com/sarchlab/faultnoc/datarecording"
	"github.com/sarchlab/faultnoc/monitoring"
	"github.com/sarchlab/faultnoc/report"
	"github.com/sarchlab/faultnoc/sim"
	"github.com/sarchlab/faultnoc/simulation"
	"github.com/sarchlab/faultnoc/tracing"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation and print its summary.",
	Long: "`run` simulates the configured mesh and prints the average " +
		"latency, throughput and power of the run. The per-cycle series can " +
		"be exported as CSV or recorded into a database.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger, err := newLogger(cmd)
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return runSimulation(ctx, cmd, cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addConfigFlags(runCmd)
	addRunFlags(runCmd)
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("record", "",
		"Record the run into an SQLite database name or a clickhouse:// DSN")
	cmd.Flags().Bool("record-packets", false,
		"Also record one row per packet (requires --record)")
	cmd.Flags().Bool("record-buffers", false,
		"Also record the occupancy of every router queue (requires --record)")
	cmd.Flags().Uint64("buffer-period", 0,
		"Cycles summarized by each queue occupancy record, 0 for the whole run")
	cmd.Flags().String("csv", "", "Write the per-cycle series to a CSV file")
	cmd.Flags().Bool("profile", false,
		"Collect a CPU profile and print the hottest functions")
	cmd.Flags().String("profile-out", "",
		"Write the CPU profile to a file readable by go tool pprof")
	cmd.Flags().Bool("progress", false, "Show a progress bar")
}

func runSimulation(
	ctx context.Context,
	cmd *cobra.Command,
	cfg config.Config,
	logger zerolog.Logger,
) error {
	builder := simulation.MakeBuilder().
		WithConfig(cfg).
		WithLogger(logger)

	if logger.GetLevel() <= zerolog.DebugLevel {
		builder = builder.WithHook(tracing.NewLogHook(logger))
	}

	recordTarget, _ := cmd.Flags().GetString("record")

	var (
		recorder datarecording.DataRecorder
		runs     *datarecording.RunRecorder
	)

	if recordTarget != "" {
		var err error

		recorder, err = datarecording.Open(recordTarget)
		if err != nil {
			return err
		}
		defer recorder.Close()

		runs = datarecording.NewRunRecorder(recorder)
		runs.Start()
		recordConfig(runs, cfg)

		builder = builder.WithDataRecorder(recorder)
	}

	s, err := builder.Build()
	if err != nil {
		return err
	}

	engine := s.Engine()

	counter := tracing.NewPacketCountTracer(engine, tracing.AllPackets)
	tracing.CollectTrace(s, counter)

	traffic := tracing.NewTrafficCounter()
	s.AcceptHook(traffic)

	recordPackets, _ := cmd.Flags().GetBool("record-packets")
	if recordPackets && recorder != nil {
		tracing.CollectTrace(s,
			tracing.NewDBTracer(engine, recorder, "packet_trace"))
	}

	recordBuffers, _ := cmd.Flags().GetBool("record-buffers")
	if recordBuffers && recorder != nil {
		period, _ := cmd.Flags().GetUint64("buffer-period")
		analysis.AnalyzeBuffers(engine, routerQueues(s), recorder,
			"buffer_level", sim.VTimeInCycle(period))
	}

	stopProgress := startProgress(ctx, cmd, s, uint64(cfg.NumCycles))

	profiler, err := startProfiler(cmd)
	if err != nil {
		stopProgress()
		return err
	}

	if profiler != nil {
		defer func() {
			if profiler.Running() {
				_, _ = profiler.Stop()
			}
		}()
	}

	series, err := s.Run(ctx)

	stopProgress()

	if err != nil {
		return err
	}

	if runs != nil {
		runs.End()
	}

	out := cmd.OutOrStdout()

	err = report.WriteSummary(out, series, s.Context().Totals, s.Context().InFlight)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Max packet latency (cycles)  %d\n", counter.MaxLatency())

	for _, l := range traffic.Busiest(3) {
		fmt.Fprintf(out, "Busy link %s-%s  %d packets\n",
			l.Ends[0], l.Ends[1], l.Packets)
	}

	csvPath, _ := cmd.Flags().GetString("csv")
	if csvPath != "" {
		if err := writeCSV(csvPath, series); err != nil {
			return err
		}
	}

	if usage, err := monitoring.Resources(); err == nil {
		fmt.Fprintf(out, "Resources                     %s\n", usage)
	} else {
		logger.Warn().Err(err).Msg("cannot read resource usage")
	}

	if profiler != nil {
		return reportProfile(cmd, profiler)
	}

	return nil
}

func routerQueues(s *simulation.Simulation) []sim.Buffer {
	topo := s.Context().Topology

	queues := make([]sim.Buffer, 0, topo.NumRouters())
	for i := 0; i < topo.NumRouters(); i++ {
		queues = append(queues, topo.RouterAt(i).Queue)
	}

	return queues
}

func recordConfig(runs *datarecording.RunRecorder, cfg config.Config) {
	rows := []struct {
		name  string
		value string
	}{
		{"Rows", strconv.Itoa(cfg.NumRows)},
		{"Cols", strconv.Itoa(cfg.NumCols)},
		{"Layers", strconv.Itoa(cfg.NumLayers)},
		{"Link Latency", strconv.Itoa(cfg.LinkLatency)},
		{"Router Latency", strconv.Itoa(cfg.RouterLatency)},
		{"Fault Probability", strconv.FormatFloat(cfg.FaultProbability, 'g', -1, 64)},
		{"Fault Policy", cfg.FaultPolicy},
		{"Injection Rate", strconv.FormatFloat(cfg.PacketInjectionRate, 'g', -1, 64)},
		{"Cycles", strconv.Itoa(cfg.NumCycles)},
		{"Seed", strconv.FormatUint(cfg.Seed, 10)},
		{"Packet Size", strconv.Itoa(cfg.PacketSize)},
		{"Link Bandwidth", strconv.Itoa(cfg.LinkBandwidth)},
	}

	for _, r := range rows {
		runs.Set(r.name, r.value)
	}
}

func startProgress(
	ctx context.Context,
	cmd *cobra.Command,
	s *simulation.Simulation,
	numCycles uint64,
) (stop func()) {
	show, _ := cmd.Flags().GetBool("progress")
	if !show {
		return func() {}
	}

	monitor := monitoring.NewMonitor()
	bar := monitor.TrackCycles("Simulation", s.Engine(), numCycles)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		monitor.Print(ctx, cmd.ErrOrStderr(), 200*time.Millisecond)
		close(done)
	}()

	return func() {
		cancel()
		<-done
		monitor.CompleteProgressBar(bar)
	}
}

func startProfiler(cmd *cobra.Command) (*monitoring.Profiler, error) {
	enabled, _ := cmd.Flags().GetBool("profile")
	out, _ := cmd.Flags().GetString("profile-out")

	if !enabled && out == "" {
		return nil, nil
	}

	p := &monitoring.Profiler{}
	if err := p.Start(); err != nil {
		return nil, err
	}

	return p, nil
}

func reportProfile(cmd *cobra.Command, p *monitoring.Profiler) error {
	prof, err := p.Stop()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Hottest functions:")

	for _, f := range monitoring.TopFunctions(prof, 10) {
		fmt.Fprintf(out, "  %12d  %s\n", f.Value, f.Name)
	}

	path, _ := cmd.Flags().GetString("profile-out")
	if path == "" {
		return nil
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return monitoring.WriteProfile(file, prof)
}
