package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/joshuapare/osmem/dump"
	"github.com/joshuapare/osmem/heap"
	"github.com/joshuapare/osmem/trace"
	"github.com/joshuapare/osmem/vm"
)

// defaultMemoryLimit keeps a runaway trace from exhausting the process.
const defaultMemoryLimit = 1 << 30

var (
	replayProvider  string
	replayThreshold int
	replayVerify    bool
	replayOverlap   bool
	replayDump      string
	replayCodec     string
	replayParallel  int
	replayLimit     int
)

func init() {
	cmd := newReplayCmd()
	cmd.Flags().StringVar(&replayProvider, "provider", "memory", "Memory provider: memory or os")
	cmd.Flags().IntVar(&replayThreshold, "threshold", 0, "Mapping threshold in bytes (default 128 KiB)")
	cmd.Flags().BoolVar(&replayVerify, "verify", false, "Verify the block list after every operation")
	cmd.Flags().BoolVar(&replayOverlap, "overlap", false, "Fail when two live payloads overlap")
	cmd.Flags().StringVar(&replayDump, "dump", "", "Write a heap snapshot after the replay (single trace only)")
	cmd.Flags().StringVar(&replayCodec, "codec", "zstd", "Snapshot compression: none, lz4 or zstd")
	cmd.Flags().IntVar(&replayParallel, "parallel", 4, "Maximum number of traces replayed at once")
	cmd.Flags().IntVar(&replayLimit, "limit", defaultMemoryLimit, "Memory provider: cap in bytes on the arena and on live mappings (0 for none)")
	rootCmd.AddCommand(cmd)
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <trace>...",
		Short: "Replay allocation traces",
		Long: `The replay command runs each trace script against its own fresh heap
and reports the resulting heap statistics. Traces run concurrently.

Example:
  osmemctl replay workload.trace
  osmemctl replay --verify --overlap a.trace b.trace
  osmemctl replay --provider os --dump heap.osmd workload.trace`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), args)
		},
	}
	return cmd
}

// ReplayReport is the per-trace outcome.
type ReplayReport struct {
	Trace       string `json:"trace"`
	Ops         int    `json:"ops"`
	LiveNames   int    `json:"live_names"`
	PeakLive    int    `json:"peak_live"`
	ArenaBytes  int    `json:"arena_bytes"`
	Blocks      int    `json:"blocks"`
	FreeBlocks  int    `json:"free_blocks"`
	FreeBytes   int    `json:"free_bytes"`
	LargestFree int    `json:"largest_free"`
	GrowCalls   int    `json:"grow_calls"`
	Reused      int    `json:"reused"`
	Relocations int    `json:"relocations"`
	Mappings    int    `json:"mappings"`
	MappedBytes int64  `json:"mapped_bytes"`
	Error       string `json:"error,omitempty"`
}

func runReplay(ctx context.Context, args []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if replayDump != "" && len(args) != 1 {
		return fmt.Errorf("--dump needs exactly one trace, got %d", len(args))
	}
	codec, err := dump.ParseCodec(replayCodec)
	if err != nil {
		return fmt.Errorf("%w: %q", err, replayCodec)
	}
	if replayProvider != "memory" && replayProvider != "os" {
		return fmt.Errorf("unknown provider %q", replayProvider)
	}

	reports := make([]ReplayReport, len(args))
	// A failing trace does not cancel the others.
	var g errgroup.Group
	g.SetLimit(max(replayParallel, 1))
	for i, path := range args {
		g.Go(func() error {
			rep, err := replayOne(ctx, path, codec)
			reports[i] = rep
			return err
		})
	}
	replayErr := g.Wait()

	if jsonOut {
		if err := printJSON(reports); err != nil {
			return err
		}
		return replayErr
	}
	for _, rep := range reports {
		printReport(rep)
	}
	return replayErr
}

func newProvider() (vm.Provider, error) {
	if replayProvider == "os" {
		return vm.NewOS(vm.DefaultReserve)
	}
	return vm.NewMemory(vm.MemoryOptions{ArenaLimit: replayLimit, MapLimit: replayLimit}), nil
}

func replayOne(ctx context.Context, path string, codec dump.Codec) (ReplayReport, error) {
	rep := ReplayReport{Trace: filepath.Base(path)}
	fail := func(err error) (ReplayReport, error) {
		rep.Error = err.Error()
		return rep, fmt.Errorf("%s: %w", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return fail(err)
	}
	ops, err := trace.Parse(f)
	f.Close()
	if err != nil {
		return fail(err)
	}

	p, err := newProvider()
	if err != nil {
		return fail(err)
	}
	defer p.Close()

	h := heap.New(p, &heap.Config{
		MapThreshold: replayThreshold,
		Logger:       allocLogger(),
		// Report provider failures per trace instead of exiting.
		OnFatal: func(error) {},
	})
	printVerbose("Replaying %s (%d ops)\n", path, len(ops))

	res, err := trace.Replay(ctx, h, ops, &trace.Options{
		Verify:       replayVerify,
		CheckOverlap: replayOverlap,
		Logger:       allocLogger(),
	})
	fillReport(&rep, res, h.Stats())
	if err != nil {
		return fail(err)
	}

	if replayDump != "" {
		if err := writeDump(replayDump, h, codec); err != nil {
			return fail(err)
		}
		printVerbose("Wrote snapshot %s\n", replayDump)
	}
	return rep, nil
}

func fillReport(rep *ReplayReport, res *trace.Result, st heap.Stats) {
	if res != nil {
		rep.Ops = res.Ops
		rep.LiveNames = len(res.Live)
		rep.PeakLive = res.PeakLive
	}
	rep.ArenaBytes = st.ArenaBytes
	rep.Blocks = st.Blocks
	rep.FreeBlocks = st.FreeBlocks
	rep.FreeBytes = st.FreeBytes
	rep.LargestFree = st.LargestFree
	rep.GrowCalls = st.GrowCalls
	rep.Reused = st.Reused
	rep.Relocations = st.Relocations
	rep.Mappings = st.Mappings
	rep.MappedBytes = st.MappedBytes
}

func writeDump(path string, h *heap.Heap, codec dump.Codec) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dump.Write(f, h, codec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printReport(rep ReplayReport) {
	printInfo("%s\n", rep.Trace)
	printInfo("  ops:          %d\n", rep.Ops)
	printInfo("  live names:   %d (peak %d)\n", rep.LiveNames, rep.PeakLive)
	printInfo("  arena:        %d bytes in %d blocks\n", rep.ArenaBytes, rep.Blocks)
	printInfo("  free:         %d bytes in %d blocks (largest %d)\n", rep.FreeBytes, rep.FreeBlocks, rep.LargestFree)
	printInfo("  grow calls:   %d\n", rep.GrowCalls)
	printInfo("  reused:       %d\n", rep.Reused)
	printInfo("  relocations:  %d\n", rep.Relocations)
	printInfo("  mappings:     %d (%d bytes)\n", rep.Mappings, rep.MappedBytes)
	if rep.Error != "" {
		printInfo("  error:        %s\n", rep.Error)
	}
}
