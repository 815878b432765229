package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdeblois/crunch/internal/cache"
	"github.com/pdeblois/crunch/internal/combo"
	"github.com/pdeblois/crunch/internal/comboio"
	"github.com/pdeblois/crunch/internal/crunch"
	"github.com/pdeblois/crunch/internal/progress"
	"github.com/pdeblois/crunch/internal/replay"
)

// runOptions holds CLI flags for the run command.
type runOptions struct {
	output            string
	workers           int
	recursive         bool
	noProgress        bool
	progressInterval  time.Duration
	introFrames       int32
	outroFrames       int32
	playerTag         string
	cacheFile         string
	indent            int
	minDamage         uint16
	minMoves          int
	maxSingleHitRatio float32
	loadFrame         int32
}

// newRunCmd creates the run subcommand.
func newRunCmd() *cobra.Command {
	opts := &runOptions{
		recursive:         true,
		progressInterval:  crunch.DefaultProgressInterval,
		introFrames:       combo.DefaultIntroFrames,
		outroFrames:       combo.DefaultOutroFrames,
		indent:            int(comboio.TwoSpaces),
		minDamage:         combo.DefaultMinDamage,
		minMoves:          combo.DefaultMinMoveCount,
		maxSingleHitRatio: combo.DefaultMaxSingleHitRatio,
	}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crunch the current directory's replays into a Dolphin playback queue",
		Long: `Scans the current working directory for .slp replays, detects combos in
each one, and writes a Dolphin-compatible playback queue as JSON.

If --output is not given, run prompts for an output filename on stdin,
matching the original tool's interactive prompt.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrunch(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output queue JSON path (prompts on stdin if omitted)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Number of crunch workers (0 = hardware_concurrency-1)")
	cmd.Flags().BoolVar(&opts.recursive, "recursive", opts.recursive, "Recurse into subdirectories")
	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().DurationVar(&opts.progressInterval, "progress-interval", opts.progressInterval, "Progress poll interval")
	cmd.Flags().Int32Var(&opts.introFrames, "intro-frames", opts.introFrames, "Frames of padding before a combo's start")
	cmd.Flags().Int32Var(&opts.outroFrames, "outro-frames", opts.outroFrames, "Frames of padding after a combo's end")
	cmd.Flags().StringVar(&opts.playerTag, "player-tag", "", "Tag code identifying which port to analyze (default YOYO#278)")
	cmd.Flags().StringVar(&opts.cacheFile, "cache-file", "", "Path to crunch-result cache file (enables caching)")
	cmd.Flags().IntVar(&opts.indent, "indent", opts.indent, "JSON indentation width: 2 or 4")
	cmd.Flags().Uint16Var(&opts.minDamage, "min-damage", opts.minDamage, "Minimum total damage for a combo to be admissible")
	cmd.Flags().IntVar(&opts.minMoves, "min-moves", opts.minMoves, "Minimum move count for a combo to be admissible")
	cmd.Flags().Float32Var(&opts.maxSingleHitRatio, "max-single-hit-ratio", opts.maxSingleHitRatio, "Maximum single-attack share of total damage")
	cmd.Flags().Int32Var(&opts.loadFrame, "load-frame", 0, "Parser-format constant offset for the first playable frame")

	return cmd
}

// promptForOutput reads a filename from the command's stdin, matching the original tool's
// interactive prompt for a JSON output path.
func promptForOutput(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.OutOrStdout(), "Enter output filename: ")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("no filename provided")
	}
	name := strings.TrimSpace(scanner.Text())
	if name == "" {
		return "", fmt.Errorf("no filename provided")
	}
	return name, nil
}

// runCrunch executes the crunch pipeline: scan the working directory,
// detect combos in each replay, and write the resulting queue JSON. Per
// spec §6, the core's structured errors are printed but do not change
// the process's exit status: the CLI wrapper swallows them.
func runCrunch(cmd *cobra.Command, opts *runOptions) error {
	indent := comboio.Indent(opts.indent)
	if indent != comboio.TwoSpaces && indent != comboio.FourSpaces {
		return fmt.Errorf("--indent must be 2 or 4, got %d", opts.indent)
	}

	outputPath := opts.output
	if outputPath == "" {
		var err error
		outputPath, err = promptForOutput(cmd)
		if err != nil {
			return err
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	resultCache, err := cache.Open(opts.cacheFile)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = resultCache.Close() }()

	comboCfg := combo.Config{
		PlayerTag:         opts.playerTag,
		IntroFrames:       opts.introFrames,
		OutroFrames:       opts.outroFrames,
		MinMoveCount:      opts.minMoves,
		MinDamage:         opts.minDamage,
		MaxSingleHitRatio: opts.maxSingleHitRatio,
		LoadFrame:         opts.loadFrame,
	}

	crunchFn := func(p replay.Parser) []combo.Combo {
		meta := p.Replay()

		if info, statErr := os.Stat(meta.OriginalFile); statErr == nil {
			if cached, hit, _ := resultCache.Lookup(meta.OriginalFile, info.Size(), info.ModTime()); hit {
				return cached
			}
		}

		analysis, analyzeErr := p.Analyze()
		if analyzeErr != nil {
			return nil
		}
		combos := combo.Detect(analysis, comboCfg)
		for i := range combos {
			combos[i] = combos[i].WithReplayData(meta)
		}

		if info, statErr := os.Stat(meta.OriginalFile); statErr == nil {
			_ = resultCache.Store(meta.OriginalFile, info.Size(), info.ModTime(), combos)
		}
		return combos
	}

	bar := progress.New(!opts.noProgress, -1)
	stats := &crunchStats{}
	bar.Describe(stats)

	params := crunch.Params[[]combo.Combo]{
		CrunchFunc:         crunchFn,
		ParserFactory:      defaultParserFactory,
		ProgressInterval:   opts.progressInterval,
		DesiredWorkerCount: opts.workers,
		ProgressFunc: func(processed, total int) {
			stats.processed, stats.total = processed, total
			bar.Describe(stats)
		},
	}

	start := time.Now()
	results, err := crunch.CrunchDirectory(context.Background(), params, cwd, opts.recursive)
	elapsed := time.Since(start)
	if err != nil {
		bar.Finish(stats)
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return nil
	}

	var allCombos []combo.Combo
	for _, r := range results {
		if combos, ok := r.Get(); ok {
			allCombos = append(allCombos, combos...)
		}
	}
	bar.Finish(stats)

	doc, err := comboio.MarshalQueue(allCombos, opts.loadFrame, indent)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build queue document: %v\n", err)
		return nil
	}

	if err := os.WriteFile(outputPath, []byte(doc), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", outputPath, err)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Crunched %d files in %.1fs, found %d combos\n",
		len(results), elapsed.Seconds(), len(allCombos))
	return nil
}

// crunchStats renders the "Crunching... NN% (n/total files)" text used as
// the spinner's Describe text; the spinner itself is drawn by
// internal/progress. No "[----->   ]" bar is rendered.
type crunchStats struct {
	processed, total int
}

func (s *crunchStats) String() string {
	if s.total == 0 {
		return "Crunching..."
	}
	pct := 100 * s.processed / s.total
	return fmt.Sprintf("Crunching... %d%% (%d/%d files)", pct, s.processed, s.total)
}
