// Command-line tool that labels the connected components of a label volume blockwise.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/janelia-flyem/cclabels/dvid"
	"github.com/janelia-flyem/cclabels/job"
	"github.com/janelia-flyem/cclabels/storage"

	// engines selectable in [store] sections
	_ "github.com/janelia-flyem/cclabels/storage/badger"
	_ "github.com/janelia-flyem/cclabels/storage/blob"
	_ "github.com/janelia-flyem/cclabels/storage/sqlite"
)

var (
	// Display usage if true.
	showHelp = flag.Bool("help", false, "")

	// Run in verbose mode if true.
	runVerbose = flag.Bool("verbose", false, "")

	// TOML configuration of logging, stores, caches and compute defaults.
	configFile = flag.String("config", "", "")

	// Write the final label mapping here, overriding the job's mapping setting.
	mappingFile = flag.String("mapping", "", "")

	// Profile CPU usage using standard gotest system.
	cpuprofile = flag.String("cpuprofile", "", "")

	// Number of logical CPUs to use.
	useCPU = flag.Int("numcpu", 0, "")
)

const helpMessage = `
cclabels labels the connected components of an n-d label volume block by block

Usage: cclabels [options] <command>

      -config     =string   TOML configuration file.
      -mapping    =string   Write the final label mapping ('from to' lines) to this file.
      -cpuprofile =string   Write CPU profile to this file.
      -numcpu     =number   Number of logical CPUs to use.
      -verbose    (flag)    Run in verbose mode.
  -h, -help       (flag)    Show help message

Commands:

	about
	help
	run <job JSON file> [workers=<n>] [order=<partition|reverse|shuffle>] [mapping=<file>]

A job file names the input and output arrays and the volume shape, e.g.,

	{
		"input": {"path": "segmentation.raw", "dtype": "uint32"},
		"output": {"store": "mydb", "name": "components"},
		"shape": [512, 1024, 1024],
		"block-shape": [128, 128, 128]
	}

where "mydb" is a [store.mydb] section of the TOML configuration.
`

var usage = func() {
	fmt.Print(helpMessage)
}

func currentDir() string {
	currentDir, err := os.Getwd()
	if err != nil {
		log.Fatalln("Could not get current directory:", err)
	}
	return currentDir
}

func main() {
	flag.BoolVar(showHelp, "h", false, "Show help message")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() >= 1 && strings.ToLower(flag.Args()[0]) == "help" {
		*showHelp = true
	}
	if *runVerbose {
		dvid.Verbose = true
		dvid.SetLogMode(dvid.DebugMode)
	}
	if *showHelp || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	if *useCPU != 0 {
		dvid.NumCPU = *useCPU
	}
	runtime.GOMAXPROCS(dvid.NumCPU)

	// Capture ctrl+c and other interrupts.  Running blocks see a cancelled context.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := DoCommand(ctx, dvid.Command(flag.Args())); err != nil {
		color.Red("Error: %v", err)
		stop()
		dvid.Shutdown()
		os.Exit(1)
	}
	dvid.Shutdown()
}

// DoCommand serves as a switchboard for commands.
func DoCommand(ctx context.Context, cmd dvid.Command) error {
	if len(cmd) == 0 {
		return fmt.Errorf("Blank command!")
	}
	switch cmd.Name() {
	case "about":
		fmt.Println("Storage engines:")
		for _, desc := range storage.EngineDescriptions() {
			fmt.Printf("  %s\n", desc)
		}
		return nil
	case "run":
		return DoRun(ctx, cmd)
	default:
		return fmt.Errorf("unknown command %q; try 'cclabels help'", cmd.Name())
	}
}

// DoRun executes the job file given as the command's argument.
func DoRun(ctx context.Context, cmd dvid.Command) error {
	var filename string
	extra := cmd.CommandArgs(&filename)
	if filename == "" {
		return fmt.Errorf("run command must be followed by a job file")
	}
	if len(extra) != 0 {
		return fmt.Errorf("unexpected arguments after job file: %s", strings.Join(extra, " "))
	}

	config := job.DefaultConfig()
	if *configFile != "" {
		var err error
		if config, err = job.LoadConfig(*configFile); err != nil {
			return err
		}
		if err := config.Logging().SetLogger(); err != nil {
			return err
		}
		if *runVerbose {
			dvid.SetLogMode(dvid.DebugMode)
		}
	}
	req, err := job.ReadRequest(filename)
	if err != nil {
		return err
	}
	if *mappingFile != "" {
		req.Mapping = *mappingFile
	}
	if mapping, found := cmd.Parameter(dvid.KeyMapping); found {
		if req.Mapping, err = dvid.ConvertToAbsolute(mapping, currentDir()); err != nil {
			return err
		}
	}
	if workers, found := cmd.Parameter(dvid.KeyWorkers); found {
		if req.Workers, err = strconv.Atoi(workers); err != nil || req.Workers < 1 {
			return fmt.Errorf("bad workers setting %q", workers)
		}
	}
	if order, found := cmd.Parameter(dvid.KeyOrder); found {
		req.Order = order
		if _, err := req.StitchOrder(); err != nil {
			return err
		}
	}

	color.Cyan("Labeling %s into %s ...", req.Input, req.Output)
	start := time.Now()
	stats, err := job.Run(ctx, config, req)
	if err != nil {
		return err
	}
	color.Green("Labeled %d blocks in %s", stats.Blocks, time.Since(start))
	fmt.Printf("  phase 1: %s local labels in %s (%d retries)\n",
		humanize.Comma(int64(stats.LocalLabels)), stats.LabelTime, stats.Retries)
	fmt.Printf("  phase 2: %s boundary labels, %s edges, %s components in %s\n",
		humanize.Comma(int64(stats.Merge.Nodes)), humanize.Comma(int64(stats.Merge.Edges)),
		humanize.Comma(int64(stats.Merge.Components)), stats.MergeTime)
	fmt.Printf("  phase 3: %s labels rewritten in %s\n",
		humanize.Comma(int64(stats.Relabeled)), stats.RelabelTime)
	if req.Mapping != "" {
		fmt.Printf("  mapping written to %s\n", req.Mapping)
	}
	return nil
}
