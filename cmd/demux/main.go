// Command demux reassembles xRIT files from a stream of CCSDS virtual
// channel data units received over TCP or read from a packet file.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rcarmo/go-xrit/internal/catalog"
	"github.com/rcarmo/go-xrit/internal/config"
	"github.com/rcarmo/go-xrit/internal/demux"
	"github.com/rcarmo/go-xrit/internal/keystore"
	"github.com/rcarmo/go-xrit/internal/logging"
	"github.com/rcarmo/go-xrit/internal/monitor"
	"github.com/rcarmo/go-xrit/internal/source"
)

var (
	appName    = "xRIT Demuxer"
	appVersion = "dev" // injected at build time via -ldflags
)

func main() {
	args, action := parseFlags()
	if action != "" {
		return
	}
	if err := run(args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

// parsedArgs holds the parsed command line arguments
type parsedArgs struct {
	downlink   string
	sourceKind string
	inputFile  string
	outputRoot string
	logLevel   string
}

// parseFlags parses command line flags and returns the parsed args.
// Returns action string if help/version was shown (caller should return early).
func parseFlags() (parsedArgs, string) {
	return parseFlagsWithArgs(os.Args[1:])
}

// parseFlagsWithArgs parses the given arguments and returns the parsed args.
func parseFlagsWithArgs(args []string) (parsedArgs, string) {
	fs := flag.NewFlagSet("demux", flag.ContinueOnError)
	downlinkFlag := fs.String("downlink", "", "downlink mode (LRIT, HRIT)")
	sourceFlag := fs.String("source", "", "input source (osp, goesrecv, file)")
	fileFlag := fs.String("file", "", "path to a VCDU packet file (implies -source file)")
	outputFlag := fs.String("output", "", "output root for demuxed files")
	logLevelFlag := fs.String("log-level", "", "log level (debug, info, warn, error)")
	helpFlag := fs.Bool("help", false, "show help")
	versionFlag := fs.Bool("version", false, "show version")

	_ = fs.Parse(args)

	if *helpFlag {
		showHelp(fs)
		return parsedArgs{}, "help"
	}

	if *versionFlag {
		fmt.Printf("%s %s\n", appName, appVersion)
		return parsedArgs{}, "version"
	}

	return parsedArgs{
		downlink:   *downlinkFlag,
		sourceKind: *sourceFlag,
		inputFile:  *fileFlag,
		outputRoot: *outputFlag,
		logLevel:   *logLevelFlag,
	}, ""
}

func showHelp(fs *flag.FlagSet) {
	fmt.Printf("%s\n\nUsage:\n", appName)
	fs.PrintDefaults()
	fmt.Println("\nConfiguration is read from XRIT_* environment variables; flags override.")
}

func run(args parsedArgs) error {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{
		Downlink:   args.downlink,
		Source:     args.sourceKind,
		InputFile:  args.inputFile,
		OutputRoot: args.outputRoot,
		LogLevel:   args.logLevel,
	})
	if err != nil {
		return err
	}

	logging.SetLevelFromString(cfg.Logging.Level)
	logging.Info("%s starting (downlink %s, source %s)", appName, cfg.Demuxer.Downlink, cfg.Source.Kind)

	keys, err := keystore.Load(cfg.Demuxer.KeyFile)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		logging.Info("no decryption keys loaded, files pass through as received")
	} else {
		logging.Info("loaded %d decryption keys", len(keys))
	}

	var cat *catalog.Catalog
	if cfg.Demuxer.CatalogPath != "" {
		cat, err = catalog.Open(cfg.Demuxer.CatalogPath)
		if err != nil {
			return err
		}
		defer cat.Close()
	}

	if err := bootstrapDirs(cfg.Demuxer.OutputRoot); err != nil {
		return err
	}

	d := demux.New(demux.Options{
		Downlink:     cfg.Demuxer.Downlink,
		SpacecraftID: uint8(cfg.Demuxer.SpacecraftID),
		OutputRoot:   cfg.Demuxer.OutputRoot,
		DumpPath:     cfg.Demuxer.DumpPath,
		Keys:         keys,
		Catalog:      cat,
	})

	if cfg.Monitor.Addr != "" {
		m := monitor.New(d, cat)
		d.SetOnFile(m.Publish)
		go func() {
			logging.Info("monitor listening on %s", cfg.Monitor.Addr)
			if err := http.ListenAndServe(cfg.Monitor.Addr, m.Handler()); err != nil {
				logging.Error("monitor: %v", err)
			}
		}()
	}

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}

	d.Start()
	start := time.Now()

	srcErr := make(chan error, 1)
	go func() { srcErr <- src.Run(d.Push) }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		logging.Info("received %s, shutting down", s)
		src.Close()
		<-srcErr
		d.Stop()

	case err := <-srcErr:
		if err != nil {
			d.Stop()
			return err
		}
		// Clean end of input: let the queue drain before stopping.
		for !d.Complete() {
			time.Sleep(100 * time.Millisecond)
		}
		d.Stop()

		stats := d.Stats()
		logging.Info("finished processing (%d frames, %d files, %d skipped, %s)",
			stats.Frames, stats.FilesEmitted, stats.FilesSkipped,
			time.Since(start).Round(time.Millisecond))
	}

	return d.Err()
}

// bootstrapDirs creates the output root and the standard LRIT directory
// skeleton at startup. Emitted files are written under <root>/<date>/<mode>,
// not into this skeleton.
func bootstrapDirs(root string) error {
	paths := []string{
		root,
		filepath.Join(root, "LRIT", "IMG", "FD"),
		filepath.Join(root, "LRIT", "IMG", "ENH"),
		filepath.Join(root, "LRIT", "IMG", "LSH"),
		filepath.Join(root, "LRIT", "ADD", "ANT"),
		filepath.Join(root, "LRIT", "ADD", "GOCI"),
		filepath.Join(root, "LRIT", "ADD", "NWP"),
		filepath.Join(root, "LRIT", "ADD", "TYP"),
	}

	for _, p := range paths {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("create output directories: %w", err)
		}
	}
	return nil
}
