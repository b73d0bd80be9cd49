package main

import (
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mys721tx/nullfs/config"
	"github.com/mys721tx/nullfs/internal/util"
	"github.com/mys721tx/nullfs/server"
)

// mountOpts collects repeated -o flags
type mountOpts []string

func (o *mountOpts) String() string {
	return strings.Join(*o, ",")
}

func (o *mountOpts) Set(v string) error {
	*o = append(*o, v)
	return nil
}

func main() {
	// Parse command line arguments
	var (
		configPath string
		verbose    int
		umount     bool
		opts       mountOpts
	)
	flag.StringVar(&configPath, "config", "", "Path to a YAML or JSON config override file")
	flag.StringVar(&configPath, "c", "", "--config (shorthand)")
	flag.BoolVar(&umount, "umount", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	flag.BoolVar(&umount, "u", false, "--umount (shorthand)")
	flag.IntVar(&verbose, "verbose", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace). Default is 3 (info).")
	flag.IntVar(&verbose, "v", config.InfoVerbose, "--verbose (shorthand)")
	flag.Var(&opts, "o", "Mount option passed through to the kernel, repeatable (e.g. -o allow_other)")
	flag.Parse()

	// Initialize logger
	logLvl := config.VerboseToLevel(verbose)
	util.InitializeLogger(logLvl)
	logger := util.GetLogger("main")

	mnt := flag.Arg(0)
	logger.Info().Int("verbose", verbose).Str("mnt", mnt).Msg("nullfs initializing")
	// Check if mount point is provided
	if mnt == "" {
		logger.Fatal().Msg("Mount point not specified; it must be passed as the argument")
	}
	// Try unmount if requested
	if umount { // send cli command
		cmd := exec.Command("fusermount", "-u", mnt)
		// we ignore error here if not already mounted
		cmd.Run() // nolint:errcheck
	}

	// Init config: file overrides first, CLI flags on top
	var fileOverride *config.ConfigOverride
	if configPath != "" {
		var err error
		fileOverride, err = config.LoadConfigOverrideFile(configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("config", configPath).Msg("Failed to load config file")
		}
		logger.Debug().Str("config", configPath).Msg("Config file loaded successfully")
	}
	cfg := config.NewConfig(fileOverride)
	cliOverride := &config.ConfigOverride{Options: opts}
	flag.Visit(func(f *flag.Flag) {
		// only beat the config file when -v was given explicitly
		if f.Name == "v" || f.Name == "verbose" {
			cliOverride.LogLvl = &verbose
		}
	})
	cfg.Merge(cliOverride)

	fs := server.New(cfg)

	// Serve; a failed mount (bad path, no fuse device, permission
	// denied) is the only fatal error once we get this far
	if err := fs.Serve(mnt); err != nil {
		logger.Fatal().Err(err).Str("mountpoint", mnt).Msg("Failed to mount filesystem")
	}

	// Setup signal handling for graceful shutdown
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Also watch for an external unmount (fusermount -u)
	done := make(chan struct{})
	go func() {
		fs.Wait()
		close(done)
	}()

	select {
	case sig := <-signalChan:
		logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
		if err := fs.Unmount(); err != nil {
			logger.Error().Err(err).Msg("Failed to unmount filesystem")
		} else {
			logger.Info().Msg("Filesystem unmounted successfully")
		}
	case <-done:
		logger.Info().Msg("Filesystem unmounted externally, exiting")
	}
}
