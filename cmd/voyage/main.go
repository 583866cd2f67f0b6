// Command voyage runs vehicle autopilots without the host simulation loaded
// and offers maintenance commands for the stored fleet.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/bonvoyage/voyage/internal/config"
)

// Version and BuildDate can be set at build time via ldflags
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const appName = "voyage"

func usage(w io.Writer) {
	fmt.Fprintf(w, `usage: %s <command> [flags]

commands:
  run             run the fleet (default)
  plan            plan a route and print it as GeoJSON
  status          list stored vehicles
  export          write stored vehicles to a JSON file
  migratebackups  copy SQLite dumps into Postgres
  version         print the version
`, appName)
}

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = strings.ToLower(args[0])
		args = args[1:]
	}

	var err error
	switch command {
	case "run":
		err = runCommand(args)
	case "plan":
		err = planCommand(args, os.Stdout)
	case "status":
		err = statusCommand(args, os.Stdout)
	case "export":
		err = exportCommand(args, os.Stdout)
	case "migratebackups":
		err = migrateCommand(args, os.Stdout)
	case "version":
		fmt.Println(Version, BuildDate)
	case "help", "-h", "--help":
		usage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", command)
		usage(os.Stderr)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.ConfigName)
	stdin := fs.Bool("stdin", false, "read host commands as JSON lines from stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(*configDir)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	simCfg := config.GetSimulatorConfig()
	if simCfg.TickInterval > 0 {
		c := newClock(a.service, startTime(a.service.Controllers().All()), simCfg.TickInterval, simCfg.TimeWarp, a.logger)
		a.logger.Info("Clock started", "universalTime", c.ut, "interval", simCfg.TickInterval, "timeWarp", c.warp)
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.run(ctx)
		}()
	}

	if *stdin {
		// not joined on shutdown, a blocked read on stdin never returns
		go func() {
			if err := serveCommands(ctx, os.Stdin, os.Stdout, a.dispatcher); err != nil && ctx.Err() == nil {
				a.logger.Error("Command input closed", "error", err)
			}
		}()
	}

	a.logger.Info("Voyage running", "version", Version, "build", BuildDate, "commands", len(a.dispatcher.Commands()))
	<-ctx.Done()
	a.logger.Info("Shutting down")

	wg.Wait()
	return nil
}

// newApp loads configuration and wires the runner. Config errors fall back
// to defaults.
func newApp(configDir string) (*app, error) {
	a := &app{sessionStart: time.Now()}
	cfgErr := loadConfig(configDir)

	if err := a.setupLogging(); err != nil {
		return nil, err
	}
	if cfgErr != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", cfgErr)
	} else {
		a.logger.Info("Loaded config")
	}

	if err := a.setupService(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}
