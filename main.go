/*
Kybernaut is a tabular Q-learning agent navigating a square grid of physical
materials. The agent starts at the center, must reach target A and then target
B, and pays a physically derived movement cost per step; rewards are shaped by
progress toward the active target, novelty and arrival bonuses. Three entropy
monitors (visit distribution, temperature distribution, action-value coherence)
report how the exploration is going. Optionally the run is shown live in the
browser, compared against a precomputed minimum-energy route, and appended to a
sqlite ledger of runs.
*/

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"kybernaut/grid_world"
	"kybernaut/history"
	"kybernaut/oracle"
	"kybernaut/reinforcement"
	"kybernaut/report"
	"kybernaut/server"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	dim        *int
	seed       *int64
	yes        *bool
	serve      *bool
	dbg        *bool
	configPath *string
	host       *string
	port       *string
)

// Flags are parsed in main, so that test binaries can register their own.
func init() {
	dim = flag.Int("dim", 0, "grid dimension (>= 5); prompted for when unset")
	seed = flag.Int64("seed", 0, "random seed, overriding the config; 0 keeps the config's")
	yes = flag.Bool("yes", false, "confirm dimensions above 1000 without prompting")
	serve = flag.Bool("serve", false, "serve a live view of the run")
	dbg = flag.Bool("debug", false, "print grid maps with each trace")
	configPath = flag.String("config", "./config.yaml", "training config")
	host = flag.String("host", "", "The host ip")
	port = flag.String("port", "8080", "The host port")
}

func runApp() (err error) {
	var cfg *reinforcement.TrainingConfig
	if cfg, err = reinforcement.LoadConfig(*configPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings, err := cfg.Settings()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if *seed != 0 {
		settings.Seed = *seed
	}

	stdin := bufio.NewReader(os.Stdin)
	n, err := readDimension(stdin, os.Stdout, *dim)
	if err != nil {
		return
	}
	if err = confirmDimension(stdin, os.Stdout, n, settings.Strategy, *yes); err != nil {
		return
	}

	sim, err := reinforcement.NewSimulation(n, settings, settings.NewRand())
	if err != nil {
		return
	}

	var baseline *oracle.Baseline
	if oracle.Enabled(n, settings.OracleMaxDim) {
		if baseline, err = oracle.Plan(sim.World, settings.OracleMaxDim); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
	}

	appCtx, appCancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer appCancel()

	var srv *server.Server
	if *serve {
		addr := *host + ":" + *port
		if srv, err = server.NewServer(appCtx, addr, sim.Snapshot()); err != nil {
			return
		}
	}

	group, groupCtx := errgroup.WithContext(appCtx)
	if srv != nil {
		group.Go(func() error {
			return srv.Serve(groupCtx)
		})
	}
	group.Go(func() error {
		if err := train(groupCtx, cfg, sim, baseline, srv); err != nil {
			return err
		}
		if srv != nil {
			log.Println("run finished, serving until interrupted")
		}
		return nil
	})

	return group.Wait()
}

// train runs the simulation to completion and writes its summary, log and ledger row.
func train(
	ctx context.Context,
	cfg *reinforcement.TrainingConfig,
	sim *reinforcement.Simulation,
	baseline *oracle.Baseline,
	srv *server.Server,
) error {
	trainingCtx, cancel, err := cfg.WithTrainingDeadline(ctx)
	if err != nil {
		return fmt.Errorf("training deadline: %w", err)
	}
	defer cancel()

	sim.OnTargetReached = func(t grid_world.Target, step int) {
		report.TargetReached(os.Stdout, sim, t, step)
	}
	progress := func(_ context.Context, _ int) {
		report.Trace(os.Stdout, sim)
		if *dbg {
			grid_world.ShowGrid(os.Stdout, sim.World, sim.Agent.Position)
		}
		if srv != nil {
			srv.Publish(sim.Snapshot())
		}
	}

	report.Banner(os.Stdout, sim)
	started := time.Now()
	sim.Run(trainingCtx, progress)
	if srv != nil {
		srv.Publish(sim.Snapshot())
	}

	summary := report.Summarize(uuid.New(), started, sim, baseline)
	report.WriteSummary(os.Stdout, summary)
	if *dbg {
		grid_world.ShowVisits(os.Stdout, sim.World)
	}
	if err = report.WriteLog(cfg.LogFile(), summary); err != nil {
		return err
	}
	fmt.Printf("\nLog saved to %s\n", cfg.LogFile())

	if cfg.Output.History != "" {
		return recordHistory(cfg.Output.History, summary)
	}
	return nil
}

// recordHistory appends @summary to the ledger at @path and prints the latest runs.
func recordHistory(path string, summary *report.Summary) error {
	ledger, err := history.Open(path)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err = ledger.Record(history.EntryOf(summary)); err != nil {
		return err
	}
	recent, err := ledger.Recent(5)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	history.WriteRecent(os.Stdout, recent)
	return nil
}

func main() {
	flag.Parse()
	if err := runApp(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
