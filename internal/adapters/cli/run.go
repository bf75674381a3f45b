package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/lastmile-go/internal/adapters/persistence"
	"github.com/andrescamacho/lastmile-go/internal/application/common"
	"github.com/andrescamacho/lastmile-go/internal/application/simulation"
	"github.com/andrescamacho/lastmile-go/internal/domain/courier"
	"github.com/andrescamacho/lastmile-go/internal/domain/negotiation"
	"github.com/andrescamacho/lastmile-go/internal/domain/order"
	"github.com/andrescamacho/lastmile-go/internal/domain/sim"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/config"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/database"
	"github.com/andrescamacho/lastmile-go/internal/infrastructure/logging"
	"github.com/andrescamacho/lastmile-go/pkg/utils"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		ordersPath   string
		couriersPath string
		outputPath   string
		runName      string
		tickSize     float64
		timeStop     float64
		pace         bool
		noPersist    bool
		progressEach int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scripted delivery scenario to completion",
		Long: `Run loads order and courier records from JSON files, replays their
appearance times through the simulator and negotiates schedules until
the stop time. Final schedules are stored in the database and can be
written to a JSON file with --output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if tickSize > 0 {
				cfg.Simulation.TickSize = tickSize
			}
			if cmd.Flags().Changed("time-stop") {
				cfg.Simulation.TimeStop = timeStop
			}
			if cmd.Flags().Changed("pace") {
				cfg.Simulation.Pace = pace
			}
			if verbose {
				cfg.Logging.Level = "debug"
			}

			script, err := loadScript(ordersPath, couriersPath)
			if err != nil {
				return err
			}
			if runName == "" {
				runName = utils.GenerateRunName("simulation")
			}

			return runScenario(cmd.Context(), cfg, script, runOptions{
				name:         runName,
				outputPath:   outputPath,
				persist:      !noPersist,
				progressEach: progressEach,
			})
		},
	}

	cmd.Flags().StringVar(&ordersPath, "orders", "", "Path to orders JSON file (required)")
	cmd.Flags().StringVar(&couriersPath, "couriers", "", "Path to couriers JSON file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write final schedule records to this JSON file")
	cmd.Flags().StringVar(&runName, "name", "", "Run name stored with the results (default: generated)")
	cmd.Flags().Float64Var(&tickSize, "tick-size", 0, "Simulation time step per tick")
	cmd.Flags().Float64Var(&timeStop, "time-stop", 0, "Model time at which the run stops")
	cmd.Flags().BoolVar(&pace, "pace", false, "Throttle ticks to wall-clock time")
	cmd.Flags().BoolVar(&noPersist, "no-persist", false, "Skip storing results in the database")
	cmd.Flags().IntVar(&progressEach, "progress", 0, "Print progress every N ticks (0 disables)")
	_ = cmd.MarkFlagRequired("orders")
	_ = cmd.MarkFlagRequired("couriers")

	return cmd
}

type runOptions struct {
	name         string
	outputPath   string
	persist      bool
	progressEach int
}

// runScenario wires the persistence and logging stack around one simulation
// run and executes it through the mediator.
func runScenario(ctx context.Context, cfg *config.Config, script *sim.Script, opts runOptions) error {
	console, err := logging.NewConsoleLogger(&cfg.Logging)
	if err != nil {
		return err
	}
	var logger common.RunLogger = console

	var (
		runRepo    persistence.SimulationRunRepository
		recordRepo persistence.ScheduleRecordRepository
		runID      string
	)
	if opts.persist {
		db, err := database.NewConnection(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close(db)
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		runRepo = persistence.NewGormSimulationRunRepository(db)
		recordRepo = persistence.NewGormScheduleRecordRepository(db)
		runID, err = runRepo.Create(ctx, opts.name, cfg.Simulation.TickSize, cfg.Simulation.TimeStop)
		if err != nil {
			return fmt.Errorf("failed to register run: %w", err)
		}
		if cfg.Logging.PersistRuns {
			logRepo := persistence.NewGormRunLogRepository(db, nil)
			logger = logging.NewPersistentLogger(console, logRepo, runID)
		}
	}

	mediator := common.NewMediator()
	if err := common.RegisterHandler[*simulation.RunSimulationCommand](mediator, simulation.NewRunSimulationHandler()); err != nil {
		return err
	}

	command := &simulation.RunSimulationCommand{
		Script:   script,
		TickSize: cfg.Simulation.TickSize,
		TimeStop: cfg.Simulation.TimeStop,
		Weights: negotiation.ScoringWeights{
			Finish: cfg.Simulation.Weights.Finish,
			Start:  cfg.Simulation.Weights.Start,
			Price:  cfg.Simulation.Weights.Price,
		},
		Pace:           cfg.Simulation.Pace,
		QuiesceTimeout: cfg.Simulation.QuiesceTimeout,
	}
	if opts.progressEach > 0 {
		command.Callback = func(stats simulation.TickStats) {
			if stats.TickCounter%opts.progressEach == 0 {
				fmt.Printf("tick %d: t=%.2f\n", stats.TickCounter, stats.Time)
			}
		}
	}

	response, err := mediator.Send(common.WithLogger(ctx, logger), command)
	if err != nil {
		return err
	}
	result, ok := response.(*simulation.RunSimulationResponse)
	if !ok {
		return fmt.Errorf("unexpected response type %T", response)
	}

	fmt.Printf("Run finished: t=%.2f, %d ticks, %d messages, %d schedule records\n",
		result.Time, result.Ticks, result.Messages, len(result.Records))

	if opts.persist {
		if err := recordRepo.SaveAll(ctx, runID, result.Records); err != nil {
			return fmt.Errorf("failed to store schedule records: %w", err)
		}
		if err := runRepo.Finish(ctx, runID, result.Time, result.Ticks, result.Messages); err != nil {
			return fmt.Errorf("failed to finalize run: %w", err)
		}
		fmt.Printf("Stored as run %s\n", runID)
	}

	if opts.outputPath != "" {
		if err := writeRecords(opts.outputPath, result.Records); err != nil {
			return err
		}
		fmt.Printf("Schedule written to %s\n", opts.outputPath)
	}
	return nil
}

// loadScript reads order and courier record files and builds the appearance
// script from them.
func loadScript(ordersPath, couriersPath string) (*sim.Script, error) {
	var orders []order.Record
	if err := readJSONFile(ordersPath, &orders); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	var couriers []courier.Record
	if err := readJSONFile(couriersPath, &couriers); err != nil {
		return nil, fmt.Errorf("failed to load couriers: %w", err)
	}

	script := sim.NewScript()
	script.LoadCouriers(couriers)
	script.LoadOrders(orders)
	return script, nil
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeRecords(path string, records []courier.ScheduleRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
