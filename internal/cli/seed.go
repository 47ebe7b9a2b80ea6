package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/config"
	"trivia-board-service/internal/logging"
)

// NewSeedCmd loads topics, questions and teams from a YAML file.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file>",
		Short: "Load a board from a YAML seed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logging.New(cfg.Log.Level, cfg.Log.Format)
			if cfg.Storage.Driver == config.DriverMemory {
				log.Warn("seeding the memory store is lost on exit; use start --seed instead")
			}

			store, cleanup, err := openStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer cleanup()

			service := app.NewGameService(store, app.WithRules(gameRules(cfg)), app.WithLogger(log))
			res, err := seedFromFile(ctx, service, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d topics, %d questions, %d teams\n", res.Topics, res.Questions, res.Teams)
			return nil
		},
	}
}

// seedFromFile loads path into the service's store. The service logs the
// outcome.
func seedFromFile(ctx context.Context, service *app.GameService, path string) (app.SeedResult, error) {
	data, err := readSeedFile(path)
	if err != nil {
		return app.SeedResult{}, err
	}
	return service.Seed(ctx, data)
}

func readSeedFile(path string) (app.SeedData, error) {
	var data app.SeedData
	raw, err := os.ReadFile(path)
	if err != nil {
		return data, err
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return data, nil
}
