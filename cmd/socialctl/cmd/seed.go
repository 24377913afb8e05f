package cmd

import (
	"context"
	"errors"
	"log"

	"socialhub/internal/bootstrap"
	"socialhub/internal/seed"

	"github.com/spf13/cobra"
)

var (
	seedOpts     = seed.DefaultOptions
	seedScenario string

	seedCmd = &cobra.Command{
		Use:     "seed",
		Short:   "populate the stores with a random mesh or a YAML scenario",
		PreRunE: loadConfig,
		RunE:    runSeed,
	}
)

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.Identities, "identities", seedOpts.Identities, "identities to register")
	f.IntVar(&seedOpts.PostsPerIdentity, "posts", seedOpts.PostsPerIdentity, "posts per identity")
	f.IntVar(&seedOpts.FollowsPerIdentity, "follows", seedOpts.FollowsPerIdentity, "follows per identity")
	f.IntVar(&seedOpts.StoriesPerIdentity, "stories", seedOpts.StoriesPerIdentity, "stories per identity")
	f.Float64Var(&seedOpts.LikeChance, "like-chance", seedOpts.LikeChance, "probability an identity likes a post")
	f.Float64Var(&seedOpts.CommentChance, "comment-chance", seedOpts.CommentChance, "probability an identity comments on a post")
	f.Int64Var(&seedOpts.Seed, "seed", seedOpts.Seed, "random seed; 0 picks one")
	f.StringVar(&seedScenario, "scenario", "", "YAML scenario file; replaces the random mesh")
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if cfg.IsProduction() {
		return errors.New("refusing to seed a production environment")
	}

	return withRuntime(cmd.Context(), func(ctx context.Context, rt *bootstrap.Runtime) error {
		seeder := seed.NewSeeder(seed.Services{
			Identity:   rt.Services.Identity,
			Graph:      rt.Services.Graph,
			Content:    rt.Services.Content,
			Engagement: rt.Services.Engagement,
			Saved:      rt.Services.Saved,
		}, seedOpts.Seed)

		var (
			report seed.Report
			err    error
		)
		if seedScenario != "" {
			sc, lerr := seed.LoadScenarioFile(seedScenario)
			if lerr != nil {
				return lerr
			}
			report, err = seeder.ApplyScenario(ctx, sc)
		} else {
			report, err = seeder.SeedMesh(ctx, seedOpts)
		}
		if err != nil {
			return err
		}
		log.Printf("seeded: %s", report)
		return nil
	})
}
