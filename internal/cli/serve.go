package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/strongarm/pkg/cache"
	"github.com/matzehuels/strongarm/pkg/pipeline"
	"github.com/matzehuels/strongarm/pkg/server"
	"github.com/matzehuels/strongarm/pkg/store"
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string
	redisAddr  string
	redisDB    int
	mongoURI   string
	database   string
	collection string
}

// serveCommand creates the serve command that runs the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout HTTP API",
		Long: `Serve the layout HTTP API.

Cells are kept in memory unless --mongo is given. Meshes and artifacts are
cached in Redis when --redis is given, otherwise in the local cache
directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&opts.redisAddr, "redis", "", "Redis address for the shared cache")
	cmd.Flags().IntVar(&opts.redisDB, "redis-db", 0, "Redis database number")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo", "", "MongoDB URI for the cell store")
	cmd.Flags().StringVar(&opts.database, "mongo-db", store.DefaultDatabase, "MongoDB database")
	cmd.Flags().StringVar(&opts.collection, "mongo-collection", store.DefaultCollection, "MongoDB collection")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) error {
	ch, err := c.serveCache(ctx, opts)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(c.Process, ch, nil, c.Logger)
	defer runner.Close()

	st, err := c.serveStore(ctx, opts)
	if err != nil {
		return err
	}
	defer st.Close()

	printInfo("Serving on %s", opts.addr)
	return server.New(runner, st, c.Logger).ListenAndServe(ctx, opts.addr)
}

func (c *CLI) serveCache(ctx context.Context, opts serveOpts) (cache.Cache, error) {
	if opts.redisAddr == "" || c.noCache {
		return newCache(c.noCache)
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:   opts.redisAddr,
		DB:     opts.redisDB,
		Prefix: appName + ":",
	})
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", opts.redisAddr, err)
	}
	c.Logger.Debug("using redis cache", "addr", opts.redisAddr)
	return rc, nil
}

func (c *CLI) serveStore(ctx context.Context, opts serveOpts) (store.Store, error) {
	if opts.mongoURI == "" {
		return store.NewMemoryStore(), nil
	}
	ms, err := store.NewMongoStore(ctx, store.MongoConfig{
		URI:        opts.mongoURI,
		Database:   opts.database,
		Collection: opts.collection,
	})
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	c.Logger.Debug("using mongo store", "database", opts.database)
	return ms, nil
}
