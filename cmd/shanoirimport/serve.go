package main

import (
	"context"
	"time"

	"github.com/mrsinham/shanoirimport/internal/devserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func (a *app) serveCmd() *cobra.Command {
	var (
		addr     string
		dsn      string
		workRoot string
		prefix   string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local server exposing the extra data and get_dicom endpoints",
		Long: `Run a development backend with the extra data REST surface and the
get_dicom endpoint, backed by SQLite and a work folder on disk.

Point the client at it with --api-url http://<addr>/shanoir-ng.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			server, err := devserver.New(devserver.Options{
				DSN:      dsn,
				WorkRoot: workRoot,
				Prefix:   prefix,
				Logger:   a.logger,
			})
			if err != nil {
				return err
			}

			errs := make(chan error, 1)
			go func() {
				errs <- server.Start(addr)
			}()

			select {
			case err := <-errs:
				_ = server.Close()
				return err
			case <-cmd.Context().Done():
				a.logger.Info("shutdown signal received")
			}

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				a.logger.Error("server shutdown error", zap.Error(err))
				return err
			}
			return <-errs
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVar(&dsn, "db", "shanoirimport.db", "SQLite database file, \":memory:\" for a throwaway store")
	cmd.Flags().StringVar(&workRoot, "work-root", ".", "Directory holding the import work folders")
	cmd.Flags().StringVar(&prefix, "prefix", devserver.DefaultPrefix, "Path prefix of every endpoint")
	return cmd
}
