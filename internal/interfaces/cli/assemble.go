package cli

import (
	"github.com/spf13/cobra"

	"github.com/xtalforge/ccmodel/internal/application/assemble"
	"github.com/xtalforge/ccmodel/internal/domain/assembly"
	"github.com/xtalforge/ccmodel/internal/infrastructure/database/postgres"
	"github.com/xtalforge/ccmodel/internal/infrastructure/messaging/kafka"
	"github.com/xtalforge/ccmodel/internal/infrastructure/monitoring/logging"
	"github.com/xtalforge/ccmodel/internal/infrastructure/storage/minio"
	"github.com/xtalforge/ccmodel/internal/modelstore"
)

func newAssembleCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "assemble",
		Short: "Assemble built models into a public release",
		Long:  "assemble merges the build's model index with the prior-audit index, reconciles public identifiers for continuity, and writes the dated release artifact.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rt, err := root.initRuntime(ctx)
			if err != nil {
				return err
			}

			// Continuity lives in the audit database when one is configured;
			// otherwise the file-based index in the cache directory serves
			// both roles.
			var provider assembly.PriorAuditProvider
			var recorder assemble.ReleaseRecorder
			if rt.cfg.Database.Enabled {
				conn, err := postgres.NewConnection(ctx, rt.cfg.Database, rt.logger)
				if err != nil {
					return err
				}
				defer conn.Close()
				repo := postgres.NewAuditRepository(conn, rt.logger)
				provider, recorder = repo, repo
			} else {
				fileAudit := modelstore.NewFileAuditProvider(rt.store.Layout())
				provider, recorder = fileAudit, fileAudit
			}

			var archiver assemble.Archiver
			if rt.cfg.MinIO.Enabled {
				a, err := minio.NewArchiver(ctx, rt.cfg.MinIO, rt.logger)
				if err != nil {
					return err
				}
				archiver = a
			}

			var publisher assemble.Publisher
			if rt.cfg.Kafka.Enabled {
				producer := kafka.NewProducer(rt.cfg.Kafka, rt.logger)
				defer producer.Close()
				publisher = producer
			}

			svc := assemble.NewService(rt.cfg.Assembly, rt.store, provider, recorder, archiver, publisher, rt.metrics, rt.logger)
			outcome, err := svc.Run(ctx)
			if err != nil {
				rt.logger.Error("assembly pass aborted", logging.Err(err))
				return err
			}
			return printJSON(outcome)
		},
	}
}

func newMigrateCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply audit database schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			rt, err := root.initRuntime(ctx)
			if err != nil {
				return err
			}
			if !rt.cfg.Database.Enabled {
				rt.logger.Info("audit database disabled, nothing to migrate")
				return nil
			}
			return postgres.Migrate(rt.cfg.Database, rt.logger)
		},
	}
}
