package cmd

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

//go:embed schema.sql
var schema string

func MigrateCommand(ctx context.Context) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()

			if err != nil {
				return err
			}

			db, err := sql.Open("postgres", cfg.Db_conn)

			if err != nil {
				return fmt.Errorf("error connecting to db: %v", err)
			}

			defer db.Close()

			if _, err := db.ExecContext(ctx, schema); err != nil {
				return fmt.Errorf("error applying schema: %v", err)
			}

			fmt.Println("schema applied")
			return nil
		},
	}
}
