package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

func Run() error {
	ctx := context.Background()

	cmd := &cobra.Command{
		Use:   "grimoire",
		Short: "book catalog api with accounts, cover images and crowd ratings",
	}

	cmd.AddCommand(HTTPCommand(ctx))
	cmd.AddCommand(MigrateCommand(ctx))

	if err := cmd.Execute(); err != nil {
		return err
	}

	return nil
}
