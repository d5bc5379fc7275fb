package commands

import (
	"adserver/domain"
	redisRepo "adserver/internal/repository/redis"

	"github.com/spf13/cobra"
)

func newBaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "base",
		Short: "Base experiment config",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set-version <version>",
		Short: "Switch the experiment version and restart its clock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := connect()
			if err != nil {
				return err
			}

			start, err := redisRepo.NewExperimentRepository(rdb).UpdateBaseVersion(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"version":    args[0],
				"start_time": start.Format(domain.StartTimeLayout),
			})
		},
	})
	return cmd
}

func newAdIDsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "adids <version>",
		Short: "List the ad ids persisted for a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := connect()
			if err != nil {
				return err
			}

			ids, err := redisRepo.NewExperimentRepository(rdb).TrackedAdIDs(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), ids)
		},
	}
}
