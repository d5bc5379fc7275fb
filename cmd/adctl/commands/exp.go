package commands

import (
	"fmt"
	"strconv"

	"adserver/domain"
	redisRepo "adserver/internal/repository/redis"

	"github.com/spf13/cobra"
)

func newExpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exp",
		Short: "Per-ad experiment assignments",
	}
	cmd.AddCommand(newExpGetCmd())
	cmd.AddCommand(newExpSetCmd())
	return cmd
}

func parseVersionAdID(args []string) (string, int64, error) {
	adID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || adID <= 0 {
		return "", 0, fmt.Errorf("invalid ad id %q", args[1])
	}
	if args[0] == "" {
		return "", 0, fmt.Errorf("version is required")
	}
	return args[0], adID, nil
}

func newExpGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <version> <adId>",
		Short: "Show the assignment of an ad",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, adID, err := parseVersionAdID(args)
			if err != nil {
				return err
			}
			rdb, err := connect()
			if err != nil {
				return err
			}

			exp, err := redisRepo.NewExperimentRepository(rdb).GetExperimentConfig(cmd.Context(), version, adID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), exp)
		},
	}
}

func newExpSetCmd() *cobra.Command {
	var exp domain.AdExperimentConfig

	cmd := &cobra.Command{
		Use:   "set <version> <adId>",
		Short: "Write the assignment of an ad; it expires after five days",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, adID, err := parseVersionAdID(args)
			if err != nil {
				return err
			}
			if exp.ControlGroupID == exp.ExperimentGroupID {
				return fmt.Errorf("control and experiment groups must differ")
			}
			rdb, err := connect()
			if err != nil {
				return err
			}

			exp.Version = version
			exp.AdID = adID
			if err := redisRepo.NewExperimentRepository(rdb).SaveExperimentConfig(cmd.Context(), version, adID, exp); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), exp)
		},
	}
	f := cmd.Flags()
	f.StringVar(&exp.ControlGroupID, "cg", "", "Control user group (one hex digit)")
	f.StringVar(&exp.ExperimentGroupID, "eg", "", "Experiment user group (one hex digit)")
	f.StringVar(&exp.ExperimentActionID, "eg-action", "", "Experiment action id")
	f.StringVar(&exp.MainActionID, "main-action", "", "Main action id")
	f.Float64Var(&exp.ExperimentActionValue, "exp-value", 0, "Target CTR of the experiment group")
	f.Float64Var(&exp.MainActionValue, "main-value", 0, "Target CTR of everyone else")
	_ = cmd.MarkFlagRequired("cg")
	_ = cmd.MarkFlagRequired("eg")
	return cmd
}

func newScoresCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Per-ad action scores",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "get <version> <adId>",
		Short: "Show the action scores of an ad",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, adID, err := parseVersionAdID(args)
			if err != nil {
				return err
			}
			rdb, err := connect()
			if err != nil {
				return err
			}

			scores, err := redisRepo.NewExperimentRepository(rdb).GetActionScores(cmd.Context(), version, adID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), scores)
		},
	})
	return cmd
}
