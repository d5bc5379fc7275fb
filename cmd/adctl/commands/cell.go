package commands

import (
	"fmt"
	"strings"

	"adserver/business/dynconfig"
	redisRepo "adserver/internal/repository/redis"

	"github.com/spf13/cobra"
)

func newCellCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "cell <key>",
		Short: "Fetch one config key the way the server's refresh does",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := parseKind(kind)
			if err != nil {
				return err
			}
			rdb, err := connect()
			if err != nil {
				return err
			}

			store := dynconfig.New(redisRepo.NewStore(rdb),
				dynconfig.WithFetchTimeout(cfg.DynConfig.FetchTimeout),
				dynconfig.WithFetchAttempts(cfg.DynConfig.FetchAttempts),
			)
			store.Register(args[0], k)
			if err := store.Refresh(cmd.Context()); err != nil {
				return err
			}

			cell, _ := store.Lookup(args[0])
			return printJSON(cmd.OutOrStdout(), dynconfig.Mapping(cell))
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "hash", "Value type: string, int, float or hash")
	return cmd
}

func parseKind(s string) (dynconfig.Kind, error) {
	switch strings.ToLower(s) {
	case "string":
		return dynconfig.KindString, nil
	case "int":
		return dynconfig.KindInt, nil
	case "float":
		return dynconfig.KindFloat, nil
	case "hash":
		return dynconfig.KindHash, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}
