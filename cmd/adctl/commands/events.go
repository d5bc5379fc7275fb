package commands

import (
	"fmt"
	"strconv"

	"adserver/domain"
	redisRepo "adserver/internal/repository/redis"

	"github.com/spf13/cobra"
)

// newEventsCmd seeds signal counters, mostly for staging environments
// without a live event pipeline.
func newEventsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Write event counters read by the prediction pipeline",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "window <segment> <adId> <requests_fills_shows_clicks>",
		Short: "Set the realtime window counters of an ad",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, adID, err := parseVersionAdID(args[:2])
			if err != nil {
				return err
			}
			ev, err := parseCounters(args[2])
			if err != nil {
				return err
			}
			rdb, err := connect()
			if err != nil {
				return err
			}
			return redisRepo.NewSignalsRepository(rdb).SetWindowEvents(cmd.Context(), args[0], adID, ev)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "daily <userId> <adId> <date> <requests_fills_shows_clicks>",
		Short: "Set a user's daily counters for an ad",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, adID, err := parseVersionAdID(args[:2])
			if err != nil {
				return err
			}
			ev, err := parseCounters(args[3])
			if err != nil {
				return err
			}
			rdb, err := connect()
			if err != nil {
				return err
			}
			return redisRepo.NewSignalsRepository(rdb).SetUserDailyAdEvent(cmd.Context(), adID, args[0], args[2], ev)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tempclick <userId> <value>",
		Short: "Set today's tempted-click score of a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid tempted-click value %q", args[1])
			}
			rdb, err := connect()
			if err != nil {
				return err
			}
			return redisRepo.NewSignalsRepository(rdb).SetUserDailyTemptClick(cmd.Context(), args[0], v)
		},
	})

	return cmd
}

func parseCounters(s string) (domain.AdEvent, error) {
	ev, ok := redisRepo.ParseAdEvent(s)
	if !ok {
		return domain.AdEvent{}, fmt.Errorf("invalid counters %q, want requests_fills_shows_clicks", s)
	}
	return ev, nil
}
