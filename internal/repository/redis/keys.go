package redis

import "fmt"

const (
	// ExperimentConfigTTL is how long a persisted per-ad assignment lives.
	ExperimentConfigTTL = 5 * 24 * 3600 // seconds

	baseConfigKey = "cfg:exp:base"
)

func experimentConfigKey(version string, adID int64) string {
	return fmt.Sprintf("expversion:cfg:%s:%d", version, adID)
}

func actionScoreKey(version string, adID int64) string {
	return fmt.Sprintf("expversion:score:%s:%d", version, adID)
}

func versionAdIDsKey(version string) string {
	return fmt.Sprintf("expversion:adidlist:%s", version)
}

func windowEventKey(segment string, adID int64) string {
	return fmt.Sprintf("event:window:%s:%d", segment, adID)
}

func dailyEventKey(date, userID string, adID int64) string {
	return fmt.Sprintf("event:daily:%s:%s:%d", date, userID, adID)
}

func temptClickKey(date, userID string) string {
	return fmt.Sprintf("event:tempclick:%s:%s", date, userID)
}
