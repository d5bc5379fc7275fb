package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"adserver/domain"

	"github.com/redis/go-redis/v9"
)

// ExperimentRepository persists per-ad experiment state under the
// expversion:* namespace and edits the base experiment config.
type ExperimentRepository struct {
	store  *Store
	client redis.UniversalClient
	now    func() time.Time
}

func NewExperimentRepository(client redis.UniversalClient) *ExperimentRepository {
	return &ExperimentRepository{
		store:  NewStore(client),
		client: client,
		now:    time.Now,
	}
}

// GetExperimentConfig loads the assignment for (version, adID). A missing
// key is domain.ErrNotFound; a stored value is returned as decoded.
func (r *ExperimentRepository) GetExperimentConfig(ctx context.Context, version string, adID int64) (domain.AdExperimentConfig, error) {
	raw, err := r.store.GetString(ctx, experimentConfigKey(version, adID))
	if err != nil {
		return domain.AdExperimentConfig{}, err
	}

	var cfg domain.AdExperimentConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return domain.AdExperimentConfig{}, fmt.Errorf("failed to unmarshal experiment config: %w", err)
	}
	return cfg, nil
}

func (r *ExperimentRepository) SaveExperimentConfig(ctx context.Context, version string, adID int64, cfg domain.AdExperimentConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal experiment config: %w", err)
	}
	return r.store.SetWithExpiry(ctx, experimentConfigKey(version, adID), string(raw), ExperimentConfigTTL)
}

// GetActionScores returns the action -> score hash for (version, adID).
func (r *ExperimentRepository) GetActionScores(ctx context.Context, version string, adID int64) (map[string]int64, error) {
	raw, err := r.store.GetHash(ctx, actionScoreKey(version, adID))
	if err != nil {
		return nil, err
	}

	scores := make(map[string]int64, len(raw))
	for action, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid score %q for action %q: %w", v, action, err)
		}
		scores[action] = n
	}
	return scores, nil
}

func (r *ExperimentRepository) SetActionScores(ctx context.Context, version string, adID int64, scores map[string]int64) error {
	key := actionScoreKey(version, adID)
	for action, score := range scores {
		if err := r.store.SetHashField(ctx, key, action, strconv.FormatInt(score, 10)); err != nil {
			return err
		}
	}
	return nil
}

// TrackAdIDs adds ad ids to the persisted list of a version.
func (r *ExperimentRepository) TrackAdIDs(ctx context.Context, version string, adIDs []int64) error {
	if len(adIDs) == 0 {
		return nil
	}
	members := make([]any, 0, len(adIDs))
	for _, id := range adIDs {
		members = append(members, id)
	}
	if err := r.client.SAdd(ctx, versionAdIDsKey(version), members...).Err(); err != nil {
		return fmt.Errorf("failed to track ad ids for version %s: %w", version, err)
	}
	return nil
}

// TrackedAdIDs returns the persisted ad ids of a version in ascending order.
func (r *ExperimentRepository) TrackedAdIDs(ctx context.Context, version string) ([]int64, error) {
	members, err := r.client.SMembers(ctx, versionAdIDsKey(version)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list ad ids for version %s: %w", version, err)
	}

	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// UpdateBaseVersion sets the experiment version and stamps start_time with now.
func (r *ExperimentRepository) UpdateBaseVersion(ctx context.Context, version string) (time.Time, error) {
	now := r.now()
	if err := r.store.SetHashField(ctx, baseConfigKey, "version", version); err != nil {
		return time.Time{}, err
	}
	if err := r.store.SetHashField(ctx, baseConfigKey, "start_time", now.Format(domain.StartTimeLayout)); err != nil {
		return time.Time{}, err
	}
	return now, nil
}
