package signal

import (
	"adserver/business/dynconfig"
	"adserver/domain"
)

// Tables holds the four multiplier tables of one config snapshot.
type Tables struct {
	TemptClick []domain.RangeBucket
	FillRate   []domain.RangeBucket
	ShowRate   []domain.RangeBucket
	ClickRate  []domain.RangeBucket
}

// HashSource is the subset of the config store the tables are built from.
type HashSource interface {
	GetHash(key string) map[string]string
}

func Load(src HashSource) Tables {
	return Tables{
		TemptClick: Build(src.GetHash(dynconfig.KeySignalTemptClick)),
		FillRate:   Build(src.GetHash(dynconfig.KeySignalFillRate)),
		ShowRate:   Build(src.GetHash(dynconfig.KeySignalShowRate)),
		ClickRate:  Build(src.GetHash(dynconfig.KeySignalClickRate)),
	}
}
