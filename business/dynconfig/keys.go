package dynconfig

// Keys of the remote config namespace.
const (
	KeyMasterServer   = "cfg:master"
	KeyMainActionRate = "cfg:mainaction:rate"
	KeyExpBase        = "cfg:exp:base"
	KeyExpAB          = "cfg:exp:ab"

	KeySignalTemptClick = "cfg:signal:tempclick"
	KeySignalFillRate   = "cfg:signal:adid:fillrate"
	KeySignalShowRate   = "cfg:signal:adid:showrate"
	KeySignalClickRate  = "cfg:signal:adid:clickrate"
)

// RegisterDefaults registers every key the prediction pipeline reads.
func RegisterDefaults(s *Store) {
	s.Register(KeyMasterServer, KindString)
	s.Register(KeyMainActionRate, KindInt)
	s.Register(KeyExpBase, KindHash)
	s.Register(KeyExpAB, KindHash)
	s.Register(KeySignalTemptClick, KindHash)
	s.Register(KeySignalFillRate, KindHash)
	s.Register(KeySignalShowRate, KindHash)
	s.Register(KeySignalClickRate, KindHash)
}
