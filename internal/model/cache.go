package model

type CacheEntry struct {
	Key          string `json:"key"`
	Value        []byte `json:"value"`
	Query        string `json:"query"`
	Tier         string `json:"tier"`
	TTLSeconds   int64  `json:"ttl_seconds"`
	HitCount     int64  `json:"hit_count"`
	Ctime        int64  `json:"ctime"`
	LastAccessed int64  `json:"last_accessed"`
}

type TopQuery struct {
	Query    string `json:"query"`
	HitCount int64  `json:"hit_count"`
}
