package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/crls.db"
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "./data/cache"
	}
	if cfg.Data.ApprovedURL == "" {
		cfg.Data.ApprovedURL = "https://download.open.fda.gov/approved_CRLs.zip"
	}
	if cfg.Data.UnapprovedURL == "" {
		cfg.Data.UnapprovedURL = "https://download.open.fda.gov/unapproved_CRLs.zip"
	}
	if cfg.Search.IndexPath == "" {
		cfg.Search.IndexPath = "./data/index/bleve"
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 50
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.ContextChars == 0 {
		cfg.Search.ContextChars = 100
	}
	if cfg.AI.ChatModel == "" {
		cfg.AI.ChatModel = "gpt-4o-mini"
	}
	if cfg.AI.EmbeddingModel == "" {
		cfg.AI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.AI.MaxRetries == 0 {
		cfg.AI.MaxRetries = 3
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.RAGTopK == 0 {
		cfg.AI.RAGTopK = 5
	}
	if cfg.AI.RAGMetric == "" {
		cfg.AI.RAGMetric = "cosine"
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 1000
	}
	if cfg.Export.MaxRows == 0 {
		cfg.Export.MaxRows = 10000
	}
}
