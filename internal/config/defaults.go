package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/docufind.db"
	}
	if cfg.Storage.DocumentsDir == "" {
		cfg.Storage.DocumentsDir = "./documents"
	}
	if cfg.Normalize.StopwordsPath == "" {
		cfg.Normalize.StopwordsPath = "./stopwords.txt"
	}
	if cfg.Normalize.Lemmatizer == "" {
		cfg.Normalize.Lemmatizer = "snowball"
	}
	if cfg.Normalize.Language == "" {
		cfg.Normalize.Language = "french"
	}
	if cfg.Normalize.MinTermLength == 0 {
		cfg.Normalize.MinTermLength = 3
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 20
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.CloudLimit == 0 {
		cfg.Search.CloudLimit = 40
	}
	if cfg.Search.SuggestVocabulary == 0 {
		cfg.Search.SuggestVocabulary = 5000
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 200
	}
	if cfg.Index.Workers == 0 {
		cfg.Index.Workers = 4
	}
	if cfg.Index.Extensions == nil {
		cfg.Index.Extensions = []string{".txt", ".docx", ".pdf", ".html", ".htm"}
	}
}
