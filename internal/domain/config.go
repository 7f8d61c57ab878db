package domain

// Config mirrors ~/.askdb/config.yaml.
type Config struct {
	ConfigFormatVersion string            `yaml:"config_format_version"`
	LLM                 LLMSettings       `yaml:"llm"`
	Retrieval           RetrievalSettings `yaml:"retrieval"`
	Database            DatabaseSettings  `yaml:"database"`
	Server              ServerSettings    `yaml:"server"`
	Logging             LoggingSettings   `yaml:"logging"`
}

// LLMSettings points at the chat-completions endpoint used for every
// pipeline call and for answer generation.
type LLMSettings struct {
	Endpoint        string `yaml:"endpoint"`
	ModelID         string `yaml:"model_id"`
	AuthEnvVar      string `yaml:"auth_env_var"`
	MaxTokens       int    `yaml:"max_tokens"`
	ClassifyTimeout int    `yaml:"classify_timeout"` // seconds, layers 1-2
	GenerateTimeout int    `yaml:"generate_timeout"` // seconds, SQL generation
	AnswerTimeout   int    `yaml:"answer_timeout"`   // seconds, final answer read
}

// RetrievalSettings tunes the Layer 3 trigger. LookupTopK exists because
// lookup questions want wider result windows than aggregations.
type RetrievalSettings struct {
	DefaultTopK int `yaml:"default_top_k"`
	LookupTopK  int `yaml:"lookup_top_k"`
}

// DatabaseSettings locates the embedded SQLite file.
type DatabaseSettings struct {
	Path string `yaml:"path"`
}

// ServerSettings controls the HTTP transport.
type ServerSettings struct {
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	MaxConcurrentLLM int    `yaml:"max_concurrent_llm"`
}

// LoggingSettings selects the zap level and encoder.
type LoggingSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}
