package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Milvus    MilvusConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Retrieval RetrievalConfig
	Documents DocumentsConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type MilvusConfig struct {
	Endpoint       string
	CollectionName string
	VectorDim      int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// ProviderConfig describes one completion backend. Primary and secondary
// share the shape; the primary additionally serves embeddings.
type ProviderConfig struct {
	Name        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type LLMConfig struct {
	Primary        ProviderConfig
	Secondary      ProviderConfig
	EmbeddingModel string
	EmbeddingDim   int
}

type RetrievalConfig struct {
	TopK          int
	ChunkSize     int
	ChunkOverlap  int
	HistoryWindow int
}

type DocumentsConfig struct {
	Dir string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/mindspace")

	viper.SetEnvPrefix("MINDSPACE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("milvus.endpoint", "localhost:19530")
	viper.SetDefault("milvus.collectionName", "mindspace_passages")
	viper.SetDefault("milvus.vectorDim", 1536)

	viper.SetDefault("sqlite.path", "./data/mindspace.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("llm.primary.name", "groq")
	viper.SetDefault("llm.primary.baseURL", "https://api.groq.com/openai/v1")
	viper.SetDefault("llm.primary.model", "llama-3.3-70b-versatile")
	viper.SetDefault("llm.primary.temperature", 0.7)
	viper.SetDefault("llm.primary.maxTokens", 1024)
	viper.SetDefault("llm.primary.timeoutSec", 30)

	viper.SetDefault("llm.secondary.name", "gemini")
	viper.SetDefault("llm.secondary.model", "gemini-2.0-flash")
	viper.SetDefault("llm.secondary.temperature", 0.7)
	viper.SetDefault("llm.secondary.maxTokens", 1024)
	viper.SetDefault("llm.secondary.timeoutSec", 30)

	viper.SetDefault("llm.embeddingModel", "text-embedding-3-small")
	viper.SetDefault("llm.embeddingDim", 1536)

	viper.SetDefault("retrieval.topK", 4)
	viper.SetDefault("retrieval.chunkSize", 500)
	viper.SetDefault("retrieval.chunkOverlap", 50)
	viper.SetDefault("retrieval.historyWindow", 8)

	viper.SetDefault("documents.dir", "./data/reference")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
