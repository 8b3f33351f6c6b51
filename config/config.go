package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Các store driver được hỗ trợ
const (
	StoreDriverMongo    = "mongo"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
	StoreDriverFile     = "file"
)

// Các event bus được hỗ trợ
const (
	EventBusNone = "none"
	EventBusAMQP = "amqp"
	EventBusNATS = "nats"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy các job đối soát
type Configuration struct {
	Address     string `env:"ADDRESS" envDefault:"8080"`            // Cổng server (chế độ service)
	StoreDriver string `env:"STORE_DRIVER" envDefault:"mongo"`      // mongo | postgres | sqlite | file
	// MongoDB
	MongoDB_ConnectionURI   string `env:"MONGODB_CONNECTION_URI"`                      // URL kết nối MongoDB
	MongoDB_DBName_Data     string `env:"MONGODB_DBNAME_DATA" envDefault:"data_hub"`  // Tên cơ sở dữ liệu data
	MongoDB_UseTransactions bool   `env:"MONGODB_USE_TRANSACTIONS" envDefault:"true"` // Dùng transaction khi merge (cần replica set)
	// SQL (postgres/sqlite)
	DatabaseURL string `env:"DATABASE_URL"` // DSN postgres hoặc đường dẫn file sqlite
	// File store (hồ sơ khách hàng dạng thư mục JSON)
	ProfileDataDir string `env:"PROFILE_DATA_DIR"` // Thư mục gốc chứa customer/ và backup_reconciliation_*
	// Redis advisory lock (tuỳ chọn)
	RedisURL string        `env:"REDIS_URL"`                  // Rỗng = lock trong tiến trình
	LockTTL  time.Duration `env:"LOCK_TTL" envDefault:"30s"` // Thời gian sống của lock
	// Event bus (tuỳ chọn)
	EventBus         string `env:"EVENT_BUS" envDefault:"none"`                      // none | amqp | nats
	RabbitMQURL      string `env:"RABBITMQ_URL"`                                    // URL RabbitMQ
	RabbitMQExchange string `env:"RABBITMQ_EXCHANGE" envDefault:"reconcile"`        // Topic exchange
	NatsURL          string `env:"NATS_URL"`                                        // URL NATS
	NatsStream       string `env:"NATS_STREAM" envDefault:"RECONCILE"`              // JetStream stream
	// Quy tắc đối soát
	RulesFile                 string        `env:"RECONCILE_RULES_FILE"`                            // File YAML quy tắc (alias, marker, keyword)
	PageName                  string        `env:"PAGE_NAME"`                                       // Tên page, coi như nhãn không phải nhân viên
	AttributionFallbackMargin time.Duration `env:"ATTRIBUTION_FALLBACK_MARGIN" envDefault:"10m"`    // Biên dự phòng khi tìm anchor
	WorkerInterval            time.Duration `env:"RECONCILE_WORKER_INTERVAL" envDefault:"0s"`       // 0 = tắt worker định kỳ
}

// Validate kiểm tra cấu hình cần thiết cho driver đã chọn.
// Lỗi ở đây là lỗi cấu hình: job phải dừng trước khi ghi bất kỳ dữ liệu nào.
func (c *Configuration) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMongo:
		if c.MongoDB_ConnectionURI == "" {
			return fmt.Errorf("MONGODB_CONNECTION_URI is required for store driver %q", c.StoreDriver)
		}
		if c.MongoDB_DBName_Data == "" {
			return fmt.Errorf("MONGODB_DBNAME_DATA is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverPostgres, StoreDriverSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for store driver %q", c.StoreDriver)
		}
	case StoreDriverFile:
		if c.ProfileDataDir == "" {
			return fmt.Errorf("PROFILE_DATA_DIR is required for store driver %q", c.StoreDriver)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.EventBus {
	case "", EventBusNone:
	case EventBusAMQP:
		if c.RabbitMQURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required when EVENT_BUS=%s", c.EventBus)
		}
	case EventBusNATS:
		if c.NatsURL == "" {
			return fmt.Errorf("NATS_URL is required when EVENT_BUS=%s", c.EventBus)
		}
	default:
		return fmt.Errorf("unknown EVENT_BUS %q", c.EventBus)
	}

	if c.AttributionFallbackMargin < 0 {
		return fmt.Errorf("ATTRIBUTION_FALLBACK_MARGIN must not be negative")
	}
	return nil
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env bằng cách đi lên thư mục cha
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return filepath.Join(envDir, fmt.Sprintf("%s.env", env))
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig đọc cấu hình từ file env (nếu có) và biến môi trường.
// Khác với server, các job đối soát vẫn chạy được khi không có file env:
// biến môi trường của shell là đủ.
func NewConfig(files ...string) (*Configuration, error) {
	if len(files) == 0 {
		if envPath := getEnvPath(); envPath != "" {
			if _, err := os.Stat(envPath); err == nil {
				files = append(files, envPath)
			}
		}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("không thể load file env tại %s: %w", f, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("lỗi khi parse config: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.EventBus = strings.ToLower(strings.TrimSpace(cfg.EventBus))
	return &cfg, nil
}
