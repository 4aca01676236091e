package serverconfig

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	MongoDB   MongoDBConfig   `mapstructure:"mongodb"`
	MySQL     MySQLConfig     `mapstructure:"mysql"`
	Mission   MissionConfig   `mapstructure:"mission"`
	Authority AuthorityConfig `mapstructure:"authority"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Report    ReportConfig    `mapstructure:"report"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	JWTSecret string          `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	FileDir    string `mapstructure:"file_dir"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"` // days
	Compress   bool   `mapstructure:"compress"`
	Level      string `mapstructure:"level"`
	Dev        bool   `mapstructure:"dev"`
}

type MongoDBConfig struct {
	URI             string `mapstructure:"uri"`
	Database        string `mapstructure:"database"`
	ConnectTimeoutS int    `mapstructure:"connect_timeout_s"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	MaxIdle  int    `mapstructure:"max_idle"`
	MaxConn  int    `mapstructure:"max_conn"`
}

// MissionConfig 是任务服务（玩家会话 + 定时器结算）的监听与限流配置。
type MissionConfig struct {
	Host         string  `mapstructure:"host"`
	Port         int     `mapstructure:"port"`
	GrpcPort     int     `mapstructure:"grpc_port"`
	Storage      string  `mapstructure:"storage"` // mongodb / memory
	RatePerSec   float64 `mapstructure:"rate_per_sec"`
	RateBurst    int     `mapstructure:"rate_burst"`
	AskTimeoutMs int     `mapstructure:"ask_timeout_ms"`
}

// AuthorityConfig 同时给 authority 服务端和任务服务的客户端使用。
type AuthorityConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	BaseURL      string `mapstructure:"base_url"`
	TimeoutMs    int    `mapstructure:"timeout_ms"`
	SnapshotTTLS int    `mapstructure:"snapshot_ttl_s"`
	Seed         int64  `mapstructure:"seed"`
}

type SchedulerConfig struct {
	TickMs  int `mapstructure:"tick_ms"`
	FlushMs int `mapstructure:"flush_ms"`
}

type CatalogConfig struct {
	// Path 为空时使用内置目录
	Path string `mapstructure:"path"`
}

type ReportConfig struct {
	Store      string `mapstructure:"store"` // mysql / memory
	ArchiveDir string `mapstructure:"archive_dir"`
}

type LedgerConfig struct {
	Dialect string `mapstructure:"dialect"` // sqlite / postgres
	DSN     string `mapstructure:"dsn"`
}
