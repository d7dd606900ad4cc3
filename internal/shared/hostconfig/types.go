package hostconfig

// Config 是 worldhost 进程的完整配置（configs/conf.yml）。
type Config struct {
	NodeID    int64           `yaml:"node_id" mapstructure:"node_id"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Marker    MarkerConfig    `yaml:"marker" mapstructure:"marker"`
	MongoDB   MongoDBConfig   `yaml:"mongodb" mapstructure:"mongodb"`
	MySQL     MySQLConfig     `yaml:"mysql" mapstructure:"mysql"`
	Worker    WorkerConfig    `yaml:"worker" mapstructure:"worker"`
	Relay     RelayConfig     `yaml:"relay" mapstructure:"relay"`
	Admin     AdminConfig     `yaml:"admin" mapstructure:"admin"`
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

type LogConfig struct {
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Level      string `yaml:"level" mapstructure:"level"` // debug/info/warn/error...
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}

// StorageConfig 描述世界文件的落盘位置。
type StorageConfig struct {
	Root         string `yaml:"root" mapstructure:"root"`                   // 每个安装一份的根目录
	PrimaryWorld string `yaml:"primary_world" mapstructure:"primary_world"` // 主世界 .wld 路径
	Manifest     string `yaml:"manifest" mapstructure:"manifest"`           // 维度清单 yaml
	TickMillis   int    `yaml:"tick_millis" mapstructure:"tick_millis"`
}

type MarkerConfig struct {
	Backend string `yaml:"backend" mapstructure:"backend"` // file | mongodb | mysql
}

type MongoDBConfig struct {
	URI             string `yaml:"uri" mapstructure:"uri"`
	Database        string `yaml:"database" mapstructure:"database"`
	ConnectTimeoutS int    `yaml:"connect_timeout_s" mapstructure:"connect_timeout_s"`
}

type MySQLConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	DBName   string `yaml:"dbname" mapstructure:"dbname"`
	MaxIdle  int    `yaml:"max_idle" mapstructure:"max_idle"`
	MaxConn  int    `yaml:"max_conn" mapstructure:"max_conn"`
}

type WorkerConfig struct {
	Scheduler string `yaml:"scheduler" mapstructure:"scheduler"` // actor | inline
}

type RelayConfig struct {
	Mode      string `yaml:"mode" mapstructure:"mode"` // standalone | server | client
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Path      string `yaml:"path" mapstructure:"path"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	PeerID    int    `yaml:"peer_id" mapstructure:"peer_id"`
}

type AdminConfig struct {
	Host string `yaml:"host" mapstructure:"host"`
	Port int    `yaml:"port" mapstructure:"port"`
}

type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Service string `yaml:"service" mapstructure:"service"`
}
