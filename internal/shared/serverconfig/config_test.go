package serverconfig

import (
	"os"
	"path/filepath"
	"testing"
)

const sample = `
mission:
  port: 18080
  storage: mongodb
  rate_per_sec: 2.5
authority:
  base_url: http://127.0.0.1:8081
  snapshot_ttl_s: "7"
ledger:
  dialect: postgres
jwt_secret: from-file
`

func TestLoad_读取并回填密钥(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "conf.yml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write err=%v", err)
	}

	c := Load(path)
	if c.Mission.Port != 18080 || c.Mission.Storage != "mongodb" || c.Mission.RatePerSec != 2.5 {
		t.Fatalf("mission 配置错误 %+v", c.Mission)
	}
	// 弱类型解码：字符串也能落到 int
	if c.Authority.SnapshotTTLS != 7 || c.Authority.BaseURL == "" {
		t.Fatalf("authority 配置错误 %+v", c.Authority)
	}
	if c.Ledger.Dialect != "postgres" {
		t.Fatalf("ledger 配置错误 %+v", c.Ledger)
	}
	if Conf().Mission.Port != 18080 {
		t.Fatalf("Conf 应返回最新快照")
	}
	if os.Getenv("JWT_SECRET") != "from-file" {
		t.Fatalf("JWT_SECRET 应回填配置值")
	}
}

func TestLoad_环境变量优先(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	path := filepath.Join(t.TempDir(), "conf.yml")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatalf("write err=%v", err)
	}
	Load(path)
	if os.Getenv("JWT_SECRET") != "from-env" {
		t.Fatalf("已设置的环境变量不应被覆盖")
	}
}

func TestLoad_默认向上查找仓库配置(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	c := Load("")
	if c.Mission.Storage != "memory" || c.Ledger.Dialect != "sqlite" {
		t.Fatalf("默认配置错误 mission=%+v ledger=%+v", c.Mission, c.Ledger)
	}
}
