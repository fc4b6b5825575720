package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnv(t *testing.T) {
	t.Setenv("REGISTRO_TEST_PORT", "9000")
	os.Unsetenv("REGISTRO_TEST_MISSING")

	in := []byte("port: ${REGISTRO_TEST_PORT:8080}\nhost: ${REGISTRO_TEST_MISSING:localhost}\nempty: ${REGISTRO_TEST_MISSING}\n")
	out := string(resolveEnv(in))

	assert.Contains(t, out, "port: 9000")
	assert.Contains(t, out, "host: localhost")
	assert.Contains(t, out, "empty: \n")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "apiserver.yaml")
	content := `
port: ${REGISTRO_TEST_CFG_PORT:8080}
database:
  type: sqlite
  dbname: ./data/registro.db
jwt:
  secret_key: "${REGISTRO_TEST_JWT:changeme-please-use-a-long-secret}"
  duration: 24h
logger:
  level: debug
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, cfgPath, err := LoadConfig[APIServerConfig](path)
	require.NoError(t, err)
	assert.Equal(t, path, cfgPath)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "changeme-please-use-a-long-secret", cfg.JWT.SecretKey)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Duration)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, _, err := LoadConfig[SyncCLIConfig](filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	pg := DatabaseConfig{Type: "postgres", Host: "db", Port: 5432, User: "registro", Password: "s3cret", DBName: "registro", SSLMode: "disable"}
	assert.Equal(t, "postgres://registro:s3cret@db:5432/registro?sslmode=disable", pg.GetDSN())

	my := DatabaseConfig{Type: "mysql", Host: "db", Port: 3306, User: "root", Password: "pw", DBName: "registro"}
	assert.Equal(t, "root:pw@tcp(db:3306)/registro?charset=utf8mb4&parseTime=True&loc=Local", my.GetDSN())

	lite := DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "data", "registro.db")}
	assert.Equal(t, lite.DBName, lite.GetDSN())

	unknown := DatabaseConfig{Type: "oracle"}
	assert.Equal(t, "", unknown.GetDSN())
}
