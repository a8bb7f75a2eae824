package database

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/letterbox/letterbox/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = config.Database{
	Host:   "db.local",
	Port:   5433,
	User:   "archive",
	Pass:   "p@ss'word",
	Name:   "letters",
	Schema: "letterbox",
}

func TestConnString_EscapesQuotes(t *testing.T) {
	dsn := connString(testCfg)

	assert.Contains(t, dsn, "host=db.local port=5433 user=archive")
	assert.Contains(t, dsn, `password='p@ss\'word'`)
	assert.Contains(t, dsn, "options='-c search_path=letterbox'")
}

func TestMigrationURL_EncodesCredentials(t *testing.T) {
	raw := migrationURL(testCfg)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db.local:5433", u.Host)
	assert.Equal(t, "/letters", u.Path)
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss'word", pass)
	assert.Equal(t, "letterbox", u.Query().Get("search_path"))
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestFindMigrationsPath_FromPackageDir(t *testing.T) {
	path, err := findMigrationsPath()

	require.NoError(t, err)
	assert.Equal(t, "migrations", filepath.Base(path))
}
