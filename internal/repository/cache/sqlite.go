package cache

import (
	"database/sql"
	"embed"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/ishiev/rtiles/pkg/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

type SQLiteCache struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSQLiteCache(path string, l logger.Logger) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	err = db.Ping()
	if err != nil {
		return nil, err
	}

	c := &SQLiteCache{
		db:     db,
		logger: l,
	}

	err = c.runMigrations()
	if err != nil {
		return nil, err
	}

	l.Info("sqlite cache initialized", "path", path)

	return c, nil
}

func (c *SQLiteCache) runMigrations() error {
	goose.SetBaseFS(migrations)

	err := goose.SetDialect("sqlite3")
	if err != nil {
		return err
	}

	err = goose.Up(c.db, "migrations")
	if err != nil {
		return err
	}

	return nil
}

var _ TileCache = (*SQLiteCache)(nil)

func (c *SQLiteCache) Get(k Key) (Value, bool, error) {
	c.logger.Debug("sqlite cache get", "model", k.Model, "path", k.Path)

	query := `SELECT tile_data
	FROM tile_cache
	WHERE model = ? AND fingerprint = ? AND path = ?`

	var tileData []byte
	err := c.db.QueryRow(query, k.Model, k.Fingerprint, k.Path).Scan(&tileData)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		c.logger.Error("sqlite cache get failed", "model", k.Model, "path", k.Path, "error", err)
		return nil, false, err
	}

	return tileData, true, nil
}

func (c *SQLiteCache) Set(k Key, v Value) error {
	c.logger.Debug("sqlite cache set", "model", k.Model, "path", k.Path)

	query := `INSERT INTO tile_cache (model, fingerprint, path, tile_data)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(model, fingerprint, path) DO UPDATE SET tile_data = excluded.tile_data`

	_, err := c.db.Exec(query, k.Model, k.Fingerprint, k.Path, v)
	if err != nil {
		c.logger.Error("sqlite cache set failed", "model", k.Model, "path", k.Path, "error", err)
		return err
	}

	return nil
}

func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
