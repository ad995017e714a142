// Package migrate applies the goose SQL migrations that define the marketplace
// schema. Migrations ship embedded in every binary; the on-disk directory is
// only needed to author new ones.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/koumale-backend/pkg/logger"
)

// DefaultDir is where new migrations are authored, relative to the repo root.
const DefaultDir = "pkg/migrate/migrations"

const embeddedDir = "migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// gooseMu serializes use of goose's package-level base FS and dialect.
var gooseMu sync.Mutex

// Source locates a set of migration files.
type Source struct {
	FS  fs.FS
	Dir string
}

// Embedded returns the migrations compiled into the binary.
func Embedded() Source {
	return Source{FS: embedded, Dir: embeddedDir}
}

// Disk reads migrations from dir on the local filesystem.
func Disk(dir string) Source {
	return Source{FS: os.DirFS(dir), Dir: "."}
}

// Run executes a goose command such as up, down or status against db.
func Run(ctx context.Context, db *sql.DB, src Source, logg *logger.Logger, command string, args ...string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	return withGoose(ctx, src, logg, func() error {
		if err := goose.RunContext(ctx, command, db, src.Dir, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// MigrateToVersion moves the schema up or down until it reaches targetVersion.
func MigrateToVersion(ctx context.Context, db *sql.DB, src Source, logg *logger.Logger, targetVersion string) error {
	if db == nil {
		return fmt.Errorf("db is required")
	}
	target, err := strconv.ParseInt(targetVersion, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", targetVersion, err)
	}

	return withGoose(ctx, src, logg, func() error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current < target:
			if err := goose.UpToContext(ctx, db, src.Dir, target); err != nil {
				return fmt.Errorf("goose up-to %d: %w", target, err)
			}
		case current > target:
			if err := goose.DownToContext(ctx, db, src.Dir, target); err != nil {
				return fmt.Errorf("goose down-to %d: %w", target, err)
			}
		}
		return nil
	})
}

func withGoose(ctx context.Context, src Source, logg *logger.Logger, fn func() error) error {
	if src.FS == nil {
		return fmt.Errorf("migration source is required")
	}
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(src.FS)
	defer goose.SetBaseFS(nil)
	if logg != nil {
		goose.SetLogger(gooseLogger{ctx: ctx, logg: logg})
	}
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn()
}

// gooseLogger forwards goose progress lines to the structured logger.
type gooseLogger struct {
	ctx  context.Context
	logg *logger.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logg.Info(g.ctx, fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	g.logg.Error(g.ctx, "goose fatal", fmt.Errorf("%s", msg))
	panic(msg)
}
