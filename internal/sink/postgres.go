package sink

import (
	"context"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/ThinkOS-Cognitive-Superchain/thinkos-cognitive-superchain/migrations/postgres"
)

const insertSnapshot = `INSERT INTO node_snapshots (node, kind, payload) VALUES ($1, $2, $3)`

var migrationFilePattern = regexp.MustCompile(`^(\d+)_(.+)\.sql$`)

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type migration struct {
	version int
	name    string
	sql     string
}

// Postgres agrega una fila por snapshot: historial append-only.
type Postgres struct {
	db    execer
	close func()
}

// NewPostgres abre el pool y aplica las migraciones embebidas.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	p := &Postgres{db: pool, close: pool.Close}
	if err := p.migrate(ctx, migrations.FS); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

// parseMigrations lee los .sql de fsys ordenados por versión.
func parseMigrations(fsys fs.FS) ([]migration, error) {
	var out []migration
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		m := migrationFilePattern.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		version, _ := strconv.Atoi(m[1])
		b, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		out = append(out, migration{version: version, name: m[2], sql: string(b)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func (p *Postgres) migrate(ctx context.Context, fsys fs.FS) error {
	ms, err := parseMigrations(fsys)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if _, err := p.db.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}

func (p *Postgres) Name() string { return "postgres" }

func (p *Postgres) Publish(ctx context.Context, node, kind string, record any) error {
	b, err := encode(record)
	if err != nil {
		return err
	}
	if _, err := p.db.Exec(ctx, insertSnapshot, node, kind, string(b)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (p *Postgres) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
