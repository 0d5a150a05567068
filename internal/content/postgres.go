package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

type querier interface {
	Ping(ctx context.Context) error
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore reads content from the modules/assessments tables.
type PostgresStore struct {
	db querier
}

// ParseURL validates a PostgreSQL connection URL.
func ParseURL(url string) (*pgxpool.Config, error) {
	if url == "" {
		return nil, fmt.Errorf("database URL is empty")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	return cfg, nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{db: pool}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.db.Ping(ctx)
}

func (s *PostgresStore) GetModule(ctx context.Context, id string) (Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var m Module
	err := s.db.QueryRow(ctx,
		`SELECT id, title, COALESCE(description, '') FROM modules WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Title, &m.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Module{}, fmt.Errorf("module %s: %w", id, ErrNotFound)
		}
		return Module{}, fmt.Errorf("query module %s: %w", id, err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT position, body FROM module_sections WHERE module_id = $1 ORDER BY position`,
		id,
	)
	if err != nil {
		return Module{}, fmt.Errorf("query sections of %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.Order, &sec.Text); err != nil {
			return Module{}, fmt.Errorf("scan section: %w", err)
		}
		m.Sections = append(m.Sections, sec)
	}
	if err := rows.Err(); err != nil {
		return Module{}, fmt.Errorf("iterate sections: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) GetAssessment(ctx context.Context, ref Ref) (Definition, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var d Definition
	var kind string
	err := s.db.QueryRow(ctx,
		`SELECT id, kind, title, COALESCE(description, '') FROM assessments WHERE kind = $1 AND id = $2`,
		string(ref.Kind), ref.ID,
	).Scan(&d.ID, &kind, &d.Title, &d.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, fmt.Errorf("assessment %s: %w", ref, ErrNotFound)
		}
		return Definition{}, fmt.Errorf("query assessment %s: %w", ref, err)
	}
	d.Kind = Kind(kind)

	rows, err := s.db.Query(ctx,
		`SELECT module_id FROM assessment_modules
		 WHERE assessment_kind = $1 AND assessment_id = $2 ORDER BY position`,
		kind, d.ID,
	)
	if err != nil {
		return Definition{}, fmt.Errorf("query modules of %s: %w", ref, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return Definition{}, fmt.Errorf("collect module ids: %w", err)
	}
	d.ModuleIDs = ids
	return d, nil
}

func (s *PostgresStore) ListModules(ctx context.Context) ([]Module, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Query(ctx,
		`SELECT id, title, COALESCE(description, '') FROM modules ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	var modules []Module
	index := make(map[string]int)
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.Title, &m.Description); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan module: %w", err)
		}
		index[m.ID] = len(modules)
		modules = append(modules, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modules: %w", err)
	}

	secRows, err := s.db.Query(ctx,
		`SELECT module_id, position, body FROM module_sections ORDER BY module_id, position`,
	)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer secRows.Close()
	for secRows.Next() {
		var moduleID string
		var sec Section
		if err := secRows.Scan(&moduleID, &sec.Order, &sec.Text); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		if i, ok := index[moduleID]; ok {
			modules[i].Sections = append(modules[i].Sections, sec)
		}
	}
	if err := secRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}
	return modules, nil
}

// UpsertModule replaces a module and its sections in one transaction.
func (s *PostgresStore) UpsertModule(ctx context.Context, m Module) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO modules (id, title, description) VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description`,
			m.ID, m.Title, m.Description,
		); err != nil {
			return fmt.Errorf("upsert module %s: %w", m.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM module_sections WHERE module_id = $1`, m.ID); err != nil {
			return fmt.Errorf("clear sections of %s: %w", m.ID, err)
		}
		for _, sec := range m.Sections {
			if _, err := tx.Exec(ctx,
				`INSERT INTO module_sections (module_id, position, body) VALUES ($1, $2, $3)`,
				m.ID, sec.Order, sec.Text,
			); err != nil {
				return fmt.Errorf("insert section %d of %s: %w", sec.Order, m.ID, err)
			}
		}
		return nil
	})
}

// UpsertAssessment replaces an assessment definition and its module links.
func (s *PostgresStore) UpsertAssessment(ctx context.Context, d Definition) error {
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO assessments (kind, id, title, description) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (kind, id) DO UPDATE SET title = EXCLUDED.title, description = EXCLUDED.description`,
			string(d.Kind), d.ID, d.Title, d.Description,
		); err != nil {
			return fmt.Errorf("upsert assessment %s: %w", d.Ref(), err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM assessment_modules WHERE assessment_kind = $1 AND assessment_id = $2`,
			string(d.Kind), d.ID,
		); err != nil {
			return fmt.Errorf("clear module links of %s: %w", d.Ref(), err)
		}
		for pos, moduleID := range d.ModuleIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO assessment_modules (assessment_kind, assessment_id, module_id, position) VALUES ($1, $2, $3, $4)`,
				string(d.Kind), d.ID, moduleID, pos,
			); err != nil {
				return fmt.Errorf("link module %s to %s: %w", moduleID, d.Ref(), err)
			}
		}
		return nil
	})
}

// Seed writes every module and assessment of doc.
func (s *PostgresStore) Seed(ctx context.Context, doc Document) error {
	for _, m := range doc.Modules {
		if err := s.UpsertModule(ctx, m); err != nil {
			return err
		}
	}
	for _, d := range doc.Assessments {
		if err := s.UpsertAssessment(ctx, d); err != nil {
			return err
		}
	}
	return nil
}
