package players

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/assessment"
	"github.com/stiapanreha-dev/ai-football-analyzer-sub000/internal/db"
)

// Store handles persistence of players.
type Store struct {
	db *db.DB
}

// NewStore creates a new player store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a new player.
func (s *Store) Create(ctx context.Context, p Player) (*Player, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return nil, fmt.Errorf("player name is required")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO players (name, position, created_at) VALUES (?, ?, ?)`,
		p.Name, strings.TrimSpace(p.Position), p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting player: %w", err)
	}
	p.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading player id: %w", err)
	}
	return &p, nil
}

// GetByID retrieves a player. It returns nil, nil when missing.
func (s *Store) GetByID(ctx context.Context, id int64) (*Player, error) {
	var p Player
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, position, created_at FROM players WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Position, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	return &p, nil
}

// List returns all players ordered by name.
func (s *Store) List(ctx context.Context) ([]Player, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, position, created_at FROM players ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []Player
	for rows.Next() {
		var p Player
		if err := rows.Scan(&p.ID, &p.Name, &p.Position, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// LookupSubject resolves a player for the assessment engine.
func (s *Store) LookupSubject(ctx context.Context, id int64) (*assessment.Subject, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return &assessment.Subject{ID: p.ID, Name: p.Name, RoleHint: p.Position}, nil
}
