package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/trashytalk/piwardrive-go/pkg/models"
)

// UpsertGeofence creates or replaces a named geofence polygon.
func (s *Store) UpsertGeofence(ctx context.Context, g models.Geofence) error {
	vertices, err := json.Marshal(g.Vertices)
	if err != nil {
		return fmt.Errorf("marshal geofence vertices: %w", err)
	}
	_, err = s.ExecTimed(ctx, s.writer, `
		INSERT INTO geofences (name, vertices, enter_message, exit_message)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			vertices=excluded.vertices, enter_message=excluded.enter_message, exit_message=excluded.exit_message`,
		g.Name, string(vertices), g.EnterMessage, g.ExitMessage)
	return err
}

// DeleteGeofence removes a geofence by name. It is not an error to delete
// one that does not exist.
func (s *Store) DeleteGeofence(ctx context.Context, name string) error {
	_, err := s.ExecTimed(ctx, s.writer, `DELETE FROM geofences WHERE name = ?`, name)
	return err
}

// GetGeofence returns a single geofence by name.
func (s *Store) GetGeofence(ctx context.Context, name string) (models.Geofence, error) {
	var vertices string
	g := models.Geofence{Name: name}
	err := s.GetReader().QueryRowContext(ctx,
		`SELECT vertices, enter_message, exit_message FROM geofences WHERE name = ?`, name,
	).Scan(&vertices, &g.EnterMessage, &g.ExitMessage)
	if err != nil {
		return models.Geofence{}, fmt.Errorf("get geofence %q: %w", name, err)
	}
	if err := json.Unmarshal([]byte(vertices), &g.Vertices); err != nil {
		return models.Geofence{}, fmt.Errorf("decode geofence %q vertices: %w", name, err)
	}
	return g, nil
}

// ListGeofences returns every stored geofence.
func (s *Store) ListGeofences(ctx context.Context) ([]models.Geofence, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(),
		`SELECT name, vertices, enter_message, exit_message FROM geofences`)
	if err != nil {
		return nil, fmt.Errorf("list geofences: %w", err)
	}
	defer rows.Close()

	var out []models.Geofence
	for rows.Next() {
		var g models.Geofence
		var vertices string
		if err := rows.Scan(&g.Name, &vertices, &g.EnterMessage, &g.ExitMessage); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(vertices), &g.Vertices); err != nil {
			return nil, fmt.Errorf("decode geofence %q vertices: %w", g.Name, err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddWebhook registers a webhook URL. Duplicate URLs are ignored.
func (s *Store) AddWebhook(ctx context.Context, url string) error {
	_, err := s.ExecTimed(ctx, s.writer,
		`INSERT INTO webhooks (url) VALUES (?) ON CONFLICT(url) DO NOTHING`, url)
	return err
}

// RemoveWebhook deregisters a webhook URL.
func (s *Store) RemoveWebhook(ctx context.Context, url string) error {
	_, err := s.ExecTimed(ctx, s.writer, `DELETE FROM webhooks WHERE url = ?`, url)
	return err
}

// ListWebhooks returns every registered webhook URL.
func (s *Store) ListWebhooks(ctx context.Context) ([]string, error) {
	rows, err := s.QueryTimed(ctx, s.GetReader(), `SELECT url FROM webhooks`)
	if err != nil {
		return nil, fmt.Errorf("list webhooks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		out = append(out, url)
	}
	return out, rows.Err()
}
