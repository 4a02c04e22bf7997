package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// archivedTables lists the live/archive table pairs that ArchiveOld moves
// rows between. Each live table has a "timestamp" column.
var archivedTables = []string{"wifi_detections", "bluetooth_detections", "cellular_detections"}

// ArchiveOld copies rows older than now-days from each live detection table
// into its <table>_archive counterpart and deletes them from the live
// table, one transaction per table.
func (s *Store) ArchiveOld(ctx context.Context, days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	for _, table := range archivedTables {
		if err := s.archiveTable(ctx, table, cutoff); err != nil {
			return fmt.Errorf("archive %s: %w", table, err)
		}
	}
	return nil
}

func (s *Store) archiveTable(ctx context.Context, table, cutoff string) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		insert := fmt.Sprintf(`INSERT INTO %s_archive SELECT * FROM %s WHERE timestamp < ?`, table, table)
		if _, err := tx.ExecContext(ctx, insert, cutoff); err != nil {
			return err
		}
		del := fmt.Sprintf(`DELETE FROM %s WHERE timestamp < ?`, table)
		_, err := tx.ExecContext(ctx, del, cutoff)
		return err
	})
}

// PruneHealth deletes health samples older than now-days.
func (s *Store) PruneHealth(ctx context.Context, days int) error {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339Nano)
	_, err := s.ExecTimed(ctx, s.writer, `DELETE FROM health_records WHERE timestamp < ?`, cutoff)
	return err
}
