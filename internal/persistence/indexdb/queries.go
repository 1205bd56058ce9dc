package indexdb

// Read-side queries for the replay/inspection tool. These run on the
// same connection as the writer; keep them off the sim thread.

type SnapshotInfo struct {
	Tick     uint64
	Path     string
	Silver   int
	Deals    int
	Caravans int
}

func (s *SQLiteIndex) ListSnapshots() ([]SnapshotInfo, error) {
	rows, err := s.db.Query(`SELECT tick, path, silver, deals, caravans FROM snapshots ORDER BY tick`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var r SnapshotInfo
		var tick int64
		if err := rows.Scan(&tick, &r.Path, &r.Silver, &r.Deals, &r.Caravans); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

type AuditRow struct {
	Tick    uint64
	Actor   string
	Action  string
	Faction string
	Raw     string
}

// AuditsForFaction returns the faction's audit trail in tick order.
// Empty faction matches everything.
func (s *SQLiteIndex) AuditsForFaction(faction string, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	q := `SELECT tick, actor, action, COALESCE(faction,''), raw_json FROM audits`
	args := []any{}
	if faction != "" {
		q += ` WHERE faction = ?`
		args = append(args, faction)
	}
	q += ` ORDER BY tick, seq LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AuditRow
	for rows.Next() {
		var r AuditRow
		var tick int64
		if err := rows.Scan(&tick, &r.Actor, &r.Action, &r.Faction, &r.Raw); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

type EventRow struct {
	Tick    uint64
	Type    string
	Faction string
	Raw     string
}

func (s *SQLiteIndex) EventsBetween(fromTick, toTick uint64, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.db.Query(
		`SELECT tick, type, COALESCE(faction,''), raw_json FROM events
		 WHERE tick >= ? AND tick <= ? ORDER BY tick, seq LIMIT ?`,
		int64(fromTick), int64(toTick), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var tick int64
		if err := rows.Scan(&tick, &r.Type, &r.Faction, &r.Raw); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}
