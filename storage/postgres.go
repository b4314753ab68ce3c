package storage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kevin-chtw/tw_riichi/riichi"
)

// PGEventStore 基于PostgreSQL的事件日志存储。
// (match_id, event_id)唯一约束保证追加的原子性与顺序
type PGEventStore struct {
	db *pgxpool.Pool
}

func NewPGEventStore(db *pgxpool.Pool) *PGEventStore {
	return &PGEventStore{db: db}
}

// Schema 建表语句，部署时执行
const Schema = `
CREATE TABLE IF NOT EXISTS match_events (
	match_id   TEXT        NOT NULL,
	event_id   BIGINT      NOT NULL,
	event_type INT         NOT NULL,
	payload    JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (match_id, event_id)
);
`

func (s *PGEventStore) Append(ctx context.Context, matchID string, e *riichi.Event) error {
	payload, err := e.Encode()
	if err != nil {
		return err
	}
	query := `
		INSERT INTO match_events (match_id, event_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`
	_, err = s.db.Exec(ctx, query, matchID, e.ID, int32(e.Type), payload)
	return err
}

func (s *PGEventStore) Load(ctx context.Context, matchID string) ([]*riichi.Event, error) {
	query := `
		SELECT payload FROM match_events
		WHERE match_id = $1
		ORDER BY event_id
	`
	rows, err := s.db.Query(ctx, query, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*riichi.Event, 0, 16)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := riichi.DecodeEvent(payload)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveSettlement 终局时落一份结算结果，便于战绩查询不用重放日志
func (s *PGEventStore) SaveSettlement(ctx context.Context, matchID string, state *riichi.MatchState) error {
	query := `
		INSERT INTO match_results (match_id, end_reason, settlement)
		VALUES ($1, $2, $3)
		ON CONFLICT (match_id) DO NOTHING
	`
	entries := state.Settlement
	payload, err := encodeJSON(entries)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, query, matchID, string(state.EndReason), payload)
	return err
}

// ResultSchema 结算表
const ResultSchema = `
CREATE TABLE IF NOT EXISTS match_results (
	match_id   TEXT        PRIMARY KEY,
	end_reason TEXT        NOT NULL,
	settlement JSONB       NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`
