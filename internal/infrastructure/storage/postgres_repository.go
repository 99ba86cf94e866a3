// Package storage persists items, scores, runs, summaries, and cached
// translations in Postgres. All writes are insert-only except the run
// row, which tracks pipeline progress; historical score records are
// never mutated.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/shu-bamma/anime-ai-digest/internal/domain"
	"github.com/shu-bamma/anime-ai-digest/internal/ports"
)

// Row-count limit per query; UnscoredItemsSince pages past it.
const pageSize = 1000

// PostgresRepository implements all store ports over database/sql.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var (
	_ ports.ItemStore    = (*PostgresRepository)(nil)
	_ ports.ScoreStore   = (*PostgresRepository)(nil)
	_ ports.RunStore     = (*PostgresRepository)(nil)
	_ ports.SummaryStore = (*PostgresRepository)(nil)
)

// Open connects to Postgres and wraps the handle in a repository.
func Open(dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresRepository(db), nil
}

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Close releases the underlying connection pool.
func (r *PostgresRepository) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// ItemExists reports whether an item with this content hash was
// already ingested by any previous run.
func (r *PostgresRepository) ItemExists(ctx context.Context, contentHash string) (bool, error) {
	query, args, err := r.sb.
		Select("1").
		From("items").
		Where(sq.Eq{"content_hash": contentHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query item exists: %w", err)
	}
	return true, nil
}

// InsertItems writes a batch of new items and returns the count stored.
func (r *PostgresRepository) InsertItems(ctx context.Context, items []domain.Item) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	builder := r.sb.
		Insert("items").
		Columns("id", "source_id", "source_category", "title", "url",
			"published_at", "raw_body", "original_language", "metadata",
			"content_hash", "fetched_at", "title_translated", "body_translated")

	for _, item := range items {
		meta, err := json.Marshal(item.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata for %s: %w", item.URL, err)
		}
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		builder = builder.Values(id, item.SourceID, item.SourceCategory, item.Title,
			item.URL, nullableTime(item.PublishedAt), item.RawBody,
			item.OriginalLanguage, meta, item.ContentHash, item.FetchedAt,
			item.TitleTranslated, item.BodyTranslated)
	}

	query, args, err := builder.Suffix("ON CONFLICT (content_hash) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert items: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// UnscoredItemsSince returns items fetched within the window that have
// no score for this run, paging transparently past the per-query row
// limit so mid-week digests can span multiple fetch batches.
func (r *PostgresRepository) UnscoredItemsSince(ctx context.Context, runID string, windowHours int) ([]domain.Item, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(windowHours) * time.Hour)

	var all []domain.Item
	for offset := uint64(0); ; offset += pageSize {
		query, args, err := r.sb.
			Select("i.id", "i.source_id", "i.source_category", "i.title", "i.url",
				"i.published_at", "i.raw_body", "i.original_language", "i.metadata",
				"i.content_hash", "i.fetched_at", "i.title_translated", "i.body_translated").
			From("items i").
			Where(sq.GtOrEq{"i.fetched_at": cutoff}).
			Where(sq.Expr("NOT EXISTS (SELECT 1 FROM scores s WHERE s.item_id = i.id AND s.run_id = ?)", runID)).
			OrderBy("i.fetched_at DESC").
			Limit(pageSize).
			Offset(offset).
			ToSql()
		if err != nil {
			return nil, fmt.Errorf("build unscored query: %w", err)
		}

		page, err := r.queryItems(ctx, query, args)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
	}
	return all, nil
}

func (r *PostgresRepository) queryItems(ctx context.Context, query string, args []any) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return items, nil
}

func scanItem(rows *sql.Rows) (domain.Item, error) {
	var (
		item        domain.Item
		publishedAt sql.NullTime
		rawBody     sql.NullString
		meta        []byte
		titleTr     sql.NullString
		bodyTr      sql.NullString
	)
	err := rows.Scan(&item.ID, &item.SourceID, &item.SourceCategory, &item.Title,
		&item.URL, &publishedAt, &rawBody, &item.OriginalLanguage, &meta,
		&item.ContentHash, &item.FetchedAt, &titleTr, &bodyTr)
	if err != nil {
		return domain.Item{}, fmt.Errorf("scan item: %w", err)
	}

	if publishedAt.Valid {
		t := publishedAt.Time.UTC()
		item.PublishedAt = &t
	}
	item.RawBody = rawBody.String
	item.TitleTranslated = titleTr.String
	item.BodyTranslated = bodyTr.String
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &item.Metadata); err != nil {
			return domain.Item{}, fmt.Errorf("unmarshal metadata for %s: %w", item.ID, err)
		}
	}
	return item, nil
}

// InsertScores writes a batch of immutable score records.
func (r *PostgresRepository) InsertScores(ctx context.Context, records []domain.ScoreRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	builder := r.sb.
		Insert("scores").
		Columns("item_id", "run_id", "total_score", "recency_score",
			"engagement_score", "keyword_score", "source_priority_score")
	for _, rec := range records {
		builder = builder.Values(rec.ItemID, rec.RunID, rec.TotalScore,
			rec.RecencyScore, rec.EngagementScore, rec.KeywordScore,
			rec.SourcePriorityScore)
	}

	query, args, err := builder.Suffix("ON CONFLICT (item_id, run_id) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert scores: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert scores: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// TopScored returns score rows joined with their items, ranked by
// total score descending.
func (r *PostgresRepository) TopScored(ctx context.Context, runID string, limit int) ([]domain.ScoredItem, error) {
	query, args, err := r.sb.
		Select("s.item_id", "s.run_id", "s.total_score", "s.recency_score",
			"s.engagement_score", "s.keyword_score", "s.source_priority_score",
			"i.id", "i.source_id", "i.source_category", "i.title", "i.url",
			"i.published_at", "i.raw_body", "i.original_language", "i.metadata",
			"i.content_hash", "i.fetched_at", "i.title_translated", "i.body_translated").
		From("scores s").
		Join("items i ON i.id = s.item_id").
		Where(sq.Eq{"s.run_id": runID}).
		OrderBy("s.total_score DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top scored query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query top scored: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredItem
	for rows.Next() {
		var (
			si          domain.ScoredItem
			publishedAt sql.NullTime
			rawBody     sql.NullString
			meta        []byte
			titleTr     sql.NullString
			bodyTr      sql.NullString
		)
		err := rows.Scan(&si.Score.ItemID, &si.Score.RunID, &si.Score.TotalScore,
			&si.Score.RecencyScore, &si.Score.EngagementScore, &si.Score.KeywordScore,
			&si.Score.SourcePriorityScore,
			&si.Item.ID, &si.Item.SourceID, &si.Item.SourceCategory, &si.Item.Title,
			&si.Item.URL, &publishedAt, &rawBody, &si.Item.OriginalLanguage, &meta,
			&si.Item.ContentHash, &si.Item.FetchedAt, &titleTr, &bodyTr)
		if err != nil {
			return nil, fmt.Errorf("scan scored item: %w", err)
		}
		if publishedAt.Valid {
			t := publishedAt.Time.UTC()
			si.Item.PublishedAt = &t
		}
		si.Item.RawBody = rawBody.String
		si.Item.TitleTranslated = titleTr.String
		si.Item.BodyTranslated = bodyTr.String
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &si.Item.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata for %s: %w", si.Item.ID, err)
			}
		}
		out = append(out, si)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// CreateRun opens a new pipeline run in the running state.
func (r *PostgresRepository) CreateRun(ctx context.Context) (domain.Run, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Status:    domain.RunRunning,
	}

	query, args, err := r.sb.
		Insert("digest_runs").
		Columns("id", "started_at", "status", "items_fetched", "items_new",
			"items_scored", "sources_succeeded", "sources_failed", "errors").
		Values(run.ID, run.StartedAt, run.Status, 0, 0, 0, 0, 0, []byte("[]")).
		ToSql()
	if err != nil {
		return domain.Run{}, fmt.Errorf("build create run: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.Run{}, fmt.Errorf("create run: %w", err)
	}
	return run, nil
}

// UpdateRun writes the current run snapshot back to storage.
func (r *PostgresRepository) UpdateRun(ctx context.Context, run domain.Run) error {
	errPayload, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("marshal run errors: %w", err)
	}

	query, args, err := r.sb.
		Update("digest_runs").
		Set("status", run.Status).
		Set("completed_at", nullableTime(run.CompletedAt)).
		Set("items_fetched", run.ItemsFetched).
		Set("items_new", run.ItemsNew).
		Set("items_scored", run.ItemsScored).
		Set("sources_succeeded", run.SourcesSucceeded).
		Set("sources_failed", run.SourcesFailed).
		Set("errors", errPayload).
		Set("output_md", run.OutputMarkdown).
		Set("output_html", run.OutputHTML).
		Where(sq.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update run: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// InsertSummaries stores per-item digest summaries for a run.
func (r *PostgresRepository) InsertSummaries(ctx context.Context, runID string, summaries map[string]string) (int, error) {
	if len(summaries) == 0 {
		return 0, nil
	}

	builder := r.sb.Insert("summaries").Columns("item_id", "run_id", "summary")
	for itemID, summary := range summaries {
		builder = builder.Values(itemID, runID, summary)
	}

	query, args, err := builder.Suffix("ON CONFLICT (item_id, run_id) DO NOTHING").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert summaries: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert summaries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// CachedTranslation looks up a previously stored translation.
func (r *PostgresRepository) CachedTranslation(ctx context.Context, textHash, sourceLang, targetLang string) (string, bool, error) {
	query, args, err := r.sb.
		Select("translated_text").
		From("translations").
		Where(sq.Eq{"text_hash": textHash, "source_language": sourceLang, "target_language": targetLang}).
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build translation lookup: %w", err)
	}

	var translated string
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&translated)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query translation: %w", err)
	}
	return translated, true, nil
}

// CacheTranslation stores a translation result for reuse.
func (r *PostgresRepository) CacheTranslation(ctx context.Context, textHash, original, sourceLang, targetLang, translated string) error {
	query, args, err := r.sb.
		Insert("translations").
		Columns("text_hash", "original_text", "source_language", "target_language", "translated_text").
		Values(textHash, original, sourceLang, targetLang, translated).
		Suffix("ON CONFLICT (text_hash, source_language, target_language) DO UPDATE SET translated_text = EXCLUDED.translated_text").
		ToSql()
	if err != nil {
		return fmt.Errorf("build cache translation: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("cache translation: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
