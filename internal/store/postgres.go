package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PostgresConfig holds database connection parameters.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Postgres is the production Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres creates a connection pool and verifies connectivity.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	var dsn string
	if cfg.Password != "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	} else {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	return &Postgres{pool: pool, logger: logger}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Health checks if the database is reachable.
func (p *Postgres) Health(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) GetCampaign(ctx context.Context, id string) (*Campaign, error) {
	query := `
		SELECT id, tenant_id, name, channel, status, started_at, completed_at, created_at
		FROM campaigns
		WHERE id = $1
	`

	var c Campaign
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.TenantID,
		&c.Name,
		&c.Channel,
		&c.Status,
		&c.StartedAt,
		&c.CompletedAt,
		&c.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("campaign %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query campaign: %w", err)
	}

	return &c, nil
}

func (p *Postgres) UpdateCampaign(ctx context.Context, c *Campaign) error {
	query := `
		UPDATE campaigns
		SET status = $1, started_at = $2, completed_at = $3
		WHERE id = $4
	`

	result, err := p.pool.Exec(ctx, query, c.Status, c.StartedAt, c.CompletedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("campaign %s: %w", c.ID, ErrNotFound)
	}

	return nil
}

func (p *Postgres) ListRunningCampaigns(ctx context.Context) ([]*Campaign, error) {
	query := `
		SELECT id, tenant_id, name, channel, status, started_at, completed_at, created_at
		FROM campaigns
		WHERE status = 'running' AND started_at IS NOT NULL
		ORDER BY created_at ASC
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query running campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []*Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(
			&c.ID,
			&c.TenantID,
			&c.Name,
			&c.Channel,
			&c.Status,
			&c.StartedAt,
			&c.CompletedAt,
			&c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return campaigns, nil
}

func (p *Postgres) GetActiveSequence(ctx context.Context, campaignID string) (*Sequence, error) {
	query := `
		SELECT id, campaign_id, steps_json, active
		FROM sequences
		WHERE campaign_id = $1 AND active = TRUE
		LIMIT 1
	`

	var s Sequence
	err := p.pool.QueryRow(ctx, query, campaignID).Scan(
		&s.ID,
		&s.CampaignID,
		&s.StepsJSON,
		&s.Active,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("active sequence for campaign %s: %w", campaignID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query sequence: %w", err)
	}

	return &s, nil
}

func (p *Postgres) ListRecipients(ctx context.Context, campaignID string) ([]*Recipient, error) {
	query := `
		SELECT id, campaign_id, source_type, source_id, email, name, phone,
		       city, country_code, status, unsubscribed, suppressed,
		       last_send_at, last_result
		FROM recipients
		WHERE campaign_id = $1
		ORDER BY id ASC
	`

	rows, err := p.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var recipients []*Recipient
	for rows.Next() {
		var r Recipient
		if err := rows.Scan(
			&r.ID,
			&r.CampaignID,
			&r.SourceType,
			&r.SourceID,
			&r.Email,
			&r.Name,
			&r.Phone,
			&r.City,
			&r.CountryCode,
			&r.Status,
			&r.Unsubscribed,
			&r.Suppressed,
			&r.LastSendAt,
			&r.LastResult,
		); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		recipients = append(recipients, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return recipients, nil
}

func (p *Postgres) UpdateRecipient(ctx context.Context, r *Recipient) error {
	query := `
		UPDATE recipients
		SET status = $1, unsubscribed = $2, suppressed = $3,
		    last_send_at = $4, last_result = $5
		WHERE id = $6
	`

	result, err := p.pool.Exec(ctx, query,
		r.Status, r.Unsubscribed, r.Suppressed, r.LastSendAt, r.LastResult, r.ID)
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("recipient %s: %w", r.ID, ErrNotFound)
	}

	return nil
}

func (p *Postgres) ListSends(ctx context.Context, campaignID string) ([]*Send, error) {
	query := `
		SELECT id, campaign_id, sequence_id, recipient_id, step_index,
		       template_id, channel, subject, status, provider_msg_id,
		       queued_at, sent_at, error, retry_count, last_error_at
		FROM sends
		WHERE campaign_id = $1
		ORDER BY queued_at ASC
	`

	rows, err := p.pool.Query(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("query sends: %w", err)
	}
	defer rows.Close()

	var sends []*Send
	for rows.Next() {
		var s Send
		if err := rows.Scan(
			&s.ID,
			&s.CampaignID,
			&s.SequenceID,
			&s.RecipientID,
			&s.StepIndex,
			&s.TemplateID,
			&s.Channel,
			&s.Subject,
			&s.Status,
			&s.ProviderMsgID,
			&s.QueuedAt,
			&s.SentAt,
			&s.Error,
			&s.RetryCount,
			&s.LastErrorAt,
		); err != nil {
			return nil, fmt.Errorf("scan send: %w", err)
		}
		sends = append(sends, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return sends, nil
}

func (p *Postgres) CreateSend(ctx context.Context, s *Send) error {
	query := `
		INSERT INTO sends (
			id, campaign_id, sequence_id, recipient_id, step_index,
			template_id, channel, subject, status, provider_msg_id,
			queued_at, sent_at, error, retry_count, last_error_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := p.pool.Exec(ctx, query,
		s.ID, s.CampaignID, s.SequenceID, s.RecipientID, s.StepIndex,
		s.TemplateID, s.Channel, s.Subject, s.Status, s.ProviderMsgID,
		s.QueuedAt, s.SentAt, s.Error, s.RetryCount, s.LastErrorAt,
	)
	if err != nil {
		return fmt.Errorf("insert send: %w", err)
	}

	return nil
}

func (p *Postgres) UpdateSend(ctx context.Context, s *Send) error {
	query := `
		UPDATE sends
		SET status = $1, provider_msg_id = $2, sent_at = $3,
		    error = $4, retry_count = $5, last_error_at = $6
		WHERE id = $7
	`

	result, err := p.pool.Exec(ctx, query,
		s.Status, s.ProviderMsgID, s.SentAt, s.Error, s.RetryCount, s.LastErrorAt, s.ID)
	if err != nil {
		return fmt.Errorf("update send: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("send %s: %w", s.ID, ErrNotFound)
	}

	return nil
}

func (p *Postgres) GetTemplate(ctx context.Context, id string) (*Template, error) {
	query := `
		SELECT id, subject, body_markdown, locale
		FROM templates
		WHERE id = $1
	`

	var t Template
	err := p.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.Subject, &t.BodyMarkdown, &t.Locale)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("template %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query template: %w", err)
	}

	return &t, nil
}

func (p *Postgres) GetLead(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, name, email, phone, website, address
		FROM leads
		WHERE id = $1
	`

	var l Lead
	err := p.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.Name, &l.Email, &l.Phone, &l.Website, &l.Address)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query lead: %w", err)
	}

	return &l, nil
}

func (p *Postgres) GetPartner(ctx context.Context, id string) (*Partner, error) {
	query := `
		SELECT id, name, email, phone, website, street
		FROM partners
		WHERE id = $1
	`

	var pt Partner
	err := p.pool.QueryRow(ctx, query, id).Scan(&pt.ID, &pt.Name, &pt.Email, &pt.Phone, &pt.Website, &pt.Street)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("partner %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query partner: %w", err)
	}

	return &pt, nil
}
