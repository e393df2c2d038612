package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"community-token-tracker/internal/domain"
	"community-token-tracker/internal/storage"
)

// TokenStore implements storage.TokenStore using PostgreSQL.
type TokenStore struct {
	pool *Pool
}

// NewTokenStore creates a new TokenStore.
func NewTokenStore(pool *Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenStore = (*TokenStore)(nil)

const tokenColumns = `
	pool_address, base_token, symbol, name, platform, twitter_url,
	market_cap, price_usd, liquidity_usd, holder_count, total_volume, buy_count, sell_count,
	community_id, admin_username, ath_market_cap, ath_detected_at,
	is_migrated, migrated_at, market_cap_at_migration, score,
	created_at, detected_at, last_updated
`

// Get retrieves a record. Returns ErrNotFound if not exists.
func (s *TokenStore) Get(ctx context.Context, poolAddress string) (*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE pool_address = $1`

	rec, err := scanToken(s.pool.QueryRow(ctx, query, poolAddress))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token: %w", err)
	}
	return rec, nil
}

// Upsert inserts a new record or refreshes the market facts of an existing one.
// xmax is zero only for rows inserted by this statement.
func (s *TokenStore) Upsert(ctx context.Context, rec *domain.TokenRecord) (bool, error) {
	if rec == nil || rec.PoolAddress == "" {
		return false, storage.ErrInvalidInput
	}

	query := `
		INSERT INTO tokens (
			pool_address, base_token, symbol, name, platform, twitter_url,
			market_cap, price_usd, liquidity_usd, holder_count, total_volume, buy_count, sell_count,
			community_id, created_at, detected_at, last_updated
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (pool_address) DO UPDATE SET
			market_cap    = EXCLUDED.market_cap,
			price_usd     = EXCLUDED.price_usd,
			liquidity_usd = EXCLUDED.liquidity_usd,
			holder_count  = EXCLUDED.holder_count,
			total_volume  = EXCLUDED.total_volume,
			buy_count     = EXCLUDED.buy_count,
			sell_count    = EXCLUDED.sell_count,
			last_updated  = EXCLUDED.last_updated,
			community_id  = COALESCE(tokens.community_id, EXCLUDED.community_id)
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		rec.PoolAddress,
		rec.BaseToken,
		rec.Symbol,
		rec.Name,
		rec.Platform,
		rec.TwitterURL,
		rec.MarketCap,
		rec.PriceUSD,
		rec.LiquidityUSD,
		rec.HolderCount,
		rec.TotalVolume,
		rec.BuyCount,
		rec.SellCount,
		rec.CommunityID,
		rec.CreatedAt,
		rec.DetectedAt,
		rec.LastUpdated,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("upsert token: %w", err)
	}
	return inserted, nil
}

// Update applies fn inside a transaction holding the row lock.
func (s *TokenStore) Update(ctx context.Context, poolAddress string, fn storage.UpdateFunc) (*domain.TokenRecord, error) {
	var rec *domain.TokenRecord
	err := s.pool.inTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + tokenColumns + ` FROM tokens WHERE pool_address = $1 FOR UPDATE`
		locked, err := scanToken(tx.QueryRow(ctx, query, poolAddress))
		if err != nil {
			if isNotFoundError(err) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("lock token: %w", err)
		}

		if !fn(locked) {
			rec = locked
			return nil
		}

		_, err = tx.Exec(ctx, `
			UPDATE tokens SET
				ath_market_cap          = $2,
				ath_detected_at         = $3,
				is_migrated             = $4,
				migrated_at             = $5,
				market_cap_at_migration = $6,
				score                   = $7
			WHERE pool_address = $1
		`,
			poolAddress,
			locked.ATHMarketCap,
			locked.ATHDetectedAt,
			locked.IsMigrated,
			locked.MigratedAt,
			locked.MarketCapAtMigration,
			scoreToDB(locked.Score),
		)
		if err != nil {
			return fmt.Errorf("update token: %w", err)
		}
		rec = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SetAdmin stores the admin only when none is set.
func (s *TokenStore) SetAdmin(ctx context.Context, poolAddress, admin string) (bool, error) {
	if admin == "" {
		return false, storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tokens SET admin_username = $2
		WHERE pool_address = $1 AND (admin_username IS NULL OR admin_username = '')
	`, poolAddress, admin)
	if err != nil {
		return false, fmt.Errorf("set admin: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}

	var exists bool
	err = s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tokens WHERE pool_address = $1)`, poolAddress).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token exists: %w", err)
	}
	if !exists {
		return false, storage.ErrNotFound
	}
	return false, nil
}

// AdminForCommunity returns the admin of the earliest detected record in the community.
func (s *TokenStore) AdminForCommunity(ctx context.Context, communityID string) (string, error) {
	query := `
		SELECT admin_username
		FROM tokens
		WHERE community_id = $1 AND admin_username IS NOT NULL AND admin_username <> ''
		ORDER BY detected_at ASC
		LIMIT 1
	`

	var admin string
	if err := s.pool.QueryRow(ctx, query, communityID).Scan(&admin); err != nil {
		if isNotFoundError(err) {
			return "", storage.ErrNotFound
		}
		return "", fmt.Errorf("admin for community: %w", err)
	}
	return admin, nil
}

// ScoringState reads the scorer inputs.
func (s *TokenStore) ScoringState(ctx context.Context, poolAddress string) (domain.ScoringState, error) {
	query := `
		SELECT ath_market_cap, is_migrated, migrated_at, created_at
		FROM tokens
		WHERE pool_address = $1
	`

	var st domain.ScoringState
	err := s.pool.QueryRow(ctx, query, poolAddress).Scan(
		&st.ATHMarketCap,
		&st.IsMigrated,
		&st.MigratedAt,
		&st.CreatedAt,
	)
	if err != nil {
		if isNotFoundError(err) {
			return domain.ScoringState{}, storage.ErrNotFound
		}
		return domain.ScoringState{}, fmt.Errorf("get scoring state: %w", err)
	}
	return st, nil
}

// GetScore reads the persisted score.
func (s *TokenStore) GetScore(ctx context.Context, poolAddress string) (*domain.Score, error) {
	var score *int16
	err := s.pool.QueryRow(ctx, `SELECT score FROM tokens WHERE pool_address = $1`, poolAddress).Scan(&score)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get score: %w", err)
	}
	return scoreFromDB(score), nil
}

// ListWithAdmin returns up to limit records with an admin, newest first.
func (s *TokenStore) ListWithAdmin(ctx context.Context, limit int) ([]*domain.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + `
		FROM tokens
		WHERE admin_username IS NOT NULL AND admin_username <> ''
		ORDER BY detected_at DESC, pool_address ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens with admin: %w", err)
	}
	defer rows.Close()

	return scanTokens(rows)
}

// Counts returns total and with-admin record counts.
func (s *TokenStore) Counts(ctx context.Context) (storage.TokenCounts, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE admin_username IS NOT NULL AND admin_username <> '')
		FROM tokens
	`

	var counts storage.TokenCounts
	if err := s.pool.QueryRow(ctx, query).Scan(&counts.Total, &counts.WithAdmin); err != nil {
		return storage.TokenCounts{}, fmt.Errorf("count tokens: %w", err)
	}
	return counts, nil
}

// scanToken scans a single row into TokenRecord.
func scanToken(row pgx.Row) (*domain.TokenRecord, error) {
	var rec domain.TokenRecord
	var score *int16
	err := row.Scan(
		&rec.PoolAddress,
		&rec.BaseToken,
		&rec.Symbol,
		&rec.Name,
		&rec.Platform,
		&rec.TwitterURL,
		&rec.MarketCap,
		&rec.PriceUSD,
		&rec.LiquidityUSD,
		&rec.HolderCount,
		&rec.TotalVolume,
		&rec.BuyCount,
		&rec.SellCount,
		&rec.CommunityID,
		&rec.AdminUsername,
		&rec.ATHMarketCap,
		&rec.ATHDetectedAt,
		&rec.IsMigrated,
		&rec.MigratedAt,
		&rec.MarketCapAtMigration,
		&score,
		&rec.CreatedAt,
		&rec.DetectedAt,
		&rec.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	rec.Score = scoreFromDB(score)
	return &rec, nil
}

// scanTokens scans multiple rows into TokenRecord slice.
func scanTokens(rows pgx.Rows) ([]*domain.TokenRecord, error) {
	var result []*domain.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return result, nil
}

func scoreToDB(s *domain.Score) *int16 {
	if s == nil {
		return nil
	}
	v := int16(*s)
	return &v
}

func scoreFromDB(v *int16) *domain.Score {
	if v == nil {
		return nil
	}
	s := domain.Score(*v)
	return &s
}
