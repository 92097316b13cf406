package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"inventario-smart/internal/domain"
)

const (
	defaultMovementLimit = 200
	maxMovementLimit     = 1000
)

// MovementFilter narrows a movement listing. Zero values mean "no filter";
// the limit is clamped into [1, 1000] with a default of 200.
type MovementFilter struct {
	SKU       string
	ProductID int64
	Reason    domain.MovementReason
	DateFrom  *time.Time
	DateTo    *time.Time
	Limit     int
}

// MovementRepository defines the interface for the stock-movement ledger.
// Entries are append-only: there is no update or delete.
type MovementRepository interface {
	Create(ctx context.Context, movement *domain.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]*domain.StockMovement, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	UsageSince(ctx context.Context, since time.Time) (map[int64]int, error)
}

type movementRepository struct {
	db *sql.DB
}

// NewMovementRepository creates a new instance of MovementRepository
func NewMovementRepository(db *sql.DB) MovementRepository {
	return &movementRepository{db: db}
}

// Create appends a ledger entry and fills in its generated id, timestamp and
// the denormalized product SKU and name.
func (r *movementRepository) Create(ctx context.Context, movement *domain.StockMovement) error {
	query := `
		WITH inserted AS (
			INSERT INTO stock_movements (product_id, delta, reason, note, created_at)
			VALUES ($1, $2, $3, $4, now())
			RETURNING id, product_id, created_at
		)
		SELECT i.id, i.created_at, p.sku, p.name
		FROM inserted i
		JOIN products p ON p.id = i.product_id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		movement.ProductID,
		movement.Delta,
		movement.Reason,
		movement.Note,
	).Scan(&movement.ID, &movement.CreatedAt, &movement.ProductSKU, &movement.ProductName)

	if err != nil {
		return fmt.Errorf("failed to create stock movement: %w", err)
	}

	return nil
}

// List retrieves ledger entries newest-first, applying the given filter.
func (r *movementRepository) List(ctx context.Context, filter MovementFilter) ([]*domain.StockMovement, error) {
	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.SKU != "" {
		conditions = append(conditions, fmt.Sprintf("p.sku ILIKE $%d", argIndex))
		args = append(args, "%"+filter.SKU+"%")
		argIndex++
	}
	if filter.ProductID != 0 {
		conditions = append(conditions, fmt.Sprintf("m.product_id = $%d", argIndex))
		args = append(args, filter.ProductID)
		argIndex++
	}
	if filter.Reason != "" {
		conditions = append(conditions, fmt.Sprintf("m.reason = $%d", argIndex))
		args = append(args, filter.Reason)
		argIndex++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("m.created_at::date >= $%d", argIndex))
		args = append(args, *filter.DateFrom)
		argIndex++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("m.created_at::date <= $%d", argIndex))
		args = append(args, *filter.DateTo)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultMovementLimit
	}
	if limit > maxMovementLimit {
		limit = maxMovementLimit
	}

	query := fmt.Sprintf(`
		SELECT m.id, m.product_id, p.sku, p.name, m.delta, m.reason, m.note, m.created_at
		FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		%s
		ORDER BY m.created_at DESC
		LIMIT $%d
	`, whereClause, argIndex)

	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.StockMovement{}
	for rows.Next() {
		movement := &domain.StockMovement{}
		err := rows.Scan(
			&movement.ID,
			&movement.ProductID,
			&movement.ProductSKU,
			&movement.ProductName,
			&movement.Delta,
			&movement.Reason,
			&movement.Note,
			&movement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, movement)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, nil
}

// CountSince counts ledger entries created at or after the given instant.
func (r *movementRepository) CountSince(ctx context.Context, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM stock_movements WHERE created_at >= $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	return count, nil
}

// UsageSince sums the consumption (negative deltas, returned as positive
// units) per product since the given instant.
func (r *movementRepository) UsageSince(ctx context.Context, since time.Time) (map[int64]int, error) {
	query := `
		SELECT product_id, -SUM(delta)
		FROM stock_movements
		WHERE created_at >= $1 AND delta < 0
		GROUP BY product_id
	`

	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to sum stock usage: %w", err)
	}
	defer rows.Close()

	usage := map[int64]int{}
	for rows.Next() {
		var productID int64
		var units int
		if err := rows.Scan(&productID, &units); err != nil {
			return nil, fmt.Errorf("failed to scan stock usage: %w", err)
		}
		usage[productID] = units
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock usage: %w", err)
	}

	return usage, nil
}
