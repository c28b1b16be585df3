package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

// valuationRepository implements domain.ValuationRepository
type valuationRepository struct {
	db *DB
}

// NewValuationRepository creates a new valuation repository
func NewValuationRepository(db *DB) domain.ValuationRepository {
	return &valuationRepository{db: db}
}

const valuationColumns = `id, instrument_id, as_of, price`

func scanValuationPoint(row rowScanner) (*domain.ValuationPoint, error) {
	var point domain.ValuationPoint
	var priceStr string

	if err := row.Scan(&point.ID, &point.InstrumentID, &point.AsOf, &priceStr); err != nil {
		return nil, err
	}

	// Parse price (NUMERIC)
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}
	point.Price = price
	point.AsOf = point.AsOf.UTC()

	return &point, nil
}

// Add records a price point, overwriting the price of an existing (instrument, as_of) pair
func (r *valuationRepository) Add(ctx context.Context, point *domain.ValuationPoint) error {
	query := `
		INSERT INTO valuation_points (id, instrument_id, as_of, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (instrument_id, as_of) DO UPDATE SET price = EXCLUDED.price
	`

	_, err := r.db.ExecContext(ctx, query,
		point.ID,
		point.InstrumentID,
		point.AsOf.UTC(),
		point.Price.String(),
	)
	if err != nil {
		return translate("valuation.Add", err, "failed to insert price of %s", point.InstrumentID)
	}

	return nil
}

// PriceOnOrBefore retrieves the most recent point at or before a moment
func (r *valuationRepository) PriceOnOrBefore(ctx context.Context, instrumentID string, at time.Time) (*domain.ValuationPoint, error) {
	query := `
		SELECT ` + valuationColumns + `
		FROM valuation_points
		WHERE instrument_id = $1 AND as_of <= $2
		ORDER BY as_of DESC
		LIMIT 1
	`

	point, err := scanValuationPoint(r.db.QueryRowContext(ctx, query, instrumentID, at.UTC()))
	if err != nil {
		return nil, translate("valuation.PriceOnOrBefore", err, "no price for %s on or before %s", instrumentID, at.Format(time.RFC3339))
	}
	return point, nil
}

// LatestPrice retrieves the most recent point of an instrument
func (r *valuationRepository) LatestPrice(ctx context.Context, instrumentID string) (*domain.ValuationPoint, error) {
	query := `
		SELECT ` + valuationColumns + `
		FROM valuation_points
		WHERE instrument_id = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	point, err := scanValuationPoint(r.db.QueryRowContext(ctx, query, instrumentID))
	if err != nil {
		return nil, translate("valuation.LatestPrice", err, "no price history for %s", instrumentID)
	}
	return point, nil
}

// ListRange retrieves the points of an instrument between two moments, inclusive
func (r *valuationRepository) ListRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.ValuationPoint, error) {
	query := `
		SELECT ` + valuationColumns + `
		FROM valuation_points
		WHERE instrument_id = $1 AND as_of BETWEEN $2 AND $3
		ORDER BY as_of ASC
	`

	rows, err := r.db.QueryContext(ctx, query, instrumentID, from.UTC(), to.UTC())
	if err != nil {
		return nil, translate("valuation.ListRange", err, "failed to query prices of %s", instrumentID)
	}
	defer rows.Close()

	var points []*domain.ValuationPoint
	for rows.Next() {
		point, err := scanValuationPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan valuation point: %w", err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating valuation points: %w", err)
	}

	return points, nil
}
