package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/sipledger-backend/internal/domain"
)

type valuationRepository struct {
	store *Store
}

const valuationColumns = `id, instrument_id, as_of, price`

func scanValuationPoint(row rowScanner) (*domain.ValuationPoint, error) {
	var point domain.ValuationPoint
	var asOfStr, priceStr string

	if err := row.Scan(&point.ID, &point.InstrumentID, &asOfStr, &priceStr); err != nil {
		return nil, err
	}

	var err error
	if point.AsOf, err = parseTimestamp(asOfStr); err != nil {
		return nil, fmt.Errorf("parsing as_of: %w", err)
	}
	if point.Price, err = decimal.NewFromString(priceStr); err != nil {
		return nil, fmt.Errorf("parsing price: %w", err)
	}
	return &point, nil
}

func (r *valuationRepository) Add(ctx context.Context, point *domain.ValuationPoint) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO valuation_points (id, instrument_id, as_of, price)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (instrument_id, as_of) DO UPDATE SET price = excluded.price`,
		point.ID.String(),
		point.InstrumentID,
		formatTimestamp(point.AsOf),
		point.Price.String(),
	)
	if err != nil {
		return translate("valuation.Add", err, "failed to insert price of %s", point.InstrumentID)
	}
	return nil
}

func (r *valuationRepository) PriceOnOrBefore(ctx context.Context, instrumentID string, at time.Time) (*domain.ValuationPoint, error) {
	point, err := scanValuationPoint(r.store.db.QueryRowContext(ctx, `
		SELECT `+valuationColumns+`
		FROM valuation_points
		WHERE instrument_id = ? AND as_of <= ?
		ORDER BY as_of DESC
		LIMIT 1`,
		instrumentID, formatTimestamp(at),
	))
	if err != nil {
		return nil, translate("valuation.PriceOnOrBefore", err, "no price for %s on or before %s", instrumentID, at.Format(time.RFC3339))
	}
	return point, nil
}

func (r *valuationRepository) LatestPrice(ctx context.Context, instrumentID string) (*domain.ValuationPoint, error) {
	point, err := scanValuationPoint(r.store.db.QueryRowContext(ctx, `
		SELECT `+valuationColumns+`
		FROM valuation_points
		WHERE instrument_id = ?
		ORDER BY as_of DESC
		LIMIT 1`,
		instrumentID,
	))
	if err != nil {
		return nil, translate("valuation.LatestPrice", err, "no price history for %s", instrumentID)
	}
	return point, nil
}

func (r *valuationRepository) ListRange(ctx context.Context, instrumentID string, from, to time.Time) ([]*domain.ValuationPoint, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT `+valuationColumns+`
		FROM valuation_points
		WHERE instrument_id = ? AND as_of BETWEEN ? AND ?
		ORDER BY as_of ASC`,
		instrumentID, formatTimestamp(from), formatTimestamp(to),
	)
	if err != nil {
		return nil, translate("valuation.ListRange", err, "failed to query prices of %s", instrumentID)
	}
	defer func() { _ = rows.Close() }()

	var points []*domain.ValuationPoint
	for rows.Next() {
		point, err := scanValuationPoint(rows)
		if err != nil {
			return nil, fmt.Errorf("valuation.ListRange: scanning point: %w", err)
		}
		points = append(points, point)
	}
	return points, rows.Err()
}
