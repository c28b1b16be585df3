package grpc

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/scheduler"
	"github.com/simaogato/sipledger-backend/internal/usecase/settlement"
	"github.com/simaogato/sipledger-backend/internal/usecase/tracking"
	"github.com/simaogato/sipledger-backend/internal/usecase/valuation"
)

// request field access

func hasField(req *structpb.Struct, key string) bool {
	v, ok := req.GetFields()[key]
	if !ok {
		return false
	}
	_, isNull := v.GetKind().(*structpb.Value_NullValue)
	return !isNull
}

func stringField(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func uuidField(req *structpb.Struct, key string) (uuid.UUID, error) {
	return parseUUID(key, stringField(req, key))
}

func parseUUID(key, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return id, nil
}

// decimalField accepts the amount as a string or, for convenience, a JSON number.
func decimalField(req *structpb.Struct, key string) (decimal.Decimal, error) {
	v := req.GetFields()[key]
	if n, ok := v.GetKind().(*structpb.Value_NumberValue); ok {
		if math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
			return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v is not a finite number", key, n.NumberValue)
		}
		return decimal.NewFromFloat(n.NumberValue), nil
	}
	d, err := decimal.NewFromString(v.GetStringValue())
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return d, nil
}

func dateField(req *structpb.Struct, key string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, stringField(req, key))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", key, err)
	}
	return t, nil
}

// timeField accepts RFC 3339 or a bare date.
func timeField(req *structpb.Struct, key string) (time.Time, error) {
	raw := stringField(req, key)
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: want RFC 3339 or YYYY-MM-DD", key)
	}
	return t, nil
}

// response encoding

func toStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	return s, nil
}

func formatDate(t time.Time) string {
	return t.Format(time.DateOnly)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func planMap(p *domain.Plan) map[string]any {
	m := map[string]any{
		"id":              p.ID.String(),
		"user_id":         p.UserID.String(),
		"instrument_id":   p.InstrumentID,
		"amount":          p.Amount.String(),
		"start_date":      formatDate(p.StartDate),
		"frequency":       string(p.Frequency),
		"active":          p.Active,
		"units":           p.Units.String(),
		"invested_amount": p.InvestedAmount.String(),
		"created_at":      formatTime(p.CreatedAt),
		"updated_at":      formatTime(p.UpdatedAt),
	}
	if p.GoalID != nil {
		m["goal_id"] = p.GoalID.String()
	}
	return m
}

func recordMap(r *domain.LedgerRecord) map[string]any {
	m := map[string]any{
		"id":         r.ID.String(),
		"plan_id":    r.PlanID.String(),
		"type":       string(r.Type),
		"amount":     r.Amount.String(),
		"due_date":   formatDate(r.DueDate),
		"state":      string(r.State),
		"created_at": formatTime(r.CreatedAt),
		"updated_at": formatTime(r.UpdatedAt),
	}
	if r.Price != nil {
		m["price"] = r.Price.String()
	}
	if r.Units != nil {
		m["units"] = r.Units.String()
	}
	return m
}

func healthMap(h *tracking.Health) map[string]any {
	return map[string]any{
		"expected_periods": h.ExpectedPeriods,
		"paid_periods":     h.PaidPeriods,
		"pending_periods":  h.PendingPeriods,
		"failed_periods":   h.FailedPeriods,
		"missing_periods":  h.MissingPeriods,
		"status":           string(h.Status),
	}
}

func planStatusMap(ps *tracking.PlanStatus) map[string]any {
	return map[string]any{
		"plan":   planMap(ps.Plan),
		"health": healthMap(ps.Health),
	}
}

func summaryMap(s *scheduler.RunSummary) map[string]any {
	errs := make([]any, 0, len(s.Errors))
	for _, e := range s.Errors {
		errs = append(errs, map[string]any{
			"plan_id": e.PlanID.String(),
			"message": e.Message,
		})
	}
	return map[string]any{
		"started_at":   formatTime(s.StartedAt),
		"total_plans":  s.TotalPlans,
		"scheduled":    s.Scheduled,
		"skipped":      s.Skipped,
		"failed":       s.Failed,
		"undispatched": s.Undispatched,
		"errors":       errs,
	}
}

func transitionMap(res *settlement.TransitionResult) map[string]any {
	m := map[string]any{
		"record": recordMap(res.Record),
		"no_op":  res.NoOp,
	}
	if res.Plan != nil {
		m["plan"] = planMap(res.Plan)
	}
	if !res.UnitsBought.IsZero() {
		m["units_bought"] = res.UnitsBought.String()
		m["price"] = res.Price.String()
	}
	return m
}

func pointMap(p *domain.ValuationPoint) map[string]any {
	return map[string]any{
		"id":            p.ID.String(),
		"instrument_id": p.InstrumentID,
		"as_of":         formatTime(p.AsOf),
		"price":         p.Price.String(),
	}
}

func planValuationMap(v *valuation.PlanValuation) map[string]any {
	return map[string]any{
		"plan_id":      v.PlanID.String(),
		"units":        v.Units.String(),
		"price":        v.Price.String(),
		"as_of":        formatTime(v.AsOf),
		"market_value": v.MarketValue.String(),
		"paid_amount":  v.PaidAmount.String(),
		"gain":         v.Gain.String(),
	}
}

func notificationMap(n *domain.Notification) map[string]any {
	m := map[string]any{
		"id":         n.ID.String(),
		"user_id":    n.UserID.String(),
		"kind":       n.Kind,
		"message":    n.Message,
		"read":       n.Read,
		"created_at": formatTime(n.CreatedAt),
	}
	if n.PlanID != nil {
		m["plan_id"] = n.PlanID.String()
	}
	return m
}
