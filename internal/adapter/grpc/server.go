package grpc

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/usecase/notification"
	"github.com/simaogato/sipledger-backend/internal/usecase/plan"
	"github.com/simaogato/sipledger-backend/internal/usecase/reminder"
	"github.com/simaogato/sipledger-backend/internal/usecase/scheduler"
	"github.com/simaogato/sipledger-backend/internal/usecase/settlement"
	"github.com/simaogato/sipledger-backend/internal/usecase/tracking"
	"github.com/simaogato/sipledger-backend/internal/usecase/valuation"
)

// Server implements the InstallmentService gRPC server
type Server struct {
	SchedulerService    *scheduler.SchedulerService
	SettlementService   *settlement.SettlementService
	TrackingService     *tracking.TrackingService
	PlanService         *plan.PlanService
	ValuationService    *valuation.ValuationService
	ReminderService     *reminder.ReminderService
	NotificationService *notification.NotificationService
}

var _ InstallmentServiceServer = (*Server)(nil)

// NewServer creates a new gRPC server instance
func NewServer(
	schedulerService *scheduler.SchedulerService,
	settlementService *settlement.SettlementService,
	trackingService *tracking.TrackingService,
	planService *plan.PlanService,
	valuationService *valuation.ValuationService,
	reminderService *reminder.ReminderService,
	notificationService *notification.NotificationService,
) *Server {
	return &Server{
		SchedulerService:    schedulerService,
		SettlementService:   settlementService,
		TrackingService:     trackingService,
		PlanService:         planService,
		ValuationService:    valuationService,
		ReminderService:     reminderService,
		NotificationService: notificationService,
	}
}

// RunScheduler handles the RunScheduler RPC.
// A run cut short after dispatching began still reports its summary, flagged incomplete.
func (s *Server) RunScheduler(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.SchedulerService.Run(ctx)
	if summary == nil {
		return nil, mapError(err)
	}

	m := summaryMap(summary)
	m["incomplete"] = err != nil
	if err != nil {
		m["error"] = err.Error()
	}
	return toStruct(m)
}

// TransitionRecord handles the TransitionRecord RPC.
// Request fields: record_id, state.
func (s *Server) TransitionRecord(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	recordID, err := uuidField(req, "record_id")
	if err != nil {
		return nil, err
	}

	target, err := domain.ParseRecordState(stringField(req, "state"))
	if err != nil {
		return nil, mapError(err)
	}

	res, err := s.SettlementService.Transition(ctx, recordID, target)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(transitionMap(res))
}

// ListRecords handles the ListRecords RPC; the request carries a plan ID
func (s *Server) ListRecords(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	planID, err := parseUUID("plan_id", req.GetValue())
	if err != nil {
		return nil, err
	}

	records, err := s.TrackingService.ListRecords(ctx, planID)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(records))
	for _, r := range records {
		items = append(items, recordMap(r))
	}
	return toStruct(map[string]any{"records": items})
}

// GetPlanStatus handles the GetPlanStatus RPC; the request carries a plan ID
func (s *Server) GetPlanStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	planID, err := parseUUID("plan_id", req.GetValue())
	if err != nil {
		return nil, err
	}

	ps, err := s.TrackingService.ClassifyPlan(ctx, planID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(planStatusMap(ps))
}

// ListUserPlanStatus handles the ListUserPlanStatus RPC; the request carries a user ID
func (s *Server) ListUserPlanStatus(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	userID, err := parseUUID("user_id", req.GetValue())
	if err != nil {
		return nil, err
	}

	statuses, err := s.TrackingService.ClassifyUserPlans(ctx, userID)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(statuses))
	for _, ps := range statuses {
		items = append(items, planStatusMap(ps))
	}
	return toStruct(map[string]any{"plans": items})
}

// CreatePlan handles the CreatePlan RPC.
// Request fields: user_id, instrument_id, amount, start_date, frequency, optional goal_id.
func (s *Server) CreatePlan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuidField(req, "user_id")
	if err != nil {
		return nil, err
	}
	amount, err := decimalField(req, "amount")
	if err != nil {
		return nil, err
	}
	startDate, err := dateField(req, "start_date")
	if err != nil {
		return nil, err
	}
	frequency, err := domain.ParseFrequency(stringField(req, "frequency"))
	if err != nil {
		return nil, mapError(err)
	}

	input := plan.CreateInput{
		UserID:       userID,
		InstrumentID: stringField(req, "instrument_id"),
		Amount:       amount,
		StartDate:    startDate,
		Frequency:    frequency,
	}
	if hasField(req, "goal_id") {
		goalID, err := uuidField(req, "goal_id")
		if err != nil {
			return nil, err
		}
		input.GoalID = &goalID
	}

	p, err := s.PlanService.Create(ctx, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(planMap(p))
}

// UpdatePlan handles the UpdatePlan RPC.
// Request fields: plan_id plus any of amount, frequency, active, goal_id, clear_goal.
func (s *Server) UpdatePlan(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	planID, err := uuidField(req, "plan_id")
	if err != nil {
		return nil, err
	}

	var input plan.UpdateInput
	if hasField(req, "amount") {
		amount, err := decimalField(req, "amount")
		if err != nil {
			return nil, err
		}
		input.Amount = &amount
	}
	if hasField(req, "frequency") {
		frequency, err := domain.ParseFrequency(stringField(req, "frequency"))
		if err != nil {
			return nil, mapError(err)
		}
		input.Frequency = &frequency
	}
	if hasField(req, "active") {
		active := req.GetFields()["active"].GetBoolValue()
		input.Active = &active
	}
	if hasField(req, "goal_id") {
		goalID, err := uuidField(req, "goal_id")
		if err != nil {
			return nil, err
		}
		input.GoalID = &goalID
	}
	input.ClearGoal = req.GetFields()["clear_goal"].GetBoolValue()

	p, err := s.PlanService.Update(ctx, planID, input)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(planMap(p))
}

// DeletePlan handles the DeletePlan RPC; the request carries a plan ID
func (s *Server) DeletePlan(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	planID, err := parseUUID("plan_id", req.GetValue())
	if err != nil {
		return nil, err
	}
	if err := s.PlanService.Delete(ctx, planID); err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// RecordPrice handles the RecordPrice RPC.
// Request fields: instrument_id, as_of, price.
func (s *Server) RecordPrice(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	asOf, err := timeField(req, "as_of")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(req, "price")
	if err != nil {
		return nil, err
	}

	point, err := s.ValuationService.RecordPrice(ctx, stringField(req, "instrument_id"), asOf, price)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(pointMap(point))
}

// ListPrices handles the ListPrices RPC.
// Request fields: instrument_id, from, to (inclusive). A bare "to" date covers that whole day.
func (s *Server) ListPrices(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	from, err := timeField(req, "from")
	if err != nil {
		return nil, err
	}
	to, err := timeField(req, "to")
	if err != nil {
		return nil, err
	}
	if len(stringField(req, "to")) == len(time.DateOnly) {
		to = to.Add(24*time.Hour - time.Nanosecond)
	}

	points, err := s.ValuationService.History(ctx, stringField(req, "instrument_id"), from, to)
	if err != nil {
		return nil, mapError(err)
	}

	items := make([]any, 0, len(points))
	for _, p := range points {
		items = append(items, pointMap(p))
	}
	return toStruct(map[string]any{"points": items})
}

// GetMarketValue handles the GetMarketValue RPC; the request carries a plan ID
func (s *Server) GetMarketValue(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	planID, err := parseUUID("plan_id", req.GetValue())
	if err != nil {
		return nil, err
	}

	v, err := s.ValuationService.MarketValue(ctx, planID)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(planValuationMap(v))
}

// SendReminders handles the SendReminders RPC
func (s *Server) SendReminders(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	summary, err := s.ReminderService.Send(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(map[string]any{
		"due_tomorrow": summary.DueTomorrow,
		"missed_today": summary.MissedToday,
		"failed":       summary.Failed,
	})
}

// ListNotifications handles the ListNotifications RPC.
// Request fields: user_id, optional unread_only.
func (s *Server) ListNotifications(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID, err := uuidField(req, "user_id")
	if err != nil {
		return nil, err
	}

	items, err := s.NotificationService.List(ctx, userID, req.GetFields()["unread_only"].GetBoolValue())
	if err != nil {
		return nil, mapError(err)
	}

	out := make([]any, 0, len(items))
	for _, n := range items {
		out = append(out, notificationMap(n))
	}
	return toStruct(map[string]any{"notifications": out})
}

// MarkNotificationRead handles the MarkNotificationRead RPC.
// Request fields: notification_id, user_id.
func (s *Server) MarkNotificationRead(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	id, err := uuidField(req, "notification_id")
	if err != nil {
		return nil, err
	}
	userID, err := uuidField(req, "user_id")
	if err != nil {
		return nil, err
	}

	if err := s.NotificationService.MarkRead(ctx, id, userID); err != nil {
		return nil, mapError(err)
	}
	return &emptypb.Empty{}, nil
}

// mapError maps domain errors to gRPC status codes
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}

	switch domain.KindOf(err) {
	case domain.KindInvalidInput:
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case domain.KindValuationUnavailable:
		return status.Error(codes.FailedPrecondition, err.Error())
	case domain.KindStorageConflict:
		return status.Error(codes.Aborted, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
