package grpc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/simaogato/sipledger-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/sipledger-backend/internal/domain"
	"github.com/simaogato/sipledger-backend/internal/domain/mocks"
	"github.com/simaogato/sipledger-backend/internal/usecase/notification"
	"github.com/simaogato/sipledger-backend/internal/usecase/plan"
	"github.com/simaogato/sipledger-backend/internal/usecase/reminder"
	"github.com/simaogato/sipledger-backend/internal/usecase/scheduler"
	"github.com/simaogato/sipledger-backend/internal/usecase/settlement"
	"github.com/simaogato/sipledger-backend/internal/usecase/tracking"
	"github.com/simaogato/sipledger-backend/internal/usecase/valuation"
)

const testToken = "sip-token-123"

var testToday = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type harness struct {
	server *Server
	conn   *grpc.ClientConn
}

func (h *harness) client(token string) *Client {
	return NewClient(h.conn, token)
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "grpc.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	clock := func() time.Time { return testToday }

	valuationService := valuation.NewValuationService(store.Valuations(), store.Plans(), store.Ledger())
	schedulerService := scheduler.NewSchedulerService(store.Plans(), store.Ledger(), log)
	schedulerService.Now = clock
	trackingService := tracking.NewTrackingService(store.Plans(), store.Ledger())
	trackingService.Now = clock
	notificationService := notification.NewNotificationService(store.Notifications(), log)
	reminderService := reminder.NewReminderService(store.Plans(), store.Ledger(), reminder.InboxNotifier{Notifications: notificationService}, "INR", log)
	reminderService.Now = func() time.Time { return testToday.AddDate(0, 1, -1) }

	srv := NewServer(
		schedulerService,
		settlement.NewSettlementService(store.Ledger(), store.Plans(), valuationService, log),
		trackingService,
		plan.NewPlanService(store.Plans(), log),
		valuationService,
		reminderService,
		notificationService,
	)

	lis := bufconn.Listen(1 << 20)
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		LoggingInterceptor(log),
		AuthInterceptor(testToken),
	))
	RegisterInstallmentServiceServer(grpcServer, srv)
	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(grpcServer.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return &harness{server: srv, conn: conn}
}

func createTestPlan(t *testing.T, c *Client) map[string]any {
	t.Helper()
	p, err := c.CreatePlan(context.Background(), map[string]any{
		"user_id":       uuid.NewString(),
		"instrument_id": "INF200K01RJ1",
		"amount":        "5000",
		"start_date":    "2024-03-10",
		"frequency":     "monthly",
	})
	require.NoError(t, err)
	return p
}

func TestServer_InstallmentLifecycle(t *testing.T) {
	h := newHarness(t)
	c := h.client(testToken)
	ctx := context.Background()

	p := createTestPlan(t, c)
	planID := p["id"].(string)
	assert.Equal(t, "MONTHLY", p["frequency"])
	assert.Equal(t, true, p["active"])
	assert.Equal(t, "0", p["units"])

	summary, err := c.RunScheduler(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, summary["incomplete"])
	assert.EqualValues(t, 1, summary["total_plans"])
	assert.EqualValues(t, 1, summary["scheduled"])

	listed, err := c.ListRecords(ctx, planID)
	require.NoError(t, err)
	records := listed["records"].([]any)
	require.Len(t, records, 1)
	record := records[0].(map[string]any)
	assert.Equal(t, "2024-03-10", record["due_date"])
	assert.Equal(t, "PENDING", record["state"])

	_, err = c.RecordPrice(ctx, "INF200K01RJ1", "2024-03-10", "50")
	require.NoError(t, err)
	_, err = c.RecordPrice(ctx, "INF200K01RJ1", "2024-03-11T15:30:00Z", "51.25")
	require.NoError(t, err)

	history, err := c.ListPrices(ctx, "INF200K01RJ1", "2024-03-01", "2024-03-10")
	require.NoError(t, err)
	points := history["points"].([]any)
	require.Len(t, points, 1, "a bare end date covers its whole day but not the next")
	assert.Equal(t, "50", points[0].(map[string]any)["price"])

	res, err := c.TransitionRecord(ctx, record["id"].(string), "PAID")
	require.NoError(t, err)
	assert.Equal(t, false, res["no_op"])
	assert.Equal(t, "100", res["units_bought"])
	assert.Equal(t, "PAID", res["record"].(map[string]any)["state"])
	assert.Equal(t, "100", res["plan"].(map[string]any)["units"])

	again, err := c.TransitionRecord(ctx, record["id"].(string), "PAID")
	require.NoError(t, err)
	assert.Equal(t, true, again["no_op"])
	assert.Equal(t, "100", again["plan"].(map[string]any)["units"])

	st, err := c.GetPlanStatus(ctx, planID)
	require.NoError(t, err)
	health := st["health"].(map[string]any)
	assert.Equal(t, "ON_TRACK", health["status"])
	assert.EqualValues(t, 1, health["paid_periods"])

	mv, err := c.GetMarketValue(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, "5125", mv["market_value"])
	assert.Equal(t, "125", mv["gain"])

	sent, err := c.SendReminders(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, sent["due_tomorrow"])
	assert.EqualValues(t, 0, sent["failed"])

	userID := p["user_id"].(string)
	inbox, err := c.ListNotifications(ctx, userID, true)
	require.NoError(t, err)
	notes := inbox["notifications"].([]any)
	require.Len(t, notes, 1)
	note := notes[0].(map[string]any)
	assert.Equal(t, "DUE_TOMORROW", note["kind"])
	assert.Equal(t, planID, note["plan_id"])
	assert.Equal(t, false, note["read"])
	assert.Contains(t, note["message"], "due tomorrow (2024-04-10)")

	noteID := note["id"].(string)
	err = c.MarkNotificationRead(ctx, noteID, uuid.NewString())
	assert.Equal(t, codes.NotFound, status.Code(err), "another user cannot mark it")
	require.NoError(t, c.MarkNotificationRead(ctx, noteID, userID))

	inbox, err = c.ListNotifications(ctx, userID, true)
	require.NoError(t, err)
	assert.Empty(t, inbox["notifications"])

	inbox, err = c.ListNotifications(ctx, userID, false)
	require.NoError(t, err)
	require.Len(t, inbox["notifications"].([]any), 1)
	assert.Equal(t, true, inbox["notifications"].([]any)[0].(map[string]any)["read"])
}

func TestServer_UpdateAndListUserPlans(t *testing.T) {
	h := newHarness(t)
	c := h.client(testToken)
	ctx := context.Background()

	p := createTestPlan(t, c)
	updated, err := c.UpdatePlan(ctx, map[string]any{
		"plan_id": p["id"],
		"amount":  "7500",
		"active":  false,
	})
	require.NoError(t, err)
	assert.Equal(t, "7500", updated["amount"])
	assert.Equal(t, "7500", updated["invested_amount"])
	assert.Equal(t, false, updated["active"])

	listed, err := c.ListUserPlanStatus(ctx, p["user_id"].(string))
	require.NoError(t, err)
	assert.Len(t, listed["plans"].([]any), 1)

	require.NoError(t, c.DeletePlan(ctx, p["id"].(string)))
	_, err = c.GetPlanStatus(ctx, p["id"].(string))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestServer_ErrorCodes(t *testing.T) {
	h := newHarness(t)
	c := h.client(testToken)
	ctx := context.Background()

	p := createTestPlan(t, c)
	planID := p["id"].(string)
	_, err := c.RunScheduler(ctx)
	require.NoError(t, err)
	listed, err := c.ListRecords(ctx, planID)
	require.NoError(t, err)
	recordID := listed["records"].([]any)[0].(map[string]any)["id"].(string)

	tests := []struct {
		name string
		call func() error
		code codes.Code
	}{
		{
			name: "malformed record id",
			call: func() error { _, err := c.TransitionRecord(ctx, "not-a-uuid", "PAID"); return err },
			code: codes.InvalidArgument,
		},
		{
			name: "unknown target state",
			call: func() error { _, err := c.TransitionRecord(ctx, recordID, "REFUNDED"); return err },
			code: codes.InvalidArgument,
		},
		{
			name: "unknown record",
			call: func() error { _, err := c.TransitionRecord(ctx, uuid.NewString(), "PAID"); return err },
			code: codes.NotFound,
		},
		{
			name: "no price recorded",
			call: func() error { _, err := c.TransitionRecord(ctx, recordID, "PAID"); return err },
			code: codes.FailedPrecondition,
		},
		{
			name: "plan with ledger records",
			call: func() error { return c.DeletePlan(ctx, planID) },
			code: codes.Aborted,
		},
		{
			name: "bad frequency",
			call: func() error {
				_, err := c.CreatePlan(ctx, map[string]any{
					"user_id":       uuid.NewString(),
					"instrument_id": "INF200K01RJ1",
					"amount":        "5000",
					"start_date":    "2024-03-10",
					"frequency":     "daily",
				})
				return err
			},
			code: codes.InvalidArgument,
		},
		{
			name: "inverted price range",
			call: func() error { _, err := c.ListPrices(ctx, "INF200K01RJ1", "2024-03-10", "2024-03-01"); return err },
			code: codes.InvalidArgument,
		},
		{
			name: "non-positive price",
			call: func() error { _, err := c.RecordPrice(ctx, "INF200K01RJ1", "2024-03-10", "0"); return err },
			code: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))
		})
	}

	// The failed settlement left the record untouched
	listed, err = c.ListRecords(ctx, planID)
	require.NoError(t, err)
	assert.Equal(t, "PENDING", listed["records"].([]any)[0].(map[string]any)["state"])
}

func TestServer_InterruptedRunKeepsSummary(t *testing.T) {
	plans := new(mocks.PlanRepository)
	plans.On("ListActive", mock.Anything).Return([]*domain.Plan{
		{ID: uuid.New(), Active: true},
		{ID: uuid.New(), Active: true},
	}, nil)
	srv := &Server{SchedulerService: scheduler.NewSchedulerService(plans, new(mocks.LedgerRepository), zerolog.Nop())}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := srv.RunScheduler(ctx, &emptypb.Empty{})
	require.NoError(t, err)
	fields := res.GetFields()
	assert.True(t, fields["incomplete"].GetBoolValue())
	assert.Equal(t, context.Canceled.Error(), fields["error"].GetStringValue())
	assert.EqualValues(t, 2, fields["total_plans"].GetNumberValue())
	assert.EqualValues(t, 2, fields["undispatched"].GetNumberValue())
	assert.Zero(t, fields["scheduled"].GetNumberValue())
}

func TestServer_RunSchedulerListingFailure(t *testing.T) {
	plans := new(mocks.PlanRepository)
	plans.On("ListActive", mock.Anything).Return(nil, assert.AnError)
	srv := &Server{SchedulerService: scheduler.NewSchedulerService(plans, new(mocks.LedgerRepository), zerolog.Nop())}

	res, err := srv.RunScheduler(context.Background(), &emptypb.Empty{})
	assert.Nil(t, res)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestServer_RequiresToken(t *testing.T) {
	h := newHarness(t)

	_, err := h.client("").RunScheduler(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = h.client("wrong").RunScheduler(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		code codes.Code
	}{
		{domain.InvalidInput("op", "bad"), codes.InvalidArgument},
		{domain.NewError(domain.KindNotFound, "op", "missing"), codes.NotFound},
		{domain.NewError(domain.KindValuationUnavailable, "op", "no price"), codes.FailedPrecondition},
		{domain.NewError(domain.KindStorageConflict, "op", "raced"), codes.Aborted},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{assert.AnError, codes.Internal},
		{status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, status.Code(mapError(tt.err)), tt.err.Error())
	}
	assert.NoError(t, mapError(nil))
}
