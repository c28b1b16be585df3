package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client is the client API for the installment service.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient wraps a connection. A non-empty token is sent as the authorization header.
func NewClient(cc grpc.ClientConnInterface, token string) *Client {
	return &Client{cc: cc, token: token}
}

func (c *Client) withAuth(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", c.token)
}

func (c *Client) invokeStruct(ctx context.Context, method string, in any) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(c.withAuth(ctx), fullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func (c *Client) invokeFields(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	return c.invokeStruct(ctx, method, in)
}

// RunScheduler triggers one scheduler run and returns its summary
func (c *Client) RunScheduler(ctx context.Context) (map[string]any, error) {
	return c.invokeStruct(ctx, "RunScheduler", &emptypb.Empty{})
}

// TransitionRecord moves a ledger record to state
func (c *Client) TransitionRecord(ctx context.Context, recordID, state string) (map[string]any, error) {
	return c.invokeFields(ctx, "TransitionRecord", map[string]any{
		"record_id": recordID,
		"state":     state,
	})
}

// ListRecords lists the ledger records of a plan
func (c *Client) ListRecords(ctx context.Context, planID string) (map[string]any, error) {
	return c.invokeStruct(ctx, "ListRecords", wrapperspb.String(planID))
}

// GetPlanStatus returns a plan and its health
func (c *Client) GetPlanStatus(ctx context.Context, planID string) (map[string]any, error) {
	return c.invokeStruct(ctx, "GetPlanStatus", wrapperspb.String(planID))
}

// ListUserPlanStatus returns every plan of a user with its health
func (c *Client) ListUserPlanStatus(ctx context.Context, userID string) (map[string]any, error) {
	return c.invokeStruct(ctx, "ListUserPlanStatus", wrapperspb.String(userID))
}

// CreatePlan creates a plan from request fields (see Server.CreatePlan)
func (c *Client) CreatePlan(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.invokeFields(ctx, "CreatePlan", fields)
}

// UpdatePlan edits a plan from request fields (see Server.UpdatePlan)
func (c *Client) UpdatePlan(ctx context.Context, fields map[string]any) (map[string]any, error) {
	return c.invokeFields(ctx, "UpdatePlan", fields)
}

// DeletePlan removes a plan that has no ledger records
func (c *Client) DeletePlan(ctx context.Context, planID string) error {
	return c.cc.Invoke(c.withAuth(ctx), fullMethod("DeletePlan"), wrapperspb.String(planID), new(emptypb.Empty))
}

// RecordPrice stores a price point
func (c *Client) RecordPrice(ctx context.Context, instrumentID, asOf, price string) (map[string]any, error) {
	return c.invokeFields(ctx, "RecordPrice", map[string]any{
		"instrument_id": instrumentID,
		"as_of":         asOf,
		"price":         price,
	})
}

// ListPrices lists price points between from and to, inclusive
func (c *Client) ListPrices(ctx context.Context, instrumentID, from, to string) (map[string]any, error) {
	return c.invokeFields(ctx, "ListPrices", map[string]any{
		"instrument_id": instrumentID,
		"from":          from,
		"to":            to,
	})
}

// GetMarketValue values a plan's units at the latest price
func (c *Client) GetMarketValue(ctx context.Context, planID string) (map[string]any, error) {
	return c.invokeStruct(ctx, "GetMarketValue", wrapperspb.String(planID))
}

// SendReminders computes and delivers reminders
func (c *Client) SendReminders(ctx context.Context) (map[string]any, error) {
	return c.invokeStruct(ctx, "SendReminders", &emptypb.Empty{})
}

// ListNotifications lists a user's notifications, newest first
func (c *Client) ListNotifications(ctx context.Context, userID string, unreadOnly bool) (map[string]any, error) {
	return c.invokeFields(ctx, "ListNotifications", map[string]any{
		"user_id":     userID,
		"unread_only": unreadOnly,
	})
}

// MarkNotificationRead flags one of the user's notifications as read
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID, userID string) error {
	in, err := structpb.NewStruct(map[string]any{
		"notification_id": notificationID,
		"user_id":         userID,
	})
	if err != nil {
		return err
	}
	return c.cc.Invoke(c.withAuth(ctx), fullMethod("MarkNotificationRead"), in, new(emptypb.Empty))
}
