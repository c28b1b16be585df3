package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "sipledger.v1.InstallmentService"

// InstallmentServiceServer is the server API for the installment service.
// Messages are protobuf well-known types; structured payloads travel as structpb.Struct
// with decimals encoded as strings.
type InstallmentServiceServer interface {
	RunScheduler(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	TransitionRecord(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecords(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetPlanStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ListUserPlanStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	CreatePlan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdatePlan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeletePlan(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	RecordPrice(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListPrices(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMarketValue(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	SendReminders(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListNotifications(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkNotificationRead(context.Context, *structpb.Struct) (*emptypb.Empty, error)
}

// RegisterInstallmentServiceServer registers srv on s
func RegisterInstallmentServiceServer(s grpc.ServiceRegistrar, srv InstallmentServiceServer) {
	s.RegisterService(&installmentServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }

func newStruct() *structpb.Struct { return new(structpb.Struct) }

func newStringValue() *wrapperspb.StringValue { return new(wrapperspb.StringValue) }

var installmentServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InstallmentServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("RunScheduler", newEmpty, InstallmentServiceServer.RunScheduler),
		unaryMethod("TransitionRecord", newStruct, InstallmentServiceServer.TransitionRecord),
		unaryMethod("ListRecords", newStringValue, InstallmentServiceServer.ListRecords),
		unaryMethod("GetPlanStatus", newStringValue, InstallmentServiceServer.GetPlanStatus),
		unaryMethod("ListUserPlanStatus", newStringValue, InstallmentServiceServer.ListUserPlanStatus),
		unaryMethod("CreatePlan", newStruct, InstallmentServiceServer.CreatePlan),
		unaryMethod("UpdatePlan", newStruct, InstallmentServiceServer.UpdatePlan),
		unaryMethod("DeletePlan", newStringValue, InstallmentServiceServer.DeletePlan),
		unaryMethod("RecordPrice", newStruct, InstallmentServiceServer.RecordPrice),
		unaryMethod("ListPrices", newStruct, InstallmentServiceServer.ListPrices),
		unaryMethod("GetMarketValue", newStringValue, InstallmentServiceServer.GetMarketValue),
		unaryMethod("SendReminders", newEmpty, InstallmentServiceServer.SendReminders),
		unaryMethod("ListNotifications", newStruct, InstallmentServiceServer.ListNotifications),
		unaryMethod("MarkNotificationRead", newStruct, InstallmentServiceServer.MarkNotificationRead),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "proto/sipledger/v1/installment.proto",
}

// unaryMethod builds the method descriptor protoc-gen-go-grpc would generate for one RPC.
func unaryMethod[Req, Resp proto.Message](
	name string,
	newReq func() Req,
	call func(InstallmentServiceServer, context.Context, Req) (Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := newReq()
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				out, err := call(srv.(InstallmentServiceServer), ctx, req.(Req))
				if err != nil {
					return nil, err
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
