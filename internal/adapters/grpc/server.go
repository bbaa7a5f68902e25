package grpc

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/viralforge/sala-escrow/internal/application"
	"github.com/viralforge/sala-escrow/internal/domain"
)

const serviceName = "viralforge.sala.v1.SalaInternalService"

// SalaInternalService is the read surface offered to other services.
type SalaInternalService interface {
	GetSala(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWalletBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type SalaInternalServer struct {
	service *application.Service
}

func NewSalaInternalServer(service *application.Service) *SalaInternalServer {
	return &SalaInternalServer{service: service}
}

func Register(server grpc.ServiceRegistrar, svc SalaInternalService) {
	server.RegisterService(&grpc.ServiceDesc{
		ServiceName: serviceName,
		HandlerType: (*SalaInternalService)(nil),
		Methods: []grpc.MethodDesc{
			{MethodName: "GetSala", Handler: unaryHandler("GetSala", svc.GetSala)},
			{MethodName: "GetWalletBalance", Handler: unaryHandler("GetWalletBalance", svc.GetWalletBalance)},
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "sala/v1/sala_internal.proto",
	}, svc)
}

func (s *SalaInternalServer) GetSala(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["sala_id"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "missing sala_id")
	}
	sala, err := s.service.GetAgreement(ctx, internalActor(), id)
	if err != nil {
		return nil, toStatus(err)
	}
	return toStruct(sala)
}

func (s *SalaInternalServer) GetWalletBalance(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	userID := req.GetFields()["user_id"].GetStringValue()
	if userID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing user_id")
	}
	wallet, err := s.service.GetWalletBalance(ctx, internalActor(), userID)
	if err != nil {
		return nil, toStatus(err)
	}
	resp, err := structpb.NewStruct(map[string]any{
		"user_id":   userID,
		"available": wallet.Available.StringFixed(2),
		"in_escrow": wallet.InEscrow.StringFixed(2),
		"in_hold":   wallet.InHold.StringFixed(2),
		"in_review": wallet.InReview.StringFixed(2),
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func internalActor() application.Actor {
	return application.Actor{SubjectID: "internal-grpc", Role: domain.RoleSystemName}
}

func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	resp, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build response: %v", err)
	}
	return resp, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, domain.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, domain.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

type unaryMethod func(context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(method string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		req := &structpb.Struct{}
		if err := dec(req); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(ctx, req)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + serviceName + "/" + method,
		}
		handler := func(ctx context.Context, req any) (any, error) {
			typed, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request type")
			}
			return call(ctx, typed)
		}
		return interceptor(ctx, req, info, handler)
	}
}
