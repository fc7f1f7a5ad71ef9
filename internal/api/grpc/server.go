package grpc

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"nikosoko-backend/internal/domain"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Package is the protobuf package every service is registered under.
const Package = "nikosoko.api.v1"

// UnaryMethod handles one RPC. Requests and responses travel as google.protobuf.Struct.
type UnaryMethod func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Service is implemented by every handler exposed over gRPC.
type Service interface {
	ServiceName() string
	Methods() map[string]UnaryMethod
}

// Describe builds the service descriptor for svc.
func Describe(svc Service) *grpc.ServiceDesc {
	fullName := Package + "." + svc.ServiceName()
	methods := svc.Methods()
	desc := &grpc.ServiceDesc{
		ServiceName: fullName,
		HandlerType: (*Service)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "nikosoko/api/v1/" + svc.ServiceName() + ".proto",
	}
	for _, name := range slices.Sorted(maps.Keys(methods)) {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: name,
			Handler:    unaryHandler("/"+fullName+"/"+name, methods[name]),
		})
	}
	return desc
}

func unaryHandler(fullMethod string, fn UnaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Register adds every service to s.
func Register(s *grpc.Server, svcs ...Service) {
	for _, svc := range svcs {
		s.RegisterService(Describe(svc), svc)
	}
}

// decode copies the request fields into the tagged struct v.
func decode(req *structpb.Struct, v any) error {
	raw, err := protojson.Marshal(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: malformed request: %v", domain.ErrInvalidArgument, err)
	}
	return nil
}

func encode(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(raw, out); err != nil {
		return nil, err
	}
	return out, nil
}

// respond wraps v under key. Informational errors are reported in the "notice" field
// alongside the unchanged entity instead of failing the call.
func respond(key string, v any, err error) (*structpb.Struct, error) {
	if err != nil && !domain.IsNotice(err) {
		return nil, toStatus(err)
	}
	body := map[string]any{key: v}
	if err != nil {
		body["notice"] = err.Error()
	}
	return encode(body)
}
