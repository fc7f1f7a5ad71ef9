package grpc

import (
	"context"
	"errors"

	"nikosoko-backend/internal/domain"
	"nikosoko-backend/internal/logger"
	"nikosoko-backend/internal/security"
	"nikosoko-backend/internal/service"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrCodeInvalid):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrNotLeader):
		code = codes.PermissionDenied
	case errors.Is(err, service.ErrPhoneTaken):
		code = codes.AlreadyExists
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		code = codes.Unauthenticated
	case errors.Is(err, security.ErrWrongTokenType):
		code = codes.PermissionDenied
	case errors.Is(err, service.ErrCodeSpaceExhausted):
		code = codes.ResourceExhausted
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	default:
		logger.Error("Unhandled service error", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
