package grpc

import (
	"context"
	"slices"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Metadata keys set by the auth interceptor from the validated token.
const (
	MDUserID    = "user-id"
	MDUserPhone = "user-phone"
	MDUserRoles = "user-roles"
)

// GetUserIDFromContext extracts the user ID from the gRPC metadata.
// It expects a header named "user-id".
func GetUserIDFromContext(ctx context.Context) (int32, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return 0, status.Errorf(codes.Unauthenticated, "metadata is not provided")
	}

	userIDs := md.Get(MDUserID)
	if len(userIDs) == 0 {
		return 0, status.Errorf(codes.Unauthenticated, "user_id is not provided in metadata")
	}

	userID, err := strconv.ParseInt(userIDs[0], 10, 32)
	if err != nil {
		return 0, status.Errorf(codes.InvalidArgument, "invalid user_id format: %v", err)
	}
	if userID == 0 {
		return 0, status.Errorf(codes.PermissionDenied, "a user token is required")
	}

	return int32(userID), nil
}

// GetPhoneFromContext returns the phone number carried by the caller's token.
func GetPhoneFromContext(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	phones := md.Get(MDUserPhone)
	if len(phones) == 0 || phones[0] == "" {
		return "", status.Errorf(codes.Unauthenticated, "phone is not provided in metadata")
	}
	return phones[0], nil
}

func HasRole(ctx context.Context, roles ...string) bool {
	md, _ := metadata.FromIncomingContext(ctx)
	held := md.Get(MDUserRoles)
	for _, r := range roles {
		if slices.Contains(held, r) {
			return true
		}
	}
	return false
}
