package main

import (
	"context"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PaulBabatuyi/messenger-sync/internal/data"
	"github.com/PaulBabatuyi/messenger-sync/internal/media"
	"github.com/PaulBabatuyi/messenger-sync/internal/store"
)

// toStatus maps data and media errors to gRPC status codes. Unexpected
// errors are logged and reported as Internal without details.
func toStatus(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return status.Errorf(codes.Canceled, "%s: canceled", op)
	case errors.Is(err, context.DeadlineExceeded):
		return status.Errorf(codes.DeadlineExceeded, "%s: deadline exceeded", op)
	case errors.Is(err, data.ErrInvalidIdentity):
		return status.Errorf(codes.InvalidArgument, "%s: invalid identity", op)
	case errors.Is(err, data.ErrUserNotFound):
		return status.Errorf(codes.NotFound, "%s: user not found", op)
	case errors.Is(err, data.ErrConversationNotFound):
		return status.Errorf(codes.NotFound, "%s: conversation not found", op)
	case errors.Is(err, data.ErrSummaryNotFound):
		return status.Errorf(codes.NotFound, "%s: conversation summary not found", op)
	case errors.Is(err, data.ErrFailedToFetch):
		return status.Errorf(codes.NotFound, "%s: user directory unavailable", op)
	case errors.Is(err, store.ErrNotFound):
		return status.Errorf(codes.NotFound, "%s: not found", op)
	case errors.Is(err, data.ErrWriteConflict):
		return status.Errorf(codes.Aborted, "%s: concurrent update, retry", op)
	case errors.Is(err, media.ErrInvalidPicture):
		return status.Errorf(codes.InvalidArgument, "%s: not a valid picture", op)
	case errors.Is(err, media.ErrFailedToGetDownloadURL):
		return status.Errorf(codes.NotFound, "%s: no download url", op)
	}
	glog.Errorf("api: %s: %v", op, err)
	return status.Errorf(codes.Internal, "%s failed", op)
}
