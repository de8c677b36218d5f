package gcp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

// ClassifyListError sorts a listing failure into the three outcomes the
// reconciler acts on. Unknown errors are Transient so they get retried.
func ClassifyListError(err error) aggregates.ErrorCode {
	if err == nil {
		return ""
	}
	if code := aggregates.CodeOf(err); code == aggregates.CodeRateLimited ||
		code == aggregates.CodeTransient || code == aggregates.CodeFatal {
		return code
	}
	if errors.Is(err, storage.ErrBucketNotExist) || errors.Is(err, storage.ErrObjectNotExist) {
		return aggregates.CodeFatal
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		for _, item := range gerr.Errors {
			switch strings.TrimSpace(item.Reason) {
			case "rateLimitExceeded", "userRateLimitExceeded":
				return aggregates.CodeRateLimited
			}
		}
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			return aggregates.CodeRateLimited
		case gerr.Code == http.StatusRequestTimeout:
			return aggregates.CodeTransient
		case gerr.Code >= 500:
			return aggregates.CodeTransient
		case gerr.Code == http.StatusBadRequest,
			gerr.Code == http.StatusUnauthorized,
			gerr.Code == http.StatusForbidden,
			gerr.Code == http.StatusNotFound:
			return aggregates.CodeFatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return aggregates.CodeTransient
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return aggregates.CodeTransient
	}
	return aggregates.CodeTransient
}

func classifiedError(op string, err error) error {
	if err == nil {
		return nil
	}
	return aggregates.Wrap(ClassifyListError(err), op, err)
}
