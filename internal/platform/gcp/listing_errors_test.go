package gcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/yungbote/imagerate-backend/internal/domain/aggregates"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyListError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want aggregates.ErrorCode
	}{
		{name: "nil", err: nil, want: ""},
		{name: "429", err: &googleapi.Error{Code: http.StatusTooManyRequests}, want: aggregates.CodeRateLimited},
		{
			name: "rate limit reason on 403",
			err: &googleapi.Error{
				Code:   http.StatusForbidden,
				Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}},
			},
			want: aggregates.CodeRateLimited,
		},
		{name: "403", err: &googleapi.Error{Code: http.StatusForbidden}, want: aggregates.CodeFatal},
		{name: "404", err: &googleapi.Error{Code: http.StatusNotFound}, want: aggregates.CodeFatal},
		{name: "401", err: &googleapi.Error{Code: http.StatusUnauthorized}, want: aggregates.CodeFatal},
		{name: "400", err: &googleapi.Error{Code: http.StatusBadRequest}, want: aggregates.CodeFatal},
		{name: "503", err: &googleapi.Error{Code: http.StatusServiceUnavailable}, want: aggregates.CodeTransient},
		{name: "408", err: &googleapi.Error{Code: http.StatusRequestTimeout}, want: aggregates.CodeTransient},
		{name: "wrapped 500", err: fmt.Errorf("list: %w", &googleapi.Error{Code: 500}), want: aggregates.CodeTransient},
		{name: "bucket missing", err: storage.ErrBucketNotExist, want: aggregates.CodeFatal},
		{name: "deadline", err: context.DeadlineExceeded, want: aggregates.CodeTransient},
		{name: "net timeout", err: timeoutErr{}, want: aggregates.CodeTransient},
		{name: "unknown", err: errors.New("connection reset by peer"), want: aggregates.CodeTransient},
		{
			name: "already classified",
			err:  aggregates.NewError(aggregates.CodeFatal, "gcp.ListFolder", "gone", nil),
			want: aggregates.CodeFatal,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyListError(tc.err); got != tc.want {
				t.Fatalf("ClassifyListError: want=%q got=%q", tc.want, got)
			}
		})
	}
}
