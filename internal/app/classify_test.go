package app_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"listing_sync/internal/app"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want app.FailureClass
	}{
		{"bad request", statusErr(400), app.RecreateRequired},
		{"method not allowed wrapped", fmt.Errorf("patch draft: %w", statusErr(405)), app.RecreateRequired},
		{"rate limited", statusErr(429), app.Retryable},
		{"bad gateway", statusErr(502), app.Retryable},
		{"unavailable", statusErr(503), app.Retryable},
		{"gateway timeout", statusErr(504), app.Retryable},
		{"server error", statusErr(500), app.Fatal},
		{"not found", statusErr(404), app.Fatal},
		{"unauthorized", statusErr(401), app.Fatal},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), app.Retryable},
		{"plain", errors.New("boom"), app.Fatal},
		{"nil", nil, app.Fatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, app.Classify(tc.err))
		})
	}
	assert.Equal(t, "recreate_required", app.RecreateRequired.String())
}
