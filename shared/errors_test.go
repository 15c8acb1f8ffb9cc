package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewServiceError(ErrorCategoryNetwork, "AUCTION_UNAVAILABLE", "auction dataset unavailable",
		"AuctionFetcher", "Fetch", true, cause)

	assert.Equal(t, "[network:AUCTION_UNAVAILABLE] auction dataset unavailable: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryableError(err))
	assert.True(t, HasCategory(fmt.Errorf("run failed: %w", err), ErrorCategoryNetwork))
	assert.False(t, HasCategory(err, ErrorCategoryValidation))
}

func TestWrapErrorKeepsServiceErrorCategory(t *testing.T) {
	inner := NewServiceError(ErrorCategoryValidation, "MISSING_COLUMNS", "missing columns", "Engine", "Resolve", false, nil)

	wrapped := WrapError(inner, ErrorCategoryProcessing, "OTHER", "Job", "Run", true)
	assert.Equal(t, ErrorCategoryValidation, wrapped.Category)
	assert.Equal(t, "Job", wrapped.ServiceName)
	assert.False(t, wrapped.IsRetryable())

	assert.Nil(t, WrapError(nil, ErrorCategoryProcessing, "X", "Job", "Run", false))

	plain := WrapError(errors.New("boom"), ErrorCategoryProcessing, "BOOM", "Job", "Run", false)
	assert.Equal(t, ErrorCategoryProcessing, plain.Category)
	assert.Equal(t, "boom", plain.Message)
}

func TestIsRetryableErrorHeuristics(t *testing.T) {
	assert.False(t, IsRetryableError(nil))
	assert.True(t, IsRetryableError(errors.New("read tcp: i/o timeout")))
	assert.True(t, IsRetryableError(errors.New("503 Service Unavailable")))
	assert.False(t, IsRetryableError(errors.New("404 not found")))
}

func TestWithDetails(t *testing.T) {
	err := NewServiceError(ErrorCategoryValidation, "MISSING_COLUMNS", "missing", "Engine", "Resolve", false, nil).
		WithDetails(map[string]interface{}{"missing": []string{"公司代號"}})

	details, ok := err.Details.(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, []string{"公司代號"}, details["missing"])
}
