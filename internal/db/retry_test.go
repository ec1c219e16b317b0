package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"
)

func writeConflict() error {
	return mongo.CommandError{
		Code:    112,
		Message: "WriteConflict error: this operation conflicted with another operation",
		Labels:  []string{driver.TransientTransactionError},
	}
}

var errStale = errors.New("document changed concurrently")

func retryStale(err error) bool { return errors.Is(err, errStale) }

func duplicateKey() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: test.reviews index: listing_id_1_author_id_1",
	}}}
}

func TestWithRetries_SuccessfulFirstAttempt(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return nil
	}, 3, retryStale)

	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	expected := errors.New("some other error")
	err := WithRetries(func() error {
		calls++
		return expected
	}, 3, retryStale)

	assert.ErrorIs(t, err, expected)
	assert.Equal(t, 1, calls)
}

func TestWithRetries_ExhaustRetries(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		return errStale
	}, 2, retryStale)

	assert.Error(t, err)
	assert.ErrorIs(t, err, errStale)
	assert.Equal(t, 3, calls)
}

func TestWithRetries_ConflictResolves(t *testing.T) {
	calls := 0
	err := WithRetries(func() error {
		calls++
		if calls < 3 {
			return errStale
		}
		return nil
	}, 3, retryStale)

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestIsMongoDuplicateKeyError(t *testing.T) {
	assert.True(t, IsMongoDuplicateKeyError(duplicateKey()))
	assert.False(t, IsMongoDuplicateKeyError(writeConflict()))
	assert.False(t, IsMongoDuplicateKeyError(errors.New("E11000 lookalike")))
}
