package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// Retryable decides whether a failed operation may be attempted again.
type Retryable func(err error) bool

const DefaultMaxRetries = 3

// WithRetries attempts op up to maxRetries+1 times, sleeping with an incremental
// backoff between attempts. Errors the predicate rejects are returned immediately.
func WithRetries(op Operation, maxRetries int, retryable Retryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	return mongo.IsDuplicateKeyError(err)
}

// TxFunc is the body of a transaction. It must do all its reads and writes through sc.
type TxFunc func(sc mongo.SessionContext) (interface{}, error)

// InTransaction runs fn in a snapshot, majority-acknowledged transaction. The driver
// retries the whole body on transient errors and the commit on unknown results.
// Errors returned by fn are passed through unchanged.
func InTransaction(ctx context.Context, client *mongo.Client, fn TxFunc) (interface{}, error) {
	session, err := client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return session.WithTransaction(ctx, fn, txnOpts)
}
