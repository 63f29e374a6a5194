package mongo

import (
	"context"
	"fmt"
	"time"

	apperrors "ambulance/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

type TransactionFunc func(ctx mongo.SessionContext) error

type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client  *mongo.Client
	timeout time.Duration
	opts    *options.TransactionOptions
}

// NewTransactionManager bounds every transaction, commit included, by timeout. Zero means
// the caller's context is the only bound.
func NewTransactionManager(client *mongo.Client, timeout time.Duration) TransactionManager {
	return &mongoTransactionManager{
		client:  client,
		timeout: timeout,
		opts:    TransactionOptions(timeout),
	}
}

// TransactionOptions reads a majority snapshot from the primary and commits with majority
// write concern.
func TransactionOptions(timeout time.Duration) *options.TransactionOptions {
	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	if timeout > 0 {
		opts.SetMaxCommitTime(&timeout)
	}
	return opts
}

// ExecuteTransaction runs fn inside a session transaction, retrying on transient errors as
// the driver allows. AppErrors returned by fn abort the transaction and pass through unchanged.
func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(context.WithoutCancel(ctx))

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	}, m.opts)
	switch {
	case err == nil:
		return nil
	case apperrors.IsAppError(err):
		return err
	case ctx.Err() != nil:
		return fmt.Errorf("transaction timed out after %s: %w", m.timeout, err)
	default:
		return fmt.Errorf("transaction failed: %w", err)
	}
}
