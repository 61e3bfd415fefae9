package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultBatchConcurrency bounds in-flight batch operations when none is given.
const DefaultBatchConcurrency = 5

// BatchOperation is one unit of work in a batch.
type BatchOperation struct {
	ID       string
	Run      func(ctx context.Context, client ResourceClient) (interface{}, error)
	Callback func(result *BatchResult)
}

// BatchResult is the outcome of one BatchOperation.
type BatchResult struct {
	ID       string
	Success  bool
	Data     interface{}
	Error    error
	Duration time.Duration
}

// BatchExecutor runs operations concurrently against one client. All
// operations share the client's session, so at most one of them triggers
// an authentication round trip.
type BatchExecutor struct {
	client      ResourceClient
	concurrency int
	timeout     time.Duration
}

// NewBatchExecutor creates a new batch executor.
func NewBatchExecutor(client ResourceClient, concurrency int) *BatchExecutor {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}

	return &BatchExecutor{
		client:      client,
		concurrency: concurrency,
	}
}

// SetTimeout bounds each operation. Zero means no per-operation timeout.
func (b *BatchExecutor) SetTimeout(timeout time.Duration) {
	b.timeout = timeout
}

// Execute runs operations and returns their results in input order.
// Operations not started before ctx ends fail with ctx's error.
func (b *BatchExecutor) Execute(ctx context.Context, operations []BatchOperation) ([]BatchResult, error) {
	results := make([]BatchResult, len(operations))

	var waitGroup sync.WaitGroup

	semaphore := make(chan struct{}, b.concurrency)

	for index, operation := range operations {
		waitGroup.Add(1)

		go func() {
			defer waitGroup.Done()

			if !acquire(ctx, semaphore) {
				results[index] = BatchResult{ID: operation.ID, Error: ctx.Err()}
				b.notify(operation, &results[index])

				return
			}

			defer func() { <-semaphore }()

			opCtx := ctx

			if b.timeout > 0 {
				var cancel context.CancelFunc

				opCtx, cancel = context.WithTimeout(ctx, b.timeout)
				defer cancel()
			}

			start := time.Now()
			data, err := operation.Run(opCtx, b.client)

			results[index] = BatchResult{
				ID:       operation.ID,
				Success:  err == nil,
				Data:     data,
				Error:    err,
				Duration: time.Since(start),
			}
			b.notify(operation, &results[index])
		}()
	}

	waitGroup.Wait()

	return results, ctx.Err()
}

// acquire takes a slot unless ctx is already done or ends while waiting.
func acquire(ctx context.Context, semaphore chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}

	select {
	case semaphore <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *BatchExecutor) notify(operation BatchOperation, result *BatchResult) {
	if operation.Callback != nil {
		operation.Callback(result)
	}
}

// BatchBuilder helps build batch operations.
type BatchBuilder struct {
	operations []BatchOperation
}

// NewBatchBuilder creates a new batch builder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{}
}

// AddGet adds a Get; the result Data is the *Envelope.
func (b *BatchBuilder) AddGet(id, resourceID, resourceName, versionType string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id,
		Run: func(ctx context.Context, client ResourceClient) (interface{}, error) {
			return client.Get(ctx, resourceID, resourceName, versionType)
		},
	})
}

// AddGetAll adds one page of a GetAll; the result Data is the *Envelope.
func (b *BatchBuilder) AddGetAll(id, resourceName string, params *Query, offset, limit int, versionType string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id,
		Run: func(ctx context.Context, client ResourceClient) (interface{}, error) {
			return client.GetAll(ctx, resourceName, params.Clone(), offset, limit, versionType)
		},
	})
}

// AddCreate adds a Create; the result Data is the raw JSON the hub returned.
func (b *BatchBuilder) AddCreate(id string, model Resource) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id,
		Run: func(ctx context.Context, client ResourceClient) (interface{}, error) {
			var raw json.RawMessage

			err := client.Create(ctx, model, &raw)
			if err != nil {
				return nil, err
			}

			return raw, nil
		},
	})
}

// AddUpdate adds an Update; the result Data is the raw JSON the hub returned.
func (b *BatchBuilder) AddUpdate(id string, model Resource, resourceID string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id,
		Run: func(ctx context.Context, client ResourceClient) (interface{}, error) {
			var raw json.RawMessage

			err := client.Update(ctx, model, resourceID, &raw)
			if err != nil {
				return nil, err
			}

			return raw, nil
		},
	})
}

// AddDelete adds a Delete without a body.
func (b *BatchBuilder) AddDelete(id, resourceID, resourceName, versionType string) *BatchBuilder {
	return b.AddOperation(BatchOperation{
		ID: id,
		Run: func(ctx context.Context, client ResourceClient) (interface{}, error) {
			return nil, client.Delete(ctx, nil, resourceID, resourceName, versionType, nil)
		},
	})
}

// AddOperation adds a custom operation.
func (b *BatchBuilder) AddOperation(operation BatchOperation) *BatchBuilder {
	b.operations = append(b.operations, operation)

	return b
}

// Build returns the operations added so far.
func (b *BatchBuilder) Build() []BatchOperation {
	return b.operations
}
