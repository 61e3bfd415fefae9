package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrIteratorDone is returned by Next after the last item.
var ErrIteratorDone = errors.New("no more items")

// DefaultPageSize is used by PageIterator when no page size is given.
const DefaultPageSize = 25

// PageIterator walks every page of a GetAll by advancing offset. Each
// page's Data must be a JSON array of T.
type PageIterator[T any] struct {
	ctx          context.Context
	client       ResourceClient
	resourceName string
	params       *Query
	versionType  string
	pageSize     int

	offset int
	total  int
	items  []T
	index  int
	done   bool
	err    error
}

// NewPageIterator creates an iterator; no request is sent until HasNext or Next.
func NewPageIterator[T any](ctx context.Context, client ResourceClient, resourceName string, params *Query, pageSize int, versionType string) *PageIterator[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &PageIterator[T]{
		ctx:          ctx,
		client:       client,
		resourceName: resourceName,
		params:       params,
		versionType:  versionType,
		pageSize:     pageSize,
	}
}

// HasNext reports whether Next will return an item. A fetch error makes it
// return false; Err then reports the error.
func (it *PageIterator[T]) HasNext() bool {
	if it.index < len(it.items) {
		return true
	}

	if it.done || it.err != nil {
		return false
	}

	it.err = it.fetch()

	return it.err == nil && it.index < len(it.items)
}

// Next returns the next item.
func (it *PageIterator[T]) Next() (*T, error) {
	if !it.HasNext() {
		if it.err != nil {
			return nil, it.err
		}

		return nil, ErrIteratorDone
	}

	item := it.items[it.index]
	it.index++

	return &item, nil
}

// Err returns the error that stopped iteration, if any.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// TotalCount is the X-Total-Count of the last fetched page.
func (it *PageIterator[T]) TotalCount() int {
	return it.total
}

// All drains the iterator.
func (it *PageIterator[T]) All() ([]T, error) {
	var all []T

	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return all, err
		}

		all = append(all, *item)
	}

	return all, it.err
}

// ForEach calls fn for every remaining item and stops at the first error.
func (it *PageIterator[T]) ForEach(fn func(*T) error) error {
	for it.HasNext() {
		item, err := it.Next()
		if err != nil {
			return err
		}

		err = fn(item)
		if err != nil {
			return err
		}
	}

	return it.err
}

func (it *PageIterator[T]) fetch() error {
	page, err := it.client.GetAll(it.ctx, it.resourceName, it.params, it.offset, it.pageSize, it.versionType)
	if err != nil {
		return err
	}

	var items []T

	err = json.Unmarshal([]byte(page.Data), &items)
	if err != nil {
		return fmt.Errorf("%w: decoding %s page at offset %d: %w", ErrMalformedResponse, it.resourceName, it.offset, err)
	}

	it.items = items
	it.index = 0
	it.total = page.TotalCount
	it.offset += len(items)

	// The hub may cap the page size, so a short page ends iteration only
	// when X-Total-Count is absent.
	switch {
	case len(items) == 0:
		it.done = true
	case page.TotalCount > 0:
		it.done = it.offset >= page.TotalCount
	default:
		it.done = len(items) < it.pageSize
	}

	return nil
}
