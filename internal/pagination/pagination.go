// Package pagination drains cursor-paginated list endpoints.
package pagination

import (
	"context"
	"errors"
	"fmt"
)

// ErrRepeatedToken is returned when the remote returns a continuation token
// that was already followed, which would otherwise loop forever.
var ErrRepeatedToken = errors.New("pagination: continuation token repeated")

// Page is one page of a list response.
type Page[T any] struct {
	Items     []T
	NextToken string // empty on the last page
}

// ListFunc fetches one page. An empty token requests the first page.
type ListFunc[T any] func(ctx context.Context, pageSize int, token string) (Page[T], error)

// CollectAll calls list until a page without a continuation token is returned
// and concatenates every page's items in order. There is no page cap.
// Any error aborts the collection and nothing is returned.
func CollectAll[T any](ctx context.Context, list ListFunc[T], pageSize int) ([]T, error) {
	var (
		all   []T
		token string
		seen  = make(map[string]struct{})
	)

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := list(ctx, pageSize, token)
		if err != nil {
			return nil, fmt.Errorf("list page %d: %w", page, err)
		}
		all = append(all, p.Items...)

		if p.NextToken == "" {
			return all, nil
		}
		if _, dup := seen[p.NextToken]; dup {
			return nil, fmt.Errorf("%w: %q after page %d", ErrRepeatedToken, p.NextToken, page)
		}
		seen[p.NextToken] = struct{}{}
		token = p.NextToken
	}
}
