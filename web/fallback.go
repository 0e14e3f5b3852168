package web

import (
	"context"
	"errors"
	"fmt"

	"github.com/richinex/sleuth/tools"
)

// Fallback tries each reader in order and returns the first page read.
type Fallback struct {
	readers []tools.PageReader
}

// NewFallback chains readers. Nil readers are skipped.
func NewFallback(readers ...tools.PageReader) *Fallback {
	f := &Fallback{}
	for _, r := range readers {
		if r != nil {
			f.readers = append(f.readers, r)
		}
	}
	return f
}

// Read implements tools.PageReader.
func (f *Fallback) Read(ctx context.Context, url string) (string, error) {
	if len(f.readers) == 0 {
		return "", fmt.Errorf("no page readers configured")
	}
	var errs []error
	for _, r := range f.readers {
		content, err := r.Read(ctx, url)
		if err == nil && content != "" {
			return content, nil
		}
		if err == nil {
			err = ErrEmptyPage
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// Verify Fallback implements tools.PageReader
var _ tools.PageReader = (*Fallback)(nil)
