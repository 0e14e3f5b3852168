// Tool cache inspection commands.
//
// Information Hiding:
// - Cache opening and closing per command
// - Entry and statistics formatting

package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/richinex/sleuth/storage"
)

// CacheGet prints the entry stored under key ("search_v1:<query>" or "visit_v1:<url>").
func CacheGet(ctx context.Context, path, key string, w io.Writer) error {
	cache, err := storage.OpenCache(path)
	if err != nil {
		return fmt.Errorf("failed to open tool cache: %w", err)
	}
	defer cache.Close()

	entry, err := cache.Lookup(ctx, key)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Key: %s\n", entry.Key)
	fmt.Fprintf(w, "Stored: %s\n\n", entry.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, entry.Value)
	return nil
}

// CacheStats prints entry counts per namespace.
func CacheStats(ctx context.Context, path string, w io.Writer) error {
	cache, err := storage.OpenCache(path)
	if err != nil {
		return fmt.Errorf("failed to open tool cache: %w", err)
	}
	defer cache.Close()

	stats, err := cache.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Cache: %s\n", path)
	fmt.Fprintf(w, "Entries: %d (%d bytes)\n", stats.Entries, stats.Bytes)

	namespaces := make([]string, 0, len(stats.Namespaces))
	for ns := range stats.Namespaces {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)
	for _, ns := range namespaces {
		name := ns
		if name == "" {
			name = "(none)"
		}
		fmt.Fprintf(w, "  %s: %d\n", name, stats.Namespaces[ns])
	}
	return nil
}
