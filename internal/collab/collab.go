// Package collab defines the external collaborators the court engine depends
// on (text generation, reference lookup, persistence) and their adapters.
package collab

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PromptContext is the keyed input to a generation call. The "instruction"
// key carries the role instructions; every other key is labelled material.
type PromptContext map[string]string

// Reserved PromptContext keys.
const (
	KeyInstruction = "instruction"
	KeyRole        = "role"
)

// Generator produces text from a prompt context. Implementations must
// request zero-variance sampling so identical inputs give identical output.
type Generator interface {
	Generate(ctx context.Context, prompt PromptContext) (string, error)
}

// Searcher returns reference snippets for a query.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Persister writes a named artifact to durable storage and returns its path.
type Persister interface {
	Write(ctx context.Context, dir, name, content string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt PromptContext) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt PromptContext) (string, error) {
	return f(ctx, prompt)
}

// SearcherFunc adapts a function to the Searcher interface.
type SearcherFunc func(ctx context.Context, query string) (string, error)

// Search calls f.
func (f SearcherFunc) Search(ctx context.Context, query string) (string, error) {
	return f(ctx, query)
}

// ServiceError is a transient failure of a generation or lookup service
// (network, quota, 5xx). RetryGenerator retries these.
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service error: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// IsServiceError reports whether err wraps a *ServiceError.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}

// FilesystemError is a persistence failure. It is never retried.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem: %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Render flattens a prompt context into a single deterministic text: the
// role first, then every other non-instruction key in sorted order.
func Render(prompt PromptContext) string {
	keys := make([]string, 0, len(prompt))
	for k := range prompt {
		if k == KeyInstruction || k == KeyRole {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if role := prompt[KeyRole]; role != "" {
		fmt.Fprintf(&b, "ROLE: %s\n\n", role)
	}
	for _, k := range keys {
		v := strings.TrimSpace(prompt[k])
		if v == "" {
			v = "(none)"
		}
		fmt.Fprintf(&b, "%s:\n%s\n\n", strings.ToUpper(k), v)
	}
	return strings.TrimRight(b.String(), "\n")
}
