// Package generator defines the caption-generation collaborator. The
// pipeline only depends on this interface; the real provider lives
// outside the core and is wired in at startup.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/socialcap/profile-api/internal/domain"
)

// DefaultCount is the number of variants produced when the caller
// doesn't ask for a specific count.
const DefaultCount = 3

// Options tune one generation call.
type Options struct {
	Platform string
	Tone     string
	Count    int
	ImageRef string
}

// Generator produces caption variants from a finished profile's fields.
type Generator interface {
	Generate(ctx context.Context, fields domain.Fields, opts Options) ([]string, error)
}

// Static is a deterministic, provider-free Generator. It serves tests
// and runs where no external provider is configured.
type Static struct{}

// Generate formats simple template variants from the profile fields.
func (Static) Generate(_ context.Context, fields domain.Fields, opts Options) ([]string, error) {
	if fields.BusinessName == "" {
		return nil, fmt.Errorf("generator: business name is required")
	}
	count := opts.Count
	if count <= 0 {
		count = DefaultCount
	}

	offer := fields.ProductsServices
	if offer == "" {
		offer = fields.Description
	}

	templates := []string{
		"Discover %[1]s. %[2]s",
		"Meet %[1]s: %[2]s",
		"%[1]s is here for you. %[2]s",
		"Your next favorite: %[1]s. %[2]s",
	}

	var out []string
	for i := 0; i < count; i++ {
		line := fmt.Sprintf(templates[i%len(templates)], fields.BusinessName, offer)
		out = append(out, strings.TrimSpace(line))
	}
	return out, nil
}
