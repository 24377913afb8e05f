// Package seed provides helpers to create demo data through the service layer,
// so every seeded record honours the same invariants as real traffic.
package seed

import (
	"fmt"
	"strings"

	"socialhub/internal/models"
	"socialhub/internal/service"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds service inputs populated with fake but valid data.
type Factory struct {
	faker *gofakeit.Faker
}

// NewFactory creates a Factory. A zero seed draws from the clock.
func NewFactory(seed int64) *Factory {
	return &Factory{faker: gofakeit.New(seed)}
}

// Username returns a name that passes username validation.
func (f *Factory) Username() string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return -1
	}, f.faker.Username())
	if len(base) > 24 {
		base = base[:24]
	}
	return fmt.Sprintf("%s_%d", strings.ToLower(base), f.faker.Number(100, 99999))
}

// Identity builds a registration for a fresh seeded account.
func (f *Factory) Identity() service.RegisterInput {
	username := f.Username()
	return service.RegisterInput{
		ExternalID:      "seed|" + username,
		Username:        username,
		Bio:             f.faker.Sentence(10),
		ProfilePhotoRef: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", f.faker.UUID()),
	}
}

// Post builds a post by authorID, alternating image and text content.
func (f *Factory) Post(authorID uint) service.CreatePostInput {
	if f.faker.Bool() {
		return service.CreatePostInput{
			AuthorID: authorID,
			Kind:     models.PostKindImage,
			Body:     fmt.Sprintf("https://picsum.photos/seed/%s/800/800", f.faker.UUID()),
			Caption:  f.faker.Sentence(8),
		}
	}
	return service.CreatePostInput{
		AuthorID: authorID,
		Kind:     models.PostKindText,
		Body:     f.faker.Paragraph(1, 3, 8, " "),
	}
}

// StoryImage returns an image reference for a story.
func (f *Factory) StoryImage() string {
	return fmt.Sprintf("https://picsum.photos/seed/story-%s/720/1280", f.faker.UUID())
}

// Comment returns comment text.
func (f *Factory) Comment() string {
	return f.faker.Sentence(f.faker.Number(3, 12))
}

// Pick returns n distinct indexes in [0, total) excluding skip.
func (f *Factory) Pick(total, n, skip int) []int {
	candidates := make([]int, 0, total)
	for i := 0; i < total; i++ {
		if i != skip {
			candidates = append(candidates, i)
		}
	}
	f.faker.ShuffleInts(candidates)
	if n > len(candidates) {
		n = len(candidates)
	}
	return candidates[:n]
}

// Chance returns true with probability p.
func (f *Factory) Chance(p float64) bool {
	return f.faker.Float64Range(0, 1) < p
}
