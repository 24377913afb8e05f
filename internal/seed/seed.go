package seed

import (
	"context"
	"fmt"

	"socialhub/internal/models"
	"socialhub/internal/observability"
	"socialhub/internal/service"
)

// Options sizes a random social mesh.
type Options struct {
	Identities         int
	PostsPerIdentity   int
	FollowsPerIdentity int
	StoriesPerIdentity int
	LikeChance         float64
	CommentChance      float64
	Seed               int64
}

// DefaultOptions is a small mesh suitable for local development.
var DefaultOptions = Options{
	Identities:         20,
	PostsPerIdentity:   3,
	FollowsPerIdentity: 5,
	StoriesPerIdentity: 1,
	LikeChance:         0.3,
	CommentChance:      0.1,
}

// Services are the entry points the seeder writes through.
type Services struct {
	Identity   *service.IdentityService
	Graph      *service.GraphService
	Content    *service.ContentService
	Engagement *service.EngagementService
	Saved      *service.SavedService
}

// Report counts what a seeding run created.
type Report struct {
	Identities int `json:"identities" yaml:"identities"`
	Follows    int `json:"follows" yaml:"follows"`
	Posts      int `json:"posts" yaml:"posts"`
	Stories    int `json:"stories" yaml:"stories"`
	Likes      int `json:"likes" yaml:"likes"`
	Comments   int `json:"comments" yaml:"comments"`
	Saved      int `json:"saved" yaml:"saved"`
}

func (r Report) String() string {
	return fmt.Sprintf("%d identities, %d follows, %d posts, %d stories, %d likes, %d comments, %d saved",
		r.Identities, r.Follows, r.Posts, r.Stories, r.Likes, r.Comments, r.Saved)
}

// Seeder populates the stores through the service layer.
type Seeder struct {
	svc     Services
	factory *Factory
}

// NewSeeder creates a Seeder.
func NewSeeder(svc Services, seed int64) *Seeder {
	return &Seeder{svc: svc, factory: NewFactory(seed)}
}

// SeedMesh registers opts.Identities accounts and wires random follows, posts,
// stories and engagement between them.
func (s *Seeder) SeedMesh(ctx context.Context, opts Options) (Report, error) {
	var report Report
	observability.LogAsyncOperationStart(ctx, "seed_mesh", map[string]any{"identities": opts.Identities})

	ids := make([]uint, 0, opts.Identities)
	for len(ids) < opts.Identities {
		identity, err := s.svc.Identity.Register(ctx, s.factory.Identity())
		if models.IsConflict(err) {
			continue
		}
		if err != nil {
			return report, fmt.Errorf("register identity: %w", err)
		}
		ids = append(ids, identity.ID)
	}
	report.Identities = len(ids)

	for i, id := range ids {
		for _, j := range s.factory.Pick(len(ids), opts.FollowsPerIdentity, i) {
			created, err := s.svc.Graph.Follow(ctx, id, ids[j])
			if err != nil {
				return report, fmt.Errorf("follow: %w", err)
			}
			if created {
				report.Follows++
			}
		}
	}

	var posts []*models.Post
	for _, id := range ids {
		for n := 0; n < opts.PostsPerIdentity; n++ {
			post, err := s.svc.Content.CreatePost(ctx, s.factory.Post(id))
			if err != nil {
				return report, fmt.Errorf("create post: %w", err)
			}
			posts = append(posts, post)
		}
		for n := 0; n < opts.StoriesPerIdentity; n++ {
			if _, err := s.svc.Content.CreateStory(ctx, id, s.factory.StoryImage()); err != nil {
				return report, fmt.Errorf("create story: %w", err)
			}
			report.Stories++
		}
	}
	report.Posts = len(posts)

	for _, post := range posts {
		for _, id := range ids {
			if s.factory.Chance(opts.LikeChance) {
				created, err := s.svc.Engagement.Like(ctx, post.ID, id)
				if err != nil {
					return report, fmt.Errorf("like: %w", err)
				}
				if created {
					report.Likes++
				}
			}
			if s.factory.Chance(opts.CommentChance) {
				if _, err := s.svc.Engagement.AddComment(ctx, post.ID, id, s.factory.Comment()); err != nil {
					return report, fmt.Errorf("comment: %w", err)
				}
				report.Comments++
			}
		}
	}

	observability.LogAsyncOperationEnd(ctx, "seed_mesh", map[string]any{"report": report.String()})
	return report, nil
}
