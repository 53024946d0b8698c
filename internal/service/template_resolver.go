package service

import (
	"context"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionTemplateResolver finds the template used to stamp out a session.
type SessionTemplateResolver interface {
	// Resolve returns *domain.TemplateResolutionMiss when nothing matches.
	Resolve(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error)
}

type sessionTemplateResolver struct {
	templateRepo repository.TemplateRepository
}

func NewSessionTemplateResolver(templateRepo repository.TemplateRepository) SessionTemplateResolver {
	return &sessionTemplateResolver{templateRepo: templateRepo}
}

func (r *sessionTemplateResolver) Resolve(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error) {
	tmpl, err := r.templateRepo.FindMatch(ctx, tenantID, sessionType, tier)
	if err != nil {
		return nil, domain.NewPersistenceError("find template", err)
	}
	if tmpl == nil {
		return nil, &domain.TemplateResolutionMiss{TenantID: tenantID.Hex(), SessionType: sessionType, Tier: tier}
	}
	return tmpl, nil
}

type templateKey struct {
	tenantID    primitive.ObjectID
	sessionType domain.SessionType
	tier        string
}

type templateHit struct {
	tmpl *domain.SessionTemplate
	err  error
}

// templateCache memoizes lookups, misses included, for one athlete unit.
type templateCache struct {
	resolver SessionTemplateResolver
	entries  map[templateKey]templateHit
}

func newTemplateCache(resolver SessionTemplateResolver) *templateCache {
	return &templateCache{resolver: resolver, entries: map[templateKey]templateHit{}}
}

func (c *templateCache) Resolve(ctx context.Context, tenantID primitive.ObjectID, sessionType domain.SessionType, tier string) (*domain.SessionTemplate, error) {
	k := templateKey{tenantID: tenantID, sessionType: sessionType, tier: tier}
	if hit, ok := c.entries[k]; ok {
		return hit.tmpl, hit.err
	}
	tmpl, err := c.resolver.Resolve(ctx, tenantID, sessionType, tier)
	if err != nil && domain.IsRetryable(err) {
		return nil, err
	}
	c.entries[k] = templateHit{tmpl: tmpl, err: err}
	return tmpl, err
}
