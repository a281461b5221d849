package repository

import (
	"github.com/bibliodesign/site/internal/domain/entities"
	"github.com/bibliodesign/site/internal/ports"
)

// Repositories bundles one typed accessor per document kind
type Repositories struct {
	Content     ports.SiteContentRepository
	Users       ports.UserRepository
	collections map[entities.Collection]ports.CollectionRepository
}

// New wires every repository to the same document store and id generator
func New(store ports.DocumentStore, ids *IDGenerator) *Repositories {
	repos := &Repositories{
		Content:     NewSiteContentRepository(store),
		Users:       NewUserRepository(store),
		collections: make(map[entities.Collection]ports.CollectionRepository, len(entities.Collections)),
	}

	for _, c := range entities.Collections {
		repos.collections[c] = NewCollectionRepository(store, c, ids)
	}

	return repos
}

// Collection returns the repository for c
func (r *Repositories) Collection(c entities.Collection) (ports.CollectionRepository, error) {
	repo, ok := r.collections[c]
	if !ok {
		return nil, entities.ErrUnknownCollection
	}
	return repo, nil
}

func (r *Repositories) Testimonials() ports.CollectionRepository {
	return r.collections[entities.CollectionTestimonials]
}

func (r *Repositories) Portfolio() ports.CollectionRepository {
	return r.collections[entities.CollectionPortfolio]
}

func (r *Repositories) Team() ports.CollectionRepository {
	return r.collections[entities.CollectionTeam]
}

func (r *Repositories) Inquiries() ports.CollectionRepository {
	return r.collections[entities.CollectionInquiries]
}

func (r *Repositories) Services() ports.CollectionRepository {
	return r.collections[entities.CollectionServices]
}
