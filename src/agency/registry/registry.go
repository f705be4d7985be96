// Package registry keeps agent records and guards their identity fields.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

const maxNameLen = 100

// BreedVerifier is the external breed lookup. Lookup failures should wrap
// errs.ErrServiceUnavailable.
type BreedVerifier interface {
	VerifyBreed(ctx context.Context, name string) (bool, error)
}

// AgentUpdate carries the fields a caller asked to change. Nil means absent.
type AgentUpdate struct {
	Name   *string
	Breed  *string
	Salary *float64
}

type Registry struct {
	db     *gorm.DB
	breeds BreedVerifier
	log    zerolog.Logger
}

func New(db *gorm.DB, breeds BreedVerifier, l zerolog.Logger) *Registry {
	return &Registry{db: db, breeds: breeds, log: l.With().Str("component", "registry").Logger()}
}

func (r *Registry) CreateAgent(ctx context.Context, name, breed string, salary float64) (*types.Agent, error) {
	name, breed = strings.TrimSpace(name), strings.TrimSpace(breed)
	if err := validateIdentity(name, breed); err != nil {
		return nil, err
	}
	if salary < 0 {
		return nil, fmt.Errorf("%w: salary must not be negative", errs.ErrInvalidInput)
	}

	ok, err := r.breeds.VerifyBreed(ctx, breed)
	if err != nil {
		if !errors.Is(err, errs.ErrServiceUnavailable) {
			err = fmt.Errorf("%w: %v", errs.ErrServiceUnavailable, err)
		}
		r.log.Warn().Err(err).Str("breed", breed).Msg("breed verification failed")
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a known breed", errs.ErrInvalidBreed, breed)
	}

	agent := types.Agent{Name: name, Breed: breed, Salary: salary, Experience: 0}
	if err := r.db.WithContext(ctx).Create(&agent).Error; err != nil {
		return nil, err
	}
	r.log.Info().Uint64("agent_id", agent.ID).Str("breed", breed).Msg("agent created")
	return &agent, nil
}

// UpdateAgent changes the salary. Name and breed may be echoed back unchanged
// but never altered.
func (r *Registry) UpdateAgent(ctx context.Context, id uint64, upd AgentUpdate) (*types.Agent, error) {
	var agent types.Agent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&agent, id).Error; err != nil {
			return notFound(err, "agent %d", id)
		}
		if upd.Name != nil && strings.TrimSpace(*upd.Name) != agent.Name {
			return fmt.Errorf("%w: agent name", errs.ErrImmutableField)
		}
		if upd.Breed != nil && strings.TrimSpace(*upd.Breed) != agent.Breed {
			return fmt.Errorf("%w: agent breed", errs.ErrImmutableField)
		}
		if upd.Salary == nil {
			return nil
		}
		if *upd.Salary < 0 {
			return fmt.Errorf("%w: salary must not be negative", errs.ErrInvalidInput)
		}
		agent.Salary = *upd.Salary
		return tx.Model(&agent).Update("salary", agent.Salary).Error
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *Registry) GetAgent(ctx context.Context, id uint64) (*types.Agent, error) {
	var agent types.Agent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return nil, notFound(err, "agent %d", id)
	}
	return &agent, nil
}

func (r *Registry) ListAgents(ctx context.Context) ([]types.Agent, error) {
	var agents []types.Agent
	err := r.db.WithContext(ctx).Order("id").Find(&agents).Error
	return agents, err
}

// DeleteAgent removes an agent no mission refers to.
func (r *Registry) DeleteAgent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var agent types.Agent
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&agent, id).Error; err != nil {
			return notFound(err, "agent %d", id)
		}
		var refs int64
		if err := tx.Model(&types.Mission{}).Where("agent_id = ?", id).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: agent %d is referenced by %d mission(s)", errs.ErrAgentAssigned, id, refs)
		}
		return tx.Delete(&agent).Error
	})
}

func validateIdentity(name, breed string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", errs.ErrInvalidInput)
	case breed == "":
		return fmt.Errorf("%w: breed is required", errs.ErrInvalidInput)
	case utf8.RuneCountInString(name) > maxNameLen:
		return fmt.Errorf("%w: name longer than %d", errs.ErrInvalidInput, maxNameLen)
	case utf8.RuneCountInString(breed) > maxNameLen:
		return fmt.Errorf("%w: breed longer than %d", errs.ErrInvalidInput, maxNameLen)
	}
	return nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]interface{}{errs.ErrNotFound}, args...)...)
	}
	return err
}
