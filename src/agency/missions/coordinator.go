// Package missions owns the mission lifecycle: agent assignment, the
// one-active-mission-per-agent guard, the target ledger, and derivation of
// mission status from target progress.
//
// Mission status has no setter. It changes only through derivation
// (recompute) and through the assignment rules in this package; every public
// operation runs in a single transaction and publishes its events after commit.
package missions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/metrics"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

// Publisher receives mission events after their transaction commits.
type Publisher interface {
	Publish(ctx context.Context, ev types.MissionEvent) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, types.MissionEvent) error { return nil }

// MissionDraft describes a mission to create.
type MissionDraft struct {
	AgentID *uint64
	Targets []TargetDraft
}

// AgentRef selects the agent for a mission; a nil ID unassigns.
type AgentRef struct {
	ID *uint64
}

// MissionUpdate is a nested mission change. Status is accepted only so that a
// direct change can be refused.
type MissionUpdate struct {
	Agent   *AgentRef
	Status  *types.Status
	Targets []TargetPatch
}

type Coordinator struct {
	db     *gorm.DB
	events Publisher
	notes  *bluemonday.Policy
	log    zerolog.Logger
}

func New(db *gorm.DB, events Publisher, l zerolog.Logger) *Coordinator {
	if events == nil {
		events = nopPublisher{}
	}
	return &Coordinator{
		db:     db,
		events: events,
		notes:  notesPolicy(),
		log:    l.With().Str("component", "missions").Logger(),
	}
}

// txn is one unit of work; events and success metrics queue until commit.
type txn struct {
	tx        *gorm.DB
	events    []types.MissionEvent
	committed []func()
}

func (t *txn) onCommit(fn func()) {
	t.committed = append(t.committed, fn)
}

func (t *txn) emit(typ string, m *types.Mission, from, to types.Status) {
	t.events = append(t.events, types.MissionEvent{
		ID:        uuid.NewString(),
		Type:      typ,
		MissionID: m.ID,
		AgentID:   m.AgentID,
		From:      from,
		To:        to,
		At:        time.Now().UTC(),
	})
}

func (c *Coordinator) run(ctx context.Context, fn func(t *txn) error) error {
	var t *txn
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t = &txn{tx: tx}
		return fn(t)
	})
	if err != nil {
		return err
	}
	for _, fn := range t.committed {
		fn()
	}
	for _, ev := range t.events {
		if err := c.events.Publish(ctx, ev); err != nil {
			c.log.Warn().Err(err).Str("event", ev.Type).Uint64("mission_id", ev.MissionID).Msg("publish failed")
		}
	}
	return nil
}

func (c *Coordinator) CreateMission(ctx context.Context, draft MissionDraft) (*types.Mission, error) {
	targets := make([]types.Target, 0, len(draft.Targets))
	for _, d := range draft.Targets {
		tg, err := c.newTarget(d)
		if err != nil {
			return nil, err
		}
		targets = append(targets, tg)
	}

	var out *types.Mission
	err := c.run(ctx, func(t *txn) error {
		m := types.Mission{Status: types.StatusNotStarted, Targets: targets}
		if draft.AgentID != nil {
			if err := c.claimAgent(t, *draft.AgentID, 0); err != nil {
				return err
			}
			m.AgentID = draft.AgentID
		}
		if err := t.tx.Create(&m).Error; err != nil {
			return err
		}
		t.emit(types.EventMissionCreated, &m, "", m.Status)
		if m.AgentID != nil {
			t.onCommit(func() { metrics.RecordAssignment("ok") })
			t.emit(types.EventMissionAssigned, &m, "", "")
		}
		if err := c.recompute(t, &m); err != nil {
			return err
		}
		var err error
		out, err = loadMission(t.tx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.log.Info().Uint64("mission_id", out.ID).Int("targets", len(out.Targets)).Msg("mission created")
	return out, nil
}

func (c *Coordinator) GetMission(ctx context.Context, id uint64) (*types.Mission, error) {
	return loadMission(c.db.WithContext(ctx), id)
}

func (c *Coordinator) ListMissions(ctx context.Context) ([]types.Mission, error) {
	var ms []types.Mission
	err := c.db.WithContext(ctx).Preload("Targets", orderByID).Order("id").Find(&ms).Error
	return ms, err
}

// AssignAgent sets or clears the mission's agent. Reassignment is only
// possible while the mission is NotStarted, and the new agent must be free.
func (c *Coordinator) AssignAgent(ctx context.Context, missionID uint64, agentID *uint64) (*types.Mission, error) {
	var out *types.Mission
	err := c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if err := c.assign(t, m, agentID); err != nil {
			return err
		}
		out, err = loadMission(t.tx, m.ID)
		return err
	})
	return out, err
}

// UpdateMission applies a nested change: agent first, then each target patch
// in order. Any failure rolls back the whole request.
func (c *Coordinator) UpdateMission(ctx context.Context, missionID uint64, upd MissionUpdate) (*types.Mission, error) {
	var out *types.Mission
	err := c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if upd.Status != nil && *upd.Status != m.Status {
			return fmt.Errorf("%w: mission status follows its targets", errs.ErrDirectStatusChange)
		}
		if upd.Agent != nil {
			if err := c.assign(t, m, upd.Agent.ID); err != nil {
				return err
			}
		}
		for _, p := range upd.Targets {
			tg, err := findTarget(t.tx, m.ID, p.ID)
			if err != nil {
				return err
			}
			if err := c.updateTarget(t, m, tg, p); err != nil {
				return err
			}
		}
		out, err = loadMission(t.tx, m.ID)
		return err
	})
	return out, err
}

// RecomputeMissionStatus re-derives the mission status from its targets.
func (c *Coordinator) RecomputeMissionStatus(ctx context.Context, missionID uint64) (*types.Mission, error) {
	var out *types.Mission
	err := c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if err := c.recompute(t, m); err != nil {
			return err
		}
		out, err = loadMission(t.tx, m.ID)
		return err
	})
	return out, err
}

// DeleteMission removes an unassigned mission together with its targets.
func (c *Coordinator) DeleteMission(ctx context.Context, missionID uint64) error {
	return c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if m.AgentID != nil {
			return fmt.Errorf("%w: mission %d has agent %d", errs.ErrAgentAssigned, m.ID, *m.AgentID)
		}
		if err := t.tx.Where("mission_id = ?", m.ID).Delete(&types.Target{}).Error; err != nil {
			return err
		}
		if err := t.tx.Delete(m).Error; err != nil {
			return err
		}
		t.emit(types.EventMissionDeleted, m, m.Status, "")
		return nil
	})
}

func (c *Coordinator) assign(t *txn, m *types.Mission, agentID *uint64) error {
	if sameAgent(m.AgentID, agentID) {
		return nil
	}
	if m.Status != types.StatusNotStarted {
		metrics.RecordAssignment("invalid_transition")
		return fmt.Errorf("%w: mission %d is %s", errs.ErrInvalidTransition, m.ID, m.Status)
	}

	var value interface{}
	if agentID != nil {
		if err := c.claimAgent(t, *agentID, m.ID); err != nil {
			return err
		}
		value = *agentID
	}
	if err := t.tx.Model(m).Update("agent_id", value).Error; err != nil {
		return err
	}
	m.AgentID = agentID
	t.onCommit(func() { metrics.RecordAssignment("ok") })
	t.emit(types.EventMissionAssigned, m, "", "")
	c.log.Info().Uint64("mission_id", m.ID).Interface("agent_id", agentID).Msg("agent assigned")

	return c.recompute(t, m)
}

// recompute persists the derived status when it differs from the stored one.
func (c *Coordinator) recompute(t *txn, m *types.Mission) error {
	if m.AgentID == nil {
		return nil
	}
	var statuses []types.Status
	if err := t.tx.Model(&types.Target{}).Where("mission_id = ?", m.ID).Pluck("status", &statuses).Error; err != nil {
		return err
	}

	next := DeriveStatus(m.Status, true, statuses)
	if next == m.Status {
		return nil
	}
	if err := t.tx.Model(m).Update("status", next).Error; err != nil {
		return err
	}
	prev := m.Status
	m.Status = next
	t.onCommit(func() { metrics.RecordTransition(string(prev), string(next)) })
	t.emit(types.EventMissionStatus, m, prev, next)
	c.log.Info().Uint64("mission_id", m.ID).Str("from", string(prev)).Str("to", string(next)).Msg("mission status derived")
	return nil
}

func lockMission(tx *gorm.DB, id uint64) (*types.Mission, error) {
	var m types.Mission
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&m, id).Error; err != nil {
		return nil, notFound(err, "mission %d", id)
	}
	return &m, nil
}

func loadMission(db *gorm.DB, id uint64) (*types.Mission, error) {
	var m types.Mission
	if err := db.Preload("Targets", orderByID).First(&m, id).Error; err != nil {
		return nil, notFound(err, "mission %d", id)
	}
	return &m, nil
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func sameAgent(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]interface{}{errs.ErrNotFound}, args...)...)
	}
	return err
}
