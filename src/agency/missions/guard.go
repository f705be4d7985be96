package missions

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/metrics"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

// IsAgentFree reports whether the agent holds no active mission other than
// excludingMissionID (0 excludes nothing).
func (c *Coordinator) IsAgentFree(ctx context.Context, agentID, excludingMissionID uint64) (bool, error) {
	var free bool
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockAgent(tx, agentID); err != nil {
			return err
		}
		var err error
		free, err = agentFree(tx, agentID, excludingMissionID)
		return err
	})
	return free, err
}

// claimAgent locks the agent row and fails unless the agent is free. The lock
// is held until the surrounding transaction ends, so a concurrent claim for
// the same agent waits and then sees this one's write.
func (c *Coordinator) claimAgent(t *txn, agentID, missionID uint64) error {
	if _, err := lockAgent(t.tx, agentID); err != nil {
		metrics.RecordAssignment("not_found")
		return err
	}
	free, err := agentFree(t.tx, agentID, missionID)
	if err != nil {
		return err
	}
	if !free {
		metrics.RecordAssignment("busy")
		return fmt.Errorf("%w: agent %d already has an active mission", errs.ErrAgentBusy, agentID)
	}
	return nil
}

func lockAgent(tx *gorm.DB, id uint64) (*types.Agent, error) {
	var a types.Agent
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error; err != nil {
		return nil, notFound(err, "agent %d", id)
	}
	return &a, nil
}

// agentFree uses a locking read so it observes the latest committed rows
// rather than the transaction's snapshot.
func agentFree(tx *gorm.DB, agentID, excludingMissionID uint64) (bool, error) {
	var ids []uint64
	err := tx.Model(&types.Mission{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("agent_id = ? AND id <> ? AND status IN ?", agentID, excludingMissionID, types.ActiveStatuses).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) == 0, nil
}
