package missions

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

const (
	maxTargetName = 100
	maxCountry    = 200
	maxNotes      = 3000
)

type TargetDraft struct {
	Name    string
	Country string
	Notes   string
}

// TargetPatch carries the fields a caller asked to change. Nil means absent.
type TargetPatch struct {
	ID      uint64
	Name    *string
	Country *string
	Notes   *string
	Status  *types.Status
}

func notesPolicy() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AllowElements("p", "br", "strong", "em", "code", "ul", "ol", "li")
	return p
}

func (c *Coordinator) cleanNotes(notes string) (string, error) {
	notes = strings.TrimSpace(c.notes.Sanitize(notes))
	if !utf8.ValidString(notes) {
		return "", fmt.Errorf("%w: notes are not valid UTF-8", errs.ErrInvalidInput)
	}
	if utf8.RuneCountInString(notes) > maxNotes {
		return "", fmt.Errorf("%w: notes longer than %d", errs.ErrInvalidInput, maxNotes)
	}
	return notes, nil
}

func (c *Coordinator) newTarget(d TargetDraft) (types.Target, error) {
	name, country := strings.TrimSpace(d.Name), strings.TrimSpace(d.Country)
	switch {
	case name == "" || country == "":
		return types.Target{}, fmt.Errorf("%w: target name and country are required", errs.ErrInvalidInput)
	case utf8.RuneCountInString(name) > maxTargetName:
		return types.Target{}, fmt.Errorf("%w: target name longer than %d", errs.ErrInvalidInput, maxTargetName)
	case utf8.RuneCountInString(country) > maxCountry:
		return types.Target{}, fmt.Errorf("%w: country longer than %d", errs.ErrInvalidInput, maxCountry)
	}
	notes, err := c.cleanNotes(d.Notes)
	if err != nil {
		return types.Target{}, err
	}
	return types.Target{Name: name, Country: country, Notes: notes, Status: types.StatusNotStarted}, nil
}

// CreateTarget adds a target to a mission that has not started.
func (c *Coordinator) CreateTarget(ctx context.Context, missionID uint64, d TargetDraft) (*types.Target, error) {
	tg, err := c.newTarget(d)
	if err != nil {
		return nil, err
	}
	err = c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if m.Status != types.StatusNotStarted {
			return fmt.Errorf("%w: targets are fixed once mission %d is %s", errs.ErrInvalidTransition, m.ID, m.Status)
		}
		tg.MissionID = m.ID
		if err := t.tx.Create(&tg).Error; err != nil {
			return err
		}
		return c.recompute(t, m)
	})
	if err != nil {
		return nil, err
	}
	return &tg, nil
}

func (c *Coordinator) GetTarget(ctx context.Context, missionID, targetID uint64) (*types.Target, error) {
	return findTarget(c.db.WithContext(ctx), missionID, targetID)
}

// UpdateTarget changes notes and/or status of a target, then re-derives the
// mission status. Once the target or its mission is Done the target is
// locked: a status change still goes through, a notes change is refused.
func (c *Coordinator) UpdateTarget(ctx context.Context, missionID, targetID uint64, p TargetPatch) (*types.Target, error) {
	var out *types.Target
	err := c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		tg, err := findTarget(t.tx, m.ID, targetID)
		if err != nil {
			return err
		}
		if err := c.updateTarget(t, m, tg, p); err != nil {
			return err
		}
		out = tg
		return nil
	})
	return out, err
}

// DeleteTarget removes a target from a mission that has not started.
func (c *Coordinator) DeleteTarget(ctx context.Context, missionID, targetID uint64) error {
	return c.run(ctx, func(t *txn) error {
		m, err := lockMission(t.tx, missionID)
		if err != nil {
			return err
		}
		if m.Status != types.StatusNotStarted {
			return fmt.Errorf("%w: targets are fixed once mission %d is %s", errs.ErrInvalidTransition, m.ID, m.Status)
		}
		tg, err := findTarget(t.tx, m.ID, targetID)
		if err != nil {
			return err
		}
		if err := t.tx.Delete(tg).Error; err != nil {
			return err
		}
		return c.recompute(t, m)
	})
}

func (c *Coordinator) updateTarget(t *txn, m *types.Mission, tg *types.Target, p TargetPatch) error {
	if m.AgentID == nil {
		return fmt.Errorf("%w: mission %d", errs.ErrNoAgentAssigned, m.ID)
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) != tg.Name {
		return fmt.Errorf("%w: target name", errs.ErrImmutableField)
	}
	if p.Country != nil && strings.TrimSpace(*p.Country) != tg.Country {
		return fmt.Errorf("%w: target country", errs.ErrImmutableField)
	}

	updates := map[string]interface{}{}
	if p.Status != nil {
		if !p.Status.Valid() {
			return fmt.Errorf("%w: unknown status %q", errs.ErrInvalidInput, *p.Status)
		}
		if *p.Status != tg.Status {
			updates["status"] = *p.Status
		}
	}
	if p.Notes != nil {
		notes, err := c.cleanNotes(*p.Notes)
		if err != nil {
			return err
		}
		if notes != tg.Notes {
			if tg.Status == types.StatusDone || m.Status == types.StatusDone {
				return fmt.Errorf("%w: target %d is complete", errs.ErrTargetLocked, tg.ID)
			}
			updates["notes"] = notes
		}
	}
	if len(updates) == 0 {
		return nil
	}

	if err := t.tx.Model(tg).Updates(updates).Error; err != nil {
		return err
	}
	if s, ok := updates["status"]; ok {
		tg.Status = s.(types.Status)
	}
	if n, ok := updates["notes"]; ok {
		tg.Notes = n.(string)
	}
	return c.recompute(t, m)
}

func findTarget(db *gorm.DB, missionID, targetID uint64) (*types.Target, error) {
	var tg types.Target
	if err := db.Where("mission_id = ?", missionID).First(&tg, targetID).Error; err != nil {
		return nil, notFound(err, "target %d in mission %d", targetID, missionID)
	}
	return &tg, nil
}
