package types

import "time"

// Status is the progress state shared by missions and targets.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// ActiveStatuses are the mission statuses that hold an agent.
var ActiveStatuses = []Status{StatusNotStarted, StatusInProgress}

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusFailed
}

func (s Status) Active() bool {
	return s == StatusNotStarted || s == StatusInProgress
}

// Field agents ("spy cats")
type Agent struct {
	ID         uint64    `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Breed      string    `gorm:"size:100;not null" json:"breed"`
	Salary     float64   `gorm:"not null;default:0" json:"salary"`
	Experience float64   `gorm:"not null;default:0" json:"experience"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Missions; status is written only by the missions coordinator.
type Mission struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	AgentID   *uint64   `gorm:"index" json:"agent_id"`
	Status    Status    `gorm:"size:20;not null;index" json:"status"`
	Targets   []Target  `gorm:"foreignKey:MissionID" json:"targets"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Targets are owned by exactly one mission.
type Target struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	MissionID uint64    `gorm:"index;not null" json:"mission_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Country   string    `gorm:"size:200;not null" json:"country"`
	Notes     string    `gorm:"type:text" json:"notes"`
	Status    Status    `gorm:"size:20;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mission event types published after commit.
const (
	EventMissionCreated  = "mission.created"
	EventMissionAssigned = "mission.assigned"
	EventMissionStatus   = "mission.status"
	EventMissionDeleted  = "mission.deleted"
)

// MissionEvent describes a committed mission change.
type MissionEvent struct {
	ID        string
	Type      string
	MissionID uint64
	AgentID   *uint64
	From      Status
	To        Status
	At        time.Time
}
