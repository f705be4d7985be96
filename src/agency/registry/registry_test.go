package registry_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stake-plus/cat-agency/src/agency/errs"
	"github.com/stake-plus/cat-agency/src/agency/registry"
	"github.com/stake-plus/cat-agency/src/agency/testutil"
	"github.com/stake-plus/cat-agency/src/agency/types"
)

type flakyBreeds struct{}

func (flakyBreeds) VerifyBreed(context.Context, string) (bool, error) {
	return false, errors.New("dial tcp: connection refused")
}

func newRegistry(t *testing.T) (*registry.Registry, *testutil.Breeds) {
	t.Helper()
	breeds := &testutil.Breeds{Known: []string{"Siamese", "Bengal"}}
	return registry.New(testutil.NewDB(t), breeds, zerolog.Nop()), breeds
}

func ptr[T any](v T) *T { return &v }

func TestCreateAgent_VerifiedBreed(t *testing.T) {
	reg, _ := newRegistry(t)

	agent, err := reg.CreateAgent(context.Background(), "Whiskers", "siamese", 1500)

	require.NoError(t, err)
	assert.NotZero(t, agent.ID)
	assert.Equal(t, "Whiskers", agent.Name)
	assert.Equal(t, float64(0), agent.Experience)

	got, err := reg.GetAgent(context.Background(), agent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, got.Salary)
}

func TestCreateAgent_UnknownBreed(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.CreateAgent(context.Background(), "Tom", "Dragon", 10)

	assert.ErrorIs(t, err, errs.ErrInvalidBreed)
	agents, err := reg.ListAgents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestCreateAgent_VerifierDown(t *testing.T) {
	reg, breeds := newRegistry(t)
	breeds.Down = true

	_, err := reg.CreateAgent(context.Background(), "Tom", "Siamese", 10)

	assert.ErrorIs(t, err, errs.ErrServiceUnavailable)
}

func TestCreateAgent_ForeignVerifierErrorIsUnavailable(t *testing.T) {
	reg := registry.New(testutil.NewDB(t), flakyBreeds{}, zerolog.Nop())

	_, err := reg.CreateAgent(context.Background(), "Tom", "Siamese", 10)

	assert.ErrorIs(t, err, errs.ErrServiceUnavailable)
}

func TestCreateAgent_InvalidInput(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.CreateAgent(context.Background(), "  ", "Siamese", 10)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	_, err = reg.CreateAgent(context.Background(), "Tom", "Siamese", -1)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestCreateAgent_NameLengthCountsCharacters(t *testing.T) {
	reg, _ := newRegistry(t)

	agent, err := reg.CreateAgent(context.Background(), strings.Repeat("Ж", 60), "Siamese", 10)
	require.NoError(t, err)
	assert.Equal(t, 60, len([]rune(agent.Name)))

	_, err = reg.CreateAgent(context.Background(), strings.Repeat("Ж", 101), "Siamese", 10)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestUpdateAgent_SalaryOnly(t *testing.T) {
	reg, _ := newRegistry(t)
	ctx := context.Background()
	agent, err := reg.CreateAgent(ctx, "Whiskers", "Siamese", 1500)
	require.NoError(t, err)

	updated, err := reg.UpdateAgent(ctx, agent.ID, registry.AgentUpdate{
		Name:   ptr("Whiskers"),
		Salary: ptr(2000.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 2000.0, updated.Salary)

	_, err = reg.UpdateAgent(ctx, agent.ID, registry.AgentUpdate{Name: ptr("Mittens")})
	assert.ErrorIs(t, err, errs.ErrImmutableField)

	_, err = reg.UpdateAgent(ctx, agent.ID, registry.AgentUpdate{Breed: ptr("Bengal"), Salary: ptr(1.0)})
	assert.ErrorIs(t, err, errs.ErrImmutableField)

	got, err := reg.GetAgent(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, "Siamese", got.Breed)
	assert.Equal(t, 2000.0, got.Salary)
}

func TestUpdateAgent_NotFound(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.UpdateAgent(context.Background(), 42, registry.AgentUpdate{Salary: ptr(1.0)})

	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteAgent_ReferencedByMission(t *testing.T) {
	db := testutil.NewDB(t)
	reg := registry.New(db, testutil.Breeds{Known: []string{"Siamese"}}, zerolog.Nop())
	ctx := context.Background()
	agent, err := reg.CreateAgent(ctx, "Whiskers", "Siamese", 1)
	require.NoError(t, err)
	require.NoError(t, db.Create(&types.Mission{AgentID: &agent.ID, Status: types.StatusDone}).Error)

	err = reg.DeleteAgent(ctx, agent.ID)
	assert.ErrorIs(t, err, errs.ErrAgentAssigned)

	other, err := reg.CreateAgent(ctx, "Felix", "Siamese", 1)
	require.NoError(t, err)
	require.NoError(t, reg.DeleteAgent(ctx, other.ID))
	_, err = reg.GetAgent(ctx, other.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
