package policy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRepository is a mock for Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetPolicy(ctx context.Context, botID string) (*Policy, error) {
	args := m.Called(ctx, botID)
	if p, ok := args.Get(0).(*Policy); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockRepository) SavePolicy(ctx context.Context, botID string, p Policy) error {
	args := m.Called(ctx, botID, p)
	return args.Error(0)
}

func TestPolicyAllows(t *testing.T) {
	excluded := map[string]struct{}{"g1": {}}
	cases := []struct {
		name    string
		mode    Mode
		conv    string
		isGroup bool
		want    bool
	}{
		{"off direct", ModeOff, "d1", false, false},
		{"off group", ModeOff, "g2", true, false},
		{"both direct", ModeBoth, "d1", false, true},
		{"both group", ModeBoth, "g2", true, true},
		{"both excluded", ModeBoth, "g1", true, false},
		{"direct-only direct", ModeDirectOnly, "d1", false, true},
		{"direct-only group", ModeDirectOnly, "g2", true, false},
		{"group-only group", ModeGroupOnly, "g2", true, true},
		{"group-only direct", ModeGroupOnly, "d1", false, false},
		{"group-only excluded", ModeGroupOnly, "g1", true, false},
		{"empty mode", "", "d1", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Policy{Mode: tc.mode, Excluded: excluded}
			assert.Equal(t, tc.want, p.Allows(tc.conv, tc.isGroup))
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"off":     ModeOff,
		"Private": ModeDirectOnly,
		"direct":  ModeDirectOnly,
		"group":   ModeGroupOnly,
		" both ":  ModeBoth,
		"all":     ModeBoth,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("sometimes")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestEngineAbsentConfigurationIsOff(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetPolicy", ctx, "bot-1").Return(nil, ErrPolicyNotFound).Once()

	e := NewEngine(repo, 0, nil)
	assert.False(t, e.ShouldCapture(ctx, "bot-1", "c1", false))
	repo.AssertExpectations(t)
}

func TestEngineRepositoryFailureFailsClosed(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetPolicy", ctx, "bot-1").Return(nil, errors.New("connection refused")).Twice()

	e := NewEngine(repo, 0, nil)
	p := e.Policy(ctx, "bot-1")
	assert.Equal(t, ModeOff, p.Mode)
	assert.False(t, e.ShouldCapture(ctx, "bot-1", "c1", true))
	repo.AssertExpectations(t)
}

func TestEngineReadRacingUpdateIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	e := NewEngine(repo, time.Minute, nil)
	now := time.Unix(1000, 0)
	e.now = func() time.Time { return now }

	// The first read sees the old policy, and an update lands before it returns.
	repo.On("GetPolicy", ctx, "bot-1").Return(&Policy{Mode: ModeOff}, nil).Once().Run(func(mock.Arguments) {
		require.NoError(t, e.SetMode(ctx, "bot-1", ModeBoth))
	})
	repo.On("GetPolicy", ctx, "bot-1").Return(&Policy{Mode: ModeOff}, nil).Once()
	repo.On("SavePolicy", ctx, "bot-1", mock.MatchedBy(func(p Policy) bool { return p.Mode == ModeBoth })).Return(nil).Once()
	repo.On("GetPolicy", ctx, "bot-1").Return(&Policy{Mode: ModeBoth}, nil).Once()

	assert.Equal(t, ModeOff, e.Policy(ctx, "bot-1").Mode)
	assert.Equal(t, ModeBoth, e.Policy(ctx, "bot-1").Mode)
	repo.AssertExpectations(t)
}

func TestEngineCachesReads(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetPolicy", ctx, "bot-1").Return(&Policy{Mode: ModeBoth}, nil).Once()

	now := time.Unix(1000, 0)
	e := NewEngine(repo, time.Minute, nil)
	e.now = func() time.Time { return now }

	assert.True(t, e.ShouldCapture(ctx, "bot-1", "c1", false))
	assert.True(t, e.ShouldCapture(ctx, "bot-1", "c2", true))
	repo.AssertExpectations(t)

	now = now.Add(2 * time.Minute)
	repo.On("GetPolicy", ctx, "bot-1").Return(&Policy{Mode: ModeOff}, nil).Once()
	assert.False(t, e.ShouldCapture(ctx, "bot-1", "c1", false))
	repo.AssertExpectations(t)
}

func TestEngineMutators(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	e := NewEngine(repo, time.Minute, nil)

	require.NoError(t, e.SetMode(ctx, "bot-1", ModeBoth))
	assert.True(t, e.ShouldCapture(ctx, "bot-1", "g1", true))

	excluded, err := e.ToggleExclusion(ctx, "bot-1", "g1")
	require.NoError(t, err)
	assert.True(t, excluded)
	assert.False(t, e.ShouldCapture(ctx, "bot-1", "g1", true), "mutators must invalidate the cache")

	excluded, err = e.ToggleExclusion(ctx, "bot-1", "g1")
	require.NoError(t, err)
	assert.False(t, excluded)
	assert.True(t, e.ShouldCapture(ctx, "bot-1", "g1", true))

	require.NoError(t, e.SetAlternateDestination(ctx, "bot-1", "777"))
	require.NoError(t, e.SetForwardToAlternate(ctx, "bot-1", true))
	p := e.Policy(ctx, "bot-1")
	assert.Equal(t, "777", p.AlternateDestination)
	assert.True(t, p.ForwardToAlternate)
	assert.Equal(t, ModeBoth, p.Mode)
}

func TestEngineSaveFailure(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	repo.On("GetPolicy", ctx, "bot-1").Return(nil, ErrPolicyNotFound).Once()
	repo.On("SavePolicy", ctx, "bot-1", mock.AnythingOfType("policy.Policy")).Return(errors.New("disk full")).Once()

	e := NewEngine(repo, time.Minute, nil)
	err := e.SetMode(ctx, "bot-1", ModeBoth)
	assert.Error(t, err)
	repo.AssertExpectations(t)
}

func TestPolicyCloneIsIndependent(t *testing.T) {
	p := Policy{Mode: ModeBoth, Excluded: map[string]struct{}{"a": {}}}
	c := p.Clone()
	c.Excluded["b"] = struct{}{}
	assert.False(t, p.IsExcluded("b"))
	assert.Equal(t, []string{"a", "b"}, c.ExcludedList())
}
