package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitstudio/internal/events"
	"fitstudio/internal/hours"
	"fitstudio/internal/model"
)

type mockSettings struct {
	mock.Mock
}

func (m *mockSettings) Today() model.Date {
	return m.Called().Get(0).(model.Date)
}

func (m *mockSettings) Active(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	args := m.Called(ctx, key, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionedSetting), args.Error(1)
}

func (m *mockSettings) Scheduled(ctx context.Context, key string, ref model.Date) (*model.VersionedSetting, error) {
	args := m.Called(ctx, key, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionedSetting), args.Error(1)
}

func (m *mockSettings) History(ctx context.Context, key string) ([]model.VersionedSetting, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.VersionedSetting), args.Error(1)
}

func (m *mockSettings) Save(ctx context.Context, key string, value any, effectiveFrom *model.Date, createdBy string) (*model.VersionedSetting, error) {
	args := m.Called(ctx, key, value, effectiveFrom, createdBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VersionedSetting), args.Error(1)
}

type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) Detect(ctx context.Context, week model.WeekHours, effective model.Date) ([]model.SessionConflict, error) {
	args := m.Called(ctx, week, effective)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.SessionConflict), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(et string, p any) error { return m.Called(et, p).Error(0) }

var today = model.Date{Year: 2026, Month: time.March, Day: 10}

func week() model.WeekHours {
	w := model.WeekHours{}
	for _, d := range model.AllWeekdays {
		w[d] = model.Open("09:00", "21:00")
	}
	openAt, closeAt := "10:00", "12:00"
	w[model.Sunday] = model.DayHours{IsOpen: false, OpenTime: &openAt, CloseTime: &closeAt}
	return w
}

func newPlanner() (*Planner, *mockSettings, *mockDetector, *mockPublisher) {
	s := new(mockSettings)
	d := new(mockDetector)
	pub := new(mockPublisher)
	return New(s, d, pub, zerolog.Nop()), s, d, pub
}

func TestPlanner_Preview(t *testing.T) {
	p, _, _, _ := newPlanner()

	got := p.Preview(week())
	assert.True(t, got.Valid())
	assert.Equal(t, 24, got.SlotsPerDay[model.Monday])
	assert.Equal(t, 0, got.SlotsPerDay[model.Sunday])
	assert.Equal(t, 24*6, got.TotalSlots)

	bad := week()
	bad[model.Monday] = model.Open("21:00", "09:00")
	got = p.Preview(bad)
	assert.False(t, got.Valid())
	assert.Equal(t, hours.MsgCloseNotAfter, got.Errors[model.Monday])
}

func TestPlanner_Save_Invalid(t *testing.T) {
	p, s, d, pub := newPlanner()

	bad := week()
	delete(bad, model.Friday)
	res, err := p.Save(context.Background(), SaveRequest{Hours: bad, CreatedBy: "admin"})
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, hours.MsgDayMissing, res.Errors[model.Friday])

	d.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything, mock.Anything)
	s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestPlanner_Save_BlockedByConflicts(t *testing.T) {
	p, s, d, pub := newPlanner()
	ctx := context.Background()
	from := model.Date{Year: 2026, Month: time.April, Day: 1}

	conflicts := []model.SessionConflict{{SessionID: 1, Reason: "Studio closed on this day"}}
	d.On("Detect", ctx, week(), from).Return(conflicts, nil).Once()

	res, err := p.Save(ctx, SaveRequest{Hours: week(), EffectiveFrom: &from})
	require.NoError(t, err)
	assert.False(t, res.Saved)
	assert.Equal(t, conflicts, res.Conflicts)

	s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
}

func TestPlanner_Save_Commits(t *testing.T) {
	p, s, d, pub := newPlanner()
	ctx := context.Background()

	s.On("Today").Return(today)
	d.On("Detect", ctx, week(), today).Return([]model.SessionConflict{}, nil).Once()

	normalized := week().Normalize()
	saved := &model.VersionedSetting{ID: "v1", Key: model.OpeningHoursKey, IsActive: true, CreatedBy: "admin"}
	s.On("Save", ctx, model.OpeningHoursKey, normalized, (*model.Date)(nil), "admin").Return(saved, nil).Once()
	pub.On("PublishJSON", events.OpeningHoursSaved, mock.MatchedBy(func(p events.OpeningHoursSavedPayload) bool {
		return p.SettingID == "v1" && p.TotalSlots == 24*6 && p.Hours[model.Sunday].OpenTime == nil
	})).Return(errors.New("telegram down")).Once()

	res, err := p.Save(ctx, SaveRequest{Hours: week(), CreatedBy: "admin"})
	require.NoError(t, err)
	assert.True(t, res.Saved)
	assert.Same(t, saved, res.Setting)
	assert.Empty(t, res.Conflicts)
	assert.Empty(t, res.Errors)

	s.AssertExpectations(t)
	d.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestPlanner_Save_PersistenceErrors(t *testing.T) {
	ctx := context.Background()
	from := model.Date{Year: 2026, Month: time.April, Day: 1}
	boom := errors.New("database is locked")

	t.Run("detector", func(t *testing.T) {
		p, _, d, _ := newPlanner()
		d.On("Detect", ctx, week(), from).Return(nil, boom).Once()

		_, err := p.Save(ctx, SaveRequest{Hours: week(), EffectiveFrom: &from})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("store", func(t *testing.T) {
		p, s, d, pub := newPlanner()
		d.On("Detect", ctx, week(), from).Return(nil, nil).Once()
		s.On("Save", ctx, model.OpeningHoursKey, mock.Anything, &from, "").Return(nil, boom).Once()

		_, err := p.Save(ctx, SaveRequest{Hours: week(), EffectiveFrom: &from})
		assert.ErrorIs(t, err, boom)
		pub.AssertNotCalled(t, "PublishJSON", mock.Anything, mock.Anything)
	})
}

func TestPlanner_CheckConflicts_DefaultsToToday(t *testing.T) {
	p, s, d, _ := newPlanner()
	ctx := context.Background()

	s.On("Today").Return(today).Once()
	d.On("Detect", ctx, week(), today).Return([]model.SessionConflict{}, nil).Once()

	got, err := p.CheckConflicts(ctx, week(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
	d.AssertExpectations(t)
}

func TestPlanner_Current(t *testing.T) {
	p, s, _, _ := newPlanner()
	ctx := context.Background()
	from := model.Date{Year: 2026, Month: time.April, Day: 1}

	active := &model.VersionedSetting{ID: "v0", Value: []byte(`{"monday":{"is_open":true,"open_time":"09:00","close_time":"21:00"}}`)}
	next := &model.VersionedSetting{ID: "v1", EffectiveFrom: &from}
	s.On("Active", ctx, model.OpeningHoursKey, today).Return(active, nil).Once()
	s.On("Scheduled", ctx, model.OpeningHoursKey, today).Return(next, nil).Once()

	got, err := p.Current(ctx, &today)
	require.NoError(t, err)
	assert.Equal(t, "v0", got.Active.ID)
	assert.Equal(t, "21:00", *got.ActiveHours[model.Monday].CloseTime)
	assert.Equal(t, &from, got.ScheduledFrom)
}

func TestPlanner_Current_Empty(t *testing.T) {
	p, s, _, _ := newPlanner()
	ctx := context.Background()

	s.On("Today").Return(today)
	s.On("Active", ctx, model.OpeningHoursKey, today).Return(nil, nil).Once()
	s.On("Scheduled", ctx, model.OpeningHoursKey, today).Return(nil, nil).Once()

	got, err := p.Current(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got.Active)
	assert.Nil(t, got.Scheduled)
	assert.Equal(t, today, got.Date)
}

func TestPlanner_EnsureDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("applies when empty", func(t *testing.T) {
		p, s, _, _ := newPlanner()
		s.On("History", ctx, model.OpeningHoursKey).Return([]model.VersionedSetting{}, nil).Once()
		s.On("Save", ctx, model.OpeningHoursKey, week().Normalize(), (*model.Date)(nil), "seed").
			Return(&model.VersionedSetting{ID: "seed-1"}, nil).Once()

		applied, err := p.EnsureDefault(ctx, week(), "seed")
		require.NoError(t, err)
		assert.True(t, applied)
		s.AssertExpectations(t)
	})

	t.Run("skips when versions exist", func(t *testing.T) {
		p, s, _, _ := newPlanner()
		s.On("History", ctx, model.OpeningHoursKey).Return([]model.VersionedSetting{{ID: "v0"}}, nil).Once()

		applied, err := p.EnsureDefault(ctx, week(), "seed")
		require.NoError(t, err)
		assert.False(t, applied)
		s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects invalid seed", func(t *testing.T) {
		p, _, _, _ := newPlanner()
		_, err := p.EnsureDefault(ctx, model.WeekHours{}, "seed")
		assert.Error(t, err)
	})
}

func TestPlanner_ApplyDefault(t *testing.T) {
	ctx := context.Background()
	stored, err := json.Marshal(week().Normalize())
	require.NoError(t, err)
	from := model.Date{Year: 2026, Month: time.May, Day: 1}
	versions := []model.VersionedSetting{
		{ID: "v0", Value: stored},
		{ID: "v1", EffectiveFrom: &from, Value: []byte(`{}`)},
	}

	t.Run("unchanged is not saved", func(t *testing.T) {
		p, s, d, _ := newPlanner()
		s.On("History", ctx, model.OpeningHoursKey).Return(versions, nil).Once()

		res, err := p.ApplyDefault(ctx, week(), "seed")
		require.NoError(t, err)
		assert.False(t, res.Saved)
		assert.Equal(t, "v0", res.Setting.ID)
		d.AssertNotCalled(t, "Detect", mock.Anything, mock.Anything, mock.Anything)
		s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	edited := week()
	edited[model.Saturday] = model.Closed()

	t.Run("edit replaces undated version", func(t *testing.T) {
		p, s, d, pub := newPlanner()
		s.On("History", ctx, model.OpeningHoursKey).Return(versions, nil).Once()
		s.On("Today").Return(today)
		d.On("Detect", ctx, edited, today).Return([]model.SessionConflict{}, nil).Once()
		s.On("Save", ctx, model.OpeningHoursKey, edited.Normalize(), (*model.Date)(nil), "seed").
			Return(&model.VersionedSetting{ID: "v0"}, nil).Once()
		pub.On("PublishJSON", events.OpeningHoursSaved, mock.Anything).Return(nil).Once()

		res, err := p.ApplyDefault(ctx, edited, "seed")
		require.NoError(t, err)
		assert.True(t, res.Saved)
		s.AssertExpectations(t)
	})

	t.Run("edit blocked by booked sessions", func(t *testing.T) {
		p, s, d, _ := newPlanner()
		s.On("History", ctx, model.OpeningHoursKey).Return(versions, nil).Once()
		s.On("Today").Return(today)
		d.On("Detect", ctx, edited, today).Return([]model.SessionConflict{{SessionID: 4, Reason: "Studio closed on this day"}}, nil).Once()

		res, err := p.ApplyDefault(ctx, edited, "seed")
		require.NoError(t, err)
		assert.False(t, res.Saved)
		assert.Len(t, res.Conflicts, 1)
		s.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("history error", func(t *testing.T) {
		p, s, _, _ := newPlanner()
		boom := errors.New("locked")
		s.On("History", ctx, model.OpeningHoursKey).Return(nil, boom).Once()

		_, err := p.ApplyDefault(ctx, edited, "seed")
		assert.ErrorIs(t, err, boom)
	})
}
