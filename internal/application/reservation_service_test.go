package application_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/persistence/sqlite"
	"github.com/example/office-planner/internal/testfixtures"
)

type reservationEnv struct {
	ctx     context.Context
	harness *testfixtures.SQLiteHarness
	svc     *application.ReservationService

	developer testfixtures.UserFixture
	tester    testfixtures.UserFixture
	plain     testfixtures.UserFixture

	desks map[string]persistence.Desk
}

func newReservationEnv(t *testing.T, maxSeries int) reservationEnv {
	t.Helper()
	harness := testfixtures.NewSQLiteHarness(t)
	env := reservationEnv{
		ctx:       context.Background(),
		harness:   harness,
		svc:       testfixtures.NewServiceFactory().NewReservationService(harness.Store, maxSeries),
		developer: testfixtures.NewUserFixture(testfixtures.WithUserGroups("Developers")),
		tester:    testfixtures.NewUserFixture(testfixtures.WithUserGroups("Testers")),
		plain:     testfixtures.NewUserFixture(),
		desks:     map[string]persistence.Desk{},
	}
	harness.SeedUser(env.developer)
	harness.SeedUser(env.tester)
	harness.SeedUser(env.plain)
	for _, number := range []string{"101", "102", "105"} {
		env.desks[number] = harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber(number)))
	}
	env.desks["106"] = harness.SeedDesk(testfixtures.NewDeskFixture(
		testfixtures.WithDeskNumber("106"),
		testfixtures.WithDeskAvailable(false),
	))
	return env
}

func (e reservationEnv) reserve(user testfixtures.UserFixture, desk string, date time.Time) (application.Reservation, error) {
	return e.svc.CreateReservation(e.ctx, application.CreateReservationParams{
		Principal: user.Principal(),
		DeskID:    e.desks[desk].ID,
		Date:      date,
	})
}

func TestReservationService_CreateAppliesSeatingRule(t *testing.T) {
	env := newReservationEnv(t, 0)
	day := testfixtures.Date(2024, time.January, 10)

	booked, err := env.reserve(env.developer, "101", day)
	require.NoError(t, err)
	assert.Equal(t, "reservation-1", booked.ID)
	assert.Equal(t, env.developer.Username, booked.Username)
	assert.Equal(t, "101", booked.DeskNumber)
	assert.Equal(t, day, booked.Date)

	_, err = env.reserve(env.tester, "102", day)
	var pErr *application.PlacementError
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, application.PlacementRejected, pErr.Kind)
	assert.Equal(t, "2024-01-10", pErr.Date)

	_, err = env.reserve(env.tester, "102", day.AddDate(0, 0, 1))
	require.NoError(t, err, "the rule only applies within one date")

	_, err = env.reserve(env.tester, "105", day)
	require.NoError(t, err)

	_, err = env.reserve(env.plain, "101", day)
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, application.PlacementDuplicate, pErr.Kind)
}

func TestReservationService_CreateValidation(t *testing.T) {
	env := newReservationEnv(t, 0)

	_, err := env.reserve(env.plain, "101", testfixtures.Date(2024, time.January, 1))
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Contains(t, vErr.FieldErrors, "date")

	_, err = env.reserve(env.plain, "106", testfixtures.Date(2024, time.January, 3))
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "desk 106 is not available for reservations", vErr.FieldErrors["desk_id"])

	_, err = env.svc.CreateReservation(env.ctx, application.CreateReservationParams{
		Principal: env.plain.Principal(),
		DeskID:    "missing",
		Date:      testfixtures.Date(2024, time.January, 3),
	})
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Contains(t, vErr.FieldErrors, "desk_id")

	_, err = env.svc.CreateReservation(env.ctx, application.CreateReservationParams{
		DeskID: env.desks["101"].ID,
		Date:   testfixtures.Date(2024, time.January, 3),
	})
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	today, err := env.reserve(env.plain, "101", testfixtures.Date(2024, time.January, 2))
	require.NoError(t, err, "today is bookable")
	assert.NotEmpty(t, today.ID)
}

func TestReservationService_SeriesIsAllOrNothing(t *testing.T) {
	env := newReservationEnv(t, 0)
	env.harness.SeedReservation(testfixtures.NewReservationFixture(
		env.plain.ID, env.desks["101"].ID, testfixtures.Date(2024, time.January, 17),
	))

	_, err := env.svc.CreateSeries(env.ctx, application.CreateReservationSeriesParams{
		Principal: env.developer.Principal(),
		DeskID:    env.desks["101"].ID,
		Rule:      "FREQ=WEEKLY;BYDAY=MO,WE",
		Start:     testfixtures.Date(2024, time.January, 8),
		Until:     testfixtures.Date(2024, time.January, 21),
	})
	var pErr *application.PlacementError
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, application.PlacementDuplicate, pErr.Kind)
	assert.Equal(t, "2024-01-17", pErr.Date)

	mine, err := env.svc.ListReservations(env.ctx, application.ListReservationsParams{UserID: env.developer.ID})
	require.NoError(t, err)
	assert.Empty(t, mine)

	created, err := env.svc.CreateSeries(env.ctx, application.CreateReservationSeriesParams{
		Principal: env.developer.Principal(),
		DeskID:    env.desks["105"].ID,
		Rule:      "RRULE:FREQ=WEEKLY;BYDAY=MO,WE",
		Start:     testfixtures.Date(2024, time.January, 8),
		Until:     testfixtures.Date(2024, time.January, 21),
	})
	require.NoError(t, err)
	require.Len(t, created, 4)
	assert.Equal(t, testfixtures.Date(2024, time.January, 8), created[0].Date)
	assert.Equal(t, testfixtures.Date(2024, time.January, 17), created[3].Date)
}

func TestReservationService_SeriesValidation(t *testing.T) {
	env := newReservationEnv(t, 3)
	base := application.CreateReservationSeriesParams{
		Principal: env.developer.Principal(),
		DeskID:    env.desks["101"].ID,
		Rule:      "FREQ=DAILY",
		Start:     testfixtures.Date(2024, time.January, 8),
		Until:     testfixtures.Date(2024, time.January, 31),
	}

	cases := map[string]func(p *application.CreateReservationSeriesParams){
		"rule":  func(p *application.CreateReservationSeriesParams) {},
		"until": func(p *application.CreateReservationSeriesParams) { p.Until = testfixtures.Date(2024, time.January, 7) },
		"start": func(p *application.CreateReservationSeriesParams) { p.Start = testfixtures.Date(2023, time.December, 31) },
	}
	for field, mutate := range cases {
		params := base
		mutate(&params)
		_, err := env.svc.CreateSeries(env.ctx, params)
		var vErr *application.ValidationError
		require.True(t, errors.As(err, &vErr), "%s: got %v", field, err)
		assert.Contains(t, vErr.FieldErrors, field)
	}

	params := base
	params.Rule = "FREQ=NEVER"
	_, err := env.svc.CreateSeries(env.ctx, params)
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "rule is not a valid recurrence rule", vErr.FieldErrors["rule"])
}

func TestReservationService_DeleteRequiresOwnerOrAdmin(t *testing.T) {
	env := newReservationEnv(t, 0)
	day := testfixtures.Date(2024, time.February, 1)

	first, err := env.reserve(env.plain, "101", day)
	require.NoError(t, err)
	second, err := env.reserve(env.plain, "105", day)
	require.NoError(t, err)

	assert.ErrorIs(t, env.svc.DeleteReservation(env.ctx, env.developer.Principal(), first.ID), application.ErrUnauthorized)
	require.NoError(t, env.svc.DeleteReservation(env.ctx, env.plain.Principal(), first.ID))
	require.NoError(t, env.svc.DeleteReservation(env.ctx, testfixtures.AdminPrincipal(), second.ID))

	_, err = env.svc.GetReservation(env.ctx, env.plain.Principal(), first.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestReservationService_ListFilters(t *testing.T) {
	env := newReservationEnv(t, 0)
	jan3 := testfixtures.Date(2024, time.January, 3)
	jan4 := testfixtures.Date(2024, time.January, 4)

	_, err := env.reserve(env.plain, "101", jan3)
	require.NoError(t, err)
	_, err = env.reserve(env.developer, "105", jan3)
	require.NoError(t, err)
	_, err = env.reserve(env.plain, "101", jan4)
	require.NoError(t, err)

	onDate, err := env.svc.ListReservations(env.ctx, application.ListReservationsParams{Date: &jan3})
	require.NoError(t, err)
	assert.Len(t, onDate, 2)

	byDesk, err := env.svc.ListReservations(env.ctx, application.ListReservationsParams{DeskID: env.desks["101"].ID})
	require.NoError(t, err)
	require.Len(t, byDesk, 2)
	assert.Equal(t, jan3, byDesk[0].Date)
	assert.Equal(t, jan4, byDesk[1].Date)

	byUser, err := env.svc.ListReservations(env.ctx, application.ListReservationsParams{UserID: env.developer.ID})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, "105", byUser[0].DeskNumber)
}

func TestReservationService_ConcurrentAdjacentBookingsKeepOneOfEachPair(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewReservationService(harness.Store, 0)
	developer := testfixtures.NewUserFixture(testfixtures.WithUserGroups("Developers"))
	tester := testfixtures.NewUserFixture(testfixtures.WithUserGroups("Testers"))
	harness.SeedUser(developer)
	harness.SeedUser(tester)

	const pairs = 8
	deskPair := make(map[string]int, pairs*2)
	deskIDs := make([][2]string, pairs)
	for i := 0; i < pairs; i++ {
		for j := 0; j < 2; j++ {
			desk := harness.SeedDesk(testfixtures.NewDeskFixture(
				testfixtures.WithDeskNumber(fmt.Sprintf("3%d%d", i, j+1)),
			))
			deskPair[desk.ID] = i
			deskIDs[i][j] = desk.ID
		}
	}

	day := testfixtures.Date(2024, time.January, 10)
	users := [2]testfixtures.UserFixture{developer, tester}
	errs := make([]error, pairs*2)
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func(slot int, user testfixtures.UserFixture, deskID string) {
				defer wg.Done()
				_, errs[slot] = svc.CreateReservation(ctx, application.CreateReservationParams{
					Principal: user.Principal(),
					DeskID:    deskID,
					Date:      day,
				})
			}(i*2+j, users[j], deskIDs[i][j])
		}
	}
	wg.Wait()

	for _, err := range errs {
		if err == nil {
			continue
		}
		var pErr *application.PlacementError
		require.True(t, errors.As(err, &pErr), "got %v", err)
		assert.Equal(t, application.PlacementRejected, pErr.Kind)
	}

	stored, err := harness.Store.Reservations().ListReservations(ctx, persistence.ReservationFilter{Date: &day})
	require.NoError(t, err)
	perPair := map[int]int{}
	for _, r := range stored {
		perPair[deskPair[r.DeskID]]++
	}
	assert.Len(t, stored, pairs)
	for i := 0; i < pairs; i++ {
		assert.Equal(t, 1, perPair[i], "pair %d", i)
	}
}

var errReplayed = errors.New("transaction replayed")

// replayingStore runs every transaction twice: once with seed applied and
// rolled back, then for real, the way a busy database retry does.
type replayingStore struct {
	*sqlite.Storage
	seed func(ctx context.Context, repos persistence.Repositories) error
}

func (s replayingStore) WithinTx(ctx context.Context, fn func(repos persistence.Repositories) error) error {
	err := s.Storage.WithinTx(ctx, func(repos persistence.Repositories) error {
		if err := s.seed(ctx, repos); err != nil {
			return err
		}
		if err := fn(repos); err != nil {
			return err
		}
		return errReplayed
	})
	if !errors.Is(err, errReplayed) {
		return err
	}
	return s.Storage.WithinTx(ctx, fn)
}

func TestReservationService_RetriedTransactionDropsStaleWarnings(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	developer := testfixtures.NewUserFixture(testfixtures.WithUserGroups("Developers"))
	other := testfixtures.NewUserFixture()
	harness.SeedUser(developer)
	harness.SeedUser(other)
	desk := harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("101")))
	lobby := harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("Lobby")))
	day := testfixtures.Date(2024, time.January, 10)

	store := replayingStore{
		Storage: harness.Store,
		seed: func(ctx context.Context, repos persistence.Repositories) error {
			booking := testfixtures.NewReservationFixture(other.ID, lobby.ID, day)
			return repos.Reservations().CreateReservation(ctx, booking.Persistence())
		},
	}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := testfixtures.NewServiceFactory(testfixtures.WithLogger(zap.New(core))).NewReservationService(store, 0)

	booked, err := svc.CreateReservation(ctx, application.CreateReservationParams{
		Principal: developer.Principal(),
		DeskID:    desk.ID,
		Date:      day,
	})
	require.NoError(t, err)
	assert.Equal(t, "101", booked.DeskNumber)
	assert.Zero(t, logs.FilterMessage("desk adjacency undecidable").Len(),
		"warnings from the rolled back attempt must not be logged")

	stored, err := harness.Store.Reservations().ListReservations(ctx, persistence.ReservationFilter{Date: &day})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, desk.ID, stored[0].DeskID)
}
