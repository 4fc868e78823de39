package application_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/persistence"
	"github.com/example/office-planner/internal/testfixtures"
)

func employeeInput(first, last, position string, desk *string) application.EmployeeInput {
	return application.EmployeeInput{
		FirstName:  first,
		LastName:   last,
		Position:   position,
		Gender:     "male",
		DeskNumber: desk,
		HireDate:   testfixtures.Date(2023, time.June, 1),
	}
}

func TestEmployeeService_CreateRejectsDeveloperNextToTester(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())
	admin := testfixtures.AdminPrincipal()

	harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("201")))
	harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("202")))
	harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("204")))

	tester, err := svc.CreateEmployee(ctx, application.CreateEmployeeParams{
		Principal: admin,
		Input:     employeeInput("Tess", "Ter", "tester", strPtr("201")),
	})
	require.NoError(t, err)
	assert.Equal(t, "TESTER", tester.Category)
	require.NotNil(t, tester.Desk)
	assert.Equal(t, "201", tester.Desk.Number)
	assert.Equal(t, 215, tester.WorkExperienceDays)

	_, err = svc.CreateEmployee(ctx, application.CreateEmployeeParams{
		Principal: admin,
		Input:     employeeInput("Dev", "Eloper", "frontend", strPtr("202")),
	})
	var pErr *application.PlacementError
	require.True(t, errors.As(err, &pErr), "got %v", err)
	assert.Equal(t, application.PlacementRejected, pErr.Kind)
	assert.Equal(t, "201", pErr.Rejection.NeighborDesk)
	assert.Contains(t, pErr.Error(), "Tess Ter")

	manager, err := svc.CreateEmployee(ctx, application.CreateEmployeeParams{
		Principal: admin,
		Input:     employeeInput("Man", "Ager", "manager", strPtr("202")),
	})
	require.NoError(t, err, "managers may sit next to testers")
	assert.Equal(t, "OTHER", manager.Category)

	all, err := svc.ListEmployees(ctx, application.ListEmployeesParams{})
	require.NoError(t, err)
	assert.Len(t, all, 2, "the rejected employee must not be stored")
}

func TestEmployeeService_UnknownDeskIsFieldError(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())
	employee := harness.SeedEmployee(testfixtures.NewEmployeeFixture())

	_, err := svc.MoveEmployee(ctx, application.MoveEmployeeParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: employee.ID,
		DeskNumber: strPtr("999"),
	})
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Equal(t, "desk 999 does not exist", vErr.FieldErrors["desk_number"])
}

func TestEmployeeService_MoveRequiresKeeper(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())

	harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("301")))
	employee := harness.SeedEmployee(testfixtures.NewEmployeeFixture())

	params := application.MoveEmployeeParams{
		Principal:  application.Principal{UserID: "viewer", Groups: []string{"Developers"}},
		EmployeeID: employee.ID,
		DeskNumber: strPtr("301"),
	}
	_, err := svc.MoveEmployee(ctx, params)
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	params.Principal.Groups = []string{application.DefaultKeeperGroup}
	moved, err := svc.MoveEmployee(ctx, params)
	require.NoError(t, err)
	require.NotNil(t, moved.Desk)
	assert.Equal(t, "301", moved.Desk.Number)

	params.DeskNumber = nil
	unseated, err := svc.MoveEmployee(ctx, params)
	require.NoError(t, err)
	assert.Nil(t, unseated.Desk)
}

func TestEmployeeService_MoveIgnoresOwnPreviousSeat(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())

	from := harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("401")))
	harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("402")))
	tester := harness.SeedEmployee(testfixtures.NewEmployeeFixture(
		testfixtures.WithEmployeePosition("tester"),
		testfixtures.WithEmployeeDesk(from.ID),
	))

	moved, err := svc.MoveEmployee(ctx, application.MoveEmployeeParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: tester.ID,
		DeskNumber: strPtr("402"),
	})
	require.NoError(t, err)
	assert.Equal(t, "402", moved.Desk.Number)
}

func TestEmployeeService_Validation(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())

	input := employeeInput("", "Doe", "pilot", nil)
	input.HireDate = testfixtures.ReferenceTime().AddDate(0, 0, 3)
	input.Skills = []application.SkillLevelInput{{SkillID: "s", Level: 5}, {SkillID: "s", Level: 1}}

	_, err := svc.CreateEmployee(ctx, application.CreateEmployeeParams{Principal: testfixtures.AdminPrincipal(), Input: input})
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	for _, field := range []string{"first_name", "position", "hire_date", "skills[0].level", "skills"} {
		assert.Contains(t, vErr.FieldErrors, field)
	}

	input = employeeInput("Jane", "Doe", "backend", nil)
	input.Skills = []application.SkillLevelInput{{SkillID: "missing", Level: 2}}
	_, err = svc.CreateEmployee(ctx, application.CreateEmployeeParams{Principal: testfixtures.AdminPrincipal(), Input: input})
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Contains(t, vErr.FieldErrors, "skills")
}

func TestEmployeeService_ListFilters(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())

	golang := harness.SeedSkill(testfixtures.NewSkillFixture("Go"))
	desk := harness.SeedDesk(testfixtures.NewDeskFixture(testfixtures.WithDeskNumber("501")))

	veteran := harness.SeedEmployee(testfixtures.NewEmployeeFixture(
		testfixtures.WithEmployeeName("Vera", "Aardvark"),
		testfixtures.WithEmployeeHireDate(testfixtures.Date(2020, time.January, 2)),
		testfixtures.WithEmployeeSkill(golang.ID, 4),
		testfixtures.WithEmployeeDesk(desk.ID),
	))
	junior := harness.SeedEmployee(testfixtures.NewEmployeeFixture(
		testfixtures.WithEmployeeName("Juno", "Zebra"),
		testfixtures.WithEmployeePosition("tester"),
		testfixtures.WithEmployeeGender("male"),
		testfixtures.WithEmployeeHireDate(testfixtures.Date(2023, time.December, 23)),
	))

	ids := func(params application.ListEmployeesParams) []string {
		t.Helper()
		list, err := svc.ListEmployees(ctx, params)
		require.NoError(t, err)
		out := make([]string, len(list))
		for i, e := range list {
			out[i] = e.ID
		}
		return out
	}

	assert.Equal(t, []string{veteran.ID, junior.ID}, ids(application.ListEmployeesParams{}))
	assert.Equal(t, []string{junior.ID}, ids(application.ListEmployeesParams{Position: "tester"}))
	assert.Equal(t, []string{junior.ID}, ids(application.ListEmployeesParams{Gender: "male"}))
	assert.Equal(t, []string{veteran.ID}, ids(application.ListEmployeesParams{SkillID: golang.ID}))
	assert.Equal(t, []string{veteran.ID}, ids(application.ListEmployeesParams{DeskNumber: "501"}))
	assert.Empty(t, ids(application.ListEmployeesParams{DeskNumber: "nope"}))
	assert.Equal(t, []string{junior.ID}, ids(application.ListEmployeesParams{MaxExperienceDays: intPtr(10)}))
	assert.Equal(t, []string{veteran.ID}, ids(application.ListEmployeesParams{MinExperienceDays: intPtr(11)}))

	_, err := svc.ListEmployees(ctx, application.ListEmployeesParams{MinExperienceDays: intPtr(5), MaxExperienceDays: intPtr(1)})
	var vErr *application.ValidationError
	assert.True(t, errors.As(err, &vErr))
}

func TestEmployeeService_DeleteRemovesImages(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	blobs := testfixtures.NewMemoryBlobs()
	factory := testfixtures.NewServiceFactory()
	employees := factory.NewEmployeeService(harness.Store, blobs)
	gallery := factory.NewGalleryService(harness.Store, blobs)

	employee := harness.SeedEmployee(testfixtures.NewEmployeeFixture())
	_, err := gallery.UploadImage(ctx, application.UploadImageParams{
		Principal:   testfixtures.AdminPrincipal(),
		EmployeeID:  employee.ID,
		ContentType: "image/png",
		Size:        3,
	}, bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	require.Len(t, blobs.Keys(), 1)

	require.NoError(t, employees.DeleteEmployee(ctx, testfixtures.AdminPrincipal(), employee.ID))
	assert.Empty(t, blobs.Keys())

	_, err = employees.GetEmployee(ctx, application.Principal{UserID: "viewer"}, employee.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
	_, err = gallery.ListImages(ctx, application.Principal{UserID: "viewer"}, employee.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestEmployeeService_Export(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())

	skill := harness.SeedSkill(testfixtures.NewSkillFixture("SQL"))
	harness.SeedEmployee(testfixtures.NewEmployeeFixture(
		testfixtures.WithEmployeeName("Ada", "Lovelace"),
		testfixtures.WithEmployeeSkill(skill.ID, 3),
	))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportEmployees(ctx, application.ListEmployeesParams{}, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows("Employees")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Lovelace", rows[1][0])
	assert.Equal(t, "SQL (3)", rows[1][7])
}

func TestEmployeeService_ConcurrentAdjacentCreatesKeepOneOfEachPair(t *testing.T) {
	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	svc := testfixtures.NewServiceFactory().NewEmployeeService(harness.Store, testfixtures.NewMemoryBlobs())
	admin := testfixtures.AdminPrincipal()

	const pairs = 12
	deskPair := make(map[string]int, pairs*2)
	for i := 0; i < pairs; i++ {
		for _, suffix := range []string{"1", "2"} {
			desk := harness.SeedDesk(testfixtures.NewDeskFixture(
				testfixtures.WithDeskNumber(fmt.Sprintf("R%02d%s", i, suffix)),
			))
			deskPair[desk.ID] = i
		}
	}

	errs := make([]error, pairs*2)
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		for j, position := range []string{"tester", "backend"} {
			wg.Add(1)
			go func(slot int, desk, position string) {
				defer wg.Done()
				_, errs[slot] = svc.CreateEmployee(ctx, application.CreateEmployeeParams{
					Principal: admin,
					Input:     employeeInput("Pat", fmt.Sprintf("No%d", slot), position, strPtr(desk)),
				})
			}(i*2+j, fmt.Sprintf("R%02d%d", i, j+1), position)
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

	stored, err := harness.Store.Employees().ListEmployees(ctx, persistence.EmployeeFilter{})
	require.NoError(t, err)
	perPair := map[int]int{}
	for _, e := range stored {
		require.NotNil(t, e.DeskID)
		perPair[deskPair[*e.DeskID]]++
	}
	assert.Len(t, stored, pairs)
	for i := 0; i < pairs; i++ {
		assert.Equal(t, 1, perPair[i], "pair %d", i)
	}
}
