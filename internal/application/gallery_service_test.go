package application_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/office-planner/internal/application"
	"github.com/example/office-planner/internal/testfixtures"
)

type galleryEnv struct {
	ctx      context.Context
	svc      *application.GalleryService
	blobs    *testfixtures.MemoryBlobs
	employee string
}

func newGalleryEnv(t *testing.T) galleryEnv {
	t.Helper()
	harness := testfixtures.NewSQLiteHarness(t)
	blobs := testfixtures.NewMemoryBlobs()
	employee := harness.SeedEmployee(testfixtures.NewEmployeeFixture())
	return galleryEnv{
		ctx:      context.Background(),
		svc:      testfixtures.NewServiceFactory().NewGalleryService(harness.Store, blobs),
		blobs:    blobs,
		employee: employee.ID,
	}
}

func (e galleryEnv) upload(t *testing.T, title string, order int) application.EmployeeImage {
	t.Helper()
	img, err := e.svc.UploadImage(e.ctx, application.UploadImageParams{
		Principal:   testfixtures.AdminPrincipal(),
		EmployeeID:  e.employee,
		Title:       title,
		Order:       order,
		ContentType: "image/jpeg",
		Size:        int64(len(title)),
	}, strings.NewReader(title))
	require.NoError(t, err)
	return img
}

func orders(g application.Gallery) map[string]int {
	out := map[string]int{}
	if g.Main != nil {
		out[g.Main.Title] = g.Main.Order
	}
	for _, img := range g.Others {
		out[img.Title] = img.Order
	}
	return out
}

func TestGalleryService_UploadResolvesOrder(t *testing.T) {
	env := newGalleryEnv(t)

	first := env.upload(t, "first", 0)
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "employees/"+env.employee+"/image-1.jpg", first.ObjectKey)
	assert.Equal(t, 2, env.upload(t, "second", 0).Order)
	assert.Equal(t, 3, env.upload(t, "clash", 1).Order, "taken orders go to the end")
	assert.Equal(t, 7, env.upload(t, "seventh", 7).Order)

	g, err := env.svc.ListImages(env.ctx, application.Principal{UserID: "viewer"}, env.employee)
	require.NoError(t, err)
	require.NotNil(t, g.Main)
	assert.Equal(t, "first", g.Main.Title)
	require.Len(t, g.Others, 3)
	assert.Equal(t, "second", g.Others[0].Title)
	assert.Equal(t, "seventh", g.Others[2].Title)
}

func TestGalleryService_DeleteResequences(t *testing.T) {
	env := newGalleryEnv(t)

	first := env.upload(t, "first", 0)
	env.upload(t, "second", 0)
	env.upload(t, "third", 5)

	require.NoError(t, env.svc.DeleteImage(env.ctx, testfixtures.AdminPrincipal(), env.employee, first.ID))

	g, err := env.svc.ListImages(env.ctx, application.Principal{UserID: "viewer"}, env.employee)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"second": 1, "third": 2}, orders(g))
	assert.Len(t, env.blobs.Keys(), 2)

	err = env.svc.DeleteImage(env.ctx, testfixtures.AdminPrincipal(), env.employee, first.ID)
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestGalleryService_UpdateOrder(t *testing.T) {
	env := newGalleryEnv(t)

	first := env.upload(t, "first", 0)
	env.upload(t, "second", 0)

	same, err := env.svc.UpdateImage(env.ctx, application.UpdateImageParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: env.employee,
		ImageID:    first.ID,
		Order:      intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, same.Order, "an image never clashes with itself")

	moved, err := env.svc.UpdateImage(env.ctx, application.UpdateImageParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: env.employee,
		ImageID:    first.ID,
		Title:      strPtr("renamed"),
		Order:      intPtr(2),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, moved.Order)
	assert.Equal(t, "renamed", moved.Title)

	_, err = env.svc.UpdateImage(env.ctx, application.UpdateImageParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: "someone-else",
		ImageID:    first.ID,
		Order:      intPtr(1),
	})
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestGalleryService_OpenImage(t *testing.T) {
	env := newGalleryEnv(t)
	img := env.upload(t, "bytes", 0)

	meta, body, err := env.svc.OpenImage(env.ctx, application.Principal{UserID: "viewer"}, env.employee, img.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "bytes", string(data))
	assert.Equal(t, "image/jpeg", meta.ContentType)
}

func TestGalleryService_UploadFailures(t *testing.T) {
	env := newGalleryEnv(t)

	_, err := env.svc.UploadImage(env.ctx, application.UploadImageParams{
		Principal:   application.Principal{UserID: "viewer"},
		EmployeeID:  env.employee,
		ContentType: "image/png",
		Size:        1,
	}, strings.NewReader("x"))
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	_, err = env.svc.UploadImage(env.ctx, application.UploadImageParams{
		Principal:   testfixtures.AdminPrincipal(),
		EmployeeID:  env.employee,
		ContentType: "application/pdf",
		Size:        1,
	}, strings.NewReader("x"))
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.FieldErrors, "content_type")

	env.blobs.PutErr = errors.New("disk full")
	_, err = env.svc.UploadImage(env.ctx, application.UploadImageParams{
		Principal:   testfixtures.AdminPrincipal(),
		EmployeeID:  env.employee,
		ContentType: "image/png",
		Size:        1,
	}, strings.NewReader("x"))
	require.Error(t, err)

	g, err := env.svc.ListImages(env.ctx, application.Principal{UserID: "viewer"}, env.employee)
	require.NoError(t, err)
	assert.Nil(t, g.Main)
	assert.Empty(t, g.Others)
}

func TestGalleryService_ConcurrentDeletesLeaveDenseOrders(t *testing.T) {
	env := newGalleryEnv(t)
	images := make([]application.EmployeeImage, 7)
	for i := range images {
		images[i] = env.upload(t, fmt.Sprintf("photo-%d", i), 0)
	}

	doomed := []application.EmployeeImage{images[1], images[3], images[4]}
	errs := make([]error, len(doomed))
	var wg sync.WaitGroup
	for i, img := range doomed {
		wg.Add(1)
		go func(slot int, imageID string) {
			defer wg.Done()
			errs[slot] = env.svc.DeleteImage(env.ctx, testfixtures.AdminPrincipal(), env.employee, imageID)
		}(i, img.ID)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	g, err := env.svc.ListImages(env.ctx, application.Principal{UserID: "viewer"}, env.employee)
	require.NoError(t, err)
	got := orders(g)
	require.Len(t, got, 4)
	values := make([]int, 0, len(got))
	for _, order := range got {
		values = append(values, order)
	}
	sort.Ints(values)
	assert.Equal(t, []int{1, 2, 3, 4}, values)
	assert.Equal(t, 1, got["photo-0"])
	assert.Equal(t, 4, got["photo-6"])
	for _, img := range doomed {
		assert.NotContains(t, env.blobs.Keys(), img.ObjectKey)
	}
}

func TestGalleryService_UpdateRejectsZeroOrder(t *testing.T) {
	env := newGalleryEnv(t)
	first := env.upload(t, "first", 0)
	env.upload(t, "second", 0)

	_, err := env.svc.UpdateImage(env.ctx, application.UpdateImageParams{
		Principal:  testfixtures.AdminPrincipal(),
		EmployeeID: env.employee,
		ImageID:    first.ID,
		Order:      intPtr(0),
	})
	var vErr *application.ValidationError
	require.True(t, errors.As(err, &vErr), "got %v", err)
	assert.Contains(t, vErr.FieldErrors, "order")

	g, err := env.svc.ListImages(env.ctx, application.Principal{UserID: "viewer"}, env.employee)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"first": 1, "second": 2}, orders(g))
}
