// Package gallery keeps the display order of an employee's images.
//
// Orders within one employee start at 1. A requested order that is already
// taken is never shifted into place; the new image goes to the end instead.
// After a delete the survivors are renumbered 1..N.
package gallery

import (
	"sort"
	"time"
)

// Image is the ordering view of an employee image.
type Image struct {
	ID        string
	Order     int
	CreatedAt time.Time
}

// OrderChange is a renumbering that must be written back.
type OrderChange struct {
	ID       string
	OldOrder int
	NewOrder int
}

// NextOrder returns one past the highest order, or 1 for an empty set.
func NextOrder(images []Image) int {
	highest := 0
	for _, img := range images {
		if img.Order > highest {
			highest = img.Order
		}
	}
	return highest + 1
}

// ResolveOrder picks the order for the image selfID given its siblings. An
// empty selfID denotes a new image. Zero means "append"; a value held by a
// sibling is moved to the end and the holder keeps it.
func ResolveOrder(images []Image, selfID string, requested int) int {
	others := make([]Image, 0, len(images))
	for _, img := range images {
		if selfID != "" && img.ID == selfID {
			continue
		}
		others = append(others, img)
	}

	if requested <= 0 {
		return NextOrder(others)
	}
	for _, img := range others {
		if img.Order == requested {
			return NextOrder(others)
		}
	}
	return requested
}

// Sorted returns images by order, then creation time, then id.
func Sorted(images []Image) []Image {
	out := make([]Image, len(images))
	copy(out, images)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Resequence assigns dense orders 1..N in sorted order and returns only the
// images whose order changed.
func Resequence(images []Image) []OrderChange {
	var changes []OrderChange
	for i, img := range Sorted(images) {
		want := i + 1
		if img.Order != want {
			changes = append(changes, OrderChange{ID: img.ID, OldOrder: img.Order, NewOrder: want})
		}
	}
	return changes
}

// MainPhoto returns the first image by order.
func MainPhoto(images []Image) (Image, bool) {
	if len(images) == 0 {
		return Image{}, false
	}
	return Sorted(images)[0], true
}

// Secondary returns every image except the main photo, in order.
func Secondary(images []Image) []Image {
	if len(images) <= 1 {
		return nil
	}
	return Sorted(images)[1:]
}
