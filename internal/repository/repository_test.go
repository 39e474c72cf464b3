package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/lets-meet/internal/model"
)

type eventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByCode(ctx context.Context, code string) (*model.Event, error)
}

type availabilityStore interface {
	Add(ctx context.Context, a *model.AvailabilityResponse) error
	ListByEvent(ctx context.Context, eventID string) ([]model.AvailabilityResponse, error)
}

// openStores returns both repositories over a fresh, empty schema.
type openStores func(t *testing.T) (eventStore, availabilityStore)

func testEvent(id, code string) *model.Event {
	base := time.Date(2031, 3, 14, 9, 0, 0, 0, time.UTC)
	return &model.Event{
		ID:           id,
		Code:         code,
		Name:         "Quarterly planning",
		Description:  "Pick a slot",
		CreatorName:  "Ada",
		CreatorEmail: "ada@example.com",
		PotentialDates: []time.Time{
			base.Add(48 * time.Hour),
			base,
			base.Add(24*time.Hour + 500*time.Microsecond),
		},
		CreatedAt: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// runStoreTests exercises the behaviour every event store must share.
func runStoreTests(t *testing.T, open openStores) {
	tests := []struct {
		name string
		run  func(t *testing.T, events eventStore, avail availabilityStore)
	}{
		{"create and get keeps date order", testCreateAndGet},
		{"unknown code", testGetUnknownCode},
		{"duplicate code", testDuplicateCode},
		{"duplicate id is not a code clash", testDuplicateID},
		{"responses list in submission order", testAddAndList},
		{"response for unknown event", testUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, avail := open(t)
			tt.run(t, events, avail)
		})
	}
}

func testCreateAndGet(t *testing.T, repo eventStore, _ availabilityStore) {
	ctx := context.Background()

	want := testEvent("e1", "ABC123")
	if err := repo.Create(ctx, want); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("GetByCode: %v", err)
	}
	if got.ID != want.ID || got.Name != want.Name || got.CreatorEmail != want.CreatorEmail {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if len(got.PotentialDates) != len(want.PotentialDates) {
		t.Fatalf("got %d dates, want %d", len(got.PotentialDates), len(want.PotentialDates))
	}
	for i := range want.PotentialDates {
		if !got.PotentialDates[i].Equal(want.PotentialDates[i]) {
			t.Errorf("date[%d] = %v, want %v", i, got.PotentialDates[i], want.PotentialDates[i])
		}
		if got.PotentialDates[i].Location() != time.UTC {
			t.Errorf("date[%d] location = %v, want UTC", i, got.PotentialDates[i].Location())
		}
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func testGetUnknownCode(t *testing.T, repo eventStore, _ availabilityStore) {
	_, err := repo.GetByCode(context.Background(), "NOPE00")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func testDuplicateCode(t *testing.T, repo eventStore, _ availabilityStore) {
	ctx := context.Background()

	if err := repo.Create(ctx, testEvent("e1", "SAME01")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, testEvent("e2", "SAME01"))
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("err = %v, want ErrDuplicateCode", err)
	}
}

func testDuplicateID(t *testing.T, repo eventStore, _ availabilityStore) {
	ctx := context.Background()

	if err := repo.Create(ctx, testEvent("e1", "FIRST1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := repo.Create(ctx, testEvent("e1", "OTHER1"))
	if err == nil || errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("err = %v, want a non-code failure", err)
	}
}

func testAddAndList(t *testing.T, events eventStore, avail availabilityStore) {
	ctx := context.Background()

	ev := testEvent("e1", "LIST01")
	if err := events.Create(ctx, ev); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Identical timestamps: order must come from insertion alone.
	at := time.Date(2030, 2, 1, 8, 0, 0, 0, time.UTC)
	names := []string{"Bea", "Cal", "Bea", "Dan", "Eve"}
	for i, name := range names {
		a := &model.AvailabilityResponse{
			ID:              fmt.Sprintf("a%d", len(names)-i),
			EventID:         ev.ID,
			ParticipantName: name,
			AvailableTimes:  []time.Time{ev.PotentialDates[i%2], ev.PotentialDates[2]},
			CreatedAt:       at,
		}
		if err := avail.Add(ctx, a); err != nil {
			t.Fatalf("Add %s: %v", name, err)
		}
	}

	got, err := avail.ListByEvent(ctx, ev.ID)
	if err != nil {
		t.Fatalf("ListByEvent: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d responses, want %d", len(got), len(names))
	}
	for i, name := range names {
		if got[i].ParticipantName != name {
			t.Fatalf("response %d = %s, want %s (order %+v)", i, got[i].ParticipantName, name, got)
		}
	}
	times := got[1].AvailableTimes
	if len(times) != 2 || !times[0].Equal(ev.PotentialDates[1]) || !times[1].Equal(ev.PotentialDates[2]) {
		t.Errorf("available times = %v, want [%v %v]", times, ev.PotentialDates[1], ev.PotentialDates[2])
	}
}

func testUnknownEvent(t *testing.T, _ eventStore, avail availabilityStore) {
	err := avail.Add(context.Background(), &model.AvailabilityResponse{
		ID:              "a1",
		EventID:         "missing",
		ParticipantName: "Bea",
		AvailableTimes:  []time.Time{},
		CreatedAt:       time.Now(),
	})
	if err == nil {
		t.Fatal("expected foreign key violation, got nil")
	}
}
