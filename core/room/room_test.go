package room_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/crud"
	"github.com/trezcool/ratiba/core/room"
	inmemdb "github.com/trezcool/ratiba/storage/database/inmem"
)

func newService() *room.Service {
	validate, translator := core.NewValidator()
	return room.NewService(inmemdb.NewRoomRepository(inmemdb.Open()), validate, translator)
}

func newRoom(name, building, typ string, capacity int) room.Room {
	r := room.Template()
	r.Name = name
	r.Building = building
	r.Type = typ
	r.Capacity = capacity
	return r
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "want a validation error, got %v", err)
	return vErr.FieldMap()
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	valid := newRoom("A101", "Main Building", room.TypeLectureHall, 120)
	valid.Features = []string{"Projector", "Wi-Fi"}
	valid.SetAvailability("Monday", []string{"10:00-12:00", "08:00-09:30"})

	got, err := svc.Create(ctx, valid)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, []string{"08:00-09:30", "10:00-12:00"}, got.Availability["monday"])

	tests := []struct {
		name      string
		room      func() room.Room
		wantField string
	}{
		{
			name:      "blank name",
			room:      func() room.Room { return newRoom("  ", "Main Building", room.TypeClassroom, 30) },
			wantField: "name",
		},
		{
			name:      "zero capacity",
			room:      func() room.Room { return newRoom("B1", "Main Building", room.TypeClassroom, 0) },
			wantField: "capacity",
		},
		{
			name:      "unknown type",
			room:      func() room.Room { return newRoom("B1", "Main Building", "Garage", 30) },
			wantField: "type",
		},
		{
			name: "unknown feature",
			room: func() room.Room {
				r := newRoom("B1", "Main Building", room.TypeClassroom, 30)
				r.Features = []string{"Jacuzzi"}
				return r
			},
			wantField: "features[0]",
		},
		{
			name: "overlapping ranges",
			room: func() room.Room {
				r := newRoom("B1", "Main Building", room.TypeClassroom, 30)
				r.SetAvailability("tuesday", []string{"09:00-11:00", "10:00-12:00"})
				return r
			},
			wantField: "availability.tuesday",
		},
		{
			name: "malformed range",
			room: func() room.Room {
				r := newRoom("B1", "Main Building", room.TypeClassroom, 30)
				r.SetAvailability("friday", []string{"9am-10am"})
				return r
			},
			wantField: "availability.friday",
		},
		{
			name:      "duplicate name in building",
			room:      func() room.Room { return newRoom("a101", "main building", room.TypeClassroom, 30) },
			wantField: "name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.room())
			assert.Contains(t, fieldErrors(t, err), tt.wantField)
		})
	}

	t.Run("same name in another building", func(t *testing.T) {
		_, err := svc.Create(ctx, newRoom("A101", "Science Building", room.TypeScienceLab, 24))
		assert.NoError(t, err)
	})
}

func TestService_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	a, err := svc.Create(ctx, newRoom("A101", "Main Building", room.TypeClassroom, 30))
	require.NoError(t, err)
	b, err := svc.Create(ctx, newRoom("A102", "Main Building", room.TypeClassroom, 30))
	require.NoError(t, err)

	draft := a.Clone()
	draft.Capacity = 45
	draft.Status = room.StatusMaintenance
	got, err := svc.Update(ctx, a.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, 45, got.Capacity)
	assert.Equal(t, a.CreatedAt, got.CreatedAt)

	t.Run("rename onto a sibling", func(t *testing.T) {
		draft := a.Clone()
		draft.Name = b.Name
		_, err := svc.Update(ctx, a.ID, draft)
		assert.Contains(t, fieldErrors(t, err), "name")
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := svc.Update(ctx, "nope", draft)
		assert.True(t, errors.Is(err, core.ErrNotFound))
		assert.True(t, errors.Is(svc.Delete(ctx, "nope"), core.ErrNotFound))
	})

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err = svc.Get(ctx, a.ID)
	assert.Equal(t, room.ErrNotFound, err)
}

func TestService_Query(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	seed := []room.Room{
		newRoom("A101", "Main Building", room.TypeLectureHall, 120),
		newRoom("Chem 1", "Science Building", room.TypeScienceLab, 24),
		newRoom("PC Lab", "Main Building", room.TypeComputerLab, 40),
	}
	seed[2].SetAvailability("wednesday", []string{"13:00-17:00"})
	for _, r := range seed {
		_, err := svc.Create(ctx, r)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter *room.QueryFilter
		want   []string
	}{
		{name: "all", filter: nil, want: []string{"A101", "PC Lab", "Chem 1"}},
		{name: "building", filter: &room.QueryFilter{Building: " main building"}, want: []string{"A101", "PC Lab"}},
		{name: "search", filter: &room.QueryFilter{Search: "lab"}, want: []string{"PC Lab", "Chem 1"}},
		{name: "type", filter: &room.QueryFilter{Type: room.TypeScienceLab}, want: []string{"Chem 1"}},
		{name: "day", filter: &room.QueryFilter{Day: "Wednesday"}, want: []string{"PC Lab"}},
		{name: "none", filter: &room.QueryFilter{Status: room.StatusInactive}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, err := svc.Query(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(rooms))
			for _, r := range rooms {
				names = append(names, r.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestStore_DistinctBuildings(t *testing.T) {
	ctx := context.Background()
	store := crud.NewStore[room.Room](crud.FromService[room.Room](newService()))

	var scienceID string
	for _, r := range []room.Room{
		newRoom("A101", "Main Building", room.TypeClassroom, 30),
		newRoom("A102", "Main Building", room.TypeClassroom, 40),
		newRoom("L1", "Science Building", room.TypeScienceLab, 20),
	} {
		id, err := store.Create(ctx, r)
		require.NoError(t, err)
		if r.Building == "Science Building" {
			scienceID = id
		}
	}

	sum := room.Summarize(store.Items())
	assert.Equal(t, room.Summary{Total: 3, TotalCapacity: 90, Buildings: 2, Labs: 1, Active: 3}, sum)

	require.NoError(t, store.Delete(ctx, scienceID))
	sum = room.Summarize(store.Items())
	assert.Equal(t, 1, sum.Buildings)
	assert.Equal(t, 0, sum.Labs)
}

func TestBuffer_Room(t *testing.T) {
	ctx := context.Background()
	store := crud.NewStore[room.Room](crud.FromService[room.Room](newService()))
	buf := crud.NewBuffer[room.Room](room.Template, room.SetField)

	buf.OpenForCreate()
	require.NoError(t, buf.SetField("name", "Seminar 3"))
	require.NoError(t, buf.SetField("building", "Library"))
	require.NoError(t, buf.SetField("capacity", "0"))
	assert.Equal(t, 0, buf.Draft().Capacity, "0 is a number, not a blank")

	_, err := buf.Commit(ctx, store)
	assert.Contains(t, fieldErrors(t, err), "capacity")
	assert.True(t, buf.IsOpen())
	assert.Equal(t, 0, store.Len())

	require.NoError(t, buf.SetField("capacity", "25"))
	require.NoError(t, buf.SetField("availability.thursday", "09:00-12:00, 14:00-16:00"))
	require.NoError(t, buf.Edit(func(r *room.Room) { r.ToggleFeature("Whiteboard") }))
	id, err := buf.Commit(ctx, store)
	require.NoError(t, err)

	saved, ok := store.Find(id)
	require.True(t, ok)
	assert.Equal(t, 25, saved.Capacity)
	assert.Equal(t, []string{"Whiteboard"}, saved.Features)
	assert.Equal(t, []string{"09:00-12:00", "14:00-16:00"}, saved.Availability["thursday"])
}

func TestSetField(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		value   string
		check   func(t *testing.T, r room.Room)
		wantErr bool
	}{
		{name: "capacity zero", path: "capacity", value: "0", check: func(t *testing.T, r room.Room) { assert.Equal(t, 0, r.Capacity) }},
		{name: "capacity", path: "capacity", value: " 42 ", check: func(t *testing.T, r room.Room) { assert.Equal(t, 42, r.Capacity) }},
		{name: "capacity blank", path: "capacity", value: "", wantErr: true},
		{name: "capacity text", path: "capacity", value: "lots", wantErr: true},
		{name: "floor", path: "floor", value: "3", check: func(t *testing.T, r room.Room) { assert.Equal(t, 3, r.Floor) }},
		{name: "features", path: "features", value: "Projector, Wi-Fi,", check: func(t *testing.T, r room.Room) {
			assert.Equal(t, []string{"Projector", "Wi-Fi"}, r.Features)
		}},
		{name: "unknown day", path: "availability.someday", value: "09:00-10:00", wantErr: true},
		{name: "unknown field", path: "colour", value: "red", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := room.Template()
			r.Capacity = 99
			err := room.SetField(&r, tt.path, tt.value)
			if tt.wantErr {
				assert.Contains(t, fieldErrors(t, err), tt.path)
				return
			}
			require.NoError(t, err)
			tt.check(t, r)
		})
	}
}

func TestRoom_CloneAndToggle(t *testing.T) {
	r := newRoom("A101", "Main Building", room.TypeClassroom, 30)
	r.Features = []string{"Projector"}
	r.SetAvailability("monday", []string{"08:00-10:00"})

	c := r.Clone()
	c.ToggleFeature("Wi-Fi")
	c.Availability["monday"][0] = "12:00-13:00"
	assert.Equal(t, []string{"Projector"}, r.Features)
	assert.Equal(t, []string{"08:00-10:00"}, r.Availability["monday"])

	c.ToggleFeature("Wi-Fi")
	assert.Equal(t, r.Features, c.Features)
	assert.True(t, c.HasFeature("Projector"))

	r.Features = []string{"Projector", "Wi-Fi", "Whiteboard", "Computers"}
	shown, more := r.FeatureBadges(3)
	assert.Equal(t, []string{"Projector", "Wi-Fi", "Whiteboard"}, shown)
	assert.Equal(t, "+1 more", more)
}
