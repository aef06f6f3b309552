package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlot_Mirror(t *testing.T) {
	for _, room := range Rooms {
		for wday := 1; wday <= 5; wday++ {
			slt := Slot{ID: "x", Room: room, Wday: wday, Hour: 13}
			mirror := slt.Mirror()
			assert.NotEqual(t, slt.Room, mirror.Room)
			assert.Equal(t, slt.Wday, mirror.Wday)
			assert.Equal(t, slt.Hour, mirror.Hour)
			assert.Empty(t, mirror.ID)

			back := mirror.Mirror()
			assert.Equal(t, slt.Room, back.Room)
			assert.Equal(t, slt.Wday, back.Wday)
			assert.Equal(t, slt.Hour, back.Hour)
		}
	}
}

func TestSlot_AdjacentTo(t *testing.T) {
	tests := []struct {
		name string
		a, b Slot
		want bool
	}{
		{name: "next hour", a: Slot{Wday: 2, Hour: 13}, b: Slot{Wday: 2, Hour: 14}, want: true},
		{name: "previous hour", a: Slot{Wday: 2, Hour: 14}, b: Slot{Wday: 2, Hour: 13}, want: true},
		{name: "across rooms", a: Slot{Room: Cory, Wday: 2, Hour: 13}, b: Slot{Room: Soda, Wday: 2, Hour: 14}, want: true},
		{name: "same hour", a: Slot{Wday: 2, Hour: 13}, b: Slot{Wday: 2, Hour: 13}},
		{name: "two hours apart", a: Slot{Wday: 2, Hour: 11}, b: Slot{Wday: 2, Hour: 13}},
		{name: "other day", a: Slot{Wday: 2, Hour: 13}, b: Slot{Wday: 3, Hour: 14}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.AdjacentTo(tt.b))
			assert.Equal(t, tt.want, tt.b.AdjacentTo(tt.a), "adjacency is symmetric")
		})
	}
}

func TestSlot_String(t *testing.T) {
	assert.Equal(t, "Slot Cory Tuesday 14", Slot{Room: Cory, Wday: 2, Hour: 14}.String())
	assert.Equal(t, "Slot Soda Friday 11", Slot{Room: Soda, Wday: 5, Hour: 11}.String())
	assert.Equal(t, "Room(7)", Room(7).String())
}
