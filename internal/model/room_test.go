package model

import "testing"

func TestBookable(t *testing.T) {
	tests := []struct {
		name   string
		room   Room
		want   bool
	}{
		{name: "available", room: Room{Status: RoomAvailable, IsActive: true}, want: true},
		{name: "occupiedStillBookable", room: Room{Status: RoomOccupied, IsActive: true}, want: true},
		{name: "cleaningStillBookable", room: Room{Status: RoomCleaning, IsActive: true}, want: true},
		{name: "maintenance", room: Room{Status: RoomMaintenance, IsActive: true}, want: false},
		{name: "outOfOrder", room: Room{Status: RoomOutOfOrder, IsActive: true}, want: false},
		{name: "inactive", room: Room{Status: RoomAvailable, IsActive: false}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.room.Bookable(); got != tt.want {
				t.Errorf("Bookable() = %v, want %v", got, tt.want)
			}
		})
	}
}
