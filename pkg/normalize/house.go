package normalize

import (
	"fmt"
	"math"
	"strconv"

	"github.com/energylife/energylife/pkg/types"
)

// Room types of the house structure, in display order.
const (
	RoomBedroom  = "bedroom"
	RoomBathroom = "bathroom"
	RoomLiving   = "living"
	RoomKitchen  = "kitchen"
	RoomWork     = "work"
	RoomParking  = "parking"
)

// roomTypes maps each room type to the count keys it is known under.
var roomTypes = []struct {
	typ  string
	keys []string
}{
	{RoomBedroom, []string{"bedroom", "bedrooms"}},
	{RoomBathroom, []string{"bathroom", "bathrooms"}},
	{RoomLiving, []string{"living", "living_room", "living_rooms"}},
	{RoomKitchen, []string{"kitchen", "kitchens"}},
	{RoomWork, []string{"work", "work_room", "work_rooms"}},
	{RoomParking, []string{"parking"}},
}

// maxRoomsPerType caps synthesized rooms so a corrupt count can't blow up the
// page.
const maxRoomsPerType = 20

// HouseRooms returns the room list stored in the player's state. The second
// return is true when no explicit list existed and the rooms were made up
// from per-type counts.
func HouseRooms(state map[string]any) ([]types.HouseRoom, bool) {
	for _, keys := range [][]string{
		{"house_rooms"},
		{"rooms"},
		{"house", "rooms"},
		{"house_structure", "rooms"},
	} {
		if rooms := roomList(path(state, keys...)); len(rooms) > 0 {
			return rooms, false
		}
	}

	counts := obj(state["room_counts"])
	if counts == nil {
		counts = obj(state["house_counts"])
	}
	if counts == nil {
		counts = state
	}
	rooms := synthesize(counts)
	return rooms, len(rooms) > 0
}

// roomList accepts a list of room objects or bare room ids.
func roomList(v any) []types.HouseRoom {
	list, _ := v.([]any)
	var out []types.HouseRoom
	for i, item := range list {
		var r types.HouseRoom
		switch t := item.(type) {
		case string:
			r.ID = t
		case map[string]any:
			r.ID = str(t["id"])
			r.Type = str(t["type"])
			if r.Name = str(t["name"]); r.Name == "" {
				r.Name = str(t["label"])
			}
			if r.ID == "" {
				if f, ok := num(t["id"]); ok {
					r.ID = strconv.FormatFloat(f, 'f', -1, 64)
				}
			}
		default:
			continue
		}
		if r.ID == "" {
			r.ID = "room_" + strconv.Itoa(i+1)
		}
		out = append(out, r)
	}
	return out
}

func synthesize(counts map[string]any) []types.HouseRoom {
	var out []types.HouseRoom
	for _, rt := range roomTypes {
		n, ok := firstNum(counts, rt.keys...)
		if !ok {
			continue
		}
		count := int(math.Min(math.Max(math.Round(n), 0), maxRoomsPerType))
		for i := 1; i <= count; i++ {
			out = append(out, types.HouseRoom{
				ID:   fmt.Sprintf("%s_%d", rt.typ, i),
				Type: rt.typ,
			})
		}
	}
	return out
}
