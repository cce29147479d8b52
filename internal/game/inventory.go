package game

import (
	"slices"

	"github.com/aristath/runebot/internal/world"
)

// NoItem is returned for an empty or unknown inventory slot.
const NoItem = -1

// InventoryCount returns the number of occupied slots.
func (s *Service) InventoryCount() int {
	n := 0
	for _, it := range s.world.Inventory() {
		if it.ID > 0 {
			n++
		}
	}
	return n
}

// IsInventoryFull reports whether every slot is occupied.
func (s *Service) IsInventoryFull() bool {
	return s.InventoryCount() >= world.InventorySize
}

// IsInventoryEmpty reports whether the inventory holds at most one item,
// which tolerates a tool such as a pickaxe.
func (s *Service) IsInventoryEmpty() bool {
	return s.InventoryCount() <= 1
}

// HasItem reports whether any slot holds one of ids.
func (s *Service) HasItem(ids ...int) bool {
	for _, it := range s.world.Inventory() {
		if it.ID > 0 && slices.Contains(ids, it.ID) {
			return true
		}
	}
	return false
}

// CountItem returns the number of slots holding one of ids.
func (s *Service) CountItem(ids ...int) int {
	n := 0
	for _, it := range s.world.Inventory() {
		if it.ID > 0 && slices.Contains(ids, it.ID) {
			n++
		}
	}
	return n
}

// InventoryItemID returns the item id in slot, or NoItem.
func (s *Service) InventoryItemID(slot int) int {
	if it, ok := s.slot(slot); ok {
		return it.ID
	}
	return NoItem
}

// InventoryItemPoint returns a random point on the item in slot, or
// world.InvalidPoint when the slot is empty or not drawn.
func (s *Service) InventoryItemPoint(slot int) world.Point {
	it, ok := s.slot(slot)
	if !ok {
		return world.InvalidPoint
	}
	return s.RandomPointInRect(it.Bounds)
}

// FirstSlotOf returns the lowest slot holding one of ids.
func (s *Service) FirstSlotOf(ids ...int) (int, bool) {
	best, found := 0, false
	for _, it := range s.world.Inventory() {
		if it.ID <= 0 || !slices.Contains(ids, it.ID) {
			continue
		}
		if !found || it.Slot < best {
			best, found = it.Slot, true
		}
	}
	return best, found
}

// SlotsOf returns every slot holding one of ids in increasing order.
func (s *Service) SlotsOf(ids ...int) []int {
	var slots []int
	for _, it := range s.world.Inventory() {
		if it.ID > 0 && slices.Contains(ids, it.ID) {
			slots = append(slots, it.Slot)
		}
	}
	slices.Sort(slots)
	return slots
}

// BankItemPoint returns a random point on the first drawn bank item with id.
func (s *Service) BankItemPoint(id int) (world.Point, bool) {
	for _, it := range s.world.Bank() {
		if it.ID == id && !it.Bounds.Empty() {
			return s.RandomPointInRect(it.Bounds), true
		}
	}
	return world.InvalidPoint, false
}

// IsItemInList reports whether id is one of list.
func IsItemInList(id int, list []int) bool {
	return slices.Contains(list, id)
}

func (s *Service) slot(slot int) (world.InventoryItem, bool) {
	if slot < 0 || slot >= world.InventorySize {
		return world.InventoryItem{}, false
	}
	for _, it := range s.world.Inventory() {
		if it.Slot == slot && it.ID > 0 {
			return it, true
		}
	}
	return world.InventoryItem{}, false
}
