package services

import (
	"time"

	"github.com/Dosada05/arena-escrow/models"
)

// Roster - таблица мест одного матча. Индекс 0 каждой стороны - капитан.
type Roster struct {
	slotsPerSide int
	slots        []*models.Slot
}

func newRoster(match *models.Match, slots []*models.Slot) *Roster {
	return &Roster{slotsPerSide: match.SlotsPerSide(), slots: slots}
}

// emptySlots создаёт все места матча, ни одно не занято.
func emptySlots(matchID int64, mode models.MatchMode) []*models.Slot {
	perSide := mode.SlotsPerSide()
	slots := make([]*models.Slot, 0, perSide*2)
	for _, side := range []models.Side{models.SideA, models.SideB} {
		for i := 0; i < perSide; i++ {
			role := models.SlotMember
			if i == 0 {
				role = models.SlotCaptain
			}
			slots = append(slots, &models.Slot{MatchID: matchID, Side: side, Index: i, Role: role})
		}
	}
	return slots
}

func (r *Roster) Slots() []*models.Slot {
	return r.slots
}

// NextFree - свободное место с наименьшим индексом на стороне.
func (r *Roster) NextFree(side models.Side) *models.Slot {
	var best *models.Slot
	for _, s := range r.slots {
		if s.Side != side || s.Occupied() {
			continue
		}
		if best == nil || s.Index < best.Index {
			best = s
		}
	}
	return best
}

// Occupy занимает место оплаченным участником.
func (r *Roster) Occupy(slot *models.Slot, userID int64, at time.Time) {
	uid := userID
	joined := at
	slot.OccupantID = &uid
	slot.Paid = true
	slot.JoinedAt = &joined
}

func (r *Roster) SlotOf(userID int64) *models.Slot {
	for _, s := range r.slots {
		if s.OccupantID != nil && *s.OccupantID == userID {
			return s
		}
	}
	return nil
}

func (r *Roster) Occupants() []int64 {
	ids := make([]int64, 0, len(r.slots))
	for _, s := range r.slots {
		if s.Occupied() {
			ids = append(ids, *s.OccupantID)
		}
	}
	return ids
}

func (r *Roster) PaidSlots() []*models.Slot {
	paid := make([]*models.Slot, 0, len(r.slots))
	for _, s := range r.slots {
		if s.Occupied() && s.Paid {
			paid = append(paid, s)
		}
	}
	return paid
}

// PaidOn - оплатившие участники одной стороны.
func (r *Roster) PaidOn(side models.Side) []int64 {
	ids := make([]int64, 0, r.slotsPerSide)
	for _, s := range r.PaidSlots() {
		if s.Side == side {
			ids = append(ids, *s.OccupantID)
		}
	}
	return ids
}

// Complete - все места обеих сторон заняты и оплачены.
func (r *Roster) Complete() bool {
	return len(r.PaidSlots()) == r.slotsPerSide*2
}
