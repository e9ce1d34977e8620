package schedule

import (
	"github.com/strauser85/snap-sold-sub000/types"
)

// SchedulerConfig tunes how photos are spread across the video's duration.
type SchedulerConfig struct {
	MinSlots       int     // minimum slot count for small photo sets
	MaxSlots       int     // hard cap on slots for large photo sets
	MinSlotSeconds float64 // a slot never gets shorter than this in the capped tier
	KeyImages      int     // leading photos that cycled repeats draw from
	EvenMin        int     // lower bound of the one-slot-per-image tier
	EvenMax        int     // upper bound of the one-slot-per-image tier
	HighPriority   int     // images marked high priority in the capped tier
}

// DefaultSchedulerConfig returns the short-form listing video tuning.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MinSlots:       8,
		MaxSlots:       25,
		MinSlotSeconds: 2.0,
		KeyImages:      3,
		EvenMin:        10,
		EvenMax:        30,
		HighPriority:   10,
	}
}

// Scheduler maps an arbitrary-length photo list onto a fixed duration.
type Scheduler struct {
	cfg SchedulerConfig
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.MinSlots <= 0 {
		cfg.MinSlots = 8
	}
	if cfg.MaxSlots <= 0 {
		cfg.MaxSlots = 25
	}
	if cfg.MinSlotSeconds <= 0 {
		cfg.MinSlotSeconds = 2.0
	}
	if cfg.KeyImages <= 0 {
		cfg.KeyImages = 3
	}
	if cfg.EvenMin <= 0 {
		cfg.EvenMin = 10
	}
	if cfg.EvenMax <= 0 {
		cfg.EvenMax = 30
	}
	return &Scheduler{cfg: cfg}
}

// Schedule partitions [0, totalDuration] into display slots. Policy is
// tiered by photo count: small sets cycle with reuse, mid-size sets get one
// slot each, oversized sets are capped with the earliest photos kept and the
// first few marked high priority.
func (s *Scheduler) Schedule(images []string, totalDuration float64) ([]types.ImageDisplaySlot, error) {
	if len(images) == 0 {
		return nil, types.NewInputError("no images to schedule")
	}
	if totalDuration <= 0 {
		return nil, types.NewInputError("non-positive duration %.2f", totalDuration)
	}

	n := len(images)
	switch {
	case n < s.cfg.EvenMin:
		return s.cycled(images, totalDuration), nil
	case n <= s.cfg.EvenMax:
		return s.even(images, totalDuration), nil
	default:
		return s.capped(images, totalDuration), nil
	}
}

// cycled covers small photo sets: at least MinSlots slots, every photo shown
// once, then repeats drawn from the leading key photos and marked as reused.
func (s *Scheduler) cycled(images []string, total float64) []types.ImageDisplaySlot {
	n := len(images)
	count := s.cfg.MinSlots
	if n > count {
		count = n
	}
	key := s.cfg.KeyImages
	if key > n {
		key = n
	}

	slots := make([]types.ImageDisplaySlot, count)
	for i := 0; i < count; i++ {
		if i < n {
			slots[i] = types.ImageDisplaySlot{ImageRef: images[i]}
		} else {
			slots[i] = types.ImageDisplaySlot{
				ImageRef: images[(i-n)%key],
				Reused:   true,
			}
		}
	}
	return partition(slots, total)
}

// even covers mid-size sets: one slot per image, no reuse.
func (s *Scheduler) even(images []string, total float64) []types.ImageDisplaySlot {
	slots := make([]types.ImageDisplaySlot, len(images))
	for i, ref := range images {
		slots[i] = types.ImageDisplaySlot{ImageRef: ref}
	}
	return partition(slots, total)
}

// capped covers oversized sets: keep the earliest photos (the listing's most
// representative shots come first), cap the slot count, flag the leading
// images as high priority, drop the rest.
func (s *Scheduler) capped(images []string, total float64) []types.ImageDisplaySlot {
	count := s.cfg.MaxSlots
	if byDuration := int(total / s.cfg.MinSlotSeconds); byDuration < count {
		count = byDuration
	}
	if count < 1 {
		count = 1
	}
	if count > len(images) {
		count = len(images)
	}

	slots := make([]types.ImageDisplaySlot, count)
	for i := 0; i < count; i++ {
		priority := 0
		if i < s.cfg.HighPriority {
			priority = 1
		}
		slots[i] = types.ImageDisplaySlot{
			ImageRef: images[i],
			Priority: priority,
		}
	}
	return partition(slots, total)
}

// partition assigns boundary times so the slots exactly cover [0, total].
// Boundaries are computed from the index rather than accumulated, so float
// error never opens a gap and the last End is exactly total.
func partition(slots []types.ImageDisplaySlot, total float64) []types.ImageDisplaySlot {
	count := len(slots)
	for i := range slots {
		slots[i].Start = total * float64(i) / float64(count)
		slots[i].End = total * float64(i+1) / float64(count)
	}
	slots[count-1].End = total
	return slots
}
