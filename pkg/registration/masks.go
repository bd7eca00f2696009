package registration

import (
	"multireg/pkg/mask"
)

// ErosionSetting controls mask erosion at one resolution level
type ErosionSetting struct {
	// Erode enables erosion at this level
	Erode bool `yaml:"erode"`

	// Radius is the erosion radius in full-resolution pixels
	Radius int `yaml:"radius"`
}

// ErosionSchedule holds the per-level erosion settings for the fixed and
// moving masks. Both arrays follow the repeat-last-entry convention; an
// empty array disables erosion at every level.
type ErosionSchedule struct {
	Fixed  []ErosionSetting `yaml:"fixed"`
	Moving []ErosionSetting `yaml:"moving"`
}

func settingAt(settings []ErosionSetting, level int) ErosionSetting {
	if len(settings) == 0 {
		return ErosionSetting{}
	}
	return settings[scheduleIndex(len(settings), level)]
}

// maskSynchronizer updates the masks installed on each sub-metric at a
// level transition. When several sub-metrics reference the identical
// source mask, the erosion is performed exactly once and the result
// shared by reference, so what is logically one mask cannot diverge.
type maskSynchronizer struct {
	// erode performs a single erosion; replaceable in tests to observe
	// invocation counts
	erode func(m *mask.Mask, radius int) *mask.Mask
}

func newMaskSynchronizer() *maskSynchronizer {
	return &maskSynchronizer{erode: mask.Erode}
}

// syncLevel brings every sub-metric's masks up to date for the given
// level. With erosion disabled at the level, the previously installed
// (or original) masks are retained unchanged.
func (ms *maskSynchronizer) syncLevel(subs []*subMetric, schedule ErosionSchedule, level int) {
	fixedSetting := settingAt(schedule.Fixed, level)
	movingSetting := settingAt(schedule.Moving, level)

	fixedEroded := make(map[*mask.Mask]*mask.Mask)
	movingEroded := make(map[*mask.Mask]*mask.Mask)

	for _, sub := range subs {
		if sub.fixedMask != nil {
			if fixedSetting.Erode {
				eroded, ok := fixedEroded[sub.fixedMask]
				if !ok {
					eroded = ms.erode(sub.fixedMask, fixedSetting.Radius)
					fixedEroded[sub.fixedMask] = eroded
				}
				sub.currentFixedMask = eroded
			} else if sub.currentFixedMask == nil {
				sub.currentFixedMask = sub.fixedMask
			}
		}

		if sub.movingMask != nil {
			if movingSetting.Erode {
				eroded, ok := movingEroded[sub.movingMask]
				if !ok {
					eroded = ms.erode(sub.movingMask, movingSetting.Radius)
					movingEroded[sub.movingMask] = eroded
				}
				sub.currentMovingMask = eroded
			} else if sub.currentMovingMask == nil {
				sub.currentMovingMask = sub.movingMask
			}
		}
	}
}
