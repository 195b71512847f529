// ABOUTME: Activity scheduler for deals on the pipeline board
// ABOUTME: Adds, edits, deletes, reorders and completes schedules and resolves the next activity
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/models"
)

// ScheduleFields holds the editable fields of a schedule; nil fields are left alone.
type ScheduleFields struct {
	DueAt        *time.Time
	ActivityName *string
}

// NextSchedule picks the activity a deal should show next: the earliest incomplete
// schedule due at or after now, or failing that the most overdue one. Schedules
// without a due or start time are ignored. Ties go to the first in list order.
func NextSchedule(deal models.Deal, now time.Time) *models.ActivitySchedule {
	var upcoming, overdue *models.ActivitySchedule

	for i := range deal.ActivitySchedules {
		s := &deal.ActivitySchedules[i]
		if s.Completed {
			continue
		}
		when := s.When()
		if when == nil {
			continue
		}
		if !when.Before(now) {
			if upcoming == nil || when.Before(*upcoming.When()) {
				upcoming = s
			}
		}
		if overdue == nil || when.Before(*overdue.When()) {
			overdue = s
		}
	}

	pick := upcoming
	if pick == nil {
		pick = overdue
	}
	if pick == nil {
		return nil
	}
	out := *pick
	return &out
}

// NextScheduleFor resolves the next activity of a deal on the board.
func (b *Board) NextScheduleFor(dealID string) (*models.ActivitySchedule, error) {
	deal, _, err := b.Deal(dealID)
	if err != nil {
		return nil, err
	}
	return NextSchedule(deal, b.opts.Now()), nil
}

// AddSchedule appends an activity to a deal. The temporary id is swapped for the
// server's in place, so the schedule keeps its position.
func (b *Board) AddSchedule(ctx context.Context, dealID string, dueAt time.Time, text, salesperson, customer string) (models.ActivitySchedule, error) {
	if dueAt.IsZero() {
		return models.ActivitySchedule{}, ErrDueDateRequired
	}

	tempID := models.NewTempID()
	due := dueAt
	sched := models.ActivitySchedule{
		ID:           tempID,
		DealID:       dealID,
		DueAt:        &due,
		ActivityName: text,
		Salesperson:  salesperson,
		Customer:     customer,
	}

	err := b.run(ctx, command{
		name: "add activity schedule",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si, di := dealIndex(stages, dealID)
			if si < 0 {
				return nil, ErrDealNotFound
			}
			deal := &stages[si].Deals[di]
			sched.Position = len(deal.ActivitySchedules)
			deal.ActivitySchedules = append(deal.ActivitySchedules, sched)
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(dealID) {
				return ErrUnsavedDeal
			}
			payload := sched
			payload.ID = ""
			saved, err := b.backend.CreateSchedule(ctx, payload)
			if err != nil {
				return err
			}
			sched.ID = saved.ID
			return b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if si, di := dealIndex(stages, dealID); si >= 0 {
					deal := &stages[si].Deals[di]
					if k := scheduleIndex(deal, tempID); k >= 0 {
						deal.ActivitySchedules[k].ID = saved.ID
					}
				}
				return stages, nil
			})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if si, di := dealIndex(stages, dealID); si >= 0 {
					deal := &stages[si].Deals[di]
					if k := scheduleIndex(deal, tempID); k >= 0 {
						deal.ActivitySchedules = append(deal.ActivitySchedules[:k], deal.ActivitySchedules[k+1:]...)
					}
				}
				return stages, nil
			})
		},
	})
	if err != nil {
		return models.ActivitySchedule{}, err
	}
	return sched, nil
}

// UpdateSchedule edits the schedule at index. Schedules still waiting for a
// server id are only changed locally.
func (b *Board) UpdateSchedule(ctx context.Context, dealID string, index int, fields ScheduleFields) error {
	var before, after models.ActivitySchedule

	return b.run(ctx, command{
		name: "update activity schedule",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			s, err := scheduleAt(stages, dealID, index)
			if err != nil {
				return nil, err
			}
			before = *s
			if fields.DueAt != nil {
				due := *fields.DueAt
				s.DueAt = &due
			}
			if fields.ActivityName != nil {
				s.ActivityName = *fields.ActivityName
			}
			after = *s
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(after.ID) {
				return nil
			}
			return b.backend.UpdateSchedule(ctx, after.ID, api.SchedulePatch{
				DueAt:        fields.DueAt,
				ActivityName: fields.ActivityName,
			})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if s := scheduleByID(stages, dealID, before.ID); s != nil {
					s.DueAt = before.DueAt
					s.ActivityName = before.ActivityName
				}
				return stages, nil
			})
		},
	})
}

// DeleteSchedule removes the schedule at index. A 404 means it is already gone;
// any other failure reloads the whole board from the server.
func (b *Board) DeleteSchedule(ctx context.Context, dealID string, index int) error {
	var removed models.ActivitySchedule

	return b.run(ctx, command{
		name: "delete activity schedule",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			s, err := scheduleAt(stages, dealID, index)
			if err != nil {
				return nil, err
			}
			removed = *s
			si, di := dealIndex(stages, dealID)
			deal := &stages[si].Deals[di]
			deal.ActivitySchedules = append(deal.ActivitySchedules[:index], deal.ActivitySchedules[index+1:]...)
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(removed.ID) {
				return nil
			}
			return b.backend.DeleteSchedule(ctx, removed.ID)
		},
		accept:     acceptNotFound,
		compensate: b.reloadAfterFailure,
	})
}

// ReorderSchedules moves a deal's schedule from one position to another.
// Positions are only written back when Options.PersistScheduleOrder is set.
func (b *Board) ReorderSchedules(ctx context.Context, dealID string, from, to int) error {
	var reordered []models.ActivitySchedule

	cmd := command{
		name: "reorder activity schedules",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si, di := dealIndex(stages, dealID)
			if si < 0 {
				return nil, ErrDealNotFound
			}
			deal := &stages[si].Deals[di]
			n := len(deal.ActivitySchedules)
			if from < 0 || from >= n || to < 0 || to >= n {
				return nil, fmt.Errorf("schedule index out of range: %d -> %d: %w", from, to, ErrScheduleNotFound)
			}
			deal.ActivitySchedules = move(deal.ActivitySchedules, from, to)
			for i := range deal.ActivitySchedules {
				deal.ActivitySchedules[i].Position = i
			}
			reordered = append([]models.ActivitySchedule(nil), deal.ActivitySchedules...)
			return stages, nil
		},
	}

	if b.opts.PersistScheduleOrder {
		cmd.persist = func(ctx context.Context) error {
			for _, s := range reordered {
				if models.IsTempID(s.ID) {
					continue
				}
				pos := s.Position
				if err := b.backend.UpdateSchedule(ctx, s.ID, api.SchedulePatch{Position: &pos}); err != nil {
					return err
				}
			}
			return nil
		}
		cmd.compensate = b.reloadAfterFailure
	}

	return b.run(ctx, cmd)
}

// ToggleComplete flips a schedule between pending and completed, reverting the
// local flag if the server rejects the change.
func (b *Board) ToggleComplete(ctx context.Context, dealID, scheduleID string) (bool, error) {
	var completed bool

	err := b.run(ctx, command{
		name: "toggle activity schedule",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			s := scheduleByID(stages, dealID, scheduleID)
			if s == nil {
				return nil, ErrScheduleNotFound
			}
			s.Completed = !s.Completed
			completed = s.Completed
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(scheduleID) {
				return nil
			}
			return b.backend.UpdateSchedule(ctx, scheduleID, api.SchedulePatch{Completed: &completed})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if s := scheduleByID(stages, dealID, scheduleID); s != nil {
					s.Completed = !completed
				}
				return stages, nil
			})
		},
	})
	if err != nil {
		return false, err
	}
	return completed, nil
}

func scheduleAt(stages []models.Stage, dealID string, index int) (*models.ActivitySchedule, error) {
	si, di := dealIndex(stages, dealID)
	if si < 0 {
		return nil, ErrDealNotFound
	}
	deal := &stages[si].Deals[di]
	if index < 0 || index >= len(deal.ActivitySchedules) {
		return nil, ErrScheduleNotFound
	}
	return &deal.ActivitySchedules[index], nil
}

func scheduleByID(stages []models.Stage, dealID, scheduleID string) *models.ActivitySchedule {
	si, di := dealIndex(stages, dealID)
	if si < 0 {
		return nil
	}
	deal := &stages[si].Deals[di]
	if k := scheduleIndex(deal, scheduleID); k >= 0 {
		return &deal.ActivitySchedules[k]
	}
	return nil
}
