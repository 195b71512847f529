// ABOUTME: Stage and deal transitions on the pipeline board
// ABOUTME: Add, move, reorder, rename and delete with optimistic apply and compensation
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/models"
	"go.uber.org/zap"
)

// closeWonHint is appended to the move notification for closed-won stages.
const closeWonHint = " Next step: Create PO or Receive PO."

// AddStage appends a new stage at the end of the pipeline and returns its id.
func (b *Board) AddStage(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}

	tempID := models.NewTempID()
	var created models.Stage

	err := b.run(ctx, command{
		name: "add stage",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			order := 0
			for _, s := range stages {
				if s.Name == name {
					return nil, ErrDuplicateStage
				}
				if s.Order >= order {
					order = s.Order + 1
				}
			}
			created = models.Stage{ID: tempID, Name: name, Order: order}
			return append(stages, created), nil
		},
		persist: func(ctx context.Context) error {
			payload := created
			payload.ID = ""
			saved, err := b.backend.CreateStage(ctx, payload)
			if err != nil {
				return err
			}
			created.ID = saved.ID
			return b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if i := stageIndex(stages, tempID); i >= 0 {
					stages[i].ID = saved.ID
					for j := range stages[i].Deals {
						stages[i].Deals[j].StageID = saved.ID
					}
				}
				return stages, nil
			})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if i := stageIndex(stages, tempID); i >= 0 {
					stages = append(stages[:i], stages[i+1:]...)
				}
				return stages, nil
			})
		},
	})
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

// AddDeal appends a deal to a stage and returns it with its server id.
func (b *Board) AddDeal(ctx context.Context, stageID string, deal models.Deal) (models.Deal, error) {
	deal.Title = strings.TrimSpace(deal.Title)
	if deal.Title == "" {
		return models.Deal{}, ErrEmptyName
	}

	tempID := models.NewTempID()
	deal.ID = tempID
	if deal.Priority == "" {
		deal.Priority = models.PriorityNone
	}
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = b.opts.Now()
	}

	err := b.run(ctx, command{
		name: "add deal",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si := stageIndex(stages, stageID)
			if si < 0 {
				return nil, ErrStageNotFound
			}
			deal.StageID = stages[si].ID
			deal.Stage = stages[si].Name
			stages[si].Deals = append(stages[si].Deals, cloneDeal(deal))
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(deal.StageID) {
				return fmt.Errorf("stage %q: %w", deal.Stage, ErrUnsavedDeal)
			}
			payload := deal
			payload.ID = ""
			saved, err := b.backend.CreateDeal(ctx, payload)
			if err != nil {
				return err
			}
			deal.ID = saved.ID
			return b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if si, di := dealIndex(stages, tempID); si >= 0 {
					stages[si].Deals[di].ID = saved.ID
					for k := range stages[si].Deals[di].ActivitySchedules {
						stages[si].Deals[di].ActivitySchedules[k].DealID = saved.ID
					}
				}
				return stages, nil
			})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				if si, di := dealIndex(stages, tempID); si >= 0 {
					stages[si].Deals = append(stages[si].Deals[:di], stages[si].Deals[di+1:]...)
				}
				return stages, nil
			})
		},
	})
	if err != nil {
		return models.Deal{}, err
	}
	return deal, nil
}

// MoveDeal moves the deal at index of one stage to the end of another and
// returns the notification shown to the user. Moving within a stage, or between
// stages sharing a name, does nothing.
func (b *Board) MoveDeal(ctx context.Context, fromStageID string, index int, toStageID string) (string, error) {
	var (
		moved     models.Deal
		prevStage models.Deal
		toStage   models.Stage
		noop      bool
	)

	apply := func(stages []models.Stage) ([]models.Stage, error) {
		fi := stageIndex(stages, fromStageID)
		ti := stageIndex(stages, toStageID)
		if fi < 0 || ti < 0 {
			return nil, ErrStageNotFound
		}
		if fi == ti || stages[fi].Name == stages[ti].Name {
			noop = true
			return nil, errNoop
		}
		if index < 0 || index >= len(stages[fi].Deals) {
			return nil, ErrDealNotFound
		}

		prevStage = stages[fi].Deals[index]
		moved = prevStage
		moved.Stage = stages[ti].Name
		moved.StageID = stages[ti].ID
		toStage = stages[ti]

		stages[fi].Deals = append(stages[fi].Deals[:index], stages[fi].Deals[index+1:]...)
		stages[ti].Deals = append(stages[ti].Deals, moved)
		return stages, nil
	}

	if err := b.mutate(apply); err != nil {
		if noop {
			return "", nil
		}
		return "", err
	}

	msg := MoveMessage(moved.Title, toStage.Name)
	b.notify(msg)

	err := b.run(ctx, command{
		name: "move deal",
		persist: func(ctx context.Context) error {
			if models.IsTempID(moved.ID) {
				return ErrUnsavedDeal
			}
			if models.IsTempID(toStage.ID) {
				return fmt.Errorf("stage %q: %w", toStage.Name, ErrUnsavedDeal)
			}
			return b.backend.UpdateDeal(ctx, moved.ID, api.DealPatch{
				Stage:   &toStage.Name,
				StageID: &toStage.ID,
			})
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				si, di := dealIndex(stages, moved.ID)
				fi := stageIndex(stages, fromStageID)
				if si < 0 || fi < 0 {
					return stages, nil
				}
				d := stages[si].Deals[di]
				d.Stage = prevStage.Stage
				d.StageID = prevStage.StageID
				stages[si].Deals = append(stages[si].Deals[:di], stages[si].Deals[di+1:]...)
				at := index
				if at > len(stages[fi].Deals) {
					at = len(stages[fi].Deals)
				}
				stages[fi].Deals = append(stages[fi].Deals[:at], append([]models.Deal{d}, stages[fi].Deals[at:]...)...)
				return stages, nil
			})
		},
	})
	return msg, err
}

var errNoop = errors.New("no-op")

// MoveMessage builds the notification for a deal landing in a stage. Stages whose
// name mentions both "close" and "won" get a purchase order hint.
func MoveMessage(title, stageName string) string {
	msg := fmt.Sprintf("Moved %q to %s.", title, stageName)
	lower := strings.ToLower(stageName)
	if strings.Contains(lower, "close") && strings.Contains(lower, "won") {
		msg += closeWonHint
	}
	return msg
}

// ReorderStages moves the stage at from to position to and renumbers every stage.
// Each changed stage is saved with its own request; failures are reported but the
// local order is kept.
func (b *Board) ReorderStages(ctx context.Context, from, to int) error {
	var changed []models.Stage

	return b.run(ctx, command{
		name: "reorder stages",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			if from < 0 || from >= len(stages) || to < 0 || to >= len(stages) {
				return nil, fmt.Errorf("stage index out of range: %d -> %d", from, to)
			}
			if from == to {
				return stages, nil
			}
			stages = move(stages, from, to)
			for i := range stages {
				if stages[i].Order != i {
					stages[i].Order = i
					changed = append(changed, stages[i])
				}
			}
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			var errs []error
			for _, s := range changed {
				if models.IsTempID(s.ID) {
					continue
				}
				order := s.Order
				if err := b.backend.UpdateStage(ctx, s.ID, api.StagePatch{Order: &order}); err != nil {
					errs = append(errs, fmt.Errorf("stage %q: %w", s.Name, err))
				}
			}
			return errors.Join(errs...)
		},
	})
}

// EditStageName renames a stage and every deal's copy of the stage name.
func (b *Board) EditStageName(ctx context.Context, stageID, newName string) error {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return ErrEmptyName
	}

	var (
		oldName string
		dealIDs []string
	)

	return b.run(ctx, command{
		name: "rename stage",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si := stageIndex(stages, stageID)
			if si < 0 {
				return nil, ErrStageNotFound
			}
			for i := range stages {
				if i != si && stages[i].Name == newName {
					return nil, ErrDuplicateStage
				}
			}
			oldName = stages[si].Name
			stages[si].Name = newName
			for j := range stages[si].Deals {
				stages[si].Deals[j].Stage = newName
				dealIDs = append(dealIDs, stages[si].Deals[j].ID)
			}
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if oldName == newName || models.IsTempID(stageID) {
				return nil
			}
			if err := b.backend.UpdateStage(ctx, stageID, api.StagePatch{Name: &newName}); err != nil {
				return err
			}
			if !b.opts.LegacyStageCascade {
				return nil
			}
			var errs []error
			for _, id := range dealIDs {
				if models.IsTempID(id) {
					continue
				}
				if err := b.backend.UpdateDeal(ctx, id, api.DealPatch{Stage: &newName}); err != nil {
					errs = append(errs, fmt.Errorf("deal %s: %w", id, err))
				}
			}
			if err := errors.Join(errs...); err != nil {
				// The stage itself is renamed; deals left on the old name are
				// picked up again by stage id on the next load.
				b.logger.Warn("Stage rename cascade incomplete", zap.Error(err))
			}
			return nil
		},
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				si := stageIndex(stages, stageID)
				if si < 0 {
					return stages, nil
				}
				stages[si].Name = oldName
				for j := range stages[si].Deals {
					stages[si].Deals[j].Stage = oldName
				}
				return stages, nil
			})
		},
	})
}

// DeleteStage removes a stage and every deal in it after confirm approves.
// The last remaining stage cannot be deleted. Customers are never touched.
func (b *Board) DeleteStage(ctx context.Context, stageID string, confirm func(models.Stage) bool) error {
	stage, err := b.Stage(stageID)
	if err != nil {
		return err
	}
	if len(b.Stages()) <= 1 {
		return ErrLastStage
	}
	if confirm == nil || !confirm(stage) {
		return ErrNotConfirmed
	}

	var removed models.Stage

	return b.run(ctx, command{
		name: "delete stage",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			if len(stages) <= 1 {
				return nil, ErrLastStage
			}
			si := stageIndex(stages, stageID)
			if si < 0 {
				return nil, ErrStageNotFound
			}
			removed = stages[si]
			return append(stages[:si], stages[si+1:]...), nil
		},
		persist: func(ctx context.Context) error {
			var errs []error
			for _, d := range removed.Deals {
				if models.IsTempID(d.ID) {
					continue
				}
				if err := b.backend.DeleteDeal(ctx, d.ID); err != nil && !api.IsNotFound(err) {
					errs = append(errs, fmt.Errorf("deal %q: %w", d.Title, err))
				}
			}
			if !models.IsTempID(removed.ID) {
				if err := b.backend.DeleteStage(ctx, removed.ID); err != nil && !api.IsNotFound(err) {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
		compensate: b.reloadAfterFailure,
	})
}

// DeleteDeal removes a deal. The customer it references is left alone.
func (b *Board) DeleteDeal(ctx context.Context, dealID string) error {
	var (
		removed models.Deal
		stageID string
		at      int
	)

	return b.run(ctx, command{
		name: "delete deal",
		apply: func(stages []models.Stage) ([]models.Stage, error) {
			si, di := dealIndex(stages, dealID)
			if si < 0 {
				return nil, ErrDealNotFound
			}
			removed, stageID, at = stages[si].Deals[di], stages[si].ID, di
			stages[si].Deals = append(stages[si].Deals[:di], stages[si].Deals[di+1:]...)
			return stages, nil
		},
		persist: func(ctx context.Context) error {
			if models.IsTempID(dealID) {
				return nil
			}
			return b.backend.DeleteDeal(ctx, dealID)
		},
		accept: acceptNotFound,
		compensate: func(context.Context) {
			_ = b.mutate(func(stages []models.Stage) ([]models.Stage, error) {
				si := stageIndex(stages, stageID)
				if si < 0 {
					return stages, nil
				}
				if at > len(stages[si].Deals) {
					at = len(stages[si].Deals)
				}
				stages[si].Deals = append(stages[si].Deals[:at], append([]models.Deal{removed}, stages[si].Deals[at:]...)...)
				return stages, nil
			})
		},
	})
}

func (b *Board) reloadAfterFailure(ctx context.Context) {
	if err := b.Reload(ctx); err != nil {
		b.logger.Error("Failed to reload pipeline", zap.Error(err))
	}
}
