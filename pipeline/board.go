// ABOUTME: In-memory pipeline board holding the ordered stages and their deals
// ABOUTME: Applies every mutation optimistically, persists it once and compensates on failure
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/harperreed/dealflow/api"
	"github.com/harperreed/dealflow/models"
	"go.uber.org/zap"
)

var (
	ErrStageNotFound    = errors.New("stage not found")
	ErrDealNotFound     = errors.New("deal not found")
	ErrScheduleNotFound = errors.New("activity schedule not found")
	ErrDuplicateStage   = errors.New("a stage with that name already exists")
	ErrEmptyName        = errors.New("name is required")
	ErrLastStage        = errors.New("cannot delete the last remaining stage")
	ErrNotConfirmed     = errors.New("deletion was not confirmed")
	ErrDueDateRequired  = errors.New("due date is required")
	ErrUnsavedDeal      = errors.New("deal has not been saved yet")
)

// Backend is the REST API the board persists to. *api.Client satisfies it.
type Backend interface {
	ListStages(ctx context.Context) ([]models.Stage, error)
	CreateStage(ctx context.Context, stage models.Stage) (models.Stage, error)
	UpdateStage(ctx context.Context, id string, patch api.StagePatch) error
	DeleteStage(ctx context.Context, id string) error

	ListDeals(ctx context.Context) ([]models.Deal, error)
	CreateDeal(ctx context.Context, deal models.Deal) (models.Deal, error)
	UpdateDeal(ctx context.Context, id string, patch api.DealPatch) error
	DeleteDeal(ctx context.Context, id string) error

	ListSchedules(ctx context.Context) ([]models.ActivitySchedule, error)
	CreateSchedule(ctx context.Context, s models.ActivitySchedule) (models.ActivitySchedule, error)
	UpdateSchedule(ctx context.Context, id string, patch api.SchedulePatch) error
	DeleteSchedule(ctx context.Context, id string) error
}

// Notifier receives user-facing messages such as "Moved deal to stage".
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

type Options struct {
	Logger   *zap.Logger
	Notifier Notifier
	Now      func() time.Time

	// PersistScheduleOrder writes schedule positions back after a reorder.
	// Off by default: schedule order is presentation state.
	PersistScheduleOrder bool

	// LegacyStageCascade patches every deal after a stage rename, for backends
	// that store the stage by name and do not cascade the rename themselves.
	LegacyStageCascade bool
}

// Board is the single owner of the pipeline's stage list.
// Every mutation swaps in a fresh copy of the list; readers get deep copies.
type Board struct {
	backend Backend
	opts    Options
	logger  *zap.Logger

	mu     sync.Mutex
	stages []models.Stage
}

func NewBoard(backend Backend, opts Options) *Board {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Board{
		backend: backend,
		opts:    opts,
		logger:  opts.Logger,
	}
}

// command is one optimistic mutation: apply runs immediately, persist runs once,
// compensate runs when persist fails with an error accept does not tolerate.
type command struct {
	name       string
	apply      func(stages []models.Stage) ([]models.Stage, error)
	persist    func(ctx context.Context) error
	accept     func(err error) bool
	compensate func(ctx context.Context)
}

func (b *Board) run(ctx context.Context, cmd command) error {
	if cmd.apply != nil {
		if err := b.mutate(cmd.apply); err != nil {
			return err
		}
	}
	if cmd.persist == nil {
		return nil
	}

	err := cmd.persist(ctx)
	if err == nil || (cmd.accept != nil && cmd.accept(err)) {
		return nil
	}

	b.logger.Warn("Failed to persist change",
		zap.String("command", cmd.name),
		zap.Error(err))
	if cmd.compensate != nil {
		cmd.compensate(ctx)
	}
	return fmt.Errorf("%s: %w", cmd.name, err)
}

// mutate applies fn to a deep copy of the stages and swaps the result in.
func (b *Board) mutate(fn func(stages []models.Stage) ([]models.Stage, error)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	next, err := fn(cloneStages(b.stages))
	if err != nil {
		return err
	}
	b.stages = next
	return nil
}

func (b *Board) notify(msg string) {
	if b.opts.Notifier != nil {
		b.opts.Notifier.Notify(msg)
	}
}

// Load replaces the board with the server's stages, deals and schedules.
func (b *Board) Load(ctx context.Context) error {
	stages, err := b.backend.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stages: %w", err)
	}
	deals, err := b.backend.ListDeals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load deals: %w", err)
	}
	schedules, err := b.backend.ListSchedules(ctx)
	if err != nil {
		return fmt.Errorf("failed to load activity schedules: %w", err)
	}

	assembled := assemble(stages, deals, schedules, b.logger)

	b.mu.Lock()
	b.stages = assembled
	b.mu.Unlock()
	return nil
}

// Reload is the compensating action for failures that cannot be undone locally.
func (b *Board) Reload(ctx context.Context) error {
	return b.Load(ctx)
}

func assemble(stages []models.Stage, deals []models.Deal, schedules []models.ActivitySchedule, logger *zap.Logger) []models.Stage {
	out := make([]models.Stage, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })

	byID := make(map[string]int, len(out))
	byName := make(map[string]int, len(out))
	for i := range out {
		out[i].Deals = nil
		byID[out[i].ID] = i
		byName[out[i].Name] = i
	}

	byDeal := make(map[string][]models.ActivitySchedule)
	for _, s := range schedules {
		byDeal[s.DealID] = append(byDeal[s.DealID], s)
	}

	for _, d := range deals {
		idx, ok := byID[d.StageID]
		if !ok {
			idx, ok = byName[d.Stage]
		}
		if !ok {
			logger.Warn("Deal references unknown stage",
				zap.String("deal", d.ID),
				zap.String("stage", d.Stage))
			continue
		}
		d.StageID = out[idx].ID
		d.Stage = out[idx].Name
		d.ActivitySchedules = byDeal[d.ID]
		sort.SliceStable(d.ActivitySchedules, func(i, j int) bool {
			return d.ActivitySchedules[i].Position < d.ActivitySchedules[j].Position
		})
		out[idx].Deals = append(out[idx].Deals, d)
	}
	return out
}

// Stages returns a deep copy of the board.
func (b *Board) Stages() []models.Stage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return cloneStages(b.stages)
}

// Stage returns a copy of the stage with the given id.
func (b *Board) Stage(id string) (models.Stage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := stageIndex(b.stages, id)
	if i < 0 {
		return models.Stage{}, ErrStageNotFound
	}
	return cloneStages(b.stages[i : i+1])[0], nil
}

// StageByName finds a stage by its exact name.
func (b *Board) StageByName(name string) (models.Stage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.stages {
		if b.stages[i].Name == name {
			return cloneStages(b.stages[i : i+1])[0], nil
		}
	}
	return models.Stage{}, ErrStageNotFound
}

// FindStage looks a stage up by id, then by name.
func (b *Board) FindStage(ref string) (models.Stage, error) {
	stage, err := b.Stage(ref)
	if errors.Is(err, ErrStageNotFound) {
		stage, err = b.StageByName(ref)
	}
	return stage, err
}

// DealPosition returns the stage holding a deal and the deal's index in it.
func (b *Board) DealPosition(id string) (string, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	si, di := dealIndex(b.stages, id)
	if si < 0 {
		return "", -1, ErrDealNotFound
	}
	return b.stages[si].ID, di, nil
}

// Deal returns a copy of a deal and the id of the stage holding it.
func (b *Board) Deal(id string) (models.Deal, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	si, di := dealIndex(b.stages, id)
	if si < 0 {
		return models.Deal{}, "", ErrDealNotFound
	}
	return cloneDeal(b.stages[si].Deals[di]), b.stages[si].ID, nil
}

func cloneStages(in []models.Stage) []models.Stage {
	if in == nil {
		return nil
	}
	out := make([]models.Stage, len(in))
	for i, s := range in {
		out[i] = s
		if s.Deals != nil {
			out[i].Deals = make([]models.Deal, len(s.Deals))
			for j, d := range s.Deals {
				out[i].Deals[j] = cloneDeal(d)
			}
		}
	}
	return out
}

func cloneDeal(d models.Deal) models.Deal {
	if d.ActivitySchedules != nil {
		d.ActivitySchedules = append([]models.ActivitySchedule(nil), d.ActivitySchedules...)
	}
	if d.ExtraContacts != nil {
		d.ExtraContacts = append([]models.ContactPerson(nil), d.ExtraContacts...)
	}
	return d
}

func stageIndex(stages []models.Stage, id string) int {
	for i := range stages {
		if stages[i].ID == id {
			return i
		}
	}
	return -1
}

func dealIndex(stages []models.Stage, id string) (int, int) {
	for si := range stages {
		for di := range stages[si].Deals {
			if stages[si].Deals[di].ID == id {
				return si, di
			}
		}
	}
	return -1, -1
}

func scheduleIndex(deal *models.Deal, id string) int {
	for i := range deal.ActivitySchedules {
		if deal.ActivitySchedules[i].ID == id {
			return i
		}
	}
	return -1
}

// move splices element from out of s and reinserts it at to.
func move[T any](s []T, from, to int) []T {
	item := s[from]
	s = append(s[:from], s[from+1:]...)
	s = append(s[:to], append([]T{item}, s[to:]...)...)
	return s
}

func acceptNotFound(err error) bool {
	return api.IsNotFound(err)
}
