package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/parkgo/internal/domain"
	"github.com/kirinyoku/parkgo/internal/repository"
	"github.com/kirinyoku/parkgo/internal/repository/memory"
	redisrepo "github.com/kirinyoku/parkgo/internal/repository/redis"
	"github.com/kirinyoku/parkgo/internal/topology"
)

type Config struct {
	LotTTL          time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// ArchiveReader pages through archived sessions.
type ArchiveReader interface {
	ListSessions(ctx context.Context, f domain.ArchiveFilter) ([]domain.ArchivedSession, error)
}

type Service struct {
	store   *memory.Store
	cache   *redisrepo.Cache
	archive ArchiveReader
	cfg     Config
}

// New builds the read side. cache and archive may be nil.
func New(store *memory.Store, cache *redisrepo.Cache, archive ArchiveReader, cfg Config) *Service {
	if cfg.LotTTL <= 0 {
		cfg.LotTTL = 5 * time.Second
	}

	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}

	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 500
	}

	return &Service{
		store:   store,
		cache:   cache,
		archive: archive,
		cfg:     cfg,
	}
}

// GetLot returns a snapshot of the live lot, served from the cache when one
// is configured.
//
// Parameters:
//   - ctx: request-scoped context.
//
// Returns:
//   - domain.LotSnapshot: the lot with every slot's current occupant.
//   - error: query.ErrLotNotFound if no lot exists.
func (s *Service) GetLot(ctx context.Context) (domain.LotSnapshot, error) {
	const op = "service.query.GetLot"

	load := func(ctx context.Context) (domain.LotSnapshot, error) {
		var snap domain.LotSnapshot
		err := s.store.View(ctx, func(r memory.Reader) error {
			var err error
			snap, err = r.Snapshot()
			return err
		})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.LotSnapshot{}, ErrLotNotFound
			}

			return domain.LotSnapshot{}, err
		}

		return snap, nil
	}

	var (
		snap domain.LotSnapshot
		err  error
	)

	if s.cache != nil {
		key := redisrepo.KeyLotSnapshot(s.store.Generation())
		snap, err = redisrepo.GetOrSetJSON(ctx, s.cache, key, s.cfg.LotTTL, load)
	} else {
		snap, err = load(ctx)
	}
	if err != nil {
		return domain.LotSnapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	return snap, nil
}

// GetGate returns one gate of the live lot.
//
// Returns:
//   - error: query.ErrLotNotFound if no lot exists.
//   - error: query.ErrGateNotFound if the lot has no such gate.
func (s *Service) GetGate(ctx context.Context, id string) (domain.Gate, error) {
	const op = "service.query.GetGate"

	var gate domain.Gate
	err := s.store.View(ctx, func(r memory.Reader) error {
		var err error
		gate, err = r.Gate(id)
		return err
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return domain.Gate{}, fmt.Errorf("%s: %w", op, ErrLotNotFound)
		case errors.Is(err, topology.ErrGateNotFound):
			return domain.Gate{}, fmt.Errorf("%s: %w", op, ErrGateNotFound)
		}

		return domain.Gate{}, fmt.Errorf("%s: %w", op, err)
	}

	return gate, nil
}

// ListRecords returns every session of the live lot, most recent first.
// Without a lot the list is empty.
func (s *Service) ListRecords(ctx context.Context) ([]domain.Session, error) {
	const op = "service.query.ListRecords"

	var out []domain.Session
	err := s.store.View(ctx, func(r memory.Reader) error {
		out = r.Sessions()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

// VehicleRecords returns the sessions of one plate, most recent first.
func (s *Service) VehicleRecords(ctx context.Context, plate string) ([]domain.Session, error) {
	const op = "service.query.VehicleRecords"

	plate = strings.ToUpper(strings.TrimSpace(plate))

	var out []domain.Session
	err := s.store.View(ctx, func(r memory.Reader) error {
		out = r.SessionsByPlate(plate)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}

func (s *Service) FeeRules(context.Context) domain.FeeRules {
	return s.store.Rules()
}

// ArchivedRecords pages through the long-term archive, newest first.
//
// Parameters:
//   - ctx: request-scoped context.
//   - plate: optional plate filter.
//   - limit: page size (default and max limits are enforced).
//   - offset: number of records to skip.
//
// Returns:
//   - []domain.ArchivedSession: the page.
//   - error: query.ErrArchiveDisabled if no archive is configured.
//   - error: query.ErrInvalidPageParam if offset is negative.
func (s *Service) ArchivedRecords(
	ctx context.Context,
	plate string,
	limit, offset int,
) ([]domain.ArchivedSession, error) {
	const op = "service.query.ArchivedRecords"

	if s.archive == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrArchiveDisabled)
	}

	if offset < 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidPageParam)
	}

	if limit <= 0 {
		limit = s.cfg.DefaultPageSize
	}

	if limit > s.cfg.MaxPageSize {
		limit = s.cfg.MaxPageSize
	}

	out, err := s.archive.ListSessions(ctx, domain.ArchiveFilter{
		Plate:  strings.ToUpper(strings.TrimSpace(plate)),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return out, nil
}
