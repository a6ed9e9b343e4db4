package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/repository"
)

var rankingSortKeys = sortKeys{
	"level":       repository.ColumnLevel,
	"reviewCount": repository.ColumnReviewCount,
	"likeCount":   repository.ColumnLikeCount,
}

type RankingQuery struct {
	SortBy string
	Order  string
	Limit  int
}

type RankingService struct {
	repo   repository.RankingRepository
	logger *slog.Logger
}

func NewRankingService(repo repository.RankingRepository, logger *slog.Logger) *RankingService {
	return &RankingService{repo: repo, logger: logger}
}

// List ranks active accounts, ties broken by account id.
func (s *RankingService) List(ctx context.Context, q RankingQuery) ([]model.RankedUser, error) {
	sort, err := parseFieldSort(q.SortBy, q.Order, "level", true, rankingSortKeys)
	if err != nil {
		return nil, err
	}
	opts := Page{Limit: q.Limit}.options(DefaultRankingLimit)

	ranked, err := s.repo.ListRankedUsers(ctx, sort, opts.Limit)
	if err != nil {
		s.logger.Error("failed to list rankings", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing rankings: %w", err)
	}
	return ranked, nil
}
