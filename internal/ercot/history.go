package ercot

import (
	"context"

	"github.com/rs/zerolog"

	"spp-forecast/internal/model"
)

// PageFetcher fetches one page of a range query.
type PageFetcher interface {
	FetchPage(ctx context.Context, q model.RangeQuery, page int) (model.Page, error)
}

// FetchRange collects every record of q. Pages are requested one at a time
// in ascending order; a missing totalPages means the first page is the
// only one. Any page failure discards everything collected so far.
func FetchRange(ctx context.Context, pages PageFetcher, q model.RangeQuery, log zerolog.Logger) ([]model.SettlementPriceRecord, error) {
	first, err := pages.FetchPage(ctx, q, 1)
	if err != nil {
		return nil, err
	}
	all := append([]model.SettlementPriceRecord(nil), first.Records...)

	total := 1
	if first.Meta.TotalPages != nil {
		total = *first.Meta.TotalPages
	}
	log.Debug().Str("settlement_point", q.SettlementPoint).Int("page", 1).Int("total_pages", total).Int("records", len(first.Records)).Msg("fetched page")

	for page := 2; page <= total; page++ {
		next, err := pages.FetchPage(ctx, q, page)
		if err != nil {
			log.Debug().Err(err).Int("page", page).Msg("range fetch aborted")
			return nil, err
		}
		all = append(all, next.Records...)
		log.Debug().Int("page", page).Int("total_pages", total).Int("records", len(next.Records)).Msg("fetched page")
	}
	return all, nil
}

// FetchRange collects every record of q through this client.
func (c *Client) FetchRange(ctx context.Context, q model.RangeQuery) ([]model.SettlementPriceRecord, error) {
	return FetchRange(ctx, c, q, c.log)
}
